package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/goliatone/go-admission/pkg/catalog"
	"github.com/goliatone/go-admission/pkg/form"
)

var errUnknownSession = errors.New("server: unknown session")

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(v)
}

// statusFor maps session errors onto HTTP statuses.
func statusFor(err error) int {
	var (
		validationErr *form.ValidationError
		submissionErr *form.SubmissionError
		configErr     *catalog.ConfigurationError
	)
	switch {
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &configErr):
		return http.StatusServiceUnavailable
	case errors.As(err, &submissionErr):
		return http.StatusBadGateway
	case errors.Is(err, form.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, errUnknownSession), errors.Is(err, form.ErrUnknownField):
		return http.StatusNotFound
	case errors.Is(err, form.ErrFieldLocked), errors.Is(err, form.ErrNotRemovable), errors.Is(err, form.ErrProgramLocked):
		return http.StatusForbidden
	case errors.Is(err, form.ErrNotFileField), errors.Is(err, form.ErrUnknownProgram), errors.Is(err, form.ErrLastStep):
		return http.StatusBadRequest
	case errors.Is(err, form.ErrNotLoaded), errors.Is(err, form.ErrNotAtStep):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorResponse{Error: err.Error()}

	var validationErr *form.ValidationError
	if errors.As(err, &validationErr) {
		body.Fields = make(map[string]string, len(validationErr.Fields))
		for _, f := range validationErr.Fields {
			body.Fields[f.Field] = f.Message
		}
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("server: "+r.Method+" "+r.URL.Path+" failed", err)
		body.Error = http.StatusText(status)
	}
	writeJSON(w, status, body)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// fieldParam returns the decoded {field} segment. Field names carry spaces
// and punctuation, so the segment may arrive escaped.
func fieldParam(r *http.Request) string {
	raw := chi.URLParam(r, "field")
	if r.URL.RawPath == "" {
		return raw
	}
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}
