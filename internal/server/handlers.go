package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/goliatone/go-admission/pkg/catalog"
	"github.com/goliatone/go-admission/pkg/form"
	"github.com/goliatone/go-admission/pkg/state"
	"github.com/goliatone/go-admission/pkg/submission"
)

type sessionResponse struct {
	ID   string    `json:"id"`
	View form.View `json:"view"`
}

type blurResponse struct {
	Field string `json:"field"`
	Error string `json:"error,omitempty"`
}

type submitResponse struct {
	ApplicationID string    `json:"applicationId"`
	Message       string    `json:"message,omitempty"`
	View          form.View `json:"view"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.store.Len()})
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	backend, err := s.backends(r)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("server: backend: %w", err))
		return
	}
	session := form.New(backend, s.sessionOpts...)
	if err := session.Load(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	id := s.store.Put(session)
	s.respond(w, r, http.StatusCreated, id, session)
}

func (s *Server) view(w http.ResponseWriter, r *http.Request) {
	id, session, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respond(w, r, http.StatusOK, id, session)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	if !s.store.Delete(chi.URLParam(r, "id")) {
		s.writeError(w, r, errUnknownSession)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) schema(w http.ResponseWriter, r *http.Request) {
	_, session, ok := s.session(w, r)
	if !ok {
		return
	}
	cfg, err := session.Configuration()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, catalog.Document(cfg, schemaTitle, schemaVersion))
}

func (s *Server) setProgram(w http.ResponseWriter, r *http.Request) {
	id, session, ok := s.session(w, r)
	if !ok {
		return
	}
	var body struct {
		Program string `json:"program"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if err := session.SetProgram(body.Program); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, id, session)
}

func (s *Server) setField(w http.ResponseWriter, r *http.Request) {
	id, session, ok := s.session(w, r)
	if !ok {
		return
	}
	var body struct {
		Value state.Value `json:"value"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if err := session.SetValue(fieldParam(r), body.Value); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, id, session)
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	id, session, ok := s.session(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "expected a multipart \"file\" part")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		badRequest(w, "could not read upload")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	f := state.File{Name: header.Filename, ContentType: contentType, Data: data}
	if err := session.SetFile(fieldParam(r), f); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, id, session)
}

func (s *Server) blur(w http.ResponseWriter, r *http.Request) {
	_, session, ok := s.session(w, r)
	if !ok {
		return
	}
	name := fieldParam(r)
	msg, err := session.Blur(name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, blurResponse{Field: name, Error: msg})
}

func (s *Server) removeField(w http.ResponseWriter, r *http.Request) {
	id, session, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := session.RemoveField(fieldParam(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, id, session)
}

func (s *Server) next(w http.ResponseWriter, r *http.Request) {
	id, session, ok := s.session(w, r)
	if !ok {
		return
	}
	if _, err := session.Next(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, id, session)
}

func (s *Server) prev(w http.ResponseWriter, r *http.Request) {
	id, session, ok := s.session(w, r)
	if !ok {
		return
	}
	session.Prev()
	s.respond(w, r, http.StatusOK, id, session)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	_, session, ok := s.session(w, r)
	if !ok {
		return
	}
	result, err := session.Submit(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondResult(w, r, session, result)
}

func (s *Server) respondResult(w http.ResponseWriter, r *http.Request, session *form.Session, result submission.Result) {
	view, err := session.View()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{ApplicationID: result.ApplicationID, Message: result.Message, View: view})
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, id string, session *form.Session) {
	view, err := session.View()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, status, sessionResponse{ID: id, View: view})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (string, *form.Session, bool) {
	id := chi.URLParam(r, "id")
	session, ok := s.store.Get(id)
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: %s", errUnknownSession, id))
		return "", nil, false
	}
	return id, session, true
}
