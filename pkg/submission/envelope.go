package submission

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/goliatone/go-admission/pkg/catalog"
	"github.com/goliatone/go-admission/pkg/state"
)

// Multipart part names.
const (
	PartInstituteID       = "instituteId"
	PartProgram           = "program"
	PartAcademicYear      = "academicYear"
	PartApplicationSource = "applicationSource"
	PartPersonalDetails   = "personalDetails"
	PartEducationDetails  = "educationDetails"
)

// Meta identifies the application an envelope belongs to.
type Meta struct {
	InstituteID  string
	Program      string
	AcademicYear string
	Source       catalog.ApplicationSource
}

// FilePart is an upload keyed by the field it belongs to.
type FilePart struct {
	Field string
	File  state.File
}

// Envelope is a complete save request.
type Envelope struct {
	Meta
	Partial   bool
	Personal  []SectionPayload
	Education []SectionPayload
	Files     []FilePart
}

// Partial bundles the personal group and its uploads only.
func Partial(meta Meta, cfg *catalog.FormConfiguration, st *state.State) Envelope {
	personal := cfg.Sections(catalog.GroupPersonal)
	return Envelope{
		Meta:     meta,
		Partial:  true,
		Personal: MapGroup(personal, st),
		Files:    GroupFiles(personal, st),
	}
}

// Full bundles both groups and every locally selected file.
func Full(meta Meta, cfg *catalog.FormConfiguration, st *state.State) Envelope {
	var files []FilePart
	for _, g := range catalog.Groups() {
		files = append(files, GroupFiles(cfg.Sections(g), st)...)
	}
	return Envelope{
		Meta:      meta,
		Personal:  MapGroup(cfg.Sections(catalog.GroupPersonal), st),
		Education: MapGroup(cfg.Sections(catalog.GroupEducation), st),
		Files:     files,
	}
}

// WriteMultipart encodes the envelope as multipart/form-data and returns the
// content type, boundary included.
func (e Envelope) WriteMultipart(w io.Writer) (string, error) {
	mw := multipart.NewWriter(w)

	fields := []struct{ name, value string }{
		{PartInstituteID, e.InstituteID},
		{PartProgram, e.Program},
		{PartAcademicYear, e.AcademicYear},
		{PartApplicationSource, string(e.Source)},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return "", fmt.Errorf("submission: write %s: %w", f.name, err)
		}
	}

	if err := writeJSONField(mw, PartPersonalDetails, e.Personal); err != nil {
		return "", err
	}
	if !e.Partial {
		if err := writeJSONField(mw, PartEducationDetails, e.Education); err != nil {
			return "", err
		}
	}

	for _, part := range e.Files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			escapeQuotes(part.Field), escapeQuotes(part.File.Name)))
		contentType := part.File.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)

		pw, err := mw.CreatePart(header)
		if err != nil {
			return "", fmt.Errorf("submission: create file part %s: %w", part.Field, err)
		}
		if _, err := pw.Write(part.File.Data); err != nil {
			return "", fmt.Errorf("submission: write file part %s: %w", part.Field, err)
		}
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("submission: close multipart: %w", err)
	}
	return mw.FormDataContentType(), nil
}

// Encode buffers the multipart body.
func (e Envelope) Encode() (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	contentType, err := e.WriteMultipart(&buf)
	if err != nil {
		return nil, "", err
	}
	return &buf, contentType, nil
}

func writeJSONField(mw *multipart.Writer, name string, sections []SectionPayload) error {
	if sections == nil {
		sections = []SectionPayload{}
	}
	data, err := json.Marshal(sections)
	if err != nil {
		return fmt.Errorf("submission: encode %s: %w", name, err)
	}
	if err := mw.WriteField(name, string(data)); err != nil {
		return fmt.Errorf("submission: write %s: %w", name, err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
