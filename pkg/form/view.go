package form

import (
	"net/url"
	"regexp"

	"github.com/goliatone/go-admission/pkg/catalog"
	"github.com/goliatone/go-admission/pkg/state"
)

var imagePattern = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|webp)$`)

// View is a read-only snapshot of a session for renderers.
type View struct {
	Step          Step                      `json:"step"`
	Programs      []string                  `json:"programs"`
	Program       string                    `json:"program"`
	ProgramLocked bool                      `json:"programLocked"`
	AcademicYear  string                    `json:"academicYear"`
	Source        catalog.ApplicationSource `json:"applicationSource"`
	ApplicationID string                    `json:"applicationId,omitempty"`
	InstituteID   string                    `json:"instituteId"`
	Student       string                    `json:"student"`
	Submitted     bool                      `json:"submitted"`
	Errors        map[string]string         `json:"errors,omitempty"`
	FormErrors    []string                  `json:"formErrors,omitempty"`
	Groups        []GroupView               `json:"groups"`
}

// GroupView is one field group.
type GroupView struct {
	Group    catalog.Group `json:"group"`
	Sections []SectionView `json:"sections"`
}

// SectionView is one section with its materialized fields.
type SectionView struct {
	Name   string      `json:"name"`
	Fields []FieldView `json:"fields"`
}

// FieldView is a field with everything needed to render it.
type FieldView struct {
	Name      string            `json:"name"`
	Label     string            `json:"label"`
	Type      catalog.FieldType `json:"type"`
	Required  bool              `json:"required"`
	MaxLength int               `json:"maxLength,omitempty"`
	Value     state.Value       `json:"value"`
	Error     string            `json:"error,omitempty"`
	Options   []catalog.Option  `json:"options,omitempty"`
	Enabled   bool              `json:"enabled"`
	Hidden    bool              `json:"hidden"`
	Removable bool              `json:"removable"`
	Locked    bool              `json:"locked"`
	Stored    *StoredFile       `json:"stored,omitempty"`
	Pending   string            `json:"pending,omitempty"`
}

// StoredFile links a file the server already holds.
type StoredFile struct {
	Name  string `json:"name"`
	URL   string `json:"url,omitempty"`
	Image bool   `json:"image"`
}

// View snapshots the session.
func (s *Session) View() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return View{}, ErrNotLoaded
	}

	v := View{
		Step:          s.step,
		Programs:      append([]string(nil), s.settings.Courses...),
		Program:       s.program,
		ProgramLocked: s.paid,
		AcademicYear:  s.academicYear,
		Source:        s.source,
		ApplicationID: s.applicationID,
		InstituteID:   s.student.InstituteID,
		Student:       s.student.FullName(),
		Submitted:     s.submitted,
		FormErrors:    append([]string(nil), s.formErrors...),
	}
	if errs := s.st.Errors(); len(errs) > 0 {
		v.Errors = errs
	}
	for _, g := range catalog.Groups() {
		gv := GroupView{Group: g}
		for _, section := range s.cfg.Sections(g) {
			sv := SectionView{Name: section.SectionName, Fields: make([]FieldView, 0, len(section.Fields))}
			for _, field := range section.Fields {
				sv.Fields = append(sv.Fields, s.fieldView(g, field))
			}
			gv.Sections = append(gv.Sections, sv)
		}
		v.Groups = append(v.Groups, gv)
	}
	return v, nil
}

func (s *Session) fieldView(g catalog.Group, field catalog.FieldSpec) FieldView {
	fv := FieldView{
		Name:      field.FieldName,
		Label:     field.Label,
		Type:      field.Type,
		Required:  field.Required,
		MaxLength: s.normalizer.MaxLength(field),
		Value:     s.st.Get(field.FieldName),
		Error:     s.st.Error(field.FieldName),
		Options:   s.resolver.Options(s.cfg, g, field, s.st),
		Enabled:   s.resolver.Enabled(s.cfg, g, field.FieldName, s.st) && !s.isLocked(field.FieldName),
		Hidden:    !s.visible(field),
		Removable: field.IsCustom,
		Locked:    s.isLocked(field.FieldName),
	}
	if stored, ok := s.st.Stored(field.FieldName); ok {
		fv.Stored = &StoredFile{Name: stored, URL: s.fileURL(stored), Image: imagePattern.MatchString(stored)}
	}
	if f, ok := s.st.File(field.FieldName); ok {
		fv.Pending = f.Name
	}
	return fv
}

func (s *Session) fileURL(name string) string {
	if s.uploadsBaseURL == "" {
		return ""
	}
	return s.uploadsBaseURL + "/" + url.PathEscape(name)
}
