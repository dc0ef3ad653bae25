package form

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/goliatone/go-admission/pkg/catalog"
	"github.com/goliatone/go-admission/pkg/state"
)

// SetValue normalizes v for the field's type and stores it, clearing the
// field's message. Location fields are stored as given since their values
// come from the gazetteer. A location field that changes resets its
// dependents; a count field regenerates the fields it drives.
func (s *Session) SetValue(name string, v state.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	field, err := s.editable(name)
	if err != nil {
		return err
	}
	next := v
	if !s.resolver.IsLocation(name) {
		next = s.normalizer.Normalize(field, v)
	}
	if field.Type.Multi() && !next.IsList() {
		next = state.List(next.Items()...)
	}
	previous := s.st.Get(name)
	s.st.Set(name, next)

	if s.resolver.IsLocation(name) && !previous.Equal(next) {
		if reset := s.resolver.Cascade(s.st, name); len(reset) > 0 {
			s.logger.Debug("form: reset dependents", name, reset)
		}
	}
	if s.resolver.IsCountField(name) {
		for _, removed := range s.resolver.Expand(s.cfg, s.st) {
			s.st.Delete(removed)
		}
	}
	return nil
}

// SetText stores a single text value.
func (s *Session) SetText(name, value string) error {
	return s.SetValue(name, state.Text(value))
}

// SetList stores a checkbox selection.
func (s *Session) SetList(name string, items ...string) error {
	return s.SetValue(name, state.List(items...))
}

// SetFile selects a local file for a file field. The filename becomes the
// field's text value.
func (s *Session) SetFile(name string, f state.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	field, err := s.editable(name)
	if err != nil {
		return err
	}
	if field.Type != catalog.TypeFile {
		return fmt.Errorf("%w: %q", ErrNotFileField, name)
	}
	f.Name = strings.TrimSpace(f.Name)
	if f.Name == "" {
		return errors.New("form: file has no name")
	}
	s.st.SetFile(name, f)
	return nil
}

// SetProgram selects the course applied for.
func (s *Session) SetProgram(program string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return ErrNotLoaded
	}
	program = strings.TrimSpace(program)
	if s.paid && program != s.program {
		return ErrProgramLocked
	}
	if program != "" && len(s.settings.Courses) > 0 && !slices.Contains(s.settings.Courses, program) {
		return fmt.Errorf("%w: %q", ErrUnknownProgram, program)
	}
	s.program = program
	s.st.SetError(FieldProgram, "")
	return nil
}

// Program returns the selected course.
func (s *Session) Program() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.program
}

// Blur validates one field, records the result and returns the message.
func (s *Session) Blur(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	field, err := s.field(name)
	if err != nil {
		return "", err
	}
	msg := ""
	if s.visible(field) {
		msg = s.validator.Field(field, s.st)
	}
	s.st.SetError(name, msg)
	return msg, nil
}

// RemoveField drops a generated field and its value. Declared fields cannot
// be removed.
func (s *Session) RemoveField(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	field, err := s.field(name)
	if err != nil {
		return err
	}
	if !field.IsCustom {
		return fmt.Errorf("%w: %q", ErrNotRemovable, name)
	}
	for _, g := range catalog.Groups() {
		sections := s.cfg.Sections(g)
		for i := range sections {
			fields := sections[i].Fields
			for j := range fields {
				if fields[j].FieldName == name {
					sections[i].Fields = slices.Delete(fields, j, j+1)
					s.st.Delete(name)
					return nil
				}
			}
		}
	}
	return nil
}

// Options returns the choices currently offered for name.
func (s *Session) Options(name string) ([]catalog.Option, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	field, group, ok := s.lookup(name)
	if !ok {
		return nil, s.unknown(name)
	}
	return s.resolver.Options(s.cfg, group, field, s.st), nil
}

func (s *Session) lookup(name string) (catalog.FieldSpec, catalog.Group, bool) {
	if !s.loaded {
		return catalog.FieldSpec{}, "", false
	}
	return s.cfg.Lookup(name)
}

func (s *Session) unknown(name string) error {
	if !s.loaded {
		return ErrNotLoaded
	}
	return fmt.Errorf("%w: %q", ErrUnknownField, name)
}

func (s *Session) field(name string) (catalog.FieldSpec, error) {
	field, _, ok := s.lookup(name)
	if !ok {
		return catalog.FieldSpec{}, s.unknown(name)
	}
	return field, nil
}

func (s *Session) editable(name string) (catalog.FieldSpec, error) {
	field, err := s.field(name)
	if err != nil {
		return field, err
	}
	if s.isLocked(name) {
		return field, fmt.Errorf("%w: %q", ErrFieldLocked, name)
	}
	return field, nil
}

