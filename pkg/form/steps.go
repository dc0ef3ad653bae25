package form

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-admission/pkg/catalog"
	"github.com/goliatone/go-admission/pkg/submission"
)

const (
	msgProgramRequired   = "Please select a program"
	msgInstituteRequired = "Institute is required"
)

// Next validates the current step and advances. Leaving the personal step
// saves the personal group first when no application exists yet, then
// reloads the session and resumes at the education step.
func (s *Session) Next(ctx context.Context) (Step, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return "", ErrBusy
	}
	defer s.busy.Store(false)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return "", ErrNotLoaded
	}

	switch s.step {
	case StepProgram:
		if err := s.checkProgram(); err != nil {
			return s.step, err
		}
		s.step = StepPersonal
	case StepPersonal:
		if err := s.validateGroup(catalog.GroupPersonal); err != nil {
			return s.step, err
		}
		if s.applicationID != "" {
			s.step = StepEducation
			break
		}
		if err := s.savePartial(ctx); err != nil {
			return s.step, err
		}
	default:
		return s.step, ErrLastStep
	}
	s.formErrors = nil
	return s.step, nil
}

// Prev steps back and clears every validation message.
func (s *Session) Prev() Step {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.step {
	case StepEducation:
		s.step = StepPersonal
	case StepPersonal:
		s.step = StepProgram
	}
	if s.st != nil {
		s.st.ClearErrors()
	}
	s.formErrors = nil
	return s.step
}

// Submit validates the education group and sends the whole form. It is only
// accepted at the education step, which is reached by passing the personal
// step's validation and save.
func (s *Session) Submit(ctx context.Context) (submission.Result, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return submission.Result{}, ErrBusy
	}
	defer s.busy.Store(false)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return submission.Result{}, ErrNotLoaded
	}
	if s.step != StepEducation {
		return submission.Result{}, fmt.Errorf("%w: submit requires %q, at %q", ErrNotAtStep, StepEducation, s.step)
	}

	var fields []FieldError
	if s.student.InstituteID == "" {
		s.st.SetError(FieldInstituteID, msgInstituteRequired)
		fields = append(fields, FieldError{Field: FieldInstituteID, Message: msgInstituteRequired})
	}
	if err := s.checkProgram(); err != nil {
		fields = append(fields, FieldError{Field: FieldProgram, Message: msgProgramRequired})
	}
	if err := s.validateGroup(catalog.GroupEducation); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			fields = append(fields, verr.Fields...)
		}
	}
	if len(fields) > 0 {
		return submission.Result{}, &ValidationError{Err: ErrInvalid, Fields: fields}
	}

	env := submission.Full(s.meta(), s.cfg, s.st)
	s.logger.Info("form: submitting application", s.applicationID)
	result, err := s.backend.Save(ctx, env)
	if err != nil {
		return submission.Result{}, s.saveFailed("submit", err)
	}
	s.committed(env, result)
	s.submitted = true
	return result, nil
}

func (s *Session) savePartial(ctx context.Context) error {
	env := submission.Partial(s.meta(), s.cfg, s.st)
	s.logger.Info("form: saving personal details")
	result, err := s.backend.Save(ctx, env)
	if err != nil {
		return s.saveFailed("save personal details", err)
	}
	s.committed(env, result)

	s.marker.Set(StepEducation)
	if err := s.load(ctx); err != nil {
		s.logger.Error("form: reload after save failed", err)
		var subErr *SubmissionError
		if errors.As(err, &subErr) {
			return &SubmissionError{Op: "reload", Err: subErr.Err}
		}
		return &SubmissionError{Op: "reload", Err: err}
	}
	return nil
}

func (s *Session) committed(env submission.Envelope, result submission.Result) {
	for _, part := range env.Files {
		s.st.Commit(part.Field)
	}
	if result.ApplicationID != "" {
		s.applicationID = result.ApplicationID
	}
	s.formErrors = nil
}

// saveFailed maps a backend error. Field rejections become a
// ValidationError with the messages recorded on the fields; anything else is
// a SubmissionError.
func (s *Session) saveFailed(op string, err error) error {
	s.logger.Error("form: "+op+" failed", err)

	var reporter FieldErrorReporter
	if !errors.As(err, &reporter) {
		return &SubmissionError{Op: op, Err: err}
	}
	mapping := submission.MapErrors(s.knownField, reporter.FieldErrors())
	s.formErrors = mapping.Form
	if len(mapping.Fields) == 0 {
		return &SubmissionError{Op: op, Err: err}
	}

	var fields []FieldError
	for _, name := range s.orderedFields() {
		messages, ok := mapping.Fields[name]
		if !ok {
			continue
		}
		s.st.SetError(name, messages[0])
		fields = append(fields, FieldError{Field: name, Message: messages[0]})
	}
	return &ValidationError{Err: err, Fields: fields}
}

func (s *Session) checkProgram() error {
	if s.program != "" {
		return nil
	}
	s.st.SetError(FieldProgram, msgProgramRequired)
	return &ValidationError{Err: ErrInvalid, Fields: []FieldError{{Field: FieldProgram, Message: msgProgramRequired}}}
}

func (s *Session) validateGroup(g catalog.Group) error {
	sections := s.cfg.Sections(g)
	if s.validator.Group(sections, s.st, s.visible) {
		return nil
	}
	var fields []FieldError
	for _, section := range sections {
		for _, field := range section.Fields {
			if msg := s.st.Error(field.FieldName); msg != "" {
				fields = append(fields, FieldError{Field: field.FieldName, Message: msg})
			}
		}
	}
	return &ValidationError{Err: ErrInvalid, Fields: fields}
}

// orderedFields lists the pseudo-fields then every catalog field in section
// order.
func (s *Session) orderedFields() []string {
	names := []string{FieldInstituteID, FieldProgram}
	for _, g := range catalog.Groups() {
		for _, section := range s.cfg.Sections(g) {
			for _, field := range section.Fields {
				names = append(names, field.FieldName)
			}
		}
	}
	return names
}

func (s *Session) meta() submission.Meta {
	return submission.Meta{
		InstituteID:  s.student.InstituteID,
		Program:      s.program,
		AcademicYear: s.academicYear,
		Source:       s.source,
	}
}
