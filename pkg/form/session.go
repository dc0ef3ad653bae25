package form

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-admission/pkg/catalog"
	"github.com/goliatone/go-admission/pkg/dependency"
	"github.com/goliatone/go-admission/pkg/normalize"
	"github.com/goliatone/go-admission/pkg/state"
	"github.com/goliatone/go-admission/pkg/submission"
	"github.com/goliatone/go-admission/pkg/validation"
)

// Step is a wizard position.
type Step string

const (
	StepProgram   Step = "program"
	StepPersonal  Step = "personal"
	StepEducation Step = "education"
)

// Steps lists the wizard positions in order.
func Steps() []Step { return []Step{StepProgram, StepPersonal, StepEducation} }

// Valid reports whether s is a known step.
func (s Step) Valid() bool {
	switch s {
	case StepProgram, StepPersonal, StepEducation:
		return true
	default:
		return false
	}
}

// Group returns the field group shown on the step, if any.
func (s Step) Group() (catalog.Group, bool) {
	switch s {
	case StepPersonal:
		return catalog.GroupPersonal, true
	case StepEducation:
		return catalog.GroupEducation, true
	default:
		return "", false
	}
}

// Pseudo-fields carrying errors that do not belong to a catalog field.
const (
	FieldProgram     = "program"
	FieldInstituteID = "instituteId"
)

// Prefilled field names.
const (
	FieldFirstName = "First Name"
	FieldLastName  = "Last Name"
	FieldFullName  = "Full Name"
	FieldEmail     = "Email Address"
	FieldMobile    = "Contact Number"
)

const bootstrapSource = "bootstrap"

var storedFilePattern = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|webp|pdf)$`)

// Session is one applicant's form. It is safe for concurrent use.
type Session struct {
	backend        Backend
	resolver       *dependency.Resolver
	baseValidator  *validation.Validator
	normalizer     *normalize.Registry
	logger         Logger
	marker         ResumeMarker
	uploadsBaseURL string
	defaultSource  catalog.ApplicationSource
	locked         map[string]struct{}
	parseOptions   []catalog.ParseOption

	busy atomic.Bool
	mu   sync.Mutex

	loaded        bool
	cfg           *catalog.FormConfiguration
	st            *state.State
	validator     *validation.Validator
	student       catalog.Student
	settings      catalog.Settings
	step          Step
	program       string
	academicYear  string
	source        catalog.ApplicationSource
	applicationID string
	paid          bool
	submitted     bool
	formErrors    []string
}

// New builds an unloaded session. Call Load before anything else.
func New(backend Backend, opts ...Option) *Session {
	s := &Session{
		backend:       backend,
		logger:        nopLogger{},
		marker:        &MemoryMarker{},
		defaultSource: catalog.SourceOnline,
		locked:        map[string]struct{}{FieldEmail: {}, FieldMobile: {}},
		parseOptions:  []catalog.ParseOption{catalog.WithLenientTypes()},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if s.resolver == nil {
		s.resolver = dependency.New()
	}
	if s.baseValidator == nil {
		s.baseValidator = validation.New()
	}
	if s.normalizer == nil {
		s.normalizer = normalize.Default()
	}
	return s
}

// Load fetches the configuration, prefills the student's details, reconciles
// any existing application and consumes the resume marker. Calling it again
// reloads from the backend.
func (s *Session) Load(ctx context.Context) error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.busy.Store(false)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Session) load(ctx context.Context) error {
	boot, err := s.backend.Bootstrap(ctx)
	if err != nil {
		s.logger.Error("form: bootstrap failed", err)
		return &SubmissionError{Op: "load", Err: err}
	}
	if boot.Student == nil {
		err := catalog.Missing("student")
		err.Source = bootstrapSource
		return err
	}
	cfg := boot.Form.Clone()
	if err := catalog.Prepare(cfg, bootstrapSource, s.parseOptions...); err != nil {
		s.logger.Error("form: invalid configuration", err)
		return err
	}

	st := state.New()
	student := *boot.Student
	prefill := map[string]string{
		FieldFirstName: student.FirstName,
		FieldLastName:  student.LastName,
		FieldFullName:  student.FullName(),
		FieldEmail:     student.Email,
		FieldMobile:    student.MobileNo,
	}
	for name, value := range prefill {
		if _, _, ok := cfg.Lookup(name); ok {
			st.Set(name, state.Text(value))
		}
	}

	minAge := 0
	if boot.Settings.ApplicantAge != nil {
		minAge = *boot.Settings.ApplicantAge
	}

	next := loadResult{
		cfg:          cfg,
		st:           st,
		student:      student,
		settings:     boot.Settings,
		academicYear: boot.Settings.AcademicYear,
		source:       s.defaultSource,
	}

	if id := strings.TrimSpace(student.ApplicationID); id != "" {
		rec, err := s.backend.Application(ctx, id)
		switch {
		case errors.Is(err, submission.ErrNotFound):
			s.logger.Warn("form: linked application not found", id)
		case err != nil:
			s.logger.Error("form: fetch application failed", err)
			return &SubmissionError{Op: "load application", Err: err}
		default:
			next.reconcile(rec)
			if next.applicationID == "" {
				next.applicationID = id
			}
		}
	}

	for _, name := range s.resolver.Expand(cfg, st) {
		st.Delete(name)
	}

	s.cfg = next.cfg
	s.st = next.st
	s.student = next.student
	s.settings = next.settings
	s.validator = s.baseValidator.ForMinAge(minAge)
	s.program = next.program
	s.academicYear = next.academicYear
	s.source = next.source
	s.applicationID = next.applicationID
	s.paid = next.paid
	s.submitted = false
	s.formErrors = nil
	s.step = StepProgram
	s.loaded = true
	s.logger.Debug("form: loaded", s.student)

	if step, ok := s.marker.Take(); ok && step.Valid() {
		s.step = step
		s.logger.Info("form: resuming", string(step))
	}
	return nil
}

type loadResult struct {
	cfg           *catalog.FormConfiguration
	st            *state.State
	student       catalog.Student
	settings      catalog.Settings
	program       string
	academicYear  string
	source        catalog.ApplicationSource
	applicationID string
	paid          bool
}

// reconcile copies a stored application into the fresh state. Values that
// look like uploaded documents or images are also recorded as stored files.
func (r *loadResult) reconcile(rec submission.Record) {
	for name, value := range rec.Values() {
		r.st.Set(name, value)
		if !value.IsList() && storedFilePattern.MatchString(strings.TrimSpace(value.String())) {
			r.st.SetStored(name, strings.TrimSpace(value.String()))
		}
	}
	r.program = strings.TrimSpace(rec.Program)
	if year := strings.TrimSpace(rec.AcademicYear); year != "" {
		r.academicYear = year
	}
	if rec.ApplicationSource != "" {
		r.source = rec.ApplicationSource
	}
	r.applicationID = rec.Identifier()
	r.paid = rec.Paid()
}

// Loaded reports whether Load has succeeded.
func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Busy reports whether a backend call is in flight.
func (s *Session) Busy() bool { return s.busy.Load() }

// Step returns the current wizard step.
func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// ApplicationID returns the id of the linked application, if one exists.
func (s *Session) ApplicationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applicationID
}

// Configuration returns a copy of the materialized form configuration,
// generated fields included.
func (s *Session) Configuration() (*catalog.FormConfiguration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return nil, ErrNotLoaded
	}
	return s.cfg.Clone(), nil
}

// Value returns the current value of name.
func (s *Session) Value(name string) state.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Get(name)
}

// Errors returns the current field messages.
func (s *Session) Errors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st == nil {
		return map[string]string{}
	}
	return s.st.Errors()
}

func (s *Session) isLocked(name string) bool {
	_, ok := s.locked[name]
	return ok
}

func (s *Session) extras() map[string]any {
	return map[string]any{
		"step":    string(s.step),
		"program": s.program,
	}
}

func (s *Session) visible(field catalog.FieldSpec) bool {
	return s.resolver.Visible(field, s.st, s.extras())
}

func (s *Session) knownField(name string) bool {
	if name == FieldProgram || name == FieldInstituteID {
		return true
	}
	_, _, ok := s.cfg.Lookup(name)
	return ok
}
