// Package prompt walks an admission form session in the terminal.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-admission/pkg/catalog"
	"github.com/goliatone/go-admission/pkg/form"
	"github.com/goliatone/go-admission/pkg/state"
	"github.com/goliatone/go-admission/pkg/submission"
)

const (
	skipOption = "(skip)"

	// DefaultMaxAttempts bounds how often one field is asked in a row.
	DefaultMaxAttempts = 3
)

// Session is the part of form.Session the wizard drives.
type Session interface {
	View() (form.View, error)
	SetProgram(program string) error
	SetValue(name string, v state.Value) error
	SetFile(name string, f state.File) error
	Blur(name string) (string, error)
	Next(ctx context.Context) (form.Step, error)
	Submit(ctx context.Context) (submission.Result, error)
}

// FileReader loads a local file chosen for a file field.
type FileReader func(path string) (state.File, error)

// Theme holds optional message prefixes.
type Theme struct {
	SectionPrefix string
	ErrorPrefix   string
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithPromptDriver overrides the survey-backed driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(w *Wizard) {
		if driver != nil {
			w.driver = driver
		}
	}
}

// WithFileReader overrides how file paths are read.
func WithFileReader(fn FileReader) Option {
	return func(w *Wizard) {
		if fn != nil {
			w.readFile = fn
		}
	}
}

// WithMaxAttempts caps how many invalid answers a field accepts before the
// wizard gives up with ErrAborted.
func WithMaxAttempts(n int) Option {
	return func(w *Wizard) {
		if n > 0 {
			w.maxAttempts = n
		}
	}
}

// WithTheme applies message prefixes.
func WithTheme(theme Theme) Option {
	return func(w *Wizard) {
		w.theme = theme
	}
}

// Wizard prompts for every visible field step by step, then submits.
type Wizard struct {
	session  Session
	driver   PromptDriver
	readFile FileReader
	theme    Theme

	maxAttempts int
}

// New builds a wizard for a loaded session.
func New(session Session, options ...Option) *Wizard {
	w := &Wizard{
		session:  session,
		driver:   NewSurveyDriver(nil),
		readFile: ReadFile,
		theme:    Theme{SectionPrefix: "== ", ErrorPrefix: "! "},

		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(w)
	}
	return w
}

// Run drives the session from its current step to a submitted application.
func (w *Wizard) Run(ctx context.Context) (submission.Result, error) {
	for {
		if err := ctx.Err(); err != nil {
			return submission.Result{}, err
		}
		view, err := w.session.View()
		if err != nil {
			return submission.Result{}, err
		}

		switch view.Step {
		case form.StepProgram:
			if err := w.promptProgram(ctx, view); err != nil {
				return submission.Result{}, err
			}
			if err := w.advance(ctx); err != nil {
				return submission.Result{}, err
			}
		case form.StepPersonal:
			if err := w.promptGroup(ctx, catalog.GroupPersonal); err != nil {
				return submission.Result{}, err
			}
			if err := w.advance(ctx); err != nil {
				return submission.Result{}, err
			}
		case form.StepEducation:
			if err := w.promptGroup(ctx, catalog.GroupEducation); err != nil {
				return submission.Result{}, err
			}
			return w.submit(ctx)
		default:
			return submission.Result{}, fmt.Errorf("prompt: unknown step %q", view.Step)
		}
	}
}

// advance moves to the next step, re-prompting the fields that block it.
func (w *Wizard) advance(ctx context.Context) error {
	for {
		_, err := w.session.Next(ctx)
		var verr *form.ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		if err := w.fix(ctx, verr); err != nil {
			return err
		}
	}
}

func (w *Wizard) submit(ctx context.Context) (submission.Result, error) {
	for {
		ok, err := w.driver.Confirm(ctx, ConfirmConfig{Message: "Submit application?", Default: true})
		if err != nil {
			return submission.Result{}, err
		}
		if !ok {
			return submission.Result{}, ErrAborted
		}
		result, err := w.session.Submit(ctx)
		var verr *form.ValidationError
		if !errors.As(err, &verr) {
			if err == nil && result.Message != "" {
				_ = w.driver.Info(ctx, result.Message)
			}
			return result, err
		}
		if err := w.fix(ctx, verr); err != nil {
			return submission.Result{}, err
		}
	}
}

func (w *Wizard) fix(ctx context.Context, verr *form.ValidationError) error {
	for _, fe := range verr.Fields {
		_ = w.driver.Info(ctx, w.theme.ErrorPrefix+fe.Message)
	}
	view, err := w.session.View()
	if err != nil {
		return err
	}
	for _, msg := range view.FormErrors {
		_ = w.driver.Info(ctx, w.theme.ErrorPrefix+msg)
	}
	for _, fe := range verr.Fields {
		switch fe.Field {
		case form.FieldProgram:
			if err := w.promptProgram(ctx, view); err != nil {
				return err
			}
		case form.FieldInstituteID:
			return verr
		default:
			field, ok := findField(view, fe.Field)
			if !ok {
				return verr
			}
			if err := w.promptField(ctx, field); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Wizard) promptProgram(ctx context.Context, view form.View) error {
	if view.ProgramLocked {
		return nil
	}
	var program string
	if len(view.Programs) == 0 {
		answer, err := w.driver.Input(ctx, InputConfig{Message: "Program", Default: view.Program})
		if err != nil {
			return err
		}
		program = answer
	} else {
		idx, err := w.driver.Select(ctx, SelectConfig{
			Message:      "Program",
			Options:      view.Programs,
			DefaultIndex: indexOf(view.Programs, view.Program),
		})
		if err != nil {
			return err
		}
		if idx >= 0 && idx < len(view.Programs) {
			program = view.Programs[idx]
		}
	}
	return w.session.SetProgram(program)
}

// promptGroup walks the fields of g in order. The view is re-read after every
// answer because answers enable, hide and generate fields.
func (w *Wizard) promptGroup(ctx context.Context, g catalog.Group) error {
	done := make(map[string]bool)
	section := ""
	for {
		view, err := w.session.View()
		if err != nil {
			return err
		}
		name, field, ok := nextField(view, g, done)
		if !ok {
			return nil
		}
		done[field.Name] = true
		if name != section {
			section = name
			_ = w.driver.Info(ctx, w.theme.SectionPrefix+section)
		}
		if field.Hidden || field.Locked || !field.Enabled {
			continue
		}
		if err := w.promptField(ctx, field); err != nil {
			return err
		}
	}
}

// promptField asks for one value until it passes validation or the attempt
// cap is reached.
func (w *Wizard) promptField(ctx context.Context, field form.FieldView) error {
	for attempt := 1; ; attempt++ {
		if err := w.ask(ctx, field); err != nil {
			return err
		}
		msg, err := w.session.Blur(field.Name)
		if err != nil {
			return err
		}
		if msg == "" {
			return nil
		}
		_ = w.driver.Info(ctx, w.theme.ErrorPrefix+msg)
		if attempt >= w.maxAttempts {
			return fmt.Errorf("%w: %w: %s: %s", ErrAborted, ErrTooManyAttempts, field.Label, msg)
		}
		view, err := w.session.View()
		if err != nil {
			return err
		}
		if refreshed, ok := findField(view, field.Name); ok {
			field = refreshed
		}
	}
}

func (w *Wizard) ask(ctx context.Context, field form.FieldView) error {
	help := ""
	if field.Required {
		help = "Required"
	}
	current := field.Value

	switch {
	case field.Type == catalog.TypeFile:
		def := field.Pending
		if def == "" && field.Stored != nil {
			def = field.Stored.Name
		}
		answer, err := w.driver.Input(ctx, InputConfig{Message: field.Label, Default: def, Help: "Path to the file"})
		if err != nil {
			return err
		}
		answer = strings.TrimSpace(answer)
		if answer == "" || answer == def {
			return nil
		}
		f, err := w.readFile(answer)
		if err != nil {
			_ = w.driver.Info(ctx, w.theme.ErrorPrefix+err.Error())
			return nil
		}
		return w.session.SetFile(field.Name, f)

	case field.Type.Multi() && len(field.Options) > 0:
		labels, values := optionLists(field.Options)
		var defaults []int
		for _, item := range current.Items() {
			if idx := indexOf(values, item); idx >= 0 {
				defaults = append(defaults, idx)
			}
		}
		picked, err := w.driver.MultiSelect(ctx, SelectConfig{Message: field.Label, Options: labels, Defaults: defaults, Help: help})
		if err != nil {
			return err
		}
		items := make([]string, 0, len(picked))
		for _, idx := range picked {
			if idx >= 0 && idx < len(values) {
				items = append(items, values[idx])
			}
		}
		return w.session.SetValue(field.Name, state.List(items...))

	case field.Type.Choice() && len(field.Options) > 0:
		labels, values := optionLists(field.Options)
		if !field.Required {
			labels = append([]string{skipOption}, labels...)
			values = append([]string{""}, values...)
		}
		def := indexOf(values, current.String())
		if def < 0 {
			def = 0
		}
		idx, err := w.driver.Select(ctx, SelectConfig{Message: field.Label, Options: labels, DefaultIndex: def, Help: help})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(values) {
			return nil
		}
		return w.session.SetValue(field.Name, state.Text(values[idx]))

	case field.Type == catalog.TypeTextarea:
		answer, err := w.driver.TextArea(ctx, TextAreaConfig{Message: field.Label, Default: current.String(), Help: help})
		if err != nil {
			return err
		}
		return w.session.SetValue(field.Name, state.Text(answer))

	default:
		answer, err := w.driver.Input(ctx, InputConfig{Message: field.Label, Default: current.String(), Help: help})
		if err != nil {
			return err
		}
		return w.session.SetValue(field.Name, state.Text(answer))
	}
}

func nextField(view form.View, g catalog.Group, done map[string]bool) (string, form.FieldView, bool) {
	for _, gv := range view.Groups {
		if gv.Group != g {
			continue
		}
		for _, section := range gv.Sections {
			for _, field := range section.Fields {
				if !done[field.Name] {
					return section.Name, field, true
				}
			}
		}
	}
	return "", form.FieldView{}, false
}

func findField(view form.View, name string) (form.FieldView, bool) {
	for _, gv := range view.Groups {
		for _, section := range gv.Sections {
			for _, field := range section.Fields {
				if field.Name == name {
					return field, true
				}
			}
		}
	}
	return form.FieldView{}, false
}

func optionLists(opts []catalog.Option) (labels, values []string) {
	for _, opt := range opts {
		labels = append(labels, opt.Label)
		values = append(values, opt.Value)
	}
	return labels, values
}

// ReadFile loads path from disk, guessing the content type from its
// extension.
func ReadFile(path string) (state.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return state.File{}, fmt.Errorf("prompt: read %s: %w", path, err)
	}
	return state.File{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Data:        data,
	}, nil
}
