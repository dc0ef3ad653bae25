// Package admission is the entry point for the student admission form
// engine. It re-exports the session types and wires the default resolver,
// validator and REST client for callers that do not need to assemble them.
package admission

import (
	"github.com/goliatone/go-admission/pkg/client"
	"github.com/goliatone/go-admission/pkg/dependency"
	"github.com/goliatone/go-admission/pkg/form"
	"github.com/goliatone/go-admission/pkg/validation"
)

// Session aliases form.Session so callers can import the root package only.
type Session = form.Session

// View aliases the renderer snapshot of a session.
type View = form.View

// Step aliases the form step identifier.
type Step = form.Step

// Backend aliases the admission API contract.
type Backend = form.Backend

// Logger aliases the session event sink.
type Logger = form.Logger

// Settings carries the institution-independent knobs shared by the commands.
type Settings struct {
	UploadsBaseURL  string
	DefaultCountry  string
	MinApplicantAge int
	MaxRepeat       int
	Logger          Logger
}

// SessionOptions turns settings into session options. Zero values keep the
// package defaults.
func SessionOptions(s Settings) []form.Option {
	opts := []form.Option{
		form.WithResolver(dependency.New(
			dependency.WithDefaultCountry(s.DefaultCountry),
			dependency.WithMaxRepeat(s.MaxRepeat),
		)),
		form.WithValidator(validation.New(validation.WithMinAge(s.MinApplicantAge))),
	}
	if s.UploadsBaseURL != "" {
		opts = append(opts, form.WithUploadsBaseURL(s.UploadsBaseURL))
	}
	if s.Logger != nil {
		opts = append(opts, form.WithLogger(s.Logger))
	}
	return opts
}

// NewSession builds a session over backend with the given settings.
func NewSession(backend Backend, s Settings, extra ...form.Option) *Session {
	return form.New(backend, append(SessionOptions(s), extra...)...)
}

// NewClient returns the REST backend for the admission API at baseURL.
func NewClient(baseURL string, opts ...client.Option) (*client.Client, error) {
	return client.New(baseURL, opts...)
}
