package form

import (
	"strings"

	"github.com/goliatone/go-admission/pkg/catalog"
	"github.com/goliatone/go-admission/pkg/dependency"
	"github.com/goliatone/go-admission/pkg/normalize"
	"github.com/goliatone/go-admission/pkg/validation"
)

// Option configures a Session.
type Option func(*Session)

// WithResolver overrides the dependency resolver.
func WithResolver(r *dependency.Resolver) Option {
	return func(s *Session) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithValidator overrides the field validator. The institution's applicant
// age still replaces its minimum age on load.
func WithValidator(v *validation.Validator) Option {
	return func(s *Session) {
		if v != nil {
			s.baseValidator = v
		}
	}
}

// WithNormalizer overrides the normalize-on-input registry.
func WithNormalizer(r *normalize.Registry) Option {
	return func(s *Session) {
		if r != nil {
			s.normalizer = r
		}
	}
}

// WithLogger routes session events to l.
func WithLogger(l Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithResumeMarker shares a resume marker with whatever reloads the session.
func WithResumeMarker(m ResumeMarker) Option {
	return func(s *Session) {
		if m != nil {
			s.marker = m
		}
	}
}

// WithUploadsBaseURL sets the prefix used to link stored files.
func WithUploadsBaseURL(base string) Option {
	return func(s *Session) {
		s.uploadsBaseURL = strings.TrimRight(strings.TrimSpace(base), "/")
	}
}

// WithSource sets the application source sent with saves.
func WithSource(src catalog.ApplicationSource) Option {
	return func(s *Session) {
		if src != "" {
			s.defaultSource = src
		}
	}
}

// WithLockedFields replaces the fields that are prefilled from the student
// and cannot be edited.
func WithLockedFields(names ...string) Option {
	return func(s *Session) {
		s.locked = make(map[string]struct{}, len(names))
		for _, name := range names {
			s.locked[name] = struct{}{}
		}
	}
}

// WithParseOptions sets the options used to prepare server configurations.
func WithParseOptions(opts ...catalog.ParseOption) Option {
	return func(s *Session) {
		s.parseOptions = append([]catalog.ParseOption(nil), opts...)
	}
}
