// Package server exposes admission form sessions over HTTP for browser
// front ends. Each session wraps a form.Session talking to the admission API
// on behalf of the caller.
package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/goliatone/go-admission/components/geo"
	"github.com/goliatone/go-admission/pkg/client"
	"github.com/goliatone/go-admission/pkg/form"
)

const (
	maxJSONBody   = 1 << 20
	maxUploadSize = 10 << 20

	schemaTitle   = "Admission application"
	schemaVersion = "1.0.0"
)

// BackendFactory returns the backend a new session talks to, usually bound
// to the credentials of r.
type BackendFactory func(r *http.Request) (form.Backend, error)

// ClientFactory builds a REST client per session that forwards the caller's
// Authorization header and cookies.
func ClientFactory(baseURL string, opts ...client.Option) BackendFactory {
	return func(r *http.Request) (form.Backend, error) {
		perRequest := append([]client.Option(nil), opts...)
		if auth := strings.TrimSpace(r.Header.Get("Authorization")); auth != "" {
			perRequest = append(perRequest, client.WithHeader("Authorization", auth))
		}
		perRequest = append(perRequest, client.WithCookies(r.Cookies()...))
		return client.New(baseURL, perRequest...)
	}
}

// Server routes session and location requests.
type Server struct {
	store       *Store
	backends    BackendFactory
	logger      form.Logger
	sessionOpts []form.Option
	geoOpts     []geo.OptionFn
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for requests and failures.
func WithLogger(l form.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSessionOptions applies opts to every new session.
func WithSessionOptions(opts ...form.Option) Option {
	return func(s *Server) { s.sessionOpts = append(s.sessionOpts, opts...) }
}

// WithLocationOptions configures the location options endpoint.
func WithLocationOptions(opts ...geo.OptionFn) Option {
	return func(s *Server) { s.geoOpts = append(s.geoOpts, opts...) }
}

// WithStore shares a session store, for sweeping from outside.
func WithStore(st *Store) Option {
	return func(s *Server) {
		if st != nil {
			s.store = st
		}
	}
}

func New(backends BackendFactory, opts ...Option) *Server {
	s := &Server{
		store:    NewStore(),
		backends: backends,
		logger:   nopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Store returns the session store.
func (s *Server) Store() *Store { return s.store }

// Router builds the HTTP routes.
func (s *Server) Router() (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(s.recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.health)
	if _, err := geo.RegisterRoutes(r, "", s.geoOpts...); err != nil {
		return nil, err
	}

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.view)
			r.Delete("/", s.remove)
			r.Get("/schema", s.schema)
			r.Put("/program", s.setProgram)
			r.Post("/next", s.next)
			r.Post("/prev", s.prev)
			r.Post("/submit", s.submit)
			r.Put("/fields/{field}", s.setField)
			r.Delete("/fields/{field}", s.removeField)
			r.Post("/fields/{field}/file", s.upload)
			r.Post("/fields/{field}/blur", s.blur)
		})
	})
	return r, nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
