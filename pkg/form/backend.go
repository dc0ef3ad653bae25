package form

import (
	"context"
	"sync"

	"github.com/goliatone/go-admission/pkg/catalog"
	"github.com/goliatone/go-admission/pkg/submission"
)

// Backend is the remote admission API.
type Backend interface {
	// Bootstrap returns the student, institution settings and form
	// configuration.
	Bootstrap(ctx context.Context) (catalog.Bootstrap, error)
	// Application fetches a stored application. Unknown ids yield an error
	// wrapping submission.ErrNotFound.
	Application(ctx context.Context, id string) (submission.Record, error)
	// Save creates or updates the student's application.
	Save(ctx context.Context, env submission.Envelope) (submission.Result, error)
}

// ResumeMarker carries the step a session should resume at across a reload.
// Take returns the marker once and clears it.
type ResumeMarker interface {
	Set(step Step)
	Take() (Step, bool)
}

// MemoryMarker is a ResumeMarker held in memory.
type MemoryMarker struct {
	mu   sync.Mutex
	step Step
}

func (m *MemoryMarker) Set(step Step) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.step = step
}

func (m *MemoryMarker) Take() (Step, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	step := m.step
	m.step = ""
	return step, step != ""
}

// Logger receives session events.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
