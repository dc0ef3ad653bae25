package testsupport

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/goliatone/go-admission/pkg/catalog"
	"github.com/goliatone/go-admission/pkg/submission"
)

// FakeBackend is an in-memory admission API. The zero value is not usable;
// build one with NewFakeBackend.
type FakeBackend struct {
	mu sync.Mutex

	boot    catalog.Bootstrap
	records map[string]submission.Record
	saves   []submission.Envelope
	loads   int
	nextID  int

	// BootstrapErr, ApplicationErr and SaveErr, when set, are returned by the
	// matching call.
	BootstrapErr   error
	ApplicationErr error
	SaveErr        error

	// Started receives once per Save call when non-nil. Gate, when non-nil,
	// holds Save until it is closed or the context ends.
	Started chan struct{}
	Gate    chan struct{}
}

// NewFakeBackend serves the fixture bootstrap with no existing application.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()
	return &FakeBackend{
		boot:    Bootstrap(t),
		records: make(map[string]submission.Record),
	}
}

// SetBootstrap replaces the payload returned by Bootstrap.
func (f *FakeBackend) SetBootstrap(boot catalog.Bootstrap) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boot = boot
}

// AddApplication stores rec and links it to the student.
func (f *FakeBackend) AddApplication(rec submission.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := rec.Identifier()
	f.records[id] = rec
	if f.boot.Student != nil {
		f.boot.Student.ApplicationID = id
	}
}

// Application returns the stored record for id.
func (f *FakeBackend) Application(_ context.Context, id string) (submission.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ApplicationErr != nil {
		return submission.Record{}, f.ApplicationErr
	}
	rec, ok := f.records[id]
	if !ok {
		return submission.Record{}, fmt.Errorf("testsupport: %w: %s", submission.ErrNotFound, id)
	}
	return rec, nil
}

// Bootstrap returns a copy of the configured payload.
func (f *FakeBackend) Bootstrap(context.Context) (catalog.Bootstrap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.BootstrapErr != nil {
		return catalog.Bootstrap{}, f.BootstrapErr
	}
	out := f.boot
	if f.boot.Student != nil {
		student := *f.boot.Student
		out.Student = &student
	}
	out.Form = f.boot.Form.Clone()
	out.Settings.Courses = append([]string(nil), f.boot.Settings.Courses...)
	return out, nil
}

// Save records env and folds it into the student's application, creating
// one on the first save.
func (f *FakeBackend) Save(ctx context.Context, env submission.Envelope) (submission.Result, error) {
	if f.Started != nil {
		f.Started <- struct{}{}
	}
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return submission.Result{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, env)
	if f.SaveErr != nil {
		return submission.Result{}, f.SaveErr
	}

	id := ""
	if f.boot.Student != nil {
		id = f.boot.Student.ApplicationID
	}
	if id == "" {
		f.nextID++
		id = fmt.Sprintf("app-%d", f.nextID)
		if f.boot.Student != nil {
			f.boot.Student.ApplicationID = id
		}
	}

	rec := f.records[id]
	rec.ApplicationID = id
	rec.Program = env.Program
	rec.AcademicYear = env.AcademicYear
	rec.ApplicationSource = env.Source
	rec.PersonalDetails = env.Personal
	if !env.Partial {
		rec.EducationDetails = env.Education
		rec.FormStatus = "Submitted"
	}
	f.records[id] = rec
	return submission.Result{ApplicationID: id, Message: "Application saved"}, nil
}

// Saves returns every envelope received so far.
func (f *FakeBackend) Saves() []submission.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]submission.Envelope(nil), f.saves...)
}

// Loads counts Bootstrap calls.
func (f *FakeBackend) Loads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

// Record returns the stored application for id.
func (f *FakeBackend) Record(id string) (submission.Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	return rec, ok
}
