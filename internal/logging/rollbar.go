package logging

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/goliatone/go-admission/pkg/catalog"
	"github.com/goliatone/go-admission/pkg/form"
)

// RollbarLogger reports events to Rollbar and echoes them to std.
type RollbarLogger struct {
	std *log.Logger
}

var _ form.Logger = (*RollbarLogger)(nil)

// NewRollbarLogger configures the global Rollbar notifier. It starts
// disabled; call Enable once the process is ready to report.
func NewRollbarLogger(std *log.Logger, s Settings) *RollbarLogger {
	rollbar.SetToken(s.RollbarToken)
	rollbar.SetEnvironment(s.Env)
	rollbar.SetServerHost(s.Host)
	rollbar.SetCodeVersion(s.Version)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(false)
	return &RollbarLogger{std: std}
}

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Flush waits for queued reports to be sent.
func (l *RollbarLogger) Flush() {
	rollbar.Wait()
}

// expected fmt: msg | error, map[string]any, catalog.Student
func (l *RollbarLogger) prepare(msg string, args []any) []any {
	var personSet bool
	out := make([]any, 0, len(args)+1)
	out = append(out, msg)
	for _, arg := range args {
		student, ok := arg.(catalog.Student)
		if !ok {
			out = append(out, arg)
			continue
		}
		if !personSet {
			rollbar.SetPerson(student.ID, student.FullName(), student.Email)
			personSet = true
		}
	}
	if !personSet {
		rollbar.ClearPerson()
	}
	return out
}

func (l *RollbarLogger) Debug(msg string, args ...any) {
	rollbar.Debug(l.prepare(msg, args)...)
	emit(l.std, "DEBUG", msg, args)
}

func (l *RollbarLogger) Info(msg string, args ...any) {
	rollbar.Info(l.prepare(msg, args)...)
	emit(l.std, "INFO", msg, args)
}

func (l *RollbarLogger) Warn(msg string, args ...any) {
	rollbar.Warning(l.prepare(msg, args)...)
	emit(l.std, "WARN", msg, args)
}

func (l *RollbarLogger) Error(msg string, args ...any) {
	rollbar.Error(l.prepare(msg, args)...)
	emit(l.std, "ERROR", msg, args)
}
