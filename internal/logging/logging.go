// Package logging provides the form.Logger implementations used by the
// commands: a plain stream logger and a Rollbar-reporting one.
package logging

import (
	"io"
	"log"

	"github.com/goliatone/go-admission/pkg/form"
)

// Settings selects and configures a logger.
type Settings struct {
	Env          string
	Host         string
	Version      string
	RollbarToken string
	Debug        bool
}

// New returns a Rollbar logger when a token is configured, otherwise a
// stream logger writing to out.
func New(out io.Writer, s Settings) form.Logger {
	std := log.New(out, "", log.LstdFlags)
	if s.RollbarToken != "" {
		l := NewRollbarLogger(std, s)
		l.Enable(true)
		return l
	}
	return NewStdLogger(std, s.Debug)
}

// StdLogger prints events to a standard library logger.
type StdLogger struct {
	std   *log.Logger
	debug bool
}

var _ form.Logger = (*StdLogger)(nil)

// NewStdLogger wraps std. Debug events are dropped unless debug is set.
func NewStdLogger(std *log.Logger, debug bool) *StdLogger {
	return &StdLogger{std: std, debug: debug}
}

func (l *StdLogger) Debug(msg string, args ...any) {
	if l.debug {
		emit(l.std, "DEBUG", msg, args)
	}
}

func (l *StdLogger) Info(msg string, args ...any)  { emit(l.std, "INFO", msg, args) }
func (l *StdLogger) Warn(msg string, args ...any)  { emit(l.std, "WARN", msg, args) }
func (l *StdLogger) Error(msg string, args ...any) { emit(l.std, "ERROR", msg, args) }

func emit(std *log.Logger, level, msg string, args []any) {
	std.Printf("%s %s", level, msg)
	for _, arg := range args {
		std.Printf("%s   %+v", level, arg)
	}
}
