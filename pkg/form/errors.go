package form

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBusy           = errors.New("form: another request is in progress")
	ErrNotLoaded      = errors.New("form: session is not loaded")
	ErrUnknownField   = errors.New("form: unknown field")
	ErrFieldLocked    = errors.New("form: field is locked")
	ErrNotRemovable   = errors.New("form: field cannot be removed")
	ErrProgramLocked  = errors.New("form: program cannot change after payment")
	ErrUnknownProgram = errors.New("form: program is not offered")
	ErrNotFileField   = errors.New("form: field does not accept files")
	ErrLastStep       = errors.New("form: already at the last step")
	ErrNotAtStep      = errors.New("form: not at the required step")
	ErrInvalid        = errors.New("form: validation failed")
)

// FieldError is one field's validation message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists the fields that stopped a step change or a save. Err
// is ErrInvalid for local validation, or the backend error when the server
// rejected the fields.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	cause := ErrInvalid
	if e.Err != nil {
		cause = e.Err
	}
	if len(e.Fields) == 0 {
		return cause.Error()
	}
	messages := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		messages = append(messages, f.Message)
	}
	return fmt.Sprintf("%s: %s", cause, strings.Join(messages, "; "))
}

func (e *ValidationError) Unwrap() error {
	if e.Err == nil {
		return ErrInvalid
	}
	return e.Err
}

// Message returns the message recorded for field.
func (e *ValidationError) Message(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

// SubmissionError wraps a failed backend call. The session state is left as
// it was before the call.
type SubmissionError struct {
	Op  string
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("form: %s: %v", e.Op, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// FieldErrorReporter is implemented by backend errors that reject individual
// fields. Keys may be field names or paths into the submitted payload.
type FieldErrorReporter interface {
	FieldErrors() map[string][]string
}
