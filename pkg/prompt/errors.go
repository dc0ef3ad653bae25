package prompt

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C) or declined to
	// submit.
	ErrAborted = errors.New("prompt: aborted")

	// ErrTooManyAttempts is returned, wrapped with ErrAborted, when a field
	// keeps failing validation.
	ErrTooManyAttempts = errors.New("prompt: too many invalid answers")
)
