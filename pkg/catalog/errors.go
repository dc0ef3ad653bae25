package catalog

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a missing or malformed form configuration.
type ConfigurationError struct {
	Source   string
	Problems []string
	Err      error
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return "catalog: configuration error"
	}
	var b strings.Builder
	b.WriteString("catalog: ")
	if e.Source != "" {
		fmt.Fprintf(&b, "%s: ", e.Source)
	}
	switch {
	case len(e.Problems) > 0:
		b.WriteString(strings.Join(e.Problems, "; "))
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString("invalid configuration")
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Missing builds the error returned when the server sends no configuration.
func Missing(what string) *ConfigurationError {
	return &ConfigurationError{Problems: []string{fmt.Sprintf("no %s found", what)}}
}
