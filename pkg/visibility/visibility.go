// Package visibility decides whether a conditional field is shown given the
// current form values.
package visibility

import "github.com/goliatone/go-admission/pkg/state"

// Evaluator reports whether field is visible under rule.
type Evaluator interface {
	Eval(field, rule string, ctx Context) (bool, error)
}

// Context carries the inputs a rule may reference. Values holds form values
// keyed by field name (strings, or []string for checkbox groups). Extras holds
// session facts such as the selected program.
type Context struct {
	Values map[string]any
	Extras map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(field, rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(field, rule string, ctx Context) (bool, error) {
	return fn(field, rule, ctx)
}

// FromState builds a Context from form state.
func FromState(s *state.State, extras map[string]any) Context {
	ctx := Context{Extras: extras}
	if s != nil {
		ctx.Values = s.Strings()
	}
	return ctx
}
