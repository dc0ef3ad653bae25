// Package normalize applies per-type input transforms at write time.
package normalize

import (
	"html"
	"strings"
	"sync"
	"unicode"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-admission/pkg/catalog"
	"github.com/goliatone/go-admission/pkg/state"
)

// Transform rewrites raw input for one field type. It must be pure.
type Transform func(raw string) string

// Registry maps field types to transforms and default length caps. Types
// without a transform pass through unchanged.
type Registry struct {
	mu         sync.RWMutex
	transforms map[catalog.FieldType]Transform
	maxLength  map[catalog.FieldType]int
}

// NewRegistry returns a registry with the built-in transforms.
func NewRegistry() *Registry {
	r := &Registry{
		transforms: make(map[catalog.FieldType]Transform),
		maxLength:  make(map[catalog.FieldType]int),
	}
	r.Register(catalog.TypeText, Letters)
	r.Register(catalog.TypeNumber, Digits)
	r.Register(catalog.TypeAlphanumeric, Alphanumeric)
	r.Register(catalog.TypeTextarea, StripMarkup)
	r.Register(catalog.TypeAny, StripMarkup)
	r.SetDefaultMaxLength(catalog.TypeTextarea, 500)
	r.SetDefaultMaxLength(catalog.TypeNumber, 15)
	return r
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns a shared registry with the built-in transforms.
func Default() *Registry {
	defaultOnce.Do(func() { defaultRegistry = NewRegistry() })
	return defaultRegistry
}

// Register sets the transform for t. A nil fn removes it.
func (r *Registry) Register(t catalog.FieldType, fn Transform) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn == nil {
		delete(r.transforms, t)
		return
	}
	r.transforms[t] = fn
}

// SetDefaultMaxLength caps values of t when the field declares no maxLength.
// Zero removes the cap.
func (r *Registry) SetDefaultMaxLength(t catalog.FieldType, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 {
		delete(r.maxLength, t)
		return
	}
	r.maxLength[t] = n
}

// MaxLength returns the effective cap for field, zero meaning none.
func (r *Registry) MaxLength(field catalog.FieldSpec) int {
	if field.MaxLength > 0 {
		return field.MaxLength
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.maxLength[field.Type]
}

// Normalize transforms v for field. List values are transformed item by item.
func (r *Registry) Normalize(field catalog.FieldSpec, v state.Value) state.Value {
	if v.IsList() {
		items := v.Items()
		for i, item := range items {
			items[i] = r.String(field, item)
		}
		return state.List(items...)
	}
	return state.Text(r.String(field, v.String()))
}

// String transforms a single raw string for field.
func (r *Registry) String(field catalog.FieldSpec, raw string) string {
	r.mu.RLock()
	fn := r.transforms[field.Type]
	r.mu.RUnlock()
	if fn != nil {
		raw = fn(raw)
	}
	return Truncate(raw, r.MaxLength(field))
}

// Letters keeps letters and whitespace.
func Letters(raw string) string {
	return keep(raw, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsSpace(r) })
}

// Digits keeps ASCII digits.
func Digits(raw string) string {
	return keep(raw, func(r rune) bool { return r >= '0' && r <= '9' })
}

// Alphanumeric keeps letters, digits and whitespace.
func Alphanumeric(raw string) string {
	return keep(raw, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r)
	})
}

// StripMarkup removes HTML tags, leaving plain text. Input without markup is
// returned untouched.
func StripMarkup(raw string) string {
	if !strings.ContainsRune(raw, '<') {
		return raw
	}
	return html.UnescapeString(markupPolicy().Sanitize(raw))
}

// Truncate caps raw at n runes; n <= 0 disables the cap.
func Truncate(raw string, n int) string {
	if n <= 0 {
		return raw
	}
	runes := []rune(raw)
	if len(runes) <= n {
		return raw
	}
	return string(runes[:n])
}

func keep(raw string, allow func(rune) bool) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if allow(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func markupPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}
