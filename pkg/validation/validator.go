// Package validation checks field values against their specification:
// required-ness, email shape and minimum applicant age.
package validation

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-admission/pkg/catalog"
	"github.com/goliatone/go-admission/pkg/state"
)

const (
	requiredTag   = "required"
	emailShapeTag = "email_shape"
	minAgeTag     = "min_age"

	// DefaultMinAge applies when the institution sets no applicant age.
	DefaultMinAge = 16
	// DefaultDateOfBirthField is the field subject to the age rule.
	DefaultDateOfBirthField = "Date of Birth"
)

var (
	emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	messages = map[string]string{
		requiredTag:   "{0} is required",
		emailShapeTag: "Invalid email format",
		minAgeTag:     "You must be at least {0} years old",
	}

	dateLayouts = []string{"2006-01-02", time.RFC3339}
)

// Validator evaluates field rules. It is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
	now      func() time.Time
	minAge   int
	dobField string
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock fixes the reference time for age checks.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// WithMinAge sets the minimum applicant age.
func WithMinAge(years int) Option {
	return func(v *Validator) {
		if years > 0 {
			v.minAge = years
		}
	}
}

// WithDateOfBirthField renames the field subject to the age rule.
func WithDateOfBirthField(name string) Option {
	return func(v *Validator) {
		if name = strings.TrimSpace(name); name != "" {
			v.dobField = name
		}
	}
}

// New builds a validator with the English message catalog.
func New(opts ...Option) *Validator {
	v := &Validator{
		validate: validator.New(),
		now:      time.Now,
		minAge:   DefaultMinAge,
		dobField: DefaultDateOfBirthField,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}

	english := en.New()
	uni := ut.New(english, english)
	v.trans, _ = uni.GetTranslator("en")
	for tag, text := range messages {
		_ = v.trans.Add(tag, text, true)
	}

	_ = v.validate.RegisterValidation(emailShapeTag, func(fl validator.FieldLevel) bool {
		return emailShape.MatchString(fl.Field().String())
	})
	_ = v.validate.RegisterValidation(minAgeTag, v.minAgeValidation)
	return v
}

// MinAge returns the configured minimum age.
func (v *Validator) MinAge() int { return v.minAge }

// ForMinAge returns a copy enforcing a different minimum age; values <= 0
// keep the current one.
func (v *Validator) ForMinAge(years int) *Validator {
	clone := *v
	if years > 0 {
		clone.minAge = years
	}
	return &clone
}

// Validate checks one value against its field spec and returns the message,
// or "" when valid.
func (v *Validator) Validate(field catalog.FieldSpec, value state.Value) string {
	return v.check(field, value, false)
}

// Field validates a field against the state, counting a local file or a
// stored filename as a present value.
func (v *Validator) Field(field catalog.FieldSpec, st *state.State) string {
	hasFile := false
	if field.Type == catalog.TypeFile {
		_, local := st.File(field.FieldName)
		_, stored := st.Stored(field.FieldName)
		hasFile = local || stored
	}
	return v.check(field, st.Get(field.FieldName), hasFile)
}

// Group validates every field of sections, records each result in the
// state's error table and reports whether all passed. Fields for which
// visible returns false are skipped and their errors cleared.
func (v *Validator) Group(sections []catalog.Section, st *state.State, visible func(catalog.FieldSpec) bool) bool {
	ok := true
	for _, section := range sections {
		for _, field := range section.Fields {
			if visible != nil && !visible(field) {
				st.SetError(field.FieldName, "")
				continue
			}
			msg := v.Field(field, st)
			st.SetError(field.FieldName, msg)
			if msg != "" {
				ok = false
			}
		}
	}
	return ok
}

func (v *Validator) check(field catalog.FieldSpec, value state.Value, hasFile bool) string {
	blank := value.Blank()
	if blank && !hasFile {
		if field.Required {
			return v.message(requiredTag, field.FieldName)
		}
		return ""
	}
	if blank {
		return ""
	}

	text := strings.TrimSpace(value.String())
	if field.Type == catalog.TypeEmail {
		if err := v.validate.Var(text, emailShapeTag); err != nil {
			return v.message(emailShapeTag)
		}
	}
	if field.Type == catalog.TypeDate && field.FieldName == v.dobField {
		minimum := strconv.Itoa(v.minAge)
		if err := v.validate.Var(text, minAgeTag+"="+minimum); err != nil {
			return v.message(minAgeTag, minimum)
		}
	}
	return ""
}

func (v *Validator) minAgeValidation(fl validator.FieldLevel) bool {
	minimum, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	dob, ok := parseDate(fl.Field().String())
	if !ok {
		return false
	}
	age, ok := Age(dob, v.now())
	return ok && age >= minimum
}

func (v *Validator) message(tag string, params ...string) string {
	msg, err := v.trans.T(tag, params...)
	if err != nil || msg == "" {
		return messages[tag]
	}
	return msg
}

// Age returns whole years between dob and now. It reports false when dob is
// in the future.
func Age(dob, now time.Time) (int, bool) {
	dy, dm, dd := dob.Date()
	ny, nm, nd := now.Date()
	if dy > ny || (dy == ny && (dm > nm || (dm == nm && dd > nd))) {
		return 0, false
	}
	age := ny - dy
	if nm < dm || (nm == dm && nd < dd) {
		age--
	}
	return age, true
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
