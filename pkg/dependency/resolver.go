// Package dependency derives option sets and materialized field lists from the
// current form values: the country → state → city cascade, sections whose
// size follows a count field, and conditional visibility.
package dependency

import (
	"strings"

	"github.com/goliatone/go-admission/components/geo"
	"github.com/goliatone/go-admission/pkg/catalog"
	"github.com/goliatone/go-admission/pkg/state"
	"github.com/goliatone/go-admission/pkg/visibility"
	"github.com/goliatone/go-admission/pkg/visibility/expr"
)

// Gazetteer is the geographic reference dataset behind location fields.
type Gazetteer interface {
	Countries() []geo.Place
	States(country string) []geo.Place
	Cities(country, state string) []geo.Place
	AllCities(country string) []geo.Place
}

// CityFallback controls city options when a section declares no State field.
type CityFallback int

const (
	// CityFallbackAll offers every city of the country in scope.
	CityFallbackAll CityFallback = iota
	// CityFallbackNone offers nothing until a state is known.
	CityFallbackNone
)

// LocationFields names the three cascade levels.
type LocationFields struct {
	Country string
	State   string
	City    string
}

// DefaultLocationFields returns the conventional field names.
func DefaultLocationFields() LocationFields {
	return LocationFields{Country: "Country", State: "State", City: "City"}
}

const (
	DefaultCountry   = "IN"
	DefaultMaxRepeat = 20
)

// Resolver is safe for concurrent use; it never mutates its configuration.
type Resolver struct {
	gazetteer      Gazetteer
	fields         LocationFields
	defaultCountry string
	cityFallback   CityFallback
	rules          []RepeatRule
	maxRepeat      int
	evaluator      visibility.Evaluator
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithGazetteer overrides the embedded geographic dataset.
func WithGazetteer(g Gazetteer) Option {
	return func(r *Resolver) {
		if g != nil {
			r.gazetteer = g
		}
	}
}

// WithLocationFields renames the cascade levels.
func WithLocationFields(fields LocationFields) Option {
	return func(r *Resolver) { r.fields = fields }
}

// WithDefaultCountry sets the scope used when no Country field is declared.
func WithDefaultCountry(code string) Option {
	return func(r *Resolver) {
		if code = strings.TrimSpace(code); code != "" {
			r.defaultCountry = code
		}
	}
}

// WithCityFallback selects the City-without-State behaviour.
func WithCityFallback(mode CityFallback) Option {
	return func(r *Resolver) { r.cityFallback = mode }
}

// WithRepeatRules replaces the count-driven section rules.
func WithRepeatRules(rules ...RepeatRule) Option {
	return func(r *Resolver) { r.rules = append([]RepeatRule(nil), rules...) }
}

// WithMaxRepeat caps the count read from a count field.
func WithMaxRepeat(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxRepeat = n
		}
	}
}

// WithEvaluator overrides the visibility rule evaluator.
func WithEvaluator(e visibility.Evaluator) Option {
	return func(r *Resolver) {
		if e != nil {
			r.evaluator = e
		}
	}
}

// New builds a resolver. Without WithGazetteer it serves the embedded dataset.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		fields:         DefaultLocationFields(),
		defaultCountry: DefaultCountry,
		cityFallback:   CityFallbackAll,
		rules:          []RepeatRule{DefaultSiblingRule()},
		maxRepeat:      DefaultMaxRepeat,
		evaluator:      expr.New(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.gazetteer == nil {
		if catalog, err := geo.DefaultCatalog(); err == nil {
			r.gazetteer = catalog
		}
	}
	return r
}

// IsLocation reports whether name is one of the cascade levels.
func (r *Resolver) IsLocation(name string) bool {
	return r.level(name) != ""
}

func (r *Resolver) level(name string) geo.Level {
	switch {
	case strings.EqualFold(name, r.fields.Country):
		return geo.LevelCountry
	case strings.EqualFold(name, r.fields.State):
		return geo.LevelState
	case strings.EqualFold(name, r.fields.City):
		return geo.LevelCity
	default:
		return ""
	}
}

// Dependents lists the fields reset when name changes.
func (r *Resolver) Dependents(name string) []string {
	switch r.level(name) {
	case geo.LevelCountry:
		return []string{r.fields.State, r.fields.City}
	case geo.LevelState:
		return []string{r.fields.City}
	default:
		return nil
	}
}

// Cascade empties every dependent of name that holds a value and returns the
// names it reset.
func (r *Resolver) Cascade(st *state.State, name string) []string {
	var reset []string
	for _, dep := range r.Dependents(name) {
		if _, ok := st.Lookup(dep); !ok {
			continue
		}
		st.Set(dep, state.Text(""))
		reset = append(reset, dep)
	}
	return reset
}

// Options returns the selectable options for field, declared in group g.
// Location fields consult the gazetteer; other choice fields use their
// declared options.
func (r *Resolver) Options(cfg *catalog.FormConfiguration, g catalog.Group, field catalog.FieldSpec, st *state.State) []catalog.Option {
	switch r.level(field.FieldName) {
	case geo.LevelCountry:
		return placeOptions(r.countries())
	case geo.LevelState:
		country, ok := r.country(cfg, g, st)
		if !ok || r.gazetteer == nil {
			return nil
		}
		return placeOptions(r.gazetteer.States(country))
	case geo.LevelCity:
		return placeOptions(r.cities(cfg, g, st))
	}
	if field.Type.Choice() {
		return catalog.StringOptions(field.Options)
	}
	return nil
}

// Enabled reports whether a location field can be edited yet. A level whose
// declared parent is still empty stays disabled.
func (r *Resolver) Enabled(cfg *catalog.FormConfiguration, g catalog.Group, name string, st *state.State) bool {
	switch r.level(name) {
	case geo.LevelState:
		_, ok := r.country(cfg, g, st)
		return ok
	case geo.LevelCity:
		if cfg.HasField(g, r.fields.State) {
			return !st.Get(r.fields.State).Blank()
		}
		if r.cityFallback == CityFallbackNone {
			return false
		}
		_, ok := r.country(cfg, g, st)
		return ok
	default:
		return true
	}
}

// Visible evaluates the field's visibility rule. Broken rules leave the field
// visible so a configuration mistake never hides required input.
func (r *Resolver) Visible(field catalog.FieldSpec, st *state.State, extras map[string]any) bool {
	if strings.TrimSpace(field.VisibleIf) == "" {
		return true
	}
	ok, err := r.evaluator.Eval(field.FieldName, field.VisibleIf, visibility.FromState(st, extras))
	if err != nil {
		return true
	}
	return ok
}

func (r *Resolver) countries() []geo.Place {
	if r.gazetteer == nil {
		return nil
	}
	return r.gazetteer.Countries()
}

// country resolves the country scope: the selected Country when the group
// declares one, otherwise the default.
func (r *Resolver) country(cfg *catalog.FormConfiguration, g catalog.Group, st *state.State) (string, bool) {
	if !cfg.HasField(g, r.fields.Country) {
		return r.defaultCountry, true
	}
	value := strings.TrimSpace(st.Get(r.fields.Country).String())
	return value, value != ""
}

// cities lists the City options. Without a declared State the whole country
// is offered, scoped to the selected Country when one is declared.
func (r *Resolver) cities(cfg *catalog.FormConfiguration, g catalog.Group, st *state.State) []geo.Place {
	if r.gazetteer == nil {
		return nil
	}
	country, ok := r.country(cfg, g, st)
	if !ok {
		return nil
	}
	if cfg.HasField(g, r.fields.State) {
		selected := strings.TrimSpace(st.Get(r.fields.State).String())
		if selected == "" {
			return nil
		}
		return r.gazetteer.Cities(country, selected)
	}
	if r.cityFallback == CityFallbackNone {
		return nil
	}
	return r.gazetteer.AllCities(country)
}

func placeOptions(places []geo.Place) []catalog.Option {
	if len(places) == 0 {
		return nil
	}
	out := make([]catalog.Option, 0, len(places))
	for _, place := range places {
		out = append(out, catalog.Option{Value: place.Name, Label: place.Name})
	}
	return out
}
