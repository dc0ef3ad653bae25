package dependency

import (
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-admission/pkg/catalog"
	"github.com/goliatone/go-admission/pkg/state"
)

// RepeatRule makes a section hold one copy of its base fields per unit of the
// count field.
type RepeatRule struct {
	Group      catalog.Group
	Section    string
	CountField string
}

// DefaultSiblingRule is the sibling section driven by "Sibling Count".
func DefaultSiblingRule() RepeatRule {
	return RepeatRule{Group: catalog.GroupPersonal, Section: "Sibling Details", CountField: "Sibling Count"}
}

// IsCountField reports whether name drives a repeat rule.
func (r *Resolver) IsCountField(name string) bool {
	for _, rule := range r.rules {
		if rule.CountField == name {
			return true
		}
	}
	return false
}

// Count reads and clamps the count stored for rule.
func (r *Resolver) Count(rule RepeatRule, st *state.State) int {
	n, err := strconv.Atoi(strings.TrimSpace(st.Get(rule.CountField).String()))
	if err != nil || n < 0 {
		return 0
	}
	if r.maxRepeat > 0 && n > r.maxRepeat {
		return r.maxRepeat
	}
	return n
}

// Expand regenerates every repeat section in cfg from the current counts.
// Generated fields from earlier runs are dropped first, so calling Expand
// twice with the same counts yields the same fields. It returns the names of
// generated fields that no longer exist.
func (r *Resolver) Expand(cfg *catalog.FormConfiguration, st *state.State) []string {
	var removed []string
	for _, rule := range r.rules {
		section := cfg.Section(rule.Group, rule.Section)
		if section == nil {
			continue
		}
		removed = append(removed, r.expandSection(section, rule, r.Count(rule, st))...)
	}
	return removed
}

func (r *Resolver) expandSection(section *catalog.Section, rule RepeatRule, count int) []string {
	declared := make([]catalog.FieldSpec, 0, len(section.Fields))
	var base []catalog.FieldSpec
	previous := map[string]struct{}{}
	for _, field := range section.Fields {
		if field.IsCustom {
			previous[field.FieldName] = struct{}{}
			continue
		}
		declared = append(declared, field)
		if field.FieldName != rule.CountField {
			base = append(base, field)
		}
	}

	fields := declared
	for i := 2; i <= count; i++ {
		for _, field := range base {
			field.FieldName = field.FieldName + " " + strconv.Itoa(i)
			field.Label = field.Label + " " + strconv.Itoa(i)
			field.Options = append([]string(nil), field.Options...)
			field.IsCustom = true
			delete(previous, field.FieldName)
			fields = append(fields, field)
		}
	}
	section.Fields = fields

	removed := make([]string, 0, len(previous))
	for name := range previous {
		removed = append(removed, name)
	}
	sort.Strings(removed)
	return removed
}
