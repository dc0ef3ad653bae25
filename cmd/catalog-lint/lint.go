package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-admission/pkg/catalog"
	"github.com/goliatone/go-admission/pkg/dependency"
	"github.com/goliatone/go-admission/pkg/visibility/expr"
)

type violation struct {
	file     string
	location string
	message  string
}

// lintFile parses path and reports structural problems, broken visibility
// rules and choice fields that can never offer a value. Read failures are
// returned as errors; everything else is a violation.
func lintFile(path string, opts ...catalog.ParseOption) (*catalog.FormConfiguration, []violation, error) {
	cfg, err := catalog.LoadFile(path, opts...)
	if err != nil {
		var cfgErr *catalog.ConfigurationError
		if errors.As(err, &cfgErr) && len(cfgErr.Problems) > 0 {
			result := make([]violation, 0, len(cfgErr.Problems))
			for _, problem := range cfgErr.Problems {
				result = append(result, violation{file: path, location: "configuration", message: problem})
			}
			return nil, result, nil
		}
		return nil, nil, err
	}
	return cfg, lintConfig(path, cfg), nil
}

func lintConfig(file string, cfg *catalog.FormConfiguration) []violation {
	locations := dependency.DefaultLocationFields()
	isLocation := func(name string) bool {
		return strings.EqualFold(name, locations.Country) ||
			strings.EqualFold(name, locations.State) ||
			strings.EqualFold(name, locations.City)
	}

	var result []violation
	for _, g := range catalog.Groups() {
		for _, section := range cfg.Sections(g) {
			for _, field := range section.Fields {
				path := []string{string(g), section.SectionName, field.FieldName}
				if rule := strings.TrimSpace(field.VisibleIf); rule != "" {
					if _, err := expr.Parse(rule); err != nil {
						result = append(result, violation{
							file:     file,
							location: formatLocation(path),
							message:  fmt.Sprintf("visibleIf %q: %v", rule, err),
						})
					}
				}
				if field.Type.Choice() && len(field.Options) == 0 && !isLocation(field.FieldName) {
					result = append(result, violation{
						file:     file,
						location: formatLocation(path),
						message:  fmt.Sprintf("%s field has no options", field.Type),
					})
				}
			}
		}
	}
	return result
}

func formatLocation(path []string) string {
	return strings.Join(path, " > ")
}
