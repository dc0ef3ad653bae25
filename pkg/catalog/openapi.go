package catalog

import (
	"strings"
	"unicode"

	"github.com/getkin/kin-openapi/openapi3"
)

// Document exports the submission wire shape of cfg as OpenAPI component
// schemas, one per section.
func Document(cfg *FormConfiguration, title, version string) *openapi3.T {
	if title == "" {
		title = "Admission form"
	}
	if version == "" {
		version = "1.0.0"
	}
	doc := &openapi3.T{
		OpenAPI:    "3.0.3",
		Info:       &openapi3.Info{Title: title, Version: version},
		Paths:      openapi3.NewPaths(),
		Components: &openapi3.Components{Schemas: openapi3.Schemas{}},
	}
	for _, g := range Groups() {
		for _, section := range cfg.Sections(g) {
			doc.Components.Schemas[SchemaName(g, section.SectionName)] = openapi3.NewSchemaRef("", SectionSchema(section))
		}
	}
	return doc
}

// SchemaName returns a component-safe name for a section.
func SchemaName(g Group, sectionName string) string {
	var b strings.Builder
	b.WriteString(string(g))
	b.WriteByte('.')
	for _, r := range strings.TrimSpace(sectionName) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_') {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}

// SectionSchema describes one {sectionName, fields} payload entry.
func SectionSchema(section Section) *openapi3.Schema {
	fields := openapi3.NewObjectSchema()
	for _, field := range section.Fields {
		fields.WithProperty(field.FieldName, FieldSchema(field))
	}

	schema := openapi3.NewObjectSchema().
		WithProperty("sectionName", openapi3.NewStringSchema().WithEnum(section.SectionName)).
		WithProperty("fields", fields)
	schema.Title = section.SectionName
	schema.Required = []string{"sectionName", "fields"}
	return schema
}

// FieldSchema describes the submitted value of a single field.
func FieldSchema(field FieldSpec) *openapi3.Schema {
	var schema *openapi3.Schema
	switch field.Type {
	case TypeCheckbox:
		item := openapi3.NewStringSchema()
		if len(field.Options) > 0 {
			item.WithEnum(enumValues(field.Options)...)
		}
		schema = openapi3.NewArraySchema().WithItems(item)
	case TypeNumber:
		schema = openapi3.NewStringSchema().WithPattern(`^[0-9]*$`)
	case TypeFile:
		schema = openapi3.NewStringSchema()
		schema.Description = "stored filename"
	default:
		schema = openapi3.NewStringSchema()
		if field.Type.Choice() && len(field.Options) > 0 {
			schema.WithEnum(append(enumValues(field.Options), "")...)
		}
	}
	if field.MaxLength > 0 && !field.Type.Multi() {
		schema.WithMaxLength(int64(field.MaxLength))
	}
	schema.Title = field.Label
	return schema
}

func enumValues(values []string) []any {
	out := make([]any, 0, len(values))
	for _, value := range values {
		out = append(out, value)
	}
	return out
}
