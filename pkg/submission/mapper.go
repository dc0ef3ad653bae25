package submission

import (
	"github.com/goliatone/go-admission/pkg/catalog"
	"github.com/goliatone/go-admission/pkg/state"
)

// SectionPayload is one {sectionName, fields} entry of a detail group. It is
// also the shape the API returns for stored applications.
type SectionPayload struct {
	SectionName string                 `json:"sectionName"`
	Fields      map[string]state.Value `json:"fields"`
}

// MapGroup serializes sections in order. File fields carry a filename, never
// content: the local file's name, else the stored name, else the current text.
// Checkbox groups are emitted as arrays, every other field as a string.
func MapGroup(sections []catalog.Section, st *state.State) []SectionPayload {
	out := make([]SectionPayload, 0, len(sections))
	for _, section := range sections {
		fields := make(map[string]state.Value, len(section.Fields))
		for _, field := range section.Fields {
			fields[field.FieldName] = FieldValue(field, st)
		}
		out = append(out, SectionPayload{SectionName: section.SectionName, Fields: fields})
	}
	return out
}

// FieldValue returns the wire value of one field.
func FieldValue(field catalog.FieldSpec, st *state.State) state.Value {
	value := st.Get(field.FieldName)
	switch {
	case field.Type == catalog.TypeFile:
		if f, ok := st.File(field.FieldName); ok && f.Name != "" {
			return state.Text(f.Name)
		}
		if stored, ok := st.Stored(field.FieldName); ok {
			return state.Text(stored)
		}
		return state.Text(value.String())
	case field.Type.Multi():
		return state.List(value.Items()...)
	default:
		return state.Text(value.String())
	}
}

// GroupFiles lists the local files selected for fields of sections, in field
// order.
func GroupFiles(sections []catalog.Section, st *state.State) []FilePart {
	var out []FilePart
	for _, section := range sections {
		for _, field := range section.Fields {
			if f, ok := st.File(field.FieldName); ok {
				out = append(out, FilePart{Field: field.FieldName, File: f})
			}
		}
	}
	return out
}
