package catalog

import "strings"

// FieldType enumerates the supported input variants.
type FieldType string

const (
	TypeText         FieldType = "text"
	TypeAlphanumeric FieldType = "alphanumeric"
	TypeNumber       FieldType = "number"
	TypeEmail        FieldType = "email"
	TypeDate         FieldType = "date"
	TypeTextarea     FieldType = "textarea"
	TypeSelect       FieldType = "select"
	TypeRadio        FieldType = "radiobutton"
	TypeCheckbox     FieldType = "checkbox"
	TypeFile         FieldType = "file"
	TypeAny          FieldType = "any"
	TypeTel          FieldType = "tel"
	TypeURL          FieldType = "url"
)

var knownTypes = map[FieldType]struct{}{
	TypeText: {}, TypeAlphanumeric: {}, TypeNumber: {}, TypeEmail: {},
	TypeDate: {}, TypeTextarea: {}, TypeSelect: {}, TypeRadio: {},
	TypeCheckbox: {}, TypeFile: {}, TypeAny: {}, TypeTel: {}, TypeURL: {},
}

// Known reports whether t is one of the supported variants.
func (t FieldType) Known() bool {
	_, ok := knownTypes[t]
	return ok
}

// Choice reports whether the field selects from a fixed option list.
func (t FieldType) Choice() bool {
	return t == TypeSelect || t == TypeRadio || t == TypeCheckbox
}

// Multi reports whether the field holds a list of values.
func (t FieldType) Multi() bool { return t == TypeCheckbox }

// Group names a step-bound set of sections.
type Group string

const (
	GroupPersonal  Group = "personal"
	GroupEducation Group = "education"
)

// Groups lists the groups in wizard order.
func Groups() []Group { return []Group{GroupPersonal, GroupEducation} }

// FieldSpec declares a single input.
type FieldSpec struct {
	FieldName string    `json:"fieldName" yaml:"fieldName"`
	Label     string    `json:"label,omitempty" yaml:"label,omitempty"`
	Type      FieldType `json:"type" yaml:"type"`
	Required  bool      `json:"required,omitempty" yaml:"required,omitempty"`
	Options   []string  `json:"options,omitempty" yaml:"options,omitempty"`
	MaxLength int       `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	IsCustom  bool      `json:"isCustom,omitempty" yaml:"isCustom,omitempty"`
	VisibleIf string    `json:"visibleIf,omitempty" yaml:"visibleIf,omitempty"`
}

// Section is a named, ordered list of fields within a group.
type Section struct {
	SectionName string      `json:"sectionName" yaml:"sectionName"`
	Fields      []FieldSpec `json:"fields" yaml:"fields"`
}

// Field returns the named field.
func (s Section) Field(name string) (FieldSpec, bool) {
	for _, field := range s.Fields {
		if field.FieldName == name {
			return field, true
		}
	}
	return FieldSpec{}, false
}

// HasField reports whether the section declares name, ignoring case.
func (s Section) HasField(name string) bool {
	for _, field := range s.Fields {
		if strings.EqualFold(field.FieldName, name) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the section.
func (s Section) Clone() Section {
	out := Section{SectionName: s.SectionName, Fields: make([]FieldSpec, len(s.Fields))}
	for i, field := range s.Fields {
		field.Options = append([]string(nil), field.Options...)
		out.Fields[i] = field
	}
	return out
}

// FormConfiguration holds every section of the application form.
type FormConfiguration struct {
	Personal  []Section `json:"personalDetails" yaml:"personalDetails"`
	Education []Section `json:"educationDetails" yaml:"educationDetails"`
}

// Sections returns the sections of g.
func (c *FormConfiguration) Sections(g Group) []Section {
	if c == nil {
		return nil
	}
	switch g {
	case GroupPersonal:
		return c.Personal
	case GroupEducation:
		return c.Education
	default:
		return nil
	}
}

// SetSections replaces the sections of g.
func (c *FormConfiguration) SetSections(g Group, sections []Section) {
	if c == nil {
		return
	}
	switch g {
	case GroupPersonal:
		c.Personal = sections
	case GroupEducation:
		c.Education = sections
	}
}

// Section returns a pointer to the named section of g, or nil.
func (c *FormConfiguration) Section(g Group, name string) *Section {
	sections := c.Sections(g)
	for i := range sections {
		if sections[i].SectionName == name {
			return &sections[i]
		}
	}
	return nil
}

// Lookup finds a field by name across all groups.
func (c *FormConfiguration) Lookup(name string) (FieldSpec, Group, bool) {
	if c == nil {
		return FieldSpec{}, "", false
	}
	for _, g := range Groups() {
		for _, section := range c.Sections(g) {
			if field, ok := section.Field(name); ok {
				return field, g, true
			}
		}
	}
	return FieldSpec{}, "", false
}

// HasField reports whether any section of g declares name, ignoring case.
func (c *FormConfiguration) HasField(g Group, name string) bool {
	for _, section := range c.Sections(g) {
		if section.HasField(name) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the configuration.
func (c *FormConfiguration) Clone() *FormConfiguration {
	if c == nil {
		return nil
	}
	out := &FormConfiguration{}
	for _, g := range Groups() {
		src := c.Sections(g)
		if src == nil {
			continue
		}
		dst := make([]Section, len(src))
		for i, section := range src {
			dst[i] = section.Clone()
		}
		out.SetSections(g, dst)
	}
	return out
}

// Option is a selectable value with its display label.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// StringOptions wraps plain values as options whose label equals the value.
func StringOptions(values []string) []Option {
	if len(values) == 0 {
		return nil
	}
	out := make([]Option, 0, len(values))
	for _, value := range values {
		out = append(out, Option{Value: value, Label: value})
	}
	return out
}

// Student is the signed-in applicant.
type Student struct {
	ID            string `json:"_id"`
	FirstName     string `json:"firstname"`
	LastName      string `json:"lastname"`
	Email         string `json:"email"`
	MobileNo      string `json:"mobileNo"`
	InstituteID   string `json:"instituteId"`
	ApplicationID string `json:"applicationId,omitempty"`
}

// FullName joins the first and last names.
func (s Student) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(s.FirstName) + " " + strings.TrimSpace(s.LastName))
}

// Settings carries institution-level admission settings.
type Settings struct {
	AcademicYear string   `json:"academicYear"`
	ApplicantAge *int     `json:"applicantAge,omitempty"`
	Courses      []string `json:"courses"`
}

// Bootstrap is everything the form needs before it can render.
type Bootstrap struct {
	Student  *Student           `json:"student"`
	Settings Settings           `json:"settings"`
	Form     *FormConfiguration `json:"formManager"`
}

// ApplicationSource records how an application entered the system.
type ApplicationSource string

const (
	SourceOnline  ApplicationSource = "online"
	SourceOffline ApplicationSource = "offline"
	SourceLead    ApplicationSource = "lead"
)
