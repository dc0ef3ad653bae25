// Package testsupport holds fixtures and fakes shared by package tests.
package testsupport

import (
	_ "embed"
	"testing"

	"github.com/goliatone/go-admission/pkg/catalog"
)

//go:embed testdata/form.json
var formJSON []byte

// FormJSON returns the raw admission form fixture.
func FormJSON() []byte {
	return append([]byte(nil), formJSON...)
}

// Configuration parses a fresh copy of the admission form fixture.
func Configuration(t testing.TB) *catalog.FormConfiguration {
	t.Helper()

	cfg, err := catalog.Parse(formJSON, "testsupport/form.json")
	if err != nil {
		t.Fatalf("load form fixture: %v", err)
	}
	return cfg
}

// Student returns the applicant used across fixtures.
func Student() *catalog.Student {
	return &catalog.Student{
		ID:          "stu-1001",
		FirstName:   "Asha",
		LastName:    "Rao",
		Email:       "asha.rao@example.com",
		MobileNo:    "9845012345",
		InstituteID: "inst-42",
	}
}

// Bootstrap returns a complete bootstrap payload around the form fixture.
func Bootstrap(t testing.TB) catalog.Bootstrap {
	t.Helper()

	age := 17
	return catalog.Bootstrap{
		Student: Student(),
		Settings: catalog.Settings{
			AcademicYear: "2024-25",
			ApplicantAge: &age,
			Courses:      []string{"BSc Physics", "BCom", "BA English"},
		},
		Form: Configuration(t),
	}
}
