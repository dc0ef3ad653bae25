package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLintFile_ReportsRuleAndOptionProblems(t *testing.T) {
	path := writeConfig(t, "form.yaml", `
personalDetails:
  - sectionName: Basic Details
    fields:
      - {fieldName: Gender, type: select}
      - {fieldName: State, type: select}
      - {fieldName: Spouse Name, type: text, visibleIf: "`+"`Marital Status` =="+`"}
educationDetails: []
`)

	cfg, got, err := lintFile(path)
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if cfg == nil {
		t.Fatalf("expected parsed configuration")
	}
	want := []violation{
		{file: path, location: "personal > Basic Details > Gender", message: "select field has no options"},
		{file: path, location: "personal > Basic Details > Spouse Name", message: "visibleIf \"`Marital Status` ==\": missing literal"},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(violation{})); diff != "" {
		t.Fatalf("violations mismatch (-want +got):\n%s", diff)
	}
}

func TestLintFile_StructuralProblems(t *testing.T) {
	path := writeConfig(t, "form.json", `{
  "personalDetails": [
    {"sectionName": "Basic", "fields": [
      {"fieldName": "Nick", "type": "hologram"},
      {"fieldName": "Nick", "type": "text"}
    ]}
  ]
}`)

	cfg, got, err := lintFile(path)
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected no configuration for an invalid file")
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 violations, got %+v", got)
	}
	for _, v := range got {
		if v.location != "configuration" {
			t.Fatalf("unexpected location %q", v.location)
		}
	}
}

func TestLintFile_MissingFile(t *testing.T) {
	if _, _, err := lintFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected read error")
	}
}
