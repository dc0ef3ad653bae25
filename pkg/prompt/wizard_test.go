package prompt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-admission/pkg/form"
	"github.com/goliatone/go-admission/pkg/state"
	"github.com/goliatone/go-admission/pkg/testsupport"
	"github.com/goliatone/go-admission/pkg/validation"
)

// stubDriver answers prompts by message. Each message consumes its scripted
// answers in order and then repeats the last one; unscripted prompts accept
// the default.
type stubDriver struct {
	answers  map[string][]string
	confirm  []bool
	asked    []string
	messages []string
}

func (s *stubDriver) next(message string) (string, bool) {
	s.asked = append(s.asked, message)
	queue := s.answers[message]
	if len(queue) == 0 {
		return "", false
	}
	answer := queue[0]
	if len(queue) > 1 {
		s.answers[message] = queue[1:]
	}
	return answer, true
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	if answer, ok := s.next(cfg.Message); ok {
		return answer, nil
	}
	return cfg.Default, nil
}

func (s *stubDriver) TextArea(_ context.Context, cfg TextAreaConfig) (string, error) {
	if answer, ok := s.next(cfg.Message); ok {
		return answer, nil
	}
	return cfg.Default, nil
}

func (s *stubDriver) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	s.asked = append(s.asked, cfg.Message)
	if len(s.confirm) == 0 {
		return cfg.Default, nil
	}
	val := s.confirm[0]
	s.confirm = s.confirm[1:]
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	answer, ok := s.next(cfg.Message)
	if !ok {
		return cfg.DefaultIndex, nil
	}
	idx := indexOf(cfg.Options, answer)
	if idx < 0 {
		return -1, errors.New("scripted option not offered: " + answer)
	}
	return idx, nil
}

func (s *stubDriver) MultiSelect(_ context.Context, cfg SelectConfig) ([]int, error) {
	s.asked = append(s.asked, cfg.Message)
	queue, ok := s.answers[cfg.Message]
	if !ok {
		return cfg.Defaults, nil
	}
	return indicesOf(cfg.Options, queue), nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.messages = append(s.messages, msg)
	return nil
}

func fakeFiles(path string) (state.File, error) {
	return state.File{Name: filepath.Base(path), Data: []byte(path)}, nil
}

func loadedSession(t *testing.T, backend *testsupport.FakeBackend, opts ...form.Option) *form.Session {
	t.Helper()
	clock := func() time.Time { return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC) }
	opts = append([]form.Option{form.WithValidator(validation.New(validation.WithClock(clock)))}, opts...)
	s := form.New(backend, opts...)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}

func TestRun_WalksAllStepsAndSubmits(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	session := loadedSession(t, backend)
	driver := &stubDriver{answers: map[string][]string{
		"Program":            {"BCom"},
		"Date of Birth":      {"2015-01-01", "2006-01-10"},
		"Gender":             {"Female"},
		"Passport Photo":     {"/tmp/asha.png"},
		"Country":            {"India"},
		"State":              {"Karnataka"},
		"City":               {"Bengaluru"},
		"Father's Name":      {"Ravi Rao"},
		"Number of Siblings": {"2"},
		"Sibling Name 2":     {"Meera"},
		"School Name":        {"St Joseph"},
		"Board":              {"CBSE"},
		"Percentage":         {"88"},
		"Marksheet":          {"/tmp/marks.pdf"},
		"Hobbies":            {"Music", "Reading"},
	}}

	w := New(session, WithPromptDriver(driver), WithFileReader(fakeFiles))
	result, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.ApplicationID != "app-1" {
		t.Fatalf("unexpected result %+v", result)
	}

	saves := backend.Saves()
	if len(saves) != 2 || !saves[0].Partial || saves[1].Partial {
		t.Fatalf("expected partial save then submission, got %d saves", len(saves))
	}
	rec, _ := backend.Record("app-1")
	values := rec.Values()
	if values["Sibling Name 2"].String() != "Meera" || !values["Hobbies"].Equal(state.List("Music", "Reading")) {
		t.Fatalf("unexpected stored values %v", values)
	}
	if values["Marksheet"].String() != "marks.pdf" || values["Photo"].String() != "asha.png" {
		t.Fatalf("unexpected stored files %v", values)
	}

	counts := map[string]int{}
	for _, msg := range driver.asked {
		counts[msg]++
	}
	if counts["Date of Birth"] != 2 {
		t.Fatalf("expected date of birth to be asked again after a failure, got %d", counts["Date of Birth"])
	}
	for _, skipped := range []string{"Email Address", "Contact Number", "Spouse Name"} {
		if counts[skipped] != 0 {
			t.Fatalf("%s must not be prompted", skipped)
		}
	}
	if !contains(driver.messages, "! You must be at least 17 years old") {
		t.Fatalf("expected validation message, got %v", driver.messages)
	}
	if !contains(driver.messages, "== Sibling Details") {
		t.Fatalf("expected section headings, got %v", driver.messages)
	}
}

func TestRun_DecliningSubmitAborts(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	marker := &form.MemoryMarker{}
	marker.Set(form.StepEducation)
	session := loadedSession(t, backend, form.WithResumeMarker(marker))
	if err := session.SetProgram("BCom"); err != nil {
		t.Fatalf("set program: %v", err)
	}

	driver := &stubDriver{
		answers: map[string][]string{
			"School Name": {"St Joseph"},
			"Board":       {"ICSE"},
			"Percentage":  {"91"},
			"Marksheet":   {"/tmp/m.pdf"},
		},
		confirm: []bool{false},
	}
	_, err := New(session, WithPromptDriver(driver), WithFileReader(fakeFiles)).Run(context.Background())
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if len(backend.Saves()) != 0 {
		t.Fatalf("declined submission must not reach the backend")
	}
	want := []string{"School Name", "Board", "Percentage", "Marksheet", "Hobbies", "Statement of Purpose", "Submit application?"}
	if diff := cmp.Diff(want, driver.asked); diff != "" {
		t.Fatalf("prompt order mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_GivesUpAfterRepeatedInvalidAnswers(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	session := loadedSession(t, backend)
	if err := session.SetProgram("BCom"); err != nil {
		t.Fatalf("set program: %v", err)
	}
	if _, err := session.Next(context.Background()); err != nil {
		t.Fatalf("next: %v", err)
	}

	driver := &stubDriver{answers: map[string][]string{
		"Date of Birth": {"2020-01-01"},
	}}
	_, err := New(session, WithPromptDriver(driver), WithMaxAttempts(2)).Run(context.Background())
	if !errors.Is(err, ErrAborted) || !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected aborted run, got %v", err)
	}

	counts := map[string]int{}
	for _, msg := range driver.asked {
		counts[msg]++
	}
	if counts["Date of Birth"] != 2 {
		t.Fatalf("expected two attempts, got %d", counts["Date of Birth"])
	}
	if len(backend.Saves()) != 0 {
		t.Fatalf("an aborted wizard must not save")
	}
}

func TestReadFile_GuessesContentType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.pdf")
	if err := writeFile(path, []byte("%PDF")); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if f.Name != "scan.pdf" || f.ContentType != "application/pdf" || string(f.Data) != "%PDF" {
		t.Fatalf("unexpected file %+v", f)
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Fatalf("expected missing file error")
	}
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
