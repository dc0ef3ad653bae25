package form_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-admission/pkg/catalog"
	"github.com/goliatone/go-admission/pkg/form"
	"github.com/goliatone/go-admission/pkg/state"
	"github.com/goliatone/go-admission/pkg/submission"
	"github.com/goliatone/go-admission/pkg/testsupport"
	"github.com/goliatone/go-admission/pkg/validation"
)

var fixedNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func newSession(t *testing.T, backend form.Backend, opts ...form.Option) *form.Session {
	t.Helper()
	base := []form.Option{
		form.WithValidator(validation.New(validation.WithClock(func() time.Time { return fixedNow }))),
		form.WithUploadsBaseURL("https://files.example.com/uploads/"),
	}
	s := form.New(backend, append(base, opts...)...)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}

func mustSet(t *testing.T, s *form.Session, name, value string) {
	t.Helper()
	if err := s.SetText(name, value); err != nil {
		t.Fatalf("set %s: %v", name, err)
	}
}

func fillPersonal(t *testing.T, s *form.Session) {
	t.Helper()
	mustSet(t, s, "Date of Birth", "2006-01-10")
	mustSet(t, s, "Gender", "Female")
	mustSet(t, s, "Country", "India")
	mustSet(t, s, "State", "Karnataka")
	mustSet(t, s, "City", "Bengaluru")
	mustSet(t, s, "Father Name", "Ravi Rao")
	if err := s.SetFile("Photo", state.File{Name: "asha.png", ContentType: "image/png", Data: []byte("png")}); err != nil {
		t.Fatalf("set photo: %v", err)
	}
}

func toPersonal(t *testing.T, s *form.Session) {
	t.Helper()
	if err := s.SetProgram("BCom"); err != nil {
		t.Fatalf("set program: %v", err)
	}
	if step, err := s.Next(context.Background()); err != nil || step != form.StepPersonal {
		t.Fatalf("expected personal step, got %q %v", step, err)
	}
}

func toEducation(t *testing.T, s *form.Session) {
	t.Helper()
	toPersonal(t, s)
	fillPersonal(t, s)
	if step, err := s.Next(context.Background()); err != nil || step != form.StepEducation {
		t.Fatalf("expected education step, got %q %v", step, err)
	}
}

func findField(v form.View, name string) (form.FieldView, bool) {
	for _, g := range v.Groups {
		for _, section := range g.Sections {
			for _, field := range section.Fields {
				if field.Name == name {
					return field, true
				}
			}
		}
	}
	return form.FieldView{}, false
}

func TestLoad_PrefillsStudentAndLocksContactFields(t *testing.T) {
	s := newSession(t, testsupport.NewFakeBackend(t))

	got := map[string]string{}
	for _, name := range []string{"First Name", "Last Name", "Full Name", "Email Address", "Contact Number"} {
		got[name] = s.Value(name).String()
	}
	want := map[string]string{
		"First Name":     "Asha",
		"Last Name":      "Rao",
		"Full Name":      "Asha Rao",
		"Email Address":  "asha.rao@example.com",
		"Contact Number": "9845012345",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("prefill mismatch (-want +got):\n%s", diff)
	}

	if err := s.SetText("Email Address", "other@example.com"); !errors.Is(err, form.ErrFieldLocked) {
		t.Fatalf("expected ErrFieldLocked, got %v", err)
	}
	if s.Step() != form.StepProgram {
		t.Fatalf("expected program step, got %q", s.Step())
	}

	view, err := s.View()
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if diff := cmp.Diff([]string{"BSc Physics", "BCom", "BA English"}, view.Programs); diff != "" {
		t.Fatalf("programs mismatch (-want +got):\n%s", diff)
	}
	email, _ := findField(view, "Email Address")
	if !email.Locked || email.Enabled {
		t.Fatalf("expected locked email field, got %+v", email)
	}
}

func TestLoad_MissingBootstrapPartsAreConfigurationErrors(t *testing.T) {
	cases := map[string]func(*catalog.Bootstrap){
		"student": func(b *catalog.Bootstrap) { b.Student = nil },
		"form":    func(b *catalog.Bootstrap) { b.Form = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			backend := testsupport.NewFakeBackend(t)
			boot := testsupport.Bootstrap(t)
			mutate(&boot)
			backend.SetBootstrap(boot)

			err := form.New(backend).Load(context.Background())
			var cfgErr *catalog.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
		})
	}
}

func TestLoad_BackendFailureIsSubmissionError(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	backend.BootstrapErr = errors.New("connection refused")

	s := form.New(backend)
	err := s.Load(context.Background())
	var subErr *form.SubmissionError
	if !errors.As(err, &subErr) || subErr.Op != "load" {
		t.Fatalf("expected load SubmissionError, got %v", err)
	}
	if _, err := s.View(); !errors.Is(err, form.ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
	if err := s.SetText("First Name", "x"); !errors.Is(err, form.ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded on edit, got %v", err)
	}
}

func TestSetValue_NormalizesAndClearsError(t *testing.T) {
	s := newSession(t, testsupport.NewFakeBackend(t))

	msg, err := s.Blur("Father Name")
	if err != nil || msg != "Father Name is required" {
		t.Fatalf("unexpected blur result %q %v", msg, err)
	}
	mustSet(t, s, "Father Name", "Ravi3 Rao!")
	if got := s.Value("Father Name").String(); got != "Ravi Rao" {
		t.Fatalf("expected letters only, got %q", got)
	}
	if msg := s.Errors()["Father Name"]; msg != "" {
		t.Fatalf("expected error cleared on edit, got %q", msg)
	}

	mustSet(t, s, "Aadhar Number", "1234-5678 9012")
	if got := s.Value("Aadhar Number").String(); got != "123456789012" {
		t.Fatalf("expected digits only, got %q", got)
	}

	if err := s.SetText("Nickname", "x"); !errors.Is(err, form.ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if err := s.SetFile("Father Name", state.File{Name: "a.pdf"}); !errors.Is(err, form.ErrNotFileField) {
		t.Fatalf("expected ErrNotFileField, got %v", err)
	}
}

func TestSetValue_LocationCascade(t *testing.T) {
	s := newSession(t, testsupport.NewFakeBackend(t))

	mustSet(t, s, "Country", "India")
	states, err := s.Options("State")
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if !containsOption(states, "Karnataka") {
		t.Fatalf("expected Karnataka among %v", states)
	}
	mustSet(t, s, "State", "Karnataka")
	mustSet(t, s, "City", "Bengaluru")

	mustSet(t, s, "Country", "India")
	if s.Value("State").String() != "Karnataka" || s.Value("City").String() != "Bengaluru" {
		t.Fatalf("re-selecting the same country must not reset dependents")
	}

	mustSet(t, s, "State", "Kerala")
	if s.Value("State").String() != "Kerala" || s.Value("City").String() != "" {
		t.Fatalf("state change must clear city only: state=%q city=%q", s.Value("State"), s.Value("City"))
	}

	mustSet(t, s, "City", "Kochi")
	mustSet(t, s, "Country", "Nepal")
	if s.Value("State").String() != "" || s.Value("City").String() != "" {
		t.Fatalf("country change must clear state and city")
	}
}

func TestSetValue_LocationValuesSkipNormalization(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	boot := testsupport.Bootstrap(t)
	for i := range boot.Form.Personal {
		for j, f := range boot.Form.Personal[i].Fields {
			switch f.FieldName {
			case "Country", "State", "City":
				boot.Form.Personal[i].Fields[j].Type = catalog.TypeText
			}
		}
	}
	backend.SetBootstrap(boot)
	s := newSession(t, backend)

	mustSet(t, s, "Country", "India")
	mustSet(t, s, "State", "Jammu & Kashmir")
	mustSet(t, s, "City", "Leh-Ladakh")
	if got := s.Value("State").String(); got != "Jammu & Kashmir" {
		t.Fatalf("expected state stored verbatim, got %q", got)
	}
	if got := s.Value("City").String(); got != "Leh-Ladakh" {
		t.Fatalf("expected city stored verbatim, got %q", got)
	}

	mustSet(t, s, "Father Name", "Ravi & Co")
	if got := s.Value("Father Name").String(); got != "Ravi  Co" {
		t.Fatalf("expected text normalization for other fields, got %q", got)
	}
}

func containsOption(opts []catalog.Option, value string) bool {
	for _, opt := range opts {
		if opt.Value == value {
			return true
		}
	}
	return false
}

func TestSetValue_SiblingCountRegeneratesFields(t *testing.T) {
	s := newSession(t, testsupport.NewFakeBackend(t))

	mustSet(t, s, "Sibling Count", "3")
	mustSet(t, s, "Sibling Name 3", "Meera")

	cfg, err := s.Configuration()
	if err != nil {
		t.Fatalf("configuration: %v", err)
	}
	var names []string
	for _, f := range cfg.Section(catalog.GroupPersonal, "Sibling Details").Fields {
		names = append(names, f.FieldName)
	}
	want := []string{"Sibling Count", "Sibling Name", "Sibling Age", "Sibling Name 2", "Sibling Age 2", "Sibling Name 3", "Sibling Age 3"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("sibling fields mismatch (-want +got):\n%s", diff)
	}

	mustSet(t, s, "Sibling Count", "2")
	if got := s.Value("Sibling Name 3").String(); got != "" {
		t.Fatalf("expected removed field value dropped, got %q", got)
	}
	if err := s.SetText("Sibling Name 3", "x"); !errors.Is(err, form.ErrUnknownField) {
		t.Fatalf("expected removed field to be unknown, got %v", err)
	}

	if err := s.RemoveField("Sibling Name"); !errors.Is(err, form.ErrNotRemovable) {
		t.Fatalf("expected ErrNotRemovable, got %v", err)
	}
	if err := s.RemoveField("Sibling Age 2"); err != nil {
		t.Fatalf("remove generated field: %v", err)
	}
	view, _ := s.View()
	if _, ok := findField(view, "Sibling Age 2"); ok {
		t.Fatalf("expected Sibling Age 2 to be gone")
	}
	if f, ok := findField(view, "Sibling Name 2"); !ok || !f.Removable {
		t.Fatalf("expected removable Sibling Name 2, got %+v", f)
	}
}

func TestNext_RequiresProgram(t *testing.T) {
	s := newSession(t, testsupport.NewFakeBackend(t))

	_, err := s.Next(context.Background())
	var verr *form.ValidationError
	if !errors.As(err, &verr) || verr.Message(form.FieldProgram) != "Please select a program" {
		t.Fatalf("expected program validation error, got %v", err)
	}
	if err := s.SetProgram("MBA"); !errors.Is(err, form.ErrUnknownProgram) {
		t.Fatalf("expected ErrUnknownProgram, got %v", err)
	}
	toPersonal(t, s)
}

func TestNext_PersonalValidationListsFieldsInOrder(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	s := newSession(t, backend)
	toPersonal(t, s)

	_, err := s.Next(context.Background())
	var verr *form.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := []form.FieldError{
		{Field: "Date of Birth", Message: "Date of Birth is required"},
		{Field: "Gender", Message: "Gender is required"},
		{Field: "Photo", Message: "Photo is required"},
		{Field: "State", Message: "State is required"},
		{Field: "City", Message: "City is required"},
		{Field: "Father Name", Message: "Father Name is required"},
	}
	if diff := cmp.Diff(want, verr.Fields); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}
	if len(backend.Saves()) != 0 {
		t.Fatalf("validation failures must not reach the backend")
	}

	mustSet(t, s, "Marital Status", "Married")
	_, err = s.Next(context.Background())
	if !errors.As(err, &verr) || verr.Message("Spouse Name") != "Spouse Name is required" {
		t.Fatalf("expected visible spouse field to be required, got %v", err)
	}
}

func TestNext_PartialSaveReloadsAtEducation(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	marker := &form.MemoryMarker{}
	s := newSession(t, backend, form.WithResumeMarker(marker))
	toPersonal(t, s)
	fillPersonal(t, s)

	step, err := s.Next(context.Background())
	if err != nil || step != form.StepEducation {
		t.Fatalf("expected education step, got %q %v", step, err)
	}

	saves := backend.Saves()
	if len(saves) != 1 || !saves[0].Partial {
		t.Fatalf("expected one partial save, got %+v", saves)
	}
	if len(saves[0].Education) != 0 || len(saves[0].Files) != 1 || saves[0].Files[0].Field != "Photo" {
		t.Fatalf("partial save must carry personal data only: %+v", saves[0])
	}
	if backend.Loads() != 2 {
		t.Fatalf("expected a reload after the partial save, got %d loads", backend.Loads())
	}
	if _, ok := marker.Take(); ok {
		t.Fatalf("resume marker must be consumed by the reload")
	}

	if s.ApplicationID() != "app-1" || s.Program() != "BCom" {
		t.Fatalf("unexpected reloaded session: id=%q program=%q", s.ApplicationID(), s.Program())
	}
	view, _ := s.View()
	photo, _ := findField(view, "Photo")
	wantPhoto := &form.StoredFile{Name: "asha.png", URL: "https://files.example.com/uploads/asha.png", Image: true}
	if diff := cmp.Diff(wantPhoto, photo.Stored); diff != "" || photo.Pending != "" {
		t.Fatalf("photo preview mismatch (-want +got):\n%s pending=%q", diff, photo.Pending)
	}
	if got := s.Value("City").String(); got != "Bengaluru" {
		t.Fatalf("expected city to survive reload, got %q", got)
	}
}

func TestResumeMarker_ConsumedOnce(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	marker := &form.MemoryMarker{}
	marker.Set(form.StepEducation)

	s := newSession(t, backend, form.WithResumeMarker(marker))
	if s.Step() != form.StepEducation {
		t.Fatalf("expected resume at education, got %q", s.Step())
	}
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if s.Step() != form.StepProgram {
		t.Fatalf("second load must start over, got %q", s.Step())
	}
}

func TestNext_ReloadFailureKeepsState(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	marker := &form.MemoryMarker{}
	s := newSession(t, backend, form.WithResumeMarker(marker))
	toPersonal(t, s)
	fillPersonal(t, s)

	backend.BootstrapErr = errors.New("gateway timeout")
	_, err := s.Next(context.Background())
	var subErr *form.SubmissionError
	if !errors.As(err, &subErr) || subErr.Op != "reload" {
		t.Fatalf("expected reload SubmissionError, got %v", err)
	}
	if s.Step() != form.StepPersonal || s.Value("Father Name").String() != "Ravi Rao" {
		t.Fatalf("state must be kept after a failed reload")
	}
	if s.ApplicationID() != "app-1" {
		t.Fatalf("expected application id from the save, got %q", s.ApplicationID())
	}

	backend.BootstrapErr = nil
	step, err := s.Next(context.Background())
	if err != nil || step != form.StepEducation {
		t.Fatalf("expected retry to advance, got %q %v", step, err)
	}
	if len(backend.Saves()) != 1 {
		t.Fatalf("retry must not save twice, got %d saves", len(backend.Saves()))
	}
	if step, ok := marker.Take(); !ok || step != form.StepEducation {
		t.Fatalf("expected marker left for the next load, got %q %v", step, ok)
	}
}

func existingRecord() submission.Record {
	return submission.Record{
		ID:                "app-9",
		Program:           "BA English",
		AcademicYear:      "2023-24",
		ApplicationSource: catalog.SourceOffline,
		PersonalDetails: []submission.SectionPayload{
			{SectionName: "Basic Details", Fields: map[string]state.Value{
				"Date of Birth": state.Text("2006-01-10"),
				"Gender":        state.Text("Female"),
				"Photo":         state.Text("1699-asha.PNG"),
			}},
			{SectionName: "Address", Fields: map[string]state.Value{
				"Country": state.Text("India"),
				"State":   state.Text("Karnataka"),
				"City":    state.Text("Mysuru"),
			}},
			{SectionName: "Family Details", Fields: map[string]state.Value{
				"Father Name": state.Text("Ravi Rao"),
			}},
		},
		EducationDetails: []submission.SectionPayload{
			{SectionName: "Preferences", Fields: map[string]state.Value{
				"Hobbies":   state.List("Music", "Reading"),
				"Statement": state.Text("Notes.pdf is attached"),
			}},
		},
	}
}

func TestLoad_ReconcilesExistingApplication(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	backend.AddApplication(existingRecord())
	s := newSession(t, backend)

	if s.ApplicationID() != "app-9" || s.Program() != "BA English" {
		t.Fatalf("unexpected application identity %q %q", s.ApplicationID(), s.Program())
	}
	view, _ := s.View()
	if view.AcademicYear != "2023-24" || view.Source != catalog.SourceOffline {
		t.Fatalf("unexpected view meta %+v", view)
	}
	photo, _ := findField(view, "Photo")
	if photo.Stored == nil || photo.Stored.Name != "1699-asha.PNG" || !photo.Stored.Image {
		t.Fatalf("expected stored photo, got %+v", photo.Stored)
	}
	statement, _ := findField(view, "Statement")
	if statement.Stored != nil {
		t.Fatalf("free text must not be treated as a file: %+v", statement.Stored)
	}
	if !s.Value("Hobbies").Equal(state.List("Music", "Reading")) {
		t.Fatalf("unexpected hobbies %v", s.Value("Hobbies"))
	}

	toStep := func(want form.Step) {
		t.Helper()
		step, err := s.Next(context.Background())
		if err != nil || step != want {
			t.Fatalf("expected %q, got %q %v", want, step, err)
		}
	}
	toStep(form.StepPersonal)
	toStep(form.StepEducation)
	if len(backend.Saves()) != 0 || backend.Loads() != 1 {
		t.Fatalf("existing applications skip the partial save: saves=%d loads=%d", len(backend.Saves()), backend.Loads())
	}
	if _, err := s.Next(context.Background()); !errors.Is(err, form.ErrLastStep) {
		t.Fatalf("expected ErrLastStep, got %v", err)
	}
}

func TestLoad_MissingApplicationStartsFresh(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	boot := testsupport.Bootstrap(t)
	boot.Student.ApplicationID = "gone"
	backend.SetBootstrap(boot)

	s := newSession(t, backend)
	if s.ApplicationID() != "" {
		t.Fatalf("expected no application, got %q", s.ApplicationID())
	}
}

func TestSetProgram_LockedAfterPayment(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	rec := existingRecord()
	rec.PaymentStatus = "Paid"
	backend.AddApplication(rec)
	s := newSession(t, backend)

	if err := s.SetProgram("BCom"); !errors.Is(err, form.ErrProgramLocked) {
		t.Fatalf("expected ErrProgramLocked, got %v", err)
	}
	if err := s.SetProgram("BA English"); err != nil {
		t.Fatalf("keeping the paid program must succeed: %v", err)
	}
	view, _ := s.View()
	if !view.ProgramLocked {
		t.Fatalf("expected program locked in view")
	}
}

func TestPrev_ClearsErrors(t *testing.T) {
	s := newSession(t, testsupport.NewFakeBackend(t))
	toPersonal(t, s)
	if _, err := s.Next(context.Background()); err == nil {
		t.Fatalf("expected validation failure")
	}
	if len(s.Errors()) == 0 {
		t.Fatalf("expected recorded errors")
	}
	if step := s.Prev(); step != form.StepProgram {
		t.Fatalf("expected program step, got %q", step)
	}
	if len(s.Errors()) != 0 {
		t.Fatalf("expected errors cleared, got %v", s.Errors())
	}
	if step := s.Prev(); step != form.StepProgram {
		t.Fatalf("prev at the first step stays put, got %q", step)
	}
}

func fillEducation(t *testing.T, s *form.Session) {
	t.Helper()
	mustSet(t, s, "School Name", "St Joseph 12")
	mustSet(t, s, "Board", "CBSE")
	mustSet(t, s, "Percentage", "88")
	if err := s.SetList("Hobbies", "Music", "Sports"); err != nil {
		t.Fatalf("set hobbies: %v", err)
	}
	if err := s.SetFile("Marksheet", state.File{Name: "marks.pdf", Data: []byte("pdf")}); err != nil {
		t.Fatalf("set marksheet: %v", err)
	}
}

func TestSubmit_SendsFullEnvelope(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	s := newSession(t, backend)
	toPersonal(t, s)
	fillPersonal(t, s)
	if _, err := s.Next(context.Background()); err != nil {
		t.Fatalf("next: %v", err)
	}

	_, err := s.Submit(context.Background())
	var verr *form.ValidationError
	if !errors.As(err, &verr) || verr.Message("School Name") != "School Name is required" {
		t.Fatalf("expected education validation failure, got %v", err)
	}

	fillEducation(t, s)
	result, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.ApplicationID != "app-1" {
		t.Fatalf("unexpected result %+v", result)
	}

	saves := backend.Saves()
	last := saves[len(saves)-1]
	if last.Partial || len(last.Education) != 2 {
		t.Fatalf("expected full envelope, got %+v", last)
	}
	var files []string
	for _, f := range last.Files {
		files = append(files, f.Field)
	}
	if diff := cmp.Diff([]string{"Marksheet"}, files); diff != "" {
		t.Fatalf("only changed files are sent (-want +got):\n%s", diff)
	}
	if last.InstituteID != "inst-42" || last.Program != "BCom" || last.AcademicYear != "2024-25" {
		t.Fatalf("unexpected envelope meta %+v", last.Meta)
	}

	view, _ := s.View()
	if !view.Submitted {
		t.Fatalf("expected submitted view")
	}
	marksheet, _ := findField(view, "Marksheet")
	if marksheet.Stored == nil || marksheet.Stored.Name != "marks.pdf" || marksheet.Pending != "" {
		t.Fatalf("expected uploaded marksheet to be stored, got %+v", marksheet)
	}
}

func TestSubmit_RequiresInstitute(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	boot := testsupport.Bootstrap(t)
	boot.Student.InstituteID = ""
	backend.SetBootstrap(boot)
	s := newSession(t, backend)
	toEducation(t, s)
	fillEducation(t, s)

	_, err := s.Submit(context.Background())
	var verr *form.ValidationError
	if !errors.As(err, &verr) || verr.Message(form.FieldInstituteID) != "Institute is required" {
		t.Fatalf("expected institute validation error, got %v", err)
	}
}

func TestSubmit_RejectedBeforeEducationStep(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	s := newSession(t, backend)
	if err := s.SetProgram("BCom"); err != nil {
		t.Fatalf("set program: %v", err)
	}
	fillEducation(t, s)

	if _, err := s.Submit(context.Background()); !errors.Is(err, form.ErrNotAtStep) {
		t.Fatalf("expected ErrNotAtStep from the program step, got %v", err)
	}
	toPersonal(t, s)
	if _, err := s.Submit(context.Background()); !errors.Is(err, form.ErrNotAtStep) {
		t.Fatalf("expected ErrNotAtStep from the personal step, got %v", err)
	}
	if len(backend.Saves()) != 0 {
		t.Fatalf("a rejected submit must not reach the backend")
	}
	if s.Busy() {
		t.Fatalf("busy flag must be released")
	}
}

type rejection struct {
	fields map[string][]string
}

func (r *rejection) Error() string { return "api: validation failed" }

func (r *rejection) FieldErrors() map[string][]string { return r.fields }

func TestSubmit_MapsServerFieldErrors(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	s := newSession(t, backend)
	toEducation(t, s)
	fillEducation(t, s)

	backend.SaveErr = &rejection{fields: map[string][]string{
		"educationDetails[0].fields.School Name": {"School is not recognised"},
		"message":                                {"Please review the highlighted fields"},
	}}
	_, err := s.Submit(context.Background())
	var verr *form.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !errors.Is(err, backend.SaveErr) {
		t.Fatalf("expected the backend error to be wrapped")
	}
	if got := s.Errors()["School Name"]; got != "School is not recognised" {
		t.Fatalf("unexpected field error %q", got)
	}
	view, _ := s.View()
	if diff := cmp.Diff([]string{"Please review the highlighted fields"}, view.FormErrors); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmit_NetworkFailureKeepsState(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	s := newSession(t, backend)
	toEducation(t, s)
	fillEducation(t, s)
	backend.SaveErr = errors.New("connection reset")

	_, err := s.Submit(context.Background())
	var subErr *form.SubmissionError
	if !errors.As(err, &subErr) || subErr.Op != "submit" {
		t.Fatalf("expected submit SubmissionError, got %v", err)
	}
	view, _ := s.View()
	marksheet, _ := findField(view, "Marksheet")
	if marksheet.Pending != "marks.pdf" || marksheet.Stored != nil {
		t.Fatalf("local file must stay pending for retry, got %+v", marksheet)
	}
	if s.Value("School Name").String() != "St Joseph 12" {
		t.Fatalf("values must survive a failed submit")
	}
}

func TestNext_BusyWhileSaving(t *testing.T) {
	backend := testsupport.NewFakeBackend(t)
	backend.Started = make(chan struct{})
	backend.Gate = make(chan struct{})
	s := newSession(t, backend)
	toPersonal(t, s)
	fillPersonal(t, s)

	done := make(chan error, 1)
	go func() {
		_, err := s.Next(context.Background())
		done <- err
	}()
	<-backend.Started

	if !s.Busy() {
		t.Fatalf("expected busy session")
	}
	if _, err := s.Next(context.Background()); !errors.Is(err, form.ErrBusy) {
		t.Fatalf("expected ErrBusy from Next, got %v", err)
	}
	if _, err := s.Submit(context.Background()); !errors.Is(err, form.ErrBusy) {
		t.Fatalf("expected ErrBusy from Submit, got %v", err)
	}
	if err := s.Load(context.Background()); !errors.Is(err, form.ErrBusy) {
		t.Fatalf("expected ErrBusy from Load, got %v", err)
	}

	close(backend.Gate)
	if err := <-done; err != nil {
		t.Fatalf("next: %v", err)
	}
	if s.Busy() || s.Step() != form.StepEducation {
		t.Fatalf("expected idle session at education, got busy=%v step=%q", s.Busy(), s.Step())
	}
}
