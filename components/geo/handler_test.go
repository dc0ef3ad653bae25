package geo

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type handlerResponse struct {
	Data []Option `json:"data"`
}

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	raw := `{"countries":[
		{"code":"IN","name":"India","states":[
			{"code":"KA","name":"Karnataka","cities":["Mysuru","Bengaluru"]},
			{"code":"KL","name":"Kerala","cities":["Kochi"]}
		]},
		{"code":"NP","name":"Nepal","states":[{"code":"P4","name":"Gandaki","cities":["Pokhara"]}]}
	]}`
	catalog, err := LoadCatalog(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return catalog
}

func serve(t *testing.T, h http.Handler, target string) handlerResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected JSON content-type, got %q", ct)
	}
	var payload handlerResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return payload
}

func TestHandler_Levels(t *testing.T) {
	h := NewHandler(WithCatalog(testCatalog(t)))

	cases := []struct {
		target string
		want   []Option
	}{
		{"/api/locations", []Option{{Value: "India", Label: "India"}, {Value: "Nepal", Label: "Nepal"}}},
		{"/api/locations?level=state", []Option{{Value: "Karnataka", Label: "Karnataka"}, {Value: "Kerala", Label: "Kerala"}}},
		{"/api/locations?level=state&country=Nepal", []Option{{Value: "Gandaki", Label: "Gandaki"}}},
		{"/api/locations?level=city&country=India&state=Karnataka", []Option{{Value: "Bengaluru", Label: "Bengaluru"}, {Value: "Mysuru", Label: "Mysuru"}}},
		{"/api/locations?level=city", []Option{{Value: "Bengaluru", Label: "Bengaluru"}, {Value: "Kochi", Label: "Kochi"}, {Value: "Mysuru", Label: "Mysuru"}}},
		{"/api/locations?level=city&state=Kerala&q=ko", []Option{{Value: "Kochi", Label: "Kochi"}}},
	}
	for _, tc := range cases {
		got := serve(t, h, tc.target)
		if diff := cmp.Diff(tc.want, got.Data); diff != "" {
			t.Fatalf("%s mismatch (-want +got):\n%s", tc.target, diff)
		}
	}
}

func TestHandler_EmptyResultIsArray(t *testing.T) {
	h := NewHandler(WithCatalog(testCatalog(t)))
	got := serve(t, h, "/api/locations?level=state&country=Atlantis")
	if got.Data == nil || len(got.Data) != 0 {
		t.Fatalf("expected empty data array, got %#v", got.Data)
	}
}

func TestHandler_UnknownLevel(t *testing.T) {
	h := NewHandler(WithCatalog(testCatalog(t)))
	req := httptest.NewRequest(http.MethodGet, "/api/locations?level=planet", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestHandler_GuardRejects(t *testing.T) {
	h := NewHandler(
		WithCatalog(testCatalog(t)),
		WithGuard(func(r *http.Request) error {
			return StatusError{Code: http.StatusUnauthorized}
		}),
	)
	req := httptest.NewRequest(http.MethodGet, "/api/locations", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h := NewHandler(WithCatalog(testCatalog(t)))
	req := httptest.NewRequest(http.MethodPost, "/api/locations", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rec.Code)
	}
}

func TestRegisterRoutes_MountsUnderBasePath(t *testing.T) {
	if got := MountPath("admission/"); got != "/admission/api/locations" {
		t.Fatalf("unexpected mount path: %q", got)
	}

	mux := http.NewServeMux()
	pattern, err := New(WithCatalog(testCatalog(t))).RegisterRoutes(mux, "/admission")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	got := serve(t, mux, pattern+"?q=nep")
	if len(got.Data) != 1 || got.Data[0].Value != "Nepal" {
		t.Fatalf("unexpected payload: %#v", got.Data)
	}

	if _, err := RegisterRoutes(nil, "/"); err == nil {
		t.Fatalf("expected error for nil mux")
	}
}
