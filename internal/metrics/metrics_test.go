package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		// Known exact routes.
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/metrics", "/metrics"},
		{"/", "/"},
		{"/api/v1/route", "/api/v1/route"},
		{"/api/v1/geo/route", "/api/v1/geo/route"},
		{"/api/v1/airports/dataset", "/api/v1/airports/dataset"},
		{"/api/v1/airports/dataset/refresh", "/api/v1/airports/dataset/refresh"},

		// Parameterized airport routes collapse to one label.
		{"/api/v1/airports/KJFK", "/api/v1/airports/{icao}"},
		{"/api/v1/airports/egll", "/api/v1/airports/{icao}"},
		{"/api/v1/airports/AB", "/api/v1/airports/{icao}"},

		// Unknown/bot paths collapse to "other".
		{"/api/v1/airports/", "other"},
		{"/api/v1/airports/KJFK/runways", "other"},
		{"/wp-admin", "other"},
		{"/.env", "other"},
		{"/api/v2/something", "other"},
		{"/favicon.ico", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := normalizeRoute(tt.path)
			if got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// TestMetricsCardinality verifies that 100 unique ICAO codes produce
// exactly 1 distinct path label, not 100.
func TestMetricsCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		label := normalizeRoute("/api/v1/airports/K" + string(rune('A'+i%26)) + string(rune('A'+i/26)) + "X")
		seen[label] = true
	}
	if len(seen) != 1 {
		t.Errorf("expected 1 unique label for parameterized paths, got %d: %v", len(seen), seen)
	}
}

func TestMiddlewareRecordsStatus(t *testing.T) {
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/api/v1/airports/{icao}", "GET", "404"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/airports/ZZZZ", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/api/v1/airports/{icao}", "GET", "404"))
	if after-before != 1 {
		t.Errorf("request counter advanced by %v, want 1", after-before)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	IncAirportLookup("static", "hit")
	SetDatasetRecords(42)

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := w.Body.String()
	for _, name := range []string{"crewmap_airport_lookups_total", "crewmap_airport_dataset_records 42"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %q", name)
		}
	}
}
