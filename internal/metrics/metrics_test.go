package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRouteLabel(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    string
	}{
		{"GET /api/v1/elements/{norad_id}", "/api/v1/elements/25544", "/api/v1/elements/{norad_id}"},
		{"GET /api/v1/catalog/history/{id}", "/api/v1/catalog/history/12", "/api/v1/catalog/history/{id}"},
		{"GET /", "/app.js", "/"},
		{"/legacy", "/legacy", "/legacy"},

		// Unrouted requests fall back to the fixed table.
		{"", "/api/v1/stream/scene", "/api/v1/stream/scene"},
		{"", "/api/v1/elements/1", "/api/v1/elements/{norad_id}"},
		{"", "/api/v1/elements/abc", "other"},
		{"", "/api/v1/elements/", "other"},
		{"", "/wp-admin", "other"},
		{"", "/.env", "other"},
		{"", "/api/v2/scene", "other"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.path, nil)
			r.Pattern = tt.pattern
			if got := routeLabel(r); got != tt.want {
				t.Errorf("routeLabel(%q, %q) = %q, want %q", tt.pattern, tt.path, got, tt.want)
			}
		})
	}
}

// TestUnroutedCardinality verifies that scanning many NORAD ids yields a
// single path label.
func TestUnroutedCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for id := 20000; id < 20100; id++ {
		seen[normalizeRoute("/api/v1/elements/"+strconv.Itoa(id))] = true
	}
	if len(seen) != 1 {
		t.Errorf("labels = %v, want one", seen)
	}
}

func TestMiddlewareUsesMuxPattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/elements/{norad_id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := Middleware(mux)

	counter := httpRequestsTotal.WithLabelValues("/api/v1/elements/{norad_id}", "GET", "418")
	before := testutil.ToFloat64(counter)
	for _, id := range []string{"1", "25544", "48274"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/elements/"+id, nil))
	}
	if got := testutil.ToFloat64(counter) - before; got != 3 {
		t.Errorf("counter advanced by %v, want 3", got)
	}

	notFound := httpRequestsTotal.WithLabelValues("other", "GET", "404")
	before = testutil.ToFloat64(notFound)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	if got := testutil.ToFloat64(notFound) - before; got != 1 {
		t.Errorf("unrouted counter advanced by %v, want 1", got)
	}
}

func TestRecordCatalogFetch(t *testing.T) {
	RecordCatalogFetch(time.Millisecond, 7, nil)
	if got := testutil.ToFloat64(catalogObjects); got != 7 {
		t.Errorf("catalog objects = %v, want 7", got)
	}
	before := testutil.ToFloat64(catalogFetchTotal.WithLabelValues("error"))
	RecordCatalogFetch(time.Millisecond, 0, errors.New("boom"))
	if got := testutil.ToFloat64(catalogFetchTotal.WithLabelValues("error")) - before; got != 1 {
		t.Errorf("error counter advanced by %v", got)
	}
	if got := testutil.ToFloat64(catalogObjects); got != 7 {
		t.Errorf("failed fetch changed the object gauge to %v", got)
	}
}

func TestIncAuthRejected(t *testing.T) {
	c := authRejectedTotal.WithLabelValues("invalid_token")
	before := testutil.ToFloat64(c)
	IncAuthRejected("invalid_token")
	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("counter advanced by %v, want 1", got)
	}
}
