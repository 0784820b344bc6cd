package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(Middleware("/metrics"))
	r.Get("/api/scrape/{id}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") == "missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/api/search", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	return r
}

func serve(r http.Handler, method, path string) int {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(method, path, http.NoBody))
	return rr.Code
}

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := newRouter()
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/scrape/{id}", "200"))

	serve(r, "GET", "/api/scrape/a")
	serve(r, "GET", "/api/scrape/b")

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/scrape/{id}", "200"))
	if got-before != 2 {
		t.Errorf("expected 2 requests on the route pattern, got %v", got-before)
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected duration observations")
	}
}

func TestMiddleware_StatusCodes(t *testing.T) {
	r := newRouter()
	tests := []struct {
		method, path, route, status string
	}{
		{"GET", "/api/scrape/missing", "/api/scrape/{id}", "404"},
		{"POST", "/api/search", "/api/search", "500"},
		{"GET", "/nowhere", routeUnmatched, "404"},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(tc.method, tc.route, tc.status))
			serve(r, tc.method, tc.path)
			got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(tc.method, tc.route, tc.status))
			if got-before != 1 {
				t.Errorf("expected one %s %s request, delta %v", tc.route, tc.status, got-before)
			}
		})
	}
}

func TestMiddleware_SkipsMetricsPath(t *testing.T) {
	r := newRouter()
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/metrics", "200"))

	if code := serve(r, "GET", "/metrics"); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}

	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/metrics", "200")); got != before {
		t.Errorf("/metrics should not be counted, delta %v", got-before)
	}
}

func TestMiddleware_InFlightReturnsToZero(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	var during float64
	r.Get("/slow", func(w http.ResponseWriter, _ *http.Request) {
		during = testutil.ToFloat64(httpInFlight)
		w.WriteHeader(http.StatusOK)
	})

	base := testutil.ToFloat64(httpInFlight)
	serve(r, "GET", "/slow")

	if during != base+1 {
		t.Errorf("in-flight during request = %v, want %v", during, base+1)
	}
	if after := testutil.ToFloat64(httpInFlight); after != base {
		t.Errorf("in-flight after request = %v, want %v", after, base)
	}
}

func TestRouteLabel_NilContext(t *testing.T) {
	if got := routeLabel(nil); got != routeUnmatched {
		t.Errorf("routeLabel(nil) = %q", got)
	}
}
