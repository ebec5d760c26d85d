package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func scrape(t *testing.T) []byte {
	t.Helper()
	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics status=%d", rec.Code)
	}
	return rec.Body.Bytes()
}

func TestMetricsMiddleware_EmitsRequestCounters(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	rr := httptest.NewRecorder()
	MetricsMiddleware(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !bytes.Contains(scrape(t), []byte("sdmodeld_http_requests_total")) {
		t.Fatalf("expected sdmodeld_http_requests_total in metrics")
	}
}

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Get("/models/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/models/abc.ckpt", nil))
	body := scrape(t)
	if !bytes.Contains(body, []byte(`path="/models/{name}"`)) {
		t.Fatalf("expected route pattern label in metrics")
	}
	if bytes.Contains(body, []byte(`path="/models/abc.ckpt"`)) {
		t.Fatalf("raw path leaked into labels")
	}
}

func TestIncrementRejected_DefaultsReason(t *testing.T) {
	IncrementRejected("")
	if !bytes.Contains(scrape(t), []byte(`sdmodeld_http_rejected_total{reason="unspecified"}`)) {
		t.Fatalf("expected rejected counter with default reason")
	}
}
