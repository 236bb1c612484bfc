package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.Observe("GET", "/api/v1/shifts/{shiftId}", 200, 30*time.Millisecond)
	m.Observe("GET", "/api/v1/shifts/{shiftId}", 200, 10*time.Millisecond)
	m.Observe("GET", "", 404, time.Millisecond)

	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/v1/shifts/{shiftId}", "200")); got != 2 {
		t.Fatalf("expected 2 requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", UnmatchedRoute, "404")); got != 1 {
		t.Fatalf("empty routes should be labelled unmatched, got %v", got)
	}
	if n := testutil.CollectAndCount(reg, "socshift_http_request_duration_seconds"); n != 2 {
		t.Fatalf("expected 2 histogram series, got %d", n)
	}
}

func TestNilHTTPMetricsIsNoop(t *testing.T) {
	var m *HTTPMetrics
	m.Observe("GET", "/", 200, time.Second)
	if NewHTTPMetrics(nil) != nil {
		t.Fatal("nil registerer should give nil metrics")
	}
}

func TestWorkerServerRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewConsumerMetrics(reg).Observe("handled", time.Millisecond)
	srv := NewServer(":0", reg)

	resp := httptest.NewRecorder()
	srv.Handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `socshift_activity_messages_total{disposition="handled"} 1`) {
		t.Fatalf("metrics: %d %s", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	srv.Handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("live: %d", resp.Code)
	}
}
