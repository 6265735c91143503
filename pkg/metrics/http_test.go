package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe(http.MethodPost, "/api/v1/checkout", http.StatusCreated, 120*time.Millisecond)
	m.Observe(http.MethodPost, "/api/v1/checkout", http.StatusConflict, 10*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "fresaterra_http_requests_total", "status", "201"); err != nil || got != 1 {
		t.Fatalf("expected status 201 count=1, got %f (%v)", got, err)
	}
	sum, err := fetchHistogramSum(mfs, "fresaterra_http_request_duration_seconds", "route", "/api/v1/checkout")
	if err != nil {
		t.Fatalf("histogram: %v", err)
	}
	if sum < 0.129 || sum > 0.131 {
		t.Fatalf("unexpected latency sum %f", sum)
	}

	var nilMetrics *HTTPMetrics
	nilMetrics.Observe(http.MethodGet, "/", http.StatusOK, time.Second)
}
