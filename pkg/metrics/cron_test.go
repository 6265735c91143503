package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	job := "test-job"
	metrics.ObserveDuration(job, 250*time.Millisecond)
	metrics.IncSuccess(job)
	metrics.IncFailure(job)
	metrics.IncSkipped(job)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "fresaterra_cron_job_success_total", "job", job); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "fresaterra_cron_job_failure_total", "job", job); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "fresaterra_cron_job_skipped_total", "job", job); err != nil {
		t.Fatalf("fetch skipped: %v", err)
	} else if got != 1 {
		t.Fatalf("expected skipped=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "fresaterra_cron_job_duration_seconds", "job", job); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var cron *CronJobMetrics
	cron.IncSuccess("job")
	cron.IncSkipped("job")
	NewCronJobMetrics(nil).ObserveDuration("job", time.Second)

	var orders *OrderMetrics
	orders.IncConfirmation(OutcomeConfirmed)
	NewOrderMetrics(nil).AddAbandoned(3)
}

func TestOrderMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)
	m.IncConfirmation(OutcomeConfirmed)
	m.IncConfirmation(OutcomeConfirmed)
	m.IncConfirmation(OutcomeInsufficientStock)
	m.AddAbandoned(3)
	m.AddAbandoned(0)
	m.IncShipment(true)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "fresaterra_payment_confirmations_total", "outcome", OutcomeConfirmed); err != nil || got != 2 {
		t.Fatalf("expected confirmed=2, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "fresaterra_payment_confirmations_total", "outcome", OutcomeInsufficientStock); err != nil || got != 1 {
		t.Fatalf("expected insufficient_stock=1, got %f (%v)", got, err)
	}
	if mf := findMetricFamily(mfs, "fresaterra_orders_abandoned_total"); mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 3 {
		t.Fatal("expected abandoned=3")
	}
	if got, err := fetchCounterValue(mfs, "fresaterra_shipments_created_total", "fallback", "true"); err != nil || got != 1 {
		t.Fatalf("expected fallback shipment=1, got %f (%v)", got, err)
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
