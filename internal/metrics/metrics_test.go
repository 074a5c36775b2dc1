package metrics_test

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"vidpipe/internal/metrics"
	"vidpipe/internal/queue"
)

type fakeStats map[queue.Status]int

func (f fakeStats) Stats(context.Context) (map[queue.Status]int, error) {
	return f, nil
}

type failingStats struct{}

func (failingStats) Stats(context.Context) (map[queue.Status]int, error) {
	return nil, errors.New("db down")
}

func family(t *testing.T, m *metrics.Metrics, name string) *dto.MetricFamily {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric family %s not found", name)
	return nil
}

func labelValue(metric *dto.Metric, name string) string {
	for _, pair := range metric.GetLabel() {
		if pair.GetName() == name {
			return pair.GetValue()
		}
	}
	return ""
}

func TestCountersAndHistogram(t *testing.T) {
	m := metrics.New()
	m.JobClaimed()
	m.JobClaimed()
	m.JobFinished(queue.StatusCompleted, "")
	m.JobFinished(queue.StatusFailed, "transcode")
	m.ObserveStep("compress", 2*time.Second, nil)
	m.ObserveStep("compress", time.Second, errors.New("boom"))
	m.SweptJob("expired")
	m.SweptFiles(3, 1)

	claimed := family(t, m, "vidpipe_jobs_claimed_total")
	if got := claimed.GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Fatalf("expected 2 claims, got %v", got)
	}

	finished := family(t, m, "vidpipe_jobs_finished_total")
	if len(finished.GetMetric()) != 2 {
		t.Fatalf("expected two finished series, got %d", len(finished.GetMetric()))
	}
	for _, metric := range finished.GetMetric() {
		if labelValue(metric, "status") == "completed" && labelValue(metric, "category") != "none" {
			t.Fatalf("completed jobs should carry category none")
		}
	}

	steps := family(t, m, "vidpipe_step_duration_seconds")
	var samples uint64
	for _, metric := range steps.GetMetric() {
		samples += metric.GetHistogram().GetSampleCount()
	}
	if samples != 2 {
		t.Fatalf("expected 2 step observations, got %d", samples)
	}

	missing := family(t, m, "vidpipe_sweep_files_missing_total")
	if got := missing.GetMetric()[0].GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected 1 missing file, got %v", got)
	}
}

func TestRefreshStatus(t *testing.T) {
	m := metrics.New()
	if err := m.RefreshStatus(context.Background(), fakeStats{queue.StatusPending: 3}); err != nil {
		t.Fatalf("RefreshStatus: %v", err)
	}
	gauge := family(t, m, "vidpipe_jobs")
	if len(gauge.GetMetric()) != len(queue.AllStatuses()) {
		t.Fatalf("expected one series per status, got %d", len(gauge.GetMetric()))
	}
	for _, metric := range gauge.GetMetric() {
		want := 0.0
		if labelValue(metric, "status") == string(queue.StatusPending) {
			want = 3
		}
		if metric.GetGauge().GetValue() != want {
			t.Fatalf("status %s: expected %v, got %v", labelValue(metric, "status"), want, metric.GetGauge().GetValue())
		}
	}
	if err := m.RefreshStatus(context.Background(), failingStats{}); err == nil {
		t.Fatal("expected stats error")
	}
}

func TestHandlerServesExposition(t *testing.T) {
	m := metrics.New()
	m.JobClaimed()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "vidpipe_jobs_claimed_total 1") {
		t.Fatalf("expected counter in exposition, got:\n%s", body)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.JobClaimed()
	m.JobFinished(queue.StatusFailed, "input")
	m.ObserveStep("poster", time.Second, nil)
	m.SweptJob("expired")
	m.SweptFiles(1, 1)
	if err := m.RefreshStatus(context.Background(), fakeStats{}); err != nil {
		t.Fatalf("nil RefreshStatus: %v", err)
	}
}
