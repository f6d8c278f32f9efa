package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestSimCollectorRecordsEngineSignals(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}

	collector.SetLiveBodies(12)
	collector.SetElapsedDays(36.5)
	collector.SetSnapshots(4)
	collector.AddMerges(2)
	collector.AddMerges(1)
	collector.AddEscapes(1)
	collector.ObserveTickDuration(0.002)

	if got := testutil.ToFloat64(collector.LiveBodies); got != 12 {
		t.Fatalf("sim_live_bodies = %v, want 12", got)
	}
	if got := testutil.ToFloat64(collector.ElapsedDays); got != 36.5 {
		t.Fatalf("sim_elapsed_days = %v, want 36.5", got)
	}
	if got := testutil.ToFloat64(collector.Snapshots); got != 4 {
		t.Fatalf("sim_snapshots = %v, want 4", got)
	}
	if got := testutil.ToFloat64(collector.Merges); got != 3 {
		t.Fatalf("sim_merges_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(collector.Escapes); got != 1 {
		t.Fatalf("sim_escapes_total = %v, want 1", got)
	}

	hist := findHistogram(t, reg, "sim_tick_duration_seconds")
	if hist == nil {
		t.Fatalf("sim_tick_duration_seconds not gathered")
	}
	if hist.GetSampleCount() != 1 {
		t.Fatalf("sim_tick_duration_seconds sample_count = %d, want 1", hist.GetSampleCount())
	}
	if hist.GetSampleSum() != 0.002 {
		t.Fatalf("sim_tick_duration_seconds sample_sum = %v, want 0.002", hist.GetSampleSum())
	}
}

func TestSimCollectorHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}
	collector.SetLiveBodies(7)
	collector.ObserveTickDuration(0.001)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"sim_tick_duration_seconds",
		"sim_live_bodies",
		"sim_elapsed_days",
		"sim_snapshots",
		"sim_merges_total",
		"sim_escapes_total",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}

func TestNewSimCollectorToleratesDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewSimCollector(reg); err != nil {
		t.Fatalf("first NewSimCollector: %v", err)
	}
	second, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("second NewSimCollector against the same registry: %v", err)
	}

	// The second collector reuses the already-registered metrics.
	second.SetLiveBodies(3)
	if got := testutil.ToFloat64(second.LiveBodies); got != 3 {
		t.Fatalf("reused gauge = %v, want 3", got)
	}
}

func TestSimCollectorNilSafety(t *testing.T) {
	var collector *SimCollector
	collector.SetLiveBodies(1)
	collector.SetElapsedDays(1)
	collector.SetSnapshots(1)
	collector.AddMerges(1)
	collector.AddEscapes(1)
	collector.ObserveTickDuration(0.1)
}

func findHistogram(t *testing.T, gatherer prometheus.Gatherer, name string) *dto.Histogram {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if h := m.GetHistogram(); h != nil {
				return h
			}
		}
	}
	return nil
}
