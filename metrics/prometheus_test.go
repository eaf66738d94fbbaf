package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func find(t *testing.T, m *Metrics, name string) *dto.MetricFamily {
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
	return nil
}

func labelled(f *dto.MetricFamily, label, value string) *dto.Metric {
	if f == nil {
		return nil
	}
	for _, metric := range f.GetMetric() {
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == label && lp.GetValue() == value {
				return metric
			}
		}
	}
	return nil
}

func TestObserveStrip(t *testing.T) {
	m := NewMetrics("test")
	m.ObserveStrip(ResultOK, 20*time.Millisecond)
	m.ObserveStrip(ResultOK, 30*time.Millisecond)
	m.ObserveStrip(ResultCached, 0)

	total := find(t, m, "capvol_strip_total")
	if got := labelled(total, "result", ResultOK).GetCounter().GetValue(); got != 2 {
		t.Errorf("ok strips = %g, want 2", got)
	}
	if got := labelled(total, "result", ResultCached).GetCounter().GetValue(); got != 1 {
		t.Errorf("cached strips = %g, want 1", got)
	}

	dur := find(t, m, "capvol_strip_duration_seconds")
	if got := dur.GetMetric()[0].GetHistogram().GetSampleCount(); got != 2 {
		t.Errorf("cached strips must not be timed, sample count %d", got)
	}
}

func TestObserveSolveAndCaplets(t *testing.T) {
	m := NewMetrics("test")
	m.ObserveSolve("black", 4)
	m.ObserveSolve("black", 6)
	m.AddCaplets("normal", 19)
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)

	iters := labelled(find(t, m, "capvol_solver_iterations"), "model", "black").GetHistogram()
	if iters.GetSampleCount() != 2 || iters.GetSampleSum() != 10 {
		t.Errorf("iterations histogram count=%d sum=%g", iters.GetSampleCount(), iters.GetSampleSum())
	}
	if got := labelled(find(t, m, "capvol_caplets_stripped_total"), "model", "normal").GetCounter().GetValue(); got != 19 {
		t.Errorf("caplets = %g, want 19", got)
	}
	cache := find(t, m, "capvol_cache_requests_total")
	if labelled(cache, "result", ResultHit).GetCounter().GetValue() != 1 ||
		labelled(cache, "result", ResultMiss).GetCounter().GetValue() != 2 {
		t.Errorf("cache counters wrong: %v", cache)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveStrip(ResultOK, time.Second)
	m.ObserveSolve("black", 1)
	m.AddCaplets("black", 1)
	m.ObserveCache(true)
	m.RegisterBuildInfo("capvol", "v1")
}

func TestHandler(t *testing.T) {
	m := NewMetrics("test")
	m.RegisterBuildInfo("capvol", "1.0.0")
	m.RegisterBuildInfo("capvol", "2.0.0")
	m.ObserveStrip(ResultError, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`capvol_strip_total{result="error"} 1`,
		`capvol_build_info{service="capvol",version="1.0.0"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
	if strings.Contains(string(body), `version="2.0.0"`) {
		t.Errorf("build info must register once")
	}
}
