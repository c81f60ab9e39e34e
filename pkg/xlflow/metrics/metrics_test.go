package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// readCounter reads the current value of a counter child for assertions.
func readCounter(t *testing.T, v *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()

	m := &dto.Metric{}
	if err := v.WithLabelValues(labels...).Write(m); err != nil {
		t.Fatalf("Counter.Write() error = %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg); err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := New(reg); err == nil {
		t.Fatalf("registering twice on one registry should fail")
	}
}

func TestRecorderCounts(t *testing.T) {
	r, err := New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	r.JobFinished("success")
	r.SheetsFinished("processed", 3)
	r.SheetsFinished("failed", 0)
	r.CacheLookup(true)
	r.CacheLookup(false)
	r.CacheLookup(false)

	if got := readCounter(t, r.jobs, "success"); got != 1 {
		t.Errorf("jobs{success} = %v, expected 1", got)
	}
	if got := readCounter(t, r.sheets, "processed"); got != 3 {
		t.Errorf("sheets{processed} = %v, expected 3", got)
	}
	if got := readCounter(t, r.cache, "miss"); got != 2 {
		t.Errorf("cache{miss} = %v, expected 2", got)
	}

	r.GateInFlight(2)
	m := &dto.Metric{}
	if err := r.gateInFlight.Write(m); err != nil {
		t.Fatalf("Gauge.Write() error = %v", err)
	}
	if m.GetGauge().GetValue() != 2 {
		t.Errorf("gate in-flight = %v, expected 2", m.GetGauge().GetValue())
	}
}

func TestObserveStage(t *testing.T) {
	r, err := New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	r.ObserveStage("detect_structure", nil, 10*time.Millisecond)
	r.ObserveStage("detect_structure", errors.New("boom"), 20*time.Millisecond)

	m := &dto.Metric{}
	obs, ok := r.stageDuration.WithLabelValues("detect_structure", "failure").(prometheus.Metric)
	if !ok {
		t.Fatalf("HistogramVec child does not implement prometheus.Metric")
	}
	if err := obs.Write(m); err != nil {
		t.Fatalf("Histogram.Write() error = %v", err)
	}
	if m.GetHistogram().GetSampleCount() != 1 {
		t.Errorf("failure sample count = %d, expected 1", m.GetHistogram().GetSampleCount())
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.JobFinished("success")
	r.SheetsFinished("processed", 1)
	r.ObserveStage("extract", nil, time.Second)
	r.GateInFlight(1)
	r.Speedup(2)
	r.CacheLookup(true)
}
