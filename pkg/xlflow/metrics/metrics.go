// Package metrics records orchestrator activity as Prometheus collectors.
//
// A nil *Recorder is valid and records nothing, so instrumentation is
// always safe to call even when no registry is configured.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the orchestrator's collectors.
type Recorder struct {
	jobs          *prometheus.CounterVec   // xlflow_jobs_total
	sheets        *prometheus.CounterVec   // xlflow_sheets_total
	stageDuration *prometheus.HistogramVec // xlflow_stage_duration_seconds
	gateInFlight  prometheus.Gauge         // xlflow_gate_in_flight
	speedup       prometheus.Histogram     // xlflow_parallelization_speedup
	cache         *prometheus.CounterVec   // xlflow_mapping_cache_total
}

// New creates a Recorder and registers its collectors with reg.
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		jobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xlflow_jobs_total",
				Help: "Workbook analysis jobs by outcome.",
			},
			[]string{"status"},
		),
		sheets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xlflow_sheets_total",
				Help: "Sheets by outcome (processed, failed, skipped).",
			},
			[]string{"status"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "xlflow_stage_duration_seconds",
				Help:    "Duration of pipeline stages, partitioned by stage and status.",
				Buckets: prometheus.ExponentialBuckets(0.005, 4, 8),
			},
			[]string{"stage", "status"},
		),
		gateInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "xlflow_gate_in_flight",
				Help: "Expensive inference calls currently holding a gate permit.",
			},
		),
		speedup: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "xlflow_parallelization_speedup",
				Help:    "Sum of per-sheet time divided by job wall time.",
				Buckets: []float64{1, 1.5, 2, 3, 4, 6, 8, 12, 16},
			},
		),
		cache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xlflow_mapping_cache_total",
				Help: "Mapping cache lookups by result (hit, miss).",
			},
			[]string{"result"},
		),
	}

	for name, c := range map[string]prometheus.Collector{
		"jobs":           r.jobs,
		"sheets":         r.sheets,
		"stage duration": r.stageDuration,
		"gate in-flight": r.gateInFlight,
		"speedup":        r.speedup,
		"mapping cache":  r.cache,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register %s: %w", name, err)
		}
	}
	return r, nil
}

// JobFinished counts a job outcome ("success", "failure", "canceled").
func (r *Recorder) JobFinished(status string) {
	if r == nil {
		return
	}
	r.jobs.WithLabelValues(status).Inc()
}

// SheetsFinished adds n sheets with the given status.
func (r *Recorder) SheetsFinished(status string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.sheets.WithLabelValues(status).Add(float64(n))
}

// ObserveStage records a stage duration; status is derived from err.
func (r *Recorder) ObserveStage(stage string, err error, d time.Duration) {
	if r == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	r.stageDuration.WithLabelValues(stage, status).Observe(d.Seconds())
}

// GateInFlight sets the current number of held gate permits.
func (r *Recorder) GateInFlight(n int64) {
	if r == nil {
		return
	}
	r.gateInFlight.Set(float64(n))
}

// Speedup records a job's parallelization speedup.
func (r *Recorder) Speedup(v float64) {
	if r == nil || v <= 0 {
		return
	}
	r.speedup.Observe(v)
}

// CacheLookup counts a mapping cache hit or miss.
func (r *Recorder) CacheLookup(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cache.WithLabelValues(result).Inc()
}
