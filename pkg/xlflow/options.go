// Package xlflow analyzes multi-sheet workbooks: it scans and filters the
// sheets, runs one analysis pipeline per selected sheet concurrently while
// bounding calls to the inference-backed collaborators, and aggregates the
// per-sheet results.
package xlflow

import (
	"time"

	"github.com/ukaji3/xlflow-go/pkg/xlflow/metrics"
	"go.uber.org/zap"
)

const (
	// DefaultMaxConcurrentCalls is the default gate size.
	DefaultMaxConcurrentCalls = 2
	// DefaultMaxHeaderRows bounds how deep structure detection searches for headers.
	DefaultMaxHeaderRows = 10
	// DefaultMaxRowsPerSheet caps extraction when JobOptions does not say otherwise.
	DefaultMaxRowsPerSheet = 10_000
)

// JobOptions configures one Process call. It is not modified by Process.
type JobOptions struct {
	// SheetIndices restricts analysis to these 0-based indices when non-nil.
	SheetIndices []int
	// SkipEmpty excludes sheets without any non-blank cell.
	SkipEmpty bool
	// SkipIndexSheets excludes index, table of contents and cover sheets.
	SkipIndexSheets bool
	// MaxRowsPerSheet caps extracted rows; 0 means no cap.
	MaxRowsPerSheet int
	// CalculateStats enables per-column statistics.
	CalculateStats bool
	// TenantID is forwarded to the mapper and scopes mapping cache entries.
	TenantID string
	// Filename is copied to the result and used in logs.
	Filename string
	// Progress, if set, is called after each sheet finishes.
	Progress ProgressFunc
}

// DefaultJobOptions returns the options used by the CLI when no flag
// overrides them.
func DefaultJobOptions() JobOptions {
	return JobOptions{
		SkipEmpty:       true,
		SkipIndexSheets: true,
		MaxRowsPerSheet: DefaultMaxRowsPerSheet,
		CalculateStats:  true,
	}
}

// Config holds orchestrator-wide settings. Zero values select defaults.
type Config struct {
	// MaxConcurrentCalls bounds in-flight structure detection and mapping
	// calls across all sheets of a job.
	MaxConcurrentCalls int
	// ExtractWorkers sizes the extraction pool; defaults to runtime.NumCPU().
	ExtractWorkers int
	// MaxHeaderRows is passed to the structure detector.
	MaxHeaderRows int
	// CallTimeout bounds each detect and map call when positive.
	CallTimeout time.Duration
	// IndexMarkers and ReferenceMarkers override the filter's defaults.
	IndexMarkers     []string
	ReferenceMarkers []string

	Scanner Scanner
	Cache   MappingCache
	Tracer  Tracer
	Metrics *metrics.Recorder
	Logger  *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrentCalls <= 0 {
		c.MaxConcurrentCalls = DefaultMaxConcurrentCalls
	}
	if c.MaxHeaderRows <= 0 {
		c.MaxHeaderRows = DefaultMaxHeaderRows
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}
