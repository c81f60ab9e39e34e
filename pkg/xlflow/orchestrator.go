package xlflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ukaji3/xlflow-go/pkg/xlflow/filter"
	"github.com/ukaji3/xlflow-go/pkg/xlflow/gate"
	"github.com/ukaji3/xlflow-go/pkg/xlflow/models"
	"github.com/ukaji3/xlflow-go/pkg/xlflow/scanner"
	"github.com/ukaji3/xlflow-go/pkg/xlflow/workpool"
	"go.uber.org/zap"
)

// Orchestrator runs workbook analysis jobs. It holds no per-job state, so
// one value may serve concurrent Process calls; each call gets its own
// gate and extraction pool.
type Orchestrator struct {
	detector StructureDetector
	mapper   SemanticMapper
	executor Executor
	scanner  Scanner
	cfg      Config
	log      *zap.Logger
}

// New builds an Orchestrator from its collaborators.
func New(detector StructureDetector, mapper SemanticMapper, executor Executor, cfg Config) (*Orchestrator, error) {
	if detector == nil || mapper == nil || executor == nil {
		return nil, errors.New("xlflow: detector, mapper and executor are required")
	}
	cfg = cfg.withDefaults()
	sc := cfg.Scanner
	if sc == nil {
		sc = scanner.New()
	}
	return &Orchestrator{
		detector: detector,
		mapper:   mapper,
		executor: executor,
		scanner:  sc,
		cfg:      cfg,
		log:      cfg.Logger,
	}, nil
}

// Process analyzes a workbook. The returned result is never nil.
//
// The error is non-nil only for whole-job failures: ErrUnreadableWorkbook
// and ErrNothingToProcess (no pipeline was started), or ctx's error when
// the job was canceled while pipelines were running. Per-sheet failures
// are reported in the result only.
func (o *Orchestrator) Process(ctx context.Context, workbook []byte, opts JobOptions) (*models.WorkbookResult, error) {
	start := time.Now()
	jobID := uuid.NewString()
	log := o.log.With(zap.String("job_id", jobID), zap.String("filename", opts.Filename))
	result := &models.WorkbookResult{Filename: opts.Filename, Sheets: []models.SheetResult{}}

	previews, err := o.scanner.Scan(workbook)
	if err != nil {
		return o.abort(log, result, start, KindUnreadableWorkbook, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err))
	}
	result.TotalSheets = len(previews)

	selected, skipped := filter.Apply(previews, filter.Options{
		SheetIndices:     opts.SheetIndices,
		SkipEmpty:        opts.SkipEmpty,
		SkipIndexSheets:  opts.SkipIndexSheets,
		IndexMarkers:     o.cfg.IndexMarkers,
		ReferenceMarkers: o.cfg.ReferenceMarkers,
	})
	result.Skipped = skipped
	result.SkippedSheets = result.TotalSheets - len(selected)
	for _, s := range skipped {
		log.Debug("sheet skipped", zap.Int("sheet_index", s.Index), zap.String("sheet", s.Name), zap.String("reason", string(s.Reason)))
	}
	if len(selected) == 0 {
		return o.abort(log, result, start, KindNothingToProcess,
			fmt.Errorf("%w: %d of %d sheets skipped", ErrNothingToProcess, result.SkippedSheets, result.TotalSheets))
	}

	log.Info("analysis started",
		zap.Int("total_sheets", result.TotalSheets),
		zap.Int("selected_sheets", len(selected)),
		zap.Int("max_concurrent_calls", o.cfg.MaxConcurrentCalls))

	pool := workpool.New(o.cfg.ExtractWorkers)
	defer pool.Close()
	j := &job{
		id:       jobID,
		workbook: workbook,
		opts:     opts,
		gate:     gate.New(o.cfg.MaxConcurrentCalls, gate.WithObserver(o.cfg.Metrics.GateInFlight)),
		pool:     pool,
		log:      log,
	}

	results := make(chan models.SheetResult, len(selected))
	for _, p := range selected {
		log.Debug("sheet queued", zap.Int("sheet_index", p.Index), zap.String("sheet", p.Name), zap.String("size", string(p.SizeBucket)))
		go func(p models.SheetPreview) {
			results <- o.analyzeSheet(ctx, j, p)
		}(p)
	}

	var sheetTime float64
	for completed := 1; completed <= len(selected); completed++ {
		r := <-results
		if r.Success {
			result.ProcessedSheets++
			result.TotalRows += r.RowCount
		} else {
			result.FailedSheets++
		}
		sheetTime += r.ProcessingTimeMs
		result.Sheets = append(result.Sheets, r)
		o.notifyProgress(log, opts.Progress, completed, len(selected), r.Name)
	}

	sort.Slice(result.Sheets, func(a, b int) bool {
		return result.Sheets[a].Index < result.Sheets[b].Index
	})
	result.TotalProcessingTimeMs = millis(time.Since(start))
	if result.TotalProcessingTimeMs > 0 {
		result.ParallelizationSpeedup = sheetTime / result.TotalProcessingTimeMs
	}
	result.Success = result.ProcessedSheets > 0

	o.cfg.Metrics.SheetsFinished("processed", result.ProcessedSheets)
	o.cfg.Metrics.SheetsFinished("failed", result.FailedSheets)
	o.cfg.Metrics.SheetsFinished("skipped", result.SkippedSheets)
	o.cfg.Metrics.Speedup(result.ParallelizationSpeedup)

	if err := ctx.Err(); err != nil {
		result.ErrorKind = KindCanceled
		result.Error = fmt.Sprintf("analysis canceled: %v", err)
		o.cfg.Metrics.JobFinished("canceled")
		log.Warn("analysis canceled", zap.Int("processed", result.ProcessedSheets), zap.Error(err))
		return result, err
	}
	if !result.Success {
		result.Error = fmt.Sprintf("all %d selected sheets failed", result.FailedSheets)
		o.cfg.Metrics.JobFinished("failure")
	} else {
		o.cfg.Metrics.JobFinished("success")
	}

	log.Info("analysis finished",
		zap.Bool("success", result.Success),
		zap.Int("processed", result.ProcessedSheets),
		zap.Int("failed", result.FailedSheets),
		zap.Int("skipped", result.SkippedSheets),
		zap.Int("total_rows", result.TotalRows),
		zap.Float64("speedup", result.ParallelizationSpeedup),
		zap.Int("gate_peak", j.gate.Peak()))
	return result, nil
}

// abort finalizes a job that failed before any pipeline was started.
func (o *Orchestrator) abort(log *zap.Logger, result *models.WorkbookResult, start time.Time, kind string, err error) (*models.WorkbookResult, error) {
	result.Success = false
	result.Error = err.Error()
	result.ErrorKind = kind
	result.TotalProcessingTimeMs = millis(time.Since(start))
	o.cfg.Metrics.SheetsFinished("skipped", result.SkippedSheets)
	o.cfg.Metrics.JobFinished("failure")
	log.Error("analysis aborted", zap.String("kind", kind), zap.Error(err))
	return result, err
}

func (o *Orchestrator) notifyProgress(log *zap.Logger, fn ProgressFunc, completed, total int, sheet string) {
	if fn == nil {
		return
	}
	defer func() {
		if v := recover(); v != nil {
			log.Warn("progress callback panicked", zap.Any("panic", v), zap.String("sheet", sheet))
		}
	}()
	fn(completed, total, sheet)
}

func (o *Orchestrator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.cfg.CallTimeout > 0 {
		return context.WithTimeout(ctx, o.cfg.CallTimeout)
	}
	return ctx, func() {}
}

func (o *Orchestrator) cacheGet(ctx context.Context, key string) (models.MappingResult, bool) {
	if o.cfg.Cache == nil {
		return models.MappingResult{}, false
	}
	m, ok := o.cfg.Cache.Get(ctx, key)
	o.cfg.Metrics.CacheLookup(ok)
	return m, ok
}
