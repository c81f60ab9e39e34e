package xlflow

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ukaji3/xlflow-go/pkg/xlflow/fingerprint"
	"github.com/ukaji3/xlflow-go/pkg/xlflow/gate"
	"github.com/ukaji3/xlflow-go/pkg/xlflow/models"
	"github.com/ukaji3/xlflow-go/pkg/xlflow/workpool"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// job is the state shared by all pipelines of one Process call. Only the
// gate and the mapping flights are mutated concurrently.
type job struct {
	id       string
	workbook []byte
	opts     JobOptions
	gate     *gate.Gate
	pool     *workpool.Pool
	log      *zap.Logger

	// mappings collapses concurrent cache misses on one key into a single
	// mapper call.
	mappings singleflight.Group
}

// sheetRun is owned by a single pipeline goroutine.
type sheetRun struct {
	o       *Orchestrator
	j       *job
	preview models.SheetPreview
	log     *zap.Logger
	stage   State

	structure models.StructureResult
	mapping   models.MappingResult
	key       string
	mapped    bool
}

// analyzeSheet runs the pipeline for one sheet. It always returns exactly
// one result: stage failures and panics become an unsuccessful result.
func (o *Orchestrator) analyzeSheet(ctx context.Context, j *job, p models.SheetPreview) (res models.SheetResult) {
	start := time.Now()
	r := &sheetRun{
		o:       o,
		j:       j,
		preview: p,
		log:     j.log.With(zap.Int("sheet_index", p.Index), zap.String("sheet", p.Name)),
	}
	r.enter(StateStart)

	defer func() {
		if v := recover(); v != nil {
			res = r.fail(newStageError(p.Index, p.Name, r.stage, fmt.Errorf("%w: %v", errPanic, v)))
		}
		res.ProcessingTimeMs = millis(time.Since(start))
		if res.Success {
			r.enter(StateDone)
		} else {
			r.enter(StateFailed)
		}
	}()

	if err := r.expensivePhase(ctx); err != nil {
		return r.fail(err)
	}

	r.enter(StateExtract)
	extractStart := time.Now()
	extraction, err := workpool.Run(ctx, j.pool, func(ctx context.Context) (models.ExtractionResult, error) {
		return o.executor.Execute(ctx, j.workbook, r.structure, r.mapping, models.ExtractOptions{
			MaxRows:        j.opts.MaxRowsPerSheet,
			SkipEmptyRows:  true,
			CalculateStats: j.opts.CalculateStats,
		})
	})
	if err == nil && !extraction.Success {
		err = reportedFailure(extraction.Error)
	}
	o.cfg.Metrics.ObserveStage(string(StateExtract), err, time.Since(extractStart))
	if err != nil {
		return r.fail(newStageError(p.Index, p.Name, StateExtract, err))
	}

	r.enter(StateAssemble)
	return r.assemble(extraction)
}

// expensivePhase holds one gate permit across structure detection and
// field mapping. The permit is released on every path before returning.
func (r *sheetRun) expensivePhase(ctx context.Context) error {
	p := r.preview

	r.enter(StateAcquireGate)
	permit, err := r.j.gate.Acquire(ctx)
	if err != nil {
		return newStageError(p.Index, p.Name, StateAcquireGate, err)
	}
	defer permit.Release()

	r.enter(StateDetectStructure)
	if err := r.detect(ctx); err != nil {
		return err
	}

	r.key = fingerprint.FromStructure(r.structure, dataRowCount(p, r.structure))
	if err := r.resolveMapping(ctx); err != nil {
		return err
	}

	// The timestamp is taken before the permit is handed back so that a
	// sheet waiting on the gate can never observe an earlier release time.
	at := time.Now()
	permit.Release()
	r.enterAt(StateReleaseGate, at)
	return nil
}

func (r *sheetRun) detect(ctx context.Context) error {
	o, p := r.o, r.preview
	cctx, cancel := o.callContext(ctx)
	defer cancel()

	start := time.Now()
	s, err := o.detector.Detect(cctx, r.j.workbook, p.Index, o.cfg.MaxHeaderRows)
	if err == nil && !s.Success {
		err = reportedFailure(s.Error)
	}
	o.cfg.Metrics.ObserveStage(string(StateDetectStructure), err, time.Since(start))
	if err != nil {
		return newStageError(p.Index, p.Name, StateDetectStructure, err)
	}
	s.SheetIndex, s.SheetName = p.Index, p.Name
	r.structure = s
	return nil
}

// resolveMapping fills r.mapping from the cache when a mapping for the same
// tenant and structure is known. Concurrent misses on one key wait for a
// single mapper call; a sheet whose shared call failed maps on its own.
func (r *sheetRun) resolveMapping(ctx context.Context) error {
	o := r.o
	if o.cfg.Cache == nil {
		r.enter(StateMapFields)
		return r.mapFields(ctx)
	}
	cacheKey := r.j.opts.TenantID + "|" + r.key
	if m, ok := o.cacheGet(ctx, cacheKey); ok {
		r.mapping, r.mapped = m, true
		r.log.Debug("field mapping reused from cache", zap.String("fingerprint", r.key))
		return nil
	}

	r.enter(StateMapFields)
	led := false
	v, err, _ := r.j.mappings.Do(cacheKey, func() (_ interface{}, err error) {
		led = true
		defer func() {
			if v := recover(); v != nil {
				err = newStageError(r.preview.Index, r.preview.Name, StateMapFields, fmt.Errorf("%w: %v", errPanic, v))
			}
		}()
		// A flight that finished between the lookup above and Do has
		// already stored its mapping.
		if m, ok := o.cfg.Cache.Get(ctx, cacheKey); ok {
			return m, nil
		}
		if err := r.mapFields(ctx); err != nil {
			return nil, err
		}
		o.cfg.Cache.Put(ctx, cacheKey, r.mapping)
		return r.mapping, nil
	})
	switch {
	case err != nil && led:
		return err
	case err != nil:
		r.log.Debug("shared field mapping failed, mapping sheet alone", zap.Error(err))
		return r.mapFields(ctx)
	}
	r.mapping, r.mapped = v.(models.MappingResult).Clone(), true
	if !led {
		r.log.Debug("field mapping shared with a concurrent sheet", zap.String("fingerprint", r.key))
	}
	return nil
}

func (r *sheetRun) mapFields(ctx context.Context) error {
	o, p := r.o, r.preview
	cctx, cancel := o.callContext(ctx)
	defer cancel()

	start := time.Now()
	m, err := o.mapper.MapFields(cctx, models.MappingRequest{
		ColumnNames: r.structure.ColumnNames(),
		SampleRows:  r.structure.SampleRows,
		TenantID:    r.j.opts.TenantID,
		Context:     map[string]string{"sheet_name": p.Name},
	})
	o.cfg.Metrics.ObserveStage(string(StateMapFields), err, time.Since(start))
	if err != nil {
		return newStageError(p.Index, p.Name, StateMapFields, err)
	}
	r.mapping, r.mapped = m, true
	return nil
}

func (r *sheetRun) assemble(x models.ExtractionResult) models.SheetResult {
	res := r.base()
	res.Success = true
	res.Headers = x.Headers
	res.RowCount = x.RowCount
	res.ColumnCount = x.ColumnCount
	res.PreviewRows = x.Rows
	if len(res.PreviewRows) > models.MaxPreviewRows {
		res.PreviewRows = res.PreviewRows[:models.MaxPreviewRows]
	}
	res.DataTypes = x.DataTypes
	if res.DataTypes == nil {
		res.DataTypes = columnTypes(r.structure)
	}
	res.Statistics = x.Statistics
	res.Confidence = math.Min(r.structure.Confidence, r.mapping.Confidence)

	if r.structure.Note != "" {
		res.Notes = append(res.Notes, r.structure.Note)
	}
	if r.mapping.Note != "" {
		res.Notes = append(res.Notes, r.mapping.Note)
	}
	res.Notes = append(res.Notes, x.ProcessingNotes...)
	return res
}

// base returns a result carrying whatever summaries are already known.
func (r *sheetRun) base() models.SheetResult {
	res := models.SheetResult{Index: r.preview.Index, Name: r.preview.Name}
	if r.structure.Success {
		s := r.structure
		res.Structure = &models.StructureSummary{
			HeaderRow:     s.HeaderRow,
			DataStartRow:  s.DataStartRow,
			ColumnCount:   len(s.Columns),
			MergedHeaders: s.MergedHeaders,
			Method:        s.Method,
			Confidence:    s.Confidence,
			Fingerprint:   r.key,
		}
	}
	if r.mapped {
		res.FieldMapping = summarizeMapping(r.mapping)
	}
	return res
}

func (r *sheetRun) fail(err error) models.SheetResult {
	res := r.base()
	res.Success = false
	res.Error = err.Error()
	var se *StageError
	if errors.As(err, &se) {
		res.FailedStage = string(se.Stage)
		r.log.Warn("sheet analysis failed",
			zap.String("stage", string(se.Stage)),
			zap.String("cause", string(se.Cause)),
			zap.Error(se.Err))
	}
	return res
}

func (r *sheetRun) enter(s State) {
	r.enterAt(s, time.Now())
}

func (r *sheetRun) enterAt(s State, at time.Time) {
	if s != StateDone && s != StateFailed {
		r.stage = s
	}
	r.log.Debug("pipeline transition", zap.String("state", string(s)))
	if r.o.cfg.Tracer != nil {
		r.o.cfg.Tracer.Transition(r.preview.Index, s, at)
	}
}

func summarizeMapping(m models.MappingResult) *models.MappingSummary {
	fields := make(map[string]string, len(m.FieldMappings))
	for _, fm := range m.FieldMappings {
		fields[fm.Column] = fm.Field
	}
	return &models.MappingSummary{
		TableType:  m.TableType,
		Fields:     fields,
		Unmapped:   m.UnmappedFields,
		Confidence: m.Confidence,
	}
}

func columnTypes(s models.StructureResult) map[string]string {
	if len(s.Columns) == 0 {
		return nil
	}
	types := make(map[string]string, len(s.Columns))
	for _, c := range s.Columns {
		if c.Type != "" {
			types[c.Name] = c.Type
		}
	}
	return types
}

// dataRowCount estimates the number of data rows below the header.
func dataRowCount(p models.SheetPreview, s models.StructureResult) int {
	n := p.RowCount
	if s.DataStartRow > 1 {
		n -= s.DataStartRow - 1
	}
	if n < 0 {
		return 0
	}
	return n
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
