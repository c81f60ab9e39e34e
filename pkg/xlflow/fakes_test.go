package xlflow

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ukaji3/xlflow-go/pkg/xlflow/models"
)

// meter counts concurrent calls into the expensive collaborators.
type meter struct {
	active atomic.Int64
	peak   atomic.Int64
}

func (p *meter) enter() {
	n := p.active.Add(1)
	for {
		old := p.peak.Load()
		if n <= old || p.peak.CompareAndSwap(old, n) {
			return
		}
	}
}

func (p *meter) exit() { p.active.Add(-1) }

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// jitter gives each sheet a different, repeatable delay.
func jitter(idx int) time.Duration {
	return time.Duration((idx*37)%11) * time.Millisecond
}

type fakeScanner struct {
	previews []models.SheetPreview
	err      error
}

func (s fakeScanner) Scan([]byte) ([]models.SheetPreview, error) {
	return s.previews, s.err
}

func preview(idx int, name string, rows int) models.SheetPreview {
	p := models.SheetPreview{
		Index:       idx,
		Name:        name,
		RowCount:    rows,
		ColumnCount: 3,
		IsEmpty:     rows == 0,
		HasData:     rows > 1,
		SizeBucket:  models.BucketFor(rows, 3),
	}
	if rows > 0 {
		p.PreviewHeaders = []string{"a", "b", "c"}
	}
	return p
}

type fakeDetector struct {
	meter *meter
	calls atomic.Int64

	mu   sync.Mutex
	seen []int

	// hook runs inside the call and may block, fail or panic.
	hook func(ctx context.Context, idx int) error
	// sameColumns makes every sheet report the same structure.
	sameColumns bool
}

func (d *fakeDetector) Detect(ctx context.Context, _ []byte, idx, _ int) (models.StructureResult, error) {
	d.calls.Add(1)
	d.mu.Lock()
	d.seen = append(d.seen, idx)
	d.mu.Unlock()
	if d.meter != nil {
		d.meter.enter()
		defer d.meter.exit()
	}
	if d.hook != nil {
		if err := d.hook(ctx, idx); err != nil {
			return models.StructureResult{}, err
		}
	}
	name := fmt.Sprintf("col%d", idx)
	if d.sameColumns {
		name = "amount"
	}
	return models.StructureResult{
		Success:      true,
		Columns:      []models.Column{{Index: 1, Name: name, Type: models.TypeInteger}},
		HeaderRow:    1,
		DataStartRow: 2,
		Confidence:   0.9,
		Method:       "fake",
	}, nil
}

func (d *fakeDetector) indices() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.seen...)
}

type fakeMapper struct {
	meter *meter
	calls atomic.Int64
	hook  func(ctx context.Context, sheet string) error
}

func (m *fakeMapper) MapFields(ctx context.Context, req models.MappingRequest) (models.MappingResult, error) {
	m.calls.Add(1)
	if m.meter != nil {
		m.meter.enter()
		defer m.meter.exit()
	}
	if m.hook != nil {
		if err := m.hook(ctx, req.Context["sheet_name"]); err != nil {
			return models.MappingResult{}, err
		}
	}
	var fms []models.FieldMapping
	for _, c := range req.ColumnNames {
		fms = append(fms, models.FieldMapping{Column: c, Field: "value", Confidence: 0.8})
	}
	return models.MappingResult{FieldMappings: fms, TableType: "generic", Confidence: 0.8}, nil
}

type fakeExecutor struct {
	calls atomic.Int64
	hook  func(ctx context.Context, idx int) error
}

// Execute returns idx+1 rows for sheet idx.
func (e *fakeExecutor) Execute(ctx context.Context, _ []byte, s models.StructureResult, _ models.MappingResult, _ models.ExtractOptions) (models.ExtractionResult, error) {
	e.calls.Add(1)
	if e.hook != nil {
		if err := e.hook(ctx, s.SheetIndex); err != nil {
			return models.ExtractionResult{}, err
		}
	}
	n := s.SheetIndex + 1
	rows := make([]models.Row, n)
	for i := range rows {
		rows[i] = models.Row{"value": int64(i)}
	}
	return models.ExtractionResult{
		Success:     true,
		Headers:     []string{"value"},
		RowCount:    n,
		ColumnCount: 1,
		Rows:        rows,
	}, nil
}

type traceEvent struct {
	state State
	at    time.Time
}

type recordingTracer struct {
	mu     sync.Mutex
	events map[int][]traceEvent
}

func newRecordingTracer() *recordingTracer {
	return &recordingTracer{events: map[int][]traceEvent{}}
}

func (r *recordingTracer) Transition(idx int, s State, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[idx] = append(r.events[idx], traceEvent{s, at})
}

// at returns the time sheet idx entered s.
func (r *recordingTracer) at(idx int, s State) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events[idx] {
		if e.state == s {
			return e.at, true
		}
	}
	return time.Time{}, false
}

func (r *recordingTracer) states(idx int) []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, 0, len(r.events[idx]))
	for _, e := range r.events[idx] {
		out = append(out, e.state)
	}
	return out
}
