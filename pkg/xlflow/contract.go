package xlflow

import (
	"context"
	"time"

	"github.com/ukaji3/xlflow-go/pkg/xlflow/models"
)

// StructureDetector resolves header rows, merged cells and column types of
// one sheet. Implementations are usually backed by an inference service.
type StructureDetector interface {
	Detect(ctx context.Context, workbook []byte, sheetIndex, maxHeaderRows int) (models.StructureResult, error)
}

// SemanticMapper maps raw column names to canonical business fields.
type SemanticMapper interface {
	MapFields(ctx context.Context, req models.MappingRequest) (models.MappingResult, error)
}

// Executor turns a resolved structure and mapping into extracted rows and
// per-column statistics. It is CPU bound and never holds a gate permit.
type Executor interface {
	Execute(ctx context.Context, workbook []byte, structure models.StructureResult, mapping models.MappingResult, opts models.ExtractOptions) (models.ExtractionResult, error)
}

// Scanner produces the cheap per-sheet previews of a workbook.
type Scanner interface {
	Scan(workbook []byte) ([]models.SheetPreview, error)
}

// MappingCache stores mapping results by structure key.
type MappingCache interface {
	Get(ctx context.Context, key string) (models.MappingResult, bool)
	Put(ctx context.Context, key string, m models.MappingResult)
}

// ProgressFunc is called once per finished sheet, from a single goroutine.
// A panic inside it is recovered and logged.
type ProgressFunc func(completed, total int, sheetName string)

// State is a step of the per-sheet pipeline.
type State string

const (
	StateStart           State = "start"
	StateAcquireGate     State = "acquire_gate"
	StateDetectStructure State = "detect_structure"
	StateMapFields       State = "map_fields"
	StateReleaseGate     State = "release_gate"
	StateExtract         State = "extract"
	StateAssemble        State = "assemble"
	StateDone            State = "done"
	StateFailed          State = "failed"
)

// Tracer observes pipeline transitions. Transition is called from the
// sheet's own goroutine and must be safe for concurrent use.
type Tracer interface {
	Transition(sheetIndex int, s State, at time.Time)
}
