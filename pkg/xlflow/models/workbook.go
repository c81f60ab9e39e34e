package models

// MaxPreviewRows bounds SheetResult.PreviewRows.
const MaxPreviewRows = 100

// SheetResult is the terminal value of one sheet pipeline, successful or not.
type SheetResult struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	// FailedStage names the pipeline stage that failed.
	FailedStage  string            `json:"failed_stage,omitempty"`
	Structure    *StructureSummary `json:"structure,omitempty"`
	FieldMapping *MappingSummary   `json:"field_mapping,omitempty"`
	Headers      []string          `json:"headers"`
	RowCount     int               `json:"row_count"`
	ColumnCount  int               `json:"column_count"`
	// PreviewRows holds at most MaxPreviewRows extracted rows.
	PreviewRows []Row                  `json:"preview_rows,omitempty"`
	DataTypes   map[string]string      `json:"data_types,omitempty"`
	Statistics  map[string]ColumnStats `json:"statistics,omitempty"`
	Confidence  float64                `json:"confidence"`
	// ProcessingTimeMs is the elapsed time from pipeline start to its terminal state.
	ProcessingTimeMs float64  `json:"processing_time_ms"`
	Notes            []string `json:"notes,omitempty"`
}

// WorkbookResult is the aggregate outcome of one analysis job.
type WorkbookResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	// ErrorKind classifies whole-job failures.
	ErrorKind       string         `json:"error_kind,omitempty"`
	TotalSheets     int            `json:"total_sheets"`
	ProcessedSheets int            `json:"processed_sheets"`
	FailedSheets    int            `json:"failed_sheets"`
	SkippedSheets   int            `json:"skipped_sheets"`
	Skipped         []SkippedSheet `json:"skipped,omitempty"`
	// Sheets is ordered by Index.
	Sheets                []SheetResult `json:"sheets"`
	TotalRows             int           `json:"total_rows"`
	TotalProcessingTimeMs float64       `json:"total_processing_time_ms"`
	// ParallelizationSpeedup is Σ per-sheet time / wall time; observability only.
	ParallelizationSpeedup float64 `json:"parallelization_speedup"`
	Filename               string  `json:"filename,omitempty"`
}
