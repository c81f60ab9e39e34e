package models

// ExtractOptions configures an Executor call.
type ExtractOptions struct {
	// MaxRows caps extracted rows; 0 means no cap.
	MaxRows        int  `json:"max_rows"`
	SkipEmptyRows  bool `json:"skip_empty_rows"`
	CalculateStats bool `json:"calculate_stats"`
}

// Row is one extracted record keyed by header.
type Row map[string]interface{}

// ColumnStats summarizes one extracted column.
type ColumnStats struct {
	Count     int `json:"count"`
	NullCount int `json:"null_count"`
	Distinct  int `json:"distinct"`
	// Min, Max and Mean are set for numeric columns only.
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Mean *float64 `json:"mean,omitempty"`
}

// ExtractionResult is what an Executor returns.
type ExtractionResult struct {
	Success         bool                   `json:"success"`
	Error           string                 `json:"error,omitempty"`
	Headers         []string               `json:"headers"`
	RowCount        int                    `json:"row_count"`
	ColumnCount     int                    `json:"column_count"`
	Rows            []Row                  `json:"rows"`
	DataTypes       map[string]string      `json:"data_types,omitempty"`
	Statistics      map[string]ColumnStats `json:"statistics,omitempty"`
	ProcessingNotes []string               `json:"processing_notes,omitempty"`
}
