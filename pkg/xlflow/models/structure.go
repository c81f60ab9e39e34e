package models

// Column type tags produced by structure detection.
const (
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeDate    = "date"
	TypeString  = "string"
	TypeEmpty   = "empty"
)

// Column describes one resolved column of a sheet.
type Column struct {
	// Index is the 1-based worksheet column number.
	Index int `json:"index"`
	// Name is the resolved header text.
	Name string `json:"name"`
	// Type is the inferred type tag (see Type* constants).
	Type string `json:"type,omitempty"`
	// Role is an optional detector-specific role such as "identifier" or "measure".
	Role string `json:"role,omitempty"`
}

// StructureResult is what a StructureDetector returns for one sheet.
type StructureResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	// SheetIndex and SheetName identify the sheet the structure belongs to.
	SheetIndex int    `json:"sheet_index"`
	SheetName  string `json:"sheet_name"`
	Columns    []Column `json:"columns"`
	// HeaderRow is the 1-based row holding the headers (0 if none).
	HeaderRow int `json:"header_row"`
	// DataStartRow is the 1-based first data row.
	DataStartRow int `json:"data_start_row"`
	// DataEndRow is the 1-based last row to extract; 0 means the end of
	// the sheet.
	DataEndRow int `json:"data_end_row,omitempty"`
	// MergedHeaders lists merged ranges that intersect the header row.
	MergedHeaders []string `json:"merged_headers,omitempty"`
	// SampleRows are a few raw data rows, used as mapper context.
	SampleRows [][]string `json:"sample_rows,omitempty"`
	Confidence float64    `json:"confidence"`
	Method     string     `json:"method"`
	Note       string     `json:"note,omitempty"`
}

// ColumnNames returns the resolved column names in column order.
func (s StructureResult) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnTypes returns the inferred type tags in column order.
func (s StructureResult) ColumnTypes() []string {
	types := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		types[i] = c.Type
	}
	return types
}

// StructureSummary is the part of a StructureResult kept on a SheetResult.
type StructureSummary struct {
	HeaderRow     int      `json:"header_row"`
	DataStartRow  int      `json:"data_start_row"`
	ColumnCount   int      `json:"column_count"`
	MergedHeaders []string `json:"merged_headers,omitempty"`
	Method        string   `json:"method"`
	Confidence    float64  `json:"confidence"`
	// Fingerprint is the structure key used for mapping cache lookups.
	Fingerprint string `json:"fingerprint"`
}
