package models

// FieldMapping maps one raw column to a canonical business field.
type FieldMapping struct {
	Column     string  `json:"column"`
	Field      string  `json:"field"`
	Confidence float64 `json:"confidence"`
}

// MappingRequest is the input of a SemanticMapper call.
type MappingRequest struct {
	ColumnNames []string   `json:"column_names"`
	SampleRows  [][]string `json:"sample_rows,omitempty"`
	TenantID    string     `json:"tenant_id,omitempty"`
	// Context carries free-form hints such as the sheet name.
	Context map[string]string `json:"context,omitempty"`
}

// MappingResult is what a SemanticMapper returns.
type MappingResult struct {
	FieldMappings  []FieldMapping `json:"field_mappings"`
	UnmappedFields []string       `json:"unmapped_fields,omitempty"`
	TableType      string         `json:"table_type,omitempty"`
	Confidence     float64        `json:"confidence"`
	Note           string         `json:"note,omitempty"`
}

// Clone returns a copy of m that shares no slices with it.
func (m MappingResult) Clone() MappingResult {
	if m.FieldMappings != nil {
		m.FieldMappings = append([]FieldMapping(nil), m.FieldMappings...)
	}
	if m.UnmappedFields != nil {
		m.UnmappedFields = append([]string(nil), m.UnmappedFields...)
	}
	return m
}

// MappingSummary is the part of a MappingResult kept on a SheetResult.
type MappingSummary struct {
	TableType string `json:"table_type,omitempty"`
	// Fields maps raw column name to canonical field.
	Fields     map[string]string `json:"fields"`
	Unmapped   []string          `json:"unmapped,omitempty"`
	Confidence float64           `json:"confidence"`
}
