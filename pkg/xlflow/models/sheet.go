// Package models defines data structures shared by the workbook analysis
// orchestrator and its collaborators.
package models

// SizeBucket is a coarse size class derived from rows × columns.
type SizeBucket string

const (
	// SizeSmall is used for sheets with fewer than 1,000 cells.
	SizeSmall SizeBucket = "small"
	// SizeMedium is used for sheets with fewer than 100,000 cells.
	SizeMedium SizeBucket = "medium"
	// SizeLarge is used for everything else.
	SizeLarge SizeBucket = "large"
)

// BucketFor returns the size bucket for a sheet of the given dimensions.
func BucketFor(rows, cols int) SizeBucket {
	cells := rows * cols
	switch {
	case cells < 1_000:
		return SizeSmall
	case cells < 100_000:
		return SizeMedium
	default:
		return SizeLarge
	}
}

// MaxPreviewHeaders bounds SheetPreview.PreviewHeaders.
const MaxPreviewHeaders = 10

// SheetPreview is the cheap metadata collected for one sheet before any
// inference call is made.
type SheetPreview struct {
	// Index is the 0-based position of the sheet in the workbook.
	Index int `json:"index"`
	// Name is the sheet tab name.
	Name string `json:"name"`
	// RowCount is the number of rows up to the last non-blank row.
	RowCount int `json:"row_count"`
	// ColumnCount is the widest non-blank column span over all rows.
	ColumnCount int `json:"column_count"`
	// IsEmpty reports that the sheet has no non-blank cell (or could not be read).
	IsEmpty bool `json:"is_empty"`
	// HasData reports at least one non-blank row after the first one.
	HasData bool `json:"has_data"`
	// PreviewHeaders holds up to MaxPreviewHeaders values of the first non-blank row.
	PreviewHeaders []string `json:"preview_headers,omitempty"`
	// SizeBucket is a scheduling and logging hint only.
	SizeBucket SizeBucket `json:"size_bucket"`
}

// SkipReason explains why the filter left a sheet out.
type SkipReason string

const (
	// SkipNotRequested marks a sheet outside the requested indices.
	SkipNotRequested SkipReason = "not_requested"
	// SkipEmpty marks a sheet without any non-blank cell.
	SkipEmpty SkipReason = "empty"
	// SkipIndexSheet marks an index, contents or cover sheet.
	SkipIndexSheet SkipReason = "index_sheet"
)

// SkippedSheet records a sheet excluded by the filter.
type SkippedSheet struct {
	Index  int        `json:"index"`
	Name   string     `json:"name"`
	Reason SkipReason `json:"reason"`
}
