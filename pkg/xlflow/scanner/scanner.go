// Package scanner performs the cheap metadata pass over a workbook that
// precedes any inference call.
package scanner

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ukaji3/xlflow-go/pkg/xlflow/models"
	"github.com/xuri/excelize/v2"
)

// book is the subset of *excelize.File the scanner reads.
type book interface {
	GetSheetList() []string
	GetRows(sheet string, opts ...excelize.Options) ([][]string, error)
}

// Scanner produces one SheetPreview per sheet.
type Scanner struct {
	opts excelize.Options
}

// New returns a Scanner. opts are passed to excelize when opening the
// workbook (for example a password).
func New(opts ...excelize.Options) *Scanner {
	s := &Scanner{}
	if len(opts) > 0 {
		s.opts = opts[0]
	}
	return s
}

// Scan opens the workbook and previews every sheet in tab order. It fails
// only if the workbook cannot be opened; a sheet that cannot be read is
// reported as empty.
func (s *Scanner) Scan(workbook []byte) ([]models.SheetPreview, error) {
	f, err := excelize.OpenReader(bytes.NewReader(workbook), s.opts)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	return scanBook(f), nil
}

func scanBook(b book) []models.SheetPreview {
	names := b.GetSheetList()
	previews := make([]models.SheetPreview, 0, len(names))
	for idx, name := range names {
		rows, err := b.GetRows(name)
		if err != nil {
			previews = append(previews, unreadable(idx, name))
			continue
		}
		previews = append(previews, Preview(idx, name, rows))
	}
	return previews
}

func unreadable(idx int, name string) models.SheetPreview {
	return models.SheetPreview{
		Index:      idx,
		Name:       name,
		IsEmpty:    true,
		HasData:    false,
		SizeBucket: models.SizeSmall,
	}
}

// Preview computes the preview of a sheet from its raw rows.
func Preview(idx int, name string, rows [][]string) models.SheetPreview {
	p := models.SheetPreview{Index: idx, Name: name}

	firstRow := -1
	nonBlankRows := 0
	for r, row := range rows {
		width := lastNonBlank(row) + 1
		if width == 0 {
			continue
		}
		nonBlankRows++
		p.RowCount = r + 1
		if width > p.ColumnCount {
			p.ColumnCount = width
		}
		if firstRow < 0 {
			firstRow = r
		}
	}

	p.IsEmpty = nonBlankRows == 0
	p.HasData = nonBlankRows > 1
	if firstRow >= 0 {
		p.PreviewHeaders = headers(rows[firstRow])
	}
	p.SizeBucket = models.BucketFor(p.RowCount, p.ColumnCount)
	return p
}

func headers(row []string) []string {
	var out []string
	for _, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		out = append(out, cell)
		if len(out) == models.MaxPreviewHeaders {
			break
		}
	}
	return out
}

func lastNonBlank(row []string) int {
	for i := len(row) - 1; i >= 0; i-- {
		if strings.TrimSpace(row[i]) != "" {
			return i
		}
	}
	return -1
}
