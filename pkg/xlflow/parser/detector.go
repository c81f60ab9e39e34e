package parser

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ukaji3/xlflow-go/pkg/xlflow/models"
	"github.com/xuri/excelize/v2"
)

const (
	// DefaultSampleSize is the number of data rows returned as samples.
	DefaultSampleSize = 5
	// inferRows bounds how many data rows feed type inference.
	inferRows = 200

	// MethodPrintArea marks a structure detected inside the sheet's print area.
	MethodPrintArea = "heuristic:print_area"
	// MethodBounds marks a structure detected over the used range.
	MethodBounds = "heuristic:bounds"
)

// Detector finds the header row and column types of a sheet without any
// inference service.
type Detector struct {
	SampleSize int
}

// NewDetector returns a Detector with default settings.
func NewDetector() *Detector {
	return &Detector{SampleSize: DefaultSampleSize}
}

// merge is a merged range with its top-left value.
type merge struct {
	ref   string
	area  models.PrintArea
	value string
}

// Detect implements the structure detection contract. A sheet without any
// data is reported with Success=false rather than an error.
func (d *Detector) Detect(ctx context.Context, workbook []byte, sheetIndex, maxHeaderRows int) (models.StructureResult, error) {
	if err := ctx.Err(); err != nil {
		return models.StructureResult{}, err
	}
	f, sheet, err := openSheet(workbook, sheetIndex)
	if err != nil {
		return models.StructureResult{}, err
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return models.StructureResult{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	merges, err := sheetMerges(f, sheet)
	if err != nil {
		return models.StructureResult{}, fmt.Errorf("read merged cells of %q: %w", sheet, err)
	}
	pa, hasPrintArea := sheetPrintArea(f, sheet)

	res := d.detect(rows, merges, pa, hasPrintArea, maxHeaderRows)
	res.SheetIndex, res.SheetName = sheetIndex, sheet
	return res, ctx.Err()
}

func sheetMerges(f *excelize.File, sheet string) ([]merge, error) {
	cells, err := f.GetMergeCells(sheet)
	if err != nil {
		return nil, err
	}
	out := make([]merge, 0, len(cells))
	for _, mc := range cells {
		area, ok := parseRange(mc.GetStartAxis() + ":" + mc.GetEndAxis())
		if !ok {
			continue
		}
		out = append(out, merge{
			ref:   mc.GetStartAxis() + ":" + mc.GetEndAxis(),
			area:  area,
			value: strings.TrimSpace(mc.GetCellValue()),
		})
	}
	return out, nil
}

// detect works on the raw rows so it can be exercised without a workbook.
func (d *Detector) detect(rows [][]string, merges []merge, pa models.PrintArea, hasPrintArea bool, maxHeaderRows int) models.StructureResult {
	bounds, ok := dataBounds(rows)
	if !ok {
		return models.StructureResult{Error: "sheet has no data", Method: MethodBounds}
	}
	area, method := bounds, MethodBounds
	if hasPrintArea {
		if clipped, ok := intersect(pa, bounds); ok {
			area, method = clipped, MethodPrintArea
		}
	}
	grid := clip(rows, area)
	if maxHeaderRows <= 0 {
		maxHeaderRows = 1
	}

	var notes []string
	headerIdx := pickHeader(grid, maxHeaderRows)
	res := models.StructureResult{Success: true, Method: method}
	if method == MethodPrintArea {
		res.DataEndRow = area.R2
	}

	var header []string
	if headerIdx < 0 {
		header = make([]string, len(grid[0]))
		res.DataStartRow = area.R1
		notes = append(notes, "no header row found, columns named by position")
	} else {
		res.HeaderRow = area.R1 + headerIdx
		res.DataStartRow = res.HeaderRow + 1
		header = append([]string(nil), grid[headerIdx]...)
		res.MergedHeaders = expandMerged(header, merges, res.HeaderRow, area.C1)
		if headerIdx > 0 {
			notes = append(notes, fmt.Sprintf("skipped %d title rows above the header", headerIdx))
		}
	}

	data := grid[res.DataStartRow-area.R1:]
	filled := 0
	for _, h := range header {
		if h != "" {
			filled++
		}
	}
	names := uniqueNames(header)

	var consistency float64
	for c := range header {
		values := make([]string, 0, min(len(data), inferRows))
		for _, row := range data[:min(len(data), inferRows)] {
			values = append(values, row[c])
		}
		typ, share := columnType(values)
		consistency += share
		res.Columns = append(res.Columns, models.Column{
			Index: area.C1 + c,
			Name:  names[c],
			Type:  typ,
			Role:  role(typ),
		})
	}

	sample := max(d.SampleSize, 0)
	for _, row := range data {
		if len(res.SampleRows) >= sample {
			break
		}
		if blankRow(row) {
			continue
		}
		res.SampleRows = append(res.SampleRows, append([]string(nil), row...))
	}

	width := float64(len(res.Columns))
	if headerIdx < 0 {
		res.Confidence = 0.3 * consistency / width
	} else {
		res.Confidence = 0.5*float64(filled)/width + 0.5*consistency/width
	}
	if density(grid) < sparseDensity {
		notes = append(notes, "sparse sheet")
	}
	res.Note = strings.Join(notes, "; ")
	return res
}

// pickHeader returns the index of the row among the first limit rows with
// the highest share of text cells, or -1 when none has text. Earlier rows
// win ties. The last row of the grid is never a header unless it is the
// only one.
func pickHeader(grid [][]string, limit int) int {
	best, bestScore := -1, 0.0
	n := min(limit, len(grid))
	if n == len(grid) && n > 1 {
		n--
	}
	for i := 0; i < n; i++ {
		text := 0
		for _, cell := range grid[i] {
			if cellType(cell) == models.TypeString {
				text++
			}
		}
		score := float64(text) / float64(len(grid[i]))
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

// expandMerged fills blank header cells covered by a merged range with the
// range's value and returns the refs of ranges touching the header row.
func expandMerged(header []string, merges []merge, headerRow, firstCol int) []string {
	var refs []string
	for _, m := range merges {
		if headerRow < m.area.R1 || headerRow > m.area.R2 {
			continue
		}
		touched := false
		for col := m.area.C1; col <= m.area.C2; col++ {
			i := col - firstCol
			if i < 0 || i >= len(header) {
				continue
			}
			touched = true
			if header[i] == "" {
				header[i] = m.value
			}
		}
		if touched {
			refs = append(refs, m.ref)
		}
	}
	return refs
}

// uniqueNames fills blanks with column_N and suffixes duplicates.
func uniqueNames(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := h
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		key := strings.ToLower(name)
		if n := seen[key]; n > 0 {
			seen[key] = n + 1
			name = name + "_" + strconv.Itoa(n+1)
		} else {
			seen[key] = 1
		}
		names[i] = name
	}
	return names
}

func role(typ string) string {
	switch typ {
	case models.TypeInteger, models.TypeNumber:
		return "measure"
	case models.TypeDate:
		return "time"
	case models.TypeString, models.TypeBoolean:
		return "attribute"
	}
	return ""
}
