package parser

import (
	"context"
	"fmt"

	"github.com/ukaji3/xlflow-go/pkg/xlflow/models"
)

// ctxCheckEvery is how many rows are read between cancellation checks.
const ctxCheckEvery = 512

// Executor extracts typed rows from a sheet once its structure and field
// mapping are known. Rows are keyed by canonical field where a column is
// mapped and by column name otherwise.
type Executor struct{}

// NewExecutor returns an Executor.
func NewExecutor() *Executor {
	return &Executor{}
}

// Execute implements the extraction contract. Rows past
// structure.DataEndRow are not read.
func (e *Executor) Execute(ctx context.Context, workbook []byte, structure models.StructureResult, mapping models.MappingResult, opts models.ExtractOptions) (models.ExtractionResult, error) {
	if err := ctx.Err(); err != nil {
		return models.ExtractionResult{}, err
	}
	f, sheet, err := openSheet(workbook, structure.SheetIndex)
	if err != nil {
		return models.ExtractionResult{}, err
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return models.ExtractionResult{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return extract(ctx, rows, structure, mapping, opts)
}

func extract(ctx context.Context, rows [][]string, structure models.StructureResult, mapping models.MappingResult, opts models.ExtractOptions) (models.ExtractionResult, error) {
	cols := structure.Columns
	headers := headerNames(cols, mapping)
	res := models.ExtractionResult{
		Success:     true,
		Headers:     headers,
		ColumnCount: len(headers),
		Rows:        []models.Row{},
		DataTypes:   make(map[string]string, len(cols)),
	}
	for i, c := range cols {
		res.DataTypes[headers[i]] = c.Type
	}

	start := max(structure.DataStartRow, 1)
	end := len(rows)
	if structure.DataEndRow > 0 {
		end = min(end, structure.DataEndRow)
	}
	skipped := 0
	for r := start - 1; r < end; r++ {
		if (r-start+1)%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return models.ExtractionResult{}, err
			}
		}
		raw := rows[r]
		row := make(models.Row, len(cols))
		empty := true
		for i, c := range cols {
			var text string
			if c.Index-1 < len(raw) {
				text = raw[c.Index-1]
			}
			v := typedValue(text, c.Type)
			if v != nil {
				empty = false
			}
			row[headers[i]] = v
		}
		if empty && opts.SkipEmptyRows {
			skipped++
			continue
		}
		if opts.MaxRows > 0 && len(res.Rows) == opts.MaxRows {
			res.ProcessingNotes = append(res.ProcessingNotes, fmt.Sprintf("truncated to %d rows", opts.MaxRows))
			break
		}
		res.Rows = append(res.Rows, row)
	}
	if skipped > 0 {
		res.ProcessingNotes = append(res.ProcessingNotes, fmt.Sprintf("skipped %d empty rows", skipped))
	}
	res.RowCount = len(res.Rows)
	if opts.CalculateStats {
		res.Statistics = statistics(headers, cols, res.Rows)
	}
	return res, nil
}

// headerNames keys each column by its mapped field, falling back to the
// column name. Collisions keep the column name.
func headerNames(cols []models.Column, mapping models.MappingResult) []string {
	fields := make(map[string]string, len(mapping.FieldMappings))
	for _, fm := range mapping.FieldMappings {
		fields[fm.Column] = fm.Field
	}
	used := make(map[string]bool, len(cols))
	names := make([]string, len(cols))
	for i, c := range cols {
		name := c.Name
		if f, ok := fields[c.Name]; ok && f != "" && !used[f] {
			name = f
		}
		if used[name] {
			name = fmt.Sprintf("%s_%d", name, c.Index)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func statistics(headers []string, cols []models.Column, rows []models.Row) map[string]models.ColumnStats {
	stats := make(map[string]models.ColumnStats, len(headers))
	for i, h := range headers {
		var (
			s        models.ColumnStats
			distinct = map[string]struct{}{}
			sum      float64
			numeric  int
			lo, hi   float64
		)
		for _, row := range rows {
			v := row[h]
			if v == nil {
				s.NullCount++
				continue
			}
			s.Count++
			distinct[fmt.Sprint(v)] = struct{}{}
			if cols[i].Type != models.TypeInteger && cols[i].Type != models.TypeNumber {
				continue
			}
			x, ok := toFloat(v)
			if !ok {
				continue
			}
			if numeric == 0 || x < lo {
				lo = x
			}
			if numeric == 0 || x > hi {
				hi = x
			}
			sum += x
			numeric++
		}
		s.Distinct = len(distinct)
		if numeric > 0 {
			mean := sum / float64(numeric)
			s.Min, s.Max, s.Mean = &lo, &hi, &mean
		}
		stats[h] = s
	}
	return stats
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
