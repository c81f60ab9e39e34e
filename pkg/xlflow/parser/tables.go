package parser

import (
	"strings"

	"github.com/ukaji3/xlflow-go/pkg/xlflow/models"
)

// sparseDensity is the fill ratio below which a region is flagged as sparse.
const sparseDensity = 0.04

// dataBounds finds the 1-based bounding box of non-blank cells.
func dataBounds(rows [][]string) (models.PrintArea, bool) {
	b := models.PrintArea{}
	found := false
	for r, row := range rows {
		for c, cell := range row {
			if strings.TrimSpace(cell) == "" {
				continue
			}
			row, col := r+1, c+1
			if !found {
				b = models.PrintArea{R1: row, C1: col, R2: row, C2: col}
				found = true
				continue
			}
			b.R1 = min(b.R1, row)
			b.R2 = max(b.R2, row)
			b.C1 = min(b.C1, col)
			b.C2 = max(b.C2, col)
		}
	}
	return b, found
}

// intersect clips a to b.
func intersect(a, b models.PrintArea) (models.PrintArea, bool) {
	out := models.PrintArea{
		R1: max(a.R1, b.R1),
		C1: max(a.C1, b.C1),
		R2: min(a.R2, b.R2),
		C2: min(a.C2, b.C2),
	}
	return out, out.R1 <= out.R2 && out.C1 <= out.C2
}

// clip copies the cells of area into a dense grid padded with "".
func clip(rows [][]string, area models.PrintArea) [][]string {
	width := area.C2 - area.C1 + 1
	grid := make([][]string, 0, area.R2-area.R1+1)
	for r := area.R1; r <= area.R2; r++ {
		line := make([]string, width)
		if r-1 < len(rows) {
			src := rows[r-1]
			for c := area.C1; c <= area.C2 && c-1 < len(src); c++ {
				line[c-area.C1] = strings.TrimSpace(src[c-1])
			}
		}
		grid = append(grid, line)
	}
	return grid
}

// density is the share of non-blank cells in grid.
func density(grid [][]string) float64 {
	total, filled := 0, 0
	for _, row := range grid {
		for _, cell := range row {
			total++
			if cell != "" {
				filled++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(filled) / float64(total)
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
