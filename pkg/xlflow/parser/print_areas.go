package parser

import (
	"strings"

	"github.com/ukaji3/xlflow-go/pkg/xlflow/models"
	"github.com/xuri/excelize/v2"
)

// sheetPrintArea returns the first print area defined for sheet, if any.
func sheetPrintArea(f *excelize.File, sheet string) (models.PrintArea, bool) {
	for _, dn := range f.GetDefinedName() {
		if !strings.EqualFold(dn.Name, "_xlnm.Print_Area") {
			continue
		}
		name, areas := parsePrintAreaReference(dn.RefersTo)
		if name == "" {
			name = dn.Scope
		}
		if name == sheet && len(areas) > 0 {
			return areas[0], true
		}
	}
	return models.PrintArea{}, false
}

// parsePrintAreaReference parses 'Sheet Name'!$A$1:$D$10 or
// Sheet1!$A$1:$D$10, possibly comma separated.
func parsePrintAreaReference(ref string) (string, []models.PrintArea) {
	var (
		sheetName string
		areas     []models.PrintArea
	)
	for _, part := range strings.Split(ref, ",") {
		part = strings.TrimSpace(part)
		idx := strings.LastIndex(part, "!")
		if idx < 0 {
			continue
		}
		if sheetName == "" {
			sheetName = strings.ReplaceAll(strings.Trim(part[:idx], "'"), "''", "'")
		}
		if area, ok := parseRange(part[idx+1:]); ok {
			areas = append(areas, area)
		}
	}
	return sheetName, areas
}

// parseRange parses a range like $A$1:$D$10. A single cell is a 1x1 area.
func parseRange(s string) (models.PrintArea, bool) {
	parts := strings.Split(strings.ReplaceAll(s, "$", ""), ":")
	if len(parts) == 1 {
		parts = append(parts, parts[0])
	}
	if len(parts) != 2 {
		return models.PrintArea{}, false
	}
	c1, r1, err := excelize.CellNameToCoordinates(parts[0])
	if err != nil {
		return models.PrintArea{}, false
	}
	c2, r2, err := excelize.CellNameToCoordinates(parts[1])
	if err != nil {
		return models.PrintArea{}, false
	}
	if r1 > r2 {
		r1, r2 = r2, r1
	}
	if c1 > c2 {
		c1, c2 = c2, c1
	}
	return models.PrintArea{R1: r1, C1: c1, R2: r2, C2: c2}, true
}
