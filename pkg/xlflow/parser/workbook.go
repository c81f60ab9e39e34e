// Package parser holds the local, excelize-backed collaborators of the
// analysis pipeline: a heuristic structure Detector, an AliasMapper for
// field mapping and an Executor that extracts typed rows.
package parser

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ErrSheetNotFound is returned when a sheet index is out of range.
var ErrSheetNotFound = errors.New("sheet not found")

// openSheet opens workbook and resolves the 0-based sheet index to its
// name. The caller closes the returned file.
func openSheet(workbook []byte, index int) (*excelize.File, string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(workbook))
	if err != nil {
		return nil, "", fmt.Errorf("open workbook: %w", err)
	}
	sheets := f.GetSheetList()
	if index < 0 || index >= len(sheets) {
		f.Close()
		return nil, "", fmt.Errorf("%w: index %d of %d", ErrSheetNotFound, index, len(sheets))
	}
	return f, sheets[index], nil
}
