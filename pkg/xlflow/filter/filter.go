// Package filter decides which scanned sheets deserve full analysis.
package filter

import (
	"strings"

	"github.com/ukaji3/xlflow-go/pkg/xlflow/models"
)

// DefaultIndexMarkers are name fragments that identify index, table of
// contents and cover sheets. The list is a heuristic; deployments should
// override it through Options.
var DefaultIndexMarkers = []string{
	"index", "toc", "contents", "menu", "cover",
	"indice", "sommaire", "inhalt", "inhaltsverzeichnis", "deckblatt",
	"portada", "couverture", "sumario",
	"目录", "索引", "封面", "目次", "表紙", "목차",
}

// DefaultReferenceMarkers appear in the headers of sheets that list other
// sheets.
var DefaultReferenceMarkers = []string{
	"sheet", "tab", "hoja", "blatt", "feuille", "工作表", "シート",
}

// maxIndexColumns is the widest sheet still considered a listing of
// other sheets.
const maxIndexColumns = 3

// Options controls Apply. The zero value includes every sheet.
type Options struct {
	// SheetIndices restricts analysis to these indices when non-nil.
	SheetIndices []int
	// SkipEmpty excludes sheets without any non-blank cell.
	SkipEmpty bool
	// SkipIndexSheets excludes index, table of contents and cover sheets.
	SkipIndexSheets bool
	// IndexMarkers overrides DefaultIndexMarkers when non-nil.
	IndexMarkers []string
	// ReferenceMarkers overrides DefaultReferenceMarkers when non-nil.
	ReferenceMarkers []string
}

// Apply returns the sheets to analyze, in scanner order, and the sheets
// left out with a reason. The first matching rule wins. Apply has no side
// effects; an empty selection is a valid result.
func Apply(previews []models.SheetPreview, opts Options) ([]models.SheetPreview, []models.SkippedSheet) {
	var wanted map[int]bool
	if opts.SheetIndices != nil {
		wanted = make(map[int]bool, len(opts.SheetIndices))
		for _, idx := range opts.SheetIndices {
			wanted[idx] = true
		}
	}
	indexMarkers := foldAll(pick(opts.IndexMarkers, DefaultIndexMarkers))
	refMarkers := foldAll(pick(opts.ReferenceMarkers, DefaultReferenceMarkers))

	selected := make([]models.SheetPreview, 0, len(previews))
	var skipped []models.SkippedSheet
	for _, p := range previews {
		reason, skip := decide(p, opts, wanted, indexMarkers, refMarkers)
		if skip {
			skipped = append(skipped, models.SkippedSheet{Index: p.Index, Name: p.Name, Reason: reason})
			continue
		}
		selected = append(selected, p)
	}
	return selected, skipped
}

func decide(p models.SheetPreview, opts Options, wanted map[int]bool, indexMarkers, refMarkers []string) (models.SkipReason, bool) {
	if wanted != nil && !wanted[p.Index] {
		return models.SkipNotRequested, true
	}
	if opts.SkipEmpty && p.IsEmpty {
		return models.SkipEmpty, true
	}
	if opts.SkipIndexSheets && IsIndexSheet(p, indexMarkers, refMarkers) {
		return models.SkipIndexSheet, true
	}
	return "", false
}

// IsIndexSheet classifies a sheet as an index or table of contents. The
// marker slices must already be folded with Fold.
func IsIndexSheet(p models.SheetPreview, indexMarkers, refMarkers []string) bool {
	name := Fold(p.Name)
	for _, m := range indexMarkers {
		if containsMarker(name, m) {
			return true
		}
	}
	if !p.HasData || p.ColumnCount > maxIndexColumns {
		return false
	}
	joined := Fold(strings.Join(p.PreviewHeaders, " "))
	for _, m := range refMarkers {
		if containsMarker(joined, m) {
			return true
		}
	}
	return false
}

func pick(custom, def []string) []string {
	if custom != nil {
		return custom
	}
	return def
}

func foldAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if f := Fold(s); f != "" {
			out = append(out, f)
		}
	}
	return out
}
