package filter

import (
	"testing"

	"github.com/ukaji3/xlflow-go/pkg/xlflow/models"
)

func preview(idx int, name string, cols int, headers ...string) models.SheetPreview {
	return models.SheetPreview{
		Index:          idx,
		Name:           name,
		RowCount:       10,
		ColumnCount:    cols,
		HasData:        true,
		PreviewHeaders: headers,
	}
}

func indices(ps []models.SheetPreview) []int {
	out := make([]int, len(ps))
	for i, p := range ps {
		out[i] = p.Index
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestApplySkipEmpty(t *testing.T) {
	previews := []models.SheetPreview{
		preview(0, "Orders", 4, "id", "date"),
		{Index: 1, Name: "Sheet2", IsEmpty: true},
		preview(2, "Customers", 5, "id", "email"),
	}
	selected, skipped := Apply(previews, Options{SkipEmpty: true})
	if got := indices(selected); !equalInts(got, []int{0, 2}) {
		t.Errorf("selected = %v, expected [0 2]", got)
	}
	if len(skipped) != 1 || skipped[0].Index != 1 || skipped[0].Reason != models.SkipEmpty {
		t.Errorf("skipped = %+v", skipped)
	}
}

func TestApplyRulesInOrder(t *testing.T) {
	tests := []struct {
		name     string
		preview  models.SheetPreview
		opts     Options
		expected models.SkipReason
	}{
		{
			name:     "explicit indices win over everything",
			preview:  models.SheetPreview{Index: 3, Name: "Index", IsEmpty: true},
			opts:     Options{SheetIndices: []int{0}, SkipEmpty: true, SkipIndexSheets: true},
			expected: models.SkipNotRequested,
		},
		{
			name:     "empty before index",
			preview:  models.SheetPreview{Index: 0, Name: "Contents", IsEmpty: true},
			opts:     Options{SkipEmpty: true, SkipIndexSheets: true},
			expected: models.SkipEmpty,
		},
		{
			name:     "index by name",
			preview:  preview(0, "Table of Contents", 8, "a"),
			opts:     Options{SkipIndexSheets: true},
			expected: models.SkipIndexSheet,
		},
		{
			name:     "index by accented locale name",
			preview:  preview(0, "Índice", 8, "a"),
			opts:     Options{SkipIndexSheets: true},
			expected: models.SkipIndexSheet,
		},
		{
			name:     "index by CJK name",
			preview:  preview(0, "目录", 8, "a"),
			opts:     Options{SkipIndexSheets: true},
			expected: models.SkipIndexSheet,
		},
		{
			name:     "short marker as whole token",
			preview:  preview(0, "TOC", 8, "a"),
			opts:     Options{SkipIndexSheets: true},
			expected: models.SkipIndexSheet,
		},
		{
			name:     "narrow sheet listing other sheets",
			preview:  preview(0, "Overview", 2, "Sheet name", "Description"),
			opts:     Options{SkipIndexSheets: true},
			expected: models.SkipIndexSheet,
		},
	}

	for _, tt := range tests {
		_, skipped := Apply([]models.SheetPreview{tt.preview}, tt.opts)
		if len(skipped) != 1 {
			t.Errorf("%s: expected the sheet to be skipped", tt.name)
			continue
		}
		if skipped[0].Reason != tt.expected {
			t.Errorf("%s: reason = %q, expected %q", tt.name, skipped[0].Reason, tt.expected)
		}
	}
}

func TestApplyKeepsRegularSheets(t *testing.T) {
	tests := []struct {
		name    string
		preview models.SheetPreview
	}{
		{"substring of a short marker", preview(0, "Stock", 6, "sku", "qty")},
		{"wide sheet mentioning sheets", preview(0, "Audit", 6, "sheet", "cell", "old", "new")},
		{"narrow sheet without data", models.SheetPreview{Index: 0, Name: "Notes", ColumnCount: 2, PreviewHeaders: []string{"Sheet"}}},
		{"regular data", preview(0, "Sales 2024", 3, "region", "amount")},
	}
	for _, tt := range tests {
		selected, _ := Apply([]models.SheetPreview{tt.preview}, Options{SkipEmpty: true, SkipIndexSheets: true})
		if len(selected) != 1 {
			t.Errorf("%s: sheet should be selected", tt.name)
		}
	}
}

func TestApplyIndexRuleDisabled(t *testing.T) {
	selected, skipped := Apply([]models.SheetPreview{preview(0, "Index", 2, "Sheet")}, Options{})
	if len(selected) != 1 || len(skipped) != 0 {
		t.Errorf("zero Options should include everything")
	}
}

func TestApplyCustomMarkers(t *testing.T) {
	opts := Options{SkipIndexSheets: true, IndexMarkers: []string{"legend"}}
	selected, skipped := Apply([]models.SheetPreview{
		preview(0, "Index", 8, "a"),
		preview(1, "Legend", 8, "a"),
	}, opts)
	if got := indices(selected); !equalInts(got, []int{0}) {
		t.Errorf("selected = %v, expected [0]", got)
	}
	if len(skipped) != 1 || skipped[0].Name != "Legend" {
		t.Errorf("skipped = %+v", skipped)
	}
}

func TestApplyAllSkipped(t *testing.T) {
	previews := []models.SheetPreview{
		{Index: 0, Name: "a", IsEmpty: true},
		{Index: 1, Name: "b", IsEmpty: true},
	}
	selected, skipped := Apply(previews, Options{SkipEmpty: true})
	if len(selected) != 0 || len(skipped) != len(previews) {
		t.Errorf("expected empty selection, got %d selected / %d skipped", len(selected), len(skipped))
	}
}

func TestApplyPreservesOrder(t *testing.T) {
	previews := []models.SheetPreview{
		preview(0, "a", 4), preview(1, "b", 4), preview(2, "c", 4), preview(3, "d", 4),
	}
	selected, _ := Apply(previews, Options{SheetIndices: []int{3, 1, 2}})
	if got := indices(selected); !equalInts(got, []int{1, 2, 3}) {
		t.Errorf("selected = %v, expected scanner order [1 2 3]", got)
	}
}

func TestFold(t *testing.T) {
	tests := []struct{ in, expected string }{
		{"  Índice ", "indice"},
		{"CONTENTS", "contents"},
		{"目录", "目录"},
	}
	for _, tt := range tests {
		if got := Fold(tt.in); got != tt.expected {
			t.Errorf("Fold(%q) = %q, expected %q", tt.in, got, tt.expected)
		}
	}
}
