package parser

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/ukaji3/xlflow-go/pkg/xlflow/models"
)

var fruitStructure = models.StructureResult{
	Success: true,
	Columns: []models.Column{
		{Index: 1, Name: "Name", Type: models.TypeString},
		{Index: 2, Name: "Qty", Type: models.TypeInteger},
		{Index: 3, Name: "Price", Type: models.TypeNumber},
	},
	HeaderRow:    1,
	DataStartRow: 2,
}

var fruitMapping = models.MappingResult{
	FieldMappings: []models.FieldMapping{
		{Column: "Qty", Field: "quantity", Confidence: 1},
		{Column: "Price", Field: "price", Confidence: 1},
	},
}

var fruitRows = [][]string{
	{"Name", "Qty", "Price"},
	{"Apple", "3", "1.5"},
	{"", "", ""},
	{"Pear", "", "2"},
	{"Plum", "5", "0.5"},
}

func TestExtractRowsAndStats(t *testing.T) {
	res, err := extract(context.Background(), fruitRows, fruitStructure, fruitMapping,
		models.ExtractOptions{SkipEmptyRows: true, CalculateStats: true})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !reflect.DeepEqual(res.Headers, []string{"Name", "quantity", "price"}) {
		t.Errorf("headers = %v", res.Headers)
	}
	if res.RowCount != 3 || res.ColumnCount != 3 {
		t.Errorf("row/column count = %d/%d", res.RowCount, res.ColumnCount)
	}
	first := models.Row{"Name": "Apple", "quantity": int64(3), "price": 1.5}
	if !reflect.DeepEqual(res.Rows[0], first) {
		t.Errorf("first row = %v", res.Rows[0])
	}
	if res.Rows[1]["quantity"] != nil {
		t.Errorf("blank cell should be nil, got %v", res.Rows[1]["quantity"])
	}
	if res.DataTypes["price"] != models.TypeNumber {
		t.Errorf("data types = %v", res.DataTypes)
	}

	q := res.Statistics["quantity"]
	if q.Count != 2 || q.NullCount != 1 || q.Distinct != 2 {
		t.Errorf("quantity stats = %+v", q)
	}
	if q.Min == nil || *q.Min != 3 || *q.Max != 5 || *q.Mean != 4 {
		t.Errorf("quantity min/max/mean = %v/%v/%v", q.Min, q.Max, q.Mean)
	}
	if n := res.Statistics["Name"]; n.Count != 3 || n.Min != nil {
		t.Errorf("name stats = %+v", n)
	}
	if len(res.ProcessingNotes) != 1 || !strings.Contains(res.ProcessingNotes[0], "1 empty") {
		t.Errorf("notes = %v", res.ProcessingNotes)
	}
}

func TestExtractTruncates(t *testing.T) {
	res, err := extract(context.Background(), fruitRows, fruitStructure, fruitMapping,
		models.ExtractOptions{MaxRows: 2, SkipEmptyRows: true})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.RowCount != 2 {
		t.Errorf("row count = %d, expected 2", res.RowCount)
	}
	if res.Statistics != nil {
		t.Error("statistics must be omitted when not requested")
	}
	found := false
	for _, n := range res.ProcessingNotes {
		if strings.Contains(n, "truncated to 2 rows") {
			found = true
		}
	}
	if !found {
		t.Errorf("missing truncation note: %v", res.ProcessingNotes)
	}

	// No note when the cap is exactly the number of rows.
	res, _ = extract(context.Background(), fruitRows, fruitStructure, fruitMapping,
		models.ExtractOptions{MaxRows: 3, SkipEmptyRows: true})
	for _, n := range res.ProcessingNotes {
		if strings.Contains(n, "truncated") {
			t.Errorf("unexpected truncation note: %v", res.ProcessingNotes)
		}
	}
}

func TestExtractKeepsEmptyRows(t *testing.T) {
	res, err := extract(context.Background(), fruitRows, fruitStructure, models.MappingResult{}, models.ExtractOptions{})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.RowCount != 4 {
		t.Errorf("row count = %d, expected 4", res.RowCount)
	}
	if !reflect.DeepEqual(res.Headers, []string{"Name", "Qty", "Price"}) {
		t.Errorf("headers without mapping = %v", res.Headers)
	}
}

func TestExtractStopsAtDataEndRow(t *testing.T) {
	tests := []struct {
		name string
		end  int
		want int
	}{
		{"whole sheet", 0, 3},
		{"print area above blank row", 3, 1},
		{"print area through plum", 5, 3},
		{"end past the sheet", 20, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := fruitStructure
			s.DataEndRow = tt.end
			res, err := extract(context.Background(), fruitRows, s, fruitMapping, models.ExtractOptions{SkipEmptyRows: true})
			if err != nil {
				t.Fatalf("extract: %v", err)
			}
			if res.RowCount != tt.want {
				t.Errorf("row count = %d, expected %d", res.RowCount, tt.want)
			}
		})
	}
}

func TestHeaderNamesCollision(t *testing.T) {
	cols := []models.Column{{Index: 1, Name: "amount"}, {Index: 2, Name: "Total"}}
	mapping := models.MappingResult{FieldMappings: []models.FieldMapping{{Column: "Total", Field: "amount"}}}
	got := headerNames(cols, mapping)
	if !reflect.DeepEqual(got, []string{"amount", "Total"}) {
		t.Errorf("headerNames = %v", got)
	}
}

func TestExecutorOnWorkbook(t *testing.T) {
	wb := testWorkbook(t)
	ctx := context.Background()
	s, err := NewDetector().Detect(ctx, wb, 1, 10)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	m, err := NewAliasMapper(nil).MapFields(ctx, models.MappingRequest{ColumnNames: s.ColumnNames()})
	if err != nil {
		t.Fatalf("MapFields: %v", err)
	}
	res, err := NewExecutor().Execute(ctx, wb, s, m, models.ExtractOptions{SkipEmptyRows: true, CalculateStats: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.RowCount != 2 {
		t.Fatalf("row count = %d, expected 2", res.RowCount)
	}
	if res.Rows[0]["Sales_2"] != 120.0 {
		t.Errorf("unmapped column should keep its name, rows = %v", res.Rows)
	}
	if res.Rows[0]["customer"] != "Acme" || res.Rows[1]["amount"] != int64(80) {
		t.Errorf("rows = %v", res.Rows)
	}
}
