package parser

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/ukaji3/xlflow-go/pkg/xlflow/models"
)

func fieldsOf(res models.MappingResult) map[string]string {
	out := map[string]string{}
	for _, fm := range res.FieldMappings {
		out[fm.Column] = fm.Field
	}
	return out
}

func TestAliasMapperMapFields(t *testing.T) {
	m := NewAliasMapper(nil)
	res, err := m.MapFields(context.Background(), models.MappingRequest{
		ColumnNames: []string{"Order Date", "Customer Name", "Qty", "Unit Price (USD)", "Total", "Warehouse Bin"},
	})
	if err != nil {
		t.Fatalf("MapFields: %v", err)
	}

	want := map[string]string{
		"Order Date":       "date",
		"Customer Name":    "customer",
		"Qty":              "quantity",
		"Unit Price (USD)": "price",
		"Total":            "amount",
	}
	if got := fieldsOf(res); !reflect.DeepEqual(got, want) {
		t.Errorf("fields = %v, expected %v", got, want)
	}
	if !reflect.DeepEqual(res.UnmappedFields, []string{"Warehouse Bin"}) {
		t.Errorf("unmapped = %v", res.UnmappedFields)
	}
	if res.TableType != "sales" {
		t.Errorf("table type = %q, expected sales", res.TableType)
	}
	if want := 4.6 / 6; math.Abs(res.Confidence-want) > 1e-9 {
		t.Errorf("confidence = %v, expected %v", res.Confidence, want)
	}
	if res.FieldMappings[0].Column != "Order Date" {
		t.Errorf("mappings must follow column order, got %+v", res.FieldMappings)
	}
}

func TestAliasMapperFolding(t *testing.T) {
	res, err := NewAliasMapper(nil).MapFields(context.Background(), models.MappingRequest{
		ColumnNames: []string{"FECHA", "Teléfono", "Phone Number", "数量"},
	})
	if err != nil {
		t.Fatalf("MapFields: %v", err)
	}
	got := fieldsOf(res)
	if got["FECHA"] != "date" || got["Teléfono"] != "phone" || got["数量"] != "quantity" {
		t.Errorf("fields = %v", got)
	}
	// Teléfono already holds phone with an exact match.
	if _, ok := got["Phone Number"]; ok {
		t.Errorf("Phone Number should lose to the exact match, got %v", got)
	}
}

func TestAliasMapperConflicts(t *testing.T) {
	res, err := NewAliasMapper(nil).MapFields(context.Background(), models.MappingRequest{
		ColumnNames: []string{"Total Amount", "Amount", "Total"},
	})
	if err != nil {
		t.Fatalf("MapFields: %v", err)
	}
	if got := fieldsOf(res); !reflect.DeepEqual(got, map[string]string{"Amount": "amount"}) {
		t.Errorf("fields = %v", got)
	}
	if !reflect.DeepEqual(res.UnmappedFields, []string{"Total Amount", "Total"}) {
		t.Errorf("unmapped = %v", res.UnmappedFields)
	}
}

func TestAliasMapperTenantOverrides(t *testing.T) {
	m := NewAliasMapper(nil)
	m.SetOverrides("acme", map[string]string{"Cust #": "customer", "Total": "net_amount"})

	req := models.MappingRequest{ColumnNames: []string{"Cust #", "Total"}, TenantID: "acme"}
	res, err := m.MapFields(context.Background(), req)
	if err != nil {
		t.Fatalf("MapFields: %v", err)
	}
	want := map[string]string{"Cust #": "customer", "Total": "net_amount"}
	if got := fieldsOf(res); !reflect.DeepEqual(got, want) {
		t.Errorf("fields = %v, expected %v", got, want)
	}

	req.TenantID = "other"
	res, err = m.MapFields(context.Background(), req)
	if err != nil {
		t.Fatalf("MapFields: %v", err)
	}
	if got := fieldsOf(res); !reflect.DeepEqual(got, map[string]string{"Total": "amount"}) {
		t.Errorf("fields for other tenant = %v", got)
	}
}

func TestAliasMapperEdgeCases(t *testing.T) {
	m := NewAliasMapper(nil)
	res, err := m.MapFields(context.Background(), models.MappingRequest{})
	if err != nil {
		t.Fatalf("MapFields: %v", err)
	}
	if res.Confidence != 0 || res.TableType != TableGeneric || res.Note == "" {
		t.Errorf("unexpected result for no columns: %+v", res)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.MapFields(ctx, models.MappingRequest{ColumnNames: []string{"Qty"}}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
