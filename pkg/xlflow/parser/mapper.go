package parser

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/ukaji3/xlflow-go/pkg/xlflow/filter"
	"github.com/ukaji3/xlflow-go/pkg/xlflow/models"
)

const (
	exactMatch   = 1.0
	partialMatch = 0.8

	// TableGeneric is reported when no table rule matches.
	TableGeneric = "generic"
)

// DefaultAliases maps canonical fields to the header texts that denote them.
// Aliases are compared after case and accent folding.
var DefaultAliases = map[string][]string{
	"id":          {"id", "identifier", "code", "no", "number", "ref", "reference", "nº"},
	"name":        {"name", "full name", "nombre", "nom", "名前", "名称", "姓名"},
	"date":        {"date", "day", "order date", "transaction date", "fecha", "datum", "日付", "日期"},
	"amount":      {"amount", "total", "value", "revenue", "sales", "importe", "betrag", "montant", "金額", "金额", "销售额"},
	"quantity":    {"qty", "quantity", "units", "cantidad", "menge", "quantite", "数量"},
	"price":       {"price", "unit price", "precio", "preis", "prix", "単価", "单价"},
	"currency":    {"currency", "ccy", "moneda", "währung", "devise"},
	"email":       {"email", "e-mail", "mail", "correo"},
	"phone":       {"phone", "telephone", "tel", "mobile", "telefono", "電話", "电话"},
	"region":      {"region", "area", "territory", "zone", "地域", "地区"},
	"country":     {"country", "pais", "land", "pays"},
	"city":        {"city", "town", "ciudad", "stadt", "ville"},
	"category":    {"category", "class", "group", "categoria", "kategorie", "分類", "类别"},
	"status":      {"status", "state", "estado"},
	"sku":         {"sku", "item code", "product code", "article number"},
	"customer":    {"customer", "client", "account", "cliente", "kunde", "顧客", "客户"},
	"product":     {"product", "item", "article", "producto", "produkt", "商品", "产品"},
	"employee":    {"employee", "staff", "empleado", "mitarbeiter", "社員", "员工"},
	"department":  {"department", "dept", "division", "departamento", "abteilung", "部署", "部门"},
	"description": {"description", "details", "notes", "memo", "descripcion", "beschreibung"},
}

// tableRule guesses a table type from the set of mapped fields.
type tableRule struct {
	table  string
	fields []string
}

var tableRules = []tableRule{
	{"sales", []string{"amount", "quantity", "price", "customer", "product", "sku"}},
	{"inventory", []string{"sku", "quantity", "product", "category"}},
	{"contacts", []string{"email", "phone", "name", "city", "country"}},
	{"hr", []string{"employee", "department", "name"}},
}

// AliasMapper maps columns by comparing folded header text against known
// aliases. Tenant overrides take precedence over the aliases.
type AliasMapper struct {
	aliases map[string]string // folded alias -> field
	partial []aliasTokens

	mu        sync.RWMutex
	overrides map[string]map[string]string // tenant -> folded column -> field
}

type aliasTokens struct {
	field  string
	tokens []string
}

// NewAliasMapper builds a mapper from aliases; nil selects DefaultAliases.
func NewAliasMapper(aliases map[string][]string) *AliasMapper {
	if aliases == nil {
		aliases = DefaultAliases
	}
	m := &AliasMapper{
		aliases:   map[string]string{},
		overrides: map[string]map[string]string{},
	}
	fields := make([]string, 0, len(aliases))
	for field := range aliases {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		for _, a := range aliases[field] {
			folded := filter.Fold(a)
			if _, taken := m.aliases[folded]; !taken {
				m.aliases[folded] = field
			}
			m.partial = append(m.partial, aliasTokens{field: field, tokens: words(folded)})
		}
	}
	return m
}

// SetOverrides replaces the column overrides of tenant. Keys are header
// texts, values canonical fields.
func (m *AliasMapper) SetOverrides(tenant string, overrides map[string]string) {
	folded := make(map[string]string, len(overrides))
	for col, field := range overrides {
		folded[filter.Fold(col)] = field
	}
	m.mu.Lock()
	m.overrides[tenant] = folded
	m.mu.Unlock()
}

type candidate struct {
	column     string
	field      string
	confidence float64
}

// MapFields implements the semantic mapping contract.
func (m *AliasMapper) MapFields(ctx context.Context, req models.MappingRequest) (models.MappingResult, error) {
	if err := ctx.Err(); err != nil {
		return models.MappingResult{}, err
	}
	m.mu.RLock()
	overrides := m.overrides[req.TenantID]
	m.mu.RUnlock()

	best := map[string]candidate{} // field -> winning column
	var unmapped []string
	for _, col := range req.ColumnNames {
		c, ok := m.match(col, overrides)
		if !ok {
			unmapped = append(unmapped, col)
			continue
		}
		prev, taken := best[c.field]
		switch {
		case !taken:
			best[c.field] = c
		case c.confidence > prev.confidence:
			unmapped = append(unmapped, prev.column)
			best[c.field] = c
		default:
			unmapped = append(unmapped, col)
		}
	}

	res := models.MappingResult{TableType: TableGeneric}
	var total float64
	for _, col := range req.ColumnNames {
		for _, c := range best {
			if c.column == col {
				res.FieldMappings = append(res.FieldMappings, models.FieldMapping{
					Column:     c.column,
					Field:      c.field,
					Confidence: c.confidence,
				})
				total += c.confidence
			}
		}
	}
	res.UnmappedFields = inColumnOrder(req.ColumnNames, unmapped)
	if len(req.ColumnNames) > 0 {
		res.Confidence = total / float64(len(req.ColumnNames))
	} else {
		res.Note = "no columns to map"
	}
	res.TableType = tableType(best)
	return res, nil
}

func (m *AliasMapper) match(column string, overrides map[string]string) (candidate, bool) {
	folded := filter.Fold(strings.TrimSpace(column))
	if folded == "" {
		return candidate{}, false
	}
	if field, ok := overrides[folded]; ok {
		return candidate{column: column, field: field, confidence: exactMatch}, true
	}
	if field, ok := m.aliases[folded]; ok {
		return candidate{column: column, field: field, confidence: exactMatch}, true
	}
	// Prefer the longest alias, then the one found earliest in the header.
	have := words(folded)
	best, bestLen, bestPos := "", 0, len(have)
	for _, a := range m.partial {
		pos, ok := position(have, a.tokens)
		if !ok {
			continue
		}
		if len(a.tokens) > bestLen || (len(a.tokens) == bestLen && pos < bestPos) {
			best, bestLen, bestPos = a.field, len(a.tokens), pos
		}
	}
	if best == "" {
		return candidate{}, false
	}
	return candidate{column: column, field: best, confidence: partialMatch}, true
}

func tableType(best map[string]candidate) string {
	table, score := TableGeneric, 1
	for _, r := range tableRules {
		n := 0
		for _, f := range r.fields {
			if _, ok := best[f]; ok {
				n++
			}
		}
		if n > score {
			table, score = r.table, n
		}
	}
	return table
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// position reports where the first of want occurs in have, provided all
// of want occur.
func position(have, want []string) (int, bool) {
	if len(want) == 0 {
		return 0, false
	}
	first := len(have)
	for _, w := range want {
		i := indexOf(have, w)
		if i < 0 {
			return 0, false
		}
		first = min(first, i)
	}
	return first, true
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func inColumnOrder(columns, subset []string) []string {
	if len(subset) == 0 {
		return nil
	}
	in := make(map[string]bool, len(subset))
	for _, s := range subset {
		in[s] = true
	}
	out := make([]string, 0, len(subset))
	for _, c := range columns {
		if in[c] {
			out = append(out, c)
		}
	}
	return out
}
