package parser

import (
	"strconv"
	"strings"
	"time"

	"github.com/ukaji3/xlflow-go/pkg/xlflow/models"
)

// dateLayouts are the textual date forms recognized in cell text,
// including excelize's default rendering of date-formatted cells.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"01-02-06",
	"1/2/06",
	"1/2/2006",
	"02.01.2006",
	"1/2/06 15:04",
}

// parseValue attempts to parse a string value as a number or boolean.
// Returns int64 for integers, float64 for decimals, bool for TRUE/FALSE,
// or the original string.
func parseValue(s string) interface{} {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, ok := parseBool(s); ok {
		return b
	}
	return s
}

// typedValue converts cell text according to the column's inferred type.
// Blank cells yield nil. Text that does not fit the type is kept as is.
func typedValue(s, typ string) interface{} {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	switch typ {
	case models.TypeInteger:
		return parseValue(s)
	case models.TypeNumber:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case models.TypeBoolean:
		if b, ok := parseBool(s); ok {
			return b
		}
	}
	return s
}

func parseBool(s string) (bool, bool) {
	switch strings.ToUpper(s) {
	case "TRUE":
		return true, true
	case "FALSE":
		return false, true
	}
	return false, false
}

func isDate(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// cellType classifies a single cell's text.
func cellType(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.TypeEmpty
	}
	switch v := parseValue(s).(type) {
	case int64:
		return models.TypeInteger
	case float64:
		return models.TypeNumber
	case bool:
		return models.TypeBoolean
	case string:
		if isDate(v) {
			return models.TypeDate
		}
	}
	return models.TypeString
}

// columnType picks the dominant type of values and reports the share of
// non-blank values that agree with it. Integers count as numbers when the
// column mixes both.
func columnType(values []string) (string, float64) {
	counts := map[string]int{}
	n := 0
	for _, v := range values {
		t := cellType(v)
		if t == models.TypeEmpty {
			continue
		}
		counts[t]++
		n++
	}
	if n == 0 {
		return models.TypeEmpty, 1
	}
	if counts[models.TypeInteger] == n {
		return models.TypeInteger, 1
	}
	if numeric := counts[models.TypeInteger] + counts[models.TypeNumber]; numeric == n {
		return models.TypeNumber, 1
	}
	for _, t := range []string{models.TypeBoolean, models.TypeDate} {
		if counts[t] == n {
			return t, 1
		}
	}

	// Mixed columns are kept as text; confidence is the largest agreeing share.
	most := counts[models.TypeInteger] + counts[models.TypeNumber]
	for _, t := range []string{models.TypeString, models.TypeDate, models.TypeBoolean} {
		most = max(most, counts[t])
	}
	return models.TypeString, float64(most) / float64(n)
}
