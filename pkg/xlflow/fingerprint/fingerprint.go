// Package fingerprint derives deterministic cache keys from resolved sheet
// structures.
//
// Two sheets share a key when they have the same set of column names, the
// same type tag per column, and row counts of the same order of magnitude.
// Column order does not matter. The key is an opaque string; callers must
// not parse it.
package fingerprint

import (
	"encoding/binary"
	"encoding/hex"
	"sort"
	"strconv"

	"github.com/ukaji3/xlflow-go/pkg/xlflow/models"
	"github.com/zeebo/xxh3"
)

// version prefixes every key so the encoding can change without colliding
// with keys already stored by a cache.
const version = "v1"

type column struct {
	name string
	typ  string
}

// Key returns the structure key for the given columns. types may be nil or
// shorter than columns; missing entries count as untyped.
func Key(columns []string, types []string, rowCount int) string {
	cols := make([]column, len(columns))
	for i, name := range columns {
		cols[i].name = name
		if i < len(types) {
			cols[i].typ = types[i]
		}
	}
	sort.Slice(cols, func(i, j int) bool {
		if cols[i].name != cols[j].name {
			return cols[i].name < cols[j].name
		}
		return cols[i].typ < cols[j].typ
	})

	// Length-prefixed fields keep ("ab","c") and ("a","bc") apart.
	buf := make([]byte, 0, 64)
	buf = appendField(buf, version)
	buf = binary.AppendUvarint(buf, uint64(len(cols)))
	for _, c := range cols {
		buf = appendField(buf, c.name)
		buf = appendField(buf, c.typ)
	}
	buf = appendField(buf, "m"+strconv.Itoa(Magnitude(rowCount)))

	sum := xxh3.Hash128(buf).Bytes()
	return version + ":" + hex.EncodeToString(sum[:])
}

// FromStructure is Key applied to a detected structure.
func FromStructure(s models.StructureResult, rowCount int) string {
	return Key(s.ColumnNames(), s.ColumnTypes(), rowCount)
}

// Magnitude returns the decimal order of magnitude of n: 0 for n < 10
// (including non-positive values), 1 for 10..99, and so on.
func Magnitude(n int) int {
	m := 0
	for n >= 10 {
		n /= 10
		m++
	}
	return m
}

func appendField(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}
