package exporter

import (
	"cmp"
	"encoding/json"
	"math"
	"slices"
	"strings"

	"github.com/spf13/cast"

	"gridexport/pkg/contracts/domain"
)

// Resolve picks the rows an export covers. ScopeCurrent returns the
// displayed rows as they are. ScopeAll returns a copy of the full source
// stable-sorted by the first sort descriptor only; filters are not
// re-applied. Empty input yields an empty slice.
func Resolve(scope domain.Scope, displayed, source []domain.Row, sort []domain.SortDescriptor) []domain.Row {
	if scope != domain.ScopeAll {
		if displayed == nil {
			return []domain.Row{}
		}
		return displayed
	}

	rows := make([]domain.Row, len(source))
	copy(rows, source)
	if len(sort) == 0 || sort[0].Field == "" {
		return rows
	}

	field := sort[0].Field
	desc := sort[0].Dir == domain.SortDesc
	slices.SortStableFunc(rows, func(a, b domain.Row) int {
		c := compareValues(a.Value(field), b.Value(field))
		if desc {
			return -c
		}
		return c
	})
	return rows
}

// Value classes in sort order. NaN sorts after everything else.
const (
	classNil = iota
	classNumber
	classText
	classNaN
)

// numberOf converts Go numeric kinds. Strings are never parsed, so "007"
// or "nan" stay text.
func numberOf(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		f, err := cast.ToFloat64E(n)
		return f, err == nil
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// numericValue is numberOf restricted to finite values
func numericValue(v interface{}) (float64, bool) {
	f, ok := numberOf(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func classOf(v interface{}) (int, float64) {
	if v == nil {
		return classNil, 0
	}
	f, ok := numberOf(v)
	switch {
	case !ok:
		return classText, 0
	case math.IsNaN(f):
		return classNaN, 0
	}
	return classNumber, f
}

// compareValues is a total order: nil first, then numbers compared
// numerically, then everything else by its string form, then NaN.
// Strings compare lexically even when they look numeric.
func compareValues(a, b interface{}) int {
	ca, fa := classOf(a)
	cb, fb := classOf(b)
	if ca != cb {
		return cmp.Compare(ca, cb)
	}
	switch ca {
	case classNumber:
		return cmp.Compare(fa, fb)
	case classText:
		return strings.Compare(cast.ToString(a), cast.ToString(b))
	}
	return 0
}
