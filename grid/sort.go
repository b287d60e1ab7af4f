package grid

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/zalepa/evpop/record"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// ParseDirection accepts asc/desc in any case. Anything else is Asc.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// SortColumn is one requested sort key.
type SortColumn struct {
	Column    string    `json:"column"`
	Direction Direction `json:"direction"`
}

// Sort returns rows ordered by the first requested column. Further columns
// are ignored. Equal keys keep their input order, and rows itself is left
// untouched.
func Sort(rows []record.Record, cols ...SortColumn) []record.Record {
	out := make([]record.Record, len(rows))
	copy(out, rows)
	if len(cols) == 0 || cols[0].Column == "" {
		return out
	}
	sc := cols[0]

	keys := make([]sortKey, len(out))
	for i, r := range out {
		keys[i] = makeSortKey(r, sc.Column)
	}
	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		c := compareKeys(keys[idx[a]], keys[idx[b]])
		if sc.Direction == Desc {
			return c > 0
		}
		return c < 0
	})

	sorted := make([]record.Record, len(out))
	for i, j := range idx {
		sorted[i] = out[j]
	}
	return sorted
}

type sortKey struct {
	num    float64
	isNum  bool
	folded string
}

func makeSortKey(r record.Record, column string) sortKey {
	s := CellText(r, column)
	k := sortKey{folded: strings.ToLower(s)}
	if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && !math.IsInf(v, 0) && !math.IsNaN(v) {
		k.num, k.isNum = v, true
	}
	return k
}

// compareKeys compares numerically when both sides are finite numbers and as
// case-folded text otherwise.
func compareKeys(a, b sortKey) int {
	if a.isNum && b.isNum {
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
		return 0
	}
	return strings.Compare(a.folded, b.folded)
}

// CellText renders a record field as grid text. Absent values are "".
func CellText(r record.Record, column string) string {
	v, ok := r.Value(column)
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
