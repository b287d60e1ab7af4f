package grid

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/zalepa/evpop/record"
)

// Filter is a conjunction of grid predicates. Zero-valued fields are no-ops.
type Filter struct {
	Make        string `json:"make,omitempty"`
	VehicleType string `json:"type,omitempty"`
	YearMin     *float64 `json:"yearMin,omitempty"`
	YearMax     *float64 `json:"yearMax,omitempty"`
	Search      string   `json:"search,omitempty"`
}

// IsZero reports whether the filter lets every record through.
func (f Filter) IsZero() bool {
	return f.Make == "" && f.VehicleType == "" && f.YearMin == nil && f.YearMax == nil &&
		strings.TrimSpace(f.Search) == ""
}

// ParseYearBound reads a year bound typed into a free-text box. Fractional
// bounds such as "2018.5" are kept and compared as numbers; anything that
// isn't a finite number gives nil, which disables the bound.
func ParseYearBound(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Apply returns the records matching every predicate of f, in input order.
// The input slice is not modified.
func Apply(records []record.Record, f Filter) []record.Record {
	out := make([]record.Record, 0, len(records))
	if f.IsZero() {
		return append(out, records...)
	}
	m := newMatcher(f.Search)
	for _, r := range records {
		if f.Make != "" && r.Make != f.Make {
			continue
		}
		if f.VehicleType != "" && r.VehicleType != f.VehicleType {
			continue
		}
		if !inYearRange(r, f.YearMin, f.YearMax) {
			continue
		}
		if !m.match(r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// inYearRange applies the bounds numerically. Records without a model year
// pass both bounds.
func inYearRange(r record.Record, lo, hi *float64) bool {
	if r.ModelYear == nil {
		return true
	}
	y := float64(*r.ModelYear)
	if lo != nil && y < *lo {
		return false
	}
	if hi != nil && y > *hi {
		return false
	}
	return true
}

// EscapeSearch quotes every regular expression metacharacter in term so it
// matches literally.
func EscapeSearch(term string) string {
	return regexp.QuoteMeta(term)
}

// MatchesSearch reports whether r matches the free-text term. It never panics
// and an empty term matches everything.
func MatchesSearch(r record.Record, term string) bool {
	return newMatcher(term).match(r)
}

type matcher struct {
	term string
	re   *regexp.Regexp
}

func newMatcher(term string) matcher {
	term = strings.TrimSpace(term)
	if term == "" {
		return matcher{}
	}
	m := matcher{term: strings.ToLower(term)}
	// Compile can only fail on pathological input; the substring fallback
	// covers that case.
	if re, err := regexp.Compile("(?i)" + EscapeSearch(term)); err == nil {
		m.re = re
	}
	return m
}

func (m matcher) match(r record.Record) (ok bool) {
	if m.term == "" {
		return true
	}
	defer func() {
		if recover() != nil {
			ok = fallbackMatch(r, m.term)
		}
	}()
	if m.re == nil {
		return fallbackMatch(r, m.term)
	}
	return m.re.MatchString(haystack(r))
}

// haystack joins the searchable fields the way the grid shows them.
func haystack(r record.Record) string {
	year := ""
	if r.ModelYear != nil {
		year = strconv.Itoa(*r.ModelYear)
	}
	return fmt.Sprintf("%s %s %s %s %s", r.VIN, r.Make, r.Model, year, r.VehicleType)
}

func fallbackMatch(r record.Record, term string) bool {
	return strings.Contains(strings.ToLower(r.Make+" "+r.Model), term)
}

// Options returns the sorted distinct non-empty makes and vehicle types, used
// to populate the grid's filter pickers.
func Options(records []record.Record) (makes, types []string) {
	ms := make(map[string]bool)
	ts := make(map[string]bool)
	for _, r := range records {
		if r.Make != "" {
			ms[r.Make] = true
		}
		if r.VehicleType != "" {
			ts[r.VehicleType] = true
		}
	}
	return sortedKeys(ms), sortedKeys(ts)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var whitespace = regexp.MustCompile(`\s+`)

// RowID builds the stable grid key for the record at position idx.
func RowID(r record.Record, idx int) string {
	vin := orDefault(r.VIN, "no-vin")
	mk := whitespace.ReplaceAllString(orDefault(r.Make, "no-make"), "_")
	model := whitespace.ReplaceAllString(orDefault(r.Model, "no-model"), "_")
	year := "no-year"
	if r.ModelYear != nil && *r.ModelYear != 0 {
		year = strconv.Itoa(*r.ModelYear)
	}
	return fmt.Sprintf("%s-%s-%s-%s-%d", vin, mk, model, year, idx)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
