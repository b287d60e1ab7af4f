package stats

import (
	"sort"
	"strconv"

	"github.com/zalepa/evpop/record"
)

// Unknown is the bucket for records with an empty make or vehicle type.
const Unknown = record.TypeUnknown

// Entry is one category and its occurrence count.
type Entry struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Counts maps a category key to its count. It remembers the order in which
// keys were first seen so rankings can break ties deterministically.
type Counts struct {
	order    []string
	n        map[string]int
	excluded int
}

// Add increments key by one.
func (c *Counts) Add(key string) {
	if c.n == nil {
		c.n = make(map[string]int)
	}
	if _, ok := c.n[key]; !ok {
		c.order = append(c.order, key)
	}
	c.n[key]++
}

// Get returns the count for key, zero when absent.
func (c Counts) Get(key string) int { return c.n[key] }

// Len returns the number of distinct keys.
func (c Counts) Len() int { return len(c.order) }

// Total returns the sum of all bucket counts.
func (c Counts) Total() int {
	t := 0
	for _, v := range c.n {
		t += v
	}
	return t
}

// Excluded returns how many records had no key and were left out.
func (c Counts) Excluded() int { return c.excluded }

// Entries returns the buckets in first-seen order.
func (c Counts) Entries() []Entry {
	out := make([]Entry, len(c.order))
	for i, k := range c.order {
		out[i] = Entry{Key: k, Count: c.n[k]}
	}
	return out
}

// KeyFunc extracts a grouping key. ok=false leaves the record out of every
// bucket and counts it as excluded.
type KeyFunc func(r record.Record) (key string, ok bool)

// GroupBy counts records per key.
func GroupBy(records []record.Record, key KeyFunc) Counts {
	var c Counts
	for _, r := range records {
		k, ok := key(r)
		if !ok {
			c.excluded++
			continue
		}
		c.Add(k)
	}
	return c
}

// MakeKey buckets by make, empty makes under Unknown.
func MakeKey(r record.Record) (string, bool) { return orUnknown(r.Make), true }

// TypeKey buckets by vehicle type, empty types under Unknown.
func TypeKey(r record.Record) (string, bool) { return orUnknown(r.VehicleType), true }

// YearKey buckets by model year. Records without a year are excluded rather
// than bucketed.
func YearKey(r record.Record) (string, bool) {
	if r.ModelYear == nil {
		return "", false
	}
	return strconv.Itoa(*r.ModelYear), true
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}

// ByMake counts records per make.
func ByMake(records []record.Record) Counts { return GroupBy(records, MakeKey) }

// ByType counts records per vehicle type.
func ByType(records []record.Record) Counts { return GroupBy(records, TypeKey) }

// ByYear counts records per model year.
func ByYear(records []record.Record) Counts { return GroupBy(records, YearKey) }

// All is the view-size sentinel for "no top-N truncation".
const All = 0

// TopN ranks entries by count, highest first. Ties keep first-seen order.
// n <= 0 (All) returns every entry.
func TopN(c Counts, n int) []Entry {
	return truncate(Rank(c.Entries()), n)
}

// Rank sorts a copy of entries by count descending, stable on ties.
func Rank(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

func truncate(entries []Entry, n int) []Entry {
	if n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[:n]
}

// YearCount is one bar of the model year distribution.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// YearDistribution returns per-year counts in ascending year order. Records
// without a model year are not represented.
func YearDistribution(records []record.Record) []YearCount {
	n := make(map[int]int)
	for _, r := range records {
		if r.ModelYear == nil {
			continue
		}
		n[*r.ModelYear]++
	}
	out := make([]YearCount, 0, len(n))
	for y, c := range n {
		out = append(out, YearCount{Year: y, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}
