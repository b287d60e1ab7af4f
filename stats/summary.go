package stats

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/zalepa/evpop/record"
)

// AverageRange is the mean electric range over records whose range is present
// and positive, rounded to the nearest integer. ok is false when no record
// qualifies.
func AverageRange(records []record.Record) (avg int, ok bool) {
	var xs []float64
	for _, r := range records {
		if r.HasRange() {
			xs = append(xs, *r.ElectricRange)
		}
	}
	if len(xs) == 0 {
		return 0, false
	}
	return int(math.Round(stat.Mean(xs, nil))), true
}

// FormatRange renders an average range for display: "N/A" when absent.
func FormatRange(avg int, ok bool) string {
	if !ok {
		return "N/A"
	}
	return fmt.Sprintf("%d mi", avg)
}

// Point is one vehicle on the range vs MSRP scatter.
type Point struct {
	Range float64 `json:"range"`
	Price float64 `json:"price"`
	Model string  `json:"model"`
	Type  string  `json:"type"`
}

// Scatter keeps every record with both a positive range and a positive MSRP.
// Nothing is subsampled.
func Scatter(records []record.Record) []Point {
	var pts []Point
	for _, r := range records {
		if !r.HasRange() || !r.HasMSRP() {
			continue
		}
		pts = append(pts, Point{
			Range: *r.ElectricRange,
			Price: *r.BaseMSRP,
			Model: r.Model,
			Type:  r.VehicleType,
		})
	}
	return pts
}

// SplitByType separates scatter points into the BEV and PHEV series. Points of
// any other type land in neither.
func SplitByType(pts []Point) (bev, phev []Point) {
	for _, p := range pts {
		switch p.Type {
		case record.TypeBEV:
			bev = append(bev, p)
		case record.TypePHEV:
			phev = append(phev, p)
		}
	}
	return bev, phev
}

// Correlation is the Pearson coefficient between range and price over pts.
// ok is false with fewer than two points or when either axis is constant.
func Correlation(pts []Point) (r float64, ok bool) {
	if len(pts) < 2 {
		return 0, false
	}
	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = p.Range, p.Price
	}
	r = stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return r, true
}

// Share is a bucket with its percentage of the total, one decimal place.
type Share struct {
	Key     string  `json:"key"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Shares converts counts into percentages of their total, in first-seen order.
func Shares(c Counts) []Share {
	total := c.Total()
	entries := c.Entries()
	out := make([]Share, len(entries))
	for i, e := range entries {
		pct := 0.0
		if total > 0 {
			pct = math.Round(float64(e.Count)/float64(total)*1000) / 10
		}
		out[i] = Share{Key: e.Key, Count: e.Count, Percent: pct}
	}
	return out
}

// FilterMakes keeps ranking entries whose key contains term, ignoring case.
// An empty term keeps everything.
func FilterMakes(entries []Entry, term string) []Entry {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return entries
	}
	var out []Entry
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Key), term) {
			out = append(out, e)
		}
	}
	return out
}

// Summary is the KPI header.
type Summary struct {
	Total        int    `json:"total"`
	BEV          int    `json:"bev"`
	PHEV         int    `json:"phev"`
	TopMakeLabel string `json:"topMakeLabel"`
	TopMake      Entry  `json:"topMake"`
	AvgRange     *int   `json:"avgRange"`
	AvgRangeText string `json:"avgRangeText"`
}

// Summarize computes the KPI header over records. selected switches the make
// label from "Top Make" to "Selected Make".
func Summarize(records []record.Record, selected bool) Summary {
	types := ByType(records)
	s := Summary{
		Total:        len(records),
		BEV:          types.Get(record.TypeBEV),
		PHEV:         types.Get(record.TypePHEV),
		TopMakeLabel: "Top Make",
		TopMake:      Entry{Key: "-"},
	}
	if selected {
		s.TopMakeLabel = "Selected Make"
	}
	if top := TopN(ByMake(records), 1); len(top) > 0 {
		s.TopMake = top[0]
	}
	avg, ok := AverageRange(records)
	if ok {
		s.AvgRange = &avg
	}
	s.AvgRangeText = FormatRange(avg, ok)
	return s
}
