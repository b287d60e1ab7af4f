package dashboard

import (
	"github.com/zalepa/evpop/grid"
	"github.com/zalepa/evpop/record"
	"github.com/zalepa/evpop/stats"
)

// Ranking is the makes chart: the full dataset ranked by count, narrowed by
// the make search and cut to the view size.
type Ranking struct {
	Entries []stats.Entry `json:"entries"`
	// List is set when the ranking is too long to draw as bars.
	List     bool   `json:"list"`
	Selected string `json:"selected,omitempty"`
}

// ScatterView is the range against price sample of the full dataset.
type ScatterView struct {
	BEV         []stats.Point `json:"bev"`
	PHEV        []stats.Point `json:"phev"`
	Points      int           `json:"points"`
	Correlation *float64      `json:"correlation,omitempty"`
}

// Row is one grid line with its stable id.
type Row struct {
	ID string `json:"id"`
	record.Record
}

// GridView is the filtered and sorted grid.
type GridView struct {
	Rows    []Row            `json:"rows"`
	Columns []grid.Column    `json:"columns"`
	Makes   []string         `json:"makes"`
	Types   []string         `json:"types"`
	Sort    *grid.SortColumn `json:"sort,omitempty"`
}

// Records returns the grid rows as plain records, in grid order.
func (g GridView) Records() []record.Record {
	out := make([]record.Record, len(g.Rows))
	for i, r := range g.Rows {
		out[i] = r.Record
	}
	return out
}

// View is everything derived from one dataset and one selection.
type View struct {
	Selection Selection         `json:"selection"`
	Summary   stats.Summary     `json:"summary"`
	Types     []stats.Share     `json:"types"`
	Years     []stats.YearCount `json:"years"`
	Ranking   Ranking           `json:"ranking"`
	Scatter   ScatterView       `json:"scatter"`
	Grid      GridView          `json:"grid"`
}

// Derive computes every view from scratch. It never modifies ds and returns
// the same View for the same inputs.
//
// The header (summary, type shares, year distribution) covers the selected
// make's records when a make is selected. The ranking and the scatter always
// cover the whole dataset. The grid is the selected make's records narrowed
// by the grid filters, then sorted.
func Derive(ds *record.Dataset, sel Selection) View {
	all := ds.Records()
	scope := all
	if sel.Filtered() {
		scope = grid.Apply(all, grid.Filter{Make: sel.Make})
	}

	v := View{
		Selection: sel,
		Summary:   stats.Summarize(scope, sel.Filtered()),
		Types:     stats.Shares(stats.ByType(scope)),
		Years:     stats.YearDistribution(scope),
		Ranking:   deriveRanking(all, sel),
		Scatter:   deriveScatter(all),
		Grid:      deriveGrid(all, scope, sel),
	}
	return v
}

func deriveRanking(all []record.Record, sel Selection) Ranking {
	ranked := stats.FilterMakes(stats.TopN(stats.ByMake(all), stats.All), sel.MakeSearch)
	if sel.ViewSize > 0 && len(ranked) > sel.ViewSize {
		ranked = ranked[:sel.ViewSize]
	}
	return Ranking{
		Entries:  ranked,
		List:     len(ranked) > MaxChartBars,
		Selected: sel.Make,
	}
}

func deriveScatter(all []record.Record) ScatterView {
	pts := stats.Scatter(all)
	bev, phev := stats.SplitByType(pts)
	sv := ScatterView{BEV: bev, PHEV: phev, Points: len(pts)}
	if r, ok := stats.Correlation(pts); ok {
		sv.Correlation = &r
	}
	return sv
}

// DeriveGrid computes only the grid part of Derive.
func DeriveGrid(ds *record.Dataset, sel Selection) GridView {
	all := ds.Records()
	scope := all
	if sel.Filtered() {
		scope = grid.Apply(all, grid.Filter{Make: sel.Make})
	}
	return deriveGrid(all, scope, sel)
}

func deriveGrid(all, scope []record.Record, sel Selection) GridView {
	filtered := grid.Apply(scope, sel.Grid.Filter())
	var sorted []record.Record
	gv := GridView{Columns: grid.DefaultColumns}
	if sel.Sort.Column != "" {
		sc := sel.Sort
		sorted = grid.Sort(filtered, sc)
		gv.Sort = &sc
	} else {
		sorted = filtered
	}
	gv.Rows = make([]Row, len(sorted))
	for i, r := range sorted {
		gv.Rows[i] = Row{ID: grid.RowID(r, r.Seq), Record: r}
	}
	gv.Makes, gv.Types = grid.Options(all)
	return gv
}
