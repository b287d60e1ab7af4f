package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zalepa/evpop/dashboard"
	"github.com/zalepa/evpop/report"
	"github.com/zalepa/evpop/stats"
)

type summaryOptions struct {
	make   string
	top    string
	search string
	format string
}

func newSummaryCmd(a *app) *cobra.Command {
	o := &summaryOptions{}
	c := &cobra.Command{
		Use:   "summary",
		Short: "Print KPIs, the type split, the makes ranking and the model year trend",
		Example: `  evpop summary
  evpop summary --make TESLA
  evpop summary --top all --search mer
  evpop summary --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := o.selection(a.cfg.DefaultView)
			if err != nil {
				return err
			}
			ds, err := a.loadDataset(cmd.Context())
			if err != nil {
				return err
			}
			v := dashboard.Derive(ds, sel)
			return writeSummary(cmd.OutOrStdout(), o.format, v)
		},
	}
	f := c.Flags()
	f.StringVar(&o.make, "make", "", "restrict the header figures to one make, matched exactly")
	f.StringVar(&o.top, "top", "", "ranking size: a number or \"all\" (default from config)")
	f.StringVar(&o.search, "search", "", "only rank makes containing this text")
	f.StringVar(&o.format, "format", "text", "output format: text, json or yaml")
	return c
}

func (o *summaryOptions) selection(defaultView int) (dashboard.Selection, error) {
	size, err := parseViewSize(o.top, defaultView)
	if err != nil {
		return dashboard.Selection{}, err
	}
	return dashboard.NewSelection().
		WithMake(strings.TrimSpace(o.make)).
		WithViewSize(size).
		WithMakeSearch(o.search), nil
}

// parseViewSize reads a ranking size: empty for def, "all" or a positive
// number.
func parseViewSize(s string, def int) (int, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return def, nil
	case strings.EqualFold(s, "all"):
		return dashboard.ViewAll, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid --top %q: want a positive number or \"all\"", s)
	}
	return n, nil
}

// summaryDoc is the machine-readable summary; the grid is left out.
type summaryDoc struct {
	Selection   dashboard.Selection `json:"selection" yaml:"selection"`
	Summary     stats.Summary       `json:"summary" yaml:"summary"`
	Types       []stats.Share       `json:"types" yaml:"types"`
	Years       []stats.YearCount   `json:"years" yaml:"years"`
	Ranking     []stats.Entry       `json:"ranking" yaml:"ranking"`
	Points      int                 `json:"scatterPoints" yaml:"scatter_points"`
	Correlation *float64            `json:"correlation,omitempty" yaml:"correlation,omitempty"`
}

func writeSummary(w io.Writer, format string, v dashboard.View) error {
	doc := summaryDoc{
		Selection:   v.Selection,
		Summary:     v.Summary,
		Types:       v.Types,
		Years:       v.Years,
		Ranking:     v.Ranking.Entries,
		Points:      v.Scatter.Points,
		Correlation: v.Scatter.Correlation,
	}
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		renderSummary(w, v)
		return nil
	}
	return fmt.Errorf("invalid --format %q; valid options: text, json, yaml", format)
}

const barWidth = 30

func renderSummary(w io.Writer, v dashboard.View) {
	r := lipgloss.NewRenderer(w)
	title := r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	label := r.NewStyle().Foreground(lipgloss.Color("#6272A4"))
	bar := r.NewStyle().Foreground(lipgloss.Color("#04B575"))
	selected := r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFB86C"))

	heading := "EV Population Summary"
	if v.Selection.Filtered() {
		heading += " - " + v.Selection.Make
	}
	fmt.Fprintln(w, title.Render(heading))
	fmt.Fprintln(w)

	s := v.Summary
	kpi := func(name, value string) {
		fmt.Fprintf(w, "%s %s\n", label.Render(fmt.Sprintf("%-22s", name)), value)
	}
	kpi("Total Vehicles", report.FormatCount(s.Total))
	kpi("Battery Electric", report.FormatCount(s.BEV))
	kpi("Plug-in Hybrid", report.FormatCount(s.PHEV))
	kpi(s.TopMakeLabel, fmt.Sprintf("%s (%s)", s.TopMake.Key, report.FormatCount(s.TopMake.Count)))
	kpi("Average Electric Range", s.AvgRangeText)

	fmt.Fprintln(w)
	fmt.Fprintln(w, title.Render("Vehicle Types"))
	for _, sh := range v.Types {
		fmt.Fprintf(w, "  %-40s %5.1f%%  %s\n", sh.Key, sh.Percent, bar.Render(report.Bar(int(sh.Percent*10), 1000, barWidth)))
	}

	fmt.Fprintln(w)
	rankTitle := "Makes"
	if n := len(v.Ranking.Entries); v.Selection.ViewSize != dashboard.ViewAll {
		rankTitle = fmt.Sprintf("Top %d Makes", n)
	}
	if v.Selection.MakeSearch != "" {
		rankTitle += fmt.Sprintf(" matching %q", v.Selection.MakeSearch)
	}
	fmt.Fprintln(w, title.Render(rankTitle))
	if len(v.Ranking.Entries) == 0 {
		fmt.Fprintln(w, "  (no data)")
	}
	top := 0
	if len(v.Ranking.Entries) > 0 {
		top = v.Ranking.Entries[0].Count
	}
	for i, e := range v.Ranking.Entries {
		name := fmt.Sprintf("%-20s", e.Key)
		if e.Key == v.Ranking.Selected {
			name = selected.Render(name)
		}
		line := fmt.Sprintf("  %3d. %s %10s", i+1, name, report.FormatCount(e.Count))
		if !v.Ranking.List {
			line += "  " + bar.Render(report.Bar(e.Count, top, barWidth))
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, title.Render("Model Years"))
	if len(v.Years) == 0 {
		fmt.Fprintln(w, "  (no data)")
	} else {
		vals := make([]float64, len(v.Years))
		for i, y := range v.Years {
			vals[i] = float64(y.Count)
		}
		first, last := v.Years[0], v.Years[len(v.Years)-1]
		fmt.Fprintf(w, "  %d %s %d\n", first.Year, bar.Render(report.Sparkline(vals)), last.Year)
	}

	if v.Scatter.Correlation != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s %.2f over %s vehicles with range and MSRP\n",
			label.Render("Range/MSRP correlation"), *v.Scatter.Correlation, report.FormatCount(v.Scatter.Points))
	}
}
