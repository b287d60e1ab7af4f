// Package report renders a derived dashboard view as a printable PDF and
// checks the result.
package report

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"

	"github.com/zalepa/evpop/dashboard"
	"github.com/zalepa/evpop/stats"
)

const (
	pageWidth  = 8.5 * vg.Inch
	pageHeight = 11 * vg.Inch
	pdfMargin  = 0.75 * vg.Inch

	listRowHeight = 0.22 * vg.Inch
)

var (
	chartBlue   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	chartOrange = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	chartGray   = color.Gray{Y: 100}
)

// WriteFile renders v to a new PDF at path.
func WriteFile(path, title string, v dashboard.View) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, title, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write renders v as a multi-page PDF: the KPI summary with the type split,
// the makes ranking, the model year distribution and the range/price scatter.
func Write(w io.Writer, title string, v dashboard.View) error {
	title = pdfSafe(title)
	if v.Selection.Filtered() {
		title += " - " + v.Selection.Make
	}

	c := vgpdf.New(pageWidth, pageHeight)
	if err := drawSummaryPage(c, title, v); err != nil {
		return fmt.Errorf("summary page: %w", err)
	}

	c.NextPage()
	if v.Ranking.List {
		drawRankingList(c, "Vehicles by Make", v.Ranking.Entries)
	} else if err := drawRankingPage(c, "Vehicles by Make", v.Ranking.Entries); err != nil {
		return fmt.Errorf("ranking page: %w", err)
	}

	c.NextPage()
	if err := drawYearPage(c, "Vehicles by Model Year", v.Years); err != nil {
		return fmt.Errorf("year page: %w", err)
	}

	c.NextPage()
	if err := drawScatterPage(c, "Electric Range vs Base MSRP", v.Scatter); err != nil {
		return fmt.Errorf("scatter page: %w", err)
	}

	if _, err := c.WriteTo(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// pdfSafe replaces dashes the embedded Liberation font has no glyph for.
func pdfSafe(s string) string {
	s = strings.ReplaceAll(s, "\u2014", "-")
	return strings.ReplaceAll(s, "\u2013", "-")
}

func pageArea(c *vgpdf.Canvas) draw.Canvas {
	return draw.Crop(draw.New(c), pdfMargin, -pdfMargin, pdfMargin, -pdfMargin)
}

func drawSummaryPage(c *vgpdf.Canvas, title string, v dashboard.View) error {
	area := pageArea(c)
	usableW := pageWidth - 2*pdfMargin
	y := area.Max.Y - vg.Points(14)
	fillText(area, title, vg.Points(14), area.Min.X, y, color.Black)

	s := v.Summary
	kpis := [][2]string{
		{"Total Vehicles", FormatCount(s.Total)},
		{"Battery Electric (BEV)", FormatCount(s.BEV)},
		{"Plug-in Hybrid (PHEV)", FormatCount(s.PHEV)},
		{s.TopMakeLabel, fmt.Sprintf("%s (%s)", s.TopMake.Key, FormatCount(s.TopMake.Count))},
		{"Average Electric Range", s.AvgRangeText},
	}
	y -= 0.5 * vg.Inch
	for _, kv := range kpis {
		fillText(area, kv[0], vg.Points(10), area.Min.X, y, chartGray)
		fillText(area, kv[1], vg.Points(12), area.Min.X+2.6*vg.Inch, y, color.Black)
		y -= 0.3 * vg.Inch
	}
	strokeHLine(area, area.Min.X, area.Min.X+usableW, y, color.Gray{Y: 180})

	if len(v.Types) == 0 {
		fillText(area, "(no data)", vg.Points(10), area.Min.X, y-0.4*vg.Inch, chartGray)
		return nil
	}

	vals := make(plotter.Values, len(v.Types))
	names := make([]string, len(v.Types))
	for i, sh := range v.Types {
		vals[i] = sh.Percent
		names[i] = shortType(sh.Key) + " " + strconv.FormatFloat(sh.Percent, 'f', 1, 64) + "%"
	}
	p := plot.New()
	p.Title.Text = "Vehicle Type Share"
	p.Title.TextStyle.Font.Size = vg.Points(12)
	p.X.Label.Text = "% of vehicles"
	bars, err := plotter.NewBarChart(vals, vg.Points(28))
	if err != nil {
		return err
	}
	bars.Horizontal = true
	bars.Color = chartBlue
	bars.LineStyle.Width = 0
	p.Add(bars, plotter.NewGrid())
	p.NominalY(names...)
	p.X.Min = 0

	chart := area
	chart.Max.Y = y - 0.2*vg.Inch
	p.Draw(chart)
	return nil
}

func shortType(t string) string {
	if i := strings.LastIndex(t, "("); i >= 0 && strings.HasSuffix(t, ")") {
		return t[i+1 : len(t)-1]
	}
	return t
}

func drawRankingPage(c *vgpdf.Canvas, title string, entries []stats.Entry) error {
	area := pageArea(c)
	if len(entries) == 0 {
		fillText(area, title, vg.Points(14), area.Min.X, area.Max.Y-vg.Points(14), color.Black)
		fillText(area, "(no data)", vg.Points(10), area.Min.X, area.Max.Y-0.5*vg.Inch, chartGray)
		return nil
	}

	// Largest at the top: the y axis grows upward.
	vals := make(plotter.Values, len(entries))
	names := make([]string, len(entries))
	for i, e := range entries {
		j := len(entries) - 1 - i
		vals[j] = float64(e.Count)
		names[j] = e.Key
	}
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(12)
	p.X.Tick.Marker = compactTicks{}
	bars, err := plotter.NewBarChart(vals, barWidth(len(entries)))
	if err != nil {
		return err
	}
	bars.Horizontal = true
	bars.Color = chartBlue
	bars.LineStyle.Width = 0
	p.Add(bars, plotter.NewGrid())
	p.NominalY(names...)
	p.X.Min = 0
	p.Draw(area)
	return nil
}

// barWidth shrinks bars so long rankings still fit one page.
func barWidth(n int) vg.Length {
	w := (pageHeight - 3*pdfMargin) / vg.Length(n+1) * 0.7
	return vg.Length(math.Min(float64(w), float64(vg.Points(24))))
}

// drawRankingList prints a ranking too long for a bar chart as text rows,
// continuing onto further pages as needed.
func drawRankingList(c *vgpdf.Canvas, title string, entries []stats.Entry) {
	page := 0
	for i := 0; i < len(entries) || page == 0; {
		if page > 0 {
			c.NextPage()
		}
		page++
		area := pageArea(c)
		y := area.Max.Y - vg.Points(14)
		heading := title
		if page > 1 {
			heading += " (continued)"
		}
		fillText(area, heading, vg.Points(14), area.Min.X, y, color.Black)
		y -= 0.4 * vg.Inch
		for ; i < len(entries) && y > area.Min.Y; i++ {
			e := entries[i]
			fillText(area, fmt.Sprintf("%d.", i+1), vg.Points(9), area.Min.X, y, chartGray)
			fillText(area, e.Key, vg.Points(9), area.Min.X+0.5*vg.Inch, y, color.Black)
			fillText(area, FormatCount(e.Count), vg.Points(9), area.Min.X+3.5*vg.Inch, y, color.Black)
			y -= listRowHeight
		}
	}
}

func drawYearPage(c *vgpdf.Canvas, title string, years []stats.YearCount) error {
	area := pageArea(c)
	if len(years) == 0 {
		fillText(area, title, vg.Points(14), area.Min.X, area.Max.Y-vg.Points(14), color.Black)
		fillText(area, "(no data)", vg.Points(10), area.Min.X, area.Max.Y-0.5*vg.Inch, chartGray)
		return nil
	}
	vals := make(plotter.Values, len(years))
	labels := make(yearTicks, len(years))
	for i, yc := range years {
		vals[i] = float64(yc.Count)
		labels[i] = strconv.Itoa(yc.Year)
	}

	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(12)
	bars, err := plotter.NewBarChart(vals, barWidth(len(years)))
	if err != nil {
		return err
	}
	bars.Color = chartBlue
	bars.LineStyle.Width = 0
	p.Add(bars, plotter.NewGrid())

	p.X.Tick.Marker = labels
	p.X.Min = -0.5
	p.X.Max = float64(len(years)) - 0.5
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	p.Y.Min = 0
	p.Y.Tick.Marker = compactTicks{}
	p.Draw(area)
	return nil
}

func drawScatterPage(c *vgpdf.Canvas, title string, sv dashboard.ScatterView) error {
	area := pageArea(c)
	if sv.Correlation != nil {
		title += fmt.Sprintf(" (r = %.2f)", *sv.Correlation)
	}
	if len(sv.BEV)+len(sv.PHEV) == 0 {
		fillText(area, title, vg.Points(14), area.Min.X, area.Max.Y-vg.Points(14), color.Black)
		fillText(area, "(no data)", vg.Points(10), area.Min.X, area.Max.Y-0.5*vg.Inch, chartGray)
		return nil
	}

	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(12)
	p.X.Label.Text = "Electric Range (mi)"
	p.Y.Label.Text = "Base MSRP ($)"
	p.Y.Tick.Marker = compactTicks{}
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	series := []struct {
		name string
		pts  []stats.Point
		clr  color.Color
	}{
		{"BEV", sv.BEV, chartBlue},
		{"PHEV", sv.PHEV, chartOrange},
	}
	for _, s := range series {
		if len(s.pts) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(s.pts))
		for i, pt := range s.pts {
			xys[i] = plotter.XY{X: pt.Range, Y: pt.Price}
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return err
		}
		sc.Color = s.clr
		sc.Radius = vg.Points(2.5)
		sc.Shape = draw.CircleGlyph{}
		p.Add(sc)
		p.Legend.Add(s.name, sc)
	}
	p.Draw(area)
	return nil
}

type yearTicks []string

func (yt yearTicks) Ticks(min, max float64) []plot.Tick {
	n := len(yt)
	step := 1
	if n > 20 {
		step = (n + 19) / 20
	}
	ticks := make([]plot.Tick, 0, n)
	for i := 0; i < n; i++ {
		t := plot.Tick{Value: float64(i)}
		if i%step == 0 {
			t.Label = yt[i]
		}
		ticks = append(ticks, t)
	}
	return ticks
}

type compactTicks struct{}

func (compactTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = FormatCompact(ticks[i].Value)
		}
	}
	return ticks
}

func fillText(c draw.Canvas, txt string, size vg.Length, x, y vg.Length, clr color.Color) {
	sty := draw.TextStyle{
		Color:   clr,
		Font:    plot.DefaultFont,
		Handler: plot.DefaultTextHandler,
	}
	sty.Font.Size = size
	c.FillText(sty, vg.Point{X: x, Y: y}, pdfSafe(txt))
}

func strokeHLine(c draw.Canvas, x0, x1, y vg.Length, clr color.Color) {
	c.StrokeLine2(draw.LineStyle{
		Color: clr,
		Width: vg.Points(0.5),
	}, x0, y, x1, y)
}
