package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/zalepa/evpop/dashboard"
	"github.com/zalepa/evpop/grid"
	"github.com/zalepa/evpop/record"
)

type gridOptions struct {
	make    string
	vtype   string
	yearMin string
	yearMax string
	query   string
	sort    string
	desc    bool
	limit   int
	out     string
}

func newGridCmd(a *app) *cobra.Command {
	o := &gridOptions{}
	c := &cobra.Command{
		Use:   "grid",
		Short: "List, filter, sort and export vehicle records",
		Example: `  evpop grid --make TESLA --year-min 2020 --sort "Electric Range" --desc
  evpop grid --q "model 3" --limit 0
  evpop grid --type "Plug-in Hybrid Electric Vehicle (PHEV)" --out phev.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := o.selection()
			if err != nil {
				return err
			}
			ds, err := a.loadDataset(cmd.Context())
			if err != nil {
				return err
			}
			gv := dashboard.Derive(ds, sel).Grid
			if o.out != "" {
				if err := exportGrid(o.out, gv.Records()); err != nil {
					return err
				}
				a.logger.Info("grid exported", "path", o.out, "rows", len(gv.Rows))
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", len(gv.Rows), o.out)
				return nil
			}
			renderGrid(cmd.OutOrStdout(), gv, o.limit)
			return nil
		},
	}
	f := c.Flags()
	f.StringVar(&o.make, "make", "", "exact make")
	f.StringVar(&o.vtype, "type", "", "exact electric vehicle type")
	f.StringVar(&o.yearMin, "year-min", "", "lowest model year, inclusive")
	f.StringVar(&o.yearMax, "year-max", "", "highest model year, inclusive")
	f.StringVarP(&o.query, "q", "q", "", "case-insensitive text search over VIN, make, model, year and type")
	f.StringVar(&o.sort, "sort", "", "sort column (key or display name)")
	f.BoolVar(&o.desc, "desc", false, "sort descending")
	f.IntVar(&o.limit, "limit", 50, "rows to print; 0 prints all")
	f.StringVarP(&o.out, "out", "o", "", "write the rows to a .csv or .xlsx file instead of printing")
	return c
}

func (o *gridOptions) selection() (dashboard.Selection, error) {
	sel := dashboard.NewSelection().WithGrid(dashboard.GridFields{
		Make:        strings.TrimSpace(o.make),
		VehicleType: o.vtype,
		YearMin:     o.yearMin,
		YearMax:     o.yearMax,
		Search:      o.query,
	})
	if o.sort == "" {
		return sel, nil
	}
	col, err := grid.LookupColumn(o.sort)
	if err != nil {
		return sel, err
	}
	dir := grid.Asc
	if o.desc {
		dir = grid.Desc
	}
	return sel.WithSort(grid.SortColumn{Column: col.Key, Direction: dir}), nil
}

func exportGrid(path string, rows []record.Record) error {
	var write func(io.Writer, []record.Record, []grid.Column) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		write = grid.WriteCSV
	case ".xlsx":
		write = grid.WriteXLSX
	default:
		return fmt.Errorf("unsupported export %q: use .csv or .xlsx", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, rows, grid.DefaultColumns); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// renderGrid prints rows as an aligned text table, at most limit of them.
func renderGrid(w io.Writer, gv dashboard.GridView, limit int) {
	rows := gv.Rows
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	widths := make([]int, len(gv.Columns))
	cells := make([][]string, len(rows))
	for i, c := range gv.Columns {
		widths[i] = utf8.RuneCountInString(c.Name)
	}
	for ri, r := range rows {
		cells[ri] = make([]string, len(gv.Columns))
		for ci, c := range gv.Columns {
			s := grid.CellText(r.Record, c.Key)
			cells[ri][ci] = s
			if n := utf8.RuneCountInString(s); n > widths[ci] {
				widths[ci] = n
			}
		}
	}

	line := func(vals []string) {
		var sb strings.Builder
		for i, v := range vals {
			if i > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(v)
			if i < len(vals)-1 {
				sb.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(v)))
			}
		}
		fmt.Fprintln(w, sb.String())
	}

	header := make([]string, len(gv.Columns))
	total := 0
	for i, c := range gv.Columns {
		header[i] = c.Name
		total += widths[i] + 2
	}
	line(header)
	fmt.Fprintln(w, strings.Repeat("─", total-2))
	for _, row := range cells {
		line(row)
	}
	if len(rows) < len(gv.Rows) {
		fmt.Fprintf(w, "\n%d of %d rows shown (use --limit 0 for all)\n", len(rows), len(gv.Rows))
	} else {
		fmt.Fprintf(w, "\n%d rows\n", len(gv.Rows))
	}
}
