package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zalepa/evpop/dashboard"
	"github.com/zalepa/evpop/report"
)

const reportTitle = "EV Population"

func newReportCmd(a *app) *cobra.Command {
	var (
		pdfOut string
		mk     string
		top    string
		title  string
	)
	c := &cobra.Command{
		Use:   "report",
		Short: "Render the dashboard as a multi-page PDF",
		Example: `  evpop report --pdf evs.pdf
  evpop report --pdf tesla.pdf --make TESLA --top all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pdfOut == "" {
				return errors.New("--pdf is required")
			}
			size, err := parseViewSize(top, a.cfg.DefaultView)
			if err != nil {
				return err
			}
			ds, err := a.loadDataset(cmd.Context())
			if err != nil {
				return err
			}
			sel := dashboard.NewSelection().
				WithMake(strings.ToUpper(strings.TrimSpace(mk))).
				WithViewSize(size)
			if err := report.WriteFile(pdfOut, title, dashboard.Derive(ds, sel)); err != nil {
				return fmt.Errorf("writing PDF: %w", err)
			}

			info, err := report.InspectFile(pdfOut)
			if err != nil {
				return fmt.Errorf("checking %s: %w", pdfOut, err)
			}
			if blank := info.Blank(); len(blank) > 0 {
				a.logger.Warn("report has blank pages", "path", pdfOut, "pages", blank)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d pages)\n", pdfOut, info.PageCount())
			return nil
		},
	}
	f := c.Flags()
	f.StringVar(&pdfOut, "pdf", "", "output PDF file path")
	f.StringVar(&mk, "make", "", "restrict the header page to one make")
	f.StringVar(&top, "top", "", "ranking size: a number or \"all\" (default from config)")
	f.StringVar(&title, "title", reportTitle, "report title")
	return c
}
