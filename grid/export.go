package grid

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/zalepa/evpop/record"
)

// ErrUnknownColumn is returned when a column key is not part of the grid.
var ErrUnknownColumn = errors.New("unknown column")

// Column is one grid column: the record field key and its display name.
type Column struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

func (c Column) title() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Key
}

// DefaultColumns is the grid layout shown and exported by default.
var DefaultColumns = []Column{
	{Key: record.ColVIN, Name: "VIN"},
	{Key: record.ColMake, Name: "Make"},
	{Key: record.ColModel, Name: "Model"},
	{Key: record.ColModelYear, Name: "Year"},
	{Key: record.ColType, Name: "Type"},
	{Key: record.ColRange, Name: "Range (mi)"},
	{Key: record.ColBaseMSRP, Name: "MSRP"},
	{Key: record.ColState, Name: "State"},
	{Key: record.ColCity, Name: "City"},
}

// LookupColumn finds a default column by key or display name, ignoring case.
func LookupColumn(name string) (Column, error) {
	for _, c := range DefaultColumns {
		if strings.EqualFold(c.Key, name) || strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return Column{}, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
}

// WriteCSV writes a header of quoted display names followed by one fully
// quoted line per row, in row order. Embedded quotes are doubled and absent
// values become "". Lines are separated by "\n" with no trailing newline, so
// n rows always give n+1 lines.
func WriteCSV(w io.Writer, rows []record.Record, cols []Column) error {
	var sb strings.Builder
	for i, c := range cols {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(quote(c.title()))
	}
	for _, r := range rows {
		sb.WriteByte('\n')
		for i, c := range cols {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(quote(CellText(r, c.Key)))
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// ExportFilename names a download after the moment it was produced.
func ExportFilename(now time.Time, ext string) string {
	return fmt.Sprintf("evs_filtered_%d.%s", now.UnixMilli(), strings.TrimPrefix(ext, "."))
}

const xlsxSheet = "EVs"

// WriteXLSX writes the same table as WriteCSV into a single-sheet workbook.
// Numeric fields are stored as numbers; absent values leave the cell empty.
func WriteXLSX(w io.Writer, rows []record.Record, cols []Column) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for i, c := range cols {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(xlsxSheet, cell, c.title()); err != nil {
			return fmt.Errorf("header %s: %w", c.Key, err)
		}
	}
	for ri, r := range rows {
		for ci, c := range cols {
			v, ok := r.Value(c.Key)
			if !ok || v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(ci+1, ri+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(xlsxSheet, cell, v); err != nil {
				return fmt.Errorf("row %d %s: %w", ri+1, c.Key, err)
			}
		}
	}
	slog.Debug("xlsx export", slog.Int("rows", len(rows)), slog.Int("columns", len(cols)))
	return f.Write(w)
}
