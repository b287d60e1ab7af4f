package grid

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/zalepa/evpop/record"
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func fixture() []record.Record {
	return []record.Record{
		{VIN: "5YJ3E1EA7K", Make: "TESLA", Model: "MODEL 3", ModelYear: intp(2019), VehicleType: record.TypeBEV, ElectricRange: floatp(220)},
		{VIN: "1N4AZ0CP5D", Make: "NISSAN", Model: "LEAF", ModelYear: intp(2013), VehicleType: record.TypeBEV, ElectricRange: floatp(75)},
		{VIN: "5YJYGDEE1L", Make: "TESLA", Model: "MODEL Y", ModelYear: intp(2020), VehicleType: record.TypeBEV, ElectricRange: floatp(291)},
		{VIN: "1FMCU0E1XM", Make: "FORD", Model: "ESCAPE", ModelYear: nil, VehicleType: record.TypePHEV, ElectricRange: floatp(38)},
		{VIN: "A.BXC", Make: "ODD", Model: "A.B*C", ModelYear: intp(2017), VehicleType: record.TypeUnknown},
		{VIN: "TESLA0001", Make: "TESLA", Model: "MODEL S", ModelYear: intp(2016), VehicleType: record.TypeBEV, ElectricRange: floatp(210)},
	}
}

func vins(rs []record.Record) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.VIN
	}
	return out
}

func TestApplyPredicates(t *testing.T) {
	rows := fixture()

	assert.Len(t, Apply(rows, Filter{}), len(rows))
	assert.Equal(t, []string{"5YJ3E1EA7K", "5YJYGDEE1L", "TESLA0001"}, vins(Apply(rows, Filter{Make: "TESLA"})))
	assert.Equal(t, []string{"1FMCU0E1XM"}, vins(Apply(rows, Filter{VehicleType: record.TypePHEV})))

	// The record without a year passes the bounds.
	got := Apply(rows, Filter{YearMin: floatp(2018), YearMax: floatp(2019)})
	assert.Equal(t, []string{"5YJ3E1EA7K", "1FMCU0E1XM"}, vins(got))
}

func TestApplyCommutes(t *testing.T) {
	rows := fixture()
	mk := Filter{Make: "TESLA"}
	yr := Filter{YearMin: floatp(2018)}
	both := Filter{Make: "TESLA", YearMin: floatp(2018)}

	a := Apply(Apply(rows, mk), yr)
	b := Apply(Apply(rows, yr), mk)
	c := Apply(rows, both)
	assert.Equal(t, c, a)
	assert.Equal(t, c, b)
	assert.Equal(t, []string{"5YJ3E1EA7K", "5YJYGDEE1L"}, vins(c))
}

func TestFilterIsZero(t *testing.T) {
	assert.True(t, Filter{}.IsZero())
	assert.True(t, Filter{Search: "   "}.IsZero())
	assert.False(t, Filter{Make: "TESLA"}.IsZero())
	assert.False(t, Filter{YearMax: floatp(2020)}.IsZero())

	rows := fixture()
	got := Apply(rows, Filter{Search: " "})
	require.Len(t, got, len(rows))
	got[0].Make = "CHANGED"
	assert.Equal(t, "TESLA", rows[0].Make, "zero filter still returns a new slice")
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	rows := fixture()
	before := vins(rows)
	_ = Apply(rows, Filter{Make: "FORD", Search: "escape"})
	assert.Equal(t, before, vins(rows))
}

func TestSearchIsLiteralAndCaseInsensitive(t *testing.T) {
	rows := fixture()

	got := Apply(rows, Filter{Search: "a.b*c"})
	assert.Equal(t, []string{"A.BXC"}, vins(got), "metacharacters must match literally")

	assert.False(t, MatchesSearch(rows[0], "A.B*C"))
	assert.True(t, MatchesSearch(rows[0], "model 3"))
	assert.True(t, MatchesSearch(rows[0], "2019"))
	assert.True(t, MatchesSearch(rows[0], "battery electric"))
	assert.True(t, MatchesSearch(rows[0], "   "))

	for _, term := range []string{"(", "[", "\\", "*", "+?", "${}", "|", "^$", "a{2,"} {
		assert.NotPanics(t, func() { MatchesSearch(rows[0], term) }, term)
	}
	assert.Equal(t, `A\.B\*C`, EscapeSearch("A.B*C"))
}

func TestFallbackMatch(t *testing.T) {
	r := fixture()[0]
	m := matcher{term: "tesla model"}
	assert.True(t, m.match(r), "nil regexp falls back to make+model substring")
	m = matcher{term: "5yj3"}
	assert.False(t, m.match(r), "fallback only looks at make and model")
}

func TestParseYearBound(t *testing.T) {
	assert.Equal(t, floatp(2018), ParseYearBound(" 2018 "))
	assert.Equal(t, floatp(2018.5), ParseYearBound("2018.5"))
	assert.Nil(t, ParseYearBound(""))
	assert.Nil(t, ParseYearBound("twenty"))
	assert.Nil(t, ParseYearBound("NaN"))

	// A fractional lower bound excludes the year below it.
	got := Apply(fixture(), Filter{YearMin: ParseYearBound("2019.5")})
	assert.Equal(t, []string{"5YJYGDEE1L", "1FMCU0E1XM"}, vins(got))
}

func TestSortNumericAndText(t *testing.T) {
	rows := fixture()

	byRange := Sort(rows, SortColumn{Column: record.ColRange, Direction: Asc})
	// "" (absent range) sorts before numbers as text.
	assert.Equal(t, []string{"A.BXC", "1FMCU0E1XM", "1N4AZ0CP5D", "TESLA0001", "5YJ3E1EA7K", "5YJYGDEE1L"}, vins(byRange))

	byRangeDesc := Sort(rows, SortColumn{Column: record.ColRange, Direction: Desc})
	assert.Equal(t, "5YJYGDEE1L", byRangeDesc[0].VIN)

	byModel := Sort(rows, SortColumn{Column: record.ColModel, Direction: Asc})
	assert.Equal(t, []string{"A.B*C", "ESCAPE", "LEAF", "MODEL 3", "MODEL S", "MODEL Y"}, models(byModel))
}

func models(rs []record.Record) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Model
	}
	return out
}

func TestSortStableAndFirstColumnWins(t *testing.T) {
	rows := []record.Record{
		{VIN: "a", Make: "X", ModelYear: intp(1)},
		{VIN: "b", Make: "x", ModelYear: intp(1)},
		{VIN: "c", Make: "A", ModelYear: intp(0)},
	}
	got := Sort(rows,
		SortColumn{Column: record.ColModelYear, Direction: Asc},
		SortColumn{Column: record.ColVIN, Direction: Desc},
	)
	assert.Equal(t, []string{"c", "a", "b"}, vins(got))

	got = Sort(rows, SortColumn{Column: record.ColMake, Direction: Desc})
	assert.Equal(t, []string{"a", "b", "c"}, vins(got), "case-insensitive ties keep input order")

	assert.Equal(t, []string{"a", "b", "c"}, vins(rows), "input untouched")
	assert.Equal(t, vins(rows), vins(Sort(rows)))
}

func TestParseDirection(t *testing.T) {
	assert.Equal(t, Desc, ParseDirection("desc"))
	assert.Equal(t, Desc, ParseDirection(" DESC"))
	assert.Equal(t, Asc, ParseDirection("ASC"))
	assert.Equal(t, Asc, ParseDirection("sideways"))
}

func TestWriteCSV(t *testing.T) {
	rows := []record.Record{
		{VIN: "V1", Make: `foo"bar`, ModelYear: intp(2020), ElectricRange: floatp(12.5)},
		{VIN: "V2", Make: "FORD"},
	}
	cols := []Column{
		{Key: record.ColVIN, Name: "VIN"},
		{Key: record.ColMake, Name: `The "Make"`},
		{Key: record.ColModelYear},
		{Key: record.ColRange, Name: "Range"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows, cols))

	lines := strings.Split(buf.String(), "\n")
	require.Len(t, lines, len(rows)+1)
	assert.Equal(t, `"VIN","The ""Make""","Model Year","Range"`, lines[0])
	assert.Equal(t, `"V1","foo""bar","2020","12.5"`, lines[1])
	assert.Equal(t, `"V2","FORD","",""`, lines[2])

	buf.Reset()
	require.NoError(t, WriteCSV(&buf, nil, cols))
	assert.Equal(t, 1, len(strings.Split(buf.String(), "\n")))
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, fixture(), DefaultColumns))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(xlsxSheet)
	require.NoError(t, err)
	require.Len(t, rows, len(fixture())+1)
	assert.Equal(t, "VIN", rows[0][0])
	assert.Equal(t, "Range (mi)", rows[0][5])
	assert.Equal(t, "TESLA", rows[1][1])
	assert.Equal(t, "220", rows[1][5])
}

func TestLookupColumn(t *testing.T) {
	c, err := LookupColumn("range (mi)")
	require.NoError(t, err)
	assert.Equal(t, record.ColRange, c.Key)

	c, err = LookupColumn("Model Year")
	require.NoError(t, err)
	assert.Equal(t, "Year", c.Name)

	_, err = LookupColumn("color")
	assert.True(t, errors.Is(err, ErrUnknownColumn))
}

func TestExportFilename(t *testing.T) {
	ts := time.UnixMilli(1700000000123)
	assert.Equal(t, "evs_filtered_1700000000123.csv", ExportFilename(ts, "csv"))
	assert.Equal(t, "evs_filtered_1700000000123.xlsx", ExportFilename(ts, ".xlsx"))
}

func TestOptionsAndRowID(t *testing.T) {
	makes, types := Options(append(fixture(), record.Record{}))
	assert.Equal(t, []string{"FORD", "NISSAN", "ODD", "TESLA"}, makes)
	assert.Equal(t, []string{record.TypeBEV, record.TypePHEV, record.TypeUnknown}, types)

	assert.Equal(t, "5YJ3E1EA7K-TESLA-MODEL_3-2019-0", RowID(fixture()[0], 0))
	assert.Equal(t, "no-vin-no-make-no-model-no-year-7", RowID(record.Record{}, 7))
}
