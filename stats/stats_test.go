package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalepa/evpop/record"
)

func rec(mk, typ string, year int, rng, msrp float64) record.Record {
	r := record.Record{Make: mk, Model: mk + "-M", VehicleType: typ}
	if year != 0 {
		r.ModelYear = &year
	}
	r.ElectricRange = &rng
	r.BaseMSRP = &msrp
	return r
}

func rangeOnly(v *float64) record.Record {
	return record.Record{Make: "X", ElectricRange: v}
}

func f(v float64) *float64 { return &v }

func TestGroupByExclusionIsCounted(t *testing.T) {
	records := []record.Record{
		rec("TESLA", record.TypeBEV, 2020, 200, 40000),
		rec("", "", 0, 0, 0),
		rec("FORD", record.TypePHEV, 2020, 30, 35000),
		rec("TESLA", record.TypeBEV, 0, 0, 0),
	}

	years := ByYear(records)
	assert.Equal(t, 2, years.Total())
	assert.Equal(t, 2, years.Excluded())
	assert.Equal(t, len(records), years.Total()+years.Excluded())
	assert.Equal(t, 2, years.Get("2020"))

	makes := ByMake(records)
	assert.Equal(t, len(records), makes.Total())
	assert.Equal(t, 0, makes.Excluded())
	assert.Equal(t, 1, makes.Get(Unknown))

	types := ByType(records)
	assert.Equal(t, len(records), types.Total())
	assert.Equal(t, 1, types.Get(Unknown))
}

func TestTopNStableTies(t *testing.T) {
	var c Counts
	for _, k := range []string{"KIA", "BMW", "TESLA", "BMW", "KIA", "TESLA", "TESLA", "AUDI"} {
		c.Add(k)
	}
	got := TopN(c, All)
	want := []Entry{{"TESLA", 3}, {"KIA", 2}, {"BMW", 2}, {"AUDI", 1}}
	assert.Equal(t, want, got)

	assert.Equal(t, want[:2], TopN(c, 2))
	assert.Equal(t, want, TopN(c, 10))
	assert.Empty(t, TopN(Counts{}, 5))
}

func TestAverageRange(t *testing.T) {
	records := []record.Record{rangeOnly(f(0)), rangeOnly(f(150)), rangeOnly(nil), rangeOnly(f(300))}
	avg, ok := AverageRange(records)
	require.True(t, ok)
	assert.Equal(t, 225, avg)

	_, ok = AverageRange([]record.Record{rangeOnly(f(0)), rangeOnly(nil)})
	assert.False(t, ok)
	assert.Equal(t, "N/A", FormatRange(AverageRange(nil)))

	avg, ok = AverageRange([]record.Record{rangeOnly(f(100)), rangeOnly(f(101))})
	require.True(t, ok)
	assert.Equal(t, 101, avg, "100.5 rounds up")
	assert.Equal(t, "101 mi", FormatRange(avg, ok))
}

func TestScatter(t *testing.T) {
	records := []record.Record{
		rec("TESLA", record.TypeBEV, 2020, 200, 40000),
		rec("TESLA", record.TypeBEV, 2021, 0, 0),
		rec("FORD", record.TypePHEV, 2020, 30, 35000),
		rec("X", "", 2020, 10, 0),
		{Make: "Y", VehicleType: "Other", ElectricRange: f(50), BaseMSRP: f(1)},
	}
	pts := Scatter(records)
	require.Len(t, pts, 3)
	assert.Equal(t, Point{Range: 200, Price: 40000, Model: "TESLA-M", Type: record.TypeBEV}, pts[0])

	bev, phev := SplitByType(pts)
	assert.Len(t, bev, 1)
	assert.Len(t, phev, 1)
}

func TestCorrelation(t *testing.T) {
	pts := []Point{{Range: 1, Price: 10}, {Range: 2, Price: 20}, {Range: 3, Price: 30}}
	r, ok := Correlation(pts)
	require.True(t, ok)
	assert.InDelta(t, 1.0, r, 1e-9)

	_, ok = Correlation(pts[:1])
	assert.False(t, ok)

	_, ok = Correlation([]Point{{Range: 1, Price: 5}, {Range: 2, Price: 5}})
	assert.False(t, ok, "constant price has no correlation")
}

func TestShares(t *testing.T) {
	var c Counts
	c.Add(record.TypeBEV)
	c.Add(record.TypeBEV)
	c.Add(record.TypePHEV)
	got := Shares(c)
	assert.Equal(t, []Share{
		{Key: record.TypeBEV, Count: 2, Percent: 66.7},
		{Key: record.TypePHEV, Count: 1, Percent: 33.3},
	}, got)
	assert.Empty(t, Shares(Counts{}))
}

func TestYearDistributionAscending(t *testing.T) {
	records := []record.Record{
		rec("A", "", 2022, 0, 0),
		rec("A", "", 2018, 0, 0),
		rec("A", "", 0, 0, 0),
		rec("A", "", 2022, 0, 0),
	}
	assert.Equal(t, []YearCount{{2018, 1}, {2022, 2}}, YearDistribution(records))
}

func TestFilterMakes(t *testing.T) {
	entries := []Entry{{"TESLA", 3}, {"KIA", 2}, {"MERCEDES-BENZ", 1}}
	assert.Equal(t, entries, FilterMakes(entries, "  "))
	assert.Equal(t, []Entry{{"TESLA", 3}}, FilterMakes(entries, "tes"))
	assert.Equal(t, []Entry{{"MERCEDES-BENZ", 1}}, FilterMakes(entries, "Benz"))
	assert.Empty(t, FilterMakes(entries, "zzz"))
}

func TestSummarize(t *testing.T) {
	records := []record.Record{
		rec("TESLA", record.TypeBEV, 2020, 200, 40000),
		rec("TESLA", record.TypeBEV, 2021, 0, 0),
		rec("FORD", record.TypePHEV, 2020, 30, 35000),
	}
	s := Summarize(records, false)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.BEV)
	assert.Equal(t, 1, s.PHEV)
	assert.Equal(t, "Top Make", s.TopMakeLabel)
	assert.Equal(t, Entry{"TESLA", 2}, s.TopMake)
	require.NotNil(t, s.AvgRange)
	assert.Equal(t, 115, *s.AvgRange)

	empty := Summarize(nil, true)
	assert.Equal(t, "Selected Make", empty.TopMakeLabel)
	assert.Equal(t, Entry{Key: "-"}, empty.TopMake)
	assert.Nil(t, empty.AvgRange)
	assert.Equal(t, "N/A", empty.AvgRangeText)
}
