package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/zalepa/evpop/dashboard"
	"github.com/zalepa/evpop/record"
)

const sampleCSV = `VIN (1-10),County,City,State,Postal Code,Model Year,Make,Model,Electric Vehicle Type,Electric Range,Base MSRP
5YJ3E1EA7K,King,Seattle,WA,98122,2019,TESLA,MODEL 3,Battery Electric Vehicle (BEV),220,0
5YJYGDEE1L,King,Bellevue,WA,98004,2020,TESLA,MODEL Y,Battery Electric Vehicle (BEV),291,0
1FMCU0EZXN,Pierce,Tacoma,WA,98402,2022,FORD,ESCAPE,Plug-in Hybrid Electric Vehicle (PHEV),37,0
1N4AZ0CP5D,Thurston,Olympia,WA,98501,2013,NISSAN,LEAF,Battery Electric Vehicle (BEV),75,0
`

// run executes the root command with args against a fresh HOME and returns
// stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	data := filepath.Join(t.TempDir(), "evs.csv")
	require.NoError(t, os.WriteFile(data, []byte(sampleCSV), 0o644))

	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--data", data))
	err := root.Execute()
	return out.String(), err
}

func TestSummaryText(t *testing.T) {
	out, err := run(t, "summary")
	require.NoError(t, err)
	for _, want := range []string{
		"EV Population Summary",
		"Total Vehicles",
		"TESLA (2)",
		"Average Electric Range",
		"Top 3 Makes",
		"Model Years",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "\x1b[", "no styling without a terminal")
}

func TestSummaryJSONFiltered(t *testing.T) {
	out, err := run(t, "summary", "--make", "TESLA", "--format", "json", "--top", "1")
	require.NoError(t, err)

	var doc summaryDoc
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "TESLA", doc.Selection.Make)
	assert.Equal(t, 2, doc.Summary.Total)
	assert.Equal(t, "Selected Make", doc.Summary.TopMakeLabel)
	require.Len(t, doc.Ranking, 1)
	assert.Equal(t, "TESLA", doc.Ranking[0].Key)
}

func TestMakeFlagMatchesExactly(t *testing.T) {
	out, err := run(t, "summary", "--make", "tesla", "--format", "json")
	require.NoError(t, err)
	var doc summaryDoc
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "tesla", doc.Selection.Make)
	assert.Equal(t, 0, doc.Summary.Total)

	out, err = run(t, "grid", "--make", "tesla")
	require.NoError(t, err)
	assert.Contains(t, out, "0 rows")
}

func TestSummaryWithoutYearsKeepsCorrelation(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	ds := record.NewDataset([]record.Record{
		{Make: "A", VehicleType: record.TypeBEV, ElectricRange: f(100), BaseMSRP: f(30000)},
		{Make: "B", VehicleType: record.TypeBEV, ElectricRange: f(200), BaseMSRP: f(50000)},
		{Make: "C", VehicleType: record.TypePHEV, ElectricRange: f(300), BaseMSRP: f(60000)},
	})
	var buf bytes.Buffer
	renderSummary(&buf, dashboard.Derive(ds, dashboard.NewSelection()))

	out := buf.String()
	assert.Contains(t, out, "(no data)")
	assert.Contains(t, out, "Range/MSRP correlation")
	assert.Contains(t, out, "over 3 vehicles")
}

func TestSummaryYAML(t *testing.T) {
	out, err := run(t, "summary", "--format", "yaml", "--search", "iss")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Contains(t, doc, "summary")
	ranking, ok := doc["ranking"].([]any)
	require.True(t, ok)
	assert.Len(t, ranking, 1)
}

func TestSummaryBadFlags(t *testing.T) {
	_, err := run(t, "summary", "--format", "xml")
	assert.ErrorContains(t, err, "invalid --format")

	_, err = run(t, "summary", "--top", "-2")
	assert.ErrorContains(t, err, "invalid --top")
}

func TestParseViewSize(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"", 12, true},
		{"all", dashboard.ViewAll, true},
		{"ALL", dashboard.ViewAll, true},
		{"25", 25, true},
		{"0", 0, false},
		{"ten", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseViewSize(tt.in, 12)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGridTable(t *testing.T) {
	out, err := run(t, "grid", "--make", "TESLA", "--sort", "Electric Range", "--desc")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.True(t, strings.HasPrefix(lines[0], "VIN"))
	assert.True(t, strings.HasPrefix(lines[2], "5YJYGDEE1L"), "291 mi sorts first")
	assert.True(t, strings.HasPrefix(lines[3], "5YJ3E1EA7K"))
	assert.Equal(t, "2 rows", lines[len(lines)-1])

	out, err = run(t, "grid", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "1 of 4 rows shown")

	_, err = run(t, "grid", "--sort", "Colour")
	assert.Error(t, err)
}

func TestGridExport(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "out.csv")
	out, err := run(t, "grid", "--q", "model", "--out", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 2 rows")

	b, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Len(t, strings.Split(string(b), "\n"), 3)

	_, err = run(t, "grid", "--out", filepath.Join(dir, "out.txt"))
	assert.ErrorContains(t, err, "unsupported export")

	_, err = run(t, "grid", "--out", filepath.Join(dir, "out.xlsx"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "out.xlsx"))
	assert.NoError(t, err)
}

func TestReportCommand(t *testing.T) {
	pdf := filepath.Join(t.TempDir(), "evs.pdf")
	out, err := run(t, "report", "--pdf", pdf, "--make", "FORD")
	require.NoError(t, err)
	assert.Contains(t, out, "(4 pages)")

	_, err = run(t, "report")
	assert.ErrorContains(t, err, "--pdf is required")
}

func TestConfigShow(t *testing.T) {
	out, err := run(t, "config", "show", "--log-level", "debug")
	require.NoError(t, err)
	assert.Contains(t, out, "log_level: debug")
	assert.Contains(t, out, "addr:")
	assert.Contains(t, out, ":8080")
}

func TestConfigInitNewFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "evpop.yaml")
	out, err := run(t, "config", "init", "--config", p)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+p)

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(b), "debounce_ms: 500")
}

func TestMissingData(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"summary", "--data", filepath.Join(t.TempDir(), "nope.csv")})
	err := root.Execute()
	assert.ErrorContains(t, err, "error loading CSV")
}
