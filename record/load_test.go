package record

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCSV = `VIN (1-10),County,City,State,Postal Code,Model Year,Make,Model,Electric Vehicle Type,Electric Range,Base MSRP
5YJ3E1EA7K,King,Seattle,WA,98122,2019,TESLA,MODEL 3,Battery Electric Vehicle (BEV),220,0
1N4AZ0CP5D,Kitsap,Bremerton,WA,98310,2013,NISSAN,LEAF,Battery Electric Vehicle (BEV),75,

WBY8P6C58K,King,Kent,WA,98031,not-a-year,BMW,I3,"Plug-in Hybrid Electric Vehicle (PHEV)",126,"$44,450"
`

func TestRead(t *testing.T) {
	records, err := Read(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3 (blank line skipped)", len(records))
	}

	assertEqual(t, "records[0].Make", records[0].Make, "TESLA")
	assertEqual(t, "records[0].Extra[County]", records[0].Extra["County"], "King")
	if records[1].BaseMSRP != nil {
		t.Errorf("records[1].BaseMSRP = %v, want nil", *records[1].BaseMSRP)
	}
	if records[2].ModelYear != nil {
		t.Errorf("records[2].ModelYear = %v, want nil", *records[2].ModelYear)
	}
	if records[2].BaseMSRP == nil || *records[2].BaseMSRP != 44450 {
		t.Errorf("records[2].BaseMSRP = %v, want 44450", derefF(records[2].BaseMSRP))
	}
}

func TestReadHeaderBOM(t *testing.T) {
	records, err := Read(strings.NewReader("\ufeff" + sampleCSV))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	assertEqual(t, "VIN", records[0].VIN, "5YJ3E1EA7K")
}

func TestReadShortRow(t *testing.T) {
	in := strings.Join(RequiredColumns, ",") + "\nABC,FORD\n"
	records, err := Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	assertEqual(t, "VIN", records[0].VIN, "ABC")
	assertEqual(t, "Make", records[0].Make, "FORD")
	assertEqual(t, "Model", records[0].Model, "")
}

func TestReadErrors(t *testing.T) {
	if _, err := Read(strings.NewReader("")); !errors.Is(err, ErrNoHeader) {
		t.Errorf("empty input: got %v, want ErrNoHeader", err)
	}
	_, err := Read(strings.NewReader("Make,Model\nTESLA,MODEL 3\n"))
	if !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("got %v, want ErrMissingColumns", err)
	}
	if !strings.Contains(err.Error(), ColModelYear) {
		t.Errorf("error %q should name the missing column %q", err, ColModelYear)
	}
}

func TestLoaderFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "ev.csv")
	if err := os.WriteFile(p, []byte(sampleCSV), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ds, err := LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if ds.Len() != 3 {
		t.Errorf("Len = %d, want 3", ds.Len())
	}

	// Records hands out a copy; the dataset is unaffected by edits to it.
	rs := ds.Records()
	rs[0].Make = "CHANGED"
	if ds.Records()[0].Make != "TESLA" {
		t.Error("dataset was mutated through Records()")
	}
}

func TestRecordsDoNotAlias(t *testing.T) {
	year := 2019
	src := []Record{{Make: "TESLA", ModelYear: &year, Extra: map[string]string{"County": "King"}}}
	ds := NewDataset(src)

	year = 1990
	src[0].Extra["County"] = "Kitsap"
	got := ds.Records()[0]
	if *got.ModelYear != 2019 || got.Extra["County"] != "King" {
		t.Fatalf("dataset picked up caller edits to its input: year %d, county %q", *got.ModelYear, got.Extra["County"])
	}

	*got.ModelYear = 1999
	got.Extra["County"] = "Pierce"
	again := ds.Records()[0]
	assertEqual(t, "County", again.Extra["County"], "King")
	if *again.ModelYear != 2019 {
		t.Errorf("ModelYear = %d, want 2019", *again.ModelYear)
	}
}

func TestLoaderMissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.csv"))
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("got %T %v, want *LoadError", err, err)
	}
	if !strings.HasPrefix(le.Error(), "error loading CSV") {
		t.Errorf("message = %q", le.Error())
	}
}

func TestLoaderHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.csv" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	l := Loader{Client: srv.Client()}
	ds, err := l.Load(context.Background(), srv.URL+"/ev.csv")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Len() != 3 {
		t.Errorf("Len = %d, want 3", ds.Len())
	}

	if _, err := l.Load(context.Background(), srv.URL+"/missing.csv"); err == nil {
		t.Error("expected error for 404")
	} else if !strings.Contains(err.Error(), "404") {
		t.Errorf("error %q should mention status 404", err)
	}
}
