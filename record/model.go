package record

import "maps"

// Column names in the source CSV header.
const (
	ColVIN       = "VIN (1-10)"
	ColMake      = "Make"
	ColModel     = "Model"
	ColModelYear = "Model Year"
	ColType      = "Electric Vehicle Type"
	ColRange     = "Electric Range"
	ColBaseMSRP  = "Base MSRP"
	ColState     = "State"
	ColCity      = "City"
)

// RequiredColumns lists the header names a dataset must provide.
var RequiredColumns = []string{
	ColVIN, ColMake, ColModel, ColModelYear, ColType,
	ColRange, ColBaseMSRP, ColState, ColCity,
}

// Vehicle type labels as they appear in the dataset.
const (
	TypeBEV     = "Battery Electric Vehicle (BEV)"
	TypePHEV    = "Plug-in Hybrid Electric Vehicle (PHEV)"
	TypeUnknown = "Unknown"
)

// Record is one sanitized vehicle registration. Optional numeric fields are
// nil when the source text was empty or not a number.
type Record struct {
	VIN           string   `json:"vin"`
	Make          string   `json:"make"`
	Model         string   `json:"model"`
	ModelYear     *int     `json:"modelYear"`
	VehicleType   string   `json:"vehicleType"`
	ElectricRange *float64 `json:"electricRange"`
	BaseMSRP      *float64 `json:"baseMsrp"`
	State         string   `json:"state"`
	City          string   `json:"city"`

	// Extra holds every other CSV column untouched.
	Extra map[string]string `json:"extra,omitempty"`

	// Seq is the record's position in its dataset, assigned by NewDataset.
	Seq int `json:"-"`
}

// Clone returns a deep copy of r: numeric fields and Extra no longer share
// storage with the original.
func (r Record) Clone() Record {
	r.ModelYear = clonePtr(r.ModelYear)
	r.ElectricRange = clonePtr(r.ElectricRange)
	r.BaseMSRP = clonePtr(r.BaseMSRP)
	r.Extra = maps.Clone(r.Extra)
	return r
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// HasRange reports whether the record carries a usable electric range. Zero
// and missing are both "no data".
func (r Record) HasRange() bool {
	return r.ElectricRange != nil && *r.ElectricRange > 0
}

// HasMSRP reports whether the record carries a usable base MSRP.
func (r Record) HasMSRP() bool {
	return r.BaseMSRP != nil && *r.BaseMSRP > 0
}

// Value returns the record's field for a CSV column name. The second return
// is false when the field is absent (nil numeric or unknown column).
func (r Record) Value(column string) (any, bool) {
	switch column {
	case ColVIN:
		return r.VIN, true
	case ColMake:
		return r.Make, true
	case ColModel:
		return r.Model, true
	case ColModelYear:
		if r.ModelYear == nil {
			return nil, false
		}
		return *r.ModelYear, true
	case ColType:
		return r.VehicleType, true
	case ColRange:
		if r.ElectricRange == nil {
			return nil, false
		}
		return *r.ElectricRange, true
	case ColBaseMSRP:
		if r.BaseMSRP == nil {
			return nil, false
		}
		return *r.BaseMSRP, true
	case ColState:
		return r.State, true
	case ColCity:
		return r.City, true
	}
	v, ok := r.Extra[column]
	return v, ok
}

// Dataset is the canonical, read-only collection of records for a session.
// Derived views always build new slices; nothing writes through a Dataset.
type Dataset struct {
	records []Record
}

// NewDataset wraps records. Each record is cloned so later changes by the
// caller cannot leak in.
func NewDataset(records []Record) *Dataset {
	cp := make([]Record, len(records))
	for i, r := range records {
		cp[i] = r.Clone()
		cp[i].Seq = i
	}
	return &Dataset{records: cp}
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// Records returns a deep copy of the records in load order. Writes through
// the result, including through its pointer fields and Extra maps, never
// reach the dataset.
func (d *Dataset) Records() []Record {
	if d == nil {
		return nil
	}
	out := make([]Record, len(d.records))
	for i, r := range d.records {
		out[i] = r.Clone()
	}
	return out
}
