package record

import (
	"math"
	"strconv"
	"strings"
)

// Sanitize turns one raw CSV row (column name -> text) into a Record. It never
// fails: numeric text that cannot be parsed becomes nil and the rest of the
// row is kept. Categorical fields pass through as-is; "Unknown" bucketing
// happens at aggregation time, not here.
func Sanitize(raw map[string]string) Record {
	r := Record{
		VIN:           raw[ColVIN],
		Make:          raw[ColMake],
		Model:         raw[ColModel],
		ModelYear:     parseYear(raw[ColModelYear]),
		VehicleType:   raw[ColType],
		ElectricRange: parseDecimal(raw[ColRange]),
		BaseMSRP:      parseDecimal(raw[ColBaseMSRP]),
		State:         raw[ColState],
		City:          raw[ColCity],
	}
	for k, v := range raw {
		if isCoreColumn(k) {
			continue
		}
		if r.Extra == nil {
			r.Extra = make(map[string]string)
		}
		r.Extra[k] = v
	}
	return r
}

func isCoreColumn(name string) bool {
	for _, c := range RequiredColumns {
		if c == name {
			return true
		}
	}
	return false
}

// parseYear keeps only the digits of s and parses them as an integer.
// "2020 " and "MY2020" both give 2020; "" and "n/a" give nil.
func parseYear(s string) *int {
	digits := keepRunes(s, func(c rune) bool { return c >= '0' && c <= '9' })
	if digits == "" {
		return nil
	}
	v, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &v
}

// parseDecimal keeps digits and '.' and parses the result as a float. Text
// like "1.2.3" that still isn't a number after stripping gives nil, as do
// values too large to be finite.
func parseDecimal(s string) *float64 {
	cleaned := keepRunes(s, func(c rune) bool { return (c >= '0' && c <= '9') || c == '.' })
	if cleaned == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func keepRunes(s string, keep func(rune) bool) string {
	var sb strings.Builder
	for _, c := range s {
		if keep(c) {
			sb.WriteRune(c)
		}
	}
	return sb.String()
}
