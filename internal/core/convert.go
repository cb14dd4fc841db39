package core

// convert.go provides the numeric and date conversions shared by the
// validator, the CSV codec and the importer.
//
// Numbers must be finite reals: strconv accepts "NaN" and "Inf", which are
// rejected here. Dates accept RFC 3339 (what the exporter writes) plus the
// common spreadsheet layouts users paste in.

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order when parsing the Date Added column.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"1/2/2006",
	"01/02/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	time.RFC1123,
	time.RFC1123Z,
}

// ParseReal parses s as a finite decimal real number.
// Surrounding whitespace is ignored. Hex floats ("0x1p3") are rejected.
func ParseReal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || isHexLiteral(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// isHexLiteral reports whether s starts with 0x or 0X after an optional sign.
func isHexLiteral(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// FormatReal renders v with the shortest decimal representation that
// parses back to the same value.
func FormatReal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseTimestamp parses a Date Added value.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp renders t as an RFC 3339 timestamp in UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// FormFromObservation converts an observation back into its form shape,
// e.g. to pre-fill an edit form.
func FormFromObservation(o Observation) FormInput {
	return FormInput{
		Name:               o.Name,
		OrbitalPeriod:      FormatReal(o.OrbitalPeriod),
		TransitDepth:       FormatReal(o.TransitDepth),
		TransitDuration:    FormatReal(o.TransitDuration),
		SignalToNoiseRatio: FormatReal(o.SignalToNoiseRatio),
		StellarRadius:      FormatReal(o.StellarProperties.Radius),
		StellarTemperature: FormatReal(o.StellarProperties.Temperature),
		StellarMagnitude:   FormatReal(o.StellarProperties.Magnitude),
		Notes:              o.Notes,
	}
}

// buildObservation promotes a validated form into an observation.
// The caller must have validated the form first.
func buildObservation(f FormInput, id string, addedAt time.Time) Observation {
	num := func(s string) float64 {
		v, _ := ParseReal(s)
		return v
	}
	return Observation{
		ID:                 id,
		Name:               singleLine(f.Name),
		OrbitalPeriod:      num(f.OrbitalPeriod),
		TransitDepth:       num(f.TransitDepth),
		TransitDuration:    num(f.TransitDuration),
		SignalToNoiseRatio: num(f.SignalToNoiseRatio),
		StellarProperties: StellarProperties{
			Radius:      num(f.StellarRadius),
			Temperature: num(f.StellarTemperature),
			Magnitude:   num(f.StellarMagnitude),
		},
		DateAdded: addedAt,
		Notes:     singleLine(f.Notes),
	}
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// singleLine trims s and replaces line breaks with spaces so a stored value
// always fits on one exported CSV line.
func singleLine(s string) string {
	return strings.TrimSpace(lineBreaks.Replace(s))
}
