package core

// codec.go implements the CSV codec for observations.
//
// Encoding quotes every cell so exported files always re-parse unambiguously.
// Decoding works one line at a time through SplitRow, a two-state automaton
// that resolves quoting character by character.

import (
	"strings"
)

// Column headers in their fixed positional order.
const (
	HeaderName               = "Name"
	HeaderOrbitalPeriod      = "Orbital Period (days)"
	HeaderTransitDepth       = "Transit Depth (ppm)"
	HeaderTransitDuration    = "Transit Duration (hours)"
	HeaderSignalToNoiseRatio = "Signal-to-Noise Ratio"
	HeaderStellarRadius      = "Stellar Radius (Solar Radii)"
	HeaderStellarTemperature = "Stellar Temperature (K)"
	HeaderStellarMagnitude   = "Stellar Magnitude"
	HeaderDateAdded          = "Date Added"
	HeaderNotes              = "Notes"
	HeaderResult             = "Result"
)

// Headers is the export header row without the optional Result column.
var Headers = []string{
	HeaderName,
	HeaderOrbitalPeriod,
	HeaderTransitDepth,
	HeaderTransitDuration,
	HeaderSignalToNoiseRatio,
	HeaderStellarRadius,
	HeaderStellarTemperature,
	HeaderStellarMagnitude,
	HeaderDateAdded,
	HeaderNotes,
}

// Token positions within a data row.
const (
	colName = iota
	colOrbitalPeriod
	colTransitDepth
	colTransitDuration
	colSignalToNoiseRatio
	colStellarRadius
	colStellarTemperature
	colStellarMagnitude
	colDateAdded
	colNotes
)

// MinColumns is the number of tokens a data row needs: name plus the seven
// numeric fields. Date and notes are optional.
const MinColumns = colStellarMagnitude + 1

// EncodeCSV renders records as CSV text with a header row. The Result column
// is written only when includeResult is set. Rows are joined by "\n" with no
// trailing newline.
func EncodeCSV(records []Observation, includeResult bool) string {
	header := Headers
	if includeResult {
		header = append(append([]string(nil), Headers...), HeaderResult)
	}

	var b strings.Builder
	b.WriteString(strings.Join(header, ","))

	for _, o := range records {
		b.WriteByte('\n')
		cells := []string{
			o.Name,
			FormatReal(o.OrbitalPeriod),
			FormatReal(o.TransitDepth),
			FormatReal(o.TransitDuration),
			FormatReal(o.SignalToNoiseRatio),
			FormatReal(o.StellarProperties.Radius),
			FormatReal(o.StellarProperties.Temperature),
			FormatReal(o.StellarProperties.Magnitude),
			FormatTimestamp(o.DateAdded),
			o.Notes,
		}
		if includeResult {
			cells = append(cells, o.Result)
		}
		writeRow(&b, cells)
	}

	return b.String()
}

// writeRow writes cells as one quoted row.
func writeRow(b *strings.Builder, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(quoteCell(cell))
	}
}

// quoteCell wraps s in double quotes, doubling any embedded quote.
func quoteCell(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// tokenizerState is the state of the row tokenizer.
type tokenizerState int

const (
	stateUnquoted tokenizerState = iota
	stateQuoted
)

// SplitRow tokenizes one CSV line into its fields.
//
// Transitions:
//
//	unquoted + '"' at field start -> quoted
//	unquoted + ','                -> emit field, stay unquoted
//	quoted   + '""'               -> literal '"', stay quoted
//	quoted   + '"'                -> unquoted
//	quoted   + ','                -> literal ','
//
// Any other character is field content. End of line flushes the final
// field, even when it is empty, so "a," yields two fields.
func SplitRow(line string) []string {
	var (
		fields     []string
		field      strings.Builder
		state      = stateUnquoted
		fieldStart = true
	)

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		c := runes[i]

		switch state {
		case stateUnquoted:
			switch {
			case c == '"' && fieldStart:
				state = stateQuoted
				fieldStart = false
			case c == ',':
				fields = append(fields, field.String())
				field.Reset()
				fieldStart = true
			default:
				field.WriteRune(c)
				fieldStart = false
			}

		case stateQuoted:
			switch {
			case c == '"' && i+1 < len(runes) && runes[i+1] == '"':
				field.WriteRune('"')
				i++
			case c == '"':
				state = stateUnquoted
			default:
				field.WriteRune(c)
			}
		}
	}

	return append(fields, field.String())
}
