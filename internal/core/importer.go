package core

// importer.go drives the codec and the validator over a whole CSV file.
//
// Import is a fold over lines with no cross-row state except the row
// counter. A bad row becomes a FailedRow entry and never aborts the batch.
// Line 0 is always treated as the header and skipped.

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Row failure messages.
const (
	MsgInsufficientColumns = "Insufficient columns"
	MsgInvalidDataFormat   = "Invalid data format"
	MsgFailedToParseRow    = "Failed to parse row"
)

// Importer converts CSV text into an ImportResult. The zero value is ready
// to use; Now and NewID may be set to make results deterministic.
type Importer struct {
	Now   func() time.Time
	NewID func() string
}

// ImportCSV imports text with the wall clock and random UUIDs.
func ImportCSV(text string) ImportResult {
	var imp Importer
	return imp.Import(text)
}

// Import parses every data line of text. Successful and Failed are never
// nil, so an empty import encodes as two empty JSON arrays.
func (imp Importer) Import(text string) ImportResult {
	result := ImportResult{
		Successful: []Observation{},
		Failed:     []FailedRow{},
	}

	now := imp.now()
	lines := strings.Split(text, "\n")

	for row := 1; row < len(lines); row++ {
		line := strings.TrimSuffix(lines[row], "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		obs, failed := imp.importRow(row, line, now)
		if failed != nil {
			result.Failed = append(result.Failed, *failed)
			continue
		}
		result.Successful = append(result.Successful, obs)
	}

	return result
}

// importRow converts one line. A panic while building the row is turned
// into an UnexpectedRowError carrying the raw line.
func (imp Importer) importRow(row int, line string, now time.Time) (obs Observation, failed *FailedRow) {
	defer func() {
		if r := recover(); r != nil {
			obs = Observation{}
			failed = &FailedRow{
				Row:     row,
				Error:   MsgFailedToParseRow,
				Kind:    KindUnexpectedRowError,
				RawData: []string{line},
			}
		}
	}()

	tokens := SplitRow(line)
	if len(tokens) < MinColumns {
		return Observation{}, &FailedRow{
			Row:     row,
			Error:   MsgInsufficientColumns,
			Kind:    KindInsufficientColumns,
			RawData: tokens,
		}
	}

	form := FormInput{
		Name:               tokens[colName],
		OrbitalPeriod:      tokens[colOrbitalPeriod],
		TransitDepth:       tokens[colTransitDepth],
		TransitDuration:    tokens[colTransitDuration],
		SignalToNoiseRatio: tokens[colSignalToNoiseRatio],
		StellarRadius:      tokens[colStellarRadius],
		StellarTemperature: tokens[colStellarTemperature],
		StellarMagnitude:   tokens[colStellarMagnitude],
	}
	if len(tokens) > colNotes {
		form.Notes = tokens[colNotes]
	}

	if err := form.Validate(); err != nil {
		return Observation{}, &FailedRow{
			Row:     row,
			Error:   MsgInvalidDataFormat,
			Kind:    KindInvalidRowFormat,
			RawData: tokens,
		}
	}

	addedAt := now
	if len(tokens) > colDateAdded {
		if t, ok := ParseTimestamp(tokens[colDateAdded]); ok {
			addedAt = t
		}
	}

	return buildObservation(form, imp.newID(), addedAt), nil
}

func (imp Importer) now() time.Time {
	if imp.Now != nil {
		return imp.Now()
	}
	return time.Now()
}

func (imp Importer) newID() string {
	if imp.NewID != nil {
		return imp.NewID()
	}
	return uuid.NewString()
}

// Summary returns a one-line description of the result, e.g. for logs
// and CLI output.
func (r ImportResult) Summary() string {
	return fmt.Sprintf("%d imported, %d failed", len(r.Successful), len(r.Failed))
}
