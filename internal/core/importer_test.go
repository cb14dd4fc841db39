package core

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

const testHeader = "Name,Orbital Period (days),Transit Depth (ppm),Transit Duration (hours),Signal-to-Noise Ratio,Stellar Radius (Solar Radii),Stellar Temperature (K),Stellar Magnitude,Date Added,Notes"

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// testImporter returns an importer with a fixed clock and sequential IDs.
func testImporter() Importer {
	n := 0
	return Importer{
		Now: func() time.Time { return fixedNow },
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	}
}

func csvText(rows ...string) string {
	return strings.Join(append([]string{testHeader}, rows...), "\n")
}

func TestImport_EmptyInput(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty string", ""},
		{"header only", testHeader},
		{"header with trailing newline", testHeader + "\n"},
		{"header with blank lines", testHeader + "\n\n  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ImportCSV(tt.text)
			if res.Successful == nil || res.Failed == nil {
				t.Fatal("Successful and Failed must be non-nil")
			}
			if len(res.Successful) != 0 || len(res.Failed) != 0 {
				t.Errorf("got %d successful, %d failed; want 0, 0", len(res.Successful), len(res.Failed))
			}
		})
	}
}

func TestImport_PartialSuccess(t *testing.T) {
	text := csvText(
		"Kepler-22b,289.86,492,7.4,25.3,0.98,5518,11.66,2024-03-15,first",
		"Kepler-452b,384.84,200,10.6,12.1,1.11,5757,13.43,,",
		"TOI-700 d,37.42,not-a-number,3.1,9.2,0.42,3480,13.1,,",
		"TRAPPIST-1e,6.1,5200,0.9,30,0.12,2566,18.8",
	)

	res := testImporter().Import(text)

	if len(res.Successful) != 3 {
		t.Fatalf("successful = %d, want 3", len(res.Successful))
	}
	if len(res.Failed) != 1 {
		t.Fatalf("failed = %d, want 1", len(res.Failed))
	}

	f := res.Failed[0]
	if f.Row != 3 {
		t.Errorf("failed row = %d, want 3", f.Row)
	}
	if f.Error != MsgInvalidDataFormat {
		t.Errorf("error = %q, want %q", f.Error, MsgInvalidDataFormat)
	}
	if f.Kind != KindInvalidRowFormat {
		t.Errorf("kind = %q, want %q", f.Kind, KindInvalidRowFormat)
	}
	if len(f.RawData) != 10 || f.RawData[0] != "TOI-700 d" {
		t.Errorf("raw data = %q, want the row's tokens", f.RawData)
	}

	names := []string{"Kepler-22b", "Kepler-452b", "TRAPPIST-1e"}
	for i, want := range names {
		if got := res.Successful[i].Name; got != want {
			t.Errorf("successful[%d].Name = %q, want %q", i, got, want)
		}
	}
}

func TestImport_InsufficientColumns(t *testing.T) {
	res := ImportCSV(csvText("Kepler-22b,289.86,492,7.4,25.3"))

	if len(res.Successful) != 0 {
		t.Errorf("successful = %d, want 0", len(res.Successful))
	}
	if len(res.Failed) != 1 {
		t.Fatalf("failed = %d, want 1", len(res.Failed))
	}

	f := res.Failed[0]
	if f.Kind != KindInsufficientColumns || f.Error != MsgInsufficientColumns {
		t.Errorf("got {%s %q}, want {%s %q}", f.Kind, f.Error, KindInsufficientColumns, MsgInsufficientColumns)
	}
	if f.Row != 1 {
		t.Errorf("row = %d, want 1", f.Row)
	}
	if len(f.RawData) != 5 {
		t.Errorf("raw data has %d tokens, want 5", len(f.RawData))
	}
}

func TestImport_RowRejection(t *testing.T) {
	tests := []struct {
		name string
		row  string
		kind ErrorKind
	}{
		{"empty name", ",1,2,3,4,5,6,7", KindInvalidRowFormat},
		{"whitespace name", "   ,1,2,3,4,5,6,7", KindInvalidRowFormat},
		{"non-numeric magnitude", "X,1,2,3,4,5,6,bright", KindInvalidRowFormat},
		{"empty numeric", "X,1,,3,4,5,6,7", KindInvalidRowFormat},
		{"NaN", "X,NaN,2,3,4,5,6,7", KindInvalidRowFormat},
		// Imports run the form range checks too, so a negative
		// non-magnitude value is a row format failure rather than a
		// numeric parse failure.
		{"negative non-magnitude value fails range check as row format", "X,-1,2,3,4,5,6,7", KindInvalidRowFormat},
		{"negative temperature fails range check as row format", "X,1,2,3,4,5,-6,7", KindInvalidRowFormat},
		{"negative magnitude is accepted by range check", "X,1,2,3,4,5,6,-7", ""},
		{"seven tokens", "X,1,2,3,4,5,6", KindInsufficientColumns},
		{"single token", "garbage", KindInsufficientColumns},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ImportCSV(csvText(tt.row))
			if tt.kind == "" {
				if len(res.Failed) != 0 || len(res.Successful) != 1 {
					t.Fatalf("failed = %+v, want row accepted", res.Failed)
				}
				return
			}
			if len(res.Failed) != 1 {
				t.Fatalf("failed = %d, want 1", len(res.Failed))
			}
			if res.Failed[0].Kind != tt.kind {
				t.Errorf("kind = %q, want %q", res.Failed[0].Kind, tt.kind)
			}
		})
	}
}

func TestImport_FieldMapping(t *testing.T) {
	res := testImporter().Import(csvText(`"Kepler, ""442b""",112.3053,500,5.2,21,0.6,4402,-1.5,2023-01-02T03:04:05Z," note "`))
	if len(res.Successful) != 1 {
		t.Fatalf("successful = %d, want 1 (failed %+v)", len(res.Successful), res.Failed)
	}

	want := Observation{
		ID:                 "id-1",
		Name:               `Kepler, "442b"`,
		OrbitalPeriod:      112.3053,
		TransitDepth:       500,
		TransitDuration:    5.2,
		SignalToNoiseRatio: 21,
		StellarProperties: StellarProperties{
			Radius:      0.6,
			Temperature: 4402,
			Magnitude:   -1.5,
		},
		DateAdded: time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC),
		Notes:     "note",
	}

	got := res.Successful[0]
	if !got.DateAdded.Equal(want.DateAdded) {
		t.Errorf("DateAdded = %v, want %v", got.DateAdded, want.DateAdded)
	}
	got.DateAdded, want.DateAdded = time.Time{}, time.Time{}
	if got != want {
		t.Errorf("got  %+v\nwant %+v", got, want)
	}
}

func TestImport_DateAdded(t *testing.T) {
	tests := []struct {
		name string
		row  string
		want time.Time
	}{
		{"eight tokens", "X,1,2,3,4,5,6,7", fixedNow},
		{"empty date", "X,1,2,3,4,5,6,7,,n", fixedNow},
		{"unparseable date", "X,1,2,3,4,5,6,7,someday,n", fixedNow},
		{"date only", "X,1,2,3,4,5,6,7,2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"US date", "X,1,2,3,4,5,6,7,3/15/2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"with offset", "X,1,2,3,4,5,6,7,2024-03-15T10:00:00+02:00", time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := testImporter().Import(csvText(tt.row))
			if len(res.Successful) != 1 {
				t.Fatalf("successful = %d, want 1", len(res.Successful))
			}
			if got := res.Successful[0].DateAdded; !got.Equal(tt.want) {
				t.Errorf("DateAdded = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestImport_NotesOptional(t *testing.T) {
	res := ImportCSV(csvText("X,1,2,3,4,5,6,7,2024-03-15"))
	if len(res.Successful) != 1 {
		t.Fatalf("successful = %d, want 1", len(res.Successful))
	}
	if got := res.Successful[0].Notes; got != "" {
		t.Errorf("Notes = %q, want empty", got)
	}
}

func TestImport_LineEndings(t *testing.T) {
	text := testHeader + "\r\nA,1,2,3,4,5,6,7,,a\r\n\r\nB,1,2,3,4,5,6,7,,b\r\n"

	res := ImportCSV(text)
	if len(res.Failed) != 0 {
		t.Fatalf("unexpected failures: %+v", res.Failed)
	}
	if len(res.Successful) != 2 {
		t.Fatalf("successful = %d, want 2", len(res.Successful))
	}
	if got := res.Successful[1].Notes; got != "b" {
		t.Errorf("Notes = %q, want %q (carriage return should be stripped)", got, "b")
	}
}

func TestImport_RowNumbersSkipBlankLines(t *testing.T) {
	res := ImportCSV(csvText("A,1,2,3,4,5,6,7", "", "bad"))
	if len(res.Failed) != 1 {
		t.Fatalf("failed = %d, want 1", len(res.Failed))
	}
	if got := res.Failed[0].Row; got != 3 {
		t.Errorf("row = %d, want 3", got)
	}
}

func TestImport_HeaderAlwaysSkipped(t *testing.T) {
	// A data-looking first line is still treated as the header.
	res := ImportCSV("A,1,2,3,4,5,6,7\nB,1,2,3,4,5,6,7")
	if len(res.Successful) != 1 || res.Successful[0].Name != "B" {
		t.Errorf("got %+v, want only row B", res.Successful)
	}
}

func TestImport_UniqueIDs(t *testing.T) {
	res := ImportCSV(csvText("A,1,2,3,4,5,6,7", "B,1,2,3,4,5,6,7", "C,1,2,3,4,5,6,7"))

	seen := make(map[string]bool)
	for _, o := range res.Successful {
		if o.ID == "" {
			t.Error("empty ID")
		}
		if seen[o.ID] {
			t.Errorf("duplicate ID %q", o.ID)
		}
		seen[o.ID] = true
	}
}

func TestImport_PanicRecovered(t *testing.T) {
	calls := 0
	imp := Importer{
		Now: func() time.Time { return fixedNow },
		NewID: func() string {
			calls++
			if calls == 2 {
				panic("id source exhausted")
			}
			return fmt.Sprintf("id-%d", calls)
		},
	}

	line := "B,1,2,3,4,5,6,7"
	res := imp.Import(csvText("A,1,2,3,4,5,6,7", line, "C,1,2,3,4,5,6,7"))

	if len(res.Successful) != 2 {
		t.Fatalf("successful = %d, want 2", len(res.Successful))
	}
	if len(res.Failed) != 1 {
		t.Fatalf("failed = %d, want 1", len(res.Failed))
	}

	f := res.Failed[0]
	if f.Kind != KindUnexpectedRowError || f.Error != MsgFailedToParseRow {
		t.Errorf("got {%s %q}, want {%s %q}", f.Kind, f.Error, KindUnexpectedRowError, MsgFailedToParseRow)
	}
	if f.Row != 2 {
		t.Errorf("row = %d, want 2", f.Row)
	}
	if len(f.RawData) != 1 || f.RawData[0] != line {
		t.Errorf("raw data = %q, want the raw line", f.RawData)
	}
}

func TestImportResult_Summary(t *testing.T) {
	res := ImportCSV(csvText("A,1,2,3,4,5,6,7", "bad"))
	if got, want := res.Summary(), "1 imported, 1 failed"; got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}
