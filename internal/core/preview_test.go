package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// =============================================================================
// BuildPreview
// =============================================================================

func TestBuildPreview_Counts(t *testing.T) {
	res := testImporter().Import(csvText(
		"Kepler-22b,289.86,492,7.4,25.3,0.98,5518,11.66,,",
		"kepler-22B ,289.86,492,7.4,25.3,0.98,5518,11.66,,",
		"TOI-700 d,37.42,not-a-number,3.1,9.2,0.42,3480,13.1,,",
		"TRAPPIST-1e,6.1,5200,0.9,30,0.12,2566,18.8",
	))
	existing := []Observation{obs("x", "TRAPPIST-1E")}

	p := BuildPreview(res, existing)

	want := PreviewSummary{
		TotalRows:       4,
		NewRows:         3,
		ErrorRows:       1,
		DuplicateInFile: 1,
		AlreadyStored:   1,
	}
	if p.Summary != want {
		t.Errorf("Summary = %+v, want %+v", p.Summary, want)
	}

	if len(p.DuplicateSamples) != 1 {
		t.Fatalf("DuplicateSamples = %+v, want one entry", p.DuplicateSamples)
	}
	if d := p.DuplicateSamples[0]; d.Name != "Kepler-22b" || d.Count != 2 {
		t.Errorf("duplicate = %+v, want Kepler-22b x2", d)
	}

	if len(p.StoredNames) != 1 || p.StoredNames[0] != "TRAPPIST-1e" {
		t.Errorf("StoredNames = %v, want [TRAPPIST-1e]", p.StoredNames)
	}
	if len(p.ErrorSamples) != 1 || p.ErrorSamples[0].Row != 3 {
		t.Errorf("ErrorSamples = %+v, want row 3", p.ErrorSamples)
	}
}

func TestBuildPreview_EmptyIsNonNil(t *testing.T) {
	p := BuildPreview(ImportCSV(""), nil)

	if p.NewRowSamples == nil || p.ErrorSamples == nil || p.DuplicateSamples == nil || p.StoredNames == nil {
		t.Error("preview slices must be non-nil")
	}
	if p.Summary != (PreviewSummary{}) {
		t.Errorf("Summary = %+v, want zero", p.Summary)
	}
}

func TestBuildPreview_SamplesAreCapped(t *testing.T) {
	rows := make([]string, 0, 40)
	for i := 0; i < 30; i++ {
		rows = append(rows, fmt.Sprintf("P-%d,1,2,3,4,5,6,7", i))
		rows = append(rows, fmt.Sprintf("Bad-%d,x,2,3,4,5,6,7", i))
	}

	p := BuildPreview(testImporter().Import(csvText(rows...)), nil)

	if got := len(p.NewRowSamples); got != maxNewRowSamples {
		t.Errorf("len(NewRowSamples) = %d, want %d", got, maxNewRowSamples)
	}
	if got := len(p.ErrorSamples); got != maxErrorSamples {
		t.Errorf("len(ErrorSamples) = %d, want %d", got, maxErrorSamples)
	}
	if p.Summary.NewRows != 30 || p.Summary.ErrorRows != 30 {
		t.Errorf("Summary = %+v, want 30 new and 30 errors", p.Summary)
	}
}

func TestBuildPreview_DuplicateOrder(t *testing.T) {
	p := BuildPreview(testImporter().Import(csvText(
		"B,1,2,3,4,5,6,7",
		"A,1,2,3,4,5,6,7",
		"B,1,2,3,4,5,6,7",
		"A,1,2,3,4,5,6,7",
		"C,1,2,3,4,5,6,7",
		"C,1,2,3,4,5,6,7",
		"C,1,2,3,4,5,6,7",
	)), nil)

	var got []string
	for _, d := range p.DuplicateSamples {
		got = append(got, fmt.Sprintf("%s:%d", d.Name, d.Count))
	}
	if want := "C:3 A:2 B:2"; strings.Join(got, " ") != want {
		t.Errorf("duplicates = %v, want %s", got, want)
	}
	if p.Summary.DuplicateInFile != 4 {
		t.Errorf("DuplicateInFile = %d, want 4", p.Summary.DuplicateInFile)
	}
}

// =============================================================================
// Service.Preview
// =============================================================================

func TestService_PreviewDoesNotStore(t *testing.T) {
	store := &memStore{}
	svc := newTestService(store)
	if _, err := svc.Create(context.Background(), validForm()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	savesBefore := store.saves

	p, err := svc.Preview(context.Background(), strings.NewReader(csvText(
		"Kepler-22b,289.86,492,7.4,25.3,0.98,5518,11.66,,",
		"Broken,x,1,1,1,1,1,1,,",
	)))
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}

	if p.Summary.NewRows != 1 || p.Summary.ErrorRows != 1 {
		t.Errorf("Summary = %+v, want 1 new and 1 error", p.Summary)
	}
	if got := len(svc.List()); got != 1 {
		t.Errorf("collection has %d records, want 1", got)
	}
	if store.saves != savesBefore {
		t.Errorf("saves = %d, want %d", store.saves, savesBefore)
	}
	if len(svc.History()) != 0 {
		t.Error("preview must not be recorded in import history")
	}
}

func TestService_PreviewTooLarge(t *testing.T) {
	svc := NewService(ServiceOptions{MaxFileSize: 10})

	_, err := svc.Preview(context.Background(), strings.NewReader(strings.Repeat("x", 11)))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("err = %v, want ErrFileTooLarge", err)
	}
}

func TestService_PreviewCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestService(nil).Preview(ctx, strings.NewReader(testHeader))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
