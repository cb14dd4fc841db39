package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// memStore is an in-memory Store that can be told to fail.
type memStore struct {
	mu      sync.Mutex
	records []Observation
	loadErr error
	saveErr error
	saves   int
}

func (m *memStore) Load(context.Context) ([]Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append([]Observation(nil), m.records...), nil
}

func (m *memStore) Save(_ context.Context, records []Observation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records = append([]Observation(nil), records...)
	return nil
}

func (m *memStore) saved() []Observation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Observation(nil), m.records...)
}

func newTestService(store Store) *Service {
	n := 0
	return NewService(ServiceOptions{
		Store:  store,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:    func() time.Time { return fixedNow },
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	})
}

// =============================================================================
// Load / save
// =============================================================================

func TestService_LoadFailureIsSwallowed(t *testing.T) {
	store := &memStore{loadErr: errors.New("corrupt blob")}
	svc := newTestService(store)

	svc.Load(context.Background())

	if got := len(svc.List()); got != 0 {
		t.Errorf("List() has %d records, want 0", got)
	}
}

func TestService_LoadRestoresOrder(t *testing.T) {
	store := &memStore{records: []Observation{obs("c", "C"), obs("a", "A"), obs("b", "B")}}
	svc := newTestService(store)

	svc.Load(context.Background())

	equalIDs(t, svc.List(), "c", "a", "b")
}

func TestService_SaveFailureIsSwallowed(t *testing.T) {
	store := &memStore{saveErr: errors.New("disk full")}
	svc := newTestService(store)

	o, err := svc.Create(context.Background(), validForm())
	if err != nil {
		t.Fatalf("Create returned %v, save errors must not surface", err)
	}
	if store.saves != 1 {
		t.Errorf("saves = %d, want 1", store.saves)
	}
	if _, err := svc.Get(o.ID); err != nil {
		t.Errorf("record should stay in memory: %v", err)
	}
}

// =============================================================================
// CRUD
// =============================================================================

func TestService_Create(t *testing.T) {
	store := &memStore{}
	svc := newTestService(store)

	o, err := svc.Create(context.Background(), validForm())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if o.ID != "id-1" {
		t.Errorf("ID = %q, want id-1", o.ID)
	}
	if !o.DateAdded.Equal(fixedNow) {
		t.Errorf("DateAdded = %v, want %v", o.DateAdded, fixedNow)
	}
	if o.TransitDepth != 492 || o.StellarProperties.Magnitude != 11.66 {
		t.Errorf("numeric fields not parsed: %+v", o)
	}
	equalIDs(t, store.saved(), "id-1")
}

func TestService_CreateInvalid(t *testing.T) {
	store := &memStore{}
	svc := newTestService(store)

	f := validForm()
	f.Name = ""
	f.OrbitalPeriod = "-1"

	_, err := svc.Create(context.Background(), f)

	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("error = %v, want ValidationErrors", err)
	}
	if len(verrs) != 2 {
		t.Errorf("got %d validation errors, want 2", len(verrs))
	}
	if len(svc.List()) != 0 || store.saves != 0 {
		t.Error("invalid form must not be stored")
	}
}

func TestService_CreateMultilineNotesSurviveExport(t *testing.T) {
	svc := newTestService(&memStore{})

	f := validForm()
	f.Name = "Kepler-22b\r\n"
	f.Notes = "line1\nline2\r\nline3\rline4"

	o, err := svc.Create(context.Background(), f)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if o.Notes != "line1 line2 line3 line4" {
		t.Errorf("Notes = %q, want line breaks flattened", o.Notes)
	}
	if o.Name != "Kepler-22b" {
		t.Errorf("Name = %q", o.Name)
	}

	other := newTestService(&memStore{})
	res, err := other.Import(context.Background(), "export.csv", strings.NewReader(svc.Export(false)))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(res.Successful) != 1 || len(res.Failed) != 0 {
		t.Fatalf("re-import: %d ok, %d failed %+v", len(res.Successful), len(res.Failed), res.Failed)
	}
	if got := res.Successful[0]; got.Name != o.Name || got.Notes != o.Notes {
		t.Errorf("re-imported %q/%q, want %q/%q", got.Name, got.Notes, o.Name, o.Notes)
	}
}

func TestService_Update(t *testing.T) {
	svc := newTestService(&memStore{})
	ctx := context.Background()

	created, _ := svc.Create(ctx, validForm())
	svc.ApplyResults(ctx, map[string]string{created.ID: "exo"})

	f := validForm()
	f.Name = "Kepler-22b (revised)"
	f.TransitDepth = "510"

	updated, err := svc.Update(ctx, created.ID, f)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ID != created.ID || !updated.DateAdded.Equal(created.DateAdded) {
		t.Error("Update must keep ID and DateAdded")
	}
	if updated.Result != "" {
		t.Errorf("Result = %q, stale result should be cleared", updated.Result)
	}
	if got, _ := svc.Get(created.ID); got.TransitDepth != 510 {
		t.Errorf("TransitDepth = %v, want 510", got.TransitDepth)
	}

	if _, err := svc.Update(ctx, "missing", f); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update missing error = %v, want ErrNotFound", err)
	}
}

func TestService_Delete(t *testing.T) {
	store := &memStore{}
	svc := newTestService(store)
	ctx := context.Background()

	a, _ := svc.Create(ctx, validForm())
	b, _ := svc.Create(ctx, validForm())

	if err := svc.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	equalIDs(t, store.saved(), b.ID)

	if err := svc.Delete(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
}

func TestService_Reset(t *testing.T) {
	store := &memStore{}
	svc := newTestService(store)
	ctx := context.Background()

	_, _ = svc.Create(ctx, validForm())
	_, _ = svc.Create(ctx, validForm())

	if n := svc.Reset(ctx); n != 2 {
		t.Errorf("Reset() = %d, want 2", n)
	}
	if len(svc.List()) != 0 {
		t.Errorf("List after Reset has %d items", len(svc.List()))
	}
	if got := store.saved(); len(got) != 0 {
		t.Errorf("store holds %d items after Reset, want 0", len(got))
	}

	saves := store.saves
	if n := svc.Reset(ctx); n != 0 {
		t.Errorf("second Reset() = %d, want 0", n)
	}
	if store.saves != saves {
		t.Error("resetting an empty collection should not save")
	}
}

// =============================================================================
// Import / export
// =============================================================================

func TestService_ImportMergesSuccesses(t *testing.T) {
	store := &memStore{}
	svc := newTestService(store)
	ctx := ContextWithSource(context.Background(), "test")

	existing, _ := svc.Create(ctx, validForm())

	text := csvText(
		"A,1,2,3,4,5,6,7",
		"B,1,oops,3,4,5,6,7",
		"C,1,2,3,4,5,6,-7",
	)
	res, err := svc.Import(ctx, "batch.csv", strings.NewReader(text))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(res.Successful) != 2 || len(res.Failed) != 1 {
		t.Fatalf("got %d/%d, want 2/1", len(res.Successful), len(res.Failed))
	}

	list := svc.List()
	if len(list) != 3 || list[0].ID != existing.ID {
		t.Fatalf("collection = %q, want existing record then two imports", ids(list))
	}
	if len(store.saved()) != 3 {
		t.Errorf("saved %d records, want 3", len(store.saved()))
	}

	hist := svc.History()
	if len(hist) != 1 {
		t.Fatalf("history has %d entries, want 1", len(hist))
	}
	h := hist[0]
	if h.FileName != "batch.csv" || h.Accepted != 2 || h.Failed != 1 || h.Source != "test" {
		t.Errorf("history entry = %+v", h)
	}
}

func TestService_ImportAllFailedDoesNotSave(t *testing.T) {
	store := &memStore{}
	svc := newTestService(store)

	res, err := svc.Import(context.Background(), "bad.csv", strings.NewReader(csvText("only,three,cols")))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(res.Failed) != 1 {
		t.Errorf("failed = %d, want 1", len(res.Failed))
	}
	if store.saves != 0 {
		t.Errorf("saves = %d, want 0", store.saves)
	}
}

func TestService_ImportTooLarge(t *testing.T) {
	svc := NewService(ServiceOptions{
		MaxFileSize: 10,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	_, err := svc.Import(context.Background(), "big.csv", strings.NewReader(csvText("A,1,2,3,4,5,6,7")))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("error = %v, want ErrFileTooLarge", err)
	}
	if len(svc.History()) != 0 {
		t.Error("rejected file should not appear in history")
	}
}

func TestService_ImportBusy(t *testing.T) {
	limiter := NewImportLimiter(1, 20*time.Millisecond)
	svc := NewService(ServiceOptions{
		Limiter: limiter,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	if !limiter.TryAcquire() {
		t.Fatal("TryAcquire failed")
	}
	defer limiter.Release()

	_, err := svc.Import(context.Background(), "x.csv", strings.NewReader(testHeader))
	if !errors.Is(err, ErrTooManyImports) {
		t.Errorf("error = %v, want ErrTooManyImports", err)
	}
}

func TestService_HistoryIsBounded(t *testing.T) {
	svc := NewService(ServiceOptions{
		HistorySize: 2,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	ctx := context.Background()

	for _, name := range []string{"1.csv", "2.csv", "3.csv"} {
		if _, err := svc.Import(ctx, name, strings.NewReader(testHeader)); err != nil {
			t.Fatalf("Import %s: %v", name, err)
		}
	}

	hist := svc.History()
	if len(hist) != 2 {
		t.Fatalf("history has %d entries, want 2", len(hist))
	}
	if hist[0].FileName != "3.csv" || hist[1].FileName != "2.csv" {
		t.Errorf("history = [%s %s], want newest first [3.csv 2.csv]", hist[0].FileName, hist[1].FileName)
	}
}

func TestService_ExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTestService(&memStore{})

	f := validForm()
	f.Name = `Kepler, "442b"`
	f.StellarMagnitude = "-1.5"
	if _, err := src.Create(ctx, f); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := src.Create(ctx, validForm()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	dst := newTestService(&memStore{})
	res, err := dst.Import(ctx, "export.csv", strings.NewReader(src.Export(false)))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(res.Failed) != 0 {
		t.Fatalf("unexpected failures: %+v", res.Failed)
	}

	want, got := src.List(), dst.List()
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Name != want[i].Name || got[i].StellarProperties != want[i].StellarProperties {
			t.Errorf("record %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

// =============================================================================
// Analysis results
// =============================================================================

func TestService_ApplyResults(t *testing.T) {
	store := &memStore{}
	svc := newTestService(store)
	ctx := context.Background()

	a, _ := svc.Create(ctx, validForm())
	b, _ := svc.Create(ctx, validForm())
	savesBefore := store.saves

	n := svc.ApplyResults(ctx, map[string]string{a.ID: "exo", b.ID: "candidate", "ghost": "exo"})
	if n != 2 {
		t.Errorf("updated = %d, want 2", n)
	}
	if got, _ := svc.Get(a.ID); got.Result != "exo" {
		t.Errorf("Result = %q, want exo", got.Result)
	}
	if store.saves != savesBefore+1 {
		t.Errorf("saves = %d, want %d", store.saves, savesBefore+1)
	}

	if n := svc.ApplyResults(ctx, map[string]string{a.ID: "exo"}); n != 0 {
		t.Errorf("unchanged label should not count, got %d", n)
	}
}

func TestService_ConcurrentImports(t *testing.T) {
	svc := NewService(ServiceOptions{
		Limiter: NewImportLimiter(2, time.Second),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text := csvText(fmt.Sprintf("P%d,1,2,3,4,5,6,7", i))
			if _, err := svc.Import(ctx, "c.csv", strings.NewReader(text)); err != nil {
				t.Errorf("Import: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if got := len(svc.List()); got != 8 {
		t.Errorf("collection has %d records, want 8", got)
	}
	if got := svc.LimiterStatus().Active; got != 0 {
		t.Errorf("active imports = %d, want 0", got)
	}
}
