package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultHistorySize is the number of import summaries kept by default.
const DefaultHistorySize = 50

// ServiceOptions configures a Service. Zero values select defaults.
type ServiceOptions struct {
	Store       Store
	Limiter     *ImportLimiter
	Metrics     *Metrics
	Logger      *slog.Logger
	MaxFileSize int64
	HistorySize int

	// Now and NewID make IDs and timestamps deterministic in tests.
	Now   func() time.Time
	NewID func() string
}

// Service owns one observation collection and mediates every access to it.
// Reads take the read lock; mutations compute their result first and then
// replace state under the write lock.
type Service struct {
	store       Store
	limiter     *ImportLimiter
	metrics     *Metrics
	logger      *slog.Logger
	maxFileSize int64
	importer    Importer

	mu         sync.RWMutex
	collection *Collection
	history    []ImportSummary
	historyCap int

	saveMu       sync.Mutex
	savedVersion uint64
}

// NewService creates a Service with an empty collection. Call Load to read
// the persisted state.
func NewService(opts ServiceOptions) *Service {
	if opts.Store == nil {
		opts.Store = nopStore{}
	}
	if opts.Limiter == nil {
		opts.Limiter = NewImportLimiter(DefaultMaxConcurrentImports, DefaultImportMaxWait)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = DefaultHistorySize
	}

	return &Service{
		store:       opts.Store,
		limiter:     opts.Limiter,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		maxFileSize: opts.MaxFileSize,
		importer:    Importer{Now: opts.Now, NewID: opts.NewID},
		collection:  NewCollection(nil),
		historyCap:  opts.HistorySize,
	}
}

// Load replaces the collection with the persisted one. A missing or
// unreadable store yields an empty collection; the error is logged only.
func (s *Service) Load(ctx context.Context) {
	records, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Error("load observations failed, starting empty", "error", err)
		records = nil
	}

	c := NewCollection(records)

	s.mu.Lock()
	s.collection = c
	s.mu.Unlock()

	s.saveMu.Lock()
	s.savedVersion = 0
	s.saveMu.Unlock()

	s.metrics.SetObservations(c.Len())
	s.logger.Info("observations loaded", "count", c.Len())
}

// List returns every observation in insertion order.
func (s *Service) List() []Observation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection.All()
}

// Get returns one observation by ID.
func (s *Service) Get(id string) (Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.collection.Get(id)
	if !ok {
		return Observation{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return o, nil
}

// Version returns the collection's mutation counter.
func (s *Service) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection.Version()
}

// Create validates form and appends the new observation.
func (s *Service) Create(ctx context.Context, form FormInput) (Observation, error) {
	if err := form.Validate(); err != nil {
		return Observation{}, err
	}

	o := buildObservation(form, s.importer.newID(), s.importer.now())

	s.mu.Lock()
	if err := s.collection.Add(o); err != nil {
		s.mu.Unlock()
		return Observation{}, fmt.Errorf("create %s: %w", o.ID, err)
	}
	snapshot, version := s.collection.All(), s.collection.Version()
	s.mu.Unlock()

	s.save(ctx, snapshot, version)
	return o, nil
}

// Update replaces the observation with the given ID by one built from form.
// ID and DateAdded are kept; a previous analysis Result is cleared because
// it described the old values.
func (s *Service) Update(ctx context.Context, id string, form FormInput) (Observation, error) {
	if err := form.Validate(); err != nil {
		return Observation{}, err
	}

	s.mu.Lock()
	old, ok := s.collection.Get(id)
	if !ok {
		s.mu.Unlock()
		return Observation{}, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	o := buildObservation(form, old.ID, old.DateAdded)
	_ = s.collection.Replace(o)
	snapshot, version := s.collection.All(), s.collection.Version()
	s.mu.Unlock()

	s.save(ctx, snapshot, version)
	return o, nil
}

// Delete removes one observation.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if err := s.collection.Delete(id); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("delete %s: %w", id, err)
	}
	snapshot, version := s.collection.All(), s.collection.Version()
	s.mu.Unlock()

	s.save(ctx, snapshot, version)
	return nil
}

// Reset removes every observation and persists the empty collection. Import
// history is kept. It returns the number of observations removed.
func (s *Service) Reset(ctx context.Context) int {
	s.mu.Lock()
	n := s.collection.Clear()
	snapshot, version := s.collection.All(), s.collection.Version()
	s.mu.Unlock()

	if n > 0 {
		s.save(ctx, snapshot, version)
		s.logger.Warn("observations reset", "removed", n)
	}
	return n
}

// Import reads a CSV file, merges every accepted row and returns the full
// result, failures included. The returned error covers only problems that
// prevent parsing (busy limiter, oversized or unreadable file); row
// failures are reported in the result.
func (s *Service) Import(ctx context.Context, fileName string, r io.Reader) (ImportResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		s.metrics.RecordImportError(errors.Is(err, ErrTooManyImports))
		return ImportResult{}, err
	}
	defer s.limiter.Release()

	start := time.Now()
	logger := s.logger.With("file", fileName)

	text, err := ReadImportText(r, s.maxFileSize)
	if err != nil {
		s.metrics.RecordImportError(false)
		return ImportResult{}, err
	}

	res := s.importer.Import(text)

	s.mu.Lock()
	s.collection.Merge(res.Successful)
	snapshot, version := s.collection.All(), s.collection.Version()
	summary := ImportSummary{
		ImportID:   uuid.NewString(),
		FileName:   fileName,
		Accepted:   len(res.Successful),
		Failed:     len(res.Failed),
		Duration:   time.Since(start),
		ImportedAt: s.importer.now(),
		Source:     SourceFromContext(ctx),
		ClientIP:   ClientIPFromContext(ctx),
	}
	s.pushHistory(summary)
	s.mu.Unlock()

	if len(res.Successful) > 0 {
		s.save(ctx, snapshot, version)
	}

	s.metrics.RecordImport(res, summary.Duration)
	logger.Info("import completed",
		"import_id", summary.ImportID,
		"accepted", summary.Accepted,
		"failed", summary.Failed,
		"duration", summary.Duration,
	)
	for _, f := range res.Failed {
		logger.Debug("row rejected", "row", f.Row, "kind", f.Kind, "error", f.Error)
	}

	return res, nil
}

// Export encodes the current collection as CSV.
func (s *Service) Export(includeResult bool) string {
	return EncodeCSV(s.List(), includeResult)
}

// ApplyResults attaches analysis labels keyed by observation ID. Unknown IDs
// are ignored. It returns the number of observations updated.
func (s *Service) ApplyResults(ctx context.Context, labels map[string]string) int {
	if len(labels) == 0 {
		return 0
	}

	s.mu.Lock()
	updated := 0
	for id, label := range labels {
		o, ok := s.collection.Get(id)
		if !ok || o.Result == label {
			continue
		}
		o.Result = label
		_ = s.collection.Replace(o)
		updated++
	}
	snapshot, version := s.collection.All(), s.collection.Version()
	s.mu.Unlock()

	if updated > 0 {
		s.save(ctx, snapshot, version)
	}
	return updated
}

// History returns recent import summaries, newest first.
func (s *Service) History() []ImportSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ImportSummary, len(s.history))
	for i, h := range s.history {
		out[len(s.history)-1-i] = h
	}
	return out
}

// LimiterStatus reports import slot usage.
func (s *Service) LimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// Drain waits for in-flight imports to finish.
func (s *Service) Drain(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// pushHistory appends h, dropping the oldest entry when full.
// Caller must hold s.mu.
func (s *Service) pushHistory(h ImportSummary) {
	if len(s.history) == s.historyCap {
		copy(s.history, s.history[1:])
		s.history = s.history[:len(s.history)-1]
	}
	s.history = append(s.history, h)
}

// save persists snapshot unless a newer version was already written.
// Failures are logged and never returned.
func (s *Service) save(ctx context.Context, snapshot []Observation, version uint64) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if version <= s.savedVersion {
		return
	}
	s.metrics.SetObservations(len(snapshot))
	if err := s.store.Save(ctx, snapshot); err != nil {
		s.metrics.RecordSaveError()
		s.logger.Error("save observations failed", "count", len(snapshot), "error", err)
		return
	}
	s.savedVersion = version
}

// nopStore is used when no Store is configured.
type nopStore struct{}

func (nopStore) Load(context.Context) ([]Observation, error) {
	return nil, nil
}

func (nopStore) Save(context.Context, []Observation) error {
	return nil
}
