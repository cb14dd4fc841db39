package store

import (
	"context"
	"sync"

	"github.com/JonMunkholm/exotransit/internal/core"
)

// MemoryStore keeps the encoded collection in process memory. Records go
// through the same JSON encoding as the other backends.
type MemoryStore struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) ([]core.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return decode(s.data)
}

func (s *MemoryStore) Save(ctx context.Context, records []core.Observation) error {
	data, err := encode(records)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }
