// Package store persists the observation collection.
//
// Every backend stores the whole collection as one JSON blob, read and
// written as a unit. A missing blob loads as an empty collection; a blob
// that cannot be decoded is reported as ErrCorrupt and left to the caller.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/exotransit/internal/config"
	"github.com/JonMunkholm/exotransit/internal/core"
)

// ErrCorrupt is returned when stored data cannot be decoded.
var ErrCorrupt = errors.New("stored observations are corrupt")

// Backend is a core.Store that holds resources to release on shutdown.
type Backend interface {
	core.Store
	Close() error
}

// Open connects the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Backend, error) {
	backend := strings.ToLower(cfg.Backend)

	var (
		b   Backend
		err error
	)
	switch backend {
	case config.BackendFile:
		b = NewFileStore(cfg.FilePath)
	case config.BackendMemory:
		b = NewMemoryStore()
	case config.BackendPostgres:
		b, err = NewPostgresStore(ctx, cfg.DatabaseURL, cfg.Key)
	case config.BackendRedis:
		b, err = NewRedisStore(ctx, cfg.RedisURL, cfg.Key)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", backend, err)
	}

	logger.Info("storage opened", "backend", backend)
	return b, nil
}

// encode renders the collection as the stored JSON blob.
func encode(records []core.Observation) ([]byte, error) {
	if records == nil {
		records = []core.Observation{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode observations: %w", err)
	}
	return data, nil
}

// decode parses a stored blob. Empty input is an empty collection.
func decode(data []byte) ([]core.Observation, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var records []core.Observation
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return records, nil
}
