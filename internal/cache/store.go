package cache

import (
	"context"
	"fmt"
)

// Entry is a cached per-chunk summarization result. Entries are keyed by
// the chunk's content hash, never by document or position, so identical
// chunks across runs and documents share one entry.
type Entry struct {
	Bullets []string `json:"bullets"`
	Status  string   `json:"status"`
}

// Entry status values.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Store is a content-addressed chunk summary cache. Writes are persisted
// immediately (write-through); a crash loses at most the in-flight entry.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the entry for hash, reporting whether it exists.
	Get(ctx context.Context, hash string) (Entry, bool, error)

	// Put stores the entry for hash and persists it before returning.
	Put(ctx context.Context, hash string, e Entry) error

	Close() error
}

// Open creates a Store for the configured backend.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", "file":
		return NewFileStore(path)
	case "sqlite":
		return NewSQLiteStore(path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", backend)
	}
}
