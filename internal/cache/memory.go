package cache

import (
	"context"
	"sync"
)

// MemoryStore is a non-persistent Store used in tests and one-shot runs.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(ctx context.Context, hash string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[hash]
	return e, ok, nil
}

func (s *MemoryStore) Put(ctx context.Context, hash string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[hash] = e
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
