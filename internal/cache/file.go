package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists the cache as a single JSON file mapping
// hash -> {bullets, status}. Every Put rewrites the file through a
// temp-file rename, so readers never observe a half-written store.
type FileStore struct {
	mu      sync.Mutex
	path    string
	entries map[string]Entry
	log     *slog.Logger
}

// NewFileStore opens (or creates) the store at path. An unreadable or
// corrupt file is treated as an empty cache, never as a fatal error.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:    path,
		entries: make(map[string]Entry),
		log:     slog.Default(),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		s.log.Warn("cache.open.unreadable", "path", path, "error", err)
		return s, nil
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		s.log.Warn("cache.open.corrupt", "path", path, "error", err)
		s.entries = make(map[string]Entry)
	}
	return s, nil
}

func (s *FileStore) Get(ctx context.Context, hash string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[hash]
	return e, ok, nil
}

func (s *FileStore) Put(ctx context.Context, hash string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[hash] = e
	return s.flushLocked()
}

func (s *FileStore) Close() error {
	return nil
}

// flushLocked writes the whole map atomically. Caller holds s.mu.
func (s *FileStore) flushLocked() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".cache-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
