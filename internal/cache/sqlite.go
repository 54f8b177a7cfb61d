package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore backs the chunk cache with a SQLite database. Suited to
// repeated analyses over large document sets where a single JSON file
// becomes unwieldy.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite-backed cache at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS chunk_summaries (
		hash TEXT PRIMARY KEY,
		bullets JSON,
		status TEXT
	);`)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, hash string) (Entry, bool, error) {
	var bullets []byte
	var e Entry
	row := s.db.QueryRowContext(ctx,
		`SELECT bullets, status FROM chunk_summaries WHERE hash = ?`, hash)
	if err := row.Scan(&bullets, &e.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	if err := json.Unmarshal(bullets, &e.Bullets); err != nil {
		// A single corrupt row behaves like a miss.
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, hash string, e Entry) error {
	bullets, err := json.Marshal(e.Bullets)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chunk_summaries (hash, bullets, status)
		VALUES (?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET
			bullets=excluded.bullets,
			status=excluded.status
	`, hash, bullets, e.Status)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
