package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS client_storage (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLiteStorage keeps values in a single key/value table of an embedded
// SQLite database (pure-Go driver, no cgo).
type SQLiteStorage struct {
	db     *sql.DB
	owned  bool
	nowUTC func() time.Time
}

// OpenSQLiteStorage opens (or creates) the database at path and prepares the
// schema. Use ":memory:" for a throwaway database.
func OpenSQLiteStorage(ctx context.Context, path string) (*SQLiteStorage, error) {
	if path == "" {
		return nil, errors.New("sqlite storage path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	// A single connection keeps ":memory:" databases alive and serializes
	// writers, which SQLite requires anyway.
	db.SetMaxOpenConns(1)

	s, err := NewSQLiteStorage(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewSQLiteStorage prepares the schema on an existing handle. The caller keeps
// ownership of db.
func NewSQLiteStorage(ctx context.Context, db *sql.DB) (*SQLiteStorage, error) {
	if db == nil {
		return nil, errors.New("sqlite storage requires a database handle")
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("%w: create schema: %v", ErrStorageUnavailable, err)
	}
	return &SQLiteStorage{
		db:     db,
		nowUTC: func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *SQLiteStorage) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM client_storage WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return value, nil
}

func (s *SQLiteStorage) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO client_storage (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, s.nowUTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func (s *SQLiteStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM client_storage WHERE key = ?`, key); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Close closes the database when it was opened by [OpenSQLiteStorage].
func (s *SQLiteStorage) Close() error {
	if s == nil || !s.owned {
		return nil
	}
	return s.db.Close()
}
