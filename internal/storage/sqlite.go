// Package storage persists key-value blobs in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"finbot/internal/kv"
	"finbot/internal/log"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
}

var _ kv.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// applies migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{
		db:      db,
		queries: NewQueries(db),
		logger:  log.NewLogger(log.ComponentStorage),
	}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	e, err := s.queries.GetEntry(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry %s: %w", key, err)
	}
	return e.Value, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.queries.UpsertEntry(ctx, key, value); err != nil {
		return fmt.Errorf("upsert entry %s: %w", key, err)
	}
	s.logger.DebugContext(ctx, "Entry saved", "key", key, "bytes", len(value))
	return nil
}

// Version returns how many times key has been written.
func (s *SQLiteStore) Version(ctx context.Context, key string) (int64, error) {
	e, err := s.queries.GetEntry(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, kv.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get entry %s: %w", key, err)
	}
	return e.Version, nil
}

// Keys lists stored keys in order.
func (s *SQLiteStore) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.queries.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
