package storage

import (
	"context"
	"database/sql"
)

const getEntry = `SELECT key, value, version FROM kv_entries WHERE key = ?`

const upsertEntry = `INSERT INTO kv_entries (key, value, version, updated_at)
VALUES (?, ?, 1, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET
    value = excluded.value,
    version = kv_entries.version + 1,
    updated_at = CURRENT_TIMESTAMP`

const listKeys = `SELECT key FROM kv_entries ORDER BY key`

// Entry is one row of kv_entries.
type Entry struct {
	Key     string
	Value   []byte
	Version int64
}

// Queries wraps the statements the store runs.
type Queries struct {
	db *sql.DB
}

func NewQueries(db *sql.DB) *Queries {
	return &Queries{db: db}
}

func (q *Queries) GetEntry(ctx context.Context, key string) (Entry, error) {
	var e Entry
	err := q.db.QueryRowContext(ctx, getEntry, key).Scan(&e.Key, &e.Value, &e.Version)
	return e, err
}

func (q *Queries) UpsertEntry(ctx context.Context, key string, value []byte) error {
	_, err := q.db.ExecContext(ctx, upsertEntry, key, value)
	return err
}

func (q *Queries) ListKeys(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listKeys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
