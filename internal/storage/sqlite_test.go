package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"finbot/internal/kv"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "finbot.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "financialData"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Put(ctx, "financialData", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, "financialData", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get(ctx, "financialData")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `{"v":2}` {
		t.Fatalf("got %q", got)
	}

	v, err := s.Version(ctx, "financialData")
	if err != nil || v != 2 {
		t.Fatalf("version = %d err=%v, want 2", v, err)
	}

	keys, err := s.Keys(ctx)
	if err != nil || len(keys) != 1 || keys[0] != "financialData" {
		t.Fatalf("keys = %v err=%v", keys, err)
	}

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finbot.db")
	for i := 0; i < 2; i++ {
		s, err := NewSQLiteStore(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		s.Close()
	}
}
