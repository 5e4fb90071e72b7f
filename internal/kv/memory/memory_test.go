package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"finbot/internal/kv"
)

func TestMemoryStoreGetPut(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	value := []byte(`{"a":1}`)
	if err := s.Put(ctx, "k", value); err != nil {
		t.Fatalf("put: %v", err)
	}
	value[0] = 'X' // caller mutation must not leak into the store

	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != `{"a":1}` {
		t.Fatalf("unexpected get: %q err=%v", got, err)
	}
}

func TestNewFromDirSeeds(t *testing.T) {
	dir := t.TempDir()
	if s := NewFromDir(filepath.Join(dir, "nope")); s == nil {
		t.Fatalf("expected empty store for missing dir")
	}

	mustWrite := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	mustWrite("financialData.json", `{"currency":"EUR"}`)
	mustWrite("notes.txt", "ignored")

	s := NewFromDir(dir)
	got, err := s.Get(context.Background(), "financialData")
	if err != nil || string(got) != `{"currency":"EUR"}` {
		t.Fatalf("unexpected seed: %q err=%v", got, err)
	}
	if _, err := s.Get(context.Background(), "notes"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("non-json file should not be seeded")
	}
}
