package memory

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"finbot/internal/kv"
)

type Store struct {
	mu    sync.Mutex
	items map[string][]byte
}

var _ kv.Store = (*Store)(nil)

func New() *Store {
	return &Store{items: make(map[string][]byte)}
}

// NewFromDir seeds the store with every *.json file in base, keyed by file
// name without extension. A missing directory yields an empty store.
func NewFromDir(base string) *Store {
	s := New()
	entries, err := os.ReadDir(base)
	if err != nil {
		return s
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(base, e.Name()))
		if err != nil {
			continue
		}
		s.items[strings.TrimSuffix(e.Name(), ".json")] = data
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = append([]byte(nil), value...)
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }
