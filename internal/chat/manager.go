package chat

import (
	"time"

	"finbot/internal/assistant"
	"finbot/internal/cache"
)

// Manager keeps one Session per conversation id. Idle sessions expire and
// the least recently used are dropped when the cache is full. All sessions
// share one ledger.
type Manager struct {
	sessions  *cache.LRUCache[*Session]
	ledger    Ledger
	responder assistant.Responder
	opts      []Option
}

func NewManager(l Ledger, r assistant.Responder, size int, ttl time.Duration, opts ...Option) *Manager {
	return &Manager{
		sessions:  cache.NewLRUCache[*Session](size, ttl, cache.Sliding[*Session]()),
		ledger:    l,
		responder: r,
		opts:      opts,
	}
}

// Session returns the session for id, starting one if needed. The bool
// reports whether it was created by this call.
func (m *Manager) Session(id string) (*Session, bool) {
	return m.sessions.GetOrCreate(id, func() *Session {
		return NewSession(id, m.ledger, m.responder, m.opts...)
	})
}

// Lookup returns an existing session without creating one.
func (m *Manager) Lookup(id string) (*Session, bool) {
	return m.sessions.Get(id)
}

func (m *Manager) Delete(id string) {
	m.sessions.Delete(id)
}

func (m *Manager) Len() int {
	return m.sessions.Size()
}

// Cleaner exposes the session cache to a cache.Manager.
func (m *Manager) Cleaner() cache.Cleaner {
	return m.sessions
}
