package session

import (
	"context"
	"sync"
	"time"

	"github.com/tbourn/go-order-assistant/internal/domain"
)

// MemoryStore keeps sessions in process. Values are copied on the way in
// and out so callers never share slices with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore returns a store evicting sessions idle for ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	return &MemoryStore{sessions: make(map[string]*domain.Session), ttl: ttl, now: time.Now}
}

// WithClock replaces time.Now; intended for tests.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

func (m *MemoryStore) GetOrCreate(_ context.Context, senderID, storeID string) (*domain.Session, bool, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[senderID]; ok {
		if checkLive(s, now, m.ttl) == nil {
			return s.Clone(), false, nil
		}
		delete(m.sessions, senderID)
	}
	s := domain.NewSession(senderID, storeID, now)
	m.sessions[senderID] = s
	return s.Clone(), true, nil
}

func (m *MemoryStore) Get(_ context.Context, senderID string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[senderID]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	m.sessions[s.SenderID] = s.Clone()
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Expire(_ context.Context, senderID string) error {
	m.mu.Lock()
	delete(m.sessions, senderID)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Idle(_ context.Context, cutoff time.Time) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for id, s := range m.sessions {
		if s.Step == domain.StepCompleted || !s.LastActivityAt.After(cutoff) {
			out = append(out, id)
		}
	}
	return out, nil
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
