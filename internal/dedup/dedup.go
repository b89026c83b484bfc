// Package dedup implements the idempotency cache that drops redelivered
// webhook messages. Providers deliver at least once, so seeing the same
// message id twice is normal and is answered with a no-op.
package dedup

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Cache remembers processed message ids.
type Cache interface {
	Seen(ctx context.Context, messageID string) (bool, error)
	MarkSeen(ctx context.Context, messageID, senderID string) error
}

// Option configures a Memory cache.
type Option func(*Memory)

// WithMaxEntries sets the size ceiling. Values < 1 are ignored.
func WithMaxEntries(n int) Option {
	return func(m *Memory) {
		if n > 0 {
			m.max = n
		}
	}
}

// WithEvictBatch evicts n oldest entries at once when the ceiling is crossed
// instead of exactly the overflow.
func WithEvictBatch(n int) Option {
	return func(m *Memory) {
		if n > 0 {
			m.batch = n
		}
	}
}

// WithRetention forgets ids older than d even when the ceiling is not reached.
func WithRetention(d time.Duration) Option {
	return func(m *Memory) {
		if d > 0 {
			m.retention = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

type entry struct {
	id string
	at time.Time
}

// Memory is a bounded in-process cache. Entries leave in insertion order
// once the ceiling is exceeded; a lookup never refreshes an entry.
type Memory struct {
	mu        sync.Mutex
	max       int
	batch     int
	retention time.Duration
	now       func() time.Time

	byID  map[string]*list.Element
	order *list.List // front = oldest
}

// NewMemory returns a cache holding at most 1000 ids unless configured.
func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		max:   1000,
		batch: 1,
		now:   time.Now,
		byID:  make(map[string]*list.Element),
		order: list.New(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Seen reports whether messageID was marked and is still retained.
func (m *Memory) Seen(_ context.Context, messageID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.byID[messageID]
	if !ok {
		return false, nil
	}
	if m.expired(el.Value.(entry), m.now()) {
		m.remove(el)
		return false, nil
	}
	return true, nil
}

// MarkSeen records messageID. Marking an id twice keeps its first timestamp.
func (m *Memory) MarkSeen(_ context.Context, messageID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.dropExpired(now)
	if _, ok := m.byID[messageID]; ok {
		return nil
	}
	m.byID[messageID] = m.order.PushBack(entry{id: messageID, at: now})
	if m.order.Len() > m.max {
		n := m.order.Len() - m.max
		if n < m.batch {
			n = m.batch
		}
		for i := 0; i < n && m.order.Len() > 0; i++ {
			m.remove(m.order.Front())
		}
	}
	return nil
}

// Len returns the number of retained ids.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

func (m *Memory) expired(e entry, now time.Time) bool {
	return m.retention > 0 && now.Sub(e.at) >= m.retention
}

func (m *Memory) dropExpired(now time.Time) {
	for el := m.order.Front(); el != nil; el = m.order.Front() {
		if !m.expired(el.Value.(entry), now) {
			return
		}
		m.remove(el)
	}
}

func (m *Memory) remove(el *list.Element) {
	delete(m.byID, el.Value.(entry).id)
	m.order.Remove(el)
}
