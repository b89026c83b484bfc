package session

import "sync"

// Locker hands out one mutex per sender. Entries are reference counted and
// dropped when the last holder unlocks, so memory follows active senders.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*senderLock
}

type senderLock struct {
	mu   sync.Mutex
	refs int
}

// NewLocker returns an empty Locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*senderLock)}
}

// Lock blocks until the sender's lock is held and returns its release func.
func (l *Locker) Lock(senderID string) (unlock func()) {
	l.mu.Lock()
	sl, ok := l.locks[senderID]
	if !ok {
		sl = &senderLock{}
		l.locks[senderID] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			sl.mu.Unlock()
			l.mu.Lock()
			sl.refs--
			if sl.refs == 0 {
				delete(l.locks, senderID)
			}
			l.mu.Unlock()
		})
	}
}

// Active returns the number of senders currently holding or waiting on a lock.
func (l *Locker) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
