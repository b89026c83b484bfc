// Package session owns per-sender conversation state: the Store contract
// and its memory and Redis implementations, the step state machine, the
// per-sender lock used by the intake pipeline, and the idle sweeper.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/tbourn/go-order-assistant/internal/domain"
)

var (
	// ErrNotFound is returned by Get when the sender has no live session.
	ErrNotFound = errors.New("session not found")

	// ErrSessionEvicted signals that a stored session was completed or idle
	// and has been replaced by a fresh one. Stores handle it internally.
	ErrSessionEvicted = errors.New("session evicted")
)

// DefaultIdleTTL is how long a session survives without activity.
const DefaultIdleTTL = 30 * time.Minute

// Store keeps one session per sender. Save is last-writer-wins; callers
// serialize per sender with a Locker.
type Store interface {
	// GetOrCreate returns the sender's session, creating a Greeting session
	// when none exists or the stored one is completed or idle. created
	// reports whether a new session was started.
	GetOrCreate(ctx context.Context, senderID, storeID string) (s *domain.Session, created bool, err error)
	Get(ctx context.Context, senderID string) (*domain.Session, error)
	Save(ctx context.Context, s *domain.Session) error
	Expire(ctx context.Context, senderID string) error
	// Idle lists senders whose session saw no activity since cutoff or is completed.
	Idle(ctx context.Context, cutoff time.Time) ([]string, error)
}

// checkLive returns ErrSessionEvicted when s must not be reused at now.
func checkLive(s *domain.Session, now time.Time, ttl time.Duration) error {
	if s.Step == domain.StepCompleted || s.IdleSince(now, ttl) {
		return ErrSessionEvicted
	}
	return nil
}
