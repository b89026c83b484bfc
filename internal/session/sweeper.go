package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper periodically expires idle and completed sessions. It takes the
// sender's lock before evicting so it never races an in-flight message.
type Sweeper struct {
	Store    Store
	Locker   *Locker
	TTL      time.Duration
	Interval time.Duration
	Now      func() time.Time
}

// SweepOnce runs one pass and returns how many sessions were expired.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	ids, err := s.Store.Idle(ctx, now().Add(-ttl))
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, id := range ids {
		if s.evict(ctx, id, now, ttl) {
			expired++
		}
	}
	return expired, nil
}

func (s *Sweeper) evict(ctx context.Context, senderID string, now func() time.Time, ttl time.Duration) bool {
	unlock := s.Locker.Lock(senderID)
	defer unlock()

	// Re-check under the lock: a message may have refreshed the session.
	sess, err := s.Store.Get(ctx, senderID)
	if err != nil || checkLive(sess, now(), ttl) == nil {
		return false
	}
	if err := s.Store.Expire(ctx, senderID); err != nil {
		log.Warn().Err(err).Str("sender", senderID).Msg("session: expire failed")
		return false
	}
	return true
}

// Run sweeps every Interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SweepOnce(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("session: sweep failed")
				continue
			}
			if n > 0 {
				log.Debug().Int("expired", n).Msg("session: sweep")
			}
		}
	}
}
