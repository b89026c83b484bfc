package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tbourn/go-order-assistant/internal/domain"
)

const defaultKeyPrefix = "assistant:session:"

// RedisStore keeps sessions as JSON values whose key TTL equals the idle
// window, so Redis itself expires abandoned conversations.
type RedisStore struct {
	rdb    redis.UniversalClient
	ttl    time.Duration
	prefix string
	now    func() time.Time
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb redis.UniversalClient, ttl time.Duration, prefix string) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{rdb: rdb, ttl: ttl, prefix: prefix, now: time.Now}
}

func (r *RedisStore) key(senderID string) string { return r.prefix + senderID }

func (r *RedisStore) load(ctx context.Context, senderID string) (*domain.Session, error) {
	raw, err := r.rdb.Get(ctx, r.key(senderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: redis get: %w", err)
	}
	var s domain.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("session: decode %s: %w", senderID, err)
	}
	return &s, nil
}

func (r *RedisStore) GetOrCreate(ctx context.Context, senderID, storeID string) (*domain.Session, bool, error) {
	now := r.now()
	s, err := r.load(ctx, senderID)
	switch {
	case err == nil:
		if checkLive(s, now, r.ttl) == nil {
			return s, false, nil
		}
	case !errors.Is(err, ErrNotFound):
		return nil, false, err
	}
	fresh := domain.NewSession(senderID, storeID, now)
	if err := r.Save(ctx, fresh); err != nil {
		return nil, false, err
	}
	return fresh, true, nil
}

func (r *RedisStore) Get(ctx context.Context, senderID string) (*domain.Session, error) {
	return r.load(ctx, senderID)
}

func (r *RedisStore) Save(ctx context.Context, s *domain.Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key(s.SenderID), b, r.ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

func (r *RedisStore) Expire(ctx context.Context, senderID string) error {
	if err := r.rdb.Del(ctx, r.key(senderID)).Err(); err != nil {
		return fmt.Errorf("session: redis del: %w", err)
	}
	return nil
}

// Idle only reports completed sessions; idle ones are expired by Redis.
func (r *RedisStore) Idle(ctx context.Context, _ time.Time) ([]string, error) {
	var out []string
	iter := r.rdb.Scan(ctx, 0, r.prefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		id := iter.Val()[len(r.prefix):]
		s, err := r.load(ctx, id)
		if err != nil {
			continue
		}
		if s.Step == domain.StepCompleted {
			out = append(out, id)
		}
	}
	return out, iter.Err()
}
