package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tbourn/go-order-assistant/internal/domain"
	"github.com/tbourn/go-order-assistant/internal/fusion"
	"github.com/tbourn/go-order-assistant/internal/session"
)

// SessionView is a session plus the conversation-health figures derived from
// its sentiment marks.
type SessionView struct {
	Session        *domain.Session `json:"session"`
	CartTotal      float64         `json:"cart_total"`
	Trend          fusion.Trend    `json:"trend"`
	HealthScore    int             `json:"health_score"`
	QuickReplies   []string        `json:"quick_replies"`
	IdleForSeconds int64           `json:"idle_for_seconds"`
}

// SessionService lets operators look at and reset live conversations. It
// takes the sender lock so it never races the pipeline.
type SessionService struct {
	Store  session.Store
	Locker *session.Locker
	Now    func() time.Time
}

// NewSessionService wires the service to the pipeline's store and locker.
func NewSessionService(store session.Store, locker *session.Locker) *SessionService {
	return &SessionService{Store: store, Locker: locker, Now: time.Now}
}

func (s *SessionService) lock(senderID string) func() {
	if s.Locker == nil {
		return func() {}
	}
	return s.Locker.Lock(senderID)
}

// Inspect returns a snapshot of the sender's session.
func (s *SessionService) Inspect(ctx context.Context, senderID string) (*SessionView, error) {
	senderID = strings.TrimSpace(senderID)
	if senderID == "" {
		return nil, ErrInvalidSender
	}
	unlock := s.lock(senderID)
	sess, err := s.Store.Get(ctx, senderID)
	if err == nil {
		sess = sess.Clone()
	}
	unlock()
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	idle := now().Sub(sess.LastActivityAt)
	if idle < 0 {
		idle = 0
	}
	return &SessionView{
		Session:        sess,
		CartTotal:      sess.CartTotal(),
		Trend:          fusion.ConversationTrend(sess.Sentiments),
		HealthScore:    fusion.HealthScore(sess.Sentiments),
		QuickReplies:   session.QuickReplies(sess.Step),
		IdleForSeconds: int64(idle / time.Second),
	}, nil
}

// Reset discards the sender's session; the next message starts over.
func (s *SessionService) Reset(ctx context.Context, senderID string) error {
	senderID = strings.TrimSpace(senderID)
	if senderID == "" {
		return ErrInvalidSender
	}
	unlock := s.lock(senderID)
	defer unlock()

	if _, err := s.Store.Get(ctx, senderID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	return s.Store.Expire(ctx, senderID)
}
