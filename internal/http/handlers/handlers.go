// Package handlers implements the HTTP endpoints: the WhatsApp webhook, the
// direct intake API and the admin views over sessions and activity.
//
// Handlers only validate input and translate results; the work happens in
// the pipeline and the services.
package handlers

import (
	"context"
	"time"

	"github.com/tbourn/go-order-assistant/internal/domain"
	"github.com/tbourn/go-order-assistant/internal/pipeline"
	"github.com/tbourn/go-order-assistant/internal/repo"
	"github.com/tbourn/go-order-assistant/internal/services"
)

// Processor runs one inbound message through the assistant.
type Processor interface {
	Process(ctx context.Context, msg domain.InboundMessage) (*pipeline.Result, error)
}

// ActivityService reads the analytics log.
type ActivityService interface {
	ListPage(ctx context.Context, f repo.ActivityFilter, page, pageSize int) ([]domain.Activity, int64, error)
	Stats(ctx context.Context, f repo.ActivityFilter) (int64, *time.Time, error)
	ByMessage(ctx context.Context, messageID string) (*domain.Activity, error)
	Escalations(ctx context.Context, since time.Time) (map[string]int64, error)
}

// SessionService inspects and resets live sessions.
type SessionService interface {
	Inspect(ctx context.Context, senderID string) (*services.SessionView, error)
	Reset(ctx context.Context, senderID string) error
}

// ReadMarker acknowledges inbound channel messages as read.
type ReadMarker interface {
	MarkRead(ctx context.Context, messageID string) error
}

// DefaultReadTimeout bounds one read receipt.
const DefaultReadTimeout = 5 * time.Second

// Handlers groups the endpoints. Build it with New.
type Handlers struct {
	proc     Processor
	activity ActivityService
	sessions SessionService
	reads    ReadMarker

	verifyToken  string
	storeID      string
	maxTextRunes int
	readTimeout  time.Duration
	now          func() time.Time
}

// Option configures Handlers.
type Option func(*Handlers)

// WithVerifyToken sets the token Meta echoes during webhook verification.
// Without one every verification attempt is refused.
func WithVerifyToken(tok string) Option { return func(h *Handlers) { h.verifyToken = tok } }

// WithStoreID is the store stamped on webhook messages lacking X-Store-ID.
func WithStoreID(id string) Option { return func(h *Handlers) { h.storeID = id } }

// WithMaxTextRunes caps message text on the intake API (default 4096).
func WithMaxTextRunes(n int) Option {
	return func(h *Handlers) {
		if n > 0 {
			h.maxTextRunes = n
		}
	}
}

// WithReadMarker sends a read receipt for every webhook message the
// assistant handled. timeout <= 0 means DefaultReadTimeout.
func WithReadMarker(m ReadMarker, timeout time.Duration) Option {
	return func(h *Handlers) {
		h.reads = m
		if timeout > 0 {
			h.readTimeout = timeout
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(h *Handlers) { h.now = now } }

// New binds the handlers to their services.
func New(proc Processor, activity ActivityService, sessions SessionService, opts ...Option) *Handlers {
	h := &Handlers{
		proc:         proc,
		activity:     activity,
		sessions:     sessions,
		maxTextRunes: 4096,
		readTimeout:  DefaultReadTimeout,
		now:          time.Now,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}
