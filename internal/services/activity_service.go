package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-order-assistant/internal/domain"
	"github.com/tbourn/go-order-assistant/internal/repo"
)

// ActivityService reads and writes the analytics log. It is the pipeline's
// ActivityRecorder.
type ActivityService struct {
	DB *gorm.DB
	// MaxReplyRunes clips the stored reply text. Zero keeps it whole.
	MaxReplyRunes int
}

// NewActivityService keeps replies up to 2000 runes.
func NewActivityService(db *gorm.DB) *ActivityService {
	return &ActivityService{DB: db, MaxReplyRunes: 2000}
}

// RecordActivity stores a. A row for the same message id already present is
// reported as repo.ErrDuplicate.
func (s *ActivityService) RecordActivity(ctx context.Context, a *domain.Activity) error {
	ctx, span := otel.Tracer("services/ActivityService").Start(ctx, "RecordActivity",
		trace.WithAttributes(
			attribute.String("message.id", a.MessageID),
			attribute.Bool("escalated", a.Escalated),
		),
	)
	defer span.End()

	if s.MaxReplyRunes > 0 {
		if r := []rune(a.Reply); len(r) > s.MaxReplyRunes {
			a.Reply = string(r[:s.MaxReplyRunes])
		}
	}
	if err := repo.CreateActivity(ctx, s.DB, a); err != nil {
		if !errors.Is(err, repo.ErrDuplicate) {
			span.RecordError(err)
			log.Error().Err(err).Str("message_id", a.MessageID).Msg("record activity")
		}
		return err
	}
	return nil
}

// ListPage returns one page of the log, newest first, plus the total count.
func (s *ActivityService) ListPage(ctx context.Context, f repo.ActivityFilter, page, pageSize int) ([]domain.Activity, int64, error) {
	ctx, span := otel.Tracer("services/ActivityService").Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
			attribute.Bool("escalated_only", f.EscalatedOnly),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	f.SenderID = strings.TrimSpace(f.SenderID)

	total, err := repo.CountActivity(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Activity{}, 0, nil
	}
	items, err := repo.ListActivityPage(ctx, s.DB, f, (page-1)*pageSize, pageSize)
	return items, total, err
}

// Stats returns the row count and newest timestamp for f; handlers build
// ETags from it.
func (s *ActivityService) Stats(ctx context.Context, f repo.ActivityFilter) (int64, *time.Time, error) {
	return repo.ActivityStats(ctx, s.DB, f)
}

// ByMessage returns the row recorded for messageID.
func (s *ActivityService) ByMessage(ctx context.Context, messageID string) (*domain.Activity, error) {
	a, err := repo.GetActivityByMessage(ctx, s.DB, messageID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrActivityNotFound
	}
	return a, err
}

// Escalations counts escalated messages per intent since the given time.
func (s *ActivityService) Escalations(ctx context.Context, since time.Time) (map[string]int64, error) {
	return repo.EscalationCounts(ctx, s.DB, since)
}
