package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-order-assistant/internal/domain"
)

// CreateActivity inserts an activity row, assigning an id and timestamp when
// missing. A second row for the same message id yields ErrDuplicate.
func CreateActivity(ctx context.Context, db *gorm.DB, a *domain.Activity) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// ActivityFilter narrows activity listings. Empty fields match everything.
type ActivityFilter struct {
	SenderID      string
	EscalatedOnly bool
}

func (f ActivityFilter) apply(q *gorm.DB) *gorm.DB {
	if f.SenderID != "" {
		q = q.Where("sender_id = ?", f.SenderID)
	}
	if f.EscalatedOnly {
		q = q.Where("escalated = ?", true)
	}
	return q
}

// CountActivity returns the number of rows matching f.
func CountActivity(ctx context.Context, db *gorm.DB, f ActivityFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.Activity{})).Count(&total).Error
	return total, err
}

// ListActivityPage returns rows newest first (CreatedAt DESC, ID DESC).
func ListActivityPage(ctx context.Context, db *gorm.DB, f ActivityFilter, offset, limit int) ([]domain.Activity, error) {
	var out []domain.Activity
	err := f.apply(db.WithContext(ctx).Model(&domain.Activity{})).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetActivityByMessage fetches the row written for messageID.
func GetActivityByMessage(ctx context.Context, db *gorm.DB, messageID string) (*domain.Activity, error) {
	var a domain.Activity
	if err := db.WithContext(ctx).Where("message_id = ?", messageID).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}
