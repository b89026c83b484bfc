package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-order-assistant/internal/domain"
)

// IsProcessed reports whether a non-expired record exists for messageID.
func IsProcessed(ctx context.Context, db *gorm.DB, messageID string, now time.Time) (bool, error) {
	var rec domain.ProcessedMessage
	err := db.WithContext(ctx).
		Where("message_id = ? AND expires_at > ?", messageID, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkProcessed inserts a record for messageID valid for ttl. An expired row
// with the same id is replaced; a live one yields ErrDuplicate.
func MarkProcessed(ctx context.Context, db *gorm.DB, messageID, senderID string, ttl time.Duration, now time.Time) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ? AND expires_at <= ?", messageID, now).
			Delete(&domain.ProcessedMessage{}).Error; err != nil {
			return err
		}
		rec := &domain.ProcessedMessage{
			MessageID: messageID,
			SenderID:  senderID,
			CreatedAt: now,
			ExpiresAt: now.Add(ttl),
		}
		if err := tx.Create(rec).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return err
		}
		return nil
	})
}

// PurgeProcessed deletes expired records and returns how many were removed.
func PurgeProcessed(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.ProcessedMessage{})
	return res.RowsAffected, res.Error
}
