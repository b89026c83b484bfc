package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-order-assistant/internal/domain"
)

// ActivityStats returns the number of rows matching f and the newest
// CreatedAt among them (nil when there are none). The HTTP layer derives
// ETags from it.
func ActivityStats(ctx context.Context, db *gorm.DB, f ActivityFilter) (count int64, newest *time.Time, err error) {
	q := f.apply(db.WithContext(ctx).Model(&domain.Activity{}))
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Avoid MAX() which comes back as TEXT on SQLite.
	var row struct {
		CreatedAt time.Time
	}
	q = f.apply(db.WithContext(ctx).Model(&domain.Activity{}))
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}

// EscalationCounts groups escalated activity by intent.
func EscalationCounts(ctx context.Context, db *gorm.DB, since time.Time) (map[string]int64, error) {
	var rows []struct {
		Intent string
		N      int64
	}
	err := db.WithContext(ctx).Model(&domain.Activity{}).
		Select("intent, COUNT(*) AS n").
		Where("escalated = ? AND created_at >= ?", true, since).
		Group("intent").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Intent] = r.N
	}
	return out, nil
}
