package dedup

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-order-assistant/internal/repo"
)

// Durable fronts the SQLite processed_messages table with a Memory cache so
// the common redelivery case never touches the database, while ids survive
// a restart for the configured retention.
type Durable struct {
	db        *gorm.DB
	front     *Memory
	retention time.Duration
	now       func() time.Time
}

// NewDurable builds a Durable cache. front may be nil.
func NewDurable(db *gorm.DB, front *Memory, retention time.Duration) *Durable {
	if front == nil {
		front = NewMemory()
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &Durable{db: db, front: front, retention: retention, now: time.Now}
}

// Seen checks the memory front first, then the table.
func (d *Durable) Seen(ctx context.Context, messageID string) (bool, error) {
	if ok, _ := d.front.Seen(ctx, messageID); ok {
		return true, nil
	}
	ok, err := repo.IsProcessed(ctx, d.db, messageID, d.now().UTC())
	if err != nil {
		return false, err
	}
	if ok {
		_ = d.front.MarkSeen(ctx, messageID, "")
	}
	return ok, nil
}

// MarkSeen writes through to both layers. A row that already exists counts
// as success.
func (d *Durable) MarkSeen(ctx context.Context, messageID, senderID string) error {
	_ = d.front.MarkSeen(ctx, messageID, senderID)
	err := repo.MarkProcessed(ctx, d.db, messageID, senderID, d.retention, d.now().UTC())
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// RunPurge deletes expired rows every interval until ctx is done.
func (d *Durable) RunPurge(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.PurgeProcessed(ctx, d.db, d.now().UTC())
			if err != nil {
				log.Warn().Err(err).Msg("dedup: purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("purged", n).Msg("dedup: expired ids removed")
			}
		}
	}
}
