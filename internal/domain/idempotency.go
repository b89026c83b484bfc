package domain

import "time"

// ProcessedMessage marks a provider message id as handled. It backs the
// durable idempotency cache so redeliveries are dropped across restarts.
type ProcessedMessage struct {
	MessageID string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	SenderID  string    `gorm:"type:TEXT NOT NULL;index"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (ProcessedMessage) TableName() string { return "processed_messages" }
