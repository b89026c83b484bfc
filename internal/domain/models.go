package domain

import "time"

// Activity is the analytics record written for every processed message.
// Rows are append-only and feed the admin activity listing.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - MessageID: provider message id of the inbound message (unique).
//   - SenderID / StoreID: who wrote and to which store (indexed for listing).
//   - Intent, Sentiment, Urgency, Priority: the fusion verdict summary.
//   - Step: session step after the message was applied.
//   - Escalated: the verdict asked for a human follow-up.
//   - Degraded: the detailed sentiment estimator was unavailable.
//   - Reply / ReplyID: what was sent back and the channel's id for it.
//   - SendError: set when the reply could not be delivered.
//   - Suggestions: number of upsell offers attached to the reply.
//   - UpsellsAccepted: earlier offers the customer ordered with this message.
type Activity struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	MessageID   string    `json:"message_id"   gorm:"type:varchar(128);not null;uniqueIndex"`
	SenderID    string    `json:"sender_id"    gorm:"type:varchar(64);not null;index:idx_activity_sender,priority:1"`
	StoreID     string    `json:"store_id"     gorm:"type:varchar(64)"`
	Intent      string    `json:"intent"       gorm:"type:varchar(32);not null"`
	Sentiment   string    `json:"sentiment"    gorm:"type:varchar(16);not null"`
	Urgency     string    `json:"urgency"      gorm:"type:varchar(16);not null"`
	Priority    int       `json:"priority"     gorm:"not null;check:priority BETWEEN 1 AND 10"`
	Step        string    `json:"step"         gorm:"type:varchar(16);not null"`
	Escalated   bool      `json:"escalated"    gorm:"not null;default:false"`
	Degraded    bool      `json:"degraded"     gorm:"not null;default:false"`
	Reply       string    `json:"reply"        gorm:"type:text"`
	ReplyID     string    `json:"reply_id,omitempty"   gorm:"type:varchar(128)"`
	SendError   string    `json:"send_error,omitempty" gorm:"type:text"`
	Suggestions int       `json:"suggestions"  gorm:"not null;default:0"`

	UpsellsAccepted int       `json:"upsells_accepted" gorm:"not null;default:0"`
	CreatedAt       time.Time `json:"created_at"       gorm:"index:idx_activity_sender,priority:2"`
}

// TableName returns the database table name for Activity.
func (Activity) TableName() string { return "activity" }
