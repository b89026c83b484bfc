// Package domain defines the core types of the order assistant: inbound
// messages, per-customer sessions and carts, fusion verdicts and upsell
// candidates, plus the GORM models persisted by the repo layer.
package domain

import "time"

// Channel identifies the messaging provider an inbound message arrived on.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelAPI      Channel = "api"
)

// InboundMessage is a single message received from a channel webhook. It is
// never mutated after receipt; only its MessageID outlives processing.
type InboundMessage struct {
	MessageID  string    `json:"message_id" example:"wamid.HBgLNTUxMTk5OTk5"`
	SenderID   string    `json:"sender_id"  example:"+551199999"`
	StoreID    string    `json:"store_id,omitempty"`
	SenderName string    `json:"sender_name,omitempty"`
	Text       string    `json:"text"       example:"Quero uma pizza grande de calabresa"`
	ReceivedAt time.Time `json:"received_at"`
	Channel    Channel   `json:"channel"`
}
