package channel

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/go-order-assistant/internal/domain"
)

// ErrMalformedWebhook is returned for a body that is not a webhook envelope.
var ErrMalformedWebhook = errors.New("channel: malformed webhook payload")

type webhookEnvelope struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string       `json:"field"`
			Value webhookValue `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type webhookValue struct {
	Metadata struct {
		PhoneNumberID string `json:"phone_number_id"`
	} `json:"metadata"`
	Contacts []struct {
		WaID    string `json:"wa_id"`
		Profile struct {
			Name string `json:"name"`
		} `json:"profile"`
	} `json:"contacts"`
	Messages []webhookMessage `json:"messages"`
}

type webhookMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      struct {
		Body string `json:"body"`
	} `json:"text"`
	Button struct {
		Text string `json:"text"`
	} `json:"button"`
	Interactive struct {
		ButtonReply struct {
			Title string `json:"title"`
		} `json:"button_reply"`
		ListReply struct {
			Title string `json:"title"`
		} `json:"list_reply"`
	} `json:"interactive"`
	Image struct {
		Caption string `json:"caption"`
	} `json:"image"`
	Document struct {
		Caption string `json:"caption"`
	} `json:"document"`
}

// Delivery is a decoded webhook body.
type Delivery struct {
	Messages []domain.InboundMessage
	// Skipped counts messages with nothing to read (audio, stickers,
	// captionless media). Status callbacks are not counted.
	Skipped int
}

// ParseWebhook decodes a Cloud API webhook body. storeID is stamped on every
// message; now stands in for a missing or unparsable timestamp.
func ParseWebhook(body []byte, storeID string, now time.Time) (Delivery, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Delivery{}, ErrMalformedWebhook
	}
	if env.Object != "" && env.Object != "whatsapp_business_account" {
		return Delivery{}, ErrMalformedWebhook
	}

	var d Delivery
	for _, e := range env.Entry {
		for _, ch := range e.Changes {
			if ch.Field != "" && ch.Field != "messages" {
				continue
			}
			names := make(map[string]string, len(ch.Value.Contacts))
			for _, c := range ch.Value.Contacts {
				names[c.WaID] = c.Profile.Name
			}
			for _, m := range ch.Value.Messages {
				text := strings.TrimSpace(messageText(m))
				if text == "" || m.ID == "" || m.From == "" {
					d.Skipped++
					continue
				}
				d.Messages = append(d.Messages, domain.InboundMessage{
					MessageID:  m.ID,
					SenderID:   m.From,
					StoreID:    storeID,
					SenderName: names[m.From],
					Text:       text,
					ReceivedAt: unixOr(m.Timestamp, now),
					Channel:    domain.ChannelWhatsApp,
				})
			}
		}
	}
	return d, nil
}

func messageText(m webhookMessage) string {
	switch m.Type {
	case "text":
		return m.Text.Body
	case "button":
		return m.Button.Text
	case "interactive":
		if t := m.Interactive.ButtonReply.Title; t != "" {
			return t
		}
		return m.Interactive.ListReply.Title
	case "image":
		return m.Image.Caption
	case "document":
		return m.Document.Caption
	}
	return ""
}

func unixOr(ts string, now time.Time) time.Time {
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || sec <= 0 {
		return now.UTC()
	}
	return time.Unix(sec, 0).UTC()
}
