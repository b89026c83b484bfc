// Package channel speaks the WhatsApp Cloud API: it sends replies and
// decodes webhook deliveries into inbound messages.
package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultBaseURL    = "https://graph.facebook.com"
	DefaultAPIVersion = "v18.0"

	// Cloud API limits for reply buttons.
	MaxButtons     = 3
	MaxButtonTitle = 20
)

var (
	// ErrSend wraps every failed delivery.
	ErrSend = errors.New("channel: send failed")
	// ErrEmptyReply is returned for a reply with no text.
	ErrEmptyReply = errors.New("channel: empty reply")
)

// Reply is what the assistant sends back. Up to MaxButtons quick replies are
// rendered as reply buttons; extra ones are dropped.
type Reply struct {
	Text         string
	QuickReplies []string
}

type Config struct {
	BaseURL       string
	APIVersion    string
	PhoneNumberID string
	Token         string
	Timeout       time.Duration
}

// WhatsApp is safe for concurrent use.
type WhatsApp struct {
	endpoint string
	token    string
	http     *http.Client
}

func NewWhatsApp(cfg Config) *WhatsApp {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	version := cfg.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WhatsApp{
		endpoint: fmt.Sprintf("%s/%s/%s/messages", base, version, cfg.PhoneNumberID),
		token:    cfg.Token,
		// The transport injects trace context into every Graph API call.
		http: &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

type textBody struct {
	Body string `json:"body"`
}

type button struct {
	Type  string `json:"type"`
	Reply struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"reply"`
}

type interactive struct {
	Type   string   `json:"type"`
	Body   textBody `json:"body"`
	Action struct {
		Buttons []button `json:"buttons"`
	} `json:"action"`
}

type outbound struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type,omitempty"`
	To               string       `json:"to,omitempty"`
	Type             string       `json:"type,omitempty"`
	Text             *textBody    `json:"text,omitempty"`
	Interactive      *interactive `json:"interactive,omitempty"`
	Status           string       `json:"status,omitempty"`
	MessageID        string       `json:"message_id,omitempty"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendReply delivers r to the recipient and returns the provider message id.
func (w *WhatsApp) SendReply(ctx context.Context, to string, r Reply) (string, error) {
	if strings.TrimSpace(r.Text) == "" {
		return "", ErrEmptyReply
	}
	ctx, span := otel.Tracer("channel/WhatsApp").Start(ctx, "SendReply",
		trace.WithAttributes(attribute.Int("buttons", len(r.QuickReplies))),
	)
	defer span.End()

	msg := BuildMessage(to, r)
	var out sendResponse
	if err := w.post(ctx, msg, &out); err != nil {
		span.RecordError(err)
		return "", err
	}
	if len(out.Messages) == 0 || out.Messages[0].ID == "" {
		return "", fmt.Errorf("%w: response carried no message id", ErrSend)
	}
	return out.Messages[0].ID, nil
}

// MarkRead flags an inbound message as read.
func (w *WhatsApp) MarkRead(ctx context.Context, messageID string) error {
	ctx, span := otel.Tracer("channel/WhatsApp").Start(ctx, "MarkRead",
		trace.WithAttributes(attribute.String("message.id", messageID)),
	)
	defer span.End()

	if err := w.post(ctx, outbound{MessagingProduct: "whatsapp", Status: "read", MessageID: messageID}, nil); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// BuildMessage renders a reply as a text or interactive-button message.
func BuildMessage(to string, r Reply) outbound {
	msg := outbound{MessagingProduct: "whatsapp", RecipientType: "individual", To: to}
	titles := buttonTitles(r.QuickReplies)
	if len(titles) == 0 {
		msg.Type = "text"
		msg.Text = &textBody{Body: r.Text}
		return msg
	}

	in := &interactive{Type: "button", Body: textBody{Body: r.Text}}
	for i, t := range titles {
		var b button
		b.Type = "reply"
		b.Reply.ID = fmt.Sprintf("qr_%d", i+1)
		b.Reply.Title = t
		in.Action.Buttons = append(in.Action.Buttons, b)
	}
	msg.Type = "interactive"
	msg.Interactive = in
	return msg
}

func buttonTitles(opts []string) []string {
	out := make([]string, 0, MaxButtons)
	seen := map[string]bool{}
	for _, o := range opts {
		o = truncateRunes(strings.TrimSpace(o), MaxButtonTitle)
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
		if len(out) == MaxButtons {
			break
		}
	}
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}

func (w *WhatsApp) post(ctx context.Context, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.token)

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%w: %s: %s", ErrSend, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrSend, err)
	}
	return nil
}
