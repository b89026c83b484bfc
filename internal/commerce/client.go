// Package commerce talks to the store backend: customer context, menus,
// order submission and sentiment alerts.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-order-assistant/internal/domain"
)

var (
	ErrNotFound    = errors.New("commerce: not found")
	ErrUnavailable = errors.New("commerce: backend unavailable")
	ErrEmptyOrder  = errors.New("commerce: order has no items")
	ErrMalformed   = errors.New("commerce: malformed response")
)

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("commerce: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// Unwrap classifies 404 as ErrNotFound and 5xx as ErrUnavailable.
func (e *StatusError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode >= 500:
		return ErrUnavailable
	}
	return nil
}

// Namespace for deterministic order idempotency keys.
var orderNamespace = uuid.MustParse("8f9f0a4e-5c1d-4b83-9a55-1c7f0b7e2d10")

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	MenuTTL time.Duration
}

type cachedMenu struct {
	items   []domain.MenuItem
	fetched time.Time
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	menuTTL time.Duration
	now     func() time.Time

	mu    sync.Mutex
	menus map[string]cachedMenu
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ttl := cfg.MenuTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		menuTTL: ttl,
		now:     time.Now,
		menus:   map[string]cachedMenu{},
	}
}

// FetchCustomerContext returns what the backend knows about the sender.
func (c *Client) FetchCustomerContext(ctx context.Context, senderID string) (*domain.CustomerContext, error) {
	ctx, span := otel.Tracer("commerce/Client").Start(ctx, "FetchCustomerContext",
		trace.WithAttributes(attribute.String("sender", senderID)),
	)
	defer span.End()

	var out domain.CustomerContext
	if err := c.do(ctx, http.MethodGet, "/api/customers/"+url.PathEscape(senderID)+"/context", nil, nil, &out); err != nil {
		return nil, err
	}
	if out.CustomerID == "" {
		out.CustomerID = senderID
	}
	return &out, nil
}

type menuResponse struct {
	Items []domain.MenuItem `json:"items"`
}

// FetchMenu returns the store menu, cached for the configured TTL. When a
// refresh fails and a stale copy exists, the stale copy is served.
func (c *Client) FetchMenu(ctx context.Context, storeID string) ([]domain.MenuItem, error) {
	now := c.now()
	c.mu.Lock()
	cached, ok := c.menus[storeID]
	c.mu.Unlock()
	if ok && now.Sub(cached.fetched) < c.menuTTL {
		return cached.items, nil
	}

	ctx, span := otel.Tracer("commerce/Client").Start(ctx, "FetchMenu",
		trace.WithAttributes(attribute.String("store", storeID)),
	)
	defer span.End()

	var out menuResponse
	if err := c.do(ctx, http.MethodGet, "/api/stores/"+url.PathEscape(storeID)+"/menu", nil, nil, &out); err != nil {
		if ok {
			log.Warn().Err(err).Str("store", storeID).Msg("menu refresh failed, serving stale copy")
			return cached.items, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.menus[storeID] = cachedMenu{items: out.Items, fetched: now}
	c.mu.Unlock()
	return out.Items, nil
}

type orderLine struct {
	ItemID        string   `json:"item_id"`
	Name          string   `json:"name"`
	Quantity      int      `json:"quantity"`
	UnitPrice     float64  `json:"unit_price"`
	Modifications []string `json:"modifications,omitempty"`
}

type orderRequest struct {
	CustomerID string      `json:"customer_id"`
	StoreID    string      `json:"store_id"`
	Phone      string      `json:"phone"`
	Items      []orderLine `json:"items"`
	Total      float64     `json:"total"`
	Source     string      `json:"source"`
}

type orderResponse struct {
	OrderID string `json:"order_id"`
}

// FinalizeOrder submits the session's cart. The idempotency key is derived
// from the session, so a resubmission of the same session is recognized by
// the backend.
func (c *Client) FinalizeOrder(ctx context.Context, s *domain.Session) (string, error) {
	if s == nil || len(s.Cart) == 0 {
		return "", ErrEmptyOrder
	}
	ctx, span := otel.Tracer("commerce/Client").Start(ctx, "FinalizeOrder",
		trace.WithAttributes(
			attribute.String("sender", s.SenderID),
			attribute.Int("items", len(s.Cart)),
		),
	)
	defer span.End()

	req := orderRequest{
		CustomerID: s.CustomerID,
		StoreID:    s.StoreID,
		Phone:      s.SenderID,
		Total:      s.CartTotal(),
		Source:     "whatsapp",
	}
	for _, l := range s.Cart {
		req.Items = append(req.Items, orderLine{
			ItemID: l.ItemID, Name: l.Name, Quantity: l.Quantity,
			UnitPrice: l.UnitPrice, Modifications: l.Modifications,
		})
	}
	key := uuid.NewSHA1(orderNamespace, []byte(s.SenderID+"|"+s.CreatedAt.UTC().Format(time.RFC3339Nano))).String()

	var out orderResponse
	if err := c.do(ctx, http.MethodPost, "/api/orders", req, http.Header{"Idempotency-Key": {key}}, &out); err != nil {
		return "", err
	}
	if out.OrderID == "" {
		return "", ErrMalformed
	}
	span.SetAttributes(attribute.String("order.id", out.OrderID))
	return out.OrderID, nil
}

// Alert notifies the backend about an unhappy customer.
type Alert struct {
	CustomerID string    `json:"customer_id"`
	SenderID   string    `json:"sender_id"`
	Sentiment  string    `json:"sentiment"`
	Priority   int       `json:"priority"`
	Urgency    string    `json:"urgency"`
	Severity   string    `json:"severity"`
	KeyIssues  []string  `json:"key_issues,omitempty"`
	Message    string    `json:"message"`
	Escalate   bool      `json:"escalation_needed"`
	At         time.Time `json:"timestamp"`
}

// SendAlert posts a sentiment alert.
func (c *Client) SendAlert(ctx context.Context, a Alert) error {
	ctx, span := otel.Tracer("commerce/Client").Start(ctx, "SendAlert",
		trace.WithAttributes(attribute.String("severity", a.Severity)),
	)
	defer span.End()
	return c.do(ctx, http.MethodPost, "/api/alerts/sentiment", a, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, hdr http.Header, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &StatusError{StatusCode: resp.StatusCode, URL: req.URL.String(), Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
