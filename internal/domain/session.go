package domain

import (
	"errors"
	"time"
)

// Step is the conversational state of a session. Steps are ordered; the
// session only moves forward except on cancel or modify.
type Step int

const (
	StepGreeting Step = iota
	StepBrowsing
	StepOrdering
	StepConfirming
	StepCompleted
)

var stepNames = [...]string{"greeting", "browsing", "ordering", "confirming", "completed"}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return "unknown"
	}
	return stepNames[s]
}

// MarshalText renders the step by name so JSON payloads stay readable.
func (s Step) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText parses a step name.
func (s *Step) UnmarshalText(b []byte) error {
	for i, n := range stepNames {
		if n == string(b) {
			*s = Step(i)
			return nil
		}
	}
	return errors.New("unknown step " + string(b))
}

const (
	// MaxHistory bounds Session.History.
	MaxHistory = 10
	// MaxSentiments bounds Session.Sentiments.
	MaxSentiments = 20
	// MaxOffers bounds Session.Offers.
	MaxOffers = 6

	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrInvalidCartLine is returned by CartLine.Validate.
var ErrInvalidCartLine = errors.New("cart line needs quantity >= 1 and unit price >= 0")

// CartLine is one item in the customer's cart.
type CartLine struct {
	ItemID        string   `json:"item_id"`
	Name          string   `json:"name"`
	Category      string   `json:"category,omitempty"`
	UnitPrice     float64  `json:"unit_price"`
	Quantity      int      `json:"quantity"`
	Modifications []string `json:"modifications,omitempty"`
}

// Validate checks the line invariants.
func (l CartLine) Validate() error {
	if l.Quantity < 1 || l.UnitPrice < 0 {
		return ErrInvalidCartLine
	}
	return nil
}

// Subtotal is UnitPrice times Quantity.
func (l CartLine) Subtotal() float64 { return l.UnitPrice * float64(l.Quantity) }

// Turn is one entry of the conversation history.
type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// SentimentMark records the sentiment judged for one inbound message.
type SentimentMark struct {
	Sentiment  Sentiment `json:"sentiment"`
	Confidence float64   `json:"confidence"`
	Priority   int       `json:"priority"`
	Timestamp  time.Time `json:"timestamp"`
}

// Session is the per-sender conversational state.
type Session struct {
	SenderID       string          `json:"sender_id"`
	CustomerID     string          `json:"customer_id,omitempty"`
	StoreID        string          `json:"store_id,omitempty"`
	Step           Step            `json:"step"`
	Cart           []CartLine      `json:"cart"`
	History        []Turn          `json:"history"`
	Sentiments     []SentimentMark `json:"sentiments"`
	Offers         []UpsellOffer   `json:"offers,omitempty"`
	PendingOrderID string          `json:"pending_order_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	LastActivityAt time.Time       `json:"last_activity_at"`
}

// NewSession returns a fresh session in the greeting step.
func NewSession(senderID, storeID string, now time.Time) *Session {
	return &Session{
		SenderID:       senderID,
		StoreID:        storeID,
		Step:           StepGreeting,
		Cart:           []CartLine{},
		History:        []Turn{},
		Sentiments:     []SentimentMark{},
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// AppendTurn adds a history entry, evicting the oldest beyond MaxHistory.
func (s *Session) AppendTurn(role, text string, at time.Time) {
	s.History = append(s.History, Turn{Role: role, Text: text, Timestamp: at})
	if n := len(s.History); n > MaxHistory {
		s.History = append([]Turn(nil), s.History[n-MaxHistory:]...)
	}
}

// AppendSentiment adds a sentiment mark, evicting the oldest beyond MaxSentiments.
func (s *Session) AppendSentiment(m SentimentMark) {
	s.Sentiments = append(s.Sentiments, m)
	if n := len(s.Sentiments); n > MaxSentiments {
		s.Sentiments = append([]SentimentMark(nil), s.Sentiments[n-MaxSentiments:]...)
	}
}

// AppendOffers remembers offers, evicting the oldest beyond MaxOffers. An
// offer for an item already remembered replaces the older one.
func (s *Session) AppendOffers(offers ...UpsellOffer) {
	for _, o := range offers {
		kept := s.Offers[:0:0]
		for _, prev := range s.Offers {
			if prev.ItemID != o.ItemID || prev.Name != o.Name {
				kept = append(kept, prev)
			}
		}
		s.Offers = append(kept, o)
	}
	if n := len(s.Offers); n > MaxOffers {
		s.Offers = append([]UpsellOffer(nil), s.Offers[n-MaxOffers:]...)
	}
}

// CartTotal sums all line subtotals.
func (s *Session) CartTotal() float64 {
	var total float64
	for _, l := range s.Cart {
		total += l.Subtotal()
	}
	return total
}

// CartQuantity is the number of units in the cart.
func (s *Session) CartQuantity() int {
	n := 0
	for _, l := range s.Cart {
		n += l.Quantity
	}
	return n
}

// IdleSince reports whether the session has seen no activity for at least ttl.
func (s *Session) IdleSince(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.LastActivityAt) >= ttl
}

// Clone returns a deep copy so snapshots never alias store-owned slices.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Cart = make([]CartLine, len(s.Cart))
	for i, l := range s.Cart {
		l.Modifications = append([]string(nil), l.Modifications...)
		out.Cart[i] = l
	}
	out.History = append([]Turn{}, s.History...)
	out.Sentiments = append([]SentimentMark{}, s.Sentiments...)
	if s.Offers != nil {
		out.Offers = append([]UpsellOffer{}, s.Offers...)
	}
	return &out
}
