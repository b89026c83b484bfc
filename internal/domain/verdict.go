package domain

import (
	"errors"
	"strings"
)

// Intent is the closed set of customer intents the assistant understands.
type Intent string

const (
	IntentGreeting       Intent = "greeting"
	IntentMenuInquiry    Intent = "menu_inquiry"
	IntentOrderRequest   Intent = "order_request"
	IntentRemoveItem     Intent = "remove_item"
	IntentConfirmOrder   Intent = "confirm_order"
	IntentCancelOrder    Intent = "cancel_order"
	IntentModifyOrder    Intent = "modify_order"
	IntentOrderStatus    Intent = "order_status"
	IntentDeliveryInfo   Intent = "delivery_info"
	IntentPaymentInfo    Intent = "payment_info"
	IntentComplaint      Intent = "complaint"
	IntentRecommendation Intent = "recommendation"
	IntentThanks         Intent = "thanks"
	IntentGoodbye        Intent = "goodbye"
	IntentUnknown        Intent = "unknown"
)

// Intents lists every known intent except unknown, in tie-break order.
var Intents = []Intent{
	IntentOrderRequest,
	IntentRemoveItem,
	IntentConfirmOrder,
	IntentCancelOrder,
	IntentModifyOrder,
	IntentMenuInquiry,
	IntentOrderStatus,
	IntentDeliveryInfo,
	IntentPaymentInfo,
	IntentComplaint,
	IntentRecommendation,
	IntentGreeting,
	IntentThanks,
	IntentGoodbye,
}

// ParseIntent maps a label onto the closed set; anything else is unknown.
func ParseIntent(s string) Intent {
	in := Intent(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Intents {
		if in == known {
			return in
		}
	}
	return IntentUnknown
}

// Sentiment is a five-level ordinal from very negative to very positive.
type Sentiment int

const (
	SentimentVeryNegative Sentiment = -2
	SentimentNegative     Sentiment = -1
	SentimentNeutral      Sentiment = 0
	SentimentPositive     Sentiment = 1
	SentimentVeryPositive Sentiment = 2
)

var sentimentNames = map[Sentiment]string{
	SentimentVeryNegative: "very_negative",
	SentimentNegative:     "negative",
	SentimentNeutral:      "neutral",
	SentimentPositive:     "positive",
	SentimentVeryPositive: "very_positive",
}

func (s Sentiment) String() string {
	if n, ok := sentimentNames[s]; ok {
		return n
	}
	return "neutral"
}

func (s Sentiment) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Sentiment) UnmarshalText(b []byte) error {
	v, err := ParseSentiment(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ErrUnknownLevel is returned when a sentiment or urgency label is not recognized.
var ErrUnknownLevel = errors.New("unknown level")

// ParseSentiment parses a sentiment label.
func ParseSentiment(s string) (Sentiment, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for v, n := range sentimentNames {
		if n == s {
			return v, nil
		}
	}
	return SentimentNeutral, ErrUnknownLevel
}

// Urgency is a four-level ordinal.
type Urgency int

const (
	UrgencyLow Urgency = iota
	UrgencyMedium
	UrgencyHigh
	UrgencyCritical
)

var urgencyNames = [...]string{"low", "medium", "high", "critical"}

func (u Urgency) String() string {
	if u < 0 || int(u) >= len(urgencyNames) {
		return "low"
	}
	return urgencyNames[u]
}

func (u Urgency) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

func (u *Urgency) UnmarshalText(b []byte) error {
	v, err := ParseUrgency(string(b))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// ParseUrgency parses an urgency label.
func ParseUrgency(s string) (Urgency, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range urgencyNames {
		if n == s {
			return Urgency(i), nil
		}
	}
	return UrgencyLow, ErrUnknownLevel
}

// MaxUrgency returns the higher of two urgency levels.
func MaxUrgency(a, b Urgency) Urgency {
	if a > b {
		return a
	}
	return b
}

// IntentSource records which estimator decided the intent.
type IntentSource string

const (
	SourceHeuristic  IntentSource = "heuristic"
	SourceStatistics IntentSource = "statistical"
)

// FusionVerdict is the combined intent and sentiment judgment for one message.
type FusionVerdict struct {
	Intent              Intent       `json:"intent"`
	IntentConfidence    float64      `json:"intent_confidence"`
	IntentSource        IntentSource `json:"intent_source"`
	Sentiment           Sentiment    `json:"sentiment"`
	SentimentConfidence float64      `json:"sentiment_confidence"`
	Urgency             Urgency      `json:"urgency"`
	EscalationNeeded    bool         `json:"escalation_needed"`
	PriorityScore       int          `json:"priority_score"`
	Emotions            []string     `json:"emotions,omitempty"`
	KeyIssues           []string     `json:"key_issues,omitempty"`
	ResponseTone        string       `json:"response_tone,omitempty"`
	SuggestedActions    []string     `json:"suggested_actions,omitempty"`
	Degraded            bool         `json:"degraded"`
}
