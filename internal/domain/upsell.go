package domain

import "time"

// UpsellKind classifies a supplementary offer.
type UpsellKind string

const (
	KindComplement UpsellKind = "complement"
	KindUpgrade    UpsellKind = "upgrade"
	KindAddon      UpsellKind = "addon"
	KindBundle     UpsellKind = "bundle"
	KindCrossSell  UpsellKind = "cross_sell"
)

// Valid reports whether k is one of the known kinds.
func (k UpsellKind) Valid() bool {
	switch k {
	case KindComplement, KindUpgrade, KindAddon, KindBundle, KindCrossSell:
		return true
	}
	return false
}

// UpsellSource names the generator that produced a candidate. Lower rank wins ties.
type UpsellSource string

const (
	UpsellFromHistory    UpsellSource = "history"
	UpsellFromCategory   UpsellSource = "category"
	UpsellFromContextual UpsellSource = "contextual"
	UpsellFromModel      UpsellSource = "model"
)

// Rank orders sources for tie-breaking.
func (s UpsellSource) Rank() int {
	switch s {
	case UpsellFromHistory:
		return 0
	case UpsellFromCategory:
		return 1
	case UpsellFromContextual:
		return 2
	default:
		return 3
	}
}

// UpsellTiming is the point of the conversation where an offer is shown.
type UpsellTiming string

const (
	TimingDuringOrder    UpsellTiming = "during_order"
	TimingAfterItem      UpsellTiming = "after_item"
	TimingBeforeCheckout UpsellTiming = "before_checkout"
	TimingPostOrder      UpsellTiming = "post_order"
)

// UpsellCandidate is a suggested additional purchase. Candidates are
// recomputed for every ranking call and never stored.
type UpsellCandidate struct {
	ItemID                 string       `json:"item_id,omitempty"`
	Name                   string       `json:"name"`
	Description            string       `json:"description,omitempty"`
	Price                  float64      `json:"price"`
	Kind                   UpsellKind   `json:"kind"`
	Confidence             float64      `json:"confidence"`
	SuccessProbability     float64      `json:"success_probability"`
	DiscountPercent        *float64     `json:"discount_percent,omitempty"`
	PersonalizationFactors []string     `json:"personalization_factors,omitempty"`
	Source                 UpsellSource `json:"source"`
	Score                  float64      `json:"score"`
}

// UpsellOffer is a candidate that was shown to the customer. Sessions keep
// the latest few so a later order can be credited to the offer.
type UpsellOffer struct {
	ItemID    string       `json:"item_id,omitempty"`
	Name      string       `json:"name"`
	Kind      UpsellKind   `json:"kind"`
	Source    UpsellSource `json:"source"`
	Price     float64      `json:"price"`
	OfferedAt time.Time    `json:"offered_at"`
}
