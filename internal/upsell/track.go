package upsell

import (
	"strings"
	"time"

	"github.com/tbourn/go-order-assistant/internal/domain"
	"github.com/tbourn/go-order-assistant/internal/textnorm"
)

// Offered turns shown candidates into offers to remember on the session and
// counts them.
func Offered(cands []domain.UpsellCandidate, at time.Time) []domain.UpsellOffer {
	if len(cands) == 0 {
		return nil
	}
	out := make([]domain.UpsellOffer, len(cands))
	for i, c := range cands {
		out[i] = domain.UpsellOffer{
			ItemID:    c.ItemID,
			Name:      c.Name,
			Kind:      c.Kind,
			Source:    c.Source,
			Price:     c.Price,
			OfferedAt: at,
		}
		offersTotal.WithLabelValues(string(c.Source), string(c.Kind)).Inc()
	}
	return out
}

// Accepted splits offers into those the added lines took up and the rest.
// A line takes up an offer with the same item id, or whose name contains the
// offer's name ("Refrigerante Lata" takes "Refrigerante"). Each accepted
// offer is counted once.
func Accepted(offers []domain.UpsellOffer, added []domain.CartLine) (accepted, remaining []domain.UpsellOffer) {
	if len(offers) == 0 {
		return nil, offers
	}
	for _, o := range offers {
		if takenUp(o, added) {
			accepted = append(accepted, o)
			acceptedTotal.WithLabelValues(string(o.Source), string(o.Kind)).Inc()
			acceptedValue.WithLabelValues(string(o.Source)).Add(o.Price)
			continue
		}
		remaining = append(remaining, o)
	}
	return accepted, remaining
}

func takenUp(o domain.UpsellOffer, lines []domain.CartLine) bool {
	name := textnorm.Fold(strings.TrimSpace(o.Name))
	for _, l := range lines {
		if o.ItemID != "" && l.ItemID == o.ItemID {
			return true
		}
		if name != "" && strings.Contains(textnorm.Fold(l.Name), name) {
			return true
		}
	}
	return false
}
