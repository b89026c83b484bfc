package upsell

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-order-assistant/internal/domain"
)

func TestOffered(t *testing.T) {
	now := time.Date(2026, 3, 10, 19, 0, 0, 0, time.UTC)
	before := testutil.ToFloat64(offersTotal.WithLabelValues("category", "complement"))

	got := Offered([]domain.UpsellCandidate{
		{ItemID: "complement_refrigerante", Name: "Refrigerante", Price: 4.5, Kind: domain.KindComplement, Source: domain.UpsellFromCategory},
	}, now)
	require.Len(t, got, 1)
	assert.Equal(t, domain.UpsellOffer{
		ItemID:    "complement_refrigerante",
		Name:      "Refrigerante",
		Kind:      domain.KindComplement,
		Source:    domain.UpsellFromCategory,
		Price:     4.5,
		OfferedAt: now,
	}, got[0])
	assert.Equal(t, before+1, testutil.ToFloat64(offersTotal.WithLabelValues("category", "complement")))

	assert.Nil(t, Offered(nil, now))
}

func TestAccepted(t *testing.T) {
	offers := []domain.UpsellOffer{
		{ItemID: "complement_refrigerante", Name: "Refrigerante", Kind: domain.KindComplement, Source: domain.UpsellFromCategory, Price: 4.5},
		{ItemID: "evening_dessert", Name: "Sobremesa da Casa", Kind: domain.KindComplement, Source: domain.UpsellFromContextual, Price: 12},
		{ItemID: "hist_1", Name: "Batata Frita", Kind: domain.KindCrossSell, Source: domain.UpsellFromHistory, Price: 15},
	}
	beforeCount := testutil.ToFloat64(acceptedTotal.WithLabelValues("category", "complement"))
	beforeValue := testutil.ToFloat64(acceptedValue.WithLabelValues("category"))

	accepted, remaining := Accepted(offers, []domain.CartLine{
		{ItemID: "refrigerante-lata", Name: "Refrigerante Lata", UnitPrice: 6, Quantity: 2},
		{ItemID: "hist_1", Name: "Fritas", UnitPrice: 15, Quantity: 1},
	})
	assert.Equal(t, []string{"Refrigerante", "Batata Frita"}, offerNames(accepted))
	assert.Equal(t, []string{"Sobremesa da Casa"}, offerNames(remaining))
	assert.Equal(t, beforeCount+1, testutil.ToFloat64(acceptedTotal.WithLabelValues("category", "complement")))
	assert.InDelta(t, beforeValue+4.5, testutil.ToFloat64(acceptedValue.WithLabelValues("category")), 1e-9)

	accepted, remaining = Accepted(offers, nil)
	assert.Empty(t, accepted)
	assert.Len(t, remaining, 3)

	accepted, remaining = Accepted(nil, []domain.CartLine{{Name: "Refrigerante"}})
	assert.Empty(t, accepted)
	assert.Empty(t, remaining)
}

func offerNames(os []domain.UpsellOffer) []string {
	out := make([]string, len(os))
	for i, o := range os {
		out[i] = o.Name
	}
	return out
}
