package upsell

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-order-assistant/internal/domain"
)

type fakeGenerator struct {
	cands []domain.UpsellCandidate
	err   error
	delay time.Duration
}

func (f fakeGenerator) GenerateUpsellCandidates(ctx context.Context, _ GenerateRequest) ([]domain.UpsellCandidate, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.cands, f.err
}

func at(hour int) func() time.Time {
	return func() time.Time { return time.Date(2026, 3, 10, hour, 0, 0, 0, time.UTC) }
}

func pizzaCart(price float64) []domain.CartLine {
	return []domain.CartLine{{ItemID: "pz", Name: "Pizza", Category: "pizza", UnitPrice: price, Quantity: 1}}
}

func names(cs []domain.UpsellCandidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}

func TestSuggest_EconomicoFiltersExpensiveCandidate(t *testing.T) {
	e := NewEngine(fakeGenerator{cands: []domain.UpsellCandidate{{
		Name: "Porção de Fritas", Price: 20, Kind: domain.KindComplement,
		Confidence: 0.95, SuccessProbability: 0.9,
	}}})
	e.Now = at(12)

	got := e.Suggest(context.Background(), Request{
		Cart:     pizzaCart(40),
		Customer: &domain.CustomerContext{Segment: "economico"},
		Timing:   domain.TimingDuringOrder,
		Max:      10,
	})
	assert.NotContains(t, names(got), "Porção de Fritas")
	for _, c := range got {
		assert.LessOrEqual(t, c.Price, 40*0.15)
	}
}

func TestSuggest_GourmetRanking(t *testing.T) {
	e := NewEngine(nil)
	e.Now = at(12)

	got := e.Suggest(context.Background(), Request{
		Cart:     pizzaCart(50),
		Customer: &domain.CustomerContext{Segment: "gourmet"},
		Timing:   domain.TimingDuringOrder,
		Max:      3,
	})
	require.Len(t, got, 3)
	assert.Equal(t, []string{
		"Pizza + Borda Recheada",
		"Pizza + Queijo Extra",
		"Pizza + Tamanho Família",
	}, names(got))
	for _, c := range got {
		assert.Equal(t, domain.KindUpgrade, c.Kind)
		assert.InDelta(t, 0.7*0.45+0.2+0.2*0.35, c.Score, 1e-9)
	}
}

func TestSuggest_Deterministic(t *testing.T) {
	e := NewEngine(nil)
	e.Now = at(19)
	req := Request{
		Cart:     append(pizzaCart(60), domain.CartLine{Name: "Hamburguer", Category: "hamburguer", UnitPrice: 30, Quantity: 2}),
		Customer: &domain.CustomerContext{Segment: "familia", PastOrders: [][]domain.CartLine{{{Name: "Pizza"}, {Name: "Sorvete"}}}},
		Timing:   domain.TimingAfterItem,
		Weather:  "Chuva forte",
		Max:      5,
	}
	first := e.Suggest(context.Background(), req)
	require.NotEmpty(t, first)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, e.Suggest(context.Background(), req))
	}
}

func TestSuggest_EmptyCart(t *testing.T) {
	assert.Nil(t, NewEngine(nil).Suggest(context.Background(), Request{}))
}

func TestSuggest_GeneratorFailureOmitsModelSource(t *testing.T) {
	for name, gen := range map[string]fakeGenerator{
		"error":   {err: errors.New("down")},
		"timeout": {delay: time.Second, cands: []domain.UpsellCandidate{{Name: "X", Kind: domain.KindUpgrade, Confidence: 1, SuccessProbability: 1}}},
	} {
		t.Run(name, func(t *testing.T) {
			e := NewEngine(gen)
			e.GenerateTimeout = 20 * time.Millisecond
			e.Now = at(12)
			got := e.Suggest(context.Background(), Request{Cart: pizzaCart(100), Customer: &domain.CustomerContext{Segment: "gourmet"}, Max: 50})
			require.NotEmpty(t, got)
			for _, c := range got {
				assert.NotEqual(t, domain.UpsellFromModel, c.Source)
			}
		})
	}
}

func TestSuggest_ModelCandidatesValidated(t *testing.T) {
	bad := -5.0
	e := NewEngine(fakeGenerator{cands: []domain.UpsellCandidate{
		{Name: "Trufa", Price: 10, Kind: domain.KindAddon, Confidence: 0.9, SuccessProbability: 0.9},
		{Name: "", Price: 1, Kind: domain.KindAddon, Confidence: 0.9, SuccessProbability: 0.9},
		{Name: "Mystery", Price: 1, Kind: "gift", Confidence: 0.9, SuccessProbability: 0.9},
		{Name: "Negativo", Price: -1, Kind: domain.KindAddon, Confidence: 0.9, SuccessProbability: 0.9},
		{Name: "Certeza", Price: 1, Kind: domain.KindAddon, Confidence: 1.5, SuccessProbability: 0.9},
		{Name: "Desconto", Price: 1, Kind: domain.KindAddon, Confidence: 0.9, SuccessProbability: 0.9, DiscountPercent: &bad},
	}})
	e.Now = at(12)
	got := e.Suggest(context.Background(), Request{Cart: pizzaCart(100), Customer: &domain.CustomerContext{Segment: "gourmet"}, Max: 50})

	var model []domain.UpsellCandidate
	for _, c := range got {
		if c.Source == domain.UpsellFromModel {
			model = append(model, c)
		}
	}
	require.Len(t, model, 1)
	assert.Equal(t, "Trufa", model[0].Name)
	assert.Equal(t, "ai_trufa", model[0].ItemID)
}

func TestRank_FiltersAndTies(t *testing.T) {
	seg := LookupSegment("premium")
	pool := []domain.UpsellCandidate{
		{Name: "Borda", Kind: domain.KindUpgrade, Price: 5, Confidence: 0.5, SuccessProbability: 0.5, Source: domain.UpsellFromModel},
		{Name: "Borda", Kind: domain.KindUpgrade, Price: 5, Confidence: 0.9, SuccessProbability: 0.9, Source: domain.UpsellFromCategory},
		{Name: "Coca", Kind: domain.KindComplement, Price: 5, Confidence: 0.8, SuccessProbability: 1, Source: domain.UpsellFromCategory},
		{Name: "Vinho", Kind: domain.KindComplement, Price: 5, Confidence: 0.81, SuccessProbability: 0.5, Source: domain.UpsellFromCategory},
		{Name: "Caro", Kind: domain.KindAddon, Price: 50, Confidence: 1, SuccessProbability: 1, Source: domain.UpsellFromCategory},
		{Name: "Bacon", Kind: domain.KindAddon, Price: 5, Confidence: 0.5, SuccessProbability: 0.5, Source: domain.UpsellFromContextual},
		{Name: "Alho", Kind: domain.KindAddon, Price: 5, Confidence: 0.5, SuccessProbability: 0.5, Source: domain.UpsellFromHistory},
		{Name: "Azeite", Kind: domain.KindAddon, Price: 5, Confidence: 0.5, SuccessProbability: 0.5, Source: domain.UpsellFromContextual},
		{Name: "Pizza", Kind: domain.KindAddon, Price: 5, Confidence: 0.5, SuccessProbability: 0.5, Source: domain.UpsellFromCategory},
	}
	got := Rank(pool, pizzaCart(100), 100, seg, domain.TimingPostOrder, 0)

	// "Caro" breaks the 40% cap, "Coca" is not preferred at 0.8, the second
	// "Borda" is a duplicate and "Pizza" is already in the cart.
	assert.Equal(t, []string{"Vinho", "Alho", "Azeite", "Bacon", "Borda"}, names(got))
	assert.InDelta(t, 0.25+0.06, got[1].Score, 1e-9)
}

func TestScore(t *testing.T) {
	disc := 20.0
	c := domain.UpsellCandidate{
		Price: 30, Confidence: 0.5, SuccessProbability: 0.5,
		DiscountPercent: &disc, PersonalizationFactors: []string{"a"},
	}
	base := 0.25 + 0.1 + 0.2*0.42

	assert.InDelta(t, base, Score(c, 100, LookupSegment("gourmet"), domain.TimingAfterItem), 1e-9)
	// price-sensitive: +0.06 discount, -0.2 for price above 10% of order
	assert.InDelta(t, base+0.06-0.2, Score(c, 100, LookupSegment("familia"), domain.TimingAfterItem), 1e-9)
	assert.InDelta(t, base+0.06, Score(c, 1000, LookupSegment("economico"), domain.TimingAfterItem), 1e-9)

	c.PersonalizationFactors = []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	assert.Equal(t, 1.0, Score(c, 100, LookupSegment("gourmet"), domain.TimingAfterItem))

	c = domain.UpsellCandidate{Price: 90}
	assert.Equal(t, 0.0, Score(c, 100, LookupSegment("economico"), "unknown"))
}

func TestLookupSegment(t *testing.T) {
	assert.Equal(t, "economico", LookupSegment("").Name)
	assert.Equal(t, "economico", LookupSegment("vip").Name)
	assert.True(t, LookupSegment("familia").PriceSensitive)
	assert.False(t, LookupSegment("premium").PriceSensitive)
	assert.InDelta(t, 0.30, TimingSuccessRate("whenever"), 1e-9)
}

func TestFromHistory(t *testing.T) {
	past := [][]domain.CartLine{
		{{Name: "Pizza"}, {Name: "Refrigerante", UnitPrice: 9}},
		{{Name: "Pizza"}, {Name: "Refrigerante"}, {Name: "Sorvete"}},
		{{Name: "Brigadeiro"}},
	}
	got := fromHistory(pizzaCart(40), past)
	require.Len(t, got, 2)
	assert.Equal(t, "Refrigerante", got[0].Name)
	assert.Equal(t, 9.0, got[0].Price)
	assert.Equal(t, "Sorvete", got[1].Name)
	assert.Equal(t, historyFallbackPrice, got[1].Price)
	require.NotNil(t, got[0].DiscountPercent)
	assert.Equal(t, 15.0, *got[0].DiscountPercent)
	assert.Equal(t, domain.KindCrossSell, got[0].Kind)
}

func TestFromContext(t *testing.T) {
	morning := fromContext(at(7)(), "")
	require.Len(t, morning, 1)
	assert.Equal(t, "Café Especial", morning[0].Name)

	night := fromContext(at(20)(), "Frio")
	assert.Equal(t, []string{"Sobremesa da Casa", "Bebida Quente"}, names(night))

	assert.Empty(t, fromContext(at(14)(), "sol"))
}

func TestFromCategory_EconomicoDiscount(t *testing.T) {
	got := fromCategory(pizzaCart(40), LookupSegment("economico"))
	require.NotEmpty(t, got)
	first := got[0]
	assert.Equal(t, "Refrigerante", first.Name)
	assert.InDelta(t, 12, first.Price, 1e-9)
	require.NotNil(t, first.DiscountPercent)
	assert.Equal(t, 10.0, *first.DiscountPercent)

	none := fromCategory([]domain.CartLine{{Name: "Açaí", Category: "sobremesa", UnitPrice: 10, Quantity: 1}}, LookupSegment("premium"))
	assert.Empty(t, none)
}
