package upsell

import "github.com/tbourn/go-order-assistant/internal/domain"

// categoryRule lists what usually goes with a food category.
type categoryRule struct {
	category    string
	complements []string
	upgrades    []string
	addons      []string
	bundles     []string
}

// Checked in order; the first category found in a line's category or name applies.
var categoryRules = []categoryRule{
	{
		category:    "pizza",
		complements: []string{"refrigerante", "suco", "cerveja", "sobremesa"},
		upgrades:    []string{"borda recheada", "tamanho família", "queijo extra"},
		addons:      []string{"bacon", "calabresa", "azeitona", "orégano"},
		bundles:     []string{"combo pizza + refrigerante", "combo família"},
	},
	{
		category:    "hamburguer",
		complements: []string{"batata frita", "refrigerante", "milkshake", "onion rings"},
		upgrades:    []string{"hamburguer duplo", "bacon extra", "queijo cheddar"},
		addons:      []string{"picles", "molho especial", "cebola caramelizada"},
		bundles:     []string{"combo hamburguer + batata + refrigerante"},
	},
	{
		category:    "sushi",
		complements: []string{"sopa miso", "sake", "chá verde", "sobremesa japonesa"},
		upgrades:    []string{"sashimi premium", "combo especial", "peixes nobres"},
		addons:      []string{"wasabi", "gengibre", "molho tarê"},
		bundles:     []string{"rodízio", "combo sushi + temaki"},
	},
	{
		category:    "massa",
		complements: []string{"salada", "pão de alho", "vinho", "sobremesa"},
		upgrades:    []string{"massa artesanal", "molho especial", "queijo parmesão"},
		addons:      []string{"frango grelhado", "camarão", "cogumelos"},
		bundles:     []string{"combo massa + salada + bebida"},
	},
	{
		category:    "salada",
		complements: []string{"suco natural", "água", "pão integral", "sobremesa fit"},
		upgrades:    []string{"proteína extra", "mix de folhas premium", "molho gourmet"},
		addons:      []string{"abacate", "nuts", "queijo", "croutons"},
		bundles:     []string{"combo salada + suco + sobremesa fit"},
	},
}

// Price share of the base item and scoring priors per rule kind.
type kindPrior struct {
	priceShare float64
	confidence float64
	success    float64
}

var rulePriors = map[domain.UpsellKind]kindPrior{
	domain.KindComplement: {priceShare: 0.30, confidence: 0.8, success: 0.65},
	domain.KindUpgrade:    {priceShare: 0.40, confidence: 0.7, success: 0.45},
	domain.KindAddon:      {priceShare: 0.15, confidence: 0.6, success: 0.50},
	domain.KindBundle:     {priceShare: 0.25, confidence: 0.75, success: 0.50},
}

// Segment constrains what may be offered to a customer.
type Segment struct {
	Name             string
	MaxUpsellPercent float64
	Preferred        []domain.UpsellKind
	PriceSensitive   bool
}

func (s Segment) prefers(k domain.UpsellKind) bool {
	for _, p := range s.Preferred {
		if p == k {
			return true
		}
	}
	return false
}

const DefaultSegment = "economico"

var segments = map[string]Segment{
	"economico": {"economico", 0.15, []domain.UpsellKind{domain.KindBundle, domain.KindComplement}, true},
	"premium":   {"premium", 0.40, []domain.UpsellKind{domain.KindUpgrade, domain.KindAddon}, false},
	"familia":   {"familia", 0.25, []domain.UpsellKind{domain.KindBundle, domain.KindUpgrade}, true},
	"saudavel":  {"saudavel", 0.20, []domain.UpsellKind{domain.KindComplement, domain.KindAddon}, false},
	"gourmet":   {"gourmet", 0.50, []domain.UpsellKind{domain.KindUpgrade, domain.KindAddon}, false},
}

// LookupSegment returns the named segment, or economico for unknown names.
func LookupSegment(name string) Segment {
	if s, ok := segments[name]; ok {
		return s
	}
	return segments[DefaultSegment]
}

var timingSuccess = map[domain.UpsellTiming]float64{
	domain.TimingDuringOrder:    0.35,
	domain.TimingAfterItem:      0.42,
	domain.TimingBeforeCheckout: 0.28,
	domain.TimingPostOrder:      0.30,
}

// TimingSuccessRate is the historical acceptance rate at a conversation point.
func TimingSuccessRate(t domain.UpsellTiming) float64 {
	if r, ok := timingSuccess[t]; ok {
		return r
	}
	return 0.30
}
