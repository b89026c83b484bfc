package upsell

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tbourn/go-order-assistant/internal/domain"
	"github.com/tbourn/go-order-assistant/internal/textnorm"
)

const (
	historyFallbackPrice = 15.0
	historyDiscount      = 15.0
	economicoDiscount    = 10.0
)

func ptr(f float64) *float64 { return &f }

func slug(prefix, s string) string {
	return prefix + "_" + strings.Join(textnorm.Tokens(s), "_")
}

func ruleFor(line domain.CartLine) (categoryRule, bool) {
	cat, name := textnorm.Fold(line.Category), textnorm.Fold(line.Name)
	for _, r := range categoryRules {
		if strings.Contains(cat, r.category) || strings.Contains(name, r.category) {
			return r, true
		}
	}
	return categoryRule{}, false
}

// fromCategory derives candidates from the static tables for each cart line.
func fromCategory(cart []domain.CartLine, seg Segment) []domain.UpsellCandidate {
	var out []domain.UpsellCandidate
	for _, line := range cart {
		r, ok := ruleFor(line)
		if !ok {
			continue
		}
		catFactor := "categoria_" + r.category

		for _, c := range r.complements {
			p := rulePriors[domain.KindComplement]
			cand := domain.UpsellCandidate{
				ItemID:                 slug("complement", c),
				Name:                   textnorm.Title(c),
				Description:            fmt.Sprintf("Perfeito para acompanhar seu %s", line.Name),
				Price:                  line.UnitPrice * p.priceShare,
				Kind:                   domain.KindComplement,
				Confidence:             p.confidence,
				SuccessProbability:     p.success,
				PersonalizationFactors: []string{catFactor},
				Source:                 domain.UpsellFromCategory,
			}
			if seg.Name == "economico" {
				cand.DiscountPercent = ptr(economicoDiscount)
			}
			out = append(out, cand)
		}
		for _, u := range r.upgrades {
			p := rulePriors[domain.KindUpgrade]
			out = append(out, domain.UpsellCandidate{
				ItemID:                 slug("upgrade", u),
				Name:                   fmt.Sprintf("%s + %s", line.Name, textnorm.Title(u)),
				Description:            fmt.Sprintf("Turbine seu %s com %s", line.Name, u),
				Price:                  line.UnitPrice * p.priceShare,
				Kind:                   domain.KindUpgrade,
				Confidence:             p.confidence,
				SuccessProbability:     p.success,
				PersonalizationFactors: []string{catFactor, "upgrade"},
				Source:                 domain.UpsellFromCategory,
			})
		}
		for _, a := range r.addons {
			p := rulePriors[domain.KindAddon]
			out = append(out, domain.UpsellCandidate{
				ItemID:                 slug("addon", a),
				Name:                   fmt.Sprintf("Adicional de %s", textnorm.Title(a)),
				Description:            fmt.Sprintf("Acrescente %s ao seu %s", a, line.Name),
				Price:                  line.UnitPrice * p.priceShare,
				Kind:                   domain.KindAddon,
				Confidence:             p.confidence,
				SuccessProbability:     p.success,
				PersonalizationFactors: []string{catFactor, "adicional"},
				Source:                 domain.UpsellFromCategory,
			})
		}
		for _, b := range r.bundles {
			p := rulePriors[domain.KindBundle]
			out = append(out, domain.UpsellCandidate{
				ItemID:                 slug("bundle", b),
				Name:                   textnorm.Title(b),
				Description:            "Leve o combo e economize",
				Price:                  line.UnitPrice * p.priceShare,
				Kind:                   domain.KindBundle,
				Confidence:             p.confidence,
				SuccessProbability:     p.success,
				PersonalizationFactors: []string{catFactor},
				Source:                 domain.UpsellFromCategory,
			})
		}
	}
	return out
}

// fromHistory offers items the customer has ordered together before and that
// are missing from the current cart, most frequent first.
func fromHistory(cart []domain.CartLine, past [][]domain.CartLine) []domain.UpsellCandidate {
	if len(past) == 0 {
		return nil
	}
	type seen struct {
		name  string
		price float64
		count int
	}
	freq := map[string]*seen{}
	for _, order := range past {
		if len(order) < 2 {
			continue
		}
		for _, l := range order {
			key := textnorm.Fold(strings.TrimSpace(l.Name))
			if key == "" || inCart(cart, l.Name) {
				continue
			}
			s, ok := freq[key]
			if !ok {
				s = &seen{name: l.Name}
				freq[key] = s
			}
			s.count++
			if l.UnitPrice > 0 {
				s.price = l.UnitPrice
			}
		}
	}

	items := make([]*seen, 0, len(freq))
	for _, s := range freq {
		items = append(items, s)
	}
	sort.Slice(items, func(a, b int) bool {
		if items[a].count != items[b].count {
			return items[a].count > items[b].count
		}
		return items[a].name < items[b].name
	})

	out := make([]domain.UpsellCandidate, 0, len(items))
	for _, s := range items {
		price := s.price
		if price == 0 {
			price = historyFallbackPrice
		}
		out = append(out, domain.UpsellCandidate{
			ItemID:                 slug("history", s.name),
			Name:                   textnorm.Title(s.name),
			Description:            "Você costuma pedir isso junto! Que tal adicionar?",
			Price:                  price,
			Kind:                   domain.KindCrossSell,
			Confidence:             0.9,
			SuccessProbability:     0.75,
			DiscountPercent:        ptr(historyDiscount),
			PersonalizationFactors: []string{"historico", "fidelidade"},
			Source:                 domain.UpsellFromHistory,
		})
	}
	return out
}

// fromContext suggests by time of day and weather.
func fromContext(now time.Time, weather string) []domain.UpsellCandidate {
	var out []domain.UpsellCandidate
	switch h := now.Hour(); {
	case h >= 6 && h <= 10:
		out = append(out, domain.UpsellCandidate{
			ItemID:                 "morning_coffee",
			Name:                   "Café Especial",
			Description:            "Perfeito para começar o dia!",
			Price:                  8.0,
			Kind:                   domain.KindComplement,
			Confidence:             0.7,
			SuccessProbability:     0.55,
			PersonalizationFactors: []string{"horario_manha"},
			Source:                 domain.UpsellFromContextual,
		})
	case h >= 18 && h <= 22:
		out = append(out, domain.UpsellCandidate{
			ItemID:                 "evening_dessert",
			Name:                   "Sobremesa da Casa",
			Description:            "Para fechar a noite com chave de ouro!",
			Price:                  12.0,
			Kind:                   domain.KindComplement,
			Confidence:             0.6,
			SuccessProbability:     0.40,
			PersonalizationFactors: []string{"horario_noite"},
			Source:                 domain.UpsellFromContextual,
		})
	}

	w := textnorm.Fold(weather)
	if strings.Contains(w, "chuva") || strings.Contains(w, "frio") {
		out = append(out, domain.UpsellCandidate{
			ItemID:                 "warm_drink",
			Name:                   "Bebida Quente",
			Description:            "Perfeito para este clima!",
			Price:                  6.0,
			Kind:                   domain.KindComplement,
			Confidence:             0.8,
			SuccessProbability:     0.60,
			PersonalizationFactors: []string{"clima_frio"},
			Source:                 domain.UpsellFromContextual,
		})
	}
	return out
}

func inCart(cart []domain.CartLine, name string) bool {
	n := textnorm.Fold(strings.TrimSpace(name))
	for _, l := range cart {
		if textnorm.Fold(strings.TrimSpace(l.Name)) == n {
			return true
		}
	}
	return false
}
