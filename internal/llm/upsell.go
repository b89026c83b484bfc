package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tbourn/go-order-assistant/internal/domain"
	"github.com/tbourn/go-order-assistant/internal/upsell"
)

const opUpsell = "GenerateUpsellCandidates"

const upsellSystem = `Você sugere itens adicionais (upsell) para pedidos de delivery.
Gere até 3 sugestões realistas. Responda APENAS com um objeto JSON no formato:
{"suggestions":[{"item_name":"...","description":"...","price":0.0,
 "type":"complement|upgrade|addon|bundle|cross_sell",
 "confidence":0.0,"success_probability":0.0,
 "personalization_factors":["..."]}]}`

// Used when the model leaves confidence out.
const defaultModelConfidence = 0.8

type upsellWire struct {
	Suggestions *[]suggestionWire `json:"suggestions"`
}

type suggestionWire struct {
	ItemName               string   `json:"item_name"`
	Description            string   `json:"description"`
	Price                  *float64 `json:"price"`
	Type                   string   `json:"type"`
	Confidence             *float64 `json:"confidence"`
	SuccessProbability     *float64 `json:"success_probability"`
	DiscountPercent        *float64 `json:"discount_percent"`
	PersonalizationFactors []string `json:"personalization_factors"`
}

// GenerateUpsellCandidates asks the model for offers that fit the cart.
// Individual suggestions that break the schema are dropped; an answer with
// suggestions but none valid is malformed.
func (c *Client) GenerateUpsellCandidates(ctx context.Context, req upsell.GenerateRequest) ([]domain.UpsellCandidate, error) {
	raw, err := c.completeJSON(ctx, opUpsell, upsellSystem, upsellPrompt(req))
	if err != nil {
		return nil, err
	}
	return c.parseUpsell(raw)
}

func upsellPrompt(req upsell.GenerateRequest) string {
	names := make([]string, 0, len(req.Cart))
	for _, l := range req.Cart {
		names = append(names, fmt.Sprintf("%dx %s", l.Quantity, l.Name))
	}
	return fmt.Sprintf("PEDIDO ATUAL: %s\nVALOR ATUAL: R$ %.2f\nPERFIL DO CLIENTE: %s\nMOMENTO: %s\n",
		strings.Join(names, ", "), req.OrderValue, req.Segment, req.Timing)
}

func (c *Client) parseUpsell(raw string) ([]domain.UpsellCandidate, error) {
	var w upsellWire
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil, c.reject(opUpsell, "decode: %v", err)
	}
	if w.Suggestions == nil {
		return nil, c.reject(opUpsell, "missing suggestions")
	}

	out := make([]domain.UpsellCandidate, 0, len(*w.Suggestions))
	for _, s := range *w.Suggestions {
		cand, ok := s.candidate()
		if ok {
			out = append(out, cand)
		}
	}
	if len(out) == 0 && len(*w.Suggestions) > 0 {
		return nil, c.reject(opUpsell, "no valid suggestion among %d", len(*w.Suggestions))
	}
	return out, nil
}

func (s suggestionWire) candidate() (domain.UpsellCandidate, bool) {
	name := strings.TrimSpace(s.ItemName)
	kind := domain.UpsellKind(strings.ToLower(strings.TrimSpace(s.Type)))
	if name == "" || !kind.Valid() || s.Price == nil || *s.Price < 0 {
		return domain.UpsellCandidate{}, false
	}
	if s.SuccessProbability == nil || !unit(*s.SuccessProbability) {
		return domain.UpsellCandidate{}, false
	}
	conf := defaultModelConfidence
	if s.Confidence != nil {
		if !unit(*s.Confidence) {
			return domain.UpsellCandidate{}, false
		}
		conf = *s.Confidence
	}
	if s.DiscountPercent != nil && (*s.DiscountPercent < 0 || *s.DiscountPercent > 100) {
		return domain.UpsellCandidate{}, false
	}
	return domain.UpsellCandidate{
		Name:                   name,
		Description:            strings.TrimSpace(s.Description),
		Price:                  *s.Price,
		Kind:                   kind,
		Confidence:             conf,
		SuccessProbability:     *s.SuccessProbability,
		DiscountPercent:        s.DiscountPercent,
		PersonalizationFactors: s.PersonalizationFactors,
		Source:                 domain.UpsellFromModel,
	}, true
}

func unit(f float64) bool { return f >= 0 && f <= 1 }
