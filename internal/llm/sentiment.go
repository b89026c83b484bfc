package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tbourn/go-order-assistant/internal/domain"
	"github.com/tbourn/go-order-assistant/internal/fusion"
)

const opSentiment = "AnalyzeSentiment"

const sentimentSystem = `Você analisa o sentimento de mensagens de clientes de um delivery de comida.
Responda APENAS com um objeto JSON no formato:
{"sentiment":"very_positive|positive|neutral|negative|very_negative",
 "confidence":0.0,
 "emotions":["..."],
 "key_issues":["..."],
 "urgency_level":"low|medium|high|critical",
 "escalation_needed":false,
 "response_tone":"empathetic|professional|friendly|apologetic|celebratory",
 "suggested_actions":["..."],
 "priority_score":1}`

var responseTones = map[string]bool{
	"empathetic": true, "professional": true, "friendly": true, "apologetic": true, "celebratory": true,
}

// sentimentWire mirrors the JSON answer. Pointers tell a missing field from a zero value.
type sentimentWire struct {
	Sentiment        *string  `json:"sentiment"`
	Confidence       *float64 `json:"confidence"`
	Emotions         []string `json:"emotions"`
	KeyIssues        []string `json:"key_issues"`
	Urgency          *string  `json:"urgency_level"`
	EscalationNeeded *bool    `json:"escalation_needed"`
	ResponseTone     string   `json:"response_tone"`
	SuggestedActions []string `json:"suggested_actions"`
	PriorityScore    *int     `json:"priority_score"`
}

// AnalyzeSentiment asks the model for a structured verdict on text.
func (c *Client) AnalyzeSentiment(ctx context.Context, text string, sc fusion.SentimentContext) (*fusion.Detailed, error) {
	raw, err := c.completeJSON(ctx, opSentiment, sentimentSystem, sentimentPrompt(text, sc))
	if err != nil {
		return nil, err
	}
	return c.parseSentiment(raw)
}

func sentimentPrompt(text string, sc fusion.SentimentContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "MENSAGEM: %q\n", text)
	fmt.Fprintf(&b, "ETAPA DA CONVERSA: %s\n", sc.Step)
	fmt.Fprintf(&b, "ITENS NO CARRINHO: %d (R$ %.2f)\n", sc.CartItems, sc.CartValue)
	if sc.ComplaintCount > 0 {
		fmt.Fprintf(&b, "RECLAMAÇÕES ANTERIORES: %d\n", sc.ComplaintCount)
	}
	if len(sc.RecentTurns) > 0 {
		b.WriteString("HISTÓRICO RECENTE:\n")
		for _, t := range sc.RecentTurns {
			fmt.Fprintf(&b, "- %s: %s\n", t.Role, t.Text)
		}
	}
	if len(sc.PriorMoods) > 0 {
		b.WriteString("SENTIMENTOS ANTERIORES:")
		for _, m := range sc.PriorMoods {
			fmt.Fprintf(&b, " %s", m.Sentiment)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (c *Client) parseSentiment(raw string) (*fusion.Detailed, error) {
	var w sentimentWire
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil, c.reject(opSentiment, "decode: %v", err)
	}
	if w.Sentiment == nil || w.Confidence == nil || w.Urgency == nil || w.PriorityScore == nil || w.EscalationNeeded == nil {
		return nil, c.reject(opSentiment, "missing required field")
	}
	s, err := domain.ParseSentiment(*w.Sentiment)
	if err != nil {
		return nil, c.reject(opSentiment, "sentiment %q", *w.Sentiment)
	}
	u, err := domain.ParseUrgency(*w.Urgency)
	if err != nil {
		return nil, c.reject(opSentiment, "urgency %q", *w.Urgency)
	}
	if *w.Confidence < 0 || *w.Confidence > 1 {
		return nil, c.reject(opSentiment, "confidence %v out of range", *w.Confidence)
	}
	if *w.PriorityScore < 1 || *w.PriorityScore > 10 {
		return nil, c.reject(opSentiment, "priority %d out of range", *w.PriorityScore)
	}
	tone := strings.ToLower(strings.TrimSpace(w.ResponseTone))
	if tone != "" && !responseTones[tone] {
		return nil, c.reject(opSentiment, "response tone %q", w.ResponseTone)
	}

	return &fusion.Detailed{
		Sentiment:        s,
		Confidence:       *w.Confidence,
		Urgency:          u,
		Emotions:         w.Emotions,
		KeyIssues:        w.KeyIssues,
		EscalationNeeded: *w.EscalationNeeded,
		PriorityScore:    *w.PriorityScore,
		ResponseTone:     tone,
		SuggestedActions: w.SuggestedActions,
	}, nil
}
