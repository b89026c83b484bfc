package pipeline

import (
	"fmt"
	"strings"

	"github.com/tbourn/go-order-assistant/internal/domain"
	"github.com/tbourn/go-order-assistant/internal/search"
)

// Replies supplies the canned answer for an intent.
type Replies interface {
	Response(intent domain.Intent) string
}

const (
	fallbackReply   = "Desculpe, não entendi. Pode repetir de outro jeito?"
	notFoundReply   = "Não encontrei esse item no cardápio. Quer ver as opções?"
	notInCartReply  = "Esse item não está no seu pedido."
	emptyCartReply  = "Seu carrinho está vazio. O que você gostaria de pedir?"
	orderFailReply  = "Não consegui registrar seu pedido agora. Responda \"confirmar\" para tentar de novo."
	escalationReply = "Um atendente da nossa equipe vai falar com você em breve."

	menuPreview = 5
)

type replyInput struct {
	base        string
	session     *domain.Session
	plan        plan
	outcome     outcome
	verdict     domain.FusionVerdict
	menu        search.Index
	text        string
	suggestions []domain.UpsellCandidate
}

func composeReply(in replyInput) string {
	var parts []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}

	o := in.outcome
	switch {
	case o.cancelled:
		add(in.base)
	case o.finalized:
		add(fmt.Sprintf("Pedido confirmado! Número: %s. Total: %s.", in.session.PendingOrderID, money(in.session.CartTotal())))
	case in.plan.finalize:
		add(orderFailReply)
	case in.plan.confirm:
		if o.confirmErr != nil && len(in.session.Cart) == 0 {
			add(emptyCartReply)
			break
		}
		add(in.base)
		add(cartSummary(in.session))
	case len(o.added) > 0:
		add("Adicionei: " + joinLines(o.added) + ".")
		add("Total parcial: " + money(in.session.CartTotal()) + ".")
	case len(o.removed) > 0:
		add("Removi: " + joinLines(o.removed) + ".")
		if len(in.session.Cart) > 0 {
			add("Total parcial: " + money(in.session.CartTotal()) + ".")
		}
	case in.plan.intent == domain.IntentOrderRequest && in.menu != nil:
		add(notFoundReply)
	case in.plan.intent == domain.IntentRemoveItem:
		add(notInCartReply)
	case in.plan.modify:
		add(in.base)
		if len(in.session.Cart) > 0 {
			add(cartSummary(in.session))
		}
	case in.plan.intent == domain.IntentMenuInquiry:
		add(in.base)
		add(menuLines(in.menu, in.text))
	default:
		add(in.base)
	}
	if len(parts) == 0 {
		add(fallbackReply)
	}

	if in.verdict.EscalationNeeded {
		add(escalationReply)
	}
	if len(in.suggestions) > 0 {
		names := make([]string, len(in.suggestions))
		for i, c := range in.suggestions {
			names[i] = fmt.Sprintf("%s (%s)", c.Name, money(c.Price))
		}
		add("Que tal adicionar " + strings.Join(names, ", ") + "?")
	}
	return strings.Join(parts, "\n")
}

func cartSummary(s *domain.Session) string {
	var b strings.Builder
	for _, l := range s.Cart {
		fmt.Fprintf(&b, "• %dx %s %s\n", l.Quantity, lineName(l), money(l.Subtotal()))
	}
	fmt.Fprintf(&b, "Total: %s", money(s.CartTotal()))
	return b.String()
}

func joinLines(lines []domain.CartLine) string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = fmt.Sprintf("%dx %s", l.Quantity, lineName(l))
	}
	return strings.Join(out, ", ")
}

func lineName(l domain.CartLine) string {
	if len(l.Modifications) == 0 {
		return l.Name
	}
	return l.Name + " (" + strings.Join(l.Modifications, ", ") + ")"
}

func menuLines(idx search.Index, text string) string {
	if idx == nil {
		return ""
	}
	res := idx.TopK(text, menuPreview)
	lines := make([]string, 0, len(res))
	for _, r := range res {
		lines = append(lines, fmt.Sprintf("• %s %s", r.Item.Name, money(r.Item.Price)))
	}
	return strings.Join(lines, "\n")
}

// money renders a price the Brazilian way: R$ 1.045,90.
func money(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%.2f", v)
	whole, cents := s[:len(s)-3], s[len(s)-2:]

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := "R$ " + b.String() + "," + cents
	if neg {
		out = "-" + out
	}
	return out
}
