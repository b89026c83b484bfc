package fusion

import (
	"regexp"

	"github.com/tbourn/go-order-assistant/internal/domain"
	"github.com/tbourn/go-order-assistant/internal/textnorm"
)

// Patterns run against accent-folded, lower-cased text.
var intentPatterns = map[domain.Intent][]*regexp.Regexp{
	domain.IntentGreeting: compile(
		`\b(oi|ola|hey|e ai|eai|bom dia|boa tarde|boa noite)\b`,
	),
	domain.IntentMenuInquiry: compile(
		`\b(cardapio|menu|carta|opcoes|sabores|tem|serve)\b`,
		`\b(pizza|hamburguer|lanche|bebida|sobremesa|comida|sushi|massa|salada)s?\b`,
		`\b(que voces tem|o que tem|quais|mostrar|ver)\b`,
	),
	domain.IntentOrderRequest: compile(
		`\b(quero|gostaria|vou querer|pode ser|me da|manda|pedir|comprar|levar)\b`,
		`\b(adicionar|adiciona|incluir|colocar|coloca|acrescentar|mais um|mais uma)\b`,
		`\b(\d+|um|uma|dois|duas|tres|quatro|cinco)\s+(pizza|hamburguer|lanche|refrigerante|suco|sushi|temaki|massa|salada|cerveja|agua)s?\b`,
	),
	domain.IntentRemoveItem: compile(
		`\b(remover|remove|tirar|tira|retirar|excluir)\b`,
		`\b(sem o|sem a|nao quero mais o|nao quero mais a)\b`,
	),
	domain.IntentConfirmOrder: compile(
		`\b(confirmar|confirmo|confirma|fechar|finalizar|finaliza|pode fechar|pode mandar)\b`,
		`\b(sim|isso mesmo|correto|certo|pode ser isso)\b`,
	),
	domain.IntentCancelOrder: compile(
		`\b(cancelar|cancela|cancelo|desistir|desisto)\b`,
		`\b(esquece|deixa pra la|nao quero mais nada)\b`,
	),
	domain.IntentModifyOrder: compile(
		`\b(alterar|altera|mudar|muda|modificar|modifica|trocar|troca|corrigir|mudanca|alteracao)\b`,
	),
	domain.IntentOrderStatus: compile(
		`\b(meu pedido|status|situacao|onde esta|cade)\b`,
		`\b(previsao|ja saiu|vai demorar)\b`,
		`\b(chegou|entregou|saiu)\b`,
	),
	domain.IntentDeliveryInfo: compile(
		`\b(entrega|entregar|entregam|delivery|taxa|frete)\b`,
		`\b(endereco|local|regiao|bairro|cep)\b`,
		`\b(tempo de entrega|quanto tempo|demora)\b`,
	),
	domain.IntentPaymentInfo: compile(
		`\b(pagamento|pagar|dinheiro|cartao|pix)\b`,
		`\b(quanto|preco|valor|custa)\b`,
		`\b(debito|credito|troco)\b`,
	),
	domain.IntentComplaint: compile(
		`\b(reclamacao|reclamar|problema|errado|ruim)\b`,
		`\b(demorou|atrasou|atrasado|frio|queimado|pessimo)\b`,
		`\b(devolver|reembolso|estorno)\b`,
	),
	domain.IntentRecommendation: compile(
		`\b(recomenda|recomendacao|sugere|sugestao|indica)\b`,
		`\b(mais pedido|mais vendido|popular|melhor)\b`,
	),
	domain.IntentThanks: compile(
		`\b(obrigad[oa]|valeu|agradeco|brigad[oa])\b`,
	),
	domain.IntentGoodbye: compile(
		`\b(tchau|ate mais|ate logo|falou|bye|nos vemos)\b`,
	),
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// HeuristicResult is the keyword classifier's answer.
type HeuristicResult struct {
	Intent  domain.Intent
	Score   float64
	Matches int
}

// HeuristicIntent scores every intent as matched patterns over total
// patterns and returns the best one. Ties go to the intent listed first in
// domain.Intents. Zero matches anywhere yields unknown.
func HeuristicIntent(text string) HeuristicResult {
	folded := textnorm.Fold(text)
	best := HeuristicResult{Intent: domain.IntentUnknown}
	for _, in := range domain.Intents {
		pats := intentPatterns[in]
		if len(pats) == 0 {
			continue
		}
		n := 0
		for _, p := range pats {
			if p.MatchString(folded) {
				n++
			}
		}
		if n == 0 {
			continue
		}
		score := float64(n) / float64(len(pats))
		if score > best.Score {
			best = HeuristicResult{Intent: in, Score: score, Matches: n}
		}
	}
	return best
}
