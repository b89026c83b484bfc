package session

import "github.com/tbourn/go-order-assistant/internal/domain"

// QuickReplies returns the short options offered to the customer at step.
// Titles stay within the 20 characters interactive buttons allow.
func QuickReplies(step domain.Step) []string {
	switch step {
	case domain.StepGreeting:
		return []string{"Ver cardápio", "Fazer pedido", "Falar com atendente"}
	case domain.StepBrowsing:
		return []string{"Ver pizzas", "Ver bebidas", "Fazer pedido"}
	case domain.StepOrdering:
		return []string{"Adicionar item", "Ver carrinho", "Finalizar pedido"}
	case domain.StepConfirming:
		return []string{"Confirmar pedido", "Alterar pedido", "Cancelar"}
	case domain.StepCompleted:
		return []string{"Acompanhar pedido", "Novo pedido"}
	}
	return nil
}
