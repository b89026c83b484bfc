package session

import (
	"errors"
	"fmt"

	"github.com/tbourn/go-order-assistant/internal/domain"
)

// Event drives the step state machine.
type Event int

const (
	// EventBrowse: the customer asked about the menu or started ordering.
	EventBrowse Event = iota
	// EventCartMutated: an item was added to or removed from the cart.
	EventCartMutated
	// EventConfirm: the customer asked to close the order.
	EventConfirm
	// EventFinalized: the commerce backend accepted the order.
	EventFinalized
	// EventModify: the customer wants to change a confirming order.
	EventModify
	// EventCancel: the customer gave up on the order.
	EventCancel
)

var eventNames = [...]string{"browse", "cart_mutated", "confirm", "finalized", "modify", "cancel"}

func (e Event) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[e]
}

var (
	// ErrInvalidTransition is returned for an event that has no edge from the current step.
	ErrInvalidTransition = errors.New("invalid step transition")
	// ErrEmptyCart is returned when confirming with nothing in the cart.
	ErrEmptyCart = errors.New("cart is empty")
)

// Transition returns the step reached from `from` on ev. cartLines is the
// number of lines in the cart after any mutation of the same turn. On error
// the returned step equals `from`.
func Transition(from domain.Step, ev Event, cartLines int) (domain.Step, error) {
	if from == domain.StepCompleted {
		return from, invalid(from, ev)
	}
	switch ev {
	case EventCancel:
		return domain.StepGreeting, nil
	case EventBrowse:
		if from == domain.StepGreeting {
			return domain.StepBrowsing, nil
		}
		return from, nil
	case EventCartMutated:
		switch from {
		case domain.StepBrowsing, domain.StepOrdering, domain.StepConfirming:
			return domain.StepOrdering, nil
		}
	case EventConfirm:
		switch from {
		case domain.StepOrdering:
			if cartLines == 0 {
				return from, ErrEmptyCart
			}
			return domain.StepConfirming, nil
		case domain.StepConfirming:
			return from, nil
		}
	case EventFinalized:
		if from == domain.StepConfirming && cartLines > 0 {
			return domain.StepCompleted, nil
		}
	case EventModify:
		if from == domain.StepConfirming || from == domain.StepOrdering {
			return domain.StepOrdering, nil
		}
	}
	return from, invalid(from, ev)
}

func invalid(from domain.Step, ev Event) error {
	return fmt.Errorf("%w: %s on %s", ErrInvalidTransition, from, ev)
}
