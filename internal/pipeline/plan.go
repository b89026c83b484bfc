package pipeline

import (
	"slices"

	"github.com/tbourn/go-order-assistant/internal/domain"
	"github.com/tbourn/go-order-assistant/internal/search"
	"github.com/tbourn/go-order-assistant/internal/session"
)

// plan is what one message asks of the session. It is decided from the
// snapshot taken under the sender lock and replayed on the session reloaded
// for the commit.
type plan struct {
	intent   domain.Intent
	browse   bool
	add      []domain.CartLine
	remove   map[string]bool
	confirm  bool
	finalize bool
	modify   bool
	cancel   bool
}

// outcome is what applying a plan actually changed.
type outcome struct {
	added      []domain.CartLine
	removed    []domain.CartLine
	confirmErr error
	finalized  bool
	cancelled  bool
	// accepted counts earlier offers taken up by this message; set on commit.
	accepted int
}

func (o outcome) mutated() bool { return len(o.added)+len(o.removed) > 0 }

func decide(snap *domain.Session, v domain.FusionVerdict, idx search.Index, text string) plan {
	p := plan{intent: v.Intent}
	switch v.Intent {
	case domain.IntentMenuInquiry, domain.IntentRecommendation:
		p.browse = true
	case domain.IntentOrderRequest:
		p.browse = true
		for _, m := range matchMenu(idx, text) {
			p.add = append(p.add, domain.CartLine{
				ItemID:        m.Item.ID,
				Name:          m.Item.Name,
				Category:      m.Item.Category,
				UnitPrice:     m.Item.Price,
				Quantity:      m.Quantity,
				Modifications: m.Modifications,
			})
		}
	case domain.IntentRemoveItem:
		for _, m := range matchMenu(idx, text) {
			if lineIndex(snap.Cart, m.Item.ID) >= 0 {
				if p.remove == nil {
					p.remove = map[string]bool{}
				}
				p.remove[m.Item.ID] = true
			}
		}
	case domain.IntentConfirmOrder:
		if snap.Step == domain.StepConfirming {
			p.finalize = true
		} else {
			p.confirm = true
		}
	case domain.IntentModifyOrder:
		p.modify = true
	case domain.IntentCancelOrder:
		p.cancel = true
	}
	return p
}

func matchMenu(idx search.Index, text string) []search.Match {
	if idx == nil {
		return nil
	}
	return idx.Match(text)
}

// apply mutates s according to p. orderID is the backend's id when the
// order was accepted, empty otherwise.
func apply(s *domain.Session, p plan, orderID string) outcome {
	var o outcome
	if p.cancel {
		if next, err := session.Transition(s.Step, session.EventCancel, len(s.Cart)); err == nil {
			s.Step = next
		}
		s.Cart = []domain.CartLine{}
		o.cancelled = true
		return o
	}

	if p.browse {
		s.Step = step(s, session.EventBrowse)
	}
	if p.modify {
		s.Step = step(s, session.EventModify)
	}

	for _, l := range p.add {
		if l.Validate() != nil {
			continue
		}
		if i := sameLine(s.Cart, l); i >= 0 {
			s.Cart[i].Quantity += l.Quantity
		} else {
			s.Cart = append(s.Cart, l)
		}
		o.added = append(o.added, l)
	}
	if len(p.remove) > 0 {
		kept := s.Cart[:0:0]
		for _, l := range s.Cart {
			if p.remove[l.ItemID] {
				o.removed = append(o.removed, l)
				continue
			}
			kept = append(kept, l)
		}
		s.Cart = kept
	}
	if o.mutated() {
		s.Step = step(s, session.EventCartMutated)
	}

	if p.confirm {
		next, err := session.Transition(s.Step, session.EventConfirm, len(s.Cart))
		s.Step = next
		o.confirmErr = err
	}
	if p.finalize && orderID != "" {
		if next, err := session.Transition(s.Step, session.EventFinalized, len(s.Cart)); err == nil {
			s.Step = next
			s.PendingOrderID = orderID
			o.finalized = true
		}
	}
	return o
}

// step applies ev; a missing edge leaves the step unchanged.
func step(s *domain.Session, ev session.Event) domain.Step {
	next, _ := session.Transition(s.Step, ev, len(s.Cart))
	return next
}

func lineIndex(cart []domain.CartLine, itemID string) int {
	for i, l := range cart {
		if l.ItemID == itemID {
			return i
		}
	}
	return -1
}

// sameLine finds the line l merges into: same item and same modifications.
func sameLine(cart []domain.CartLine, l domain.CartLine) int {
	for i, c := range cart {
		if c.ItemID == l.ItemID && slices.Equal(c.Modifications, l.Modifications) {
			return i
		}
	}
	return -1
}

func timingFor(s *domain.Session, o outcome) domain.UpsellTiming {
	switch {
	case s.Step == domain.StepCompleted:
		return domain.TimingPostOrder
	case s.Step == domain.StepConfirming:
		return domain.TimingBeforeCheckout
	case len(o.added) > 0:
		return domain.TimingAfterItem
	}
	return domain.TimingDuringOrder
}
