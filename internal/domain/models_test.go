package domain

import (
	"testing"
	"time"
)

func TestTableNames(t *testing.T) {
	if (Activity{}).TableName() != "activity" {
		t.Fatalf("Activity.TableName() = %q", (Activity{}).TableName())
	}
	if (ProcessedMessage{}).TableName() != "processed_messages" {
		t.Fatalf("ProcessedMessage.TableName() = %q", (ProcessedMessage{}).TableName())
	}
}

func TestActivity_PriorityCheckConstraint(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&Activity{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	ok := &Activity{ID: "a1", MessageID: "m1", SenderID: "s", Intent: "greeting", Sentiment: "neutral", Urgency: "low", Priority: 5, Step: "greeting"}
	if err := db.Create(ok).Error; err != nil {
		t.Fatalf("insert valid: %v", err)
	}
	bad := &Activity{ID: "a2", MessageID: "m2", SenderID: "s", Intent: "greeting", Sentiment: "neutral", Urgency: "low", Priority: 11, Step: "greeting"}
	if err := db.Create(bad).Error; err == nil {
		t.Fatalf("expected CHECK violation for priority 11")
	}
}

func TestSession_HistoryIsBounded(t *testing.T) {
	s := NewSession("+551199999", "store-1", time.Unix(0, 0))
	for i := 0; i < MaxHistory+5; i++ {
		s.AppendTurn(RoleUser, string(rune('a'+i)), time.Unix(int64(i), 0))
	}
	if len(s.History) != MaxHistory {
		t.Fatalf("history len = %d; want %d", len(s.History), MaxHistory)
	}
	if s.History[0].Text != string(rune('a'+5)) {
		t.Fatalf("oldest entries should be evicted first, got %q", s.History[0].Text)
	}
}

func TestSession_CartTotalAndClone(t *testing.T) {
	s := NewSession("s", "", time.Now())
	s.Cart = append(s.Cart,
		CartLine{ItemID: "p1", Name: "Pizza", UnitPrice: 40, Quantity: 2, Modifications: []string{"sem cebola"}},
		CartLine{ItemID: "r1", Name: "Refrigerante", UnitPrice: 6.5, Quantity: 1},
	)
	if got := s.CartTotal(); got != 86.5 {
		t.Fatalf("CartTotal = %v; want 86.5", got)
	}
	c := s.Clone()
	c.Cart[0].Modifications[0] = "changed"
	c.Cart[1].Quantity = 9
	if s.Cart[0].Modifications[0] != "sem cebola" || s.Cart[1].Quantity != 1 {
		t.Fatalf("clone must not alias the original cart")
	}
}

func TestSession_AppendOffers(t *testing.T) {
	s := NewSession("s", "", time.Now())
	for i := 0; i < MaxOffers+2; i++ {
		s.AppendOffers(UpsellOffer{ItemID: string(rune('a' + i)), Name: "Offer"})
	}
	if len(s.Offers) != MaxOffers || s.Offers[0].ItemID != "c" {
		t.Fatalf("expected the %d newest offers, got %#v", MaxOffers, s.Offers)
	}

	// offering the same item again moves it to the end
	s.AppendOffers(UpsellOffer{ItemID: "c", Name: "Offer", Price: 9})
	if len(s.Offers) != MaxOffers || s.Offers[MaxOffers-1].Price != 9 || s.Offers[0].ItemID != "d" {
		t.Fatalf("re-offer should replace the older entry, got %#v", s.Offers)
	}

	c := s.Clone()
	c.Offers[0].Name = "changed"
	if s.Offers[0].Name != "Offer" {
		t.Fatalf("clone must not alias offers")
	}
}

func TestCartLine_Validate(t *testing.T) {
	if err := (CartLine{Quantity: 0, UnitPrice: 1}).Validate(); err == nil {
		t.Fatalf("quantity 0 must be rejected")
	}
	if err := (CartLine{Quantity: 1, UnitPrice: -1}).Validate(); err == nil {
		t.Fatalf("negative price must be rejected")
	}
	if err := (CartLine{Quantity: 1, UnitPrice: 0}).Validate(); err != nil {
		t.Fatalf("free item should be valid: %v", err)
	}
}

func TestLevelsRoundTripText(t *testing.T) {
	for _, s := range []Sentiment{SentimentVeryNegative, SentimentNegative, SentimentNeutral, SentimentPositive, SentimentVeryPositive} {
		b, _ := s.MarshalText()
		var back Sentiment
		if err := back.UnmarshalText(b); err != nil || back != s {
			t.Fatalf("sentiment %v round trip got %v (%v)", s, back, err)
		}
	}
	if _, err := ParseUrgency("whenever"); err == nil {
		t.Fatalf("expected error for unknown urgency")
	}
	if ParseIntent("MENU_INQUIRY") != IntentMenuInquiry || ParseIntent("dance") != IntentUnknown {
		t.Fatalf("ParseIntent mismatch")
	}
	if MaxUrgency(UrgencyHigh, UrgencyMedium) != UrgencyHigh {
		t.Fatalf("MaxUrgency should pick the higher level")
	}
}
