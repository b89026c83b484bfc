package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-order-assistant/internal/domain"
	"github.com/tbourn/go-order-assistant/internal/fusion"
	"github.com/tbourn/go-order-assistant/internal/repo"
	"github.com/tbourn/go-order-assistant/internal/session"
)

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func activity(msgID, sender string, escalated bool, at time.Time) *domain.Activity {
	return &domain.Activity{
		MessageID: msgID,
		SenderID:  sender,
		Intent:    string(domain.IntentComplaint),
		Sentiment: "negative",
		Urgency:   "high",
		Priority:  7,
		Step:      "browsing",
		Escalated: escalated,
		Reply:     "ok",
		CreatedAt: at,
	}
}

func TestActivityService_RecordAndList(t *testing.T) {
	ctx := context.Background()
	s := NewActivityService(newDB(t))
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		sender := "5511999990001"
		if i%2 == 1 {
			sender = "5511999990002"
		}
		if err := s.RecordActivity(ctx, activity(fmt.Sprintf("wamid.%d", i), sender, i == 4, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	if err := s.RecordActivity(ctx, activity("wamid.0", "x", false, base)); !errors.Is(err, repo.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	items, total, err := s.ListPage(ctx, repo.ActivityFilter{}, 1, 2)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 5 || len(items) != 2 || items[0].MessageID != "wamid.4" {
		t.Fatalf("unexpected page: total=%d items=%+v", total, items)
	}

	items, total, err = s.ListPage(ctx, repo.ActivityFilter{SenderID: " 5511999990002 "}, 0, 0)
	if err != nil || total != 2 || len(items) != 2 {
		t.Fatalf("sender filter: total=%d len=%d err=%v", total, len(items), err)
	}

	items, total, err = s.ListPage(ctx, repo.ActivityFilter{SenderID: "nobody"}, 1, 10)
	if err != nil || total != 0 || items == nil || len(items) != 0 {
		t.Fatalf("empty filter should give empty slice: %v %d %v", items, total, err)
	}

	n, newest, err := s.Stats(ctx, repo.ActivityFilter{EscalatedOnly: true})
	if err != nil || n != 1 || newest == nil || !newest.Equal(base.Add(4*time.Minute)) {
		t.Fatalf("Stats = %d %v %v", n, newest, err)
	}

	counts, err := s.Escalations(ctx, base)
	if err != nil || counts[string(domain.IntentComplaint)] != 1 {
		t.Fatalf("Escalations = %v %v", counts, err)
	}
}

func TestActivityService_ClipsReplyAndByMessage(t *testing.T) {
	ctx := context.Background()
	s := NewActivityService(newDB(t))
	s.MaxReplyRunes = 4

	a := activity("wamid.x", "s", false, time.Now().UTC())
	a.Reply = "çãõéíúxyz"
	if err := s.RecordActivity(ctx, a); err != nil {
		t.Fatalf("record: %v", err)
	}
	got, err := s.ByMessage(ctx, "wamid.x")
	if err != nil {
		t.Fatalf("ByMessage: %v", err)
	}
	if got.Reply != "çãõé" {
		t.Fatalf("reply not clipped by runes: %q", got.Reply)
	}
	if _, err := s.ByMessage(ctx, "missing"); !errors.Is(err, ErrActivityNotFound) {
		t.Fatalf("expected ErrActivityNotFound, got %v", err)
	}
}

func TestSessionService_InspectAndReset(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := session.NewMemoryStore(30 * time.Minute).WithClock(func() time.Time { return now })
	svc := NewSessionService(store, session.NewLocker())
	svc.Now = func() time.Time { return now.Add(90 * time.Second) }

	sess, _, err := store.GetOrCreate(ctx, "5511999990001", "store-1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	sess.Step = domain.StepOrdering
	sess.Cart = []domain.CartLine{{ItemID: "p1", Name: "Pizza Calabresa", UnitPrice: 45.9, Quantity: 2}}
	for _, p := range []int{3, 5, 8} {
		sess.AppendSentiment(domain.SentimentMark{Sentiment: domain.SentimentNegative, Priority: p, Timestamp: now})
	}
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save: %v", err)
	}

	v, err := svc.Inspect(ctx, " 5511999990001 ")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if v.CartTotal != 91.8 || v.Trend != fusion.TrendDeteriorating || v.IdleForSeconds != 90 {
		t.Fatalf("unexpected view: %+v", v)
	}
	if len(v.QuickReplies) == 0 {
		t.Fatalf("ordering step should offer quick replies")
	}

	if err := svc.Reset(ctx, "5511999990001"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, err := svc.Inspect(ctx, "5511999990001"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after reset, got %v", err)
	}
	if err := svc.Reset(ctx, "5511999990001"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("second reset should be not found, got %v", err)
	}
	if _, err := svc.Inspect(ctx, strings.Repeat(" ", 3)); !errors.Is(err, ErrInvalidSender) {
		t.Fatalf("blank sender should be rejected, got %v", err)
	}
}
