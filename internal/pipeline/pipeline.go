// Package pipeline runs each inbound message through the assistant: dedup,
// per-sender rate limit, session update, signal fusion, cart and step
// changes, upsell ranking and reply dispatch.
//
// Session state is only read or written while holding the sender's lock.
// Calls to external collaborators happen outside the lock and each one is
// bounded by a timeout; a failing collaborator degrades the reply instead of
// failing the message.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-order-assistant/internal/channel"
	"github.com/tbourn/go-order-assistant/internal/commerce"
	"github.com/tbourn/go-order-assistant/internal/dedup"
	"github.com/tbourn/go-order-assistant/internal/domain"
	"github.com/tbourn/go-order-assistant/internal/fusion"
	"github.com/tbourn/go-order-assistant/internal/repo"
	"github.com/tbourn/go-order-assistant/internal/search"
	"github.com/tbourn/go-order-assistant/internal/session"
	"github.com/tbourn/go-order-assistant/internal/upsell"
)

// Status is the outcome of Process.
type Status string

const (
	StatusProcessed   Status = "processed"
	StatusDuplicate   Status = "duplicate"
	StatusRateLimited Status = "rate_limited"
)

const (
	DefaultTimeout        = 5 * time.Second
	DefaultMaxSuggestions = 2

	// Verdicts at or above this priority raise an alert even when not negative.
	alertPriority = 7
	recentTurns   = 4
	recentMoods   = 3
)

type (
	Limiter interface {
		Allow(senderID string) bool
		Remaining(senderID string) int
	}
	Classifier interface {
		Classify(ctx context.Context, text string, in fusion.Context) domain.FusionVerdict
	}
	Suggester interface {
		Suggest(ctx context.Context, req upsell.Request) []domain.UpsellCandidate
	}
	CustomerSource interface {
		FetchCustomerContext(ctx context.Context, senderID string) (*domain.CustomerContext, error)
	}
	MenuSource interface {
		FetchMenu(ctx context.Context, storeID string) ([]domain.MenuItem, error)
	}
	OrderFinalizer interface {
		FinalizeOrder(ctx context.Context, s *domain.Session) (string, error)
	}
	ReplySender interface {
		SendReply(ctx context.Context, to string, r channel.Reply) (string, error)
	}
	Alerter interface {
		SendAlert(ctx context.Context, a commerce.Alert) error
	}
	ActivityRecorder interface {
		RecordActivity(ctx context.Context, a *domain.Activity) error
	}
)

// Dispatch is the reply sent back to the sender.
type Dispatch struct {
	To           string                   `json:"to"`
	Text         string                   `json:"text"`
	QuickReplies []string                 `json:"quick_replies,omitempty"`
	Suggestions  []domain.UpsellCandidate `json:"suggestions,omitempty"`
	ReplyID      string                   `json:"reply_id,omitempty"`
}

// Result describes what Process did with a message. Duplicate and
// rate-limited results carry only the status, ids and remaining quota.
type Result struct {
	Status     Status                `json:"status"`
	MessageID  string                `json:"message_id"`
	SenderID   string                `json:"sender_id"`
	NewSession bool                  `json:"new_session,omitempty"`
	Step       domain.Step           `json:"step"`
	OrderID    string                `json:"order_id,omitempty"`
	Verdict    *domain.FusionVerdict `json:"verdict,omitempty"`
	Dispatch   *Dispatch             `json:"dispatch,omitempty"`
	Activity   *domain.Activity      `json:"activity,omitempty"`

	// RateRemaining is how many more messages the sender may send in the
	// current window; nil without a limiter.
	RateRemaining *int `json:"rate_remaining,omitempty"`
}

// Pipeline wires the core components to their collaborators. Dedup,
// Sessions, Locker and Fusion are required; every other field may be nil.
type Pipeline struct {
	Dedup    dedup.Cache
	Limiter  Limiter
	Sessions session.Store
	Locker   *session.Locker
	Fusion   Classifier
	Upsell   Suggester
	Replies  Replies

	Customers CustomerSource
	Menus     MenuSource

	// Menu is matched against when Menus is nil or fails.
	Menu     search.Index
	Orders   OrderFinalizer
	Sender   ReplySender
	Alerts   Alerter
	Activity ActivityRecorder

	StoreID        string
	Timeout        time.Duration
	MaxSuggestions int
	Now            func() time.Time

	// Weather is the hint for weather-driven offers when the customer
	// context carries none.
	Weather string
}

// Process handles one inbound message. Duplicates return a StatusDuplicate
// result and no error. A rate-limited message returns its result together
// with ErrRateLimited. When the reply cannot be delivered the full result
// is returned with an error wrapping ErrExternalSendFailure.
func (p *Pipeline) Process(ctx context.Context, msg domain.InboundMessage) (*Result, error) {
	msg.Text = strings.TrimSpace(msg.Text)
	if msg.MessageID == "" || msg.SenderID == "" || msg.Text == "" {
		return nil, ErrInvalidMessage
	}
	if msg.StoreID == "" {
		msg.StoreID = p.StoreID
	}

	tr := otel.Tracer("pipeline/Pipeline")
	ctx, span := tr.Start(ctx, "Process",
		trace.WithAttributes(
			attribute.String("message.id", msg.MessageID),
			attribute.String("channel", string(msg.Channel)),
		),
	)
	defer span.End()

	start := time.Now()
	res := &Result{MessageID: msg.MessageID, SenderID: msg.SenderID}

	snap, created, status, err := p.admit(ctx, msg)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	res.Status = status
	if p.Limiter != nil && status != StatusDuplicate {
		n := p.Limiter.Remaining(msg.SenderID)
		res.RateRemaining = &n
	}
	messagesTotal.WithLabelValues(string(status)).Inc()
	span.SetAttributes(attribute.String("status", string(status)))

	switch status {
	case StatusDuplicate:
		log.Debug().Str("message_id", msg.MessageID).Msg("pipeline: duplicate delivery")
		return res, nil
	case StatusRateLimited:
		log.Info().Str("sender", msg.SenderID).Msg("pipeline: sender rate limited")
		return res, ErrRateLimited
	}
	defer func() { processDuration.Observe(time.Since(start).Seconds()) }()
	res.NewSession = created

	customer := p.customer(ctx, msg.SenderID)
	menu := p.menu(ctx, msg.StoreID)
	verdict := p.Fusion.Classify(ctx, msg.Text, fusion.Context{
		Sentiment: sentimentContext(snap, customer),
		Customer:  customer,
	})
	res.Verdict = &verdict

	pl := decide(snap, verdict, menu, msg.Text)
	var orderID string
	if pl.finalize {
		orderID = p.finalize(ctx, snap)
	}

	// Project the plan on the snapshot to rank offers against the cart the
	// customer will have once this message is applied.
	projected := snap.Clone()
	po := apply(projected, pl, orderID)
	var suggestions []domain.UpsellCandidate
	if p.Upsell != nil && !po.cancelled && len(projected.Cart) > 0 && verdict.Intent != domain.IntentGreeting {
		req := upsell.RequestFor(projected, customer, timingFor(projected, po), p.maxSuggestions())
		req.Weather = p.weather(customer)
		suggestions = p.Upsell.Suggest(ctx, req)
	}

	final, o, text, err := p.commit(ctx, msg, commitInput{
		snapshot:    snap,
		plan:        pl,
		orderID:     orderID,
		customer:    customer,
		verdict:     verdict,
		menu:        menu,
		suggestions: suggestions,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	res.Step = final.Step
	if o.finalized {
		res.OrderID = final.PendingOrderID
	}

	d := &Dispatch{
		To:           msg.SenderID,
		Text:         text,
		QuickReplies: session.QuickReplies(final.Step),
		Suggestions:  suggestions,
	}
	res.Dispatch = d

	sendErr := p.send(ctx, d)
	res.Activity = p.record(ctx, msg, final, o, verdict, d, sendErr)
	p.alert(ctx, msg, customer, verdict)

	span.SetAttributes(
		attribute.String("intent", string(verdict.Intent)),
		attribute.String("step", final.Step.String()),
	)
	if sendErr != nil {
		span.RecordError(sendErr)
		return res, sendErr
	}
	return res, nil
}

// admit is the first critical section: dedup, rate limit and the user turn.
func (p *Pipeline) admit(ctx context.Context, msg domain.InboundMessage) (*domain.Session, bool, Status, error) {
	unlock := p.Locker.Lock(msg.SenderID)
	defer unlock()

	seen, err := p.Dedup.Seen(ctx, msg.MessageID)
	if err != nil {
		return nil, false, "", fmt.Errorf("dedup lookup: %w", err)
	}
	if seen {
		return nil, false, StatusDuplicate, nil
	}
	if p.Limiter != nil && !p.Limiter.Allow(msg.SenderID) {
		return nil, false, StatusRateLimited, nil
	}
	if err := p.Dedup.MarkSeen(ctx, msg.MessageID, msg.SenderID); err != nil {
		return nil, false, "", fmt.Errorf("dedup mark: %w", err)
	}

	s, created, err := p.Sessions.GetOrCreate(ctx, msg.SenderID, msg.StoreID)
	if err != nil {
		return nil, false, "", fmt.Errorf("session load: %w", err)
	}
	now := p.now()
	at := msg.ReceivedAt
	if at.IsZero() {
		at = now
	}
	s.AppendTurn(domain.RoleUser, msg.Text, at)
	s.LastActivityAt = now
	if err := p.Sessions.Save(ctx, s); err != nil {
		return nil, false, "", fmt.Errorf("session save: %w", err)
	}
	return s.Clone(), created, StatusProcessed, nil
}

type commitInput struct {
	snapshot    *domain.Session
	plan        plan
	orderID     string
	customer    *domain.CustomerContext
	verdict     domain.FusionVerdict
	menu        search.Index
	suggestions []domain.UpsellCandidate
}

// commit is the second critical section: it replays the plan on the stored
// session, writes the assistant turn and persists the result.
func (p *Pipeline) commit(ctx context.Context, msg domain.InboundMessage, in commitInput) (*domain.Session, outcome, string, error) {
	unlock := p.Locker.Lock(msg.SenderID)
	defer unlock()

	cur, err := p.Sessions.Get(ctx, msg.SenderID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		// Swept while the collaborators ran.
		cur = in.snapshot.Clone()
	case err != nil:
		return nil, outcome{}, "", fmt.Errorf("session reload: %w", err)
	}
	if cur.CustomerID == "" && in.customer != nil {
		cur.CustomerID = in.customer.CustomerID
	}

	o := apply(cur, in.plan, in.orderID)
	accepted, remaining := upsell.Accepted(cur.Offers, o.added)
	cur.Offers, o.accepted = remaining, len(accepted)
	text := composeReply(replyInput{
		base:        p.response(in.verdict.Intent),
		session:     cur,
		plan:        in.plan,
		outcome:     o,
		verdict:     in.verdict,
		menu:        in.menu,
		text:        msg.Text,
		suggestions: in.suggestions,
	})

	now := p.now()
	cur.AppendTurn(domain.RoleAssistant, text, now)
	cur.AppendSentiment(domain.SentimentMark{
		Sentiment:  in.verdict.Sentiment,
		Confidence: in.verdict.SentimentConfidence,
		Priority:   in.verdict.PriorityScore,
		Timestamp:  now,
	})
	cur.AppendOffers(upsell.Offered(in.suggestions, now)...)
	cur.LastActivityAt = now

	if o.cancelled || cur.Step == domain.StepCompleted {
		err = p.Sessions.Expire(ctx, msg.SenderID)
	} else {
		err = p.Sessions.Save(ctx, cur)
	}
	if err != nil {
		return nil, outcome{}, "", fmt.Errorf("session commit: %w", err)
	}
	return cur, o, text, nil
}

func (p *Pipeline) customer(ctx context.Context, senderID string) *domain.CustomerContext {
	if p.Customers == nil {
		return nil
	}
	cctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()
	c, err := p.Customers.FetchCustomerContext(cctx, senderID)
	if err != nil {
		if !errors.Is(err, commerce.ErrNotFound) {
			collaboratorFailures.WithLabelValues("customer").Inc()
			log.Warn().Err(err).Str("sender", senderID).Msg("pipeline: customer context unavailable")
		}
		return nil
	}
	return c
}

func (p *Pipeline) menu(ctx context.Context, storeID string) search.Index {
	if p.Menus == nil || storeID == "" {
		return p.Menu
	}
	cctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()
	items, err := p.Menus.FetchMenu(cctx, storeID)
	if err != nil {
		collaboratorFailures.WithLabelValues("menu").Inc()
		log.Warn().Err(err).Str("store", storeID).Msg("pipeline: menu unavailable")
		return p.Menu
	}
	if len(items) == 0 {
		return p.Menu
	}
	return search.NewIndex(items)
}

func (p *Pipeline) finalize(ctx context.Context, s *domain.Session) string {
	if p.Orders == nil || len(s.Cart) == 0 {
		return ""
	}
	cctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()
	id, err := p.Orders.FinalizeOrder(cctx, s)
	if err != nil {
		collaboratorFailures.WithLabelValues("orders").Inc()
		log.Error().Err(err).Str("sender", s.SenderID).Msg("pipeline: finalize order failed")
		return ""
	}
	return id
}

func (p *Pipeline) send(ctx context.Context, d *Dispatch) error {
	if p.Sender == nil {
		return nil
	}
	cctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()
	id, err := p.Sender.SendReply(cctx, d.To, channel.Reply{Text: d.Text, QuickReplies: d.QuickReplies})
	if err != nil {
		collaboratorFailures.WithLabelValues("channel").Inc()
		log.Error().Err(err).Str("to", d.To).Msg("pipeline: reply not delivered")
		return fmt.Errorf("%w: %w", ErrExternalSendFailure, err)
	}
	d.ReplyID = id
	return nil
}

func (p *Pipeline) record(ctx context.Context, msg domain.InboundMessage, s *domain.Session, o outcome, v domain.FusionVerdict, d *Dispatch, sendErr error) *domain.Activity {
	a := &domain.Activity{
		MessageID:       msg.MessageID,
		SenderID:        msg.SenderID,
		StoreID:         msg.StoreID,
		Intent:          string(v.Intent),
		Sentiment:       v.Sentiment.String(),
		Urgency:         v.Urgency.String(),
		Priority:        v.PriorityScore,
		Step:            s.Step.String(),
		Escalated:       needsFollowUp(v),
		Degraded:        v.Degraded,
		Reply:           d.Text,
		ReplyID:         d.ReplyID,
		Suggestions:     len(d.Suggestions),
		UpsellsAccepted: o.accepted,
		CreatedAt:       p.now().UTC(),
	}
	if sendErr != nil {
		a.SendError = sendErr.Error()
	}
	if p.Activity == nil {
		return a
	}
	if err := p.Activity.RecordActivity(ctx, a); err != nil && !errors.Is(err, repo.ErrDuplicate) {
		collaboratorFailures.WithLabelValues("activity").Inc()
		log.Warn().Err(err).Str("message_id", msg.MessageID).Msg("pipeline: activity not recorded")
	}
	return a
}

// needsFollowUp marks activity a human should look at.
func needsFollowUp(v domain.FusionVerdict) bool {
	return v.EscalationNeeded ||
		(v.Intent == domain.IntentComplaint && v.Sentiment <= domain.SentimentNegative)
}

func (p *Pipeline) alert(ctx context.Context, msg domain.InboundMessage, c *domain.CustomerContext, v domain.FusionVerdict) {
	if p.Alerts == nil {
		return
	}
	if v.Sentiment > domain.SentimentNegative && v.PriorityScore < alertPriority {
		return
	}
	severity := "medium"
	if v.Sentiment == domain.SentimentVeryNegative || v.Urgency >= domain.UrgencyHigh {
		severity = "high"
	}
	a := commerce.Alert{
		SenderID:  msg.SenderID,
		Sentiment: v.Sentiment.String(),
		Priority:  v.PriorityScore,
		Urgency:   v.Urgency.String(),
		Severity:  severity,
		KeyIssues: v.KeyIssues,
		Message:   msg.Text,
		Escalate:  v.EscalationNeeded,
		At:        p.now().UTC(),
	}
	if c != nil {
		a.CustomerID = c.CustomerID
	}
	cctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()
	if err := p.Alerts.SendAlert(cctx, a); err != nil {
		collaboratorFailures.WithLabelValues("alerts").Inc()
		log.Warn().Err(err).Str("sender", msg.SenderID).Msg("pipeline: alert not sent")
	}
}

func sentimentContext(s *domain.Session, c *domain.CustomerContext) fusion.SentimentContext {
	sc := fusion.SentimentContext{
		CustomerID: s.CustomerID,
		Step:       s.Step,
		CartItems:  s.CartQuantity(),
		CartValue:  s.CartTotal(),
		PriorMoods: lastN(s.Sentiments, recentMoods),
	}
	// The newest turn is the message being classified.
	if n := len(s.History); n > 1 {
		sc.RecentTurns = lastN(s.History[:n-1], recentTurns)
	}
	if c != nil {
		sc.CustomerID = c.CustomerID
		sc.ComplaintCount = c.ComplaintCount
	}
	return sc
}

func lastN[T any](s []T, n int) []T {
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return append([]T(nil), s...)
}

func (p *Pipeline) weather(c *domain.CustomerContext) string {
	if c != nil && c.Weather != "" {
		return c.Weather
	}
	return p.Weather
}

func (p *Pipeline) response(in domain.Intent) string {
	if p.Replies == nil {
		return ""
	}
	return p.Replies.Response(in)
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pipeline) timeout() time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return DefaultTimeout
}

func (p *Pipeline) maxSuggestions() int {
	if p.MaxSuggestions > 0 {
		return p.MaxSuggestions
	}
	return DefaultMaxSuggestions
}
