// Package upsell ranks supplementary offers for a customer's current cart.
//
// Candidates come from four sources: static category rules, the customer's
// order history, time of day and weather, and an optional model-backed
// generator. The pool is filtered against the customer's segment, scored and
// cut to the requested size. Ranking is deterministic for a given pool.
package upsell

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-order-assistant/internal/domain"
	"github.com/tbourn/go-order-assistant/internal/textnorm"
)

const (
	DefaultMaxSuggestions  = 3
	DefaultGenerateTimeout = 5 * time.Second

	// Candidates whose kind the segment does not prefer survive above this.
	preferOverride = 0.8
	// Share of the order value above which price-sensitive segments are penalized.
	penaltyShare = 0.10
)

// ErrMalformedCandidate marks a generated candidate that failed validation.
var ErrMalformedCandidate = errors.New("malformed upsell candidate")

// GenerateRequest is what the model-backed generator sees.
type GenerateRequest struct {
	Cart       []domain.CartLine
	OrderValue float64
	Segment    string
	Timing     domain.UpsellTiming
}

// CandidateGenerator proposes candidates from a model.
type CandidateGenerator interface {
	GenerateUpsellCandidates(ctx context.Context, req GenerateRequest) ([]domain.UpsellCandidate, error)
}

// Request is one ranking call.
type Request struct {
	Cart     []domain.CartLine
	Customer *domain.CustomerContext
	Timing   domain.UpsellTiming
	Max      int
	Weather  string
}

// RequestFor builds a ranking request from a session.
func RequestFor(s *domain.Session, c *domain.CustomerContext, timing domain.UpsellTiming, n int) Request {
	var cart []domain.CartLine
	if s != nil {
		cart = s.Cart
	}
	return Request{Cart: cart, Customer: c, Timing: timing, Max: n}
}

// Engine is safe for concurrent use.
type Engine struct {
	Generator       CandidateGenerator
	GenerateTimeout time.Duration
	Now             func() time.Time
}

func NewEngine(gen CandidateGenerator) *Engine {
	return &Engine{Generator: gen, GenerateTimeout: DefaultGenerateTimeout, Now: time.Now}
}

// Suggest returns at most req.Max candidates by descending score. An empty
// cart yields nothing.
func (e *Engine) Suggest(ctx context.Context, req Request) []domain.UpsellCandidate {
	tr := otel.Tracer("upsell/Engine")
	ctx, span := tr.Start(ctx, "Suggest",
		trace.WithAttributes(
			attribute.Int("cart.lines", len(req.Cart)),
			attribute.String("timing", string(req.Timing)),
		),
	)
	defer span.End()

	orderValue := cartValue(req.Cart)
	if orderValue <= 0 {
		return nil
	}
	n := req.Max
	if n <= 0 {
		n = DefaultMaxSuggestions
	}

	segName := DefaultSegment
	var past [][]domain.CartLine
	if req.Customer != nil {
		if req.Customer.Segment != "" {
			segName = req.Customer.Segment
		}
		past = req.Customer.PastOrders
	}
	seg := LookupSegment(segName)

	now := time.Now()
	if e.Now != nil {
		now = e.Now()
	}

	// Pool order decides which duplicate name survives.
	var pool []domain.UpsellCandidate
	pool = append(pool, fromCategory(req.Cart, seg)...)
	pool = append(pool, fromHistory(req.Cart, past)...)
	pool = append(pool, fromContext(now, req.Weather)...)
	pool = append(pool, e.fromModel(ctx, GenerateRequest{
		Cart:       req.Cart,
		OrderValue: orderValue,
		Segment:    seg.Name,
		Timing:     req.Timing,
	})...)

	out := Rank(pool, req.Cart, orderValue, seg, req.Timing, n)
	span.SetAttributes(
		attribute.Int("pool", len(pool)),
		attribute.Int("suggestions", len(out)),
		attribute.String("segment", seg.Name),
	)
	return out
}

func (e *Engine) fromModel(ctx context.Context, req GenerateRequest) []domain.UpsellCandidate {
	if e.Generator == nil {
		return nil
	}
	timeout := e.GenerateTimeout
	if timeout <= 0 {
		timeout = DefaultGenerateTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type answer struct {
		cands []domain.UpsellCandidate
		err   error
	}
	ch := make(chan answer, 1)
	go func() {
		c, err := e.Generator.GenerateUpsellCandidates(ctx, req)
		ch <- answer{c, err}
	}()

	var a answer
	select {
	case a = <-ch:
	case <-ctx.Done():
		a.err = ctx.Err()
	}
	if a.err != nil {
		sourceUnavailable.WithLabelValues(string(domain.UpsellFromModel)).Inc()
		log.Warn().Err(a.err).Msg("upsell generator unavailable, omitting model source")
		return nil
	}

	out := make([]domain.UpsellCandidate, 0, len(a.cands))
	for _, c := range a.cands {
		if err := validate(c); err != nil {
			log.Debug().Err(err).Str("name", c.Name).Msg("dropping generated candidate")
			continue
		}
		c.Source = domain.UpsellFromModel
		if c.ItemID == "" {
			c.ItemID = slug("ai", c.Name)
		}
		out = append(out, c)
	}
	return out
}

func validate(c domain.UpsellCandidate) error {
	switch {
	case textnorm.Fold(c.Name) == "":
		return ErrMalformedCandidate
	case !c.Kind.Valid():
		return ErrMalformedCandidate
	case c.Price < 0 || math.IsNaN(c.Price) || math.IsInf(c.Price, 0):
		return ErrMalformedCandidate
	case c.Confidence < 0 || c.Confidence > 1:
		return ErrMalformedCandidate
	case c.SuccessProbability < 0 || c.SuccessProbability > 1:
		return ErrMalformedCandidate
	case c.DiscountPercent != nil && (*c.DiscountPercent < 0 || *c.DiscountPercent > 100):
		return ErrMalformedCandidate
	}
	return nil
}

// Rank filters, scores and orders a candidate pool.
func Rank(pool []domain.UpsellCandidate, cart []domain.CartLine, orderValue float64, seg Segment, timing domain.UpsellTiming, n int) []domain.UpsellCandidate {
	limit := orderValue * seg.MaxUpsellPercent
	seen := make(map[string]struct{}, len(pool))
	kept := make([]domain.UpsellCandidate, 0, len(pool))
	for _, c := range pool {
		if c.Price > limit {
			continue
		}
		if !seg.prefers(c.Kind) && c.Confidence <= preferOverride {
			continue
		}
		key := textnorm.Fold(c.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if inCart(cart, c.Name) {
			continue
		}
		c.Score = Score(c, orderValue, seg, timing)
		kept = append(kept, c)
	}

	sort.SliceStable(kept, func(a, b int) bool {
		if kept[a].Score != kept[b].Score {
			return kept[a].Score > kept[b].Score
		}
		if ra, rb := kept[a].Source.Rank(), kept[b].Source.Rank(); ra != rb {
			return ra < rb
		}
		return kept[a].Name < kept[b].Name
	})
	if n > 0 && len(kept) > n {
		kept = kept[:n]
	}
	return kept
}

// Score is confidence × success plus bonuses for personalization, timing and
// (for price-sensitive segments) discounts, minus a penalty for expensive
// offers to price-sensitive segments. The result is clamped to [0,1].
func Score(c domain.UpsellCandidate, orderValue float64, seg Segment, timing domain.UpsellTiming) float64 {
	s := c.Confidence*c.SuccessProbability +
		0.1*float64(len(c.PersonalizationFactors)) +
		0.2*TimingSuccessRate(timing)
	if seg.PriceSensitive {
		if c.DiscountPercent != nil {
			s += *c.DiscountPercent / 100 * 0.3
		}
		if c.Price > orderValue*penaltyShare {
			s -= 0.2
		}
	}
	return math.Max(0, math.Min(1, s))
}

func cartValue(cart []domain.CartLine) float64 {
	var v float64
	for _, l := range cart {
		v += l.Subtotal()
	}
	return v
}
