// Package fusion combines the keyword heuristics with the optional
// statistical classifier and the detailed sentiment estimator into a single
// FusionVerdict per message.
//
// Classify never fails. When an estimator errors, times out or returns an
// unusable answer, its axis falls back to the keyword tier and the verdict is
// flagged as degraded.
package fusion

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-order-assistant/internal/domain"
)

const (
	mlPreferThreshold        = 0.7
	heuristicPreferThreshold = 0.5

	// Priority reported when no detailed estimate is available.
	fallbackPriority = 5

	DefaultMLTimeout       = 2 * time.Second
	DefaultDetailedTimeout = 8 * time.Second
)

// ErrUnavailable is what estimators return when they have nothing to say.
var ErrUnavailable = errors.New("estimator unavailable")

// IntentClassifier is the trained statistical intent model.
type IntentClassifier interface {
	ClassifyIntent(ctx context.Context, text string) (domain.Intent, float64, error)
}

// SentimentContext is what the detailed estimator gets besides the text.
type SentimentContext struct {
	CustomerID     string
	Step           domain.Step
	CartItems      int
	CartValue      float64
	RecentTurns    []domain.Turn
	PriorMoods     []domain.SentimentMark
	ComplaintCount int
}

// Detailed is a validated structured verdict from the detailed estimator.
type Detailed struct {
	Sentiment        domain.Sentiment
	Confidence       float64
	Urgency          domain.Urgency
	Emotions         []string
	KeyIssues        []string
	EscalationNeeded bool
	PriorityScore    int
	ResponseTone     string
	SuggestedActions []string
}

// SentimentAnalyzer is the detailed sentiment estimator.
type SentimentAnalyzer interface {
	AnalyzeSentiment(ctx context.Context, text string, sc SentimentContext) (*Detailed, error)
}

// Context carries the per-message inputs to Classify.
type Context struct {
	Sentiment SentimentContext
	// Customer is nil when the commerce backend had nothing for the sender.
	Customer *domain.CustomerContext
}

// Engine is safe for concurrent use once configured.
type Engine struct {
	ML       IntentClassifier
	Detailed SentimentAnalyzer

	MLTimeout       time.Duration
	DetailedTimeout time.Duration

	Adjust AdjustPolicy
}

// NewEngine wires both optional estimators with the default timeouts and
// customer policy. Either estimator may be nil.
func NewEngine(ml IntentClassifier, detailed SentimentAnalyzer) *Engine {
	return &Engine{
		ML:              ml,
		Detailed:        detailed,
		MLTimeout:       DefaultMLTimeout,
		DetailedTimeout: DefaultDetailedTimeout,
		Adjust:          DefaultAdjustPolicy(),
	}
}

type mlResult struct {
	intent domain.Intent
	prob   float64
	ok     bool
}

// Classify runs the estimators concurrently and fuses their answers.
func (e *Engine) Classify(ctx context.Context, text string, in Context) domain.FusionVerdict {
	tr := otel.Tracer("fusion/Engine")
	ctx, span := tr.Start(ctx, "Classify",
		trace.WithAttributes(attribute.Int("text.len", len(text))),
	)
	defer span.End()

	var (
		wg       sync.WaitGroup
		ml       mlResult
		detailed *Detailed
		detErr   error
	)

	if e.ML != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ml = e.runML(ctx, text)
		}()
	}
	if e.Detailed != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			detailed, detErr = e.runDetailed(ctx, text, in.Sentiment)
		}()
	}

	heur := HeuristicIntent(text)
	fast := ScoreSentiment(text)
	wg.Wait()

	v := domain.FusionVerdict{}
	v.Intent, v.IntentConfidence, v.IntentSource = combineIntent(heur, ml)

	switch {
	case e.Detailed == nil:
		applyFast(&v, fast)
	case detErr != nil:
		applyFast(&v, fast)
		v.Degraded = true
		degradedTotal.WithLabelValues(degradeReason(detErr)).Inc()
		log.Warn().Err(detErr).Str("fallback", "keyword").Msg("detailed sentiment unavailable")
	default:
		combineSentiment(&v, fast, detailed)
	}

	e.Adjust.Apply(&v, in.Customer)

	verdictTotal.WithLabelValues(string(v.Intent), v.Sentiment.String()).Inc()
	span.SetAttributes(
		attribute.String("intent", string(v.Intent)),
		attribute.String("intent.source", string(v.IntentSource)),
		attribute.String("sentiment", v.Sentiment.String()),
		attribute.Int("priority", v.PriorityScore),
		attribute.Bool("degraded", v.Degraded),
	)
	return v
}

func (e *Engine) runML(ctx context.Context, text string) mlResult {
	ctx, cancel := context.WithTimeout(ctx, orDefault(e.MLTimeout, DefaultMLTimeout))
	defer cancel()

	intent, prob, err := e.ML.ClassifyIntent(ctx, text)
	if err != nil {
		log.Debug().Err(err).Msg("intent classifier unavailable")
		return mlResult{}
	}
	return mlResult{intent: intent, prob: clamp01(prob), ok: true}
}

func (e *Engine) runDetailed(ctx context.Context, text string, sc SentimentContext) (*Detailed, error) {
	ctx, cancel := context.WithTimeout(ctx, orDefault(e.DetailedTimeout, DefaultDetailedTimeout))
	defer cancel()

	type answer struct {
		d   *Detailed
		err error
	}
	ch := make(chan answer, 1)
	go func() {
		d, err := e.Detailed.AnalyzeSentiment(ctx, text, sc)
		ch <- answer{d, err}
	}()

	// An analyzer that ignores ctx must not hold the message up.
	select {
	case a := <-ch:
		if a.err != nil {
			return nil, a.err
		}
		if a.d == nil {
			return nil, ErrUnavailable
		}
		return a.d, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// combineIntent prefers a confident model, then a confident heuristic, then
// any model answer, then the heuristic as is.
func combineIntent(h HeuristicResult, ml mlResult) (domain.Intent, float64, domain.IntentSource) {
	switch {
	case ml.ok && ml.prob > mlPreferThreshold:
		return ml.intent, ml.prob, domain.SourceStatistics
	case h.Score > heuristicPreferThreshold:
		return h.Intent, h.Score, domain.SourceHeuristic
	case ml.ok && ml.intent != domain.IntentUnknown:
		return ml.intent, ml.prob, domain.SourceStatistics
	default:
		return h.Intent, h.Score, domain.SourceHeuristic
	}
}

func applyFast(v *domain.FusionVerdict, f FastSentiment) {
	v.Sentiment = f.Sentiment
	v.SentimentConfidence = f.Confidence
	v.Urgency = f.Urgency
	v.EscalationNeeded = false
	v.PriorityScore = fallbackPriority
}

func combineSentiment(v *domain.FusionVerdict, f FastSentiment, d *Detailed) {
	v.Sentiment = d.Sentiment
	if f.Sentiment == domain.SentimentVeryNegative {
		v.Sentiment = domain.SentimentVeryNegative
	}
	v.SentimentConfidence = (f.Confidence + clamp01(d.Confidence)) / 2
	v.Urgency = domain.MaxUrgency(f.Urgency, d.Urgency)
	v.EscalationNeeded = d.EscalationNeeded
	v.PriorityScore = clampPriority(d.PriorityScore)
	v.Emotions = d.Emotions
	v.KeyIssues = d.KeyIssues
	v.ResponseTone = d.ResponseTone
	v.SuggestedActions = d.SuggestedActions
}

func degradeReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

func clampPriority(p int) int {
	switch {
	case p < 1:
		return 1
	case p > 10:
		return 10
	}
	return p
}
