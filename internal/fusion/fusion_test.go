package fusion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-order-assistant/internal/domain"
)

type fakeML struct {
	intent domain.Intent
	prob   float64
	err    error
}

func (f fakeML) ClassifyIntent(context.Context, string) (domain.Intent, float64, error) {
	return f.intent, f.prob, f.err
}

type fakeDetailed struct {
	d     *Detailed
	err   error
	delay time.Duration
}

func (f fakeDetailed) AnalyzeSentiment(ctx context.Context, _ string, _ SentimentContext) (*Detailed, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.d, f.err
}

func TestHeuristicIntent(t *testing.T) {
	cases := []struct {
		text string
		want domain.Intent
	}{
		{"Oi, bom dia!", domain.IntentGreeting},
		{"Quero uma pizza grande de calabresa", domain.IntentOrderRequest},
		{"Qual o cardápio de hoje?", domain.IntentMenuInquiry},
		{"Cadê meu pedido?", domain.IntentOrderStatus},
		{"Quero trocar o sabor", domain.IntentModifyOrder},
		{"Tchau", domain.IntentGoodbye},
		{"asdfgh", domain.IntentUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			got := HeuristicIntent(tc.text)
			assert.Equal(t, tc.want, got.Intent)
		})
	}
}

func TestHeuristicIntent_ZeroMatchesScoresZero(t *testing.T) {
	got := HeuristicIntent("lorem ipsum")
	assert.Equal(t, domain.IntentUnknown, got.Intent)
	assert.Zero(t, got.Score)
	assert.Zero(t, got.Matches)
}

func TestHeuristicIntent_OrderBeatsMenu(t *testing.T) {
	got := HeuristicIntent("Quero uma pizza grande de calabresa")
	assert.Greater(t, got.Score, heuristicPreferThreshold)
}

func TestScoreSentiment(t *testing.T) {
	cases := []struct {
		text string
		want domain.Sentiment
	}{
		{"A pizza estava horrível", domain.SentimentVeryNegative},
		{"Veio frio e atrasado", domain.SentimentNegative},
		{"Estava excelente, adorei", domain.SentimentVeryPositive},
		{"Muito bom e gostoso", domain.SentimentPositive},
		{"Quero uma pizza", domain.SentimentNeutral},
		{"Bom dia", domain.SentimentNeutral},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, ScoreSentiment(tc.text).Sentiment)
		})
	}
}

func TestScoreSentiment_ConfidenceBounded(t *testing.T) {
	f := ScoreSentiment("horrível péssimo nojento inaceitável revoltante furioso")
	assert.InDelta(t, 0.8, f.Confidence, 1e-9)

	f = ScoreSentiment("quero uma pizza")
	assert.InDelta(t, 0.1, f.Confidence, 1e-9)
}

func TestScoreSentiment_Urgency(t *testing.T) {
	assert.Equal(t, domain.UrgencyCritical, ScoreSentiment("preciso disso urgente").Urgency)
	assert.Equal(t, domain.UrgencyHigh, ScoreSentiment("é importante").Urgency)
	assert.Equal(t, domain.UrgencyMedium, ScoreSentiment("quando possível me avisa").Urgency)
	assert.Equal(t, domain.UrgencyLow, ScoreSentiment("oi").Urgency)
}

func TestClassify_VeryNegativeOverridesDetailed(t *testing.T) {
	e := NewEngine(nil, fakeDetailed{d: &Detailed{
		Sentiment:     domain.SentimentVeryPositive,
		Confidence:    0.9,
		Urgency:       domain.UrgencyLow,
		PriorityScore: 2,
	}})

	v := e.Classify(context.Background(), "Serviço inaceitável, vou no procon", Context{})
	assert.Equal(t, domain.SentimentVeryNegative, v.Sentiment)
	assert.False(t, v.Degraded)
	assert.Equal(t, 2, v.PriorityScore)
}

func TestClassify_DetailedAuthoritativeOtherwise(t *testing.T) {
	e := NewEngine(nil, fakeDetailed{d: &Detailed{
		Sentiment:        domain.SentimentNegative,
		Confidence:       0.6,
		Urgency:          domain.UrgencyHigh,
		EscalationNeeded: true,
		PriorityScore:    8,
		Emotions:         []string{"frustração"},
	}})

	v := e.Classify(context.Background(), "quero uma pizza", Context{})
	assert.Equal(t, domain.SentimentNegative, v.Sentiment)
	assert.Equal(t, domain.UrgencyHigh, v.Urgency)
	assert.InDelta(t, (0.1+0.6)/2, v.SentimentConfidence, 1e-9)
	assert.True(t, v.EscalationNeeded)
	assert.Equal(t, 8, v.PriorityScore)
	assert.Equal(t, []string{"frustração"}, v.Emotions)
}

func TestClassify_UrgencyIsOrdinalMax(t *testing.T) {
	e := NewEngine(nil, fakeDetailed{d: &Detailed{Urgency: domain.UrgencyLow, PriorityScore: 3}})
	v := e.Classify(context.Background(), "é urgente", Context{})
	assert.Equal(t, domain.UrgencyCritical, v.Urgency)
}

func TestClassify_DetailedTimeoutDegrades(t *testing.T) {
	e := NewEngine(nil, fakeDetailed{
		d:     &Detailed{EscalationNeeded: true, PriorityScore: 9},
		delay: time.Second,
	})
	e.DetailedTimeout = 20 * time.Millisecond

	v := e.Classify(context.Background(), "veio frio e atrasado", Context{})
	assert.True(t, v.Degraded)
	assert.False(t, v.EscalationNeeded)
	assert.Equal(t, fallbackPriority, v.PriorityScore)
	assert.Equal(t, domain.SentimentNegative, v.Sentiment)
}

func TestClassify_DetailedErrorDegrades(t *testing.T) {
	e := NewEngine(nil, fakeDetailed{err: errors.New("boom")})
	v := e.Classify(context.Background(), "oi", Context{})
	assert.True(t, v.Degraded)
	assert.False(t, v.EscalationNeeded)
}

func TestClassify_NilDetailedIsNotDegraded(t *testing.T) {
	v := NewEngine(nil, nil).Classify(context.Background(), "oi", Context{})
	assert.False(t, v.Degraded)
	assert.Equal(t, domain.IntentGreeting, v.Intent)
	assert.Equal(t, domain.SourceHeuristic, v.IntentSource)
}

func TestCombineIntent(t *testing.T) {
	weak := HeuristicResult{Intent: domain.IntentMenuInquiry, Score: 1.0 / 3, Matches: 1}
	strong := HeuristicResult{Intent: domain.IntentGreeting, Score: 1, Matches: 1}
	none := HeuristicResult{Intent: domain.IntentUnknown}

	cases := []struct {
		name       string
		h          HeuristicResult
		ml         mlResult
		want       domain.Intent
		wantSource domain.IntentSource
	}{
		{"confident model wins", strong, mlResult{domain.IntentComplaint, 0.9, true}, domain.IntentComplaint, domain.SourceStatistics},
		{"confident heuristic beats weak model", strong, mlResult{domain.IntentComplaint, 0.6, true}, domain.IntentGreeting, domain.SourceHeuristic},
		{"weak model beats weak heuristic", weak, mlResult{domain.IntentPaymentInfo, 0.4, true}, domain.IntentPaymentInfo, domain.SourceStatistics},
		{"unknown model falls through", weak, mlResult{domain.IntentUnknown, 0.2, true}, domain.IntentMenuInquiry, domain.SourceHeuristic},
		{"no model keeps heuristic", weak, mlResult{}, domain.IntentMenuInquiry, domain.SourceHeuristic},
		{"nothing matched", none, mlResult{}, domain.IntentUnknown, domain.SourceHeuristic},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in, _, src := combineIntent(tc.h, tc.ml)
			assert.Equal(t, tc.want, in)
			assert.Equal(t, tc.wantSource, src)
		})
	}
}

func TestClassify_UsesModel(t *testing.T) {
	e := NewEngine(fakeML{intent: domain.IntentRecommendation, prob: 0.95}, nil)
	v := e.Classify(context.Background(), "oi", Context{})
	assert.Equal(t, domain.IntentRecommendation, v.Intent)
	assert.InDelta(t, 0.95, v.IntentConfidence, 1e-9)
}

func TestClassify_ModelErrorIgnored(t *testing.T) {
	e := NewEngine(fakeML{err: ErrUnavailable}, nil)
	v := e.Classify(context.Background(), "tchau", Context{})
	assert.Equal(t, domain.IntentGoodbye, v.Intent)
}

func TestAdjustPolicy(t *testing.T) {
	p := DefaultAdjustPolicy()

	v := domain.FusionVerdict{PriorityScore: 9, Urgency: domain.UrgencyLow}
	p.Apply(&v, &domain.CustomerContext{ComplaintCount: 3, VIP: true, RecentIssues: 1})
	assert.Equal(t, 10, v.PriorityScore)
	assert.True(t, v.EscalationNeeded)
	assert.Equal(t, domain.UrgencyHigh, v.Urgency)

	v = domain.FusionVerdict{PriorityScore: 4, Urgency: domain.UrgencyCritical}
	p.Apply(&v, &domain.CustomerContext{ComplaintCount: 2, VIP: true})
	assert.Equal(t, 5, v.PriorityScore)
	assert.False(t, v.EscalationNeeded)
	assert.Equal(t, domain.UrgencyCritical, v.Urgency)

	v = domain.FusionVerdict{PriorityScore: 4}
	p.Apply(&v, nil)
	assert.Equal(t, 4, v.PriorityScore)
}

func TestClassify_AdjustsInDegradedMode(t *testing.T) {
	e := NewEngine(nil, fakeDetailed{err: ErrUnavailable})
	v := e.Classify(context.Background(), "oi", Context{
		Customer: &domain.CustomerContext{ComplaintCount: 5},
	})
	require.True(t, v.Degraded)
	assert.True(t, v.EscalationNeeded)
	assert.Equal(t, fallbackPriority+2, v.PriorityScore)
}

func TestConversationTrend(t *testing.T) {
	marks := func(ps ...int) []domain.SentimentMark {
		out := make([]domain.SentimentMark, len(ps))
		for i, p := range ps {
			out[i] = domain.SentimentMark{Priority: p}
		}
		return out
	}
	assert.Equal(t, TrendStable, ConversationTrend(nil))
	assert.Equal(t, TrendDeteriorating, ConversationTrend(marks(1, 2, 3, 7)))
	assert.Equal(t, TrendImproving, ConversationTrend(marks(9, 5, 4)))
	assert.Equal(t, TrendStable, ConversationTrend(marks(5, 6, 6)))
}

func TestHealthScore(t *testing.T) {
	assert.Equal(t, 5, HealthScore(nil))
	assert.Equal(t, 8, HealthScore([]domain.SentimentMark{{Priority: 3}, {Priority: 3}}))
	assert.Equal(t, 1, HealthScore([]domain.SentimentMark{{Priority: 10}, {Priority: 10}}))
}

func TestResponseWindow(t *testing.T) {
	assert.Equal(t, 5*time.Minute, ResponseWindow(domain.UrgencyCritical))
	assert.Equal(t, time.Hour, ResponseWindow(domain.UrgencyLow))
}
