// Package classifier is the in-process statistical intent model: TF-IDF
// weighted unigrams and bigrams fed to a multinomial naive Bayes, trained at
// startup from a small labeled Portuguese corpus.
package classifier

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/tbourn/go-order-assistant/internal/domain"
	"github.com/tbourn/go-order-assistant/internal/textnorm"
)

var (
	ErrEmptyDataset = errors.New("dataset has no intents")
	ErrUnknownLabel = errors.New("dataset label is not a known intent")
	ErrNotTrained   = errors.New("classifier not trained")
)

// Option tunes training.
type Option func(*config)

type config struct {
	alpha       float64
	minProb     float64
	maxFeatures int
}

func defaultConfig() config {
	return config{alpha: 0.1, minProb: 0.3, maxFeatures: 1000}
}

// WithSmoothing sets the Laplace/Lidstone smoothing constant.
func WithSmoothing(a float64) Option {
	return func(c *config) {
		if a > 0 {
			c.alpha = a
		}
	}
}

// WithMinProbability sets the confidence below which the answer is unknown.
func WithMinProbability(p float64) Option {
	return func(c *config) {
		if p >= 0 && p <= 1 {
			c.minProb = p
		}
	}
}

// WithMaxFeatures keeps only the n most frequent terms.
func WithMaxFeatures(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxFeatures = n
		}
	}
}

// NaiveBayes is immutable after Train and safe for concurrent use.
type NaiveBayes struct {
	cfg     config
	labels  []domain.Intent
	idf     map[string]float64
	prior   []float64
	logProb []map[string]float64
	unseen  []float64
}

// Train fits a model on every example in ds.
func Train(ds *Dataset, opts ...Option) (*NaiveBayes, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if ds == nil || len(ds.Intents) == 0 {
		return nil, ErrEmptyDataset
	}

	type sample struct {
		label int
		terms map[string]int
	}
	labels := ds.Labels()
	var samples []sample
	df := map[string]int{}
	tf := map[string]int{}
	for li, name := range labels {
		for _, ex := range ds.Intents[name].Examples {
			terms := features(ex)
			if len(terms) == 0 {
				continue
			}
			samples = append(samples, sample{label: li, terms: terms})
			for t, n := range terms {
				df[t]++
				tf[t] += n
			}
		}
	}
	if len(samples) == 0 {
		return nil, ErrEmptyDataset
	}

	vocab := topTerms(tf, cfg.maxFeatures)
	n := float64(len(samples))
	idf := make(map[string]float64, len(vocab))
	for _, t := range vocab {
		// Smoothed idf, as in the usual sklearn default.
		idf[t] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}

	k := len(labels)
	counts := make([]int, k)
	weights := make([]map[string]float64, k)
	totals := make([]float64, k)
	for i := range weights {
		weights[i] = map[string]float64{}
	}
	for _, s := range samples {
		counts[s.label]++
		for t, w := range tfidf(s.terms, idf) {
			weights[s.label][t] += w
			totals[s.label] += w
		}
	}

	m := &NaiveBayes{
		cfg:     cfg,
		labels:  make([]domain.Intent, k),
		idf:     idf,
		prior:   make([]float64, k),
		logProb: make([]map[string]float64, k),
		unseen:  make([]float64, k),
	}
	v := float64(len(vocab))
	for i, name := range labels {
		m.labels[i] = domain.ParseIntent(name)
		m.prior[i] = math.Log(float64(counts[i]) / n)
		denom := totals[i] + cfg.alpha*v
		m.logProb[i] = make(map[string]float64, len(weights[i]))
		for t, w := range weights[i] {
			m.logProb[i][t] = math.Log((w + cfg.alpha) / denom)
		}
		m.unseen[i] = math.Log(cfg.alpha / denom)
	}
	return m, nil
}

// TrainDefault trains on the embedded corpus.
func TrainDefault(opts ...Option) (*NaiveBayes, error) {
	ds, err := DefaultDataset()
	if err != nil {
		return nil, err
	}
	return Train(ds, opts...)
}

// Predict returns the most likely intent and its posterior probability. Below
// the minimum probability the intent is unknown, with the probability kept.
func (m *NaiveBayes) Predict(text string) (domain.Intent, float64) {
	if m == nil || len(m.labels) == 0 {
		return domain.IntentUnknown, 0
	}
	x := tfidf(features(text), m.idf)
	if len(x) == 0 {
		return domain.IntentUnknown, 0
	}

	scores := make([]float64, len(m.labels))
	best := 0
	for i := range m.labels {
		s := m.prior[i]
		for t, w := range x {
			lp, ok := m.logProb[i][t]
			if !ok {
				lp = m.unseen[i]
			}
			s += w * lp
		}
		scores[i] = s
		if s > scores[best] {
			best = i
		}
	}

	// Softmax over log scores.
	var sum float64
	for _, s := range scores {
		sum += math.Exp(s - scores[best])
	}
	p := 1 / sum
	if p < m.cfg.minProb {
		return domain.IntentUnknown, p
	}
	return m.labels[best], p
}

// ClassifyIntent adapts Predict to the fusion engine's classifier contract.
func (m *NaiveBayes) ClassifyIntent(ctx context.Context, text string) (domain.Intent, float64, error) {
	if m == nil {
		return domain.IntentUnknown, 0, ErrNotTrained
	}
	if err := ctx.Err(); err != nil {
		return domain.IntentUnknown, 0, err
	}
	in, p := m.Predict(text)
	return in, p, nil
}

// features extracts unigram and bigram counts from folded tokens.
func features(text string) map[string]int {
	toks := textnorm.Tokens(text)
	if len(toks) == 0 {
		return nil
	}
	out := make(map[string]int, 2*len(toks))
	for i, t := range toks {
		out[t]++
		if i > 0 {
			out[toks[i-1]+" "+t]++
		}
	}
	return out
}

// tfidf weights raw counts by idf and L2-normalizes. Terms outside the
// vocabulary are dropped.
func tfidf(terms map[string]int, idf map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(terms))
	var norm float64
	for t, n := range terms {
		w, ok := idf[t]
		if !ok {
			continue
		}
		v := float64(n) * w
		out[t] = v
		norm += v * v
	}
	if norm == 0 {
		return nil
	}
	norm = math.Sqrt(norm)
	for t := range out {
		out[t] /= norm
	}
	return out
}

func topTerms(tf map[string]int, n int) []string {
	terms := make([]string, 0, len(tf))
	for t := range tf {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(a, b int) bool {
		if tf[terms[a]] != tf[terms[b]] {
			return tf[terms[a]] > tf[terms[b]]
		}
		return terms[a] < terms[b]
	})
	if n > 0 && len(terms) > n {
		terms = terms[:n]
	}
	return terms
}
