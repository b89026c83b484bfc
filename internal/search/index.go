// Package search is an in-memory index over a store's menu. It finds the menu
// items a customer names in free text and ranks items against a query.
//
// The index is immutable after construction and safe for concurrent use.
// Matching works on accent-folded, singularized tokens, so "duas pizzas de
// calabresa" finds "Pizza Calabresa".
package search

import (
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/tbourn/go-order-assistant/internal/domain"
	"github.com/tbourn/go-order-assistant/internal/textnorm"
)

// Result is a ranked menu item with its similarity score.
type Result struct {
	Item  domain.MenuItem
	Score float64
}

// Match is a menu item named in a message together with the quantity asked
// for and the modifiers that follow it ("sem cebola", "com borda").
type Match struct {
	Item          domain.MenuItem
	Quantity      int
	Modifications []string
}

// Index is implemented by menu indices.
type Index interface {
	// Match returns the items whose full name appears in text. When one
	// match's tokens are a subset of a longer match, only the longer survives.
	Match(text string) []Match
	// TopK ranks items by Jaccard similarity between query and item tokens.
	TopK(query string, k int) []Result
	Len() int
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	stopwords       map[string]struct{}
	includeSoldOut  bool
	maxItems        int
	maxQuantity     int
	defaultQuantity int
}

var defaultStopwords = []string{"de", "da", "do", "das", "dos", "com", "e", "a", "o", "um", "uma"}

func defaultConfig() config {
	c := config{maxQuantity: 20, defaultQuantity: 1}
	WithStopwords(defaultStopwords)(&c)
	return c
}

// WithStopwords replaces the default stopword list. Words are folded.
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = textnorm.Fold(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

// WithSoldOut keeps unavailable items in the index.
func WithSoldOut(include bool) Option {
	return func(c *config) { c.includeSoldOut = include }
}

// WithMaxItems caps how many menu items are indexed.
func WithMaxItems(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxItems = n
		}
	}
}

// WithMaxQuantity caps the quantity read from a message.
func WithMaxQuantity(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxQuantity = n
		}
	}
}

// ----------------------------------------------------------------------------
// Implementation

type entry struct {
	item   domain.MenuItem
	tokens map[string]struct{}
}

type index struct {
	cfg     config
	entries []entry
}

// NewIndex builds an Index over items.
func NewIndex(items []domain.MenuItem, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return buildIndex(items, cfg)
}

// NewIndexFromMarkdown reads a menu table from path. See ParseMenuMarkdown.
func NewIndexFromMarkdown(path string, opts ...Option) (Index, error) {
	items, err := LoadMenuMarkdown(path)
	if err != nil {
		return NewIndex(nil, opts...), err
	}
	return NewIndex(items, opts...), nil
}

// NewIndexFromReader parses a menu table from r.
func NewIndexFromReader(r io.Reader, opts ...Option) (Index, error) {
	items, err := ParseMenuMarkdown(r)
	if err != nil {
		return NewIndex(nil, opts...), err
	}
	return NewIndex(items, opts...), nil
}

func buildIndex(items []domain.MenuItem, cfg config) *index {
	entries := make([]entry, 0, len(items))
	for _, it := range items {
		if !it.Available && !cfg.includeSoldOut {
			continue
		}
		toks := tokenize(it.Name, cfg.stopwords)
		if len(toks) == 0 {
			continue
		}
		entries = append(entries, entry{item: it, tokens: toks})
		if cfg.maxItems > 0 && len(entries) >= cfg.maxItems {
			break
		}
	}
	return &index{cfg: cfg, entries: entries}
}

func (i *index) Len() int { return len(i.entries) }

func (i *index) Match(text string) []Match {
	if len(i.entries) == 0 || strings.TrimSpace(text) == "" {
		return nil
	}
	// Quantities are read from raw tokens: "tres" must not become "tre".
	raw := textnorm.Tokens(text)
	present := make(map[string]int, len(raw))
	for pos := len(raw) - 1; pos >= 0; pos-- {
		present[textnorm.Singular(raw[pos])] = pos
	}

	type hit struct {
		e           entry
		first, last int
	}
	var hits []hit
	for _, e := range i.entries {
		first, last := len(raw), -1
		all := true
		for t := range e.tokens {
			pos, ok := present[t]
			if !ok {
				all = false
				break
			}
			first = min(first, pos)
			last = max(last, pos)
		}
		if all {
			hits = append(hits, hit{e: e, first: first, last: last})
		}
	}
	if len(hits) == 0 {
		return nil
	}

	kept := hits[:0:0]
	for a, h := range hits {
		shadowed := false
		for b, other := range hits {
			if a != b && len(other.e.tokens) > len(h.e.tokens) && subset(h.e.tokens, other.e.tokens) {
				shadowed = true
				break
			}
		}
		if !shadowed {
			kept = append(kept, h)
		}
	}

	out := make([]Match, 0, len(kept))
	for _, h := range kept {
		// Modifiers run from the end of the item name up to the next item.
		end := len(raw)
		for _, other := range kept {
			if other.first > h.last && other.first < end {
				end = other.first
			}
		}
		out = append(out, Match{
			Item:          h.e.item,
			Quantity:      i.quantityBefore(raw, h.first),
			Modifications: modifiers(raw[h.last+1 : end]),
		})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Item.Name < out[b].Item.Name })
	return out
}

// quantityBefore reads a number word or digits right before pos.
func (i *index) quantityBefore(toks []string, pos int) int {
	if pos <= 0 || pos > len(toks) {
		return i.cfg.defaultQuantity
	}
	w := toks[pos-1]
	n, ok := numberWords[w]
	if !ok {
		v, err := strconv.Atoi(w)
		if err != nil || v < 1 {
			return i.cfg.defaultQuantity
		}
		n = v
	}
	if n > i.cfg.maxQuantity {
		n = i.cfg.maxQuantity
	}
	return n
}

func (i *index) TopK(q string, k int) []Result {
	if len(i.entries) == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 {
		k = 3
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}

	buf := make([]Result, 0, len(i.entries))
	for _, e := range i.entries {
		over := overlap(qTokens, e.tokens)
		if over == 0 {
			continue
		}
		union := float64(len(qTokens) + len(e.tokens) - over)
		buf = append(buf, Result{Item: e.item, Score: float64(over) / union})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].Score != buf[b].Score {
			return buf[a].Score > buf[b].Score
		}
		if buf[a].Item.Price != buf[b].Item.Price {
			return buf[a].Item.Price < buf[b].Item.Price
		}
		return buf[a].Item.Name < buf[b].Item.Name
	})
	if k > len(buf) {
		k = len(buf)
	}
	return buf[:k]
}

// ----------------------------------------------------------------------------
// Helpers

var numberWords = map[string]int{
	"um": 1, "uma": 1, "dois": 2, "duas": 2, "tres": 3, "quatro": 4, "cinco": 5,
	"seis": 6, "sete": 7, "oito": 8, "nove": 9, "dez": 10,
}

var (
	modifierMarkers = map[string]struct{}{"sem": {}, "com": {}, "extra": {}}
	modifierBreaks  = map[string]struct{}{
		"e": {}, "mas": {}, "por": {}, "favor": {}, "pfv": {}, "tambem": {}, "pra": {}, "para": {},
	}
)

// modifiers reads runs such as "sem cebola", "com borda recheada" or
// "extra queijo" out of toks. "sem cebola e azeitona" repeats the marker
// for the second run. A marker with nothing after it is dropped.
func modifiers(toks []string) []string {
	var (
		out     []string
		cur     []string
		pending string
	)
	flush := func() {
		if len(cur) > 1 {
			out = append(out, strings.Join(cur, " "))
		}
		cur = nil
	}
	for _, t := range toks {
		if _, ok := modifierMarkers[t]; ok {
			flush()
			cur, pending = []string{t}, ""
			continue
		}
		if t == "e" && len(cur) > 1 {
			pending = cur[0]
			flush()
			continue
		}
		if _, ok := modifierBreaks[t]; ok {
			flush()
			pending = ""
			continue
		}
		if _, ok := numberWords[t]; ok && len(cur) == 1 {
			// article: "com uma borda"
			continue
		}
		if _, ok := numberWords[t]; ok {
			flush()
			pending = ""
			continue
		}
		if _, err := strconv.Atoi(t); err == nil {
			flush()
			pending = ""
			continue
		}
		switch {
		case cur != nil:
			cur = append(cur, t)
		case pending != "":
			cur, pending = []string{pending, t}, ""
		}
	}
	flush()
	return out
}

// sequence is the ordered, singularized token stream of s.
func sequence(s string) []string {
	toks := textnorm.Tokens(s)
	for i, t := range toks {
		toks[i] = textnorm.Singular(t)
	}
	return toks
}

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	seq := sequence(s)
	if len(seq) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(seq))
	for _, w := range seq {
		if _, skip := stop[w]; skip {
			continue
		}
		out[w] = struct{}{}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

func subset(a, b map[string]struct{}) bool {
	return overlap(a, b) == len(a)
}
