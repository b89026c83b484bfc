package search

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tbourn/go-order-assistant/internal/domain"
	"github.com/tbourn/go-order-assistant/internal/textnorm"
)

// ---------- tiny io.Reader that always errors ----------
type boomReader struct{}

func (boomReader) Read(_ []byte) (int, error) { return 0, errors.New("boom") }

func testMenu() []domain.MenuItem {
	return []domain.MenuItem{
		{ID: "pz-cal-g", Name: "Pizza Grande Calabresa", Category: "pizza", Price: 55, Available: true},
		{ID: "pz-cal-m", Name: "Pizza Média Calabresa", Category: "pizza", Price: 45, Available: true},
		{ID: "pz-cal", Name: "Pizza Calabresa", Category: "pizza", Price: 40, Available: true},
		{ID: "ref", Name: "Refrigerante", Category: "bebida", Price: 8, Available: true},
		{ID: "pz-mus", Name: "Pizza Mussarela", Category: "pizza", Price: 38, Available: false},
	}
}

// ---------- Options + defaultConfig ----------
func TestOptionsAndDefaults(t *testing.T) {
	def := defaultConfig()
	if def.maxQuantity != 20 || def.defaultQuantity != 1 || def.includeSoldOut {
		t.Fatalf("defaultConfig unexpected: %#v", def)
	}
	if _, ok := def.stopwords["de"]; !ok {
		t.Fatalf("default stopwords missing 'de'")
	}

	cfg := def
	WithStopwords([]string{"  Com ", "", "Ç"})(&cfg)
	if _, ok := cfg.stopwords["com"]; !ok {
		t.Fatalf("WithStopwords failed: %#v", cfg.stopwords)
	}
	if _, ok := cfg.stopwords["c"]; !ok {
		t.Fatalf("stopwords should be folded: %#v", cfg.stopwords)
	}
	before := cfg.stopwords
	WithStopwords(nil)(&cfg)
	if len(cfg.stopwords) != len(before) {
		t.Fatalf("empty stopwords should be ignored")
	}

	WithMaxItems(2)(&cfg)
	WithMaxItems(0)(&cfg)
	if cfg.maxItems != 2 {
		t.Fatalf("WithMaxItems: %d", cfg.maxItems)
	}
	WithMaxQuantity(5)(&cfg)
	WithMaxQuantity(-1)(&cfg)
	if cfg.maxQuantity != 5 {
		t.Fatalf("WithMaxQuantity: %d", cfg.maxQuantity)
	}
	WithSoldOut(true)(&cfg)
	if !cfg.includeSoldOut {
		t.Fatalf("WithSoldOut failed")
	}
}

func TestBuildIndex_SkipsSoldOutAndCaps(t *testing.T) {
	if n := NewIndex(testMenu()).Len(); n != 4 {
		t.Fatalf("expected 4 available items, got %d", n)
	}
	if n := NewIndex(testMenu(), WithSoldOut(true)).Len(); n != 5 {
		t.Fatalf("expected 5 items with sold out, got %d", n)
	}
	if n := NewIndex(testMenu(), WithMaxItems(2)).Len(); n != 2 {
		t.Fatalf("expected cap of 2, got %d", n)
	}
	// names made only of stopwords are skipped
	if n := NewIndex([]domain.MenuItem{{Name: "de do da", Available: true}}).Len(); n != 0 {
		t.Fatalf("stopword-only name should be skipped, got %d", n)
	}
}

// ---------- Match ----------
func TestMatch_LongestWins(t *testing.T) {
	idx := NewIndex(testMenu())
	got := idx.Match("Quero uma pizza grande de calabresa")
	if len(got) != 1 {
		t.Fatalf("expected exactly one match, got %#v", got)
	}
	if got[0].Item.Name != "Pizza Grande Calabresa" || got[0].Quantity != 1 {
		t.Fatalf("unexpected match: %#v", got[0])
	}
}

func TestMatch_QuantitiesAndPlurals(t *testing.T) {
	idx := NewIndex(testMenu())
	got := idx.Match("manda três refrigerantes e 2 pizzas calabresa")
	if len(got) != 2 {
		t.Fatalf("expected two matches, got %#v", got)
	}
	// sorted by name
	if got[0].Item.Name != "Pizza Calabresa" || got[0].Quantity != 2 {
		t.Fatalf("pizza: %#v", got[0])
	}
	if got[1].Item.Name != "Refrigerante" || got[1].Quantity != 3 {
		t.Fatalf("refrigerante: %#v", got[1])
	}
}

func TestMatch_QuantityCapAndDefaults(t *testing.T) {
	idx := NewIndex(testMenu(), WithMaxQuantity(5))
	got := idx.Match("99 refrigerante")
	if len(got) != 1 || got[0].Quantity != 5 {
		t.Fatalf("expected capped quantity 5, got %#v", got)
	}
	got = idx.Match("refrigerante")
	if len(got) != 1 || got[0].Quantity != 1 {
		t.Fatalf("expected default quantity 1, got %#v", got)
	}
}

func TestMatch_Modifications(t *testing.T) {
	idx := NewIndex(testMenu())
	got := idx.Match("Quero uma pizza grande de calabresa sem cebola")
	if len(got) != 1 || got[0].Item.ID != "pz-cal-g" {
		t.Fatalf("expected the large pizza, got %#v", got)
	}
	if len(got[0].Modifications) != 1 || got[0].Modifications[0] != "sem cebola" {
		t.Fatalf("modifications: %#v", got[0].Modifications)
	}

	// modifiers stay with the item they follow
	got = idx.Match("uma pizza calabresa com borda recheada e sem azeitona e dois refrigerantes sem gelo")
	if len(got) != 2 {
		t.Fatalf("expected two matches, got %#v", got)
	}
	pizza, soda := got[0], got[1]
	if want := []string{"com borda recheada", "sem azeitona"}; !equalStrings(pizza.Modifications, want) {
		t.Fatalf("pizza modifications: %#v", pizza.Modifications)
	}
	if soda.Quantity != 2 || !equalStrings(soda.Modifications, []string{"sem gelo"}) {
		t.Fatalf("soda: %#v", soda)
	}
}

func TestModifiers(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"sem cebola e azeitona", []string{"sem cebola", "sem azeitona"}},
		{"extra queijo por favor", []string{"extra queijo"}},
		{"com uma borda recheada", []string{"com borda recheada"}},
		{"com", nil},
		{"bem quente", nil},
		{"sem cebola 2", []string{"sem cebola"}},
	}
	for _, tc := range cases {
		if got := modifiers(textnorm.Tokens(tc.in)); !equalStrings(got, tc.want) {
			t.Fatalf("modifiers(%q) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMatch_NoHit(t *testing.T) {
	idx := NewIndex(testMenu())
	if got := idx.Match("quero uma pizza de mussarela"); got != nil {
		t.Fatalf("sold out item must not match: %#v", got)
	}
	if got := idx.Match("   "); got != nil {
		t.Fatalf("blank text should not match")
	}
	if got := NewIndex(nil).Match("pizza"); got != nil {
		t.Fatalf("empty index should not match")
	}
}

// ---------- TopK ----------
func TestTopK_BranchesAndSorting(t *testing.T) {
	idx := NewIndex(testMenu())
	if out := idx.TopK("   ", 2); out != nil {
		t.Fatalf("blank query should return nil")
	}
	if out := idx.TopK("de da", 2); out != nil {
		t.Fatalf("stopword-only query should return nil")
	}
	if out := idx.TopK("sushi", 2); out != nil {
		t.Fatalf("zero overlap should return nil")
	}

	got := idx.TopK("pizza calabresa", 0)
	if len(got) != 3 {
		t.Fatalf("expected 3 results (k default), got %d", len(got))
	}
	if got[0].Item.Name != "Pizza Calabresa" || got[0].Score != 1 {
		t.Fatalf("exact match should rank first: %#v", got[0])
	}
	// equal scores fall back to cheaper first
	if got[1].Item.Name != "Pizza Média Calabresa" || got[2].Item.Name != "Pizza Grande Calabresa" {
		t.Fatalf("unexpected tie order: %#v", got)
	}
}

// ---------- constructors ----------
func TestNewIndexFromMarkdownAndReader(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "menu.md")
	md := "# Cardápio\n\n| Nome | Categoria | Preço |\n|---|---|---|\n| Pizza Calabresa | Pizza | R$ 40,00 |\n"
	if err := os.WriteFile(p, []byte(md), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	idx, err := NewIndexFromMarkdown(p)
	if err != nil {
		t.Fatalf("NewIndexFromMarkdown: %v", err)
	}
	if idx.Len() != 1 {
		t.Fatalf("expected 1 item, got %d", idx.Len())
	}

	idx, err = NewIndexFromMarkdown(filepath.Join(dir, "missing.md"))
	if err == nil || idx == nil || idx.Len() != 0 {
		t.Fatalf("missing file should return an empty index and an error")
	}

	idx, err = NewIndexFromReader(boomReader{})
	if err == nil || idx.Len() != 0 {
		t.Fatalf("reader error should surface")
	}
}

// ---------- helpers ----------
func TestHelpers(t *testing.T) {
	toks := tokenize("Pizzas de Calabresa", map[string]struct{}{"de": {}})
	if _, ok := toks["pizza"]; !ok {
		t.Fatalf("tokenize should singularize: %#v", toks)
	}
	if _, ok := toks["de"]; ok {
		t.Fatalf("tokenize should drop stopwords: %#v", toks)
	}
	if tokenize("  ", nil) != nil {
		t.Fatalf("blank input should produce nil")
	}

	a := map[string]struct{}{"x": {}, "y": {}}
	b := map[string]struct{}{"x": {}, "y": {}, "z": {}}
	if overlap(a, b) != 2 || !subset(a, b) || subset(b, a) {
		t.Fatalf("overlap/subset broken")
	}
}
