package textnorm

import (
	"reflect"
	"testing"
)

func TestFold_RemovesAccentsAndCase(t *testing.T) {
	cases := map[string]string{
		"Cardápio":    "cardapio",
		"AÇÃO":        "acao",
		"não gostei":  "nao gostei",
		"já":          "ja",
		"plain ascii": "plain ascii",
	}
	for in, want := range cases {
		if got := Fold(in); got != want {
			t.Fatalf("Fold(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestTokens_SplitsOnPunctuation(t *testing.T) {
	got := Tokens("Quero 2 pizzas, por favor! É urgente.")
	want := []string{"quero", "2", "pizzas", "por", "favor", "e", "urgente"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokens = %v; want %v", got, want)
	}
}

func TestSingular(t *testing.T) {
	if Singular("pizzas") != "pizza" || Singular("mas") != "mas" || Singular("express") != "express" {
		t.Fatalf("Singular mismatch")
	}
}

func TestTitle(t *testing.T) {
	if got := Title("pizza grande calabresa"); got != "Pizza Grande Calabresa" {
		t.Fatalf("Title = %q", got)
	}
}
