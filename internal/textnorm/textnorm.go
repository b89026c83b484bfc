// Package textnorm folds Portuguese chat text into a comparable form: lower
// case, no diacritics, simple tokens.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s and strips combining marks ("Cardápio" → "cardapio").
func Fold(s string) string {
	// transform chains keep state and must not be shared across goroutines.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// Tokens folds s and splits it on anything that is not a letter or digit.
func Tokens(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Singular drops a plural "s" from longer tokens ("pizzas" → "pizza").
func Singular(tok string) string {
	if len(tok) > 3 && strings.HasSuffix(tok, "s") && !strings.HasSuffix(tok, "ss") {
		return tok[:len(tok)-1]
	}
	return tok
}

// Title capitalizes each word using Brazilian Portuguese rules.
func Title(s string) string {
	return cases.Title(language.BrazilianPortuguese).String(strings.TrimSpace(s))
}
