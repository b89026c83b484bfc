package fusion

import (
	"math"
	"regexp"
	"strings"

	"github.com/tbourn/go-order-assistant/internal/domain"
	"github.com/tbourn/go-order-assistant/internal/textnorm"
)

// keywordSet matches whole words or phrases in folded text.
type keywordSet []*regexp.Regexp

func keywords(words ...string) keywordSet {
	out := make(keywordSet, len(words))
	for i, w := range words {
		out[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(textnorm.Fold(w)) + `\b`)
	}
	return out
}

// count returns how many distinct keywords occur in folded.
func (k keywordSet) count(folded string) int {
	n := 0
	for _, re := range k {
		if re.MatchString(folded) {
			n++
		}
	}
	return n
}

var (
	veryNegativeWords = keywords(
		"horrível", "péssimo", "nojento", "inaceitável", "revoltante", "nunca mais",
		"cancelar", "reembolso", "processo", "advogado", "procon", "reclamação formal",
		"indignado", "furioso",
	)
	negativeWords = keywords(
		"ruim", "demorado", "frio", "atrasado", "errado", "problema", "reclamar",
		"insatisfeito", "decepcionado", "chateado", "irritado", "não gostei", "qualidade baixa",
	)
	neutralNegativeWords = keywords(
		"ok", "mais ou menos", "poderia ser melhor", "esperava mais",
		"não é o que esperava", "comum", "normal",
	)
	veryPositiveWords = keywords(
		"excelente", "perfeito", "maravilhoso", "incrível", "fantástico",
		"adorei", "amei", "surpreendente", "excepcional", "nota 10",
	)
	positiveWords = keywords(
		"bom", "gostoso", "saboroso", "rápido", "quente", "fresco",
		"recomendo", "satisfeito", "feliz", "obrigado",
	)

	// Checked from most to least urgent; the first hit wins.
	urgencyWords = []struct {
		level domain.Urgency
		words keywordSet
	}{
		{domain.UrgencyCritical, keywords("emergência", "urgente", "imediatamente", "agora", "não posso esperar", "preciso resolver já")},
		{domain.UrgencyHigh, keywords("rápido", "logo", "quanto antes", "prioridade", "importante", "sério problema")},
		{domain.UrgencyMedium, keywords("quando possível", "assim que puder", "no seu tempo")},
	}
)

// FastSentiment is the keyword tier's judgment.
type FastSentiment struct {
	Sentiment     domain.Sentiment
	Confidence    float64
	Urgency       domain.Urgency
	NegativeScore int
	PositiveScore int
}

// ScoreSentiment weighs negative tiers 3/2/1 and positive tiers 3/2. Any very
// negative keyword makes the message VeryNegative.
func ScoreSentiment(text string) FastSentiment {
	folded := textnorm.Fold(strings.TrimSpace(text))

	vn := veryNegativeWords.count(folded)
	neg := negativeWords.count(folded)
	nn := neutralNegativeWords.count(folded)
	vp := veryPositiveWords.count(folded)
	pos := positiveWords.count(folded)

	negScore := vn*3 + neg*2 + nn
	posScore := vp*3 + pos*2

	var s domain.Sentiment
	switch {
	case vn > 0:
		s = domain.SentimentVeryNegative
	case negScore > 3:
		s = domain.SentimentNegative
	case posScore > negScore && posScore > 2:
		if vp > 0 {
			s = domain.SentimentVeryPositive
		} else {
			s = domain.SentimentPositive
		}
	case negScore > posScore:
		s = domain.SentimentNegative
	default:
		s = domain.SentimentNeutral
	}

	urgency := domain.UrgencyLow
	for _, u := range urgencyWords {
		if u.words.count(folded) > 0 {
			urgency = u.level
			break
		}
	}

	diff := math.Abs(float64(negScore - posScore))
	return FastSentiment{
		Sentiment:     s,
		Confidence:    math.Min(0.8, (diff+1)/10),
		Urgency:       urgency,
		NegativeScore: negScore,
		PositiveScore: posScore,
	}
}
