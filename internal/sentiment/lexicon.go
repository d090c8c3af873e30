package sentiment

import (
	"context"
	"strings"
	"unicode"
)

// Lexicon is the rule-based backend. It is deterministic, needs no
// network and anchors the fallback contract for the model backend.
type Lexicon struct{}

// NewLexicon builds the lexicon backend.
func NewLexicon() *Lexicon { return &Lexicon{} }

func (l *Lexicon) Name() string { return "lexicon" }

// Weighted term lists. Weights express how hard a word lands; domain
// terms for economic reporting carry the strongest signals.
var positiveTerms = map[string]float64{
	"growth": 0.6, "recovery": 0.7, "surplus": 0.6, "profit": 0.5,
	"gain": 0.5, "gains": 0.5, "improve": 0.5, "improved": 0.5,
	"improvement": 0.5, "boost": 0.5, "strong": 0.4, "stable": 0.4,
	"success": 0.6, "successful": 0.6, "record": 0.3, "rise": 0.3,
	"expansion": 0.5, "investment": 0.4, "agreement": 0.4, "resolved": 0.6,
	"breakthrough": 0.7, "restored": 0.6, "reopened": 0.5, "eased": 0.5,
	"positive": 0.5, "optimistic": 0.6, "upgrade": 0.6, "relief": 0.5,
	"surge": 0.4, "milestone": 0.5, "approval": 0.4, "benefit": 0.4,
}

var negativeTerms = map[string]float64{
	"crisis": -0.8, "collapse": -0.9, "shortage": -0.7, "default": -0.8,
	"loss": -0.5, "losses": -0.5, "decline": -0.5, "drop": -0.4,
	"fall": -0.4, "fell": -0.4, "deficit": -0.6, "debt": -0.4,
	"inflation": -0.5, "unemployment": -0.6, "protest": -0.5,
	"strike": -0.5, "violence": -0.8, "disaster": -0.8, "flood": -0.6,
	"drought": -0.6, "emergency": -0.7, "warning": -0.4, "concern": -0.4,
	"fear": -0.5, "panic": -0.7, "shutdown": -0.6, "closure": -0.5,
	"bankruptcy": -0.8, "corruption": -0.7, "fraud": -0.7, "scandal": -0.6,
	"negative": -0.5, "downgrade": -0.6, "risk": -0.3, "threat": -0.5,
	"failed": -0.6, "failure": -0.6, "weak": -0.4, "worst": -0.7,
	"blackout": -0.6, "curfew": -0.7, "devaluation": -0.6,
}

// Negators flip the following sentiment word inside a 2-token window.
var negators = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "without": {}, "neither": {},
	"hardly": {}, "barely": {},
}

// Intensifiers scale the following sentiment word.
var intensifiers = map[string]float64{
	"very": 1.5, "extremely": 1.8, "severely": 1.8, "highly": 1.4,
	"slightly": 0.6, "somewhat": 0.7, "marginally": 0.6, "sharply": 1.5,
}

// Score tokenizes and accumulates weighted term scores with negation and
// intensifier handling. Empty text is neutral with zero confidence.
func (l *Lexicon) Score(_ context.Context, text string) (Result, error) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return neutralResult(), nil
	}

	var sum float64
	var posHits, negHits int
	for i, tok := range tokens {
		weight, ok := positiveTerms[tok]
		if !ok {
			weight, ok = negativeTerms[tok]
		}
		if !ok {
			continue
		}

		mult := 1.0
		for back := i - 1; back >= 0 && back >= i-2; back-- {
			prev := tokens[back]
			if _, neg := negators[prev]; neg {
				mult = -mult
				break
			}
			if m, ok := intensifiers[prev]; ok {
				mult *= m
			}
		}

		w := weight * mult
		sum += w
		if w > 0 {
			posHits++
		} else if w < 0 {
			negHits++
		}
	}

	hits := posHits + negHits
	if hits == 0 {
		return neutralResult(), nil
	}

	// Normalize against matched terms with dampening so one loaded word
	// in a long article does not saturate the scale.
	score := sum / (float64(hits) + 2)
	if score > 1 {
		score = 1
	} else if score < -1 {
		score = -1
	}

	density := float64(hits) / float64(len(tokens))
	confidence := density * 10
	if confidence > 1 {
		confidence = 1
	}

	total := float64(len(tokens))
	return Result{
		Score:           score,
		ScoreNormalized: (score + 1) * 50,
		Level:           LevelFor(score),
		Confidence:      confidence,
		Positive:        float64(posHits) / total,
		Negative:        float64(negHits) / total,
		Neutral:         (total - float64(hits)) / total,
	}, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
