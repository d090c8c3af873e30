// Package sentiment scores article tone on [-1,1] with a discrete
// five-level classification. Two backends exist behind one capability: a
// lexicon scorer that is always available, and an optional model-backed
// scorer layered on top by the enrichment pipeline.
package sentiment

import (
	"context"
	"strings"
)

// Result is the canonical sentiment shape every consumer reads. Score is
// [-1,1]; ScoreNormalized rescales it to [0,100] for indicator math.
type Result struct {
	Score           float64        `json:"score"`
	ScoreNormalized float64        `json:"score_normalized"`
	Level           SentimentLevel `json:"level"`
	Confidence      float64        `json:"confidence"` // [0,1]
	Positive        float64        `json:"positive"`   // Fraction of matched tokens
	Negative        float64        `json:"negative"`
	Neutral         float64        `json:"neutral"`
}

// SentimentLevel is the discrete classification.
type SentimentLevel string

const (
	VeryNegative SentimentLevel = "very_negative"
	Negative     SentimentLevel = "negative"
	Neutral      SentimentLevel = "neutral"
	Positive     SentimentLevel = "positive"
	VeryPositive SentimentLevel = "very_positive"
)

// Emoji maps levels onto the markers narrative generation uses.
var Emoji = map[SentimentLevel]string{
	VeryPositive: "🚀",
	Positive:     "😊",
	Neutral:      "😐",
	Negative:     "😞",
	VeryNegative: "😱",
}

// LevelFor maps a [-1,1] score onto its level.
func LevelFor(score float64) SentimentLevel {
	switch {
	case score >= 0.5:
		return VeryPositive
	case score >= 0.05:
		return Positive
	case score <= -0.5:
		return VeryNegative
	case score <= -0.05:
		return Negative
	default:
		return Neutral
	}
}

// Backend scores raw text. Implementations must treat empty text as
// neutral with zero confidence, never as an error.
type Backend interface {
	Name() string
	Score(ctx context.Context, text string) (Result, error)
}

// Weighting of title versus body when both are present.
const (
	titleWeight = 0.3
	bodyWeight  = 0.7
)

// Analyzer combines a backend's title and body scores into the
// article-level result.
type Analyzer struct {
	backend Backend
}

// NewAnalyzer wraps a backend; nil gets the lexicon scorer.
func NewAnalyzer(backend Backend) *Analyzer {
	if backend == nil {
		backend = NewLexicon()
	}
	return &Analyzer{backend: backend}
}

// Backend reports the active backend name.
func (a *Analyzer) Backend() string { return a.backend.Name() }

// Analyze scores an article as 0.3*title + 0.7*body. A missing part
// cedes its weight to the other; both missing is neutral.
func (a *Analyzer) Analyze(ctx context.Context, title, body string) Result {
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)

	switch {
	case title == "" && body == "":
		return neutralResult()
	case title == "":
		return a.scoreOr(ctx, body)
	case body == "":
		return a.scoreOr(ctx, title)
	}

	t := a.scoreOr(ctx, title)
	b := a.scoreOr(ctx, body)
	return blend(t, b, titleWeight, bodyWeight)
}

// scoreOr runs the backend, falling back to the lexicon on error so the
// pipeline never stalls on a model outage.
func (a *Analyzer) scoreOr(ctx context.Context, text string) Result {
	res, err := a.backend.Score(ctx, text)
	if err != nil {
		res, _ = NewLexicon().Score(ctx, text)
	}
	return res
}

func blend(a, b Result, wa, wb float64) Result {
	score := wa*a.Score + wb*b.Score
	return Result{
		Score:           score,
		ScoreNormalized: (score + 1) * 50,
		Level:           LevelFor(score),
		Confidence:      wa*a.Confidence + wb*b.Confidence,
		Positive:        wa*a.Positive + wb*b.Positive,
		Negative:        wa*a.Negative + wb*b.Negative,
		Neutral:         wa*a.Neutral + wb*b.Neutral,
	}
}

func neutralResult() Result {
	return Result{ScoreNormalized: 50, Level: Neutral, Neutral: 1}
}
