// Package quality scores articles on a 0-100 composite across five
// dimensions: completeness, consistency, recency, source trust and
// readability. The score gates what the enrichment layer passes on.
package quality

import (
	"strings"
	"time"
	"unicode"

	"newslens/internal/core"
)

// Dimension names, used as Dimensions map keys.
const (
	DimCompleteness = "completeness"
	DimConsistency  = "consistency"
	DimRecency      = "recency"
	DimSourceTrust  = "source_trust"
	DimReadability  = "readability"
)

// Dimension weights. They sum to 1.
var weights = map[string]float64{
	DimCompleteness: 0.25,
	DimConsistency:  0.20,
	DimRecency:      0.20,
	DimSourceTrust:  0.20,
	DimReadability:  0.15,
}

// Assessment is the per-article quality result.
type Assessment struct {
	ArticleID  string             `json:"article_id"`
	Score      float64            `json:"score"` // [0,100]
	Band       core.QualityBand   `json:"band"`
	Dimensions map[string]float64 `json:"dimensions"` // Name -> [0,100]
	ComputedAt time.Time          `json:"computed_at"`
}

// Scorer computes assessments. The zero value is usable.
type Scorer struct{}

// NewScorer builds a quality scorer.
func NewScorer() *Scorer { return &Scorer{} }

// Score assesses one article. trustScore is the [0,100] cross-validation
// trust result; pass a negative value when validation has not run and the
// dimension falls back to a neutral 50.
func (s *Scorer) Score(article *core.RawArticle, trustScore float64, now time.Time) Assessment {
	if now.IsZero() {
		now = time.Now()
	}
	if trustScore < 0 {
		trustScore = 50
	} else if trustScore > 100 {
		trustScore = 100
	}

	dims := map[string]float64{
		DimCompleteness: completeness(article),
		DimConsistency:  consistency(article),
		DimRecency:      recency(article, now),
		DimSourceTrust:  trustScore,
		DimReadability:  readability(article.Body),
	}

	total := 0.0
	for name, w := range weights {
		total += dims[name] * w
	}

	return Assessment{
		ArticleID:  article.ArticleID,
		Score:      total,
		Band:       core.QualityBandFor(total),
		Dimensions: dims,
		ComputedAt: now,
	}
}

// completeness rewards articles carrying every structural field. Body
// length dominates; metadata fields top it up.
func completeness(a *core.RawArticle) float64 {
	score := 0.0
	switch words := a.WordCount(); {
	case words >= 300:
		score += 50
	case words >= 100:
		score += 40
	case words >= 30:
		score += 25
	case words > 0:
		score += 10
	}
	if strings.TrimSpace(a.Title) != "" {
		score += 20
	}
	if a.Author != "" {
		score += 10
	}
	if !a.PublishDate.IsZero() {
		score += 10
	}
	if a.URL != "" {
		score += 10
	}
	return score
}

// consistency checks that the body actually covers what the title
// promises, as token overlap of meaningful title words.
func consistency(a *core.RawArticle) float64 {
	titleToks := meaningfulTokens(a.Title)
	if len(titleToks) == 0 {
		return 50
	}
	bodyToks := make(map[string]struct{})
	for _, tok := range meaningfulTokens(a.Body) {
		bodyToks[tok] = struct{}{}
	}
	if len(bodyToks) == 0 {
		return 0
	}
	covered := 0
	for _, tok := range titleToks {
		if _, ok := bodyToks[tok]; ok {
			covered++
		}
	}
	return float64(covered) / float64(len(titleToks)) * 100
}

// recency bands article age the same way the impact scorer's temporal
// axis does.
func recency(a *core.RawArticle, now time.Time) float64 {
	switch age := a.AgeAt(now); {
	case age <= 6*time.Hour:
		return 100
	case age <= 24*time.Hour:
		return 85
	case age <= 72*time.Hour:
		return 65
	case age <= 7*24*time.Hour:
		return 45
	case age <= 30*24*time.Hour:
		return 25
	default:
		return 10
	}
}

// readability scores sentence and word lengths against journalistic
// sweet spots (12-25 words per sentence, 4-7 letters per word).
func readability(body string) float64 {
	body = strings.TrimSpace(body)
	if body == "" {
		return 0
	}

	sentences := 0
	for _, r := range body {
		if r == '.' || r == '!' || r == '?' {
			sentences++
		}
	}
	if sentences == 0 {
		sentences = 1
	}

	words := strings.Fields(body)
	if len(words) == 0 {
		return 0
	}
	letters := 0
	for _, w := range words {
		letters += len(w)
	}

	wordsPerSentence := float64(len(words)) / float64(sentences)
	lettersPerWord := float64(letters) / float64(len(words))

	score := 100.0
	switch {
	case wordsPerSentence > 40 || wordsPerSentence < 4:
		score -= 40
	case wordsPerSentence > 30 || wordsPerSentence < 8:
		score -= 20
	}
	switch {
	case lettersPerWord > 9 || lettersPerWord < 3:
		score -= 30
	case lettersPerWord > 8:
		score -= 15
	}
	if score < 0 {
		score = 0
	}
	return score
}

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "of": {}, "in": {}, "on": {}, "to": {},
	"for": {}, "and": {}, "as": {}, "at": {}, "by": {}, "with": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "has": {},
	"have": {}, "had": {}, "its": {}, "it": {}, "this": {}, "that": {},
	"from": {}, "amid": {}, "after": {}, "over": {},
}

func meaningfulTokens(text string) []string {
	raw := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := raw[:0]
	for _, tok := range raw {
		if len(tok) < 3 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}
