// Package impact scores validated articles on a 0-100 business impact
// scale across six factor axes: severity, source credibility, geographic
// scope, temporal urgency, volume and sector relevance. The aggregate
// drives the 1-5 priority rank; ranks 1 and 2 fast-track past batching.
package impact

import (
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"newslens/internal/core"
	"newslens/internal/logger"
)

// Input is one article plus its cluster context.
type Input struct {
	Article      *core.RawArticle
	MentionCount int       // Cluster size; 0 reads as 1
	Now          time.Time // Zero means time.Now()
}

// Scorer computes impact scores under a fixed weight profile. Scoring is
// deterministic: the same input and profile always produce the same score.
type Scorer struct {
	profile Profile
	topo    []string
	log     zerolog.Logger
}

// NewScorer builds a scorer for the named weight profile. It validates
// the sector dependency graph; a cyclic graph is a build error, not a
// runtime surprise.
func NewScorer(profileName string) (*Scorer, error) {
	profile, err := ProfileByName(profileName)
	if err != nil {
		return nil, err
	}
	topo, err := topoSort(sectorDependencies)
	if err != nil {
		return nil, err
	}
	return &Scorer{
		profile: profile,
		topo:    topo,
		log:     logger.With("impact"),
	}, nil
}

// ProfileName reports the active weight profile.
func (s *Scorer) ProfileName() string { return s.profile.Name }

// Score runs all six axes and aggregates them under the profile weights.
func (s *Scorer) Score(in Input) core.ImpactScore {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	mentions := in.MentionCount
	if mentions < 1 {
		mentions = 1
	}

	idx := newTextIndex(in.Article.Title, in.Article.Body)
	eventType := detectEventType(idx)

	severity, severityHits := severityScore(idx)
	credibility := credibilityFor(in.Article.SourceID)
	geographic, mentioned := geographicScope(idx)
	temporal := temporalUrgency(idx, in.Article, now)
	volume := volumeScore(idx, mentions)
	sector, sectors, cascadeDepth := sectorRelevance(idx, eventType, s.topo)

	factors := map[string]float64{
		FactorSeverity:    severity,
		FactorCredibility: credibility,
		FactorGeographic:  geographic,
		FactorTemporal:    temporal,
		FactorVolume:      volume,
		FactorSector:      sector,
	}

	weighted := 0.0
	for _, name := range factorOrder {
		weighted += factors[name] * s.profile.Weights[name]
	}

	confidence := 0.4*(credibility/100) +
		0.3*signalDensity(severityHits, len(sectors), len(mentioned), eventType != "") +
		0.3*(severity/100)
	if confidence > 1 {
		confidence = 1
	}

	overall := weighted * confidenceAdjustment(confidence)
	if overall > 100 {
		overall = 100
	}

	res := core.ImpactScore{
		ArticleID:    in.Article.ArticleID,
		Profile:      s.profile.Name,
		Overall:      overall,
		Confidence:   confidence,
		Factors:      factors,
		Sectors:      sectors,
		Districts:    mentioned,
		EventType:    eventType,
		CascadeDepth: cascadeDepth,
		PriorityRank: priorityRank(overall),
		ComputedAt:   now,
	}

	s.log.Debug().
		Str("article", in.Article.ArticleID).
		Float64("score", overall).
		Int("priority", res.PriorityRank).
		Str("event", eventType).
		Msg("impact scored")
	return res
}

// ScoreBatch scores a slice in order. An empty input returns an empty
// slice, never nil handling surprises downstream.
func (s *Scorer) ScoreBatch(in []Input) []core.ImpactScore {
	out := make([]core.ImpactScore, 0, len(in))
	for _, item := range in {
		out = append(out, s.Score(item))
	}
	return out
}

// priorityRank maps the overall score onto the 1-5 rank. Ranks 1 and 2
// fast-track; the rank is advisory, downstream layers decide.
func priorityRank(score float64) int {
	switch {
	case score >= 85:
		return 1
	case score >= 70:
		return 2
	case score >= 50:
		return 3
	case score >= 30:
		return 4
	default:
		return 5
	}
}

// confidenceAdjustment maps the [0,1] confidence onto the multiplier
// applied to the weighted factor sum. Low confidence dampens the score
// without zeroing it; full confidence passes it through.
func confidenceAdjustment(confidence float64) float64 {
	return 0.5 + 0.5*confidence
}

// severityScore runs the tiered lexicons, returning the axis score and
// the keyword hit count feeding signal density.
func severityScore(idx *textIndex) (float64, int) {
	tiers := []struct {
		keywords []string
		base     float64
	}{
		{crisisKeywords, crisisBase},
		{highSeverityKeywords, highBase},
		{mediumSeverityKeywords, mediumBase},
	}

	best, hits := 0.0, 0
	for _, tier := range tiers {
		tierHits, inTitle := 0, false
		for _, kw := range tier.keywords {
			if idx.has(kw) {
				tierHits++
				if idx.inTitle(kw) {
					inTitle = true
				}
			}
		}
		if tierHits == 0 {
			continue
		}
		hits += tierHits
		score := tier.base + extraKeywordBonus*float64(tierHits-1)
		if inTitle {
			score += titleSeverityBump
		}
		if score > 100 {
			score = 100
		}
		if score > best {
			best = score
		}
	}

	// Figure-heavy articles the lexicons missed still carry weight.
	if hits == 0 {
		if density := idx.numericDensity(); density >= numericDensityMin {
			score := density / 0.25 * numericDensityCap
			if score > numericDensityCap {
				score = numericDensityCap
			}
			return score, 0
		}
	}
	return best, hits
}

// temporalUrgency scores the time axis: a breaking-news title forces 100,
// otherwise article age decides the band.
func temporalUrgency(idx *textIndex, article *core.RawArticle, now time.Time) float64 {
	for _, kw := range breakingKeywords {
		if idx.inTitle(kw) {
			return 100
		}
	}
	switch age := article.AgeAt(now); {
	case age <= 6*time.Hour:
		return 95
	case age <= 24*time.Hour:
		return 80
	case age <= 72*time.Hour:
		return 60
	case age <= 7*24*time.Hour:
		return 45
	default:
		return 25
	}
}

// volumeScore steps on the cluster mention count, with a boost when the
// text itself signals virality.
func volumeScore(idx *textIndex, mentions int) float64 {
	score := 0.0
	for _, step := range volumeSteps {
		if mentions >= step.mentions {
			score = step.score
			break
		}
	}
	if idx.hasAny(viralKeywords) {
		score += viralBoost
	}
	if score > 100 {
		score = 100
	}
	return score
}

// signalDensity folds how many independent signals the article carries
// into [0,1]: lexicon hits, affected sectors, named districts and a
// recognized event type.
func signalDensity(severityHits, sectorCount, districtCount int, hasEvent bool) float64 {
	signals := severityHits + sectorCount + districtCount
	if hasEvent {
		signals += 2
	}
	d := float64(signals) / 8.0
	if d > 1 {
		d = 1
	}
	return d
}

// textIndex holds the normalized article text with a token set for
// single-word lookups. Phrases fall back to substring containment.
type textIndex struct {
	title  string
	text   string
	tokens map[string]struct{}
	words  int
	digits int
}

func newTextIndex(title, body string) *textIndex {
	idx := &textIndex{
		title:  strings.ToLower(title),
		text:   strings.ToLower(title + " " + body),
		tokens: make(map[string]struct{}),
	}
	for _, tok := range strings.FieldsFunc(idx.text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '%'
	}) {
		idx.words++
		if strings.IndexFunc(tok, unicode.IsDigit) >= 0 {
			idx.digits++
		}
		idx.tokens[strings.Trim(tok, ".%")] = struct{}{}
	}
	return idx
}

func (idx *textIndex) has(keyword string) bool {
	if strings.ContainsRune(keyword, ' ') {
		return strings.Contains(idx.text, keyword)
	}
	_, ok := idx.tokens[keyword]
	return ok
}

func (idx *textIndex) inTitle(keyword string) bool {
	return strings.Contains(idx.title, keyword)
}

func (idx *textIndex) hasAny(keywords []string) bool {
	for _, kw := range keywords {
		if idx.has(kw) {
			return true
		}
	}
	return false
}

// numericDensity is the fraction of tokens carrying a digit.
func (idx *textIndex) numericDensity() float64 {
	if idx.words == 0 {
		return 0
	}
	return float64(idx.digits) / float64(idx.words)
}
