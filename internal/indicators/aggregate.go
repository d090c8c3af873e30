package indicators

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"newslens/internal/core"
	"newslens/internal/logger"
	"newslens/internal/metrics"
)

// Match score bands for keyword evidence. Anything under minMatchScore is
// not a match.
const (
	strongMatch   = 1.0
	moderateMatch = 0.8
	weakMatch     = 0.4
	minMatchScore = 0.3

	maxEvidenceArticles = 10
)

// matchScore counts distinct keyword hits with word-boundary semantics
// and bands them.
func matchScore(keywords []string, tokens map[string]struct{}, text string) (float64, int) {
	hits := 0
	for _, kw := range keywords {
		if strings.ContainsRune(kw, ' ') {
			if strings.Contains(text, kw) {
				hits++
			}
			continue
		}
		if _, ok := tokens[kw]; ok {
			hits++
		}
	}
	var score float64
	switch {
	case hits >= 3:
		score = strongMatch
	case hits >= 2:
		score = moderateMatch
	case hits >= 1:
		score = weakMatch
	}
	if score < minMatchScore {
		return 0, 0
	}
	return score, hits
}

// Snapshot is the output of one aggregation run.
type Snapshot struct {
	Timestamp  time.Time                                      `json:"timestamp"`
	Values     []core.IndicatorValue                          `json:"values"`
	Composites map[core.PESTELCategory]core.CategoryComposite `json:"composites"`
	NAI        core.NationalActivityIndex                     `json:"nai"`
}

// Value finds one indicator's value in the snapshot.
func (s *Snapshot) Value(indicatorID string) (core.IndicatorValue, bool) {
	for _, v := range s.Values {
		if v.IndicatorID == indicatorID {
			return v, true
		}
	}
	return core.IndicatorValue{}, false
}

// Aggregator turns a run's enriched articles into indicator values.
type Aggregator struct {
	defs    []core.IndicatorDefinition
	byID    map[string]core.IndicatorDefinition
	metrics *metrics.Registry
	log     zerolog.Logger
}

// NewAggregator builds an aggregator over the given catalog; nil means
// the embedded one.
func NewAggregator(defs []core.IndicatorDefinition, reg *metrics.Registry) *Aggregator {
	if defs == nil {
		defs = Catalog()
	}
	byID := make(map[string]core.IndicatorDefinition, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
	}
	return &Aggregator{defs: defs, byID: byID, metrics: reg, log: logger.With("indicators")}
}

// Definitions returns the catalog in use.
func (a *Aggregator) Definitions() []core.IndicatorDefinition { return a.defs }

// SetWeight applies a learning-layer weight adjustment to one indicator.
func (a *Aggregator) SetWeight(indicatorID string, weight float64) bool {
	for i := range a.defs {
		if a.defs[i].ID == indicatorID {
			a.defs[i].BaseWeight = weight
			a.byID[indicatorID] = a.defs[i]
			return true
		}
	}
	return false
}

// matchedArticle is one article's contribution to one indicator.
type matchedArticle struct {
	article *core.EnrichedArticle
	score   float64
	hits    int
}

// Run computes one IndicatorValue per active indicator, the category
// composites and the activity index. Every active indicator emits a
// value even with zero matches, for series continuity. Articles sharing
// a cluster count once, represented by the highest-quality member.
func (a *Aggregator) Run(articles []*core.EnrichedArticle, now time.Time) *Snapshot {
	start := time.Now()
	if now.IsZero() {
		now = start
	}
	articles = collapseClusters(articles)

	// Tokenize each article once; the catalog walks the same index.
	type indexed struct {
		article *core.EnrichedArticle
		tokens  map[string]struct{}
		text    string
	}
	idx := make([]indexed, len(articles))
	for i, art := range articles {
		text := strings.ToLower(art.Title + " " + art.Body)
		tokens := make(map[string]struct{})
		for _, tok := range strings.Fields(text) {
			tokens[strings.Trim(tok, ".,;:!?\"'()[]%")] = struct{}{}
		}
		idx[i] = indexed{article: art, tokens: tokens, text: text}
	}

	values := make([]core.IndicatorValue, 0, len(a.defs))
	byIndicator := make(map[string]core.IndicatorValue, len(a.defs))

	// First pass: leaf indicators (everything except composite/ratio,
	// which read other indicators' values).
	for _, d := range a.defs {
		if !d.Active || derived(d.CalculationType) {
			continue
		}
		var matched []matchedArticle
		for _, ix := range idx {
			if score, hits := matchScore(d.Keywords, ix.tokens, ix.text); score > 0 {
				matched = append(matched, matchedArticle{article: ix.article, score: score, hits: hits})
			}
		}
		v := a.calculate(d, matched, now)
		values = append(values, v)
		byIndicator[d.ID] = v
	}

	// Second pass: derived indicators over the first pass's values.
	for _, d := range a.defs {
		if !d.Active || !derived(d.CalculationType) {
			continue
		}
		v := a.deriveValue(d, byIndicator, now)
		values = append(values, v)
		byIndicator[d.ID] = v
	}

	composites := a.categoryComposites(values, now)
	nai := a.activityIndex(composites, now)

	a.metrics.ObserveStage("indicators", time.Since(start))
	a.log.Info().
		Int("articles", len(articles)).
		Int("indicators", len(values)).
		Float64("nai", nai.Value).
		Str("band", nai.Band).
		Msg("aggregation run complete")

	return &Snapshot{Timestamp: now, Values: values, Composites: composites, NAI: nai}
}

func derived(t core.CalculationType) bool {
	switch t {
	case core.CalcComposite, core.CalcRatio, core.CalcWeightedAverage:
		return true
	}
	return false
}

// calculate produces one leaf indicator value from its matches.
func (a *Aggregator) calculate(d core.IndicatorDefinition, matched []matchedArticle, now time.Time) core.IndicatorValue {
	v := core.IndicatorValue{
		IndicatorID:  d.ID,
		Timestamp:    now,
		Value:        50, // neutral baseline
		ArticleCount: len(matched),
		ComputedAt:   now,
	}
	if len(matched) == 0 {
		return v
	}

	var matchSum, sentSum float64
	var rawHits int
	for _, m := range matched {
		matchSum += m.score
		sentSum += m.article.SentimentScore
		rawHits += m.hits
		if len(v.SourceArticles) < maxEvidenceArticles {
			v.SourceArticles = append(v.SourceArticles, m.article.ArticleID)
		}
	}
	v.RawCount = rawHits
	avgMatch := matchSum / float64(len(matched))
	meanSent := sentSum / float64(len(matched))
	v.SentimentScore = &meanSent

	countFactor := float64(len(matched)) / 5
	if countFactor > 1 {
		countFactor = 1
	}
	v.Confidence = countFactor * avgMatch

	switch d.CalculationType {
	case core.CalcFrequencyCount:
		bump := float64(len(matched)) * 5
		if bump > 50 {
			bump = 50
		}
		v.Value = 50 + bump
	case core.CalcSentimentAggregate:
		v.Value = (meanSent + 1) * 50
	case core.CalcNumericExtraction:
		if num, ok := extractNumeric(matched); ok {
			v.Value = num
		}
	}
	return v
}

// deriveValue computes composite, ratio and weighted_average indicators
// from their component values.
func (a *Aggregator) deriveValue(d core.IndicatorDefinition, byID map[string]core.IndicatorValue, now time.Time) core.IndicatorValue {
	v := core.IndicatorValue{IndicatorID: d.ID, Timestamp: now, Value: 50, ComputedAt: now}

	var members []core.IndicatorValue
	for _, id := range d.Components {
		if mv, ok := byID[id]; ok {
			members = append(members, mv)
		}
	}
	if len(members) == 0 {
		return v
	}

	switch d.CalculationType {
	case core.CalcRatio:
		if len(members) >= 2 && members[1].Value != 0 {
			// Ratio of the two components recentred so parity reads 50.
			ratio := members[0].Value / members[1].Value
			v.Value = clip100(ratio * 50)
			v.Confidence = minf(members[0].Confidence, members[1].Confidence)
			v.ArticleCount = members[0].ArticleCount + members[1].ArticleCount
		}
	default: // composite and weighted_average: confidence-weighted mean
		var sum, weightSum, confSum float64
		count := 0
		for _, m := range members {
			w := m.Confidence
			if w == 0 {
				w = 0.1 // unmatched members still anchor the neutral baseline
			}
			def, ok := a.byID[m.IndicatorID]
			if ok {
				w *= def.BaseWeight
			}
			sum += m.Value * w
			weightSum += w
			confSum += m.Confidence
			count += m.ArticleCount
		}
		if weightSum > 0 {
			v.Value = sum / weightSum
		}
		v.Confidence = confSum / float64(len(members))
		v.ArticleCount = count
	}
	return v
}

// categoryComposites rolls leaf values up per category, weighted by
// confidence and base weight. Derived indicators stay out to avoid
// double counting.
func (a *Aggregator) categoryComposites(values []core.IndicatorValue, now time.Time) map[core.PESTELCategory]core.CategoryComposite {
	type agg struct {
		sum, weightSum, confSum float64
		count                   int
		movers                  []core.IndicatorValue
	}
	perCat := make(map[core.PESTELCategory]*agg)

	for _, v := range values {
		d, ok := a.byID[v.IndicatorID]
		if !ok || derived(d.CalculationType) {
			continue
		}
		c := perCat[d.Category]
		if c == nil {
			c = &agg{}
			perCat[d.Category] = c
		}
		w := d.BaseWeight * (0.2 + 0.8*v.Confidence)
		c.sum += v.Value * w
		c.weightSum += w
		c.confSum += v.Confidence
		c.count++
		c.movers = append(c.movers, v)
	}

	out := make(map[core.PESTELCategory]core.CategoryComposite, len(perCat))
	for cat, c := range perCat {
		comp := core.CategoryComposite{
			Category:    cat,
			Timestamp:   now,
			Value:       50,
			MemberCount: c.count,
			ComputedAt:  now,
		}
		if c.weightSum > 0 {
			comp.Value = c.sum / c.weightSum
		}
		if c.count > 0 {
			comp.Confidence = c.confSum / float64(c.count)
		}
		sort.Slice(c.movers, func(i, j int) bool {
			di := c.movers[i].Value - 50
			dj := c.movers[j].Value - 50
			return absf(di) > absf(dj)
		})
		for i := 0; i < len(c.movers) && i < 3; i++ {
			if c.movers[i].Value != 50 {
				comp.TopMovers = append(comp.TopMovers, c.movers[i].IndicatorID)
			}
		}
		out[cat] = comp
	}
	return out
}

// activityIndex is the category-weighted mean of the composites.
func (a *Aggregator) activityIndex(composites map[core.PESTELCategory]core.CategoryComposite, now time.Time) core.NationalActivityIndex {
	var sum, weightSum, confSum float64
	for cat, comp := range composites {
		w := core.CategoryWeight(cat)
		sum += comp.Value * w
		weightSum += w
		confSum += comp.Confidence
	}
	nai := core.NationalActivityIndex{Timestamp: now, Value: 50, ComputedAt: now}
	if weightSum > 0 {
		nai.Value = sum / weightSum
	}
	if len(composites) > 0 {
		nai.Confidence = confSum / float64(len(composites))
	}
	nai.Band = core.NAIBandFor(nai.Value)
	return nai
}

// collapseClusters keeps one representative per dedup cluster so a story
// syndicated across sources counts once. The highest-quality member
// represents the cluster.
func collapseClusters(articles []*core.EnrichedArticle) []*core.EnrichedArticle {
	best := make(map[string]*core.EnrichedArticle)
	out := make([]*core.EnrichedArticle, 0, len(articles))
	for _, a := range articles {
		if a.TopicID == "" {
			out = append(out, a)
			continue
		}
		if cur, ok := best[a.TopicID]; !ok || a.QualityScore > cur.QualityScore {
			best[a.TopicID] = a
		}
	}
	ids := make([]string, 0, len(best))
	for id := range best {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		out = append(out, best[id])
	}
	return out
}

var numericNearKeyword = regexp.MustCompile(`(\d+(?:\.\d+)?)\s?(?:%|percent|per cent)`)

// extractNumeric pulls the mean percentage figure from matched articles,
// clipped onto the indicator scale.
func extractNumeric(matched []matchedArticle) (float64, bool) {
	var sum float64
	var n int
	for _, m := range matched {
		for _, g := range numericNearKeyword.FindAllStringSubmatch(m.article.Title+" "+m.article.Body, 5) {
			if f, err := strconv.ParseFloat(g[1], 64); err == nil {
				sum += f
				n++
			}
		}
	}
	if n == 0 {
		return 0, false
	}
	return clip100(sum / float64(n)), true
}

func clip100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
