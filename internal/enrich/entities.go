package enrich

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"newslens/internal/core"
	"newslens/internal/llm"
)

// EntityExtractor pulls typed entities from article text. Extraction
// failures surface as an empty list, never an error; enrichment proceeds
// regardless.
type EntityExtractor interface {
	Extract(ctx context.Context, title, body string) []core.Entity
}

const maxEntities = 15

// Pattern entities: amounts, percentages and dates come from regexes so
// they survive even when the heuristic name pass finds nothing.
var (
	moneyPattern = regexp.MustCompile(
		`(?i)(?:(?:Rs\.?|LKR|USD|US\$|\$|€|£)\s?[\d,]+(?:\.\d+)?\s*(?:million|billion|trillion|mn|bn)?|[\d,]+(?:\.\d+)?\s*(?:million|billion|trillion)\s+(?:rupees|dollars|euros))`)
	percentPattern = regexp.MustCompile(`\d+(?:\.\d+)?\s?(?:%|percent|per cent)`)
	datePattern    = regexp.MustCompile(
		`(?i)(?:\d{1,2}\s+)?(?:January|February|March|April|May|June|July|August|September|October|November|December)(?:\s+\d{1,2})?(?:,?\s+\d{4})?|\d{4}-\d{2}-\d{2}`)
)

// Cue words that type a capitalized span when they appear inside or next
// to it.
var (
	orgCues = []string{
		"bank", "ministry", "company", "corporation", "commission", "authority",
		"council", "board", "association", "party", "union", "agency", "group",
		"holdings", "plc", "ltd", "institute", "university", "fund", "exchange",
	}
	locationCues = []string{
		"district", "province", "city", "port", "airport", "region", "valley",
		"river", "lake", "coast", "island",
	}
	eventCues = []string{
		"summit", "election", "budget", "strike", "protest", "conference",
		"festival", "crisis", "outbreak", "flood", "auction",
	}
	personTitles = []string{
		"mr", "mrs", "ms", "dr", "prof", "president", "minister", "governor",
		"secretary", "chairman", "director", "mp", "general", "justice",
	}
)

// RuleExtractor is the deterministic extractor: regex patterns for
// amounts, percentages and dates plus a capitalization heuristic for
// names, typed by cue words and ranked by frequency and title presence.
type RuleExtractor struct{}

// NewRuleExtractor builds the rule-based extractor.
func NewRuleExtractor() *RuleExtractor { return &RuleExtractor{} }

// Extract runs patterns and the name heuristic over title and body.
func (e *RuleExtractor) Extract(_ context.Context, title, body string) []core.Entity {
	text := title + ". " + body
	seen := make(map[string]*core.Entity)

	add := func(raw string, typ core.EntityType, importance float64) {
		name := strings.TrimSpace(raw)
		if name == "" {
			return
		}
		key := strings.ToLower(name) + "|" + string(typ)
		if e, ok := seen[key]; ok {
			// Repeated mentions raise importance, saturating at 1.
			e.Importance += 0.1
			if e.Importance > 1 {
				e.Importance = 1
			}
			return
		}
		seen[key] = &core.Entity{Text: name, Type: typ, Importance: importance}
	}

	for _, m := range moneyPattern.FindAllString(text, 10) {
		add(m, core.EntityMoney, 0.6)
	}
	for _, m := range percentPattern.FindAllString(text, 10) {
		add(m, core.EntityPercent, 0.5)
	}
	for _, m := range datePattern.FindAllString(text, 10) {
		add(m, core.EntityDate, 0.3)
	}

	titleLower := strings.ToLower(title)
	for _, span := range capitalizedSpans(text) {
		typ, base := typeSpan(span)
		if strings.Contains(titleLower, strings.ToLower(span.text)) {
			base += 0.2
		}
		add(span.text, typ, base)
	}

	out := make([]core.Entity, 0, len(seen))
	for _, e := range seen {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Importance != out[j].Importance {
			return out[i].Importance > out[j].Importance
		}
		return out[i].Text < out[j].Text
	})
	if len(out) > maxEntities {
		out = out[:maxEntities]
	}
	return out
}

type span struct {
	text string
	prev string // lowercase token immediately before the span
}

// sentence starters and connectives that start capitalized without
// naming anything
var spanStopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "this": {}, "that": {}, "it": {},
	"he": {}, "she": {}, "they": {}, "we": {}, "in": {}, "on": {}, "at": {},
	"however": {}, "meanwhile": {}, "according": {}, "but": {}, "and": {},
	"after": {}, "before": {}, "when": {}, "while": {}, "as": {}, "is": {},
}

// capitalizedSpans finds runs of capitalized words, skipping
// sentence-initial stopwords.
func capitalizedSpans(text string) []span {
	words := strings.Fields(text)
	var spans []span
	var current []string
	prev := ""
	flush := func() {
		if len(current) == 0 {
			return
		}
		joined := strings.Join(current, " ")
		// Single common capitalized words are too noisy to keep.
		if len(current) > 1 || len(joined) >= 4 {
			if _, stop := spanStopwords[strings.ToLower(joined)]; !stop {
				spans = append(spans, span{text: joined, prev: prev})
			}
		}
		current = nil
	}
	lastLower := ""
	for _, w := range words {
		trimmed := strings.Trim(w, ".,;:!?\"'()[]")
		if trimmed == "" {
			flush()
			continue
		}
		first := rune(trimmed[0])
		isCap := first >= 'A' && first <= 'Z'
		lower := strings.ToLower(trimmed)
		_, stop := spanStopwords[lower]
		if isCap && !(stop && len(current) == 0) {
			if len(current) == 0 {
				prev = lastLower
			}
			current = append(current, trimmed)
		} else {
			flush()
			lastLower = lower
		}
		if strings.ContainsAny(w, ".!?") {
			flush()
		}
	}
	flush()
	if len(spans) > 40 {
		spans = spans[:40]
	}
	return spans
}

// typeSpan assigns an ontology type from cue words in or before the span.
func typeSpan(s span) (core.EntityType, float64) {
	lower := strings.ToLower(s.text)
	for _, cue := range orgCues {
		if strings.Contains(lower, cue) {
			return core.EntityOrganization, 0.7
		}
	}
	for _, cue := range locationCues {
		if strings.Contains(lower, cue) {
			return core.EntityLocation, 0.6
		}
	}
	for _, cue := range eventCues {
		if strings.Contains(lower, cue) {
			return core.EntityEvent, 0.6
		}
	}
	for _, title := range personTitles {
		if s.prev == title || s.prev == title+"." ||
			strings.HasPrefix(lower, title+" ") || strings.HasPrefix(lower, title+". ") {
			return core.EntityPerson, 0.7
		}
	}
	if len(strings.Fields(s.text)) >= 2 {
		return core.EntityPerson, 0.4
	}
	return core.EntityOrganization, 0.3
}

// LLMExtractor asks the model for entities and falls back to the rule
// extractor when the model is unavailable or returns garbage.
type LLMExtractor struct {
	svc      llm.Invoker
	fallback *RuleExtractor
}

// NewLLMExtractor wraps an invoker with the rule fallback.
func NewLLMExtractor(svc llm.Invoker) *LLMExtractor {
	return &LLMExtractor{svc: svc, fallback: NewRuleExtractor()}
}

const entitySystem = "You extract named entities from news articles. Respond with a JSON array of " +
	`objects: {"text": string, "type": one of person|organization|location|money|percent|date|event, ` +
	`"importance": number 0-1}. At most 15 entities, most important first.`

// Extract runs the model, validating types against the closed ontology.
func (e *LLMExtractor) Extract(ctx context.Context, title, body string) []core.Entity {
	if len(body) > 3000 {
		body = body[:3000]
	}
	res, err := e.svc.Invoke(ctx, llm.Request{
		System:   entitySystem,
		Prompt:   "Title: " + title + "\n\nArticle: " + body,
		WantJSON: true,
	})
	if err != nil || res.Source == llm.SourceFallback {
		return e.fallback.Extract(ctx, title, body)
	}

	var raw []core.Entity
	if err := json.Unmarshal([]byte(res.JSON), &raw); err != nil {
		return e.fallback.Extract(ctx, title, body)
	}

	valid := map[core.EntityType]struct{}{
		core.EntityPerson: {}, core.EntityOrganization: {}, core.EntityLocation: {},
		core.EntityMoney: {}, core.EntityPercent: {}, core.EntityDate: {},
		core.EntityEvent: {},
	}
	out := raw[:0]
	for _, ent := range raw {
		ent.Text = strings.TrimSpace(ent.Text)
		if ent.Text == "" {
			continue
		}
		if _, ok := valid[ent.Type]; !ok {
			continue
		}
		if ent.Importance < 0 {
			ent.Importance = 0
		} else if ent.Importance > 1 {
			ent.Importance = 1
		}
		out = append(out, ent)
		if len(out) == maxEntities {
			break
		}
	}
	return out
}
