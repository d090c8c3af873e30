package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"newslens/internal/core"
	"newslens/internal/llm"
)

// The closed set of ten indicator-level labels and their PESTEL buckets.
var labelCategories = map[string]core.PESTELCategory{
	"political_stability":   core.CategoryPolitical,
	"government_policy":     core.CategoryPolitical,
	"economic_indicators":   core.CategoryEconomic,
	"financial_markets":     core.CategoryEconomic,
	"social_unrest":         core.CategorySocial,
	"public_health":         core.CategorySocial,
	"technology_digital":    core.CategoryTechnological,
	"infrastructure_energy": core.CategoryTechnological,
	"environment_climate":   core.CategoryEnvironmental,
	"legal_regulatory":      core.CategoryLegal,
}

// Labels lists the classification labels in canonical order.
func Labels() []string {
	out := make([]string, 0, len(labelCategories))
	for l := range labelCategories {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Keyword evidence per label for the rule side of the hybrid.
var labelKeywords = map[string][]string{
	"political_stability": {
		"government", "parliament", "president", "minister", "election",
		"cabinet", "opposition", "coalition", "no-confidence", "resignation",
	},
	"government_policy": {
		"policy", "gazette", "regulation", "budget", "subsidy", "tax",
		"tariff", "import ban", "reform", "ministry",
	},
	"economic_indicators": {
		"inflation", "gdp", "growth", "exports", "imports", "reserves",
		"remittances", "trade deficit", "economy", "economic",
	},
	"financial_markets": {
		"interest rate", "rupee", "exchange rate", "stock", "bond",
		"treasury", "central bank", "monetary", "imf", "debt",
	},
	"social_unrest": {
		"protest", "strike", "demonstration", "curfew", "riot", "unrest",
		"trade union", "picket", "workers",
	},
	"public_health": {
		"hospital", "health", "disease", "outbreak", "medicine",
		"vaccination", "patients", "epidemic", "dengue",
	},
	"technology_digital": {
		"technology", "digital", "internet", "software", "startup",
		"telecom", "cyber", "data", "fintech", "e-commerce",
	},
	"infrastructure_energy": {
		"electricity", "power", "fuel", "energy", "grid", "highway",
		"port", "railway", "water supply", "construction",
	},
	"environment_climate": {
		"flood", "drought", "landslide", "climate", "rainfall", "monsoon",
		"deforestation", "pollution", "wildlife", "cyclone",
	},
	"legal_regulatory": {
		"court", "supreme court", "ruling", "lawsuit", "legislation",
		"legal", "judiciary", "verdict", "petition", "act",
	},
}

// Per-label rule weights tuned on held-out data. Labels absent here use
// defaultRuleWeight.
var tunedRuleWeights = map[string]float64{
	"financial_markets":     0.75,
	"economic_indicators":   0.75,
	"social_unrest":         0.80,
	"environment_climate":   0.80,
	"technology_digital":    0.60,
	"legal_regulatory":      0.65,
	"infrastructure_energy": 0.72,
}

const (
	defaultRuleWeight = 0.7
	// Rule confidence overrides: a decisive rule verdict dominates, an
	// indecisive one defers to the model.
	highRuleConf   = 0.8
	highRuleWeight = 0.9
	lowRuleConf    = 0.3
	lowRuleWeight  = 0.4

	topLabels = 4
)

// Classification is the hybrid result for one article.
type Classification struct {
	Category    core.PESTELCategory `json:"category"`    // From the top label
	TopLabel    string              `json:"top_label"`   // Strongest indicator label
	Confidences map[string]float64  `json:"confidences"` // Top-4 labels -> blended confidence
	RuleWeight  float64             `json:"rule_weight"` // Effective w_rule for the top label
	UsedModel   bool                `json:"used_model"`  // Whether the ML side contributed
}

// ModelClassifier is the optional ML side of the hybrid. A failed call is
// not an error for the caller; the rule side carries the verdict alone.
type ModelClassifier interface {
	Classify(ctx context.Context, title, body string) (map[string]float64, error)
}

// Classifier blends rule-based keyword evidence with an optional model.
type Classifier struct {
	model ModelClassifier
}

// NewClassifier builds the hybrid classifier. model may be nil.
func NewClassifier(model ModelClassifier) *Classifier {
	return &Classifier{model: model}
}

// Classify scores all ten labels and keeps the top four.
func (c *Classifier) Classify(ctx context.Context, title, body string) Classification {
	ruleConf := ruleConfidences(title, body)

	var mlConf map[string]float64
	usedModel := false
	if c.model != nil {
		if got, err := c.model.Classify(ctx, title, body); err == nil && len(got) > 0 {
			mlConf = got
			usedModel = true
		}
	}

	blended := make(map[string]float64, len(labelCategories))
	var topLabel string
	topConf, topWeight := -1.0, defaultRuleWeight
	for _, label := range Labels() {
		rule := ruleConf[label]
		w := effectiveRuleWeight(label, rule)
		conf := rule
		if usedModel {
			conf = w*rule + (1-w)*mlConf[label]
		}
		blended[label] = conf
		if conf > topConf {
			topLabel, topConf, topWeight = label, conf, w
		}
	}

	return Classification{
		Category:    labelCategories[topLabel],
		TopLabel:    topLabel,
		Confidences: keepTop(blended, topLabels),
		RuleWeight:  topWeight,
		UsedModel:   usedModel,
	}
}

// effectiveRuleWeight applies the tuned per-label weight with the
// decisive-rule overrides.
func effectiveRuleWeight(label string, ruleConf float64) float64 {
	switch {
	case ruleConf > highRuleConf:
		return highRuleWeight
	case ruleConf < lowRuleConf:
		return lowRuleWeight
	}
	if w, ok := tunedRuleWeights[label]; ok {
		return w
	}
	return defaultRuleWeight
}

// ruleConfidences scores keyword evidence per label. Title hits count
// double; confidence saturates at five weighted hits.
func ruleConfidences(title, body string) map[string]float64 {
	titleText := strings.ToLower(title)
	fullText := titleText + " " + strings.ToLower(body)
	tokens := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(fullText, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	}) {
		tokens[tok] = struct{}{}
	}

	has := func(kw string) bool {
		if strings.ContainsRune(kw, ' ') {
			return strings.Contains(fullText, kw)
		}
		_, ok := tokens[kw]
		return ok
	}

	out := make(map[string]float64, len(labelKeywords))
	for label, keywords := range labelKeywords {
		weightedHits := 0.0
		for _, kw := range keywords {
			if !has(kw) {
				continue
			}
			if strings.Contains(titleText, kw) {
				weightedHits += 2
			} else {
				weightedHits++
			}
		}
		conf := weightedHits / 5
		if conf > 1 {
			conf = 1
		}
		out[label] = conf
	}
	return out
}

func keepTop(confidences map[string]float64, n int) map[string]float64 {
	type pair struct {
		label string
		conf  float64
	}
	pairs := make([]pair, 0, len(confidences))
	for l, c := range confidences {
		pairs = append(pairs, pair{l, c})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].conf != pairs[j].conf {
			return pairs[i].conf > pairs[j].conf
		}
		return pairs[i].label < pairs[j].label
	})
	if len(pairs) > n {
		pairs = pairs[:n]
	}
	out := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		out[p.label] = p.conf
	}
	return out
}

// LLMClassifier adapts the reasoning service to the ModelClassifier
// capability. A fallback result reads as model-unavailable.
type LLMClassifier struct {
	svc llm.Invoker
}

// NewLLMClassifier wraps an invoker.
func NewLLMClassifier(svc llm.Invoker) *LLMClassifier {
	return &LLMClassifier{svc: svc}
}

const classifySystem = "You classify news articles. Respond with a single JSON object mapping " +
	"label names to confidence values between 0 and 1. Use only the provided labels."

// Classify asks the model for per-label confidences.
func (l *LLMClassifier) Classify(ctx context.Context, title, body string) (map[string]float64, error) {
	if len(body) > 2000 {
		body = body[:2000]
	}
	prompt := fmt.Sprintf("Labels: %s\n\nTitle: %s\n\nArticle: %s",
		strings.Join(Labels(), ", "), title, body)

	res, err := l.svc.Invoke(ctx, llm.Request{System: classifySystem, Prompt: prompt, WantJSON: true})
	if err != nil {
		return nil, err
	}
	if res.Source == llm.SourceFallback {
		return nil, fmt.Errorf("classifier model unavailable")
	}

	var raw map[string]float64
	if err := json.Unmarshal([]byte(res.JSON), &raw); err != nil {
		return nil, fmt.Errorf("parsing classifier response: %w", err)
	}

	out := make(map[string]float64, len(raw))
	for label, conf := range raw {
		if _, known := labelCategories[label]; !known {
			continue
		}
		if conf < 0 {
			conf = 0
		} else if conf > 1 {
			conf = 1
		}
		out[label] = conf
	}
	return out, nil
}
