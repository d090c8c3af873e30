package insights

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"newslens/internal/core"
	"newslens/internal/indicators"
)

// Scoring constants.
const (
	severeBreachMargin = 5.0  // points past the trigger threshold
	severeBreachBonus  = 0.15 // probability bonus for a severe breach
	negativeTrendBonus = 0.05 // probability bonus at three negative trends
	negativeTrendCount = 3
	deteriorationBump  = 1.0 // urgency bump on rapid deterioration
)

// State is the indicator context one detection run reads: the latest
// snapshot plus per-indicator trends.
type State struct {
	Snapshot *indicators.Snapshot
	Trends   map[string]core.TrendResult
}

func (s *State) value(id string) (float64, bool) {
	if s.Snapshot == nil {
		return 0, false
	}
	v, ok := s.Snapshot.Value(id)
	return v.Value, ok
}

func (s *State) values() map[string]float64 {
	out := make(map[string]float64)
	if s.Snapshot == nil {
		return out
	}
	for _, v := range s.Snapshot.Values {
		out[v.IndicatorID] = v.Value
	}
	return out
}

// negativeTrends counts falling directions among the given indicator ids.
func (s *State) negativeTrends(ids map[string]float64) int {
	n := 0
	for id := range ids {
		if tr, ok := s.Trends[id]; ok && tr.Direction.Negative() {
			n++
		}
	}
	return n
}

// rapidlyDeteriorating reports whether any trigger indicator is in a
// strong fall or carries a fresh change point downward.
func (s *State) rapidlyDeteriorating(ids map[string]float64) bool {
	for id := range ids {
		tr, ok := s.Trends[id]
		if !ok {
			continue
		}
		if tr.Direction == core.TrendStrongFalling {
			return true
		}
		for _, cp := range tr.ChangePoints {
			if cp.ZScore <= -2 {
				return true
			}
		}
	}
	return false
}

// detection is an intermediate risk before scoring finalization.
type detection struct {
	rule      RiskRule
	method    core.DetectionMethod
	triggers  map[string]float64
	severe    bool
	precedent *Precedent
}

// DetectRisks runs the rule and pattern detectors for one company and
// unions the results by code, keeping the highest-confidence detection
// and marking combined when both fire.
func DetectRisks(profile *core.CompanyProfile, state *State, now time.Time) []core.DetectedRisk {
	values := state.values()
	byCode := make(map[string]*detection)

	// Rule pass.
	for _, rule := range riskRules {
		if !sectorApplies(rule.Sectors, profile.Sector) {
			continue
		}
		fired, triggers, severe := evaluateRule(rule, values)
		if !fired {
			continue
		}
		byCode[rule.Code] = &detection{rule: rule, method: core.MethodRule, triggers: triggers, severe: severe}
	}

	// Pattern pass.
	for i := range precedents {
		p := precedents[i]
		ok, triggers := matchPrecedent(p, values, state.Trends)
		if !ok {
			continue
		}
		severe := severeAmong(p.Conditions, values)
		if existing, dup := byCode[p.Code]; dup {
			// Both methods fired: combined wins the confidence contest by
			// construction (0.90 beats both singles).
			existing.method = core.MethodCombined
			existing.precedent = &p
			for id, v := range triggers {
				existing.triggers[id] = v
			}
			existing.severe = existing.severe || severe
			continue
		}
		byCode[p.Code] = &detection{
			rule: RiskRule{
				Code:            p.Code,
				Title:           riskTitleFor(p.Code),
				Description:     fmt.Sprintf("Current indicator state mirrors the %d %s.", p.Year, p.Episode),
				Category:        p.Category,
				BaseProbability: p.BaseProbability,
				BaseImpact:      p.BaseImpact,
				Urgency:         p.Urgency,
			},
			method:    core.MethodPattern,
			triggers:  triggers,
			severe:    severe,
			precedent: &p,
		}
	}

	risks := make([]core.DetectedRisk, 0, len(byCode))
	for _, d := range byCode {
		risks = append(risks, scoreRisk(profile, state, d, now))
	}
	sort.Slice(risks, func(i, j int) bool { return risks[i].FinalScore > risks[j].FinalScore })
	return risks
}

// evaluateRule checks a rule's triggers against the snapshot.
func evaluateRule(rule RiskRule, values map[string]float64) (bool, map[string]float64, bool) {
	needed := rule.MinTriggers
	if needed <= 0 {
		needed = len(rule.Triggers)
	}
	matched := 0
	severe := false
	triggers := make(map[string]float64)
	for _, t := range rule.Triggers {
		v, ok := values[t.IndicatorID]
		if !ok {
			continue
		}
		hit, margin := t.breached(v)
		if !hit {
			continue
		}
		matched++
		triggers[t.IndicatorID] = v
		if margin >= severeBreachMargin {
			severe = true
		}
	}
	return matched >= needed, triggers, severe
}

func severeAmong(conditions []Trigger, values map[string]float64) bool {
	for _, c := range conditions {
		if v, ok := values[c.IndicatorID]; ok {
			if hit, margin := c.breached(v); hit && margin >= severeBreachMargin {
				return true
			}
		}
	}
	return false
}

// scoreRisk applies the scoring decomposition: probability from base plus
// breach and trend bonuses, impact from category base times scale and
// debt modifiers, urgency bumped by rapid deterioration, confidence from
// the detection method.
func scoreRisk(profile *core.CompanyProfile, state *State, d *detection, now time.Time) core.DetectedRisk {
	probability := d.rule.BaseProbability
	if d.severe {
		probability += severeBreachBonus
	}
	if state.negativeTrends(d.triggers) >= negativeTrendCount {
		probability += negativeTrendBonus
	}
	if probability > 1 {
		probability = 1
	}

	impact := d.rule.BaseImpact * profile.Scale.Multiplier() * profile.DebtModifier()
	if impact > 10 {
		impact = 10
	}

	urgency := d.rule.Urgency
	if state.rapidlyDeteriorating(d.triggers) {
		urgency += deteriorationBump
	}
	if urgency > 5 {
		urgency = 5
	}

	confidence := d.method.BaseConfidence()
	final := probability * impact * urgency * confidence
	severity := core.SeverityFor(final)

	risk := core.DetectedRisk{
		ID:          uuid.NewString(),
		Code:        d.rule.Code,
		CompanyID:   profile.ID,
		Title:       d.rule.Title,
		Description: d.rule.Description,
		Category:    d.rule.Category,
		Probability: probability,
		Impact:      impact,
		Urgency:     urgency,
		Confidence:  confidence,
		FinalScore:  final,
		Severity:    severity,
		Triggers:    d.triggers,
		Method:      d.method,
		Reasoning:   reasoningFor(d, probability),
		Immediate:   d.rule.Immediate || severity == core.SeverityCritical,
		DetectedAt:  now,
	}
	return risk
}

func reasoningFor(d *detection, probability float64) string {
	base := fmt.Sprintf("%d triggering indicator(s) breached; base probability %.2f adjusted to %.2f",
		len(d.triggers), d.rule.BaseProbability, probability)
	if d.precedent != nil {
		return fmt.Sprintf("%s; pattern match against the %d %s", base, d.precedent.Year, d.precedent.Episode)
	}
	return base
}

// riskTitleFor reuses the rule catalog's titles for pattern-only codes.
func riskTitleFor(code string) string {
	for _, r := range riskRules {
		if r.Code == code {
			return r.Title
		}
	}
	return code
}

// DetectOpportunities runs the rule-based opportunity detector. The
// business-scale modifier adjusts feasibility.
func DetectOpportunities(profile *core.CompanyProfile, state *State, now time.Time) []core.DetectedOpportunity {
	values := state.values()
	var opps []core.DetectedOpportunity
	for _, rule := range opportunityRules {
		if !sectorApplies(rule.Sectors, profile.Sector) {
			continue
		}
		needed := rule.MinTriggers
		if needed <= 0 {
			needed = len(rule.Triggers)
		}
		matched := 0
		triggers := make(map[string]float64)
		for _, t := range rule.Triggers {
			if v, ok := values[t.IndicatorID]; ok {
				if hit, _ := t.breached(v); hit {
					matched++
					triggers[t.IndicatorID] = v
				}
			}
		}
		if matched < needed {
			continue
		}

		feasibility := rule.BaseFeasibility * feasibilityModifier(profile.Scale)
		if feasibility > 1 {
			feasibility = 1
		}
		confidence := core.MethodRule.BaseConfidence()
		final := rule.BaseProbability * rule.BaseImpact * rule.Urgency * confidence

		opps = append(opps, core.DetectedOpportunity{
			ID:          uuid.NewString(),
			Code:        rule.Code,
			CompanyID:   profile.ID,
			Title:       rule.Title,
			Description: rule.Description,
			Category:    rule.Category,
			Probability: rule.BaseProbability,
			Impact:      rule.BaseImpact,
			Urgency:     rule.Urgency,
			Confidence:  confidence,
			FinalScore:  final,
			Severity:    core.SeverityFor(final),
			Value:       rule.Value,
			Feasibility: feasibility,
			Triggers:    triggers,
			Method:      core.MethodRule,
			Reasoning:   fmt.Sprintf("%d triggering indicator(s) favorable", matched),
			DetectedAt:  now,
		})
	}
	sort.Slice(opps, func(i, j int) bool {
		return opps[i].Value*opps[i].Feasibility > opps[j].Value*opps[j].Feasibility
	})
	return opps
}

func sectorApplies(sectors []string, sector string) bool {
	if len(sectors) == 0 {
		return true
	}
	for _, s := range sectors {
		if s == sector {
			return true
		}
	}
	return false
}
