package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"newslens/internal/core"
	"newslens/internal/llm"
)

// Narrator renders company-facing narratives for detections. The
// template renderer is always available; an invoker upgrades the prose
// while keeping the template as fallback.
type Narrator struct {
	svc llm.Invoker
}

// NewNarrator builds a narrator; svc may be nil for template-only.
func NewNarrator(svc llm.Invoker) *Narrator {
	return &Narrator{svc: svc}
}

var severityEmoji = map[core.Severity]string{
	core.SeverityCritical: "🚨",
	core.SeverityHigh:     "⚠️",
	core.SeverityMedium:   "🟡",
	core.SeverityLow:      "ℹ️",
}

// RiskNarrative renders the multi-paragraph narrative for one risk:
// executive summary, why-now, revenue-terms impact, historical context
// for pattern detections, and the urgency statement.
func (n *Narrator) RiskNarrative(ctx context.Context, profile *core.CompanyProfile, risk *core.DetectedRisk, precedent *Precedent) string {
	template := n.renderRiskTemplate(profile, risk, precedent)
	if n.svc == nil {
		return template
	}
	if enhanced, ok := n.enhance(ctx, template, risk.Title); ok {
		return enhanced
	}
	return template
}

// OpportunityNarrative renders the narrative for one opportunity.
func (n *Narrator) OpportunityNarrative(ctx context.Context, profile *core.CompanyProfile, opp *core.DetectedOpportunity) string {
	template := n.renderOpportunityTemplate(profile, opp)
	if n.svc == nil {
		return template
	}
	if enhanced, ok := n.enhance(ctx, template, opp.Title); ok {
		return enhanced
	}
	return template
}

func (n *Narrator) renderRiskTemplate(profile *core.CompanyProfile, risk *core.DetectedRisk, precedent *Precedent) string {
	var b strings.Builder
	emoji := severityEmoji[risk.Severity]

	// Executive summary.
	fmt.Fprintf(&b, "%s %s faces a %s-severity %s risk (score %.1f). %s\n\n",
		emoji, profile.Name, risk.Severity, strings.ToLower(string(risk.Category)), risk.FinalScore, risk.Description)

	// Why now: the triggering indicators.
	fmt.Fprintf(&b, "📊 Why now: %s. Detection probability stands at %.0f%% with %.0f%% confidence.\n\n",
		describeTriggers(risk.Triggers), risk.Probability*100, risk.Confidence*100)

	// Impact in revenue terms.
	if profile.AnnualRevenue > 0 {
		exposure := profile.AnnualRevenue * (risk.Impact / 10) * risk.Probability * 0.1
		fmt.Fprintf(&b, "💰 Potential impact: on the order of %.1f million against annual revenue of %.0f million, before mitigation.\n\n",
			exposure, profile.AnnualRevenue)
	} else {
		fmt.Fprintf(&b, "💰 Potential impact: %.1f of 10 on the business impact scale.\n\n", risk.Impact)
	}

	// Historical context for pattern detections.
	if precedent != nil && (risk.Method == core.MethodPattern || risk.Method == core.MethodCombined) {
		fmt.Fprintf(&b, "📜 Historical context: %s\n\n", precedent.LessonsLearned)
	}

	// Urgency statement.
	switch {
	case risk.Immediate:
		b.WriteString("⚡ This requires immediate action: conditions are deteriorating fast enough that waiting for the next review cycle forfeits options.")
	case risk.Urgency >= 4:
		b.WriteString("⚡ Action is recommended within days, not weeks.")
	default:
		b.WriteString("🕐 Monitor and plan: the window for a measured response is open.")
	}
	return b.String()
}

func (n *Narrator) renderOpportunityTemplate(profile *core.CompanyProfile, opp *core.DetectedOpportunity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🌱 %s has an opening: %s %s\n\n", profile.Name, opp.Title+".", opp.Description)
	fmt.Fprintf(&b, "📊 Supporting signals: %s.\n\n", describeTriggers(opp.Triggers))
	fmt.Fprintf(&b, "💰 Upside %.1f of 10 with feasibility %.0f%% at %s scale.",
		opp.Value, opp.Feasibility*100, profile.Scale)
	return b.String()
}

func describeTriggers(triggers map[string]float64) string {
	if len(triggers) == 0 {
		return "broad indicator movement"
	}
	ids := make([]string, 0, len(triggers))
	for id := range triggers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%s at %.0f", id, triggers[id])
	}
	return strings.Join(parts, ", ")
}

const narrativeSystem = "You polish business risk narratives. Respond with a JSON object " +
	`{"narrative": string}. Keep every factual figure from the draft unchanged, keep the ` +
	"emoji section markers, keep it under 250 words."

// enhance asks the model to polish a drafted narrative. Any failure or
// contract violation keeps the template.
func (n *Narrator) enhance(ctx context.Context, draft, title string) (string, bool) {
	res, err := n.svc.Invoke(ctx, llm.Request{
		System:   narrativeSystem,
		Prompt:   fmt.Sprintf("Insight: %s\n\nDraft narrative:\n%s", title, draft),
		WantJSON: true,
	})
	if err != nil || res.Source == llm.SourceFallback {
		return "", false
	}
	var out struct {
		Narrative string `json:"narrative"`
	}
	if err := json.Unmarshal([]byte(res.JSON), &out); err != nil || strings.TrimSpace(out.Narrative) == "" {
		return "", false
	}
	return strings.TrimSpace(out.Narrative), true
}
