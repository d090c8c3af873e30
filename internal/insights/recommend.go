package insights

import (
	"time"

	"github.com/google/uuid"

	"newslens/internal/core"
)

// action is one catalog recommendation attached to a risk or opportunity
// code.
type action struct {
	Action    string
	Rationale string
	Category  core.RecommendationCategory
}

var riskActions = map[string][]action{
	"SUPPLY_CHAIN_RISK": {
		{"Qualify at least one alternate supplier per critical input", "Single-source inputs are the first to fail in a logistics disruption", core.RecImmediate},
		{"Increase safety stock of critical inputs to 6-8 weeks", "Buffer inventory bridges port and fuel disruptions", core.RecShortTerm},
		{"Re-route import contracts through multi-port terms", "Port concentration risk compounds during disruptions", core.RecMediumTerm},
	},
	"CURRENCY_RISK": {
		{"Hedge open dollar payables with forward cover", "Unhedged payables absorb the full depreciation move", core.RecImmediate},
		{"Add currency-adjustment clauses to customer contracts", "Re-pricing lag is the main margin leak under depreciation", core.RecShortTerm},
	},
	"INFLATION_COST_RISK": {
		{"Lock forward contracts on top-3 input categories", "Forward pricing caps exposure to accelerating input costs", core.RecShortTerm},
		{"Re-cost the product portfolio monthly instead of quarterly", "Stale costing under inflation silently erodes margin", core.RecShortTerm},
	},
	"FUNDING_RISK": {
		{"Draw down committed credit lines before terms tighten", "Facilities are cheapest before stress is priced in", core.RecImmediate},
		{"Extend debt maturities where refinancing windows remain open", "Short maturities force refinancing at peak rates", core.RecMediumTerm},
	},
	"POWER_DISRUPTION_RISK": {
		{"Verify generator capacity and fuel contracts now", "Backup capacity sells out once outages begin", core.RecImmediate},
		{"Evaluate rooftop solar with battery storage", "On-site generation hedges both outages and tariff rises", core.RecLongTerm},
	},
	"LABOR_UNREST_RISK": {
		{"Prepare staggered-shift and remote-work contingency plans", "Transport strikes hit attendance before production", core.RecShortTerm},
		{"Open early wage-review dialogue with employee representatives", "Pre-emptive engagement lowers strike probability", core.RecShortTerm},
	},
	"DEMAND_CONTRACTION_RISK": {
		{"Shift promotional weight toward essential lines", "Essentials hold volume while discretionary demand contracts", core.RecShortTerm},
		{"Tighten receivables terms on slow-paying channels", "Demand slumps surface as payment delays first", core.RecImmediate},
	},
	"POLICY_SHIFT_RISK": {
		{"Model the announced tax changes against current pricing", "Quantified exposure turns policy churn into a pricing decision", core.RecShortTerm},
	},
	"POLITICAL_INSTABILITY_RISK": {
		{"Delay non-committed capital expenditure until policy direction clears", "Irreversible spend under policy uncertainty carries asymmetric risk", core.RecShortTerm},
	},
	"CLIMATE_DISRUPTION_RISK": {
		{"Activate weather monitoring for operating districts", "District-level warnings give 24-72h of preparation time", core.RecImmediate},
		{"Review flood cover in property and disruption policies", "Standard policies often exclude recurring flood zones", core.RecMediumTerm},
	},
	"REGULATORY_ENFORCEMENT_RISK": {
		{"Run a compliance self-audit on licensing and filings", "Self-identified gaps settle cheaper than inspection findings", core.RecShortTerm},
	},
	"CYBER_RISK": {
		{"Patch external-facing systems and rehearse restore from backup", "Most regional incidents exploit known unpatched services", core.RecImmediate},
	},
}

var opportunityActions = map[string][]action{
	"EXPORT_WINDOW":      {{"Quote new export orders at the current exchange rate with short validity", "The pricing window closes as competitors re-price", core.RecImmediate}},
	"TOURISM_REBOUND":    {{"Restore capacity and renew trade partnerships ahead of peak season", "Early capacity captures the rebound before prices normalise", core.RecShortTerm}},
	"DIGITAL_EXPANSION":  {{"Launch or expand the online sales channel", "Channel-shift economics currently favor early movers", core.RecMediumTerm}},
	"INVESTMENT_CLIMATE": {{"Refresh the capital-raise deck while sentiment is favorable", "Investor windows in frontier markets are short", core.RecShortTerm}},
	"RENEWABLE_SHIFT":    {{"Commission a feasibility study for on-site solar", "Policy incentives and grid instability both favor self-generation now", core.RecLongTerm}},
}

// Recommend expands detections into prioritized actions. Priority
// follows severity: critical 1, high 2, medium 3, low 4; opportunity
// actions trail at 5 unless tied to a high-value play.
func Recommend(companyID string, risks []core.DetectedRisk, opps []core.DetectedOpportunity, now time.Time) []core.Recommendation {
	var recs []core.Recommendation
	for _, r := range risks {
		priority := priorityFor(r.Severity)
		for _, a := range riskActions[r.Code] {
			p := priority
			if a.Category == core.RecImmediate && p > 1 {
				p--
			}
			recs = append(recs, core.Recommendation{
				ID:        uuid.NewString(),
				CompanyID: companyID,
				InsightID: r.ID,
				Action:    a.Action,
				Rationale: a.Rationale,
				Category:  a.Category,
				Priority:  p,
				CreatedAt: now,
			})
		}
	}
	for _, o := range opps {
		p := 5
		if o.Value*o.Feasibility >= 5 {
			p = 3
		}
		for _, a := range opportunityActions[o.Code] {
			recs = append(recs, core.Recommendation{
				ID:        uuid.NewString(),
				CompanyID: companyID,
				InsightID: o.ID,
				Action:    a.Action,
				Rationale: a.Rationale,
				Category:  a.Category,
				Priority:  p,
				CreatedAt: now,
			})
		}
	}
	return recs
}

func priorityFor(s core.Severity) int {
	switch s {
	case core.SeverityCritical:
		return 1
	case core.SeverityHigh:
		return 2
	case core.SeverityMedium:
		return 3
	default:
		return 4
	}
}
