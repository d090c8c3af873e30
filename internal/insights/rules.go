// Package insights is the fourth pipeline layer: it reads a company
// profile against the current indicator snapshot and trend state and
// produces scored risks, opportunities, recommendations and portfolio
// metrics.
package insights

import "newslens/internal/core"

// Trigger is one indicator condition inside a rule. Below selects the
// breach direction against Threshold.
type Trigger struct {
	IndicatorID string
	Threshold   float64
	Below       bool
}

// breached reports whether a value violates the trigger, and by how much.
func (t Trigger) breached(value float64) (bool, float64) {
	if t.Below {
		return value < t.Threshold, t.Threshold - value
	}
	return value > t.Threshold, value - t.Threshold
}

// RiskRule is one catalog entry for the rule-based detector. The rule
// fires when at least MinTriggers of its triggers breach.
type RiskRule struct {
	Code            string
	Title           string
	Description     string
	Category        core.PESTELCategory
	Triggers        []Trigger
	MinTriggers     int // 0 means all
	BaseProbability float64
	BaseImpact      float64 // Category base impact on [0,10]
	Urgency         float64 // [1,5]
	Immediate       bool
	Sectors         []string // Applicable sectors; empty means all
}

// riskRules is the embedded detection catalog.
var riskRules = []RiskRule{
	{
		Code:        "SUPPLY_CHAIN_RISK",
		Title:       "Supply chain disruption",
		Description: "Energy, transport and trade indicators point to disrupted inbound and outbound logistics.",
		Category:    core.CategoryTechnological,
		Triggers: []Trigger{
			{IndicatorID: "TECH_ENERGY_SUPPLY", Threshold: 50, Below: true},
			{IndicatorID: "TECH_TRANSPORT_INFRA", Threshold: 50, Below: true},
			{IndicatorID: "ECON_TRADE", Threshold: 50, Below: true},
		},
		MinTriggers:     2,
		BaseProbability: 0.60,
		BaseImpact:      7.0,
		Urgency:         4,
	},
	{
		Code:        "CURRENCY_RISK",
		Title:       "Currency depreciation exposure",
		Description: "Sustained rupee weakness raises import costs and squeezes dollar-denominated obligations.",
		Category:    core.CategoryEconomic,
		Triggers: []Trigger{
			{IndicatorID: "ECON_CURRENCY", Threshold: 40, Below: true},
			{IndicatorID: "ECON_RESERVES", Threshold: 45, Below: true},
		},
		MinTriggers:     1,
		BaseProbability: 0.55,
		BaseImpact:      7.5,
		Urgency:         4,
	},
	{
		Code:        "INFLATION_COST_RISK",
		Title:       "Input cost inflation",
		Description: "Price pressure is compressing margins across supply contracts and wages.",
		Category:    core.CategoryEconomic,
		Triggers: []Trigger{
			{IndicatorID: "ECON_INFLATION", Threshold: 35, Below: true},
		},
		BaseProbability: 0.55,
		BaseImpact:      6.5,
		Urgency:         3,
	},
	{
		Code:        "FUNDING_RISK",
		Title:       "Credit and funding stress",
		Description: "Banking-sector strain and monetary tightening restrict working-capital access.",
		Category:    core.CategoryEconomic,
		Triggers: []Trigger{
			{IndicatorID: "ECON_BANKING", Threshold: 40, Below: true},
			{IndicatorID: "ECON_DEBT", Threshold: 40, Below: true},
		},
		MinTriggers:     1,
		BaseProbability: 0.50,
		BaseImpact:      7.0,
		Urgency:         3,
	},
	{
		Code:        "POWER_DISRUPTION_RISK",
		Title:       "Power supply disruption",
		Description: "Grid instability threatens production continuity and cold-chain integrity.",
		Category:    core.CategoryTechnological,
		Triggers: []Trigger{
			{IndicatorID: "TECH_POWER_GRID", Threshold: 40, Below: true},
		},
		BaseProbability: 0.60,
		BaseImpact:      6.5,
		Urgency:         4,
		Immediate:       true,
	},
	{
		Code:        "LABOR_UNREST_RISK",
		Title:       "Industrial action",
		Description: "Escalating strikes and wage disputes threaten staffing and distribution.",
		Category:    core.CategorySocial,
		Triggers: []Trigger{
			{IndicatorID: "SOC_UNREST", Threshold: 70, Below: false},
			{IndicatorID: "SOC_LABOR_RELATIONS", Threshold: 70, Below: false},
		},
		MinTriggers:     1,
		BaseProbability: 0.50,
		BaseImpact:      5.5,
		Urgency:         3,
	},
	{
		Code:        "DEMAND_CONTRACTION_RISK",
		Title:       "Consumer demand contraction",
		Description: "Falling consumer confidence and purchasing power point to shrinking sales volumes.",
		Category:    core.CategorySocial,
		Triggers: []Trigger{
			{IndicatorID: "SOC_CONSUMER", Threshold: 40, Below: true},
			{IndicatorID: "ECON_EMPLOYMENT", Threshold: 40, Below: true},
		},
		MinTriggers:     1,
		BaseProbability: 0.50,
		BaseImpact:      6.0,
		Urgency:         2,
		Sectors:         []string{"retail", "tourism", "consumer_goods", "apparel"},
	},
	{
		Code:        "POLICY_SHIFT_RISK",
		Title:       "Adverse policy change",
		Description: "Active policy and tax-law churn creates compliance and cost uncertainty.",
		Category:    core.CategoryPolitical,
		Triggers: []Trigger{
			{IndicatorID: "POL_POLICY", Threshold: 70, Below: false},
			{IndicatorID: "LEG_TAX_LAW", Threshold: 70, Below: false},
		},
		MinTriggers:     1,
		BaseProbability: 0.45,
		BaseImpact:      5.0,
		Urgency:         2,
	},
	{
		Code:        "POLITICAL_INSTABILITY_RISK",
		Title:       "Political instability",
		Description: "Government stability indicators signal policy paralysis and unrest spillover.",
		Category:    core.CategoryPolitical,
		Triggers: []Trigger{
			{IndicatorID: "POL_STABILITY", Threshold: 35, Below: true},
			{IndicatorID: "POL_UNREST_RISK", Threshold: 35, Below: true},
		},
		MinTriggers:     1,
		BaseProbability: 0.50,
		BaseImpact:      6.0,
		Urgency:         3,
	},
	{
		Code:        "CLIMATE_DISRUPTION_RISK",
		Title:       "Weather-driven disruption",
		Description: "Flood, landslide or storm activity threatens facilities, logistics and crops.",
		Category:    core.CategoryEnvironmental,
		Triggers: []Trigger{
			{IndicatorID: "ENV_FLOODS", Threshold: 70, Below: false},
			{IndicatorID: "ENV_LANDSLIDES", Threshold: 70, Below: false},
			{IndicatorID: "ENV_CYCLONES", Threshold: 70, Below: false},
		},
		MinTriggers:     1,
		BaseProbability: 0.55,
		BaseImpact:      6.0,
		Urgency:         4,
		Immediate:       true,
	},
	{
		Code:        "REGULATORY_ENFORCEMENT_RISK",
		Title:       "Regulatory enforcement wave",
		Description: "Heightened enforcement activity raises audit and penalty exposure.",
		Category:    core.CategoryLegal,
		Triggers: []Trigger{
			{IndicatorID: "LEG_REGULATORY", Threshold: 70, Below: false},
		},
		BaseProbability: 0.45,
		BaseImpact:      4.5,
		Urgency:         2,
	},
	{
		Code:        "CYBER_RISK",
		Title:       "Cyber incident exposure",
		Description: "A rising breach and ransomware wave increases the odds of an attack on company systems.",
		Category:    core.CategoryTechnological,
		Triggers: []Trigger{
			{IndicatorID: "TECH_CYBER", Threshold: 70, Below: false},
		},
		BaseProbability: 0.40,
		BaseImpact:      6.0,
		Urgency:         3,
	},
}

// OpportunityRule is a catalog entry for the opportunity detector.
type OpportunityRule struct {
	Code            string
	Title           string
	Description     string
	Category        core.PESTELCategory
	Triggers        []Trigger
	MinTriggers     int
	BaseProbability float64
	BaseImpact      float64
	Urgency         float64
	Value           float64 // [0,10] upside magnitude
	BaseFeasibility float64 // [0,1] before the business-scale modifier
	Sectors         []string
}

var opportunityRules = []OpportunityRule{
	{
		Code:        "EXPORT_WINDOW",
		Title:       "Export competitiveness window",
		Description: "A weaker rupee with stable trade flows makes exports price-competitive.",
		Category:    core.CategoryEconomic,
		Triggers: []Trigger{
			{IndicatorID: "ECON_CURRENCY", Threshold: 45, Below: true},
			{IndicatorID: "ECON_TRADE", Threshold: 50, Below: false},
		},
		BaseProbability: 0.55,
		BaseImpact:      6.0,
		Urgency:         3,
		Value:           7.0,
		BaseFeasibility: 0.6,
		Sectors:         []string{"apparel", "tea", "manufacturing", "agriculture"},
	},
	{
		Code:        "TOURISM_REBOUND",
		Title:       "Tourism demand rebound",
		Description: "Arrival and sentiment indicators point to recovering visitor demand.",
		Category:    core.CategoryEconomic,
		Triggers: []Trigger{
			{IndicatorID: "ECON_TOURISM", Threshold: 60, Below: false},
		},
		BaseProbability: 0.60,
		BaseImpact:      6.5,
		Urgency:         3,
		Value:           7.5,
		BaseFeasibility: 0.7,
		Sectors:         []string{"tourism", "transport", "retail"},
	},
	{
		Code:        "DIGITAL_EXPANSION",
		Title:       "Digital channel expansion",
		Description: "Accelerating digital adoption lowers the cost of reaching customers online.",
		Category:    core.CategoryTechnological,
		Triggers: []Trigger{
			{IndicatorID: "TECH_DIGITAL", Threshold: 60, Below: false},
			{IndicatorID: "TECH_ECOMMERCE", Threshold: 60, Below: false},
		},
		MinTriggers:     1,
		BaseProbability: 0.55,
		BaseImpact:      5.5,
		Urgency:         2,
		Value:           6.0,
		BaseFeasibility: 0.65,
	},
	{
		Code:        "INVESTMENT_CLIMATE",
		Title:       "Investment climate improvement",
		Description: "Improving investment sentiment opens funding and partnership options.",
		Category:    core.CategoryEconomic,
		Triggers: []Trigger{
			{IndicatorID: "ECON_INVESTMENT", Threshold: 65, Below: false},
			{IndicatorID: "POL_STABILITY", Threshold: 55, Below: false},
		},
		BaseProbability: 0.50,
		BaseImpact:      6.0,
		Urgency:         2,
		Value:           7.0,
		BaseFeasibility: 0.55,
	},
	{
		Code:        "RENEWABLE_SHIFT",
		Title:       "Energy cost hedge via renewables",
		Description: "Policy support for renewables makes on-site generation an attractive hedge against grid instability.",
		Category:    core.CategoryEnvironmental,
		Triggers: []Trigger{
			{IndicatorID: "ENV_CLIMATE_POLICY", Threshold: 60, Below: false},
			{IndicatorID: "TECH_POWER_GRID", Threshold: 45, Below: true},
		},
		MinTriggers:     1,
		BaseProbability: 0.45,
		BaseImpact:      5.0,
		Urgency:         2,
		Value:           5.5,
		BaseFeasibility: 0.5,
	},
}

// feasibilityModifier scales an opportunity's feasibility by company
// scale: larger organizations execute expansion plays more readily.
func feasibilityModifier(scale core.CompanyScale) float64 {
	switch scale {
	case core.ScaleSmall:
		return 0.8
	case core.ScaleLarge:
		return 1.1
	case core.ScaleEnterprise:
		return 1.2
	default:
		return 1.0
	}
}
