package insights

import "newslens/internal/core"

// Precedent is a historical episode the pattern detector matches against
// current indicator state. LessonsLearned feeds the narrative's
// historical-context paragraph.
type Precedent struct {
	Code            string // Risk code it maps to; shared codes merge with rule detections
	Episode         string // Human name of the historical episode
	Year            int
	Category        core.PESTELCategory
	Conditions      []Trigger
	MinConditions   int
	TrendConditions []TrendCondition
	BaseProbability float64
	BaseImpact      float64
	Urgency         float64
	LessonsLearned  string
}

// TrendCondition requires a trend direction on an indicator.
type TrendCondition struct {
	IndicatorID string
	Falling     bool // true requires a falling label, false a rising one
}

var precedents = []Precedent{
	{
		Code:     "SUPPLY_CHAIN_RISK",
		Episode:  "fuel and import crisis",
		Year:     2022,
		Category: core.CategoryTechnological,
		Conditions: []Trigger{
			{IndicatorID: "TECH_ENERGY_SUPPLY", Threshold: 40, Below: true},
			{IndicatorID: "ECON_RESERVES", Threshold: 40, Below: true},
		},
		MinConditions:   1,
		TrendConditions: []TrendCondition{{IndicatorID: "TECH_ENERGY_SUPPLY", Falling: true}},
		BaseProbability: 0.65,
		BaseImpact:      7.5,
		Urgency:         5,
		LessonsLearned: "In the 2022 episode, companies that pre-contracted fuel and diversified " +
			"suppliers within the first two weeks kept operations running; those that waited " +
			"for price normalisation faced multi-month disruption.",
	},
	{
		Code:     "CURRENCY_RISK",
		Episode:  "rupee float",
		Year:     2022,
		Category: core.CategoryEconomic,
		Conditions: []Trigger{
			{IndicatorID: "ECON_CURRENCY", Threshold: 35, Below: true},
		},
		TrendConditions: []TrendCondition{{IndicatorID: "ECON_RESERVES", Falling: true}},
		BaseProbability: 0.60,
		BaseImpact:      8.0,
		Urgency:         4,
		LessonsLearned: "When the rupee was floated in March 2022 it lost over 40% in weeks. " +
			"Importers holding unhedged dollar payables absorbed the full move; forward cover " +
			"and re-pricing clauses proved decisive.",
	},
	{
		Code:     "POWER_DISRUPTION_RISK",
		Episode:  "extended load shedding",
		Year:     2022,
		Category: core.CategoryTechnological,
		Conditions: []Trigger{
			{IndicatorID: "TECH_POWER_GRID", Threshold: 35, Below: true},
			{IndicatorID: "TECH_ENERGY_SUPPLY", Threshold: 40, Below: true},
		},
		MinConditions:   1,
		TrendConditions: []TrendCondition{{IndicatorID: "TECH_POWER_GRID", Falling: true}},
		BaseProbability: 0.60,
		BaseImpact:      7.0,
		Urgency:         4,
		LessonsLearned: "During the 2022 load-shedding period, daily outages ran up to 13 hours. " +
			"Backup generation paid for itself within a quarter for continuous-process operations.",
	},
	{
		Code:     "LABOR_UNREST_RISK",
		Episode:  "general strike wave",
		Year:     2022,
		Category: core.CategorySocial,
		Conditions: []Trigger{
			{IndicatorID: "SOC_UNREST", Threshold: 75, Below: false},
			{IndicatorID: "POL_STABILITY", Threshold: 35, Below: true},
		},
		MinConditions:   1,
		TrendConditions: []TrendCondition{{IndicatorID: "SOC_UNREST", Falling: false}},
		BaseProbability: 0.55,
		BaseImpact:      6.0,
		Urgency:         4,
		LessonsLearned: "The 2022 hartal days closed distribution islandwide at short notice. " +
			"Companies with pre-agreed work-from-home and staggered logistics recovered fastest.",
	},
	{
		Code:     "DEMAND_CONTRACTION_RISK",
		Episode:  "post-crisis demand slump",
		Year:     2023,
		Category: core.CategorySocial,
		Conditions: []Trigger{
			{IndicatorID: "SOC_CONSUMER", Threshold: 40, Below: true},
			{IndicatorID: "ECON_INFLATION", Threshold: 35, Below: true},
		},
		TrendConditions: []TrendCondition{{IndicatorID: "SOC_CONSUMER", Falling: true}},
		BaseProbability: 0.55,
		BaseImpact:      6.5,
		Urgency:         3,
		LessonsLearned: "In the 2023 slump, discretionary categories contracted ~30% while " +
			"essentials held. Portfolio shifts toward essential lines protected revenue.",
	},
}

// precedentFor returns the precedent behind a risk code, if any.
func precedentFor(code string) *Precedent {
	for i := range precedents {
		if precedents[i].Code == code {
			return &precedents[i]
		}
	}
	return nil
}

// matchPrecedent checks a precedent's level and trend conditions.
func matchPrecedent(p Precedent, values map[string]float64, trends map[string]core.TrendResult) (bool, map[string]float64) {
	needed := p.MinConditions
	if needed <= 0 {
		needed = len(p.Conditions)
	}
	matched := 0
	triggers := make(map[string]float64)
	for _, c := range p.Conditions {
		v, ok := values[c.IndicatorID]
		if !ok {
			continue
		}
		if hit, _ := c.breached(v); hit {
			matched++
			triggers[c.IndicatorID] = v
		}
	}
	if matched < needed {
		return false, nil
	}
	for _, tc := range p.TrendConditions {
		tr, ok := trends[tc.IndicatorID]
		if !ok {
			return false, nil
		}
		if tc.Falling && !tr.Direction.Negative() {
			return false, nil
		}
		if !tc.Falling && !rising(tr.Direction) {
			return false, nil
		}
	}
	return true, triggers
}

func rising(d core.TrendDirection) bool {
	switch d {
	case core.TrendWeakRising, core.TrendRising, core.TrendStrongRising:
		return true
	}
	return false
}
