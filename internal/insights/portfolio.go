package insights

import (
	"sort"
	"time"

	"newslens/internal/core"
)

const topN = 5

// BuildPortfolio aggregates one company's detections into portfolio
// metrics. PortfolioRisk is the severity-weighted mean of risk final
// scores; the top lists use the ranking formulas the read API relies on.
func BuildPortfolio(companyID string, risks []core.DetectedRisk, opps []core.DetectedOpportunity, now time.Time) core.PortfolioMetrics {
	m := core.PortfolioMetrics{
		CompanyID:         companyID,
		Timestamp:         now,
		SeverityBreakdown: make(map[string]int),
		CategoryBreakdown: make(map[string]int),
		ComputedAt:        now,
	}

	var weighted, weightSum float64
	for _, r := range risks {
		w := r.Severity.Weight()
		weighted += r.FinalScore * w
		weightSum += w
		m.SeverityBreakdown[string(r.Severity)]++
		m.CategoryBreakdown[string(r.Category)]++
	}
	if weightSum > 0 {
		m.PortfolioRisk = weighted / weightSum
	}

	ranked := make([]core.DetectedRisk, len(risks))
	copy(ranked, risks)
	sort.SliceStable(ranked, func(i, j int) bool {
		return riskRankKey(ranked[i]) > riskRankKey(ranked[j])
	})
	for i := 0; i < len(ranked) && i < topN; i++ {
		m.TopRisks = append(m.TopRisks, ranked[i].ID)
	}

	rankedOpps := make([]core.DetectedOpportunity, len(opps))
	copy(rankedOpps, opps)
	sort.SliceStable(rankedOpps, func(i, j int) bool {
		return rankedOpps[i].Value*rankedOpps[i].Feasibility > rankedOpps[j].Value*rankedOpps[j].Feasibility
	})
	for i := 0; i < len(rankedOpps) && i < topN; i++ {
		m.TopOpportunities = append(m.TopOpportunities, rankedOpps[i].ID)
	}
	return m
}

// riskRankKey orders risks for the top list: immediate-action risks
// first, then score, then urgency.
func riskRankKey(r core.DetectedRisk) float64 {
	key := r.FinalScore*10 + r.Urgency
	if r.Immediate {
		key += 1000
	}
	return key
}
