package impact

import (
	"fmt"
	"sort"
)

// The closed set of 17 tracked sectors, with the keywords that mark an
// article as touching them.
var sectorKeywords = map[string][]string{
	"tourism":        {"tourism", "tourist", "hotel", "airline", "airport", "visa", "arrivals"},
	"apparel":        {"apparel", "garment", "textile", "factory workers", "export orders"},
	"tea_exports":    {"tea", "ceylon tea", "auction", "plantation", "estate workers"},
	"agriculture":    {"agriculture", "farmer", "paddy", "harvest", "fertilizer", "crop", "cultivation"},
	"fisheries":      {"fisheries", "fishermen", "fishing", "catch", "harbour"},
	"construction":   {"construction", "cement", "contractor", "housing project", "infrastructure"},
	"banking":        {"bank", "banking", "interest rate", "loan", "credit", "npl", "deposit"},
	"insurance":      {"insurance", "insurer", "premium", "claims"},
	"logistics":      {"logistics", "transport", "freight", "trucking", "supply chain", "delivery"},
	"energy":         {"electricity", "power", "fuel", "petrol", "diesel", "energy", "ceb", "grid"},
	"telecom":        {"telecom", "mobile network", "broadband", "data services", "operator"},
	"it_services":    {"software", "it services", "tech", "startup", "outsourcing", "bpo"},
	"healthcare":     {"hospital", "health", "medicine", "pharmaceutical", "doctors", "patients"},
	"education":      {"school", "university", "education", "students", "exams", "teachers"},
	"retail":         {"retail", "consumer", "supermarket", "prices", "goods", "shops"},
	"manufacturing":  {"manufacturing", "factory", "industrial", "production", "plant"},
	"ports_shipping": {"port", "shipping", "container", "vessel", "cargo", "terminal"},
}

// Event types that reshape sector weighting.
const (
	EventFuelShortage    = "fuel_shortage"
	EventPowerCrisis     = "power_crisis"
	EventCurrencyCrisis  = "currency_crisis"
	EventNaturalDisaster = "natural_disaster"
	EventPolicyChange    = "policy_change"
)

// eventOrder fixes detection priority when markers from several event
// types appear.
var eventOrder = []string{
	EventNaturalDisaster, EventFuelShortage, EventPowerCrisis,
	EventCurrencyCrisis, EventPolicyChange,
}

var eventMarkers = map[string][]string{
	EventFuelShortage: {
		"fuel shortage", "fuel crisis", "fuel queues", "petrol shortage",
		"diesel shortage", "fuel rationing", "no fuel",
	},
	EventPowerCrisis: {
		"power cut", "power cuts", "blackout", "load shedding",
		"power outage", "electricity crisis", "grid failure",
	},
	EventCurrencyCrisis: {
		"currency crisis", "rupee depreciation", "devaluation",
		"forex crisis", "reserves crisis", "rupee fell", "rupee falls",
	},
	EventNaturalDisaster: {
		"flood", "floods", "flooding", "landslide", "cyclone", "tsunami",
		"drought", "heavy rains",
	},
	EventPolicyChange: {
		"new policy", "tax increase", "tariff", "regulation", "gazette",
		"import ban", "export ban", "budget proposal",
	},
}

// eventSectorMultiplier scales a sector's relevance during a recognized
// event. Missing cells mean 1.0.
var eventSectorMultiplier = map[string]map[string]float64{
	EventFuelShortage: {
		"logistics": 1.5, "energy": 1.3, "tourism": 1.3, "manufacturing": 1.3,
		"agriculture": 1.2, "ports_shipping": 1.2, "retail": 1.1,
	},
	EventPowerCrisis: {
		"energy": 1.5, "manufacturing": 1.4, "it_services": 1.4,
		"telecom": 1.3, "healthcare": 1.2, "retail": 1.1,
	},
	EventCurrencyCrisis: {
		"banking": 1.5, "retail": 1.3, "construction": 1.3,
		"manufacturing": 1.2, "tourism": 1.2, "insurance": 1.2,
	},
	EventNaturalDisaster: {
		"agriculture": 1.5, "fisheries": 1.4, "construction": 1.3,
		"tourism": 1.3, "healthcare": 1.2, "logistics": 1.2,
	},
	EventPolicyChange: {
		"banking": 1.3, "construction": 1.2, "apparel": 1.2,
		"tea_exports": 1.2, "it_services": 1.1, "education": 1.1,
	},
}

// dependency is one edge of the sector cascade graph: when from is hit,
// to absorbs weight times the impact.
type dependency struct {
	from, to string
	weight   float64
}

var sectorDependencies = []dependency{
	{"energy", "manufacturing", 0.7},
	{"energy", "it_services", 0.5},
	{"energy", "telecom", 0.5},
	{"energy", "healthcare", 0.4},
	{"ports_shipping", "logistics", 0.7},
	{"ports_shipping", "apparel", 0.5},
	{"ports_shipping", "tea_exports", 0.5},
	{"logistics", "retail", 0.6},
	{"logistics", "agriculture", 0.4},
	{"banking", "construction", 0.6},
	{"banking", "insurance", 0.5},
	{"banking", "retail", 0.4},
	{"tourism", "retail", 0.4},
	{"agriculture", "retail", 0.3},
}

const (
	sectorTitleBoost    = 20.0
	multiMatchBoostStep = 10.0
	multiMatchBoostCap  = 20.0
	cascadeListFloor    = 30.0
)

// topoSort orders sectors so every edge points forward, and errors on a
// cycle. The cascade walks this order so multi-hop effects settle in one
// pass.
func topoSort(deps []dependency) ([]string, error) {
	indegree := make(map[string]int, len(sectorKeywords))
	for sector := range sectorKeywords {
		indegree[sector] = 0
	}
	for _, d := range deps {
		if _, ok := indegree[d.from]; !ok {
			return nil, fmt.Errorf("dependency from unknown sector %q", d.from)
		}
		if _, ok := indegree[d.to]; !ok {
			return nil, fmt.Errorf("dependency to unknown sector %q", d.to)
		}
		indegree[d.to]++
	}

	frontier := make([]string, 0, len(indegree))
	for sector, deg := range indegree {
		if deg == 0 {
			frontier = append(frontier, sector)
		}
	}
	sort.Strings(frontier)

	order := make([]string, 0, len(indegree))
	for len(frontier) > 0 {
		node := frontier[0]
		frontier = frontier[1:]
		order = append(order, node)
		var opened []string
		for _, d := range deps {
			if d.from != node {
				continue
			}
			indegree[d.to]--
			if indegree[d.to] == 0 {
				opened = append(opened, d.to)
			}
		}
		sort.Strings(opened)
		frontier = append(frontier, opened...)
	}
	if len(order) != len(indegree) {
		return nil, fmt.Errorf("sector dependency graph has a cycle")
	}
	return order, nil
}

// detectEventType returns the first recognized event type, or "".
func detectEventType(idx *textIndex) string {
	for _, event := range eventOrder {
		if idx.hasAny(eventMarkers[event]) {
			return event
		}
	}
	return ""
}

// sectorRelevance scores the sector axis: direct keyword relevance per
// sector, event multipliers, then cascade propagation along the
// dependency graph. Returns the axis score (the strongest sector), the
// affected sectors ranked, and the deepest cascade chain applied.
func sectorRelevance(idx *textIndex, eventType string, topo []string) (float64, []string, int) {
	scores := make(map[string]float64)
	depth := make(map[string]int)

	for sector, keywords := range sectorKeywords {
		hits, inTitle := 0, false
		for _, kw := range keywords {
			if idx.has(kw) {
				hits++
				if idx.inTitle(kw) {
					inTitle = true
				}
			}
		}
		if hits == 0 {
			continue
		}
		relevance := float64(hits) / float64(len(keywords)) * 100
		if inTitle {
			relevance += sectorTitleBoost
		}
		if extra := multiMatchBoostStep * float64(hits-1); extra > 0 {
			if extra > multiMatchBoostCap {
				extra = multiMatchBoostCap
			}
			relevance += extra
		}
		if eventType != "" {
			if mult, ok := eventSectorMultiplier[eventType][sector]; ok {
				relevance *= mult
			}
		}
		if relevance > 100 {
			relevance = 100
		}
		scores[sector] = relevance
	}

	if len(scores) == 0 {
		return 0, nil, 0
	}

	// Cascade along the DAG in topological order. A cascaded hit only
	// replaces a weaker direct one.
	for _, from := range topo {
		base, ok := scores[from]
		if !ok {
			continue
		}
		for _, d := range sectorDependencies {
			if d.from != from {
				continue
			}
			cascaded := base * d.weight
			if cascaded < cascadeListFloor {
				continue
			}
			if cascaded > scores[d.to] {
				scores[d.to] = cascaded
				depth[d.to] = depth[from] + 1
			}
		}
	}

	ranked := make([]string, 0, len(scores))
	for sector := range scores {
		ranked = append(ranked, sector)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if scores[ranked[i]] != scores[ranked[j]] {
			return scores[ranked[i]] > scores[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	maxScore, maxDepth := 0.0, 0
	for sector, score := range scores {
		if score > maxScore {
			maxScore = score
		}
		if depth[sector] > maxDepth {
			maxDepth = depth[sector]
		}
	}
	return maxScore, ranked, maxDepth
}
