package impact

import (
	"sort"
	"strings"
)

// Severity lexicons, tiered by how hard the word lands. Multi-word phrases
// are matched as substrings of the normalized text, single words against
// the token set.
var crisisKeywords = []string{
	"crisis", "emergency", "disaster", "catastrophe", "collapse",
	"curfew", "riot", "explosion", "tsunami", "evacuation",
	"state of emergency", "nationwide shutdown", "default",
}

var highSeverityKeywords = []string{
	"shortage", "strike", "protest", "flood", "landslide", "drought",
	"blackout", "power cut", "outage", "devaluation", "bankruptcy",
	"shutdown", "suspension", "violence", "closure", "curtailment",
}

var mediumSeverityKeywords = []string{
	"warning", "concern", "decline", "drop", "shortfall", "delay",
	"disruption", "slowdown", "deficit", "downgrade", "restriction",
	"price hike", "tariff", "tax increase",
}

const (
	crisisBase = 85.0
	highBase   = 60.0
	mediumBase = 35.0

	extraKeywordBonus = 5.0  // Per additional keyword beyond the first
	titleSeverityBump = 15.0 // Strongest tier word appearing in the title

	// Numeric density kicks in on figure-heavy articles that the
	// lexicons missed.
	numericDensityCap = 40.0
	numericDensityMin = 0.05
)

// Breaking-news markers in a title force temporal urgency to 100.
var breakingKeywords = []string{
	"breaking", "just in", "developing", "urgent", "alert", "live:",
}

// Viral markers boost the volume axis.
var viralKeywords = []string{
	"viral", "trending", "widespread", "massive", "unprecedented",
	"island-wide", "islandwide",
}

// volumeSteps maps cluster mention counts onto the volume axis.
var volumeSteps = []struct {
	mentions int
	score    float64
}{
	{20, 100}, {10, 85}, {5, 70}, {3, 55}, {2, 40}, {1, 25},
}

const viralBoost = 15.0

// sourceCredibility is the flat per-source table for the credibility axis,
// scored 0-100. Lookup falls back to substring containment, then the
// unknown default.
var sourceCredibility = map[string]float64{
	"government":   95,
	"gov.lk":       95,
	"cbsl":         95, // Central Bank of Sri Lanka
	"ada_derana":   80,
	"daily_mirror": 78,
	"daily_news":   72,
	"the_island":   70,
	"sunday_times": 76,
	"economynext":  75,
	"ft.lk":        74,
	"newsfirst":    72,
	"hiru":         65,
	"lankadeepa":   62,
	"reuters":      90,
	"bloomberg":    88,
	"twitter":      35,
	"facebook":     30,
	"social":       30,
}

// credibilityKeys is the table sorted for a deterministic substring pass.
var credibilityKeys = func() []string {
	keys := make([]string, 0, len(sourceCredibility))
	for k := range sourceCredibility {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}()

const defaultCredibility = 30.0

// credibilityFor looks up the table, trying exact id first and then
// substring containment either way.
func credibilityFor(sourceID string) float64 {
	id := strings.ToLower(sourceID)
	if id == "" {
		return defaultCredibility
	}
	if score, ok := sourceCredibility[id]; ok {
		return score
	}
	for _, key := range credibilityKeys {
		if strings.Contains(id, key) || strings.Contains(key, id) {
			return sourceCredibility[key]
		}
	}
	return defaultCredibility
}
