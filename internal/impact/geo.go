package impact

// districts is the 25-district gazetteer used for geographic scope.
var districts = []string{
	"colombo", "gampaha", "kalutara",
	"kandy", "matale", "nuwara eliya",
	"galle", "matara", "hambantota",
	"jaffna", "kilinochchi", "mannar", "vavuniya", "mullaitivu",
	"batticaloa", "ampara", "trincomalee",
	"kurunegala", "puttalam",
	"anuradhapura", "polonnaruwa",
	"badulla", "monaragala",
	"ratnapura", "kegalle",
}

// nationalMarkers promote an article to national scope on their own.
var nationalMarkers = []string{
	"nationwide", "island-wide", "islandwide", "across the country",
	"all districts", "national",
}

// internationalMarkers indicate scope beyond the country.
var internationalMarkers = []string{
	"international", "global", "worldwide", "imf", "world bank",
	"united nations", "india", "china", "united states", "european union",
	"regional partners", "foreign",
}

const (
	scopeInternational = 100.0
	scopeNational      = 85.0
	scopeRegional      = 60.0
	scopeLocal         = 40.0
	scopeUnknown       = 30.0

	// District mentions at or above this count read as national coverage.
	nationalDistrictCount = 5
)

// geographicScope scores the geography axis and returns the mentioned
// districts in gazetteer order.
func geographicScope(idx *textIndex) (float64, []string) {
	var mentioned []string
	for _, d := range districts {
		if idx.has(d) {
			mentioned = append(mentioned, d)
		}
	}

	switch {
	case idx.hasAny(internationalMarkers):
		return scopeInternational, mentioned
	case len(mentioned) >= nationalDistrictCount || idx.hasAny(nationalMarkers):
		return scopeNational, mentioned
	case len(mentioned) >= 2:
		return scopeRegional, mentioned
	case len(mentioned) == 1:
		return scopeLocal, mentioned
	default:
		return scopeUnknown, mentioned
	}
}
