package impact

import "fmt"

// Factor axis names, used as Factors map keys and profile weight keys.
const (
	FactorSeverity    = "severity"
	FactorCredibility = "credibility"
	FactorGeographic  = "geographic"
	FactorTemporal    = "temporal"
	FactorVolume      = "volume"
	FactorSector      = "sector"
)

var factorOrder = []string{
	FactorSeverity, FactorCredibility, FactorGeographic,
	FactorTemporal, FactorVolume, FactorSector,
}

// Profile weights one reading of the six axes. Weights sum to 1.
type Profile struct {
	Name    string
	Weights map[string]float64
}

var profiles = map[string]Profile{
	"balanced": {
		Name: "balanced",
		Weights: map[string]float64{
			FactorSeverity:    0.20,
			FactorCredibility: 0.15,
			FactorGeographic:  0.15,
			FactorTemporal:    0.20,
			FactorVolume:      0.10,
			FactorSector:      0.20,
		},
	},
	"urgency_focused": {
		Name: "urgency_focused",
		Weights: map[string]float64{
			FactorSeverity:    0.25,
			FactorCredibility: 0.10,
			FactorGeographic:  0.10,
			FactorTemporal:    0.35,
			FactorVolume:      0.10,
			FactorSector:      0.10,
		},
	},
	"business_focused": {
		Name: "business_focused",
		Weights: map[string]float64{
			FactorSeverity:    0.15,
			FactorCredibility: 0.10,
			FactorGeographic:  0.10,
			FactorTemporal:    0.15,
			FactorVolume:      0.10,
			FactorSector:      0.40,
		},
	},
	"credibility_focused": {
		Name: "credibility_focused",
		Weights: map[string]float64{
			FactorSeverity:    0.15,
			FactorCredibility: 0.40,
			FactorGeographic:  0.10,
			FactorTemporal:    0.10,
			FactorVolume:      0.10,
			FactorSector:      0.15,
		},
	},
	"comprehensive": {
		Name: "comprehensive",
		Weights: map[string]float64{
			FactorSeverity:    1.0 / 6,
			FactorCredibility: 1.0 / 6,
			FactorGeographic:  1.0 / 6,
			FactorTemporal:    1.0 / 6,
			FactorVolume:      1.0 / 6,
			FactorSector:      1.0 / 6,
		},
	},
}

// ProfileByName resolves a weight profile.
func ProfileByName(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown scoring profile %q", name)
	}
	return p, nil
}

// ProfileNames lists the available profiles.
func ProfileNames() []string {
	return []string{"balanced", "urgency_focused", "business_focused", "credibility_focused", "comprehensive"}
}
