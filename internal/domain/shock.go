package domain

// Shock is a signed fractional growth delta applied additively each tick.
type Shock struct {
	ID     string  `json:"id,omitempty"`
	Name   string  `json:"name,omitempty"`
	Impact float64 `json:"impact"`
}

// ChaosShockImpact is the impact of an ephemeral shock injected by chaos mode.
const ChaosShockImpact = -0.20

// ChaosShockProbability is the per-tick chance of a chaos injection.
const ChaosShockProbability = 0.05

// ChaosShock returns the unnamed ephemeral shock used by chaos injection.
// It is never added to the catalogue or persisted.
func ChaosShock() Shock {
	return Shock{Impact: ChaosShockImpact}
}

// Catalogue shock IDs
const (
	ShockMarketCrash    = "S1"
	ShockRateHike       = "S2"
	ShockLiquidityFlush = "S3"
)

var shockCatalogue = []Shock{
	{ID: ShockMarketCrash, Name: "Market Crash", Impact: -0.15},
	{ID: ShockRateHike, Name: "Rate Hike", Impact: -0.05},
	{ID: ShockLiquidityFlush, Name: "Liquidity Flush", Impact: 0.10},
}

// ShockCatalogue returns a copy of the named shock catalogue.
func ShockCatalogue() []Shock {
	out := make([]Shock, len(shockCatalogue))
	copy(out, shockCatalogue)
	return out
}

// LookupShock finds a catalogue shock by ID.
func LookupShock(id string) (Shock, bool) {
	for _, s := range shockCatalogue {
		if s.ID == id {
			return s, true
		}
	}
	return Shock{}, false
}
