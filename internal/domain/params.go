package domain

// ModelID names a growth model in the model registry.
type ModelID string

// Model ID constants
const (
	ModelGrowthV1 ModelID = "GROWTH_V1" // stable
	ModelGrowthV2 ModelID = "GROWTH_V2" // beta, 1.5x noise
)

// Iteration bounds for a single run (inclusive).
const (
	MinIterations = 10
	MaxIterations = 500
)

// Parameters holds the model inputs for a run.
// Executors receive Parameters by value and must Clone before retaining.
type Parameters struct {
	Seed            string  `json:"seed"`
	Rate            float64 `json:"rate"`
	Volatility      float64 `json:"volatility"`
	ActiveShocks    []Shock `json:"activeShocks"`
	Model           ModelID `json:"model"`
	Iterations      uint32  `json:"iterations"`
	TripwireEnabled bool    `json:"tripwireEnabled"`
	ChaosMode       bool    `json:"chaosMode"`
}

// DefaultParameters returns the documented baseline parameters.
func DefaultParameters() Parameters {
	return Parameters{
		Seed:            "Northfield",
		Rate:            0.01,
		Volatility:      0.05,
		ActiveShocks:    []Shock{},
		Model:           ModelGrowthV1,
		Iterations:      120,
		TripwireEnabled: true,
		ChaosMode:       false,
	}
}

// Clone returns a deep copy; the shock slice is never shared.
func (p Parameters) Clone() Parameters {
	shocks := make([]Shock, len(p.ActiveShocks))
	copy(shocks, p.ActiveShocks)
	p.ActiveShocks = shocks
	return p
}

// ShockSum returns the sum of all active shock impacts.
func (p Parameters) ShockSum() float64 {
	sum := 0.0
	for _, s := range p.ActiveShocks {
		sum += s.Impact
	}
	return sum
}

// HasShock reports whether a shock with the given id is active.
func (p Parameters) HasShock(id string) bool {
	for _, s := range p.ActiveShocks {
		if s.ID == id {
			return true
		}
	}
	return false
}

// ToggleShock returns a copy with the shock added, or removed if already active.
func (p Parameters) ToggleShock(s Shock) Parameters {
	out := p.Clone()
	if !out.HasShock(s.ID) {
		out.ActiveShocks = append(out.ActiveShocks, s)
		return out
	}
	kept := out.ActiveShocks[:0]
	for _, x := range out.ActiveShocks {
		if x.ID != s.ID {
			kept = append(kept, x)
		}
	}
	out.ActiveShocks = kept
	return out
}
