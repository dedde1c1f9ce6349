package domain

// DefaultScenarioID identifies the protected baseline scenario.
// It can be loaded but never deleted or overwritten in place.
const DefaultScenarioID = "default"

// DefaultScenarioName is the display name of the baseline scenario.
const DefaultScenarioName = "Baseline"

// Scenario is a named, persisted bundle of simulation parameters.
type Scenario struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Timestamp int64      `json:"timestamp"` // creation time (unix ms)
	Params    Parameters `json:"params"`
}

// Clone returns a deep copy of the scenario.
func (s Scenario) Clone() Scenario {
	s.Params = s.Params.Clone()
	return s
}

// IsDefault reports whether the scenario is the protected baseline.
func (s Scenario) IsDefault() bool {
	return s.ID == DefaultScenarioID
}

// Collection is the persisted state of the scenario store.
type Collection struct {
	Scenarios []Scenario
	ActiveID  string
}

// DefaultScenario returns the baseline scenario with documented parameters.
func DefaultScenario(timestampMs int64) Scenario {
	return Scenario{
		ID:        DefaultScenarioID,
		Name:      DefaultScenarioName,
		Timestamp: timestampMs,
		Params:    DefaultParameters(),
	}
}

// DefaultCollection returns a collection holding only the baseline scenario.
func DefaultCollection(timestampMs int64) Collection {
	return Collection{
		Scenarios: []Scenario{DefaultScenario(timestampMs)},
		ActiveID:  DefaultScenarioID,
	}
}
