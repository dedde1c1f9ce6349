package domain

// DefaultMonteCarloRuns is the replication count used when none is given.
const DefaultMonteCarloRuns = 50

// MonteCarloStats summarizes terminal cash across replications.
type MonteCarloStats struct {
	P05 float64   `json:"p05"` // worst case
	P50 float64   `json:"p50"` // median
	P95 float64   `json:"p95"` // best case
	All []float64 `json:"all"` // terminal cash, sorted ASC

	Mean    float64 `json:"mean"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Tripped int     `json:"tripped"` // replications halted by tripwire
}

// Clone returns a deep copy of the stats.
func (s *MonteCarloStats) Clone() *MonteCarloStats {
	if s == nil {
		return nil
	}
	out := *s
	out.All = append([]float64(nil), s.All...)
	return &out
}

// SensitivityFactor is one row of the tornado breakdown.
type SensitivityFactor struct {
	Name   string  `json:"name"`
	Impact float64 `json:"impact"`
}

// Sensitivity driver names
const (
	DriverInterestRate   = "Interest Rate"
	DriverVolatility     = "Volatility"
	DriverShockMagnitude = "Shock Magnitude"
)
