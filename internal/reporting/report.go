package reporting

import (
	"time"

	"sanctum-sim/internal/domain"
)

// Report is the rendered summary of one run or Monte Carlo batch.
type Report struct {
	// Metadata
	GeneratedAt  time.Time
	RunID        string // empty for runs that were never archived
	ScenarioID   string
	ScenarioName string
	Mode         string // SINGLE | MONTE_CARLO
	Seed         string
	Fingerprint  string
	CostEstimate string
	Runs         int

	Params domain.Parameters

	// Outputs
	Result      *domain.RunResult
	Stats       *domain.MonteCarloStats // nil for SINGLE
	Sensitivity []domain.SensitivityFactor
	RiskCard    RiskCard
	MaxDrawdown float64
	Histogram   []HistogramBar

	// ExecutionLog mirrors the kernel console: cost, mode and warnings.
	ExecutionLog []string
}

// RiskCard is the governance summary of a run.
type RiskCard struct {
	Score  string     `json:"score"` // "CRITICAL (95)" or "LOW (12)"
	Detail RiskDetail `json:"detail"`
}

// RiskDetail is the machine-readable block of the risk card.
type RiskDetail struct {
	ID            string `json:"id"`
	Mode          string `json:"mode"` // ADVERSARIAL | STANDARD
	Confidence    string `json:"confidence"`
	PrimaryDriver string `json:"primary_driver"`
	Tripwires     int    `json:"tripwires"`
}

// HistogramBar is one sampled bar of the terminal-cash distribution.
type HistogramBar struct {
	Value     float64 `json:"value"`
	HeightPct float64 `json:"height_pct"` // value relative to P95
}
