package httpapi

import (
	"sanctum-sim/internal/domain"
	"sanctum-sim/internal/reporting"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RunRequest optionally overrides the seed and replication count of a run.
// Empty fields fall back to the live parameters and configured defaults.
type RunRequest struct {
	Seed string `json:"seed,omitempty"`
	Runs int    `json:"runs,omitempty"`
}

// RunResponse is returned by POST /api/run and POST /api/montecarlo.
type RunResponse struct {
	ScenarioID   string                     `json:"scenario_id"`
	Mode         string                     `json:"mode"`
	Seed         string                     `json:"seed"`
	Result       *domain.RunResult          `json:"result"`
	Stats        *domain.MonteCarloStats    `json:"stats,omitempty"`
	Sensitivity  []domain.SensitivityFactor `json:"sensitivity"`
	RiskCard     reporting.RiskCard         `json:"risk_card"`
	CostEstimate string                     `json:"cost_estimate"`
}

// ScenarioListResponse is returned by GET /api/scenarios.
type ScenarioListResponse struct {
	ActiveID  string            `json:"active_id"`
	Scenarios []domain.Scenario `json:"scenarios"`
}

// ScenarioResponse acknowledges a scenario mutation.
type ScenarioResponse struct {
	ID       string `json:"id"`
	ActiveID string `json:"active_id"`
}

// StreamMessage is one websocket frame of GET /ws/run.
type StreamMessage struct {
	Type   string            `json:"type"` // tick | done | error
	State  *domain.SimState  `json:"state,omitempty"`
	Result *domain.RunResult `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// Stream message types
const (
	StreamTick  = "tick"
	StreamDone  = "done"
	StreamError = "error"
)
