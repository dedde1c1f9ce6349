package reporting

import (
	"context"
	"fmt"
	"time"

	"sanctum-sim/internal/domain"
	"sanctum-sim/internal/metrics"
	"sanctum-sim/internal/storage"
)

// Input is everything needed to build a report without touching storage.
type Input struct {
	RunID        string
	ScenarioID   string
	ScenarioName string
	Mode         string
	Seed         string
	Params       domain.Parameters
	Runs         int
	Result       *domain.RunResult
	Stats        *domain.MonteCarloStats
}

// Generator produces reports from run outputs or archived runs.
type Generator struct {
	runStore storage.RunRecordStore
	now      func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. runStore may be nil when
// only Build is used.
func NewGenerator(runStore storage.RunRecordStore) *Generator {
	return &Generator{
		runStore: runStore,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Build produces a report from in.
func (g *Generator) Build(in Input) *Report {
	mode := in.Mode
	if mode == "" {
		mode = domain.RunModeSingle
		if in.Stats != nil {
			mode = domain.RunModeMonteCarlo
		}
	}
	runs := in.Runs
	if runs == 0 {
		runs = 1
		if in.Stats != nil {
			runs = len(in.Stats.All)
		}
	}

	r := &Report{
		GeneratedAt:  g.now(),
		RunID:        in.RunID,
		ScenarioID:   in.ScenarioID,
		ScenarioName: in.ScenarioName,
		Mode:         mode,
		Seed:         in.Seed,
		Fingerprint:  Fingerprint(in.Seed),
		CostEstimate: CostEstimate(in.Params.Iterations, mode),
		Runs:         runs,
		Params:       in.Params.Clone(),
		Result:       in.Result.Clone(),
		Stats:        in.Stats.Clone(),
		Sensitivity:  metrics.Sensitivity(in.Result),
		RiskCard:     NewRiskCard(in.Result, in.Params.ChaosMode),
		Histogram:    Histogram(in.Stats),
	}
	if in.Result != nil {
		r.MaxDrawdown = metrics.MaxDrawdown(in.Result.Series)
	}
	r.ExecutionLog = executionLog(r)
	return r
}

// GenerateForRun loads an archived run and builds its report.
func (g *Generator) GenerateForRun(ctx context.Context, runID string) (*Report, error) {
	if g.runStore == nil {
		return nil, fmt.Errorf("generate report: no run store configured")
	}
	rec, err := g.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	return g.Build(Input{
		RunID:      rec.RunID,
		ScenarioID: rec.ScenarioID,
		Mode:       rec.Mode,
		Seed:       rec.Seed,
		Params:     rec.Params,
		Runs:       rec.Runs,
		Result:     rec.Result,
		Stats:      rec.Stats,
	}), nil
}

// GenerateForScenario builds reports for every archived run of a scenario,
// oldest first.
func (g *Generator) GenerateForScenario(ctx context.Context, scenarioID string) ([]*Report, error) {
	if g.runStore == nil {
		return nil, fmt.Errorf("generate report: no run store configured")
	}
	recs, err := g.runStore.GetByScenario(ctx, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("load runs for scenario %s: %w", scenarioID, err)
	}
	reports := make([]*Report, 0, len(recs))
	for _, rec := range recs {
		reports = append(reports, g.Build(Input{
			RunID:      rec.RunID,
			ScenarioID: rec.ScenarioID,
			Mode:       rec.Mode,
			Seed:       rec.Seed,
			Params:     rec.Params,
			Runs:       rec.Runs,
			Result:     rec.Result,
			Stats:      rec.Stats,
		}))
	}
	return reports, nil
}

func executionLog(r *Report) []string {
	lines := []string{
		fmt.Sprintf("Initiating SIM Kernel... Est Cost: $%s", r.CostEstimate),
		fmt.Sprintf("Mode: %s | Model: %s | Seed: %s", r.Mode, r.Params.Model, r.Seed),
	}
	if r.Params.ChaosMode {
		lines = append(lines, "WARN: Adversarial Chaos Monkey ACTIVE")
	}
	if r.Result != nil {
		lines = append(lines, r.Result.Trace...)
	}
	return append(lines, "Run Completed.")
}
