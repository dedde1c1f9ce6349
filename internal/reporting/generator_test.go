package reporting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sanctum-sim/internal/domain"
	"sanctum-sim/internal/metrics"
	"sanctum-sim/internal/storage"
	"sanctum-sim/internal/storage/memory"
)

var fixedTime = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func archivedStore(t *testing.T) *memory.RunRecordStore {
	t.Helper()
	store := memory.NewRunRecordStore()
	agg := metrics.NewAggregator(metrics.Options{RunStore: store})
	ctx := metrics.WithScenarioID(context.Background(), "abc12345")

	if _, err := agg.RunSingle(ctx, "Northfield", domain.DefaultParameters()); err != nil {
		t.Fatalf("RunSingle failed: %v", err)
	}
	if _, _, err := agg.RunMonteCarlo(ctx, "Northfield", domain.DefaultParameters(), 20); err != nil {
		t.Fatalf("RunMonteCarlo failed: %v", err)
	}
	return store
}

func TestGenerator_Build_Single(t *testing.T) {
	result := &domain.RunResult{
		Series: []domain.SimState{{Cash: 100000}, {Cash: 90000, Tick: 1}, {Cash: 95000, Tick: 2}},
		Final:  domain.SimState{Cash: 95000, Tick: 2},
	}
	params := domain.DefaultParameters()

	r := NewGenerator(nil).WithClock(func() time.Time { return fixedTime }).Build(Input{
		Seed:   "Northfield",
		Params: params,
		Result: result,
	})

	if r.Mode != domain.RunModeSingle || r.Runs != 1 {
		t.Errorf("mode/runs = %s/%d", r.Mode, r.Runs)
	}
	if !r.GeneratedAt.Equal(fixedTime) {
		t.Errorf("GeneratedAt = %v", r.GeneratedAt)
	}
	if r.CostEstimate != "0.000120" {
		t.Errorf("CostEstimate = %s", r.CostEstimate)
	}
	if r.Fingerprint != "40f" {
		t.Errorf("Fingerprint = %s", r.Fingerprint)
	}
	if r.MaxDrawdown != 10000 {
		t.Errorf("MaxDrawdown = %v, want 10000", r.MaxDrawdown)
	}
	if len(r.Sensitivity) != 3 {
		t.Errorf("expected 3 sensitivity factors, got %d", len(r.Sensitivity))
	}
	if r.RiskCard.Score != RiskScoreLow {
		t.Errorf("risk score = %s", r.RiskCard.Score)
	}
	if r.Histogram != nil {
		t.Error("single run should have no histogram")
	}

	wantLog := []string{
		"Initiating SIM Kernel... Est Cost: $0.000120",
		"Mode: SINGLE | Model: GROWTH_V1 | Seed: Northfield",
		"Run Completed.",
	}
	if strings.Join(r.ExecutionLog, "\n") != strings.Join(wantLog, "\n") {
		t.Errorf("ExecutionLog = %q", r.ExecutionLog)
	}

	// The report owns its copies.
	result.Series[1].Cash = 0
	if r.Result.Series[1].Cash != 90000 {
		t.Error("report shares series with input")
	}
}

func TestGenerator_Build_MonteCarloInfersMode(t *testing.T) {
	params := domain.DefaultParameters()
	params.ChaosMode = true
	stats := &domain.MonteCarloStats{All: []float64{1, 2, 3, 4, 5, 6}, P95: 6}

	r := NewGenerator(nil).Build(Input{Seed: "x", Params: params, Stats: stats, Result: &domain.RunResult{}})
	if r.Mode != domain.RunModeMonteCarlo || r.Runs != 6 {
		t.Errorf("mode/runs = %s/%d", r.Mode, r.Runs)
	}
	if r.CostEstimate != "0.012000" {
		t.Errorf("CostEstimate = %s", r.CostEstimate)
	}
	if len(r.Histogram) != 2 {
		t.Errorf("histogram bars = %d, want 2", len(r.Histogram))
	}
	if r.RiskCard.Detail.Mode != "ADVERSARIAL" {
		t.Errorf("risk mode = %s", r.RiskCard.Detail.Mode)
	}
	found := false
	for _, l := range r.ExecutionLog {
		if l == "WARN: Adversarial Chaos Monkey ACTIVE" {
			found = true
		}
	}
	if !found {
		t.Errorf("missing chaos warning in %q", r.ExecutionLog)
	}
}

func TestGenerator_GenerateForRun(t *testing.T) {
	store := archivedStore(t)
	ctx := context.Background()
	recs, _ := store.GetAll(ctx)

	g := NewGenerator(store).WithClock(func() time.Time { return fixedTime })
	for _, rec := range recs {
		r, err := g.GenerateForRun(ctx, rec.RunID)
		if err != nil {
			t.Fatalf("GenerateForRun failed: %v", err)
		}
		if r.RunID != rec.RunID || r.ScenarioID != "abc12345" || r.Mode != rec.Mode {
			t.Errorf("unexpected report header %+v", r)
		}
		if rec.Mode == domain.RunModeMonteCarlo && (r.Stats == nil || r.Runs != 20) {
			t.Errorf("monte carlo report missing stats: runs=%d", r.Runs)
		}
	}

	_, err := g.GenerateForRun(ctx, "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGenerator_GenerateForScenario(t *testing.T) {
	g := NewGenerator(archivedStore(t))

	reports, err := g.GenerateForScenario(context.Background(), "abc12345")
	if err != nil {
		t.Fatalf("GenerateForScenario failed: %v", err)
	}
	if len(reports) != 2 {
		t.Errorf("expected 2 reports, got %d", len(reports))
	}

	if _, err := NewGenerator(nil).GenerateForScenario(context.Background(), "x"); err == nil {
		t.Error("expected error without a run store")
	}
}

func TestRenderMarkdown(t *testing.T) {
	store := archivedStore(t)
	ctx := context.Background()
	recs, _ := store.GetByScenario(ctx, "abc12345")

	g := NewGenerator(store).WithClock(func() time.Time { return fixedTime })
	var mc *Report
	for _, rec := range recs {
		if rec.Mode == domain.RunModeMonteCarlo {
			mc, _ = g.GenerateForRun(ctx, rec.RunID)
		}
	}
	if mc == nil {
		t.Fatal("monte carlo run not archived")
	}
	mc.ScenarioName = "Fork of Baseline"

	md := RenderMarkdown(mc)
	for _, want := range []string{
		"# Simulation Report",
		"Generated: 2026-01-15T12:00:00Z",
		"Scenario: Fork of Baseline (`abc12345`)",
		"| Seed Hash | 40f |",
		"| Replications | 20 |",
		"## Monte Carlo Distribution",
		"P05 (Worst Case)",
		"### Histogram (every 5th replication)",
		"## Sensitivity",
		"| Interest Rate |",
		"Risk Score: **",
		`"id": "RSK-9921"`,
		"- Run Completed.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderMarkdown_NoResult(t *testing.T) {
	md := RenderMarkdown(NewGenerator(nil).Build(Input{Seed: "s", Params: domain.DefaultParameters()}))
	if !strings.Contains(md, "No result available.") {
		t.Error("expected placeholder for missing result")
	}
	if strings.Contains(md, "## Sensitivity") {
		t.Error("sensitivity rendered without a result")
	}
}
