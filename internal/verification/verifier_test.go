package verification

import (
	"context"
	"errors"
	"strings"
	"testing"

	"sanctum-sim/internal/domain"
	"sanctum-sim/internal/idhash"
	"sanctum-sim/internal/metrics"
	"sanctum-sim/internal/simulation"
	"sanctum-sim/internal/storage/memory"
)

func TestCompareResults_ExactMatch(t *testing.T) {
	r, err := simulation.Execute("Northfield", domain.DefaultParameters())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if d := CompareResults(r, r.Clone()); len(d) != 0 {
		t.Errorf("Expected 0 divergences, got %d: %v", len(d), d)
	}
}

func TestCompareResults_CashDivergence(t *testing.T) {
	r, _ := simulation.Execute("Northfield", domain.DefaultParameters())
	tampered := r.Clone()
	tampered.Series[12].Cash += 0.0000001

	d := CompareResults(r, tampered)
	if len(d) != 1 {
		t.Fatalf("Expected 1 divergence, got %d: %v", len(d), d)
	}
	if d[0].Field != "Series[12].Cash" {
		t.Errorf("Expected Series[12].Cash divergence, got %s", d[0].Field)
	}
}

func TestCompareResults_LengthAndTrace(t *testing.T) {
	crash, _ := domain.LookupShock(domain.ShockMarketCrash)
	params := domain.DefaultParameters().ToggleShock(crash)
	tripped, _ := simulation.Execute("Northfield", params)

	params.TripwireEnabled = false
	full, _ := simulation.Execute("Northfield", params)

	d := CompareResults(tripped, full)
	fields := map[string]bool{}
	for _, x := range d {
		fields[x.Field] = true
	}
	for _, want := range []string{"SeriesLength", "Final", "Trace"} {
		if !fields[want] {
			t.Errorf("missing %s divergence in %v", want, d)
		}
	}
}

func TestCompareResults_ChaosTicks(t *testing.T) {
	a := &domain.RunResult{ChaosTicks: []uint32{3, 9}}
	b := &domain.RunResult{ChaosTicks: []uint32{3}}
	if d := CompareResults(a, b); len(d) != 1 || d[0].Field != "ChaosTicks" {
		t.Errorf("unexpected divergences %v", d)
	}
	if d := CompareResults(&domain.RunResult{}, &domain.RunResult{ChaosTicks: []uint32{}}); len(d) != 0 {
		t.Errorf("nil and empty chaos ticks should match, got %v", d)
	}
}

func TestCompareResults_Nil(t *testing.T) {
	if d := CompareResults(nil, nil); d != nil {
		t.Errorf("nil vs nil: %v", d)
	}
	if d := CompareResults(nil, &domain.RunResult{}); len(d) != 1 || d[0].Field != "Result" {
		t.Errorf("nil vs value: %v", d)
	}
}

func TestCompareStats(t *testing.T) {
	stats := &domain.MonteCarloStats{P05: 1, P50: 2, P95: 3, All: []float64{1, 2, 3}, Mean: 2, Min: 1, Max: 3}
	if d := CompareStats(stats, stats.Clone()); len(d) != 0 {
		t.Errorf("Expected match, got %v", d)
	}

	other := stats.Clone()
	other.P50 = 2.5
	other.All[1] = 2.5
	other.Tripped = 1
	d := CompareStats(stats, other)
	if len(d) != 3 {
		t.Fatalf("Expected 3 divergences, got %d: %v", len(d), d)
	}
	if d[0].Field != "P50" || d[1].Field != "Tripped" || d[2].Field != "All[1]" {
		t.Errorf("unexpected fields %v", d)
	}

	other = stats.Clone()
	other.All = other.All[:2]
	if d := CompareStats(stats, other); len(d) != 1 || d[0].Field != "Replications" {
		t.Errorf("unexpected divergences %v", d)
	}
}

func TestFieldDivergence_String(t *testing.T) {
	d := FieldDivergence{Field: "P05", Expected: 1.5, Actual: 2.0}
	if got := d.String(); got != "P05: stored=1.5 replayed=2" {
		t.Errorf("String() = %q", got)
	}
}

func archiveRuns(t *testing.T) *memory.RunRecordStore {
	t.Helper()
	store := memory.NewRunRecordStore()
	agg := metrics.NewAggregator(metrics.Options{RunStore: store})
	ctx := context.Background()

	params := domain.DefaultParameters()
	if _, err := agg.RunSingle(ctx, "Northfield", params); err != nil {
		t.Fatalf("RunSingle failed: %v", err)
	}
	params.ChaosMode = true
	params.Model = domain.ModelGrowthV2
	if _, _, err := agg.RunMonteCarlo(ctx, "Northfield", params, 12); err != nil {
		t.Fatalf("RunMonteCarlo failed: %v", err)
	}
	return store
}

func TestReplayVerifier_VerifyRun_ExactMatch(t *testing.T) {
	store := archiveRuns(t)
	v := NewReplayVerifier(ReplayVerifierOptions{RunStore: store, Workers: 4})
	ctx := context.Background()

	recs, _ := store.GetAll(ctx)
	for _, rec := range recs {
		result, err := v.VerifyRun(ctx, rec.RunID)
		if err != nil {
			t.Fatalf("VerifyRun(%s) failed: %v", rec.Mode, err)
		}
		if !result.Match {
			t.Errorf("%s run diverged: %v", rec.Mode, result.Divergences)
		}
		if result.StoredFinalCash != result.ReplayedFinalCash {
			t.Errorf("final cash %v != %v", result.StoredFinalCash, result.ReplayedFinalCash)
		}
	}
}

func TestReplayVerifier_VerifyRun_NotFound(t *testing.T) {
	v := NewReplayVerifier(ReplayVerifierOptions{RunStore: memory.NewRunRecordStore()})

	_, err := v.VerifyRun(context.Background(), "missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}

func TestReplayVerifier_VerifyAll(t *testing.T) {
	store := archiveRuns(t)
	ctx := context.Background()

	// A tampered record: stored cash no longer matches what the kernel produces.
	params := domain.DefaultParameters()
	params.Seed = "tampered"
	result, _ := simulation.Execute("tampered", params)
	result.Series[5].Cash = 1
	tampered := &domain.RunRecord{
		RunID:     idhash.ComputeRunID("", domain.RunModeSingle, "tampered", 1, params),
		Mode:      domain.RunModeSingle,
		Seed:      "tampered",
		Params:    params,
		Runs:      1,
		Result:    result,
		CreatedAt: 1,
	}
	if err := store.Insert(ctx, tampered); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// A record that cannot be replayed.
	bad := &domain.RunRecord{
		RunID:     "bad",
		Mode:      domain.RunModeSingle,
		Seed:      "",
		Params:    domain.DefaultParameters(),
		Runs:      1,
		Result:    &domain.RunResult{},
		CreatedAt: 2,
	}
	if err := store.Insert(ctx, bad); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	report, err := NewReplayVerifier(ReplayVerifierOptions{RunStore: store}).VerifyAll(ctx)
	if err != nil {
		t.Fatalf("VerifyAll failed: %v", err)
	}

	if report.TotalRuns != 4 {
		t.Errorf("Expected 4 total runs, got %d", report.TotalRuns)
	}
	if report.MatchedRuns != 2 {
		t.Errorf("Expected 2 matched runs, got %d", report.MatchedRuns)
	}
	if report.DivergentRuns != 2 {
		t.Errorf("Expected 2 divergent runs, got %d", report.DivergentRuns)
	}

	for _, r := range report.Results {
		switch r.RunID {
		case tampered.RunID:
			if r.Match || len(r.Divergences) == 0 || r.Divergences[0].Field != "Series[5].Cash" {
				t.Errorf("tampered run: %+v", r)
			}
		case "bad":
			if r.Match || r.Divergences[0].Field != "Error" {
				t.Errorf("bad run: %+v", r)
			}
			if msg, _ := r.Divergences[0].Actual.(string); !strings.Contains(msg, "seed") {
				t.Errorf("expected seed error, got %v", r.Divergences[0].Actual)
			}
		}
	}
}

func TestReplayVerifier_RunIDMismatch(t *testing.T) {
	store := memory.NewRunRecordStore()
	ctx := context.Background()
	params := domain.DefaultParameters()
	result, _ := simulation.Execute("Northfield", params)

	rec := &domain.RunRecord{
		RunID:  "not-a-hash",
		Mode:   domain.RunModeSingle,
		Seed:   "Northfield",
		Params: params,
		Runs:   1,
		Result: result,
	}
	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	res, err := NewReplayVerifier(ReplayVerifierOptions{RunStore: store}).VerifyRun(ctx, "not-a-hash")
	if err != nil {
		t.Fatalf("VerifyRun failed: %v", err)
	}
	if res.Match || len(res.Divergences) != 1 || res.Divergences[0].Field != "RunID" {
		t.Errorf("unexpected result %+v", res)
	}
}
