package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"sanctum-sim/internal/domain"
	"sanctum-sim/internal/idhash"
	"sanctum-sim/internal/logging"
	"sanctum-sim/internal/metrics"
	"sanctum-sim/internal/simulation"
	"sanctum-sim/internal/storage"
)

// ErrRunNotFound is returned when a run ID doesn't exist in the archive.
var ErrRunNotFound = errors.New("run not found")

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	RunStore storage.RunRecordStore
	Workers  int // parallelism for Monte Carlo replays
	Logger   *slog.Logger
}

// ReplayVerifier implements Verifier against a RunRecordStore.
type ReplayVerifier struct {
	runStore   storage.RunRecordStore
	aggregator *metrics.Aggregator
	logger     *slog.Logger
}

// Compile-time interface check.
var _ Verifier = (*ReplayVerifier)(nil)

// NewReplayVerifier creates a new ReplayVerifier.
// Replays are never archived.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	logger := logging.OrDiscard(opts.Logger)
	return &ReplayVerifier{
		runStore:   opts.RunStore,
		aggregator: metrics.NewAggregator(metrics.Options{Workers: opts.Workers, Logger: logger}),
		logger:     logger,
	}
}

// VerifyRun verifies a single archived run by replaying it.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, runID string) (*VerificationResult, error) {
	stored, err := v.runStore.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	return v.verify(ctx, stored)
}

// VerifyAll verifies all archived runs. A run that cannot be replayed is
// counted as divergent with an "Error" divergence.
func (v *ReplayVerifier) VerifyAll(ctx context.Context) (*VerificationReport, error) {
	records, err := v.runStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{
		TotalRuns: len(records),
		Results:   make([]VerificationResult, 0, len(records)),
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := v.verify(ctx, rec)
		if err != nil {
			report.Results = append(report.Results, VerificationResult{
				RunID:           rec.RunID,
				Mode:            rec.Mode,
				StoredFinalCash: finalCash(rec.Result),
				Divergences: []FieldDivergence{
					{Field: "Error", Expected: nil, Actual: err.Error()},
				},
			})
			report.DivergentRuns++
			continue
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedRuns++
		} else {
			report.DivergentRuns++
		}
	}

	v.logger.Info("verification complete",
		"total", report.TotalRuns,
		"matched", report.MatchedRuns,
		"divergent", report.DivergentRuns,
	)
	return report, nil
}

func (v *ReplayVerifier) verify(ctx context.Context, stored *domain.RunRecord) (*VerificationResult, error) {
	var divergences []FieldDivergence

	if id := idhash.ComputeRunID(stored.ScenarioID, stored.Mode, stored.Seed, stored.Runs, stored.Params); id != stored.RunID {
		divergences = append(divergences, FieldDivergence{Field: "RunID", Expected: stored.RunID, Actual: id})
	}

	var replayed *domain.RunResult
	switch stored.Mode {
	case domain.RunModeSingle:
		r, err := simulation.Execute(stored.Seed, stored.Params)
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", stored.RunID, err)
		}
		replayed = r

	case domain.RunModeMonteCarlo:
		stats, r, err := v.aggregator.RunMonteCarlo(ctx, stored.Seed, stored.Params, stored.Runs)
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", stored.RunID, err)
		}
		replayed = r
		divergences = append(divergences, CompareStats(stored.Stats, stats)...)

	default:
		return nil, fmt.Errorf("replay %s: unknown mode %q", stored.RunID, stored.Mode)
	}

	divergences = append(divergences, CompareResults(stored.Result, replayed)...)

	if len(divergences) > 0 {
		v.logger.Warn("run diverged", "run_id", stored.RunID, "divergences", len(divergences))
	}

	return &VerificationResult{
		RunID:             stored.RunID,
		Mode:              stored.Mode,
		Match:             len(divergences) == 0,
		Divergences:       divergences,
		StoredFinalCash:   finalCash(stored.Result),
		ReplayedFinalCash: replayed.FinalCash(),
	}, nil
}

func finalCash(r *domain.RunResult) float64 {
	if r == nil {
		return 0
	}
	return r.FinalCash()
}
