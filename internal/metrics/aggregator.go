// Package metrics runs single and Monte Carlo simulations and computes
// their summary statistics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"sanctum-sim/internal/domain"
	"sanctum-sim/internal/idhash"
	"sanctum-sim/internal/logging"
	"sanctum-sim/internal/observability"
	"sanctum-sim/internal/prng"
	"sanctum-sim/internal/simulation"
	"sanctum-sim/internal/storage"
)

// Options configures an Aggregator.
type Options struct {
	// Workers bounds parallel replications. Values <= 1 run sequentially.
	Workers int

	// RunStore archives every finished run when set.
	RunStore storage.RunRecordStore

	// Logger defaults to a discarding logger.
	Logger *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Aggregator executes runs and summarizes replications.
type Aggregator struct {
	workers  int
	runStore storage.RunRecordStore
	logger   *slog.Logger
	now      func() time.Time
}

// NewAggregator creates a new Aggregator.
func NewAggregator(opts Options) *Aggregator {
	a := &Aggregator{
		workers:  opts.Workers,
		runStore: opts.RunStore,
		logger:   logging.OrDiscard(opts.Logger),
		now:      opts.Now,
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

type scenarioKey struct{}

// WithScenarioID tags runs made with ctx as belonging to a scenario.
func WithScenarioID(ctx context.Context, scenarioID string) context.Context {
	return context.WithValue(ctx, scenarioKey{}, scenarioID)
}

func scenarioIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(scenarioKey{}).(string)
	return id
}

// RunSingle executes one replication.
func (a *Aggregator) RunSingle(ctx context.Context, seed string, params domain.Parameters) (*domain.RunResult, error) {
	return a.RunSingleObserved(ctx, seed, params, nil)
}

// RunSingleObserved executes one replication and reports each appended state to obs.
func (a *Aggregator) RunSingleObserved(ctx context.Context, seed string, params domain.Parameters, obs simulation.Observer) (*domain.RunResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := simulation.ExecuteWithObserver(seed, params, obs)
	if err != nil {
		observability.RecordRun(domain.RunModeSingle, statusOf(err), time.Since(start).Seconds(), a.now().Unix())
		return nil, err
	}
	recordReplication(result)
	observability.RecordRun(domain.RunModeSingle, "ok", time.Since(start).Seconds(), a.now().Unix())

	a.logger.Debug("run complete",
		"seed", seed,
		"model", params.Model,
		"ticks", len(result.Series)-1,
		"final_cash", result.FinalCash(),
		"tripped", result.Final.Tripped,
	)

	a.archive(ctx, &domain.RunRecord{
		Mode:   domain.RunModeSingle,
		Seed:   seed,
		Params: params.Clone(),
		Runs:   1,
		Result: result,
	})
	return result, nil
}

// RunMonteCarlo executes n replications (50 when n <= 0).
// Replication i uses seed+"_MC_"+i. Returns the statistics over all
// replications and replication 0 as the representative result.
// Cancellation is checked between replications.
func (a *Aggregator) RunMonteCarlo(ctx context.Context, seed string, params domain.Parameters, n int) (*domain.MonteCarloStats, *domain.RunResult, error) {
	if n <= 0 {
		n = domain.DefaultMonteCarloRuns
	}
	if err := simulation.Validate(seed, params); err != nil {
		return nil, nil, err
	}

	start := time.Now()
	results, err := a.replicate(ctx, seed, params, n)
	if err != nil {
		observability.RecordRun(domain.RunModeMonteCarlo, statusOf(err), time.Since(start).Seconds(), a.now().Unix())
		return nil, nil, err
	}

	stats := computeStats(results)
	representative := results[0]
	observability.RecordRun(domain.RunModeMonteCarlo, "ok", time.Since(start).Seconds(), a.now().Unix())

	a.logger.Info("monte carlo complete",
		"seed", seed,
		"runs", n,
		"workers", a.workers,
		"p05", stats.P05,
		"p50", stats.P50,
		"p95", stats.P95,
		"tripped", stats.Tripped,
		"elapsed", time.Since(start),
	)

	a.archive(ctx, &domain.RunRecord{
		Mode:   domain.RunModeMonteCarlo,
		Seed:   seed,
		Params: params.Clone(),
		Runs:   n,
		Result: representative,
		Stats:  stats,
	})
	return stats, representative, nil
}

// replicate runs n replications. Results are written by index so the
// parallel path returns exactly what the sequential loop does.
func (a *Aggregator) replicate(ctx context.Context, seed string, params domain.Parameters, n int) ([]*domain.RunResult, error) {
	results := make([]*domain.RunResult, n)

	run := func(i int) error {
		r, err := simulation.Execute(prng.ReplicationSeed(seed, i), params)
		if err != nil {
			return fmt.Errorf("replication %d: %w", i, err)
		}
		recordReplication(r)
		results[i] = r
		return nil
	}

	if a.workers <= 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := run(i); err != nil {
				return nil, err
			}
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return run(i)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// archive stores a finished run when a RunStore is configured.
// Duplicates are expected for repeated identical runs and are ignored.
func (a *Aggregator) archive(ctx context.Context, rec *domain.RunRecord) {
	if a.runStore == nil {
		return
	}

	rec.ScenarioID = scenarioIDFrom(ctx)
	rec.RunID = idhash.ComputeRunID(rec.ScenarioID, rec.Mode, rec.Seed, rec.Runs, rec.Params)
	rec.CreatedAt = a.now().UnixMilli()

	err := a.runStore.Insert(ctx, rec)
	switch {
	case err == nil:
		a.logger.Debug("run archived", "run_id", rec.RunID, "mode", rec.Mode)
	case errors.Is(err, storage.ErrDuplicateKey):
		a.logger.Debug("run already archived", "run_id", rec.RunID)
	default:
		a.logger.Warn("archive run failed", "run_id", rec.RunID, "error", err)
	}
}

func recordReplication(r *domain.RunResult) {
	observability.RecordReplication(len(r.Series)-1, r.Final.Tripped, len(r.ChaosTicks), r.FinalCash())
}

func statusOf(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
