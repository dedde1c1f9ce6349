package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"sanctum-sim/internal/domain"
	"sanctum-sim/internal/idhash"
	"sanctum-sim/internal/metrics"
	"sanctum-sim/internal/reporting"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a single simulation run",
		Long: `Execute one replication with the active scenario's parameters.

Parameter flags override the scenario for this run only.

Examples:
  sanctum run
  sanctum run --seed Apollo --iterations 240 --shock S1
  sanctum run --chaos --format csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			params, err := applyParamFlags(cmd, a.Scenarios.Live())
			if err != nil {
				return err
			}
			activeID := a.Scenarios.ActiveID()
			ctx := metrics.WithScenarioID(cmdContext(cmd), activeID)

			result, err := a.Aggregator.RunSingle(ctx, params.Seed, params)
			if err != nil {
				return fmt.Errorf("run failed: %w", err)
			}

			active := a.Scenarios.Active()
			report := reporting.NewGenerator(nil).Build(reporting.Input{
				RunID:        idhash.ComputeRunID(activeID, domain.RunModeSingle, params.Seed, 1, params),
				ScenarioID:   activeID,
				ScenarioName: active.Name,
				Mode:         domain.RunModeSingle,
				Seed:         params.Seed,
				Params:       params,
				Runs:         1,
				Result:       result,
			})
			return writeReport(cmd, report)
		},
	}
	addParamFlags(cmd)
	cmd.Flags().String("format", "text", "Output format: text, md or csv")
	return cmd
}

func newMonteCarloCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "montecarlo",
		Aliases: []string{"mc"},
		Short:   "Execute a Monte Carlo batch",
		Long: `Execute N replications seeded <seed>_MC_0 .. <seed>_MC_{N-1} and
summarize terminal cash as P05/P50/P95.

Examples:
  sanctum montecarlo
  sanctum montecarlo --runs 500 --workers 4
  sanctum mc --format csv > distribution.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			params, err := applyParamFlags(cmd, a.Scenarios.Live())
			if err != nil {
				return err
			}
			runs, _ := cmd.Flags().GetInt("runs")
			if !cmd.Flags().Changed("runs") {
				runs = a.Config.MonteCarloRuns
			}
			agg := a.Aggregator
			if cmd.Flags().Changed("workers") {
				workers, _ := cmd.Flags().GetInt("workers")
				agg = metrics.NewAggregator(metrics.Options{
					Workers:  workers,
					RunStore: a.Runs,
					Logger:   a.Logger,
				})
			}

			activeID := a.Scenarios.ActiveID()
			ctx := metrics.WithScenarioID(cmdContext(cmd), activeID)
			stats, rep, err := agg.RunMonteCarlo(ctx, params.Seed, params, runs)
			if err != nil {
				return fmt.Errorf("monte carlo failed: %w", err)
			}

			active := a.Scenarios.Active()
			report := reporting.NewGenerator(nil).Build(reporting.Input{
				RunID:        idhash.ComputeRunID(activeID, domain.RunModeMonteCarlo, params.Seed, len(stats.All), params),
				ScenarioID:   activeID,
				ScenarioName: active.Name,
				Mode:         domain.RunModeMonteCarlo,
				Seed:         params.Seed,
				Params:       params,
				Runs:         len(stats.All),
				Result:       rep,
				Stats:        stats,
			})
			return writeReport(cmd, report)
		},
	}
	addParamFlags(cmd)
	cmd.Flags().Int("runs", domain.DefaultMonteCarloRuns, "Number of replications")
	cmd.Flags().Int("workers", 1, "Parallel replication workers")
	cmd.Flags().String("format", "text", "Output format: text, md or csv")
	return cmd
}

// writeReport prints r in the format selected by --json or --format.
func writeReport(cmd *cobra.Command, r *reporting.Report) error {
	out := cmd.OutOrStdout()
	if jsonOutput(cmd) {
		return writeJSON(out, r)
	}

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "md", "markdown":
		_, err := io.WriteString(out, reporting.RenderMarkdown(r))
		return err
	case "csv":
		if r.Stats != nil {
			_, err := io.WriteString(out, reporting.RenderDistributionCSV(r.Stats))
			return err
		}
		_, err := io.WriteString(out, reporting.RenderCSV(r.Result))
		return err
	case "text", "":
		writeSummary(out, r)
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text, md or csv)", format)
	}
}

func writeSummary(w io.Writer, r *reporting.Report) {
	for _, line := range r.ExecutionLog {
		fmt.Fprintf(w, "> %s\n", line)
	}
	fmt.Fprintln(w)
	if r.RunID != "" {
		fmt.Fprintf(w, "Run:          %s\n", r.RunID)
	}
	fmt.Fprintf(w, "Scenario:     %s (%s)\n", r.ScenarioName, r.ScenarioID)
	fmt.Fprintf(w, "Seed hash:    %s\n", r.Fingerprint)
	if r.Result != nil {
		fmt.Fprintf(w, "Final cash:   %.2f (tick %d)\n", r.Result.Final.Cash, r.Result.Final.Tick)
		fmt.Fprintf(w, "Tripped:      %t\n", r.Result.Final.Tripped)
	}
	fmt.Fprintf(w, "Max drawdown: %.2f\n", r.MaxDrawdown)
	if r.Stats != nil {
		fmt.Fprintf(w, "Replications: %d (%d tripped)\n", r.Runs, r.Stats.Tripped)
		fmt.Fprintf(w, "P05 / P50 / P95: %.2f / %.2f / %.2f\n", r.Stats.P05, r.Stats.P50, r.Stats.P95)
	}
	fmt.Fprintf(w, "Risk score:   %s\n", r.RiskCard.Score)
}
