package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"sanctum-sim/internal/domain"
	"sanctum-sim/internal/verification"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect and verify archived runs",
	}
	cmd.AddCommand(newRunsListCmd(), newRunsVerifyCmd())
	return cmd
}

type runSummary struct {
	RunID      string  `json:"runId"`
	ScenarioID string  `json:"scenarioId"`
	Mode       string  `json:"mode"`
	Seed       string  `json:"seed"`
	Runs       int     `json:"runs"`
	FinalCash  float64 `json:"finalCash"`
	Tripped    bool    `json:"tripped"`
	CreatedAt  int64   `json:"createdAt"`
}

func newRunsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived runs, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmdContext(cmd)
			var recs []*domain.RunRecord
			if cmd.Flags().Changed("scenario") {
				id, _ := cmd.Flags().GetString("scenario")
				recs, err = a.Runs.GetByScenario(ctx, id)
			} else {
				recs, err = a.Runs.GetAll(ctx)
			}
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			summaries := make([]runSummary, 0, len(recs))
			for _, r := range recs {
				s := runSummary{
					RunID:      r.RunID,
					ScenarioID: r.ScenarioID,
					Mode:       r.Mode,
					Seed:       r.Seed,
					Runs:       r.Runs,
					CreatedAt:  r.CreatedAt,
				}
				if r.Result != nil {
					s.FinalCash = r.Result.FinalCash()
					s.Tripped = r.Result.Final.Tripped
				}
				summaries = append(summaries, s)
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), summaries)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSCENARIO\tMODE\tSEED\tRUNS\tFINAL\tTRIPPED\tCREATED")
			for _, s := range summaries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%.2f\t%t\t%s\n",
					shortID(s.RunID), s.ScenarioID, s.Mode, s.Seed, s.Runs, s.FinalCash, s.Tripped,
					time.UnixMilli(s.CreatedAt).UTC().Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().String("scenario", "", "Only runs made under this scenario")
	return cmd
}

func newRunsVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [run-id]",
		Short: "Replay archived runs and compare them with the stored output",
		Long: `Replay one archived run, or all of them, and report every field
where the replay differs from what was stored.

Exits non-zero when any run diverges.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			workers, _ := cmd.Flags().GetInt("workers")
			if !cmd.Flags().Changed("workers") {
				workers = a.Config.Workers
			}
			v := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
				RunStore: a.Runs,
				Workers:  workers,
				Logger:   a.Logger,
			})

			ctx := cmdContext(cmd)
			var report *verification.VerificationReport
			if len(args) == 1 {
				res, err := v.VerifyRun(ctx, args[0])
				if err != nil {
					return err
				}
				report = &verification.VerificationReport{
					TotalRuns: 1,
					Results:   []verification.VerificationResult{*res},
				}
				if res.Match {
					report.MatchedRuns = 1
				} else {
					report.DivergentRuns = 1
				}
			} else {
				if report, err = v.VerifyAll(ctx); err != nil {
					return err
				}
			}

			if jsonOutput(cmd) {
				if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			} else {
				w := cmd.OutOrStdout()
				for _, res := range report.Results {
					status := "OK"
					if !res.Match {
						status = "DIVERGED"
					}
					fmt.Fprintf(w, "%-8s %s %s\n", status, shortID(res.RunID), res.Mode)
					for _, d := range res.Divergences {
						fmt.Fprintf(w, "         %s\n", d)
					}
				}
				fmt.Fprintf(w, "%d runs: %d matched, %d diverged\n", report.TotalRuns, report.MatchedRuns, report.DivergentRuns)
			}
			if report.DivergentRuns > 0 {
				return errors.New("verification failed")
			}
			return nil
		},
	}
	cmd.Flags().Int("workers", 1, "Parallel replication workers for Monte Carlo replays")
	return cmd
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
