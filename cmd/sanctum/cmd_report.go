package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"sanctum-sim/internal/reporting"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [run-id]",
		Short: "Render the report for archived runs",
		Long: `Render the report of one archived run, or of every run made under a
scenario with --scenario.

Examples:
  sanctum report 3f9a0c...
  sanctum report 3f9a0c... --format csv --output series.csv
  sanctum report --scenario default`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarioID, _ := cmd.Flags().GetString("scenario")
			if len(args) == 0 && scenarioID == "" {
				return errors.New("a run id or --scenario is required")
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			gen := reporting.NewGenerator(a.Runs)
			ctx := cmdContext(cmd)
			var reports []*reporting.Report
			if len(args) == 1 {
				r, err := gen.GenerateForRun(ctx, args[0])
				if err != nil {
					return err
				}
				reports = append(reports, r)
			} else {
				if reports, err = gen.GenerateForScenario(ctx, scenarioID); err != nil {
					return err
				}
			}
			for _, r := range reports {
				if s, ok := a.Scenarios.Get(r.ScenarioID); ok {
					r.ScenarioName = s.Name
				}
			}

			out := cmd.OutOrStdout()
			if path, _ := cmd.Flags().GetString("output"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				out = f
			}
			return renderReports(cmd, out, reports)
		},
	}
	cmd.Flags().String("format", "md", "Output format: md, csv or json")
	cmd.Flags().String("scenario", "", "Report every run made under this scenario")
	cmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func renderReports(cmd *cobra.Command, w io.Writer, reports []*reporting.Report) error {
	format, _ := cmd.Flags().GetString("format")
	if jsonOutput(cmd) {
		format = "json"
	}

	switch format {
	case "json":
		if len(reports) == 1 {
			return writeJSON(w, reports[0])
		}
		return writeJSON(w, reports)
	case "md", "markdown":
		for i, r := range reports {
			if i > 0 {
				fmt.Fprintln(w, "\n---")
			}
			if _, err := io.WriteString(w, reporting.RenderMarkdown(r)); err != nil {
				return err
			}
		}
		return nil
	case "csv":
		for _, r := range reports {
			body := reporting.RenderCSV(r.Result)
			if r.Stats != nil {
				body = reporting.RenderDistributionCSV(r.Stats)
			}
			if _, err := io.WriteString(w, body); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (want md, csv or json)", format)
	}
}
