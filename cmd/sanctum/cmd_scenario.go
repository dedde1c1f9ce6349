package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"sanctum-sim/internal/domain"
)

func newScenarioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "scenario",
		Aliases: []string{"scenarios"},
		Short:   "Manage saved parameter scenarios",
	}
	cmd.AddCommand(
		newScenarioListCmd(),
		newScenarioShowCmd(),
		newScenarioForkCmd(),
		newScenarioSwitchCmd(),
		newScenarioDeleteCmd(),
		newScenarioCommitCmd(),
	)
	return cmd
}

type scenarioListOutput struct {
	ActiveID  string            `json:"activeId"`
	Scenarios []domain.Scenario `json:"scenarios"`
}

func newScenarioListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			out := scenarioListOutput{ActiveID: a.Scenarios.ActiveID(), Scenarios: a.Scenarios.List()}
			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), out)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "\tID\tNAME\tCREATED\tMODEL\tSEED")
			for _, s := range out.Scenarios {
				marker := ""
				if s.ID == out.ActiveID {
					marker = "*"
				}
				created := time.UnixMilli(s.Timestamp).UTC().Format(time.RFC3339)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", marker, s.ID, s.Name, created, s.Params.Model, s.Params.Seed)
			}
			return tw.Flush()
		},
	}
}

func newScenarioShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a scenario's parameters (the active one by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			s := a.Scenarios.Active()
			if len(args) == 1 {
				var ok bool
				if s, ok = a.Scenarios.Get(args[0]); !ok {
					return fmt.Errorf("scenario %q not found", args[0])
				}
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), s)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s (%s)\n", s.Name, s.ID)
			fmt.Fprintf(w, "  seed:       %s\n", s.Params.Seed)
			fmt.Fprintf(w, "  model:      %s\n", s.Params.Model)
			fmt.Fprintf(w, "  rate:       %g\n", s.Params.Rate)
			fmt.Fprintf(w, "  volatility: %g\n", s.Params.Volatility)
			fmt.Fprintf(w, "  iterations: %d\n", s.Params.Iterations)
			fmt.Fprintf(w, "  tripwire:   %t\n", s.Params.TripwireEnabled)
			fmt.Fprintf(w, "  chaos:      %t\n", s.Params.ChaosMode)
			for _, sh := range s.Params.ActiveShocks {
				fmt.Fprintf(w, "  shock:      %s %s (%+g)\n", sh.ID, sh.Name, sh.Impact)
			}
			return nil
		},
	}
}

func newScenarioForkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fork",
		Short: "Save the live parameters as a new scenario and switch to it",
		Long: `Fork the active scenario. Parameter flags are applied to the live
parameters before the copy is saved.

Examples:
  sanctum scenario fork
  sanctum scenario fork --rate 0.02 --shock S2`,
		Args: cobra.NoArgs,
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
			id, err := a.Scenarios.Fork(cmdContext(cmd), params)
			if err != nil {
				return fmt.Errorf("fork scenario: %w", err)
			}
			s, _ := a.Scenarios.Get(id)
			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), s)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created scenario %s (%s)\n", s.ID, s.Name)
			return nil
		},
	}
	addParamFlags(cmd)
	return cmd
}

func newScenarioSwitchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "switch <id>",
		Short: "Make a scenario active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ok, err := a.Scenarios.Switch(cmdContext(cmd), args[0])
			if err != nil {
				return fmt.Errorf("switch scenario: %w", err)
			}
			if !ok {
				return fmt.Errorf("scenario %q not found", args[0])
			}
			return writeActive(cmd, a.Scenarios.ActiveID(), "Switched to")
		},
	}
}

func newScenarioDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a scenario (the baseline is protected)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == domain.DefaultScenarioID {
				return errors.New("the baseline scenario cannot be deleted")
			}
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ok, err := a.Scenarios.Delete(cmdContext(cmd), args[0])
			if err != nil {
				return fmt.Errorf("delete scenario: %w", err)
			}
			if !ok {
				return fmt.Errorf("scenario %q not found", args[0])
			}
			return writeActive(cmd, a.Scenarios.ActiveID(), "Deleted "+args[0]+"; active is")
		},
	}
}

func newScenarioCommitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Overwrite the active scenario with the live parameters",
		Long: `Commit parameter flags into the active scenario. The baseline
scenario cannot be overwritten; fork it instead.

Example:
  sanctum scenario commit --iterations 360 --chaos`,
		Args: cobra.NoArgs,
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
			a.Scenarios.SetLive(params)
			ok, err := a.Scenarios.Commit(cmdContext(cmd))
			if err != nil {
				return fmt.Errorf("commit scenario: %w", err)
			}
			if !ok {
				return errors.New("the baseline scenario cannot be overwritten; fork it first")
			}
			return writeActive(cmd, a.Scenarios.ActiveID(), "Committed")
		},
	}
	addParamFlags(cmd)
	return cmd
}

func writeActive(cmd *cobra.Command, activeID, verb string) error {
	if jsonOutput(cmd) {
		return writeJSON(cmd.OutOrStdout(), map[string]string{"activeId": activeID})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, activeID)
	return nil
}
