package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sanctum-sim/internal/domain"
)

// addParamFlags registers flags that override the live scenario parameters.
func addParamFlags(cmd *cobra.Command) {
	cmd.Flags().String("seed", "", "Seed string (defaults to the scenario seed)")
	cmd.Flags().String("model", "", "Growth model: GROWTH_V1 or GROWTH_V2")
	cmd.Flags().Float64("rate", 0, "Per-tick growth rate")
	cmd.Flags().Float64("volatility", 0, "Noise amplitude")
	cmd.Flags().Uint32("iterations", 0, "Number of ticks (10-500)")
	cmd.Flags().StringSlice("shock", nil, "Active catalogue shock IDs, replaces the scenario's (e.g. S1,S3)")
	cmd.Flags().Bool("chaos", false, "Enable chaos mode")
	cmd.Flags().Bool("tripwire", true, "Halt when cash falls below the floor")
}

// applyParamFlags returns base with every explicitly set parameter flag applied.
func applyParamFlags(cmd *cobra.Command, base domain.Parameters) (domain.Parameters, error) {
	p := base.Clone()
	flags := cmd.Flags()

	if flags.Changed("seed") {
		p.Seed, _ = flags.GetString("seed")
	}
	if flags.Changed("model") {
		m, _ := flags.GetString("model")
		p.Model = domain.ModelID(m)
	}
	if flags.Changed("rate") {
		p.Rate, _ = flags.GetFloat64("rate")
	}
	if flags.Changed("volatility") {
		p.Volatility, _ = flags.GetFloat64("volatility")
	}
	if flags.Changed("iterations") {
		p.Iterations, _ = flags.GetUint32("iterations")
	}
	if flags.Changed("shock") {
		ids, _ := flags.GetStringSlice("shock")
		p.ActiveShocks = []domain.Shock{}
		for _, id := range ids {
			s, ok := domain.LookupShock(id)
			if !ok {
				return domain.Parameters{}, fmt.Errorf("unknown shock %q", id)
			}
			if !p.HasShock(s.ID) {
				p.ActiveShocks = append(p.ActiveShocks, s)
			}
		}
	}
	if flags.Changed("chaos") {
		p.ChaosMode, _ = flags.GetBool("chaos")
	}
	if flags.Changed("tripwire") {
		p.TripwireEnabled, _ = flags.GetBool("tripwire")
	}
	return p, nil
}
