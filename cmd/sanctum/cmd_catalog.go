package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sanctum-sim/internal/domain"
	"sanctum-sim/internal/model"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List registered growth models",
		RunE: func(cmd *cobra.Command, args []string) error {
			models := model.All()
			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), models)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME")
			for _, m := range models {
				fmt.Fprintf(tw, "%s\t%s\n", m.ID, m.Name)
			}
			return tw.Flush()
		},
	}
}

func newShocksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shocks",
		Short: "List the shock catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			shocks := domain.ShockCatalogue()
			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), shocks)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tIMPACT")
			for _, s := range shocks {
				fmt.Fprintf(tw, "%s\t%s\t%+.0f%%\n", s.ID, s.Name, s.Impact*100)
			}
			return tw.Flush()
		},
	}
}
