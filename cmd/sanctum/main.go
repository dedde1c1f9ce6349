// Command sanctum runs deterministic cash-flow simulations and manages
// saved scenarios from the terminal.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"sanctum-sim/internal/app"
	"sanctum-sim/internal/config"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		config.Exitf("%v", err)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sanctum",
		Short: "Deterministic scenario simulation kernel",
		Long: `sanctum runs seeded cash-flow simulations over a growth model,
summarizes Monte Carlo batches, and keeps named parameter scenarios.

Identical seeds and parameters always produce identical results.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().String("storage", "", "Scenario storage: memory, sqlite or postgres")
	rootCmd.PersistentFlags().String("sqlite-path", "", "SQLite database path")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: error, warn, info, debug, trace")

	rootCmd.AddCommand(
		newVersionCmd(),
		newModelsCmd(),
		newShocksCmd(),
		newRunCmd(),
		newMonteCarloCmd(),
		newScenarioCmd(),
		newRunsCmd(),
		newReportCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			if jsonOutput(cmd) {
				writeJSON(cmd.OutOrStdout(), map[string]string{"version": version})
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sanctum version %s\n", version)
		},
	}
}

// loadConfig reads the config file and environment, then applies any
// global flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	if cmd.Flags().Changed("storage") {
		cfg.Storage, _ = cmd.Flags().GetString("storage")
	}
	if cmd.Flags().Changed("sqlite-path") {
		cfg.SQLitePath, _ = cmd.Flags().GetString("sqlite-path")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	return cfg, nil
}

// openApp builds the application for a command. Logs go to stderr so
// stdout stays parseable with --json.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return app.Open(cmdContext(cmd), cfg, app.NewLogger(cfg, cmd.ErrOrStderr()))
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
