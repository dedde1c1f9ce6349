// Package main runs the simulation HTTP API:
// - JSON endpoints for runs, Monte Carlo batches and scenarios
// - websocket streaming of live runs
// - Prometheus metrics and health checks
package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"sanctum-sim/internal/app"
	"sanctum-sim/internal/config"
	"sanctum-sim/internal/httpapi"
	"sanctum-sim/internal/observability"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load .env file if exists
	loadEnvFile(".env")

	configPath := flag.String("config", os.Getenv("SANCTUM_CONFIG"), "Path to YAML config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	storageFlag := flag.String("storage", "", "Scenario storage: memory, sqlite or postgres (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		config.Exitf("%v", err)
	}
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}
	if *storageFlag != "" {
		cfg.Storage = *storageFlag
	}

	logger := app.NewLogger(cfg, os.Stderr)
	observability.Init(cfg.MetricsNamespace)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		config.Exitf("open app: %v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("close stores", "error", err)
		}
	}()

	api := httpapi.New(httpapi.Options{
		Scenarios:      a.Scenarios,
		Aggregator:     a.Aggregator,
		RunStore:       a.Runs,
		MonteCarloRuns: cfg.MonteCarloRuns,
		Workers:        cfg.Workers,
		Logger:         logger,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	// Channel to signal completion
	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received signal, initiating graceful shutdown", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		go func() {
			// Wait for second signal for immediate shutdown
			select {
			case sig := <-sigCh:
				logger.Warn("received second signal, forcing immediate shutdown", "signal", sig.String())
				os.Exit(1)
			case <-done:
			}
		}()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
		// Cancel in-flight runs and streams after the listener is closed.
		cancel()
	}()

	logger.Info("http server starting",
		"addr", cfg.HTTPAddr,
		"storage", cfg.Storage,
		"mc_runs", cfg.MonteCarloRuns,
		"workers", cfg.Workers,
	)
	err = srv.ListenAndServe()
	close(done)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server error", "error", err)
		a.Close()
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// loadEnvFile loads environment variables from path if it exists.
// Variables already set in the environment win.
func loadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if _, set := os.LookupEnv(key); !set {
			os.Setenv(key, value)
		}
	}
}
