// Package config loads runtime configuration from defaults, an optional
// YAML file and SANCTUM_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"sanctum-sim/internal/domain"
	"sanctum-sim/internal/observability"
)

// Storage backends for the scenario key-value store.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// MaxMonteCarloRuns bounds the configured replication count.
const MaxMonteCarloRuns = 10000

// Config is the process configuration shared by the CLI and the server.
type Config struct {
	Storage       string `yaml:"storage"        env:"SANCTUM_STORAGE"`
	SQLitePath    string `yaml:"sqlite_path"    env:"SANCTUM_SQLITE_PATH"`
	PostgresDSN   string `yaml:"postgres_dsn"   env:"SANCTUM_POSTGRES_DSN"`
	ClickHouseDSN string `yaml:"clickhouse_dsn" env:"SANCTUM_CLICKHOUSE_DSN"` // optional run archive

	LogLevel  string `yaml:"log_level"  env:"SANCTUM_LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"SANCTUM_LOG_FORMAT"` // text | json

	HTTPAddr         string `yaml:"http_addr"         env:"SANCTUM_HTTP_ADDR"`
	MetricsNamespace string `yaml:"metrics_namespace" env:"SANCTUM_METRICS_NAMESPACE"`

	MonteCarloRuns int `yaml:"mc_runs" env:"SANCTUM_MC_RUNS"`
	Workers        int `yaml:"workers" env:"SANCTUM_WORKERS"`

	ScenarioKey string `yaml:"scenario_key" env:"SANCTUM_SCENARIO_KEY"`
	ActiveKey   string `yaml:"active_key"   env:"SANCTUM_ACTIVE_KEY"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Storage:          StorageSQLite,
		SQLitePath:       ".sanctum/sanctum.db",
		LogLevel:         "info",
		LogFormat:        "text",
		HTTPAddr:         ":8080",
		MetricsNamespace: observability.DefaultNamespace,
		MonteCarloRuns:   domain.DefaultMonteCarloRuns,
		Workers:          1,
		ScenarioKey:      "sanctum_sim_scenarios",
		ActiveKey:        "sanctum_sim_active_scenario",
	}
}

// Load builds the configuration. path may be empty; a named file that
// does not exist is an error. Environment variables win over the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.PostgresDSN = expandEnvVars(cfg.PostgresDSN)
	cfg.ClickHouseDSN = expandEnvVars(cfg.ClickHouseDSN)

	return cfg, nil
}

// ParseEnv overlays environment variables onto target.
// Unset variables leave the existing field values alone.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks the configuration for obvious mistakes.
func (c Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StorageSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite_path is required for %s storage", c.Storage)
		}
	case StoragePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres_dsn is required for %s storage", c.Storage)
		}
	default:
		return fmt.Errorf("invalid storage: %q (valid: memory, sqlite, postgres)", c.Storage)
	}

	validLevels := map[string]bool{"error": true, "warn": true, "info": true, "debug": true, "trace": true}
	if c.LogLevel != "" && !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %q (valid: error, warn, info, debug, trace)", c.LogLevel)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format: %q (valid: text, json)", c.LogFormat)
	}
	if c.MonteCarloRuns < 1 || c.MonteCarloRuns > MaxMonteCarloRuns {
		return fmt.Errorf("mc_runs must be between 1 and %d, got %d", MaxMonteCarloRuns, c.MonteCarloRuns)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.ScenarioKey == "" || c.ActiveKey == "" {
		return fmt.Errorf("scenario_key and active_key must be set")
	}
	if c.ScenarioKey == c.ActiveKey {
		return fmt.Errorf("scenario_key and active_key must differ")
	}
	return nil
}

// String renders the config with DSN credentials masked.
func (c Config) String() string {
	return fmt.Sprintf("Config{Storage:%s, SQLitePath:%s, Postgres:%s, ClickHouse:%s, LogLevel:%s, HTTPAddr:%s, MCRuns:%d, Workers:%d}",
		c.Storage, c.SQLitePath, redactDSN(c.PostgresDSN), redactDSN(c.ClickHouseDSN),
		c.LogLevel, c.HTTPAddr, c.MonteCarloRuns, c.Workers)
}

// redactDSN hides the password portion of user:pass@host DSNs.
func redactDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	at := strings.LastIndex(dsn, "@")
	if at < 0 {
		return dsn
	}
	scheme := strings.Index(dsn, "://")
	start := 0
	if scheme >= 0 {
		start = scheme + 3
	}
	colon := strings.Index(dsn[start:at], ":")
	if colon < 0 {
		return dsn
	}
	return dsn[:start+colon+1] + "***" + dsn[at:]
}

func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
