// Package config loads the server configuration from a YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/maruel/sheetgrid/internal/grid"
)

// Config is the server configuration.
type Config struct {
	HTTP                   string     `yaml:"http"`
	Driver                 string     `yaml:"driver"`
	DSN                    string     `yaml:"dsn"`
	LogLevel               string     `yaml:"log_level"`
	DefaultWindowSize      int        `yaml:"default_window_size"`
	IndexReconcileSchedule string     `yaml:"index_reconcile_schedule"`
	JWTSecret              string     `yaml:"jwt_secret,omitempty"`
	RateLimits             RateLimits `yaml:"rate_limits"`
	MaxRequestBodyBytes    int64      `yaml:"max_request_body_bytes"`
}

// RateLimits are per caller budgets. 0 disables limiting.
type RateLimits struct {
	ReadPerMin  int `yaml:"read_per_min"`
	WritePerMin int `yaml:"write_per_min"`
}

// Default returns the configuration used for missing fields.
func Default() *Config {
	return &Config{
		HTTP:                   ":8080",
		Driver:                 "sqlite",
		DSN:                    "sheetgrid.db",
		LogLevel:               "info",
		DefaultWindowSize:      grid.DefaultWindowSize,
		IndexReconcileSchedule: "@every 1h",
		MaxRequestBodyBytes:    1 << 20,
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// The path is provided by the operator, so file inclusion is expected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // Operator-specified config path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown driver %q, want sqlite or postgres", c.Driver)
	}
	if c.DSN == "" {
		return errors.New("dsn is required")
	}
	if c.HTTP == "" {
		return errors.New("http is required")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.DefaultWindowSize < 1 || c.DefaultWindowSize > grid.MaxWindowSize {
		return fmt.Errorf("default_window_size must be between 1 and %d", grid.MaxWindowSize)
	}
	if c.IndexReconcileSchedule != "" {
		if _, err := cron.ParseStandard(c.IndexReconcileSchedule); err != nil {
			return fmt.Errorf("invalid index_reconcile_schedule: %w", err)
		}
	}
	if c.RateLimits.ReadPerMin < 0 || c.RateLimits.WritePerMin < 0 {
		return errors.New("rate_limits must not be negative")
	}
	if c.MaxRequestBodyBytes < 0 {
		return errors.New("max_request_body_bytes must not be negative")
	}
	return nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ParseLevel parses a log level name.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
