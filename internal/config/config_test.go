package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if *cfg != *Default() {
		t.Errorf("missing file = %+v", cfg)
	}

	p := filepath.Join(dir, "sheetgrid.yaml")
	writeFile(t, p, `
driver: postgres
dsn: postgres://localhost/grid
default_window_size: 200
rate_limits:
  read_per_min: 600
`)
	cfg, err = Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Driver != "postgres" || cfg.DefaultWindowSize != 200 || cfg.RateLimits.ReadPerMin != 600 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.HTTP != ":8080" || cfg.IndexReconcileSchedule != "@every 1h" {
		t.Errorf("defaults lost: %+v", cfg)
	}

	out := filepath.Join(dir, "saved.yaml")
	if err := cfg.Save(out); err != nil {
		t.Fatal(err)
	}
	again, err := Load(out)
	if err != nil {
		t.Fatal(err)
	}
	if *again != *cfg {
		t.Errorf("saved config differs: %+v", again)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name, content, want string
	}{
		{"driver", "driver: mysql\n", "unknown driver"},
		{"window", "default_window_size: 1001\n", "default_window_size"},
		{"schedule", "index_reconcile_schedule: every tuesday\n", "index_reconcile_schedule"},
		{"level", "log_level: loud\n", "log level"},
		{"dsn", "dsn: \"\"\n", "dsn"},
		{"limits", "rate_limits: {write_per_min: -1}\n", "rate_limits"},
		{"yaml", "driver: [\n", "parse"},
	}
	dir := t.TempDir()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := filepath.Join(dir, tt.name+".yaml")
			writeFile(t, p, tt.content)
			_, err := Load(p)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("trace"); err == nil {
		t.Error("ParseLevel(trace) succeeded")
	}
}

func TestWatch(t *testing.T) {
	p := filepath.Join(t.TempDir(), "sheetgrid.yaml")
	writeFile(t, p, "log_level: info\n")
	var level slog.LevelVar
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloaded := make(chan *Config, 10)
	if err := Watch(ctx, p, &level, func(c *Config) { reloaded <- c }); err != nil {
		t.Fatal(err)
	}

	writeFile(t, p, "log_level: debug\n")
	// A write may be observed half done, so wait for the final content.
	timeout := time.After(10 * time.Second)
	for done := false; !done; {
		select {
		case cfg := <-reloaded:
			done = cfg.LogLevel == "debug"
		case <-timeout:
			t.Fatal("config change not observed")
		}
	}
	if level.Level() != slog.LevelDebug {
		t.Errorf("level = %v", level.Level())
	}
}
