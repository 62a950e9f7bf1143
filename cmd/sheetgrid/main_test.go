package main

import (
	"log/slog"
	"path/filepath"
	"testing"
)

func TestLoadConfigFlags(t *testing.T) {
	configPath = filepath.Join(t.TempDir(), "missing.yaml")
	if err := rootCmd.ParseFlags([]string{"--driver", "postgres", "--dsn", "postgres://db/grid", "--log-level", "debug"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(rootCmd)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Driver != "postgres" || cfg.DSN != "postgres://db/grid" || cfg.HTTP != ":8080" {
		t.Errorf("cfg = %+v", cfg)
	}
	if logLevel.Level() != slog.LevelDebug {
		t.Errorf("level = %v", logLevel.Level())
	}

	if err := rootCmd.ParseFlags([]string{"--driver", "mysql"}); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(rootCmd); err == nil {
		t.Error("unknown driver accepted")
	}
}
