// Command sheetgrid serves windowed access to spreadsheet tables.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/maruel/sheetgrid/internal/config"
	"github.com/maruel/sheetgrid/internal/storage"
)

var (
	configPath string
	flagHTTP   string
	flagDriver string
	flagDSN    string
	flagLevel  string

	// logLevel is shared with the config watcher.
	logLevel = &slog.LevelVar{}
)

func main() {
	if err := rootCmd.Execute(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "sheetgrid: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "sheetgrid",
	Short:         "Windowed spreadsheet grid server",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initLogger()
		return nil
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&configPath, "config", "sheetgrid.yaml", "YAML configuration file")
	f.StringVar(&flagHTTP, "http", "", "Address to listen on, overrides the config file")
	f.StringVar(&flagDriver, "driver", "", "Database driver (sqlite, postgres), overrides the config file")
	f.StringVar(&flagDSN, "dsn", "", "Database DSN or SQLite file, overrides the config file")
	f.StringVar(&flagLevel, "log-level", "", "Log level (debug, info, warn, error), overrides the config file")
}

// loadConfig reads the config file and applies the flags that were set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	f := cmd.Flags()
	if f.Changed("http") {
		cfg.HTTP = flagHTTP
	}
	if f.Changed("driver") {
		cfg.Driver = flagDriver
	}
	if f.Changed("dsn") {
		cfg.DSN = flagDSN
	}
	if f.Changed("log-level") {
		cfg.LogLevel = flagLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l, _ := config.ParseLevel(cfg.LogLevel)
	logLevel.Set(l)
	return cfg, nil
}

func openDB(ctx context.Context, cfg *config.Config) (*storage.DB, error) {
	db, err := storage.Open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func initLogger() {
	// Skip timestamps when running under systemd (it adds its own).
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      logLevel,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			if a.Key == "ip" {
				if v := a.Value.String(); v == "127.0.0.1" || v == "::1" {
					return slog.Attr{}
				}
			}
			skip := false
			switch t := a.Value.Any().(type) {
			case string:
				skip = t == ""
			case bool:
				skip = !t
			case int64:
				skip = t == 0
			case time.Duration:
				skip = t == 0
			case nil:
				skip = true
			}
			if skip {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}
