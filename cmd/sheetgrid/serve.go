package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/maruel/sheetgrid/internal/config"
	"github.com/maruel/sheetgrid/internal/server"
	"github.com/maruel/sheetgrid/internal/server/ratelimit"
	"github.com/maruel/sheetgrid/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	svc := storage.NewServices(db)

	if _, err := os.Stat(configPath); err == nil {
		if err := config.Watch(ctx, configPath, logLevel, nil); err != nil {
			return fmt.Errorf("failed to watch config: %w", err)
		}
	}

	var limits *ratelimit.Config
	if cfg.RateLimits.ReadPerMin > 0 || cfg.RateLimits.WritePerMin > 0 {
		limits = ratelimit.New(orUnlimited(cfg.RateLimits.ReadPerMin), orUnlimited(cfg.RateLimits.WritePerMin))
		defer limits.Close()
	}
	version, _, _, _ := getBuildInfo()
	opts := &server.Options{
		Version:           version,
		DefaultWindowSize: cfg.DefaultWindowSize,
		JWTSecret:         []byte(cfg.JWTSecret),
		Config: server.Config{
			MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
			Limits:              limits,
		},
	}
	httpServer := &http.Server{
		Addr:              cfg.HTTP,
		Handler:           server.NewRouter(db, svc, opts),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	if cfg.IndexReconcileSchedule != "" {
		r, err := storage.NewReconciler(svc.Columns, svc.Indexes, cfg.IndexReconcileSchedule)
		if err != nil {
			return err
		}
		eg.Go(func() error { return r.Run(ctx) })
	}
	eg.Go(func() error {
		slog.InfoContext(ctx, "Starting server", "addr", cfg.HTTP, "driver", cfg.Driver, "version", version)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(shutdownCtx, "Server stopped")
		return nil
	})
	return eg.Wait()
}

// orUnlimited maps a disabled tier to an effectively unbounded budget.
func orUnlimited(perMin int) int {
	if perMin <= 0 {
		return 1 << 30
	}
	return perMin
}
