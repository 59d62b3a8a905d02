package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"cashflow/internal/backend"
	"cashflow/internal/config"
	"cashflow/internal/feed"
	apphttp "cashflow/internal/http"
	"cashflow/internal/ledger"
	applog "cashflow/internal/log"
	"cashflow/internal/view"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger)
	result, err := factory.CreateBackend(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to create backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}()
	}

	repo, err := ledger.NewRepository(result.Mode, result.Local, result.Client,
		applog.New(applog.Config{Component: applog.ComponentLedger}))
	if err != nil {
		logger.Error("Failed to create repository", "error", err)
		os.Exit(1)
	}

	// A live view only exists when a replicated store can push snapshots.
	var ledgerView *view.LedgerView
	if result.Client != nil {
		ledgerView = view.NewLedgerView(applog.New(applog.Config{Component: applog.ComponentView}))
		defer ledgerView.Close()

		feedManager := feed.NewManager(
			result.Client,
			result.Mode.OwnerID(),
			ledgerView.ApplySnapshot,
			func(ledgerID string, err error) {
				logger.Error("Feed error", "ledger_id", ledgerID, "error", err)
			},
			applog.New(applog.Config{Component: applog.ComponentFeed}),
		)
		defer feedManager.Close()

		if cfg.DefaultLedgerID != "" {
			if err := feedManager.Switch(cfg.DefaultLedgerID); err != nil {
				logger.Error("Failed to attach initial feed", "ledger_id", cfg.DefaultLedgerID, "error", err)
			}
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, repo, ledgerView)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting cashflow server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"session_mode", result.Mode.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
