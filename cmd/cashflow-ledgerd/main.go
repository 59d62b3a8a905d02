package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"github.com/joho/godotenv"

	"cashflow/internal/amqp"
	"cashflow/internal/config"
	applog "cashflow/internal/log"
	"cashflow/internal/store/memory"
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
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required")
		os.Exit(1)
	}

	replica := memory.New()
	server, err := amqp.NewServer(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRPCQueue, replica,
		applog.New(applog.Config{Component: applog.ComponentDaemon}))
	if err != nil {
		logger.Error("Failed to connect to broker", "error", err, "url", cfg.AMQPURL)
		os.Exit(1)
	}
	defer func() {
		if err := server.Close(); err != nil {
			logger.Error("Broker connection close error", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting ledger daemon",
		"exchange", cfg.AMQPExchange,
		"rpc_queue", cfg.AMQPRPCQueue)

	if err := server.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Daemon error", "error", err)
		os.Exit(1)
	}
	logger.Info("Daemon stopped gracefully")
}
