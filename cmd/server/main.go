package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"btxconv/internal/app"
	"btxconv/internal/config"
	"btxconv/internal/telemetry"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	logger := telemetry.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Serve(ctx); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
