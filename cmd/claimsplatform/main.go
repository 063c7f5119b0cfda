package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ClaimsPlatform/internal/app"
	"ClaimsPlatform/internal/config"
	"ClaimsPlatform/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("application init failed", "error", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
