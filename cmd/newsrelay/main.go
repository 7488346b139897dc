package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"NewsRelay/internal/app"
	"NewsRelay/internal/config"
	"NewsRelay/internal/logging"
)

func main() {
	once := flag.Bool("once", false, "run a single relay pass and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if *once {
		if err := application.RunOnce(ctx); err != nil {
			logger.Error("relay run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := application.RunScheduled(ctx); err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
