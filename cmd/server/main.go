package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"

	"platewatch/internal/app"
	"platewatch/internal/config"
	"platewatch/internal/logger"
	"platewatch/internal/service"
)

func main() {
	cfg := config.Load()

	if err := cfg.ParseArgs(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to start watcher: %v", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil && !service.IsShutdown(err) {
		log.Error("Watcher stopped: %v", err)
		stop()
		os.Exit(1)
	}
	log.Info("Watcher stopped")
}
