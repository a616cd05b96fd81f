package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/unclebandit/outreach/internal/app"
	"github.com/unclebandit/outreach/internal/config"
	"github.com/unclebandit/outreach/internal/logging"
)

// Standalone queue worker. Several of these may run against one database.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config: ", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init", zap.Error(err))
	}
	defer a.Close()

	w := a.NewWorker()
	w.Start(ctx)
	logger.Info("worker running, waiting for due items...", zap.String("worker_id", w.ID()))

	<-ctx.Done()
	w.Stop()
}
