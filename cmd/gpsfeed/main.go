package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"backend-strideup/internal/config"
	"backend-strideup/internal/gpsfeed"
	"backend-strideup/internal/logger"
)

func main() {
	cfg, err := config.Load()
	os.Exit(run(cfg, err))
}

func run(cfg config.Config, loadErr error) int {
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if loadErr != nil {
		log.Error(context.Background(), "config load failed", logger.Err(loadErr))
		return 1
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	feed := gpsfeed.New(cfg.GPSDAddr, log)
	err := feed.Run(ctx)
	log.Info(context.Background(), "gps feed stopped", logger.Float("total_distance_m", feed.Total()))
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error(context.Background(), "gps feed failed", logger.Err(err))
		return 1
	}
	return 0
}
