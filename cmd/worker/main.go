// Command worker runs the recommender background jobs: index rebuilds,
// stale-profile recomputes, cache warming, and interaction pruning.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonesrussell/north-cloud/recommender/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/recommender/internal/platform/logger"
)

func main() {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := bootstrap.CreateLogger(cfg)
	if err != nil {
		os.Stderr.WriteString("failed to create logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting recommender worker",
		logger.Duration("rebuild_interval", cfg.Recommend.RebuildInterval),
		logger.Duration("recompute_interval", cfg.Recommend.RecomputeInterval),
	)

	components, err := bootstrap.NewWorkerComponents(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize components", logger.Error(err))
	}
	defer components.Core.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := components.Scheduler.Start(ctx); err != nil {
		log.Fatal("Failed to start scheduler", logger.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info("Received shutdown signal", logger.String("signal", sig.String()))
	cancel()
	components.Scheduler.Stop()
	log.Info("Worker stopped gracefully")
}
