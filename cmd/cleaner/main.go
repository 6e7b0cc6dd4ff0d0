package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/irlabs/postsearch/internal/cleaner"
	"github.com/irlabs/postsearch/internal/store"
	"github.com/irlabs/postsearch/pkg/config"
	"github.com/irlabs/postsearch/pkg/logger"
	"github.com/irlabs/postsearch/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	workers := flag.Int("workers", 0, "normalization workers (0 = GOMAXPROCS)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting cleaning pass")

	repo, client, err := store.NewFromConfig(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	stats, err := cleaner.New(repo, *workers).Run(ctx)
	if err != nil {
		slog.Error("cleaning pass failed", "error", err)
		os.Exit(1)
	}
	if m != nil {
		m.ObserveCleaningRun(stats.Updated, stats.Failed)
	}
	slog.Info("cleaning pass finished",
		"fetched", stats.Fetched,
		"updated", stats.Updated,
		"failed", stats.Failed,
	)
}
