package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/irlabs/postsearch/internal/events"
	"github.com/irlabs/postsearch/internal/indexer"
	"github.com/irlabs/postsearch/internal/indexer/artifact"
	"github.com/irlabs/postsearch/internal/store"
	"github.com/irlabs/postsearch/pkg/config"
	"github.com/irlabs/postsearch/pkg/logger"
	"github.com/irlabs/postsearch/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	noEvents := flag.Bool("no-events", false, "skip publishing the rebuild event")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting index rebuild", "artifact_dir", cfg.Index.ArtifactDir)

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

	start := time.Now()
	posts, err := repo.FetchAllForIndexing(ctx)
	if err != nil {
		slog.Error("failed to fetch posts", "error", err)
		os.Exit(1)
	}

	docs := make([]indexer.Document, 0, len(posts))
	for _, p := range posts {
		docs = append(docs, indexer.Document{
			ID:             p.ID,
			NormalizedText: p.CleanText,
			Likes:          p.Likes,
			Comments:       p.CommentCount,
			Date:           p.Date,
		})
	}

	snap := indexer.Build(docs)
	artifacts := artifact.NewStore(cfg.Index.ArtifactDir, cfg.Index.KeepVersions)
	version, err := artifacts.Publish(snap)
	if err != nil {
		slog.Error("failed to publish index artifacts", "error", err)
		os.Exit(1)
	}

	if m != nil {
		m.ObserveIndexBuild(snap.DocsIndexed, snap.DocsSkipped, len(snap.Postings), time.Since(start))
	}
	slog.Info("index rebuild finished",
		"version", version,
		"documents", snap.DocsIndexed,
		"skipped", snap.DocsSkipped,
		"terms", len(snap.Postings),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	if *noEvents {
		return
	}
	publisher := events.NewPublisher(cfg.Kafka)
	defer publisher.Close()
	pubCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := publisher.PublishRebuildCompleted(pubCtx, events.RebuildCompleted{
		Version:     version,
		Documents:   snap.DocsIndexed,
		Terms:       len(snap.Postings),
		CompletedAt: time.Now().UTC(),
	}); err != nil {
		// Best-effort; cached results age out via TTL anyway.
		slog.Warn("rebuild event not published", "error", err)
	}
}
