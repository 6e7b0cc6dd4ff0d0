package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/irlabs/postsearch/internal/events"
	"github.com/irlabs/postsearch/internal/indexer/artifact"
	"github.com/irlabs/postsearch/internal/searcher"
	"github.com/irlabs/postsearch/internal/searcher/cache"
	"github.com/irlabs/postsearch/internal/searcher/handler"
	"github.com/irlabs/postsearch/pkg/config"
	"github.com/irlabs/postsearch/pkg/health"
	"github.com/irlabs/postsearch/pkg/logger"
	"github.com/irlabs/postsearch/pkg/metrics"
	"github.com/irlabs/postsearch/pkg/middleware"
	pkgredis "github.com/irlabs/postsearch/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	noCache := flag.Bool("no-cache", false, "serve without the Redis query cache")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting searcher service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := searcher.New(
		artifact.NewStore(cfg.Index.ArtifactDir, cfg.Index.KeepVersions),
		cfg.Search.MaxResults,
	)
	if err := engine.Load(); err != nil {
		slog.Error("failed to load index artifacts", "error", err)
		os.Exit(1)
	}

	var queryCache *cache.QueryCache
	var redisClient *pkgredis.Client
	if !*noCache {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, serving without query cache", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis)
		}
	}

	if queryCache != nil {
		consumer := events.NewInvalidationConsumer(cfg.Kafka, func(ctx context.Context, ev events.RebuildCompleted) error {
			slog.Info("index rebuilt, invalidating query cache", "version", ev.Version)
			return queryCache.Invalidate(ctx)
		})
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("rebuild consumer stopped", "error", err)
			}
		}()
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		if !engine.Loaded() {
			return health.ComponentHealth{Status: health.StatusDown, Message: "index not loaded"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: engine.Version()}
	})
	if redisClient != nil {
		checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
			if err := redisClient.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	mux := http.NewServeMux()
	handler.New(engine, queryCache, m).Register(mux)
	mux.HandleFunc("/health/live", checker.LiveHandler())
	mux.HandleFunc("/health/ready", checker.ReadyHandler())

	var root http.Handler = mux
	if m != nil {
		root = middleware.Metrics(m)(mux)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      root,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		slog.Info("searcher listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down searcher")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
	slog.Info("searcher stopped")
}
