package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tableside/tableside/api/routes"
	"github.com/tableside/tableside/pkg/config"
	"github.com/tableside/tableside/pkg/logger"
	"github.com/tableside/tableside/pkg/metrics"
	"github.com/tableside/tableside/pkg/redis"

	"github.com/tableside/tableside/internal/draft"
	"github.com/tableside/tableside/internal/events"
	"github.com/tableside/tableside/internal/session"
	"github.com/tableside/tableside/internal/snapshot"
	"github.com/tableside/tableside/internal/upstream"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "tabled"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "tabled",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithTableID(ctx, cfg.Table.ID)

	persistence, cleanup, err := buildPersistence(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap draft persistence", err)
		os.Exit(1)
	}
	defer cleanup()

	draftStore, err := draft.NewStore(ctx, persistence, logg)
	if err != nil {
		logg.Error(ctx, "failed to build draft store", err)
		os.Exit(1)
	}

	upstreamClient, err := upstream.NewClient(cfg.Upstream, logg)
	if err != nil {
		logg.Error(ctx, "failed to build upstream client", err)
		os.Exit(1)
	}

	var registry *prometheus.Registry
	var engineMetrics *metrics.EngineMetrics
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		engineMetrics = metrics.NewEngineMetrics(registry)
	}

	engine, err := session.NewEngine(session.Params{
		Logger:   logg,
		Metrics:  engineMetrics,
		Upstream: upstreamClient,
		Draft:    draftStore,
		TableID:  cfg.Table.ID,
		Closure:  cfg.Closure,
	})
	if err != nil {
		logg.Error(ctx, "failed to build session engine", err)
		os.Exit(1)
	}

	poller, err := snapshot.NewPoller(snapshot.PollerParams{
		Logger:   logg,
		Metrics:  engineMetrics,
		Interval: cfg.Poll.Interval(cfg.Table.Flow),
		Jobs: []snapshot.Job{snapshot.FuncJob{
			JobName: "reconcile",
			Fn:      engine.Reconcile,
		}},
	})
	if err != nil {
		logg.Error(ctx, "failed to build poller", err)
		os.Exit(1)
	}
	engine.SetInvalidate(poller.Kick)

	go func() {
		if err := poller.Run(ctx); err != nil && ctx.Err() == nil {
			logg.Error(ctx, "poller stopped unexpectedly", err)
		}
	}()

	if cfg.Events.Enabled() {
		subscriber, err := events.NewSubscriber(events.SubscriberParams{
			Logger:  logg,
			Metrics: engineMetrics,
			Config:  cfg.Events,
			TableID: cfg.Table.ID,
			Handler: engine.HandleEvent,
		})
		if err != nil {
			logg.Error(ctx, "failed to build event subscriber", err)
			os.Exit(1)
		}
		go func() {
			if err := subscriber.Run(ctx); err != nil && ctx.Err() == nil {
				logg.Error(ctx, "event subscriber stopped unexpectedly", err)
			}
		}()
	} else {
		logg.Info(ctx, "push channel disabled, polling only")
	}

	addr := ":" + cfg.App.Port
	startCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
		"flow": cfg.Table.Flow,
	})
	logg.Info(startCtx, "starting table session daemon")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, engine, draftStore, registry),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "graceful shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(startCtx, "server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "table session daemon stopped")
}

func buildPersistence(ctx context.Context, cfg *config.Config, logg *logger.Logger) (draft.Persistence, func(), error) {
	noop := func() {}
	switch cfg.Draft.Backend {
	case config.DraftBackendMemory:
		return draft.NewMemoryPersistence(), noop, nil
	case config.DraftBackendRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, noop, err
		}
		persistence, err := draft.NewRedisPersistence(client, cfg.Draft.StorageKey)
		if err != nil {
			return nil, noop, err
		}
		cleanup := func() {
			if err := client.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}
		return persistence, cleanup, nil
	default:
		persistence, err := draft.NewSQLitePersistence(cfg.Draft.SQLitePath, cfg.Draft.StorageKey)
		if err != nil {
			return nil, noop, err
		}
		return persistence, noop, nil
	}
}
