package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/greenheaven/floorsync/api/routes"
	"github.com/greenheaven/floorsync/internal/broadcast"
	"github.com/greenheaven/floorsync/internal/floor"
	"github.com/greenheaven/floorsync/pkg/config"
	"github.com/greenheaven/floorsync/pkg/instance"
	"github.com/greenheaven/floorsync/pkg/logger"
	"github.com/greenheaven/floorsync/pkg/metrics"
	"github.com/greenheaven/floorsync/pkg/pubsub"
	"github.com/greenheaven/floorsync/pkg/redis"
	"github.com/greenheaven/floorsync/pkg/storage"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	instanceID := instance.GetID()
	logg = logger.New(logger.Options{
		ServiceName: "api",
		Instance:    instanceID,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	loc, err := cfg.App.Location()
	if err != nil {
		logg.Error(ctx, "invalid time zone", err)
		os.Exit(1)
	}

	store, err := storage.Open(ctx, storage.Params{
		Config:  cfg.Storage,
		Logger:  logg,
		Metrics: metrics.NewStorageMetrics(registry),
	})
	if err != nil {
		logg.Error(ctx, "failed to open storage", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logg.Error(context.Background(), "error closing storage", err)
		}
	}()

	var redisClient *redis.Client
	if cfg.Redis.URL != "" || cfg.Redis.Address != "" {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		switch {
		case err != nil && cfg.Broadcast.BridgeKind() == config.BridgeRedis:
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		case err != nil:
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "redis unavailable; idempotency and rate limits disabled")
			redisClient = nil
		default:
			defer func() {
				if err := redisClient.Close(); err != nil {
					logg.Error(context.Background(), "error closing redis", err)
				}
			}()
		}
	}

	hub := broadcast.NewHub(broadcast.Options{
		BufferSize:   cfg.Broadcast.BufferSize,
		PollInterval: cfg.Broadcast.PollInterval,
		InstanceID:   instanceID,
		Metrics:      metrics.NewBroadcastMetrics(registry),
		Logger:       logg,
	})

	bridge, err := newBridge(ctx, cfg, redisClient, logg)
	if err != nil {
		logg.Error(ctx, "failed to start broadcast bridge", err)
		os.Exit(1)
	}
	if bridge != nil {
		hub.AttachBridge(bridge)
		defer func() {
			if err := bridge.Close(); err != nil {
				logg.Error(context.Background(), "error closing broadcast bridge", err)
			}
		}()
		go func() {
			if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "broadcast bridge stopped", err)
			}
		}()
	}

	engine, err := floor.New(floor.Options{
		Storage:   store,
		Publisher: hub,
		Layout:    cfg.Floor.Tables,
		Location:  loc,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to build floor engine", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	status := store.Status(ctx)
	runCtx := logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"storage_mode": string(status.Mode),
		"degraded":     status.Degraded,
		"bridge":       cfg.Broadcast.BridgeKind(),
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:     cfg,
			Logger:     logg,
			Engine:     engine,
			Hub:        hub,
			InstanceID: instanceID,
			Redis:      redisClient,
			Metrics:    metrics.NewHTTPMetrics(registry),
			Gatherer:   registry,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(runCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(runCtx, "graceful shutdown failed", err)
		}
	}
}

// newBridge returns nil when events stay on this instance.
func newBridge(ctx context.Context, cfg *config.Config, redisClient *redis.Client, logg *logger.Logger) (broadcast.Bridge, error) {
	switch cfg.Broadcast.BridgeKind() {
	case config.BridgeRedis:
		if redisClient == nil {
			return nil, errors.New("redis bridge requires a redis connection")
		}
		return broadcast.NewRedisBridge(redisClient, redisClient.EventsChannel(cfg.Broadcast.Channel), logg)
	case config.BridgePubSub:
		client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return nil, err
		}
		bridge, err := broadcast.NewPubSubBridge(client.EventsPublisher(), client.EventsSubscriber(), logg)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return &pubsubBridge{PubSubBridge: bridge, client: client}, nil
	default:
		return nil, nil
	}
}

// pubsubBridge closes the underlying client with the bridge.
type pubsubBridge struct {
	*broadcast.PubSubBridge
	client *pubsub.Client
}

func (b *pubsubBridge) Close() error {
	return errors.Join(b.PubSubBridge.Close(), b.client.Close())
}
