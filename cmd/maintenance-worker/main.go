package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/greenheaven/floorsync/internal/dailytotals"
	"github.com/greenheaven/floorsync/internal/maintenance"
	"github.com/greenheaven/floorsync/pkg/config"
	"github.com/greenheaven/floorsync/pkg/db/models"
	"github.com/greenheaven/floorsync/pkg/instance"
	"github.com/greenheaven/floorsync/pkg/logger"
	"github.com/greenheaven/floorsync/pkg/metrics"
	"github.com/greenheaven/floorsync/pkg/redis"
	"github.com/greenheaven/floorsync/pkg/storage"
)

const lockName = "maintenance:%s"

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	metricsAddr := flag.String("metrics-addr", "", "serve /metrics on this address (empty disables)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "maintenance-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "maintenance-worker",
		Instance:    instance.GetID(),
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	registry := prometheus.NewRegistry()

	loc, err := cfg.App.Location()
	if err != nil {
		logg.Error(ctx, "invalid time zone", err)
		os.Exit(1)
	}

	store, err := storage.Open(ctx, storage.Params{
		Config:         cfg.Storage,
		Logger:         logg,
		Metrics:        metrics.NewStorageMetrics(registry),
		SkipModeRecord: true,
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

	lock, closeLock := newLock(ctx, cfg, logg)
	defer closeLock()

	openLocal := func(ctx context.Context) (*storage.Adapter, error) {
		return storage.OpenLocal(ctx, storage.Params{Config: cfg.Storage, Logger: logg})
	}
	jobMetrics := metrics.NewJobMetrics(registry)

	totals, err := dailytotals.NewService(
		storage.NewCollection[models.DailyTotal](store, storage.CollectionDailyTotals, "date"),
		loc,
		time.Now,
	)
	if err != nil {
		logg.Error(ctx, "failed to build daily totals", err)
		os.Exit(1)
	}

	jobs := maintenance.NewRegistry()
	sweep, err := maintenance.NewCompletionSweepJob(maintenance.CompletionSweepParams{
		Logger: logg,
		Store:  store,
		Totals: totals,
	})
	mustRegister(ctx, logg, jobs, sweep, err)
	if cfg.Jobs.Resync {
		resync, err := maintenance.NewResyncJob(maintenance.ResyncParams{
			Logger:  logg,
			Metrics: jobMetrics,
			Remote:  store,
			Local:   openLocal,
			Totals:  totals,
		})
		mustRegister(ctx, logg, jobs, resync, err)
	}
	backup, err := maintenance.NewBackupJob(maintenance.BackupParams{
		Logger: logg,
		Local:  openLocal,
		Dir:    cfg.Jobs.BackupPath(cfg.Storage),
		Keep:   cfg.Jobs.BackupKeep,
	})
	mustRegister(ctx, logg, jobs, backup, err)

	service, err := maintenance.NewService(maintenance.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Jobs.Interval,
	})
	if err != nil {
		logg.Error(ctx, "failed to create maintenance service", err)
		os.Exit(1)
	}

	if *metricsAddr != "" {
		srv := &http.Server{
			Addr:              *metricsAddr,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logg.Error(ctx, "metrics server stopped", err)
			}
		}()
		defer func() { _ = srv.Close() }()
	}

	if *once {
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "maintenance cycle failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting maintenance worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "maintenance worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "maintenance worker shutting down gracefully")
}

// newLock uses a redis lease when redis is configured, otherwise assumes a single worker.
func newLock(ctx context.Context, cfg *config.Config, logg *logger.Logger) (maintenance.Lock, func()) {
	if cfg.Redis.URL == "" && cfg.Redis.Address == "" {
		logg.Warn(ctx, "redis not configured; running without a cross-instance lock")
		return maintenance.SingleInstanceLock{}, func() {}
	}
	client, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	lock, err := maintenance.NewRedisLock(client, client.LockKey(fmt.Sprintf(lockName, env)), cfg.Jobs.LockTTL)
	if err != nil {
		logg.Error(ctx, "failed to create maintenance lock", err)
		os.Exit(1)
	}
	return lock, func() {
		if err := client.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}
}

func mustRegister(ctx context.Context, logg *logger.Logger, jobs *maintenance.Registry, job maintenance.Job, err error) {
	if err == nil {
		err = jobs.Register(job)
	}
	if err != nil {
		logg.Error(ctx, "failed to register maintenance job", err)
		os.Exit(1)
	}
}
