package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/courierdash/courierdash/internal/app"
	"github.com/courierdash/courierdash/internal/auth"
	jobmetrics "github.com/courierdash/courierdash/internal/jobs"
	"github.com/courierdash/courierdash/internal/observability"
	"github.com/courierdash/courierdash/internal/platform/cache"
	"github.com/courierdash/courierdash/internal/platform/db"
	"github.com/courierdash/courierdash/internal/session"
	"github.com/courierdash/courierdash/internal/shared"
	"github.com/courierdash/courierdash/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	authService := auth.NewService(auth.NewRepository(pool), shared.NewAuditLogger(pool))
	credentialStore := session.NewRedisCredentialStore(redisClient)
	sessionManager := shared.NewSessionManager(redisClient, "courierdash_session", cfg.SessionTTL, cfg.IsProduction())

	metrics := observability.NewMetrics()
	sweepHandler := jobs.NewCredentialSweepHandler(logger, authService, credentialStore, sessionManager, metrics)
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())
	trackedSweep := func(ctx context.Context, t *asynq.Task) error {
		return jobMetrics.Track(jobs.TaskTypeCredentialSweep).End(sweepHandler(ctx, t))
	}

	metricsSrv := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: metrics.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown", slog.Any("error", err))
		}
	}()

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeCredentialSweep, Handler: trackedSweep},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "@every " + cfg.SweepInterval.String(), Task: jobs.NewCredentialSweepTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
