package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/courierdash/courierdash/internal/app"
	"github.com/courierdash/courierdash/internal/auth"
	"github.com/courierdash/courierdash/internal/authz"
	"github.com/courierdash/courierdash/internal/guard"
	"github.com/courierdash/courierdash/internal/home"
	"github.com/courierdash/courierdash/internal/observability"
	"github.com/courierdash/courierdash/internal/orders"
	"github.com/courierdash/courierdash/internal/platform/cache"
	"github.com/courierdash/courierdash/internal/platform/db"
	"github.com/courierdash/courierdash/internal/riders"
	"github.com/courierdash/courierdash/internal/session"
	"github.com/courierdash/courierdash/internal/settings"
	"github.com/courierdash/courierdash/internal/shared"
	"github.com/courierdash/courierdash/internal/upstream"
	"github.com/courierdash/courierdash/internal/users"
	"github.com/courierdash/courierdash/internal/view"
	"github.com/courierdash/courierdash/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, "courierdash_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	credentialStore := session.NewRedisCredentialStore(redisClient)
	scheduler := session.NewScheduler()
	routeGuard := guard.New(logger, credentialStore, scheduler, sessionManager, metrics, nil)
	authzMiddleware := authz.Middleware{Logger: logger}

	apiClient := upstream.NewClient(cfg.UpstreamURL)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, shared.NewAuditLogger(dbpool))
	authHandler := auth.NewHandler(logger, apiClient, authService, templates, sessionManager, csrfManager, credentialStore, routeGuard)

	homeHandler := home.NewHandler(logger, templates, csrfManager)
	ordersHandler := orders.NewHandler(logger, apiClient, templates, csrfManager, credentialStore, routeGuard)
	usersHandler := users.NewHandler(logger, apiClient, templates, csrfManager, credentialStore, routeGuard)
	ridersHandler := riders.NewHandler(logger, apiClient, templates, csrfManager, credentialStore, routeGuard)
	settingsHandler := settings.NewHandler(logger, apiClient, templates, csrfManager, credentialStore, routeGuard)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		Guard:           routeGuard,
		AuthzMiddleware: authzMiddleware,
		AuthHandler:     authHandler,
		HomeHandler:     homeHandler,
		OrdersHandler:   ordersHandler,
		UsersHandler:    usersHandler,
		RidersHandler:   ridersHandler,
		SettingsHandler: settingsHandler,
		JobsHandler:     jobsHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
