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
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantfolio/quantfolio/internal/app"
	"github.com/quantfolio/quantfolio/internal/auth"
	"github.com/quantfolio/quantfolio/internal/authz"
	"github.com/quantfolio/quantfolio/internal/bots"
	"github.com/quantfolio/quantfolio/internal/observability"
	"github.com/quantfolio/quantfolio/internal/platform/cache"
	"github.com/quantfolio/quantfolio/internal/platform/db"
	"github.com/quantfolio/quantfolio/internal/shared"
	"github.com/quantfolio/quantfolio/internal/strategies"
	"github.com/quantfolio/quantfolio/jobs"
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

	// The database is optional: without it the service runs in
	// allow-list-only authorization mode.
	var pool *pgxpool.Pool
	if cfg.HasDatabase() {
		pool, err = db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
	} else {
		logger.Warn("no DATABASE_URL configured, running allow-list-only")
	}

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

	sessionManager := shared.NewSessionManager(redisClient, "quantfolio_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	metrics := observability.NewMetrics()

	var assignmentRepo authz.AssignmentRepository
	if pool != nil {
		assignmentRepo = authz.NewRepository(pool)
	}
	authzStore := authz.NewStore(cfg.AuthzConfig(), assignmentRepo)
	gate := authz.Middleware{Store: authzStore, Logger: logger}
	authzHandler := authz.NewConfigHandler(authzStore, gate)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	var authHandler *auth.Handler
	var modelsHandler *strategies.Handler
	var botsHandler *bots.Handler
	if pool != nil {
		authHandler = auth.NewHandler(logger, auth.NewService(auth.NewRepository(pool)), sessionManager, csrfManager)
		botsRepo := bots.NewRepository(pool)
		modelsService := strategies.NewService(strategies.NewRepository(pool), jobClient, botsRepo)
		modelsHandler = strategies.NewHandler(logger, modelsService, gate)
		botsHandler = bots.NewHandler(logger, bots.NewService(botsRepo), gate)
	} else {
		authHandler = auth.NewHandler(logger, auth.NewService(nil), sessionManager, csrfManager)
		modelsHandler = strategies.NewHandler(logger, nil, gate)
		botsHandler = bots.NewHandler(logger, nil, gate)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthHandler:    authHandler,
		AuthzHandler:   authzHandler,
		ModelsHandler:  modelsHandler,
		BotsHandler:    botsHandler,
		JobsHandler:    jobsHandler,
		JobsGate:       gate,
		Metrics:        metrics,
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
