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

	"github.com/infinity-labs/dominion/cmd/dominion/cli"
	"github.com/infinity-labs/dominion/internal/app"
	"github.com/infinity-labs/dominion/internal/authz"
	"github.com/infinity-labs/dominion/internal/directory"
	"github.com/infinity-labs/dominion/internal/grants"
	"github.com/infinity-labs/dominion/internal/observability"
	"github.com/infinity-labs/dominion/internal/platform/cache"
	"github.com/infinity-labs/dominion/internal/platform/db"
	"github.com/infinity-labs/dominion/internal/sync"
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

	if len(os.Args) > 1 && os.Args[1] == "sync" {
		os.Exit(runSync(ctx, cfg, logger, os.Args[2:]))
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	var store authz.CacheStore
	if cfg.CacheStore == "redis" {
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
		store = authz.NewRedisStore(redisClient, cfg.CachePrefix)
	} else {
		store = authz.NewMemoryStore()
	}

	decisions := authz.NewDecisionCache(store, authz.CacheConfig{
		Enabled: cfg.CacheEnabled,
		TTL:     cfg.CacheTTL,
		Prefix:  cfg.CachePrefix,
	})

	metrics := observability.NewMetrics()

	engine, err := authz.NewEngine(authz.EngineConfig{
		Store:   grants.NewRepository(pool),
		Cache:   decisions,
		Tenants: authz.ContextTenant{},
		Metrics: metrics,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("init engine", slog.Any("error", err))
		os.Exit(1)
	}

	directoryRepo := directory.NewRepository(pool)
	directoryService := directory.NewService(directoryRepo, decisions, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AuthzHandler:     authz.NewHandler(logger, engine),
		DirectoryHandler: directory.NewHandler(logger, directoryService),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", slog.Any("error", err))
		}
	}()

	logger.Info("server listening", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server run", slog.Any("error", err))
		os.Exit(1)
	}
}

func runSync(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	opts, err := cli.ParseSyncOptions(args)
	if err != nil {
		return 2
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return 1
	}
	defer pool.Close()

	reconciler := sync.NewReconciler(directory.NewRepository(pool), nil, nil, logger)
	return cli.NewSyncCLI(reconciler).SyncCommand(ctx, opts)
}
