package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/app"
	jobmetrics "github.com/FreezerDie/GameKeyStoreBackEnd/internal/jobs"
	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/platform/cache"
	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/platform/db"
	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/rbac"
	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/roles"
	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/users"
	"github.com/FreezerDie/GameKeyStoreBackEnd/jobs"
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
		logger.Error("connect database", slog.Any("error", err))
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

	permCache := rbac.NewCache(redisClient, cfg.RBACCacheTTL, cfg.RBACNegativeTTL)
	grantStore := rbac.NewGrantStore(pool, permCache, logger)
	rolesRepo := roles.NewRepository(pool)
	usersRepo := users.NewRepository(pool)
	resolver := rbac.NewResolver(grantStore, usersRepo, permCache, logger)

	warmJob := jobs.NewRBACWarmJob(rolesRepo, resolver, logger, jobmetrics.NewMetrics(nil))
	warmTask, err := jobs.NewRBACWarmTask(jobs.RBACWarmPayload{})
	if err != nil {
		logger.Error("build warm task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskRBACWarm, Handler: warmJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.RBACWarmCron, Task: warmTask, Options: []asynq.Option{asynq.MaxRetry(2)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
