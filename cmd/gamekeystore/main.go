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

	"golang.org/x/sync/errgroup"

	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/app"
	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/auth"
	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/observability"
	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/platform/cache"
	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/platform/db"
	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/rbac"
	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/roles"
	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/users"
	migrations "github.com/FreezerDie/GameKeyStoreBackEnd/migrations/postgres"
)

// roleCreator adapts the roles repository to the rbac template registry.
type roleCreator struct {
	repo *roles.Repository
}

func (rc roleCreator) CreateRole(ctx context.Context, name, description string) (rbac.Role, error) {
	role, err := rc.repo.CreateRole(ctx, name, description)
	if err != nil {
		return rbac.Role{}, err
	}
	return rbac.Role{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}, nil
}

func main() {
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

	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, pool, migrations.Files, logger); err != nil {
			logger.Error("apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// The resolver degrades to uncached resolution; startup proceeds.
		logger.Warn("redis unavailable, permission cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	metrics := observability.NewMetrics()

	permCache := rbac.NewCache(redisClient, cfg.RBACCacheTTL, cfg.RBACNegativeTTL)
	grantStore := rbac.NewGrantStore(pool, permCache, logger)

	rolesRepo := roles.NewRepository(pool)
	usersRepo := users.NewRepository(pool)

	resolver := rbac.NewResolver(grantStore, usersRepo, permCache, logger)
	registry := rbac.NewRegistry(roleCreator{repo: rolesRepo}, grantStore, logger)
	gate := rbac.Gate{Resolver: resolver, Logger: logger, Metrics: metrics}

	verifier := auth.NewHMACVerifier(cfg.JWTSecret, cfg.JWTIssuer)

	rolesService := roles.NewService(rolesRepo)
	usersService := users.NewService(usersRepo, resolver, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		Verifier:     verifier,
		Gate:         gate,
		RBACHandler:  rbac.NewHandler(logger, grantStore, registry, resolver),
		RolesHandler: roles.NewHandler(logger, rolesService),
		UsersHandler: users.NewHandler(logger, usersService),
		Metrics:      metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
