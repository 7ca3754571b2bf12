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
	"golang.org/x/sync/errgroup"

	"github.com/hwsystem/hwsystem/internal/app"
	"github.com/hwsystem/hwsystem/internal/auth"
	"github.com/hwsystem/hwsystem/internal/classroom"
	"github.com/hwsystem/hwsystem/internal/guard"
	"github.com/hwsystem/hwsystem/internal/identity"
	"github.com/hwsystem/hwsystem/internal/platform/cache"
	"github.com/hwsystem/hwsystem/internal/platform/db"
	"github.com/hwsystem/hwsystem/internal/ratelimit"
	"github.com/hwsystem/hwsystem/internal/token"
	"github.com/hwsystem/hwsystem/internal/users"
	"github.com/hwsystem/hwsystem/jobs"
)

const classRoleCacheSize = 4096

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

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.NewRedisClient(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	tokens, err := token.NewService(token.Config{
		Secret:             []byte(cfg.JWTSecret),
		AccessTTL:          cfg.AccessTokenTTL,
		RefreshTTL:         cfg.RefreshTokenTTL,
		RefreshRememberTTL: cfg.RefreshRememberTTL,
	})
	if err != nil {
		logger.Error("init token service", slog.Any("error", err))
		os.Exit(1)
	}

	identityStore := identity.NewPGStore(pool)
	identityCache := identity.NewCache(identityStore, cache.NewRedisCache(redisClient, "hwsystem"), cfg.IdentityCacheTTL, logger)

	// Class roles churn less than identities and tolerate per-instance
	// staleness, so they stay in process.
	localCache, err := cache.NewLocalCache(classRoleCacheSize)
	if err != nil {
		logger.Error("init local cache", slog.Any("error", err))
		os.Exit(1)
	}
	membershipStore := classroom.NewPGStore(pool)
	classRoles := classroom.NewResolver(membershipStore, localCache, cfg.ClassRoleCacheTTL, logger)

	limiter := ratelimit.NewRedisLimiter(redisClient, "ratelimit")

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, tokens, identityCache, auth.BcryptVerifier{}, logger)
	authHandler := auth.NewHandler(logger, authService, cfg.IsProduction())

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, identityCache, logger)
	usersHandler := users.NewHandler(logger, usersService)

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		AuthHandler:   authHandler,
		UsersHandler:  usersHandler,
		Authenticator: guard.NewAuthenticator(tokens, identityCache, logger),
		RateLimits:    guard.NewRateLimitGuard(limiter, logger),
		ClassRoles:    guard.NewClassRoleGuard(classRoles, logger),
		Pool:          pool,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSessionsPurge, Handler: jobs.NewSessionsPurgeHandler(authRepo, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: jobs.SessionsPurgeCron, Task: jobs.NewSessionsPurgeTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		if err := worker.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("runtime", slog.Any("error", err))
		os.Exit(1)
	}
}
