package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/sekolahku/portal/internal/api/http"
	"github.com/sekolahku/portal/internal/api/http/handlers"
	"github.com/sekolahku/portal/internal/auth"
	"github.com/sekolahku/portal/internal/config"
	"github.com/sekolahku/portal/internal/events"
	"github.com/sekolahku/portal/internal/observability"
	"github.com/sekolahku/portal/internal/persistence"
	"github.com/sekolahku/portal/internal/ratelimit"
	"github.com/sekolahku/portal/internal/repository"
	"github.com/sekolahku/portal/internal/service"
	"github.com/sekolahku/portal/internal/worker"
	"github.com/sekolahku/portal/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.IsProduction())
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Auth.WeakSecret() {
		logger.Warn("AUTH_JWT_SECRET is shorter than 32 bytes; use a longer secret")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	pool := pg.PoolHandle()
	if pool == nil {
		logger.Fatal("POSTGRES_DSN is required")
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var redis *persistence.Redis
	var store ratelimit.Store
	switch cfg.RateLimit.Backend {
	case "redis":
		redis = persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		store = ratelimit.NewRedisStore(redis.Client, "")
	default:
		store = ratelimit.NewMemoryStore(cfg.RateLimit.CleanupInterval())
	}
	loginLimiter := ratelimit.New(store, "login", ratelimit.Policy{
		Limit:  cfg.RateLimit.LoginMaxAttempts,
		Window: cfg.RateLimit.LoginWindow(),
	})
	defer func() {
		if err := loginLimiter.Close(); err != nil {
			logger.Warn("close login limiter", zap.Error(err))
		}
	}()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	audit := service.NewSecurityAuditService(dispatcher, metrics, logger)
	worker.StartAuditWorker(audit)

	userRepo := repository.NewUserRepository(pool)
	studentRepo := repository.NewStudentRepository(pool)
	attemptRepo := repository.NewLoginAttemptRepository(pool)

	accessService := service.NewAccessService(studentRepo, dispatcher, logger)
	userService := service.NewUserService(userRepo, studentRepo, cfg.Auth.BcryptCost, logger)
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:         userRepo,
		LoginAttemptRepo: attemptRepo,
		Limiter:          loginLimiter,
		Dispatcher:       dispatcher,
		Metrics:          metrics,
		Logger:           logger,
	})

	cookie := auth.NewCookieOptions(cfg.App.IsProduction(), cfg.Auth.SessionMaxAge())
	guard := auth.NewGuard(auth.GuardConfig{
		Tokens:                authService.TokenManager(),
		Routes:                auth.MustRouteTable(auth.DefaultRoutes()),
		Cookie:                cookie,
		MaxAge:                cfg.Auth.SessionMaxAge(),
		AllowLoopbackMismatch: cfg.Auth.AllowLoopbackMismatch,
		Observer:              audit,
		Logger:                logger,
	})

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		CaseSensitive:         true,
		DisableStartupMessage: cfg.App.IsProduction(),
	})
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:     logger,
		Metrics:    metrics,
		Timeout:    cfg.App.RequestTimeout(),
		Production: cfg.App.IsProduction(),
		Security:   cfg.Security,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Auth:           handlers.NewAuthHandler(authService, accessService, cookie),
		Pages:          handlers.NewPagesHandler(),
		Admin:          handlers.NewAdminHandler(userService),
		Guard:          guard,
		Access:         accessService,
		APIMaxRequests: cfg.RateLimit.APIMaxRequests,
		APIWindow:      cfg.RateLimit.APIWindow(),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("fiber shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
