package di

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/dashkit/admin-dashboard/internal/app"
	"github.com/dashkit/admin-dashboard/internal/config"
	"github.com/dashkit/admin-dashboard/internal/database"
	"github.com/dashkit/admin-dashboard/internal/health"
	"github.com/dashkit/admin-dashboard/internal/http/handler"
	"github.com/dashkit/admin-dashboard/internal/http/middleware"
	"github.com/dashkit/admin-dashboard/internal/http/router"
	"github.com/dashkit/admin-dashboard/internal/observability"
	"github.com/dashkit/admin-dashboard/internal/repository"
	"github.com/dashkit/admin-dashboard/internal/security"
	"github.com/dashkit/admin-dashboard/internal/service"

	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func provideDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg)
}

func provideRedis(cfg *config.Config) *redis.Client {
	return database.NewRedisClient(cfg)
}

func provideSessionStore(client *redis.Client, cfg *config.Config) repository.SessionStore {
	return repository.NewRedisSessionStore(client, cfg.SessionKeyPrefix)
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.SecretToken)
}

func provideTokenService(jwtMgr *security.JWTManager, store repository.SessionStore, cfg *config.Config) *service.TokenService {
	return service.NewTokenService(jwtMgr, store, cfg.SessionTTL)
}

func provideAuthHandler(auth service.AuthServiceInterface, logger *slog.Logger, cfg *config.Config) *handler.AuthHandler {
	return handler.NewAuthHandler(auth, logger, cfg.IsProduction())
}

func provideReadiness(db *gorm.DB, client *redis.Client) *health.ProbeRunner {
	return health.NewProbeRunner(2*time.Second, health.NewDBChecker(db), health.NewRedisChecker(client))
}

func provideRouterDependencies(
	cfg *config.Config,
	logger *slog.Logger,
	authHandler *handler.AuthHandler,
	todoHandler *handler.TodoHandler,
	onboardingHandler *handler.OnboardingHandler,
	verifier service.SessionVerifier,
	readiness *health.ProbeRunner,
	client *redis.Client,
) router.Dependencies {
	return router.Dependencies{
		AuthHandler:       authHandler,
		TodoHandler:       todoHandler,
		OnboardingHandler: onboardingHandler,
		Verifier:          verifier,
		Logger:            logger,
		LoginRateLimitRPM: cfg.LoginRateLimitRPM,
		APIRateLimitRPM:   cfg.APIRateLimitRPM,
		GlobalRateLimiter: middleware.NewDistributedRateLimiter(
			middleware.NewRedisLimiter(client, cfg.SessionKeyPrefix+":ratelimit"),
			cfg.APIRateLimitRPM,
			time.Minute,
			middleware.FailOpen,
			"api",
		).Middleware(),
		Readiness:      readiness,
		EnableOTelHTTP: cfg.OTELTracingEnabled || cfg.OTELMetricsEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, dep router.Dependencies) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.NewRouter(dep),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func provideObservability(ctx context.Context, cfg *config.Config, logger *slog.Logger, lp *sdklog.LoggerProvider) (*observability.Runtime, error) {
	return observability.InitRuntime(ctx, cfg, logger, lp)
}

func provideApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	client *redis.Client,
) (*app.App, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	return app.New(cfg, logger, server, runtime, sqlDB.Close, client.Close), nil
}
