//go:build wireinject
// +build wireinject

package di

import (
	"context"
	"log/slog"

	"github.com/google/wire"

	"github.com/dashkit/admin-dashboard/internal/app"
	"github.com/dashkit/admin-dashboard/internal/config"
	"github.com/dashkit/admin-dashboard/internal/http/handler"
	"github.com/dashkit/admin-dashboard/internal/repository"
	"github.com/dashkit/admin-dashboard/internal/service"

	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func InitializeApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, lp *sdklog.LoggerProvider) (*app.App, error) {
	wire.Build(
		provideDB,
		provideRedis,
		provideSessionStore,
		provideJWTManager,
		provideTokenService,
		repository.NewUserRepository,
		repository.NewTodoRepository,
		repository.NewOnboardingRepository,
		service.NewAuthService,
		wire.Bind(new(service.AuthServiceInterface), new(*service.AuthService)),
		wire.Bind(new(service.SessionVerifier), new(*service.AuthService)),
		service.NewTodoService,
		service.NewOnboardingService,
		provideAuthHandler,
		handler.NewTodoHandler,
		handler.NewOnboardingHandler,
		provideReadiness,
		provideRouterDependencies,
		provideHTTPServer,
		provideObservability,
		provideApp,
	)
	return nil, nil
}
