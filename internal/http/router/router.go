package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dashkit/admin-dashboard/internal/health"
	"github.com/dashkit/admin-dashboard/internal/http/handler"
	"github.com/dashkit/admin-dashboard/internal/http/middleware"
	"github.com/dashkit/admin-dashboard/internal/http/response"
	"github.com/dashkit/admin-dashboard/internal/service"
)

type Dependencies struct {
	AuthHandler       *handler.AuthHandler
	TodoHandler       *handler.TodoHandler
	OnboardingHandler *handler.OnboardingHandler
	Verifier          service.SessionVerifier
	Logger            *slog.Logger
	LoginRateLimitRPM int
	APIRateLimitRPM   int
	GlobalRateLimiter func(http.Handler) http.Handler
	LoginRateLimiter  func(http.Handler) http.Handler
	Readiness         *health.ProbeRunner
	EnableOTelHTTP    bool
}

func NewRouter(dep Dependencies) http.Handler {
	logger := dep.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recover(logger))
	r.Use(middleware.StructuredRequestLogger(logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.BodyLimit(1 << 20))
	if dep.GlobalRateLimiter != nil {
		r.Use(dep.GlobalRateLimiter)
	} else {
		r.Use(middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute, "api").Middleware())
	}
	loginLimiter := dep.LoginRateLimiter
	if loginLimiter == nil {
		loginLimiter = middleware.NewRateLimiter(dep.LoginRateLimitRPM, time.Minute, "login").Middleware()
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, response.CodeUnready, "dependencies are not ready", map[string]any{"checks": results})
	})

	r.With(loginLimiter).Post("/login", dep.AuthHandler.Login)
	r.Get("/verify-token", dep.AuthHandler.VerifyToken)
	r.Get("/onboarding", dep.OnboardingHandler.Status)
	r.Put("/onboarding", dep.OnboardingHandler.Complete)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(dep.Verifier, logger))
		r.Post("/logout", dep.AuthHandler.Logout)
		r.Post("/logout/all", dep.AuthHandler.LogoutAll)
		r.Route("/page/todo", func(r chi.Router) {
			r.Post("/reorder", dep.TodoHandler.Reorder)
			r.Get("/{name}", dep.TodoHandler.Get)
			r.Put("/{name}", dep.TodoHandler.Append)
			r.Patch("/{name}", dep.TodoHandler.Toggle)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
