package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dashkit/admin-dashboard/internal/config"
	"github.com/dashkit/admin-dashboard/internal/observability"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime

	ShutdownTimeout          time.Duration
	ShutdownHTTPDrainTimeout time.Duration

	closers []func() error
}

// New wires the process. Closers run after the HTTP server has drained, in
// reverse registration order.
func New(cfg *config.Config, logger *slog.Logger, server *http.Server, runtime *observability.Runtime, closers ...func() error) *App {
	return &App{
		Config:                   cfg,
		Logger:                   logger,
		Server:                   server,
		Observability:            runtime,
		ShutdownTimeout:          cfg.ShutdownTimeout,
		ShutdownHTTPDrainTimeout: cfg.ShutdownHTTPDrainTimeout,
		closers:                  closers,
	}
}

// Run serves until ctx is cancelled or the listener fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.Info("http server listening", "addr", a.Server.Addr, "env", a.Config.AppEnv)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.Shutdown(context.WithoutCancel(ctx))
	})
	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.ShutdownTimeout)
	defer cancel()

	var errs []error
	drainCtx, drainCancel := context.WithTimeout(ctx, a.ShutdownHTTPDrainTimeout)
	defer drainCancel()
	a.Logger.Info("draining http server")
	if err := a.Server.Shutdown(drainCtx); err != nil {
		errs = append(errs, err)
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.Observability.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		a.Logger.Error("shutdown finished with errors", "error", err.Error())
		return err
	}
	a.Logger.Info("shutdown complete")
	return nil
}
