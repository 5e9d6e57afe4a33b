package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vaultwatch/vaultwatch/internal/server"
	"github.com/vaultwatch/vaultwatch/internal/server/handler"
)

// shutdownGrace bounds how long the HTTP server waits for in-flight requests
// after the run context is cancelled.
const shutdownGrace = 10 * time.Second

// LiveMode runs the full monitor against the exchange: the streaming engine
// and websocket feed (when enabled), the batch collector, the alert cycle,
// and the HTTP server.
func (a *App) LiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting live mode",
		slog.Bool("streaming", deps.Engine != nil),
	)

	g, ctx := errgroup.WithContext(ctx)

	if deps.Engine != nil {
		g.Go(func() error {
			return deps.Engine.Run(ctx)
		})
		g.Go(func() error {
			defer deps.Feed.Close()
			return deps.Feed.Run(ctx)
		})
	}

	g.Go(func() error {
		return deps.Collector.Run(ctx)
	})
	g.Go(func() error {
		return deps.Collector.RunAlerts(ctx)
	})

	a.startHTTPServer(ctx, g, deps)

	return g.Wait()
}

// DemoMode runs the monitor against the synthetic provider: batch collector,
// alert cycle, and HTTP server, with no exchange connectivity.
func (a *App) DemoMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting demo mode")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Collector.Run(ctx)
	})
	g.Go(func() error {
		return deps.Collector.RunAlerts(ctx)
	})

	a.startHTTPServer(ctx, g, deps)

	return g.Wait()
}

// startHTTPServer adds the HTTP server goroutines to the given errgroup when
// the server is enabled: one serving requests, one waiting on ctx to trigger
// a graceful shutdown.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if !a.cfg.Server.Enabled {
		return
	}

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(deps.Store, time.Now()),
		Alerts: handler.NewAlertsHandler(deps.AlertLog),
	}
	if deps.Engine != nil {
		handlers.Metrics = handler.NewMetricsHandler(deps.Store, deps.Engine)
	} else {
		handlers.Metrics = handler.NewMetricsHandler(deps.Store, nil)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}, handlers, a.logger)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("http server shutdown failed", slog.String("error", err.Error()))
		}
		return ctx.Err()
	})
}
