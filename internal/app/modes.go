package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/infinityai/tradebot/internal/server"
	"github.com/infinityai/tradebot/internal/server/handler"
	"github.com/infinityai/tradebot/internal/server/ws"
)

// ServeMode runs only the HTTP + WebSocket API. Trading goroutines are not
// started; orders and tracker operations happen on demand through the API.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return waitGroup(g)
}

// TradeMode runs the tracker monitor loop and the signal runner alongside
// the API (when enabled). This is the mode where the bot actually trades.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Tracker.Run(ctx)
	})
	g.Go(func() error {
		return deps.Runner.Run(ctx)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}
	return waitGroup(g)
}

// ArchiveMode runs the cold-storage archival job on a fixed interval, plus
// the API (when enabled) so archived files can be listed.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode")

	if deps.Archiver == nil {
		return fmt.Errorf("archive mode: archiver not wired (postgres and s3 required)")
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.runArchiveJob(ctx, deps)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}
	return waitGroup(g)
}

// FullMode runs everything: tracker, signal runner, archival (when wired),
// and the API.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Tracker.Run(ctx)
	})
	g.Go(func() error {
		return deps.Runner.Run(ctx)
	})
	if deps.Archiver != nil {
		g.Go(func() error {
			return a.runArchiveJob(ctx, deps)
		})
	}

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}
	return waitGroup(g)
}

// startHTTPServer builds the handler set, the optional WebSocket hub, and the
// HTTP server, then registers their goroutines on the group. The hub needs
// the Redis event bus; without it the /ws route stays unregistered.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	startedAt := time.Now().UTC()

	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(a.logger),
		Orders:    handler.NewOrderHandler(deps.Orders, a.logger),
		Portfolio: handler.NewPortfolioHandler(deps.Portfolios, a.logger),
		Risk:      handler.NewRiskHandler(deps.Risk, a.logger),
		Tracker:   handler.NewTrackerHandler(deps.Tracker, a.logger),
		Signals:   handler.NewSignalHandler(deps.Runner, deps.SignalCache, a.logger),
		Status:    handler.NewStatusHandler(a.cfg.Mode, startedAt, deps.Registry, deps.Tracker, deps.Runner, a.logger),
	}
	if deps.BlobReader != nil {
		handlers.Archives = handler.NewArchiveHandler(deps.BlobReader, a.logger)
	}

	var hub *ws.Hub
	if deps.EventBus != nil {
		hub = ws.NewHub(deps.EventBus, deps.Orders, deps.Tracker, deps.Runner, ws.Config{
			Mode:      a.cfg.Mode,
			StartedAt: startedAt,
		}, a.logger)
		g.Go(func() error {
			return hub.Run(ctx)
		})
	} else {
		a.logger.InfoContext(ctx, "event bus not wired, websocket endpoint disabled")
	}

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKey:          a.cfg.Server.ApiKey,
		RateLimit:       a.cfg.Server.RateLimit,
		RateLimitWindow: a.cfg.Server.RateLimitWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// runArchiveJob ticks on the configured interval and exports records older
// than the retention window to cold storage. The first run happens
// immediately on startup.
func (a *App) runArchiveJob(ctx context.Context, deps *Dependencies) error {
	interval := a.cfg.Archive.Interval.Duration
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	a.archiveOnce(ctx, deps)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.archiveOnce(ctx, deps)
		}
	}
}

// archiveOnce exports one batch of aged records. Failures are logged and the
// next tick retries; a partial failure does not abort the other exports.
func (a *App) archiveOnce(ctx context.Context, deps *Dependencies) {
	cutoff := time.Now().UTC().AddDate(0, 0, -a.cfg.Archive.RetentionDays)

	positions, err := deps.Archiver.ArchiveClosedPositions(ctx, cutoff)
	if err != nil {
		a.logger.ErrorContext(ctx, "archive closed positions failed", slog.String("error", err.Error()))
	}
	orders, err := deps.Archiver.ArchiveOrderLog(ctx, cutoff)
	if err != nil {
		a.logger.ErrorContext(ctx, "archive order log failed", slog.String("error", err.Error()))
	}
	audit, err := deps.Archiver.ArchiveAudit(ctx, cutoff)
	if err != nil {
		a.logger.ErrorContext(ctx, "archive audit log failed", slog.String("error", err.Error()))
	}

	a.logger.InfoContext(ctx, "archive pass complete",
		slog.Time("cutoff", cutoff),
		slog.Int64("positions", positions),
		slog.Int64("orders", orders),
		slog.Int64("audit_entries", audit),
	)
}

// waitGroup waits for all group goroutines and treats context cancellation
// as a clean shutdown.
func waitGroup(g *errgroup.Group) error {
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
