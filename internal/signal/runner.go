package signal

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/infinityai/tradebot/internal/domain"
	"github.com/infinityai/tradebot/internal/service"
)

// RunnerConfig holds the periodic signal generation parameters.
type RunnerConfig struct {
	Symbol        string
	Broker        domain.BrokerName
	Interval      time.Duration
	AutoExecute   bool
	FallbackPrice float64
}

// Runner generates a signal for the configured symbol on a fixed interval,
// publishes it, and, when auto-execute is on, hands it to the tracker. The
// auto-execute flag can be toggled at runtime from the REST API and the
// WebSocket command channel.
type Runner struct {
	cfg     RunnerConfig
	gen     *Generator
	tracker *service.TrackerService
	orders  *service.OrderService

	quotes   domain.QuoteCache  // optional
	sigCache domain.SignalCache // optional
	bus      domain.EventBus    // optional

	auto   atomic.Bool
	logger *slog.Logger
}

// NewRunner creates a Runner. The order service supplies live quotes; the
// tracker receives qualifying signals when auto-execute is enabled.
func NewRunner(cfg RunnerConfig, gen *Generator, tracker *service.TrackerService, orders *service.OrderService, logger *slog.Logger) *Runner {
	r := &Runner{
		cfg:     cfg,
		gen:     gen,
		tracker: tracker,
		orders:  orders,
		logger:  logger.With(slog.String("component", "signal_runner")),
	}
	r.auto.Store(cfg.AutoExecute)
	return r
}

// WithCaches attaches the quote cache (read for the latest price) and the
// signal cache (recent-signal log). Optional.
func (r *Runner) WithCaches(quotes domain.QuoteCache, signals domain.SignalCache) *Runner {
	r.quotes = quotes
	r.sigCache = signals
	return r
}

// WithEventBus attaches an event bus so generated signals reach WebSocket
// subscribers. Optional.
func (r *Runner) WithEventBus(bus domain.EventBus) *Runner {
	r.bus = bus
	return r
}

// SetAutoExecute toggles whether qualifying signals open positions.
func (r *Runner) SetAutoExecute(on bool) {
	r.auto.Store(on)
	r.logger.Info("auto-execute toggled", slog.Bool("enabled", on))
}

// AutoExecute reports the current auto-execute setting.
func (r *Runner) AutoExecute() bool {
	return r.auto.Load()
}

// Run generates signals on the configured interval until the context is
// cancelled.
func (r *Runner) Run(ctx context.Context) error {
	interval := r.cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	r.logger.InfoContext(ctx, "signal runner starting",
		slog.String("symbol", r.cfg.Symbol),
		slog.Duration("interval", interval),
		slog.Bool("auto_execute", r.auto.Load()),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// Tick runs a single generate-publish-execute cycle and returns the signal.
// Exposed so the REST handler can trigger one on demand with a caller-chosen
// price.
func (r *Runner) Tick(ctx context.Context, price float64) domain.TradeSignal {
	if price <= 0 {
		price = r.latestPrice(ctx)
	}
	sig := r.gen.Generate(r.cfg.Symbol, price)
	r.record(ctx, sig)

	if r.auto.Load() {
		if pos, err := r.tracker.ExecuteSpreadTrade(ctx, sig); err != nil {
			r.logger.ErrorContext(ctx, "auto-execute failed",
				slog.String("signal_id", sig.ID),
				slog.String("error", err.Error()),
			)
		} else if pos != nil {
			r.logger.InfoContext(ctx, "signal auto-executed",
				slog.String("signal_id", sig.ID),
				slog.String("position_id", pos.ID),
			)
		}
	}
	return sig
}

func (r *Runner) tick(ctx context.Context) {
	r.Tick(ctx, 0)
}

// latestPrice prefers the quote cache, then a live broker quote, then the
// configured fallback.
func (r *Runner) latestPrice(ctx context.Context) float64 {
	if r.quotes != nil {
		if price, _, err := r.quotes.GetQuote(ctx, r.cfg.Broker, r.cfg.Symbol); err == nil && price > 0 {
			return price
		}
	}
	if quote, err := r.orders.Quote(ctx, r.cfg.Broker, r.cfg.Symbol); err == nil && quote.Price > 0 {
		if r.quotes != nil {
			_ = r.quotes.SetQuote(ctx, r.cfg.Broker, r.cfg.Symbol, quote.Price, quote.Timestamp)
		}
		return quote.Price
	}
	return r.cfg.FallbackPrice
}

// record pushes the signal to the recent-signal cache and the event bus,
// both best-effort.
func (r *Runner) record(ctx context.Context, sig domain.TradeSignal) {
	if r.sigCache != nil {
		if err := r.sigCache.PushSignal(ctx, sig); err != nil {
			r.logger.WarnContext(ctx, "signal cache push failed", slog.String("error", err.Error()))
		}
	}
	if r.bus != nil {
		evt, _ := json.Marshal(map[string]any{
			"event":      "signal_generated",
			"signal_id":  sig.ID,
			"symbol":     sig.Symbol,
			"direction":  string(sig.Direction),
			"confidence": sig.Confidence,
			"price":      sig.Price,
			"reasoning":  sig.Reasoning,
		})
		if err := r.bus.Publish(ctx, "signals", evt); err != nil {
			r.logger.WarnContext(ctx, "publish failed", slog.String("error", err.Error()))
		}
	}
	r.logger.InfoContext(ctx, "signal generated",
		slog.String("signal_id", sig.ID),
		slog.String("direction", string(sig.Direction)),
		slog.Float64("confidence", sig.Confidence),
		slog.Float64("price", sig.Price),
	)
}
