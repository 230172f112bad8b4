package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/infinityai/tradebot/internal/broker"
	"github.com/infinityai/tradebot/internal/domain"
)

// PortfolioService assembles per-broker portfolio views from live adapter
// calls. Summaries are recomputed on every request and never cached; the only
// caching is a best-effort write-through of observed prices into the quote
// cache for dashboard reads.
type PortfolioService struct {
	registry *broker.Registry
	quotes   domain.QuoteCache // optional
	now      func() time.Time
	logger   *slog.Logger
}

// NewPortfolioService creates a PortfolioService over the adapter registry.
func NewPortfolioService(registry *broker.Registry, logger *slog.Logger) *PortfolioService {
	return &PortfolioService{
		registry: registry,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "portfolio_service")),
	}
}

// WithQuoteCache attaches a quote cache for price write-through. Optional.
func (s *PortfolioService) WithQuoteCache(quotes domain.QuoteCache) *PortfolioService {
	s.quotes = quotes
	return s
}

// WithClock overrides the time source for tests.
func (s *PortfolioService) WithClock(now func() time.Time) *PortfolioService {
	s.now = now
	return s
}

// Portfolio builds the summary for one broker. The adapter decides what a
// position is: Dhan concatenates intraday positions and demat holdings,
// CoinSwitch reports free+locked balances per asset.
func (s *PortfolioService) Portfolio(ctx context.Context, name domain.BrokerName) (domain.PortfolioSummary, error) {
	adapter, err := s.registry.Get(name)
	if err != nil {
		return domain.PortfolioSummary{}, err
	}

	positions, err := adapter.Portfolio(ctx)
	if err != nil {
		return domain.PortfolioSummary{}, err
	}

	now := s.now().UTC()
	if s.quotes != nil {
		for _, p := range positions {
			if p.CurrentPrice <= 0 {
				continue
			}
			if cacheErr := s.quotes.SetQuote(ctx, name, p.Symbol, p.CurrentPrice, now); cacheErr != nil {
				s.logger.WarnContext(ctx, "quote cache write failed",
					slog.String("symbol", p.Symbol),
					slog.String("error", cacheErr.Error()),
				)
				break
			}
		}
	}

	return domain.Summarize(name, positions, now), nil
}

// Combined returns one summary per configured broker. A broker whose adapter
// call fails is logged and omitted from the result; the caller always gets
// whatever subset succeeded, never an error.
func (s *PortfolioService) Combined(ctx context.Context) []domain.PortfolioSummary {
	summaries := make([]domain.PortfolioSummary, 0, s.registry.Len())
	for _, name := range s.registry.Names() {
		summary, err := s.Portfolio(ctx, name)
		if err != nil {
			s.logger.WarnContext(ctx, "portfolio fetch failed, omitting broker",
				slog.String("broker", string(name)),
				slog.String("error", err.Error()),
			)
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries
}
