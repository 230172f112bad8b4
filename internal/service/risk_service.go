package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/infinityai/tradebot/internal/domain"
)

// RiskService owns the mutable risk limits and the daily-loss counter, and
// gate-keeps every order before it reaches a broker. All limit mutation goes
// through UpdateLimits; all reads return copies.
type RiskService struct {
	mu        sync.Mutex
	limits    domain.RiskLimits
	dailyLoss float64 // accumulated losses for lossDay, stored positive
	lossDay   string  // calendar day (YYYY-MM-DD) the counter belongs to

	marketTZ *time.Location
	now      func() time.Time

	bus    domain.EventBus   // optional
	audit  domain.AuditStore // optional
	logger *slog.Logger
}

// NewRiskService creates a RiskService seeded with the given limits. The
// market-hours window is evaluated in marketTZ; a nil location falls back to
// the process-local zone, which matches the original behavior.
func NewRiskService(limits domain.RiskLimits, marketTZ *time.Location, logger *slog.Logger) *RiskService {
	if marketTZ == nil {
		marketTZ = time.Local
	}
	return &RiskService{
		limits:   limits,
		marketTZ: marketTZ,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "risk_service")),
	}
}

// WithEventBus attaches an event bus so limit updates are announced to
// subscribers. Optional.
func (s *RiskService) WithEventBus(bus domain.EventBus) *RiskService {
	s.bus = bus
	return s
}

// WithAuditStore attaches an audit store so limit updates leave a trail.
// Optional.
func (s *RiskService) WithAuditStore(audit domain.AuditStore) *RiskService {
	s.audit = audit
	return s
}

// WithClock overrides the time source. Used by tests to pin the market-hours
// window and the daily-loss day boundary.
func (s *RiskService) WithClock(now func() time.Time) *RiskService {
	s.now = now
	return s
}

// ValidateOrder runs the pre-trade checks in a fixed sequence and returns the
// first failure wrapped over domain.ErrInvalidOrder. The sequence is part of
// the contract: notional, symbol allow-list, market hours, daily loss,
// quantity, price, side.
//
// Notional is price times quantity, so a market order (price 0) passes the
// notional check regardless of quantity; limit enforcement for market orders
// happens at the broker.
func (s *RiskService) ValidateOrder(order domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetDailyLossLocked()

	if notional := order.Notional(); notional > s.limits.MaxOrderValue {
		return fmt.Errorf("%w: order value %.2f exceeds limit %.2f",
			domain.ErrInvalidOrder, notional, s.limits.MaxOrderValue)
	}

	if !s.limits.SymbolAllowed(order.Symbol) {
		return fmt.Errorf("%w: symbol %s not in allowed list", domain.ErrInvalidOrder, order.Symbol)
	}

	if s.limits.MarketHoursOnly && order.Broker == domain.BrokerDhan {
		if !withinMarketHours(s.now().In(s.marketTZ)) {
			return fmt.Errorf("%w: market closed (trading hours 09:15-15:00 Mon-Fri)", domain.ErrInvalidOrder)
		}
	}

	if s.dailyLoss >= s.limits.MaxDailyLoss {
		return fmt.Errorf("%w: daily loss limit reached (%.2f/%.2f)",
			domain.ErrInvalidOrder, s.dailyLoss, s.limits.MaxDailyLoss)
	}

	if order.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidOrder)
	}

	if order.Price < 0 {
		return fmt.Errorf("%w: price must be positive", domain.ErrInvalidOrder)
	}

	if order.Side != domain.OrderSideBuy && order.Side != domain.OrderSideSell {
		return fmt.Errorf("%w: side must be buy or sell, got %q", domain.ErrInvalidOrder, order.Side)
	}

	return nil
}

// withinMarketHours reports whether t falls inside the NSE cash session,
// Mon-Fri [09:15, 15:00). The upper bound is the hour >= 15 cutoff.
func withinMarketHours(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	hour, minute := t.Hour(), t.Minute()
	if hour < 9 || (hour == 9 && minute < 15) {
		return false
	}
	return hour < 15
}

// Limits returns a copy of the current risk limits.
func (s *RiskService) Limits() domain.RiskLimits {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.limits
	out.AllowedSymbols = append([]string(nil), s.limits.AllowedSymbols...)
	return out
}

// UpdateLimits shallow-merges the patch into the current limits and returns
// the merged result. This is the single mutation entry point; there is
// intentionally no field-level validation on the incoming values.
func (s *RiskService) UpdateLimits(ctx context.Context, patch domain.RiskLimitsPatch) domain.RiskLimits {
	s.mu.Lock()
	s.limits.Apply(patch)
	merged := s.limits
	merged.AllowedSymbols = append([]string(nil), s.limits.AllowedSymbols...)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "risk limits updated",
		slog.Float64("max_order_value", merged.MaxOrderValue),
		slog.Float64("max_daily_loss", merged.MaxDailyLoss),
		slog.Int("allowed_symbols", len(merged.AllowedSymbols)),
		slog.Bool("market_hours_only", merged.MarketHoursOnly),
	)

	if s.audit != nil {
		if err := s.audit.Log(ctx, "risk_limits_updated", map[string]any{
			"max_order_value":   merged.MaxOrderValue,
			"max_daily_loss":    merged.MaxDailyLoss,
			"allowed_symbols":   merged.AllowedSymbols,
			"market_hours_only": merged.MarketHoursOnly,
		}); err != nil {
			s.logger.WarnContext(ctx, "audit log failed", slog.String("error", err.Error()))
		}
	}
	if s.bus != nil {
		evt, _ := json.Marshal(map[string]any{
			"event":           "risk_limits_updated",
			"max_order_value": merged.MaxOrderValue,
			"max_daily_loss":  merged.MaxDailyLoss,
		})
		if err := s.bus.Publish(ctx, "status", evt); err != nil {
			s.logger.WarnContext(ctx, "publish failed", slog.String("error", err.Error()))
		}
	}

	return merged
}

// RecordPnL feeds a realized profit-and-loss figure into the daily-loss
// counter. Profits do not offset accumulated losses; only losses count toward
// the MaxDailyLoss cutoff.
func (s *RiskService) RecordPnL(pnl float64) {
	if pnl >= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetDailyLossLocked()
	s.dailyLoss += -pnl
}

// DailyLoss returns the loss accumulated so far today.
func (s *RiskService) DailyLoss() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetDailyLossLocked()
	return s.dailyLoss
}

// resetDailyLossLocked zeroes the counter when the calendar date has rolled
// over since it was last touched. Caller must hold s.mu.
func (s *RiskService) resetDailyLossLocked() {
	day := s.now().In(s.marketTZ).Format("2006-01-02")
	if day != s.lossDay {
		s.lossDay = day
		s.dailyLoss = 0
	}
}
