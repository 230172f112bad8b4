package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/infinityai/tradebot/internal/broker"
	"github.com/infinityai/tradebot/internal/domain"
	"github.com/infinityai/tradebot/internal/notify"
)

// TrackerConfig holds the tunable parameters for the spread tracker.
type TrackerConfig struct {
	Broker              domain.BrokerName
	Symbol              string
	Capital             float64
	MaxRiskPerTrade     float64 // stop-loss threshold as a fraction of entry price
	TargetProfit        float64 // profit-target threshold as a fraction of entry price
	ConfidenceThreshold float64 // signals below this never open a position
	StrikeDistancePct   float64 // sell-strike offset as a fraction of entry price
	ExpiryDays          int
	FallbackPrice       float64 // used when a monitoring pass cannot fetch a quote
	MonitorInterval     time.Duration
	PaperMode           bool // simulate the opening order instead of sending it
}

// TrackerService runs the lifecycle of a simulated options-spread position:
// open on a qualifying signal, monitor against stop-loss, profit-target and
// expiry thresholds, and close exactly once. It enforces a single active
// position at a time; the check and the insert share one critical section so
// two concurrent signals cannot both open.
//
// Closed positions move to an in-memory append-only log (and best-effort into
// the closed-position store) so cumulative statistics survive the close.
type TrackerService struct {
	mu     sync.Mutex
	active *domain.SpreadPosition
	closed []domain.SpreadPosition

	cfg      TrackerConfig
	registry *broker.Registry
	risk     *RiskService

	closedStore domain.ClosedPositionStore // optional
	bus         domain.EventBus            // optional
	audit       domain.AuditStore          // optional
	notifier    *notify.Notifier           // optional

	now    func() time.Time
	logger *slog.Logger
}

// NewTrackerService creates a TrackerService. Zero-valued config fields get
// the standard spread parameters: 5% strike distance, 7-day expiry, 0.7
// confidence threshold.
func NewTrackerService(cfg TrackerConfig, registry *broker.Registry, risk *RiskService, logger *slog.Logger) *TrackerService {
	if cfg.StrikeDistancePct == 0 {
		cfg.StrikeDistancePct = 0.05
	}
	if cfg.ExpiryDays == 0 {
		cfg.ExpiryDays = 7
	}
	if cfg.ConfidenceThreshold == 0 {
		cfg.ConfidenceThreshold = 0.7
	}
	return &TrackerService{
		cfg:      cfg,
		registry: registry,
		risk:     risk,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "tracker_service")),
	}
}

// WithStores attaches the closed-position and audit stores. Best-effort:
// store failures are logged, the in-memory log stays authoritative. Optional.
func (s *TrackerService) WithStores(closed domain.ClosedPositionStore, audit domain.AuditStore) *TrackerService {
	s.closedStore = closed
	s.audit = audit
	return s
}

// WithEventBus attaches an event bus for position lifecycle events. Optional.
func (s *TrackerService) WithEventBus(bus domain.EventBus) *TrackerService {
	s.bus = bus
	return s
}

// WithNotifier attaches the notification fan-out. Optional.
func (s *TrackerService) WithNotifier(n *notify.Notifier) *TrackerService {
	s.notifier = n
	return s
}

// WithClock overrides the time source for tests.
func (s *TrackerService) WithClock(now func() time.Time) *TrackerService {
	s.now = now
	return s
}

// ExecuteSpreadTrade opens a spread position from the signal. It returns
// (nil, nil) when the signal's confidence is below the threshold or a
// position is already active: both are business rejections, not errors. The
// position is inserted only after the opening order succeeds.
func (s *TrackerService) ExecuteSpreadTrade(ctx context.Context, sig domain.TradeSignal) (*domain.SpreadPosition, error) {
	return s.execute(ctx, sig, false)
}

// ExecuteForced opens a spread position ignoring the confidence threshold.
// The single-active-position invariant still applies.
func (s *TrackerService) ExecuteForced(ctx context.Context, sig domain.TradeSignal) (*domain.SpreadPosition, error) {
	return s.execute(ctx, sig, true)
}

func (s *TrackerService) execute(ctx context.Context, sig domain.TradeSignal, force bool) (*domain.SpreadPosition, error) {
	if !force && sig.Confidence < s.cfg.ConfidenceThreshold {
		s.logger.InfoContext(ctx, "signal below confidence threshold",
			slog.Float64("confidence", sig.Confidence),
			slog.Float64("threshold", s.cfg.ConfidenceThreshold),
		)
		return nil, nil
	}
	if sig.Price <= 0 {
		return nil, fmt.Errorf("%w: signal price must be positive", domain.ErrInvalidOrder)
	}

	// The mutex covers the active check, the opening order, and the insert.
	// A second in-flight execute blocks here and sees the first position.
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		s.logger.InfoContext(ctx, "position already active, skipping signal",
			slog.String("position_id", s.active.ID),
		)
		return nil, nil
	}

	now := s.now().UTC()
	pos := s.buildPosition(sig, now)

	if err := s.placeOpeningOrder(ctx, pos); err != nil {
		return nil, err
	}

	s.active = &pos

	s.logger.InfoContext(ctx, "spread position opened",
		slog.String("position_id", pos.ID),
		slog.String("type", string(pos.Type)),
		slog.Float64("buy_strike", pos.BuyStrike),
		slog.Float64("sell_strike", pos.SellStrike),
		slog.Float64("premium", pos.Premium),
		slog.Float64("max_profit", pos.MaxProfit),
	)

	s.auditEvent(ctx, "position_opened", map[string]any{
		"position_id": pos.ID,
		"type":        string(pos.Type),
		"buy_strike":  pos.BuyStrike,
		"sell_strike": pos.SellStrike,
		"premium":     pos.Premium,
		"confidence":  sig.Confidence,
	})
	s.publishPosition(ctx, "position_opened", pos)
	if s.notifier != nil {
		_ = s.notifier.Notify(ctx, notify.EventPositionOpened, "Position opened",
			fmt.Sprintf("%s %s: buy %.2f / sell %.2f, premium %.2f",
				pos.Symbol, pos.Type, pos.BuyStrike, pos.SellStrike, pos.Premium))
	}

	out := pos
	return &out, nil
}

// buildPosition derives the synthetic spread from the signal: buy strike at
// the money, sell strike offset by the strike distance in the signal's
// direction, premium sized from capital and the per-trade risk fraction. The
// max-profit figure is the deliberately simplified
// |sellStrike-buyStrike| x 0.1 - premium estimate.
func (s *TrackerService) buildPosition(sig domain.TradeSignal, now time.Time) domain.SpreadPosition {
	buyStrike := sig.Price
	distance := sig.Price * s.cfg.StrikeDistancePct

	spreadType := domain.SpreadBullCall
	sellStrike := buyStrike + distance
	if sig.Direction == domain.SignalBear {
		spreadType = domain.SpreadBearPut
		sellStrike = buyStrike - distance
	}

	premium := s.cfg.Capital * s.cfg.MaxRiskPerTrade
	maxProfit := math.Abs(sellStrike-buyStrike)*0.1 - premium

	symbol := sig.Symbol
	if symbol == "" {
		symbol = s.cfg.Symbol
	}

	return domain.SpreadPosition{
		ID:         uuid.NewString(),
		Type:       spreadType,
		Symbol:     symbol,
		Broker:     s.cfg.Broker,
		BuyStrike:  buyStrike,
		SellStrike: sellStrike,
		Premium:    premium,
		MaxProfit:  maxProfit,
		EntryPrice: sig.Price,
		Status:     domain.PositionStatusActive,
		CreatedAt:  now,
		ExpiresAt:  now.AddDate(0, 0, s.cfg.ExpiryDays),
	}
}

// placeOpeningOrder sends the market order that opens the spread. In paper
// mode the fill is simulated and always succeeds.
func (s *TrackerService) placeOpeningOrder(ctx context.Context, pos domain.SpreadPosition) error {
	if s.cfg.PaperMode {
		s.logger.InfoContext(ctx, "paper mode: simulated opening order",
			slog.String("symbol", pos.Symbol),
			slog.Float64("premium", pos.Premium),
		)
		return nil
	}

	adapter, err := s.registry.Get(pos.Broker)
	if err != nil {
		return err
	}
	_, err = adapter.PlaceOrder(ctx, domain.Order{
		Broker:   pos.Broker,
		Symbol:   pos.Symbol,
		Side:     domain.OrderSideBuy,
		Quantity: 1,
		Type:     domain.OrderTypeMarket,
	})
	return err
}

// MonitorPositions runs one monitoring pass over the active position, if any.
// When price is nil the tracker fetches a quote itself, falling back to the
// configured placeholder price if the fetch fails. It returns the statistics
// after the pass.
func (s *TrackerService) MonitorPositions(ctx context.Context, price *float64) domain.TrackerStats {
	// Skip the quote fetch entirely when there is nothing to monitor; the
	// monitor loop ticks regardless of whether a position is open.
	s.mu.Lock()
	if s.active == nil {
		stats := s.statsLocked()
		s.mu.Unlock()
		return stats
	}
	s.mu.Unlock()

	current := s.resolvePrice(ctx, price)

	s.mu.Lock()
	if s.active == nil {
		stats := s.statsLocked()
		s.mu.Unlock()
		return stats
	}

	pos := s.active
	now := s.now().UTC()

	move := current - pos.EntryPrice
	movePct := math.Abs(move) / pos.EntryPrice

	adverse := (pos.Type == domain.SpreadBullCall && move < 0) ||
		(pos.Type == domain.SpreadBearPut && move > 0)
	favorable := (pos.Type == domain.SpreadBullCall && move > 0) ||
		(pos.Type == domain.SpreadBearPut && move < 0)

	switch {
	case adverse && movePct >= s.cfg.MaxRiskPerTrade:
		s.closeLocked(ctx, pos, domain.CloseReasonStopLoss, now)
	case favorable && movePct >= s.cfg.TargetProfit:
		s.closeLocked(ctx, pos, domain.CloseReasonProfitTarget, now)
	case !now.Before(pos.ExpiresAt):
		s.closeLocked(ctx, pos, domain.CloseReasonExpired, now)
	default:
		pos.CurrentValue = pos.Value(current, now)
		pos.UnrealizedPnL = pos.CurrentValue - pos.Premium
		s.logger.DebugContext(ctx, "position marked",
			slog.String("position_id", pos.ID),
			slog.Float64("price", current),
			slog.Float64("current_value", pos.CurrentValue),
			slog.Float64("unrealized_pnl", pos.UnrealizedPnL),
		)
		s.publishPosition(ctx, "position_updated", *pos)
	}

	stats := s.statsLocked()
	s.mu.Unlock()
	return stats
}

// resolvePrice returns the explicit price when given, otherwise the broker's
// latest quote, otherwise the configured fallback.
func (s *TrackerService) resolvePrice(ctx context.Context, price *float64) float64 {
	if price != nil {
		return *price
	}

	adapter, err := s.registry.Get(s.cfg.Broker)
	if err == nil {
		quote, qErr := adapter.Quote(ctx, s.cfg.Symbol)
		if qErr == nil && quote.Price > 0 {
			return quote.Price
		}
		err = qErr
	}
	s.logger.WarnContext(ctx, "quote fetch failed, using fallback price",
		slog.String("symbol", s.cfg.Symbol),
		slog.Float64("fallback", s.cfg.FallbackPrice),
		slog.String("error", fmt.Sprint(err)),
	)
	return s.cfg.FallbackPrice
}

// ClosePosition closes the position with the given id. Unknown ids are a
// no-op: closing is idempotent.
func (s *TrackerService) ClosePosition(ctx context.Context, id string, reason domain.CloseReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil || s.active.ID != id {
		return
	}
	s.closeLocked(ctx, s.active, reason, s.now().UTC())
}

// closeLocked finalizes the position and moves it from the active slot to
// the closed log. Realized P&L comes from the last mark: a position that
// never got marked realizes the full premium loss. Caller must hold s.mu.
func (s *TrackerService) closeLocked(ctx context.Context, pos *domain.SpreadPosition, reason domain.CloseReason, now time.Time) {
	pos.Status = domain.PositionStatusClosed
	pos.CloseReason = reason
	pos.ClosedAt = &now
	pos.RealizedPnL = pos.CurrentValue - pos.Premium
	pos.UnrealizedPnL = 0

	closed := *pos
	s.closed = append(s.closed, closed)
	s.active = nil

	s.risk.RecordPnL(closed.RealizedPnL)

	s.logger.InfoContext(ctx, "position closed",
		slog.String("position_id", closed.ID),
		slog.String("reason", string(reason)),
		slog.Float64("realized_pnl", closed.RealizedPnL),
	)

	if s.closedStore != nil {
		if err := s.closedStore.Append(ctx, closed); err != nil {
			s.logger.WarnContext(ctx, "closed position store append failed",
				slog.String("position_id", closed.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	s.auditEvent(ctx, "position_closed", map[string]any{
		"position_id":  closed.ID,
		"reason":       string(reason),
		"realized_pnl": closed.RealizedPnL,
	})
	s.publishPosition(ctx, "position_closed", closed)
	if s.notifier != nil && reason == domain.CloseReasonStopLoss {
		_ = s.notifier.Notify(ctx, notify.EventPositionClosed, "Stop loss hit",
			fmt.Sprintf("%s %s closed at %.2f P&L", closed.Symbol, closed.Type, closed.RealizedPnL))
	} else if s.notifier != nil {
		_ = s.notifier.Notify(ctx, notify.EventPositionClosed, "Position closed",
			fmt.Sprintf("%s %s closed (%s) at %.2f P&L", closed.Symbol, closed.Type, reason, closed.RealizedPnL))
	}
}

// EmergencyStop closes every tracked position with reason stop_loss. The
// active set is empty afterwards.
func (s *TrackerService) EmergencyStop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.active != nil {
		s.closeLocked(ctx, s.active, domain.CloseReasonStopLoss, s.now().UTC())
	}
}

// ActivePosition returns a copy of the active position, or nil.
func (s *TrackerService) ActivePosition() *domain.SpreadPosition {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil
	}
	out := *s.active
	return &out
}

// Positions returns the active position (if any) followed by the closed log,
// newest close last.
func (s *TrackerService) Positions() []domain.SpreadPosition {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.SpreadPosition, 0, len(s.closed)+1)
	if s.active != nil {
		out = append(out, *s.active)
	}
	return append(out, s.closed...)
}

// Stats returns performance statistics over the union of active and closed
// positions.
func (s *TrackerService) Stats() domain.TrackerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked()
}

func (s *TrackerService) statsLocked() domain.TrackerStats {
	stats := domain.TrackerStats{
		TotalTrades: len(s.closed),
	}
	for _, p := range s.closed {
		stats.TotalPnL += p.RealizedPnL
		if p.RealizedPnL > 0 {
			stats.WinningTrades++
		} else {
			stats.LosingTrades++
		}
	}
	if len(s.closed) > 0 {
		stats.WinRate = float64(stats.WinningTrades) / float64(len(s.closed))
	}
	if s.active != nil {
		stats.TotalTrades++
		stats.ActivePositions = 1
		stats.TotalPnL += s.active.UnrealizedPnL
	}
	return stats
}

// Run drives periodic monitoring until the context is cancelled.
func (s *TrackerService) Run(ctx context.Context) error {
	interval := s.cfg.MonitorInterval
	if interval <= 0 {
		interval = time.Minute
	}

	s.logger.InfoContext(ctx, "tracker monitor loop starting",
		slog.Duration("interval", interval),
		slog.String("symbol", s.cfg.Symbol),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.MonitorPositions(ctx, nil)
		}
	}
}

func (s *TrackerService) auditEvent(ctx context.Context, event string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func (s *TrackerService) publishPosition(ctx context.Context, event string, pos domain.SpreadPosition) {
	if s.bus == nil {
		return
	}
	evt, _ := json.Marshal(map[string]any{
		"event":          event,
		"position_id":    pos.ID,
		"type":           string(pos.Type),
		"symbol":         pos.Symbol,
		"status":         string(pos.Status),
		"close_reason":   string(pos.CloseReason),
		"current_value":  pos.CurrentValue,
		"unrealized_pnl": pos.UnrealizedPnL,
		"realized_pnl":   pos.RealizedPnL,
	})
	if err := s.bus.Publish(ctx, "positions", evt); err != nil {
		s.logger.WarnContext(ctx, "publish failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
