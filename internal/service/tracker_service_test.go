package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/infinityai/tradebot/internal/broker"
	"github.com/infinityai/tradebot/internal/domain"
)

const trackerEntryPrice = 4_500_000.0

func permissiveLimits() domain.RiskLimits {
	return domain.RiskLimits{
		MaxOrderValue:  1e12,
		MaxDailyLoss:   1e12,
		AllowedSymbols: []string{"BTCINR"},
	}
}

type trackerFixture struct {
	tracker *TrackerService
	risk    *RiskService
	adapter *fakeAdapter
	now     time.Time
}

func newTrackerFixture(t *testing.T, mutate func(cfg *TrackerConfig)) *trackerFixture {
	t.Helper()

	adapter := &fakeAdapter{
		name:  domain.BrokerCoinSwitch,
		quote: domain.Quote{Symbol: "BTCINR", Price: trackerEntryPrice},
	}
	registry := broker.NewRegistry()
	registry.Register(adapter)

	now := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)

	risk := NewRiskService(permissiveLimits(), time.UTC, testLogger())
	risk.WithClock(func() time.Time { return now })

	cfg := TrackerConfig{
		Broker:              domain.BrokerCoinSwitch,
		Symbol:              "BTCINR",
		Capital:             4000,
		MaxRiskPerTrade:     0.08,
		TargetProfit:        0.15,
		ConfidenceThreshold: 0.7,
		StrikeDistancePct:   0.05,
		ExpiryDays:          7,
		FallbackPrice:       trackerEntryPrice,
		PaperMode:           true,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	f := &trackerFixture{
		tracker: NewTrackerService(cfg, registry, risk, testLogger()),
		risk:    risk,
		adapter: adapter,
		now:     now,
	}
	f.tracker.WithClock(func() time.Time { return f.now })
	return f
}

func bullSignal(confidence float64) domain.TradeSignal {
	return domain.TradeSignal{
		ID:         "sig-1",
		Symbol:     "BTCINR",
		Direction:  domain.SignalBull,
		Confidence: confidence,
		Price:      trackerEntryPrice,
	}
}

func TestExecuteBelowConfidence(t *testing.T) {
	f := newTrackerFixture(t, nil)

	pos, err := f.tracker.ExecuteSpreadTrade(context.Background(), bullSignal(0.5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos != nil {
		t.Fatalf("low-confidence signal opened a position: %+v", pos)
	}
	if f.tracker.ActivePosition() != nil {
		t.Error("no position should be active")
	}
}

func TestExecuteBuildsBullCallSpread(t *testing.T) {
	f := newTrackerFixture(t, nil)

	pos, err := f.tracker.ExecuteSpreadTrade(context.Background(), bullSignal(0.75))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos == nil {
		t.Fatal("qualifying signal did not open a position")
	}

	if pos.Type != domain.SpreadBullCall {
		t.Errorf("Type = %q, want bull_call", pos.Type)
	}
	if pos.BuyStrike != trackerEntryPrice {
		t.Errorf("BuyStrike = %v, want %v", pos.BuyStrike, trackerEntryPrice)
	}
	if pos.SellStrike != 4_725_000 {
		t.Errorf("SellStrike = %v, want 4725000", pos.SellStrike)
	}
	// Premium is capital x per-trade risk.
	if pos.Premium != 320 {
		t.Errorf("Premium = %v, want 320", pos.Premium)
	}
	wantProfit := 225_000*0.1 - 320
	if math.Abs(pos.MaxProfit-wantProfit) > 1e-9 {
		t.Errorf("MaxProfit = %v, want %v", pos.MaxProfit, wantProfit)
	}
	if pos.Status != domain.PositionStatusActive {
		t.Errorf("Status = %q, want active", pos.Status)
	}
	wantExpiry := f.now.UTC().AddDate(0, 0, 7)
	if !pos.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("ExpiresAt = %v, want %v", pos.ExpiresAt, wantExpiry)
	}
}

func TestExecuteBuildsBearPutSpread(t *testing.T) {
	f := newTrackerFixture(t, nil)

	sig := bullSignal(0.8)
	sig.Direction = domain.SignalBear

	pos, err := f.tracker.ExecuteSpreadTrade(context.Background(), sig)
	if err != nil || pos == nil {
		t.Fatalf("execute failed: pos=%v err=%v", pos, err)
	}
	if pos.Type != domain.SpreadBearPut {
		t.Errorf("Type = %q, want bear_put", pos.Type)
	}
	if pos.SellStrike != 4_275_000 {
		t.Errorf("SellStrike = %v, want 4275000", pos.SellStrike)
	}
}

func TestExecuteRejectsZeroPrice(t *testing.T) {
	f := newTrackerFixture(t, nil)

	sig := bullSignal(0.9)
	sig.Price = 0
	_, err := f.tracker.ExecuteSpreadTrade(context.Background(), sig)
	if !errors.Is(err, domain.ErrInvalidOrder) {
		t.Fatalf("error = %v, want ErrInvalidOrder", err)
	}
}

func TestExecuteSingleActivePosition(t *testing.T) {
	f := newTrackerFixture(t, nil)
	ctx := context.Background()

	first, err := f.tracker.ExecuteSpreadTrade(ctx, bullSignal(0.9))
	if err != nil || first == nil {
		t.Fatalf("first execute failed: pos=%v err=%v", first, err)
	}

	second, err := f.tracker.ExecuteSpreadTrade(ctx, bullSignal(0.95))
	if err != nil {
		t.Fatalf("second execute errored: %v", err)
	}
	if second != nil {
		t.Fatal("second signal opened a position while one was active")
	}

	positions := f.tracker.Positions()
	if len(positions) != 1 {
		t.Errorf("Positions() returned %d entries, want 1", len(positions))
	}
}

func TestExecuteForcedIgnoresThreshold(t *testing.T) {
	f := newTrackerFixture(t, nil)

	pos, err := f.tracker.ExecuteForced(context.Background(), bullSignal(0.1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos == nil {
		t.Fatal("forced execute did not open a position")
	}
}

func TestExecuteLiveModePlacesMarketOrder(t *testing.T) {
	f := newTrackerFixture(t, func(cfg *TrackerConfig) { cfg.PaperMode = false })

	pos, err := f.tracker.ExecuteSpreadTrade(context.Background(), bullSignal(0.8))
	if err != nil || pos == nil {
		t.Fatalf("execute failed: pos=%v err=%v", pos, err)
	}

	if len(f.adapter.placed) != 1 {
		t.Fatalf("adapter received %d orders, want 1", len(f.adapter.placed))
	}
	order := f.adapter.placed[0]
	if order.Type != domain.OrderTypeMarket || order.Side != domain.OrderSideBuy || order.Quantity != 1 {
		t.Errorf("opening order = %+v, want market buy x1", order)
	}
}

func TestExecuteLiveModeOrderFailure(t *testing.T) {
	f := newTrackerFixture(t, func(cfg *TrackerConfig) { cfg.PaperMode = false })
	f.adapter.placeErr = errors.New("exchange rejected")

	pos, err := f.tracker.ExecuteSpreadTrade(context.Background(), bullSignal(0.8))
	if err == nil {
		t.Fatal("expected the placement error to propagate")
	}
	if pos != nil {
		t.Error("failed placement must not leave a position")
	}
	if f.tracker.ActivePosition() != nil {
		t.Error("no position should be active after a failed open")
	}
}

func TestMonitorMarksWithoutClosing(t *testing.T) {
	f := newTrackerFixture(t, nil)
	ctx := context.Background()

	if _, err := f.tracker.ExecuteSpreadTrade(ctx, bullSignal(0.8)); err != nil {
		t.Fatal(err)
	}

	// +4% favorable move is below the 15% target.
	price := trackerEntryPrice * 1.04
	stats := f.tracker.MonitorPositions(ctx, &price)

	if stats.ActivePositions != 1 {
		t.Fatalf("ActivePositions = %d, want 1", stats.ActivePositions)
	}
	pos := f.tracker.ActivePosition()
	if pos == nil {
		t.Fatal("position closed unexpectedly")
	}
	// Between the strikes with no time elapsed: 180k/225k of max profit.
	wantValue := (price - pos.BuyStrike) / (pos.SellStrike - pos.BuyStrike) * pos.MaxProfit
	if math.Abs(pos.CurrentValue-wantValue) > 1e-6 {
		t.Errorf("CurrentValue = %v, want %v", pos.CurrentValue, wantValue)
	}
	if math.Abs(pos.UnrealizedPnL-(wantValue-pos.Premium)) > 1e-6 {
		t.Errorf("UnrealizedPnL = %v, want %v", pos.UnrealizedPnL, wantValue-pos.Premium)
	}
}

func TestMonitorStopLoss(t *testing.T) {
	f := newTrackerFixture(t, nil)
	ctx := context.Background()

	if _, err := f.tracker.ExecuteSpreadTrade(ctx, bullSignal(0.8)); err != nil {
		t.Fatal(err)
	}

	// -8.9% adverse move breaches the 8% stop.
	price := trackerEntryPrice * 0.911
	stats := f.tracker.MonitorPositions(ctx, &price)

	if f.tracker.ActivePosition() != nil {
		t.Fatal("position should have closed on stop loss")
	}
	positions := f.tracker.Positions()
	if len(positions) != 1 || positions[0].CloseReason != domain.CloseReasonStopLoss {
		t.Fatalf("closed position = %+v, want stop_loss close", positions)
	}
	// Never marked, so the full premium is realized as a loss.
	if positions[0].RealizedPnL != -320 {
		t.Errorf("RealizedPnL = %v, want -320", positions[0].RealizedPnL)
	}
	if stats.TotalTrades != 1 || stats.LosingTrades != 1 {
		t.Errorf("stats = %+v, want one losing trade", stats)
	}
	// The loss feeds the daily-loss counter.
	if got := f.risk.DailyLoss(); got != 320 {
		t.Errorf("DailyLoss() = %v, want 320", got)
	}
}

func TestMonitorProfitTarget(t *testing.T) {
	f := newTrackerFixture(t, nil)
	ctx := context.Background()

	if _, err := f.tracker.ExecuteSpreadTrade(ctx, bullSignal(0.8)); err != nil {
		t.Fatal(err)
	}

	// First pass marks the position in the money, second pass crosses the
	// profit target and closes at the last mark.
	mark := trackerEntryPrice * 1.10
	f.tracker.MonitorPositions(ctx, &mark)

	target := trackerEntryPrice * 1.16
	stats := f.tracker.MonitorPositions(ctx, &target)

	positions := f.tracker.Positions()
	if len(positions) != 1 || positions[0].CloseReason != domain.CloseReasonProfitTarget {
		t.Fatalf("closed position = %+v, want profit_target close", positions)
	}
	// Marked above the sell strike: value is the full max profit.
	wantPnL := positions[0].MaxProfit - positions[0].Premium
	if math.Abs(positions[0].RealizedPnL-wantPnL) > 1e-6 {
		t.Errorf("RealizedPnL = %v, want %v", positions[0].RealizedPnL, wantPnL)
	}
	if stats.WinningTrades != 1 || stats.WinRate != 1 {
		t.Errorf("stats = %+v, want one winning trade", stats)
	}
}

func TestMonitorExpired(t *testing.T) {
	f := newTrackerFixture(t, nil)
	ctx := context.Background()

	if _, err := f.tracker.ExecuteSpreadTrade(ctx, bullSignal(0.8)); err != nil {
		t.Fatal(err)
	}

	f.now = f.now.AddDate(0, 0, 8)

	price := trackerEntryPrice
	f.tracker.MonitorPositions(ctx, &price)

	positions := f.tracker.Positions()
	if len(positions) != 1 || positions[0].CloseReason != domain.CloseReasonExpired {
		t.Fatalf("closed position = %+v, want expired close", positions)
	}
}

func TestMonitorExplicitPriceSkipsQuote(t *testing.T) {
	f := newTrackerFixture(t, nil)
	ctx := context.Background()

	if _, err := f.tracker.ExecuteSpreadTrade(ctx, bullSignal(0.8)); err != nil {
		t.Fatal(err)
	}

	price := trackerEntryPrice * 1.01
	f.tracker.MonitorPositions(ctx, &price)
	if got := f.adapter.quoteCallCount(); got != 0 {
		t.Errorf("explicit price made %d quote calls, want 0", got)
	}

	f.tracker.MonitorPositions(ctx, nil)
	if got := f.adapter.quoteCallCount(); got != 1 {
		t.Errorf("nil price made %d quote calls, want 1", got)
	}
}

func TestMonitorIdleSkipsQuote(t *testing.T) {
	f := newTrackerFixture(t, nil)
	ctx := context.Background()

	stats := f.tracker.MonitorPositions(ctx, nil)
	if stats.ActivePositions != 0 {
		t.Fatalf("ActivePositions = %d, want 0", stats.ActivePositions)
	}
	if got := f.adapter.quoteCallCount(); got != 0 {
		t.Errorf("idle monitor pass made %d quote calls, want 0", got)
	}
}

func TestMonitorFallbackPrice(t *testing.T) {
	f := newTrackerFixture(t, func(cfg *TrackerConfig) { cfg.FallbackPrice = trackerEntryPrice * 1.02 })
	f.adapter.quoteErr = errors.New("feed down")
	ctx := context.Background()

	if _, err := f.tracker.ExecuteSpreadTrade(ctx, bullSignal(0.8)); err != nil {
		t.Fatal(err)
	}

	stats := f.tracker.MonitorPositions(ctx, nil)
	if stats.ActivePositions != 1 {
		t.Fatalf("position should survive a quote outage, stats = %+v", stats)
	}
	pos := f.tracker.ActivePosition()
	if pos.CurrentValue == 0 {
		t.Error("fallback price above the buy strike should produce a non-zero mark")
	}
}

func TestClosePositionIdempotent(t *testing.T) {
	f := newTrackerFixture(t, nil)
	ctx := context.Background()

	pos, err := f.tracker.ExecuteSpreadTrade(ctx, bullSignal(0.8))
	if err != nil || pos == nil {
		t.Fatalf("execute failed: %v", err)
	}

	f.tracker.ClosePosition(ctx, "no-such-id", domain.CloseReasonStopLoss)
	if f.tracker.ActivePosition() == nil {
		t.Fatal("unknown id must not close the active position")
	}

	f.tracker.ClosePosition(ctx, pos.ID, domain.CloseReasonStopLoss)
	f.tracker.ClosePosition(ctx, pos.ID, domain.CloseReasonStopLoss)

	if got := len(f.tracker.Positions()); got != 1 {
		t.Errorf("closed log has %d entries after double close, want 1", got)
	}
}

func TestEmergencyStopClosesActive(t *testing.T) {
	f := newTrackerFixture(t, nil)
	ctx := context.Background()

	if _, err := f.tracker.ExecuteSpreadTrade(ctx, bullSignal(0.8)); err != nil {
		t.Fatal(err)
	}

	f.tracker.EmergencyStop(ctx)

	if f.tracker.ActivePosition() != nil {
		t.Fatal("emergency stop left a position active")
	}
	positions := f.tracker.Positions()
	if len(positions) != 1 || positions[0].CloseReason != domain.CloseReasonStopLoss {
		t.Errorf("closed position = %+v, want stop_loss close", positions)
	}
}

func TestStatsOverActiveAndClosed(t *testing.T) {
	f := newTrackerFixture(t, nil)
	ctx := context.Background()

	// First trade closes as a loss.
	if _, err := f.tracker.ExecuteSpreadTrade(ctx, bullSignal(0.8)); err != nil {
		t.Fatal(err)
	}
	price := trackerEntryPrice * 0.90
	f.tracker.MonitorPositions(ctx, &price)

	// Second trade stays active.
	if _, err := f.tracker.ExecuteSpreadTrade(ctx, bullSignal(0.8)); err != nil {
		t.Fatal(err)
	}

	stats := f.tracker.Stats()
	if stats.TotalTrades != 2 {
		t.Errorf("TotalTrades = %d, want 2", stats.TotalTrades)
	}
	if stats.ActivePositions != 1 {
		t.Errorf("ActivePositions = %d, want 1", stats.ActivePositions)
	}
	if stats.LosingTrades != 1 {
		t.Errorf("LosingTrades = %d, want 1", stats.LosingTrades)
	}
	if stats.WinRate != 0 {
		t.Errorf("WinRate = %v, want 0", stats.WinRate)
	}
}

func TestClosedPositionsPersisted(t *testing.T) {
	f := newTrackerFixture(t, nil)
	store := &memClosedStore{}
	audit := &memAuditStore{}
	f.tracker.WithStores(store, audit)
	ctx := context.Background()

	if _, err := f.tracker.ExecuteSpreadTrade(ctx, bullSignal(0.8)); err != nil {
		t.Fatal(err)
	}
	price := trackerEntryPrice * 0.90
	f.tracker.MonitorPositions(ctx, &price)

	if len(store.positions) != 1 {
		t.Fatalf("closed store has %d positions, want 1", len(store.positions))
	}
	if store.positions[0].Status != domain.PositionStatusClosed {
		t.Errorf("stored position status = %q, want closed", store.positions[0].Status)
	}
}
