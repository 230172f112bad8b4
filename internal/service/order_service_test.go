package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/infinityai/tradebot/internal/broker"
	"github.com/infinityai/tradebot/internal/domain"
)

func newOrderFixture(adapters ...*fakeAdapter) *OrderService {
	registry := broker.NewRegistry()
	for _, a := range adapters {
		registry.Register(a)
	}
	risk := NewRiskService(domain.RiskLimits{
		MaxOrderValue:  1e9,
		MaxDailyLoss:   1e9,
		AllowedSymbols: []string{"BTCINR", "RELIANCE"},
	}, time.UTC, testLogger())
	return NewOrderService(registry, risk, testLogger())
}

func TestPlaceOrderRoutesToAdapter(t *testing.T) {
	adapter := &fakeAdapter{name: domain.BrokerCoinSwitch}
	svc := newOrderFixture(adapter)

	result, err := svc.PlaceOrder(context.Background(), domain.Order{
		Broker:   domain.BrokerCoinSwitch,
		Symbol:   "BTCINR",
		Side:     domain.OrderSideBuy,
		Quantity: 0.5,
		Price:    100,
	})
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	if result.OrderID == "" {
		t.Error("result should carry the broker order id")
	}
	if len(adapter.placed) != 1 {
		t.Fatalf("adapter received %d orders, want 1", len(adapter.placed))
	}
}

func TestPlaceOrderValidationRejection(t *testing.T) {
	adapter := &fakeAdapter{name: domain.BrokerCoinSwitch}
	svc := newOrderFixture(adapter)

	_, err := svc.PlaceOrder(context.Background(), domain.Order{
		Broker:   domain.BrokerCoinSwitch,
		Symbol:   "DOGEINR",
		Side:     domain.OrderSideBuy,
		Quantity: 1,
		Price:    10,
	})
	if !errors.Is(err, domain.ErrInvalidOrder) {
		t.Fatalf("error = %v, want ErrInvalidOrder", err)
	}
	if len(adapter.placed) != 0 {
		t.Error("rejected order must never reach the adapter")
	}
}

func TestPlaceOrderUnconfiguredBroker(t *testing.T) {
	svc := newOrderFixture(&fakeAdapter{name: domain.BrokerCoinSwitch})

	_, err := svc.PlaceOrder(context.Background(), domain.Order{
		Broker:   domain.BrokerDhan,
		Symbol:   "RELIANCE",
		Side:     domain.OrderSideBuy,
		Quantity: 1,
		Price:    10,
	})
	if !errors.Is(err, domain.ErrBrokerNotConfigured) {
		t.Fatalf("error = %v, want ErrBrokerNotConfigured", err)
	}
}

func TestPlaceOrderRateLimited(t *testing.T) {
	adapter := &fakeAdapter{name: domain.BrokerCoinSwitch}
	svc := newOrderFixture(adapter)

	limiter := &fakeRateLimiter{allowed: false}
	svc.WithRateLimiter(limiter)
	setOrdersPerMinute(svc, 5)

	_, err := svc.PlaceOrder(context.Background(), domain.Order{
		Broker:   domain.BrokerCoinSwitch,
		Symbol:   "BTCINR",
		Side:     domain.OrderSideBuy,
		Quantity: 1,
		Price:    10,
	})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("error = %v, want ErrRateLimited", err)
	}
	if len(adapter.placed) != 0 {
		t.Error("rate-limited order must not reach the adapter")
	}
}

// setOrdersPerMinute raises MaxOrdersPerMinute so the limiter path is taken.
func setOrdersPerMinute(s *OrderService, limit int) {
	s.risk.UpdateLimits(context.Background(), domain.RiskLimitsPatch{MaxOrdersPerMinute: &limit})
}

func TestPlaceOrderLimiterFailsOpen(t *testing.T) {
	adapter := &fakeAdapter{name: domain.BrokerCoinSwitch}
	svc := newOrderFixture(adapter)

	limiter := &fakeRateLimiter{err: errors.New("redis down")}
	svc.WithRateLimiter(limiter)
	setOrdersPerMinute(svc, 5)

	_, err := svc.PlaceOrder(context.Background(), domain.Order{
		Broker:   domain.BrokerCoinSwitch,
		Symbol:   "BTCINR",
		Side:     domain.OrderSideBuy,
		Quantity: 1,
		Price:    10,
	})
	if err != nil {
		t.Fatalf("limiter outage should not block trading: %v", err)
	}
	if len(adapter.placed) != 1 {
		t.Error("order should have reached the adapter")
	}
}

func TestCancelOrder(t *testing.T) {
	adapter := &fakeAdapter{name: domain.BrokerCoinSwitch}
	svc := newOrderFixture(adapter)

	result, err := svc.CancelOrder(context.Background(), domain.BrokerCoinSwitch, "ord-42")
	if err != nil {
		t.Fatalf("CancelOrder failed: %v", err)
	}
	if result.Status != domain.OrderStatusCancelled {
		t.Errorf("Status = %q, want cancelled", result.Status)
	}
	if len(adapter.cancelled) != 1 || adapter.cancelled[0] != "ord-42" {
		t.Errorf("adapter cancellations = %v, want [ord-42]", adapter.cancelled)
	}
}

func TestEmergencyStopReport(t *testing.T) {
	healthy := &fakeAdapter{
		name: domain.BrokerCoinSwitch,
		orders: []domain.OrderRecord{
			{OrderID: "open-1", Status: domain.OrderStatusOpen},
			{OrderID: "done-1", Status: domain.OrderStatusCompleted},
			{OrderID: "pend-1", Status: domain.OrderStatusPending},
		},
	}
	broken := &fakeAdapter{
		name:      domain.BrokerDhan,
		ordersErr: errors.New("dhan API down"),
	}
	svc := newOrderFixture(healthy, broken)

	report := svc.EmergencyStop(context.Background())

	// Two cancel attempts on the healthy broker, one listing failure entry
	// for the broken one. Completed orders are skipped.
	if len(report) != 3 {
		t.Fatalf("report has %d entries, want 3: %+v", len(report), report)
	}
	if len(healthy.cancelled) != 2 {
		t.Errorf("healthy adapter cancelled %v, want 2 orders", healthy.cancelled)
	}

	var brokenEntries int
	for _, entry := range report {
		if entry.Broker == domain.BrokerDhan {
			brokenEntries++
			if entry.Error == "" {
				t.Error("listing failure entry should carry the error text")
			}
			if entry.OrderID != "" {
				t.Error("listing failure entry should not name an order")
			}
		}
	}
	if brokenEntries != 1 {
		t.Errorf("broken broker produced %d entries, want 1", brokenEntries)
	}
}

func TestEmergencyStopCancelFailureInReport(t *testing.T) {
	adapter := &fakeAdapter{
		name:      domain.BrokerCoinSwitch,
		orders:    []domain.OrderRecord{{OrderID: "open-1", Status: domain.OrderStatusOpen}},
		cancelErr: errors.New("too late"),
	}
	svc := newOrderFixture(adapter)

	report := svc.EmergencyStop(context.Background())
	if len(report) != 1 {
		t.Fatalf("report has %d entries, want 1", len(report))
	}
	if report[0].Error != "too late" {
		t.Errorf("entry error = %q, want the cancel failure", report[0].Error)
	}
}

func TestQuotePassThrough(t *testing.T) {
	adapter := &fakeAdapter{
		name:  domain.BrokerCoinSwitch,
		quote: domain.Quote{Symbol: "BTCINR", Price: 4_500_000},
	}
	svc := newOrderFixture(adapter)

	quote, err := svc.Quote(context.Background(), domain.BrokerCoinSwitch, "BTCINR")
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}
	if quote.Price != 4_500_000 {
		t.Errorf("Price = %v, want 4500000", quote.Price)
	}
}
