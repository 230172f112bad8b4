package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/infinityai/tradebot/internal/domain"
)

// mondayOpen is a weekday timestamp inside the 09:15-15:00 session.
var mondayOpen = time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)

func newTestRiskService(limits domain.RiskLimits) *RiskService {
	s := NewRiskService(limits, time.UTC, testLogger())
	s.WithClock(func() time.Time { return mondayOpen })
	return s
}

func defaultLimits() domain.RiskLimits {
	return domain.RiskLimits{
		MaxOrderValue:      10000,
		MaxDailyLoss:       500,
		AllowedSymbols:     []string{"RELIANCE", "BTCINR"},
		MarketHoursOnly:    true,
		MaxOrdersPerMinute: 10,
	}
}

func validOrder() domain.Order {
	return domain.Order{
		Broker:   domain.BrokerCoinSwitch,
		Symbol:   "BTCINR",
		Side:     domain.OrderSideBuy,
		Quantity: 2,
		Price:    100,
	}
}

func TestValidateOrderPasses(t *testing.T) {
	s := newTestRiskService(defaultLimits())
	if err := s.ValidateOrder(validOrder()); err != nil {
		t.Fatalf("valid order rejected: %v", err)
	}
}

func TestValidateOrderNotional(t *testing.T) {
	s := newTestRiskService(defaultLimits())
	order := validOrder()
	order.Price = 100
	order.Quantity = 200 // notional 20000 > 10000

	err := s.ValidateOrder(order)
	if !errors.Is(err, domain.ErrInvalidOrder) {
		t.Fatalf("error = %v, want ErrInvalidOrder", err)
	}
	if !strings.Contains(err.Error(), "order value") {
		t.Errorf("error should mention order value, got %q", err)
	}
}

func TestValidateOrderMarketOrderSkipsNotional(t *testing.T) {
	s := newTestRiskService(defaultLimits())
	order := validOrder()
	order.Price = 0
	order.Quantity = 1_000_000

	if err := s.ValidateOrder(order); err != nil {
		t.Fatalf("market order should bypass notional check: %v", err)
	}
}

func TestValidateOrderSymbolNotAllowed(t *testing.T) {
	s := newTestRiskService(defaultLimits())
	order := validOrder()
	order.Symbol = "DOGEINR"

	err := s.ValidateOrder(order)
	if !errors.Is(err, domain.ErrInvalidOrder) {
		t.Fatalf("error = %v, want ErrInvalidOrder", err)
	}
	if !strings.Contains(err.Error(), "not in allowed list") {
		t.Errorf("error should mention the allow-list, got %q", err)
	}
}

func TestValidateOrderMarketHours(t *testing.T) {
	cases := []struct {
		name string
		at   time.Time
		ok   bool
	}{
		{"saturday", time.Date(2025, 1, 4, 10, 0, 0, 0, time.UTC), false},
		{"sunday", time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC), false},
		{"before open", time.Date(2025, 1, 6, 9, 14, 0, 0, time.UTC), false},
		{"at open", time.Date(2025, 1, 6, 9, 15, 0, 0, time.UTC), true},
		{"mid session", time.Date(2025, 1, 6, 12, 30, 0, 0, time.UTC), true},
		{"last minute", time.Date(2025, 1, 6, 14, 59, 0, 0, time.UTC), true},
		{"at close", time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC), false},
		{"evening", time.Date(2025, 1, 6, 18, 0, 0, 0, time.UTC), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewRiskService(defaultLimits(), time.UTC, testLogger())
			s.WithClock(func() time.Time { return tc.at })

			order := validOrder()
			order.Broker = domain.BrokerDhan
			order.Symbol = "RELIANCE"

			err := s.ValidateOrder(order)
			if tc.ok && err != nil {
				t.Errorf("order at %v rejected: %v", tc.at, err)
			}
			if !tc.ok && !errors.Is(err, domain.ErrInvalidOrder) {
				t.Errorf("order at %v error = %v, want ErrInvalidOrder", tc.at, err)
			}
		})
	}
}

func TestValidateOrderMarketHoursOnlyGatesEquities(t *testing.T) {
	// Crypto trades around the clock: the market-hours check applies only to
	// the equities broker.
	saturday := time.Date(2025, 1, 4, 3, 0, 0, 0, time.UTC)
	s := NewRiskService(defaultLimits(), time.UTC, testLogger())
	s.WithClock(func() time.Time { return saturday })

	if err := s.ValidateOrder(validOrder()); err != nil {
		t.Fatalf("coinswitch order rejected outside market hours: %v", err)
	}
}

func TestValidateOrderDailyLoss(t *testing.T) {
	s := newTestRiskService(defaultLimits())

	s.RecordPnL(-600)
	if got := s.DailyLoss(); got != 600 {
		t.Fatalf("DailyLoss() = %v, want 600", got)
	}

	err := s.ValidateOrder(validOrder())
	if !errors.Is(err, domain.ErrInvalidOrder) {
		t.Fatalf("error = %v, want ErrInvalidOrder", err)
	}
	if !strings.Contains(err.Error(), "daily loss") {
		t.Errorf("error should mention daily loss, got %q", err)
	}
}

func TestRecordPnLIgnoresProfits(t *testing.T) {
	s := newTestRiskService(defaultLimits())
	s.RecordPnL(-200)
	s.RecordPnL(1000)
	if got := s.DailyLoss(); got != 200 {
		t.Errorf("DailyLoss() = %v, want 200 (profits must not offset losses)", got)
	}
}

func TestDailyLossResetsNextDay(t *testing.T) {
	now := mondayOpen
	s := NewRiskService(defaultLimits(), time.UTC, testLogger())
	s.WithClock(func() time.Time { return now })

	s.RecordPnL(-600)
	if err := s.ValidateOrder(validOrder()); err == nil {
		t.Fatal("order should be blocked by daily loss")
	}

	now = now.AddDate(0, 0, 1)
	if got := s.DailyLoss(); got != 0 {
		t.Fatalf("DailyLoss() after rollover = %v, want 0", got)
	}
	if err := s.ValidateOrder(validOrder()); err != nil {
		t.Fatalf("order after rollover rejected: %v", err)
	}
}

func TestValidateOrderQuantityPriceSide(t *testing.T) {
	s := newTestRiskService(defaultLimits())

	order := validOrder()
	order.Quantity = 0
	if err := s.ValidateOrder(order); !errors.Is(err, domain.ErrInvalidOrder) {
		t.Errorf("zero quantity error = %v, want ErrInvalidOrder", err)
	}

	order = validOrder()
	order.Price = -1
	if err := s.ValidateOrder(order); !errors.Is(err, domain.ErrInvalidOrder) {
		t.Errorf("negative price error = %v, want ErrInvalidOrder", err)
	}

	order = validOrder()
	order.Side = "hold"
	if err := s.ValidateOrder(order); !errors.Is(err, domain.ErrInvalidOrder) {
		t.Errorf("bad side error = %v, want ErrInvalidOrder", err)
	}
}

func TestValidateOrderCheckSequence(t *testing.T) {
	// When several checks would fail the first in the sequence wins: the
	// symbol check fires before the quantity check.
	s := newTestRiskService(defaultLimits())
	order := validOrder()
	order.Symbol = "DOGEINR"
	order.Quantity = 0

	err := s.ValidateOrder(order)
	if err == nil || !strings.Contains(err.Error(), "not in allowed list") {
		t.Errorf("expected the symbol failure first, got %v", err)
	}
}

func TestUpdateLimits(t *testing.T) {
	s := newTestRiskService(defaultLimits())

	newMax := 50000.0
	merged := s.UpdateLimits(context.Background(), domain.RiskLimitsPatch{MaxOrderValue: &newMax})
	if merged.MaxOrderValue != 50000 {
		t.Fatalf("merged MaxOrderValue = %v, want 50000", merged.MaxOrderValue)
	}
	if merged.MaxDailyLoss != 500 {
		t.Errorf("merged MaxDailyLoss = %v, want unchanged 500", merged.MaxDailyLoss)
	}

	// The bigger limit takes effect immediately.
	order := validOrder()
	order.Price = 100
	order.Quantity = 200
	if err := s.ValidateOrder(order); err != nil {
		t.Errorf("order within new limit rejected: %v", err)
	}
}

func TestLimitsReturnsCopy(t *testing.T) {
	s := newTestRiskService(defaultLimits())
	limits := s.Limits()
	limits.AllowedSymbols[0] = "mutated"

	if s.Limits().AllowedSymbols[0] != "RELIANCE" {
		t.Error("Limits() leaked the internal symbol slice")
	}
}
