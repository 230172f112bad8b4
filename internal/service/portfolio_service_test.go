package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/infinityai/tradebot/internal/broker"
	"github.com/infinityai/tradebot/internal/domain"
)

func TestPortfolioSummarizes(t *testing.T) {
	adapter := &fakeAdapter{
		name: domain.BrokerDhan,
		positions: []domain.PortfolioPosition{
			{Symbol: "RELIANCE", Value: 11000, PnL: 1000},
			{Symbol: "TCS", Value: 4500, PnL: -500},
		},
	}
	registry := broker.NewRegistry()
	registry.Register(adapter)

	now := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	svc := NewPortfolioService(registry, testLogger())
	svc.WithClock(func() time.Time { return now })

	summary, err := svc.Portfolio(context.Background(), domain.BrokerDhan)
	if err != nil {
		t.Fatalf("Portfolio failed: %v", err)
	}
	if summary.TotalValue != 15500 || summary.TotalPnL != 500 {
		t.Errorf("summary = %+v, want value 15500 pnl 500", summary)
	}
	if len(summary.Positions) != 2 {
		t.Errorf("Positions count = %d, want 2", len(summary.Positions))
	}
}

func TestPortfolioUnconfiguredBroker(t *testing.T) {
	svc := NewPortfolioService(broker.NewRegistry(), testLogger())

	_, err := svc.Portfolio(context.Background(), domain.BrokerDhan)
	if !errors.Is(err, domain.ErrBrokerNotConfigured) {
		t.Fatalf("error = %v, want ErrBrokerNotConfigured", err)
	}
}

func TestCombinedOmitsFailedBrokers(t *testing.T) {
	healthy := &fakeAdapter{
		name:      domain.BrokerCoinSwitch,
		positions: []domain.PortfolioPosition{{Symbol: "BTCINR", Value: 90000, PnL: 5000}},
	}
	broken := &fakeAdapter{
		name:         domain.BrokerDhan,
		portfolioErr: errors.New("dhan API down"),
	}
	registry := broker.NewRegistry()
	registry.Register(healthy)
	registry.Register(broken)

	svc := NewPortfolioService(registry, testLogger())

	summaries := svc.Combined(context.Background())
	if len(summaries) != 1 {
		t.Fatalf("Combined returned %d summaries, want 1", len(summaries))
	}
	if summaries[0].Broker != domain.BrokerCoinSwitch {
		t.Errorf("surviving summary is %q, want coinswitch", summaries[0].Broker)
	}
}

func TestCombinedEmptyRegistry(t *testing.T) {
	svc := NewPortfolioService(broker.NewRegistry(), testLogger())
	if got := svc.Combined(context.Background()); len(got) != 0 {
		t.Errorf("Combined on empty registry = %v, want empty", got)
	}
}
