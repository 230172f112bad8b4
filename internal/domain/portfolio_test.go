package domain

import (
	"testing"
	"time"
)

func TestSummarize(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	positions := []PortfolioPosition{
		{Symbol: "RELIANCE", Value: 11000, PnL: 1000},
		{Symbol: "TCS", Value: 4500, PnL: -500},
	}

	s := Summarize(BrokerDhan, positions, now)

	if s.Broker != BrokerDhan {
		t.Errorf("Broker = %q, want dhan", s.Broker)
	}
	if s.TotalValue != 15500 {
		t.Errorf("TotalValue = %v, want 15500", s.TotalValue)
	}
	if s.TotalPnL != 500 {
		t.Errorf("TotalPnL = %v, want 500", s.TotalPnL)
	}
	// Basis is 15000, so 500 profit is 3.333...%.
	if s.PnLPercentage < 3.33 || s.PnLPercentage > 3.34 {
		t.Errorf("PnLPercentage = %v, want ~3.33", s.PnLPercentage)
	}
	if !s.Timestamp.Equal(now) {
		t.Errorf("Timestamp = %v, want %v", s.Timestamp, now)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(BrokerCoinSwitch, nil, time.Now())
	if s.TotalValue != 0 || s.TotalPnL != 0 || s.PnLPercentage != 0 {
		t.Errorf("empty portfolio should summarize to zeros, got %+v", s)
	}
}
