package domain

import "time"

// PortfolioPosition is a single holding or open position as reported by a
// broker, normalized to a common shape.
type PortfolioPosition struct {
	Symbol        string
	Quantity      float64
	AveragePrice  float64
	CurrentPrice  float64
	Value         float64
	PnL           float64
	PnLPercentage float64
}

// PortfolioSummary is a per-broker portfolio view. It is derived on demand
// from live adapter calls and never stored.
type PortfolioSummary struct {
	Broker        BrokerName
	TotalValue    float64
	TotalPnL      float64
	PnLPercentage float64
	Positions     []PortfolioPosition
	Timestamp     time.Time
}

// Summarize builds a PortfolioSummary from raw positions. The P&L percentage
// is computed against cost basis (value minus P&L); a zero basis yields zero.
func Summarize(broker BrokerName, positions []PortfolioPosition, now time.Time) PortfolioSummary {
	s := PortfolioSummary{
		Broker:    broker,
		Positions: positions,
		Timestamp: now,
	}
	for _, p := range positions {
		s.TotalValue += p.Value
		s.TotalPnL += p.PnL
	}
	if basis := s.TotalValue - s.TotalPnL; basis != 0 {
		s.PnLPercentage = s.TotalPnL / basis * 100
	}
	return s
}
