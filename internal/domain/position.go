package domain

import "time"

// SpreadType discriminates the two synthetic spread variants.
type SpreadType string

const (
	SpreadBullCall SpreadType = "bull_call"
	SpreadBearPut  SpreadType = "bear_put"
)

// PositionStatus tracks whether a spread position is live or terminal.
// Transitions are one-directional: active positions close exactly once and
// keep their close reason permanently.
type PositionStatus string

const (
	PositionStatusActive PositionStatus = "active"
	PositionStatusClosed PositionStatus = "closed"
)

// CloseReason records why a position left the active state.
type CloseReason string

const (
	CloseReasonStopLoss     CloseReason = "stop_loss"
	CloseReasonProfitTarget CloseReason = "profit_target"
	CloseReasonExpired      CloseReason = "expired"
)

// SpreadPosition is a simulated two-leg options spread tracked with a single
// premium, max-loss, and max-profit figure. The premium paid is the position's
// max loss by construction.
type SpreadPosition struct {
	ID            string
	Type          SpreadType
	Symbol        string
	Broker        BrokerName
	BuyStrike     float64
	SellStrike    float64
	Premium       float64
	MaxProfit     float64
	EntryPrice    float64
	CurrentValue  float64
	UnrealizedPnL float64
	Status        PositionStatus
	CreatedAt     time.Time
	ExpiresAt     time.Time
	ClosedAt      *time.Time
	CloseReason   CloseReason
	RealizedPnL   float64
}

// TimeDecay returns the remaining life of the position as a fraction of the
// original 7-day window, floored at zero.
func (p SpreadPosition) TimeDecay(now time.Time) float64 {
	d := p.ExpiresAt.Sub(now).Hours() / 24 / 7
	if d < 0 {
		return 0
	}
	return d
}

// Value marks the spread at the given underlying price using a piecewise
// linear model scaled by time decay. Intentionally a toy model: fully
// out-of-the-money is worth 0, fully in-the-money is worth MaxProfit, and the
// region between the strikes is interpolated linearly.
func (p SpreadPosition) Value(price float64, now time.Time) float64 {
	decay := p.TimeDecay(now)
	switch p.Type {
	case SpreadBullCall:
		switch {
		case price <= p.BuyStrike:
			return 0
		case price >= p.SellStrike:
			return p.MaxProfit
		default:
			return (price - p.BuyStrike) / (p.SellStrike - p.BuyStrike) * p.MaxProfit * decay
		}
	case SpreadBearPut:
		switch {
		case price >= p.BuyStrike:
			return 0
		case price <= p.SellStrike:
			return p.MaxProfit
		default:
			return (p.BuyStrike - price) / (p.BuyStrike - p.SellStrike) * p.MaxProfit * decay
		}
	}
	return 0
}

// TrackerStats summarizes tracker performance over active and closed
// positions combined.
type TrackerStats struct {
	TotalTrades     int
	WinningTrades   int
	LosingTrades    int
	WinRate         float64
	TotalPnL        float64
	ActivePositions int
}
