package domain

import "time"

// SignalDirection is the predicted move of the underlying.
type SignalDirection string

const (
	SignalBull SignalDirection = "bull"
	SignalBear SignalDirection = "bear"
)

// SignalScores carries the three sub-scores behind a signal's confidence.
// The composite weighting is fixed at 40% pattern, 30% sentiment, 30% LLM.
type SignalScores struct {
	Pattern   float64
	Sentiment float64
	LLM       float64
}

// Composite folds the sub-scores into a single confidence value.
func (s SignalScores) Composite() float64 {
	return 0.40*s.Pattern + 0.30*s.Sentiment + 0.30*s.LLM
}

// TradeSignal is a direction/confidence/reasoning triple produced by the
// signal generator for an underlying price. Confidence below 0.7 never opens
// a position.
type TradeSignal struct {
	ID          string
	Symbol      string
	Direction   SignalDirection
	Confidence  float64
	Reasoning   string
	Scores      SignalScores
	Price       float64
	GeneratedAt time.Time
}

// BotStatus is a summary of the process's current operational state.
type BotStatus struct {
	Mode            string
	UptimeSeconds   int64
	Brokers         []BrokerName
	ActivePositions int
	AutoExecute     bool
}
