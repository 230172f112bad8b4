package domain

import "slices"

// RiskLimits bounds what the routing layer will send to a broker. The zero
// value blocks everything; limits are seeded from configuration at startup
// and replaced only through the risk service's guarded update entry point.
type RiskLimits struct {
	MaxOrderValue      float64
	MaxDailyLoss       float64
	MaxPositionSize    float64
	MaxOpenPositions   int
	AllowedSymbols     []string
	MarketHoursOnly    bool
	MaxOrdersPerMinute int
}

// SymbolAllowed reports whether symbol is on the allow-list.
func (l RiskLimits) SymbolAllowed(symbol string) bool {
	return slices.Contains(l.AllowedSymbols, symbol)
}

// RiskLimitsPatch updates a subset of RiskLimits fields. Nil fields leave the
// current value untouched; present fields are applied as-is, with no
// field-level validation.
type RiskLimitsPatch struct {
	MaxOrderValue      *float64
	MaxDailyLoss       *float64
	MaxPositionSize    *float64
	MaxOpenPositions   *int
	AllowedSymbols     *[]string
	MarketHoursOnly    *bool
	MaxOrdersPerMinute *int
}

// Apply shallow-merges the patch into the limits.
func (l *RiskLimits) Apply(p RiskLimitsPatch) {
	if p.MaxOrderValue != nil {
		l.MaxOrderValue = *p.MaxOrderValue
	}
	if p.MaxDailyLoss != nil {
		l.MaxDailyLoss = *p.MaxDailyLoss
	}
	if p.MaxPositionSize != nil {
		l.MaxPositionSize = *p.MaxPositionSize
	}
	if p.MaxOpenPositions != nil {
		l.MaxOpenPositions = *p.MaxOpenPositions
	}
	if p.AllowedSymbols != nil {
		l.AllowedSymbols = slices.Clone(*p.AllowedSymbols)
	}
	if p.MarketHoursOnly != nil {
		l.MarketHoursOnly = *p.MarketHoursOnly
	}
	if p.MaxOrdersPerMinute != nil {
		l.MaxOrdersPerMinute = *p.MaxOrdersPerMinute
	}
}

// CancellationReport is one entry of an emergency-stop report: the outcome of
// a single cancel attempt, or a per-broker failure when listing open orders
// was itself impossible.
type CancellationReport struct {
	Broker  BrokerName
	OrderID string
	Status  OrderStatus
	Error   string
}
