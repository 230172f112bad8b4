package domain

import (
	"slices"
	"testing"
)

func TestRiskLimitsApply(t *testing.T) {
	limits := RiskLimits{
		MaxOrderValue:      10000,
		MaxDailyLoss:       500,
		AllowedSymbols:     []string{"RELIANCE", "BTCINR"},
		MarketHoursOnly:    true,
		MaxOrdersPerMinute: 10,
	}

	newValue := 20000.0
	symbols := []string{"BTCINR"}
	limits.Apply(RiskLimitsPatch{
		MaxOrderValue:  &newValue,
		AllowedSymbols: &symbols,
	})

	if limits.MaxOrderValue != 20000 {
		t.Errorf("MaxOrderValue = %v, want 20000", limits.MaxOrderValue)
	}
	if !slices.Equal(limits.AllowedSymbols, []string{"BTCINR"}) {
		t.Errorf("AllowedSymbols = %v, want [BTCINR]", limits.AllowedSymbols)
	}
	// Untouched fields keep their values.
	if limits.MaxDailyLoss != 500 || !limits.MarketHoursOnly || limits.MaxOrdersPerMinute != 10 {
		t.Errorf("patch touched fields it should not have: %+v", limits)
	}

	// The patch slice is cloned, not aliased.
	symbols[0] = "mutated"
	if limits.AllowedSymbols[0] != "BTCINR" {
		t.Error("Apply aliased the patch's symbol slice")
	}
}

func TestSymbolAllowed(t *testing.T) {
	limits := RiskLimits{AllowedSymbols: []string{"RELIANCE", "BTCINR"}}
	if !limits.SymbolAllowed("BTCINR") {
		t.Error("BTCINR should be allowed")
	}
	if limits.SymbolAllowed("DOGEINR") {
		t.Error("DOGEINR should not be allowed")
	}
}
