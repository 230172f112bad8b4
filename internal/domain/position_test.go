package domain

import (
	"math"
	"testing"
	"time"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBullCallValue(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	pos := SpreadPosition{
		Type:       SpreadBullCall,
		BuyStrike:  100,
		SellStrike: 105,
		MaxProfit:  50,
		ExpiresAt:  now.Add(7 * 24 * time.Hour),
	}

	if v := pos.Value(99, now); v != 0 {
		t.Errorf("price below buy strike: got %v, want 0", v)
	}
	if v := pos.Value(100, now); v != 0 {
		t.Errorf("price at buy strike: got %v, want 0", v)
	}
	if v := pos.Value(106, now); v != 50 {
		t.Errorf("price above sell strike: got %v, want 50", v)
	}
	// Midpoint with full time remaining: half of max profit.
	if v := pos.Value(102.5, now); !almostEqual(v, 25) {
		t.Errorf("midpoint value: got %v, want 25", v)
	}
}

func TestBearPutValue(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	pos := SpreadPosition{
		Type:       SpreadBearPut,
		BuyStrike:  100,
		SellStrike: 95,
		MaxProfit:  50,
		ExpiresAt:  now.Add(7 * 24 * time.Hour),
	}

	if v := pos.Value(101, now); v != 0 {
		t.Errorf("price above buy strike: got %v, want 0", v)
	}
	if v := pos.Value(94, now); v != 50 {
		t.Errorf("price below sell strike: got %v, want 50", v)
	}
	if v := pos.Value(97.5, now); !almostEqual(v, 25) {
		t.Errorf("midpoint value: got %v, want 25", v)
	}
}

func TestValueTimeDecay(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	pos := SpreadPosition{
		Type:       SpreadBullCall,
		BuyStrike:  100,
		SellStrike: 105,
		MaxProfit:  50,
		ExpiresAt:  now.Add(7 * 24 * time.Hour),
	}

	// Half the window gone halves the interpolated value.
	halfway := now.Add(3*24*time.Hour + 12*time.Hour)
	if v := pos.Value(102.5, halfway); !almostEqual(v, 12.5) {
		t.Errorf("midpoint value at half decay: got %v, want 12.5", v)
	}

	// Decay only scales the region between the strikes.
	if v := pos.Value(106, halfway); v != 50 {
		t.Errorf("in-the-money value at half decay: got %v, want 50", v)
	}
}

func TestTimeDecayFloorsAtZero(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	pos := SpreadPosition{ExpiresAt: now.Add(-time.Hour)}
	if d := pos.TimeDecay(now); d != 0 {
		t.Errorf("decay past expiry: got %v, want 0", d)
	}

	pos = SpreadPosition{
		Type:       SpreadBullCall,
		BuyStrike:  100,
		SellStrike: 105,
		MaxProfit:  50,
		ExpiresAt:  now.Add(-time.Hour),
	}
	if v := pos.Value(102.5, now); v != 0 {
		t.Errorf("midpoint value past expiry: got %v, want 0", v)
	}
}
