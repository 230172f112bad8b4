package signal

import (
	"math"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/infinityai/tradebot/internal/domain"
)

func TestGenerateDeterministicWithSeed(t *testing.T) {
	a := NewGeneratorWithSource(rand.NewPCG(42, 0)).Generate("BTCINR", 4_500_000)
	b := NewGeneratorWithSource(rand.NewPCG(42, 0)).Generate("BTCINR", 4_500_000)

	if a.Direction != b.Direction || a.Confidence != b.Confidence || a.Scores != b.Scores {
		t.Errorf("same seed produced different signals:\n%+v\n%+v", a, b)
	}
	if a.ID == b.ID {
		t.Error("signal ids should be unique even for identical draws")
	}
}

func TestGenerateCompositeWeighting(t *testing.T) {
	g := NewGeneratorWithSource(rand.NewPCG(7, 0))
	sig := g.Generate("BTCINR", 4_500_000)

	want := 0.40*sig.Scores.Pattern + 0.30*sig.Scores.Sentiment + 0.30*sig.Scores.LLM
	if math.Abs(sig.Confidence-want) > 1e-12 {
		t.Errorf("Confidence = %v, want 40/30/30 composite %v", sig.Confidence, want)
	}
}

func TestGenerateBounds(t *testing.T) {
	g := NewGeneratorWithSource(rand.NewPCG(1, 0))
	for i := 0; i < 200; i++ {
		sig := g.Generate("BTCINR", 4_500_000)
		if sig.Confidence < 0 || sig.Confidence >= 1 {
			t.Fatalf("confidence %v out of [0, 1)", sig.Confidence)
		}
		if sig.Direction != domain.SignalBull && sig.Direction != domain.SignalBear {
			t.Fatalf("unexpected direction %q", sig.Direction)
		}
	}
}

func TestGenerateFields(t *testing.T) {
	now := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	g := NewGeneratorWithSource(rand.NewPCG(3, 0))
	g.WithClock(func() time.Time { return now })

	sig := g.Generate("RELIANCE", 2500)

	if sig.Symbol != "RELIANCE" || sig.Price != 2500 {
		t.Errorf("signal carries wrong symbol/price: %+v", sig)
	}
	if !sig.GeneratedAt.Equal(now) {
		t.Errorf("GeneratedAt = %v, want %v", sig.GeneratedAt, now)
	}
	if sig.ID == "" {
		t.Error("signal must have an id")
	}
	// The reasoning names all three sub-scores.
	for _, part := range []string{"pattern score", "sentiment score", "llm score"} {
		if !strings.Contains(sig.Reasoning, part) {
			t.Errorf("reasoning %q missing %q", sig.Reasoning, part)
		}
	}
}
