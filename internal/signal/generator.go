// Package signal produces mock AI trade signals. The sub-scores are random
// numbers dressed up as pattern recognition, sentiment, and LLM reasoning;
// the numeric contract (40/30/30 weighting, direction, reasoning text) is
// what matters, not the pretend model behind it.
package signal

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/infinityai/tradebot/internal/domain"
)

// Generator builds trade signals for an underlying price. It is safe for
// concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator creates a Generator with a randomly seeded source.
func NewGenerator() *Generator {
	return NewGeneratorWithSource(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// NewGeneratorWithSource creates a Generator over the given source. Tests
// pass a fixed seed for reproducible signals.
func NewGeneratorWithSource(src rand.Source) *Generator {
	return &Generator{
		rng: rand.New(src),
		now: time.Now,
	}
}

// WithClock overrides the time source for tests.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a signal for the symbol at the given underlying price.
// Confidence is the 40/30/30 weighted composite of the three sub-scores, each
// drawn uniformly from [0, 1). The direction comes from a separate uniform
// draw, so it is independent of confidence.
func (g *Generator) Generate(symbol string, price float64) domain.TradeSignal {
	g.mu.Lock()
	scores := domain.SignalScores{
		Pattern:   g.rng.Float64(),
		Sentiment: g.rng.Float64(),
		LLM:       g.rng.Float64(),
	}
	bullish := g.rng.Float64() >= 0.5
	g.mu.Unlock()

	direction := domain.SignalBear
	if bullish {
		direction = domain.SignalBull
	}

	return domain.TradeSignal{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Direction:  direction,
		Confidence: scores.Composite(),
		Reasoning: fmt.Sprintf(
			"%s bias: pattern score %.2f, sentiment score %.2f, llm score %.2f",
			direction, scores.Pattern, scores.Sentiment, scores.LLM,
		),
		Scores:      scores,
		Price:       price,
		GeneratedAt: g.now().UTC(),
	}
}
