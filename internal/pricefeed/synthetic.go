package pricefeed

import (
	"math/rand"
	"sync"
)

// SyntheticSource generates a bounded random walk around the last observed
// price. It stands in for a real market data feed.
type SyntheticSource struct {
	mu            sync.Mutex
	rng           *rand.Rand
	volatilityPct float64
}

func NewSyntheticSource(seed int64, volatilityPct float64) *SyntheticSource {
	if volatilityPct <= 0 {
		volatilityPct = 2.0
	}
	return &SyntheticSource{
		rng:           rand.New(rand.NewSource(seed)),
		volatilityPct: volatilityPct,
	}
}

// Next perturbs the last price by up to ±volatilityPct percent. The result
// never goes non-positive.
func (s *SyntheticSource) Next(last float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last <= 0 {
		last = 1.0
	}
	drift := (s.rng.Float64()*2 - 1) * s.volatilityPct / 100
	next := last * (1 + drift)
	if next <= 0 {
		next = last
	}
	return next
}
