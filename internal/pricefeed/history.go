package pricefeed

import (
	"sync"
	"time"
)

// Sample is one observed price point.
type Sample struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// History is an append-only, bounded sequence of price samples for one
// session. Oldest samples are dropped once the cap is reached.
type History struct {
	mu      sync.RWMutex
	samples []Sample
	max     int
}

func NewHistory(max int) *History {
	if max <= 0 {
		max = 500
	}
	return &History{samples: make([]Sample, 0, max), max: max}
}

// Append records a sample, evicting the oldest when full.
func (h *History) Append(sample Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.samples) >= h.max {
		h.samples = h.samples[1:]
	}
	h.samples = append(h.samples, sample)
}

// Prices returns the sample prices oldest-first.
func (h *History) Prices() []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	prices := make([]float64, len(h.samples))
	for i, s := range h.samples {
		prices[i] = s.Price
	}
	return prices
}

// Last returns the most recent sample.
func (h *History) Last() (Sample, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.samples) == 0 {
		return Sample{}, false
	}
	return h.samples[len(h.samples)-1], true
}

// Len returns the number of retained samples.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.samples)
}
