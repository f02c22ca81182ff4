package decision

// Indicator windows used by the rule engine.
const (
	ShortMAWindow  = 5
	LongMAWindow   = 20
	RSIWindow      = 14
	ChangeLookback = 24
)

// SMA returns the simple moving average over the trailing window. ok is
// false when the history is shorter than the window.
func SMA(prices []float64, window int) (float64, bool) {
	if window <= 0 || len(prices) < window {
		return 0, false
	}
	sum := 0.0
	for _, p := range prices[len(prices)-window:] {
		sum += p
	}
	return sum / float64(window), true
}

// RSI computes the relative strength index over the trailing window using
// plain averages of gains and losses. Histories no longer than the window
// yield the neutral 50; a window with no losses yields 100.
func RSI(prices []float64, window int) float64 {
	if window <= 0 || len(prices) <= window {
		return 50
	}

	gains := 0.0
	losses := 0.0
	for i := len(prices) - window; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}

	if losses == 0 {
		if gains == 0 {
			return 50
		}
		return 100
	}

	avgGain := gains / float64(window)
	avgLoss := losses / float64(window)
	return 100 - 100/(1+avgGain/avgLoss)
}

// ChangePct returns the percentage change between the price lookback
// samples ago and the latest price. ok is false when the history is too
// short or the base price is zero.
func ChangePct(prices []float64, lookback int) (float64, bool) {
	if lookback <= 0 || len(prices) <= lookback {
		return 0, false
	}
	base := prices[len(prices)-1-lookback]
	if base == 0 {
		return 0, false
	}
	return (prices[len(prices)-1] - base) / base * 100, true
}
