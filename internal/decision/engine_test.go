package decision

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"autoswap/internal/model"
)

func TestRuleBasedFlatHistoryHolds(t *testing.T) {
	dctx := Context{
		Price:       100,
		RSI:         50,
		Samples:     flatPrices(40, 100),
		TradeAmount: decimal.RequireFromString("0.1"),
	}

	got := RuleBased(dctx)
	if got.Action != model.ActionHold {
		t.Fatalf("action = %s, want HOLD", got.Action)
	}
	if math.Abs(got.Confidence-0.3) > 1e-12 {
		t.Fatalf("confidence = %g, want 0.3", got.Confidence)
	}
}

func TestRuleBasedOversoldBuys(t *testing.T) {
	dctx := Context{
		Price:       90,
		RSI:         25,
		Samples:     flatPrices(40, 100),
		TradeAmount: decimal.RequireFromString("0.1"),
	}

	got := RuleBased(dctx)
	if got.Action != model.ActionBuy {
		t.Fatalf("action = %s, want BUY", got.Action)
	}
	if math.Abs(got.Confidence-0.6) > 1e-12 {
		t.Fatalf("confidence = %g, want 0.6", got.Confidence)
	}
	if len(got.Reasoning) == 0 {
		t.Fatalf("missing reasoning")
	}
}

func TestRuleBasedOverboughtSells(t *testing.T) {
	dctx := Context{RSI: 80, Samples: flatPrices(40, 100)}

	got := RuleBased(dctx)
	if got.Action != model.ActionSell {
		t.Fatalf("action = %s, want SELL", got.Action)
	}
	if math.Abs(got.Confidence-0.6) > 1e-12 {
		t.Fatalf("confidence = %g, want 0.6", got.Confidence)
	}
}

func TestRuleBasedGoldenCross(t *testing.T) {
	// 20 samples at 100, then 5 rising ones: short MA pulls above long MA.
	samples := flatPrices(20, 100)
	for _, p := range []float64{101, 102, 103, 104, 105} {
		samples = append(samples, p)
	}
	dctx := Context{RSI: 50, Samples: samples}

	got := RuleBased(dctx)
	if got.Action != model.ActionBuy {
		t.Fatalf("action = %s, want BUY", got.Action)
	}
	if math.Abs(got.Confidence-0.5) > 1e-12 {
		t.Fatalf("confidence = %g, want 0.5", got.Confidence)
	}
}

func TestRuleBasedConflictPenalty(t *testing.T) {
	// Oversold RSI and dip momentum (buy +0.4) against a death cross
	// (sell +0.2): buy side wins but the conflict costs 0.2.
	samples := flatPrices(20, 100)
	for _, p := range []float64{99, 98, 97, 96, 95} {
		samples = append(samples, p)
	}
	dctx := Context{RSI: 25, Change24Pct: -6, Samples: samples}

	got := RuleBased(dctx)
	if math.Abs(got.Confidence-0.5) > 1e-9 {
		t.Fatalf("confidence = %g, want 0.5", got.Confidence)
	}
	if got.Action != model.ActionBuy {
		t.Fatalf("action = %s, want BUY", got.Action)
	}
	found := false
	for _, r := range got.Reasoning {
		if r == "conflicting buy and sell signals" {
			found = true
		}
	}
	if !found {
		t.Fatalf("conflict not recorded in reasoning: %v", got.Reasoning)
	}
}

func TestRuleBasedLoneMomentumSignal(t *testing.T) {
	// A lone momentum signal (+0.1) sits exactly at the actionable floor.
	dctx := Context{RSI: 50, Change24Pct: 7}

	got := RuleBased(dctx)
	if got.Action != model.ActionSell {
		t.Fatalf("action = %s, want SELL", got.Action)
	}
	if math.Abs(got.Confidence-0.4) > 1e-9 {
		t.Fatalf("confidence = %g, want 0.4", got.Confidence)
	}
}

type stubRecommender struct {
	decision model.TradingDecision
	err      error
	calls    int
}

func (s *stubRecommender) Recommend(_ context.Context, _ Context) (model.TradingDecision, error) {
	s.calls++
	return s.decision, s.err
}

func TestEngineUsesAnalyst(t *testing.T) {
	want := model.TradingDecision{
		Action:     model.ActionSell,
		Confidence: 0.9,
		Reasoning:  []string{"distribution pattern"},
	}
	stub := &stubRecommender{decision: want}
	engine := NewEngine(stub, nil)

	got := engine.Decide(context.Background(), Context{RSI: 50})
	if got.Action != want.Action || got.Confidence != want.Confidence {
		t.Fatalf("decision %+v, want %+v", got, want)
	}
	if stub.calls != 1 {
		t.Fatalf("analyst called %d times", stub.calls)
	}
}

func TestEngineFallsBackOnAnalystError(t *testing.T) {
	stub := &stubRecommender{err: errors.New("upstream 503")}
	engine := NewEngine(stub, nil)

	got := engine.Decide(context.Background(), Context{RSI: 25, Samples: flatPrices(40, 100)})
	if got.Action != model.ActionBuy {
		t.Fatalf("fallback action = %s, want BUY", got.Action)
	}
	if math.Abs(got.Confidence-0.6) > 1e-12 {
		t.Fatalf("fallback confidence = %g, want 0.6", got.Confidence)
	}
}

func TestEngineWithoutAnalyst(t *testing.T) {
	engine := NewEngine(nil, nil)

	got := engine.Decide(context.Background(), Context{RSI: 50, Samples: flatPrices(40, 100)})
	if got.Action != model.ActionHold {
		t.Fatalf("action = %s, want HOLD", got.Action)
	}
}
