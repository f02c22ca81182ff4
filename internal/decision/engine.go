package decision

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"autoswap/internal/model"
)

const (
	baseConfidence     = 0.3
	minActionableConf  = 0.4
	conflictPenalty    = 0.2
	defaultSlippagePct = 5.0
)

// Context carries everything a decision is based on for one tick.
type Context struct {
	Price        float64            `json:"price"`
	Change24Pct  float64            `json:"change_24h_pct"`
	RSI          float64            `json:"rsi"`
	GasBalance   string             `json:"gas_balance"`
	TokenBalance string             `json:"token_balance"`
	TradeAmount  decimal.Decimal    `json:"trade_amount"`
	RecentTrades []model.TradeRecord `json:"recent_trades,omitempty"`
	Samples      []float64          `json:"samples,omitempty"`
}

// Recommender produces a trading recommendation from a context. The
// analyst client implements it; any failure makes the engine fall back to
// the rule-based path.
type Recommender interface {
	Recommend(ctx context.Context, dctx Context) (model.TradingDecision, error)
}

// Engine turns price history into a TradingDecision. Stateless per call.
type Engine struct {
	analyst Recommender
	logger  *zap.Logger
}

func NewEngine(analyst Recommender, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{analyst: analyst, logger: logger}
}

// Decide asks the analyst when configured and falls back to the rule-based
// decision on any analyst failure. Fallback is invisible to the caller.
func (e *Engine) Decide(ctx context.Context, dctx Context) model.TradingDecision {
	if e.analyst != nil {
		recommendation, err := e.analyst.Recommend(ctx, dctx)
		if err == nil {
			return recommendation
		}
		e.logger.Warn("analyst unavailable, using rule-based decision", zap.Error(err))
	}
	return RuleBased(dctx)
}

// RuleBased applies the additive signal rules: RSI extremes, MA cross,
// and 24-sample momentum. Conflicting buy and sell signals cost a
// confidence penalty; anything below the actionable floor becomes HOLD.
func RuleBased(dctx Context) model.TradingDecision {
	buyScore := 0.0
	sellScore := 0.0
	reasoning := make([]string, 0, 4)

	if dctx.RSI < 30 {
		buyScore += 0.3
		reasoning = append(reasoning, fmt.Sprintf("RSI %.1f oversold", dctx.RSI))
	} else if dctx.RSI > 70 {
		sellScore += 0.3
		reasoning = append(reasoning, fmt.Sprintf("RSI %.1f overbought", dctx.RSI))
	}

	shortMA, shortOK := SMA(dctx.Samples, ShortMAWindow)
	longMA, longOK := SMA(dctx.Samples, LongMAWindow)
	if shortOK && longOK {
		if shortMA > longMA {
			buyScore += 0.2
			reasoning = append(reasoning, "golden cross: short MA above long MA")
		} else if shortMA < longMA {
			sellScore += 0.2
			reasoning = append(reasoning, "death cross: short MA below long MA")
		}
	}

	if dctx.Change24Pct > 5 {
		sellScore += 0.1
		reasoning = append(reasoning, fmt.Sprintf("24h change +%.1f%%, taking profit", dctx.Change24Pct))
	} else if dctx.Change24Pct < -5 {
		buyScore += 0.1
		reasoning = append(reasoning, fmt.Sprintf("24h change %.1f%%, buying the dip", dctx.Change24Pct))
	}

	action := model.ActionHold
	confidence := baseConfidence
	switch {
	case buyScore > sellScore:
		action = model.ActionBuy
		confidence += buyScore
	case sellScore > buyScore:
		action = model.ActionSell
		confidence += sellScore
	}

	if buyScore > 0 && sellScore > 0 {
		confidence -= conflictPenalty
		reasoning = append(reasoning, "conflicting buy and sell signals")
	}

	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	if confidence < minActionableConf {
		action = model.ActionHold
	}

	if len(reasoning) == 0 {
		reasoning = append(reasoning, "no signals fired")
	}

	return model.TradingDecision{
		Action:      action,
		Confidence:  confidence,
		Amount:      dctx.TradeAmount,
		Reasoning:   reasoning,
		SlippagePct: defaultSlippagePct,
	}
}
