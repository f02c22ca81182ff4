package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Action is the direction of a trading decision.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// ValidAction reports whether the string is one of BUY, SELL, HOLD.
func ValidAction(s string) bool {
	switch Action(s) {
	case ActionBuy, ActionSell, ActionHold:
		return true
	}
	return false
}

// TradingDecision is the output of the decision engine for one tick.
// Confidence is clamped to [0,1]. It carries no side effects.
type TradingDecision struct {
	Action      Action
	Confidence  float64
	Amount      decimal.Decimal
	Reasoning   []string
	SlippagePct float64
}

// TradeRecord is one executed trade kept in the bounded in-memory history.
type TradeRecord struct {
	Time   time.Time       `json:"time"`
	Action Action          `json:"action"`
	Amount decimal.Decimal `json:"amount"`
	Price  float64         `json:"price"`
	TxHash string          `json:"tx_hash,omitempty"`
}
