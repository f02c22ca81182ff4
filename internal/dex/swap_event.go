package dex

import (
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"autoswap/internal/model"
)

// SwapEvent is the decoded Swap log emitted by the pool. Amounts follow the
// pool's sign convention: positive flows into the pool, negative flows out.
type SwapEvent struct {
	Amount0 decimal.Decimal
	Amount1 decimal.Decimal
}

// DecodeSwapEvent finds and decodes the pool's Swap log among the receipt
// logs. Returns false when the receipt carries no Swap log for the pool.
func DecodeSwapEvent(pool model.Pool, logs []*types.Log) (SwapEvent, bool, error) {
	parsed, err := V3PoolABI()
	if err != nil {
		return SwapEvent{}, false, fmt.Errorf("parse pool abi: %w", err)
	}
	event := parsed.Events["Swap"]

	for _, entry := range logs {
		if entry == nil || entry.Address != pool.Address {
			continue
		}
		if len(entry.Topics) == 0 || entry.Topics[0] != event.ID {
			continue
		}

		values, err := event.Inputs.NonIndexed().Unpack(entry.Data)
		if err != nil {
			return SwapEvent{}, false, fmt.Errorf("unpack swap event: %w", err)
		}
		if len(values) != 5 {
			return SwapEvent{}, false, fmt.Errorf("unexpected swap values: %d", len(values))
		}

		amount0, err := asBigInt(values[0])
		if err != nil {
			return SwapEvent{}, false, fmt.Errorf("swap amount0: %w", err)
		}
		amount1, err := asBigInt(values[1])
		if err != nil {
			return SwapEvent{}, false, fmt.Errorf("swap amount1: %w", err)
		}

		return SwapEvent{
			Amount0: decimal.NewFromBigInt(amount0, -int32(pool.Token0.Decimals)),
			Amount1: decimal.NewFromBigInt(amount1, -int32(pool.Token1.Decimals)),
		}, true, nil
	}

	return SwapEvent{}, false, nil
}

// OutputFor returns the human-unit amount the pool paid out in tokenOut.
func (e SwapEvent) OutputFor(pool model.Pool, tokenOut model.Token) (decimal.Decimal, error) {
	var amount decimal.Decimal
	switch {
	case tokenOut.Equal(pool.Token0):
		amount = e.Amount0
	case tokenOut.Equal(pool.Token1):
		amount = e.Amount1
	default:
		return decimal.Decimal{}, fmt.Errorf("token %s is not in pool %s", tokenOut.Symbol, pool.Address.Hex())
	}
	if amount.Sign() > 0 {
		return decimal.Decimal{}, fmt.Errorf("pool did not pay out %s", tokenOut.Symbol)
	}
	return amount.Neg(), nil
}
