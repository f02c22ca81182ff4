package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Quote prices a prospective trade against a pool. Amounts are in human
// units of the respective token. MinAmountOut is always at most AmountOut
// whenever SlippagePct is positive.
type Quote struct {
	TokenIn      Token
	TokenOut     Token
	AmountIn     decimal.Decimal
	AmountOut    decimal.Decimal
	ImpactPct    float64
	SlippagePct  float64
	MinAmountOut decimal.Decimal
	Pool         Pool
}

// SwapCall is the wire-level parameter tuple of the router's
// exactInputSingle method.
type SwapCall struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               uint32
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}
