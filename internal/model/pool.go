package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Pool captures the on-chain state of a V3 pool. Token0 and Token1 always
// match the contract's own ordering (token0 < token1 by address), no matter
// which order the caller supplied.
type Pool struct {
	Address      common.Address
	Token0       Token
	Token1       Token
	Fee          uint32
	Tick         int32
	Liquidity    *big.Int
	SqrtPriceX96 *big.Int
}

// HasLiquidity reports whether the pool carries nonzero active liquidity.
func (p Pool) HasLiquidity() bool {
	return p.Liquidity != nil && p.Liquidity.Sign() > 0
}
