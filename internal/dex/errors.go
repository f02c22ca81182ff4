package dex

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"autoswap/internal/model"
)

// Attempt records one factory lookup that returned no pool.
type Attempt struct {
	TokenA common.Address
	TokenB common.Address
	Fee    uint32
}

func (a Attempt) String() string {
	return fmt.Sprintf("(%s, %s, fee=%d)", a.TokenA.Hex(), a.TokenB.Hex(), a.Fee)
}

// PoolNotFoundError reports that no pool exists for the pair, listing every
// ordering and fee tier that was tried.
type PoolNotFoundError struct {
	TokenA   model.Token
	TokenB   model.Token
	Attempts []Attempt
}

func (e *PoolNotFoundError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "no pool found for %s/%s", e.TokenA.Symbol, e.TokenB.Symbol)
	if len(e.Attempts) > 0 {
		sb.WriteString("; tried ")
		for i, attempt := range e.Attempts {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(attempt.String())
		}
	}
	return sb.String()
}

// ZeroLiquidityError reports a pool with no active liquidity.
type ZeroLiquidityError struct {
	Pool common.Address
}

func (e *ZeroLiquidityError) Error() string {
	return fmt.Sprintf("pool %s has zero liquidity", e.Pool.Hex())
}

// InvalidQuoteError reports a quote whose minimum output is not a positive
// finite number.
type InvalidQuoteError struct {
	Reason string
}

func (e *InvalidQuoteError) Error() string {
	return fmt.Sprintf("invalid quote: %s", e.Reason)
}
