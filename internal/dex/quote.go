package dex

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"autoswap/internal/model"
)

const (
	// SlippageFloorPct is the minimum effective slippage. The target
	// networks run thin pools; quoting tighter than this gets reverted
	// swaps in practice.
	SlippageFloorPct = 5.0

	// swapDeadline is the wall-clock horizon after which a submitted swap
	// is invalid.
	swapDeadline = 300 * time.Second
)

// PoolPrice derives the human-unit price of token0 in token1 from the
// pool's Q64.96 sqrt price.
func PoolPrice(pool model.Pool) (float64, error) {
	if pool.SqrtPriceX96 == nil || pool.SqrtPriceX96.Sign() <= 0 {
		return 0, fmt.Errorf("pool %s has no price", pool.Address.Hex())
	}

	q96 := new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 96))
	ratio := new(big.Float).Quo(new(big.Float).SetInt(pool.SqrtPriceX96), q96)
	price := new(big.Float).Mul(ratio, ratio)

	exp := int(pool.Token0.Decimals) - int(pool.Token1.Decimals)
	if exp != 0 {
		scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(abs(exp))), nil))
		if exp > 0 {
			price.Mul(price, scale)
		} else {
			price.Quo(price, scale)
		}
	}

	value, _ := price.Float64()
	if math.IsInf(value, 0) || math.IsNaN(value) || value <= 0 {
		return 0, fmt.Errorf("pool %s price is not a positive finite number", pool.Address.Hex())
	}
	return value, nil
}

// EffectiveSlippagePct returns the slippage tolerance actually applied:
// never below the floor, and at least twice the estimated impact.
func EffectiveSlippagePct(requestedPct, impactPct float64) float64 {
	effective := requestedPct
	if doubled := 2 * impactPct; doubled > effective {
		effective = doubled
	}
	if SlippageFloorPct > effective {
		effective = SlippageFloorPct
	}
	return effective
}

// PriceImpactPct estimates the price impact of trading amountIn (human
// units of tokenIn) against the pool's active liquidity. This is a linear
// approximation of amountIn over liquidity, not an integration over the
// tick curve; near tick boundaries it can misestimate.
func PriceImpactPct(pool model.Pool, tokenIn model.Token, amountIn decimal.Decimal) (float64, error) {
	if !pool.HasLiquidity() {
		return 0, &ZeroLiquidityError{Pool: pool.Address}
	}

	units := amountIn.Shift(int32(tokenIn.Decimals)).BigInt()
	scaled := new(big.Int).Mul(units, big.NewInt(10000))
	impact := new(big.Float).Quo(new(big.Float).SetInt(scaled), new(big.Float).SetInt(pool.Liquidity))
	value, _ := impact.Float64()
	value /= 100

	if math.IsInf(value, 0) || math.IsNaN(value) || value < 0 {
		return 0, &InvalidQuoteError{Reason: "price impact is not a finite non-negative number"}
	}
	return value, nil
}

// BuildQuote prices a trade of amountIn tokenIn against the pool and
// computes the slippage-protected minimum output. tokenIn must be one of
// the pool's tokens.
func BuildQuote(pool model.Pool, tokenIn model.Token, amountIn decimal.Decimal, requestedSlippagePct float64) (model.Quote, error) {
	if !pool.HasLiquidity() {
		return model.Quote{}, &ZeroLiquidityError{Pool: pool.Address}
	}
	if amountIn.Sign() <= 0 {
		return model.Quote{}, &InvalidQuoteError{Reason: "input amount must be positive"}
	}

	price, err := PoolPrice(pool)
	if err != nil {
		return model.Quote{}, err
	}

	var tokenOut model.Token
	switch {
	case tokenIn.Equal(pool.Token0):
		tokenOut = pool.Token1
	case tokenIn.Equal(pool.Token1):
		tokenOut = pool.Token0
		price = 1 / price
	default:
		return model.Quote{}, fmt.Errorf("token %s is not in pool %s", tokenIn.Symbol, pool.Address.Hex())
	}

	rawOut := amountIn.Mul(decimal.NewFromFloat(price))

	impact, err := PriceImpactPct(pool, tokenIn, amountIn)
	if err != nil {
		return model.Quote{}, err
	}

	slippage := EffectiveSlippagePct(requestedSlippagePct, impact)
	minOut := rawOut.Mul(decimal.NewFromFloat(1 - slippage/100))
	if minOut.Sign() <= 0 {
		return model.Quote{}, &InvalidQuoteError{Reason: fmt.Sprintf("minimum output %s is not positive", minOut)}
	}

	return model.Quote{
		TokenIn:      tokenIn,
		TokenOut:     tokenOut,
		AmountIn:     amountIn,
		AmountOut:    rawOut,
		ImpactPct:    impact,
		SlippagePct:  slippage,
		MinAmountOut: minOut,
		Pool:         pool,
	}, nil
}

// BuildSwapCall converts a quote into the router's exactInputSingle
// parameter tuple. sqrtPriceLimitX96 is zero: the min-output bound is the
// only price protection.
func BuildSwapCall(quote model.Quote, recipient common.Address, now time.Time) model.SwapCall {
	deadline := now.Add(swapDeadline)
	return model.SwapCall{
		TokenIn:           quote.TokenIn.Address,
		TokenOut:          quote.TokenOut.Address,
		Fee:               quote.Pool.Fee,
		Recipient:         recipient,
		Deadline:          big.NewInt(deadline.Unix()),
		AmountIn:          quote.AmountIn.Shift(int32(quote.TokenIn.Decimals)).BigInt(),
		AmountOutMinimum:  quote.MinAmountOut.Shift(int32(quote.TokenOut.Decimals)).BigInt(),
		SqrtPriceLimitX96: big.NewInt(0),
	}
}

type exactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

// EncodeSwapCall packs a SwapCall against the router ABI.
func EncodeSwapCall(call model.SwapCall) ([]byte, error) {
	parsed, err := RouterABI()
	if err != nil {
		return nil, fmt.Errorf("parse router abi: %w", err)
	}
	params := exactInputSingleParams{
		TokenIn:           call.TokenIn,
		TokenOut:          call.TokenOut,
		Fee:               big.NewInt(int64(call.Fee)),
		Recipient:         call.Recipient,
		Deadline:          call.Deadline,
		AmountIn:          call.AmountIn,
		AmountOutMinimum:  call.AmountOutMinimum,
		SqrtPriceLimitX96: call.SqrtPriceLimitX96,
	}
	data, err := parsed.Pack("exactInputSingle", params)
	if err != nil {
		return nil, fmt.Errorf("pack exactInputSingle: %w", err)
	}
	return data, nil
}

// DecodeSwapCall unpacks exactInputSingle calldata back into a SwapCall.
func DecodeSwapCall(data []byte) (model.SwapCall, error) {
	parsed, err := RouterABI()
	if err != nil {
		return model.SwapCall{}, fmt.Errorf("parse router abi: %w", err)
	}
	method := parsed.Methods["exactInputSingle"]
	if len(data) < 4 {
		return model.SwapCall{}, fmt.Errorf("calldata too short")
	}
	if string(data[:4]) != string(method.ID) {
		return model.SwapCall{}, fmt.Errorf("selector mismatch")
	}

	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return model.SwapCall{}, fmt.Errorf("unpack exactInputSingle: %w", err)
	}
	if len(values) != 1 {
		return model.SwapCall{}, fmt.Errorf("unexpected argument count %d", len(values))
	}

	params := *abi.ConvertType(values[0], new(exactInputSingleParams)).(*exactInputSingleParams)
	return model.SwapCall{
		TokenIn:           params.TokenIn,
		TokenOut:          params.TokenOut,
		Fee:               uint32(params.Fee.Uint64()),
		Recipient:         params.Recipient,
		Deadline:          params.Deadline,
		AmountIn:          params.AmountIn,
		AmountOutMinimum:  params.AmountOutMinimum,
		SqrtPriceLimitX96: params.SqrtPriceLimitX96,
	}, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
