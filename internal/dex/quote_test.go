package dex

import (
	"errors"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"autoswap/internal/model"
)

func testPool(liquidity *big.Int, sqrtPrice *big.Int) model.Pool {
	tokenA, tokenB := testPair()
	token0, token1 := tokenA, tokenB
	if token1.Address.Hex() < token0.Address.Hex() {
		token0, token1 = token1, token0
	}
	return model.Pool{
		Address:      common.HexToAddress("0x9999999999999999999999999999999999999999"),
		Token0:       token0,
		Token1:       token1,
		Fee:          3000,
		Liquidity:    liquidity,
		SqrtPriceX96: sqrtPrice,
	}
}

func TestPoolPriceUnitSqrtPrice(t *testing.T) {
	pool := testPool(big.NewInt(1), new(big.Int).Lsh(big.NewInt(1), 96))
	pool.Token0.Decimals = 18
	pool.Token1.Decimals = 18

	price, err := PoolPrice(pool)
	if err != nil {
		t.Fatalf("pool price: %v", err)
	}
	if math.Abs(price-1.0) > 1e-12 {
		t.Fatalf("expected price 1.0, got %g", price)
	}
}

func TestPoolPriceDecimalsScaling(t *testing.T) {
	pool := testPool(big.NewInt(1), new(big.Int).Lsh(big.NewInt(1), 96))
	pool.Token0.Decimals = 18
	pool.Token1.Decimals = 6

	price, err := PoolPrice(pool)
	if err != nil {
		t.Fatalf("pool price: %v", err)
	}
	if math.Abs(price-1e12) > 1 {
		t.Fatalf("expected price 1e12, got %g", price)
	}
}

func TestPoolPriceRejectsZeroSqrtPrice(t *testing.T) {
	pool := testPool(big.NewInt(1), big.NewInt(0))
	if _, err := PoolPrice(pool); err == nil {
		t.Fatalf("expected error for zero sqrt price")
	}
}

func TestEffectiveSlippagePct(t *testing.T) {
	cases := []struct {
		name      string
		requested float64
		impact    float64
		want      float64
	}{
		{"floor wins", 0.5, 0.1, 5.0},
		{"impact doubled wins", 0.5, 4.0, 8.0},
		{"requested wins", 12.0, 4.0, 12.0},
		{"impact beats requested", 6.0, 4.0, 8.0},
	}
	for _, tc := range cases {
		got := EffectiveSlippagePct(tc.requested, tc.impact)
		if got != tc.want {
			t.Fatalf("%s: EffectiveSlippagePct(%g, %g) = %g, want %g", tc.name, tc.requested, tc.impact, got, tc.want)
		}
	}
}

func TestPriceImpactPct(t *testing.T) {
	pool := testPool(big.NewInt(1_000_000_000), new(big.Int).Lsh(big.NewInt(1), 96))
	tokenIn := pool.Token0
	tokenIn.Decimals = 6

	// 1.0 token = 1e6 units; 1e6 * 10000 / 1e9 = 10, over 100 gives 0.1%.
	impact, err := PriceImpactPct(pool, tokenIn, decimal.NewFromInt(1))
	if err != nil {
		t.Fatalf("price impact: %v", err)
	}
	if math.Abs(impact-0.1) > 1e-9 {
		t.Fatalf("expected impact 0.1, got %g", impact)
	}
}

func TestPriceImpactZeroLiquidity(t *testing.T) {
	pool := testPool(big.NewInt(0), new(big.Int).Lsh(big.NewInt(1), 96))

	_, err := PriceImpactPct(pool, pool.Token0, decimal.NewFromInt(1))
	var zero *ZeroLiquidityError
	if !errors.As(err, &zero) {
		t.Fatalf("expected ZeroLiquidityError, got %v", err)
	}
}

func deepLiquidity() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil)
}

func TestBuildQuoteMinOutputBelowRaw(t *testing.T) {
	pool := testPool(deepLiquidity(), new(big.Int).Lsh(big.NewInt(1), 96))
	pool.Token0.Decimals = 18
	pool.Token1.Decimals = 18

	quote, err := BuildQuote(pool, pool.Token0, decimal.NewFromInt(10), 0.5)
	if err != nil {
		t.Fatalf("build quote: %v", err)
	}
	if !quote.MinAmountOut.LessThan(quote.AmountOut) {
		t.Fatalf("min output %s not below raw output %s", quote.MinAmountOut, quote.AmountOut)
	}
	if quote.MinAmountOut.Sign() <= 0 {
		t.Fatalf("min output %s not positive", quote.MinAmountOut)
	}
	if quote.SlippagePct < SlippageFloorPct {
		t.Fatalf("slippage %g below floor", quote.SlippagePct)
	}
	if quote.TokenOut.Address != pool.Token1.Address {
		t.Fatalf("wrong output token %s", quote.TokenOut.Symbol)
	}
}

func TestBuildQuoteInvertsForToken1Input(t *testing.T) {
	pool := testPool(deepLiquidity(), new(big.Int).Lsh(big.NewInt(2), 96))
	pool.Token0.Decimals = 18
	pool.Token1.Decimals = 18

	// sqrtPrice of 2*2^96 means token0 trades at 4 token1. Spending token1
	// must use the inverted price.
	quote, err := BuildQuote(pool, pool.Token1, decimal.NewFromInt(4), 0.5)
	if err != nil {
		t.Fatalf("build quote: %v", err)
	}
	raw, _ := quote.AmountOut.Float64()
	if math.Abs(raw-1.0) > 1e-9 {
		t.Fatalf("expected raw output near 1.0, got %g", raw)
	}
	if quote.TokenOut.Address != pool.Token0.Address {
		t.Fatalf("wrong output token %s", quote.TokenOut.Symbol)
	}
}

func TestBuildQuoteZeroLiquidity(t *testing.T) {
	pool := testPool(big.NewInt(0), new(big.Int).Lsh(big.NewInt(1), 96))

	_, err := BuildQuote(pool, pool.Token0, decimal.NewFromInt(1), 0.5)
	var zero *ZeroLiquidityError
	if !errors.As(err, &zero) {
		t.Fatalf("expected ZeroLiquidityError, got %v", err)
	}
}

func TestBuildQuoteRejectsForeignToken(t *testing.T) {
	pool := testPool(big.NewInt(1_000_000), new(big.Int).Lsh(big.NewInt(1), 96))
	stranger := model.NewToken(97, common.HexToAddress("0xCcCCccccCCCCcCCCCCCcCcCccCcCCCcCcccccccC"), 18, "WETH")

	if _, err := BuildQuote(pool, stranger, decimal.NewFromInt(1), 0.5); err == nil {
		t.Fatalf("expected error for token outside the pool")
	}
}

func TestSwapCallEncodeDecodeRoundTrip(t *testing.T) {
	pool := testPool(deepLiquidity(), new(big.Int).Lsh(big.NewInt(1), 96))
	pool.Token0.Decimals = 18
	pool.Token1.Decimals = 6

	quote, err := BuildQuote(pool, pool.Token0, decimal.RequireFromString("0.25"), 0.5)
	if err != nil {
		t.Fatalf("build quote: %v", err)
	}

	recipient := common.HexToAddress("0xDdDdddDDDdDdDDddDDdDDDDdddDddDDdDdddDDDd")
	now := time.Unix(1_700_000_000, 0)
	call := BuildSwapCall(quote, recipient, now)

	if call.Deadline.Int64() != now.Add(swapDeadline).Unix() {
		t.Fatalf("deadline %d, want %d", call.Deadline.Int64(), now.Add(swapDeadline).Unix())
	}
	if call.AmountIn.Cmp(big.NewInt(250_000_000_000_000_000)) != 0 {
		t.Fatalf("amount in units %s", call.AmountIn)
	}
	if call.SqrtPriceLimitX96.Sign() != 0 {
		t.Fatalf("sqrt price limit must be zero")
	}

	data, err := EncodeSwapCall(call)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeSwapCall(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.TokenIn != call.TokenIn || decoded.TokenOut != call.TokenOut {
		t.Fatalf("token mismatch after round trip")
	}
	if decoded.Fee != call.Fee {
		t.Fatalf("fee %d, want %d", decoded.Fee, call.Fee)
	}
	if decoded.Recipient != call.Recipient {
		t.Fatalf("recipient mismatch")
	}
	if decoded.Deadline.Cmp(call.Deadline) != 0 ||
		decoded.AmountIn.Cmp(call.AmountIn) != 0 ||
		decoded.AmountOutMinimum.Cmp(call.AmountOutMinimum) != 0 ||
		decoded.SqrtPriceLimitX96.Cmp(call.SqrtPriceLimitX96) != 0 {
		t.Fatalf("numeric fields mismatch after round trip")
	}
}

func TestDecodeSwapCallRejectsWrongSelector(t *testing.T) {
	if _, err := DecodeSwapCall([]byte{0xde, 0xad, 0xbe, 0xef, 0x00}); err == nil {
		t.Fatalf("expected selector mismatch error")
	}
}
