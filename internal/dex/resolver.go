package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"autoswap/internal/model"
)

// FeeTiers is the full set of V3 fee tiers in hundredths of a bip.
var FeeTiers = []uint32{100, 500, 3000, 10000}

// Resolver locates the on-chain pool for a token pair. Lookup strategies are
// evaluated in order and the first hit wins; tokens in the returned Pool are
// reordered to match the contract's token0/token1.
type Resolver struct {
	caller ContractCaller
	net    model.NetworkContext
	logger *zap.Logger
}

func NewResolver(caller ContractCaller, net model.NetworkContext, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{caller: caller, net: net, logger: logger}
}

type candidate struct {
	address common.Address
	found   bool
}

type strategy struct {
	attempt Attempt
	lookup  func(ctx context.Context) (candidate, error)
}

// Resolve finds the pool for the pair, preferring feeHint, then the
// remaining fee tiers in both orderings, then the configured known-pool
// table. Returns PoolNotFoundError when everything misses.
func (r *Resolver) Resolve(ctx context.Context, tokenA, tokenB model.Token, feeHint uint32) (model.Pool, error) {
	if tokenA.ChainID != tokenB.ChainID {
		return model.Pool{}, fmt.Errorf("tokens on different chains: %d vs %d", tokenA.ChainID, tokenB.ChainID)
	}

	strategies := r.buildStrategies(tokenA, tokenB, feeHint)

	attempts := make([]Attempt, 0, len(strategies))
	for _, s := range strategies {
		cand, err := s.lookup(ctx)
		if err != nil {
			return model.Pool{}, err
		}
		if cand.found {
			r.logger.Debug("pool located",
				zap.String("pool", cand.address.Hex()),
				zap.String("token_a", tokenA.Symbol),
				zap.String("token_b", tokenB.Symbol),
			)
			return r.readPool(ctx, cand.address, tokenA, tokenB)
		}
		if s.attempt != (Attempt{}) {
			attempts = append(attempts, s.attempt)
		}
	}

	return model.Pool{}, &PoolNotFoundError{TokenA: tokenA, TokenB: tokenB, Attempts: attempts}
}

func (r *Resolver) buildStrategies(tokenA, tokenB model.Token, feeHint uint32) []strategy {
	strategies := []strategy{
		r.factoryStrategy(tokenA.Address, tokenB.Address, feeHint),
		r.factoryStrategy(tokenB.Address, tokenA.Address, feeHint),
	}
	for _, tier := range FeeTiers {
		if tier == feeHint {
			continue
		}
		strategies = append(strategies,
			r.factoryStrategy(tokenA.Address, tokenB.Address, tier),
			r.factoryStrategy(tokenB.Address, tokenA.Address, tier),
		)
	}
	strategies = append(strategies, r.knownPoolStrategy(tokenA.Symbol, tokenB.Symbol))
	return strategies
}

func (r *Resolver) factoryStrategy(token0, token1 common.Address, fee uint32) strategy {
	return strategy{
		attempt: Attempt{TokenA: token0, TokenB: token1, Fee: fee},
		lookup: func(ctx context.Context) (candidate, error) {
			parsed, err := FactoryABI()
			if err != nil {
				return candidate{}, fmt.Errorf("parse factory abi: %w", err)
			}
			values, err := callMethod(ctx, r.caller, r.net.Factory, parsed, "getPool", token0, token1, big.NewInt(int64(fee)))
			if err != nil {
				r.logger.Debug("getPool call failed",
					zap.String("token0", token0.Hex()),
					zap.String("token1", token1.Hex()),
					zap.Uint32("fee", fee),
					zap.Error(err),
				)
				return candidate{}, nil
			}
			addr, err := asAddress(values[0])
			if err != nil {
				return candidate{}, fmt.Errorf("getPool: %w", err)
			}
			if addr == (common.Address{}) {
				return candidate{}, nil
			}
			return candidate{address: addr, found: true}, nil
		},
	}
}

func (r *Resolver) knownPoolStrategy(symbolA, symbolB string) strategy {
	return strategy{
		lookup: func(ctx context.Context) (candidate, error) {
			addr, ok := r.net.KnownPool(symbolA, symbolB)
			if !ok {
				return candidate{}, nil
			}
			return candidate{address: addr, found: true}, nil
		},
	}
}

// readPool loads the pool's immutables and current state and returns a Pool
// with tokens in canonical order.
func (r *Resolver) readPool(ctx context.Context, pool common.Address, tokenA, tokenB model.Token) (model.Pool, error) {
	parsed, err := V3PoolABI()
	if err != nil {
		return model.Pool{}, fmt.Errorf("parse pool abi: %w", err)
	}

	values, err := callMethod(ctx, r.caller, pool, parsed, "token0")
	if err != nil {
		return model.Pool{}, err
	}
	token0Addr, err := asAddress(values[0])
	if err != nil {
		return model.Pool{}, fmt.Errorf("token0: %w", err)
	}

	values, err = callMethod(ctx, r.caller, pool, parsed, "token1")
	if err != nil {
		return model.Pool{}, err
	}
	token1Addr, err := asAddress(values[0])
	if err != nil {
		return model.Pool{}, fmt.Errorf("token1: %w", err)
	}

	values, err = callMethod(ctx, r.caller, pool, parsed, "fee")
	if err != nil {
		return model.Pool{}, err
	}
	feeInt, err := asBigInt(values[0])
	if err != nil {
		return model.Pool{}, fmt.Errorf("fee: %w", err)
	}

	values, err = callMethod(ctx, r.caller, pool, parsed, "liquidity")
	if err != nil {
		return model.Pool{}, err
	}
	liquidity, err := asBigInt(values[0])
	if err != nil {
		return model.Pool{}, fmt.Errorf("liquidity: %w", err)
	}

	values, err = callMethod(ctx, r.caller, pool, parsed, "slot0")
	if err != nil {
		return model.Pool{}, err
	}
	if len(values) < 2 {
		return model.Pool{}, fmt.Errorf("slot0: short response")
	}
	sqrtPrice, err := asBigInt(values[0])
	if err != nil {
		return model.Pool{}, fmt.Errorf("slot0 sqrt price: %w", err)
	}
	tickInt, err := asBigInt(values[1])
	if err != nil {
		return model.Pool{}, fmt.Errorf("slot0 tick: %w", err)
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return model.Pool{}, fmt.Errorf("slot0 tick: %w", err)
	}

	token0, token1 := tokenA, tokenB
	switch {
	case tokenA.Address == token0Addr && tokenB.Address == token1Addr:
	case tokenB.Address == token0Addr && tokenA.Address == token1Addr:
		token0, token1 = tokenB, tokenA
	default:
		return model.Pool{}, fmt.Errorf("pool %s tokens %s/%s do not match pair %s/%s",
			pool.Hex(), token0Addr.Hex(), token1Addr.Hex(), tokenA.Address.Hex(), tokenB.Address.Hex())
	}

	return model.Pool{
		Address:      pool,
		Token0:       token0,
		Token1:       token1,
		Fee:          uint32(feeInt.Uint64()),
		Tick:         tick,
		Liquidity:    liquidity,
		SqrtPriceX96: sqrtPrice,
	}, nil
}
