package dex

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"autoswap/internal/model"
)

type fakePoolState struct {
	token0    common.Address
	token1    common.Address
	fee       uint32
	liquidity *big.Int
	sqrtPrice *big.Int
	tick      int32
}

type fakeChain struct {
	factory common.Address
	pools   map[string]common.Address
	state   map[common.Address]fakePoolState
	lookups int
}

func poolKey(token0, token1 common.Address, fee uint32) string {
	return fmt.Sprintf("%s|%s|%d", token0.Hex(), token1.Hex(), fee)
}

func (f *fakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To == nil {
		return nil, errors.New("missing target")
	}
	if len(msg.Data) < 4 {
		return nil, errors.New("calldata too short")
	}

	if *msg.To == f.factory {
		return f.handleFactory(msg.Data)
	}
	if state, ok := f.state[*msg.To]; ok {
		return f.handlePool(state, msg.Data)
	}
	return nil, fmt.Errorf("unexpected target %s", msg.To.Hex())
}

func (f *fakeChain) handleFactory(data []byte) ([]byte, error) {
	parsed, err := FactoryABI()
	if err != nil {
		return nil, err
	}
	method := parsed.Methods["getPool"]
	if string(data[:4]) != string(method.ID) {
		return nil, errors.New("unknown factory method")
	}
	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}
	f.lookups++
	tokenA := values[0].(common.Address)
	tokenB := values[1].(common.Address)
	fee := uint32(values[2].(*big.Int).Uint64())

	pool := f.pools[poolKey(tokenA, tokenB, fee)]
	return method.Outputs.Pack(pool)
}

func (f *fakeChain) handlePool(state fakePoolState, data []byte) ([]byte, error) {
	parsed, err := V3PoolABI()
	if err != nil {
		return nil, err
	}
	for name, method := range parsed.Methods {
		if string(data[:4]) != string(method.ID) {
			continue
		}
		switch name {
		case "token0":
			return method.Outputs.Pack(state.token0)
		case "token1":
			return method.Outputs.Pack(state.token1)
		case "fee":
			return method.Outputs.Pack(big.NewInt(int64(state.fee)))
		case "liquidity":
			return method.Outputs.Pack(state.liquidity)
		case "slot0":
			return method.Outputs.Pack(
				state.sqrtPrice,
				big.NewInt(int64(state.tick)),
				uint16(0), uint16(1), uint16(1), uint8(0), true,
			)
		}
	}
	return nil, errors.New("unknown pool method")
}

func testPair() (model.Token, model.Token) {
	tokenA := model.NewToken(97, common.HexToAddress("0xAaAaAaaAaAaAAAAAaaaAAAaaaaAaAaaaaAaaAaA1"), 18, "WNEAR")
	tokenB := model.NewToken(97, common.HexToAddress("0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBb2"), 6, "USDC")
	return tokenA, tokenB
}

func newFakeChain(tokenA, tokenB model.Token, fee uint32) (*fakeChain, common.Address) {
	pool := common.HexToAddress("0x9999999999999999999999999999999999999999")
	token0, token1 := tokenA.Address, tokenB.Address
	if token1.Hex() < token0.Hex() {
		token0, token1 = token1, token0
	}
	chain := &fakeChain{
		factory: common.HexToAddress("0x1111111111111111111111111111111111111111"),
		pools:   map[string]common.Address{},
		state: map[common.Address]fakePoolState{
			pool: {
				token0:    token0,
				token1:    token1,
				fee:       fee,
				liquidity: big.NewInt(1_000_000_000),
				sqrtPrice: new(big.Int).Lsh(big.NewInt(1), 96),
				tick:      0,
			},
		},
	}
	return chain, pool
}

func TestResolveCommutative(t *testing.T) {
	tokenA, tokenB := testPair()
	chain, pool := newFakeChain(tokenA, tokenB, 3000)
	chain.pools[poolKey(tokenA.Address, tokenB.Address, 3000)] = pool

	net := model.NetworkContext{ChainID: 97, Factory: chain.factory}
	resolver := NewResolver(chain, net, zap.NewNop())

	forward, err := resolver.Resolve(context.Background(), tokenA, tokenB, 3000)
	if err != nil {
		t.Fatalf("resolve forward: %v", err)
	}
	reverse, err := resolver.Resolve(context.Background(), tokenB, tokenA, 3000)
	if err != nil {
		t.Fatalf("resolve reverse: %v", err)
	}

	if forward.Address != reverse.Address {
		t.Fatalf("pool address mismatch: %s vs %s", forward.Address.Hex(), reverse.Address.Hex())
	}
	if forward.Token0.Address != reverse.Token0.Address || forward.Token1.Address != reverse.Token1.Address {
		t.Fatalf("token ordering differs between orderings")
	}
	if forward.Token0.Address.Hex() >= forward.Token1.Address.Hex() {
		t.Fatalf("tokens not canonically ordered: %s >= %s", forward.Token0.Address.Hex(), forward.Token1.Address.Hex())
	}
}

func TestResolveReversedOrderHit(t *testing.T) {
	tokenA, tokenB := testPair()
	chain, pool := newFakeChain(tokenA, tokenB, 500)
	chain.pools[poolKey(tokenB.Address, tokenA.Address, 500)] = pool

	net := model.NetworkContext{ChainID: 97, Factory: chain.factory}
	resolver := NewResolver(chain, net, zap.NewNop())

	resolved, err := resolver.Resolve(context.Background(), tokenA, tokenB, 500)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Address != pool {
		t.Fatalf("wrong pool: %s", resolved.Address.Hex())
	}
	if resolved.Fee != 500 {
		t.Fatalf("fee mismatch: %d", resolved.Fee)
	}
}

func TestResolveFeeTierFallback(t *testing.T) {
	tokenA, tokenB := testPair()
	chain, pool := newFakeChain(tokenA, tokenB, 10000)
	chain.pools[poolKey(tokenA.Address, tokenB.Address, 10000)] = pool

	net := model.NetworkContext{ChainID: 97, Factory: chain.factory}
	resolver := NewResolver(chain, net, zap.NewNop())

	resolved, err := resolver.Resolve(context.Background(), tokenA, tokenB, 3000)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Fee != 10000 {
		t.Fatalf("expected 1%% tier pool, got fee %d", resolved.Fee)
	}
}

func TestResolveKnownPoolFallback(t *testing.T) {
	tokenA, tokenB := testPair()
	chain, pool := newFakeChain(tokenA, tokenB, 3000)

	net := model.NetworkContext{
		ChainID:    97,
		Factory:    chain.factory,
		KnownPools: map[string]common.Address{"USDC/WNEAR": pool},
	}
	resolver := NewResolver(chain, net, zap.NewNop())

	resolved, err := resolver.Resolve(context.Background(), tokenA, tokenB, 3000)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Address != pool {
		t.Fatalf("known pool not used: %s", resolved.Address.Hex())
	}
	if chain.lookups != 8 {
		t.Fatalf("expected 8 factory lookups before known table, got %d", chain.lookups)
	}
}

func TestResolveNotFoundNamesAllAttempts(t *testing.T) {
	tokenA, tokenB := testPair()
	chain, _ := newFakeChain(tokenA, tokenB, 3000)

	net := model.NetworkContext{ChainID: 97, Factory: chain.factory}
	resolver := NewResolver(chain, net, zap.NewNop())

	_, err := resolver.Resolve(context.Background(), tokenA, tokenB, 3000)
	if err == nil {
		t.Fatalf("expected error")
	}

	var notFound *PoolNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected PoolNotFoundError, got %T", err)
	}
	if len(notFound.Attempts) != 8 {
		t.Fatalf("expected 8 attempts, got %d", len(notFound.Attempts))
	}
	if chain.lookups != 8 {
		t.Fatalf("expected 8 factory lookups, got %d", chain.lookups)
	}

	msg := notFound.Error()
	for _, symbol := range []string{"WNEAR", "USDC"} {
		if !containsString(msg, symbol) {
			t.Fatalf("error does not name %s: %s", symbol, msg)
		}
	}
	for _, fee := range []string{"fee=100", "fee=500", "fee=3000", "fee=10000"} {
		if !containsString(msg, fee) {
			t.Fatalf("error does not name %s: %s", fee, msg)
		}
	}
}

func TestResolveRejectsCrossChainPair(t *testing.T) {
	tokenA, tokenB := testPair()
	tokenB.ChainID = 1
	chain, _ := newFakeChain(tokenA, tokenB, 3000)

	resolver := NewResolver(chain, model.NetworkContext{ChainID: 97, Factory: chain.factory}, zap.NewNop())
	if _, err := resolver.Resolve(context.Background(), tokenA, tokenB, 3000); err == nil {
		t.Fatalf("expected error for cross-chain pair")
	}
}

func containsString(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
