package model

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestTokenEqual(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	a := NewToken(97, addr, 18, "WNEAR")
	b := NewToken(97, addr, 18, "wnear-renamed")
	c := NewToken(1, addr, 18, "WNEAR")

	if !a.Equal(b) {
		t.Fatalf("same chain and address must be equal regardless of symbol")
	}
	if a.Equal(c) {
		t.Fatalf("same address on another chain must not be equal")
	}
}

func TestTokenRegistry(t *testing.T) {
	registry := NewTokenRegistry()
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	token := NewToken(97, addr, 6, "USDC")
	registry.Register(token)

	got, ok := registry.Lookup(97, addr)
	if !ok || got.Symbol != "USDC" {
		t.Fatalf("lookup = %+v, ok = %v", got, ok)
	}
	if _, ok := registry.Lookup(1, addr); ok {
		t.Fatalf("lookup matched the wrong chain")
	}

	bySym, ok := registry.BySymbol(97, "USDC")
	if !ok || bySym.Address != addr {
		t.Fatalf("by symbol = %+v, ok = %v", bySym, ok)
	}
	if _, ok := registry.BySymbol(97, "WETH"); ok {
		t.Fatalf("by symbol matched an unregistered token")
	}

	// Re-registration replaces in place.
	registry.Register(NewToken(97, addr, 18, "USDC"))
	got, _ = registry.Lookup(97, addr)
	if got.Decimals != 18 {
		t.Fatalf("decimals = %d after re-register, want 18", got.Decimals)
	}
}

func TestNetworkContextKnownPool(t *testing.T) {
	pool := common.HexToAddress("0x9999999999999999999999999999999999999999")
	net := NetworkContext{KnownPools: map[string]common.Address{"WNEAR/USDC": pool}}

	if addr, ok := net.KnownPool("WNEAR", "USDC"); !ok || addr != pool {
		t.Fatalf("forward lookup failed")
	}
	if addr, ok := net.KnownPool("USDC", "WNEAR"); !ok || addr != pool {
		t.Fatalf("reversed lookup failed")
	}
	if _, ok := net.KnownPool("WETH", "USDC"); ok {
		t.Fatalf("unknown pair matched")
	}
	if _, ok := (NetworkContext{}).KnownPool("WNEAR", "USDC"); ok {
		t.Fatalf("nil table matched")
	}
}

func TestValidAction(t *testing.T) {
	for _, action := range []string{"BUY", "SELL", "HOLD"} {
		if !ValidAction(action) {
			t.Fatalf("%s rejected", action)
		}
	}
	for _, action := range []string{"buy", "", "MAYBE"} {
		if ValidAction(action) {
			t.Fatalf("%q accepted", action)
		}
	}
}
