package model

import "github.com/ethereum/go-ethereum/common"

// NetworkContext carries the per-chain addresses every component needs.
// It is threaded explicitly through calls; there is no process-global
// "current chain".
type NetworkContext struct {
	ChainID    uint64
	Factory    common.Address
	Router     common.Address
	KnownPools map[string]common.Address
	Registry   *TokenRegistry
}

// KnownPool looks up a pre-configured pool address for a symbol pair,
// trying both orderings of the key.
func (n NetworkContext) KnownPool(symbolA, symbolB string) (common.Address, bool) {
	if n.KnownPools == nil {
		return common.Address{}, false
	}
	if addr, ok := n.KnownPools[symbolA+"/"+symbolB]; ok {
		return addr, true
	}
	if addr, ok := n.KnownPools[symbolB+"/"+symbolA]; ok {
		return addr, true
	}
	return common.Address{}, false
}
