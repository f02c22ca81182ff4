package model

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Token describes an ERC20 token on a specific chain. Fields are fixed at
// construction; a token on another chain is a different Token value.
type Token struct {
	ChainID  uint64
	Address  common.Address
	Decimals uint8
	Symbol   string
}

// NewToken builds a Token record.
func NewToken(chainID uint64, address common.Address, decimals uint8, symbol string) Token {
	return Token{
		ChainID:  chainID,
		Address:  address,
		Decimals: decimals,
		Symbol:   symbol,
	}
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%s)", t.Symbol, t.Address.Hex())
}

// Equal reports whether two tokens refer to the same contract on the same chain.
func (t Token) Equal(other Token) bool {
	return t.ChainID == other.ChainID && t.Address == other.Address
}

type registryKey struct {
	chainID uint64
	address common.Address
}

// TokenRegistry maps (chain id, address) to token metadata. It is populated
// once at startup and replaces symbol string matching on addresses.
type TokenRegistry struct {
	mu     sync.RWMutex
	tokens map[registryKey]Token
}

func NewTokenRegistry() *TokenRegistry {
	return &TokenRegistry{tokens: make(map[registryKey]Token)}
}

// Register adds or replaces a token entry.
func (r *TokenRegistry) Register(token Token) {
	r.mu.Lock()
	r.tokens[registryKey{token.ChainID, token.Address}] = token
	r.mu.Unlock()
}

// Lookup returns the token registered for the chain and address.
func (r *TokenRegistry) Lookup(chainID uint64, address common.Address) (Token, bool) {
	r.mu.RLock()
	token, ok := r.tokens[registryKey{chainID, address}]
	r.mu.RUnlock()
	return token, ok
}

// BySymbol returns the first token on the chain with the given symbol.
func (r *TokenRegistry) BySymbol(chainID uint64, symbol string) (Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for key, token := range r.tokens {
		if key.chainID == chainID && token.Symbol == symbol {
			return token, true
		}
	}
	return Token{}, false
}
