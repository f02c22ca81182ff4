package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"autoswap/internal/model"
)

// FetchToken reads decimals and symbol from the token contract and builds an
// immutable Token record. Symbol falls back to the bytes32 ABI variant used
// by some older tokens; a missing symbol is tolerated.
func FetchToken(ctx context.Context, caller ContractCaller, chainID uint64, address common.Address, logger *zap.Logger) (model.Token, error) {
	if caller == nil {
		return model.Token{}, fmt.Errorf("contract caller is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	stringABI, err := ERC20ABI()
	if err != nil {
		return model.Token{}, fmt.Errorf("parse erc20 abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return model.Token{}, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := callMethod(ctx, caller, address, stringABI, "decimals")
	if err != nil {
		return model.Token{}, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return model.Token{}, fmt.Errorf("decimals: %w", err)
	}

	symbol := ""
	if values, err := callMethod(ctx, caller, address, stringABI, "symbol"); err == nil {
		if s, ok := values[0].(string); ok {
			symbol = s
		}
	} else if values, err := callMethod(ctx, caller, address, bytes32ABI, "symbol"); err == nil {
		if s, ok := bytes32ToString(values[0]); ok {
			symbol = s
		}
	} else {
		logger.Debug("symbol call failed", zap.String("token", address.Hex()), zap.Error(err))
	}

	return model.NewToken(chainID, address, decimals, symbol), nil
}

// BalanceOf reads the ERC20 balance of the owner in smallest units.
func BalanceOf(ctx context.Context, caller ContractCaller, token common.Address, owner common.Address) (*big.Int, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := callMethod(ctx, caller, token, parsed, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// Allowance reads the ERC20 allowance granted by owner to spender.
func Allowance(ctx context.Context, caller ContractCaller, token common.Address, owner, spender common.Address) (*big.Int, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := callMethod(ctx, caller, token, parsed, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}
