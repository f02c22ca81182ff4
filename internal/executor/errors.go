package executor

import (
	"fmt"
	"math/big"

	"autoswap/internal/model"
)

// InsufficientBalanceError reports that the wallet cannot cover the trade.
type InsufficientBalanceError struct {
	Token model.Token
	Need  *big.Int
	Have  *big.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance: need %s, have %s", e.Token.Symbol, e.Need, e.Have)
}

// ApprovalFailedError reports a failed or reverted approval transaction.
type ApprovalFailedError struct {
	Token model.Token
	Err   error
}

func (e *ApprovalFailedError) Error() string {
	return fmt.Sprintf("approval for %s failed: %v", e.Token.Symbol, e.Err)
}

func (e *ApprovalFailedError) Unwrap() error { return e.Err }

// SwapExecutionError reports a failed or reverted swap transaction.
type SwapExecutionError struct {
	TxHash string
	Err    error
}

func (e *SwapExecutionError) Error() string {
	if e.TxHash != "" {
		return fmt.Sprintf("swap %s failed: %v", e.TxHash, e.Err)
	}
	return fmt.Sprintf("swap failed: %v", e.Err)
}

func (e *SwapExecutionError) Unwrap() error { return e.Err }
