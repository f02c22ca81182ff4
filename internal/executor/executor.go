package executor

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"autoswap/internal/dex"
	"autoswap/internal/model"
	"autoswap/internal/wallet"
)

const (
	swapGasLimit    = 500000
	approveGasLimit = 100000
	defaultPoll     = 2 * time.Second
	defaultConfirm  = 3 * time.Minute
)

// maxApproval is the allowance ceiling granted to the router so repeated
// trades do not each pay for an approval.
var maxApproval = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// TxBackend is the chain surface the executor needs. *chain.Client
// satisfies it.
type TxBackend interface {
	dex.ContractCaller
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	WaitMined(ctx context.Context, txHash common.Hash, pollInterval time.Duration) (*types.Receipt, error)
}

// Result is the structured outcome of one swap. Failures are reported
// here, never raised.
type Result struct {
	Success      bool   `json:"success"`
	TxHash       string `json:"txHash,omitempty"`
	OutputAmount string `json:"outputAmount,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Executor submits approve-then-swap sequences. Phases run strictly in
// order; a failed approval aborts the swap. No retry after submission.
type Executor struct {
	backend        TxBackend
	signer         *wallet.Signer
	net            model.NetworkContext
	logger         *zap.Logger
	pollInterval   time.Duration
	confirmTimeout time.Duration
}

func New(backend TxBackend, signer *wallet.Signer, net model.NetworkContext, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		backend:        backend,
		signer:         signer,
		net:            net,
		logger:         logger,
		pollInterval:   defaultPoll,
		confirmTimeout: defaultConfirm,
	}
}

// Execute runs the two-phase swap for a priced quote and returns a
// structured result.
func (e *Executor) Execute(ctx context.Context, quote model.Quote) Result {
	amountIn := quote.AmountIn.Shift(int32(quote.TokenIn.Decimals)).BigInt()

	if err := e.ensureAllowance(ctx, quote.TokenIn, amountIn); err != nil {
		e.logger.Warn("approval phase failed", zap.String("token", quote.TokenIn.Symbol), zap.Error(err))
		return Result{Error: err.Error()}
	}

	receipt, err := e.submitSwap(ctx, quote)
	if err != nil {
		e.logger.Warn("swap phase failed", zap.Error(err))
		return Result{Error: err.Error()}
	}

	// The estimated output stands in when the receipt carries no decodable
	// Swap log for the pool.
	output := quote.AmountOut
	if event, found, err := dex.DecodeSwapEvent(quote.Pool, receipt.Logs); err != nil {
		e.logger.Debug("swap event decode failed", zap.Error(err))
	} else if found {
		if actual, err := event.OutputFor(quote.Pool, quote.TokenOut); err == nil {
			output = actual
		}
	}

	txHash := receipt.TxHash.Hex()
	e.logger.Info("swap confirmed",
		zap.String("tx", txHash),
		zap.String("token_in", quote.TokenIn.Symbol),
		zap.String("token_out", quote.TokenOut.Symbol),
		zap.String("amount_in", quote.AmountIn.String()),
		zap.String("amount_out", output.String()),
	)

	return Result{
		Success:      true,
		TxHash:       txHash,
		OutputAmount: output.String(),
	}
}

// ensureAllowance checks the router's allowance and approves the ceiling
// when short, blocking until the approval confirms.
func (e *Executor) ensureAllowance(ctx context.Context, token model.Token, amountIn *big.Int) error {
	allowance, err := dex.Allowance(ctx, e.backend, token.Address, e.signer.Address(), e.net.Router)
	if err != nil {
		return &ApprovalFailedError{Token: token, Err: fmt.Errorf("read allowance: %w", err)}
	}
	if allowance.Cmp(amountIn) >= 0 {
		return nil
	}

	e.logger.Info("allowance insufficient, approving router",
		zap.String("token", token.Symbol),
		zap.String("allowance", allowance.String()),
		zap.String("needed", amountIn.String()),
	)

	erc20, err := dex.ERC20ABI()
	if err != nil {
		return &ApprovalFailedError{Token: token, Err: err}
	}
	data, err := erc20.Pack("approve", e.net.Router, maxApproval)
	if err != nil {
		return &ApprovalFailedError{Token: token, Err: fmt.Errorf("pack approve: %w", err)}
	}

	receipt, err := e.sendAndWait(ctx, token.Address, data, approveGasLimit)
	if err != nil {
		return &ApprovalFailedError{Token: token, Err: err}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return &ApprovalFailedError{Token: token, Err: fmt.Errorf("approval reverted: %s", receipt.TxHash.Hex())}
	}
	return nil
}

func (e *Executor) submitSwap(ctx context.Context, quote model.Quote) (*types.Receipt, error) {
	call := dex.BuildSwapCall(quote, e.signer.Address(), time.Now())
	data, err := dex.EncodeSwapCall(call)
	if err != nil {
		return nil, &SwapExecutionError{Err: err}
	}

	receipt, err := e.sendAndWait(ctx, e.net.Router, data, swapGasLimit)
	if err != nil {
		return nil, &SwapExecutionError{Err: err}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, &SwapExecutionError{TxHash: receipt.TxHash.Hex(), Err: fmt.Errorf("transaction reverted")}
	}
	return receipt, nil
}

func (e *Executor) sendAndWait(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (*types.Receipt, error) {
	nonce, err := e.backend.PendingNonceAt(ctx, e.signer.Address())
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := e.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := e.signer.SignTx(tx)
	if err != nil {
		return nil, err
	}

	if err := e.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send tx: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, e.confirmTimeout)
	defer cancel()
	return e.backend.WaitMined(waitCtx, signed.Hash(), e.pollInterval)
}
