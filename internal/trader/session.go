package trader

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"autoswap/internal/decision"
	"autoswap/internal/dex"
	"autoswap/internal/executor"
	"autoswap/internal/model"
	"autoswap/internal/pricefeed"
	"autoswap/internal/storage"
	"autoswap/internal/wallet"
)

// Backend is the read surface the session needs per tick. *chain.Client
// satisfies it.
type Backend interface {
	dex.ContractCaller
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// PoolResolver locates the pool for the session's pair.
type PoolResolver interface {
	Resolve(ctx context.Context, tokenA, tokenB model.Token, feeHint uint32) (model.Pool, error)
}

// Decider produces a trading decision for one tick.
type Decider interface {
	Decide(ctx context.Context, dctx decision.Context) model.TradingDecision
}

// SwapRunner executes a priced quote.
type SwapRunner interface {
	Execute(ctx context.Context, quote model.Quote) executor.Result
}

// Config fixes the session's pair and schedule.
type Config struct {
	BaseToken  model.Token
	QuoteToken model.Token
	FeeHint    uint32

	SlippagePct         float64
	ConfidenceThreshold float64
	TradeAmount         decimal.Decimal

	TickInterval     time.Duration
	MinTradeInterval time.Duration

	GasWarnWei    *big.Int
	TokenWarnUnit decimal.Decimal

	MaxLogLines     int
	MaxTradeRecords int
}

func (c *Config) applyDefaults() {
	if c.TickInterval <= 0 {
		c.TickInterval = 2 * time.Minute
	}
	if c.MinTradeInterval <= 0 {
		c.MinTradeInterval = 5 * time.Minute
	}
	if c.SlippagePct <= 0 {
		c.SlippagePct = dex.SlippageFloorPct
	}
	if c.MaxTradeRecords <= 0 {
		c.MaxTradeRecords = 50
	}
}

// Session runs the trading loop for one wallet and one pair. A single
// in-flight iteration is enforced with a busy flag; running two sessions
// for the same wallet is not supported (nonce and allowance races).
type Session struct {
	cfg      Config
	net      model.NetworkContext
	backend  Backend
	resolver PoolResolver
	engine   Decider
	exec     SwapRunner
	history  *pricefeed.History
	source   *pricefeed.SyntheticSource
	archive  storage.Archive
	keystore wallet.Keystore
	logger   *zap.Logger
	log      *opLog

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
	signer    *wallet.Signer
	lastTrade time.Time
	trades    []model.TradeRecord

	busy atomic.Bool
}

// Deps bundles the session's collaborators.
type Deps struct {
	Backend  Backend
	Resolver PoolResolver
	Engine   Decider
	Executor SwapRunner
	History  *pricefeed.History
	Source   *pricefeed.SyntheticSource
	Archive  storage.Archive
	Keystore wallet.Keystore
	Logger   *zap.Logger
}

func NewSession(cfg Config, net model.NetworkContext, deps Deps) *Session {
	cfg.applyDefaults()
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	history := deps.History
	if history == nil {
		history = pricefeed.NewHistory(0)
	}
	return &Session{
		cfg:      cfg,
		net:      net,
		backend:  deps.Backend,
		resolver: deps.Resolver,
		engine:   deps.Engine,
		exec:     deps.Executor,
		history:  history,
		source:   deps.Source,
		archive:  deps.Archive,
		keystore: deps.Keystore,
		logger:   logger,
		log:      newOpLog(cfg.MaxLogLines),
	}
}

// Start begins the trading loop. The first tick fires immediately. Returns
// false when the session is already running or the key is unusable.
func (s *Session) Start(privateKey string, confidenceThreshold float64, tradeAmount decimal.Decimal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.log.appendf("start rejected: session already running")
		return false
	}

	signer, err := wallet.NewSigner(privateKey, s.net.ChainID)
	if err != nil {
		s.logger.Error("start rejected", zap.Error(err))
		s.log.appendf("start rejected: %v", err)
		return false
	}
	s.signer = signer

	if s.keystore != nil {
		if err := s.keystore.Put(signer.Address(), privateKey); err != nil {
			s.logger.Warn("keystore write failed", zap.Error(err))
		}
	}

	if confidenceThreshold > 0 {
		s.cfg.ConfidenceThreshold = confidenceThreshold
	}
	if tradeAmount.Sign() > 0 {
		s.cfg.TradeAmount = tradeAmount
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	s.log.appendf("trading started for %s/%s, threshold %.2f, amount %s",
		s.cfg.BaseToken.Symbol, s.cfg.QuoteToken.Symbol, s.cfg.ConfidenceThreshold, s.cfg.TradeAmount)

	go s.loop(ctx)
	return true
}

// Stop prevents future ticks. An in-flight transaction cannot be
// cancelled; the current iteration finishes on its own.
func (s *Session) Stop() bool {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return false
	}
	s.running = false
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.log.appendf("trading stopped")
	return true
}

// Running reports whether the loop is active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Logs returns a copy of the operational log, oldest first.
func (s *Session) Logs() []string {
	return s.log.snapshot()
}

// TradeHistory returns a copy of the bounded trade records.
func (s *Session) TradeHistory() []model.TradeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.TradeRecord, len(s.trades))
	copy(out, s.trades)
	return out
}

// CheckBalance returns the wallet's base-token balance as a decimal string.
func (s *Session) CheckBalance(ctx context.Context, privateKey string) (string, error) {
	signer, err := wallet.NewSigner(privateKey, s.net.ChainID)
	if err != nil {
		return "", err
	}
	units, err := dex.BalanceOf(ctx, s.backend, s.cfg.BaseToken.Address, signer.Address())
	if err != nil {
		return "", err
	}
	return decimal.NewFromBigInt(units, -int32(s.cfg.BaseToken.Decimals)).String(), nil
}

// ExecuteSwap prices and executes a one-off swap outside the loop.
func (s *Session) ExecuteSwap(ctx context.Context, tokenIn, tokenOut model.Token, amountIn decimal.Decimal, slippagePct float64) executor.Result {
	pool, err := s.resolver.Resolve(ctx, tokenIn, tokenOut, s.cfg.FeeHint)
	if err != nil {
		s.log.appendf("swap aborted: %v", err)
		return executor.Result{Error: err.Error()}
	}

	quote, err := dex.BuildQuote(pool, tokenIn, amountIn, slippagePct)
	if err != nil {
		s.log.appendf("swap aborted: %v", err)
		return executor.Result{Error: err.Error()}
	}

	s.log.appendf("swapping %s %s for %s (min out %s, slippage %.2f%%)",
		amountIn, tokenIn.Symbol, tokenOut.Symbol, quote.MinAmountOut, quote.SlippagePct)

	result := s.exec.Execute(ctx, quote)
	if result.Success {
		s.log.appendf("swap confirmed: %s", result.TxHash)
	} else {
		s.log.appendf("swap failed: %s", result.Error)
	}
	return result
}

func (s *Session) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}
