package main

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"autoswap/internal/chain"
	"autoswap/internal/config"
	"autoswap/internal/decision"
	"autoswap/internal/dex"
	"autoswap/internal/executor"
	"autoswap/internal/model"
	"autoswap/internal/pricefeed"
	"autoswap/internal/storage"
	"autoswap/internal/storage/postgres"
	"autoswap/internal/trader"
	"autoswap/internal/wallet"
)

// app wires the chain client, tokens, and session together for one command
// invocation.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	client  *chain.Client
	pgStore *postgres.Store

	net        model.NetworkContext
	baseToken  model.Token
	quoteToken model.Token
	resolver   *dex.Resolver
	session    *trader.Session
}

func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	for name, addr := range map[string]string{
		"factory":     cfg.Factory,
		"router":      cfg.Router,
		"base-token":  cfg.BaseToken,
		"quote-token": cfg.QuoteToken,
	} {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("%s address %q is invalid", name, addr)
		}
	}

	client, err := chain.Connect(ctx, cfg.RPCURL, logger)
	if err != nil {
		return nil, err
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("read chain id: %w", err)
	}
	if cfg.ChainID != 0 && chainID.Uint64() != cfg.ChainID {
		client.Close()
		return nil, fmt.Errorf("chain id mismatch: expected %d, node reports %s", cfg.ChainID, chainID)
	}

	registry := model.NewTokenRegistry()
	baseToken, err := dex.FetchToken(ctx, client, chainID.Uint64(), common.HexToAddress(cfg.BaseToken), logger)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("fetch base token: %w", err)
	}
	quoteToken, err := dex.FetchToken(ctx, client, chainID.Uint64(), common.HexToAddress(cfg.QuoteToken), logger)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("fetch quote token: %w", err)
	}
	registry.Register(baseToken)
	registry.Register(quoteToken)

	knownPools := make(map[string]common.Address)
	if len(cfg.KnownPools) > 0 {
		parsed, err := config.ParseKnownPools(cfg.KnownPools)
		if err != nil {
			client.Close()
			return nil, err
		}
		for pair, addr := range parsed {
			if !common.IsHexAddress(addr) {
				client.Close()
				return nil, fmt.Errorf("known pool %s address %q is invalid", pair, addr)
			}
			knownPools[pair] = common.HexToAddress(addr)
		}
	}

	net := model.NetworkContext{
		ChainID:    chainID.Uint64(),
		Factory:    common.HexToAddress(cfg.Factory),
		Router:     common.HexToAddress(cfg.Router),
		KnownPools: knownPools,
		Registry:   registry,
	}

	resolver := dex.NewResolver(client, net, logger)

	var recommender decision.Recommender
	if cfg.AnalystURL != "" {
		recommender = decision.NewAnalystClient(cfg.AnalystURL, cfg.AnalystTimeout)
	}
	engine := decision.NewEngine(recommender, logger)

	var exec trader.SwapRunner
	if cfg.PrivateKey != "" {
		signer, err := wallet.NewSigner(cfg.PrivateKey, net.ChainID)
		if err != nil {
			client.Close()
			return nil, err
		}
		exec = executor.New(client, signer, net, logger)
	}

	var archive storage.Archive
	var pgStore *postgres.Store
	switch {
	case cfg.PGDSN != "":
		pgStore, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("open archive: %w", err)
		}
		archive = pgStore
	case cfg.ArchivePath != "":
		archive = storage.NewJsonlArchive(cfg.ArchivePath)
	}

	var keystore wallet.Keystore
	if cfg.KeystoreDir != "" && cfg.KeystorePassphrase != "" {
		keystore, err = wallet.NewFileKeystore(cfg.KeystoreDir, cfg.KeystorePassphrase)
		if err != nil {
			client.Close()
			return nil, err
		}
	} else {
		keystore = wallet.NewMemoryKeystore()
	}

	sessionCfg := trader.Config{
		BaseToken:           baseToken,
		QuoteToken:          quoteToken,
		FeeHint:             cfg.FeeHint,
		SlippagePct:         cfg.SlippagePct,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		TickInterval:        cfg.TickInterval,
		MinTradeInterval:    cfg.MinTradeInterval,
		MaxLogLines:         cfg.MaxLogLines,
	}
	if cfg.GasWarnWei != "" {
		wei, ok := new(big.Int).SetString(cfg.GasWarnWei, 10)
		if !ok {
			client.Close()
			return nil, fmt.Errorf("invalid gas-warn-wei %q", cfg.GasWarnWei)
		}
		sessionCfg.GasWarnWei = wei
	}
	if cfg.TokenWarnUnit != "" {
		warn, err := decimal.NewFromString(cfg.TokenWarnUnit)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("invalid token-warn %q: %w", cfg.TokenWarnUnit, err)
		}
		sessionCfg.TokenWarnUnit = warn
	}

	session := trader.NewSession(sessionCfg, net, trader.Deps{
		Backend:  client,
		Resolver: resolver,
		Engine:   engine,
		Executor: exec,
		History:  pricefeed.NewHistory(0),
		Source:   pricefeed.NewSyntheticSource(time.Now().UnixNano(), 2.0),
		Archive:  archive,
		Keystore: keystore,
		Logger:   logger,
	})

	return &app{
		cfg:        cfg,
		logger:     logger,
		client:     client,
		pgStore:    pgStore,
		net:        net,
		baseToken:  baseToken,
		quoteToken: quoteToken,
		resolver:   resolver,
		session:    session,
	}, nil
}

func (a *app) Close() {
	if a.pgStore != nil {
		a.pgStore.Close()
	}
	if a.client != nil {
		a.client.Close()
	}
}

func (a *app) pairName() string {
	return a.baseToken.Symbol + "/" + a.quoteToken.Symbol
}

// warmHistory seeds trailing price samples before the loop starts. Failure
// only costs indicator quality on the first ticks.
func (a *app) warmHistory(ctx context.Context) {
	pool, err := a.resolver.Resolve(ctx, a.baseToken, a.quoteToken, a.cfg.FeeHint)
	if err != nil {
		a.logger.Warn("history warm skipped", zap.Error(err))
		a.session.Warm(ctx, 0)
		return
	}
	price, err := dex.PoolPrice(pool)
	if err != nil {
		a.logger.Warn("history warm skipped", zap.Error(err))
		a.session.Warm(ctx, 0)
		return
	}
	if a.baseToken.Equal(pool.Token1) {
		price = 1 / price
	}
	a.session.Warm(ctx, price)
}

// fetchPair loads token metadata for a one-off swap, reusing registry
// entries when the addresses match the configured pair.
func (a *app) fetchPair(ctx context.Context, tokenInAddr, tokenOutAddr string) (model.Token, model.Token, error) {
	if !common.IsHexAddress(tokenInAddr) || !common.IsHexAddress(tokenOutAddr) {
		return model.Token{}, model.Token{}, fmt.Errorf("token addresses must be hex")
	}

	tokenIn, ok := a.net.Registry.Lookup(a.net.ChainID, common.HexToAddress(tokenInAddr))
	if !ok {
		var err error
		tokenIn, err = dex.FetchToken(ctx, a.client, a.net.ChainID, common.HexToAddress(tokenInAddr), a.logger)
		if err != nil {
			return model.Token{}, model.Token{}, fmt.Errorf("fetch token-in: %w", err)
		}
		a.net.Registry.Register(tokenIn)
	}

	tokenOut, ok := a.net.Registry.Lookup(a.net.ChainID, common.HexToAddress(tokenOutAddr))
	if !ok {
		var err error
		tokenOut, err = dex.FetchToken(ctx, a.client, a.net.ChainID, common.HexToAddress(tokenOutAddr), a.logger)
		if err != nil {
			return model.Token{}, model.Token{}, fmt.Errorf("fetch token-out: %w", err)
		}
		a.net.Registry.Register(tokenOut)
	}

	return tokenIn, tokenOut, nil
}

// printQuote resolves the pool and prints a read-only quote.
func (a *app) printQuote(ctx context.Context, amount decimal.Decimal, slippagePct float64) error {
	pool, err := a.resolver.Resolve(ctx, a.baseToken, a.quoteToken, a.cfg.FeeHint)
	if err != nil {
		return err
	}

	quote, err := dex.BuildQuote(pool, a.baseToken, amount, slippagePct)
	if err != nil {
		return err
	}

	price, err := dex.PoolPrice(pool)
	if err != nil {
		return err
	}
	if a.baseToken.Equal(pool.Token1) {
		price = 1 / price
	}

	fmt.Printf("pool: %s (fee %d)\n", pool.Address.Hex(), pool.Fee)
	fmt.Printf("price: %.8f %s per %s\n", price, a.quoteToken.Symbol, a.baseToken.Symbol)
	fmt.Printf("amount in: %s %s\n", quote.AmountIn, quote.TokenIn.Symbol)
	fmt.Printf("amount out: %s %s\n", quote.AmountOut, quote.TokenOut.Symbol)
	fmt.Printf("impact: %.4f%%, slippage: %.2f%%\n", quote.ImpactPct, quote.SlippagePct)
	fmt.Printf("minimum out: %s %s\n", quote.MinAmountOut, quote.TokenOut.Symbol)
	return nil
}
