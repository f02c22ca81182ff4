package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"autoswap/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "trader",
		Short:        "Automated V3 swap trader",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the trading loop",
		RunE:  runTrader,
	}
	addChainFlags(runCmd)
	runCmd.Flags().Float64("confidence-threshold", 0.7, "minimum confidence to act on a decision")
	runCmd.Flags().String("trade-amount", "0.1", "amount per trade in input-token units")
	runCmd.Flags().Duration("tick-interval", 0, "scheduler tick period")
	runCmd.Flags().Duration("min-trade-interval", 0, "minimum time between trades")
	runCmd.Flags().String("analyst-url", "", "external recommendation endpoint")
	runCmd.Flags().Duration("analyst-timeout", 0, "analyst request timeout")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN for the price-sample archive")
	runCmd.Flags().String("archive", "", "JSONL path for the price-sample archive")
	runCmd.Flags().String("keystore-dir", "", "encrypted keystore directory")
	runCmd.Flags().String("keystore-passphrase", "", "keystore passphrase")
	runCmd.Flags().String("gas-warn-wei", "", "warn when native balance drops below this (wei)")
	runCmd.Flags().String("token-warn", "", "warn when base-token balance drops below this")
	runCmd.Flags().Int("max-log-lines", 200, "operational log capacity")
	root.AddCommand(runCmd)

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Execute a single swap",
		RunE:  runSwap,
	}
	addChainFlags(swapCmd)
	swapCmd.Flags().String("token-in", "", "input token address")
	swapCmd.Flags().String("token-out", "", "output token address")
	swapCmd.Flags().String("amount", "", "input amount in token units")
	root.AddCommand(swapCmd)

	balanceCmd := &cobra.Command{
		Use:   "balance",
		Short: "Print the wallet's base-token balance",
		RunE:  runBalance,
	}
	addChainFlags(balanceCmd)
	root.AddCommand(balanceCmd)

	priceCmd := &cobra.Command{
		Use:   "price",
		Short: "Resolve the pool and quote a trade without executing",
		RunE:  runPrice,
	}
	addChainFlags(priceCmd)
	priceCmd.Flags().String("amount", "1", "input amount in base-token units")
	root.AddCommand(priceCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addChainFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "chain RPC URL")
	cmd.Flags().Uint64("chain-id", 0, "expected chain id")
	cmd.Flags().String("factory", "", "V3 factory address")
	cmd.Flags().String("router", "", "swap router address")
	cmd.Flags().String("base-token", "", "traded token address")
	cmd.Flags().String("quote-token", "", "pricing token address")
	cmd.Flags().Uint32("fee-hint", 3000, "preferred fee tier (hundredths of a bip)")
	cmd.Flags().StringSlice("known-pool", nil, "fallback pools, PAIR=ADDRESS")
	cmd.Flags().Float64("slippage", 0.5, "requested slippage tolerance percent")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func runTrader(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PrivateKey == "" {
		return fmt.Errorf("private key is required (TRADER_PRIVATE_KEY)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	tradeAmount, err := decimal.NewFromString(cfg.TradeAmount)
	if err != nil {
		return fmt.Errorf("parse trade amount: %w", err)
	}

	app.warmHistory(ctx)

	if !app.session.Start(cfg.PrivateKey, cfg.ConfidenceThreshold, tradeAmount) {
		return fmt.Errorf("session failed to start")
	}

	logger.Info("trading session started",
		zap.String("pair", app.pairName()),
		zap.Float64("confidence_threshold", cfg.ConfidenceThreshold),
		zap.String("trade_amount", tradeAmount.String()),
		zap.Duration("tick_interval", cfg.TickInterval),
	)

	<-ctx.Done()
	app.session.Stop()

	for _, line := range app.session.Logs() {
		fmt.Println(line)
	}
	return nil
}

func runSwap(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PrivateKey == "" {
		return fmt.Errorf("private key is required (TRADER_PRIVATE_KEY)")
	}

	tokenInAddr, _ := cmd.Flags().GetString("token-in")
	tokenOutAddr, _ := cmd.Flags().GetString("token-out")
	amountStr, _ := cmd.Flags().GetString("amount")
	if tokenInAddr == "" || tokenOutAddr == "" || amountStr == "" {
		return fmt.Errorf("token-in, token-out, and amount are required")
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return fmt.Errorf("parse amount: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	tokenIn, tokenOut, err := app.fetchPair(ctx, tokenInAddr, tokenOutAddr)
	if err != nil {
		return err
	}

	result := app.session.ExecuteSwap(ctx, tokenIn, tokenOut, amount, cfg.SlippagePct)
	if !result.Success {
		return fmt.Errorf("swap failed: %s", result.Error)
	}
	fmt.Printf("tx: %s\noutput: %s %s\n", result.TxHash, result.OutputAmount, tokenOut.Symbol)
	return nil
}

func runBalance(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PrivateKey == "" {
		return fmt.Errorf("private key is required (TRADER_PRIVATE_KEY)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	balance, err := app.session.CheckBalance(ctx, cfg.PrivateKey)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", balance, app.baseToken.Symbol)
	return nil
}

func runPrice(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	amountStr, _ := cmd.Flags().GetString("amount")
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return fmt.Errorf("parse amount: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.printQuote(ctx, amount, cfg.SlippagePct)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
