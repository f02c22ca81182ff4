package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.FeeHint != 3000 {
		t.Fatalf("fee hint = %d, want 3000", cfg.FeeHint)
	}
	if cfg.SlippagePct != 0.5 {
		t.Fatalf("slippage = %g, want 0.5", cfg.SlippagePct)
	}
	if cfg.ConfidenceThreshold != 0.7 {
		t.Fatalf("confidence threshold = %g, want 0.7", cfg.ConfidenceThreshold)
	}
	if cfg.TradeAmount != "0.1" {
		t.Fatalf("trade amount = %q, want 0.1", cfg.TradeAmount)
	}
	if cfg.TickInterval != 2*time.Minute {
		t.Fatalf("tick interval = %s, want 2m", cfg.TickInterval)
	}
	if cfg.MinTradeInterval != 5*time.Minute {
		t.Fatalf("min trade interval = %s, want 5m", cfg.MinTradeInterval)
	}
	if cfg.AnalystTimeout != 15*time.Second {
		t.Fatalf("analyst timeout = %s, want 15s", cfg.AnalystTimeout)
	}
	if cfg.MaxLogLines != 200 {
		t.Fatalf("max log lines = %d, want 200", cfg.MaxLogLines)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("log level = %q, want info", cfg.LogLevel)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TRADER_CHAIN_ID", "97")
	t.Setenv("TRADER_SLIPPAGE", "1.5")
	t.Setenv("TRADER_BASE_TOKEN", "0x1111111111111111111111111111111111111111")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChainID != 97 {
		t.Fatalf("chain id = %d, want 97", cfg.ChainID)
	}
	if cfg.SlippagePct != 1.5 {
		t.Fatalf("slippage = %g, want 1.5", cfg.SlippagePct)
	}
	if cfg.BaseToken != "0x1111111111111111111111111111111111111111" {
		t.Fatalf("base token = %q", cfg.BaseToken)
	}
}

func TestLoadFlagOverride(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("rpc", "", "")
	flags.Uint32("fee-hint", 3000, "")
	if err := flags.Parse([]string{"--rpc", "https://rpc.example", "--fee-hint", "500"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCURL != "https://rpc.example" {
		t.Fatalf("rpc = %q", cfg.RPCURL)
	}
	if cfg.FeeHint != 500 {
		t.Fatalf("fee hint = %d, want 500", cfg.FeeHint)
	}
}

func TestParseKnownPools(t *testing.T) {
	pools, err := ParseKnownPools([]string{
		"WNEAR/USDC=0x1111111111111111111111111111111111111111",
		" WETH/USDC = 0x2222222222222222222222222222222222222222",
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(pools) != 2 {
		t.Fatalf("got %d entries, want 2", len(pools))
	}
	if pools["WNEAR/USDC"] != "0x1111111111111111111111111111111111111111" {
		t.Fatalf("unexpected map %v", pools)
	}
	if pools["WETH/USDC"] != "0x2222222222222222222222222222222222222222" {
		t.Fatalf("entry not trimmed: %v", pools)
	}
}

func TestParseKnownPoolsRejectsMalformed(t *testing.T) {
	for _, entry := range []string{"WNEAR/USDC", "=0x1", "PAIR="} {
		if _, err := ParseKnownPools([]string{entry}); err == nil {
			t.Fatalf("entry %q accepted", entry)
		}
	}
}
