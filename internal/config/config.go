package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL  string
	ChainID uint64

	Factory    string
	Router     string
	BaseToken  string
	QuoteToken string
	FeeHint    uint32
	KnownPools []string

	SlippagePct         float64
	ConfidenceThreshold float64
	TradeAmount         string

	TickInterval     time.Duration
	MinTradeInterval time.Duration

	GasWarnWei    string
	TokenWarnUnit string

	AnalystURL     string
	AnalystTimeout time.Duration

	PGDSN       string
	ArchivePath string

	KeystoreDir        string
	KeystorePassphrase string

	PrivateKey string

	MaxLogLines int
	LogLevel    string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRADER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("fee-hint", uint32(3000))
	v.SetDefault("slippage", 0.5)
	v.SetDefault("confidence-threshold", 0.7)
	v.SetDefault("trade-amount", "0.1")
	v.SetDefault("tick-interval", 2*time.Minute)
	v.SetDefault("min-trade-interval", 5*time.Minute)
	v.SetDefault("analyst-timeout", 15*time.Second)
	v.SetDefault("max-log-lines", 200)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:              v.GetString("rpc"),
		ChainID:             v.GetUint64("chain-id"),
		Factory:             v.GetString("factory"),
		Router:              v.GetString("router"),
		BaseToken:           v.GetString("base-token"),
		QuoteToken:          v.GetString("quote-token"),
		FeeHint:             v.GetUint32("fee-hint"),
		KnownPools:          getStringSlice(v, "known-pool"),
		SlippagePct:         v.GetFloat64("slippage"),
		ConfidenceThreshold: v.GetFloat64("confidence-threshold"),
		TradeAmount:         v.GetString("trade-amount"),
		TickInterval:        v.GetDuration("tick-interval"),
		MinTradeInterval:    v.GetDuration("min-trade-interval"),
		GasWarnWei:          v.GetString("gas-warn-wei"),
		TokenWarnUnit:       v.GetString("token-warn"),
		AnalystURL:          v.GetString("analyst-url"),
		AnalystTimeout:      v.GetDuration("analyst-timeout"),
		PGDSN:               v.GetString("pg-dsn"),
		ArchivePath:         v.GetString("archive"),
		KeystoreDir:         v.GetString("keystore-dir"),
		KeystorePassphrase:  v.GetString("keystore-passphrase"),
		PrivateKey:          v.GetString("private-key"),
		MaxLogLines:         v.GetInt("max-log-lines"),
		LogLevel:            v.GetString("log-level"),
	}

	return cfg, nil
}

// ParseKnownPools parses "SYMA/SYMB=0xaddress" entries.
func ParseKnownPools(entries []string) (map[string]string, error) {
	pools := make(map[string]string, len(entries))
	for _, entry := range entries {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid known-pool entry %q, want PAIR=ADDRESS", entry)
		}
		pools[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return pools, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
