// Package config loads the simulator configuration from flags,
// environment variables and an optional config file.
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
	XSymbol          string
	YSymbol          string
	XDivisibility    int32
	YDivisibility    int32
	PriceSqrt        string
	TickSpacing      int32
	InputFeeRate     string
	FlashLoanFeeRate string
	ProtocolFeeShare string
	SyncInterval     time.Duration
	Positions        int
	Swaps            int
	MaxSwapInput     string
	Seed             int64
	LogLevel         string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("POOLSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("x-symbol", "XRD")
	v.SetDefault("y-symbol", "USDC")
	v.SetDefault("x-divisibility", 18)
	v.SetDefault("y-divisibility", 6)
	v.SetDefault("price-sqrt", "1")
	v.SetDefault("tick-spacing", 10)
	v.SetDefault("input-fee-rate", "0.003")
	v.SetDefault("flash-loan-fee-rate", "0.001")
	v.SetDefault("protocol-fee-share", "0.1")
	v.SetDefault("sync-interval", time.Hour)
	v.SetDefault("positions", 20)
	v.SetDefault("swaps", 200)
	v.SetDefault("max-swap-input", "1000")
	v.SetDefault("seed", int64(1))
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
		XSymbol:          v.GetString("x-symbol"),
		YSymbol:          v.GetString("y-symbol"),
		XDivisibility:    v.GetInt32("x-divisibility"),
		YDivisibility:    v.GetInt32("y-divisibility"),
		PriceSqrt:        v.GetString("price-sqrt"),
		TickSpacing:      v.GetInt32("tick-spacing"),
		InputFeeRate:     v.GetString("input-fee-rate"),
		FlashLoanFeeRate: v.GetString("flash-loan-fee-rate"),
		ProtocolFeeShare: v.GetString("protocol-fee-share"),
		SyncInterval:     v.GetDuration("sync-interval"),
		Positions:        v.GetInt("positions"),
		Swaps:            v.GetInt("swaps"),
		MaxSwapInput:     v.GetString("max-swap-input"),
		Seed:             v.GetInt64("seed"),
		LogLevel:         v.GetString("log-level"),
	}

	return cfg, nil
}
