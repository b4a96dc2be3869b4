// poolsim exercises a pool end to end: it instantiates one, opens random
// liquidity positions, trades against them with a seeded random walk and
// prints the resulting balances. It exists to eyeball invariants over long
// random runs, not to benchmark.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/razi90/precision-pool/asset"
	"github.com/razi90/precision-pool/internal/config"
	"github.com/razi90/precision-pool/pool"
	"github.com/razi90/precision-pool/registry"
	"github.com/razi90/precision-pool/tickmath"
)

func main() {
	root := &cobra.Command{
		Use:          "poolsim",
		Short:        "Concentrated liquidity pool simulator",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a randomized pool simulation",
		RunE:  runSim,
	}

	runCmd.Flags().String("x-symbol", "XRD", "symbol of the X token")
	runCmd.Flags().String("y-symbol", "USDC", "symbol of the Y token")
	runCmd.Flags().Int32("x-divisibility", 18, "fractional digits of the X token")
	runCmd.Flags().Int32("y-divisibility", 6, "fractional digits of the Y token")
	runCmd.Flags().String("price-sqrt", "1", "initial square-root price")
	runCmd.Flags().Int32("tick-spacing", 10, "tick spacing")
	runCmd.Flags().String("input-fee-rate", "0.003", "swap input fee rate")
	runCmd.Flags().String("flash-loan-fee-rate", "0.001", "flash loan fee rate")
	runCmd.Flags().String("protocol-fee-share", "0.1", "protocol share of swap fees")
	runCmd.Flags().Duration("sync-interval", time.Hour, "registry sync interval")
	runCmd.Flags().Int("positions", 20, "number of liquidity positions to open")
	runCmd.Flags().Int("swaps", 200, "number of random swaps to run")
	runCmd.Flags().String("max-swap-input", "1000", "maximum input amount per swap")
	runCmd.Flags().Int64("seed", 1, "random seed")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSim(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	if cfgFile == "" {
		cfgFile, _ = cmd.Root().PersistentFlags().GetString("config")
	}
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	priceSqrt, err := decimal.NewFromString(cfg.PriceSqrt)
	if err != nil {
		return fmt.Errorf("parse price-sqrt: %w", err)
	}
	inputFeeRate, err := decimal.NewFromString(cfg.InputFeeRate)
	if err != nil {
		return fmt.Errorf("parse input-fee-rate: %w", err)
	}
	flashLoanFeeRate, err := decimal.NewFromString(cfg.FlashLoanFeeRate)
	if err != nil {
		return fmt.Errorf("parse flash-loan-fee-rate: %w", err)
	}
	protocolFeeShare, err := decimal.NewFromString(cfg.ProtocolFeeShare)
	if err != nil {
		return fmt.Errorf("parse protocol-fee-share: %w", err)
	}
	maxSwapInput, err := decimal.NewFromString(cfg.MaxSwapInput)
	if err != nil {
		return fmt.Errorf("parse max-swap-input: %w", err)
	}

	xToken, yToken := asset.SortTokens(
		asset.Token{Address: "resource_" + strings.ToLower(cfg.XSymbol), Symbol: cfg.XSymbol, Divisibility: cfg.XDivisibility},
		asset.Token{Address: "resource_" + strings.ToLower(cfg.YSymbol), Symbol: cfg.YSymbol, Divisibility: cfg.YDivisibility},
	)

	clock := time.Now().Unix()
	now := func() int64 { return clock }
	collector := registry.NewFeeCollector(protocolFeeShare, cfg.SyncInterval).WithNow(now)

	p, err := pool.New(pool.Config{
		XToken:           xToken,
		YToken:           yToken,
		PriceSqrt:        priceSqrt,
		TickSpacing:      cfg.TickSpacing,
		InputFeeRate:     inputFeeRate,
		FlashLoanFeeRate: flashLoanFeeRate,
		Registry:         collector,
	}, pool.WithLogger(logger), pool.WithNow(now))
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	positions := make([]uint64, 0, cfg.Positions)
	for i := 0; i < cfg.Positions; i++ {
		left := tickmath.AlignTick(int32(rng.Intn(4000)-2000), cfg.TickSpacing)
		width := cfg.TickSpacing * int32(1+rng.Intn(50))
		x := randomBucket(rng, xToken, maxSwapInput)
		y := randomBucket(rng, yToken, maxSwapInput)
		position, err := p.AddLiquidity(left, left+width, x, y)
		if err != nil {
			logger.Warn("add liquidity failed", zap.Error(err))
			continue
		}
		positions = append(positions, position.ID)
		clock++
	}
	if len(positions) == 0 {
		return fmt.Errorf("no position could be opened, widen the budgets")
	}

	var swapped int
	for i := 0; i < cfg.Swaps; i++ {
		token := xToken
		if rng.Intn(2) == 0 {
			token = yToken
		}
		input := randomBucket(rng, token, maxSwapInput)
		if input.IsEmpty() {
			continue
		}
		output, err := p.Swap(input)
		if err != nil {
			logger.Warn("swap failed", zap.Error(err))
			continue
		}
		swapped++
		clock += int64(1 + rng.Intn(600))
		logger.Debug("swap",
			zap.String("in", token.Symbol),
			zap.String("out", output.Amount().String()),
			zap.String("price_sqrt", p.PriceSqrt().String()),
		)
	}

	xClaim, yClaim, err := p.ClaimFees(positions...)
	if err != nil {
		return err
	}
	xOut, yOut, err := p.RemoveLiquidity(positions...)
	if err != nil {
		return err
	}

	xVault, yVault := p.TotalLiquidity()
	logger.Info("simulation finished",
		zap.Int("positions", len(positions)),
		zap.Int("swaps", swapped),
		zap.String("price_sqrt", p.PriceSqrt().String()),
		zap.String("fees_x", xClaim.Amount().String()),
		zap.String("fees_y", yClaim.Amount().String()),
		zap.String("returned_x", xOut.Amount().String()),
		zap.String("returned_y", yOut.Amount().String()),
		zap.String("residual_x", xVault.String()),
		zap.String("residual_y", yVault.String()),
		zap.String("protocol_x", collector.Collected(p.Address(), xToken.Address).String()),
		zap.String("protocol_y", collector.Collected(p.Address(), yToken.Address).String()),
	)
	return nil
}

func randomBucket(rng *rand.Rand, token asset.Token, max decimal.Decimal) *asset.Bucket {
	amount := max.Mul(decimal.NewFromFloat(rng.Float64())).Truncate(token.Divisibility)
	bucket, _ := asset.NewBucket(token, amount)
	return bucket
}

func newLogger(level string) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log-level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
