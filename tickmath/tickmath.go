// Package tickmath converts between tick indices and square-root prices
// and derives the per-tick liquidity capacity from the tick spacing.
package tickmath

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/razi90/precision-pool/fixedpoint"
)

var (
	ErrTickOutOfBounds      = errors.New("tick outside of <MinTick, MaxTick>")
	ErrPriceSqrtOutOfBounds = errors.New("price sqrt outside of the tick price range")
)

const (
	MaxTick int32 = 887272
	MinTick int32 = -MaxTick
)

var (
	// TickBaseSqrt is sqrt(1.0001): one tick moves the price by one basis
	// point, so the square-root price moves by this factor.
	TickBaseSqrt = decimal.RequireFromString("1.000049998750062496094023416993798697")

	// MaxLiquidity bounds the total liquidity of a pool across all ticks.
	MaxLiquidity = decimal.RequireFromString("3138668841663005800034")

	// MinPriceSqrt and MaxPriceSqrt are the prices of the outermost ticks.
	MinPriceSqrt = fixedpoint.PowInt(TickBaseSqrt, int64(MinTick))
	MaxPriceSqrt = fixedpoint.PowInt(TickBaseSqrt, int64(MaxTick))
)

// PriceSqrt returns the square-root price of a tick.
func PriceSqrt(tick int32) (decimal.Decimal, error) {
	if tick < MinTick || tick > MaxTick {
		return decimal.Decimal{}, fmt.Errorf("%w: %d", ErrTickOutOfBounds, tick)
	}
	return fixedpoint.PowInt(TickBaseSqrt, int64(tick)), nil
}

// CheckPriceSqrt reports whether a price lies on the representable grid.
func CheckPriceSqrt(priceSqrt decimal.Decimal) error {
	if !priceSqrt.IsPositive() || priceSqrt.LessThan(MinPriceSqrt) || priceSqrt.GreaterThan(MaxPriceSqrt) {
		return fmt.Errorf("%w: %s", ErrPriceSqrtOutOfBounds, priceSqrt)
	}
	return nil
}

// AlignTick snaps a tick to the nearest multiple of the spacing, rounding
// the quotient toward zero. For negative ticks this aligns toward zero,
// not downward; both bounds of a position shift the same way, which keeps
// relative ranges intact.
func AlignTick(tick, spacing int32) int32 {
	return (tick / spacing) * spacing
}

// NumberOfTicks is the count of ticks on the spacing grid, symmetric
// around zero.
func NumberOfTicks(spacing int32) int32 {
	return 2*(MaxTick/spacing) + 1
}

// MaxLiquidityPerTick distributes MaxLiquidity evenly over the grid so a
// single tick can never concentrate the whole pool bound.
func MaxLiquidityPerTick(spacing int32) decimal.Decimal {
	return fixedpoint.Div(MaxLiquidity, decimal.NewFromInt(int64(NumberOfTicks(spacing))))
}
