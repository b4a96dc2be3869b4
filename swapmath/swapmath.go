// Package swapmath implements the multi-step swap engine: price movement
// within a liquidity interval, the decision between partial and full
// steps, tick crossing and the fee accrual that accompanies each step.
package swapmath

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/razi90/precision-pool/fixedpoint"
)

// SwapType is the direction of a swap.
type SwapType int

const (
	// BuyX swaps Y for X, the price moves up.
	BuyX SwapType = iota
	// SellX swaps X for Y, the price moves down.
	SellX
)

func (s SwapType) String() string {
	if s == BuyX {
		return "buy_x"
	}
	return "sell_x"
}

// Control steers the tick iteration of a swap.
type Control int

const (
	Continue Control = iota
	Break
)

// NoActiveTick is the pivot used while no tick lies at or below the price.
// Every real tick index compares greater.
const NoActiveTick int32 = math.MinInt32

// NewPrice returns the square-root price after consuming the input amount
// against constant liquidity.
//
// One input divisibility unit is deducted up front, which makes the result
// marginally less favourable for the trader than exact arithmetic: for
// BuyX slightly below the exact new price but never below the current one,
// for SellX slightly above but never above the current one. InputStep is
// rounded up by the same unit, so the pair can never disagree about
// whether a tick is reached.
func NewPrice(
	swapType SwapType,
	liquidity, priceSqrt decimal.Decimal,
	inputAmount decimal.Decimal,
	inputDivisibility int32,
) decimal.Decimal {
	input := decimal.Max(inputAmount.Sub(fixedpoint.Unit(inputDivisibility)), decimal.Zero)
	switch swapType {
	case BuyX:
		return decimal.Max(fixedpoint.Div(input, liquidity).Add(priceSqrt), priceSqrt)
	default:
		numerator := fixedpoint.Mul(liquidity, priceSqrt).Add(fixedpoint.PreciseAtto)
		denominator := liquidity.Add(fixedpoint.Mul(input, priceSqrt))
		return decimal.Min(
			fixedpoint.Div(numerator, denominator).Add(fixedpoint.PreciseAtto),
			priceSqrt,
		)
	}
}

// newLiquidity applies a tick's signed liquidity delta in the direction of
// the swap.
func newLiquidity(swapType SwapType, liquidity, deltaLiquidity decimal.Decimal) decimal.Decimal {
	if swapType == BuyX {
		return liquidity.Add(deltaLiquidity)
	}
	return liquidity.Sub(deltaLiquidity)
}

// InputStep is the input amount needed to move the price from priceSqrt
// to priceNextSqrt, rounded up to the input divisibility. The result is
// never smaller than the exact amount; the error is bounded by one
// divisibility unit.
func InputStep(
	swapType SwapType,
	liquidity, priceSqrt, priceNextSqrt decimal.Decimal,
	inputDivisibility int32,
) decimal.Decimal {
	var amount decimal.Decimal
	switch swapType {
	case BuyX:
		amount = fixedpoint.Mul(liquidity, priceSqrt.Sub(priceNextSqrt).Abs()).
			Add(fixedpoint.PreciseAtto)
	default:
		amount = fixedpoint.Div(liquidity, priceSqrt).
			Sub(fixedpoint.Div(liquidity, priceNextSqrt)).Abs().
			Add(fixedpoint.PreciseAtto)
	}
	return fixedpoint.CeilTo(amount, inputDivisibility)
}

// OutputStep is the output amount released by moving the price from
// priceSqrt to priceNextSqrt, rounded down to the output divisibility so
// it never exceeds the exact amount.
func OutputStep(
	swapType SwapType,
	liquidity, priceSqrt, priceNextSqrt decimal.Decimal,
	outputDivisibility int32,
) decimal.Decimal {
	var amount decimal.Decimal
	switch swapType {
	case BuyX:
		amount = decimal.Max(
			fixedpoint.Div(liquidity, priceSqrt).
				Sub(fixedpoint.Div(liquidity, priceNextSqrt)).Abs().
				Sub(fixedpoint.PreciseAtto),
			decimal.Zero,
		)
	default:
		amount = fixedpoint.Mul(liquidity, priceSqrt.Sub(priceNextSqrt).Abs())
	}
	return fixedpoint.FloorTo(amount, outputDivisibility)
}

// Summand is anything ValueInRange can accumulate.
type Summand[T any] interface {
	Add(T) T
	Sub(T) T
}

// Seconds is a time accumulator usable with ValueInRange.
type Seconds int64

func (s Seconds) Add(o Seconds) Seconds { return s + o }
func (s Seconds) Sub(o Seconds) Seconds { return s - o }

// ValueInRange derives the in-range share of a global accumulator from the
// outside values of the two bounding ticks. Which side of a bound its
// outside value refers to depends on where the active tick currently is:
// at or above the bound it counts the left side, below it the right side.
// Pass NoActiveTick for activeTick when the pool has no active tick.
func ValueInRange[T Summand[T]](
	valueGlobal, valueOutsideLeft, valueOutsideRight T,
	activeTick, leftBound, rightBound int32,
) T {
	var belowLeft T
	if activeTick >= leftBound {
		belowLeft = valueOutsideLeft
	} else {
		belowLeft = valueGlobal.Sub(valueOutsideLeft)
	}

	var aboveRight T
	if activeTick >= rightBound {
		aboveRight = valueGlobal.Sub(valueOutsideRight)
	} else {
		aboveRight = valueOutsideRight
	}

	return valueGlobal.Sub(belowLeft).Sub(aboveRight)
}
