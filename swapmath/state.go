package swapmath

import (
	"github.com/shopspring/decimal"

	precisionpool "github.com/razi90/precision-pool"
	"github.com/razi90/precision-pool/fixedpoint"
)

// State carries a swap across tick iterations. It is built by the pool
// from its committed state, mutated by BuyStep/SellStep, and written back
// only when the swap commits. Crossed ticks are staged in CrossedTicks
// instead of mutating the tick store, so a failing swap leaves the pool
// untouched.
//
// Invariants the pool establishes before the first step:
//
//	InputShare + InputFeeRate = 1
//	FeeLPShare + FeeProtocolShare = 1
type State struct {
	SwapType SwapType

	Input              decimal.Decimal
	InputDivisibility  int32
	Output             decimal.Decimal
	OutputDivisibility int32

	Remainder      decimal.Decimal
	RemainderFeeLP decimal.Decimal

	Liquidity     decimal.Decimal
	ActiveTick    int32
	HasActiveTick bool
	PriceSqrt     decimal.Decimal

	// sellPriceCache holds the price computed while probing the liquidity
	// beyond a crossed tick during SellX, so the next iteration does not
	// recompute it.
	sellPriceCache    decimal.Decimal
	hasSellPriceCache bool

	InputFeeRate     decimal.Decimal
	FeeProtocolShare decimal.Decimal
	FeeLPShare       decimal.Decimal
	InputShare       decimal.Decimal

	FeeLPInput       decimal.Decimal
	FeeProtocolInput decimal.Decimal
	FeeProtocolMax   decimal.Decimal

	GlobalInputFeeLP  decimal.Decimal
	GlobalOutputFeeLP decimal.Decimal
	GlobalSeconds     int64

	CrossedTicks []precisionpool.TickOutside
}

// NewPrice is the price after consuming the whole remainder against the
// given liquidity.
func (s *State) NewPrice(liquidity decimal.Decimal) decimal.Decimal {
	return NewPrice(s.SwapType, liquidity, s.PriceSqrt, s.Remainder, s.InputDivisibility)
}

// LiquidityIsZero reports a liquidity gap at the current price.
func (s *State) LiquidityIsZero() bool {
	return s.Liquidity.IsZero()
}

// RemainderIsEmpty reports whether the input has been fully consumed.
func (s *State) RemainderIsEmpty() bool {
	return !s.Remainder.IsPositive()
}

// NotReachingTick reports whether the candidate price stays strictly on
// the near side of the tick price.
func (s *State) NotReachingTick(tickPriceSqrt, priceNewSqrt decimal.Decimal) bool {
	if s.SwapType == BuyX {
		return priceNewSqrt.LessThan(tickPriceSqrt)
	}
	return tickPriceSqrt.LessThan(priceNewSqrt)
}

// AdjustLiquidity applies a tick's delta in the swap direction.
func (s *State) AdjustLiquidity(deltaLiquidity decimal.Decimal) {
	s.Liquidity = newLiquidity(s.SwapType, s.Liquidity, deltaLiquidity)
}

// CrossTick moves the active tick pointer past the crossed tick, adjusts
// the liquidity and stages the flipped outside values of the tick for the
// commit phase.
func (s *State) CrossTick(crossed *precisionpool.Tick, nextActiveTick int32) {
	s.AdjustLiquidity(crossed.DeltaLiquidity)
	s.ActiveTick = nextActiveTick
	s.HasActiveTick = true

	var xFeeGlobal, yFeeGlobal decimal.Decimal
	switch s.SwapType {
	case BuyX:
		xFeeGlobal, yFeeGlobal = s.GlobalOutputFeeLP, s.GlobalInputFeeLP
	default:
		xFeeGlobal, yFeeGlobal = s.GlobalInputFeeLP, s.GlobalOutputFeeLP
	}
	s.CrossedTicks = append(s.CrossedTicks, crossed.FlipOutside(xFeeGlobal, yFeeGlobal, s.GlobalSeconds))
}

// PartialStep consumes the whole remainder without reaching the next tick.
// The remaining LP fee carries no rounding error, the step simply accrues
// all of it.
func (s *State) PartialStep(priceNewSqrt decimal.Decimal) {
	output := OutputStep(s.SwapType, s.Liquidity, s.PriceSqrt, priceNewSqrt, s.OutputDivisibility)
	s.Output = s.Output.Add(output)
	s.Input = s.Input.Add(s.Remainder)
	s.Remainder = decimal.Zero

	s.GlobalInputFeeLP = s.GlobalInputFeeLP.Add(fixedpoint.Div(s.RemainderFeeLP, s.Liquidity))
	s.FeeLPInput = s.FeeLPInput.Add(s.RemainderFeeLP)
	s.RemainderFeeLP = decimal.Zero

	s.PriceSqrt = priceNewSqrt
}

// FullStep moves the price exactly onto the tick, charging the step input
// and releasing the step output. The step's LP fee is derived from the
// gross/net relation and floored, the flooring remainder stays in
// RemainderFeeLP for the final partial step.
func (s *State) FullStep(tick *precisionpool.Tick) {
	output := OutputStep(s.SwapType, s.Liquidity, s.PriceSqrt, tick.PriceSqrt, s.OutputDivisibility)
	s.Output = s.Output.Add(output)

	stepInput := InputStep(s.SwapType, s.Liquidity, s.PriceSqrt, tick.PriceSqrt, s.InputDivisibility)
	s.Input = s.Input.Add(stepInput)
	s.Remainder = s.Remainder.Sub(stepInput)

	totalFeeStep := fixedpoint.Div(stepInput, s.InputShare).Sub(stepInput)
	feeLPDelta := fixedpoint.FloorTo(fixedpoint.Mul(totalFeeStep, s.FeeLPShare), s.InputDivisibility)
	s.GlobalInputFeeLP = s.GlobalInputFeeLP.Add(fixedpoint.Div(feeLPDelta, s.Liquidity))
	s.FeeLPInput = s.FeeLPInput.Add(feeLPDelta)
	s.RemainderFeeLP = s.RemainderFeeLP.Sub(feeLPDelta)

	s.PriceSqrt = tick.PriceSqrt
}

// StepSwap runs one price step against the tick: a partial step ends the
// swap, a full step lands on the tick and continues.
func (s *State) StepSwap(tick *precisionpool.Tick, priceNewSqrt decimal.Decimal) Control {
	if s.NotReachingTick(tick.PriceSqrt, priceNewSqrt) {
		s.PartialStep(priceNewSqrt)
		return Break
	}
	s.FullStep(tick)
	return Continue
}

// TakeProtocolFees fixes the protocol fee of the swap. A fully consumed
// input pays the precomputed maximum; a swap ending with a remainder pays
// the share reconstructed from the LP fees actually accrued, rounded up
// but never above the maximum.
func (s *State) TakeProtocolFees() {
	if s.RemainderIsEmpty() {
		s.FeeProtocolInput = s.FeeProtocolMax
		return
	}

	partial := fixedpoint.CeilTo(
		fixedpoint.Div(s.FeeLPInput, s.FeeLPShare).Sub(s.FeeLPInput),
		s.InputDivisibility,
	)
	s.FeeProtocolInput = decimal.Min(s.FeeProtocolMax, partial)
}

// BuyStep processes one tick while buying X. Liquidity gaps snap the price
// directly to the tick and cross it without consuming input.
func BuyStep(s *State, tick *precisionpool.Tick) Control {
	if s.LiquidityIsZero() {
		s.PriceSqrt = tick.PriceSqrt
		s.CrossTick(tick, tick.Index)
		return Continue
	}

	priceNewSqrt := s.NewPrice(s.Liquidity)
	if s.StepSwap(tick, priceNewSqrt) == Break {
		return Break
	}

	s.CrossTick(tick, tick.Index)

	if s.RemainderIsEmpty() {
		return Break
	}
	return Continue
}

// SellStep processes one tick while selling X. The iteration starts on the
// active tick itself, so a step only runs when the price is strictly above
// the tick price. The tick is crossed only when there is another tick
// below and the remainder can still move the price there, which the
// lookahead price against the post-cross liquidity decides; that price is
// cached for the next iteration.
func SellStep(s *State, tick *precisionpool.Tick, nextTick int32, hasNextTick bool) Control {
	if s.LiquidityIsZero() {
		s.PriceSqrt = tick.PriceSqrt
	}

	if !s.PriceSqrt.Equal(tick.PriceSqrt) {
		var priceNewSqrt decimal.Decimal
		if s.hasSellPriceCache {
			priceNewSqrt = s.sellPriceCache
			s.hasSellPriceCache = false
		} else {
			priceNewSqrt = s.NewPrice(s.Liquidity)
		}
		if s.StepSwap(tick, priceNewSqrt) == Break {
			return Break
		}
	}

	if s.RemainderIsEmpty() || !hasNextTick {
		return Break
	}

	nextLiquidity := newLiquidity(s.SwapType, s.Liquidity, tick.DeltaLiquidity)
	if nextLiquidity.IsZero() {
		s.CrossTick(tick, nextTick)
		return Continue
	}

	priceNewSqrt := s.NewPrice(nextLiquidity)
	if priceNewSqrt.Equal(s.PriceSqrt) {
		return Break
	}

	s.CrossTick(tick, nextTick)
	s.sellPriceCache = priceNewSqrt
	s.hasSellPriceCache = true

	return Continue
}
