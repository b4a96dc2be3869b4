// Package precisionpool holds the shared data types of the concentrated
// liquidity pool: initialized ticks, liquidity positions and flash loan
// receipts. The math lives in the subpackages, the orchestration in pool.
package precisionpool

import (
	"github.com/shopspring/decimal"
)

// Tick is an initialized price level. DeltaLiquidity is the signed
// liquidity change applied when the price crosses the tick left to right,
// TotalLiquidity the gross liquidity referencing the tick (capacity
// accounting). The outside values are relative accumulators that flip on
// every crossing; they only have meaning in combination with the global
// accumulators and the current active tick.
type Tick struct {
	Index          int32
	DeltaLiquidity decimal.Decimal
	TotalLiquidity decimal.Decimal
	PriceSqrt      decimal.Decimal
	XFeeOutside    decimal.Decimal
	YFeeOutside    decimal.Decimal
	SecondsOutside int64
}

// TickOutside is the flipped outside snapshot of a crossed tick.
type TickOutside struct {
	Index   int32
	XFee    decimal.Decimal
	YFee    decimal.Decimal
	Seconds int64
}

// FlipOutside re-anchors the tick's outside values against the global
// accumulators (new_outside = global - old_outside) and returns the result
// without mutating the tick. The caller applies the snapshot when the
// enclosing operation commits.
func (t *Tick) FlipOutside(xFeeGlobal, yFeeGlobal decimal.Decimal, secondsGlobal int64) TickOutside {
	return TickOutside{
		Index:   t.Index,
		XFee:    xFeeGlobal.Sub(t.XFeeOutside),
		YFee:    yFeeGlobal.Sub(t.YFeeOutside),
		Seconds: secondsGlobal - t.SecondsOutside,
	}
}

// Apply writes the flipped snapshot back onto the tick.
func (o TickOutside) Apply(t *Tick) {
	t.XFeeOutside = o.XFee
	t.YFeeOutside = o.YFee
	t.SecondsOutside = o.Seconds
}

// LiquidityPosition is a range order between two aligned ticks.
//
// XFeeCheckpoint/YFeeCheckpoint move forward on every claim; the total
// checkpoints are frozen at mint time so lifetime fees stay queryable.
// Checkpoints can be negative, only the growth between two checkpoints
// carries meaning.
type LiquidityPosition struct {
	ID         uint64
	Liquidity  decimal.Decimal
	LeftBound  int32
	RightBound int32
	ShapeID    string
	AddedAt    int64

	XFeeCheckpoint      decimal.Decimal
	YFeeCheckpoint      decimal.Decimal
	XTotalFeeCheckpoint decimal.Decimal
	YTotalFeeCheckpoint decimal.Decimal

	SecondsInsideCheckpoint int64
}

// LoanTerms is the transient receipt of an outstanding flash loan.
type LoanTerms struct {
	ID        string
	Token     string
	DueAmount decimal.Decimal
	Fee       decimal.Decimal
}
