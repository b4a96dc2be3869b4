// Package liquiditymath computes the token amounts bound to and released
// from liquidity positions, and the fee split applied to swap inputs.
//
// Rounding is directional throughout: amounts deposited into the pool
// round up, amounts leaving the pool round down, and intermediate results
// carry explicit one-ulp corrections so the pool can never pay out more
// than perfect-precision arithmetic would allow.
package liquiditymath

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/razi90/precision-pool/fixedpoint"
)

var (
	ErrNetInputNotPositive = errors.New("net input after fees must be positive")
)

var two = decimal.NewFromInt(2)

// AddableAmounts determines the liquidity mintable from the provided token
// amounts between the given price bounds, together with the amounts that
// will actually be deposited.
//
// Two divisibility units are deducted from each provided amount before the
// liquidity is derived: one to cover the final round-up of the deposit,
// one to cover accumulated precision error. The computed liquidity is
// therefore never larger, and the deposits never smaller, than their exact
// counterparts.
func AddableAmounts(
	xAmount decimal.Decimal, xDivisibility int32,
	yAmount decimal.Decimal, yDivisibility int32,
	priceSqrt, priceLeftSqrt, priceRightSqrt decimal.Decimal,
) (liquidity, xAllowed, yAllowed decimal.Decimal) {
	xMargin := fixedpoint.Unit(xDivisibility).Mul(two)
	yMargin := fixedpoint.Unit(yDivisibility).Mul(two)

	xSafe := decimal.Max(xAmount.Sub(xMargin), decimal.Zero)
	ySafe := decimal.Max(yAmount.Sub(yMargin), decimal.Zero)

	// Price below the range: the position is entirely in X.
	if priceSqrt.LessThanOrEqual(priceLeftSqrt) {
		return fixedpoint.Div(xSafe, xScaleSafe(priceLeftSqrt, priceRightSqrt)), xAmount, decimal.Zero
	}

	// Price above the range: the position is entirely in Y.
	if priceSqrt.GreaterThanOrEqual(priceRightSqrt) {
		return fixedpoint.Div(ySafe, yScaleSafe(priceLeftSqrt, priceRightSqrt)), decimal.Zero, yAmount
	}

	xScale := xScaleSafe(priceSqrt, priceRightSqrt)
	yScale := yScaleSafe(priceLeftSqrt, priceSqrt)

	liquidity = decimal.Min(fixedpoint.Div(xSafe, xScale), fixedpoint.Div(ySafe, yScale))

	// One Atto covers the remaining precision error of the scale products.
	xAllowed = fixedpoint.CeilTo(fixedpoint.Mul(liquidity, xScale).Add(fixedpoint.Atto), xDivisibility)
	yAllowed = fixedpoint.CeilTo(fixedpoint.Mul(liquidity, yScale).Add(fixedpoint.Atto), yDivisibility)

	return liquidity,
		adjustWithinMargin(xAmount, xAllowed, xMargin),
		adjustWithinMargin(yAmount, yAllowed, yMargin)
}

// RemovableAmounts returns the token amounts released by burning the given
// liquidity between the price bounds, floored to the token divisibilities.
func RemovableAmounts(
	liquidity, priceSqrt, priceLeftSqrt, priceRightSqrt decimal.Decimal,
	xDivisibility, yDivisibility int32,
) (xAmount, yAmount decimal.Decimal) {
	if priceSqrt.LessThanOrEqual(priceLeftSqrt) {
		x := decimal.Max(
			fixedpoint.Div(liquidity, priceLeftSqrt).
				Sub(fixedpoint.Div(liquidity, priceRightSqrt).Add(fixedpoint.PreciseAtto)),
			decimal.Zero,
		)
		return fixedpoint.FloorTo(x, xDivisibility), decimal.Zero
	}

	if priceSqrt.GreaterThanOrEqual(priceRightSqrt) {
		y := fixedpoint.Mul(liquidity, priceRightSqrt.Sub(priceLeftSqrt))
		return decimal.Zero, fixedpoint.FloorTo(y, yDivisibility)
	}

	x := decimal.Max(
		fixedpoint.Div(liquidity, priceSqrt).
			Sub(fixedpoint.Div(liquidity, priceRightSqrt).Add(fixedpoint.PreciseAtto)),
		decimal.Zero,
	)
	y := fixedpoint.Mul(liquidity, priceSqrt.Sub(priceLeftSqrt))

	return fixedpoint.FloorTo(x, xDivisibility), fixedpoint.FloorTo(y, yDivisibility)
}

// NetInput splits a gross swap input into the net amount that moves the
// price, the liquidity provider fee and the protocol fee. The total fee
// rounds up against the trader, the protocol slice rounds down in favour
// of liquidity providers.
func NetInput(
	inputAmount, inputFeeRate, feeProtocolShare decimal.Decimal,
	divisibility int32,
) (net, feeLP, feeProtocol decimal.Decimal, err error) {
	feeTotal := fixedpoint.CeilTo(fixedpoint.Mul(inputAmount, inputFeeRate), divisibility)
	feeProtocol = fixedpoint.FloorTo(feeTotal.Mul(feeProtocolShare), divisibility)
	feeLP = feeTotal.Sub(feeProtocol)
	net = inputAmount.Sub(feeTotal)
	if !net.IsPositive() {
		return decimal.Zero, decimal.Zero, decimal.Zero, ErrNetInputNotPositive
	}
	return net, feeLP, feeProtocol, nil
}

func xScaleSafe(lowerPriceSqrt, upperPriceSqrt decimal.Decimal) decimal.Decimal {
	return fixedpoint.Div(fixedpoint.One, lowerPriceSqrt).
		Add(fixedpoint.PreciseAtto).
		Sub(fixedpoint.Div(fixedpoint.One, upperPriceSqrt))
}

func yScaleSafe(lowerPriceSqrt, upperPriceSqrt decimal.Decimal) decimal.Decimal {
	// Both bounds are constants for the lifetime of a position, the exact
	// difference needs no correction term.
	return upperPriceSqrt.Sub(lowerPriceSqrt)
}

// adjustWithinMargin hands out the full provided amount when the computed
// deposit is within the precision margin of it, so dust below the margin
// never remains in the caller's bucket.
func adjustWithinMargin(amount, allowed, margin decimal.Decimal) decimal.Decimal {
	if amount.Sub(allowed).LessThanOrEqual(margin) {
		return amount
	}
	return allowed
}
