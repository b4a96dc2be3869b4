// Package fixedpoint pins the two decimal scales the pool computes on:
// token amounts carry at most 18 fractional digits, prices, liquidity and
// fee-growth accumulators carry 36. All multiplication and division
// truncates toward zero at 36 digits; the correction units Atto and
// PreciseAtto absorb the resulting one-ulp errors where a calculation has
// to round in the pool's favour.
package fixedpoint

import "github.com/shopspring/decimal"

const (
	// AmountScale is the maximum number of fractional digits of an amount.
	AmountScale int32 = 18
	// PreciseScale is the number of fractional digits of precise values.
	PreciseScale int32 = 36
)

var (
	Zero = decimal.Zero
	One  = decimal.NewFromInt(1)

	// Atto is the smallest representable amount, PreciseAtto the smallest
	// representable precise value.
	Atto        = decimal.New(1, -AmountScale)
	PreciseAtto = decimal.New(1, -PreciseScale)
)

// Mul multiplies truncating the result to PreciseScale fractional digits.
func Mul(a, b decimal.Decimal) decimal.Decimal {
	return a.Mul(b).Truncate(PreciseScale)
}

// Div divides truncating the quotient to PreciseScale fractional digits.
func Div(a, b decimal.Decimal) decimal.Decimal {
	q, _ := a.QuoRem(b, PreciseScale)
	return q
}

// CeilTo rounds up to the given number of fractional digits.
func CeilTo(d decimal.Decimal, decimals int32) decimal.Decimal {
	return d.RoundCeil(decimals)
}

// FloorTo rounds down to the given number of fractional digits.
func FloorTo(d decimal.Decimal, decimals int32) decimal.Decimal {
	return d.RoundFloor(decimals)
}

// Unit returns the smallest amount of a token with the given divisibility,
// e.g. 0.01 for divisibility 2.
func Unit(divisibility int32) decimal.Decimal {
	return decimal.New(1, -divisibility)
}

// PowInt raises base to an integer exponent by binary exponentiation,
// truncating after every multiplication. The tick price grid is defined in
// terms of exactly this arithmetic, so the truncation points are part of
// the contract, not an implementation detail. Negative exponents take the
// reciprocal of the positive power.
func PowInt(base decimal.Decimal, exp int64) decimal.Decimal {
	if exp < 0 {
		return Div(One, PowInt(base, -exp))
	}
	result := One
	for ; exp > 0; exp >>= 1 {
		if exp&1 == 1 {
			result = Mul(result, base)
		}
		if exp > 1 {
			base = Mul(base, base)
		}
	}
	return result
}
