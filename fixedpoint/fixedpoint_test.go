package fixedpoint

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulTruncates(t *testing.T) {
	// 1e-36 * 0.1 = 1e-37 falls off the precise scale.
	got := Mul(PreciseAtto, decimal.RequireFromString("0.1"))
	assert.True(t, got.IsZero())

	got = Mul(decimal.RequireFromString("1.5"), decimal.RequireFromString("2"))
	assert.True(t, got.Equal(decimal.RequireFromString("3")))
}

func TestDivTruncates(t *testing.T) {
	got := Div(One, decimal.NewFromInt(3))
	want := decimal.RequireFromString("0.333333333333333333333333333333333333")
	assert.True(t, got.Equal(want), "got %s", got)

	// Truncation, not rounding: 2/3 ends in ...66, never ...67.
	got = Div(decimal.NewFromInt(2), decimal.NewFromInt(3))
	want = decimal.RequireFromString("0.666666666666666666666666666666666666")
	assert.True(t, got.Equal(want), "got %s", got)
}

func TestCeilToFloorTo(t *testing.T) {
	d := decimal.RequireFromString("1.23456")

	assert.True(t, CeilTo(d, 2).Equal(decimal.RequireFromString("1.24")))
	assert.True(t, FloorTo(d, 2).Equal(decimal.RequireFromString("1.23")))

	// Exact values stay untouched in both directions.
	exact := decimal.RequireFromString("1.25")
	assert.True(t, CeilTo(exact, 2).Equal(exact))
	assert.True(t, FloorTo(exact, 2).Equal(exact))
}

func TestUnit(t *testing.T) {
	assert.True(t, Unit(0).Equal(One))
	assert.True(t, Unit(2).Equal(decimal.RequireFromString("0.01")))
	assert.True(t, Unit(18).Equal(Atto))
}

func TestPowInt(t *testing.T) {
	base := decimal.RequireFromString("1.000049998750062496094023416993798697")

	assert.True(t, PowInt(base, 0).Equal(One))
	assert.True(t, PowInt(base, 1).Equal(base))
	assert.True(t, PowInt(base, 2).Equal(Mul(base, base)))

	// The squaring chain must truncate at every multiplication, matching a
	// sequential product with the same arithmetic.
	sequential := One
	for i := 0; i < 13; i++ {
		sequential = Mul(sequential, base)
	}
	assert.True(t, PowInt(base, 13).Equal(sequential), "got %s want %s", PowInt(base, 13), sequential)
}

func TestPowIntNegativeExponent(t *testing.T) {
	base := decimal.RequireFromString("1.0001")

	got := PowInt(base, -5)
	want := Div(One, PowInt(base, 5))
	require.True(t, got.Equal(want))
	assert.True(t, got.LessThan(One))
	assert.True(t, got.IsPositive())
}
