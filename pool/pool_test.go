package pool

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	precisionpool "github.com/razi90/precision-pool"
	"github.com/razi90/precision-pool/asset"
	"github.com/razi90/precision-pool/tickmath"
)

var (
	tokenX = asset.Token{Address: "resource_a_xrd", Symbol: "XRD", Divisibility: 18}
	tokenY = asset.Token{Address: "resource_b_usdc", Symbol: "USDC", Divisibility: 6}
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testConfig() Config {
	return Config{
		XToken:           tokenX,
		YToken:           tokenY,
		PriceSqrt:        dec("1"),
		TickSpacing:      10,
		InputFeeRate:     dec("0.003"),
		FlashLoanFeeRate: dec("0.001"),
	}
}

// newTestPool builds a pool with a controllable clock.
func newTestPool(t *testing.T, cfg Config, opts ...Option) (*Pool, *int64) {
	t.Helper()
	clock := int64(1_000_000)
	opts = append(opts, WithNow(func() int64 { return clock }))
	p, err := New(cfg, opts...)
	require.NoError(t, err)
	return p, &clock
}

func bucket(t *testing.T, token asset.Token, amount string) *asset.Bucket {
	t.Helper()
	b, err := asset.NewBucket(token, dec(amount))
	require.NoError(t, err)
	return b
}

func addTestPosition(t *testing.T, p *Pool, left, right int32, x, y string) uint64 {
	t.Helper()
	position, err := p.AddLiquidity(left, right, bucket(t, tokenX, x), bucket(t, tokenY, y))
	require.NoError(t, err)
	return position.ID
}

func TestNewValidation(t *testing.T) {
	t.Run("tokens out of order", func(t *testing.T) {
		cfg := testConfig()
		cfg.XToken, cfg.YToken = cfg.YToken, cfg.XToken
		_, err := New(cfg)
		assert.ErrorIs(t, err, ErrInvalidTokenPair)
	})

	t.Run("identical tokens", func(t *testing.T) {
		cfg := testConfig()
		cfg.YToken = cfg.XToken
		_, err := New(cfg)
		assert.ErrorIs(t, err, ErrInvalidTokenPair)
	})

	t.Run("tick spacing", func(t *testing.T) {
		cfg := testConfig()
		cfg.TickSpacing = 0
		_, err := New(cfg)
		assert.ErrorIs(t, err, ErrInvalidTickSpacing)
	})

	t.Run("price out of range", func(t *testing.T) {
		cfg := testConfig()
		cfg.PriceSqrt = decimal.Zero
		_, err := New(cfg)
		assert.ErrorIs(t, err, tickmath.ErrPriceSqrtOutOfBounds)
	})

	t.Run("input fee rate", func(t *testing.T) {
		cfg := testConfig()
		cfg.InputFeeRate = dec("0.2")
		_, err := New(cfg)
		assert.ErrorIs(t, err, ErrFeeRateOutOfRange)
	})

	t.Run("flash loan fee rate", func(t *testing.T) {
		cfg := testConfig()
		cfg.FlashLoanFeeRate = dec("0.5")
		_, err := New(cfg)
		assert.ErrorIs(t, err, ErrFeeRateOutOfRange)
	})
}

func TestInstantiateEmitsEvent(t *testing.T) {
	emitter := &CollectingEmitter{}
	p, _ := newTestPool(t, testConfig(), WithEmitter(emitter))

	require.Len(t, emitter.Events, 1)
	event, ok := emitter.Events[0].(InstantiateEvent)
	require.True(t, ok)
	assert.Equal(t, p.Address(), event.Pool)
	assert.Equal(t, tokenX, event.XToken)
}

func TestAddLiquidityInRange(t *testing.T) {
	p, _ := newTestPool(t, testConfig())

	x := bucket(t, tokenX, "100")
	y := bucket(t, tokenY, "100")
	position, err := p.AddLiquidity(-1000, 1000, x, y)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), position.ID)
	assert.Equal(t, int32(-1000), position.LeftBound)
	assert.Equal(t, int32(1000), position.RightBound)
	assert.True(t, position.Liquidity.IsPositive())

	// Both tokens are deposited; only dust below the precision margin may
	// stay behind.
	assert.True(t, x.Amount().LessThan(dec("0.000000000000000003")))
	assert.True(t, y.Amount().LessThan(dec("0.000003")))

	vaultX, vaultY := p.TotalLiquidity()
	assert.True(t, vaultX.Add(x.Amount()).Equal(dec("100")))
	assert.True(t, vaultY.Add(y.Amount()).Equal(dec("100")))

	// The left bound lies at or below the price and becomes the active tick.
	activeTick, ok := p.ActiveTick()
	require.True(t, ok)
	assert.Equal(t, int32(-1000), activeTick)
	assert.True(t, p.ActiveLiquidity().Equal(position.Liquidity))
}

func TestAddLiquidityAlignsBounds(t *testing.T) {
	p, _ := newTestPool(t, testConfig())

	position, err := p.AddLiquidity(-95, 95, bucket(t, tokenX, "10"), bucket(t, tokenY, "10"))
	require.NoError(t, err)

	assert.Equal(t, int32(-90), position.LeftBound)
	assert.Equal(t, int32(90), position.RightBound)
}

func TestAddLiquidityInvalidBounds(t *testing.T) {
	p, _ := newTestPool(t, testConfig())

	_, err := p.AddLiquidity(100, -100, bucket(t, tokenX, "10"), bucket(t, tokenY, "10"))
	assert.ErrorIs(t, err, ErrInvalidBounds)

	// Equal after alignment.
	_, err = p.AddLiquidity(52, 55, bucket(t, tokenX, "10"), bucket(t, tokenY, "10"))
	assert.ErrorIs(t, err, ErrInvalidBounds)

	_, err = p.AddLiquidity(tickmath.MinTick-1, 0, bucket(t, tokenX, "10"), bucket(t, tokenY, "10"))
	assert.ErrorIs(t, err, ErrInvalidBounds)
}

func TestAddLiquidityWrongTokens(t *testing.T) {
	p, _ := newTestPool(t, testConfig())

	_, err := p.AddLiquidity(-100, 100, bucket(t, tokenY, "10"), bucket(t, tokenX, "10"))
	assert.ErrorIs(t, err, asset.ErrTokenMismatch)
}

func TestAddLiquidityZeroBudget(t *testing.T) {
	p, _ := newTestPool(t, testConfig())

	_, err := p.AddLiquidity(-100, 100,
		bucket(t, tokenX, "0.000000000000000001"),
		bucket(t, tokenY, "0.000001"),
	)
	assert.ErrorIs(t, err, ErrZeroLiquidity)
}

func TestAddLiquidityOneSided(t *testing.T) {
	p, _ := newTestPool(t, testConfig())

	// A range entirely above the price binds only X.
	position, err := p.AddLiquidity(100, 1000, bucket(t, tokenX, "50"), bucket(t, tokenY, "50"))
	require.NoError(t, err)
	assert.True(t, position.Liquidity.IsPositive())

	_, vaultY := p.TotalLiquidity()
	assert.True(t, vaultY.IsZero())
	// The position is out of range, the active liquidity stays empty.
	assert.True(t, p.ActiveLiquidity().IsZero())
}

func TestNewWithLiquidity(t *testing.T) {
	p, position, err := NewWithLiquidity(
		testConfig(), -1000, 1000,
		mustBucket(tokenX, "100"), mustBucket(tokenY, "100"),
	)
	require.NoError(t, err)
	require.NotNil(t, position)
	assert.True(t, p.ActiveLiquidity().Equal(position.Liquidity))
}

func mustBucket(token asset.Token, amount string) *asset.Bucket {
	b, err := asset.NewBucket(token, decimal.RequireFromString(amount))
	if err != nil {
		panic(err)
	}
	return b
}

func TestSwapBuyXMovesPriceUp(t *testing.T) {
	p, _ := newTestPool(t, testConfig())
	addTestPosition(t, p, -1000, 1000, "100", "100")

	input := bucket(t, tokenY, "10")
	output, err := p.Swap(input)
	require.NoError(t, err)

	assert.Equal(t, tokenX, output.Token())
	assert.True(t, output.Amount().IsPositive())
	assert.True(t, p.PriceSqrt().GreaterThan(dec("1")))
	// The whole input was consumed within the range.
	assert.True(t, input.IsEmpty())
}

func TestSwapSellXMovesPriceDown(t *testing.T) {
	p, _ := newTestPool(t, testConfig())
	addTestPosition(t, p, -1000, 1000, "100", "100")

	input := bucket(t, tokenX, "10")
	output, err := p.Swap(input)
	require.NoError(t, err)

	assert.Equal(t, tokenY, output.Token())
	assert.True(t, output.Amount().IsPositive())
	assert.True(t, p.PriceSqrt().LessThan(dec("1")))
	assert.True(t, input.IsEmpty())
}

func TestSwapRoundTripNeverProfits(t *testing.T) {
	p, _ := newTestPool(t, testConfig())
	addTestPosition(t, p, -1000, 1000, "1000", "1000")

	boughtX, err := p.Swap(bucket(t, tokenY, "10"))
	require.NoError(t, err)
	require.True(t, boughtX.Amount().IsPositive())

	returnedY, err := p.Swap(boughtX)
	require.NoError(t, err)

	assert.True(t, returnedY.Amount().LessThan(dec("10")),
		"round trip returned %s for 10", returnedY.Amount())
}

func TestSwapWrongToken(t *testing.T) {
	p, _ := newTestPool(t, testConfig())
	other := asset.Token{Address: "resource_other", Symbol: "OTHER", Divisibility: 18}

	_, err := p.Swap(bucket(t, other, "10"))
	assert.ErrorIs(t, err, asset.ErrTokenMismatch)
}

func TestSwapEmptyInput(t *testing.T) {
	p, _ := newTestPool(t, testConfig())

	_, err := p.Swap(asset.NewEmptyBucket(tokenY))
	assert.ErrorIs(t, err, ErrEmptySwapInput)
}

func TestSwapBeyondRangeReturnsRemainder(t *testing.T) {
	p, _ := newTestPool(t, testConfig())
	addTestPosition(t, p, -100, 100, "100", "100")

	input := bucket(t, tokenY, "1000000")
	output, err := p.Swap(input)
	require.NoError(t, err)

	// The range is exhausted: the price sits on the right bound, the
	// active liquidity is gone and the unconsumed input stays in the bucket.
	assert.True(t, output.Amount().IsPositive())
	assert.True(t, input.Amount().IsPositive())
	assert.True(t, p.ActiveLiquidity().IsZero())

	activeTick, ok := p.ActiveTick()
	require.True(t, ok)
	assert.Equal(t, int32(100), activeTick)
}

func TestSwapWithoutLiquidityReturnsNothing(t *testing.T) {
	p, _ := newTestPool(t, testConfig())

	input := bucket(t, tokenY, "10")
	output, err := p.Swap(input)
	require.NoError(t, err)

	assert.True(t, output.IsEmpty())
	// Nothing was consumed, fees included.
	assert.True(t, input.Amount().Equal(dec("10")))
	assert.True(t, p.PriceSqrt().Equal(dec("1")))
}

func TestSwapEmitsEvent(t *testing.T) {
	emitter := &CollectingEmitter{}
	p, _ := newTestPool(t, testConfig(), WithEmitter(emitter))
	addTestPosition(t, p, -1000, 1000, "100", "100")

	_, err := p.Swap(bucket(t, tokenY, "10"))
	require.NoError(t, err)

	var swapEvents []SwapEvent
	for _, event := range emitter.Events {
		if e, ok := event.(SwapEvent); ok {
			swapEvents = append(swapEvents, e)
		}
	}
	require.Len(t, swapEvents, 1)
	event := swapEvents[0]
	assert.Equal(t, tokenY.Address, event.InputToken)
	assert.Equal(t, tokenX.Address, event.OutputToken)
	assert.True(t, event.InputGrossAmount.Equal(dec("10")))
	assert.True(t, event.OutputAmount.IsPositive())
}

func TestClaimFees(t *testing.T) {
	p, _ := newTestPool(t, testConfig())
	id := addTestPosition(t, p, -1000, 1000, "100", "100")

	_, err := p.Swap(bucket(t, tokenY, "10"))
	require.NoError(t, err)

	claimableX, claimableY, err := p.ClaimableFees(id)
	require.NoError(t, err)
	assert.True(t, claimableX.IsZero())
	assert.True(t, claimableY.IsPositive())

	xFees, yFees, err := p.ClaimFees(id)
	require.NoError(t, err)
	assert.True(t, xFees.IsEmpty())
	assert.True(t, yFees.Amount().Equal(claimableY))

	// Fees only accrue once.
	_, claimableY, err = p.ClaimableFees(id)
	require.NoError(t, err)
	assert.True(t, claimableY.IsZero())

	// The lifetime total keeps the claimed fees.
	_, totalY, err := p.TotalFees(id)
	require.NoError(t, err)
	assert.True(t, totalY.Equal(yFees.Amount()))
}

func TestClaimFeesUnknownPosition(t *testing.T) {
	p, _ := newTestPool(t, testConfig())

	_, _, err := p.ClaimFees(7)
	assert.ErrorIs(t, err, ErrUnknownPosition)
}

func TestFeesSplitBetweenPositions(t *testing.T) {
	p, _ := newTestPool(t, testConfig())
	first := addTestPosition(t, p, -1000, 1000, "100", "100")
	second := addTestPosition(t, p, -1000, 1000, "100", "100")

	_, err := p.Swap(bucket(t, tokenY, "10"))
	require.NoError(t, err)

	_, firstY, err := p.ClaimableFees(first)
	require.NoError(t, err)
	_, secondY, err := p.ClaimableFees(second)
	require.NoError(t, err)

	// Equal liquidity earns equal fees.
	assert.True(t, firstY.Equal(secondY))
	assert.True(t, firstY.IsPositive())
}

func TestOutOfRangePositionEarnsNothing(t *testing.T) {
	p, _ := newTestPool(t, testConfig())
	inRange := addTestPosition(t, p, -1000, 1000, "100", "100")
	outOfRange := addTestPosition(t, p, -5000, -3000, "0", "100")

	_, err := p.Swap(bucket(t, tokenY, "10"))
	require.NoError(t, err)

	_, inY, err := p.ClaimableFees(inRange)
	require.NoError(t, err)
	_, outY, err := p.ClaimableFees(outOfRange)
	require.NoError(t, err)

	assert.True(t, inY.IsPositive())
	assert.True(t, outY.IsZero())
}

func TestRemoveLiquidity(t *testing.T) {
	p, _ := newTestPool(t, testConfig())
	id := addTestPosition(t, p, -1000, 1000, "100", "100")

	xOut, yOut, err := p.RemoveLiquidity(id)
	require.NoError(t, err)

	// The principal comes back, rounded in the pool's favour.
	assert.True(t, xOut.Amount().LessThanOrEqual(dec("100")))
	assert.True(t, yOut.Amount().LessThanOrEqual(dec("100")))
	assert.True(t, xOut.Amount().GreaterThan(dec("99.99")))
	assert.True(t, yOut.Amount().GreaterThan(dec("99.99")))

	_, err = p.Position(id)
	assert.ErrorIs(t, err, ErrUnknownPosition)
	assert.True(t, p.ActiveLiquidity().IsZero())

	// Both ticks lost their last position; no active tick remains.
	_, ok := p.ActiveTick()
	assert.False(t, ok)
}

func TestRemoveLiquidityIncludesFees(t *testing.T) {
	p, _ := newTestPool(t, testConfig())
	id := addTestPosition(t, p, -1000, 1000, "100", "100")

	_, err := p.Swap(bucket(t, tokenY, "10"))
	require.NoError(t, err)

	removableX, removableY, minFraction, err := p.RemovableLiquidity(id)
	require.NoError(t, err)
	// No after-remove hooks, the preview is exact.
	assert.True(t, minFraction.Equal(dec("1")))

	xOut, yOut, err := p.RemoveLiquidity(id)
	require.NoError(t, err)

	assert.True(t, xOut.Amount().Equal(removableX), "x: %s vs %s", xOut.Amount(), removableX)
	assert.True(t, yOut.Amount().Equal(removableY), "y: %s vs %s", yOut.Amount(), removableY)
}

func TestRemoveLiquidityUnknownPosition(t *testing.T) {
	p, _ := newTestPool(t, testConfig())
	id := addTestPosition(t, p, -1000, 1000, "100", "100")

	// One unknown id fails the whole call before any position is touched.
	_, _, err := p.RemoveLiquidity(id, 99)
	assert.ErrorIs(t, err, ErrUnknownPosition)

	_, err = p.Position(id)
	assert.NoError(t, err)
}

func TestAddLiquidityShape(t *testing.T) {
	p, _ := newTestPool(t, testConfig())

	positions, err := p.AddLiquidityShape([]RangeLiquidity{
		{LeftBound: -2000, RightBound: 0, X: bucket(t, tokenX, "50"), Y: bucket(t, tokenY, "50")},
		{LeftBound: 0, RightBound: 2000, X: bucket(t, tokenX, "50"), Y: bucket(t, tokenY, "50")},
	}, "")
	require.NoError(t, err)
	require.Len(t, positions, 2)

	assert.NotEmpty(t, positions[0].ShapeID)
	assert.Equal(t, positions[0].ShapeID, positions[1].ShapeID)
	assert.NotEqual(t, positions[0].ID, positions[1].ID)
}

func TestAddLiquidityShapeExtendsExisting(t *testing.T) {
	p, _ := newTestPool(t, testConfig())

	first, err := p.AddLiquidityShape([]RangeLiquidity{
		{LeftBound: -1000, RightBound: 1000, X: bucket(t, tokenX, "50"), Y: bucket(t, tokenY, "50")},
	}, "")
	require.NoError(t, err)

	second, err := p.AddLiquidityShape([]RangeLiquidity{
		{LeftBound: -500, RightBound: 500, X: bucket(t, tokenX, "50"), Y: bucket(t, tokenY, "50")},
	}, first[0].ShapeID)
	require.NoError(t, err)
	assert.Equal(t, first[0].ShapeID, second[0].ShapeID)

	_, err = p.AddLiquidityShape([]RangeLiquidity{
		{LeftBound: -500, RightBound: 500, X: bucket(t, tokenX, "50"), Y: bucket(t, tokenY, "50")},
	}, "no-such-shape")
	assert.ErrorIs(t, err, ErrUnknownShape)
}

func TestSecondsInPosition(t *testing.T) {
	p, clock := newTestPool(t, testConfig())
	id := addTestPosition(t, p, -1000, 1000, "100", "100")

	*clock += 100

	seconds, err := p.SecondsInPosition(id)
	require.NoError(t, err)
	assert.Equal(t, int64(100), seconds)
}

func TestFlashLoan(t *testing.T) {
	p, _ := newTestPool(t, testConfig())
	addTestPosition(t, p, -1000, 1000, "100", "100")

	loan, terms, err := p.FlashLoan(tokenX.Address, dec("10"))
	require.NoError(t, err)

	assert.True(t, loan.Amount().Equal(dec("10")))
	assert.True(t, terms.Fee.Equal(dec("0.01")))
	assert.True(t, terms.DueAmount.Equal(dec("10.01")))
	assert.Equal(t, 1, p.OutstandingLoans())

	payment := bucket(t, tokenX, "0.02")
	require.NoError(t, payment.Put(loan))

	require.NoError(t, p.RepayLoan(payment, terms))
	assert.Equal(t, 0, p.OutstandingLoans())
	// The excess over the due amount stays with the borrower.
	assert.True(t, payment.Amount().Equal(dec("0.01")))
}

func TestFlashLoanErrors(t *testing.T) {
	p, _ := newTestPool(t, testConfig())
	addTestPosition(t, p, -1000, 1000, "100", "100")

	loan, terms, err := p.FlashLoan(tokenX.Address, dec("10"))
	require.NoError(t, err)

	t.Run("no receipt", func(t *testing.T) {
		err := p.RepayLoan(bucket(t, tokenX, "20"))
		assert.ErrorIs(t, err, ErrOneLoanReceipt)
	})

	t.Run("wrong token", func(t *testing.T) {
		err := p.RepayLoan(bucket(t, tokenY, "20"), terms)
		assert.ErrorIs(t, err, ErrWrongRepaymentToken)
	})

	t.Run("insufficient payment", func(t *testing.T) {
		err := p.RepayLoan(bucket(t, tokenX, "5"), terms)
		assert.ErrorIs(t, err, ErrInsufficientRepayment)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, _, err := p.FlashLoan("resource_other", dec("1"))
		assert.ErrorIs(t, err, asset.ErrTokenMismatch)
	})

	t.Run("vault too small", func(t *testing.T) {
		_, _, err := p.FlashLoan(tokenX.Address, dec("1000000"))
		assert.ErrorIs(t, err, asset.ErrInsufficientBalance)
	})

	// Settle so the suite leaves no dangling loan.
	payment := bucket(t, tokenX, "0.01")
	require.NoError(t, payment.Put(loan))
	require.NoError(t, p.RepayLoan(payment, terms))

	t.Run("already repaid", func(t *testing.T) {
		err := p.RepayLoan(bucket(t, tokenX, "20"), terms)
		assert.ErrorIs(t, err, ErrUnknownLoanReceipt)
	})
}

func lastSwapEvent(t *testing.T, emitter *CollectingEmitter) SwapEvent {
	t.Helper()
	for i := len(emitter.Events) - 1; i >= 0; i-- {
		if event, ok := emitter.Events[i].(SwapEvent); ok {
			return event
		}
	}
	t.Fatal("no swap event emitted")
	return SwapEvent{}
}

// A small sell against one wide range: the swap routes entirely within the
// range, the price stays on the same tick and the output never exceeds the
// input's value at a price near 1.
func TestSwapSellXWithinSingleWideRange(t *testing.T) {
	emitter := &CollectingEmitter{}
	cfg := testConfig()
	cfg.TickSpacing = 1
	p, _ := newTestPool(t, cfg, WithEmitter(emitter))
	addTestPosition(t, p, -10000, 15000, "10", "10")

	input := bucket(t, tokenX, "1")
	output, err := p.Swap(input)
	require.NoError(t, err)

	assert.True(t, input.IsEmpty())
	assert.True(t, output.Amount().IsPositive())
	assert.True(t, output.Amount().LessThan(dec("1")),
		"sold 1 for %s", output.Amount())
	assert.True(t, output.Amount().GreaterThan(dec("0.9")),
		"sold 1 for %s", output.Amount())

	event := lastSwapEvent(t, emitter)
	assert.Empty(t, event.CrossedTicks)
	activeTick, ok := p.ActiveTick()
	require.True(t, ok)
	assert.Equal(t, int32(-10000), activeTick)

	lowerPriceSqrt, err := tickmath.PriceSqrt(-10000)
	require.NoError(t, err)
	assert.True(t, p.PriceSqrt().LessThan(dec("1")))
	assert.True(t, p.PriceSqrt().GreaterThan(lowerPriceSqrt))
}

// After any swap the active liquidity must equal the net delta liquidity
// of all ticks at or below the active tick.
func TestActiveLiquidityMatchesTickDeltas(t *testing.T) {
	emitter := &CollectingEmitter{}
	p, _ := newTestPool(t, testConfig(), WithEmitter(emitter))
	addTestPosition(t, p, -1000, 1000, "100", "100")
	addTestPosition(t, p, -500, 500, "50", "50")

	crossed := 0
	for _, amount := range []string{"120", "200"} {
		_, err := p.Swap(bucket(t, tokenY, amount))
		require.NoError(t, err)
		crossed += len(lastSwapEvent(t, emitter).CrossedTicks)

		activeTick, ok := p.ActiveTick()
		require.True(t, ok)
		sum := decimal.Zero
		p.ticks.DescendLessOrEqual(activeTick, func(tick *precisionpool.Tick) bool {
			sum = sum.Add(tick.DeltaLiquidity)
			return true
		})
		assert.True(t, p.ActiveLiquidity().Equal(sum),
			"after swap of %s: active %s, tick sum %s", amount, p.ActiveLiquidity(), sum)
	}
	// The fixture crosses the inner and the outer right bound.
	assert.GreaterOrEqual(t, crossed, 2)
}

// The LP and protocol fee of a fully consumed swap must add up to the fee
// charged on the gross input.
func TestSwapFeeConservation(t *testing.T) {
	emitter := &CollectingEmitter{}
	reg := &stubRegistry{share: dec("0.25"), nextSync: 2_000_000}
	cfg := testConfig()
	cfg.Registry = reg
	p, _ := newTestPool(t, cfg, WithEmitter(emitter))
	addTestPosition(t, p, -1000, 1000, "1000", "1000")

	input := bucket(t, tokenY, "10")
	_, err := p.Swap(input)
	require.NoError(t, err)
	require.True(t, input.IsEmpty())

	event := lastSwapEvent(t, emitter)
	feeTotal := event.InputFeeLP.Add(event.InputFeeProtocol)
	assert.True(t, feeTotal.Equal(event.InputGrossAmount.Mul(dec("0.003"))),
		"fees %s on gross %s", feeTotal, event.InputGrossAmount)
	assert.True(t, event.InputFeeProtocol.Equal(dec("0.0075")))
	assert.True(t, event.InputFeeLP.Equal(dec("0.0225")))
}

// Removing a position whose ticks empty out must delete them and re-anchor
// the active tick on the nearest surviving tick below.
func TestRemoveLiquidityRefitsActiveTick(t *testing.T) {
	p, _ := newTestPool(t, testConfig())
	addTestPosition(t, p, -1000, 1000, "100", "100")
	inner := addTestPosition(t, p, -500, 500, "50", "50")

	activeTick, ok := p.ActiveTick()
	require.True(t, ok)
	require.Equal(t, int32(-500), activeTick)

	_, _, err := p.RemoveLiquidity(inner)
	require.NoError(t, err)

	activeTick, ok = p.ActiveTick()
	require.True(t, ok)
	assert.Equal(t, int32(-1000), activeTick)

	_, found := p.ticks.Get(-500)
	assert.False(t, found)
	_, found = p.ticks.Get(500)
	assert.False(t, found)
}
