// Package pool orchestrates the concentrated liquidity pool: position
// lifecycle, swaps, fee accounting, flash loans, hooks, the price oracle
// and the protocol fee registry sync.
//
// A Pool is single-threaded by design: every public operation runs
// atomically against its state and callers serialize access. Operations
// validate everything they can before the first mutation and report
// failures as wrapped sentinel errors.
package pool

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	precisionpool "github.com/razi90/precision-pool"
	"github.com/razi90/precision-pool/asset"
	"github.com/razi90/precision-pool/hooks"
	"github.com/razi90/precision-pool/oracle"
	"github.com/razi90/precision-pool/registry"
	"github.com/razi90/precision-pool/swapmath"
	"github.com/razi90/precision-pool/tickmath"
	"github.com/razi90/precision-pool/tickstore"
)

var (
	ErrInvalidTokenPair      = errors.New("token pair must be distinct and in canonical order")
	ErrInvalidTickSpacing    = errors.New("tick spacing out of range")
	ErrFeeRateOutOfRange     = errors.New("fee rate out of range")
	ErrInvalidBounds         = errors.New("invalid position bounds")
	ErrZeroLiquidity         = errors.New("computed liquidity is zero")
	ErrTickCapacityExceeded  = errors.New("tick liquidity capacity exceeded")
	ErrUnknownPosition       = errors.New("unknown position")
	ErrUnknownShape          = errors.New("unknown shape")
	ErrEmptySwapInput        = errors.New("swap input is empty")
	ErrWrongRepaymentToken   = errors.New("wrong repayment token")
	ErrInsufficientRepayment = errors.New("insufficient repayment")
	ErrOneLoanReceipt        = errors.New("exactly one loan receipt required")
	ErrUnknownLoanReceipt    = errors.New("unknown loan receipt")
	ErrTickNotInitialized    = errors.New("tick not initialized")
)

var (
	// InputFeeRateMax bounds the swap input fee.
	InputFeeRateMax = decimal.RequireFromString("0.1")
	// FeeProtocolShareMax bounds the protocol's share of swap fees.
	FeeProtocolShareMax = decimal.RequireFromString("0.25")
	// FlashLoanFeeRateMax bounds the flash loan fee.
	FlashLoanFeeRateMax = decimal.RequireFromString("0.1")
)

// Config carries the immutable parameters of a pool.
type Config struct {
	XToken           asset.Token
	YToken           asset.Token
	PriceSqrt        decimal.Decimal
	TickSpacing      int32
	InputFeeRate     decimal.Decimal
	FlashLoanFeeRate decimal.Decimal
	Registry         registry.Registry
	Hooks            []hooks.Hook
}

// Option adjusts a pool at construction time.
type Option func(*Pool)

func WithLogger(logger *zap.Logger) Option {
	return func(p *Pool) { p.logger = logger }
}

func WithEmitter(emitter Emitter) Option {
	return func(p *Pool) { p.emitter = emitter }
}

// WithNow overrides the clock, for tests.
func WithNow(now func() int64) Option {
	return func(p *Pool) { p.now = now }
}

func WithObservationsLimit(limit int) Option {
	return func(p *Pool) { p.oracle = oracle.New(limit) }
}

// Pool is a concentrated liquidity pool over a canonical token pair.
type Pool struct {
	address string

	xToken asset.Token
	yToken asset.Token

	xLiquidity *asset.Bucket
	yLiquidity *asset.Bucket

	xFees *asset.Bucket
	yFees *asset.Bucket

	xProtocolFee *asset.Bucket
	yProtocolFee *asset.Bucket

	tickSpacing         int32
	maxLiquidityPerTick decimal.Decimal

	priceSqrt       decimal.Decimal
	activeTick      int32
	hasActiveTick   bool
	activeLiquidity decimal.Decimal

	ticks     *tickstore.Store
	positions map[uint64]*precisionpool.LiquidityPosition
	lpCounter uint64

	reg          registry.Registry
	nextSyncTime int64

	inputFeeRate     decimal.Decimal
	feeProtocolShare decimal.Decimal
	xLPFee           decimal.Decimal
	yLPFee           decimal.Decimal

	flashLoanFeeRate decimal.Decimal
	loans            map[string]*precisionpool.LoanTerms

	hooks  *hooks.Registry
	oracle *oracle.Oracle

	instantiatedAt int64
	now            func() int64
	logger         *zap.Logger
	emitter        Emitter
}

// New instantiates a pool. The token pair must be distinct and sorted by
// address, the initial price must lie on the representable tick price
// range, and the fee rates must respect their maxima.
func New(cfg Config, opts ...Option) (*Pool, error) {
	if err := cfg.XToken.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.YToken.Validate(); err != nil {
		return nil, err
	}
	if cfg.XToken.Address == cfg.YToken.Address || cfg.XToken.Address > cfg.YToken.Address {
		return nil, fmt.Errorf("%w: %q / %q", ErrInvalidTokenPair, cfg.XToken.Address, cfg.YToken.Address)
	}
	if cfg.TickSpacing < 1 || cfg.TickSpacing > tickmath.MaxTick {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTickSpacing, cfg.TickSpacing)
	}
	if err := tickmath.CheckPriceSqrt(cfg.PriceSqrt); err != nil {
		return nil, err
	}
	if err := checkFeeRate(cfg.InputFeeRate, InputFeeRateMax); err != nil {
		return nil, err
	}
	if err := checkFeeRate(cfg.FlashLoanFeeRate, FlashLoanFeeRateMax); err != nil {
		return nil, err
	}

	p := &Pool{
		address:             uuid.NewString(),
		xToken:              cfg.XToken,
		yToken:              cfg.YToken,
		xLiquidity:          asset.NewEmptyBucket(cfg.XToken),
		yLiquidity:          asset.NewEmptyBucket(cfg.YToken),
		xFees:               asset.NewEmptyBucket(cfg.XToken),
		yFees:               asset.NewEmptyBucket(cfg.YToken),
		xProtocolFee:        asset.NewEmptyBucket(cfg.XToken),
		yProtocolFee:        asset.NewEmptyBucket(cfg.YToken),
		tickSpacing:         cfg.TickSpacing,
		maxLiquidityPerTick: tickmath.MaxLiquidityPerTick(cfg.TickSpacing),
		priceSqrt:           cfg.PriceSqrt,
		activeLiquidity:     decimal.Zero,
		ticks:               tickstore.New(),
		positions:           make(map[uint64]*precisionpool.LiquidityPosition),
		reg:                 cfg.Registry,
		inputFeeRate:        cfg.InputFeeRate,
		feeProtocolShare:    decimal.Zero,
		flashLoanFeeRate:    cfg.FlashLoanFeeRate,
		loans:               make(map[string]*precisionpool.LoanTerms),
		hooks:               hooks.NewRegistry(cfg.Hooks),
		oracle:              oracle.New(oracle.DefaultObservationsLimit),
		now:                 func() int64 { return time.Now().Unix() },
		logger:              zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.instantiatedAt = p.now()

	beforeState := &hooks.BeforeInstantiateState{
		XToken:           cfg.XToken,
		YToken:           cfg.YToken,
		PriceSqrt:        cfg.PriceSqrt,
		InputFeeRate:     cfg.InputFeeRate,
		FlashLoanFeeRate: cfg.FlashLoanFeeRate,
	}
	for _, h := range p.hooks.Hooks(hooks.BeforeInstantiate) {
		if err := h.BeforeInstantiate(beforeState); err != nil {
			return nil, err
		}
	}

	afterState := &hooks.AfterInstantiateState{
		Pool:             p.address,
		XToken:           cfg.XToken,
		YToken:           cfg.YToken,
		PriceSqrt:        cfg.PriceSqrt,
		InputFeeRate:     cfg.InputFeeRate,
		FlashLoanFeeRate: cfg.FlashLoanFeeRate,
	}
	for _, h := range p.hooks.Hooks(hooks.AfterInstantiate) {
		if err := h.AfterInstantiate(afterState); err != nil {
			return nil, err
		}
	}

	p.emit(InstantiateEvent{
		Pool:             p.address,
		XToken:           cfg.XToken,
		YToken:           cfg.YToken,
		PriceSqrt:        cfg.PriceSqrt,
		TickSpacing:      cfg.TickSpacing,
		InputFeeRate:     cfg.InputFeeRate,
		FlashLoanFeeRate: cfg.FlashLoanFeeRate,
	})
	p.logger.Info("pool instantiated",
		zap.String("pool", p.address),
		zap.String("x", cfg.XToken.Symbol),
		zap.String("y", cfg.YToken.Symbol),
		zap.String("price_sqrt", cfg.PriceSqrt.String()),
		zap.Int32("tick_spacing", cfg.TickSpacing),
	)
	return p, nil
}

// NewWithLiquidity instantiates a pool and seeds it with one liquidity
// position in a single call. Remainders stay in the provided buckets.
func NewWithLiquidity(
	cfg Config,
	leftBound, rightBound int32,
	x, y *asset.Bucket,
	opts ...Option,
) (*Pool, *precisionpool.LiquidityPosition, error) {
	p, err := New(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	position, err := p.AddLiquidity(leftBound, rightBound, x, y)
	if err != nil {
		return nil, nil, err
	}
	return p, position, nil
}

// Address is the pool's identifier used in events and hook state.
func (p *Pool) Address() string { return p.address }

func (p *Pool) XToken() asset.Token { return p.xToken }
func (p *Pool) YToken() asset.Token { return p.yToken }

func (p *Pool) TickSpacing() int32 { return p.tickSpacing }

// PriceSqrt is the current square-root price. It should be judged together
// with the liquidity distribution, not in isolation.
func (p *Pool) PriceSqrt() decimal.Decimal { return p.priceSqrt }

// ActiveTick is the greatest initialized tick at or below the price.
func (p *Pool) ActiveTick() (int32, bool) { return p.activeTick, p.hasActiveTick }

func (p *Pool) ActiveLiquidity() decimal.Decimal { return p.activeLiquidity }

// TotalLiquidity returns the token balances of the liquidity vaults.
func (p *Pool) TotalLiquidity() (x, y decimal.Decimal) {
	return p.xLiquidity.Amount(), p.yLiquidity.Amount()
}

// InputFeeRate is the last applied fee rate. With dynamic fee hooks the
// value is indicative only.
func (p *Pool) InputFeeRate() decimal.Decimal { return p.inputFeeRate }

func (p *Pool) FeeProtocolShare() decimal.Decimal { return p.feeProtocolShare }

func (p *Pool) FlashLoanFeeRate() decimal.Decimal { return p.flashLoanFeeRate }

// Position returns a copy of the stored position.
func (p *Pool) Position(id uint64) (precisionpool.LiquidityPosition, error) {
	position, ok := p.positions[id]
	if !ok {
		return precisionpool.LiquidityPosition{}, fmt.Errorf("%w: %d", ErrUnknownPosition, id)
	}
	return *position, nil
}

// SyncRegistry hands the accumulated protocol fee reserves to the registry
// and adopts the returned protocol fee share. Calls are throttled by the
// next sync time the registry returned previously.
func (p *Pool) SyncRegistry() {
	if p.reg == nil || p.now() < p.nextSyncTime {
		return
	}
	share, next := p.reg.Sync(p.address, p.xProtocolFee, p.yProtocolFee)
	p.setFeeProtocolShare(share)
	p.nextSyncTime = next
}

// NextSyncTime is the earliest time of the next registry sync.
func (p *Pool) NextSyncTime() int64 { return p.nextSyncTime }

// Observation delegates to the price oracle.
func (p *Pool) Observation(timestamp int64) (oracle.AccumulatedObservation, error) {
	return p.oracle.Observation(timestamp)
}

func (p *Pool) ObservationIntervals(intervals [][2]int64) ([]oracle.ObservationInterval, error) {
	return p.oracle.ObservationIntervals(intervals)
}

func (p *Pool) ObservationsLimit() int  { return p.oracle.ObservationsLimit() }
func (p *Pool) ObservationsStored() int { return p.oracle.ObservationsStored() }

func (p *Pool) OldestObservationAt() (int64, bool) { return p.oracle.OldestObservationAt() }
func (p *Pool) LastObservationIndex() (int, bool)  { return p.oracle.LastObservationIndex() }

func (p *Pool) secondsGlobal() int64 {
	return p.now() - p.instantiatedAt
}

func (p *Pool) activeTickOrMin() int32 {
	if p.hasActiveTick {
		return p.activeTick
	}
	return swapmath.NoActiveTick
}

func (p *Pool) setInputFeeRate(rate decimal.Decimal) error {
	if err := checkFeeRate(rate, InputFeeRateMax); err != nil {
		return err
	}
	p.inputFeeRate = rate
	return nil
}

func (p *Pool) setFeeProtocolShare(share decimal.Decimal) {
	p.feeProtocolShare = decimal.Min(decimal.Max(share, decimal.Zero), FeeProtocolShareMax)
}

// priceInRange reports whether the current price lies within
// [priceLeft, priceRight).
func (p *Pool) priceInRange(priceLeftSqrt, priceRightSqrt decimal.Decimal) bool {
	return !p.priceSqrt.LessThan(priceLeftSqrt) && p.priceSqrt.LessThan(priceRightSqrt)
}

// updateActiveLiquidity adds liquidity to the active amount when the
// current price lies within [priceLeft, priceRight).
func (p *Pool) updateActiveLiquidity(liquidity, priceLeftSqrt, priceRightSqrt decimal.Decimal) {
	if !p.priceInRange(priceLeftSqrt, priceRightSqrt) {
		return
	}
	p.activeLiquidity = p.activeLiquidity.Add(liquidity)
}

// updateActiveTick moves the active tick pointer to whichever new bound
// lies at or below the price and closer to it than the current pointer.
func (p *Pool) updateActiveTick(leftBound, rightBound int32, priceLeftSqrt, priceRightSqrt decimal.Decimal) {
	active := p.activeTickOrMin()
	if active < rightBound && priceRightSqrt.LessThanOrEqual(p.priceSqrt) {
		p.activeTick = rightBound
		p.hasActiveTick = true
	} else if active < leftBound && priceLeftSqrt.LessThanOrEqual(p.priceSqrt) {
		p.activeTick = leftBound
		p.hasActiveTick = true
	}
}

// refitActiveTick re-anchors the pointer on the greatest remaining tick at
// or below it, needed after tick deletion.
func (p *Pool) refitActiveTick() {
	tick, ok := p.ticks.NearestAtOrBelow(p.activeTickOrMin())
	if ok {
		p.activeTick = tick.Index
		p.hasActiveTick = true
		return
	}
	p.hasActiveTick = false
}

// checkTickCapacity validates the gross liquidity a tick would carry
// after the pending addition.
func (p *Pool) checkTickCapacity(index int32, addTotal decimal.Decimal) error {
	total := addTotal
	if tick, ok := p.ticks.Get(index); ok {
		total = total.Add(tick.TotalLiquidity)
	}
	if total.GreaterThan(p.maxLiquidityPerTick) {
		return fmt.Errorf("%w: tick %d", ErrTickCapacityExceeded, index)
	}
	return nil
}

// updateOrInsertTick applies the liquidity change to the tick, creating it
// with outside values anchored against the current globals when the price
// is at or above the tick. Capacity is validated by the caller before any
// mutation.
func (p *Pool) updateOrInsertTick(index int32, deltaLiquidity, totalLiquidity decimal.Decimal) *precisionpool.Tick {
	if tick, ok := p.ticks.Get(index); ok {
		tick.DeltaLiquidity = tick.DeltaLiquidity.Add(deltaLiquidity)
		tick.TotalLiquidity = tick.TotalLiquidity.Add(totalLiquidity)
		return tick
	}

	priceSqrt, _ := tickmath.PriceSqrt(index)
	tick := &precisionpool.Tick{
		Index:          index,
		DeltaLiquidity: deltaLiquidity,
		TotalLiquidity: totalLiquidity,
		PriceSqrt:      priceSqrt,
		XFeeOutside:    decimal.Zero,
		YFeeOutside:    decimal.Zero,
	}
	if !p.priceSqrt.LessThan(priceSqrt) {
		tick.XFeeOutside = p.xLPFee
		tick.YFeeOutside = p.yLPFee
		tick.SecondsOutside = p.secondsGlobal()
	}
	p.ticks.Upsert(tick)
	return tick
}

// updateOrRemoveTick applies the liquidity change and deletes the tick
// once no position references it anymore.
func (p *Pool) updateOrRemoveTick(index int32, deltaLiquidity, totalLiquidity decimal.Decimal) precisionpool.Tick {
	tick := p.updateOrInsertTick(index, deltaLiquidity, totalLiquidity)
	snapshot := *tick
	if tick.TotalLiquidity.IsZero() {
		p.ticks.Delete(index)
	}
	return snapshot
}

func (p *Pool) depositProtocolFees(fees *asset.Bucket) error {
	if fees.Token().Address == p.xToken.Address {
		return p.xProtocolFee.Put(fees)
	}
	return p.yProtocolFee.Put(fees)
}

func (p *Pool) emit(event any) {
	if p.emitter != nil {
		p.emitter.Emit(event)
	}
}

func checkFeeRate(rate, max decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(max) {
		return fmt.Errorf("%w: %s not in [0, %s]", ErrFeeRateOutOfRange, rate, max)
	}
	return nil
}
