// Package hooks defines the lifecycle extension points of a pool. Hooks
// are trusted components registered at instantiation; they declare the
// calls they want, run in registration order, and may take from or add to
// the buckets passed through them within the drain bound.
package hooks

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/razi90/precision-pool/asset"
	"github.com/razi90/precision-pool/swapmath"
)

var ErrBucketDrained = errors.New("hooks took more tokens than allowed")

// MinRemainingBucketFraction is the fraction of a bucket that must survive
// a hook chain.
var MinRemainingBucketFraction = decimal.RequireFromString("0.9")

// Call identifies a lifecycle point.
type Call int

const (
	BeforeInstantiate Call = iota
	AfterInstantiate
	BeforeSwap
	AfterSwap
	BeforeAddLiquidity
	AfterAddLiquidity
	BeforeRemoveLiquidity
	AfterRemoveLiquidity
)

// PositionRef identifies a liquidity position in hook state. PositionID is
// only set after the position exists.
type PositionRef struct {
	LeftBound     int32
	RightBound    int32
	PositionID    uint64
	HasPositionID bool
	ShapeID       string
}

type BeforeInstantiateState struct {
	XToken           asset.Token
	YToken           asset.Token
	PriceSqrt        decimal.Decimal
	InputFeeRate     decimal.Decimal
	FlashLoanFeeRate decimal.Decimal
}

type AfterInstantiateState struct {
	Pool             string
	XToken           asset.Token
	YToken           asset.Token
	PriceSqrt        decimal.Decimal
	InputFeeRate     decimal.Decimal
	FlashLoanFeeRate decimal.Decimal
}

type BeforeAddLiquidityState struct {
	Pool            string
	XProvided       decimal.Decimal
	YProvided       decimal.Decimal
	ActiveLiquidity decimal.Decimal
	PriceSqrt       decimal.Decimal
	Position        PositionRef
}

type AfterAddLiquidityState struct {
	Pool            string
	XAdded          decimal.Decimal
	YAdded          decimal.Decimal
	AddedLiquidity  decimal.Decimal
	ActiveLiquidity decimal.Decimal
	PriceSqrt       decimal.Decimal
	Position        PositionRef
}

type BeforeRemoveLiquidityState struct {
	Pool              string
	ProvidedLiquidity decimal.Decimal
	ActiveLiquidity   decimal.Decimal
	PriceSqrt         decimal.Decimal
	Position          PositionRef
}

type AfterRemoveLiquidityState struct {
	Pool             string
	XRemoved         decimal.Decimal
	YRemoved         decimal.Decimal
	RemovedLiquidity decimal.Decimal
	ActiveLiquidity  decimal.Decimal
	PriceSqrt        decimal.Decimal
	Position         PositionRef
}

// BeforeSwapState is handed to before-swap hooks. InputFeeRate may be
// adjusted by the hook; the pool validates and adopts it.
type BeforeSwapState struct {
	Pool             string
	SwapType         swapmath.SwapType
	PriceSqrt        decimal.Decimal
	ActiveLiquidity  decimal.Decimal
	InputFeeRate     decimal.Decimal
	FeeProtocolShare decimal.Decimal
}

// AfterSwapState is handed to after-swap hooks. InputFeeRate may be
// adjusted for subsequent swaps.
type AfterSwapState struct {
	Pool             string
	SwapType         swapmath.SwapType
	PriceSqrt        decimal.Decimal
	ActiveLiquidity  decimal.Decimal
	InputFeeRate     decimal.Decimal
	FeeProtocolShare decimal.Decimal
	InputToken       string
	InputAmount      decimal.Decimal
	OutputToken      string
	OutputAmount     decimal.Decimal
	InputFeeLP       decimal.Decimal
	InputFeeProtocol decimal.Decimal
}

// Hook is a lifecycle extension. Calls reports the lifecycle points the
// hook wants; only those are invoked. Embed NopHook to implement a subset.
type Hook interface {
	Calls() []Call

	BeforeInstantiate(state *BeforeInstantiateState) error
	AfterInstantiate(state *AfterInstantiateState) error
	BeforeAddLiquidity(state *BeforeAddLiquidityState, x, y *asset.Bucket) error
	AfterAddLiquidity(state *AfterAddLiquidityState) error
	BeforeRemoveLiquidity(state *BeforeRemoveLiquidityState) error
	AfterRemoveLiquidity(state *AfterRemoveLiquidityState, x, y *asset.Bucket) error
	BeforeSwap(state *BeforeSwapState, input *asset.Bucket) error
	AfterSwap(state *AfterSwapState, output *asset.Bucket) error
}

// NopHook implements Hook with no-ops.
type NopHook struct{}

func (NopHook) Calls() []Call                                                      { return nil }
func (NopHook) BeforeInstantiate(*BeforeInstantiateState) error                    { return nil }
func (NopHook) AfterInstantiate(*AfterInstantiateState) error                      { return nil }
func (NopHook) BeforeAddLiquidity(*BeforeAddLiquidityState, *asset.Bucket, *asset.Bucket) error {
	return nil
}
func (NopHook) AfterAddLiquidity(*AfterAddLiquidityState) error         { return nil }
func (NopHook) BeforeRemoveLiquidity(*BeforeRemoveLiquidityState) error { return nil }
func (NopHook) AfterRemoveLiquidity(*AfterRemoveLiquidityState, *asset.Bucket, *asset.Bucket) error {
	return nil
}
func (NopHook) BeforeSwap(*BeforeSwapState, *asset.Bucket) error { return nil }
func (NopHook) AfterSwap(*AfterSwapState, *asset.Bucket) error   { return nil }

// Registry routes lifecycle calls to the hooks that declared interest,
// preserving registration order.
type Registry struct {
	byCall map[Call][]Hook
}

func NewRegistry(hooks []Hook) *Registry {
	r := &Registry{byCall: make(map[Call][]Hook)}
	for _, h := range hooks {
		for _, call := range h.Calls() {
			r.byCall[call] = append(r.byCall[call], h)
		}
	}
	return r
}

// Hooks returns the hooks registered for a call.
func (r *Registry) Hooks(call Call) []Hook {
	return r.byCall[call]
}

// Registered reports whether any hook wants the call.
func (r *Registry) Registered(call Call) bool {
	return len(r.byCall[call]) > 0
}

// CheckBucketOutput enforces the drain bound on a bucket that passed
// through a hook chain.
func CheckBucketOutput(input, output decimal.Decimal) error {
	if input.Mul(MinRemainingBucketFraction).GreaterThan(output) {
		return fmt.Errorf("%w: %s of %s left", ErrBucketDrained, output, input)
	}
	return nil
}
