package pool

import (
	"github.com/shopspring/decimal"

	precisionpool "github.com/razi90/precision-pool"
	"github.com/razi90/precision-pool/asset"
)

// Emitter receives the events a pool publishes after each committed
// operation.
type Emitter interface {
	Emit(event any)
}

// CollectingEmitter records events in order, for tests and simulations.
type CollectingEmitter struct {
	Events []any
}

func (e *CollectingEmitter) Emit(event any) {
	e.Events = append(e.Events, event)
}

type InstantiateEvent struct {
	Pool             string
	XToken           asset.Token
	YToken           asset.Token
	PriceSqrt        decimal.Decimal
	TickSpacing      int32
	InputFeeRate     decimal.Decimal
	FlashLoanFeeRate decimal.Decimal
}

type AddLiquidityEvent struct {
	Pool            string
	Position        precisionpool.LiquidityPosition
	LeftTick        precisionpool.Tick
	RightTick       precisionpool.Tick
	XAmount         decimal.Decimal
	YAmount         decimal.Decimal
	XGrossAmount    decimal.Decimal
	YGrossAmount    decimal.Decimal
	ActiveLiquidity decimal.Decimal
	ActiveTick      int32
	HasActiveTick   bool
}

type RemoveLiquidityEvent struct {
	Pool            string
	Position        precisionpool.LiquidityPosition
	XAmount         decimal.Decimal
	YAmount         decimal.Decimal
	XReturnAmount   decimal.Decimal
	YReturnAmount   decimal.Decimal
	ActiveLiquidity decimal.Decimal
	ActiveTick      int32
	HasActiveTick   bool
}

type ClaimFeesEvent struct {
	Pool       string
	PositionID uint64
	XAmount    decimal.Decimal
	YAmount    decimal.Decimal
}

type SwapEvent struct {
	Pool             string
	InputToken       string
	InputAmount      decimal.Decimal
	InputGrossAmount decimal.Decimal
	InputFeeLP       decimal.Decimal
	InputFeeProtocol decimal.Decimal
	OutputToken      string
	OutputAmount     decimal.Decimal
	OutputReturn     decimal.Decimal
	PriceSqrt        decimal.Decimal
	ActiveLiquidity  decimal.Decimal
	ActiveTick       int32
	HasActiveTick    bool
	CrossedTicks     []precisionpool.TickOutside
}

type FlashLoanEvent struct {
	Pool      string
	LoanID    string
	Token     string
	Amount    decimal.Decimal
	DueAmount decimal.Decimal
	Fee       decimal.Decimal
}
