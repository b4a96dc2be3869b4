package pool

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	precisionpool "github.com/razi90/precision-pool"
	"github.com/razi90/precision-pool/asset"
	"github.com/razi90/precision-pool/hooks"
	"github.com/razi90/precision-pool/liquiditymath"
	"github.com/razi90/precision-pool/swapmath"
)

// Swap trades the input bucket against the pool and returns the output
// together with the unconsumed input remainder left in the bucket. The
// swap direction follows from the input token.
//
// The walk over the ticks runs on a scratch state; price, liquidity,
// active tick, fee accumulators and tick flips are committed only after
// the after-swap hooks passed, so a failing swap leaves the pool
// untouched.
func (p *Pool) Swap(input *asset.Bucket) (*asset.Bucket, error) {
	p.SyncRegistry()

	swapType, err := p.swapTypeFor(input.Token())
	if err != nil {
		return nil, err
	}
	inputGross := input.Amount()

	if p.hooks.Registered(hooks.BeforeSwap) {
		state := &hooks.BeforeSwapState{
			Pool:             p.address,
			SwapType:         swapType,
			PriceSqrt:        p.priceSqrt,
			ActiveLiquidity:  p.activeLiquidity,
			InputFeeRate:     p.inputFeeRate,
			FeeProtocolShare: p.feeProtocolShare,
		}
		for _, h := range p.hooks.Hooks(hooks.BeforeSwap) {
			if err := h.BeforeSwap(state, input); err != nil {
				return nil, err
			}
		}
		if err := hooks.CheckBucketOutput(inputGross, input.Amount()); err != nil {
			return nil, err
		}
		if err := p.setInputFeeRate(state.InputFeeRate); err != nil {
			return nil, err
		}
	}

	if input.IsEmpty() {
		return nil, ErrEmptySwapInput
	}

	inputToken, outputToken := p.swapTokens(swapType)
	net, feeLP, feeProtocol, err := liquiditymath.NetInput(
		input.Amount(), p.inputFeeRate, p.feeProtocolShare, inputToken.Divisibility,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEmptySwapInput, err)
	}

	state := p.newSwapState(swapType, inputToken, outputToken, net, feeLP, feeProtocol)
	p.walkTicks(&state)
	state.TakeProtocolFees()

	outputVault := p.outputVault(swapType)
	output, err := outputVault.Take(state.Output)
	if err != nil {
		return nil, err
	}

	if p.hooks.Registered(hooks.AfterSwap) {
		afterState := &hooks.AfterSwapState{
			Pool:             p.address,
			SwapType:         swapType,
			PriceSqrt:        state.PriceSqrt,
			ActiveLiquidity:  state.Liquidity,
			InputFeeRate:     p.inputFeeRate,
			FeeProtocolShare: p.feeProtocolShare,
			InputToken:       inputToken.Address,
			InputAmount:      state.Input,
			OutputToken:      outputToken.Address,
			OutputAmount:     state.Output,
			InputFeeLP:       state.FeeLPInput,
			InputFeeProtocol: state.FeeProtocolInput,
		}
		for _, h := range p.hooks.Hooks(hooks.AfterSwap) {
			if err := h.AfterSwap(afterState, output); err != nil {
				outputVault.Put(output)
				return nil, err
			}
		}
		if err := hooks.CheckBucketOutput(state.Output, output.Amount()); err != nil {
			outputVault.Put(output)
			return nil, err
		}
		if err := p.setInputFeeRate(afterState.InputFeeRate); err != nil {
			outputVault.Put(output)
			return nil, err
		}
	}

	if err := p.commitSwap(swapType, &state, input); err != nil {
		return nil, err
	}

	p.oracle.Observe(p.priceSqrt, p.now())
	p.emit(SwapEvent{
		Pool:             p.address,
		InputToken:       inputToken.Address,
		InputAmount:      state.Input,
		InputGrossAmount: inputGross,
		InputFeeLP:       state.FeeLPInput,
		InputFeeProtocol: state.FeeProtocolInput,
		OutputToken:      outputToken.Address,
		OutputAmount:     state.Output,
		OutputReturn:     output.Amount(),
		PriceSqrt:        p.priceSqrt,
		ActiveLiquidity:  p.activeLiquidity,
		ActiveTick:       p.activeTick,
		HasActiveTick:    p.hasActiveTick,
		CrossedTicks:     state.CrossedTicks,
	})
	p.logger.Debug("swap executed",
		zap.Stringer("type", swapType),
		zap.String("input", state.Input.String()),
		zap.String("output", state.Output.String()),
		zap.String("price_sqrt", p.priceSqrt.String()),
	)
	return output, nil
}

func (p *Pool) swapTypeFor(token asset.Token) (swapmath.SwapType, error) {
	switch token.Address {
	case p.xToken.Address:
		return swapmath.SellX, nil
	case p.yToken.Address:
		return swapmath.BuyX, nil
	}
	return 0, fmt.Errorf("%w: %s is not part of the pool pair", asset.ErrTokenMismatch, token.Address)
}

func (p *Pool) swapTokens(swapType swapmath.SwapType) (input, output asset.Token) {
	if swapType == swapmath.BuyX {
		return p.yToken, p.xToken
	}
	return p.xToken, p.yToken
}

func (p *Pool) outputVault(swapType swapmath.SwapType) *asset.Bucket {
	if swapType == swapmath.BuyX {
		return p.xLiquidity
	}
	return p.yLiquidity
}

func (p *Pool) newSwapState(
	swapType swapmath.SwapType,
	inputToken, outputToken asset.Token,
	net, feeLP, feeProtocol decimal.Decimal,
) swapmath.State {
	globalInput, globalOutput := p.yLPFee, p.xLPFee
	if swapType == swapmath.SellX {
		globalInput, globalOutput = p.xLPFee, p.yLPFee
	}
	one := decimal.New(1, 0)
	return swapmath.State{
		SwapType:           swapType,
		InputDivisibility:  inputToken.Divisibility,
		OutputDivisibility: outputToken.Divisibility,
		Remainder:          net,
		RemainderFeeLP:     feeLP,
		Liquidity:          p.activeLiquidity,
		ActiveTick:         p.activeTick,
		HasActiveTick:      p.hasActiveTick,
		PriceSqrt:          p.priceSqrt,
		InputFeeRate:       p.inputFeeRate,
		FeeProtocolShare:   p.feeProtocolShare,
		FeeLPShare:         one.Sub(p.feeProtocolShare),
		InputShare:         one.Sub(p.inputFeeRate),
		FeeProtocolMax:     feeProtocol,
		GlobalInputFeeLP:   globalInput,
		GlobalOutputFeeLP:  globalOutput,
		GlobalSeconds:      p.secondsGlobal(),
	}
}

// walkTicks iterates the initialized ticks in the swap direction. Buying X
// ascends over the ticks strictly above the active tick; selling X
// descends from the active tick itself and needs the lookahead to the next
// lower tick.
func (p *Pool) walkTicks(state *swapmath.State) {
	switch state.SwapType {
	case swapmath.BuyX:
		p.ticks.AscendGreaterThan(p.activeTickOrMin(), func(tick *precisionpool.Tick) bool {
			return swapmath.BuyStep(state, tick) == swapmath.Continue
		})
	case swapmath.SellX:
		if !p.hasActiveTick {
			return
		}
		p.ticks.DescendWithNext(p.activeTick, func(tick *precisionpool.Tick, nextTick int32, hasNextTick bool) bool {
			return swapmath.SellStep(state, tick, nextTick, hasNextTick) == swapmath.Continue
		})
	}
}

func (p *Pool) commitSwap(swapType swapmath.SwapType, state *swapmath.State, input *asset.Bucket) error {
	for _, flip := range state.CrossedTicks {
		if tick, ok := p.ticks.Get(flip.Index); ok {
			flip.Apply(tick)
		}
	}
	p.priceSqrt = state.PriceSqrt
	p.activeLiquidity = state.Liquidity
	p.activeTick = state.ActiveTick
	p.hasActiveTick = state.HasActiveTick

	inputNet, err := input.Take(state.Input)
	if err != nil {
		return err
	}
	feeLP, err := input.Take(state.FeeLPInput)
	if err != nil {
		return err
	}
	feeProtocol, err := input.Take(state.FeeProtocolInput)
	if err != nil {
		return err
	}

	if swapType == swapmath.BuyX {
		if err := p.yLiquidity.Put(inputNet); err != nil {
			return err
		}
		if err := p.yFees.Put(feeLP); err != nil {
			return err
		}
		p.yLPFee = state.GlobalInputFeeLP
	} else {
		if err := p.xLiquidity.Put(inputNet); err != nil {
			return err
		}
		if err := p.xFees.Put(feeLP); err != nil {
			return err
		}
		p.xLPFee = state.GlobalInputFeeLP
	}
	return p.depositProtocolFees(feeProtocol)
}
