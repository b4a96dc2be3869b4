package pool

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	precisionpool "github.com/razi90/precision-pool"
	"github.com/razi90/precision-pool/asset"
	"github.com/razi90/precision-pool/fixedpoint"
	"github.com/razi90/precision-pool/hooks"
	"github.com/razi90/precision-pool/liquiditymath"
	"github.com/razi90/precision-pool/swapmath"
	"github.com/razi90/precision-pool/tickmath"
)

// RangeLiquidity is one part of a shape: a price range with the tokens to
// deposit into it.
type RangeLiquidity struct {
	LeftBound  int32
	RightBound int32
	X          *asset.Bucket
	Y          *asset.Bucket
}

// preparedAdd holds everything a validated liquidity addition needs to
// commit. Preparing all parts of an operation before mutating anything
// keeps a failing part from leaving earlier parts applied.
type preparedAdd struct {
	leftBound      int32
	rightBound     int32
	priceLeftSqrt  decimal.Decimal
	priceRightSqrt decimal.Decimal
	liquidity      decimal.Decimal
	xAmount        decimal.Decimal
	yAmount        decimal.Decimal
	xProvided      decimal.Decimal
	yProvided      decimal.Decimal
	x              *asset.Bucket
	y              *asset.Bucket
	shapeID        string
}

// AddLiquidity opens a position over the aligned bound range, depositing
// the largest addable amounts and leaving the remainders in the buckets.
func (p *Pool) AddLiquidity(leftBound, rightBound int32, x, y *asset.Bucket) (*precisionpool.LiquidityPosition, error) {
	tickTotals := make(map[int32]decimal.Decimal)
	prep, err := p.prepareAdd(leftBound, rightBound, x, y, "", tickTotals)
	if err != nil {
		return nil, err
	}
	if err := p.runAfterAddHooks(prep, p.lpCounter+1, p.liquidityAfterAdd(p.activeLiquidity, prep)); err != nil {
		return nil, err
	}
	return p.commitAdd(prep)
}

// AddLiquidityShape opens one position per part under a common shape id.
// An empty shapeID mints a fresh one; a provided id must belong to an
// existing position. All parts are validated, including the combined tick
// capacity and the after-add hooks, before the first deposit.
func (p *Pool) AddLiquidityShape(parts []RangeLiquidity, shapeID string) ([]*precisionpool.LiquidityPosition, error) {
	if shapeID == "" {
		shapeID = uuid.NewString()
	} else if !p.shapeExists(shapeID) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownShape, shapeID)
	}

	tickTotals := make(map[int32]decimal.Decimal)
	prepared := make([]*preparedAdd, 0, len(parts))
	for _, part := range parts {
		prep, err := p.prepareAdd(part.LeftBound, part.RightBound, part.X, part.Y, shapeID, tickTotals)
		if err != nil {
			return nil, err
		}
		prepared = append(prepared, prep)
	}

	positionID := p.lpCounter
	activeLiquidity := p.activeLiquidity
	for _, prep := range prepared {
		positionID++
		activeLiquidity = p.liquidityAfterAdd(activeLiquidity, prep)
		if err := p.runAfterAddHooks(prep, positionID, activeLiquidity); err != nil {
			return nil, err
		}
	}

	positions := make([]*precisionpool.LiquidityPosition, 0, len(prepared))
	for _, prep := range prepared {
		position, err := p.commitAdd(prep)
		if err != nil {
			return nil, err
		}
		positions = append(positions, position)
	}
	return positions, nil
}

// liquidityAfterAdd is the active liquidity the pool will hold once the
// prepared addition commits.
func (p *Pool) liquidityAfterAdd(activeLiquidity decimal.Decimal, prep *preparedAdd) decimal.Decimal {
	if p.priceInRange(prep.priceLeftSqrt, prep.priceRightSqrt) {
		return activeLiquidity.Add(prep.liquidity)
	}
	return activeLiquidity
}

// runAfterAddHooks invokes the after-add hooks with the state the commit
// will produce. Running them before any mutation keeps a rejecting hook
// from leaving a minted position or deposited funds behind.
func (p *Pool) runAfterAddHooks(prep *preparedAdd, positionID uint64, activeLiquidity decimal.Decimal) error {
	if !p.hooks.Registered(hooks.AfterAddLiquidity) {
		return nil
	}
	state := &hooks.AfterAddLiquidityState{
		Pool:            p.address,
		XAdded:          prep.xAmount,
		YAdded:          prep.yAmount,
		AddedLiquidity:  prep.liquidity,
		ActiveLiquidity: activeLiquidity,
		PriceSqrt:       p.priceSqrt,
		Position: hooks.PositionRef{
			LeftBound:     prep.leftBound,
			RightBound:    prep.rightBound,
			PositionID:    positionID,
			HasPositionID: true,
			ShapeID:       prep.shapeID,
		},
	}
	for _, h := range p.hooks.Hooks(hooks.AfterAddLiquidity) {
		if err := h.AfterAddLiquidity(state); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pool) shapeExists(shapeID string) bool {
	for _, position := range p.positions {
		if position.ShapeID == shapeID {
			return true
		}
	}
	return false
}

func (p *Pool) prepareAdd(
	leftBound, rightBound int32,
	x, y *asset.Bucket,
	shapeID string,
	tickTotals map[int32]decimal.Decimal,
) (*preparedAdd, error) {
	if leftBound < tickmath.MinTick || rightBound > tickmath.MaxTick {
		return nil, fmt.Errorf("%w: [%d, %d]", ErrInvalidBounds, leftBound, rightBound)
	}
	leftBound = tickmath.AlignTick(leftBound, p.tickSpacing)
	rightBound = tickmath.AlignTick(rightBound, p.tickSpacing)
	if leftBound >= rightBound {
		return nil, fmt.Errorf("%w: [%d, %d] after alignment", ErrInvalidBounds, leftBound, rightBound)
	}
	if x.Token().Address != p.xToken.Address || y.Token().Address != p.yToken.Address {
		return nil, fmt.Errorf("%w: buckets must hold the pool pair", asset.ErrTokenMismatch)
	}

	xProvided := x.Amount()
	yProvided := y.Amount()

	if p.hooks.Registered(hooks.BeforeAddLiquidity) {
		state := &hooks.BeforeAddLiquidityState{
			Pool:            p.address,
			XProvided:       xProvided,
			YProvided:       yProvided,
			ActiveLiquidity: p.activeLiquidity,
			PriceSqrt:       p.priceSqrt,
			Position: hooks.PositionRef{
				LeftBound:  leftBound,
				RightBound: rightBound,
				ShapeID:    shapeID,
			},
		}
		for _, h := range p.hooks.Hooks(hooks.BeforeAddLiquidity) {
			if err := h.BeforeAddLiquidity(state, x, y); err != nil {
				return nil, err
			}
		}
		if err := hooks.CheckBucketOutput(xProvided, x.Amount()); err != nil {
			return nil, err
		}
		if err := hooks.CheckBucketOutput(yProvided, y.Amount()); err != nil {
			return nil, err
		}
	}

	priceLeftSqrt, err := tickmath.PriceSqrt(leftBound)
	if err != nil {
		return nil, err
	}
	priceRightSqrt, err := tickmath.PriceSqrt(rightBound)
	if err != nil {
		return nil, err
	}

	liquidity, xAmount, yAmount := liquiditymath.AddableAmounts(
		x.Amount(), p.xToken.Divisibility,
		y.Amount(), p.yToken.Divisibility,
		p.priceSqrt, priceLeftSqrt, priceRightSqrt,
	)
	if !liquidity.IsPositive() {
		return nil, fmt.Errorf("%w: range [%d, %d]", ErrZeroLiquidity, leftBound, rightBound)
	}

	tickTotals[leftBound] = tickTotals[leftBound].Add(liquidity)
	tickTotals[rightBound] = tickTotals[rightBound].Add(liquidity)
	if err := p.checkTickCapacity(leftBound, tickTotals[leftBound]); err != nil {
		return nil, err
	}
	if err := p.checkTickCapacity(rightBound, tickTotals[rightBound]); err != nil {
		return nil, err
	}

	return &preparedAdd{
		leftBound:      leftBound,
		rightBound:     rightBound,
		priceLeftSqrt:  priceLeftSqrt,
		priceRightSqrt: priceRightSqrt,
		liquidity:      liquidity,
		xAmount:        xAmount,
		yAmount:        yAmount,
		xProvided:      xProvided,
		yProvided:      yProvided,
		x:              x,
		y:              y,
		shapeID:        shapeID,
	}, nil
}

func (p *Pool) commitAdd(prep *preparedAdd) (*precisionpool.LiquidityPosition, error) {
	xDeposit, err := prep.x.Take(prep.xAmount)
	if err != nil {
		return nil, err
	}
	yDeposit, err := prep.y.Take(prep.yAmount)
	if err != nil {
		return nil, err
	}
	if err := p.xLiquidity.Put(xDeposit); err != nil {
		return nil, err
	}
	if err := p.yLiquidity.Put(yDeposit); err != nil {
		return nil, err
	}

	p.updateActiveLiquidity(prep.liquidity, prep.priceLeftSqrt, prep.priceRightSqrt)
	p.updateActiveTick(prep.leftBound, prep.rightBound, prep.priceLeftSqrt, prep.priceRightSqrt)

	leftTick := p.updateOrInsertTick(prep.leftBound, prep.liquidity, prep.liquidity)
	rightTick := p.updateOrInsertTick(prep.rightBound, prep.liquidity.Neg(), prep.liquidity)

	activeTick := p.activeTickOrMin()
	xCheckpoint := swapmath.ValueInRange(
		p.xLPFee, leftTick.XFeeOutside, rightTick.XFeeOutside,
		activeTick, prep.leftBound, prep.rightBound,
	)
	yCheckpoint := swapmath.ValueInRange(
		p.yLPFee, leftTick.YFeeOutside, rightTick.YFeeOutside,
		activeTick, prep.leftBound, prep.rightBound,
	)
	secondsInside := swapmath.ValueInRange(
		swapmath.Seconds(p.secondsGlobal()),
		swapmath.Seconds(leftTick.SecondsOutside),
		swapmath.Seconds(rightTick.SecondsOutside),
		activeTick, prep.leftBound, prep.rightBound,
	)

	p.lpCounter++
	position := &precisionpool.LiquidityPosition{
		ID:                      p.lpCounter,
		Liquidity:               prep.liquidity,
		LeftBound:               prep.leftBound,
		RightBound:              prep.rightBound,
		ShapeID:                 prep.shapeID,
		AddedAt:                 p.now(),
		XFeeCheckpoint:          xCheckpoint,
		YFeeCheckpoint:          yCheckpoint,
		XTotalFeeCheckpoint:     xCheckpoint,
		YTotalFeeCheckpoint:     yCheckpoint,
		SecondsInsideCheckpoint: int64(secondsInside),
	}
	p.positions[position.ID] = position

	p.emit(AddLiquidityEvent{
		Pool:            p.address,
		Position:        *position,
		LeftTick:        *leftTick,
		RightTick:       *rightTick,
		XAmount:         prep.xAmount,
		YAmount:         prep.yAmount,
		XGrossAmount:    prep.xProvided.Sub(prep.x.Amount()),
		YGrossAmount:    prep.yProvided.Sub(prep.y.Amount()),
		ActiveLiquidity: p.activeLiquidity,
		ActiveTick:      p.activeTick,
		HasActiveTick:   p.hasActiveTick,
	})
	p.logger.Debug("liquidity added",
		zap.Uint64("position", position.ID),
		zap.Int32("left", prep.leftBound),
		zap.Int32("right", prep.rightBound),
		zap.String("liquidity", prep.liquidity.String()),
	)
	return position, nil
}

// RemoveLiquidity closes the positions, returning their principal and all
// fees claimable at this point in two buckets.
func (p *Pool) RemoveLiquidity(ids ...uint64) (*asset.Bucket, *asset.Bucket, error) {
	positions := make([]*precisionpool.LiquidityPosition, 0, len(ids))
	for _, id := range ids {
		position, ok := p.positions[id]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %d", ErrUnknownPosition, id)
		}
		positions = append(positions, position)
	}

	xTotal := asset.NewEmptyBucket(p.xToken)
	yTotal := asset.NewEmptyBucket(p.yToken)
	for _, position := range positions {
		if err := p.removeOne(position, xTotal, yTotal); err != nil {
			return nil, nil, err
		}
	}
	return xTotal, yTotal, nil
}

// removeOne closes a single position. All checks, including the
// after-remove hooks, run before the pool mutates; a failing hook puts
// the withdrawn principal back into the vaults and leaves the position,
// ticks and active liquidity exactly as they were.
func (p *Pool) removeOne(position *precisionpool.LiquidityPosition, xTotal, yTotal *asset.Bucket) error {
	priceLeftSqrt, err := tickmath.PriceSqrt(position.LeftBound)
	if err != nil {
		return err
	}
	priceRightSqrt, err := tickmath.PriceSqrt(position.RightBound)
	if err != nil {
		return err
	}

	ref := hooks.PositionRef{
		LeftBound:     position.LeftBound,
		RightBound:    position.RightBound,
		PositionID:    position.ID,
		HasPositionID: true,
		ShapeID:       position.ShapeID,
	}
	if p.hooks.Registered(hooks.BeforeRemoveLiquidity) {
		state := &hooks.BeforeRemoveLiquidityState{
			Pool:              p.address,
			ProvidedLiquidity: position.Liquidity,
			ActiveLiquidity:   p.activeLiquidity,
			PriceSqrt:         p.priceSqrt,
			Position:          ref,
		}
		for _, h := range p.hooks.Hooks(hooks.BeforeRemoveLiquidity) {
			if err := h.BeforeRemoveLiquidity(state); err != nil {
				return err
			}
		}
	}

	xFeeAmount, yFeeAmount, xInRange, yInRange, err := p.claimableFeesInternal(position)
	if err != nil {
		return err
	}

	xAmount, yAmount := liquiditymath.RemovableAmounts(
		position.Liquidity, p.priceSqrt, priceLeftSqrt, priceRightSqrt,
		p.xToken.Divisibility, p.yToken.Divisibility,
	)

	activeLiquidity := p.activeLiquidity
	if p.priceInRange(priceLeftSqrt, priceRightSqrt) {
		activeLiquidity = activeLiquidity.Sub(position.Liquidity)
	}

	xOut, err := p.xLiquidity.Take(xAmount)
	if err != nil {
		return err
	}
	yOut, err := p.yLiquidity.Take(yAmount)
	if err != nil {
		return p.restorePrincipal(xOut, nil, err)
	}

	if p.hooks.Registered(hooks.AfterRemoveLiquidity) {
		state := &hooks.AfterRemoveLiquidityState{
			Pool:             p.address,
			XRemoved:         xAmount,
			YRemoved:         yAmount,
			RemovedLiquidity: position.Liquidity,
			ActiveLiquidity:  activeLiquidity,
			PriceSqrt:        p.priceSqrt,
			Position:         ref,
		}
		for _, h := range p.hooks.Hooks(hooks.AfterRemoveLiquidity) {
			if err := h.AfterRemoveLiquidity(state, xOut, yOut); err != nil {
				return p.restorePrincipal(xOut, yOut, err)
			}
		}
		if err := hooks.CheckBucketOutput(xAmount, xOut.Amount()); err != nil {
			return p.restorePrincipal(xOut, yOut, err)
		}
		if err := hooks.CheckBucketOutput(yAmount, yOut.Amount()); err != nil {
			return p.restorePrincipal(xOut, yOut, err)
		}
	}

	xFees, yFees, err := p.settleFees(position, xFeeAmount, yFeeAmount, xInRange, yInRange)
	if err != nil {
		return p.restorePrincipal(xOut, yOut, err)
	}

	p.updateOrRemoveTick(position.LeftBound, position.Liquidity.Neg(), position.Liquidity.Neg())
	p.updateOrRemoveTick(position.RightBound, position.Liquidity, position.Liquidity.Neg())
	p.updateActiveLiquidity(position.Liquidity.Neg(), priceLeftSqrt, priceRightSqrt)
	p.refitActiveTick()

	p.emit(RemoveLiquidityEvent{
		Pool:            p.address,
		Position:        *position,
		XAmount:         xAmount,
		YAmount:         yAmount,
		XReturnAmount:   xOut.Amount(),
		YReturnAmount:   yOut.Amount(),
		ActiveLiquidity: p.activeLiquidity,
		ActiveTick:      p.activeTick,
		HasActiveTick:   p.hasActiveTick,
	})
	p.logger.Debug("liquidity removed", zap.Uint64("position", position.ID))

	delete(p.positions, position.ID)

	if err := xTotal.Put(xFees); err != nil {
		return err
	}
	if err := yTotal.Put(yFees); err != nil {
		return err
	}
	if err := xTotal.Put(xOut); err != nil {
		return err
	}
	return yTotal.Put(yOut)
}

// restorePrincipal returns withdrawn principal to the liquidity vaults
// after a failed removal and propagates the failure.
func (p *Pool) restorePrincipal(xOut, yOut *asset.Bucket, cause error) error {
	if xOut != nil {
		if err := p.xLiquidity.Put(xOut); err != nil {
			return err
		}
	}
	if yOut != nil {
		if err := p.yLiquidity.Put(yOut); err != nil {
			return err
		}
	}
	return cause
}

// RemovableLiquidity reports the amounts RemoveLiquidity would return for
// the positions right now, principal plus claimable fees, without touching
// any state. The returned fraction is the minimum share of those amounts
// guaranteed to reach the caller: 1 without after-remove hooks, the drain
// bound with them.
func (p *Pool) RemovableLiquidity(ids ...uint64) (x, y, minFraction decimal.Decimal, err error) {
	minFraction = decimal.NewFromInt(1)
	if p.hooks.Registered(hooks.AfterRemoveLiquidity) {
		minFraction = hooks.MinRemainingBucketFraction
	}
	for _, id := range ids {
		position, ok := p.positions[id]
		if !ok {
			return decimal.Zero, decimal.Zero, decimal.Zero, fmt.Errorf("%w: %d", ErrUnknownPosition, id)
		}
		priceLeftSqrt, err := tickmath.PriceSqrt(position.LeftBound)
		if err != nil {
			return decimal.Zero, decimal.Zero, decimal.Zero, err
		}
		priceRightSqrt, err := tickmath.PriceSqrt(position.RightBound)
		if err != nil {
			return decimal.Zero, decimal.Zero, decimal.Zero, err
		}
		xAmount, yAmount := liquiditymath.RemovableAmounts(
			position.Liquidity, p.priceSqrt, priceLeftSqrt, priceRightSqrt,
			p.xToken.Divisibility, p.yToken.Divisibility,
		)
		xFees, yFees, _, _, err := p.claimableFeesInternal(position)
		if err != nil {
			return decimal.Zero, decimal.Zero, decimal.Zero, err
		}
		x = x.Add(xAmount).Add(xFees)
		y = y.Add(yAmount).Add(yFees)
	}
	return x, y, minFraction, nil
}

// ClaimFees pays out the fees the positions earned since their last claim.
func (p *Pool) ClaimFees(ids ...uint64) (*asset.Bucket, *asset.Bucket, error) {
	xTotal := asset.NewEmptyBucket(p.xToken)
	yTotal := asset.NewEmptyBucket(p.yToken)
	for _, id := range ids {
		position, ok := p.positions[id]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %d", ErrUnknownPosition, id)
		}
		xFees, yFees, err := p.claimFeesInternal(position)
		if err != nil {
			return nil, nil, err
		}
		if err := xTotal.Put(xFees); err != nil {
			return nil, nil, err
		}
		if err := yTotal.Put(yFees); err != nil {
			return nil, nil, err
		}
	}
	return xTotal, yTotal, nil
}

// ClaimableFees reports what ClaimFees would pay out, without claiming.
func (p *Pool) ClaimableFees(ids ...uint64) (x, y decimal.Decimal, err error) {
	for _, id := range ids {
		position, ok := p.positions[id]
		if !ok {
			return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %d", ErrUnknownPosition, id)
		}
		xFees, yFees, _, _, err := p.claimableFeesInternal(position)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		x = x.Add(xFees)
		y = y.Add(yFees)
	}
	return x, y, nil
}

// TotalFees reports the fees the positions earned over their whole
// lifetime, claimed or not.
func (p *Pool) TotalFees(ids ...uint64) (x, y decimal.Decimal, err error) {
	for _, id := range ids {
		position, ok := p.positions[id]
		if !ok {
			return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %d", ErrUnknownPosition, id)
		}
		xInRange, yInRange, err := p.feesInRange(position)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		x = x.Add(claimAmount(xInRange, position.XTotalFeeCheckpoint, position.Liquidity, p.xToken.Divisibility))
		y = y.Add(claimAmount(yInRange, position.YTotalFeeCheckpoint, position.Liquidity, p.yToken.Divisibility))
	}
	return x, y, nil
}

// SecondsInPosition is the accumulated time the position's range contained
// the pool price since the position was added.
func (p *Pool) SecondsInPosition(id uint64) (int64, error) {
	position, ok := p.positions[id]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownPosition, id)
	}
	leftTick, rightTick, err := p.positionTicks(position)
	if err != nil {
		return 0, err
	}
	inside := swapmath.ValueInRange(
		swapmath.Seconds(p.secondsGlobal()),
		swapmath.Seconds(leftTick.SecondsOutside),
		swapmath.Seconds(rightTick.SecondsOutside),
		p.activeTickOrMin(), position.LeftBound, position.RightBound,
	)
	return int64(inside) - position.SecondsInsideCheckpoint, nil
}

func (p *Pool) positionTicks(position *precisionpool.LiquidityPosition) (left, right *precisionpool.Tick, err error) {
	leftTick, ok := p.ticks.Get(position.LeftBound)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d", ErrTickNotInitialized, position.LeftBound)
	}
	rightTick, ok := p.ticks.Get(position.RightBound)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d", ErrTickNotInitialized, position.RightBound)
	}
	return leftTick, rightTick, nil
}

func (p *Pool) feesInRange(position *precisionpool.LiquidityPosition) (x, y decimal.Decimal, err error) {
	leftTick, rightTick, err := p.positionTicks(position)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	activeTick := p.activeTickOrMin()
	x = swapmath.ValueInRange(
		p.xLPFee, leftTick.XFeeOutside, rightTick.XFeeOutside,
		activeTick, position.LeftBound, position.RightBound,
	)
	y = swapmath.ValueInRange(
		p.yLPFee, leftTick.YFeeOutside, rightTick.YFeeOutside,
		activeTick, position.LeftBound, position.RightBound,
	)
	return x, y, nil
}

func (p *Pool) claimableFeesInternal(
	position *precisionpool.LiquidityPosition,
) (xAmount, yAmount, xInRange, yInRange decimal.Decimal, err error) {
	xInRange, yInRange, err = p.feesInRange(position)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, err
	}
	xAmount = claimAmount(xInRange, position.XFeeCheckpoint, position.Liquidity, p.xToken.Divisibility)
	yAmount = claimAmount(yInRange, position.YFeeCheckpoint, position.Liquidity, p.yToken.Divisibility)
	return xAmount, yAmount, xInRange, yInRange, nil
}

// claimFeesInternal pays out the claimable fees and moves the claim
// checkpoints to the current in-range values.
func (p *Pool) claimFeesInternal(position *precisionpool.LiquidityPosition) (*asset.Bucket, *asset.Bucket, error) {
	xAmount, yAmount, xInRange, yInRange, err := p.claimableFeesInternal(position)
	if err != nil {
		return nil, nil, err
	}
	return p.settleFees(position, xAmount, yAmount, xInRange, yInRange)
}

// settleFees takes the fee payout from the vaults and advances the claim
// checkpoints to the given in-range values.
func (p *Pool) settleFees(
	position *precisionpool.LiquidityPosition,
	xAmount, yAmount, xInRange, yInRange decimal.Decimal,
) (*asset.Bucket, *asset.Bucket, error) {
	xFees, err := p.xFees.Take(xAmount)
	if err != nil {
		return nil, nil, err
	}
	yFees, err := p.yFees.Take(yAmount)
	if err != nil {
		if perr := p.xFees.Put(xFees); perr != nil {
			return nil, nil, perr
		}
		return nil, nil, err
	}
	position.XFeeCheckpoint = xInRange
	position.YFeeCheckpoint = yInRange

	if xAmount.IsPositive() || yAmount.IsPositive() {
		p.emit(ClaimFeesEvent{
			Pool:       p.address,
			PositionID: position.ID,
			XAmount:    xAmount,
			YAmount:    yAmount,
		})
	}
	return xFees, yFees, nil
}

// claimAmount converts a fee-per-liquidity delta into a token amount,
// rounded down to the token's divisibility.
func claimAmount(inRange, checkpoint, liquidity decimal.Decimal, divisibility int32) decimal.Decimal {
	return fixedpoint.FloorTo(fixedpoint.Mul(inRange.Sub(checkpoint), liquidity), divisibility)
}
