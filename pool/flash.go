package pool

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	precisionpool "github.com/razi90/precision-pool"
	"github.com/razi90/precision-pool/asset"
	"github.com/razi90/precision-pool/fixedpoint"
)

// FlashLoan lends tokens from a liquidity vault. The borrowed amount is
// rounded down to the token's divisibility, the fee up. The returned terms
// are the receipt RepayLoan requires; the loan stays outstanding until
// repaid.
func (p *Pool) FlashLoan(tokenAddress string, amount decimal.Decimal) (*asset.Bucket, *precisionpool.LoanTerms, error) {
	vault, token, err := p.liquidityVaultFor(tokenAddress)
	if err != nil {
		return nil, nil, err
	}

	borrowed := fixedpoint.FloorTo(amount, token.Divisibility)
	loan, err := vault.Take(borrowed)
	if err != nil {
		return nil, nil, err
	}

	fee := fixedpoint.CeilTo(fixedpoint.Mul(borrowed, p.flashLoanFeeRate), token.Divisibility)
	terms := &precisionpool.LoanTerms{
		ID:        uuid.NewString(),
		Token:     tokenAddress,
		DueAmount: borrowed.Add(fee),
		Fee:       fee,
	}
	p.loans[terms.ID] = terms

	p.emit(FlashLoanEvent{
		Pool:      p.address,
		LoanID:    terms.ID,
		Token:     tokenAddress,
		Amount:    borrowed,
		DueAmount: terms.DueAmount,
		Fee:       fee,
	})
	p.logger.Debug("flash loan taken",
		zap.String("loan", terms.ID),
		zap.String("token", tokenAddress),
		zap.String("amount", borrowed.String()),
	)
	return loan, terms, nil
}

// RepayLoan settles a flash loan against exactly one receipt. The payment
// must cover the due amount; the fee goes to the protocol reserves, the
// principal back to the liquidity vault and any excess stays in the
// payment bucket.
func (p *Pool) RepayLoan(payment *asset.Bucket, receipts ...*precisionpool.LoanTerms) error {
	if len(receipts) != 1 {
		return fmt.Errorf("%w: got %d", ErrOneLoanReceipt, len(receipts))
	}
	terms, ok := p.loans[receipts[0].ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLoanReceipt, receipts[0].ID)
	}
	if payment.Token().Address != terms.Token {
		return fmt.Errorf("%w: loan is due in %s", ErrWrongRepaymentToken, terms.Token)
	}
	if payment.Amount().LessThan(terms.DueAmount) {
		return fmt.Errorf("%w: %s of %s due", ErrInsufficientRepayment, payment.Amount(), terms.DueAmount)
	}

	fee, err := payment.Take(terms.Fee)
	if err != nil {
		return err
	}
	if err := p.depositProtocolFees(fee); err != nil {
		return err
	}

	principal, err := payment.Take(terms.DueAmount.Sub(terms.Fee))
	if err != nil {
		return err
	}
	vault, _, err := p.liquidityVaultFor(terms.Token)
	if err != nil {
		return err
	}
	if err := vault.Put(principal); err != nil {
		return err
	}

	delete(p.loans, terms.ID)
	p.logger.Debug("flash loan repaid", zap.String("loan", terms.ID))
	return nil
}

// OutstandingLoans is the number of unrepaid flash loans.
func (p *Pool) OutstandingLoans() int { return len(p.loans) }

func (p *Pool) liquidityVaultFor(tokenAddress string) (*asset.Bucket, asset.Token, error) {
	switch tokenAddress {
	case p.xToken.Address:
		return p.xLiquidity, p.xToken, nil
	case p.yToken.Address:
		return p.yLiquidity, p.yToken, nil
	}
	return nil, asset.Token{}, fmt.Errorf("%w: %s is not part of the pool pair", asset.ErrTokenMismatch, tokenAddress)
}
