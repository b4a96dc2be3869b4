// Package asset models fungible tokens and the buckets that move them
// between the pool's vaults and its callers.
package asset

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrTokenMismatch       = errors.New("token mismatch")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNegativeAmount      = errors.New("amount must not be negative")
	ErrAmountPrecision     = errors.New("amount finer than token divisibility")
	ErrInvalidDivisibility = errors.New("divisibility must be between 0 and 18")
)

// Token describes a fungible resource. Divisibility is the number of
// fractional digits an amount of this token may carry, at most 18.
type Token struct {
	Address      string
	Symbol       string
	Divisibility int32
}

// Validate checks the divisibility range.
func (t Token) Validate() error {
	if t.Divisibility < 0 || t.Divisibility > 18 {
		return fmt.Errorf("%w: %d", ErrInvalidDivisibility, t.Divisibility)
	}
	return nil
}

// Unit is the smallest transferable amount of the token.
func (t Token) Unit() decimal.Decimal {
	return decimal.New(1, -t.Divisibility)
}

// Bucket holds an amount of a single token. Buckets are mutable and not
// safe for concurrent use; like every other pool structure they belong to
// exactly one operation at a time.
type Bucket struct {
	token  Token
	amount decimal.Decimal
}

// NewBucket creates a bucket holding the given amount.
func NewBucket(token Token, amount decimal.Decimal) (*Bucket, error) {
	if err := token.Validate(); err != nil {
		return nil, err
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("%w: %s", ErrNegativeAmount, amount)
	}
	if !amount.Equal(amount.Truncate(token.Divisibility)) {
		return nil, fmt.Errorf("%w: %s %s", ErrAmountPrecision, amount, token.Symbol)
	}
	return &Bucket{token: token, amount: amount}, nil
}

// NewEmptyBucket creates a bucket with a zero balance.
func NewEmptyBucket(token Token) *Bucket {
	return &Bucket{token: token, amount: decimal.Zero}
}

func (b *Bucket) Token() Token            { return b.token }
func (b *Bucket) Amount() decimal.Decimal { return b.amount }
func (b *Bucket) IsEmpty() bool           { return !b.amount.IsPositive() }

// Take splits off the given amount into a new bucket.
func (b *Bucket) Take(amount decimal.Decimal) (*Bucket, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("%w: %s", ErrNegativeAmount, amount)
	}
	if amount.GreaterThan(b.amount) {
		return nil, fmt.Errorf("%w: take %s from %s %s", ErrInsufficientBalance, amount, b.amount, b.token.Symbol)
	}
	b.amount = b.amount.Sub(amount)
	return &Bucket{token: b.token, amount: amount}, nil
}

// TakeAll drains the bucket into a new one.
func (b *Bucket) TakeAll() *Bucket {
	taken := &Bucket{token: b.token, amount: b.amount}
	b.amount = decimal.Zero
	return taken
}

// Put drains the other bucket into this one. Both must hold the same token.
func (b *Bucket) Put(other *Bucket) error {
	if other.token.Address != b.token.Address {
		return fmt.Errorf("%w: put %s into %s", ErrTokenMismatch, other.token.Symbol, b.token.Symbol)
	}
	b.amount = b.amount.Add(other.amount)
	other.amount = decimal.Zero
	return nil
}

// SortTokens orders two tokens canonically by address.
func SortTokens(a, b Token) (Token, Token) {
	if a.Address < b.Address {
		return a, b
	}
	return b, a
}

// SortBuckets orders two buckets canonically by their token address.
func SortBuckets(a, b *Bucket) (*Bucket, *Bucket) {
	if a.token.Address < b.token.Address {
		return a, b
	}
	return b, a
}
