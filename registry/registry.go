// Package registry defines the collaborator that configures the protocol
// fee share and collects the protocol fee reserves of its pools.
package registry

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/razi90/precision-pool/asset"
)

// Registry receives a pool's accumulated protocol fee reserves and returns
// the protocol fee share the pool should apply together with the earliest
// time of the next sync. Pools throttle their calls accordingly.
type Registry interface {
	Sync(pool string, xFees, yFees *asset.Bucket) (feeProtocolShare decimal.Decimal, nextSyncTime int64)
}

// FeeCollector is the default Registry: it banks handed-over reserves per
// pool and token and schedules syncs one interval apart.
type FeeCollector struct {
	share     decimal.Decimal
	interval  time.Duration
	now       func() int64
	collected map[string]map[string]decimal.Decimal
}

func NewFeeCollector(share decimal.Decimal, interval time.Duration) *FeeCollector {
	return &FeeCollector{
		share:     share,
		interval:  interval,
		now:       func() int64 { return time.Now().Unix() },
		collected: make(map[string]map[string]decimal.Decimal),
	}
}

// WithNow overrides the clock, for tests.
func (c *FeeCollector) WithNow(now func() int64) *FeeCollector {
	c.now = now
	return c
}

func (c *FeeCollector) Sync(pool string, xFees, yFees *asset.Bucket) (decimal.Decimal, int64) {
	c.bank(pool, xFees)
	c.bank(pool, yFees)
	return c.share, c.now() + int64(c.interval/time.Second)
}

// Collected returns the reserves banked for a pool and token.
func (c *FeeCollector) Collected(pool, token string) decimal.Decimal {
	amounts, ok := c.collected[pool]
	if !ok {
		return decimal.Zero
	}
	return amounts[token]
}

func (c *FeeCollector) bank(pool string, fees *asset.Bucket) {
	taken := fees.TakeAll()
	if taken.IsEmpty() {
		return
	}
	amounts, ok := c.collected[pool]
	if !ok {
		amounts = make(map[string]decimal.Decimal)
		c.collected[pool] = amounts
	}
	amounts[taken.Token().Address] = amounts[taken.Token().Address].Add(taken.Amount())
}
