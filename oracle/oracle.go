// Package oracle accumulates time-weighted square-root price observations
// in a bounded ring buffer and answers interval averages over them.
package oracle

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/razi90/precision-pool/fixedpoint"
)

var (
	ErrNoObservations      = errors.New("no observations stored")
	ErrTimestampOutOfRange = errors.New("timestamp outside of observed range")
	ErrInvalidInterval     = errors.New("interval start must be before its end")
)

// DefaultObservationsLimit matches the capacity the pool allocates.
const DefaultObservationsLimit = 65535

// AccumulatedObservation is the running time integral of price_sqrt up to
// Timestamp. The average price between two observations is the accumulator
// difference divided by the elapsed seconds.
type AccumulatedObservation struct {
	Timestamp    int64
	PriceSqrtSum decimal.Decimal
}

// ObservationInterval is the average price_sqrt over [Start, End].
type ObservationInterval struct {
	Start            int64
	End              int64
	PriceSqrtAverage decimal.Decimal
}

// Oracle is a ring buffer of accumulated observations. Not safe for
// concurrent use; the owning pool serializes access.
type Oracle struct {
	limit         int
	observations  []AccumulatedObservation
	last          int
	stored        int
	lastPriceSqrt decimal.Decimal
}

// New creates an oracle storing at most limit observations. A limit below
// one falls back to DefaultObservationsLimit.
func New(limit int) *Oracle {
	if limit < 1 {
		limit = DefaultObservationsLimit
	}
	return &Oracle{limit: limit, last: -1}
}

// Observe records the pool price at the given timestamp. A repeated
// timestamp only updates the price carried forward; earlier timestamps are
// ignored.
func (o *Oracle) Observe(priceSqrt decimal.Decimal, timestamp int64) {
	if o.stored == 0 {
		o.observations = append(o.observations, AccumulatedObservation{Timestamp: timestamp, PriceSqrtSum: decimal.Zero})
		o.last = 0
		o.stored = 1
		o.lastPriceSqrt = priceSqrt
		return
	}

	latest := o.observations[o.last]
	elapsed := timestamp - latest.Timestamp
	if elapsed < 0 {
		return
	}
	if elapsed == 0 {
		o.lastPriceSqrt = priceSqrt
		return
	}

	next := AccumulatedObservation{
		Timestamp:    timestamp,
		PriceSqrtSum: latest.PriceSqrtSum.Add(o.lastPriceSqrt.Mul(decimal.NewFromInt(elapsed))),
	}
	if o.stored < o.limit {
		o.observations = append(o.observations, next)
		o.last = o.stored
		o.stored++
	} else {
		o.last = (o.last + 1) % o.limit
		o.observations[o.last] = next
	}
	o.lastPriceSqrt = priceSqrt
}

// Observation returns the accumulated observation at the timestamp,
// interpolating linearly between stored observations and extrapolating
// past the most recent one with the price carried forward.
func (o *Oracle) Observation(timestamp int64) (AccumulatedObservation, error) {
	if o.stored == 0 {
		return AccumulatedObservation{}, ErrNoObservations
	}

	oldest := o.at(0)
	latest := o.at(o.stored - 1)

	if timestamp < oldest.Timestamp {
		return AccumulatedObservation{}, fmt.Errorf("%w: %d before oldest %d", ErrTimestampOutOfRange, timestamp, oldest.Timestamp)
	}
	if timestamp >= latest.Timestamp {
		elapsed := timestamp - latest.Timestamp
		return AccumulatedObservation{
			Timestamp:    timestamp,
			PriceSqrtSum: latest.PriceSqrtSum.Add(o.lastPriceSqrt.Mul(decimal.NewFromInt(elapsed))),
		}, nil
	}

	// First stored observation with Timestamp > timestamp; its predecessor
	// starts the bracketing interval.
	upper := sort.Search(o.stored, func(i int) bool {
		return o.at(i).Timestamp > timestamp
	})
	before := o.at(upper - 1)
	after := o.at(upper)

	span := decimal.NewFromInt(after.Timestamp - before.Timestamp)
	into := decimal.NewFromInt(timestamp - before.Timestamp)
	interpolated := before.PriceSqrtSum.Add(
		fixedpoint.Div(after.PriceSqrtSum.Sub(before.PriceSqrtSum).Mul(into), span),
	)
	return AccumulatedObservation{Timestamp: timestamp, PriceSqrtSum: interpolated}, nil
}

// ObservationIntervals resolves the average price_sqrt for each
// [start, end] pair.
func (o *Oracle) ObservationIntervals(intervals [][2]int64) ([]ObservationInterval, error) {
	result := make([]ObservationInterval, 0, len(intervals))
	for _, interval := range intervals {
		start, end := interval[0], interval[1]
		if start >= end {
			return nil, fmt.Errorf("%w: [%d, %d]", ErrInvalidInterval, start, end)
		}
		from, err := o.Observation(start)
		if err != nil {
			return nil, err
		}
		to, err := o.Observation(end)
		if err != nil {
			return nil, err
		}
		average := fixedpoint.Div(
			to.PriceSqrtSum.Sub(from.PriceSqrtSum),
			decimal.NewFromInt(end-start),
		)
		result = append(result, ObservationInterval{Start: start, End: end, PriceSqrtAverage: average})
	}
	return result, nil
}

// ObservationsLimit is the ring capacity.
func (o *Oracle) ObservationsLimit() int { return o.limit }

// ObservationsStored is the number of observations currently held.
func (o *Oracle) ObservationsStored() int { return o.stored }

// OldestObservationAt returns the timestamp of the oldest stored
// observation.
func (o *Oracle) OldestObservationAt() (int64, bool) {
	if o.stored == 0 {
		return 0, false
	}
	return o.at(0).Timestamp, true
}

// LastObservationIndex returns the ring index of the most recent
// observation.
func (o *Oracle) LastObservationIndex() (int, bool) {
	if o.stored == 0 {
		return 0, false
	}
	return o.last, true
}

// at maps a chronological position to the ring buffer.
func (o *Oracle) at(i int) AccumulatedObservation {
	if o.stored < o.limit {
		return o.observations[i]
	}
	return o.observations[(o.last+1+i)%o.limit]
}
