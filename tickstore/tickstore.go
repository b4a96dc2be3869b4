// Package tickstore keeps the initialized ticks of a pool ordered by
// index and provides the directional traversals the swap engine needs:
// ascending strictly above a pivot for buys, descending at or below a
// pivot for sells, the latter with a one-tick lookahead.
package tickstore

import (
	"math"

	"github.com/google/btree"

	precisionpool "github.com/razi90/precision-pool"
)

const degree = 32

// Store is an ordered collection of ticks. Not safe for concurrent use.
type Store struct {
	tree *btree.BTreeG[*precisionpool.Tick]
}

func New() *Store {
	return &Store{
		tree: btree.NewG(degree, func(a, b *precisionpool.Tick) bool {
			return a.Index < b.Index
		}),
	}
}

func (s *Store) Len() int {
	return s.tree.Len()
}

// Get returns the tick at the given index.
func (s *Store) Get(index int32) (*precisionpool.Tick, bool) {
	return s.tree.Get(&precisionpool.Tick{Index: index})
}

// Upsert inserts or replaces the tick at its index.
func (s *Store) Upsert(t *precisionpool.Tick) {
	s.tree.ReplaceOrInsert(t)
}

// Delete removes and returns the tick at the given index.
func (s *Store) Delete(index int32) (*precisionpool.Tick, bool) {
	return s.tree.Delete(&precisionpool.Tick{Index: index})
}

// AscendGreaterThan visits ticks with index strictly greater than pivot in
// ascending order until fn returns false.
func (s *Store) AscendGreaterThan(pivot int32, fn func(*precisionpool.Tick) bool) {
	if pivot == math.MaxInt32 {
		return
	}
	s.tree.AscendGreaterOrEqual(&precisionpool.Tick{Index: pivot + 1}, fn)
}

// DescendLessOrEqual visits ticks with index at or below pivot in
// descending order until fn returns false.
func (s *Store) DescendLessOrEqual(pivot int32, fn func(*precisionpool.Tick) bool) {
	s.tree.DescendLessOrEqual(&precisionpool.Tick{Index: pivot}, fn)
}

// DescendWithNext visits ticks at or below pivot in descending order and
// hands each visit the index of the following lower tick when one exists.
// The sell side of the swap engine needs the lookahead to decide whether
// crossing the current tick can make progress at all.
func (s *Store) DescendWithNext(pivot int32, fn func(t *precisionpool.Tick, next int32, hasNext bool) bool) {
	var pending *precisionpool.Tick
	s.tree.DescendLessOrEqual(&precisionpool.Tick{Index: pivot}, func(t *precisionpool.Tick) bool {
		if pending != nil {
			if !fn(pending, t.Index, true) {
				pending = nil
				return false
			}
		}
		pending = t
		return true
	})
	if pending != nil {
		fn(pending, 0, false)
	}
}

// NearestAtOrBelow returns the greatest tick with index at or below pivot.
func (s *Store) NearestAtOrBelow(pivot int32) (*precisionpool.Tick, bool) {
	var found *precisionpool.Tick
	s.tree.DescendLessOrEqual(&precisionpool.Tick{Index: pivot}, func(t *precisionpool.Tick) bool {
		found = t
		return false
	})
	return found, found != nil
}
