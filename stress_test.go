package cht

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestTable_StressWaves gives every worker its own key range. Each wave inserts the whole range, verifies it, removes it and verifies it is gone,
// which drives the table through a grow and a shrink per wave while the other workers do the same.
func TestTable_StressWaves(t *testing.T) {
	const (
		workers = 8
		perWkr  = 2000
		waves   = 4
	)
	tb := newTestTable(t, 0, entryOps())
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for wave := 0; wave < waves; wave++ {
				items := insertRange(tb, base, base+perWkr)
				for _, e := range items {
					if got := tb.Find(e.key); got != e {
						t.Errorf("wave %d: key %d found %v", wave, e.key, got)
						return
					}
				}
				for i, e := range items {
					var ok bool
					if i%2 == 0 {
						ok = tb.RemoveItem(e)
					} else {
						ok = tb.RemoveKey(e.key) == 1
					}
					if !ok {
						t.Errorf("wave %d: %v not removed", wave, e)
						return
					}
				}
				for _, e := range items {
					if got := tb.Find(e.key); got != nil {
						t.Errorf("wave %d: removed key %d found %v", wave, e.key, got)
						return
					}
				}
			}
		}(w * perWkr)
	}
	wg.Wait()
	tb.Barrier()

	require.Zero(t, tb.Len())
	require.Equal(t, DefaultMinSize, tb.Buckets())
	require.NoError(t, tb.Check())
}

// TestTable_ConcurrentUnique races goroutines inserting the same keys. Exactly one insert per key wins.
func TestTable_ConcurrentUnique(t *testing.T) {
	const (
		workers = 8
		keys    = 3000
	)
	tb := newTestTable(t, 0, entryOps())
	var won [keys]atomic.Int32
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(tag int) {
			defer wg.Done()
			for k := 0; k < keys; k++ {
				if tb.InsertUnique(&entry{key: k, tag: tag}) {
					won[k].Add(1)
				}
			}
		}(w)
	}
	wg.Wait()
	tb.Barrier()

	for k := range won {
		require.EqualValues(t, 1, won[k].Load(), "key %d", k)
	}
	require.Equal(t, keys, tb.Len())
	require.NoError(t, tb.Check())
}

// TestTable_ConcurrentRemove races removers of the same duplicated keys. Every item is removed exactly once.
func TestTable_ConcurrentRemove(t *testing.T) {
	const (
		workers = 8
		keys    = 500
		dups    = 4
	)
	tb := newTestTable(t, 0, entryOps())
	var all []*entry
	for d := 0; d < dups; d++ {
		for k := 0; k < keys; k++ {
			e := &entry{key: k, tag: d}
			tb.Insert(e)
			all = append(all, e)
		}
	}

	var removed atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < keys; k++ {
				removed.Add(int64(tb.RemoveKey(k)))
			}
		}()
	}
	wg.Wait()
	tb.Barrier()

	require.EqualValues(t, keys*dups, removed.Load())
	require.Zero(t, tb.Len())
	for _, e := range all {
		require.True(t, e.freed.Load(), "%v", e)
	}
	require.NoError(t, tb.Check())
}
