package cht

import (
	"sync"
	"sync/atomic"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/g-m-twostay/cht/rcu"
)

// Item is satisfied by pointers to structs embedding Link. The unexported method keeps the link under the table's control.
type Item[T comparable] interface {
	comparable
	chtLink() *Link[T]
}

// Ops are the user callbacks of a table. All of them are required.
type Ops[K any, T Item[T]] struct {
	Hash     func(item T) uint64
	KeyHash  func(key K) uint64
	Equal    func(a, b T) bool
	KeyEqual func(key K, item T) bool
	// RemoveCallback is invoked once per removed item, after every reader that could still see the item has left its read-side section.
	RemoveCallback func(item T)
}

func (o *Ops[K, T]) validate() error {
	for _, op := range []struct {
		name    string
		missing bool
	}{
		{"Hash", o.Hash == nil},
		{"KeyHash", o.KeyHash == nil},
		{"Equal", o.Equal == nil},
		{"KeyEqual", o.KeyEqual == nil},
		{"RemoveCallback", o.RemoveCallback == nil},
	} {
		if op.missing {
			return errors.Wrap(ErrMissingOp, op.name)
		}
	}
	return nil
}

// Table is a concurrent hash table of items of type T looked up by keys of type K.
// Lookups never block; updates retry their CAS loops; a background goroutine resizes the table.
type Table[K any, T Item[T]] struct {
	b, newB atomic.Pointer[buckets[T]]

	items, resizeReqs counter

	ops      Ops[K, T]
	minOrder uint8
	maxLoad  uint64
	rcu      *rcu.Domain
	ownRCU   bool
	logger   log.Logger
	metrics  *metrics

	wake    chan struct{}
	flush   chan chan struct{}
	stop    chan struct{}
	done    chan struct{}
	destroy sync.Once

	phaseHook func(direction, phase string) //tests only, runs on the resizer between phases.
}

// New creates a table with at least initialSize buckets, rounded up to a power of two and to the minimum size.
func New[K any, T Item[T]](initialSize uint, ops Ops[K, T], opts ...Option) (*Table[K, T], error) {
	if err := ops.validate(); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.minSize == 0 || o.maxLoad == 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "min size %d, max load %d", o.minSize, o.maxLoad)
	}
	if o.minSize > 1<<MaxOrder || uint64(initialSize) > 1<<MaxOrder {
		return nil, errors.Wrapf(ErrOutOfMemory, "requested %d buckets, at most %d", max(o.minSize, uint64(initialSize)), uint64(1)<<MaxOrder)
	}
	minOrder := sizeToOrder(o.minSize, 0)

	t := &Table[K, T]{
		ops:       ops,
		minOrder:  minOrder,
		maxLoad:   o.maxLoad,
		rcu:       o.domain,
		logger:    o.logger,
		wake:      make(chan struct{}, 1),
		flush:     make(chan chan struct{}),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		phaseHook: o.phaseHook,
	}
	if t.rcu == nil {
		t.rcu = rcu.New(rcu.WithLogger(o.logger), rcu.WithRegisterer(o.reg))
		t.ownRCU = true
	}
	t.b.Store(newBuckets[T](sizeToOrder(uint64(initialSize), minOrder), normal))
	t.metrics = newMetrics(o.reg, func() float64 {
		return float64(t.items.Load())
	}, func() float64 {
		return float64(t.b.Load().len())
	})
	go t.resizer()
	return t, nil
}

// Destroy stops the resizer after it finishes any outstanding resize and waits for all pending RemoveCallbacks.
// No other call may be in flight. Items still in the table are left to the caller.
func (t *Table[K, T]) Destroy() {
	t.destroy.Do(func() {
		ack := make(chan struct{})
		t.flush <- ack
		<-ack
		close(t.stop)
		<-t.done
		t.rcu.Barrier()
		if n := t.items.Load(); n != 0 {
			level.Warn(t.logger).Log("msg", "destroying a non-empty table", "items", n)
		}
		if t.ownRCU {
			t.rcu.Close()
		}
	})
}

// ReadLock enters a read-side section of the table's RCU domain. Items found inside it stay valid until Unlock.
func (t *Table[K, T]) ReadLock() rcu.Reader {
	return t.rcu.ReadLock()
}

// Barrier brings the table to the size its load calls for and then waits until every RemoveCallback scheduled so far has run.
func (t *Table[K, T]) Barrier() {
	ack := make(chan struct{})
	select {
	case t.flush <- ack:
		<-ack
	case <-t.done:
	}
	t.rcu.Barrier()
}

// Len returns the number of items. It is exact only when no update is in flight.
func (t *Table[K, T]) Len() int {
	return int(max(t.items.Load(), 0))
}

// Buckets returns the bucket count of the current bucket array.
func (t *Table[K, T]) Buckets() int {
	return len(t.b.Load().heads)
}

// Resizing reports whether a second bucket array is being populated.
func (t *Table[K, T]) Resizing() bool {
	return t.newB.Load() != nil
}
