/*
Package rcu implements read-copy-update for goroutines.

Readers mark the span during which they may hold references with ReadLock and Unlock. Read-side sections never block and may nest.
Synchronize waits for a grace period: every section that was running when it was called has ended by the time it returns.
Call defers a function past a grace period without blocking the caller; a reclaimer goroutine batches deferred functions so that one grace period serves many.

Readers are split in two groups. A section counts itself in the current group; Synchronize waits for the other group to drain, makes it current, and then waits for the previous one.
Waiting for the other group first guarantees that readers which entered it late, during an earlier Synchronize, cannot starve this one.
*/
package rcu

import (
	"context"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/grafana/dskit/backoff"
	"go.uber.org/atomic"
	"golang.org/x/sys/cpu"

	"github.com/g-m-twostay/cht/Queues"
)

type group struct {
	_       cpu.CacheLinePad
	readers atomic.Int64
	_       cpu.CacheLinePad
}

// Domain is one RCU instance. Grace periods of a domain only wait for the readers of that domain.
type Domain struct {
	groups [2]group
	cur    atomic.Uint32

	syncMu sync.Mutex
	wait   backoff.Config

	callbacks *Queues.LinkedQueue[func()]
	pending   atomic.Int64
	kick      chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	logger  log.Logger
	metrics *metrics
}

// Reader is an open read-side section.
type Reader struct {
	d *Domain
	g uint32
}

// New creates a domain and starts its reclaimer. Close stops it.
func New(opts ...Option) *Domain {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	d := &Domain{
		wait:      o.wait,
		callbacks: Queues.NewLinkedQueue[func()](),
		kick:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		logger:    o.logger,
		metrics:   newMetrics(o.reg),
	}
	go d.reclaim()
	return d
}

// ReadLock enters a read-side section. It never blocks.
func (d *Domain) ReadLock() Reader {
	g := d.cur.Load() & 1
	d.groups[g].readers.Inc()
	return Reader{d, g}
}

// Unlock leaves the section.
func (r Reader) Unlock() {
	r.d.groups[r.g].readers.Dec()
}

// Synchronize returns after every read-side section that started before the call has ended. It must not be called inside a read-side section.
func (d *Domain) Synchronize() {
	start := time.Now()
	d.syncMu.Lock()
	defer d.syncMu.Unlock()

	old := d.cur.Load() & 1
	d.drain(old ^ 1)
	d.cur.Store(old ^ 1)
	d.drain(old)

	d.metrics.gracePeriods.Inc()
	d.metrics.gracePeriodDuration.Observe(time.Since(start).Seconds())
}

func (d *Domain) drain(g uint32) {
	if d.groups[g].readers.Load() == 0 {
		return
	}
	b := backoff.New(context.Background(), d.wait)
	for d.groups[g].readers.Load() != 0 && b.Ongoing() {
		b.Wait()
	}
}
