package rcu

import (
	"github.com/go-kit/log/level"
)

// Call runs fn on the reclaimer goroutine after a grace period. Functions run in the order they were queued.
func (d *Domain) Call(fn func()) {
	d.pending.Inc()
	d.callbacks.Push(fn)
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// Barrier returns once every function queued by Call before it has run.
func (d *Domain) Barrier() {
	ran := make(chan struct{})
	d.Call(func() {
		close(ran)
	})
	select {
	case <-ran:
	case <-d.done:
		// closed domain: Close ran everything that was queued.
	}
}

// Pending returns the number of queued functions that have not run yet.
func (d *Domain) Pending() int64 {
	return d.pending.Load()
}

// Close runs the queued functions and stops the reclaimer. Call must not be used afterwards.
func (d *Domain) Close() {
	d.closeOnce.Do(func() {
		close(d.stop)
		<-d.done
	})
}

func (d *Domain) reclaim() {
	defer close(d.done)
	for {
		select {
		case <-d.kick:
			d.runBatch()
		case <-d.stop:
			for d.runBatch() {
			}
			return
		}
	}
}

// runBatch takes everything queued so far, waits one grace period and runs it. It reports whether there was anything to run.
func (d *Domain) runBatch() bool {
	var batch []func()
	for {
		fn, err := d.callbacks.Pop()
		if err != nil {
			break
		}
		batch = append(batch, fn)
	}
	if len(batch) == 0 {
		return false
	}
	d.Synchronize()
	d.metrics.callbacks.Add(float64(len(batch)))
	d.metrics.batchSize.Observe(float64(len(batch)))
	if len(batch) > largeBatch {
		level.Debug(d.logger).Log("msg", "running large callback batch", "callbacks", len(batch), "pending", d.pending.Load())
	}
	for _, fn := range batch {
		d.pending.Dec()
		fn()
	}
	return true
}

const largeBatch = 1 << 14
