package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/petar/GoLLRB/llrb"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/g-m-twostay/cht"
)

type item struct {
	cht.Link[*item]
	key   uint64
	freed atomic.Bool
}

// stats are the counters of one run. Every field is updated concurrently.
type stats struct {
	lookups, inserts, removes, reclaimed atomic.Int64
}

func addRunCommand(app *kingpin.Application, f *workloadFlags, logger func() log.Logger) {
	app.Command("run", "Run the workload and verify the table afterwards.").Default().Action(func(*kingpin.ParseContext) error {
		w, err := f.load()
		if err != nil {
			return err
		}
		st, rep, err := run(context.Background(), w, logger())
		if err != nil {
			return err
		}
		printReport(w, st, rep)
		return nil
	})
}

type report struct {
	elapsed       time.Duration
	maxBuckets    int
	grows         float64
	shrinks       float64
	gracePeriods  float64
	finalBuckets  int
	liveAtTheStop int
}

// run executes w and verifies the table. Any returned error means the table misbehaved or could not be built.
func run(ctx context.Context, w workload, logger log.Logger) (*stats, report, error) {
	var rep report
	st := &stats{}
	reg := prometheus.NewRegistry()
	hasher := cht.Hasher(w.Seed)
	tb, err := cht.New[uint64, *item](w.Table.InitialSize, cht.Ops[uint64, *item]{
		Hash:     func(it *item) uint64 { return hasher.HashUint64(it.key) },
		KeyHash:  hasher.HashUint64,
		Equal:    func(a, b *item) bool { return a.key == b.key },
		KeyEqual: func(k uint64, it *item) bool { return k == it.key },
		RemoveCallback: func(it *item) {
			if it.freed.Swap(true) {
				level.Error(logger).Log("msg", "item reclaimed twice", "key", it.key)
			}
			st.reclaimed.Inc()
		},
	}, append(w.Table.Options(), cht.WithLogger(logger), cht.WithRegisterer(reg))...)
	if err != nil {
		return nil, rep, errors.Wrap(err, "creating table")
	}
	defer tb.Destroy()

	for k := 0; k < w.Pinned; k++ {
		tb.Insert(&item{key: uint64(k)})
	}
	level.Info(logger).Log("msg", "starting workload", "writers", w.Writers, "readers", w.Readers, "keys", w.Writers*w.Keys+w.Pinned, "duration", w.Duration)

	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, w.Duration)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	for r := 0; r < w.Readers; r++ {
		rnd := rand.New(rand.NewSource(w.Seed + int64(r) + 1))
		g.Go(func() error {
			return read(gctx, tb, rnd, w.Pinned, st)
		})
	}
	writers := make([]*writer, w.Writers)
	for i := range writers {
		writers[i] = &writer{
			tb:   tb,
			base: uint64(w.Pinned + i*w.Keys),
			keys: w.Keys,
			rnd:  rand.New(rand.NewSource(w.Seed - int64(i) - 1)),
			live: llrb.New(),
			st:   st,
		}
		wr := writers[i]
		g.Go(func() error {
			return wr.loop(gctx)
		})
	}
	g.Go(func() error {
		t := time.NewTicker(10 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				rep.maxBuckets = max(rep.maxBuckets, tb.Buckets())
			}
		}
	})
	if err := g.Wait(); err != nil {
		return st, rep, err
	}
	rep.elapsed = time.Since(start)

	tb.Barrier()
	want := w.Pinned
	for _, wr := range writers {
		if err := wr.verify(); err != nil {
			return st, rep, err
		}
		want += wr.live.Len()
	}
	rep.liveAtTheStop = want
	if n := tb.Len(); n != want {
		return st, rep, errors.Errorf("table holds %d items, writers account for %d", n, want)
	}
	if err := tb.Check(); err != nil {
		return st, rep, errors.Wrap(err, "after the workload")
	}

	// drain everything so that every removed item must come back through the callback.
	for _, wr := range writers {
		wr.drain()
	}
	for k := 0; k < w.Pinned; k++ {
		if tb.RemoveKey(uint64(k)) != 1 {
			return st, rep, errors.Errorf("pinned key %d not removed", k)
		}
		st.removes.Inc()
	}
	tb.Barrier()
	if err := tb.Check(); err != nil {
		return st, rep, errors.Wrap(err, "after draining")
	}
	if r, rm := st.reclaimed.Load(), st.removes.Load(); r != rm {
		return st, rep, errors.Errorf("%d items removed, %d reclaimed", rm, r)
	}
	rep.finalBuckets = tb.Buckets()
	rep.grows, rep.shrinks, rep.gracePeriods = gatherResizes(reg)
	return st, rep, nil
}

func read(ctx context.Context, tb *cht.Table[uint64, *item], rnd *rand.Rand, pinned int, st *stats) error {
	for ctx.Err() == nil {
		r := tb.ReadLock()
		for i := 0; i < 64; i++ {
			k := uint64(rnd.Intn(pinned))
			it := tb.FindLazy(k)
			if it == nil {
				r.Unlock()
				return errors.Errorf("pinned key %d not found", k)
			}
			if it.freed.Load() {
				r.Unlock()
				return errors.Errorf("pinned key %d reclaimed while in use", k)
			}
		}
		r.Unlock()
		st.lookups.Add(64)
	}
	return nil
}

// writer owns the keys [base, base+keys) and tracks which of them are live.
type writer struct {
	tb   *cht.Table[uint64, *item]
	base uint64
	keys int
	rnd  *rand.Rand
	live *llrb.LLRB
	st   *stats
}

// loop fills the key range and drains most of it, over and over, so that the table keeps growing and shrinking.
func (w *writer) loop(ctx context.Context) error {
	for wave := 0; ctx.Err() == nil; wave++ {
		for _, i := range w.rnd.Perm(w.keys) {
			k := w.base + uint64(i)
			if w.live.Has(llrb.Int(k)) {
				continue
			}
			if !w.tb.InsertUnique(&item{key: k}) {
				return errors.Errorf("wave %d: key %d already present", wave, k)
			}
			w.live.ReplaceOrInsert(llrb.Int(k))
			w.st.inserts.Inc()
		}
		if err := w.verify(); err != nil {
			return errors.Wrapf(err, "wave %d filled", wave)
		}
		keep := w.rnd.Intn(w.keys/10 + 1)
		for w.live.Len() > keep && ctx.Err() == nil {
			k := w.base + uint64(w.rnd.Intn(w.keys))
			if w.live.Delete(llrb.Int(k)) == nil {
				continue
			}
			if n := w.tb.RemoveKey(k); n != 1 {
				return errors.Errorf("wave %d: key %d removed %d times", wave, k, n)
			}
			w.st.removes.Inc()
		}
		if err := w.verify(); err != nil {
			return errors.Wrapf(err, "wave %d drained", wave)
		}
	}
	return nil
}

// verify checks that exactly the live keys of the range are in the table.
func (w *writer) verify() error {
	var err error
	next := w.base
	check := func(k uint64, want bool) bool {
		if got := w.tb.Find(k) != nil; got != want {
			err = errors.Errorf("key %d: found %t, want %t", k, got, want)
			return false
		}
		return true
	}
	w.live.AscendGreaterOrEqual(llrb.Int(0), func(i llrb.Item) bool {
		k := uint64(i.(llrb.Int))
		for ; next < k; next++ {
			if !check(next, false) {
				return false
			}
		}
		next = k + 1
		return check(k, true)
	})
	for end := w.base + uint64(w.keys); err == nil && next < end; next++ {
		check(next, false)
	}
	return err
}

func (w *writer) drain() {
	for w.live.Len() > 0 {
		k := uint64(w.live.DeleteMin().(llrb.Int))
		w.st.removes.Add(int64(w.tb.RemoveKey(k)))
	}
}

func gatherResizes(g prometheus.Gatherer) (grows, shrinks, gracePeriods float64) {
	mfs, err := g.Gather()
	if err != nil {
		return
	}
	for _, mf := range mfs {
		switch mf.GetName() {
		case "cht_resizes_total":
			for _, m := range mf.GetMetric() {
				for _, l := range m.GetLabel() {
					if l.GetName() != "direction" {
						continue
					}
					switch l.GetValue() {
					case "grow":
						grows = m.GetCounter().GetValue()
					case "shrink":
						shrinks = m.GetCounter().GetValue()
					}
				}
			}
		case "rcu_grace_periods_total":
			if ms := mf.GetMetric(); len(ms) > 0 {
				gracePeriods = ms[0].GetCounter().GetValue()
			}
		}
	}
	return
}

func printReport(w workload, st *stats, rep report) {
	secs := rep.elapsed.Seconds()
	fmt.Printf("ran %s with %d writers and %d readers\n", rep.elapsed.Round(time.Millisecond), w.Writers, w.Readers)
	fmt.Printf("\tlookups: %s (%s)\n", humanize.Comma(st.lookups.Load()), humanize.SIWithDigits(float64(st.lookups.Load())/secs, 2, "ops/s"))
	fmt.Printf("\tinserts: %s (%s)\n", humanize.Comma(st.inserts.Load()), humanize.SIWithDigits(float64(st.inserts.Load())/secs, 2, "ops/s"))
	fmt.Printf("\tremoves: %s, reclaimed: %s\n", humanize.Comma(st.removes.Load()), humanize.Comma(st.reclaimed.Load()))
	fmt.Printf("\tresizes: %s grows, %s shrinks, %s grace periods\n", humanize.Ftoa(rep.grows), humanize.Ftoa(rep.shrinks), humanize.Ftoa(rep.gracePeriods))
	fmt.Printf("\tbuckets: up to %s, %s at the end; %s items live when the workload stopped\n",
		humanize.Comma(int64(rep.maxBuckets)), humanize.Comma(int64(rep.finalBuckets)), humanize.Comma(int64(rep.liveAtTheStop)))
	fmt.Println("table verified")
}
