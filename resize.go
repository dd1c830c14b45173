package cht

import (
	"time"

	"github.com/go-kit/log/level"
)

// moveHead freezes src and publishes its chain in dest. Any updater that finds src frozen may finish the move.
func moveHead[T Item[T]](src, dest *Link[T]) {
	markConst(src)
	completeHeadMove(src, dest)
}

func markConst[T Item[T]](src *Link[T]) {
	for {
		n, m := src.load()
		if m == constant || m == invalid {
			return
		}
		assertf(m == normal, "freezing a head marked %v", m)
		if _, om, ok := src.casHead(n, normal, n, constant); ok || om == constant || om == invalid {
			return
		}
	}
}

func completeHeadMove[T Item[T]](src, dest *Link[T]) {
	var nilT T
	n, m := src.load()
	if m == invalid {
		return
	}
	assertf(m == constant, "moving a head marked %v", m)
	dest.casHead(nilT, invalid, n, normal)
	src.casHead(n, constant, n, invalid)
}

// splitBucket publishes the part of src's chain at or above sh in dest.
//
// L, the last node below sh, gets a join-follows link first so that updaters unaware of the split neither insert between L and F nor unlink either of them.
// F, the first node at or above sh, becomes a join node (it may already be deleted) and finally dest is pointed at F.
func (t *Table[K, T]) splitBucket(src, dest *Link[T], sh uint64) {
	var nilT T
	if dest.mark() == normal {
		return
	}
	f := t.markJoinFollows(src, sh)
	if f != nilT {
		markJoinNode(f)
	}
	dest.casHead(nilT, invalid, f, normal)
}

// markJoinFollows returns F after marking the link pointing to it.
func (t *Table[K, T]) markJoinFollows(src *Link[T], sh uint64) T {
	for {
		var resizing bool
		w := window[T]{ppred: src, cur: src.next()}
		if !t.findWndAndGC(sh, walkMoveJoinFollows, &w, &resizing) {
			continue
		}
		n, m, ok := w.ppred.cas(w.cur, normal, w.cur, joinFollows)
		if ok {
			return w.cur
		}
		if m&joinFollows != 0 {
			return n
		}
	}
}

func markJoinNode[T Item[T]](jn T) {
	l := jn.chtLink()
	for {
		n, m := l.load()
		if m&join != 0 {
			return
		}
		if _, om, ok := l.casNode(n, m, n, m|join); ok || om&join != 0 {
			return
		}
	}
}

// joinBuckets appends the chain of src to the chain of dest.
//
// src is frozen so nobody inserts before or unlinks its first node F. F becomes a join node and the tail of dest is linked to it.
// Retiring src tells updaters the join is visible through dest. src keeps pointing at F so that readers can still reach it.
func (t *Table[K, T]) joinBuckets(src, dest *Link[T], sh uint64) {
	var nilT T
	if src.mark() == invalid {
		return
	}
	markConst(src)
	jn, m := src.load()
	if m == invalid {
		return
	}
	if jn != nilT {
		markJoinNode(jn)
		t.linkToJoinNode(dest, jn, sh)
	}
	src.casHead(jn, constant, jn, invalid)
}

func (t *Table[K, T]) linkToJoinNode(dest *Link[T], jn T, sh uint64) {
	var nilT T
	for {
		var resizing bool
		w := window[T]{ppred: dest, cur: dest.next()}
		if !t.findWndAndGC(sh, walkLeaveJoin, &w, &resizing) {
			continue
		}
		// anything at or above sh came from the appended bucket, so the link is already there.
		if w.cur != nilT {
			return
		}
		if _, _, ok := w.ppred.cas(nilT, normal, jn, normal); ok {
			return
		}
	}
}

// cleanupJoinFollows cuts the moved bucket off the second half of a split. The join-follows link may move or be deleted at any time,
// so deleted nodes are collected until a live one is found.
func (t *Table[K, T]) cleanupJoinFollows(head *Link[T]) {
	r := t.rcu.ReadLock()
	defer r.Unlock()

	var nilT T
	var w window[T]
	for cur := head; ; {
		n, m := cur.load()
		isJF := m&joinFollows != 0
		if m&deleted != 0 && cur != head {
			var resizing bool
			if ok := t.gcDeletedNode(walkMoveJoinFollows, &w, &resizing); !ok || isJF {
				cur = head
				continue
			}
		} else if isJF {
			if _, _, ok := cur.cas(n, joinFollows, nilT, normal); ok {
				return
			}
			cur = head
			continue
		} else {
			w.ppred, w.cur = cur, n
		}
		assertf(w.cur != nilT, "no join-follows link in a moved bucket")
		cur = w.cur.chtLink()
	}
}

// cleanupJoinNode clears the join mark in the chain of head and unlinks the join node if it was deleted meanwhile.
func (t *Table[K, T]) cleanupJoinNode(head *Link[T]) {
	r := t.rcu.ReadLock()
	defer r.Unlock()

	var nilT T
	for cur := head.next(); cur != nilT; {
		n, m := cur.chtLink().load()
		if m&join != 0 {
			t.clearJoinAndGC(cur, head)
			return
		}
		cur = n
	}
}

func (t *Table[K, T]) clearJoinAndGC(jn T, head *Link[T]) {
	l := jn.chtLink()
	for {
		n, m := l.load()
		if _, _, ok := l.casNode(n, m, n, m&deleted); ok {
			break
		}
	}
	if l.mark()&deleted == 0 {
		return
	}
	same := func(it T) bool {
		return it == jn
	}
	for {
		var resizing bool
		w := window[T]{ppred: head, cur: head.next()}
		if _, ok := t.findWndAndGCPred(l.hash, walkNormal, same, &w, &resizing); ok {
			return
		}
	}
}

// grow doubles the table. Updaters help with head moves and splits; everything else happens here, one grace period between phases.
func (t *Table[K, T]) grow() {
	b := t.b.Load()
	if b.order >= MaxOrder {
		return
	}
	nb := newBuckets[T](b.order+1, invalid)
	t.newB.Store(nb)
	t.rcu.Synchronize()
	t.phase("grow", "published")

	for i := range b.heads {
		markConst(&b.heads[i])
	}
	t.phase("grow", "frozen")
	for i := range b.heads {
		r := t.rcu.ReadLock()
		idx := uint64(i)
		moved := &nb.heads[growIdx(idx)]
		completeHeadMove(&b.heads[i], moved)
		split := growToSplitIdx(idx)
		t.splitBucket(moved, &nb.heads[split], splitHash(split, nb.order))
		r.Unlock()
	}
	t.rcu.Synchronize()
	t.phase("grow", "split")

	for i := range b.heads {
		t.cleanupJoinFollows(&nb.heads[growIdx(uint64(i))])
	}
	t.rcu.Synchronize()
	t.phase("grow", "cut")

	for i := range b.heads {
		t.cleanupJoinNode(&nb.heads[growToSplitIdx(uint64(i))])
	}
	t.rcu.Synchronize()
	t.phase("grow", "cleaned")

	t.swap(nb)
}

// shrink halves the table. Even buckets are moved, odd buckets are appended to them.
func (t *Table[K, T]) shrink() {
	var nilT T
	b := t.b.Load()
	if b.order <= t.minOrder {
		return
	}
	nb := newBuckets[T](b.order-1, invalid)
	t.newB.Store(nb)
	t.rcu.Synchronize()
	t.phase("shrink", "published")

	for i := 0; i < len(b.heads); i += 2 {
		markConst(&b.heads[i])
	}
	t.phase("shrink", "frozen")
	for i := range b.heads {
		r := t.rcu.ReadLock()
		idx := uint64(i)
		dest := &nb.heads[shrinkIdx(idx)]
		if growIdx(shrinkIdx(idx)) == idx {
			completeHeadMove(&b.heads[i], dest)
		} else {
			t.joinBuckets(&b.heads[i], dest, splitHash(idx, b.order))
		}
		r.Unlock()
	}
	t.rcu.Synchronize()
	t.phase("shrink", "joined")

	// nobody may reach a join node through a retired head once its mark is cleared.
	for i := 1; i < len(b.heads); i += 2 {
		jn, _ := b.heads[i].load()
		b.heads[i].casHead(jn, invalid, nilT, invalid)
	}
	t.rcu.Synchronize()
	t.phase("shrink", "retired")

	for i := range nb.heads {
		t.cleanupJoinNode(&nb.heads[i])
	}
	t.rcu.Synchronize()
	t.phase("shrink", "cleaned")

	t.swap(nb)
}

func (t *Table[K, T]) phase(direction, name string) {
	if t.phaseHook != nil {
		t.phaseHook(direction, name)
	}
}

func (t *Table[K, T]) swap(nb *buckets[T]) {
	t.b.Store(nb)
	t.rcu.Synchronize()
	t.newB.Store(nil)
}

func (t *Table[K, T]) maxItems(b *buckets[T]) int64 {
	return int64(t.maxLoad) << b.order
}

func (t *Table[K, T]) itemInserted() {
	items := t.items.Inc()
	if b := t.b.Load(); items > t.maxItems(b) && b.order < MaxOrder {
		t.postResize()
	}
}

func (t *Table[K, T]) itemRemoved() {
	items := t.items.Dec()
	if b := t.b.Load(); items <= t.maxItems(b)/4 && b.order > t.minOrder {
		t.postResize()
	}
}

// postResize wakes the resizer on the first outstanding request. Later requests are folded into the running resize.
func (t *Table[K, T]) postResize() {
	if t.resizeReqs.Inc() == 1 {
		select {
		case t.wake <- struct{}{}:
		default:
		}
	}
}

func (t *Table[K, T]) resizer() {
	defer close(t.done)
	for {
		select {
		case <-t.stop:
			return
		case <-t.wake:
			t.resize()
		case ack := <-t.flush:
			t.resize()
			close(ack)
		}
	}
}

// resize grows or shrinks until the load fits, then retires the requests it has seen.
func (t *Table[K, T]) resize() {
	for {
		b := t.b.Load()
		items, limit := t.items.Load(), t.maxItems(b)
		switch {
		case items > limit && b.order < MaxOrder:
			t.timed("grow", b, t.grow)
		case items <= limit/4 && b.order > t.minOrder:
			t.timed("shrink", b, t.shrink)
		default:
			if reqs := t.resizeReqs.Load(); t.resizeReqs.Sub(reqs) == 0 {
				return
			}
		}
	}
}

func (t *Table[K, T]) timed(direction string, b *buckets[T], f func()) {
	start := time.Now()
	level.Debug(t.logger).Log("msg", "resizing table", "direction", direction, "buckets", b.len(), "items", t.items.Load())
	f()
	d := time.Since(start)
	t.metrics.resizes.WithLabelValues(direction).Inc()
	t.metrics.resizeDuration.WithLabelValues(direction).Observe(d.Seconds())
	level.Debug(t.logger).Log("msg", "table resized", "direction", direction, "buckets", t.b.Load().len(), "duration", d)
}
