package cht

// Insert adds item. Items with equal keys may coexist; use InsertUnique to prevent that.
func (t *Table[K, T]) Insert(item T) {
	t.insert(item, false)
}

// InsertUnique adds item unless an Equal item is present, in which case it returns false.
func (t *Table[K, T]) InsertUnique(item T) bool {
	_, ok := t.insert(item, true)
	return ok
}

// InsertUniqueDup is InsertUnique that also returns the item that blocked the insert.
func (t *Table[K, T]) InsertUniqueDup(item T) (T, bool) {
	return t.insert(item, true)
}

// RemoveKey removes every item matching key and returns how many it removed.
func (t *Table[K, T]) RemoveKey(key K) int {
	hash := mix(t.ops.KeyHash(key))
	pred := func(it T) bool {
		return t.ops.KeyEqual(key, it)
	}
	n := 0
	for t.removePred(hash, pred) {
		n++
	}
	return n
}

// RemoveItem removes exactly item. It returns false if item is not in the table, so a second call is a no-op.
func (t *Table[K, T]) RemoveItem(item T) bool {
	return t.removePred(mix(t.ops.Hash(item)), func(it T) bool {
		return it == item
	})
}

func (t *Table[K, T]) insert(item T, unique bool) (T, bool) {
	r := t.rcu.ReadLock()
	defer r.Unlock()

	var nilT T
	hash := mix(t.ops.Hash(item))
	item.chtLink().hash = hash
	b := t.b.Load()
	phead := b.head(hash)
	for resizing := false; ; {
		wm := walkNormal
		resizing = resizing || phead.mark() != normal
		if resizing {
			phead, _, wm = t.updResizingHead(b, hash)
		}
		w := window[T]{ppred: phead, cur: phead.next()}
		if !t.findWndAndGC(hash, wm, &w, &resizing) {
			continue
		}
		if unique {
			if dup := t.findDuplicate(item, hash, w.cur); dup != nilT {
				return dup, false
			}
		}
		if insertAt(item, &w, wm, &resizing) {
			break
		}
	}
	t.itemInserted()
	return nilT, true
}

// removePred removes the first live item with the given hash that satisfies pred.
func (t *Table[K, T]) removePred(hash uint64, pred func(T) bool) bool {
	r := t.rcu.ReadLock()
	defer r.Unlock()

	b := t.b.Load()
	phead := b.head(hash)
	var resizing, gcPending bool
	for {
		wm, joinFinishing := walkNormal, false
		resizing = resizing || phead.mark() != normal
		if resizing {
			phead, joinFinishing, wm = t.updResizingHead(b, hash)
		}
		w := window[T]{ppred: phead, cur: phead.next()}
		found, ok := t.findWndAndGCPred(hash, wm, pred, &w, &resizing)
		if !ok {
			continue
		}
		// the walk collected the node we marked earlier.
		if gcPending {
			return true
		}
		if joinFinishing && !joinCompleted(b, &w) {
			continue
		}
		if !found {
			return false
		}
		if t.deleteAt(&w, wm, &gcPending, &resizing) && !gcPending {
			return true
		}
	}
}

// joinCompleted reports whether a walk that ended in a joined bucket saw the appended part.
func joinCompleted[T Item[T]](b *buckets[T], w *window[T]) bool {
	var nilT T
	if w.cur != nilT {
		return true
	}
	if w.last != nilT {
		lastIdx := b.idx(w.last.chtLink().hash)
		if growIdx(shrinkIdx(lastIdx)) != lastIdx {
			return true
		}
	}
	return false
}

// updResizingHead picks the head an updater must use while b is being replaced, helping the resize along as needed.
func (t *Table[K, T]) updResizingHead(b *buckets[T], hash uint64) (*Link[T], bool, walkMode) {
	nb := t.newB.Load()
	if nb == nil || nb == b {
		return t.b.Load().head(hash), false, walkNormal
	}
	oldIdx, newIdx := b.idx(hash), nb.idx(hash)
	oldHead, newHead := &b.heads[oldIdx], &nb.heads[newIdx]
	switch {
	case b.order < nb.order:
		moveDest := growIdx(oldIdx)
		moved := &nb.heads[moveDest]
		moveHead(oldHead, moved)
		if moveDest == newIdx {
			return newHead, false, walkMoveJoinFollows
		}
		if newHead.mark() != normal {
			t.splitBucket(moved, newHead, splitHash(newIdx, nb.order))
		}
		return newHead, false, walkLeaveJoin
	case b.order > nb.order:
		moveSrc := growIdx(newIdx)
		moveHead(&b.heads[moveSrc], newHead)
		joinFinishing := false
		if moveSrc != oldIdx {
			if oldHead.mark() != invalid {
				t.joinBuckets(oldHead, newHead, splitHash(oldIdx, b.order))
			}
			var nilT T
			joinFinishing = oldHead.next() != nilT
		}
		return newHead, joinFinishing, walkLeaveJoin
	default:
		return newHead, false, walkNormal
	}
}

func (t *Table[K, T]) freeLater(item T) {
	t.rcu.Call(func() {
		t.ops.RemoveCallback(item)
	})
	t.itemRemoved()
}
