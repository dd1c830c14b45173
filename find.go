package cht

// Find returns an item matching key, or the zero T. The item is only guaranteed not to be handed to RemoveCallback while the caller holds a ReadLock taken before the call.
func (t *Table[K, T]) Find(key K) T {
	r := t.rcu.ReadLock()
	defer r.Unlock()
	return t.findLazy(key)
}

// FindLazy is Find for callers already inside a read-side section. It skips the section bookkeeping.
func (t *Table[K, T]) FindLazy(key K) T {
	return t.findLazy(key)
}

// FindNext returns the next item after item that is Equal to it, or the zero T. Call it in the same read-side section that found item.
func (t *Table[K, T]) FindNext(item T) T {
	l := item.chtLink()
	return t.findDuplicate(item, l.hash, l.next())
}

func (t *Table[K, T]) findLazy(key K) T {
	hash := mix(t.ops.KeyHash(key))
	b := t.b.Load()
	idx := b.idx(hash)
	first, m := b.heads[idx].load()
	if m == invalid {
		return t.findResizing(b, key, hash, first, idx)
	}
	return t.searchBucket(first, key, hash)
}

// searchBucket walks a chain starting at first. Nodes outside the bucket may be visited while a bucket is split; they are still allocated and sorted.
func (t *Table[K, T]) searchBucket(first T, key K, hash uint64) T {
	var nilT T
	for cur := first; cur != nilT; {
		l := cur.chtLink()
		if l.hash > hash {
			break
		}
		next, m := l.load()
		if l.hash == hash && m&deleted == 0 && t.ops.KeyEqual(key, cur) {
			return cur
		}
		cur = next
	}
	return nilT
}

// findResizing looks key up when its head in b was already retired. oldFirst is the retired head's successor.
func (t *Table[K, T]) findResizing(b *buckets[T], key K, hash uint64, oldFirst T, oldIdx uint64) T {
	var nilT T
	nb := t.newB.Load()
	if nb == nil {
		// the reader outlived the swap; the current table has all heads valid.
		nb = t.b.Load()
	}
	newIdx := nb.idx(hash)
	first, m := nb.heads[newIdx].load()
	switch {
	case b.order < nb.order:
		if m == invalid {
			// not split yet: the moved bucket still holds the second half.
			if g := growIdx(oldIdx); g != newIdx {
				first, m = nb.heads[g].load()
			}
			if m == invalid {
				first = oldFirst
			}
		}
		return t.searchBucket(first, key, hash)
	case b.order > nb.order:
		moveSrc := growIdx(newIdx)
		if m == invalid {
			first = b.heads[moveSrc].next()
		}
		if it := t.searchBucket(first, key, hash); it != nilT {
			return it
		}
		// the bucket was appended to the moved one; its retired head still points at the join node.
		if moveSrc != oldIdx && oldFirst != nilT {
			return t.searchBucket(oldFirst, key, hash)
		}
		return nilT
	default:
		return t.searchBucket(first, key, hash)
	}
}

func (t *Table[K, T]) findDuplicate(item T, hash uint64, cur T) T {
	var nilT T
	for cur != nilT {
		l := cur.chtLink()
		if l.hash != hash {
			break
		}
		next, m := l.load()
		if m&deleted == 0 && t.ops.Equal(item, cur) {
			return cur
		}
		cur = next
	}
	return nilT
}
