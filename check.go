package cht

import (
	"github.com/emirpasic/gods/sets/hashset"
	"github.com/pkg/errors"
)

// Check verifies the structure of a quiescent table: every head is normal, every chain is sorted and holds only items of its bucket,
// no item is reachable twice and the item count matches the linked items. Call it after Barrier with no updates in flight.
func (t *Table[K, T]) Check() error {
	if t.Resizing() {
		return errors.New("cht: check while resizing")
	}
	r := t.rcu.ReadLock()
	defer r.Unlock()

	var nilT T
	b := t.b.Load()
	seen := hashset.New()
	for i := range b.heads {
		first, m := b.heads[i].load()
		if m != normal {
			return errors.Wrapf(ErrCorrupted, "bucket %d: head marked %v", i, m)
		}
		var prev uint64
		for cur := first; cur != nilT; {
			l := cur.chtLink()
			next, m := l.load()
			if seen.Contains(cur) {
				return errors.Wrapf(ErrCorrupted, "bucket %d: item %v reachable twice", i, cur)
			}
			seen.Add(cur)
			switch {
			case m&join != 0:
				return errors.Wrapf(ErrCorrupted, "bucket %d: leftover resize mark on %v", i, l)
			case b.idx(l.hash) != uint64(i):
				return errors.Wrapf(ErrCorrupted, "bucket %d: item with hash %#x belongs to bucket %d", i, l.hash, b.idx(l.hash))
			case l.hash < prev:
				return errors.Wrapf(ErrCorrupted, "bucket %d: hash %#x after %#x", i, l.hash, prev)
			}
			prev = l.hash
			cur = next
		}
	}
	if n := t.items.Load(); n != int64(seen.Size()) {
		return errors.Wrapf(ErrCorrupted, "item count %d, %d items linked", n, seen.Size())
	}
	return nil
}
