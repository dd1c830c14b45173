package cht

// walkMode says which marks an updater expects on the links it walks and how it treats them.
type walkMode uint8

const (
	walkNormal          walkMode = iota // only normal links; any other mark means a resize is going on.
	walkLeaveJoin                       // join nodes are left in place, they may be reachable from two heads.
	walkMoveJoinFollows                 // the join-follows mark travels with the link it sits on.
)

// window is a position in a chain: cur is the node ppred points to, last the node before cur that was visited.
type window[T Item[T]] struct {
	ppred     *Link[T]
	cur, last T
}

func (w *window[T]) advance() {
	w.last = w.cur
	w.ppred = w.cur.chtLink()
	w.cur = w.ppred.next()
}

// findWndAndGC walks to the first node whose hash is not below hash, collecting deleted nodes on the way.
// It returns false if the walk must restart from the head.
func (t *Table[K, T]) findWndAndGC(hash uint64, wm walkMode, w *window[T], resizing *bool) bool {
	var nilT T
	for w.cur != nilT {
		l := w.cur.chtLink()
		if l.hash >= hash {
			return true
		}
		if l.mark()&deleted != 0 {
			if !t.gcDeletedNode(wm, w, resizing) {
				return false
			}
		} else {
			w.advance()
		}
	}
	return true
}

// findWndAndGCPred walks the run of nodes with the given hash looking for one satisfying pred. Deleted nodes are collected, never matched.
func (t *Table[K, T]) findWndAndGCPred(hash uint64, wm walkMode, pred func(T) bool, w *window[T], resizing *bool) (found, ok bool) {
	var nilT T
	for w.cur != nilT {
		l := w.cur.chtLink()
		if l.hash > hash {
			break
		}
		if l.mark()&deleted != 0 {
			if !t.gcDeletedNode(wm, w, resizing) {
				return false, false
			}
		} else {
			if l.hash == hash && pred(w.cur) {
				return true, true
			}
			w.advance()
		}
	}
	return false, true
}

// gcDeletedNode unlinks w.cur, which is marked deleted, and leaves w.ppred in place.
func (t *Table[K, T]) gcDeletedNode(wm walkMode, w *window[T], resizing *bool) bool {
	l := w.cur.chtLink()
	if wm == walkLeaveJoin && l.mark()&join != 0 {
		w.advance()
		return true
	}
	if !unlinkFromPred(w, wm, resizing) {
		return false
	}
	t.freeLater(w.cur)
	w.last = w.cur
	w.cur = l.next()
	return true
}

// unlinkFromPred swings w.ppred past w.cur.
func unlinkFromPred[T Item[T]](w *window[T], wm walkMode, resizing *bool) bool {
	next, curMark := w.cur.chtLink().load()
	if wm == walkLeaveJoin {
		assertf(curMark&join == 0, "unlinking a join node")
		// a join node predecessor keeps its marks, it may even be deleted.
		exp := normal
		if pm := w.ppred.mark(); pm&join != 0 && !w.ppred.head {
			exp = pm
		}
		_, _, ok := w.ppred.cas(w.cur, exp, next, exp)
		return ok
	}
	if wm == walkNormal && curMark&join != 0 {
		*resizing = true
		return false
	}
	jf := curMark & joinFollows
	_, m, ok := w.ppred.cas(w.cur, normal, next, jf)
	if !ok && m&joinFollows != 0 {
		*resizing = true
	}
	return ok
}

// markDeleted is phase one of a removal: it keeps the join bits the walk mode allows and sets deleted.
func markDeleted[T Item[T]](cur T, wm walkMode, resizing *bool) bool {
	l := cur.chtLink()
	next, m := l.load()
	if wm == walkNormal {
		_, om, ok := l.casNode(next, normal, next, deleted)
		if !ok && om&join != 0 {
			*resizing = true
		}
		return ok
	}
	keep := m & join
	_, _, ok := l.casNode(next, keep, next, keep|deleted)
	return ok
}

// deleteAt marks w.cur deleted and tries to unlink it. gcPending reports a node that was marked but is still linked.
func (t *Table[K, T]) deleteAt(w *window[T], wm walkMode, gcPending, resizing *bool) bool {
	*gcPending = false
	if !markDeleted(w.cur, wm, resizing) {
		return false
	}
	if wm == walkLeaveJoin && w.cur.chtLink().mark()&join != 0 {
		return true
	}
	if unlinkFromPred(w, wm, resizing) {
		t.freeLater(w.cur)
	} else {
		*gcPending = true
	}
	return true
}

// insertAt links item between w.ppred and w.cur.
func insertAt[T Item[T]](item T, w *window[T], wm walkMode, resizing *bool) bool {
	l := item.chtLink()
	switch wm {
	case walkNormal:
		l.store(w.cur, normal)
		_, m, ok := w.ppred.cas(w.cur, normal, item, normal)
		if !ok && m&join != 0 {
			*resizing = true
		}
		return ok
	case walkMoveJoinFollows:
		jf := w.ppred.mark() & joinFollows
		l.store(w.cur, jf)
		_, _, ok := w.ppred.cas(w.cur, jf, item, normal)
		return ok
	default:
		l.store(w.cur, normal)
		exp := normal
		if pm := w.ppred.mark(); pm&join != 0 && !w.ppred.head {
			exp = pm
		}
		_, _, ok := w.ppred.cas(w.cur, exp, item, exp)
		return ok
	}
}
