package cht

import (
	"fmt"
	"sync/atomic"
)

// mark is the two bit tag stored next to every link. Heads and node links reuse the same bits with different meanings.
type mark uint8

const (
	normal mark = 0
	// node links
	deleted     mark = 1 // the node owning the link is logically removed.
	join        mark = 2 // the node owning the link is reachable from two heads.
	joinFollows mark = 2 // the successor is a join node; the link crosses a split point.
	// heads
	invalid  mark = 1 // the head was retired, consult the peer table.
	constant mark = 3 // no insert after the head and no unlink of its successor.

	markMask mark = 3
)

func (m mark) String() string {
	return [...]string{"N", "D", "J", "C"}[m&markMask]
}

// marked is an immutable (next, mark) pair. Links swap whole pairs so that the pointer and its mark change atomically.
type marked[T comparable] struct {
	next T
	mark mark
}

// Link is the part of an item the table owns. Embed it as cht.Link[*YourItem]; never touch it directly.
type Link[T comparable] struct {
	p    atomic.Pointer[marked[T]]
	hash uint64 //mixed hash, written before the item is published.
	head bool
}

func (l *Link[T]) chtLink() *Link[T] {
	return l
}

func (l *Link[T]) load() (T, mark) {
	if s := l.p.Load(); s != nil {
		return s.next, s.mark
	}
	var zero T
	return zero, normal
}

func (l *Link[T]) next() T {
	n, _ := l.load()
	return n
}

func (l *Link[T]) mark() mark {
	_, m := l.load()
	return m
}

func (l *Link[T]) store(next T, m mark) {
	l.p.Store(&marked[T]{next, m})
}

// cas replaces (oldNext, oldMark) with (newNext, newMark). It returns the pair it observed; the swap happened iff ok.
func (l *Link[T]) cas(oldNext T, oldMark mark, newNext T, newMark mark) (T, mark, bool) {
	var upd *marked[T]
	for {
		s := l.p.Load()
		var n T
		m := normal
		if s != nil {
			n, m = s.next, s.mark
		}
		if n != oldNext || m != oldMark {
			return n, m, false
		}
		if upd == nil {
			upd = &marked[T]{newNext, newMark}
		}
		if l.p.CompareAndSwap(s, upd) {
			return n, m, true
		}
	}
}

// casHead and casNode are the typed entry points; they only differ in the debug assertion on the kind of link.
func (l *Link[T]) casHead(oldNext T, oldMark mark, newNext T, newMark mark) (T, mark, bool) {
	assertf(l.head, "head cas on a node link")
	return l.cas(oldNext, oldMark, newNext, newMark)
}

func (l *Link[T]) casNode(oldNext T, oldMark mark, newNext T, newMark mark) (T, mark, bool) {
	assertf(!l.head, "node cas on a head")
	return l.cas(oldNext, oldMark, newNext, newMark)
}

func (l *Link[T]) String() string {
	n, m := l.load()
	return fmt.Sprintf("{next: %v; mark: %v; hash: %#x}", n, m, l.hash)
}
