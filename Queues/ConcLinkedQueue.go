package Queues

import (
	"sync/atomic"
)

type node[T any] struct {
	v  T
	nx atomic.Pointer[node[T]]
}

// LinkedQueue is the Michael-Scott queue: any number of goroutines may Push and Pop concurrently without locks.
// head always points at a dummy node; the first value lives in head.nx.
type LinkedQueue[T any] struct {
	head, tail atomic.Pointer[node[T]]
}

func NewLinkedQueue[T any]() *LinkedQueue[T] {
	q, dummy := new(LinkedQueue[T]), new(node[T])
	q.head.Store(dummy)
	q.tail.Store(dummy)
	return q
}

func (q *LinkedQueue[T]) Push(item T) {
	n := &node[T]{v: item}
	for {
		tail := q.tail.Load()
		if nx := tail.nx.Load(); nx != nil {
			q.tail.CompareAndSwap(tail, nx) //help a lagging tail.
		} else if tail.nx.CompareAndSwap(nil, n) {
			q.tail.CompareAndSwap(tail, n)
			return
		}
	}
}

func (q *LinkedQueue[T]) Pop() (T, error) {
	for {
		head, tail := q.head.Load(), q.tail.Load()
		first := head.nx.Load()
		if head == tail {
			if first == nil {
				return *new(T), ErrEmpty
			}
			q.tail.CompareAndSwap(tail, first)
		} else if q.head.CompareAndSwap(head, first) {
			v := first.v
			first.v = *new(T) //first is the new dummy, drop the reference.
			return v, nil
		}
	}
}

func (q *LinkedQueue[T]) Empty() bool {
	return q.head.Load().nx.Load() == nil
}
