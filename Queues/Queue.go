// Package Queues holds the FIFO queues used to hand work between goroutines.
package Queues

import "github.com/pkg/errors"

// ErrEmpty is returned by Pop on an empty queue.
var ErrEmpty = errors.New("queue is empty: cannot Pop")

type Queue[T any] interface {
	Push(item T)
	Pop() (T, error)
	Empty() bool
}
