package cht

const (
	// DefaultMinSize is the smallest bucket count a table shrinks to unless WithMinSize says otherwise.
	DefaultMinSize = 1 << 7
	// DefaultMaxLoad is the average chain length that triggers growth.
	DefaultMaxLoad = 2
	// MaxOrder bounds the bucket array at 2^MaxOrder heads.
	MaxOrder = 32
)

// buckets is one bucket array. order never changes after allocation; only the heads do.
type buckets[T comparable] struct {
	order uint8
	heads []Link[T]
}

func newBuckets[T comparable](order uint8, m mark) *buckets[T] {
	b := &buckets[T]{order: order, heads: make([]Link[T], 1<<order)}
	var nilT T
	for i := range b.heads {
		b.heads[i].head = true
		if m != normal {
			b.heads[i].store(nilT, m)
		}
	}
	return b
}

func (b *buckets[T]) len() uint64 {
	return uint64(len(b.heads))
}

// idx takes the top order bits so that a bucket splits at a single point of its sorted chain.
func (b *buckets[T]) idx(hash uint64) uint64 {
	return hash >> (64 - b.order)
}

func (b *buckets[T]) head(hash uint64) *Link[T] {
	return &b.heads[b.idx(hash)]
}

func growIdx(idx uint64) uint64 {
	return idx << 1
}

func growToSplitIdx(idx uint64) uint64 {
	return idx<<1 | 1
}

func shrinkIdx(idx uint64) uint64 {
	return idx >> 1
}

// splitHash is the smallest hash that lands in bucket idx of a table of the given order.
func splitHash(idx uint64, order uint8) uint64 {
	return idx << (64 - order)
}

// sizeToOrder rounds size up to a power of two, but never below minOrder.
func sizeToOrder(size uint64, minOrder uint8) uint8 {
	order := minOrder
	for order < 64 && uint64(1)<<order < size {
		order++
	}
	return order
}
