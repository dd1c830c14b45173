package cht

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLink_Cas(t *testing.T) {
	var l Link[*entry]
	a, b := &entry{key: 1}, &entry{key: 2}

	n, m := l.load()
	require.Nil(t, n)
	require.Equal(t, normal, m)

	// the zero link is (nil, normal).
	_, _, ok := l.cas(nil, normal, a, normal)
	require.True(t, ok)
	require.Same(t, a, l.next())

	n, m, ok = l.cas(a, deleted, b, normal)
	require.False(t, ok)
	require.Same(t, a, n)
	require.Equal(t, normal, m)

	n, m, ok = l.cas(a, normal, a, joinFollows)
	require.True(t, ok)
	require.Same(t, a, n)
	require.Equal(t, normal, m)
	require.Equal(t, joinFollows, l.mark())

	_, m, ok = l.cas(b, joinFollows, nil, normal)
	require.False(t, ok)
	require.Equal(t, joinFollows, m)
}

func TestMark_String(t *testing.T) {
	require.Equal(t, "N", normal.String())
	require.Equal(t, "D", deleted.String())
	require.Equal(t, "J", join.String())
	require.Equal(t, "C", constant.String())
	require.Equal(t, "D", (deleted | 4).String())
}

func TestBuckets_Index(t *testing.T) {
	b := newBuckets[*entry](3, invalid)
	require.EqualValues(t, 8, b.len())
	for i := range b.heads {
		require.True(t, b.heads[i].head)
		require.Equal(t, invalid, b.heads[i].mark())
	}
	require.EqualValues(t, 0, b.idx(0))
	require.EqualValues(t, 7, b.idx(^uint64(0)))
	require.EqualValues(t, 5, b.idx(splitHash(5, 3)))
	require.EqualValues(t, 4, b.idx(splitHash(5, 3)-1))

	// a bucket of order n covers the buckets growIdx and growToSplitIdx of order n+1; the second starts at the split hash.
	for idx := uint64(0); idx < 8; idx++ {
		require.Equal(t, splitHash(idx, 3), splitHash(growIdx(idx), 4))
		require.Equal(t, idx, shrinkIdx(growToSplitIdx(idx)))
		require.Equal(t, idx, shrinkIdx(growIdx(idx)))
	}
}

func TestSizeToOrder(t *testing.T) {
	for _, tc := range []struct {
		size     uint64
		minOrder uint8
		want     uint8
	}{
		{0, 7, 7},
		{1, 0, 0},
		{2, 0, 1},
		{3, 0, 2},
		{128, 7, 7},
		{129, 7, 8},
		{1000, 4, 10},
		{1 << MaxOrder, 0, MaxOrder},
	} {
		require.Equal(t, tc.want, sizeToOrder(tc.size, tc.minOrder), "size %d min %d", tc.size, tc.minOrder)
	}
}

func TestHasher(t *testing.T) {
	var h Hasher
	require.Equal(t, h.HashString("cht"), h.HashBytes([]byte("cht")))
	require.Equal(t, h.HashUint64(42), h.HashInt(42))
	require.NotEqual(t, h.HashInt(1), h.HashInt(2))

	seeded := Hasher(0x9e3779b97f4a7c15)
	require.Equal(t, seeded.HashString("cht"), seeded.HashBytes([]byte("cht")))
	require.NotEqual(t, h.HashString("cht"), seeded.HashString("cht"))

	// identity hashes end up spread over the top bits used for the bucket index.
	tops := map[uint64]bool{}
	for i := uint64(0); i < 64; i++ {
		tops[mix(i)>>60] = true
	}
	require.Greater(t, len(tops), 8)
}
