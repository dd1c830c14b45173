package cht

import (
	"encoding/binary"
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

// mix spreads a user hash over all 64 bits. Bucket indices are taken from the top bits, so weak user hashes such as the identity must be mixed.
func mix(h uint64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], h)
	return xxhash.Sum64(b[:])
}

// Hasher is a seed for building Ops.Hash and Ops.KeyHash. The zero Hasher is unseeded. The receivers are thread-safe.
type Hasher uint64

// HashBytes hashes the given byte slice.
func (u Hasher) HashBytes(b []byte) uint64 {
	if u == 0 {
		return xxhash.Sum64(b)
	}
	d := xxhash.NewWithSeed(uint64(u))
	_, _ = d.Write(b)
	return d.Sum64()
}

// HashString directly hashes a string without copying it.
func (u Hasher) HashString(s string) uint64 {
	if u == 0 {
		return xxhash.Sum64String(s)
	}
	return u.HashBytes(unsafe.Slice(unsafe.StringData(s), len(s)))
}

// HashUint64 hashes v. Use it for integer keys.
func (u Hasher) HashUint64(v uint64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return u.HashBytes(b[:])
}

// HashInt hashes v.
func (u Hasher) HashInt(v int) uint64 {
	return u.HashUint64(uint64(v))
}
