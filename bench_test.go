package cht

import (
	"sync/atomic"
	"testing"

	"github.com/alphadose/haxmap"
	"github.com/cornelk/hashmap"
)

const benchmarkItemCount = 1024

// compares with https://github.com/cornelk/hashmap and https://github.com/alphadose/haxmap on the read benchmarks of the former.
// Neither of them defers the reuse of removed entries, so the write benchmarks compare different guarantees.
func setupCHT(b *testing.B) *Table[int, *entry] {
	b.Helper()
	tb := newTestTable(b, benchmarkItemCount, entryOps())
	insertRange(tb, 0, benchmarkItemCount)
	tb.Barrier()
	return tb
}

func setupHashMap(b *testing.B) *hashmap.Map[int, int] {
	b.Helper()
	m := hashmap.New[int, int]()
	for i := 0; i < benchmarkItemCount; i++ {
		m.Set(i, i)
	}
	return m
}

func setupHaxMap(b *testing.B) *haxmap.Map[int, int] {
	b.Helper()
	m := haxmap.New[int, int]()
	for i := 0; i < benchmarkItemCount; i++ {
		m.Set(i, i)
	}
	return m
}

func BenchmarkReadCHT(b *testing.B) {
	tb := setupCHT(b)
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			for i := 0; i < benchmarkItemCount; i++ {
				if e := tb.Find(i); e == nil || e.key != i {
					b.Fail()
				}
			}
		}
	})
}

func BenchmarkReadCHTLazy(b *testing.B) {
	tb := setupCHT(b)
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			r := tb.ReadLock()
			for i := 0; i < benchmarkItemCount; i++ {
				if e := tb.FindLazy(i); e == nil || e.key != i {
					b.Fail()
				}
			}
			r.Unlock()
		}
	})
}

func BenchmarkReadHashMap(b *testing.B) {
	m := setupHashMap(b)
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			for i := 0; i < benchmarkItemCount; i++ {
				if j, _ := m.Get(i); j != i {
					b.Fail()
				}
			}
		}
	})
}

func BenchmarkReadHaxMap(b *testing.B) {
	m := setupHaxMap(b)
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			for i := 0; i < benchmarkItemCount; i++ {
				if j, _ := m.Get(i); j != i {
					b.Fail()
				}
			}
		}
	})
}

func BenchmarkReadCHTWithWrites(b *testing.B) {
	tb := setupCHT(b)
	var writer atomic.Bool
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		// use 1 goroutine as writer; it replaces every item with an equal one.
		if writer.CompareAndSwap(false, true) {
			for pb.Next() {
				for i := 0; i < benchmarkItemCount; i++ {
					tb.Insert(&entry{key: i})
					tb.RemoveItem(tb.Find(i))
				}
			}
		} else {
			for pb.Next() {
				for i := 0; i < benchmarkItemCount; i++ {
					if e := tb.Find(i); e == nil || e.key != i {
						b.Fail()
					}
				}
			}
		}
	})
}

func BenchmarkReadHashMapWithWrites(b *testing.B) {
	m := setupHashMap(b)
	var writer atomic.Bool
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		if writer.CompareAndSwap(false, true) {
			for pb.Next() {
				for i := 0; i < benchmarkItemCount; i++ {
					m.Set(i, i)
				}
			}
		} else {
			for pb.Next() {
				for i := 0; i < benchmarkItemCount; i++ {
					if j, _ := m.Get(i); j != i {
						b.Fail()
					}
				}
			}
		}
	})
}

func BenchmarkReadHaxMapWithWrites(b *testing.B) {
	m := setupHaxMap(b)
	var writer atomic.Bool
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		if writer.CompareAndSwap(false, true) {
			for pb.Next() {
				for i := 0; i < benchmarkItemCount; i++ {
					m.Set(i, i)
				}
			}
		} else {
			for pb.Next() {
				for i := 0; i < benchmarkItemCount; i++ {
					if j, _ := m.Get(i); j != i {
						b.Fail()
					}
				}
			}
		}
	})
}

func BenchmarkWriteCHT(b *testing.B) {
	tb := newTestTable(b, 0, entryOps())
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		for i := 0; i < benchmarkItemCount; i++ {
			tb.Insert(&entry{key: i})
		}
		for i := 0; i < benchmarkItemCount; i++ {
			tb.RemoveKey(i)
		}
	}
}

func BenchmarkWriteHashMap(b *testing.B) {
	m := hashmap.New[int, int]()
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		for i := 0; i < benchmarkItemCount; i++ {
			m.Set(i, i)
		}
		for i := 0; i < benchmarkItemCount; i++ {
			m.Del(i)
		}
	}
}

func BenchmarkWriteHaxMap(b *testing.B) {
	m := haxmap.New[int, int]()
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		for i := 0; i < benchmarkItemCount; i++ {
			m.Set(i, i)
		}
		for i := 0; i < benchmarkItemCount; i++ {
			m.Del(i)
		}
	}
}
