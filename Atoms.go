package cht

import (
	"go.uber.org/atomic"
	"golang.org/x/sys/cpu"
)

// counter is an atomic int64 on its own cache line. Every insert and remove touches the item count, so it must not share a line with the read-mostly table fields.
type counter struct {
	_ cpu.CacheLinePad
	atomic.Int64
	_ cpu.CacheLinePad
}
