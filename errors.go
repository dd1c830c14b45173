package cht

import "github.com/pkg/errors"

var (
	// ErrOutOfMemory is returned by New when the requested bucket array exceeds 2^MaxOrder heads.
	ErrOutOfMemory = errors.New("cht: bucket array too large")
	// ErrMissingOp is returned by New when one of the Ops callbacks is nil.
	ErrMissingOp = errors.New("cht: missing table operation")
	// ErrInvalidConfig is returned for a minimum size or load factor the table cannot work with.
	ErrInvalidConfig = errors.New("cht: invalid configuration")
	// ErrCorrupted is returned by Check when the table violates one of its structural invariants.
	ErrCorrupted = errors.New("cht: corrupted table")
)
