package core

import "sync/atomic"

// IDAllocator hands out process-unique, monotonically increasing ids.
// Ids start at 1; zero is reserved to mean "none".
type IDAllocator struct {
	last atomic.Int64
}

// NewIDAllocator returns an allocator whose first id is 1.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// Next returns the next id. Safe for concurrent use.
func (a *IDAllocator) Next() int64 {
	return a.last.Add(1)
}
