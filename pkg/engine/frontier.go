package engine

import (
	"github.com/graph-analytics/pkg/collections"
)

// Frontier is the pair of node sets processed in the current iteration and
// activated for the next one. SetNext may be called concurrently; every
// other method must not race with it.
type Frontier struct {
	current *collections.AtomicHugeBitset
	next    *collections.AtomicHugeBitset
	size    int64
}

// NewFrontier creates a frontier over size nodes. With allActive every node
// is active in the first iteration, otherwise none is until Activate.
func NewFrontier(size int64, allActive bool) *Frontier {
	f := &Frontier{
		current: collections.NewAtomicHugeBitset(size),
		next:    collections.NewAtomicHugeBitset(size),
		size:    size,
	}
	if allActive {
		f.current.SetAll()
	}
	return f
}

// Size returns the number of nodes.
func (f *Frontier) Size() int64 {
	return f.size
}

// SetNext marks node for the next iteration. Setting a node twice is a no-op.
func (f *Frontier) SetNext(node int64) {
	f.next.Set(node)
}

// IsNext reports whether node is already marked for the next iteration.
func (f *Frontier) IsNext(node int64) bool {
	return f.next.Get(node)
}

// Activate marks node active in the current iteration.
func (f *Frontier) Activate(node int64) {
	f.current.Set(node)
}

// IsActive reports whether node is active in the current iteration.
func (f *Frontier) IsActive(node int64) bool {
	return f.current.Get(node)
}

// Swap makes next the current set and clears the new next set.
func (f *Frontier) Swap() {
	f.current, f.next = f.next, f.current
	f.next.ClearAll()
}

// AnyActive reports whether the current set is non-empty.
func (f *Frontier) AnyActive() bool {
	return !f.current.IsEmpty()
}

// ActiveCount returns the size of the current set.
func (f *Frontier) ActiveCount() int64 {
	return f.current.Cardinality()
}

// SizeOf returns the bytes held by both sets.
func (f *Frontier) SizeOf() int64 {
	return f.current.SizeOf() + f.next.SizeOf()
}

// Release drops both sets and returns the bytes freed.
func (f *Frontier) Release() int64 {
	return f.current.Release() + f.next.Release()
}
