package huge

import (
	"math"
	"sync/atomic"

	apperrors "github.com/graph-analytics/pkg/errors"
)

func errRange(start, end, size int64) *apperrors.AppError {
	return apperrors.Newf(apperrors.CodeIndexOutOfRange, "range [%d, %d) not within [0, %d)", start, end, size)
}

// ============================================================================
// AtomicLongArray
// ============================================================================

// AtomicLongArray is a paged int64 array whose elements are read and written
// atomically. Use it for per-node state that steps of one partition read
// while another partition writes it.
type AtomicLongArray struct {
	pages [][]int64
	size  int64
}

// NewAtomicLongArray allocates a zeroed array.
func NewAtomicLongArray(size int64) *AtomicLongArray {
	return &AtomicLongArray{pages: allocatePages[int64](size), size: size}
}

func (a *AtomicLongArray) slot(index int64) *int64 {
	if uint64(index) >= uint64(a.size) {
		panic(apperrors.IndexOutOfRange(index, a.size))
	}
	return &a.pages[pageIndex(index)][indexInPage(index)]
}

// Size returns the number of elements.
func (a *AtomicLongArray) Size() int64 {
	return a.size
}

// Get atomically loads the element at index.
func (a *AtomicLongArray) Get(index int64) int64 {
	return atomic.LoadInt64(a.slot(index))
}

// Set atomically stores value at index.
func (a *AtomicLongArray) Set(index int64, value int64) {
	atomic.StoreInt64(a.slot(index), value)
}

// CompareAndSwap sets index to value if it currently holds expected.
func (a *AtomicLongArray) CompareAndSwap(index int64, expected, value int64) bool {
	return atomic.CompareAndSwapInt64(a.slot(index), expected, value)
}

// GetAndAdd adds delta and returns the previous value.
func (a *AtomicLongArray) GetAndAdd(index int64, delta int64) int64 {
	return atomic.AddInt64(a.slot(index), delta) - delta
}

// Fill atomically stores value in every element.
func (a *AtomicLongArray) Fill(value int64) {
	for _, page := range a.pages {
		for i := range page {
			atomic.StoreInt64(&page[i], value)
		}
	}
}

// SetAll stores gen(index) in every element.
func (a *AtomicLongArray) SetAll(gen func(index int64) int64) {
	for p, page := range a.pages {
		base := int64(p) << PageShift
		for i := range page {
			atomic.StoreInt64(&page[i], gen(base+int64(i)))
		}
	}
}

// Snapshot copies the current values into a LongArray.
func (a *AtomicLongArray) Snapshot() *LongArray {
	out := NewLongArray(a.size)
	for p, page := range a.pages {
		dst := out.pages[p]
		for i := range page {
			dst[i] = atomic.LoadInt64(&page[i])
		}
	}
	return out
}

// SizeOf returns the bytes held by the pages.
func (a *AtomicLongArray) SizeOf() int64 {
	return MemoryEstimation(a.size, 8)
}

// Release drops the pages and returns the bytes freed.
func (a *AtomicLongArray) Release() int64 {
	freed := a.SizeOf()
	a.pages = nil
	a.size = 0
	return freed
}

// ============================================================================
// AtomicDoubleArray
// ============================================================================

// AtomicDoubleArray is a paged float64 array with atomic element access.
// Values are stored as their IEEE-754 bits.
type AtomicDoubleArray struct {
	pages [][]uint64
	size  int64
}

// NewAtomicDoubleArray allocates an array of zeros.
func NewAtomicDoubleArray(size int64) *AtomicDoubleArray {
	return &AtomicDoubleArray{pages: allocatePages[uint64](size), size: size}
}

func (a *AtomicDoubleArray) slot(index int64) *uint64 {
	if uint64(index) >= uint64(a.size) {
		panic(apperrors.IndexOutOfRange(index, a.size))
	}
	return &a.pages[pageIndex(index)][indexInPage(index)]
}

// Size returns the number of elements.
func (a *AtomicDoubleArray) Size() int64 {
	return a.size
}

// Get atomically loads the element at index.
func (a *AtomicDoubleArray) Get(index int64) float64 {
	return math.Float64frombits(atomic.LoadUint64(a.slot(index)))
}

// Set atomically stores value at index.
func (a *AtomicDoubleArray) Set(index int64, value float64) {
	atomic.StoreUint64(a.slot(index), math.Float64bits(value))
}

// Add atomically adds delta and returns the new value.
func (a *AtomicDoubleArray) Add(index int64, delta float64) float64 {
	p := a.slot(index)
	for {
		old := atomic.LoadUint64(p)
		next := math.Float64frombits(old) + delta
		if atomic.CompareAndSwapUint64(p, old, math.Float64bits(next)) {
			return next
		}
	}
}

// SizeOf returns the bytes held by the pages.
func (a *AtomicDoubleArray) SizeOf() int64 {
	return MemoryEstimation(a.size, 8)
}

// Release drops the pages and returns the bytes freed.
func (a *AtomicDoubleArray) Release() int64 {
	freed := a.SizeOf()
	a.pages = nil
	a.size = 0
	return freed
}
