// Package huge provides paged arrays addressed by 64-bit indexes.
//
// An Array never allocates more than PageSize elements in one slice, so node
// counts beyond a single allocation's practical limit are held as an ordered
// list of pages. Index i lives in page i>>PageShift at offset i&PageMask.
package huge

import (
	"unsafe"

	"golang.org/x/exp/constraints"

	apperrors "github.com/graph-analytics/pkg/errors"
)

const (
	// PageShift is log2 of the number of elements per page.
	PageShift = 14
	// PageSize is the number of elements per page.
	PageSize = 1 << PageShift
	// PageMask extracts the in-page offset from an index.
	PageMask = PageSize - 1

	// MaxSize is the largest element count an Array accepts.
	MaxSize int64 = 1 << 46

	sliceHeaderBytes = int64(unsafe.Sizeof([]byte(nil)))
)

// Number is the set of element types the arithmetic helpers accept.
type Number interface {
	constraints.Integer | constraints.Float
}

// PageCount returns ceil(size / PageSize).
func PageCount(size int64) int64 {
	return (size + PageMask) >> PageShift
}

func pageIndex(index int64) int64 {
	return index >> PageShift
}

func indexInPage(index int64) int64 {
	return index & PageMask
}

func checkSize(size int64) {
	if size < 0 || size > MaxSize {
		panic(apperrors.CapacityExceeded("huge array size", size, MaxSize))
	}
}

// allocatePages returns pages covering size elements. Only the last page is
// shorter than PageSize.
func allocatePages[T any](size int64) [][]T {
	checkSize(size)
	n := PageCount(size)
	pages := make([][]T, n)
	for p := int64(0); p < n; p++ {
		length := int64(PageSize)
		if p == n-1 {
			length = size - p<<PageShift
		}
		pages[p] = make([]T, length)
	}
	return pages
}

// MemoryEstimation returns the bytes an array of size elements of
// elementBytes each would hold, including page headers.
func MemoryEstimation(size int64, elementBytes int64) int64 {
	checkSize(size)
	return PageCount(size)*sliceHeaderBytes + size*elementBytes
}

// ============================================================================
// Array
// ============================================================================

// Array is a fixed-size paged array. It is not safe for concurrent writes to
// the same index; disjoint ranges may be written concurrently.
type Array[T any] struct {
	pages [][]T
	size  int64
}

// LongArray holds int64 values such as node ids and labels.
type LongArray = Array[int64]

// DoubleArray holds float64 values such as costs and weights.
type DoubleArray = Array[float64]

// IntArray holds int32 values.
type IntArray = Array[int32]

// NewArray allocates a zeroed array. It panics with CAPACITY_EXCEEDED when
// size is negative or larger than MaxSize.
func NewArray[T any](size int64) *Array[T] {
	return &Array[T]{pages: allocatePages[T](size), size: size}
}

// NewLongArray allocates a zeroed LongArray.
func NewLongArray(size int64) *LongArray {
	return NewArray[int64](size)
}

// NewDoubleArray allocates a zeroed DoubleArray.
func NewDoubleArray(size int64) *DoubleArray {
	return NewArray[float64](size)
}

// NewIntArray allocates a zeroed IntArray.
func NewIntArray(size int64) *IntArray {
	return NewArray[int32](size)
}

// Of builds an array holding values.
func Of[T any](values ...T) *Array[T] {
	a := NewArray[T](int64(len(values)))
	for i, v := range values {
		a.Set(int64(i), v)
	}
	return a
}

func (a *Array[T]) check(index int64) {
	if uint64(index) >= uint64(a.size) {
		panic(apperrors.IndexOutOfRange(index, a.size))
	}
}

// Size returns the number of elements.
func (a *Array[T]) Size() int64 {
	return a.size
}

// Get returns the element at index.
func (a *Array[T]) Get(index int64) T {
	a.check(index)
	return a.pages[pageIndex(index)][indexInPage(index)]
}

// Set stores value at index.
func (a *Array[T]) Set(index int64, value T) {
	a.check(index)
	a.pages[pageIndex(index)][indexInPage(index)] = value
}

// At returns a pointer to the element at index. The pointer is valid until
// the array is released.
func (a *Array[T]) At(index int64) *T {
	a.check(index)
	return &a.pages[pageIndex(index)][indexInPage(index)]
}

// Fill sets every element to value.
func (a *Array[T]) Fill(value T) {
	for _, page := range a.pages {
		for i := range page {
			page[i] = value
		}
	}
}

// SetAll sets every element to gen(index).
func (a *Array[T]) SetAll(gen func(index int64) T) {
	for p, page := range a.pages {
		base := int64(p) << PageShift
		for i := range page {
			page[i] = gen(base + int64(i))
		}
	}
}

// CopyOf returns a new array of newSize holding the first
// min(Size, newSize) elements of a; the tail is zeroed.
func (a *Array[T]) CopyOf(newSize int64) *Array[T] {
	dst := NewArray[T](newSize)
	copyRange(dst.pages, a.pages, min(a.size, newSize))
	return dst
}

// CopyTo copies the first length elements into dst and zeroes the rest of
// dst. length is clamped to both sizes.
func (a *Array[T]) CopyTo(dst *Array[T], length int64) {
	length = min(length, a.size, dst.size)
	copyRange(dst.pages, a.pages, length)
	var zero T
	for i := length; i < dst.size; {
		page := dst.pages[pageIndex(i)]
		off := indexInPage(i)
		for j := off; j < int64(len(page)); j++ {
			page[j] = zero
		}
		i += int64(len(page)) - off
	}
}

func copyRange[T any](dst, src [][]T, length int64) {
	for i := int64(0); i < length; {
		p, off := pageIndex(i), indexInPage(i)
		chunk := min(PageSize-off, length-i)
		copy(dst[p][off:off+chunk], src[p][off:off+chunk])
		i += chunk
	}
}

// SizeOf returns the bytes currently held by the pages.
func (a *Array[T]) SizeOf() int64 {
	var zero T
	elem := int64(unsafe.Sizeof(zero))
	var total int64
	for _, page := range a.pages {
		total += sliceHeaderBytes + int64(cap(page))*elem
	}
	return total
}

// Release drops the pages and returns the bytes freed. Further access
// fails as out of range.
func (a *Array[T]) Release() int64 {
	freed := a.SizeOf()
	a.pages = nil
	a.size = 0
	return freed
}

// ToSlice copies the array into a native slice. Intended for small arrays
// and tests.
func (a *Array[T]) ToSlice() []T {
	out := make([]T, 0, a.size)
	for _, page := range a.pages {
		out = append(out, page...)
	}
	return out
}

// ============================================================================
// Numeric helpers
// ============================================================================

// AddTo adds delta to the element at index.
func AddTo[T Number](a *Array[T], index int64, delta T) {
	*a.At(index) += delta
}

// Or sets the bits of mask in the element at index.
func Or(a *LongArray, index int64, mask int64) {
	*a.At(index) |= mask
}

// And keeps only the bits of mask in the element at index.
func And(a *LongArray, index int64, mask int64) {
	*a.At(index) &= mask
}

// BinarySearch returns the largest index i with a[i] <= x in an ascending
// array, or -1 when x is smaller than every element.
func BinarySearch[T constraints.Ordered](a *Array[T], x T) int64 {
	lo, hi := int64(0), a.size-1
	for lo <= hi {
		mid := int64(uint64(lo+hi) >> 1)
		if a.Get(mid) <= x {
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return lo - 1
}
