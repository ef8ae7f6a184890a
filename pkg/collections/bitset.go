// Package collections provides bitsets and small tallies used by per-node
// algorithm steps.
package collections

import (
	"math/bits"
)

// ============================================================================
// Bitset - growable scratch bitset
// ============================================================================

// Bitset is a small growable bitset owned by a single goroutine. It tracks
// the range of words written since the last Reset so that clearing a sparse
// scratch set costs only the words it touched.
type Bitset struct {
	bits []uint64
	size int

	// dirty word range [lo, hi); empty when lo >= hi
	lo, hi int
}

// NewBitset creates a new bitset with the given size.
func NewBitset(size int) *Bitset {
	if size <= 0 {
		size = 64
	}
	b := &Bitset{
		bits: make([]uint64, (size+63)/64),
		size: size,
	}
	b.lo = len(b.bits)
	return b
}

// Set sets the bit at index i, growing the bitset when needed.
func (b *Bitset) Set(i int) {
	if i < 0 {
		return
	}
	w := i / 64
	if w >= len(b.bits) {
		b.grow(i + 1)
	}
	b.bits[w] |= 1 << (i % 64)
	if i >= b.size {
		b.size = i + 1
	}
	if w < b.lo {
		b.lo = w
	}
	if w+1 > b.hi {
		b.hi = w + 1
	}
}

// Clear clears the bit at index i.
func (b *Bitset) Clear(i int) {
	if i < 0 || i/64 >= len(b.bits) {
		return
	}
	b.bits[i/64] &^= 1 << (i % 64)
}

// Test returns true if the bit at index i is set.
func (b *Bitset) Test(i int) bool {
	if i < 0 || i/64 >= len(b.bits) {
		return false
	}
	return b.bits[i/64]&(1<<(i%64)) != 0
}

// Reset clears every bit set since the previous Reset without reallocating.
func (b *Bitset) Reset() {
	for w := b.lo; w < b.hi; w++ {
		b.bits[w] = 0
	}
	b.lo, b.hi = len(b.bits), 0
}

// ClearAll clears all bits to 0.
func (b *Bitset) ClearAll() {
	clear(b.bits)
	b.lo, b.hi = len(b.bits), 0
}

// NextClearBit returns the first index >= from whose bit is not set.
func (b *Bitset) NextClearBit(from int) int {
	if from < 0 {
		from = 0
	}
	w := from / 64
	if w >= len(b.bits) {
		return from
	}
	word := ^b.bits[w] & (^uint64(0) << (from % 64))
	for {
		if word != 0 {
			return w*64 + bits.TrailingZeros64(word)
		}
		w++
		if w == len(b.bits) {
			return w * 64
		}
		word = ^b.bits[w]
	}
}

// Count returns the number of set bits.
func (b *Bitset) Count() int {
	count := 0
	for _, word := range b.bits {
		count += bits.OnesCount64(word)
	}
	return count
}

// Size returns the size of the bitset.
func (b *Bitset) Size() int {
	return b.size
}

// grow expands the bitset to accommodate at least newSize elements.
func (b *Bitset) grow(newSize int) {
	numWords := (newSize + 63) / 64
	if numWords <= len(b.bits) {
		return
	}
	newCap := len(b.bits) * 2
	if newCap < numWords {
		newCap = numWords
	}
	newBits := make([]uint64, newCap)
	copy(newBits, b.bits)
	b.bits = newBits
}

// Iterate calls fn for each set bit index in ascending order until fn
// returns false.
func (b *Bitset) Iterate(fn func(i int) bool) {
	for wordIdx, word := range b.bits {
		base := wordIdx * 64
		for word != 0 {
			if !fn(base + bits.TrailingZeros64(word)) {
				return
			}
			word &= word - 1
		}
	}
}

// ToSlice returns a slice of all set bit indices.
func (b *Bitset) ToSlice() []int {
	result := make([]int, 0, b.Count())
	b.Iterate(func(i int) bool {
		result = append(result, i)
		return true
	})
	return result
}
