package collections

import (
	"math/bits"
	"sync/atomic"

	apperrors "github.com/graph-analytics/pkg/errors"
	"github.com/graph-analytics/pkg/huge"
)

func wordCount(size int64) int64 {
	return (size + 63) >> 6
}

// lastWordMask keeps the bits of the final word that lie below size.
func lastWordMask(size int64) uint64 {
	if rem := size & 63; rem != 0 {
		return (uint64(1) << rem) - 1
	}
	return ^uint64(0)
}

// ============================================================================
// HugeBitset - fixed-size paged bitset
// ============================================================================

// HugeBitset is a fixed-size bitset over a paged word array. It is not safe
// for concurrent writes.
type HugeBitset struct {
	words *huge.Array[uint64]
	size  int64
}

// NewHugeBitset creates a cleared bitset of size bits.
func NewHugeBitset(size int64) *HugeBitset {
	return &HugeBitset{words: huge.NewArray[uint64](wordCount(size)), size: size}
}

func (b *HugeBitset) check(index int64) {
	if uint64(index) >= uint64(b.size) {
		panic(apperrors.IndexOutOfRange(index, b.size))
	}
}

// Size returns the number of addressable bits.
func (b *HugeBitset) Size() int64 {
	return b.size
}

// Set sets the bit at index.
func (b *HugeBitset) Set(index int64) {
	b.check(index)
	*b.words.At(index >> 6) |= 1 << (index & 63)
}

// Clear clears the bit at index.
func (b *HugeBitset) Clear(index int64) {
	b.check(index)
	*b.words.At(index >> 6) &^= 1 << (index & 63)
}

// Get reports whether the bit at index is set.
func (b *HugeBitset) Get(index int64) bool {
	b.check(index)
	return b.words.Get(index>>6)&(1<<(index&63)) != 0
}

// GetAndSet sets the bit at index and returns its previous state.
func (b *HugeBitset) GetAndSet(index int64) bool {
	b.check(index)
	w := b.words.At(index >> 6)
	mask := uint64(1) << (index & 63)
	was := *w&mask != 0
	*w |= mask
	return was
}

// ClearAll clears every bit.
func (b *HugeBitset) ClearAll() {
	b.words.Fill(0)
}

// SetAll sets every bit below Size.
func (b *HugeBitset) SetAll() {
	n := b.words.Size()
	if n == 0 {
		return
	}
	b.words.Fill(^uint64(0))
	b.words.Set(n-1, lastWordMask(b.size))
}

// Cardinality returns the number of set bits.
func (b *HugeBitset) Cardinality() int64 {
	var count int64
	c := b.words.NewCursor()
	for c.Next() {
		for _, w := range c.Array[c.Offset:c.Limit] {
			count += int64(bits.OnesCount64(w))
		}
	}
	return count
}

// IsEmpty reports whether no bit is set.
func (b *HugeBitset) IsEmpty() bool {
	c := b.words.NewCursor()
	for c.Next() {
		for _, w := range c.Array[c.Offset:c.Limit] {
			if w != 0 {
				return false
			}
		}
	}
	return true
}

// NextSetBit returns the first set index >= from, or -1.
func (b *HugeBitset) NextSetBit(from int64) int64 {
	return nextSetBit(b.words.Size(), func(i int64) uint64 { return b.words.Get(i) }, from)
}

// Iterate calls fn for each set bit in ascending order until fn returns
// false.
func (b *HugeBitset) Iterate(fn func(index int64) bool) {
	c := b.words.NewCursor()
	for c.Next() {
		for i := c.Offset; i < c.Limit; i++ {
			word := c.Array[i]
			base := (c.Base + int64(i)) << 6
			for word != 0 {
				if !fn(base + int64(bits.TrailingZeros64(word))) {
					return
				}
				word &= word - 1
			}
		}
	}
}

// SizeOf returns the bytes held by the word pages.
func (b *HugeBitset) SizeOf() int64 {
	return b.words.SizeOf()
}

// Release drops the backing words and returns the bytes freed.
func (b *HugeBitset) Release() int64 {
	b.size = 0
	return b.words.Release()
}

func nextSetBit(numWords int64, word func(int64) uint64, from int64) int64 {
	if from < 0 {
		from = 0
	}
	w := from >> 6
	if w >= numWords {
		return -1
	}
	current := word(w) & (^uint64(0) << (from & 63))
	for {
		if current != 0 {
			return w<<6 + int64(bits.TrailingZeros64(current))
		}
		w++
		if w >= numWords {
			return -1
		}
		current = word(w)
	}
}

// ============================================================================
// AtomicHugeBitset - fixed-size paged bitset with lock-free set
// ============================================================================

// AtomicHugeBitset is a fixed-size paged bitset whose Set, Clear and
// GetAndSet are atomic. Concurrent sets of the same bit are idempotent.
type AtomicHugeBitset struct {
	words *huge.Array[uint64]
	size  int64
}

// NewAtomicHugeBitset creates a cleared bitset of size bits.
func NewAtomicHugeBitset(size int64) *AtomicHugeBitset {
	return &AtomicHugeBitset{words: huge.NewArray[uint64](wordCount(size)), size: size}
}

func (b *AtomicHugeBitset) word(index int64) *uint64 {
	if uint64(index) >= uint64(b.size) {
		panic(apperrors.IndexOutOfRange(index, b.size))
	}
	return b.words.At(index >> 6)
}

// Size returns the number of addressable bits.
func (b *AtomicHugeBitset) Size() int64 {
	return b.size
}

// Set atomically sets the bit at index.
func (b *AtomicHugeBitset) Set(index int64) {
	atomic.OrUint64(b.word(index), 1<<(index&63))
}

// Clear atomically clears the bit at index.
func (b *AtomicHugeBitset) Clear(index int64) {
	atomic.AndUint64(b.word(index), ^(uint64(1) << (index & 63)))
}

// Get atomically reads the bit at index.
func (b *AtomicHugeBitset) Get(index int64) bool {
	return atomic.LoadUint64(b.word(index))&(1<<(index&63)) != 0
}

// GetAndSet atomically sets the bit at index and returns its previous state.
func (b *AtomicHugeBitset) GetAndSet(index int64) bool {
	mask := uint64(1) << (index & 63)
	return atomic.OrUint64(b.word(index), mask)&mask != 0
}

// ClearAll clears every bit. It must not race with writers.
func (b *AtomicHugeBitset) ClearAll() {
	b.words.Fill(0)
}

// SetAll sets every bit below Size. It must not race with writers.
func (b *AtomicHugeBitset) SetAll() {
	n := b.words.Size()
	if n == 0 {
		return
	}
	b.words.Fill(^uint64(0))
	b.words.Set(n-1, lastWordMask(b.size))
}

// Cardinality returns the number of set bits.
func (b *AtomicHugeBitset) Cardinality() int64 {
	var count int64
	c := b.words.NewCursor()
	for c.Next() {
		for i := c.Offset; i < c.Limit; i++ {
			count += int64(bits.OnesCount64(atomic.LoadUint64(&c.Array[i])))
		}
	}
	return count
}

// IsEmpty reports whether no bit is set.
func (b *AtomicHugeBitset) IsEmpty() bool {
	c := b.words.NewCursor()
	for c.Next() {
		for i := c.Offset; i < c.Limit; i++ {
			if atomic.LoadUint64(&c.Array[i]) != 0 {
				return false
			}
		}
	}
	return true
}

// NextSetBit returns the first set index >= from, or -1.
func (b *AtomicHugeBitset) NextSetBit(from int64) int64 {
	return nextSetBit(b.words.Size(), func(i int64) uint64 { return atomic.LoadUint64(b.words.At(i)) }, from)
}

// Iterate calls fn for each set bit in ascending order until fn returns
// false.
func (b *AtomicHugeBitset) Iterate(fn func(index int64) bool) {
	c := b.words.NewCursor()
	for c.Next() {
		for i := c.Offset; i < c.Limit; i++ {
			word := atomic.LoadUint64(&c.Array[i])
			base := (c.Base + int64(i)) << 6
			for word != 0 {
				if !fn(base + int64(bits.TrailingZeros64(word))) {
					return
				}
				word &= word - 1
			}
		}
	}
}

// SizeOf returns the bytes held by the word pages.
func (b *AtomicHugeBitset) SizeOf() int64 {
	return b.words.SizeOf()
}

// Release drops the backing words and returns the bytes freed.
func (b *AtomicHugeBitset) Release() int64 {
	b.size = 0
	return b.words.Release()
}
