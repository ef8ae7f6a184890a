package collections

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/graph-analytics/pkg/errors"
	"github.com/graph-analytics/pkg/huge"
)

func TestHugeBitset_SetGetClear(t *testing.T) {
	size := int64(huge.PageSize*64 + 100)
	b := NewHugeBitset(size)

	for _, idx := range []int64{0, 63, 64, huge.PageSize * 64, size - 1} {
		b.Set(idx)
		assert.True(t, b.Get(idx), "bit %d", idx)
	}
	assert.Equal(t, int64(5), b.Cardinality())
	assert.False(t, b.Get(1))

	b.Clear(64)
	assert.False(t, b.Get(64))
	assert.Equal(t, int64(4), b.Cardinality())

	assert.False(t, b.GetAndSet(2))
	assert.True(t, b.GetAndSet(2))
}

func TestHugeBitset_OutOfRange(t *testing.T) {
	b := NewHugeBitset(10)
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(*apperrors.AppError)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeIndexOutOfRange, err.Code)
	}()
	b.Set(10)
}

func TestHugeBitset_SetAllRespectsSize(t *testing.T) {
	b := NewHugeBitset(70)
	b.SetAll()
	assert.Equal(t, int64(70), b.Cardinality())
	assert.False(t, b.IsEmpty())

	b.ClearAll()
	assert.True(t, b.IsEmpty())
	assert.Equal(t, int64(-1), b.NextSetBit(0))
}

func TestHugeBitset_NextSetBitAndIterate(t *testing.T) {
	b := NewHugeBitset(1000)
	for _, idx := range []int64{3, 64, 65, 999} {
		b.Set(idx)
	}

	assert.Equal(t, int64(3), b.NextSetBit(0))
	assert.Equal(t, int64(64), b.NextSetBit(4))
	assert.Equal(t, int64(65), b.NextSetBit(65))
	assert.Equal(t, int64(999), b.NextSetBit(66))
	assert.Equal(t, int64(-1), b.NextSetBit(1000))

	var got []int64
	b.Iterate(func(i int64) bool {
		got = append(got, i)
		return true
	})
	assert.Equal(t, []int64{3, 64, 65, 999}, got)
}

func TestHugeBitset_Release(t *testing.T) {
	b := NewHugeBitset(128)
	assert.Equal(t, huge.MemoryEstimation(2, 8), b.Release())
	assert.Equal(t, int64(0), b.Size())
}

func TestAtomicHugeBitset_ConcurrentSetIsIdempotent(t *testing.T) {
	b := NewAtomicHugeBitset(4096)

	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := int64(0); i < 4096; i += 3 {
				b.Set(i)
			}
		}()
	}
	wg.Wait()

	single := NewAtomicHugeBitset(4096)
	for i := int64(0); i < 4096; i += 3 {
		single.Set(i)
	}

	assert.Equal(t, single.Cardinality(), b.Cardinality())
	for i := int64(0); i < 4096; i++ {
		require.Equal(t, single.Get(i), b.Get(i), "bit %d", i)
	}
}

func TestAtomicHugeBitset_GetAndSetSingleWinner(t *testing.T) {
	b := NewAtomicHugeBitset(64)

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for w := 0; w < 32; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !b.GetAndSet(17) {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.True(t, b.Get(17))
}

func TestAtomicHugeBitset_ClearSetAll(t *testing.T) {
	b := NewAtomicHugeBitset(130)
	assert.True(t, b.IsEmpty())

	b.SetAll()
	assert.Equal(t, int64(130), b.Cardinality())

	b.Clear(0)
	assert.Equal(t, int64(1), b.NextSetBit(0))

	count := 0
	b.Iterate(func(int64) bool {
		count++
		return count < 10
	})
	assert.Equal(t, 10, count)

	b.ClearAll()
	assert.True(t, b.IsEmpty())
}
