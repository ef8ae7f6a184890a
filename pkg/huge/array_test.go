package huge

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/graph-analytics/pkg/errors"
)

func TestPageCount(t *testing.T) {
	tests := []struct {
		size     int64
		expected int64
	}{
		{0, 0},
		{1, 1},
		{PageSize - 1, 1},
		{PageSize, 1},
		{PageSize + 1, 2},
		{3*PageSize + 7, 4},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, PageCount(tt.size), "size %d", tt.size)
	}
}

func TestArray_GetSetAcrossPages(t *testing.T) {
	size := int64(2*PageSize + 10)
	arr := NewLongArray(size)
	require.Equal(t, size, arr.Size())
	require.Len(t, arr.pages, 3)
	assert.Len(t, arr.pages[2], 10)

	for _, idx := range []int64{0, PageSize - 1, PageSize, 2 * PageSize, size - 1} {
		arr.Set(idx, idx*3)
	}
	for _, idx := range []int64{0, PageSize - 1, PageSize, 2 * PageSize, size - 1} {
		assert.Equal(t, idx*3, arr.Get(idx))
	}
	assert.Equal(t, int64(0), arr.Get(5))
}

func TestArray_OutOfRangePanics(t *testing.T) {
	arr := NewDoubleArray(10)

	assertAppPanic(t, apperrors.CodeIndexOutOfRange, func() { arr.Get(10) })
	assertAppPanic(t, apperrors.CodeIndexOutOfRange, func() { arr.Set(-1, 1) })
	assertAppPanic(t, apperrors.CodeIndexOutOfRange, func() { arr.At(100) })
}

func TestNewArray_InvalidSize(t *testing.T) {
	assertAppPanic(t, apperrors.CodeCapacityExceeded, func() { NewLongArray(-1) })
	assertAppPanic(t, apperrors.CodeCapacityExceeded, func() { NewLongArray(MaxSize + 1) })
}

func TestArray_FillAndSetAll(t *testing.T) {
	arr := NewLongArray(PageSize + 3)
	arr.Fill(-1)
	assert.Equal(t, int64(-1), arr.Get(0))
	assert.Equal(t, int64(-1), arr.Get(PageSize+2))

	arr.SetAll(func(i int64) int64 { return i })
	assert.Equal(t, int64(PageSize+1), arr.Get(PageSize+1))
}

func TestArray_CopyOf(t *testing.T) {
	arr := Of[int64](1, 2, 3, 4)

	grown := arr.CopyOf(PageSize + 2)
	assert.Equal(t, int64(PageSize+2), grown.Size())
	assert.Equal(t, int64(4), grown.Get(3))
	assert.Equal(t, int64(0), grown.Get(PageSize+1))

	shrunk := arr.CopyOf(2)
	assert.Equal(t, []int64{1, 2}, shrunk.ToSlice())

	// the source is unaffected
	grown.Set(0, 100)
	assert.Equal(t, int64(1), arr.Get(0))
}

func TestArray_CopyTo(t *testing.T) {
	src := Of[int64](1, 2, 3)
	dst := Of[int64](9, 9, 9, 9, 9)

	src.CopyTo(dst, 2)
	assert.Equal(t, []int64{1, 2, 0, 0, 0}, dst.ToSlice())

	src.CopyTo(dst, 100)
	assert.Equal(t, []int64{1, 2, 3, 0, 0}, dst.ToSlice())
}

func TestArray_SizeOfAndRelease(t *testing.T) {
	arr := NewLongArray(PageSize + 1)
	expected := MemoryEstimation(PageSize+1, 8)
	assert.Equal(t, expected, arr.SizeOf())

	freed := arr.Release()
	assert.Equal(t, expected, freed)
	assert.Equal(t, int64(0), arr.Size())
	assert.Equal(t, int64(0), arr.SizeOf())
	assertAppPanic(t, apperrors.CodeIndexOutOfRange, func() { arr.Get(0) })
}

func TestAddToOrAnd(t *testing.T) {
	arr := NewLongArray(3)
	AddTo(arr, 1, 5)
	AddTo(arr, 1, 2)
	assert.Equal(t, int64(7), arr.Get(1))

	Or(arr, 2, 0b1010)
	Or(arr, 2, 0b0001)
	assert.Equal(t, int64(0b1011), arr.Get(2))
	And(arr, 2, 0b0011)
	assert.Equal(t, int64(0b0011), arr.Get(2))

	doubles := NewDoubleArray(1)
	AddTo(doubles, 0, 0.5)
	assert.InDelta(t, 0.5, doubles.Get(0), 1e-12)
}

func TestBinarySearch(t *testing.T) {
	arr := Of[int64](2, 4, 4, 8, 16)

	tests := []struct {
		x        int64
		expected int64
	}{
		{1, -1},
		{2, 0},
		{3, 0},
		{4, 2},
		{7, 2},
		{8, 3},
		{100, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, BinarySearch(arr, tt.x), "x=%d", tt.x)
	}

	assert.Equal(t, int64(-1), BinarySearch(NewLongArray(0), 5))
}

func TestCursor_CoversRangeInOrder(t *testing.T) {
	size := int64(2*PageSize + 5)
	arr := NewLongArray(size)
	arr.SetAll(func(i int64) int64 { return i })

	tests := []struct {
		name       string
		start, end int64
	}{
		{"whole", 0, size},
		{"inside one page", 10, 20},
		{"spanning pages", PageSize - 3, 2*PageSize + 2},
		{"empty", 7, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Cursor[int64]{}
			arr.InitCursorRange(c, tt.start, tt.end)
			next := tt.start
			for c.Next() {
				for i := c.Offset; i < c.Limit; i++ {
					require.Equal(t, next, c.Base+int64(i))
					require.Equal(t, next, c.Array[i])
					next++
				}
			}
			assert.Equal(t, tt.end, next)
		})
	}
}

func TestCursor_InvalidRange(t *testing.T) {
	arr := NewLongArray(4)
	assertAppPanic(t, apperrors.CodeIndexOutOfRange, func() {
		arr.InitCursorRange(&Cursor[int64]{}, 2, 5)
	})
}

func TestAtomicLongArray(t *testing.T) {
	arr := NewAtomicLongArray(PageSize + 1)
	arr.Fill(7)
	assert.Equal(t, int64(7), arr.Get(PageSize))

	assert.True(t, arr.CompareAndSwap(3, 7, 9))
	assert.False(t, arr.CompareAndSwap(3, 7, 11))
	assert.Equal(t, int64(9), arr.Get(3))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				arr.GetAndAdd(0, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(8007), arr.Get(0))

	snap := arr.Snapshot()
	assert.Equal(t, int64(8007), snap.Get(0))
	assert.Equal(t, arr.Size(), snap.Size())

	assertAppPanic(t, apperrors.CodeIndexOutOfRange, func() { arr.Get(arr.Size()) })
}

func TestAtomicDoubleArray_ConcurrentAdd(t *testing.T) {
	arr := NewAtomicDoubleArray(2)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				arr.Add(1, 0.5)
			}
		}()
	}
	wg.Wait()

	assert.InDelta(t, 1000.0, arr.Get(1), 1e-9)
	arr.Set(0, -2.5)
	assert.Equal(t, -2.5, arr.Get(0))
	assert.Equal(t, MemoryEstimation(2, 8), arr.Release())
}

func assertAppPanic(t *testing.T, code string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic")
		err, ok := r.(*apperrors.AppError)
		require.True(t, ok, "expected *AppError, got %T", r)
		assert.Equal(t, code, err.Code)
	}()
	fn()
}
