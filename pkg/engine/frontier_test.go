package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFrontier(t *testing.T) {
	all := NewFrontier(130, true)
	assert.Equal(t, int64(130), all.Size())
	assert.True(t, all.AnyActive())
	assert.Equal(t, int64(130), all.ActiveCount())
	assert.True(t, all.IsActive(129))

	none := NewFrontier(130, false)
	assert.False(t, none.AnyActive())
	none.Activate(7)
	assert.True(t, none.IsActive(7))
	assert.Equal(t, int64(1), none.ActiveCount())
}

func TestFrontier_ConcurrentSetNextIsIdempotent(t *testing.T) {
	f := NewFrontier(1000, false)

	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				f.SetNext(42)
				f.SetNext(int64(i * 10))
			}
		}()
	}
	wg.Wait()

	once := NewFrontier(1000, false)
	once.SetNext(42)
	for i := 0; i < 100; i++ {
		once.SetNext(int64(i * 10))
	}

	f.Swap()
	once.Swap()
	require.Equal(t, once.ActiveCount(), f.ActiveCount())
	for n := int64(0); n < 1000; n++ {
		assert.Equal(t, once.IsActive(n), f.IsActive(n), "node %d", n)
	}
}

func TestFrontier_Swap(t *testing.T) {
	f := NewFrontier(200, true)
	f.SetNext(3)
	f.SetNext(150)
	assert.True(t, f.IsNext(150))

	f.Swap()
	assert.Equal(t, int64(2), f.ActiveCount())
	assert.True(t, f.IsActive(3))
	assert.True(t, f.IsActive(150))
	assert.False(t, f.IsActive(4))
	assert.False(t, f.IsNext(3), "next must be empty after swap")

	f.Swap()
	assert.False(t, f.AnyActive())
}

func TestFrontier_Release(t *testing.T) {
	f := NewFrontier(64, true)
	size := f.SizeOf()
	assert.Positive(t, size)
	assert.Equal(t, size, f.Release())
	assert.Equal(t, int64(0), f.SizeOf())
}
