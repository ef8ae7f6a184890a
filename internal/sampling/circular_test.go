package sampling

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/graph-analytics/pkg/errors"
	"github.com/graph-analytics/pkg/huge"
)

func TestCircularSampler_Sample(t *testing.T) {
	s, err := NewCircularSampler(huge.Of(1.0, 0, 3))
	require.NoError(t, err)
	assert.Equal(t, 4.0, s.Total())

	tests := []struct {
		r        float64
		expected int64
	}{
		{0, 0},
		{0.2, 0},
		{0.25, 2},
		{0.99, 2},
		{1.1, 0},
		{-0.75, 2},
	}
	for _, tt := range tests {
		idx, ok := s.Sample(tt.r)
		require.True(t, ok)
		assert.Equal(t, tt.expected, idx, "r=%v", tt.r)
	}
}

func TestCircularSampler_TrailingZeroWeight(t *testing.T) {
	s, err := NewCircularSampler(huge.Of(2.0, 0))
	require.NoError(t, err)

	idx, ok := s.Sample(math.Nextafter(1, 0))
	require.True(t, ok)
	assert.Equal(t, int64(0), idx)
}

func TestCircularSampler_AllZero(t *testing.T) {
	s, err := NewCircularSampler(huge.Of(0.0, 0, 0))
	require.NoError(t, err)

	idx, ok := s.Sample(0.5)
	assert.False(t, ok)
	assert.Equal(t, int64(-1), idx)

	idx, ok = s.SampleExcluding(rand.New(rand.NewSource(1)), nil)
	assert.False(t, ok)
	assert.Equal(t, int64(-1), idx)
}

func TestCircularSampler_InvalidWeights(t *testing.T) {
	for _, w := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := NewCircularSampler(huge.Of(1.0, w))
		require.Error(t, err, "weight %v", w)
		assert.True(t, apperrors.IsInvalidConfig(err))
	}
}

func TestCircularSampler_SampleExcludingIsBounded(t *testing.T) {
	s, err := NewCircularSampler(huge.Of(1.0, 1, 1))
	require.NoError(t, err)

	calls := 0
	idx, ok := s.SampleExcluding(rand.New(rand.NewSource(7)), func(int64) bool {
		calls++
		return true
	})
	assert.False(t, ok)
	assert.Equal(t, int64(-1), idx)
	assert.Equal(t, MaxResampleAttempts, calls)
}

func TestCircularSampler_SampleExcludingSkips(t *testing.T) {
	s, err := NewCircularSampler(huge.Of(5.0, 1, 1))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		idx, ok := s.SampleExcluding(rng, func(n int64) bool { return n == 0 })
		require.True(t, ok)
		assert.NotEqual(t, int64(0), idx)
	}
}

func TestCircularSampler_Distribution(t *testing.T) {
	s, err := NewCircularSampler(huge.Of(1.0, 3))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	const draws = 20000
	var heavy int
	for i := 0; i < draws; i++ {
		idx, _ := s.Sample(rng.Float64())
		if idx == 1 {
			heavy++
		}
	}
	assert.InDelta(t, 0.75, float64(heavy)/draws, 0.02)
}
