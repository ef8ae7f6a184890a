// Package sampling draws nodes and walks from a graph: weighted node
// sampling, random walk with restarts subgraph sampling and streamed random
// walks.
package sampling

import (
	"math"
	"math/rand"

	apperrors "github.com/graph-analytics/pkg/errors"
	"github.com/graph-analytics/pkg/huge"
)

// MaxResampleAttempts bounds every draw-until-acceptable loop in this
// package.
const MaxResampleAttempts = 100

// CircularSampler draws indexes with probability proportional to their
// weight. The weights are laid out as consecutive arcs of a ring of
// circumference Total; a draw is a point on the ring.
type CircularSampler struct {
	// starts[i] is where arc i begins.
	starts *huge.DoubleArray
	total  float64
}

// NewCircularSampler builds a sampler over weights. Weights must be finite
// and non-negative.
func NewCircularSampler(weights *huge.DoubleArray) (*CircularSampler, error) {
	starts := huge.NewDoubleArray(weights.Size())
	var total float64
	for i := int64(0); i < weights.Size(); i++ {
		w := weights.Get(i)
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, apperrors.InvalidConfig("weight %v at index %d is not a finite non-negative number", w, i)
		}
		starts.Set(i, total)
		total += w
	}
	return &CircularSampler{starts: starts, total: total}, nil
}

// Total returns the summed weight.
func (s *CircularSampler) Total() float64 {
	return s.total
}

// Sample maps r to the arc containing the point r*Total, taking r modulo 1.
// Zero-weight indexes are never returned. ok is false when every weight is
// zero.
func (s *CircularSampler) Sample(r float64) (index int64, ok bool) {
	if s.total <= 0 {
		return -1, false
	}
	r -= math.Floor(r)
	x := math.Min(r*s.total, math.Nextafter(s.total, 0))
	idx := huge.BinarySearch(s.starts, x)
	if idx < 0 {
		return -1, false
	}
	return idx, true
}

// SampleExcluding draws until it finds an index exclude rejects, giving up
// after MaxResampleAttempts draws.
func (s *CircularSampler) SampleExcluding(rng *rand.Rand, exclude func(index int64) bool) (int64, bool) {
	if s.total <= 0 {
		return -1, false
	}
	for attempt := 0; attempt < MaxResampleAttempts; attempt++ {
		idx, ok := s.Sample(rng.Float64())
		if ok && (exclude == nil || !exclude(idx)) {
			return idx, true
		}
	}
	return -1, false
}

// Release drops the ring.
func (s *CircularSampler) Release() int64 {
	s.total = 0
	return s.starts.Release()
}
