package algorithm

import (
	apperrors "github.com/graph-analytics/pkg/errors"
	"github.com/graph-analytics/pkg/graph"
	"github.com/graph-analytics/pkg/huge"
	"github.com/graph-analytics/pkg/model"
	"github.com/graph-analytics/pkg/queue"
)

// MemoryEstimate splits the bytes a run needs into the loaded graph and the
// algorithm's own state.
type MemoryEstimate struct {
	Kind      model.AlgorithmKind `json:"algorithm"`
	Graph     int64               `json:"graph_bytes"`
	Algorithm int64               `json:"algorithm_bytes"`
}

// Total returns the sum of both parts.
func (e MemoryEstimate) Total() int64 {
	return e.Graph + e.Algorithm
}

// EstimateMemory estimates a run of req over a graph of the given size.
// Walk buffers are sized from req's options.
func EstimateMemory(req *model.RunRequest, nodeCount, relationshipCount int64) (MemoryEstimate, error) {
	if nodeCount < 0 || relationshipCount < 0 {
		return MemoryEstimate{}, apperrors.InvalidConfig("graph size must not be negative")
	}
	if nodeCount >= huge.MaxSize || relationshipCount > huge.MaxSize {
		return MemoryEstimate{}, apperrors.CapacityExceeded("graph size", max(nodeCount, relationshipCount), huge.MaxSize)
	}

	n := nodeCount
	longs := huge.MemoryEstimation(n, 8)
	bits := bitsetBytes(n)

	e := MemoryEstimate{Kind: req.Kind, Graph: graph.MemoryEstimation(nodeCount, relationshipCount)}
	switch req.Kind {
	case model.KindK1Coloring:
		// colors plus the current and next frontier
		e.Algorithm = longs + 2*bits
	case model.KindLabelProp:
		e.Algorithm = longs
	case model.KindPrim:
		e.Algorithm = primBytes(n)
	case model.KindKSpanningTree:
		// the tree, the roots and the per-component queue
		e.Algorithm = primBytes(n) + longs + queue.MemoryEstimation(n)
	case model.KindRWR:
		// sampled and used nodes plus the weight sums
		e.Algorithm = 2*bits + huge.MemoryEstimation(n, 8)
	case model.KindRandomWalk:
		walk := walkConfig(req)
		buffer := int64(walk.BufferSize) + int64(concurrencyOf(req))
		e.Algorithm = buffer * int64(walk.WalkLength) * 8
	default:
		return MemoryEstimate{}, apperrors.Newf(apperrors.CodeUnsupportedAlgorithm, "unsupported algorithm %q", req.Kind)
	}
	return e, nil
}

func primBytes(n int64) int64 {
	// parent, cost and visited plus the queue
	return 2*huge.MemoryEstimation(n, 8) + bitsetBytes(n) + queue.MemoryEstimation(n)
}

func bitsetBytes(n int64) int64 {
	return huge.MemoryEstimation((n+63)>>6, 8)
}
