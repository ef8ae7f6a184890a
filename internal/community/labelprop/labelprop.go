// Package labelprop detects communities by label propagation: every node
// repeatedly adopts the label carrying the most weight among its
// neighbours until no label changes.
package labelprop

import (
	"context"

	"github.com/graph-analytics/pkg/collections"
	"github.com/graph-analytics/pkg/engine"
	apperrors "github.com/graph-analytics/pkg/errors"
	"github.com/graph-analytics/pkg/graph"
	"github.com/graph-analytics/pkg/huge"
	"github.com/graph-analytics/pkg/partition"
)

// Config extends the engine config with optional per-node inputs. Both
// arrays, when set, must hold one entry per node.
type Config struct {
	engine.Config

	// SeedLabels are the starting labels; nil starts every node with its
	// own id.
	SeedLabels *huge.LongArray
	// NodeWeights scale every vote a neighbour casts; nil weighs all nodes 1.
	NodeWeights *huge.DoubleArray
}

// Result is the outcome of a label propagation run.
type Result struct {
	Labels        *huge.LongArray
	RanIterations int
	DidConverge   bool
	Communities   int64
	State         engine.State
}

// LabelPropagation runs label propagation over a graph.
type LabelPropagation struct {
	graph   graph.Graph
	config  Config
	options []engine.Option
}

// New creates a run. config.Convergence is ignored: the run converges once
// an iteration changes no label.
func New(g graph.Graph, config Config, options ...engine.Option) *LabelPropagation {
	config.Convergence = engine.ConvergeOnNoChange
	return &LabelPropagation{graph: g, config: config, options: options}
}

// Compute propagates labels. Votes count relationship weight times the
// voting neighbour's node weight; ties go to the smallest label.
func (lp *LabelPropagation) Compute(ctx context.Context) (*Result, error) {
	nodeCount := lp.graph.NodeCount()
	if err := lp.config.Validate(); err != nil {
		return nil, err
	}
	if seeds := lp.config.SeedLabels; seeds != nil && seeds.Size() != nodeCount {
		return nil, apperrors.InvalidConfig("seed labels hold %d entries for %d nodes", seeds.Size(), nodeCount)
	}
	if weights := lp.config.NodeWeights; weights != nil && weights.Size() != nodeCount {
		return nil, apperrors.InvalidConfig("node weights hold %d entries for %d nodes", weights.Size(), nodeCount)
	}

	labels := huge.NewAtomicLongArray(nodeCount)
	if seeds := lp.config.SeedLabels; seeds != nil {
		labels.SetAll(seeds.Get)
	} else {
		labels.SetAll(func(node int64) int64 { return node })
	}

	parts := partition.Ranges(partition.ByDegree(
		nodeCount,
		lp.graph.RelationshipCount(),
		lp.graph.Degree,
		lp.config.Concurrency,
		lp.config.MinBatchSize,
	))
	options := append([]engine.Option{engine.WithPartitions(parts)}, lp.options...)
	driver, err := engine.NewDriver(lp.config.Config, options...)
	if err != nil {
		return nil, err
	}

	phase := engine.Phase{
		Name: "propagate",
		NewStep: func(p partition.Partition) engine.Step {
			return &computeStep{
				graph:       lp.graph,
				labels:      labels,
				nodeWeights: lp.config.NodeWeights,
				partition:   p,
				votes:       collections.NewVoteTally(16),
			}
		},
	}
	res, err := driver.Run(ctx, nodeCount, phase)
	if err != nil {
		return nil, err
	}

	snapshot := labels.Snapshot()
	return &Result{
		Labels:        snapshot,
		RanIterations: res.RanIterations,
		DidConverge:   res.DidConverge,
		State:         res.State,
		Communities:   countCommunities(snapshot),
	}, nil
}

func countCommunities(labels *huge.LongArray) int64 {
	seen := make(map[int64]struct{})
	c := labels.NewCursor()
	for c.Next() {
		for _, l := range c.Array[c.Offset:c.Limit] {
			seen[l] = struct{}{}
		}
	}
	return int64(len(seen))
}

// ============================================================================
// Step
// ============================================================================

type computeStep struct {
	graph       graph.Graph
	labels      *huge.AtomicLongArray
	nodeWeights *huge.DoubleArray
	partition   partition.Partition
	votes       *collections.VoteTally
}

func (s *computeStep) Compute(int) engine.StepOutcome {
	var out engine.StepOutcome
	for node := s.partition.StartNode; node < s.partition.EndNode(); node++ {
		s.votes.Reset()
		s.graph.ForEachRelationship(node, func(_, target int64, weight float64) bool {
			if s.nodeWeights != nil {
				weight *= s.nodeWeights.Get(target)
			}
			s.votes.Add(s.labels.Get(target), weight)
			return true
		})
		out.Processed++

		best, _, ok := s.votes.Best()
		if ok && best != s.labels.Get(node) {
			s.labels.Set(node, best)
			out.Changed = true
		}
	}
	return out
}

func (s *computeStep) Release() {
	s.votes = nil
}
