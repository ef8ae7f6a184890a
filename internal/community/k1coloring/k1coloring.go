// Package k1coloring colors a graph so that adjacent nodes rarely share a
// color. Each iteration greedily colors the active nodes and then validates
// them; nodes still in conflict are colored again in the next iteration.
package k1coloring

import (
	"context"

	"github.com/graph-analytics/pkg/collections"
	"github.com/graph-analytics/pkg/engine"
	"github.com/graph-analytics/pkg/graph"
	"github.com/graph-analytics/pkg/huge"
	"github.com/graph-analytics/pkg/partition"
)

// InitialForbiddenColors is the starting size of a step's forbidden-color
// set and the color every node holds before it is first colored.
const InitialForbiddenColors = 1000

// frontierWordBits aligns partition starts to frontier words, so the
// validation phase of one partition never marks a word another partition
// marks.
const frontierWordBits = 64

// Result is the outcome of a coloring run.
type Result struct {
	Colors        *huge.LongArray
	RanIterations int
	DidConverge   bool
	UsedColors    int64
	State         engine.State
}

// ColorOf returns node's color.
func (r *Result) ColorOf(node int64) int64 {
	return r.Colors.Get(node)
}

// K1Coloring runs the coloring over a graph.
type K1Coloring struct {
	graph   graph.Graph
	config  engine.Config
	options []engine.Option
}

// New creates a coloring run. config.Convergence is ignored: the run
// converges once no node needs recoloring.
func New(g graph.Graph, config engine.Config, options ...engine.Option) *K1Coloring {
	config.Convergence = engine.ConvergeOnEmptyFrontier
	return &K1Coloring{graph: g, config: config, options: options}
}

// Compute colors the graph. A cancelled run returns the partial coloring.
func (k *K1Coloring) Compute(ctx context.Context) (*Result, error) {
	nodeCount := k.graph.NodeCount()
	colors := huge.NewAtomicLongArray(nodeCount)
	colors.Fill(InitialForbiddenColors)
	frontier := engine.NewFrontier(nodeCount, true)
	defer frontier.Release()

	align := (max(k.config.MinBatchSize, 1) + frontierWordBits - 1) / frontierWordBits * frontierWordBits
	parts := partition.NumberAlignedPartition(nodeCount, k.config.Concurrency, align)
	options := append([]engine.Option{engine.WithFrontier(frontier), engine.WithPartitions(parts)}, k.options...)
	driver, err := engine.NewDriver(k.config, options...)
	if err != nil {
		return nil, err
	}

	coloring := engine.Phase{
		Name: "coloring",
		NewStep: func(p partition.Partition) engine.Step {
			return &coloringStep{
				graph:     k.graph,
				colors:    colors,
				frontier:  frontier,
				partition: p,
				forbidden: collections.NewBitset(InitialForbiddenColors),
			}
		},
	}
	validation := engine.Phase{
		Name: "validation",
		NewStep: func(p partition.Partition) engine.Step {
			return &validationStep{graph: k.graph, colors: colors, frontier: frontier, partition: p}
		},
	}

	res, err := driver.Run(ctx, nodeCount, coloring, validation)
	if err != nil {
		return nil, err
	}

	snapshot := colors.Snapshot()
	return &Result{
		Colors:        snapshot,
		RanIterations: res.RanIterations,
		DidConverge:   res.DidConverge,
		State:         res.State,
		UsedColors:    countColors(snapshot),
	}, nil
}

func countColors(colors *huge.LongArray) int64 {
	used := collections.NewBitset(InitialForbiddenColors)
	c := colors.NewCursor()
	for c.Next() {
		for _, color := range c.Array[c.Offset:c.Limit] {
			used.Set(int(color))
		}
	}
	return int64(used.Count())
}

// ============================================================================
// Steps
// ============================================================================

type coloringStep struct {
	graph     graph.Graph
	colors    *huge.AtomicLongArray
	frontier  *engine.Frontier
	partition partition.Partition
	forbidden *collections.Bitset
}

// Compute gives every active node the smallest color none of its neighbours
// holds.
func (s *coloringStep) Compute(int) engine.StepOutcome {
	var out engine.StepOutcome
	for node := s.partition.StartNode; node < s.partition.EndNode(); node++ {
		if !s.frontier.IsActive(node) {
			continue
		}
		s.forbidden.Reset()
		s.graph.ForEachRelationship(node, func(source, target int64, _ float64) bool {
			if source != target {
				s.forbidden.Set(int(s.colors.Get(target)))
			}
			return true
		})
		color := int64(s.forbidden.NextClearBit(0))
		if s.colors.Get(node) != color {
			s.colors.Set(node, color)
			out.Changed = true
		}
		out.Processed++
	}
	return out
}

func (s *coloringStep) Release() {
	s.forbidden = nil
}

type validationStep struct {
	graph     graph.Graph
	colors    *huge.AtomicLongArray
	frontier  *engine.Frontier
	partition partition.Partition
}

// Compute marks an active node for recoloring when a neighbour shares its
// color and is not itself marked yet. Scanning in id order this recolors the
// lower id of a conflicting pair.
func (s *validationStep) Compute(int) engine.StepOutcome {
	var out engine.StepOutcome
	for node := s.partition.StartNode; node < s.partition.EndNode(); node++ {
		if !s.frontier.IsActive(node) {
			continue
		}
		color := s.colors.Get(node)
		s.graph.ForEachRelationship(node, func(source, target int64, _ float64) bool {
			if source != target && s.colors.Get(target) == color && !s.frontier.IsNext(target) {
				s.frontier.SetNext(source)
				out.Changed = true
				return false
			}
			return true
		})
		out.Processed++
	}
	return out
}

func (s *validationStep) Release() {}
