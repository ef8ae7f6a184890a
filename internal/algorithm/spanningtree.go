package algorithm

import (
	"context"
	"iter"

	"github.com/graph-analytics/internal/spanningtree"
	apperrors "github.com/graph-analytics/pkg/errors"
	"github.com/graph-analytics/pkg/graph"
	"github.com/graph-analytics/pkg/huge"
	"github.com/graph-analytics/pkg/model"
)

// TreeEdge is the row value of a spanning tree: the original id of the
// node's parent, -1 for the head, and the weight of the edge to it.
type TreeEdge struct {
	Parent int64   `json:"parent"`
	Cost   float64 `json:"cost"`
}

func startNode(g graph.Graph, original int64) (int64, error) {
	if g.NodeCount() == 0 {
		return -1, apperrors.InvalidConfig("spanning tree needs a non-empty graph")
	}
	mapped := g.ToMappedNodeID(original)
	if mapped < 0 {
		return -1, apperrors.InvalidConfig("start node %d is not in the graph", original)
	}
	return mapped, nil
}

// treeRows yields one row per reached node in mapped id order.
func treeRows(g graph.Graph, tree *spanningtree.SpanningTree, value func(node int64) any) iter.Seq[model.NodeValue] {
	return func(yield func(model.NodeValue) bool) {
		for n := int64(0); n < tree.NodeCount; n++ {
			if !tree.Contains(n) {
				continue
			}
			if !yield(model.NodeValue{Node: g.ToOriginalNodeID(n), Value: value(n)}) {
				return
			}
		}
	}
}

func setTreeStats(result *model.RunResult, tree *spanningtree.SpanningTree) {
	result.SetStat("total_weight", tree.TotalWeight)
	result.SetStat("effective_node_count", float64(tree.EffectiveNodeCount))
	result.SetStat("edges", float64(tree.EdgeCount()))
}

// Prim adapts spanningtree.Prim. Rows carry a TreeEdge per reached node.
type Prim struct {
	env env
}

// NewPrim creates the adapter.
func NewPrim(opts ...Option) *Prim {
	return &Prim{env: newEnv(opts)}
}

// Kind implements Algorithm.
func (a *Prim) Kind() model.AlgorithmKind {
	return model.KindPrim
}

// Run implements Algorithm.
func (a *Prim) Run(ctx context.Context, g graph.Graph, req *model.RunRequest) (*model.RunResult, error) {
	objective, err := spanningtree.ParseObjective(req.Options.Objective)
	if err != nil {
		return nil, err
	}
	start, err := startNode(g, req.Options.StartNode)
	if err != nil {
		return nil, err
	}

	flag := a.env.runFlag(ctx)
	tree, err := spanningtree.Prim(g, start, objective, flag, spanningtree.WithProgress(a.env.tracker))
	if err != nil {
		return nil, err
	}

	result := newResult(a.Kind(), g)
	result.Status = traversalStatus(tree)
	setTreeStats(result, tree)
	parents := originalValues(g, tree.Parent)
	result.Rows = treeRows(g, tree, func(n int64) any {
		return TreeEdge{Parent: parents.Get(n), Cost: tree.CostToParent.Get(n)}
	})

	a.env.logger.WithField("kind", a.Kind()).Debug("%s spanning tree reached %d nodes, weight %g",
		objective, tree.EffectiveNodeCount, tree.TotalWeight)
	return result, nil
}

// KSpanningTree adapts spanningtree.KSpanningTree. Each row holds the
// original id of the root of the tree the node ended up in.
type KSpanningTree struct {
	env env
}

// NewKSpanningTree creates the adapter.
func NewKSpanningTree(opts ...Option) *KSpanningTree {
	return &KSpanningTree{env: newEnv(opts)}
}

// Kind implements Algorithm.
func (a *KSpanningTree) Kind() model.AlgorithmKind {
	return model.KindKSpanningTree
}

// Run implements Algorithm.
func (a *KSpanningTree) Run(ctx context.Context, g graph.Graph, req *model.RunRequest) (*model.RunResult, error) {
	objective, err := spanningtree.ParseObjective(req.Options.Objective)
	if err != nil {
		return nil, err
	}
	start, err := startNode(g, req.Options.StartNode)
	if err != nil {
		return nil, err
	}

	flag := a.env.runFlag(ctx)
	tree, err := spanningtree.KSpanningTree(g, start, req.Options.K, objective, flag, spanningtree.WithProgress(a.env.tracker))
	if err != nil {
		return nil, err
	}

	roots := originalValues(g, tree.Roots())
	result := newResult(a.Kind(), g)
	result.Status = traversalStatus(tree)
	setTreeStats(result, tree)
	result.SetStat("trees", float64(countDistinct(tree, roots)))
	result.Rows = treeRows(g, tree, func(n int64) any { return roots.Get(n) })

	a.env.logger.WithField("kind", a.Kind()).Debug("split %s spanning tree into %d trees", objective, req.Options.K)
	return result, nil
}

func countDistinct(tree *spanningtree.SpanningTree, values *huge.LongArray) int64 {
	seen := make(map[int64]struct{})
	for n := int64(0); n < tree.NodeCount; n++ {
		if tree.Contains(n) {
			seen[values.Get(n)] = struct{}{}
		}
	}
	return int64(len(seen))
}
