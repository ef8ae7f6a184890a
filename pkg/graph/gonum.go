package graph

import (
	"math"

	"gonum.org/v1/gonum/graph/simple"
)

// ToGonum converts g into a gonum weighted undirected graph over the mapped
// node ids. Self loops are dropped and parallel relationships keep the
// lowest weight.
func ToGonum(g Graph) *simple.WeightedUndirectedGraph {
	out := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for n := int64(0); n < g.NodeCount(); n++ {
		out.AddNode(simple.Node(n))
	}
	for n := int64(0); n < g.NodeCount(); n++ {
		g.ForEachRelationship(n, func(s, t int64, w float64) bool {
			if s == t {
				return true
			}
			if existing := out.WeightedEdge(s, t); existing != nil && existing.Weight() <= w {
				return true
			}
			out.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(s), T: simple.Node(t), W: w})
			return true
		})
	}
	return out
}
