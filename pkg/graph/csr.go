package graph

import (
	apperrors "github.com/graph-analytics/pkg/errors"
	"github.com/graph-analytics/pkg/huge"
)

// DefaultWeight is the weight of relationships loaded without one.
const DefaultWeight = 1.0

// CSRGraph stores relationships in compressed sparse row form: the
// relationships of node n are entries offsets[n] .. offsets[n+1]-1 of
// targets and weights.
type CSRGraph struct {
	offsets    *huge.LongArray
	targets    *huge.LongArray
	weights    *huge.DoubleArray
	originals  *huge.LongArray
	mapping    map[int64]int64
	undirected bool
}

var _ Graph = (*CSRGraph)(nil)

// NodeCount implements Graph.
func (g *CSRGraph) NodeCount() int64 {
	return g.originals.Size()
}

// RelationshipCount implements Graph.
func (g *CSRGraph) RelationshipCount() int64 {
	return g.targets.Size()
}

// Undirected reports whether every relationship is stored in both
// directions.
func (g *CSRGraph) Undirected() bool {
	return g.undirected
}

// Degree implements Graph.
func (g *CSRGraph) Degree(node int64) int64 {
	return g.offsets.Get(node+1) - g.offsets.Get(node)
}

// ForEachRelationship implements Graph.
func (g *CSRGraph) ForEachRelationship(node int64, fn RelationshipConsumer) {
	end := g.offsets.Get(node + 1)
	for i := g.offsets.Get(node); i < end; i++ {
		if !fn(node, g.targets.Get(i), g.weights.Get(i)) {
			return
		}
	}
}

// ToOriginalNodeID implements Graph.
func (g *CSRGraph) ToOriginalNodeID(node int64) int64 {
	return g.originals.Get(node)
}

// ToMappedNodeID implements Graph.
func (g *CSRGraph) ToMappedNodeID(original int64) int64 {
	if id, ok := g.mapping[original]; ok {
		return id
	}
	return -1
}

// SizeOf returns the bytes held by the CSR arrays, excluding the id map.
func (g *CSRGraph) SizeOf() int64 {
	return g.offsets.SizeOf() + g.targets.SizeOf() + g.weights.SizeOf() + g.originals.SizeOf()
}

// MemoryEstimation returns the bytes a CSR graph of the given size holds.
func MemoryEstimation(nodeCount, relationshipCount int64) int64 {
	return huge.MemoryEstimation(nodeCount+1, 8) +
		huge.MemoryEstimation(nodeCount, 8) +
		huge.MemoryEstimation(relationshipCount, 8)*2
}

// ============================================================================
// Builder
// ============================================================================

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// Undirected stores every relationship in both directions. A self loop is
// stored once.
func Undirected() BuilderOption {
	return func(b *Builder) { b.undirected = true }
}

// WithNodes pre-registers original ids 0..n-1 so they map to themselves.
func WithNodes(n int64) BuilderOption {
	return func(b *Builder) {
		for id := int64(0); id < n; id++ {
			b.AddNode(id)
		}
	}
}

// Builder collects nodes and relationships and produces a CSRGraph. Node
// ids are remapped densely in first-seen order. A Builder is not safe for
// concurrent use.
type Builder struct {
	undirected bool
	mapping    map[int64]int64
	originals  []int64
	sources    []int64
	targets    []int64
	weights    []float64
}

// NewBuilder creates an empty builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{mapping: make(map[int64]int64)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddNode registers an original id and returns its mapped id.
func (b *Builder) AddNode(original int64) int64 {
	if id, ok := b.mapping[original]; ok {
		return id
	}
	id := int64(len(b.originals))
	b.mapping[original] = id
	b.originals = append(b.originals, original)
	return id
}

// AddRelationship adds a relationship between two original ids, registering
// them when needed.
func (b *Builder) AddRelationship(source, target int64, weight float64) {
	s, t := b.AddNode(source), b.AddNode(target)
	b.add(s, t, weight)
	if b.undirected && s != t {
		b.add(t, s, weight)
	}
}

// AddEdges adds every edge.
func (b *Builder) AddEdges(edges ...Edge) *Builder {
	for _, e := range edges {
		b.AddRelationship(e.Source, e.Target, e.Weight)
	}
	return b
}

func (b *Builder) add(s, t int64, w float64) {
	b.sources = append(b.sources, s)
	b.targets = append(b.targets, t)
	b.weights = append(b.weights, w)
}

// Build produces the graph. Relationships of a node keep their insertion
// order.
func (b *Builder) Build() (*CSRGraph, error) {
	nodeCount := int64(len(b.originals))
	relCount := int64(len(b.targets))
	if nodeCount > huge.MaxSize-1 || relCount > huge.MaxSize {
		return nil, apperrors.CapacityExceeded("graph size", max(nodeCount, relCount), huge.MaxSize)
	}

	offsets := huge.NewLongArray(nodeCount + 1)
	for _, s := range b.sources {
		huge.AddTo(offsets, s+1, 1)
	}
	for n := int64(1); n <= nodeCount; n++ {
		huge.AddTo(offsets, n, offsets.Get(n-1))
	}

	targets := huge.NewLongArray(relCount)
	weights := huge.NewDoubleArray(relCount)
	cursor := offsets.CopyOf(nodeCount)
	for i, s := range b.sources {
		pos := cursor.Get(s)
		cursor.Set(s, pos+1)
		targets.Set(pos, b.targets[i])
		weights.Set(pos, b.weights[i])
	}

	mapping := make(map[int64]int64, len(b.mapping))
	for k, v := range b.mapping {
		mapping[k] = v
	}
	return &CSRGraph{
		offsets:    offsets,
		targets:    targets,
		weights:    weights,
		originals:  huge.Of(b.originals...),
		mapping:    mapping,
		undirected: b.undirected,
	}, nil
}

// FromEdges builds a graph over nodes 0..nodeCount-1 plus any further ids the
// edges mention.
func FromEdges(nodeCount int64, undirected bool, edges ...Edge) (*CSRGraph, error) {
	opts := []BuilderOption{WithNodes(nodeCount)}
	if undirected {
		opts = append([]BuilderOption{Undirected()}, opts...)
	}
	return NewBuilder(opts...).AddEdges(edges...).Build()
}

// Neighbors returns the targets of node in storage order. Intended for tests
// and small graphs.
func Neighbors(g Graph, node int64) []int64 {
	out := make([]int64, 0, g.Degree(node))
	g.ForEachRelationship(node, func(_, t int64, _ float64) bool {
		out = append(out, t)
		return true
	})
	return out
}
