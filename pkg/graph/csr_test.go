package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_DirectedCSR(t *testing.T) {
	b := NewBuilder()
	b.AddRelationship(10, 20, 1.5)
	b.AddRelationship(10, 30, 2)
	b.AddRelationship(30, 10, 3)
	b.AddNode(40)

	g, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, int64(4), g.NodeCount())
	assert.Equal(t, int64(3), g.RelationshipCount())
	assert.False(t, g.Undirected())

	// first-seen order: 10->0, 20->1, 30->2, 40->3
	assert.Equal(t, int64(2), g.ToMappedNodeID(30))
	assert.Equal(t, int64(40), g.ToOriginalNodeID(3))
	assert.Equal(t, int64(-1), g.ToMappedNodeID(99))

	assert.Equal(t, []int64{1, 2}, Neighbors(g, 0))
	assert.Equal(t, []int64{0}, Neighbors(g, 2))
	assert.Equal(t, int64(0), g.Degree(3))

	var weights []float64
	g.ForEachRelationship(0, func(s, _ int64, w float64) bool {
		assert.Equal(t, int64(0), s)
		weights = append(weights, w)
		return true
	})
	assert.Equal(t, []float64{1.5, 2}, weights)
}

func TestBuilder_Undirected(t *testing.T) {
	g, err := FromEdges(3, true,
		Edge{0, 1, 1},
		Edge{1, 2, 4},
		Edge{2, 2, 9},
	)
	require.NoError(t, err)
	assert.True(t, g.Undirected())
	assert.Equal(t, int64(5), g.RelationshipCount(), "self loop stored once")
	assert.Equal(t, []int64{0, 2}, Neighbors(g, 1))
	assert.Equal(t, []int64{1, 2}, Neighbors(g, 2))
}

func TestForEachRelationship_StopsEarly(t *testing.T) {
	g, err := FromEdges(4, false, Edge{0, 1, 1}, Edge{0, 2, 1}, Edge{0, 3, 1})
	require.NoError(t, err)

	visited := 0
	g.ForEachRelationship(0, func(_, _ int64, _ float64) bool {
		visited++
		return visited < 2
	})
	assert.Equal(t, 2, visited)
}

func TestBuilder_Empty(t *testing.T) {
	g, err := NewBuilder().Build()
	require.NoError(t, err)
	assert.Equal(t, int64(0), g.NodeCount())
	assert.Equal(t, int64(0), g.RelationshipCount())
}

func TestMemoryEstimation(t *testing.T) {
	g, err := FromEdges(100, false, Edge{0, 1, 1}, Edge{5, 7, 1})
	require.NoError(t, err)
	assert.Equal(t, MemoryEstimation(100, 2), g.SizeOf())
}
