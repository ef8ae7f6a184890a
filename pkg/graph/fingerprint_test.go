package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/graph/topo"
)

func TestFingerprint(t *testing.T) {
	edges := []Edge{{0, 1, 1}, {1, 2, 2}}
	a, err := FromEdges(3, true, edges...)
	require.NoError(t, err)
	b, err := FromEdges(3, true, edges...)
	require.NoError(t, err)
	c, err := FromEdges(3, true, Edge{0, 1, 1}, Edge{1, 2, 2.5})
	require.NoError(t, err)

	fa := Fingerprint(a)
	assert.Len(t, fa, 64)
	assert.Equal(t, fa, Fingerprint(b))
	assert.NotEqual(t, fa, Fingerprint(c), "weights are part of the digest")
}

func TestToGonum(t *testing.T) {
	g, err := FromEdges(6, true,
		Edge{0, 1, 3},
		Edge{1, 0, 1},
		Edge{1, 2, 2},
		Edge{3, 4, 1},
		Edge{4, 4, 5},
	)
	require.NoError(t, err)

	out := ToGonum(g)
	assert.Equal(t, 6, out.Nodes().Len())
	assert.Equal(t, 1.0, out.WeightedEdge(0, 1).Weight(), "parallel edges keep the lowest weight")
	assert.False(t, out.HasEdgeBetween(4, 4))

	// {0,1,2} {3,4} {5}
	assert.Len(t, topo.ConnectedComponents(out), 3)
}
