package spanningtree

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	apperrors "github.com/graph-analytics/pkg/errors"
	"github.com/graph-analytics/pkg/graph"
	"github.com/graph-analytics/pkg/progress"
	"github.com/graph-analytics/pkg/termination"
)

// chain is A-B(3) B-C(4) C-D(3) D-E(0).
func chain(t *testing.T) *graph.CSRGraph {
	t.Helper()
	g, err := graph.FromEdges(5, true,
		graph.Edge{Source: 0, Target: 1, Weight: 3},
		graph.Edge{Source: 1, Target: 2, Weight: 4},
		graph.Edge{Source: 2, Target: 3, Weight: 3},
		graph.Edge{Source: 3, Target: 4, Weight: 0},
	)
	require.NoError(t, err)
	return g
}

func roots(tree *SpanningTree) int64 {
	var count int64
	for n := int64(0); n < tree.NodeCount; n++ {
		if tree.ParentOf(n) == -1 {
			count++
		}
	}
	return count
}

func randomConnected(t *testing.T, n int64, extra int, seed int64) *graph.CSRGraph {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	b := graph.NewBuilder(graph.Undirected(), graph.WithNodes(n))
	for v := int64(1); v < n; v++ {
		b.AddRelationship(rng.Int63n(v), v, float64(rng.Intn(1000)))
	}
	for i := 0; i < extra; i++ {
		b.AddRelationship(rng.Int63n(n), rng.Int63n(n), float64(rng.Intn(1000)))
	}
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func TestPrim_Chain(t *testing.T) {
	recorder := progress.NewRecorder()
	tree, err := Prim(chain(t), 0, Minimum, nil, WithProgress(recorder))
	require.NoError(t, err)

	assert.Equal(t, int64(0), tree.Head)
	assert.Equal(t, int64(5), tree.EffectiveNodeCount)
	assert.Equal(t, int64(4), tree.EdgeCount())
	assert.Equal(t, []int64{-1, 0, 1, 2, 3}, tree.Parent.ToSlice())
	assert.Equal(t, []float64{0, 3, 4, 3, 0}, tree.CostToParent.ToSlice())
	assert.Equal(t, 10.0, tree.TotalWeight)

	subTasks := recorder.SubTasks()
	require.Len(t, subTasks, 1)
	assert.Equal(t, int64(5), subTasks[0].Processed)
}

func TestPrim_Objectives(t *testing.T) {
	g, err := graph.FromEdges(3, true,
		graph.Edge{Source: 0, Target: 1, Weight: 1},
		graph.Edge{Source: 1, Target: 2, Weight: 2},
		graph.Edge{Source: 0, Target: 2, Weight: 3},
	)
	require.NoError(t, err)

	minTree, err := Prim(g, 0, Minimum, termination.AlwaysRunning)
	require.NoError(t, err)
	assert.Equal(t, 3.0, minTree.TotalWeight)
	assert.Equal(t, []int64{-1, 0, 1}, minTree.Parent.ToSlice())

	maxTree, err := Prim(g, 0, Maximum, termination.AlwaysRunning)
	require.NoError(t, err)
	assert.Equal(t, 5.0, maxTree.TotalWeight)
	assert.Equal(t, []int64{-1, 2, 0}, maxTree.Parent.ToSlice())
}

func TestPrim_MatchesGonum(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		g := randomConnected(t, 300, 900, seed)

		tree, err := Prim(g, 0, Minimum, termination.AlwaysRunning)
		require.NoError(t, err)
		assert.Equal(t, g.NodeCount(), tree.EffectiveNodeCount)
		assert.Equal(t, g.NodeCount()-1, tree.EdgeCount())

		dst := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
		expected := path.Prim(dst, graph.ToGonum(g))
		assert.InDelta(t, expected, tree.TotalWeight, 1e-9, "seed %d", seed)
	}
}

func TestPrim_Disconnected(t *testing.T) {
	g, err := graph.FromEdges(5, true,
		graph.Edge{Source: 0, Target: 1, Weight: 1},
		graph.Edge{Source: 3, Target: 4, Weight: 1},
	)
	require.NoError(t, err)

	tree, err := Prim(g, 0, Minimum, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), tree.EffectiveNodeCount)
	assert.Less(t, tree.EffectiveNodeCount, tree.NodeCount)
	assert.Equal(t, int64(-1), tree.ParentOf(3))
	assert.Equal(t, int64(-1), tree.ParentOf(4))
}

func TestPrim_StopsWhenFlagStops(t *testing.T) {
	tree, err := Prim(chain(t), 0, Minimum, termination.StopAfter(1))
	require.NoError(t, err)
	assert.Equal(t, int64(2), tree.EffectiveNodeCount)
	assert.Equal(t, int64(1), tree.EdgeCount())
	assert.Equal(t, int64(-1), tree.ParentOf(2), "discovered but not added")
	assert.True(t, tree.Cancelled)
}

func TestPrim_StopAfterLastNodeIsNotCancelled(t *testing.T) {
	// five polls, the last one after the queue ran empty
	tree, err := Prim(chain(t), 0, Minimum, termination.StopAfter(4))
	require.NoError(t, err)
	assert.Equal(t, int64(5), tree.EffectiveNodeCount)
	assert.False(t, tree.Cancelled)
}

func TestPrim_InvalidStart(t *testing.T) {
	_, err := Prim(chain(t), 5, Minimum, nil)
	assert.True(t, apperrors.IsInvalidConfig(err))
	_, err = Prim(chain(t), -1, Minimum, nil)
	assert.True(t, apperrors.IsInvalidConfig(err))
}

func TestKSpanningTree_CutsHeaviestEdge(t *testing.T) {
	tree, err := KSpanningTree(chain(t), 0, 2, Minimum, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), roots(tree))
	assert.Equal(t, int64(-1), tree.ParentOf(2), "B-C carries the unique heaviest weight")
	assert.Equal(t, 6.0, tree.TotalWeight)
}

func TestKSpanningTree_Roots(t *testing.T) {
	tree, err := KSpanningTree(chain(t), 0, 2, Minimum, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 0, 2, 2, 2}, tree.Roots().ToSlice())

	g, err := graph.FromEdges(4, true, graph.Edge{Source: 0, Target: 1, Weight: 1})
	require.NoError(t, err)
	partial, err := Prim(g, 1, Minimum, nil)
	require.NoError(t, err)
	assert.True(t, partial.Contains(0))
	assert.False(t, partial.Contains(2))
	assert.Equal(t, []int64{1, 1, -1, -1}, partial.Roots().ToSlice())
}

func TestKSpanningTree_RootCount(t *testing.T) {
	g := randomConnected(t, 200, 400, 11)
	for _, k := range []int64{1, 2, 5, 17} {
		tree, err := KSpanningTree(g, 0, k, Minimum, nil)
		require.NoError(t, err)
		assert.Equal(t, k, roots(tree), "k=%d", k)
		assert.Equal(t, g.NodeCount()-k, tree.EdgeCount())
	}
}

func TestKSpanningTree_MaximumCutsLightest(t *testing.T) {
	tree, err := KSpanningTree(chain(t), 0, 2, Maximum, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), roots(tree))
	assert.Equal(t, int64(-1), tree.ParentOf(4), "D-E is the lightest edge")
	assert.Equal(t, 10.0, tree.TotalWeight)
}

func TestKSpanningTree_LargeKCutsEverything(t *testing.T) {
	tree, err := KSpanningTree(chain(t), 0, 100, Minimum, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), roots(tree))
	assert.Zero(t, tree.TotalWeight)
}

func TestKSpanningTree_InvalidK(t *testing.T) {
	_, err := KSpanningTree(chain(t), 0, 0, Minimum, nil)
	assert.True(t, apperrors.IsInvalidConfig(err))
}

func TestParseObjective(t *testing.T) {
	o, err := ParseObjective("max")
	require.NoError(t, err)
	assert.Equal(t, Maximum, o)
	o, err = ParseObjective("")
	require.NoError(t, err)
	assert.Equal(t, Minimum, o)
	_, err = ParseObjective("median")
	assert.True(t, apperrors.IsInvalidConfig(err))
}
