package graph

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/graph-analytics/pkg/errors"
)

func TestLoadEdgeList(t *testing.T) {
	input := `# a small graph
1 2 0.5
2	3

3 1 2.5
7
`
	g, err := LoadEdgeList(strings.NewReader(input), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), g.NodeCount())
	assert.Equal(t, int64(3), g.RelationshipCount())
	assert.Equal(t, int64(0), g.Degree(g.ToMappedNodeID(7)))

	var w float64
	g.ForEachRelationship(g.ToMappedNodeID(2), func(_, _ int64, weight float64) bool {
		w = weight
		return false
	})
	assert.Equal(t, DefaultWeight, w)
}

func TestLoadEdgeList_PercentComments(t *testing.T) {
	g, err := LoadEdgeList(strings.NewReader("% source target\n%\n1 2\n"), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), g.NodeCount())
	assert.Equal(t, int64(1), g.RelationshipCount())
}

func TestLoadEdgeList_UndirectedAndDefaultWeight(t *testing.T) {
	g, err := LoadEdgeList(strings.NewReader("0 1\n1 2\n"), LoadOptions{Undirected: true, DefaultWeight: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(4), g.RelationshipCount())
	g.ForEachRelationship(1, func(_, _ int64, w float64) bool {
		assert.Equal(t, 3.0, w)
		return true
	})
}

func TestLoadEdgeList_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  string
	}{
		{"bad source", "1 2\nx 2\n", "line 2"},
		{"bad target", "1 y\n", "line 1"},
		{"bad weight", "1 2\n# c\n2 3 heavy\n", "line 3"},
		{"too many columns", "1 2 3 4\n", "line 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadEdgeList(strings.NewReader(tt.input), LoadOptions{})
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeParseError, apperrors.GetErrorCode(err))
			assert.Contains(t, err.Error(), tt.line)
		})
	}
}

func TestLoadEdgeListFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edges.txt")
	require.NoError(t, os.WriteFile(path, []byte("5 6 1\n"), 0o644))

	g, err := LoadEdgeListFile(path, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), g.NodeCount())

	_, err = LoadEdgeListFile(filepath.Join(t.TempDir(), "missing.txt"), LoadOptions{})
	assert.True(t, apperrors.IsNotFound(err))
}
