package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/graph-analytics/pkg/errors"
)

func TestParseAlgorithmKind(t *testing.T) {
	tests := []struct {
		input    string
		expected AlgorithmKind
	}{
		{"k1coloring", KindK1Coloring},
		{"LabelProp", KindLabelProp},
		{" prim ", KindPrim},
		{"kspanningtree", KindKSpanningTree},
		{"rwr", KindRWR},
		{"randomwalk", KindRandomWalk},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			kind, err := ParseAlgorithmKind(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, kind)
		})
	}

	_, err := ParseAlgorithmKind("pagerank")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnsupportedAlgorithm, apperrors.GetErrorCode(err))
}

func TestAlgorithmKind_IsIterative(t *testing.T) {
	assert.True(t, KindK1Coloring.IsIterative())
	assert.True(t, KindLabelProp.IsIterative())
	assert.False(t, KindPrim.IsIterative())
	assert.False(t, KindRWR.IsIterative())
}

func TestRunStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusRunning.IsTerminal())
	assert.False(t, RunStatus("").IsTerminal())
	for _, s := range []RunStatus{StatusConverged, StatusMaxIterations, StatusCancelled, StatusCompleted, StatusFailed} {
		assert.True(t, s.IsTerminal(), s)
	}
}

func TestRunRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     RunRequest
		code    string
		wantErr bool
	}{
		{"valid", RunRequest{Kind: KindPrim, Input: "g.txt"}, "", false},
		{"missing input", RunRequest{Kind: KindPrim}, apperrors.CodeInvalidConfig, true},
		{"unknown kind", RunRequest{Kind: "nope", Input: "g.txt"}, apperrors.CodeUnsupportedAlgorithm, true},
		{"negative concurrency", RunRequest{Kind: KindPrim, Input: "g.txt", Concurrency: -1}, apperrors.CodeInvalidConfig, true},
		{"negative iterations", RunRequest{Kind: KindLabelProp, Input: "g.txt", MaxIterations: -2}, apperrors.CodeInvalidConfig, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.GetErrorCode(err))
		})
	}
}

func TestRunResult_StatsAndRows(t *testing.T) {
	r := NewRunResult(KindK1Coloring)
	r.SetStat("colors", 3)
	assert.Equal(t, 3.0, r.Stats["colors"])
	assert.Zero(t, r.CountRows())

	r.Rows = func(yield func(NodeValue) bool) {
		for i := int64(0); i < 4; i++ {
			if !yield(NodeValue{Node: i, Value: i * 2}) {
				return
			}
		}
	}
	assert.Equal(t, int64(4), r.CountRows())

	var empty RunResult
	empty.SetStat("x", 1)
	assert.Equal(t, 1.0, empty.Stats["x"])
	assert.NoError(t, empty.Finish())

	r.RowsErr = func() error { return apperrors.New(apperrors.CodeTaskPanic, "walker failed") }
	assert.Equal(t, apperrors.CodeTaskPanic, apperrors.GetErrorCode(r.Finish()))
}
