package algorithm

import (
	"context"

	"github.com/graph-analytics/internal/community/k1coloring"
	"github.com/graph-analytics/internal/community/labelprop"
	"github.com/graph-analytics/pkg/graph"
	"github.com/graph-analytics/pkg/model"
)

// K1Coloring adapts k1coloring. Each row holds a node's color.
type K1Coloring struct {
	env env
}

// NewK1Coloring creates the adapter.
func NewK1Coloring(opts ...Option) *K1Coloring {
	return &K1Coloring{env: newEnv(opts)}
}

// Kind implements Algorithm.
func (a *K1Coloring) Kind() model.AlgorithmKind {
	return model.KindK1Coloring
}

// Run implements Algorithm.
func (a *K1Coloring) Run(ctx context.Context, g graph.Graph, req *model.RunRequest) (*model.RunResult, error) {
	res, err := k1coloring.New(g, engineConfig(req), a.env.engineOptions(ctx)...).Compute(ctx)
	if err != nil {
		return nil, err
	}

	result := newResult(a.Kind(), g)
	result.RanIterations = res.RanIterations
	result.DidConverge = res.DidConverge
	result.Status = iterativeStatus(res.State)
	result.SetStat("colors", float64(res.UsedColors))
	result.Rows = longRows(g, res.Colors)

	a.env.logger.WithField("kind", a.Kind()).Debug("coloring used %d colors in %d iterations", res.UsedColors, res.RanIterations)
	return result, nil
}

// LabelPropagation adapts labelprop. Each row holds a node's community
// label, the original id of the node whose label won.
type LabelPropagation struct {
	env env
}

// NewLabelPropagation creates the adapter.
func NewLabelPropagation(opts ...Option) *LabelPropagation {
	return &LabelPropagation{env: newEnv(opts)}
}

// Kind implements Algorithm.
func (a *LabelPropagation) Kind() model.AlgorithmKind {
	return model.KindLabelProp
}

// Run implements Algorithm.
func (a *LabelPropagation) Run(ctx context.Context, g graph.Graph, req *model.RunRequest) (*model.RunResult, error) {
	config := labelprop.Config{Config: engineConfig(req)}
	res, err := labelprop.New(g, config, a.env.engineOptions(ctx)...).Compute(ctx)
	if err != nil {
		return nil, err
	}

	result := newResult(a.Kind(), g)
	result.RanIterations = res.RanIterations
	result.DidConverge = res.DidConverge
	result.Status = iterativeStatus(res.State)
	result.SetStat("communities", float64(res.Communities))
	result.Rows = longRows(g, originalValues(g, res.Labels))

	a.env.logger.WithField("kind", a.Kind()).Debug("found %d communities in %d iterations", res.Communities, res.RanIterations)
	return result, nil
}
