package algorithm

import (
	"context"

	apperrors "github.com/graph-analytics/pkg/errors"
	"github.com/graph-analytics/pkg/graph"
	"github.com/graph-analytics/pkg/model"
	"github.com/graph-analytics/pkg/utils"
)

// Registry routes run requests to algorithm adapters.
type Registry struct {
	algorithms map[model.AlgorithmKind]Algorithm
	clock      utils.Clock
}

// NewRegistry creates a registry holding an adapter for every kind in
// model.Kinds.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		algorithms: make(map[model.AlgorithmKind]Algorithm),
		clock:      newEnv(opts).clock,
	}
	r.Register(NewK1Coloring(opts...))
	r.Register(NewLabelPropagation(opts...))
	r.Register(NewPrim(opts...))
	r.Register(NewKSpanningTree(opts...))
	r.Register(NewRandomWalkWithRestarts(opts...))
	r.Register(NewRandomWalks(opts...))
	return r
}

// Register adds or replaces the adapter for its kind.
func (r *Registry) Register(a Algorithm) {
	r.algorithms[a.Kind()] = a
}

// Get returns the adapter for kind.
func (r *Registry) Get(kind model.AlgorithmKind) (Algorithm, error) {
	a, ok := r.algorithms[kind]
	if !ok {
		return nil, apperrors.Newf(apperrors.CodeUnsupportedAlgorithm, "unsupported algorithm %q", kind)
	}
	return a, nil
}

// Kinds lists the registered kinds in model.Kinds order.
func (r *Registry) Kinds() []model.AlgorithmKind {
	var kinds []model.AlgorithmKind
	for _, k := range model.Kinds() {
		if _, ok := r.algorithms[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Run dispatches req to its adapter and stamps the run id and duration on
// the result.
func (r *Registry) Run(ctx context.Context, g graph.Graph, req *model.RunRequest) (*model.RunResult, error) {
	a, err := r.Get(req.Kind)
	if err != nil {
		return nil, err
	}
	start := r.clock.Now()
	result, err := a.Run(ctx, g, req)
	if err != nil {
		return nil, err
	}
	result.RunID = req.RunID
	result.Duration = r.clock.Since(start)
	return result, nil
}
