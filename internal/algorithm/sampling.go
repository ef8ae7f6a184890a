package algorithm

import (
	"context"
	"iter"
	"sync"

	"github.com/graph-analytics/internal/sampling"
	"github.com/graph-analytics/pkg/graph"
	"github.com/graph-analytics/pkg/model"
)

// Row values of a random walk with restarts sample.
const (
	SampledStart = "start"
	SampledNode  = "sampled"
)

func (e env) samplingOptions(ctx context.Context) []sampling.Option {
	return []sampling.Option{
		sampling.WithLogger(e.logger),
		sampling.WithProgress(e.tracker),
		sampling.WithTermination(e.runFlag(ctx)),
	}
}

// RandomWalkWithRestarts adapts sampling.RandomWalkWithRestarts. Rows list
// the sampled nodes, marked SampledStart for the nodes walks started from.
type RandomWalkWithRestarts struct {
	env env
}

// NewRandomWalkWithRestarts creates the adapter.
func NewRandomWalkWithRestarts(opts ...Option) *RandomWalkWithRestarts {
	return &RandomWalkWithRestarts{env: newEnv(opts)}
}

// Kind implements Algorithm.
func (a *RandomWalkWithRestarts) Kind() model.AlgorithmKind {
	return model.KindRWR
}

func rwrConfig(req *model.RunRequest) sampling.RWRConfig {
	config := sampling.DefaultRWRConfig()
	config.Concurrency = concurrencyOf(req)
	if o := req.Options; o.SamplingRatio > 0 {
		config.SamplingRatio = o.SamplingRatio
	}
	if o := req.Options; o.RestartProbability > 0 {
		config.RestartProbability = o.RestartProbability
	}
	config.StartNodes = req.Options.StartNodes
	config.Seed = req.Options.Seed
	config.Weighted = req.Options.Weighted
	return config
}

// Run implements Algorithm.
func (a *RandomWalkWithRestarts) Run(ctx context.Context, g graph.Graph, req *model.RunRequest) (*model.RunResult, error) {
	sampler, err := sampling.NewRandomWalkWithRestarts(g, rwrConfig(req), a.env.samplingOptions(ctx)...)
	if err != nil {
		return nil, err
	}
	sample, err := sampler.Compute(ctx)
	if err != nil {
		return nil, err
	}

	starts := make(map[int64]struct{}, len(sample.StartNodesUsed))
	for _, s := range sample.StartNodesUsed {
		starts[s] = struct{}{}
	}

	result := newResult(a.Kind(), g)
	result.Status = model.StatusCompleted
	if sample.Cancelled {
		result.Status = model.StatusCancelled
	}
	result.SetStat("sampled_nodes", float64(sample.NodeCount))
	result.SetStat("sampled_relationships", float64(sample.RelationshipCount))
	result.SetStat("start_nodes", float64(len(sample.StartNodesUsed)))
	result.SetStat("seed", float64(req.Options.Seed))
	result.Rows = func(yield func(model.NodeValue) bool) {
		if sample.Nodes == nil {
			return
		}
		sample.Nodes.Iterate(func(n int64) bool {
			original := g.ToOriginalNodeID(n)
			value := SampledNode
			if _, ok := starts[original]; ok {
				value = SampledStart
			}
			return yield(model.NodeValue{Node: original, Value: value})
		})
	}
	return result, nil
}

// RandomWalks adapts the walk stream. Every row is one walk keyed by its
// first node. Walks are produced while the rows are consumed, so the
// caller must call RowsErr on the result.
type RandomWalks struct {
	env env
}

// NewRandomWalks creates the adapter.
func NewRandomWalks(opts ...Option) *RandomWalks {
	return &RandomWalks{env: newEnv(opts)}
}

// Kind implements Algorithm.
func (a *RandomWalks) Kind() model.AlgorithmKind {
	return model.KindRandomWalk
}

func walkConfig(req *model.RunRequest) sampling.WalkConfig {
	config := sampling.DefaultWalkConfig()
	config.Concurrency = concurrencyOf(req)
	o := req.Options
	if o.WalkLength > 0 {
		config.WalkLength = o.WalkLength
	}
	if o.WalksPerNode > 0 {
		config.WalksPerNode = o.WalksPerNode
	}
	if o.BufferSize > 0 {
		config.BufferSize = o.BufferSize
	}
	if o.ReturnFactor > 0 {
		config.ReturnFactor = o.ReturnFactor
	}
	if o.InOutFactor > 0 {
		config.InOutFactor = o.InOutFactor
	}
	config.SourceNodes = o.StartNodes
	config.Seed = o.Seed
	config.Weighted = o.Weighted
	return config
}

// Run implements Algorithm.
func (a *RandomWalks) Run(ctx context.Context, g graph.Graph, req *model.RunRequest) (*model.RunResult, error) {
	config := walkConfig(req)
	walks, err := sampling.NewRandomWalks(g, config, a.env.samplingOptions(ctx)...)
	if err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	stream := walks.Stream(streamCtx)

	result := newResult(a.Kind(), g)
	result.Status = model.StatusCompleted
	result.SetStat("walk_length", float64(config.WalkLength))
	result.SetStat("walks_per_node", float64(config.WalksPerNode))
	result.SetStat("seed", float64(config.Seed))
	result.Rows = walkRows(stream, func(count int64) {
		result.SetStat("walks", float64(count))
	})

	var once sync.Once
	var streamErr error
	result.RowsErr = func() error {
		once.Do(func() {
			cancel()
			streamErr = stream.Err()
			if stream.Stopped() {
				result.Status = model.StatusCancelled
			}
		})
		return streamErr
	}
	return result, nil
}

func walkRows(stream *sampling.WalkStream, done func(count int64)) iter.Seq[model.NodeValue] {
	return func(yield func(model.NodeValue) bool) {
		var count int64
		defer func() { done(count) }()
		for walk := range stream.Walks() {
			count++
			if !yield(model.NodeValue{Node: walk[0], Value: walk}) {
				return
			}
		}
	}
}
