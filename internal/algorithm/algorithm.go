// Package algorithm adapts every runnable algorithm to one Run signature so
// the service can dispatch on model.AlgorithmKind.
package algorithm

import (
	"context"
	"iter"

	"github.com/graph-analytics/internal/spanningtree"
	"github.com/graph-analytics/pkg/engine"
	"github.com/graph-analytics/pkg/graph"
	"github.com/graph-analytics/pkg/huge"
	"github.com/graph-analytics/pkg/model"
	"github.com/graph-analytics/pkg/partition"
	"github.com/graph-analytics/pkg/progress"
	"github.com/graph-analytics/pkg/termination"
	"github.com/graph-analytics/pkg/utils"
)

// DefaultConcurrency applies when a request leaves Concurrency at zero.
const DefaultConcurrency = 4

// Algorithm runs one algorithm kind over a loaded graph. Rows of the result
// carry original node ids.
type Algorithm interface {
	Kind() model.AlgorithmKind
	Run(ctx context.Context, g graph.Graph, req *model.RunRequest) (*model.RunResult, error)
}

// ============================================================================
// Options
// ============================================================================

// Option configures the registry and every adapter it creates.
type Option func(*env)

type env struct {
	logger  utils.Logger
	tracker progress.Tracker
	flag    termination.Flag
	clock   utils.Clock
}

// WithLogger sets the logger handed to the algorithms.
func WithLogger(logger utils.Logger) Option {
	return func(e *env) { e.logger = utils.OrNull(logger) }
}

// WithProgress sets the progress tracker handed to the algorithms.
func WithProgress(tracker progress.Tracker) Option {
	return func(e *env) { e.tracker = progress.OrNull(tracker) }
}

// WithTermination adds a flag polled next to the run context.
func WithTermination(flag termination.Flag) Option {
	return func(e *env) {
		if flag != nil {
			e.flag = flag
		}
	}
}

// WithClock sets the clock run durations are measured with.
func WithClock(clock utils.Clock) Option {
	return func(e *env) {
		if clock != nil {
			e.clock = clock
		}
	}
}

func newEnv(opts []Option) env {
	e := env{
		logger:  &utils.NullLogger{},
		tracker: progress.NullTracker{},
		flag:    termination.AlwaysRunning,
		clock:   utils.NewRealClock(),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// runFlag combines the run context with the configured flag.
func (e env) runFlag(ctx context.Context) termination.Flag {
	return termination.Any(termination.FromContext(ctx), e.flag)
}

func (e env) engineOptions(ctx context.Context) []engine.Option {
	return []engine.Option{
		engine.WithLogger(e.logger),
		engine.WithProgress(e.tracker),
		engine.WithTermination(e.runFlag(ctx)),
	}
}

// ============================================================================
// Helpers
// ============================================================================

func concurrencyOf(req *model.RunRequest) int {
	if req.Concurrency > 0 {
		return req.Concurrency
	}
	return DefaultConcurrency
}

func engineConfig(req *model.RunRequest) engine.Config {
	config := engine.DefaultConfig()
	config.Concurrency = concurrencyOf(req)
	if req.MaxIterations > 0 {
		config.MaxIterations = req.MaxIterations
	}
	if req.MinBatchSize > 0 {
		config.MinBatchSize = req.MinBatchSize
	} else {
		config.MinBatchSize = partition.DefaultBatchSize
	}
	return config
}

// iterativeStatus maps the terminal state of a driver run to a run status.
func iterativeStatus(state engine.State) model.RunStatus {
	switch state {
	case engine.StateConverged:
		return model.StatusConverged
	case engine.StateCancelled:
		return model.StatusCancelled
	default:
		return model.StatusMaxIterations
	}
}

func traversalStatus(tree *spanningtree.SpanningTree) model.RunStatus {
	if tree.Cancelled {
		return model.StatusCancelled
	}
	return model.StatusCompleted
}

func newResult(kind model.AlgorithmKind, g graph.Graph) *model.RunResult {
	result := model.NewRunResult(kind)
	result.NodeCount = g.NodeCount()
	result.RelationshipCount = g.RelationshipCount()
	return result
}

// longRows yields one row per node with its value from values.
func longRows(g graph.Graph, values *huge.LongArray) iter.Seq[model.NodeValue] {
	return func(yield func(model.NodeValue) bool) {
		for n := int64(0); n < g.NodeCount(); n++ {
			if !yield(model.NodeValue{Node: g.ToOriginalNodeID(n), Value: values.Get(n)}) {
				return
			}
		}
	}
}

// originalValues translates mapped node ids held in values to original ids,
// keeping negative entries.
func originalValues(g graph.Graph, values *huge.LongArray) *huge.LongArray {
	out := huge.NewLongArray(values.Size())
	out.SetAll(func(n int64) int64 {
		if v := values.Get(n); v >= 0 {
			return g.ToOriginalNodeID(v)
		}
		return -1
	})
	return out
}
