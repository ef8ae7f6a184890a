package sampling

import (
	"context"
	"math"
	"math/rand"
	"sync/atomic"

	apperrors "github.com/graph-analytics/pkg/errors"
	"github.com/graph-analytics/pkg/graph"
	"github.com/graph-analytics/pkg/parallel"
	"github.com/graph-analytics/pkg/termination"
)

const (
	DefaultWalkLength     = 80
	DefaultWalksPerNode   = 10
	DefaultWalkBufferSize = 1000
)

// WalkConfig configures streamed random walks.
type WalkConfig struct {
	Concurrency  int
	WalkLength   int
	WalksPerNode int
	// BufferSize bounds the number of finished walks waiting for the
	// consumer.
	BufferSize int
	// SourceNodes are original ids. Empty means every node.
	SourceNodes []int64
	Seed        int64
	// ReturnFactor and InOutFactor bias second-order walks: a high
	// ReturnFactor discourages stepping back, a high InOutFactor keeps the
	// walk near its previous node. 1 and 1 give a plain random walk.
	ReturnFactor float64
	InOutFactor  float64
	Weighted     bool
}

// DefaultWalkConfig returns the default walk configuration.
func DefaultWalkConfig() WalkConfig {
	return WalkConfig{
		Concurrency:  4,
		WalkLength:   DefaultWalkLength,
		WalksPerNode: DefaultWalksPerNode,
		BufferSize:   DefaultWalkBufferSize,
		ReturnFactor: 1,
		InOutFactor:  1,
	}
}

// Validate checks the configuration.
func (c WalkConfig) Validate() error {
	switch {
	case c.Concurrency <= 0:
		return apperrors.InvalidConfig("concurrency must be positive, got %d", c.Concurrency)
	case c.WalkLength <= 0:
		return apperrors.InvalidConfig("walk length must be positive, got %d", c.WalkLength)
	case c.WalksPerNode <= 0:
		return apperrors.InvalidConfig("walks per node must be positive, got %d", c.WalksPerNode)
	case c.BufferSize <= 0:
		return apperrors.InvalidConfig("buffer size must be positive, got %d", c.BufferSize)
	case !(c.ReturnFactor > 0) || !(c.InOutFactor > 0):
		return apperrors.InvalidConfig("return and in-out factors must be positive, got %v and %v", c.ReturnFactor, c.InOutFactor)
	}
	return nil
}

// RandomWalks produces walks of original node ids from every source node.
// Each source node's walks use a generator seeded with Seed plus its mapped
// id, so the set of walks does not depend on Concurrency.
type RandomWalks struct {
	g       graph.Graph
	config  WalkConfig
	opts    options
	sources []int64
}

// NewRandomWalks validates config and creates a walk producer.
func NewRandomWalks(g graph.Graph, config WalkConfig, opts ...Option) (*RandomWalks, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	var sources []int64
	for _, original := range config.SourceNodes {
		node := g.ToMappedNodeID(original)
		if node < 0 {
			return nil, apperrors.InvalidConfig("source node %d is not in the graph", original)
		}
		sources = append(sources, node)
	}
	return &RandomWalks{g: g, config: config, opts: buildOptions(config.Concurrency, opts), sources: sources}, nil
}

// WalkStream hands walks from the producers to one consumer.
type WalkStream struct {
	walks   chan []int64
	done    chan struct{}
	err     error
	stopped atomic.Bool
}

// Walks returns the channel of finished walks. It is closed once every
// producer has stopped. The consumer must drain it or cancel the context
// passed to Stream.
func (s *WalkStream) Walks() <-chan []int64 {
	return s.walks
}

// Err waits for the producers and returns the first failure.
func (s *WalkStream) Err() error {
	<-s.done
	return s.err
}

// Stopped waits for the producers and reports whether they quit before
// every walk was produced.
func (s *WalkStream) Stopped() bool {
	<-s.done
	return s.stopped.Load()
}

// Stream starts the producers. Cancellation stops them at the next walk
// boundary and closes the channel without an error.
func (r *RandomWalks) Stream(ctx context.Context) *WalkStream {
	s := &WalkStream{
		walks: make(chan []int64, r.config.BufferSize),
		done:  make(chan struct{}),
	}
	flag := termination.Any(termination.FromContext(ctx), r.opts.flag)

	total := r.g.NodeCount()
	if r.sources != nil {
		total = int64(len(r.sources))
	}
	var cursor atomic.Int64
	nextSource := func() int64 {
		i := cursor.Add(1) - 1
		if i >= total {
			return -1
		}
		if r.sources != nil {
			return r.sources[i]
		}
		return i
	}

	bias := newWalkBias(r.config.ReturnFactor, r.config.InOutFactor)
	tasks := make([]parallel.Task, r.config.Concurrency)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) error {
			for node := nextSource(); node >= 0; node = nextSource() {
				if !r.walkFrom(ctx, flag, bias, node, s.walks) {
					s.stopped.Store(true)
					return nil
				}
				r.opts.tracker.LogProgress(1)
			}
			return nil
		}
	}

	r.opts.tracker.BeginSubTask(total)
	go func() {
		defer close(s.done)
		defer close(s.walks)
		defer r.opts.tracker.EndSubTask()
		var stats parallel.RunStats
		stats, s.err = r.opts.pool.Run(ctx, flag, tasks)
		if stats.Skipped > 0 {
			s.stopped.Store(true)
		}
	}()
	return s
}

// walkFrom emits WalksPerNode walks from node and reports whether the
// producer should keep going.
func (r *RandomWalks) walkFrom(ctx context.Context, flag termination.Flag, bias walkBias, node int64, out chan<- []int64) bool {
	if r.g.Degree(node) == 0 {
		return true
	}
	rng := rand.New(rand.NewSource(r.config.Seed + node))
	for w := 0; w < r.config.WalksPerNode; w++ {
		if !flag.Running() {
			return false
		}
		walk := r.walk(rng, bias, node)
		select {
		case out <- walk:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// walk returns up to WalkLength original ids, ending early at a node
// without relationships.
func (r *RandomWalks) walk(rng *rand.Rand, bias walkBias, start int64) []int64 {
	walk := make([]int64, 1, r.config.WalkLength)
	walk[0] = r.g.ToOriginalNodeID(start)

	prev, current := int64(-1), start
	for len(walk) < r.config.WalkLength {
		if r.g.Degree(current) == 0 {
			break
		}
		var next int64
		if prev < 0 || bias.plain {
			next = r.neighbour(rng, current)
		} else {
			next = r.biasedNeighbour(rng, bias, prev, current)
		}
		walk = append(walk, r.g.ToOriginalNodeID(next))
		prev, current = current, next
	}
	return walk
}

func (r *RandomWalks) neighbour(rng *rand.Rand, current int64) int64 {
	if r.config.Weighted {
		var total float64
		r.g.ForEachRelationship(current, func(_, _ int64, weight float64) bool {
			total += weight
			return true
		})
		if total > 0 {
			return weightedNeighbour(r.g, current, rng.Float64()*total)
		}
	}
	return nthNeighbour(r.g, current, rng.Int63n(r.g.Degree(current)))
}

// biasedNeighbour draws candidates and accepts one with the probability its
// distance from prev allows, taking the last draw after MaxResampleAttempts.
func (r *RandomWalks) biasedNeighbour(rng *rand.Rand, bias walkBias, prev, current int64) int64 {
	var candidate int64
	for attempt := 0; attempt < MaxResampleAttempts; attempt++ {
		candidate = r.neighbour(rng, current)
		accept := bias.inOut
		switch {
		case candidate == prev:
			accept = bias.back
		case isNeighbour(r.g, prev, candidate):
			accept = bias.same
		}
		if rng.Float64() < accept {
			return candidate
		}
	}
	return candidate
}

func isNeighbour(g graph.Graph, node, other int64) bool {
	found := false
	g.ForEachRelationship(node, func(_, target int64, _ float64) bool {
		found = target == other
		return !found
	})
	return found
}

// walkBias holds acceptance probabilities for a step back to the previous
// node, to a common neighbour and further out.
type walkBias struct {
	back, same, inOut float64
	plain             bool
}

func newWalkBias(returnFactor, inOutFactor float64) walkBias {
	back, inOut := 1/returnFactor, 1/inOutFactor
	m := math.Max(math.Max(back, inOut), 1)
	return walkBias{
		back:  back / m,
		same:  1 / m,
		inOut: inOut / m,
		plain: returnFactor == 1 && inOutFactor == 1,
	}
}
