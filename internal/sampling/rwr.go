package sampling

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"sync/atomic"

	"github.com/graph-analytics/pkg/collections"
	apperrors "github.com/graph-analytics/pkg/errors"
	"github.com/graph-analytics/pkg/graph"
	"github.com/graph-analytics/pkg/huge"
	"github.com/graph-analytics/pkg/parallel"
	"github.com/graph-analytics/pkg/partition"
	"github.com/graph-analytics/pkg/termination"
)

const (
	// QualityMomentum weighs a start node's previous quality against the
	// quality of its latest walk.
	QualityMomentum = 0.9

	// QualityThresholdBase is divided by concurrency squared to give the
	// quality below which walkers look for new start nodes.
	QualityThresholdBase = 0.05

	// MaxWalksPerStart is the number of consecutive walks a walker makes
	// from one start node while its quality holds.
	MaxWalksPerStart = 100

	DefaultRestartProbability = 0.1
	DefaultSamplingRatio      = 0.15
)

// RWRConfig configures random walk with restarts sampling.
type RWRConfig struct {
	Concurrency int
	// SamplingRatio is the share of nodes to sample, in (0, 1].
	SamplingRatio float64
	// RestartProbability is the chance of jumping back to the start node
	// after each step, in (0, 1).
	RestartProbability float64
	// StartNodes are original ids. Empty means one random start node.
	StartNodes []int64
	Seed       int64
	// Weighted picks neighbours proportional to relationship weight.
	Weighted bool
}

// DefaultRWRConfig returns the default sampling configuration.
func DefaultRWRConfig() RWRConfig {
	return RWRConfig{
		Concurrency:        4,
		SamplingRatio:      DefaultSamplingRatio,
		RestartProbability: DefaultRestartProbability,
	}
}

// Validate checks the configuration.
func (c RWRConfig) Validate() error {
	if c.Concurrency <= 0 {
		return apperrors.InvalidConfig("concurrency must be positive, got %d", c.Concurrency)
	}
	if !(c.SamplingRatio > 0 && c.SamplingRatio <= 1) {
		return apperrors.InvalidConfig("sampling ratio must be in (0, 1], got %v", c.SamplingRatio)
	}
	if !(c.RestartProbability > 0 && c.RestartProbability < 1) {
		return apperrors.InvalidConfig("restart probability must be in (0, 1), got %v", c.RestartProbability)
	}
	return nil
}

// Sample is a sampled node set and the relationships it induces.
type Sample struct {
	// Nodes holds the sampled mapped node ids.
	Nodes             *collections.AtomicHugeBitset
	NodeCount         int64
	RelationshipCount int64
	// StartNodesUsed are the original ids walks started from, ascending.
	StartNodesUsed []int64
	Cancelled      bool
}

// Contains reports whether a mapped node id was sampled.
func (s *Sample) Contains(node int64) bool {
	return s.Nodes.Get(node)
}

// RandomWalkWithRestarts samples a subgraph by walking from start nodes,
// jumping back to the start with a fixed probability, until enough distinct
// nodes are seen.
type RandomWalkWithRestarts struct {
	g      graph.Graph
	config RWRConfig
	opts   options
}

// NewRandomWalkWithRestarts validates config and creates a sampler.
func NewRandomWalkWithRestarts(g graph.Graph, config RWRConfig, opts ...Option) (*RandomWalkWithRestarts, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &RandomWalkWithRestarts{g: g, config: config, opts: buildOptions(config.Concurrency, opts)}, nil
}

// Compute runs the walkers and returns the sample. Cancellation returns the
// nodes sampled so far with Cancelled set.
func (r *RandomWalkWithRestarts) Compute(ctx context.Context) (*Sample, error) {
	nodeCount := r.g.NodeCount()
	sample := &Sample{Nodes: collections.NewAtomicHugeBitset(nodeCount), StartNodesUsed: []int64{}}
	expected := int64(math.Round(float64(nodeCount) * r.config.SamplingRatio))
	if nodeCount == 0 || expected == 0 {
		return sample, nil
	}

	startSampler, err := r.startNodeSampler()
	if err != nil {
		return nil, err
	}
	defer startSampler.Release()

	starts, err := r.initialStartNodes(startSampler)
	if err != nil {
		return nil, err
	}

	flag := termination.Any(termination.FromContext(ctx), r.opts.flag)
	seen := &seenNodes{bits: sample.Nodes, expected: expected}
	used := collections.NewAtomicHugeBitset(nodeCount)
	defer used.Release()

	var totalWeights *huge.AtomicDoubleArray
	if r.config.Weighted {
		totalWeights = huge.NewAtomicDoubleArray(nodeCount)
		for n := int64(0); n < nodeCount; n++ {
			totalWeights.Set(n, -1)
		}
	}

	var stopped atomic.Bool
	r.opts.tracker.BeginSubTask(expected)
	tasks := make([]parallel.Task, r.config.Concurrency)
	threshold := QualityThresholdBase / float64(r.config.Concurrency*r.config.Concurrency)
	for i := range tasks {
		w := &rwrWalker{
			g:            r.g,
			rng:          rand.New(rand.NewSource(r.config.Seed + int64(i))),
			restart:      r.config.RestartProbability,
			threshold:    threshold,
			seen:         seen,
			used:         used,
			flag:         flag,
			starts:       startSampler,
			qualities:    newWalkQualities(starts),
			totalWeights: totalWeights,
			progress:     r.opts.tracker.LogProgress,
			stopped:      &stopped,
		}
		tasks[i] = func(context.Context) error {
			w.run()
			return nil
		}
	}
	stats, err := r.opts.pool.Run(ctx, flag, tasks)
	r.opts.tracker.EndSubTask()
	if err != nil {
		return nil, err
	}

	sample.NodeCount = sample.Nodes.Cardinality()
	sample.Cancelled = !seen.enough() && (stopped.Load() || stats.Skipped > 0)
	used.Iterate(func(n int64) bool {
		sample.StartNodesUsed = append(sample.StartNodesUsed, r.g.ToOriginalNodeID(n))
		return true
	})
	sort.Slice(sample.StartNodesUsed, func(i, j int) bool { return sample.StartNodesUsed[i] < sample.StartNodesUsed[j] })

	rels, complete, err := r.inducedRelationships(ctx, sample.Nodes)
	if err != nil {
		return nil, err
	}
	sample.RelationshipCount = rels
	if !complete {
		sample.Cancelled = true
	}

	r.opts.logger.Debug("rwr sampled %d of %d nodes from %d start nodes, %d relationships",
		sample.NodeCount, nodeCount, len(sample.StartNodesUsed), rels)
	return sample, nil
}

// startNodeSampler weighs nodes by degree plus one so that isolated nodes
// can still be drawn.
func (r *RandomWalkWithRestarts) startNodeSampler() (*CircularSampler, error) {
	weights := huge.NewDoubleArray(r.g.NodeCount())
	defer weights.Release()
	weights.SetAll(func(n int64) float64 { return float64(r.g.Degree(n) + 1) })
	return NewCircularSampler(weights)
}

func (r *RandomWalkWithRestarts) initialStartNodes(sampler *CircularSampler) ([]int64, error) {
	if len(r.config.StartNodes) == 0 {
		rng := rand.New(rand.NewSource(r.config.Seed))
		node, _ := sampler.SampleExcluding(rng, nil)
		return []int64{node}, nil
	}
	starts := make([]int64, 0, len(r.config.StartNodes))
	for _, original := range r.config.StartNodes {
		node := r.g.ToMappedNodeID(original)
		if node < 0 {
			return nil, apperrors.InvalidConfig("start node %d is not in the graph", original)
		}
		starts = append(starts, node)
	}
	return starts, nil
}

// inducedRelationships counts relationships with both ends sampled, one
// task per node range. complete is false when cancellation skipped ranges
// and the count is partial.
func (r *RandomWalkWithRestarts) inducedRelationships(ctx context.Context, nodes *collections.AtomicHugeBitset) (count int64, complete bool, err error) {
	var total atomic.Int64
	partitions := partition.RangePartition(r.g.NodeCount(), r.config.Concurrency, partition.DefaultBatchSize)
	tasks := make([]parallel.Task, len(partitions))
	for i, p := range partitions {
		tasks[i] = func(context.Context) error {
			var local int64
			for n := p.StartNode; n < p.EndNode(); n++ {
				if !nodes.Get(n) {
					continue
				}
				r.g.ForEachRelationship(n, func(_, target int64, _ float64) bool {
					if nodes.Get(target) {
						local++
					}
					return true
				})
			}
			total.Add(local)
			return nil
		}
	}
	stats, err := r.opts.pool.Run(ctx, termination.AlwaysRunning, tasks)
	if err != nil {
		return 0, false, err
	}
	return total.Load(), stats.Skipped == 0, nil
}

// ============================================================================
// Walker state
// ============================================================================

type seenNodes struct {
	bits     *collections.AtomicHugeBitset
	count    atomic.Int64
	expected int64
}

// add marks node seen and reports whether it was new.
func (s *seenNodes) add(node int64) bool {
	if s.bits.GetAndSet(node) {
		return false
	}
	s.count.Add(1)
	return true
}

func (s *seenNodes) enough() bool {
	return s.count.Load() >= s.expected
}

// walkQualities tracks, per start node, an exponential average of the share
// of new nodes its walks discover.
type walkQualities struct {
	nodes        []int64
	qualities    []float64
	index        map[int64]int
	sum          float64
	sumOfSquares float64
}

func newWalkQualities(starts []int64) *walkQualities {
	q := &walkQualities{index: make(map[int64]int, len(starts))}
	for _, n := range starts {
		q.add(n)
	}
	return q
}

func (q *walkQualities) size() int {
	return len(q.nodes)
}

func (q *walkQualities) contains(node int64) bool {
	_, ok := q.index[node]
	return ok
}

// add registers node with quality 1 unless it is already present.
func (q *walkQualities) add(node int64) bool {
	if q.contains(node) {
		return false
	}
	q.index[node] = len(q.nodes)
	q.nodes = append(q.nodes, node)
	q.qualities = append(q.qualities, 1)
	q.sum++
	q.sumOfSquares++
	return true
}

func (q *walkQualities) update(i int, walkQuality float64) {
	prev := q.qualities[i]
	next := QualityMomentum*prev + (1-QualityMomentum)*walkQuality
	q.qualities[i] = next
	q.sum += next - prev
	q.sumOfSquares += next*next - prev*prev
}

// remove drops the i-th start node, moving the last one into its slot.
func (q *walkQualities) remove(i int) {
	prev := q.qualities[i]
	q.sum -= prev
	q.sumOfSquares -= prev * prev
	delete(q.index, q.nodes[i])

	last := len(q.nodes) - 1
	if i != last {
		q.nodes[i] = q.nodes[last]
		q.qualities[i] = q.qualities[last]
		q.index[q.nodes[i]] = i
	}
	q.nodes = q.nodes[:last]
	q.qualities = q.qualities[:last]
	if last == 0 {
		q.sum, q.sumOfSquares = 0, 0
	}
}

// expectedQuality is the quality of a start node drawn proportional to its
// own quality.
func (q *walkQualities) expectedQuality() float64 {
	if q.sum <= 0 {
		return 0
	}
	return q.sumOfSquares / q.sum
}

type rwrWalker struct {
	g            graph.Graph
	rng          *rand.Rand
	restart      float64
	threshold    float64
	seen         *seenNodes
	used         *collections.AtomicHugeBitset
	flag         termination.Flag
	starts       *CircularSampler
	qualities    *walkQualities
	totalWeights *huge.AtomicDoubleArray
	progress     func(int64)
	// stopped is set when the walker quit on the termination flag.
	stopped *atomic.Bool
}

func (w *rwrWalker) run() {
	if w.qualities.size() == 0 {
		return
	}
	idx := 0
	current := w.qualities.nodes[idx]
	w.used.Set(current)
	walksLeft := MaxWalksPerStart
	var added, considered int64

	for !w.seen.enough() {
		if w.seen.add(current) {
			added++
		}
		considered++

		if w.g.Degree(current) > 0 && w.rng.Float64() >= w.restart {
			current = w.nextNode(current)
			continue
		}

		// walk ended
		w.qualities.update(idx, float64(added)/float64(considered))
		w.progress(added)
		added, considered = 0, 0
		if !w.flag.Running() {
			w.stopped.Store(true)
			return
		}

		if walksLeft > 0 && w.qualities.qualities[idx] > w.threshold {
			walksLeft--
			current = w.qualities.nodes[idx]
			continue
		}

		if w.qualities.qualities[idx] < 1.0/MaxWalksPerStart {
			w.qualities.remove(idx)
		}
		if w.qualities.expectedQuality() < w.threshold {
			if node, ok := w.starts.SampleExcluding(w.rng, w.qualities.contains); ok {
				w.qualities.add(node)
			}
		}
		if w.qualities.size() == 0 {
			return
		}

		idx = w.rng.Intn(w.qualities.size())
		current = w.qualities.nodes[idx]
		w.used.Set(current)
		walksLeft = MaxWalksPerStart
	}
}

func (w *rwrWalker) nextNode(current int64) int64 {
	if w.totalWeights != nil {
		if next, ok := w.weightedNeighbour(current); ok {
			return next
		}
	}
	return nthNeighbour(w.g, current, w.rng.Int63n(w.g.Degree(current)))
}

func (w *rwrWalker) weightedNeighbour(current int64) (int64, bool) {
	total := w.totalWeights.Get(current)
	if total < 0 {
		total = 0
		w.g.ForEachRelationship(current, func(_, _ int64, weight float64) bool {
			total += weight
			return true
		})
		w.totalWeights.Set(current, total)
	}
	if total <= 0 {
		return -1, false
	}
	return weightedNeighbour(w.g, current, w.rng.Float64()*total), true
}

// nthNeighbour returns the target of current's k-th relationship.
func nthNeighbour(g graph.Graph, current, k int64) int64 {
	next := int64(-1)
	var i int64
	g.ForEachRelationship(current, func(_, target int64, _ float64) bool {
		if i == k {
			next = target
			return false
		}
		i++
		return true
	})
	return next
}

// weightedNeighbour returns the target whose cumulative weight first
// exceeds mass.
func weightedNeighbour(g graph.Graph, current int64, mass float64) int64 {
	next := int64(-1)
	remaining := mass
	g.ForEachRelationship(current, func(_, target int64, weight float64) bool {
		next = target
		remaining -= weight
		return remaining >= 0
	})
	return next
}
