// Package spanningtree builds minimum or maximum spanning trees with Prim's
// algorithm and splits them into k trees by cutting their worst edges.
package spanningtree

import (
	"github.com/graph-analytics/pkg/collections"
	apperrors "github.com/graph-analytics/pkg/errors"
	"github.com/graph-analytics/pkg/graph"
	"github.com/graph-analytics/pkg/huge"
	"github.com/graph-analytics/pkg/progress"
	"github.com/graph-analytics/pkg/queue"
	"github.com/graph-analytics/pkg/termination"
)

// Objective selects which edge weights the tree prefers.
type Objective int

const (
	Minimum Objective = iota
	Maximum
)

func (o Objective) String() string {
	if o == Maximum {
		return "max"
	}
	return "min"
}

// ParseObjective maps "min"/"max" to an Objective.
func ParseObjective(s string) (Objective, error) {
	switch s {
	case "", "min", "minimum":
		return Minimum, nil
	case "max", "maximum":
		return Maximum, nil
	default:
		return Minimum, apperrors.InvalidConfig("unknown spanning tree objective %q", s)
	}
}

// better reports whether weight a is preferred over b.
func (o Objective) better(a, b float64) bool {
	if o == Maximum {
		return a > b
	}
	return a < b
}

func (o Objective) newQueue(capacity int64) *queue.IndexedPriorityQueue {
	if o == Maximum {
		return queue.NewMax(capacity)
	}
	return queue.NewMin(capacity)
}

// SpanningTree is a forest stored as parent pointers. Roots and nodes the
// traversal never reached have parent -1.
type SpanningTree struct {
	Head               int64
	NodeCount          int64
	EffectiveNodeCount int64
	Parent             *huge.LongArray
	CostToParent       *huge.DoubleArray
	TotalWeight        float64
	// Reached marks the nodes added to the tree.
	Reached *collections.HugeBitset
	// Cancelled is set when the traversal stopped with edges still queued.
	Cancelled bool
}

// Contains reports whether node was added to the tree.
func (t *SpanningTree) Contains(node int64) bool {
	return t.Reached.Get(node)
}

// Roots returns, for every reached node, the root of the tree holding it,
// and -1 for nodes never reached.
func (t *SpanningTree) Roots() *huge.LongArray {
	roots := huge.NewLongArray(t.NodeCount)
	roots.Fill(-1)
	var path []int64
	for n := int64(0); n < t.NodeCount; n++ {
		if !t.Reached.Get(n) || roots.Get(n) != -1 {
			continue
		}
		path = path[:0]
		node := n
		for roots.Get(node) == -1 {
			path = append(path, node)
			p := t.Parent.Get(node)
			if p == -1 {
				roots.Set(node, node)
				break
			}
			node = p
		}
		root := roots.Get(node)
		for _, v := range path {
			roots.Set(v, root)
		}
	}
	return roots
}

// ParentOf returns node's parent, or -1.
func (t *SpanningTree) ParentOf(node int64) int64 {
	return t.Parent.Get(node)
}

// EdgeCount returns the number of parent-pointer edges.
func (t *SpanningTree) EdgeCount() int64 {
	var count int64
	t.ForEachEdge(func(int64, int64, float64) bool {
		count++
		return true
	})
	return count
}

// ForEachEdge calls fn for every (parent, child) edge in child order until
// fn returns false.
func (t *SpanningTree) ForEachEdge(fn func(parent, child int64, cost float64) bool) {
	for n := int64(0); n < t.NodeCount; n++ {
		if p := t.Parent.Get(n); p != -1 {
			if !fn(p, n, t.CostToParent.Get(n)) {
				return
			}
		}
	}
}

// Option configures a traversal.
type Option func(*options)

type options struct {
	tracker progress.Tracker
}

// WithProgress reports one unit per node added to the tree.
func WithProgress(tracker progress.Tracker) Option {
	return func(o *options) { o.tracker = progress.OrNull(tracker) }
}

func buildOptions(opts []Option) options {
	o := options{tracker: progress.NullTracker{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Prim grows a spanning tree of start's component, always adding the
// cheapest (or, for Maximum, the heaviest) edge leaving the tree. flag is
// polled after every node added; a stopped traversal returns the partial
// tree with Cancelled set.
func Prim(g graph.Graph, start int64, objective Objective, flag termination.Flag, opts ...Option) (*SpanningTree, error) {
	nodeCount := g.NodeCount()
	if start < 0 || start >= nodeCount {
		return nil, apperrors.InvalidConfig("start node %d is not in [0, %d)", start, nodeCount)
	}
	if flag == nil {
		flag = termination.AlwaysRunning
	}
	o := buildOptions(opts)

	parent := huge.NewLongArray(nodeCount)
	parent.Fill(-1)
	costToParent := huge.NewDoubleArray(nodeCount)
	visited := collections.NewHugeBitset(nodeCount)

	q := objective.newQueue(nodeCount)
	defer q.Release()

	o.tracker.BeginSubTask(nodeCount)
	defer o.tracker.EndSubTask()

	var effective int64
	var total float64
	var cancelled bool
	q.Add(start, 0)
	for !q.IsEmpty() {
		node := q.Pop()
		visited.Set(node)
		effective++
		if node != start {
			cost := q.Cost(node)
			costToParent.Set(node, cost)
			total += cost
		}
		o.tracker.LogProgress(1)

		g.ForEachRelationship(node, func(_, target int64, weight float64) bool {
			if visited.Get(target) {
				return true
			}
			if !q.ContainsElement(target) {
				q.Add(target, weight)
				parent.Set(target, node)
			} else if objective.better(weight, q.Cost(target)) {
				q.Set(target, weight)
				parent.Set(target, node)
			}
			return true
		})

		if !flag.Running() {
			cancelled = !q.IsEmpty()
			break
		}
	}

	// discovered but never added
	for !q.IsEmpty() {
		parent.Set(q.Pop(), -1)
	}

	return &SpanningTree{
		Head:               start,
		NodeCount:          nodeCount,
		EffectiveNodeCount: effective,
		Parent:             parent,
		CostToParent:       costToParent,
		TotalWeight:        total,
		Reached:            visited,
		Cancelled:          cancelled,
	}, nil
}

// KSpanningTree builds a spanning tree from start and cuts its k-1 worst
// edges, the heaviest for Minimum and the lightest for Maximum, leaving k
// trees. A k beyond the number of tree edges cuts every edge.
func KSpanningTree(g graph.Graph, start int64, k int64, objective Objective, flag termination.Flag, opts ...Option) (*SpanningTree, error) {
	if k <= 0 {
		return nil, apperrors.InvalidConfig("k must be positive, got %d", k)
	}
	tree, err := Prim(g, start, objective, flag, opts...)
	if err != nil {
		return nil, err
	}

	pruning := Maximum
	if objective == Maximum {
		pruning = Minimum
	}
	q := pruning.newQueue(tree.NodeCount)
	defer q.Release()
	tree.ForEachEdge(func(_, child int64, cost float64) bool {
		q.Add(child, cost)
		return true
	})

	for cut := int64(0); cut < k-1 && !q.IsEmpty(); cut++ {
		child := q.Pop()
		tree.TotalWeight -= tree.CostToParent.Get(child)
		tree.Parent.Set(child, -1)
		tree.CostToParent.Set(child, 0)
	}
	return tree, nil
}
