// Package queue provides an indexed binary heap over dense element ids with
// mutable costs.
package queue

import (
	"github.com/graph-analytics/pkg/collections"
	apperrors "github.com/graph-analytics/pkg/errors"
	"github.com/graph-analytics/pkg/huge"
)

// IndexedPriorityQueue is a binary heap of element ids ordered by a cost per
// element. Slot 0 of the heap is unused, so parent(i) = i/2 and the children
// of i are 2i and 2i+1. Elements are non-negative ids; the id domain grows
// with the largest element added.
//
// An IndexedPriorityQueue is not safe for concurrent use.
type IndexedPriorityQueue struct {
	heap  *huge.LongArray
	costs *huge.DoubleArray
	keys  *collections.HugeBitset
	size  int64

	// lessThan reports whether a has priority over b.
	lessThan func(a, b float64) bool
	released bool
}

// NewMin creates a queue popping the lowest cost first.
func NewMin(capacity int64) *IndexedPriorityQueue {
	return newQueue(capacity, func(a, b float64) bool { return a < b })
}

// NewMax creates a queue popping the highest cost first.
func NewMax(capacity int64) *IndexedPriorityQueue {
	return newQueue(capacity, func(a, b float64) bool { return a > b })
}

func newQueue(capacity int64, lessThan func(a, b float64) bool) *IndexedPriorityQueue {
	if capacity < 1 {
		capacity = 1
	}
	if capacity >= huge.MaxSize {
		panic(apperrors.CapacityExceeded("priority queue capacity", capacity, huge.MaxSize-1))
	}
	return &IndexedPriorityQueue{
		heap:     huge.NewLongArray(capacity + 1),
		costs:    huge.NewDoubleArray(capacity),
		keys:     collections.NewHugeBitset(capacity),
		lessThan: lessThan,
	}
}

// MemoryEstimation returns the bytes held by a queue created with capacity.
func MemoryEstimation(capacity int64) int64 {
	return huge.MemoryEstimation(capacity+1, 8) +
		huge.MemoryEstimation(capacity, 8) +
		huge.MemoryEstimation((capacity+63)>>6, 8)
}

func (q *IndexedPriorityQueue) checkLive() {
	if q.released {
		panic(apperrors.New(apperrors.CodeResourceReleased, "priority queue used after release"))
	}
}

func (q *IndexedPriorityQueue) less(a, b int64) bool {
	return q.lessThan(q.costs.Get(a), q.costs.Get(b))
}

// Size returns the number of queued elements.
func (q *IndexedPriorityQueue) Size() int64 {
	q.checkLive()
	return q.size
}

// IsEmpty reports whether the queue holds no element.
func (q *IndexedPriorityQueue) IsEmpty() bool {
	q.checkLive()
	return q.size == 0
}

// ContainsElement reports whether element is queued.
func (q *IndexedPriorityQueue) ContainsElement(element int64) bool {
	q.checkLive()
	return element >= 0 && element < q.keys.Size() && q.keys.Get(element)
}

// Cost returns the last cost registered for element, or 0 for an element
// never added.
func (q *IndexedPriorityQueue) Cost(element int64) float64 {
	q.checkLive()
	if element < 0 || element >= q.costs.Size() {
		return 0
	}
	return q.costs.Get(element)
}

// Add queues element with cost and reports whether it was already queued.
// Re-adding a queued element updates its cost in place like Set.
func (q *IndexedPriorityQueue) Add(element int64, cost float64) (wasPresent bool) {
	q.checkLive()
	if element < 0 {
		panic(apperrors.IndexOutOfRange(element, q.keys.Size()))
	}
	q.ensureDomain(element)
	if q.keys.GetAndSet(element) {
		q.update(element, cost)
		return true
	}

	q.costs.Set(element, cost)
	q.size++
	q.ensureHeap(q.size)
	q.heap.Set(q.size, element)
	q.upHeap(q.size)
	return false
}

// Set changes the cost of a queued element and restores heap order. An
// element that is not queued is added.
func (q *IndexedPriorityQueue) Set(element int64, cost float64) {
	if !q.ContainsElement(element) {
		q.Add(element, cost)
		return
	}
	q.update(element, cost)
}

func (q *IndexedPriorityQueue) update(element int64, cost float64) {
	old := q.costs.Get(element)
	q.costs.Set(element, cost)
	pos := q.findElementPosition(element)
	if pos < 1 {
		return
	}
	if q.lessThan(cost, old) {
		q.upHeap(pos)
	} else {
		q.downHeap(pos)
	}
}

// Top returns the element with the highest priority without removing it,
// or -1 when the queue is empty.
func (q *IndexedPriorityQueue) Top() int64 {
	q.checkLive()
	if q.size == 0 {
		return -1
	}
	return q.heap.Get(1)
}

// Pop removes and returns the element with the highest priority, or -1 when
// the queue is empty.
func (q *IndexedPriorityQueue) Pop() int64 {
	q.checkLive()
	if q.size == 0 {
		return -1
	}
	top := q.heap.Get(1)
	q.heap.Set(1, q.heap.Get(q.size))
	q.size--
	if q.size > 0 {
		q.downHeap(1)
	}
	q.keys.Clear(top)
	return top
}

// Clear empties the queue, keeping its storage.
func (q *IndexedPriorityQueue) Clear() {
	q.checkLive()
	q.size = 0
	q.keys.ClearAll()
}

// Release drops the backing storage and returns the bytes freed. The queue
// must not be used afterwards.
func (q *IndexedPriorityQueue) Release() int64 {
	q.checkLive()
	q.released = true
	q.size = 0
	return q.heap.Release() + q.costs.Release() + q.keys.Release()
}

// ============================================================================
// Heap maintenance
// ============================================================================

func (q *IndexedPriorityQueue) upHeap(i int64) {
	element := q.heap.Get(i)
	for i > 1 {
		p := i >> 1
		parent := q.heap.Get(p)
		if !q.less(element, parent) {
			break
		}
		q.heap.Set(i, parent)
		i = p
	}
	q.heap.Set(i, element)
}

func (q *IndexedPriorityQueue) downHeap(i int64) {
	element := q.heap.Get(i)
	for {
		child := i << 1
		if child > q.size {
			break
		}
		if right := child + 1; right <= q.size && q.less(q.heap.Get(right), q.heap.Get(child)) {
			child = right
		}
		c := q.heap.Get(child)
		if !q.less(c, element) {
			break
		}
		q.heap.Set(i, c)
		i = child
	}
	q.heap.Set(i, element)
}

// findElementPosition scans heap slots [1, size] page by page, four slots
// per round. It returns 0 when element is not in the heap.
func (q *IndexedPriorityQueue) findElementPosition(element int64) int64 {
	c := &huge.Cursor[int64]{}
	q.heap.InitCursorRange(c, 1, q.size+1)
	for c.Next() {
		arr := c.Array
		i := c.Offset
		for ; i+3 < c.Limit; i += 4 {
			switch element {
			case arr[i]:
				return c.Base + int64(i)
			case arr[i+1]:
				return c.Base + int64(i+1)
			case arr[i+2]:
				return c.Base + int64(i+2)
			case arr[i+3]:
				return c.Base + int64(i+3)
			}
		}
		for ; i < c.Limit; i++ {
			if arr[i] == element {
				return c.Base + int64(i)
			}
		}
	}
	return 0
}

// ============================================================================
// Growth
// ============================================================================

// oversize returns a capacity of at least minSize with about 1/8 headroom,
// rounded up to whole pages once beyond one page.
func oversize(minSize int64) int64 {
	if minSize > huge.MaxSize {
		panic(apperrors.CapacityExceeded("priority queue growth", minSize, huge.MaxSize))
	}
	size := minSize + max(minSize>>3, 3)
	if size > huge.PageSize {
		size = (size + huge.PageMask) &^ huge.PageMask
	}
	return min(size, huge.MaxSize)
}

// ensureHeap makes heap slot size addressable.
func (q *IndexedPriorityQueue) ensureHeap(size int64) {
	if size < q.heap.Size() {
		return
	}
	q.heap = q.heap.CopyOf(oversize(size + 1))
}

// ensureDomain makes element a valid index of costs and keys.
func (q *IndexedPriorityQueue) ensureDomain(element int64) {
	if element < q.costs.Size() {
		return
	}
	newSize := oversize(element + 1)
	q.costs = q.costs.CopyOf(newSize)

	keys := collections.NewHugeBitset(newSize)
	q.keys.Iterate(func(i int64) bool {
		keys.Set(i)
		return true
	})
	q.keys.Release()
	q.keys = keys
}
