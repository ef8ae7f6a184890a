// Package partition splits a node-id space into contiguous batches for
// bounded-concurrency execution. Every function here is pure.
package partition

import (
	"fmt"
	"math"
)

const (
	// DefaultBatchSize is the minimum batch size used when callers do not
	// configure one.
	DefaultBatchSize int64 = 10000

	// MinPartitionCapacity is the fraction of the target degree sum a degree
	// partition must reach before it may be closed.
	MinPartitionCapacity = 0.67

	// MaxNodeCount bounds the node count of a single degree partition.
	MaxNodeCount int64 = (math.MaxInt32 - 32) >> 1

	minLastPartitionFactor = 0.2
)

// Partition is the half-open node range [StartNode, StartNode+NodeCount).
type Partition struct {
	StartNode int64
	NodeCount int64
}

// EndNode returns the exclusive end of the range.
func (p Partition) EndNode() int64 {
	return p.StartNode + p.NodeCount
}

// String implements fmt.Stringer.
func (p Partition) String() string {
	return fmt.Sprintf("[%d, %d)", p.StartNode, p.EndNode())
}

// DegreePartition is a Partition annotated with the sum of its node degrees.
type DegreePartition struct {
	Partition
	TotalDegree int64
}

// DegreeFunc returns the degree of a node.
type DegreeFunc func(node int64) int64

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}

// AdjustedBatchSize returns max(minBatchSize, ceil(nodeCount/concurrency)).
// A minBatchSize below 1 is treated as 1, a concurrency below 1 as 1.
func AdjustedBatchSize(nodeCount int64, concurrency int, minBatchSize int64) int64 {
	if minBatchSize < 1 {
		minBatchSize = 1
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if nodeCount <= 0 {
		return minBatchSize
	}
	return max(minBatchSize, ceilDiv(nodeCount, int64(concurrency)))
}

// RangePartition splits [0, nodeCount) into consecutive partitions of the
// adjusted batch size; the last one holds the remainder. nodeCount <= 0
// yields no partitions and concurrency <= 1 yields a single partition.
func RangePartition(nodeCount int64, concurrency int, minBatchSize int64) []Partition {
	if nodeCount <= 0 {
		return []Partition{}
	}
	if concurrency <= 1 {
		return []Partition{{StartNode: 0, NodeCount: nodeCount}}
	}
	return RangePartitionWithBatchSize(nodeCount, AdjustedBatchSize(nodeCount, concurrency, minBatchSize))
}

// RangePartitionWithBatchSize splits [0, nodeCount) into partitions of
// exactly batchSize nodes except for a shorter last one.
func RangePartitionWithBatchSize(nodeCount int64, batchSize int64) []Partition {
	if nodeCount <= 0 {
		return []Partition{}
	}
	if batchSize < 1 {
		batchSize = 1
	}
	partitions := make([]Partition, 0, ceilDiv(nodeCount, batchSize))
	for start := int64(0); start < nodeCount; start += batchSize {
		partitions = append(partitions, Partition{
			StartNode: start,
			NodeCount: min(batchSize, nodeCount-start),
		})
	}
	return partitions
}

// NumberAlignedPartition is RangePartition with every batch size rounded up
// to a multiple of alignTo, so that partition starts fall on word boundaries
// of a bitset when alignTo is 64.
func NumberAlignedPartition(nodeCount int64, concurrency int, alignTo int64) []Partition {
	if alignTo < 1 {
		alignTo = 1
	}
	batch := AdjustedBatchSize(nodeCount, concurrency, alignTo)
	if rem := batch % alignTo; rem != 0 {
		batch += alignTo - rem
	}
	return RangePartitionWithBatchSize(nodeCount, batch)
}

// ByDegree splits [0, nodeCount) so that each partition holds about
// ceil(relationshipCount/concurrency) relationships, but never fewer than
// minBatchSize. A partition is only closed once it holds at least
// MinPartitionCapacity of the target; a trailing partition below 20% of the
// target is merged into its predecessor.
func ByDegree(nodeCount, relationshipCount int64, degree DegreeFunc, concurrency int, minBatchSize int64) []DegreePartition {
	if nodeCount <= 0 {
		return []DegreePartition{}
	}
	if concurrency <= 1 {
		return []DegreePartition{{
			Partition:   Partition{StartNode: 0, NodeCount: nodeCount},
			TotalDegree: relationshipCount,
		}}
	}
	if minBatchSize < 1 {
		minBatchSize = 1
	}
	batch := max(minBatchSize, ceilDiv(relationshipCount, int64(concurrency)))
	return ByDegreeWithBatchSize(nodeCount, degree, batch)
}

// ByDegreeWithBatchSize splits [0, nodeCount) into partitions whose degree
// sums approach batchSize.
func ByDegreeWithBatchSize(nodeCount int64, degree DegreeFunc, batchSize int64) []DegreePartition {
	if batchSize < 1 {
		batchSize = 1
	}
	minPartitionSize := int64(math.Round(float64(batchSize) * MinPartitionCapacity))
	partitions := make([]DegreePartition, 0)

	for start := int64(0); start < nodeCount; {
		var total int64
		node := start - 1
		for node < nodeCount-1 && node-start < MaxNodeCount {
			d := degree(node + 1)
			if total+d > batchSize && total >= minPartitionSize {
				break
			}
			node++
			total += d
		}
		end := node + 1
		partitions = append(partitions, DegreePartition{
			Partition:   Partition{StartNode: start, NodeCount: end - start},
			TotalDegree: total,
		})
		start = end
	}

	minLast := int64(math.Round(minLastPartitionFactor * float64(batchSize)))
	if n := len(partitions); n > 1 && partitions[n-1].TotalDegree < minLast {
		last, prev := partitions[n-1], partitions[n-2]
		partitions[n-2] = DegreePartition{
			Partition:   Partition{StartNode: prev.StartNode, NodeCount: prev.NodeCount + last.NodeCount},
			TotalDegree: prev.TotalDegree + last.TotalDegree,
		}
		partitions = partitions[:n-1]
	}
	return partitions
}

// Ranges strips the degree annotation.
func Ranges(partitions []DegreePartition) []Partition {
	out := make([]Partition, len(partitions))
	for i, p := range partitions {
		out[i] = p.Partition
	}
	return out
}
