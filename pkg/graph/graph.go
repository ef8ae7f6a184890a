// Package graph holds the in-memory graphs algorithms run on. Nodes are dense
// ids in [0, NodeCount); original ids are translated only when results are
// reported.
package graph

// RelationshipConsumer visits one relationship. Returning false stops the
// scan of the current node.
type RelationshipConsumer func(source, target int64, weight float64) bool

// Graph is the read-only capability algorithms depend on. All methods are
// safe for concurrent use.
type Graph interface {
	NodeCount() int64
	// RelationshipCount counts stored relationships; an undirected
	// relationship is stored once per direction.
	RelationshipCount() int64
	Degree(node int64) int64
	ForEachRelationship(node int64, fn RelationshipConsumer)
	ToOriginalNodeID(node int64) int64
	// ToMappedNodeID returns -1 for an unknown original id.
	ToMappedNodeID(original int64) int64
}

// Edge is a weighted relationship between original node ids.
type Edge struct {
	Source int64
	Target int64
	Weight float64
}
