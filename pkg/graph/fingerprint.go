package graph

import (
	"encoding/binary"
	"encoding/hex"
	"math"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns the hex BLAKE2b-256 digest of the graph structure:
// node count, then per node its original id followed by each relationship's
// target original id and weight. Equal graphs built in the same order have
// equal fingerprints.
func Fingerprint(g Graph) string {
	h, _ := blake2b.New256(nil)
	var buf [8]byte
	write := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}

	write(uint64(g.NodeCount()))
	for n := int64(0); n < g.NodeCount(); n++ {
		write(uint64(g.ToOriginalNodeID(n)))
		write(uint64(g.Degree(n)))
		g.ForEachRelationship(n, func(_, t int64, w float64) bool {
			write(uint64(g.ToOriginalNodeID(t)))
			write(math.Float64bits(w))
			return true
		})
	}
	return hex.EncodeToString(h.Sum(nil))
}
