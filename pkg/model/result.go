package model

import (
	"iter"
	"time"
)

// NodeValue is one exported row: an original node id and its value, or for
// walks the walk's start node and the walk.
type NodeValue struct {
	Node  int64 `json:"node"`
	Value any   `json:"value"`
}

// RunResult is what an algorithm run produces.
type RunResult struct {
	RunID             string              `json:"run_id"`
	Kind              AlgorithmKind       `json:"algorithm"`
	Status            RunStatus           `json:"status"`
	RanIterations     int                 `json:"ran_iterations"`
	DidConverge       bool                `json:"did_converge"`
	NodeCount         int64               `json:"node_count"`
	RelationshipCount int64               `json:"relationship_count"`
	Fingerprint       string              `json:"fingerprint"`
	Stats             map[string]float64  `json:"stats,omitempty"`
	Duration          time.Duration       `json:"duration"`
	ResultKey         string              `json:"result_key,omitempty"`
	Rows              iter.Seq[NodeValue] `json:"-"`

	// RowsErr reports a failure raised while Rows was produced and releases
	// any producer still running. Call it once Rows is drained or abandoned.
	RowsErr func() error `json:"-"`
}

// NewRunResult creates a result with an empty stats map.
func NewRunResult(kind AlgorithmKind) *RunResult {
	return &RunResult{Kind: kind, Stats: make(map[string]float64)}
}

// SetStat records a named statistic.
func (r *RunResult) SetStat(name string, value float64) {
	if r.Stats == nil {
		r.Stats = make(map[string]float64)
	}
	r.Stats[name] = value
}

// Finish calls RowsErr when set.
func (r *RunResult) Finish() error {
	if r.RowsErr == nil {
		return nil
	}
	return r.RowsErr()
}

// CountRows drains Rows and counts them. Rows may be single-use.
func (r *RunResult) CountRows() int64 {
	if r.Rows == nil {
		return 0
	}
	var n int64
	for range r.Rows {
		n++
	}
	return n
}
