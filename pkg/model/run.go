// Package model defines the requests, results and rows shared by the
// algorithm registry, the service and the CLI.
package model

import (
	"strings"
	"time"

	apperrors "github.com/graph-analytics/pkg/errors"
)

// AlgorithmKind names a runnable algorithm.
type AlgorithmKind string

const (
	KindK1Coloring    AlgorithmKind = "k1coloring"
	KindLabelProp     AlgorithmKind = "labelprop"
	KindPrim          AlgorithmKind = "prim"
	KindKSpanningTree AlgorithmKind = "kspanningtree"
	KindRWR           AlgorithmKind = "rwr"
	KindRandomWalk    AlgorithmKind = "randomwalk"
)

// Kinds lists every algorithm kind in display order.
func Kinds() []AlgorithmKind {
	return []AlgorithmKind{KindK1Coloring, KindLabelProp, KindPrim, KindKSpanningTree, KindRWR, KindRandomWalk}
}

// String returns the kind name.
func (k AlgorithmKind) String() string {
	return string(k)
}

// IsIterative reports whether the kind runs on the iteration driver.
func (k AlgorithmKind) IsIterative() bool {
	return k == KindK1Coloring || k == KindLabelProp
}

// ParseAlgorithmKind maps a case-insensitive name to a kind.
func ParseAlgorithmKind(s string) (AlgorithmKind, error) {
	kind := AlgorithmKind(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range Kinds() {
		if k == kind {
			return k, nil
		}
	}
	return "", apperrors.Newf(apperrors.CodeUnsupportedAlgorithm, "unsupported algorithm %q", s)
}

// RunStatus is the outcome recorded for a run.
type RunStatus string

const (
	StatusRunning       RunStatus = "running"
	StatusConverged     RunStatus = "converged"
	StatusMaxIterations RunStatus = "max_iterations"
	StatusCancelled     RunStatus = "cancelled"
	StatusCompleted     RunStatus = "completed"
	StatusFailed        RunStatus = "failed"
)

// IsTerminal reports whether the status is final.
func (s RunStatus) IsTerminal() bool {
	return s != StatusRunning && s != ""
}

// AlgorithmOptions holds the knobs of the non-iterative algorithms. Node ids
// are original ids.
type AlgorithmOptions struct {
	StartNode int64  `json:"start_node,omitempty"`
	K         int64  `json:"k,omitempty"`
	Objective string `json:"objective,omitempty"`

	SamplingRatio      float64 `json:"sampling_ratio,omitempty"`
	RestartProbability float64 `json:"restart_probability,omitempty"`
	StartNodes         []int64 `json:"start_nodes,omitempty"`
	Seed               int64   `json:"seed,omitempty"`
	Weighted           bool    `json:"weighted,omitempty"`

	WalkLength   int     `json:"walk_length,omitempty"`
	WalksPerNode int     `json:"walks_per_node,omitempty"`
	BufferSize   int     `json:"buffer_size,omitempty"`
	ReturnFactor float64 `json:"return_factor,omitempty"`
	InOutFactor  float64 `json:"in_out_factor,omitempty"`
}

// RunRequest describes one algorithm run.
type RunRequest struct {
	RunID string
	Kind  AlgorithmKind

	// Input is an edge-list path, or a storage key when InputFromStorage
	// is set.
	Input            string
	InputFromStorage bool
	Undirected       bool

	Concurrency   int
	MaxIterations int
	MinBatchSize  int64

	// Output is the storage key for exported rows. Empty skips the export.
	Output      string
	Compression string

	Options AlgorithmOptions
}

// Validate checks the request fields every algorithm needs.
func (r *RunRequest) Validate() error {
	if r.Input == "" {
		return apperrors.InvalidConfig("input is required")
	}
	if _, err := ParseAlgorithmKind(string(r.Kind)); err != nil {
		return err
	}
	if r.Concurrency < 0 {
		return apperrors.InvalidConfig("concurrency must not be negative, got %d", r.Concurrency)
	}
	if r.MaxIterations < 0 {
		return apperrors.InvalidConfig("max iterations must not be negative, got %d", r.MaxIterations)
	}
	return nil
}

// RunRecordView is the subset of a stored run shown by the CLI history.
type RunRecordView struct {
	RunID         string        `json:"run_id"`
	Algorithm     AlgorithmKind `json:"algorithm"`
	Status        RunStatus     `json:"status"`
	NodeCount     int64         `json:"node_count"`
	RanIterations int           `json:"ran_iterations"`
	Duration      time.Duration `json:"duration"`
	CreatedAt     time.Time     `json:"created_at"`
}
