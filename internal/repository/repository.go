// Package repository stores the history of algorithm runs.
package repository

import (
	"context"

	"github.com/graph-analytics/pkg/model"
)

// RunRepository defines the interface for run history operations.
type RunRepository interface {
	// Create inserts a new run record.
	Create(ctx context.Context, record *RunRecord) error

	// Save updates every column of an existing record.
	Save(ctx context.Context, record *RunRecord) error

	// GetByRunID retrieves a run by its run id.
	GetByRunID(ctx context.Context, runID string) (*RunRecord, error)

	// ListByAlgorithm retrieves the latest runs of one algorithm, newest first.
	ListByAlgorithm(ctx context.Context, kind model.AlgorithmKind, limit int) ([]*RunRecord, error)

	// ListRecent retrieves the latest runs, newest first.
	ListRecent(ctx context.Context, limit int) ([]*RunRecord, error)

	// UpdateStatus sets the status of a run, with an error message for
	// failed runs.
	UpdateStatus(ctx context.Context, runID string, status model.RunStatus, errMsg string) error
}

// AlgorithmSummary aggregates the runs of one algorithm.
type AlgorithmSummary struct {
	Algorithm     model.AlgorithmKind `json:"algorithm"`
	Runs          int64               `json:"runs"`
	Failed        int64               `json:"failed"`
	AvgDurationMs float64             `json:"avg_duration_ms"`
	MaxNodeCount  int64               `json:"max_node_count"`
}

// SummaryRepository defines aggregate queries over the run history.
type SummaryRepository interface {
	// SummarizeByAlgorithm returns one summary per algorithm with at least
	// one run, ordered by algorithm name.
	SummarizeByAlgorithm(ctx context.Context) ([]AlgorithmSummary, error)
}
