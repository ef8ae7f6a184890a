package engine

import (
	"github.com/graph-analytics/pkg/partition"
)

// StepOutcome is what one step reports back after computing its partition.
type StepOutcome struct {
	// Changed is true when the step modified any node state.
	Changed bool
	// Processed counts the nodes actually visited, skipping inactive ones.
	Processed int64
}

// Step is the per-partition unit of work. A step owns its scratch buffers
// and writes node state only inside its partition; other nodes reach it
// through the Frontier.
type Step interface {
	Compute(iteration int) StepOutcome
	Release()
}

// Phase is one barrier-separated pass over all partitions. An iteration runs
// its phases in order.
type Phase struct {
	Name    string
	NewStep func(p partition.Partition) Step
}

// StepFunc adapts a function without scratch state to Step.
type StepFunc func(iteration int) StepOutcome

// Compute calls f.
func (f StepFunc) Compute(iteration int) StepOutcome {
	return f(iteration)
}

// Release does nothing.
func (StepFunc) Release() {}
