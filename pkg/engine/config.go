package engine

import (
	apperrors "github.com/graph-analytics/pkg/errors"
	"github.com/graph-analytics/pkg/partition"
)

// Convergence selects how the driver decides a run is finished.
type Convergence int

const (
	// ConvergeOnNoChange stops once no step of the last phase changed state.
	ConvergeOnNoChange Convergence = iota
	// ConvergeOnEmptyFrontier stops once the frontier is empty after a swap.
	ConvergeOnEmptyFrontier
)

func (c Convergence) String() string {
	switch c {
	case ConvergeOnNoChange:
		return "no_change"
	case ConvergeOnEmptyFrontier:
		return "empty_frontier"
	default:
		return "unknown"
	}
}

// DefaultMaxIterations is the iteration cap used by DefaultConfig.
const DefaultMaxIterations = 10

// Config controls a driver run.
type Config struct {
	MaxIterations int
	Concurrency   int
	MinBatchSize  int64
	Convergence   Convergence
}

// DefaultConfig returns a config with four workers and the default batch
// size.
func DefaultConfig() Config {
	return Config{
		MaxIterations: DefaultMaxIterations,
		Concurrency:   4,
		MinBatchSize:  partition.DefaultBatchSize,
		Convergence:   ConvergeOnNoChange,
	}
}

// Validate checks the config before any work starts.
func (c Config) Validate() error {
	if c.MaxIterations <= 0 {
		return apperrors.InvalidConfig("maxIterations must be positive, got %d", c.MaxIterations)
	}
	if c.Concurrency <= 0 {
		return apperrors.InvalidConfig("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.MinBatchSize < 0 {
		return apperrors.InvalidConfig("minBatchSize must not be negative, got %d", c.MinBatchSize)
	}
	if c.Convergence != ConvergeOnNoChange && c.Convergence != ConvergeOnEmptyFrontier {
		return apperrors.InvalidConfig("unknown convergence mode %d", int(c.Convergence))
	}
	return nil
}
