// Package parallel provides the bounded worker pool that runs partition
// tasks. Each Run call is a barrier: it returns only after every task it
// scheduled has finished.
package parallel

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/graph-analytics/pkg/errors"
	"github.com/graph-analytics/pkg/termination"
)

// ============================================================================
// Worker Pool Configuration
// ============================================================================

// PoolConfig configures the worker pool behavior.
type PoolConfig struct {
	// MaxWorkers is the maximum number of tasks running at once.
	// Default: min(runtime.NumCPU(), 8)
	MaxWorkers int

	// CollectMetrics enables collection of execution metrics.
	CollectMetrics bool
}

// DefaultPoolConfig returns a default pool configuration.
func DefaultPoolConfig() PoolConfig {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	if workers < 2 {
		workers = 2
	}
	return PoolConfig{
		MaxWorkers:     workers,
		CollectMetrics: false,
	}
}

// WithWorkers returns a new config with the specified number of workers.
func (c PoolConfig) WithWorkers(n int) PoolConfig {
	c.MaxWorkers = n
	return c
}

// WithMetrics returns a new config with metrics collection enabled.
func (c PoolConfig) WithMetrics() PoolConfig {
	c.CollectMetrics = true
	return c
}

// ============================================================================
// Execution Metrics
// ============================================================================

// PoolMetrics holds execution statistics accumulated over every Run.
type PoolMetrics struct {
	TotalTasks     int64
	CompletedTasks int64
	FailedTasks    int64
	SkippedTasks   int64
	TotalDuration  time.Duration
	MaxTaskTime    time.Duration
	MinTaskTime    time.Duration
}

// ============================================================================
// Worker Pool
// ============================================================================

// Task is one unit of work, typically a step bound to a partition.
type Task func(ctx context.Context) error

// RunStats describes a single Run.
type RunStats struct {
	Scheduled int
	Skipped   int
}

// WorkerPool runs tasks with bounded concurrency.
type WorkerPool struct {
	config  PoolConfig
	metrics PoolMetrics
	mu      sync.Mutex
}

// NewWorkerPool creates a new worker pool with the given configuration.
func NewWorkerPool(config PoolConfig) *WorkerPool {
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = DefaultPoolConfig().MaxWorkers
	}
	return &WorkerPool{
		config:  config,
		metrics: PoolMetrics{MinTaskTime: time.Hour},
	}
}

// Workers returns the concurrency limit.
func (p *WorkerPool) Workers() int {
	return p.config.MaxWorkers
}

// Run executes tasks in order with at most MaxWorkers running at once and
// waits for all scheduled tasks to finish. flag is polled before each task is
// scheduled; once it stops running, or a task fails, the remaining tasks are
// skipped. A running task is never interrupted.
//
// A panicking task is converted into an error. A panic value that is an
// *errors.AppError is returned unchanged so data-structure faults keep their
// code; anything else becomes TASK_PANIC.
func (p *WorkerPool) Run(ctx context.Context, flag termination.Flag, tasks []Task) (RunStats, error) {
	var stats RunStats
	if len(tasks) == 0 {
		return stats, nil
	}
	if flag == nil {
		flag = termination.AlwaysRunning
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.MaxWorkers)

	for i, task := range tasks {
		if gctx.Err() != nil || !flag.Running() {
			stats.Skipped = len(tasks) - i
			break
		}
		stats.Scheduled++
		g.Go(func() error {
			return p.execute(gctx, task)
		})
	}
	err := g.Wait()

	if p.config.CollectMetrics {
		p.mu.Lock()
		p.metrics.SkippedTasks += int64(stats.Skipped)
		p.metrics.TotalDuration += time.Since(start)
		p.mu.Unlock()
	}
	return stats, err
}

func (p *WorkerPool) execute(ctx context.Context, task Task) (err error) {
	taskStart := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
		if p.config.CollectMetrics {
			p.updateMetrics(time.Since(taskStart), err)
		}
	}()
	return task(ctx)
}

func panicError(r interface{}) error {
	switch v := r.(type) {
	case *apperrors.AppError:
		return v
	case error:
		return apperrors.Wrap(apperrors.CodeTaskPanic, "task panicked", v)
	default:
		return apperrors.Wrap(apperrors.CodeTaskPanic, "task panicked", fmt.Errorf("%v", v))
	}
}

// updateMetrics updates the pool metrics (thread-safe).
func (p *WorkerPool) updateMetrics(duration time.Duration, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.metrics.TotalTasks++
	if err != nil {
		p.metrics.FailedTasks++
	} else {
		p.metrics.CompletedTasks++
	}

	if duration > p.metrics.MaxTaskTime {
		p.metrics.MaxTaskTime = duration
	}
	if duration < p.metrics.MinTaskTime {
		p.metrics.MinTaskTime = duration
	}
}

// Metrics returns the current execution metrics.
func (p *WorkerPool) Metrics() PoolMetrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics
}
