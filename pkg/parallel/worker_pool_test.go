package parallel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/graph-analytics/pkg/errors"
	"github.com/graph-analytics/pkg/termination"
)

func countingTasks(n int, counter *atomic.Int64) []Task {
	tasks := make([]Task, n)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) error {
			counter.Add(1)
			return nil
		}
	}
	return tasks
}

func TestWorkerPool_RunIsBarrier(t *testing.T) {
	pool := NewWorkerPool(DefaultPoolConfig().WithWorkers(4))

	var done atomic.Int64
	tasks := make([]Task, 20)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) error {
			time.Sleep(time.Millisecond)
			done.Add(1)
			return nil
		}
	}

	stats, err := pool.Run(context.Background(), termination.AlwaysRunning, tasks)
	require.NoError(t, err)
	assert.Equal(t, RunStats{Scheduled: 20}, stats)
	assert.Equal(t, int64(20), done.Load())
}

func TestWorkerPool_BoundedConcurrency(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{MaxWorkers: 3})

	var running, peak atomic.Int64
	tasks := make([]Task, 30)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			running.Add(-1)
			return nil
		}
	}

	_, err := pool.Run(context.Background(), nil, tasks)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int64(3))
}

func TestWorkerPool_SingleWorkerRunsInOrder(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{MaxWorkers: 1})

	var mu sync.Mutex
	var order []int
	tasks := make([]Task, 10)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}
	}

	_, err := pool.Run(context.Background(), nil, tasks)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestWorkerPool_StopsSchedulingWhenFlagStops(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{MaxWorkers: 1})

	var counter atomic.Int64
	stats, err := pool.Run(context.Background(), termination.StopAfter(3), countingTasks(10, &counter))

	require.NoError(t, err)
	assert.Equal(t, RunStats{Scheduled: 3, Skipped: 7}, stats)
	assert.Equal(t, int64(3), counter.Load())
}

func TestWorkerPool_FirstErrorReturned(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{MaxWorkers: 1})
	boom := errors.New("boom")

	var counter atomic.Int64
	tasks := countingTasks(5, &counter)
	tasks[1] = func(ctx context.Context) error { return boom }

	stats, err := pool.Run(context.Background(), nil, tasks)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 5, stats.Scheduled+stats.Skipped)
	assert.LessOrEqual(t, stats.Scheduled, 3)
	assert.LessOrEqual(t, counter.Load(), int64(2))
}

func TestWorkerPool_PanicsBecomeErrors(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		expected string
	}{
		{"app error keeps code", apperrors.IndexOutOfRange(5, 3), apperrors.CodeIndexOutOfRange},
		{"plain error", errors.New("bad"), apperrors.CodeTaskPanic},
		{"string", "oops", apperrors.CodeTaskPanic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewWorkerPool(PoolConfig{MaxWorkers: 2})
			_, err := pool.Run(context.Background(), nil, []Task{
				func(ctx context.Context) error { panic(tt.value) },
			})
			require.Error(t, err)
			assert.Equal(t, tt.expected, apperrors.GetErrorCode(err))
		})
	}
}

func TestWorkerPool_Metrics(t *testing.T) {
	pool := NewWorkerPool(DefaultPoolConfig().WithMetrics())

	var counter atomic.Int64
	tasks := countingTasks(4, &counter)
	tasks = append(tasks, func(ctx context.Context) error { return errors.New("fail") })

	_, err := pool.Run(context.Background(), nil, tasks)
	require.Error(t, err)

	metrics := pool.Metrics()
	assert.Equal(t, metrics.TotalTasks, metrics.CompletedTasks+metrics.FailedTasks)
	assert.GreaterOrEqual(t, metrics.FailedTasks, int64(1))
	assert.Equal(t, int64(5), metrics.TotalTasks+metrics.SkippedTasks)
}

func TestWorkerPool_EmptyAndDefaults(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{})
	assert.Equal(t, DefaultPoolConfig().MaxWorkers, pool.Workers())

	stats, err := pool.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, RunStats{}, stats)
}
