// Package progress reports how much of an algorithm's work is done.
//
// A run is a sequence of sub-tasks (one per iteration phase). Each partition
// step reports the number of nodes it actually processed, which can be less
// than its partition length when inactive nodes are skipped.
package progress

import (
	"sync"
	"sync/atomic"

	"github.com/graph-analytics/pkg/utils"
)

// Tracker receives progress events. LogProgress may be called concurrently.
type Tracker interface {
	BeginSubTask(totalWork int64)
	LogProgress(processed int64)
	EndSubTask()
}

// NullTracker discards all events.
type NullTracker struct{}

// BeginSubTask does nothing.
func (NullTracker) BeginSubTask(int64) {}

// LogProgress does nothing.
func (NullTracker) LogProgress(int64) {}

// EndSubTask does nothing.
func (NullTracker) EndSubTask() {}

// OrNull returns t, or a NullTracker when t is nil.
func OrNull(t Tracker) Tracker {
	if t == nil {
		return NullTracker{}
	}
	return t
}

// ============================================================================
// LogTracker
// ============================================================================

// LogTracker logs each sub-task's start, end and every crossed percentage
// step through a utils.Logger.
type LogTracker struct {
	name   string
	logger utils.Logger
	step   int64

	total     atomic.Int64
	completed atomic.Int64
	lastStep  atomic.Int64
	subTasks  atomic.Int64
}

// NewLogTracker creates a tracker logging every stepPercent percent. A
// stepPercent outside (0, 100] defaults to 10.
func NewLogTracker(name string, logger utils.Logger, stepPercent int) *LogTracker {
	if stepPercent <= 0 || stepPercent > 100 {
		stepPercent = 10
	}
	return &LogTracker{
		name:   name,
		logger: utils.OrNull(logger),
		step:   int64(stepPercent),
	}
}

// BeginSubTask implements Tracker.
func (t *LogTracker) BeginSubTask(totalWork int64) {
	n := t.subTasks.Add(1)
	t.total.Store(totalWork)
	t.completed.Store(0)
	t.lastStep.Store(0)
	t.logger.Debug("%s :: sub task %d started (%d units)", t.name, n, totalWork)
}

// LogProgress implements Tracker.
func (t *LogTracker) LogProgress(processed int64) {
	if processed <= 0 {
		return
	}
	done := t.completed.Add(processed)
	total := t.total.Load()
	if total <= 0 {
		return
	}
	pct := min(done*100/total, 100)
	reached := pct / t.step * t.step
	for {
		last := t.lastStep.Load()
		if reached <= last {
			return
		}
		if t.lastStep.CompareAndSwap(last, reached) {
			t.logger.Info("%s %d%%", t.name, reached)
			return
		}
	}
}

// EndSubTask implements Tracker.
func (t *LogTracker) EndSubTask() {
	t.logger.Debug("%s :: sub task %d finished (%d/%d units)",
		t.name, t.subTasks.Load(), t.completed.Load(), t.total.Load())
}

// Completed returns the units reported in the current sub-task.
func (t *LogTracker) Completed() int64 {
	return t.completed.Load()
}

// ============================================================================
// Recorder
// ============================================================================

// SubTask is one recorded sub-task.
type SubTask struct {
	Total     int64
	Processed int64
	Calls     int
	Ended     bool
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu       sync.Mutex
	subTasks []SubTask
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// BeginSubTask implements Tracker.
func (r *Recorder) BeginSubTask(totalWork int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subTasks = append(r.subTasks, SubTask{Total: totalWork})
}

// LogProgress implements Tracker. Events outside a sub-task are dropped.
func (r *Recorder) LogProgress(processed int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.subTasks) == 0 {
		return
	}
	st := &r.subTasks[len(r.subTasks)-1]
	st.Processed += processed
	st.Calls++
}

// EndSubTask implements Tracker.
func (r *Recorder) EndSubTask() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.subTasks) > 0 {
		r.subTasks[len(r.subTasks)-1].Ended = true
	}
}

// SubTasks returns a copy of the recorded sub-tasks.
func (r *Recorder) SubTasks() []SubTask {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SubTask, len(r.subTasks))
	copy(out, r.subTasks)
	return out
}
