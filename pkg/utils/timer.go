package utils

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Stage is one timed step of a run. Child stages carry their parent's name.
type Stage struct {
	Name     string
	Parent   string
	Level    int
	Start    time.Time
	Duration time.Duration
	stopped  bool
}

// StageTimer stops one stage; use it with defer.
type StageTimer struct {
	timer *Timer
	name  string
}

// Stop records the stage duration. Only the first call has effect.
func (st *StageTimer) Stop() time.Duration {
	return st.timer.Stop(st.name)
}

// Timer records named stages in start order. It is safe for concurrent use.
type Timer struct {
	mu      sync.RWMutex
	name    string
	start   time.Time
	stages  map[string]*Stage
	order   []string
	logger  Logger
	enabled bool
	clock   Clock
}

// TimerOption configures a Timer.
type TimerOption func(*Timer)

// WithTimerLogger makes PrintSummary write to logger.
func WithTimerLogger(logger Logger) TimerOption {
	return func(t *Timer) { t.logger = logger }
}

// WithTimerEnabled turns every operation into a no-op when false.
func WithTimerEnabled(enabled bool) TimerOption {
	return func(t *Timer) { t.enabled = enabled }
}

// WithTimerClock sets the clock stages are measured with.
func WithTimerClock(clock Clock) TimerOption {
	return func(t *Timer) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// NewTimer creates a Timer named name.
func NewTimer(name string, opts ...TimerOption) *Timer {
	t := &Timer{
		name:    name,
		stages:  make(map[string]*Stage),
		enabled: true,
		clock:   NewRealClock(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.start = t.clock.Now()
	return t
}

// Start begins a top-level stage.
func (t *Timer) Start(name string) *StageTimer {
	return t.StartChild("", name)
}

// StartChild begins a stage nested under parent. An empty or unknown
// parent starts a top-level stage.
func (t *Timer) StartChild(parent, name string) *StageTimer {
	st := &StageTimer{timer: t, name: name}
	if !t.enabled {
		return st
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	stage := &Stage{Name: name, Start: t.clock.Now()}
	if p, ok := t.stages[parent]; ok {
		stage.Parent = parent
		stage.Level = p.Level + 1
	}
	if _, exists := t.stages[name]; !exists {
		t.order = append(t.order, name)
	}
	t.stages[name] = stage
	return st
}

// Stop ends the named stage and returns its duration. Unknown stages
// report zero.
func (t *Timer) Stop(name string) time.Duration {
	if !t.enabled {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	stage, ok := t.stages[name]
	if !ok {
		return 0
	}
	if !stage.stopped {
		stage.Duration = t.clock.Since(stage.Start)
		stage.stopped = true
	}
	return stage.Duration
}

// Duration returns the recorded duration of a stage.
func (t *Timer) Duration(name string) time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if stage, ok := t.stages[name]; ok {
		return stage.Duration
	}
	return 0
}

// Total returns the time since the timer was created.
func (t *Timer) Total() time.Duration {
	return t.clock.Since(t.start)
}

// Stages returns copies of the stages in start order.
func (t *Timer) Stages() []Stage {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stages := make([]Stage, 0, len(t.order))
	for _, name := range t.order {
		stages = append(stages, *t.stages[name])
	}
	return stages
}

// Milliseconds returns the stopped stages keyed prefix+name+"_ms".
func (t *Timer) Milliseconds(prefix string) map[string]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]float64, len(t.order))
	for _, name := range t.order {
		if stage := t.stages[name]; stage.stopped {
			out[prefix+name+"_ms"] = float64(stage.Duration) / float64(time.Millisecond)
		}
	}
	return out
}

// Summary formats the stopped stages on one line, e.g.
// "load=12ms run=1.2s export=40ms".
func (t *Timer) Summary() string {
	if !t.enabled {
		return ""
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	parts := make([]string, 0, len(t.order))
	for _, name := range t.order {
		stage := t.stages[name]
		if !stage.stopped {
			continue
		}
		label := name
		if stage.Parent != "" {
			label = stage.Parent + "." + name
		}
		parts = append(parts, fmt.Sprintf("%s=%v", label, stage.Duration.Round(time.Microsecond)))
	}
	return strings.Join(parts, " ")
}

// PrintSummary writes one line per stage to the configured logger.
func (t *Timer) PrintSummary() {
	if !t.enabled || t.logger == nil {
		return
	}
	t.logger.Debug("=== %s timing ===", t.name)
	for _, stage := range t.Stages() {
		t.logger.Debug("%s%s: %v", strings.Repeat("  ", stage.Level), stage.Name, stage.Duration)
	}
	t.logger.Debug("total: %v", t.Total())
}

// TimeFunc times fn as a stage.
func (t *Timer) TimeFunc(name string, fn func()) time.Duration {
	st := t.Start(name)
	fn()
	return st.Stop()
}

// TimeFuncWithError times fn as a stage and returns its error.
func (t *Timer) TimeFuncWithError(name string, fn func() error) (time.Duration, error) {
	st := t.Start(name)
	err := fn()
	return st.Stop(), err
}

// NullTimer records nothing.
var NullTimer = &Timer{stages: make(map[string]*Stage), clock: NewRealClock()}
