// Package engine runs iterative, partitioned algorithms. An algorithm
// provides per-partition Steps grouped into Phases; the Driver runs every
// phase of an iteration behind a barrier until convergence, the iteration
// cap, or cancellation.
package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/graph-analytics/pkg/errors"
	"github.com/graph-analytics/pkg/parallel"
	"github.com/graph-analytics/pkg/partition"
	"github.com/graph-analytics/pkg/progress"
	"github.com/graph-analytics/pkg/telemetry"
	"github.com/graph-analytics/pkg/termination"
	"github.com/graph-analytics/pkg/utils"
)

// State is a driver lifecycle state.
type State string

const (
	StateInit                 State = "INIT"
	StateRunning              State = "RUNNING"
	StateConverged            State = "CONVERGED"
	StateMaxIterationsReached State = "MAX_ITERATIONS_REACHED"
	StateCancelled            State = "CANCELLED"
	StateDone                 State = "DONE"
)

// Result describes a finished run. State is the terminal reason the run
// left RUNNING: converged, iteration cap or cancelled.
type Result struct {
	RanIterations int
	DidConverge   bool
	State         State
	Duration      time.Duration
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger.
func WithLogger(logger utils.Logger) Option {
	return func(d *Driver) { d.logger = utils.OrNull(logger) }
}

// WithProgress sets the progress tracker.
func WithProgress(tracker progress.Tracker) Option {
	return func(d *Driver) { d.tracker = progress.OrNull(tracker) }
}

// WithTermination sets the flag polled before each iteration and each
// partition task.
func WithTermination(flag termination.Flag) Option {
	return func(d *Driver) {
		if flag != nil {
			d.flag = flag
		}
	}
}

// WithPool runs partition tasks on pool instead of a private one sized to
// Config.Concurrency.
func WithPool(pool *parallel.WorkerPool) Option {
	return func(d *Driver) { d.pool = pool }
}

// WithFrontier attaches the frontier swapped after every iteration. It is
// required for ConvergeOnEmptyFrontier.
func WithFrontier(f *Frontier) Option {
	return func(d *Driver) { d.frontier = f }
}

// WithPartitions overrides the range partitioning, e.g. with degree
// partitions. The partitions must cover the node range.
func WithPartitions(partitions []partition.Partition) Option {
	return func(d *Driver) { d.partitions = partitions }
}

// WithTracer sets the tracer used for run and iteration spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(d *Driver) { d.tracer = tracer }
}

// Driver orchestrates iterations. A Driver may be reused for several runs
// but not concurrently.
type Driver struct {
	config     Config
	logger     utils.Logger
	tracker    progress.Tracker
	flag       termination.Flag
	pool       *parallel.WorkerPool
	frontier   *Frontier
	partitions []partition.Partition
	tracer     trace.Tracer
	state      State
}

// NewDriver validates config and creates a driver.
func NewDriver(config Config, opts ...Option) (*Driver, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	d := &Driver{
		config:  config,
		logger:  &utils.NullLogger{},
		tracker: progress.NullTracker{},
		flag:    termination.AlwaysRunning,
		state:   StateInit,
	}
	for _, opt := range opts {
		opt(d)
	}
	if config.Convergence == ConvergeOnEmptyFrontier && d.frontier == nil {
		return nil, apperrors.InvalidConfig("convergence %s requires a frontier", config.Convergence)
	}
	if d.pool == nil {
		d.pool = parallel.NewWorkerPool(parallel.DefaultPoolConfig().WithWorkers(config.Concurrency))
	}
	if d.tracer == nil {
		d.tracer = telemetry.Tracer("engine")
	}
	return d, nil
}

// State returns the lifecycle state of the last run.
func (d *Driver) State() State {
	return d.state
}

// Config returns the driver config.
func (d *Driver) Config() Config {
	return d.config
}

// Run executes phases over [0, nodeCount) until the run converges, reaches
// MaxIterations or is cancelled. Cancellation through ctx or the
// termination flag is not an error: the partial result has DidConverge
// false. A failing or panicking step aborts the run with its error.
// RanIterations counts fully completed iterations.
func (d *Driver) Run(ctx context.Context, nodeCount int64, phases ...Phase) (result Result, err error) {
	if len(phases) == 0 {
		return Result{State: StateDone}, apperrors.InvalidConfig("at least one phase is required")
	}
	if d.frontier != nil && d.frontier.Size() != nodeCount {
		return Result{State: StateDone}, apperrors.InvalidConfig(
			"frontier size %d does not match node count %d", d.frontier.Size(), nodeCount)
	}

	start := time.Now()
	ctx, span := d.tracer.Start(ctx, "engine.Run", trace.WithAttributes(
		attribute.Int64("graph.node_count", nodeCount),
		attribute.Int("engine.concurrency", d.config.Concurrency),
		attribute.Int("engine.max_iterations", d.config.MaxIterations),
		attribute.String("engine.convergence", d.config.Convergence.String()),
	))
	defer func() {
		span.SetAttributes(
			attribute.Int("engine.ran_iterations", result.RanIterations),
			attribute.Bool("engine.did_converge", result.DidConverge),
			attribute.String("engine.state", string(result.State)),
		)
		telemetry.EndSpan(span, err)
	}()

	d.state = StateInit
	partitions := d.partitions
	if partitions == nil {
		partitions = partition.RangePartition(nodeCount, d.config.Concurrency, d.config.MinBatchSize)
	}
	steps := make([][]Step, len(phases))
	for i, phase := range phases {
		steps[i] = make([]Step, len(partitions))
		for j, p := range partitions {
			steps[i][j] = phase.NewStep(p)
		}
	}
	defer func() {
		for _, phaseSteps := range steps {
			for _, s := range phaseSteps {
				s.Release()
			}
		}
		d.state = StateDone
		result.Duration = time.Since(start)
	}()

	flag := termination.Any(termination.FromContext(ctx), d.flag)
	log := d.logger.WithFields(map[string]interface{}{
		"nodes":      nodeCount,
		"partitions": len(partitions),
	})

	d.state = StateRunning
	log.Debug("run started with %d phase(s)", len(phases))

	for iteration := 1; iteration <= d.config.MaxIterations; iteration++ {
		if !flag.Running() {
			return d.finish(log, result, StateCancelled), nil
		}

		converged, cancelled, err := d.runIteration(ctx, flag, iteration, nodeCount, phases, steps)
		if err != nil {
			log.Error("iteration %d failed: %v", iteration, err)
			return d.finish(log, result, StateDone), err
		}
		if cancelled {
			return d.finish(log, result, StateCancelled), nil
		}
		result.RanIterations = iteration
		if converged {
			result.DidConverge = true
			return d.finish(log, result, StateConverged), nil
		}
	}
	return d.finish(log, result, StateMaxIterationsReached), nil
}

func (d *Driver) finish(log utils.Logger, result Result, state State) Result {
	result.State = state
	d.state = state
	log.Debug("run finished: %s after %d iteration(s)", state, result.RanIterations)
	return result
}

func (d *Driver) runIteration(
	ctx context.Context,
	flag termination.Flag,
	iteration int,
	nodeCount int64,
	phases []Phase,
	steps [][]Step,
) (converged, cancelled bool, err error) {
	ctx, span := d.tracer.Start(ctx, "engine.Iteration", trace.WithAttributes(
		attribute.Int("engine.iteration", iteration),
	))
	defer func() { telemetry.EndSpan(span, err) }()

	var changed bool
	for i, phase := range phases {
		outcomes := make([]StepOutcome, len(steps[i]))
		tasks := make([]parallel.Task, len(steps[i]))
		for j, step := range steps[i] {
			tasks[j] = func(context.Context) error {
				outcomes[j] = step.Compute(iteration)
				d.tracker.LogProgress(outcomes[j].Processed)
				return nil
			}
		}

		// one sub-task per phase
		d.tracker.BeginSubTask(nodeCount)
		stats, err := d.pool.Run(ctx, flag, tasks)
		d.tracker.EndSubTask()
		if err != nil {
			return false, false, err
		}
		if stats.Skipped > 0 {
			span.SetAttributes(attribute.Int("engine.skipped_tasks", stats.Skipped))
			return false, true, nil
		}

		// only the last phase decides whether anything changed
		changed = false
		var processed int64
		for _, out := range outcomes {
			changed = changed || out.Changed
			processed += out.Processed
		}
		d.logger.Debug("iteration %d phase %q processed %d node(s), changed=%t",
			iteration, phase.Name, processed, changed)
	}

	switch d.config.Convergence {
	case ConvergeOnEmptyFrontier:
		d.frontier.Swap()
		active := d.frontier.ActiveCount()
		span.SetAttributes(attribute.Int64("engine.active_nodes", active))
		return active == 0, false, nil
	default:
		if d.frontier != nil {
			d.frontier.Swap()
		}
		return !changed, false, nil
	}
}
