package sampling

import (
	"github.com/graph-analytics/pkg/parallel"
	"github.com/graph-analytics/pkg/progress"
	"github.com/graph-analytics/pkg/termination"
	"github.com/graph-analytics/pkg/utils"
)

// Option configures a sampler.
type Option func(*options)

type options struct {
	logger  utils.Logger
	tracker progress.Tracker
	flag    termination.Flag
	pool    *parallel.WorkerPool
}

// WithLogger sets the logger.
func WithLogger(logger utils.Logger) Option {
	return func(o *options) { o.logger = utils.OrNull(logger) }
}

// WithProgress sets the progress tracker.
func WithProgress(tracker progress.Tracker) Option {
	return func(o *options) { o.tracker = progress.OrNull(tracker) }
}

// WithTermination sets the flag walkers poll at walk boundaries.
func WithTermination(flag termination.Flag) Option {
	return func(o *options) {
		if flag != nil {
			o.flag = flag
		}
	}
}

// WithPool runs walkers on pool instead of a private one.
func WithPool(pool *parallel.WorkerPool) Option {
	return func(o *options) { o.pool = pool }
}

func buildOptions(concurrency int, opts []Option) options {
	o := options{
		logger:  &utils.NullLogger{},
		tracker: progress.NullTracker{},
		flag:    termination.AlwaysRunning,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.pool == nil {
		o.pool = parallel.NewWorkerPool(parallel.DefaultPoolConfig().WithWorkers(concurrency))
	}
	return o
}
