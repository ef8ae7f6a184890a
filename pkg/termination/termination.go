// Package termination provides the cooperative cancellation signal polled by
// long-running algorithms at safe points.
package termination

import (
	"context"
	"sync/atomic"
)

// Flag reports whether work may continue. Implementations must be safe for
// concurrent use.
type Flag interface {
	Running() bool
}

type alwaysRunning struct{}

func (alwaysRunning) Running() bool { return true }

// AlwaysRunning never requests termination.
var AlwaysRunning Flag = alwaysRunning{}

type contextFlag struct {
	ctx context.Context
}

func (f contextFlag) Running() bool {
	return f.ctx.Err() == nil
}

// FromContext returns a flag that stops running once ctx is done.
func FromContext(ctx context.Context) Flag {
	if ctx == nil {
		return AlwaysRunning
	}
	return contextFlag{ctx: ctx}
}

// Manual is a flag stopped explicitly by its owner.
type Manual struct {
	stopped atomic.Bool
}

// NewManual returns a running Manual flag.
func NewManual() *Manual {
	return &Manual{}
}

// Running implements Flag.
func (m *Manual) Running() bool {
	return !m.stopped.Load()
}

// Stop makes every later Running call return false.
func (m *Manual) Stop() {
	m.stopped.Store(true)
}

// StopAfter returns a flag that reports running for the first n polls and
// stopped afterwards.
func StopAfter(n int64) Flag {
	f := &countdown{}
	f.remaining.Store(n)
	return f
}

type countdown struct {
	remaining atomic.Int64
}

func (c *countdown) Running() bool {
	return c.remaining.Add(-1) >= 0
}

// Any combines flags; it stops running as soon as one of them stops.
func Any(flags ...Flag) Flag {
	return anyFlag(flags)
}

type anyFlag []Flag

func (a anyFlag) Running() bool {
	for _, f := range a {
		if !f.Running() {
			return false
		}
	}
	return true
}
