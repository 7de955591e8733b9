package swrcache

import (
	"context"
	"fmt"
)

// Scheduler runs detached refresh tasks. Schedule must not block on task
// and must not drop it. Tasks recover their own panics.
type Scheduler interface {
	Schedule(task func())
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func(task func())

func (f SchedulerFunc) Schedule(task func()) { f(task) }

// GoScheduler starts one goroutine per task. No handle is kept: tasks are
// never joined or cancelled.
type GoScheduler struct{}

func (GoScheduler) Schedule(task func()) { go task() }

// refreshInBackground launches source+write for args on the scheduler.
// The task inherits ctx values but not its cancellation, so returning from
// Get does not abort it. Its outcome only reaches OnError, Hooks and the log.
func (c *cache[V]) refreshInBackground(ctx context.Context, args Args, src Source[V], s settings[V]) {
	bctx := context.WithoutCancel(ctx)
	c.sched.Schedule(func() {
		defer func() {
			if r := recover(); r != nil {
				c.refreshFailed(args, s, fmt.Errorf("swrcache: background refresh panic: %v", r))
			}
		}()

		v, err := src(bctx, args)
		if err != nil {
			c.refreshFailed(args, s, err)
			return
		}
		if err := c.writeThrough(bctx, args, v, s); err != nil {
			c.refreshFailed(args, s, err)
			return
		}
		c.log.Debug("background refresh done", Fields{"ns": args.Namespace, "id": args.ID})
	})
}

// refreshFailed reports err to every sink. It runs on the refresh goroutine,
// so a panicking OnError or hook is recovered and logged instead of crashing
// the process.
func (c *cache[V]) refreshFailed(args Args, s settings[V], err error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("error sink panicked during background refresh", Fields{"ns": args.Namespace, "id": args.ID, "panic": r, "err": err})
		}
	}()
	c.hooks.RefreshFailed(args.Namespace, args.ID, err)
	c.log.Warn("background refresh failed", Fields{"ns": args.Namespace, "id": args.ID, "err": err})
	if s.onError != nil {
		s.onError(err)
	}
}
