package eventbus

import (
	"context"
	"time"
)

// Scheduler serializes every SetProperty call for the events it
// drives onto a single goroutine, implementing wait_for_event(seconds,
// cb, ctx, user_data) (spec.md §4.8). Timers fire on their own
// goroutines but only ever enqueue a callback; the callback itself
// always executes on the Scheduler's own run loop, so chained
// transitions (arrive -> close_gates@10s -> depart@5s -> arrive@15s)
// never race each other.
type Scheduler struct {
	work chan func()
	done chan struct{}
}

// NewScheduler starts the scheduler's run loop, which runs until ctx
// is canceled.
func NewScheduler(ctx context.Context) *Scheduler {
	s := &Scheduler{work: make(chan func(), 64), done: make(chan struct{})}
	go s.run(ctx)
	return s
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case fn := <-s.work:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// WaitForEvent schedules cb to run on the scheduler's goroutine after
// d elapses, the Go rendering of spec.md's
// "wait_for_event(seconds, cb, ctx, user_data)". cb is free to call
// WaitForEvent again to chain the next transition.
func (s *Scheduler) WaitForEvent(d time.Duration, cb func()) {
	t := time.AfterFunc(d, func() {
		select {
		case s.work <- cb:
		case <-s.done:
		}
	})
	_ = t
}

// Done is closed once the scheduler's run loop has exited.
func (s *Scheduler) Done() <-chan struct{} { return s.done }
