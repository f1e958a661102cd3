package worker

import (
	"context"
	"runtime"

	"github.com/justapithecus/channeld/internal/queue"
)

// ThreadPool creates N single-threaded Workers, N = logical CPUs by
// default (spec.md §4.6 "The pool creates N single-threaded Workers
// (N = logical CPUs)").
type ThreadPool struct {
	workers []*Worker
	queues  []*queue.CommandQueue
}

// NewThreadPool builds a pool of n workers, or runtime.NumCPU() if
// n <= 0. Each worker gets its own CommandQueue of the given depth.
func NewThreadPool(n, queueDepth int) *ThreadPool {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	p := &ThreadPool{
		workers: make([]*Worker, n),
		queues:  make([]*queue.CommandQueue, n),
	}
	for i := 0; i < n; i++ {
		p.queues[i] = queue.New(queueDepth)
		p.workers[i] = New(i, p.queues[i])
	}
	return p
}

// Len returns the number of workers in the pool.
func (p *ThreadPool) Len() int { return len(p.workers) }

// Worker returns the worker at index i.
func (p *ThreadPool) Worker(i int) *Worker { return p.workers[i] }

// Queue returns the command queue feeding worker i, used by
// coordinator/room code to post cross-worker commands.
func (p *ThreadPool) Queue(i int) *queue.CommandQueue { return p.queues[i] }

// Start launches every worker's Run loop in its own goroutine and
// returns immediately.
func (p *ThreadPool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown posts the NULL command that closes every worker's queue
// (spec.md §4.6 "A NULL command marks the queue closed; it must be the
// last command ever posted").
func (p *ThreadPool) Shutdown() {
	for _, q := range p.queues {
		_ = q.Post(nil)
	}
}
