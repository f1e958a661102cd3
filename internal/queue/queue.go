// Package queue implements the MPMC command/message queues the
// concurrency substrate is built on (spec.md §2 "MessageQueue",
// §5 "Shared-resource policy: MessageQueue — internal mutex, posting
// outside any room lock", §5 "Cross-worker commands preserve FIFO
// order per submitter; no ordering across submitters.").
package queue

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Post once the queue has been closed.
var ErrClosed = errors.New("queue: closed")

// Command is one cross-worker or intra-worker unit of work. A nil
// Command posted to a queue closes it (spec.md §5 "NULL command closes
// queue" discipline, used to unwind a worker's completion loop during
// shutdown).
type Command func()

// CommandQueue is a multi-producer, multi-consumer FIFO of Commands
// with an internal mutex; every producer's own posts are strictly
// ordered relative to each other (Go channel semantics already give
// this per-goroutine), but no ordering is implied across producers.
type CommandQueue struct {
	mu     sync.Mutex
	closed bool
	ch     chan Command

	// wake is closed the first time a nil command closes the queue, so
	// Recv can select on it the same way a worker polls an eventfd.
	wake chan struct{}
}

// New builds a CommandQueue with the given buffer depth.
func New(depth int) *CommandQueue {
	return &CommandQueue{
		ch:   make(chan Command, depth),
		wake: make(chan struct{}),
	}
}

// Post enqueues cmd. A nil cmd closes the queue: subsequent Posts
// return ErrClosed and Recv observes the close.
func (q *CommandQueue) Post(cmd Command) (err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	if cmd == nil {
		q.closed = true
		close(q.wake)
		close(q.ch)
		return nil
	}

	// Holding mu across the send (rather than just the closed check)
	// keeps a concurrent Post(nil) from closing q.ch between our check
	// and our send, which would otherwise panic.
	q.ch <- cmd
	return nil
}

// Recv blocks for the next Command, or returns ok=false once the queue
// has been closed and fully drained — the worker's analogue of polling
// an eventfd for the next completion (spec.md §3 "Worker").
func (q *CommandQueue) Recv() (cmd Command, ok bool) {
	cmd, ok = <-q.ch
	return cmd, ok
}

// Closed reports whether the queue has been closed.
func (q *CommandQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
