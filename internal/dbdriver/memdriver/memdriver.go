// Package memdriver is an in-memory dbdriver.Driver used by tests and
// by persist's own test suite. It executes every request synchronously
// and never actually blocks on Lock, but still enforces the single-
// holder discipline: a second Lock while held and a Request without
// the current token return errors. Unlock with a stale or repeated
// token is silently ignored.
package memdriver

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/justapithecus/channeld/internal/dbdriver"
)

// Handler computes the result for one Op, given its params. Tests
// register a Handler per Op to simulate the storage layer.
type Handler func(params any) (any, error)

// Driver is a single-connection, synchronous dbdriver.Driver.
type Driver struct {
	mu       sync.Mutex
	held     bool
	token    dbdriver.LockToken
	nextTok  uint64
	handlers map[dbdriver.Op]Handler

	reqMu   sync.Mutex
	nextReq uint64
	reqs    map[uint64]*request
}

type request struct {
	id     uint64
	status dbdriver.Status
	value  any
	err    error
}

func (r *request) ID() uint64 { return r.id }

// New builds a Driver with the given per-Op handlers.
func New(handlers map[dbdriver.Op]Handler) *Driver {
	return &Driver{handlers: handlers, reqs: make(map[uint64]*request)}
}

var _ dbdriver.Driver = (*Driver)(nil)

func (d *Driver) Lock(ctx context.Context) (dbdriver.LockToken, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.held {
		return 0, fmt.Errorf("memdriver: connection already locked")
	}
	d.nextTok++
	d.token = dbdriver.LockToken(d.nextTok)
	d.held = true
	return d.token, nil
}

func (d *Driver) Unlock(token dbdriver.LockToken) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.held || token != d.token {
		return
	}
	d.held = false
}

func (d *Driver) Request(token dbdriver.LockToken, op dbdriver.Op, params any) (dbdriver.Request, error) {
	d.mu.Lock()
	ok := d.held && token == d.token
	d.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("memdriver: request without valid lock")
	}

	h, ok := d.handlers[op]
	if !ok {
		return nil, fmt.Errorf("memdriver: no handler registered for op %d", op)
	}

	id := atomic.AddUint64(&d.nextReq, 1)
	value, err := h(params)
	req := &request{id: id, value: value, err: err}
	if err != nil {
		req.status = dbdriver.StatusFailed
	} else {
		req.status = dbdriver.StatusOK
	}

	d.reqMu.Lock()
	d.reqs[id] = req
	d.reqMu.Unlock()

	return req, nil
}

func (d *Driver) Execute(ctx context.Context, r dbdriver.Request) (dbdriver.Status, error) {
	req, ok := r.(*request)
	if !ok {
		return dbdriver.StatusFailed, fmt.Errorf("memdriver: foreign request %T", r)
	}
	return req.status, nil
}

func (d *Driver) Result(r dbdriver.Request) (any, error) {
	req, ok := r.(*request)
	if !ok {
		return nil, fmt.Errorf("memdriver: foreign request %T", r)
	}
	if req.status == dbdriver.StatusPending {
		return nil, fmt.Errorf("memdriver: result requested before settlement")
	}
	return req.value, req.err
}
