// Package dbdriver defines the boundary to the external database
// driver (spec.md §1: "async request/response with lock token"). Core
// only ever calls Lock/Request/Execute/Result; it never opens a SQL
// connection itself, matching spec.md §7's single-flight connection
// lock discipline: "Database connection — single-flight lock token;
// contention is absorbed by an event-fd on which the waiter polls."
package dbdriver

import (
	"context"

	"github.com/justapithecus/channeld/internal/gametypes"
)

// LockToken identifies this worker's hold on the single database
// connection. A zero LockToken is never valid.
type LockToken uint64

// Status is the outcome of an Execute poll (spec.md §7
// "DatabaseFailure: request returns negative status").
type Status int

const (
	StatusPending Status = iota
	StatusOK
	StatusFailed
)

// Request is an opaque, driver-owned handle to one in-flight
// operation, created by Request and consumed by Execute/Result.
type Request interface {
	// ID is a diagnostic identifier, not used for correctness.
	ID() uint64
}

// Driver is implemented by the concrete database adapter
// (dbdriver/sqladapter for production, dbdriver/memdriver for tests).
type Driver interface {
	// Lock blocks until this caller holds the single connection lock,
	// returning a token that must accompany every Request made under
	// it. The caller releases the lock by calling Unlock.
	Lock(ctx context.Context) (LockToken, error)
	// Unlock releases a previously acquired lock. Safe to call once per
	// successful Lock; a second call is a caller error.
	Unlock(token LockToken)

	// Request enqueues a parameterized operation under token, returning
	// a handle to poll via Execute.
	Request(token LockToken, op Op, params any) (Request, error)
	// Execute advances req and reports whether it has settled.
	Execute(ctx context.Context, req Request) (Status, error)
	// Result retrieves the settled value for req. Calling before
	// Execute reports non-pending Status is a caller error.
	Result(req Request) (any, error)
}

// Op names a CharacterFlush database operation (spec.md §5 "Two-phase.
// Phase 1 allocate_ids ... Phase 2 update_character").
type Op int

const (
	OpAllocateIDs Op = iota
	OpUpdateCharacter
)

// AllocateIDsParams requests Count durable ids for newly created
// inventory items / equipped equipment / equip-inventory slots
// (spec.md §5 phase 1 "for every new inventory item / equipped
// equipment / equip inventory slot with id==0, request the storage
// layer to allocate a durable id"). The settled Result is a []int64 of
// generated ids in ascending order.
type AllocateIDsParams struct {
	Count int
}

// UpdateCharacterParams carries the fully-patched character (all
// zero-ids already resolved by phase 1) for the phase-2 upsert
// (spec.md §5 phase 2).
type UpdateCharacterParams struct {
	Character *gametypes.Character
}
