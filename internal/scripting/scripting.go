// Package scripting defines the boundary to the external scripting
// engine (spec.md §1: an embedded interpreter for NPC/quest/portal/
// reactor scripts with coroutine-style yields). Core only calls
// Alloc/Run/Free and supplies host bindings that call back into the
// Host interface; it never implements an interpreter itself.
package scripting

import "context"

// Result is the terminal or intermediate outcome of a script Run call
// (spec.md §4.3.5, §4.5, §7 "ScriptFailure / ScriptKick").
type Result int

const (
	// Next means the script yielded and is awaiting a client response;
	// the instance remains alive.
	ResultNext Result = iota
	// Success is a normal terminal completion.
	ResultSuccess
	// Failure is a terminal completion without misbehavior.
	ResultFailure
	// Kick is a terminal completion that also ends the client session
	// (spec.md §7).
	ResultKick
)

// Instance is an opaque handle to a running script. Concrete engines
// define their own representation; core treats it as opaque.
type Instance interface {
	// Name is the script entry point this instance was allocated from,
	// used for diagnostics.
	Name() string
}

// Host is implemented by the caller (session.User / worldmap map
// binding) and exposed to running scripts as host-callable bindings
// (spec.md §1 "the core supplies host-exposed bindings that callback
// into the User and ReactorManager surfaces").
type Host interface {
	// SendOk/SendYesNo/... are invoked by scripts to present a dialogue
	// and suspend until the matching client response arrives; a real
	// engine implementation maps these onto its coroutine yield
	// mechanism. Only a minimal representative subset is modeled here;
	// production bindings expose the full NPC/quest/portal/reactor
	// surface.
	Warp(mapID int32, portal string) error
	GiveItem(itemID int32, quantity int16) error
	GiveExp(exp int64) error
	GiveMeso(meso int64) error
}

// Engine allocates, runs, and frees script instances (spec.md §1).
type Engine interface {
	// Alloc creates a new instance of the named script at the given
	// entry point, bound to host.
	Alloc(ctx context.Context, script, entry string, host Host) (Instance, error)
	// Run resumes instance with the given arguments (the client's last
	// response), returning its Result.
	Run(ctx context.Context, instance Instance, args ...any) (Result, error)
	// Free releases the instance's resources. Idempotent.
	Free(instance Instance) error
}
