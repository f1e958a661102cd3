package gametypes

import "time"

// ReactorEventType is the trigger kind for a reactor state transition.
type ReactorEventType int

const (
	ReactorEventHit ReactorEventType = iota
)

// ReactorEvent is one edge out of a ReactorState (spec.md §3, §4.3.5).
type ReactorEvent struct {
	Type ReactorEventType
	Next int
}

// ReactorState is one node of a reactor's static state machine.
type ReactorState struct {
	Events []ReactorEvent
}

// ReactorTemplate is the static, read-only definition of a reactor's
// behavior (resourcedb.lookup_reactor), keyed by reactor id.
type ReactorTemplate struct {
	ID        int32
	States    []ReactorState
	Action    string // script name run when a terminal state is reached
	KeepAlive bool
}

// Reactor is a live map object with a state machine (spec.md §3).
type Reactor struct {
	OID       OID
	ID        int32
	X         int16
	Y         int16
	State     int
	KeepAlive bool

	// RespawnAt is set once the reactor is destroyed; the map respawns it
	// with State reset to 0 three seconds later (spec.md §4.3.5).
	RespawnAt time.Time
	Destroyed bool
}

// RespawnDelay is the fixed delay before a broken reactor reappears.
const RespawnDelay = 3 * time.Second
