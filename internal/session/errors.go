// Package session implements User (spec.md §4.5): the per-session,
// session-authoritative projection of a connected player's Character.
// It validates and applies client-issued actions, rejecting anything a
// legitimate client could never produce.
package session

import "errors"

// ErrShutdownBan is returned for syntactically or semantically
// impossible client input (spec.md §7 "PacketEdit / Ban": "illegal
// slot, unreachable portal, assign_stat with no AP" are this
// category's own examples — a conforming client tracks its own ap/hp/
// mp/skill state and would never issue an action that violates it).
// The caller (the session's packet-dispatch loop, not built in this
// package) must shut the connection down on receiving this error; any
// response frame already in flight still gets written.
var ErrShutdownBan = errors.New("session: illegal client input")
