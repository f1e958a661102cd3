package room

import (
	"github.com/justapithecus/channeld/internal/gametypes"
	"github.com/justapithecus/channeld/internal/scripting"
)

// HitReactor drives a reactor's state machine on a HIT event from
// member (spec.md §4.4 "hit_reactor"). host binds the reactor's action
// script, if one runs, back to member's character.
func (r *Room) HitReactor(member *RoomMember, oid gametypes.OID, host scripting.Host) {
	r.m.HitReactor(member.PlayerID, oid, host)
}

// ResumeReactor advances a reactor's already-running script instance
// with the client's latest dialogue response.
func (r *Room) ResumeReactor(member *RoomMember, oid gametypes.OID, args ...any) {
	r.m.ResumeReactor(member.PlayerID, oid, args...)
}
