package session

import (
	"github.com/justapithecus/channeld/internal/gametypes"
	"github.com/justapithecus/channeld/internal/resourcedb"
	"github.com/justapithecus/channeld/internal/room"
	"github.com/justapithecus/channeld/internal/scripting"
)

// WildcardMap is the sentinel "resolve by portal name" target (spec.md
// §4.5 "if target=0xFFFFFFFF, resolve by name"; spec.md §9 "prefer
// explicit Option in the port" — modeled here as a named constant
// rather than a raw (uint32_t)-1 cast, per that design note).
const WildcardMap int32 = -1

// Conn is the per-connection delivery boundary a User sends encoded
// events through. A real implementation wraps a wire.FrameReader/
// Writer pair and the session's send cipher; User never touches the
// wire directly.
type Conn interface {
	Send(event any)
}

// User is the per-session, session-authoritative projection of a
// connected player's Character (spec.md §3 "User", §4.5). It validates
// and applies client-issued actions before they reach Room/Map, owns
// the active script instance and dialogue-validation state, and
// implements both room.Sender (so it can be handed directly to
// Room.Join) and scripting.Host (so running scripts can warp, grant
// items/exp/meso, and drive dialogue through it).
type User struct {
	*gametypes.Character

	conn  Conn
	store resourcedb.Store

	Room   *room.Room
	Member *room.RoomMember
	engine scripting.Engine

	scriptState gametypes.ScriptRunState
	dialogue    gametypes.DialogueState
	scriptInst  scripting.Instance
	scriptQuest int32 // non-zero while scriptInst is running a quest start/end script
	scriptEnd   bool  // true if the running quest script is an end_quest script
}

var _ room.Sender = (*User)(nil)
var _ scripting.Host = (*User)(nil)

// New constructs a User over character, ready to validate actions
// against store's static data and run scripts through engine. Room/
// Member are nil until the caller joins this user into a Room (spec.md
// §4.4 "join(session, character, quest_items, reactor_mgr) →
// RoomMember").
func New(character *gametypes.Character, conn Conn, store resourcedb.Store, engine scripting.Engine) *User {
	return &User{Character: character, conn: conn, store: store, engine: engine}
}

// Send implements room.Sender, so a User can be passed directly as the
// sender argument to Room.Join.
func (u *User) Send(event any) { u.conn.Send(event) }

// Portal resolves a portal transition request (spec.md §4.5 "portal").
// If targetMapOrWildcard is WildcardMap, the named portal on the
// current map is resolved directly; otherwise the request is validated
// against the current map's forced-return portal, or (if the
// character is dead) its nearest-town portal.
func (u *User) Portal(targetMapOrWildcard int32, portalName string) (mapID int32, portal string, err error) {
	sta, ok := u.store.LookupMap(u.MapID)
	if !ok {
		return 0, "", ErrShutdownBan
	}

	if targetMapOrWildcard == WildcardMap {
		p, ok := sta.LookupPortal(portalName)
		if !ok {
			return 0, "", ErrShutdownBan
		}
		return p.TargetMap, p.TargetName, nil
	}

	if targetMapOrWildcard == sta.ForcedReturn {
		return targetMapOrWildcard, "sp", nil
	}
	if u.HP == 0 && targetMapOrWildcard == sta.NearestTown {
		return targetMapOrWildcard, "sp", nil
	}
	return 0, "", ErrShutdownBan
}

// ChangeMap updates the character's authoritative map id and notifies
// the client (spec.md §4.5 "change_map(target, portal) — update
// authoritative map id, send ChangeMap"). Moving the session's
// RoomMember to the new map's Room — including any cross-worker
// hand-off via RoomThreadCoordinator (spec.md §4.7) — is the caller's
// responsibility; ChangeMap only updates the character projection and
// emits the client-facing packet.
func (u *User) ChangeMap(target int32, portal string) {
	u.MapID = target
	u.PortalSP = resolvePortalSP(u.store, target, portal)
	u.conn.Send(ChangeMap{MapID: target, Portal: portal})
}

// resolvePortalSP looks up the numeric landing spawn-point for portal
// on mapID, defaulting to 0 if the map or portal is unknown (a
// freshly-created character's very first map has no portals yet).
func resolvePortalSP(store resourcedb.Store, mapID int32, portal string) int32 {
	sta, ok := store.LookupMap(mapID)
	if !ok {
		return 0
	}
	for i, p := range sta.Portals {
		if p.Name == portal {
			return int32(i)
		}
	}
	return 0
}

// NewMap sends the post-load init burst (spec.md §4.5 "new_map() —
// send the init burst: set-field, keymap, quickslot/macro/autoHP/
// autoMP/buddylist/gender/claim"). The quickslot/macro/claim surfaces
// are outside this port's simplified Character (spec.md §1 non-goals
// exclude cash-shop logic, which claim belongs to); the remaining
// fields are sent as modeled.
func (u *User) NewMap() {
	u.conn.Send(NewMapBurst{
		MapID:     u.MapID,
		KeyMap:    u.KeyMap,
		AutoHP:    u.AutoHP,
		AutoMP:    u.AutoMP,
		Buddylist: u.Buddylist,
		Gender:    u.Gender,
	})
}
