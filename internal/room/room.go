// Package room implements Room (spec.md §4.4): a Map bound to its
// current members and to the Worker that owns both. Room is the
// presentation-layer boundary worldmap.Map emits through — it
// implements worldmap.Sink, fanning Map's events out to members and
// applying quest-item visibility filtering (spec.md §4.4, §8 property
// 6) before a quest-flagged drop ever reaches a Send call.
package room

import (
	"math/rand/v2"

	"github.com/justapithecus/channeld/internal/eventbus"
	"github.com/justapithecus/channeld/internal/gametypes"
	"github.com/justapithecus/channeld/internal/resourcedb"
	"github.com/justapithecus/channeld/internal/scripting"
	"github.com/justapithecus/channeld/internal/worker"
	"github.com/justapithecus/channeld/internal/worldmap"
)

// Sender is the per-session delivery boundary a RoomMember is joined
// with. The session layer (not built in this package) implements it
// over an encrypted wire.FrameReader/Writer pair; Room never touches
// the wire directly.
type Sender interface {
	Send(event any)
}

// RoomMember is one joined player's presence in a Room (spec.md §4.4
// "join(...) -> RoomMember").
type RoomMember struct {
	PlayerID    uint64
	CharacterID uint64
	Handle      worldmap.PlayerHandle
	Sender      Sender
}

// Room is a Map plus its current members, bound to a single Worker
// (spec.md GLOSSARY "Room: a Map + its members, bound to a Worker").
// Every exported method must only ever be called from w's Run
// goroutine, the same discipline worldmap.Map itself requires.
type Room struct {
	mapID int32
	w     *worker.Worker

	m       *worldmap.Map
	members map[uint64]*RoomMember
	order   []uint64 // join order, for deterministic ForEachMember iteration
}

// Create constructs a Room over a fresh Map for mapID (spec.md §4.4
// "create(worker, event_manager, map_id)"). eventMgr is accepted for
// signature parity with the spec's operation list; wiring a Room's
// maps up to EventManager listeners (e.g. area-boss reset, boat
// warps) is done by the caller registering against eventMgr directly,
// since the registration target (which property, which warp targets)
// is map-specific data the Room itself does not own.
func Create(w *worker.Worker, eventMgr *eventbus.Manager, store resourcedb.Store, sta resourcedb.MapStatic, engine scripting.Engine, rng *rand.Rand) *Room {
	r := &Room{
		mapID:   sta.ID,
		w:       w,
		members: make(map[uint64]*RoomMember),
	}
	r.m = worldmap.New(sta.ID, w, r, store, sta, engine, rng)
	return r
}

// MapID returns the room's static map identifier.
func (r *Room) MapID() int32 { return r.mapID }

// Map exposes the underlying simulation core for the operations this
// package does not itself wrap 1:1 (e.g. AddReactor at room setup).
func (r *Room) Map() *worldmap.Map { return r.m }

// RespawnBoss recreates the room's designated boss if it is not
// currently alive, broadcasting its reappearance. Used by the
// area-boss reset event listener (spec.md §4.8); reports whether a
// respawn actually happened.
func (r *Room) RespawnBoss() bool { return r.m.RespawnBoss() }

// Join admits characterID's session to the room (spec.md §4.4
// "join(session, character, quest_items, reactor_mgr) -> RoomMember").
// questItems seeds the member's quest-flagged-item visibility set
// (spec.md §8 property 6); reactor_mgr has no counterpart here since
// reactor state lives entirely on the Map.
func (r *Room) Join(playerID, characterID uint64, autoPickup bool, questItems map[int32]bool, sender Sender) *RoomMember {
	member := &RoomMember{PlayerID: playerID, CharacterID: characterID, Sender: sender}
	// Register before Map.Join: Map.Join unicasts the join-time snapshot
	// (self, live monsters, reactor states, ground drops) inline, before
	// it returns a handle, so the member and its quest-item set must
	// already exist for isVisibleDrop/Unicast to see them correctly.
	r.members[playerID] = member
	r.order = append(r.order, playerID)

	member.Handle = r.m.Join(playerID, autoPickup, questItems)
	return member
}

// Leave removes member from the room (spec.md §4.4 "leave(member)").
func (r *Room) Leave(member *RoomMember) {
	r.m.Leave(member.Handle)
	delete(r.members, member.PlayerID)
	for i, id := range r.order {
		if id == member.PlayerID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// ForEachMember calls f once per joined member, in join order (spec.md
// §4.4 "foreach_member(f)").
func (r *Room) ForEachMember(f func(*RoomMember)) {
	for _, id := range r.order {
		if m, ok := r.members[id]; ok {
			f(m)
		}
	}
}

// Member looks up a joined member by player id.
func (r *Room) Member(playerID uint64) (*RoomMember, bool) {
	m, ok := r.members[playerID]
	return m, ok
}

// AddQuestItems marks ids visible to member going forward (spec.md
// §4.4 "add_quest_items", §4.5 "Items flagged quest become visible to
// the member only after this call adds them to questItems").
func (r *Room) AddQuestItems(member *RoomMember, ids []int32) {
	p, ok := r.m.Resolve(member.Handle)
	if !ok {
		return
	}
	for _, id := range ids {
		p.QuestItems[id] = true
	}
}

// isVisibleDrop reports whether a DropItem event should reach
// playerID: non-quest-flagged drops are visible to everyone; a
// quest-flagged drop is visible only to members whose questItems
// contains it (spec.md §4.4, §8 property 6). Resolved by player ID
// rather than by RoomMember.Handle since this is also called for the
// join-time snapshot unicasts Map.Join fires before it has returned a
// handle to Room.Join.
func (r *Room) isVisibleDrop(event any, playerID uint64) bool {
	di, ok := event.(worldmap.DropItem)
	if !ok || di.QuestID == 0 {
		return true
	}
	p, ok := r.m.ResolveByID(playerID)
	return ok && p.QuestItems[di.QuestID]
}

// Broadcast implements worldmap.Sink (spec.md §4.4 "room_broadcast
// fans a packet to every member").
func (r *Room) Broadcast(event any) {
	for _, id := range r.order {
		if r.isVisibleDrop(event, id) {
			r.members[id].Sender.Send(event)
		}
	}
}

// BroadcastExcept implements worldmap.Sink (spec.md §4.4
// "room_member_broadcast fans to every member except the sender").
func (r *Room) BroadcastExcept(except uint64, event any) {
	for _, id := range r.order {
		if id == except {
			continue
		}
		if r.isVisibleDrop(event, id) {
			r.members[id].Sender.Send(event)
		}
	}
}

// Unicast implements worldmap.Sink. A quest-flagged drop is still
// filtered even when addressed to one specific member — this is the
// path Map.Join uses to snapshot already-settled ground drops to a
// newly joined player, and an invisible quest drop must stay invisible
// there too.
func (r *Room) Unicast(playerID uint64, event any) {
	member, ok := r.members[playerID]
	if !ok || !r.isVisibleDrop(event, playerID) {
		return
	}
	member.Sender.Send(event)
}

// Relay re-broadcasts a cosmetic, state-free packet from member to
// every other member (spec.md §4.4 "update_stance/coords, move,
// sit_packet, chair, emote, move_monster" — all room_member_broadcast
// "others see me do X" packets with no Map-side effect).
func (r *Room) Relay(member *RoomMember, event any) {
	r.BroadcastExcept(member.PlayerID, event)
}

// Chat fans a chat packet to every member, including the sender
// (spec.md §4.4 "chat").
func (r *Room) Chat(event any) {
	r.Broadcast(event)
}
