// Package worldmap implements Map, the per-room simulation core
// (spec.md §4.3): spawning/respawn, monster damage and control
// handoff, deterministic loot generation, the drop lifecycle, reactor
// state machines, and player join/leave. A Map is owned by exactly one
// worker.Worker at a time (spec.md §5 "every per-map mutation occurs
// in the thread owning that room"); every exported Map method must
// only ever be called from that Worker's Run goroutine, and every
// delayed transition (respawn, drop exclusivity/expiry, dropping-batch
// pacing, reactor respawn) is scheduled via that same Worker's
// SubmitTimeout so it is delivered back on the same goroutine.
package worldmap

import "github.com/justapithecus/channeld/internal/gametypes"

// Sink receives the presentation-layer events Map produces. room.Room
// implements Sink to fan broadcasts to every member and unicasts to the
// one member they target, applying quest-item visibility filtering per
// spec.md §4.4 before forwarding a DropItem event to any one member.
type Sink interface {
	// Broadcast fans event to every member of the room (spec.md §4.4
	// "room_broadcast fans a packet to every member").
	Broadcast(event any)
	// BroadcastExcept fans event to every member except except (spec.md
	// §4.4 "room_member_broadcast fans to every member except the
	// sender").
	BroadcastExcept(except uint64, event any)
	// Unicast delivers event to exactly one player, identified by the
	// stable PlayerID carried on gametypes.ControllerRef.
	Unicast(playerID uint64, event any)
}

// SpawnMonster announces a newly spawned (or already-live, for a
// joining player) monster to the room.
type SpawnMonster struct {
	Monster gametypes.Monster
}

// SpawnMonsterController additionally tells one player they now
// control a monster.
type SpawnMonsterController struct {
	OID gametypes.OID
}

// RemoveMonsterController tells a player they no longer control a monster.
type RemoveMonsterController struct {
	OID gametypes.OID
}

// MonsterHP reports a monster's HP percentage to its current attacker.
type MonsterHP struct {
	OID     gametypes.OID
	Percent int
}

// KillMonster announces a monster's death to the room.
type KillMonster struct {
	OID gametypes.OID
}

// ChangeReactorState announces a reactor's state advancing without
// reaching a terminal node.
type ChangeReactorState struct {
	OID   gametypes.OID
	State int
}

// DestroyReactor announces a reactor reaching a terminal, non-keep-alive
// SUCCESS state.
type DestroyReactor struct {
	OID gametypes.OID
}

// SpawnReactor announces a reactor reappearing after RespawnDelay.
type SpawnReactor struct {
	OID   gametypes.OID
	State int
}

// DropMeso announces a mesos drop landing. PlayerDrop distinguishes a
// player-initiated drop (spec.md §8 scenario S4) from a monster/reactor
// kill drop, matching the source's player-originated-vs-not flag.
type DropMeso struct {
	OID        gametypes.OID
	Amount     int32
	PlayerDrop bool
}

// DropItem announces a non-equip item stack, or an equip if Equip is
// set, landing. QuestID non-zero marks the drop quest-flagged for
// Room's visibility filtering (spec.md §4.4, §8 property 6).
type DropItem struct {
	OID        gametypes.OID
	Item       gametypes.InventoryItem
	Equip      gametypes.Equipment
	IsEquip    bool
	QuestID    int32
	PlayerDrop bool
}

// RemoveDrop announces a drop leaving the ground, either via pickup or
// expiry.
type RemoveDrop struct {
	OID gametypes.OID
}

// InventoryFull is the "inventory full" feedback for a failed auto-pickup.
type InventoryFull struct {
	OID gametypes.OID
}

// KickSession tells the room to end one player's client session, sent
// when a reactor or NPC script resolves to scripting.ResultKick
// (spec.md §7 "ScriptKick").
type KickSession struct{}

// SystemNotice is a map-wide text announcement, used for the
// area-boss reset's "map-specific welcome system notice" (spec.md
// §4.8).
type SystemNotice struct {
	Text string
}
