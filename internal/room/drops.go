package room

import (
	"github.com/justapithecus/channeld/internal/gametypes"
	"github.com/justapithecus/channeld/internal/worldmap"
)

// PickUpDrop lets member attempt to claim the drop named by oid
// (spec.md §4.4 "pick_up_drop"). The caller (session layer) is
// responsible for crediting the claimed drop to the character's
// inventory/mesos and, on failure because the inventory has no room,
// unicasting InventoryFull — Room only arbitrates ground ownership.
func (r *Room) PickUpDrop(member *RoomMember, oid gametypes.OID) (gametypes.Drop, bool) {
	return r.m.PickupDrop(member.PlayerID, oid)
}

// GetDrop looks up a ground drop without claiming it, e.g. for an
// auto-pickup check before PickUpDrop (spec.md §4.4 "get_drop").
func (r *Room) GetDrop(oid gametypes.OID) (gametypes.Drop, bool) {
	return r.m.GetDrop(oid)
}

// Drop lands a player-initiated drop onto the map (spec.md §4.4
// "drop", §8 scenario S4).
func (r *Room) Drop(d gametypes.Drop) {
	r.m.DropItem(d)
}

// InventoryFull tells member their inventory had no room for a claimed
// drop (spec.md events: InventoryFull).
func (r *Room) InventoryFull(member *RoomMember, oid gametypes.OID) {
	member.Sender.Send(worldmap.InventoryFull{OID: oid})
}
