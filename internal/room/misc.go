package room

// The remaining §4.4 action helpers (update_stance/coords, move,
// sit_packet, chair, emote, take_damage) are cosmetic "others see me
// do X" packets with no Map-side effect, so they all relay through
// BroadcastExcept; level_up and effect are seen by everyone including
// the member who triggered them, so they go through Broadcast. Actual
// packet encoding/decoding is the session layer's job — Room only
// applies the correct fan-out discipline to whatever event it is
// handed.

// UpdateStanceCoords relays a movement/stance packet to every other
// member (spec.md §4.4 "update_stance/coords").
func (r *Room) UpdateStanceCoords(member *RoomMember, event any) { r.Relay(member, event) }

// Move relays a movement packet to every other member (spec.md §4.4
// "move").
func (r *Room) Move(member *RoomMember, event any) { r.Relay(member, event) }

// SitPacket relays a sit-on-chair-or-ground packet (spec.md §4.4
// "sit_packet").
func (r *Room) SitPacket(member *RoomMember, event any) { r.Relay(member, event) }

// Chair relays a placed-chair packet (spec.md §4.4 "chair").
func (r *Room) Chair(member *RoomMember, event any) { r.Relay(member, event) }

// Emote relays an emote packet (spec.md §4.4 "emote").
func (r *Room) Emote(member *RoomMember, event any) { r.Relay(member, event) }

// TakeDamage relays a player-took-damage packet; the member's own HP
// bookkeeping is session-authoritative (spec.md §4.5) and lives
// outside Room (spec.md §4.4 "take_damage").
func (r *Room) TakeDamage(member *RoomMember, event any) { r.Relay(member, event) }

// LevelUp broadcasts a level-up effect to everyone, including the
// member who leveled (spec.md §4.4 "level_up").
func (r *Room) LevelUp(event any) { r.Broadcast(event) }

// Effect broadcasts a generic visual effect to everyone (spec.md §4.4
// "effect").
func (r *Room) Effect(event any) { r.Broadcast(event) }
