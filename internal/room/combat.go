package room

import "github.com/justapithecus/channeld/internal/gametypes"

// FixupMonsterOIDs compacts away any oid (and its corresponding hits
// row) whose monster no longer exists, swapping each removed entry
// with the last live one so the packed arrays stay dense (spec.md
// §4.4 "fixup_monster_oids(oids[], dmg, hits) — compact away any oids
// whose monster no longer exists"). Called before every attack is
// applied, since a client's attack packet can name a monster that
// died to a different attacker earlier in the same tick.
func (r *Room) FixupMonsterOIDs(oids []gametypes.OID, hits [][]int64) ([]gametypes.OID, [][]int64) {
	n := len(oids)
	for i := 0; i < n; {
		if r.m.MonsterAlive(oids[i]) {
			i++
			continue
		}
		n--
		oids[i], oids[n] = oids[n], oids[i]
		hits[i], hits[n] = hits[n], hits[i]
	}
	return oids[:n], hits[:n]
}

// DamageMonsters applies an attack's per-oid hit rows (spec.md §4.4
// "damage_monsters(...) — loop over attacked oids: drive
// Map::damage_monster_by"). fixup_monster_oids is run first so stale
// entries never reach Map.DamageMonster. MonsterHP/KillMonster/loot
// announcements are Map's own responsibility via the Sink it was
// constructed with (this Room); DamageMonsters itself only drives the
// loop.
func (r *Room) DamageMonsters(attacker *RoomMember, oids []gametypes.OID, hits [][]int64) {
	oids, hits = r.FixupMonsterOIDs(oids, hits)
	for i, oid := range oids {
		r.m.DamageMonster(attacker.PlayerID, oid, hits[i])
	}
}

// CloseRangeAttack, RangedAttack and MagicAttack apply the attack's
// damage and relay the cosmetic attack animation to every other member
// (spec.md §4.4 "close_range_attack, ranged_attack, magic_attack").
// The three differ only in the animation packet a caller constructs;
// damage application is identical, so they share damageAndRelay.
func (r *Room) CloseRangeAttack(attacker *RoomMember, oids []gametypes.OID, hits [][]int64, animation any) {
	r.damageAndRelay(attacker, oids, hits, animation)
}

func (r *Room) RangedAttack(attacker *RoomMember, oids []gametypes.OID, hits [][]int64, animation any) {
	r.damageAndRelay(attacker, oids, hits, animation)
}

func (r *Room) MagicAttack(attacker *RoomMember, oids []gametypes.OID, hits [][]int64, animation any) {
	r.damageAndRelay(attacker, oids, hits, animation)
}

func (r *Room) damageAndRelay(attacker *RoomMember, oids []gametypes.OID, hits [][]int64, animation any) {
	r.DamageMonsters(attacker, oids, hits)
	r.Relay(attacker, animation)
}

// MoveMonster relays a controller's monster-movement packet to every
// other member (spec.md §4.4 "move_monster"); Room does not validate
// monster movement itself, matching Map's own "controller simulates,
// server trusts" delegation (spec.md GLOSSARY "Controller").
func (r *Room) MoveMonster(controller *RoomMember, event any) {
	r.Relay(controller, event)
}
