package worldmap

import "github.com/justapithecus/channeld/internal/gametypes"

// DamageMonster applies hits (each already the final per-hit damage
// value) to the monster identified by oid, attributing control to
// attackerID if it was not already the controller (spec.md §4.3.2:
// "the first hit from a non-controller reassigns control before
// applying damage").
//
// Returns killed=true if this call brought the monster's HP to zero
// or below. A dead monster is NOT removed by this call — it either
// destroys immediately (single-or-no drop) or lingers until its
// dropping batch completes; see onMonsterKilled.
func (m *Map) DamageMonster(attackerID uint64, oid gametypes.OID, hits []int64) (killed bool) {
	mon, ok := m.monsters[oid]
	if !ok || !mon.Alive() {
		return false
	}

	if mon.Controller == nil || mon.Controller.PlayerID != attackerID {
		m.reassignController(attackerID, mon)
	}

	var total int64
	for _, h := range hits {
		if h > 0 {
			total += h
		}
	}
	mon.HP -= total
	if mon.HP < 0 {
		mon.HP = 0
	}

	percent := 0
	if mon.MaxHP > 0 {
		percent = int(mon.HP * 100 / mon.MaxHP)
	}
	m.sink.Unicast(attackerID, MonsterHP{OID: oid, Percent: percent})

	if mon.HP == 0 {
		m.onMonsterKilled(mon, attackerID)
		return true
	}
	return false
}

// reassignController hands control of mon to attacker directly
// (bypassing the heap, since combat-driven reassignment is attacker-
// chosen, not load-balanced), notifying the old controller it has
// lost the monster and the new one that it has gained it.
func (m *Map) reassignController(attackerID uint64, mon *gametypes.Monster) {
	if mon.Controller != nil {
		oldID := mon.Controller.PlayerID
		m.detachController(mon)
		m.sink.Unicast(oldID, RemoveMonsterController{OID: mon.OID})
	}

	attacker, _, ok := m.findPlayerByID(attackerID)
	if !ok {
		return
	}
	mon.Controller = &gametypes.ControllerRef{PlayerID: attackerID}
	mon.IndexInController = len(attacker.monsterOIDs)
	attacker.monsterOIDs = append(attacker.monsterOIDs, mon.OID)
	m.heap.Inc(attacker.heapNode, 1)
	m.sink.Unicast(attackerID, SpawnMonsterController{OID: mon.OID})
}

// onMonsterKilled generates loot for mon and either destroys it
// immediately (zero or one drop) or lets it lingers as the source of a
// progressive DroppingBatch (spec.md §4.3.2, §4.3.4).
func (m *Map) onMonsterKilled(mon *gametypes.Monster, killerID uint64) {
	m.detachController(mon)

	var loot []gametypes.Drop
	if tmpl, ok := m.store.LookupMonster(mon.ID); ok {
		loot = m.rollLoot(tmpl.DropTable)
	}

	if len(loot) <= 1 {
		m.settleDrops(loot, killerID, false)
		m.destroyMonster(mon)
		return
	}

	mon.LootDropped = true
	m.beginDroppingBatch(loot, killerID, mon.OID, false)
}

// destroyMonster frees mon's OID, removes it from tracking, and
// notifies the room; if it came from a Spawner the slot is returned to
// the dead pool for the next respawn wave, the designated boss instead
// simply stops existing until RespawnBoss recreates it.
func (m *Map) destroyMonster(mon *gametypes.Monster) {
	delete(m.monsters, mon.OID)
	m.objects.Free(mon.OID)
	if mon.SpawnerIndex >= 0 {
		m.dead = append(m.dead, mon.SpawnerIndex)
		m.aliveCount--
	}
	m.sink.Broadcast(KillMonster{OID: mon.OID})
}

// spawnBoss allocates the map's designated boss from its static
// MapStatic.BossID/X/Y/FH, used both at map construction (sta.HasBoss)
// and by RespawnBoss. A failed OID allocation leaves m.boss nil; the
// boss simply does not exist until the next reset attempt.
func (m *Map) spawnBoss() {
	oid, obj, ok := m.objects.Allocate()
	if !ok {
		return
	}
	obj.Tag = gametypes.TagBoss
	m.boss = &gametypes.Monster{
		OID:          oid,
		ID:           m.sta.BossID,
		X:            m.sta.BossX,
		Y:            m.sta.BossY,
		FH:           m.sta.BossFH,
		SpawnerIndex: -1,
		IsBoss:       true,
	}
	if tmpl, ok := m.store.LookupMonster(m.sta.BossID); ok {
		m.boss.HP, m.boss.MaxHP = tmpl.MaxHP, tmpl.MaxHP
	}
	m.monsters[oid] = m.boss
}

// RespawnBoss recreates the map's designated boss if it is not
// currently alive, broadcasting its reappearance to the room (spec.md
// §4.8 area-boss reset: "on success, the boss's home map respawns its
// boss and every current member receives a map-specific welcome system
// notice"). Reports whether a respawn actually happened; a no-op call
// against a map with no boss or a still-living boss returns false.
func (m *Map) RespawnBoss() bool {
	if !m.sta.HasBoss {
		return false
	}
	if m.boss != nil && m.boss.Alive() {
		return false
	}
	if m.boss != nil {
		delete(m.monsters, m.boss.OID)
		m.objects.Free(m.boss.OID)
		m.boss = nil
	}
	m.spawnBoss()
	if m.boss == nil {
		return false
	}
	m.sink.Broadcast(SpawnMonster{Monster: *m.boss})
	return true
}
