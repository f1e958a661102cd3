package worldmap

import (
	"time"

	"github.com/justapithecus/channeld/internal/gametypes"
)

// settleDrops allocates OIDs for loot and lands it as a single exclusive
// DropBatch (spec.md §4.3.4): ownerID holds first-pickup rights for
// ExclusiveUntil, after which anyone may pick up; the whole batch
// expires ExpireAfter after it landed. ownerID == 0 means ownerless
// from the start (no attributable triggering player).
func (m *Map) settleDrops(loot []gametypes.Drop, ownerID uint64, playerDrop bool) *gametypes.DropBatch {
	if len(loot) == 0 {
		return nil
	}
	for i := range loot {
		oid, obj, ok := m.objects.Allocate()
		if !ok {
			continue
		}
		obj.Tag = gametypes.TagDrop
		loot[i].OID = oid
	}

	batch := &gametypes.DropBatch{
		Drops:     loot,
		OwnerID:   ownerID,
		Exclusive: true,
		SpawnedAt: time.Now(),
	}
	if ownerID != 0 {
		batch.Owner = &gametypes.ControllerRef{PlayerID: ownerID}
	}
	m.dropBatches = append(m.dropBatches, batch)
	if p, _, ok := m.findPlayerByID(ownerID); ok {
		p.ownedDropBatches = append(p.ownedDropBatches, batch)
	}

	for _, d := range loot {
		m.sink.Broadcast(dropEventFor(d, playerDrop))
	}

	m.w.SubmitTimeout(gametypes.ExclusiveUntil, func() { batch.Exclusive = false })
	m.w.SubmitTimeout(gametypes.ExpireAfter, func() { m.expireDropBatch(batch) })
	return batch
}

// expireDropBatch removes batch, if still present, 300s after it
// landed (spec.md §4.3.4). A no-op if the batch was already fully
// picked up in the meantime.
func (m *Map) expireDropBatch(batch *gametypes.DropBatch) {
	if !m.removeDropBatch(batch) {
		return
	}
	for _, d := range batch.Drops {
		m.objects.Free(d.OID)
		m.sink.Broadcast(RemoveDrop{OID: d.OID})
	}
}

func (m *Map) removeDropBatch(batch *gametypes.DropBatch) bool {
	for i, b := range m.dropBatches {
		if b != batch {
			continue
		}
		m.dropBatches[i] = m.dropBatches[len(m.dropBatches)-1]
		m.dropBatches = m.dropBatches[:len(m.dropBatches)-1]
		if owner, _, ok := m.findPlayerByID(batch.OwnerID); ok {
			removeDropBatchPtr(&owner.ownedDropBatches, batch)
		}
		return true
	}
	return false
}

func removeDropBatchPtr(s *[]*gametypes.DropBatch, target *gametypes.DropBatch) {
	for i, b := range *s {
		if b == target {
			(*s)[i] = (*s)[len(*s)-1]
			*s = (*s)[:len(*s)-1]
			return
		}
	}
}

// beginDroppingBatch starts a progressive drop sequence (spec.md
// §4.3.4): one drop appears every DropInterval until all of loot has
// been emitted, at which point it folds into a settled DropBatch.
// dropperOID is the monster or reactor whose death produced loot;
// keepAlive, when true, leaves the dropper alive once emission
// finishes (spec.md GLOSSARY "Keep-alive (reactor)").
func (m *Map) beginDroppingBatch(loot []gametypes.Drop, ownerID uint64, dropperOID gametypes.OID, keepAlive bool) {
	batch := &gametypes.DroppingBatch{
		Drops:      loot,
		OwnerID:    ownerID,
		DropperOID: dropperOID,
		KeepAlive:  keepAlive,
	}
	if ownerID != 0 {
		batch.Owner = &gametypes.ControllerRef{PlayerID: ownerID}
	}
	m.droppingBatches = append(m.droppingBatches, batch)
	if p, _, ok := m.findPlayerByID(ownerID); ok {
		p.ownedDroppingBatches = append(p.ownedDroppingBatches, batch)
	}
	m.emitNextDrop(batch)
}

func (m *Map) emitNextDrop(batch *gametypes.DroppingBatch) {
	if batch.Current >= len(batch.Drops) {
		return
	}
	idx := batch.Current
	if oid, obj, ok := m.objects.Allocate(); ok {
		obj.Tag = gametypes.TagDropping
		batch.Drops[idx].OID = oid
		m.sink.Broadcast(dropEventFor(batch.Drops[idx], false))
	}
	batch.Current++

	if batch.Current < len(batch.Drops) {
		m.w.SubmitTimeout(gametypes.DropInterval, func() { m.emitNextDrop(batch) })
		return
	}
	m.finishDroppingBatch(batch)
}

// finishDroppingBatch converts a fully-emitted DroppingBatch into a
// settled DropBatch with its own exclusivity/expiry timers, then
// destroys the dropper unless it was told to keep alive (spec.md
// §4.3.4, §4.3.5).
func (m *Map) finishDroppingBatch(batch *gametypes.DroppingBatch) {
	m.removeDroppingBatch(batch)

	settled := &gametypes.DropBatch{
		Drops:     batch.Drops,
		Owner:     batch.Owner,
		OwnerID:   batch.OwnerID,
		Exclusive: true,
		SpawnedAt: time.Now(),
	}
	m.dropBatches = append(m.dropBatches, settled)
	if p, _, ok := m.findPlayerByID(batch.OwnerID); ok {
		p.ownedDropBatches = append(p.ownedDropBatches, settled)
	}
	m.w.SubmitTimeout(gametypes.ExclusiveUntil, func() { settled.Exclusive = false })
	m.w.SubmitTimeout(gametypes.ExpireAfter, func() { m.expireDropBatch(settled) })

	if batch.KeepAlive {
		return
	}
	if dropper, ok := m.monsters[batch.DropperOID]; ok && dropper.LootDropped {
		m.destroyMonster(dropper)
	}
	if reactor, ok := m.reactors[batch.DropperOID]; ok {
		m.destroyReactor(reactor)
	}
}

func (m *Map) removeDroppingBatch(batch *gametypes.DroppingBatch) bool {
	for i, b := range m.droppingBatches {
		if b != batch {
			continue
		}
		m.droppingBatches[i] = m.droppingBatches[len(m.droppingBatches)-1]
		m.droppingBatches = m.droppingBatches[:len(m.droppingBatches)-1]
		if owner, _, ok := m.findPlayerByID(batch.OwnerID); ok {
			removeDroppingBatchPtr(&owner.ownedDroppingBatches, batch)
		}
		return true
	}
	return false
}

func removeDroppingBatchPtr(s *[]*gametypes.DroppingBatch, target *gametypes.DroppingBatch) {
	for i, b := range *s {
		if b == target {
			(*s)[i] = (*s)[len(*s)-1]
			*s = (*s)[:len(*s)-1]
			return
		}
	}
}

// DropItem lands a single player-initiated drop, e.g. a player dropping
// mesos or an item onto the ground (spec.md §4.4 "drop", §8 scenario
// S4 "client drops 300 mesos; server emits DropMeso(player_drop=true)").
// Unlike a kill's loot, a voluntary drop carries no pickup exclusivity
// for its dropper.
func (m *Map) DropItem(d gametypes.Drop) *gametypes.DropBatch {
	return m.settleDrops([]gametypes.Drop{d}, 0, true)
}

// GetDrop returns the drop named by oid without removing it, for a
// client's auto-pickup check prior to PickupDrop (spec.md §4.4
// "get_drop").
func (m *Map) GetDrop(oid gametypes.OID) (gametypes.Drop, bool) {
	for _, b := range m.dropBatches {
		for _, d := range b.Drops {
			if d.OID == oid {
				return d, true
			}
		}
	}
	for _, b := range m.droppingBatches {
		for _, d := range b.Drops[:b.Current] {
			if d.OID == oid {
				return d, true
			}
		}
	}
	return gametypes.Drop{}, false
}

// PickupDrop removes a single drop from whichever batch holds it and
// returns it, refusing the pickup if the batch is still in its
// exclusivity window and owned by someone else (spec.md §4.3.4).
func (m *Map) PickupDrop(playerID uint64, oid gametypes.OID) (gametypes.Drop, bool) {
	for _, batch := range m.dropBatches {
		for i, d := range batch.Drops {
			if d.OID != oid {
				continue
			}
			if batch.Exclusive && batch.OwnerID != 0 && batch.OwnerID != playerID {
				return gametypes.Drop{}, false
			}
			batch.Drops[i] = batch.Drops[len(batch.Drops)-1]
			batch.Drops = batch.Drops[:len(batch.Drops)-1]
			m.objects.Free(oid)
			m.sink.Broadcast(RemoveDrop{OID: oid})
			if len(batch.Drops) == 0 {
				m.removeDropBatch(batch)
			}
			return d, true
		}
	}
	return gametypes.Drop{}, false
}
