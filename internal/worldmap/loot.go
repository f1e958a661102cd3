package worldmap

import "github.com/justapithecus/channeld/internal/gametypes"

// dropRateMultiplier is the server drop rate applied uniformly to every
// drop table entry's chance before the guaranteed/residual split
// (spec.md §4.3.3).
const dropRateMultiplier = 16

const chanceDenominator = 1_000_000

// rollLoot evaluates mon's drop table and returns the drops a kill
// produces (spec.md §4.3.3):
//
//   - scaled := entry.ChancePerMillion * dropRateMultiplier
//   - guaranteed := scaled / 1_000_000 copies always drop, except that
//     a meso entry's guaranteed portion is a single drop
//   - a further copy drops with probability (scaled % 1_000_000) / 1_000_000
//
// Mesos use entry.Min..Max inclusive; equips are rolled from the
// template's per-stat ranges; everything else is a flat InventoryItem
// stack of entry.Min..Max.
func (m *Map) rollLoot(entries []gametypes.DropTableEntry) []gametypes.Drop {
	var drops []gametypes.Drop
	for _, e := range entries {
		scaled := e.ChancePerMillion * dropRateMultiplier
		guaranteed := int(scaled / chanceDenominator)
		if e.IsMeso() && guaranteed > 1 {
			guaranteed = 1
		}
		residual := scaled % chanceDenominator

		count := guaranteed
		if residual > 0 && m.rng.Int64N(chanceDenominator) < residual {
			count++
		}
		for i := 0; i < count; i++ {
			drops = append(drops, m.materializeDrop(e))
		}
	}
	return drops
}

func (m *Map) materializeDrop(e gametypes.DropTableEntry) gametypes.Drop {
	qty := e.Min
	if e.Max > e.Min {
		qty += int32(m.rng.IntN(int(e.Max-e.Min) + 1))
	}

	switch {
	case e.IsMeso():
		return gametypes.Drop{Kind: gametypes.DropMeso, QuestID: e.QuestID, MesoAmount: qty}
	case e.IsEquip():
		eq := gametypes.Equipment{ItemID: e.ItemID}
		if tmpl, ok := m.store.LookupEquipTemplate(e.ItemID); ok {
			eq.STR = rollRange(m.rng, tmpl.STRRange)
			eq.DEX = rollRange(m.rng, tmpl.DEXRange)
			eq.INT = rollRange(m.rng, tmpl.INTRange)
			eq.LUK = rollRange(m.rng, tmpl.LUKRange)
			eq.WATK = rollRange(m.rng, tmpl.WATKRange)
			eq.MATK = rollRange(m.rng, tmpl.MATKRange)
		}
		return gametypes.Drop{Kind: gametypes.DropEquip, QuestID: e.QuestID, Equip: eq}
	default:
		return gametypes.Drop{Kind: gametypes.DropItem, QuestID: e.QuestID, Item: gametypes.InventoryItem{ItemID: e.ItemID, Quantity: int16(qty)}}
	}
}

func rollRange(rng interface {
	IntN(int) int
}, r [2]int16) int16 {
	if r[1] <= r[0] {
		return r[0]
	}
	return r[0] + int16(rng.IntN(int(r[1]-r[0])+1))
}
