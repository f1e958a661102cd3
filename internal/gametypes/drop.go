package gametypes

import "time"

// DropKind discriminates a Drop's payload (spec.md §3).
type DropKind int

const (
	DropMeso DropKind = iota
	DropItem
	DropEquip
)

// InventoryItem is a stack of a non-equip item.
type InventoryItem struct {
	ItemID   int32 `yaml:"item_id"`
	Quantity int16 `yaml:"quantity"`
}

// Equipment is a single rolled equip instance. Stats are intentionally
// few; a full implementation would source per-slot rolls from the
// resource database's equip template (resourcedb.EquipTemplate).
type Equipment struct {
	// ID is the durable row id, 0 until persist.Flusher's id-allocation phase runs
	// (spec.md §4.9 phase 1); only meaningful once the equip is held in
	// Character.Equipped or an equip-type inventory slot.
	ID     int64
	ItemID int32
	STR    int16
	DEX    int16
	INT    int16
	LUK    int16
	WATK   int16
	MATK   int16
}

// Drop is a single item lying on the ground or mid-animation in a
// DroppingBatch (spec.md §3).
type Drop struct {
	OID OID
	X   int16
	Y   int16

	Kind DropKind

	// QuestID is non-zero when this item is quest-flagged; such drops are
	// only visible to members whose RoomMember.QuestItems contains it
	// (spec.md §4.4, §8 property 6).
	QuestID int32

	MesoAmount int32
	Item       InventoryItem
	Equip      Equipment
}

// DropBatch is a settled batch of drops on the ground (spec.md §3,
// §4.3.4). Exclusive for the first 15s, expires 285s after that.
type DropBatch struct {
	Drops []Drop

	// Owner is the player with first-pickup rights, or nil if ownerless
	// (e.g. the owning player left the map; spec.md §4.3.6).
	Owner *ControllerRef
	// OwnerID mirrors Owner.PlayerID at creation time so expiry/removal
	// bookkeeping survives the owner leaving.
	OwnerID uint64

	// IndexInPlayer is this batch's position in Owner's drop array, kept
	// in sync via swap-with-last compaction (spec.md §3).
	IndexInPlayer int

	Exclusive bool

	// SpawnedAt anchors the 15s exclusivity flip and 285s expiry timers.
	SpawnedAt time.Time
}

// ExclusiveUntil is the exclusivity window granted to the dropper.
const ExclusiveUntil = 15 * time.Second

// ExpireAfter is the total lifetime of a settled drop batch.
const ExpireAfter = 300 * time.Second

// DroppingBatch is a batch whose drops appear progressively, 200ms
// apart, e.g. a monster explosion of loot (spec.md §3, §4.3.4).
type DroppingBatch struct {
	Drops   []Drop
	Current int

	Owner         *ControllerRef
	OwnerID       uint64
	IndexInPlayer int

	// DropperOID is the monster or reactor whose death/break produced
	// this batch; once the last drop is emitted the dropper is
	// destroyed unless KeepAlive was held during script execution
	// (spec.md §3 GLOSSARY "Keep-alive (reactor)").
	DropperOID OID
	KeepAlive  bool
}

// DropInterval is the spacing between progressive drop emissions.
const DropInterval = 200 * time.Millisecond

// DropTableEntry is one row of a monster's static drop table (spec.md
// §4.3.3). ItemID == 0 denotes mesos; ItemID/1_000_000 == 1 denotes an
// equip rolled from the static template; anything else is a normal item.
type DropTableEntry struct {
	ItemID           int32 `yaml:"item_id"`
	QuestID          int32 `yaml:"quest_id"`
	Min              int32 `yaml:"min"`
	Max              int32 `yaml:"max"`
	ChancePerMillion int64 `yaml:"chance_per_million"`
}

// IsMeso reports whether the entry drops mesos.
func (e DropTableEntry) IsMeso() bool { return e.ItemID == 0 }

// IsEquip reports whether the entry drops a rolled equip.
func (e DropTableEntry) IsEquip() bool { return e.ItemID/1_000_000 == 1 }
