package gametypes

import "time"

// Character is the authoritative, persistence-backed projection of a
// player owned by session.User (spec.md §3). It is intentionally a
// simplified cross-section of a full MMO character sheet: enough fields
// to exercise every CharacterFlush table (spec.md §4.9) without modeling
// every stat byte-for-byte.
type Character struct {
	ID    int64
	AccID int64
	Name  string

	MapID  int32
	PortalSP int32

	Level int16
	Job   int16
	Exp   int64
	HP    int32
	MaxHP int32
	MP    int32
	MaxMP int32
	AP    int16
	SP    int16
	Meso  int64

	Str, Dex, Int, Luk int16

	Gender   int8
	AutoHP   int8
	AutoMP   int8
	Buddylist int8

	// Equipped maps equip slot -> equip (id==0 until CharacterFlush
	// allocates a durable id; spec.md §4.9 phase 1).
	Equipped map[int16]*Equipment

	// Inventories holds the four non-equip inventories plus the equip
	// inventory, keyed by inventory type (1=equip,2=use,3=setup,4=etc,5=cash).
	Inventories map[int8][]InventorySlot

	Skills      map[int32]*SkillEntry
	Quests      map[int32]*QuestProgress
	MonsterBook map[int32]int32 // mob id -> kill count
	KeyMap      map[int32]KeyBinding

	Storage []InventorySlot
}

// InventorySlot is a single inventory row; exactly one of Item/Equip is
// meaningful depending on whether it lives in the equip inventory.
type InventorySlot struct {
	Slot  int16
	ID    int64 // durable id, 0 until persist.Flusher's id-allocation phase runs
	Item  InventoryItem
	Equip Equipment
	IsEquip bool
}

// SkillEntry is a learned skill (spec.md §4.9 "skills with
// level+masterLevel").
type SkillEntry struct {
	ID           int32
	Level        int16
	MasterLevel  int16
}

// QuestProgress tracks an in-progress or completed quest (spec.md §4.9
// "every quest with its per-mob progress row", "completed quests with
// absolute timestamps").
type QuestProgress struct {
	QuestID     int32
	MobProgress map[int32]int32 // mob id -> kill count toward quest requirement
	Info        map[string]string
	Completed   bool
	CompletedAt time.Time
}

// KeyBinding is one non-empty key-map slot (spec.md §4.9 "packed key-map
// (only type!=0 slots)").
type KeyBinding struct {
	Type   int8
	Action int32
}

// NewCharacter returns a Character with all maps initialized, ready for
// session.User to project onto a map.
func NewCharacter(id, accID int64, name string) *Character {
	return &Character{
		ID:          id,
		AccID:       accID,
		Name:        name,
		Equipped:    make(map[int16]*Equipment),
		Inventories: make(map[int8][]InventorySlot),
		Skills:      make(map[int32]*SkillEntry),
		Quests:      make(map[int32]*QuestProgress),
		MonsterBook: make(map[int32]int32),
		KeyMap:      make(map[int32]KeyBinding),
	}
}
