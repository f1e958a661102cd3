package gametypes

// Spawner is a static (id,x,y,fh) record recorded at map load that
// produces Monsters (spec.md §2 GLOSSARY, §4.3.1).
type Spawner struct {
	ID int32 `yaml:"id"`
	X  int16 `yaml:"x"`
	Y  int16 `yaml:"y"`
	FH int16 `yaml:"fh"`
}

// Monster is a live, controllable map object (spec.md §3).
type Monster struct {
	OID    OID
	ID     int32
	X      int16
	Y      int16
	FH     int16
	Stance int8
	HP     int64
	MaxHP  int64

	// SpawnerIndex references the Spawner this monster came from, or -1
	// for the designated area boss (spec.md §4.3.1).
	SpawnerIndex int

	// Controller is the player currently controlling this monster, or
	// nil if no players are on the map (spec.md §3 invariant).
	Controller *ControllerRef

	// IndexInController is this monster's position within
	// Controller.Monsters, maintained for O(1) swap-remove (spec.md §3).
	IndexInController int

	// IsBoss marks the designated area boss for a map.
	IsBoss bool

	// LootDropped is set once loot generation has run for this kill, so a
	// monster awaiting a dropping batch's completion is not killed twice
	// (spec.md §4.3.2).
	LootDropped bool
}

// Alive reports whether the monster can still be damaged.
func (m *Monster) Alive() bool { return m.HP > 0 }

// ControllerRef is an opaque handle to the MapPlayer controlling a
// monster. The concrete identity (stable index into the Map's player
// arena) lives in package worldmap; gametypes only needs comparable
// identity so Monster/DropBatch can reference an owner without importing
// worldmap (which would create an import cycle).
type ControllerRef struct {
	// PlayerID is the stable identity of the owning player within the map
	// (worldmap.Map resolves this back to a *MapPlayer via its handle
	// container; spec.md §9 "Stable handles vs relocatable arrays").
	PlayerID uint64
}
