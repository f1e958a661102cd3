// Package resourcedb defines the boundary to the external resource
// database (spec.md §1: map geometry, foothold R-tree, NPC/mob/item/
// equip/consumable/quest/reactor static data, perfect-hash lookups).
// Core only ever calls lookup_X(id) -> Option<info> accessors and
// foothold_below(tree, point); it never builds or owns static data.
package resourcedb

import (
	"github.com/justapithecus/channeld/internal/foothold"
	"github.com/justapithecus/channeld/internal/gametypes"
)

// MonsterTemplate is the static definition of a monster species.
type MonsterTemplate struct {
	ID        int32
	MaxHP     int64
	DropTable []gametypes.DropTableEntry
}

// NPCTemplate is the static definition of an NPC.
type NPCTemplate struct {
	ID     int32  `yaml:"id"`
	Script string `yaml:"script"`
}

// EquipTemplate is the static template an equip drop is rolled from.
type EquipTemplate struct {
	ItemID    int32    `yaml:"item_id"`
	STRRange  [2]int16 `yaml:"str_range"`
	DEXRange  [2]int16 `yaml:"dex_range"`
	INTRange  [2]int16 `yaml:"int_range"`
	LUKRange  [2]int16 `yaml:"luk_range"`
	WATKRange [2]int16 `yaml:"watk_range"`
	MATKRange [2]int16 `yaml:"matk_range"`
}

// QuestRequirement describes the gating conditions for starting/ending a
// quest (spec.md §4.5 "start_quest").
type QuestRequirement struct {
	NPC            int32                      `yaml:"npc"`
	MinLevel       int16                      `yaml:"min_level"`
	MaxLevel       int16                      `yaml:"max_level"`
	RequiredQuests []int32                    `yaml:"required_quests"`
	RequiredItems  []gametypes.InventoryItem  `yaml:"required_items"`
	RequiredMobs   map[int32]int32            `yaml:"required_mobs"`
	Jobs           []int16                    `yaml:"jobs"`
	StartScript    bool                       `yaml:"start_script"`
}

// QuestTemplate is the static definition of a quest.
type QuestTemplate struct {
	ID        int32            `yaml:"id"`
	Start     QuestRequirement `yaml:"start"`
	End       QuestRequirement `yaml:"end"`
	NextQuest int32            `yaml:"next_quest"`
	StartActs QuestActs        `yaml:"start_acts"`
	EndActs   QuestActs        `yaml:"end_acts"`
}

// QuestActs are the non-scripted rewards/effects applied on quest
// start/end (spec.md §4.5 "on non-scripted: perform start-acts
// (exp/meso/items/next-quest)").
type QuestActs struct {
	Exp   int64                      `yaml:"exp"`
	Meso  int64                      `yaml:"meso"`
	Items []gametypes.InventoryItem  `yaml:"items"`
}

// SkillLevel is the static cost/effect row for one learned level of a
// skill (spec.md §4.5 "use_skill(id, &mut level, &mut projectile?) —
// fetch level info; deduct hp/mp con and bullet count from
// inventory"). BulletCon > 0 marks a skill that consumes a projectile
// stack and requires the client to declare one.
type SkillLevel struct {
	HPCon     int16 `yaml:"hp_con"`
	MPCon     int16 `yaml:"mp_con"`
	BulletCon int16 `yaml:"bullet_con"`
}

// SkillTemplate is the static definition of a skill across its levels.
// Levels[0] is unused so a SkillEntry's 1-based Level indexes directly.
type SkillTemplate struct {
	ID     int32        `yaml:"id"`
	Levels []SkillLevel `yaml:"levels"`
}

// Portal is one static portal definition on a map, named within that
// map (spec.md §4.5 "portal(target_map_or_wildcard, portal_name)").
type Portal struct {
	Name       string `yaml:"name"`
	TargetMap  int32  `yaml:"target_map"`
	TargetName string `yaml:"target_name"`
}

// MapStatic is the static, read-only data for one map: its spawners and
// foothold index (spec.md §4.3.1, §4.3.4).
type MapStatic struct {
	ID        int32
	Spawners  []gametypes.Spawner
	Footholds *foothold.Tree
	HasBoss   bool
	BossID    int32
	BossX, BossY, BossFH int16
	ForcedReturn int32
	NearestTown  int32
	Portals      []Portal
}

// LookupPortal finds a named portal on this map (spec.md §4.5 "portal").
func (m MapStatic) LookupPortal(name string) (Portal, bool) {
	for _, p := range m.Portals {
		if p.Name == name {
			return p, true
		}
	}
	return Portal{}, false
}

// Store is the interface worldmap/session/room consume. A concrete
// implementation loads fixtures once at startup and is shared read-only
// across every worker (spec.md §9 "Global mutable statics").
type Store interface {
	LookupMonster(id int32) (MonsterTemplate, bool)
	LookupNPC(id int32) (NPCTemplate, bool)
	LookupReactor(id int32) (gametypes.ReactorTemplate, bool)
	LookupEquipTemplate(itemID int32) (EquipTemplate, bool)
	LookupQuest(id int32) (QuestTemplate, bool)
	LookupMap(id int32) (MapStatic, bool)
	LookupSkill(id int32) (SkillTemplate, bool)
}

// ExpForLevel is the experience required to advance from level to
// level+1 (spec.md §4.5 "gain_exp ... leverage character's exp table
// to compute level-ups"). The real game sources this curve from static
// data alongside every other table in Store; a closed-form curve keeps
// this port's test fixtures small while preserving the monotonically
// increasing shape level-up logic depends on.
func ExpForLevel(level int16) int64 {
	l := int64(level)
	return 15 * (l + 1) * (l + 1) * (l + 1) / 4
}
