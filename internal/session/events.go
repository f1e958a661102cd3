package session

import "github.com/justapithecus/channeld/internal/gametypes"

// ChangeMap tells the client to tear down its current field and load a
// new one (spec.md §4.5 "change_map(target, portal) — update
// authoritative map id, send ChangeMap").
type ChangeMap struct {
	MapID  int32
	Portal string
}

// NewMapBurst is the init packet burst a client receives once it has
// finished loading a map (spec.md §4.5 "new_map() — send the init
// burst: set-field, keymap, quickslot/macro/autoHP/autoMP/buddylist/
// gender/claim").
type NewMapBurst struct {
	MapID     int32
	KeyMap    map[int32]gametypes.KeyBinding
	AutoHP    int8
	AutoMP    int8
	Buddylist int8
	Gender    int8
}

// StatChange reports a committed stat/ap/sp change to the client
// (spec.md §4.5 "assign_stat ... modify corresponding stat and
// commit", "assign_sp ... broadcast stat-change SP").
type StatChange struct {
	Str, Dex, Int, Luk int16
	AP, SP             int16
}

// UpdateSkill reports a skill's new level to the client (spec.md §4.5
// "assign_sp ... UpdateSkill").
type UpdateSkill struct {
	SkillID int32
	Level   int16
}

// GainExp is the exp-gain feedback packet; InChat distinguishes the
// floating chat-log variant from the in-place exp-bar variant (spec.md
// §4.5 "gain_exp ... send exp-gain (in chat vs normal)").
type GainExp struct {
	Amount int64
	InChat bool
}

// LevelUp is emitted once per level crossed during a single gain_exp
// call, so the client plays the level-up effect once per level rather
// than once per call (spec.md §4.5 "emit multiple intermediate
// level-change packets so the client plays the effect per level").
type LevelUp struct {
	PlayerID uint64
	Level    int16
}

// QuestProgress reports a non-scripted quest start/end's immediate
// effect (spec.md §4.5 "start_quest ... emit the progress packet").
type QuestProgress struct {
	QuestID int32
	Count   int
}

// EndQuestResult reports a completed quest and its chained next quest,
// if any (spec.md §4.5 "end_quest ... emits show-effect 0x09, EndQuest
// with the next-quest pointer if any").
type EndQuestResult struct {
	QuestID   int32
	NextQuest int32
}
