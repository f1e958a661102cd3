package session

import (
	"context"
	"fmt"
	"time"

	"github.com/justapithecus/channeld/internal/gametypes"
	"github.com/justapithecus/channeld/internal/resourcedb"
)

const useInventory = 2

// StartQuest begins quest qid at npc (spec.md §4.5 "start_quest(qid, npc,
// scripted) — run the start-requirements check (NPC id, level bounds,
// completed quests, required items, mob kills, job, info fields); if
// scripted mismatches the info's startScript flag, ban; on scripted:
// allocate the start-script instance, return NEXT; on non-scripted:
// perform start-acts (exp/meso/items/next-quest) and emit the progress
// packet. Items flagged quest become visible to the member only after
// this call adds them to questItems").
func (u *User) StartQuest(qid, npc int32, scripted bool) error {
	tmpl, ok := u.store.LookupQuest(qid)
	if !ok {
		return ErrShutdownBan
	}
	if scripted != tmpl.Start.StartScript {
		return ErrShutdownBan
	}
	if existing, started := u.Quests[qid]; started && !existing.Completed {
		return ErrShutdownBan
	}
	if err := u.checkQuestRequirement(tmpl.Start, npc); err != nil {
		return err
	}

	if scripted {
		return u.runQuestScript(qid, "start_quest", false)
	}
	u.resolveQuestStart(qid, tmpl)
	return nil
}

// EndQuest completes quest qid at npc (spec.md §4.5 "end_quest(qid, npc,
// scripted) — symmetric; on success records completion time, emits
// show-effect 0x09, EndQuest with the next-quest pointer if any").
func (u *User) EndQuest(qid, npc int32, scripted bool) error {
	tmpl, ok := u.store.LookupQuest(qid)
	if !ok {
		return ErrShutdownBan
	}
	progress, started := u.Quests[qid]
	if !started || progress.Completed {
		return ErrShutdownBan
	}
	if scripted != tmpl.End.StartScript {
		return ErrShutdownBan
	}
	if err := u.checkQuestRequirement(tmpl.End, npc); err != nil {
		return err
	}
	for mobID, need := range tmpl.End.RequiredMobs {
		if progress.MobProgress[mobID] < need {
			return ErrShutdownBan
		}
	}

	if scripted {
		return u.runQuestScript(qid, "end_quest", true)
	}
	u.resolveQuestEnd(qid, tmpl, progress)
	return nil
}

// checkQuestRequirement validates req's gating conditions against the
// character's current state (spec.md §4.5 "NPC id, level bounds,
// completed quests, required items, mob kills, job"). req's own "info
// fields" checks are folded into the per-quest Info map carried on an
// in-progress QuestProgress rather than modeled as a separate static
// table, since info fields are script-set at runtime, not static data.
func (u *User) checkQuestRequirement(req resourcedb.QuestRequirement, npc int32) error {
	if req.NPC != 0 && req.NPC != npc {
		return ErrShutdownBan
	}
	if req.MinLevel != 0 && u.Level < req.MinLevel {
		return ErrShutdownBan
	}
	if req.MaxLevel != 0 && u.Level > req.MaxLevel {
		return ErrShutdownBan
	}
	for _, q := range req.RequiredQuests {
		done, ok := u.Quests[q]
		if !ok || !done.Completed {
			return ErrShutdownBan
		}
	}
	for _, need := range req.RequiredItems {
		if !u.hasItem(need.ItemID, need.Quantity) {
			return ErrShutdownBan
		}
	}
	for mobID, need := range req.RequiredMobs {
		if u.MonsterBook[mobID] < need {
			return ErrShutdownBan
		}
	}
	if len(req.Jobs) > 0 {
		ok := false
		for _, j := range req.Jobs {
			if j == u.Job {
				ok = true
				break
			}
		}
		if !ok {
			return ErrShutdownBan
		}
	}
	return nil
}

// resolveQuestStart applies the non-scripted (or post-script-success)
// quest-start effects: seed per-mob progress against the end
// requirement's kill counts, run start-acts, and make the quest's
// ground drops visible (spec.md §4.5, §4.4 "add_quest_items").
func (u *User) resolveQuestStart(qid int32, tmpl resourcedb.QuestTemplate) {
	progress := &gametypes.QuestProgress{
		QuestID:     qid,
		MobProgress: make(map[int32]int32, len(tmpl.End.RequiredMobs)),
		Info:        make(map[string]string),
	}
	for mobID := range tmpl.End.RequiredMobs {
		progress.MobProgress[mobID] = 0
	}
	u.Quests[qid] = progress

	u.applyQuestActs(tmpl.StartActs)
	if u.Room != nil && u.Member != nil {
		u.Room.AddQuestItems(u.Member, []int32{qid})
	}
	u.conn.Send(QuestProgress{QuestID: qid, Count: 0})
}

// resolveQuestEnd applies the non-scripted (or post-script-success)
// quest-end effects: mark completion, run end-acts, and notify the
// client of the next quest in the chain, if any.
func (u *User) resolveQuestEnd(qid int32, tmpl resourcedb.QuestTemplate, progress *gametypes.QuestProgress) {
	progress.Completed = true
	progress.CompletedAt = time.Now()

	u.applyQuestActs(tmpl.EndActs)
	u.conn.Send(EndQuestResult{QuestID: qid, NextQuest: tmpl.NextQuest})
}

// applyQuestActs grants the exp/meso/items a quest's start- or end-acts
// specify (spec.md §4.5 "perform start-acts (exp/meso/items/
// next-quest)").
func (u *User) applyQuestActs(acts resourcedb.QuestActs) {
	if acts.Exp != 0 {
		u.GainExp(acts.Exp, false)
	}
	u.Meso += acts.Meso
	for _, it := range acts.Items {
		u.addItem(it)
	}
}

// hasItem reports whether the use inventory holds at least quantity of
// itemID.
func (u *User) hasItem(itemID int32, quantity int16) bool {
	for _, s := range u.Inventories[useInventory] {
		if !s.IsEquip && s.Item.ItemID == itemID && s.Item.Quantity >= quantity {
			return true
		}
	}
	return false
}

// addItem stacks it into an existing use-inventory slot, or appends a
// new one.
func (u *User) addItem(it gametypes.InventoryItem) {
	slots := u.Inventories[useInventory]
	for i, s := range slots {
		if !s.IsEquip && s.Item.ItemID == it.ItemID {
			slots[i].Item.Quantity += it.Quantity
			return
		}
	}
	u.Inventories[useInventory] = append(slots, gametypes.InventorySlot{
		Slot: int16(len(slots)),
		Item: it,
	})
}

// runQuestScript allocates and runs the named quest script's entry
// point, tracking which quest operation (start vs end) its terminal
// result should resolve (spec.md §4.5 "on scripted: allocate the
// start-script instance, return NEXT").
func (u *User) runQuestScript(qid int32, entry string, isEnd bool) error {
	if u.scriptState != gametypes.ScriptIdle {
		return ErrShutdownBan
	}
	inst, err := u.engine.Alloc(context.Background(), questScriptName(qid), entry, u)
	if err != nil {
		return ErrShutdownBan
	}
	u.scriptInst = inst
	u.scriptQuest = qid
	u.scriptEnd = isEnd
	u.scriptState = gametypes.ScriptAwaitingDialogue

	result, runErr := u.engine.Run(context.Background(), inst)
	return u.handleScriptResult(result, runErr)
}

func questScriptName(qid int32) string {
	return fmt.Sprintf("quest/%d", qid)
}
