package session

import (
	"testing"

	"github.com/justapithecus/channeld/internal/gametypes"
	"github.com/justapithecus/channeld/internal/resourcedb"
	"github.com/justapithecus/channeld/internal/scripting"
)

func TestStartQuestNonScriptedAppliesActsAndProgress(t *testing.T) {
	store := newFakeStore()
	store.quests[1] = resourcedb.QuestTemplate{
		ID:        1,
		Start:     resourcedb.QuestRequirement{NPC: 100},
		End:       resourcedb.QuestRequirement{RequiredMobs: map[int32]int32{500: 3}},
		StartActs: resourcedb.QuestActs{Exp: 50, Meso: 10},
	}
	u, conn := newTestUser(store, &fakeEngine{})
	u.Level = 1

	if err := u.StartQuest(1, 100, false); err != nil {
		t.Fatalf("StartQuest: %v", err)
	}
	progress, ok := u.Quests[1]
	if !ok {
		t.Fatal("expected quest progress recorded")
	}
	if progress.MobProgress[500] != 0 {
		t.Errorf("seeded mob progress = %d, want 0", progress.MobProgress[500])
	}
	if u.Meso != 10 {
		t.Errorf("Meso = %d, want 10", u.Meso)
	}

	var sawProgress bool
	for _, e := range conn.sent {
		if qp, ok := e.(QuestProgress); ok && qp.QuestID == 1 {
			sawProgress = true
		}
	}
	if !sawProgress {
		t.Error("expected QuestProgress event sent")
	}
}

func TestStartQuestRejectsUnknownQuest(t *testing.T) {
	u, _ := newTestUser(newFakeStore(), &fakeEngine{})
	if err := u.StartQuest(99, 0, false); err != ErrShutdownBan {
		t.Errorf("err = %v, want ErrShutdownBan", err)
	}
}

func TestStartQuestRejectsScriptedMismatch(t *testing.T) {
	store := newFakeStore()
	store.quests[1] = resourcedb.QuestTemplate{ID: 1, Start: resourcedb.QuestRequirement{StartScript: true}}
	u, _ := newTestUser(store, &fakeEngine{})

	if err := u.StartQuest(1, 0, false); err != ErrShutdownBan {
		t.Errorf("err = %v, want ErrShutdownBan on scripted flag mismatch", err)
	}
}

func TestStartQuestRejectsAlreadyInProgress(t *testing.T) {
	store := newFakeStore()
	store.quests[1] = resourcedb.QuestTemplate{ID: 1}
	u, _ := newTestUser(store, &fakeEngine{})
	u.Quests[1] = &gametypes.QuestProgress{QuestID: 1}

	if err := u.StartQuest(1, 0, false); err != ErrShutdownBan {
		t.Errorf("err = %v, want ErrShutdownBan for a quest already started", err)
	}
}

func TestCheckQuestRequirementLevelBounds(t *testing.T) {
	store := newFakeStore()
	store.quests[1] = resourcedb.QuestTemplate{ID: 1, Start: resourcedb.QuestRequirement{MinLevel: 10, MaxLevel: 20}}
	u, _ := newTestUser(store, &fakeEngine{})

	u.Level = 5
	if err := u.StartQuest(1, 0, false); err != ErrShutdownBan {
		t.Errorf("below min level: err = %v, want ErrShutdownBan", err)
	}

	u.Level = 25
	if err := u.StartQuest(1, 0, false); err != ErrShutdownBan {
		t.Errorf("above max level: err = %v, want ErrShutdownBan", err)
	}
}

func TestCheckQuestRequirementRequiredItems(t *testing.T) {
	store := newFakeStore()
	store.quests[1] = resourcedb.QuestTemplate{
		ID: 1,
		Start: resourcedb.QuestRequirement{
			RequiredItems: []gametypes.InventoryItem{{ItemID: 2000, Quantity: 3}},
		},
	}
	u, _ := newTestUser(store, &fakeEngine{})

	if err := u.StartQuest(1, 0, false); err != ErrShutdownBan {
		t.Errorf("missing item: err = %v, want ErrShutdownBan", err)
	}

	u.Inventories[useInventory] = []gametypes.InventorySlot{
		{Item: gametypes.InventoryItem{ItemID: 2000, Quantity: 3}},
	}
	if err := u.StartQuest(1, 0, false); err != nil {
		t.Fatalf("with item present: StartQuest: %v", err)
	}
}

func TestEndQuestNonScriptedCompletesAndChains(t *testing.T) {
	store := newFakeStore()
	store.quests[1] = resourcedb.QuestTemplate{
		ID:        1,
		End:       resourcedb.QuestRequirement{RequiredMobs: map[int32]int32{500: 2}},
		EndActs:   resourcedb.QuestActs{Meso: 5},
		NextQuest: 2,
	}
	u, conn := newTestUser(store, &fakeEngine{})
	u.Quests[1] = &gametypes.QuestProgress{QuestID: 1, MobProgress: map[int32]int32{500: 2}}

	if err := u.EndQuest(1, 0, false); err != nil {
		t.Fatalf("EndQuest: %v", err)
	}
	if !u.Quests[1].Completed {
		t.Error("expected quest marked completed")
	}
	if u.Meso != 5 {
		t.Errorf("Meso = %d, want 5", u.Meso)
	}

	var result EndQuestResult
	var found bool
	for _, e := range conn.sent {
		if r, ok := e.(EndQuestResult); ok {
			result, found = r, true
		}
	}
	if !found || result.NextQuest != 2 {
		t.Errorf("EndQuestResult = %+v (found=%v), want NextQuest=2", result, found)
	}
}

func TestEndQuestRejectsUnmetMobRequirement(t *testing.T) {
	store := newFakeStore()
	store.quests[1] = resourcedb.QuestTemplate{ID: 1, End: resourcedb.QuestRequirement{RequiredMobs: map[int32]int32{500: 5}}}
	u, _ := newTestUser(store, &fakeEngine{})
	u.Quests[1] = &gametypes.QuestProgress{QuestID: 1, MobProgress: map[int32]int32{500: 2}}

	if err := u.EndQuest(1, 0, false); err != ErrShutdownBan {
		t.Errorf("err = %v, want ErrShutdownBan", err)
	}
}

func TestEndQuestRejectsNotStarted(t *testing.T) {
	store := newFakeStore()
	store.quests[1] = resourcedb.QuestTemplate{ID: 1}
	u, _ := newTestUser(store, &fakeEngine{})

	if err := u.EndQuest(1, 0, false); err != ErrShutdownBan {
		t.Errorf("err = %v, want ErrShutdownBan", err)
	}
}

func TestEndQuestRejectsAlreadyCompleted(t *testing.T) {
	store := newFakeStore()
	store.quests[1] = resourcedb.QuestTemplate{ID: 1}
	u, _ := newTestUser(store, &fakeEngine{})
	u.Quests[1] = &gametypes.QuestProgress{QuestID: 1, Completed: true}

	if err := u.EndQuest(1, 0, false); err != ErrShutdownBan {
		t.Errorf("err = %v, want ErrShutdownBan", err)
	}
}

func TestStartQuestScriptedAllocatesInstance(t *testing.T) {
	store := newFakeStore()
	store.quests[1] = resourcedb.QuestTemplate{ID: 1, Start: resourcedb.QuestRequirement{StartScript: true}}
	engine := &fakeEngine{runResults: []scripting.Result{scripting.ResultNext}}
	u, _ := newTestUser(store, engine)

	err := u.StartQuest(1, 0, true)
	if err != nil {
		t.Fatalf("StartQuest: %v", err)
	}
}
