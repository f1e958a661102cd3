package session

import (
	"testing"

	"github.com/justapithecus/channeld/internal/gametypes"
	"github.com/justapithecus/channeld/internal/resourcedb"
	"github.com/justapithecus/channeld/internal/scripting"
)

func readyForDialogue(u *User, kind gametypes.DialogueKind, state gametypes.DialogueState) {
	u.scriptState = gametypes.ScriptAwaitingDialogue
	u.scriptInst = fakeInstance{name: "test"}
	state.Kind = kind
	u.dialogue = state
}

func TestScriptContRejectsWhenNotAwaitingDialogue(t *testing.T) {
	u, _ := newTestUser(newFakeStore(), &fakeEngine{})

	if err := u.ScriptCont(gametypes.DialogueOk, 0, 0); err != ErrShutdownBan {
		t.Errorf("err = %v, want ErrShutdownBan", err)
	}
}

func TestScriptContRejectsDialogueKindMismatch(t *testing.T) {
	u, _ := newTestUser(newFakeStore(), &fakeEngine{})
	readyForDialogue(u, gametypes.DialogueYesNo, gametypes.DialogueState{})

	if err := u.ScriptCont(gametypes.DialogueSimple, 0, 0); err != ErrShutdownBan {
		t.Errorf("err = %v, want ErrShutdownBan", err)
	}
}

func TestScriptContRejectsSimpleSelectionOutOfRange(t *testing.T) {
	u, _ := newTestUser(newFakeStore(), &fakeEngine{})
	readyForDialogue(u, gametypes.DialogueSimple, gametypes.DialogueState{N: 3})

	if err := u.ScriptCont(gametypes.DialogueSimple, 1, 5); err != ErrShutdownBan {
		t.Errorf("err = %v, want ErrShutdownBan for out-of-range selection", err)
	}
}

func TestScriptContRejectsGetNumberOutOfRange(t *testing.T) {
	u, _ := newTestUser(newFakeStore(), &fakeEngine{})
	readyForDialogue(u, gametypes.DialogueGetNumber, gametypes.DialogueState{Min: 1, Max: 10})

	if err := u.ScriptCont(gametypes.DialogueGetNumber, 1, 50); err != ErrShutdownBan {
		t.Errorf("err = %v, want ErrShutdownBan for out-of-range value", err)
	}
}

func TestScriptContRejectsInvalidYesNoAction(t *testing.T) {
	u, _ := newTestUser(newFakeStore(), &fakeEngine{})
	readyForDialogue(u, gametypes.DialogueYesNo, gametypes.DialogueState{})

	if err := u.ScriptCont(gametypes.DialogueYesNo, 5, 0); err != ErrShutdownBan {
		t.Errorf("err = %v, want ErrShutdownBan for an action outside {0,1}", err)
	}
}

func TestScriptContAcceptsValidSelectionAndRunsScript(t *testing.T) {
	store := newFakeStore()
	engine := &fakeEngine{runResults: []scripting.Result{scripting.ResultSuccess}}
	u, _ := newTestUser(store, engine)
	readyForDialogue(u, gametypes.DialogueSimple, gametypes.DialogueState{N: 3})

	if err := u.ScriptCont(gametypes.DialogueSimple, 1, 2); err != nil {
		t.Fatalf("ScriptCont: %v", err)
	}
	if u.scriptState != gametypes.ScriptIdle {
		t.Errorf("scriptState = %v, want ScriptIdle after terminal success", u.scriptState)
	}
	if len(engine.freed) != 1 {
		t.Errorf("expected script instance freed, freed = %d", len(engine.freed))
	}
}

func TestScriptContAcceptsCancelAction(t *testing.T) {
	engine := &fakeEngine{runResults: []scripting.Result{scripting.ResultFailure}}
	u, _ := newTestUser(newFakeStore(), engine)
	readyForDialogue(u, gametypes.DialogueSimple, gametypes.DialogueState{N: 3})

	if err := u.ScriptCont(gametypes.DialogueSimple, 0, 0); err != nil {
		t.Fatalf("ScriptCont: %v", err)
	}
}

func TestHandleScriptResultKickBansAndFrees(t *testing.T) {
	engine := &fakeEngine{runResults: []scripting.Result{scripting.ResultKick}}
	u, _ := newTestUser(newFakeStore(), engine)
	readyForDialogue(u, gametypes.DialogueYesNo, gametypes.DialogueState{})

	if err := u.ScriptCont(gametypes.DialogueYesNo, 1, 0); err != ErrShutdownBan {
		t.Errorf("err = %v, want ErrShutdownBan on ResultKick", err)
	}
	if u.scriptState != gametypes.ScriptIdle {
		t.Error("expected script state reset to idle after kick")
	}
}

func TestScriptContResolvesQuestOnFinalSuccess(t *testing.T) {
	store := newFakeStore()
	store.quests[1] = resourcedb.QuestTemplate{
		ID:        1,
		NextQuest: 2,
		EndActs:   resourcedb.QuestActs{Meso: 7},
	}
	engine := &fakeEngine{runResults: []scripting.Result{scripting.ResultSuccess}}
	u, conn := newTestUser(store, engine)
	u.Quests[1] = &gametypes.QuestProgress{QuestID: 1}
	u.scriptQuest = 1
	u.scriptEnd = true
	readyForDialogue(u, gametypes.DialogueYesNo, gametypes.DialogueState{})

	if err := u.ScriptCont(gametypes.DialogueYesNo, 1, 0); err != nil {
		t.Fatalf("ScriptCont: %v", err)
	}
	if !u.Quests[1].Completed {
		t.Error("expected quest marked completed on script success")
	}
	if u.Meso != 7 {
		t.Errorf("Meso = %d, want 7", u.Meso)
	}

	var found bool
	for _, e := range conn.sent {
		if _, ok := e.(EndQuestResult); ok {
			found = true
		}
	}
	if !found {
		t.Error("expected EndQuestResult event sent")
	}
}

func TestWarpUpdatesMapAndAwaitsAck(t *testing.T) {
	store := newFakeStore()
	store.maps[5] = resourcedb.MapStatic{ID: 5}
	u, conn := newTestUser(store, &fakeEngine{})

	if err := u.Warp(5, "sp"); err != nil {
		t.Fatalf("Warp: %v", err)
	}
	if u.MapID != 5 {
		t.Errorf("MapID = %d, want 5", u.MapID)
	}
	if u.scriptState != gametypes.ScriptAwaitingWarpAck {
		t.Errorf("scriptState = %v, want ScriptAwaitingWarpAck", u.scriptState)
	}
	if len(conn.sent) != 1 {
		t.Fatalf("expected ChangeMap sent, got %d events", len(conn.sent))
	}
}

func TestGiveItemAddsToInventory(t *testing.T) {
	u, _ := newTestUser(newFakeStore(), &fakeEngine{})

	if err := u.GiveItem(3000, 5); err != nil {
		t.Fatalf("GiveItem: %v", err)
	}
	slots := u.Inventories[useInventory]
	if len(slots) != 1 || slots[0].Item.ItemID != 3000 || slots[0].Item.Quantity != 5 {
		t.Errorf("slots = %+v, want one slot of item 3000 x5", slots)
	}
}

func TestGiveExpCreditsExperience(t *testing.T) {
	u, _ := newTestUser(newFakeStore(), &fakeEngine{})
	u.Level = 1

	if err := u.GiveExp(10); err != nil {
		t.Fatalf("GiveExp: %v", err)
	}
	if u.Exp != 10 {
		t.Errorf("Exp = %d, want 10", u.Exp)
	}
}

func TestGiveMesoCreditsMeso(t *testing.T) {
	u, _ := newTestUser(newFakeStore(), &fakeEngine{})

	if err := u.GiveMeso(500); err != nil {
		t.Fatalf("GiveMeso: %v", err)
	}
	if u.Meso != 500 {
		t.Errorf("Meso = %d, want 500", u.Meso)
	}
}
