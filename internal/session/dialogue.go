package session

import (
	"context"

	"github.com/justapithecus/channeld/internal/gametypes"
	"github.com/justapithecus/channeld/internal/scripting"
)

// ScriptCont validates and dispatches a client's response to a
// suspended script (spec.md §4.5 "Dialogue state guard (script_cont):
// receives (prev, action, selection) and checks (a) prev equals the
// last sent dialogue type, (b) end/cancel action matches: prev in
// {Simple,GetNumber} uses action==0 to end, others use action==0xFF;
// (c) for Simple, selection is in range [0,n); for GetNumber, value is
// in [min,max]; for YesNo / AcceptDecline / PrevNext, action is one of
// the two legal values. Any mismatch: free script, ban").
func (u *User) ScriptCont(prev gametypes.DialogueKind, action, selection int) error {
	if u.scriptState != gametypes.ScriptAwaitingDialogue {
		return u.banAndFreeScript()
	}
	if prev != u.dialogue.Kind {
		return u.banAndFreeScript()
	}

	const cancelLow = 0
	const cancelHigh = 0xFF
	var cancel bool
	switch prev {
	case gametypes.DialogueSimple, gametypes.DialogueGetNumber:
		cancel = action == cancelLow
	default:
		cancel = action == cancelHigh
	}

	if !cancel {
		switch prev {
		case gametypes.DialogueSimple:
			if selection < 0 || selection >= u.dialogue.N {
				return u.banAndFreeScript()
			}
		case gametypes.DialogueGetNumber:
			if selection < u.dialogue.Min || selection > u.dialogue.Max {
				return u.banAndFreeScript()
			}
		case gametypes.DialogueYesNo, gametypes.DialogueAcceptDecline, gametypes.DialoguePrevNext:
			if action != 0 && action != 1 {
				return u.banAndFreeScript()
			}
		}
	}

	result, err := u.engine.Run(context.Background(), u.scriptInst, action, selection)
	return u.handleScriptResult(result, err)
}

// handleScriptResult advances session script state from a Run result,
// resolving the in-flight quest start/end if the script reached a
// terminal result (spec.md §7 "ScriptFailure / ScriptKick", §4.5
// "on final SUCCESS, UpdateQuest+StartQuest are emitted").
func (u *User) handleScriptResult(result scripting.Result, err error) error {
	if err != nil {
		u.freeScript()
		return err
	}

	switch result {
	case scripting.ResultNext:
		// A warp() host call already anticipated AwaitingWarpAck; any
		// other yield is a dialogue suspension.
		if u.scriptState != gametypes.ScriptAwaitingWarpAck {
			u.scriptState = gametypes.ScriptAwaitingDialogue
		}
		return nil
	case scripting.ResultSuccess:
		u.resolveScript(true)
		u.freeScript()
		return nil
	case scripting.ResultFailure:
		u.freeScript()
		return nil
	case scripting.ResultKick:
		u.freeScript()
		return ErrShutdownBan
	default:
		u.freeScript()
		return ErrShutdownBan
	}
}

// resolveScript applies the quest start/end effect a just-finished
// script instance was running, if any (spec.md §4.5 "on final SUCCESS,
// UpdateQuest+StartQuest are emitted").
func (u *User) resolveScript(success bool) {
	if u.scriptQuest == 0 || !success {
		return
	}
	tmpl, ok := u.store.LookupQuest(u.scriptQuest)
	if !ok {
		return
	}
	if u.scriptEnd {
		progress := u.Quests[u.scriptQuest]
		if progress == nil {
			return
		}
		u.resolveQuestEnd(u.scriptQuest, tmpl, progress)
		return
	}
	u.resolveQuestStart(u.scriptQuest, tmpl)
}

// freeScript releases the active script instance, if any, and resets
// script/dialogue state to idle.
func (u *User) freeScript() {
	if u.scriptInst != nil {
		u.engine.Free(u.scriptInst)
	}
	u.scriptInst = nil
	u.scriptQuest = 0
	u.scriptEnd = false
	u.scriptState = gametypes.ScriptIdle
	u.dialogue = gametypes.DialogueState{}
}

// banAndFreeScript frees the active script instance and reports a
// ShutdownBan, per spec.md §4.5's script_cont mismatch rule: "Any
// mismatch: free script, ban."
func (u *User) banAndFreeScript() error {
	u.freeScript()
	return ErrShutdownBan
}

// Warp implements scripting.Host's map-transition binding: a running
// script warps the player directly, without a client-issued portal
// request. The script is expected to yield immediately afterward to
// await the client's warp acknowledgement (spec.md §9 "Script
// coroutines": AwaitingWarpAck).
func (u *User) Warp(mapID int32, portal string) error {
	u.ChangeMap(mapID, portal)
	u.scriptState = gametypes.ScriptAwaitingWarpAck
	return nil
}

// GiveItem implements scripting.Host's item-grant binding.
func (u *User) GiveItem(itemID int32, quantity int16) error {
	u.addItem(gametypes.InventoryItem{ItemID: itemID, Quantity: quantity})
	return nil
}

// GiveExp implements scripting.Host's exp-grant binding.
func (u *User) GiveExp(exp int64) error {
	u.GainExp(exp, false)
	return nil
}

// GiveMeso implements scripting.Host's meso-grant binding.
func (u *User) GiveMeso(meso int64) error {
	u.Meso += meso
	return nil
}
