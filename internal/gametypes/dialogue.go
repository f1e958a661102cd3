package gametypes

// DialogueKind is the shape of the last dialogue prompt sent to a client,
// used to validate the next script_cont response (spec.md §3 "Tracks a
// dialogue-state enum", §4.5 "script_cont").
type DialogueKind int

const (
	DialogueOk DialogueKind = iota
	DialogueYesNo
	DialogueSimple
	DialogueNext
	DialoguePrevNext
	DialoguePrev
	DialogueAcceptDecline
	DialogueGetNumber
)

// DialogueState is the validated shape of the last prompt sent; Simple
// carries the option count, GetNumber the accepted range (spec.md §3).
type DialogueState struct {
	Kind    DialogueKind
	N       int // option count, for DialogueSimple
	Min     int // for DialogueGetNumber
	Max     int // for DialogueGetNumber
}

// ScriptRunState is the explicit state machine standing in for the
// scripting engine's coroutine yield/resume (spec.md §9 "Script
// coroutines"). It is stored on session.User / room.Member alongside the
// active script instance handle.
type ScriptRunState int

const (
	ScriptIdle ScriptRunState = iota
	ScriptAwaitingDialogue
	ScriptAwaitingWarpAck
)
