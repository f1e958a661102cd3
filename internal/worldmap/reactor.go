package worldmap

import (
	"context"

	"github.com/justapithecus/channeld/internal/gametypes"
	"github.com/justapithecus/channeld/internal/scripting"
)

// AddReactor places a live reactor on the map at its static state 0
// (spec.md §4.3.5).
func (m *Map) AddReactor(id int32, x, y int16, keepAlive bool) gametypes.OID {
	oid, obj, ok := m.objects.Allocate()
	if !ok {
		return gametypes.NoOID
	}
	obj.Tag = gametypes.TagReactor
	r := &gametypes.Reactor{OID: oid, ID: id, X: x, Y: y, KeepAlive: keepAlive}
	m.reactors[oid] = r
	return oid
}

// HitReactor advances oid's state machine on a HIT event from
// playerID (spec.md §4.3.5). host binds the action script, if one
// runs, back to playerID's character via session-layer bindings; Map
// itself never mutates character state.
func (m *Map) HitReactor(playerID uint64, oid gametypes.OID, host scripting.Host) {
	r, ok := m.reactors[oid]
	if !ok || r.Destroyed {
		return
	}
	tmpl, ok := m.store.LookupReactor(r.ID)
	if !ok || r.State < 0 || r.State >= len(tmpl.States) {
		return
	}

	next := -1
	for _, ev := range tmpl.States[r.State].Events {
		if ev.Type == gametypes.ReactorEventHit {
			next = ev.Next
			break
		}
	}
	if next < 0 {
		return
	}
	r.State = next

	if next >= len(tmpl.States) || len(tmpl.States[next].Events) == 0 {
		m.runReactorAction(r, tmpl, playerID, host)
		return
	}
	m.sink.Broadcast(ChangeReactorState{OID: oid, State: r.State})
}

// runReactorAction allocates and drives tmpl.Action to its first
// result, applying the SUCCESS/FAILURE/KICK/NEXT disposition (spec.md
// §4.3.5, §7).
func (m *Map) runReactorAction(r *gametypes.Reactor, tmpl gametypes.ReactorTemplate, playerID uint64, host scripting.Host) {
	ctx := context.Background()
	inst, err := m.engine.Alloc(ctx, tmpl.Action, "reactor", host)
	if err != nil {
		return
	}
	m.reactorInstances[r.OID] = inst
	m.resumeReactorScript(r, inst, playerID)
}

// ResumeReactor advances a reactor's already-allocated script instance
// with the client's latest response (spec.md §4.3.5 "NEXT keeps the
// script alive, awaiting a further client reply").
func (m *Map) ResumeReactor(playerID uint64, oid gametypes.OID, args ...any) {
	r, ok := m.reactors[oid]
	if !ok {
		return
	}
	inst, ok := m.reactorInstances[oid]
	if !ok {
		return
	}
	result, err := m.engine.Run(context.Background(), inst, args...)
	if err != nil {
		m.engine.Free(inst)
		delete(m.reactorInstances, oid)
		return
	}
	m.applyReactorResult(r, inst, result, playerID)
}

func (m *Map) resumeReactorScript(r *gametypes.Reactor, inst scripting.Instance, playerID uint64) {
	result, err := m.engine.Run(context.Background(), inst)
	if err != nil {
		m.engine.Free(inst)
		delete(m.reactorInstances, r.OID)
		return
	}
	m.applyReactorResult(r, inst, result, playerID)
}

func (m *Map) applyReactorResult(r *gametypes.Reactor, inst scripting.Instance, result scripting.Result, playerID uint64) {
	switch result {
	case scripting.ResultNext:
		return
	case scripting.ResultSuccess:
		m.engine.Free(inst)
		delete(m.reactorInstances, r.OID)
		if !r.KeepAlive {
			m.destroyReactor(r)
			m.scheduleReactorRespawn(r)
		}
	case scripting.ResultFailure:
		m.engine.Free(inst)
		delete(m.reactorInstances, r.OID)
	case scripting.ResultKick:
		m.engine.Free(inst)
		delete(m.reactorInstances, r.OID)
		m.sink.Unicast(playerID, KickSession{})
	}
}

// destroyReactor marks r destroyed and announces it; used both for a
// non-keep-alive SUCCESS and as the tail end of a reactor-sourced
// DroppingBatch (spec.md §4.3.4, §4.3.5).
func (m *Map) destroyReactor(r *gametypes.Reactor) {
	r.Destroyed = true
	m.sink.Broadcast(DestroyReactor{OID: r.OID})
}

// scheduleReactorRespawn arms the RespawnDelay timer that reappears r
// (spec.md §4.3.5).
func (m *Map) scheduleReactorRespawn(r *gametypes.Reactor) {
	m.w.SubmitTimeout(gametypes.RespawnDelay, func() { m.respawnReactor(r) })
}

// respawnReactor reappears r, reset to state 0.
func (m *Map) respawnReactor(r *gametypes.Reactor) {
	r.Destroyed = false
	r.State = 0
	m.sink.Broadcast(SpawnReactor{OID: r.OID, State: 0})
}
