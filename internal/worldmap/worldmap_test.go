package worldmap

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/justapithecus/channeld/internal/gametypes"
	"github.com/justapithecus/channeld/internal/queue"
	"github.com/justapithecus/channeld/internal/resourcedb"
	"github.com/justapithecus/channeld/internal/scripting"
	"github.com/justapithecus/channeld/internal/worker"
)

// fakeStore is a minimal resourcedb.Store backed by in-memory maps, for
// tests that only need a handful of templates.
type fakeStore struct {
	monsters map[int32]resourcedb.MonsterTemplate
	reactors map[int32]gametypes.ReactorTemplate
	equips   map[int32]resourcedb.EquipTemplate
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		monsters: make(map[int32]resourcedb.MonsterTemplate),
		reactors: make(map[int32]gametypes.ReactorTemplate),
		equips:   make(map[int32]resourcedb.EquipTemplate),
	}
}

func (s *fakeStore) LookupMonster(id int32) (resourcedb.MonsterTemplate, bool) {
	t, ok := s.monsters[id]
	return t, ok
}
func (s *fakeStore) LookupNPC(int32) (resourcedb.NPCTemplate, bool) { return resourcedb.NPCTemplate{}, false }
func (s *fakeStore) LookupReactor(id int32) (gametypes.ReactorTemplate, bool) {
	t, ok := s.reactors[id]
	return t, ok
}
func (s *fakeStore) LookupEquipTemplate(id int32) (resourcedb.EquipTemplate, bool) {
	t, ok := s.equips[id]
	return t, ok
}
func (s *fakeStore) LookupQuest(int32) (resourcedb.QuestTemplate, bool) {
	return resourcedb.QuestTemplate{}, false
}
func (s *fakeStore) LookupMap(int32) (resourcedb.MapStatic, bool) { return resourcedb.MapStatic{}, false }
func (s *fakeStore) LookupSkill(int32) (resourcedb.SkillTemplate, bool) {
	return resourcedb.SkillTemplate{}, false
}

// fakeSink records every event handed to it, in order, for assertion.
type fakeSink struct {
	broadcasts []any
	unicasts   map[uint64][]any
}

func newFakeSink() *fakeSink {
	return &fakeSink{unicasts: make(map[uint64][]any)}
}

func (s *fakeSink) Broadcast(event any) { s.broadcasts = append(s.broadcasts, event) }
func (s *fakeSink) BroadcastExcept(_ uint64, event any) { s.broadcasts = append(s.broadcasts, event) }
func (s *fakeSink) Unicast(playerID uint64, event any) {
	s.unicasts[playerID] = append(s.unicasts[playerID], event)
}

func newTestMap(sta resourcedb.MapStatic, store resourcedb.Store, sink Sink) (*Map, *worker.Worker) {
	w := worker.New(0, queue.New(4))
	rng := rand.New(rand.NewPCG(1, 2))
	return New(100000, w, sink, store, sta, noopEngine{}, rng), w
}

// noopEngine is a scripting.Engine that never actually runs a script;
// tests exercising reactor/script flow supply a sharper fake.
type noopEngine struct{}

func (noopEngine) Alloc(context.Context, string, string, scripting.Host) (scripting.Instance, error) {
	return nil, nil
}
func (noopEngine) Run(context.Context, scripting.Instance, ...any) (scripting.Result, error) {
	return scripting.ResultFailure, nil
}
func (noopEngine) Free(scripting.Instance) error { return nil }

func TestJoinAnnouncesSelfAndExistingMonsters(t *testing.T) {
	sta := resourcedb.MapStatic{ID: 100000, Spawners: []gametypes.Spawner{{ID: 100, X: 0, Y: 0}}}
	store := newFakeStore()
	store.monsters[100] = resourcedb.MonsterTemplate{ID: 100, MaxHP: 100}
	sink := newFakeSink()
	m, _ := newTestMap(sta, store, sink)

	oid, obj, _ := m.objects.Allocate()
	obj.Tag = gametypes.TagMonster
	m.monsters[oid] = &gametypes.Monster{OID: oid, ID: 100, HP: 100, MaxHP: 100}

	h := m.Join(1, false, nil)
	if _, ok := m.Resolve(h); !ok {
		t.Fatal("expected handle to resolve after Join")
	}
	if len(sink.unicasts[1]) == 0 {
		t.Fatal("expected at least a self-join unicast")
	}
	announced := false
	for _, e := range sink.unicasts[1] {
		if sm, ok := e.(SpawnMonster); ok && sm.Monster.OID == oid {
			announced = true
		}
	}
	if !announced {
		t.Fatal("expected the joiner to be sent the already-live monster")
	}
}

func TestLeaveFreesHandleAndStopsRespawnWhenEmpty(t *testing.T) {
	sta := resourcedb.MapStatic{ID: 100000, Spawners: []gametypes.Spawner{{ID: 100}}}
	store := newFakeStore()
	sink := newFakeSink()
	m, _ := newTestMap(sta, store, sink)

	h := m.Join(1, false, nil)
	m.Leave(h)

	if _, ok := m.Resolve(h); ok {
		t.Fatal("expected handle to be invalid after Leave")
	}
	if m.respawnScheduled {
		t.Fatal("expected respawn timer stopped once map is empty")
	}
}

func TestJoinGenerationPreventsStaleHandleReuse(t *testing.T) {
	sta := resourcedb.MapStatic{ID: 100000}
	store := newFakeStore()
	sink := newFakeSink()
	m, _ := newTestMap(sta, store, sink)

	h1 := m.Join(1, false, nil)
	m.Leave(h1)
	h2 := m.Join(2, false, nil)

	if h1.index != h2.index {
		t.Fatalf("expected slot reuse, got different indices %d vs %d", h1.index, h2.index)
	}
	if _, ok := m.Resolve(h1); ok {
		t.Fatal("stale handle from before Leave must not resolve after slot reuse")
	}
	p2, ok := m.Resolve(h2)
	if !ok || p2.ID != 2 {
		t.Fatalf("expected h2 to resolve to player 2, got %+v ok=%v", p2, ok)
	}
}

func TestSecondJoinerDoesNotReceiveControllerOfExistingMonsters(t *testing.T) {
	sta := resourcedb.MapStatic{ID: 100000}
	store := newFakeStore()
	sink := newFakeSink()
	m, _ := newTestMap(sta, store, sink)

	oid, obj, _ := m.objects.Allocate()
	obj.Tag = gametypes.TagMonster
	mon := &gametypes.Monster{OID: oid, ID: 1, HP: 50, MaxHP: 50}
	m.monsters[oid] = mon

	m.Join(1, false, nil)
	if mon.Controller == nil || mon.Controller.PlayerID != 1 {
		t.Fatalf("expected first joiner to take control of uncontrolled monster, got %+v", mon.Controller)
	}

	m.Join(2, false, nil)
	if mon.Controller.PlayerID != 1 {
		t.Fatalf("second joiner must not steal control without a hit, got %+v", mon.Controller)
	}
}
