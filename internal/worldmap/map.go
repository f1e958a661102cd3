package worldmap

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/justapithecus/channeld/internal/controllerheap"
	"github.com/justapithecus/channeld/internal/gametypes"
	"github.com/justapithecus/channeld/internal/objtable"
	"github.com/justapithecus/channeld/internal/resourcedb"
	"github.com/justapithecus/channeld/internal/scripting"
	"github.com/justapithecus/channeld/internal/worker"
)

// PlayerHandle is a stable, generation-checked identity for a joined
// player, replacing the source's swap-with-last-plus-back-patch array
// discipline (spec.md §9 "Stable handles vs relocatable arrays"): a
// Leave no longer requires patching every other player's back-
// references, since the slot a departed player occupied is simply
// reused with a bumped generation on the next Join.
type PlayerHandle struct {
	index      uint32
	generation uint32
}

type playerSlot struct {
	generation uint32
	occupied   bool
	player     *MapPlayer
}

// MapPlayer is the per-map state for one joined player: which monsters
// they control and which settled/dropping batches they own (spec.md
// §3, §4.3.6).
type MapPlayer struct {
	ID         uint64
	AutoPickup bool
	QuestItems map[int32]bool

	heapNode *controllerheap.Node

	monsterOIDs []gametypes.OID

	// ownedDropBatches/ownedDroppingBatches hold pointers rather than
	// array indices: batches are removed from Map's own slices by swap-
	// with-last, which would otherwise require patching every owning
	// player's back-reference on each removal (spec.md §9 "Stable
	// handles vs relocatable arrays" applied to drops too). Membership
	// here is only consulted on Leave, where a linear scan over a
	// player's own (small) drop count is not a hot path.
	ownedDropBatches     []*gametypes.DropBatch
	ownedDroppingBatches []*gametypes.DroppingBatch
}

// Map is the per-room simulation core (spec.md §4.3). See the package
// doc comment for its single-worker-ownership contract.
type Map struct {
	id    int32
	w     *worker.Worker
	sink  Sink
	store resourcedb.Store
	sta   resourcedb.MapStatic
	rng   *rand.Rand

	engine           scripting.Engine
	reactorInstances map[gametypes.OID]scripting.Instance

	objects  *objtable.Table
	monsters map[gametypes.OID]*gametypes.Monster
	heap     *controllerheap.Heap

	players     []playerSlot
	freePlayers []uint32
	activeCount int

	dead             []int
	aliveCount       int
	respawnID        uint64
	respawnScheduled bool

	dropBatches     []*gametypes.DropBatch
	droppingBatches []*gametypes.DroppingBatch

	reactors map[gametypes.OID]*gametypes.Reactor

	boss *gametypes.Monster
}

// respawnInterval is the fixed delay between a map's respawn waves
// (spec.md §4.3.1).
const respawnInterval = 10 * time.Second

// New constructs an empty Map over the given static data, bound to w
// for every delayed transition and to sink for every player-facing
// event.
func New(id int32, w *worker.Worker, sink Sink, store resourcedb.Store, sta resourcedb.MapStatic, engine scripting.Engine, rng *rand.Rand) *Map {
	dead := make([]int, len(sta.Spawners))
	for i := range sta.Spawners {
		dead[i] = i
	}
	m := &Map{
		id:               id,
		w:                w,
		sink:             sink,
		store:            store,
		sta:              sta,
		rng:              rng,
		engine:           engine,
		reactorInstances: make(map[gametypes.OID]scripting.Instance),
		objects:          objtable.New(),
		monsters:         make(map[gametypes.OID]*gametypes.Monster),
		heap:             controllerheap.New(),
		reactors:         make(map[gametypes.OID]*gametypes.Reactor),
		dead:             dead,
	}
	if sta.HasBoss {
		m.spawnBoss()
	}
	return m
}

// ID returns the map's static identifier.
func (m *Map) ID() int32 { return m.id }

// MonsterAlive reports whether oid currently names a live monster,
// used by Room's fixup_monster_oids to compact away stale oids from an
// attack packet before damage is applied (spec.md §4.4).
func (m *Map) MonsterAlive(oid gametypes.OID) bool {
	mon, ok := m.monsters[oid]
	return ok && mon.Alive()
}

// allocPlayerSlot reserves a slot, reusing a freed one if available.
func (m *Map) allocPlayerSlot(p *MapPlayer) PlayerHandle {
	if n := len(m.freePlayers); n > 0 {
		idx := m.freePlayers[n-1]
		m.freePlayers = m.freePlayers[:n-1]
		slot := &m.players[idx]
		slot.occupied = true
		slot.generation++
		slot.player = p
		return PlayerHandle{index: idx, generation: slot.generation}
	}
	idx := uint32(len(m.players))
	m.players = append(m.players, playerSlot{occupied: true, player: p})
	return PlayerHandle{index: idx, generation: 0}
}

// Resolve returns the MapPlayer h refers to, or ok=false if h is stale
// (the player already left and the slot was reused or freed).
func (m *Map) Resolve(h PlayerHandle) (*MapPlayer, bool) {
	if int(h.index) >= len(m.players) {
		return nil, false
	}
	slot := &m.players[h.index]
	if !slot.occupied || slot.generation != h.generation {
		return nil, false
	}
	return slot.player, true
}

// ResolveByID returns the MapPlayer named by playerID, or ok=false if
// no such player is currently joined. Unlike Resolve, this works
// before a caller has a PlayerHandle in hand yet — in particular a
// Sink's Unicast/Broadcast can be invoked from inside Join itself,
// before Join has returned a handle to its caller.
func (m *Map) ResolveByID(playerID uint64) (*MapPlayer, bool) {
	p, _, ok := m.findPlayerByID(playerID)
	return p, ok
}

// Join admits a new player to the map (spec.md §4.3.6). playerID must
// be unique among currently-joined players on this map. questItems
// seeds the player's quest-item visibility set before any join-time
// snapshot unicast fires, so an already-completed quest's items are
// correctly visible (or a not-yet-started quest's items correctly
// hidden) in the very first batch of drop snapshots the joiner sees.
func (m *Map) Join(playerID uint64, autoPickup bool, questItems map[int32]bool) PlayerHandle {
	if questItems == nil {
		questItems = make(map[int32]bool)
	}
	p := &MapPlayer{ID: playerID, AutoPickup: autoPickup, QuestItems: questItems}
	h := m.allocPlayerSlot(p)
	p.heapNode = m.heap.Push(0, h)
	wasEmpty := m.activeCount == 0
	m.activeCount++

	m.sink.Unicast(playerID, joinSelf{})

	for _, mon := range m.monsters {
		m.sink.Unicast(playerID, SpawnMonster{Monster: *mon})
	}

	if wasEmpty {
		for oid, mon := range m.monsters {
			if mon.Controller == nil {
				m.assignController(h, p, mon)
				m.heap.Inc(p.heapNode, 1)
				m.sink.Unicast(playerID, SpawnMonsterController{OID: oid})
			}
		}
		m.scheduleRespawn()
	}

	for oid, r := range m.reactors {
		if !r.Destroyed {
			m.sink.Unicast(playerID, ChangeReactorState{OID: oid, State: r.State})
		}
	}

	for _, b := range m.dropBatches {
		for _, d := range b.Drops {
			m.sink.Unicast(playerID, dropEventFor(d, false))
		}
	}
	for _, b := range m.droppingBatches {
		for _, d := range b.Drops[:b.Current] {
			m.sink.Unicast(playerID, dropEventFor(d, false))
		}
	}

	return h
}

// joinSelf is a marker event a Room translates into the "announce self"
// packet sequence; Map has no notion of character appearance.
type joinSelf struct{}

func dropEventFor(d gametypes.Drop, playerDrop bool) any {
	switch d.Kind {
	case gametypes.DropMeso:
		return DropMeso{OID: d.OID, Amount: d.MesoAmount, PlayerDrop: playerDrop}
	case gametypes.DropEquip:
		return DropItem{OID: d.OID, Equip: d.Equip, IsEquip: true, QuestID: d.QuestID, PlayerDrop: playerDrop}
	default:
		return DropItem{OID: d.OID, Item: d.Item, QuestID: d.QuestID, PlayerDrop: playerDrop}
	}
}

// Leave removes a player from the map (spec.md §4.3.6). h must have
// been returned by a prior Join on this Map and not yet left.
func (m *Map) Leave(h PlayerHandle) {
	p, ok := m.Resolve(h)
	if !ok {
		return
	}

	for _, oid := range append([]gametypes.OID(nil), p.monsterOIDs...) {
		mon, ok := m.monsters[oid]
		if !ok {
			continue
		}
		m.handOffController(mon)
	}

	for _, b := range p.ownedDropBatches {
		b.Owner = nil
	}
	for _, b := range p.ownedDroppingBatches {
		b.Owner = nil
	}

	m.heap.Remove(p.heapNode)

	slot := &m.players[h.index]
	slot.occupied = false
	slot.player = nil
	m.freePlayers = append(m.freePlayers, h.index)
	m.activeCount--

	if m.activeCount == 0 && m.respawnScheduled {
		m.w.Cancel(m.respawnID)
		m.respawnScheduled = false
	}
}

// assignController makes p the controller of mon, without sending any
// notification (used when no prior controller existed to hand off
// from, e.g. the very first player's join).
func (m *Map) assignController(h PlayerHandle, p *MapPlayer, mon *gametypes.Monster) {
	mon.Controller = &gametypes.ControllerRef{PlayerID: p.ID}
	mon.IndexInController = len(p.monsterOIDs)
	p.monsterOIDs = append(p.monsterOIDs, mon.OID)
}

// handOffController transfers mon to the current heap root (the
// least-loaded remaining player), or clears its controller if the map
// is now empty (spec.md §4.3.2, §4.3.6).
func (m *Map) handOffController(mon *gametypes.Monster) {
	m.detachController(mon)

	top := m.heap.Top()
	if top == nil {
		mon.Controller = nil
		return
	}
	newHandle := top.Player.(PlayerHandle)
	newPlayer, ok := m.Resolve(newHandle)
	if !ok {
		mon.Controller = nil
		return
	}
	mon.Controller = &gametypes.ControllerRef{PlayerID: newPlayer.ID}
	mon.IndexInController = len(newPlayer.monsterOIDs)
	newPlayer.monsterOIDs = append(newPlayer.monsterOIDs, mon.OID)
	m.heap.Inc(newPlayer.heapNode, 1)
	m.sink.Unicast(newPlayer.ID, SpawnMonsterController{OID: mon.OID})
}

// detachController removes mon from its current controller's tracking
// array (swap-remove, patching the relocated entry's IndexInController)
// and decrements that player's heap count, without assigning a new
// controller. Used both when handing a monster off to the next root
// and when a monster dies.
func (m *Map) detachController(mon *gametypes.Monster) {
	if mon.Controller == nil {
		return
	}
	old, _, ok := m.findPlayerByID(mon.Controller.PlayerID)
	if !ok {
		mon.Controller = nil
		return
	}
	removeOIDSwap(&old.monsterOIDs, mon.IndexInController)
	if mon.IndexInController < len(old.monsterOIDs) {
		m.monsters[old.monsterOIDs[mon.IndexInController]].IndexInController = mon.IndexInController
	}
	m.heap.Inc(old.heapNode, -1)
	mon.Controller = nil
}

// findPlayerByID is a linear scan over joined players; the player
// count per map is small enough that this is cheaper than maintaining
// an auxiliary ID->handle index for what is, outside of handoff, a
// cold path.
func (m *Map) findPlayerByID(id uint64) (*MapPlayer, PlayerHandle, bool) {
	for i := range m.players {
		if m.players[i].occupied && m.players[i].player.ID == id {
			return m.players[i].player, PlayerHandle{index: uint32(i), generation: m.players[i].generation}, true
		}
	}
	return nil, PlayerHandle{}, false
}

func removeOIDSwap(s *[]gametypes.OID, idx int) {
	n := len(*s)
	if idx < 0 || idx >= n {
		return
	}
	(*s)[idx] = (*s)[n-1]
	*s = (*s)[:n-1]
}

// scheduleRespawn arms (or re-arms) the 10s respawn timer (spec.md
// §4.3.1). Stopped only by Leave when the last player departs.
func (m *Map) scheduleRespawn() {
	m.respawnScheduled = true
	m.respawnID = m.w.SubmitTimeout(respawnInterval, m.fireRespawn)
}

func (m *Map) fireRespawn() {
	if !m.respawnScheduled {
		return
	}
	target := int(math.Ceil((0.7 + 0.05*float64(minInt(6, m.activeCount))) * float64(len(m.sta.Spawners))))

	spawned := 0
	root := m.heap.Top()
	for m.aliveCount < target && len(m.dead) > 0 {
		pick := m.rng.IntN(len(m.dead))
		spawnerIdx := m.dead[pick]
		m.dead[pick] = m.dead[len(m.dead)-1]
		m.dead = m.dead[:len(m.dead)-1]

		sp := m.sta.Spawners[spawnerIdx]
		oid, obj, ok := m.objects.Allocate()
		if !ok {
			break
		}
		obj.Tag = gametypes.TagMonster

		mon := &gametypes.Monster{OID: oid, ID: sp.ID, X: sp.X, Y: sp.Y, FH: sp.FH, SpawnerIndex: spawnerIdx}
		if tmpl, ok := m.store.LookupMonster(sp.ID); ok {
			mon.HP, mon.MaxHP = tmpl.MaxHP, tmpl.MaxHP
		}
		m.monsters[oid] = mon
		m.aliveCount++
		spawned++

		if root != nil {
			handle := root.Player.(PlayerHandle)
			if p, ok := m.Resolve(handle); ok {
				m.assignController(handle, p, mon)
				m.sink.Unicast(p.ID, SpawnMonsterController{OID: oid})
			}
		}
		m.sink.Broadcast(SpawnMonster{Monster: *mon})
	}

	if spawned > 0 && root != nil {
		m.heap.Inc(root, spawned)
	}

	m.scheduleRespawn()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
