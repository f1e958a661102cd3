package channelworld

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net"
	"sync/atomic"

	"github.com/justapithecus/channeld/internal/channelserver"
	"github.com/justapithecus/channeld/internal/coordinator"
	"github.com/justapithecus/channeld/internal/eventbus"
	"github.com/justapithecus/channeld/internal/gametypes"
	"github.com/justapithecus/channeld/internal/persist"
	"github.com/justapithecus/channeld/internal/resourcedb"
	"github.com/justapithecus/channeld/internal/room"
	"github.com/justapithecus/channeld/internal/scripting"
	"github.com/justapithecus/channeld/internal/session"
	"github.com/justapithecus/channeld/internal/wire"
	"github.com/justapithecus/channeld/internal/worker"
	"github.com/justapithecus/channeld/internal/worldmap"
	"github.com/justapithecus/channeld/log"
	"github.com/justapithecus/channeld/metrics"
)

// World owns every live Room, one per currently-hosted map_id, and
// implements channelserver.Dispatcher: every handshaken connection is
// handed to HandleSession, which resolves the session's home worker via
// coordinator.Coordinator, joins it into that worker's Room (creating
// one on first reference), and runs its post-join read loop until the
// connection drops.
type World struct {
	pool      *worker.ThreadPool
	coord     *coordinator.Coordinator
	store     resourcedb.Store
	engine    scripting.Engine
	eventMgr  *eventbus.Manager
	flusher   *persist.Flusher
	loginCtl  *channelserver.LoginControl
	logger    *log.Logger
	collector *metrics.Collector

	// spawnMapID is where a freshly-connected session lands when it
	// carries no map_id of its own (character load is an external
	// concern this core's spec never names; see HandleSession).
	spawnMapID int32

	// rooms[workerIdx][mapID] is only ever read or written from within
	// a command running on that worker's own goroutine (the same
	// single-writer discipline worldmap.Map and room.Room themselves
	// require), so it needs no lock of its own.
	rooms []map[int32]*room.Room

	nextPlayerID atomic.Uint64
}

var _ channelserver.Dispatcher = (*World)(nil)

// New builds a World over pool; it only reads the pool's worker count,
// so the pool need not be started yet. store/engine/
// eventMgr are shared read-only across every worker (spec.md §9
// "Global mutable statics" / immutable shared fixtures). flusher and
// loginCtl may be nil in tests that don't exercise persistence or the
// login-control hand-off; logger/collector may be nil. spawnMapID is
// the map a session with no map_id of its own joins (spec.md §10 S1's
// own acceptance map, 100000000, is the conventional default).
func New(pool *worker.ThreadPool, coord *coordinator.Coordinator, store resourcedb.Store, engine scripting.Engine, eventMgr *eventbus.Manager, flusher *persist.Flusher, loginCtl *channelserver.LoginControl, logger *log.Logger, collector *metrics.Collector, spawnMapID int32) *World {
	rooms := make([]map[int32]*room.Room, pool.Len())
	for i := range rooms {
		rooms[i] = make(map[int32]*room.Room)
	}
	return &World{
		pool:       pool,
		coord:      coord,
		store:      store,
		engine:     engine,
		eventMgr:   eventMgr,
		flusher:    flusher,
		loginCtl:   loginCtl,
		logger:     logger,
		collector:  collector,
		spawnMapID: spawnMapID,
		rooms:      rooms,
	}
}

// HandleSession implements channelserver.Dispatcher. How session_id
// resolves to an account/character is an external concern this core's
// spec never names (the first client packet carries only session_id,
// spec.md §6) — login-token verification and character load happen
// upstream of the channel in the real deployment. This wiring starts a
// fresh Character keyed by session_id, which is enough to exercise
// every downstream operation (join, simulate, persist) end to end.
func (w *World) HandleSession(ctx context.Context, sessionID uint32, conn net.Conn, reader *wire.FrameReader, sendIV [4]byte) {
	character := gametypes.NewCharacter(int64(sessionID), 0, fmt.Sprintf("session-%d", sessionID))
	character.MapID = w.spawnMapID
	sconn := NewSessionConn(conn, wire.NewXORCipher(sendIV), MsgpackEncoder{}, w.logger)
	user := session.New(character, sconn, w.store, w.engine)

	playerID := w.nextPlayerID.Add(1)
	workerIdx := w.coord.GetInit(character.MapID)

	joinErr := make(chan error, 1)
	_ = w.pool.Queue(workerIdx).Post(func() {
		joinErr <- w.joinRoom(workerIdx, playerID, user)
	})

	if err := <-joinErr; err != nil {
		w.logError("channelworld: join failed", sessionID, err)
		w.coord.Unref(character.MapID)
		conn.Close()
		return
	}
	w.collector.IncSessionAuthenticated()
	w.collector.IncMapJoin()

	w.readLoop(ctx, sessionID, workerIdx, playerID, user, reader, conn)
}

// joinRoom runs on workerIdx's own goroutine: it lazily creates that
// worker's Room for character.MapID (spec.md §4.4 "create(worker,
// event_manager, map_id)") and joins user into it (spec.md §4.4
// "join(session, character, quest_items, reactor_mgr)").
func (w *World) joinRoom(workerIdx int, playerID uint64, user *session.User) error {
	r, ok := w.rooms[workerIdx][user.MapID]
	if !ok {
		sta, ok := w.store.LookupMap(user.MapID)
		if !ok {
			return fmt.Errorf("channelworld: unknown map %d", user.MapID)
		}
		rng := rand.New(rand.NewPCG(uint64(user.MapID), uint64(workerIdx)))
		r = room.Create(w.pool.Worker(workerIdx), w.eventMgr, w.store, sta, w.engine, rng)
		w.rooms[workerIdx][user.MapID] = r
	}

	member := r.Join(playerID, uint64(user.ID), true, nil, user)
	user.Room = r
	user.Member = member
	user.NewMap()
	return nil
}

// ChangeMapWorker performs the portal hand-off protocol spec.md §4.7
// describes and §10 S6 exercises end to end, from outside either
// worker's own goroutine (the common case: a connection's own read
// loop driving a portal packet). See changeMap for the mechanics and
// for the same hand-off driven from inside a map event listener.
func (w *World) ChangeMapWorker(sourceWorkerIdx int, playerID uint64, user *session.User, targetMap int32, portalName string) (int, error) {
	return w.changeMap(sourceWorkerIdx, false, playerID, user, targetMap, portalName)
}

// changeMap is the hand-off protocol shared by ChangeMapWorker and the
// per-map transport listeners (dockUndockBoat/startSailing/endSailing
// and their train/subway/genie counterparts, spec.md §4.8): leave the
// source room, release the coordinator's ref on the old map_id,
// resolve (lazily creating, if necessary) the destination room on
// whichever worker currently owns the new map_id, join it there, and
// only then emit the ChangeMap/NewMap burst.
//
// onSourceWorker must be true when the caller is already executing on
// sourceWorkerIdx's own goroutine — a command a map event listener is
// itself running as (spec.md §4.8 "enqueue a write to the map's event
// fd, which the map's Worker polls"). Posting the leave step onto
// sourceWorkerIdx in that case would deadlock, since that worker's
// single goroutine would be blocking on a command it must itself run;
// leaveRoom therefore runs inline instead of through w.pool.Queue. The
// join step still Posts-and-waits unless the destination also resolves
// back onto sourceWorkerIdx, in which case it too runs inline.
func (w *World) changeMap(sourceWorkerIdx int, onSourceWorker bool, playerID uint64, user *session.User, targetMap int32, portalName string) (int, error) {
	newMapID, portal, err := user.Portal(targetMap, portalName)
	if err != nil {
		return sourceWorkerIdx, err
	}

	if onSourceWorker {
		w.leaveRoom(user)
	} else {
		left := make(chan struct{})
		_ = w.pool.Queue(sourceWorkerIdx).Post(func() {
			w.leaveRoom(user)
			close(left)
		})
		<-left
	}
	w.coord.Unref(user.MapID)

	newWorkerIdx := w.coord.GetInit(newMapID)

	var joinErr error
	if onSourceWorker && newWorkerIdx == sourceWorkerIdx {
		joinErr = w.joinMap(newWorkerIdx, playerID, user, newMapID, portal)
	} else {
		ch := make(chan error, 1)
		_ = w.pool.Queue(newWorkerIdx).Post(func() {
			ch <- w.joinMap(newWorkerIdx, playerID, user, newMapID, portal)
		})
		joinErr = <-ch
	}
	if joinErr != nil {
		w.coord.Unref(newMapID)
		return sourceWorkerIdx, joinErr
	}
	w.collector.IncMapJoin()
	return newWorkerIdx, nil
}

// leaveRoom removes user from its current room, if any. Must run on
// the room's owning worker goroutine.
func (w *World) leaveRoom(user *session.User) {
	if user.Room != nil && user.Member != nil {
		user.Room.Leave(user.Member)
	}
}

// joinMap is joinRoom's hand-off counterpart: it admits user into
// workerIdx's Room for mapID (creating the room on first reference,
// same as joinRoom) and then runs the ChangeMap/NewMap packet sequence
// the destination worker owes the client once the join is confirmed
// (spec.md §10 S6 "target worker accepts join, emits ChangeMap,
// Character packet bundle").
func (w *World) joinMap(workerIdx int, playerID uint64, user *session.User, mapID int32, portal string) error {
	r, ok := w.rooms[workerIdx][mapID]
	if !ok {
		sta, ok := w.store.LookupMap(mapID)
		if !ok {
			return fmt.Errorf("channelworld: unknown map %d", mapID)
		}
		rng := rand.New(rand.NewPCG(uint64(mapID), uint64(workerIdx)))
		r = room.Create(w.pool.Worker(workerIdx), w.eventMgr, w.store, sta, w.engine, rng)
		w.rooms[workerIdx][mapID] = r
	}

	member := r.Join(playerID, uint64(user.ID), true, nil, user)
	user.Room = r
	user.Member = member
	user.ChangeMap(mapID, portal)
	user.NewMap()
	return nil
}

// postMapHandler runs handler against mapID's room on its own owning
// worker, if that map is currently hosted anywhere. This is the
// concrete form of spec.md §4.8's "enqueue a write to the map's event
// fd, which the map's Worker polls and then runs the map's handler":
// handler is Posted onto the room's worker (worker.Worker's completion
// queue is the event fd), never run on the calling scheduler goroutine,
// so it may safely mutate the Map and drive further hand-offs. A
// map with no current room (never joined, or fully vacated and never
// rehosted) is silently skipped — there is nothing listening on it.
func (w *World) postMapHandler(mapID int32, handler func(workerIdx int, r *room.Room)) {
	workerIdx, ok := w.coord.WorkerFor(mapID)
	if !ok {
		return
	}
	_ = w.pool.Queue(workerIdx).Post(func() {
		r, ok := w.rooms[workerIdx][mapID]
		if !ok {
			return
		}
		handler(workerIdx, r)
	})
}

// RegisterBoatRoute wires the dock map's boat transport handlers onto
// the boat event (spec.md §4.8 "dock_undock_boat, start_sailing,
// end_sailing ... warp players between dock/sail/arrival maps", §10
// S2): dockMapID is the dock/sail map hosting the boat, destMapID/
// destPortal name where end_sailing's departure warps every member
// currently aboard.
func (w *World) RegisterBoatRoute(eventMgr *eventbus.Manager, dockMapID, destMapID int32, destPortal string) error {
	return eventMgr.AddListener(eventbus.Boat, func(change eventbus.PropertyChange) {
		if change.Index != 0 {
			return
		}
		switch change.Value {
		case eventbus.BoatArrived:
			w.postMapHandler(dockMapID, w.dockUndockBoat)
		case eventbus.BoatSailing:
			w.postMapHandler(dockMapID, w.startSailing)
		case eventbus.BoatDeparted:
			w.postMapHandler(dockMapID, func(workerIdx int, r *room.Room) {
				w.endSailing(workerIdx, r, destMapID, destPortal)
			})
		}
	})
}

// dockUndockBoat runs on the dock map's own worker when the boat
// arrives and opens boarding (spec.md §8 property 0 "arrived").
func (w *World) dockUndockBoat(_ int, r *room.Room) {
	r.Broadcast(worldmap.SystemNotice{Text: "The boat has docked."})
}

// startSailing runs on the dock map's own worker when the gates close
// and the boat gets underway (spec.md §8 property 0 "sailing").
func (w *World) startSailing(_ int, r *room.Room) {
	r.Broadcast(worldmap.SystemNotice{Text: "The boat is now sailing."})
}

// endSailing runs on the dock map's own worker when the boat departs
// (spec.md §8 property 0 "departed", §10 S2's t=15s warp): every
// member still aboard is handed off to destMapID/destPortal via
// changeMap, running inline since endSailing is already executing on
// the dock room's worker goroutine.
func (w *World) endSailing(workerIdx int, r *room.Room, destMapID int32, destPortal string) {
	var members []*room.RoomMember
	r.ForEachMember(func(m *room.RoomMember) { members = append(members, m) })

	for _, m := range members {
		user, ok := m.Sender.(*session.User)
		if !ok {
			continue
		}
		if _, err := w.changeMap(workerIdx, true, m.PlayerID, user, destMapID, destPortal); err != nil {
			w.logError("channelworld: boat hand-off failed", uint32(m.PlayerID), err)
		}
	}
}

// RegisterAreaBossRoute wires the area-boss reset listener onto the
// area_boss event (spec.md §4.8 "Area-boss event reset re-triggers a
// fixed list of world maps; if the map had no live boss and the
// registration succeeds, the boss is (re)spawned with a map-specific
// welcome system notice"). Property 0 carries the target map_id and
// arrives before property 1's outcome (see eventbus.TriggerAreaBossReset),
// so the listener only acts on the outcome write and reads the map_id
// back off the captured *eventbus.Event handle.
func (w *World) RegisterAreaBossRoute(eventMgr *eventbus.Manager) error {
	areaBoss, err := eventMgr.Event(eventbus.AreaBoss)
	if err != nil {
		return err
	}
	return eventMgr.AddListener(eventbus.AreaBoss, func(change eventbus.PropertyChange) {
		if change.Index != 1 || change.Value != eventbus.AreaBossResetSucceeded {
			return
		}
		mapID := areaBoss.Get(0)
		w.postMapHandler(mapID, w.respawnAreaBoss)
	})
}

// respawnAreaBoss runs on the target map's own worker once an
// area-boss reset resolves successfully.
func (w *World) respawnAreaBoss(_ int, r *room.Room) {
	if r.RespawnBoss() {
		r.Broadcast(worldmap.SystemNotice{Text: "The area boss has returned."})
	}
}

// readLoop discards frames until the connection errors or closes, the
// point at which opcode-level dispatch onto user's operations would
// run (deferred to a future wiring layer, per internal/channelserver's
// own scope note); it exists here so a session's lifetime — and its
// leave/flush/notify teardown — is exercised end to end.
func (w *World) readLoop(ctx context.Context, sessionID uint32, workerIdx int, playerID uint64, user *session.User, reader *wire.FrameReader, conn net.Conn) {
	for {
		if _, err := reader.ReadFrame(); err != nil {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	w.teardown(sessionID, workerIdx, playerID, user, conn)
}

// teardown leaves the room (on the owning worker), flushes the
// character, releases the map_id ref, notifies login-control, and
// counts the disconnect (spec.md §4.9 CharacterFlush on disconnect,
// §6 login-control disconnect notification).
func (w *World) teardown(sessionID uint32, workerIdx int, playerID uint64, user *session.User, conn net.Conn) {
	conn.Close()

	left := make(chan struct{})
	_ = w.pool.Queue(workerIdx).Post(func() {
		w.leaveRoom(user)
		close(left)
	})
	<-left

	if w.flusher != nil {
		stats, err := w.flusher.Flush(context.Background(), user.Character, "disconnect")
		if err != nil {
			w.logError("channelworld: disconnect flush failed", sessionID, err)
		}
		w.collector.AbsorbFlushStats(stats.Attempted, stats.Succeeded, stats.Failed, stats.FailuresByReason, stats.TriggerCounts)
	}
	w.collector.IncMapLeave()
	w.collector.IncSessionDisconnected()
	w.coord.Unref(user.MapID)

	if w.loginCtl != nil {
		w.loginCtl.Notify(sessionID)
	}
}

func (w *World) logError(msg string, sessionID uint32, err error) {
	if w.logger == nil {
		return
	}
	w.logger.Error(msg, map[string]any{"session_id": sessionID, "error": err.Error()})
}
