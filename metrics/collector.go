// Package metrics provides per-channel metrics collection.
//
// The Collector accumulates counters for the lifetime of one channel
// process. It is a leaf package with no internal dependencies.
// CharacterFlush metrics are absorbed from persist.Stats at flush
// completion rather than recorded field-by-field, avoiding
// double-counting between the persist package and this one.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all tracked metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Session lifecycle
	SessionsAccepted      int64
	SessionsAuthenticated int64
	SessionsDisconnected  int64
	HandshakeFailures     int64

	// World simulation
	MapJoins          int64
	MapLeaves         int64
	MonstersKilled    int64
	DropsSpawned      int64
	ReactorsTriggered int64

	// Scripting
	ScriptErrors int64

	// CharacterFlush (absorbed from persist.Stats at flush completion)
	FlushesAttempted int64
	FlushesSucceeded int64
	FlushesFailed    int64
	FailuresByReason map[string]int64
	TriggerCounts    map[string]int64

	// Worker / coordinator
	WorkerQueueDepthMax int64
	CoordinatorHandoffs int64

	// Dimensions (informational, set at construction)
	ChannelID   string
	WorldID     string
	WorkerCount int
}

// Collector accumulates metrics for one running channel process.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	sessionsAccepted      int64
	sessionsAuthenticated int64
	sessionsDisconnected  int64
	handshakeFailures     int64

	mapJoins          int64
	mapLeaves         int64
	monstersKilled    int64
	dropsSpawned      int64
	reactorsTriggered int64

	scriptErrors int64

	// Absorbed once via AbsorbFlushStats
	flushesAttempted int64
	flushesSucceeded int64
	flushesFailed    int64
	failuresByReason map[string]int64
	triggerCounts    map[string]int64

	workerQueueDepthMax int64
	coordinatorHandoffs int64

	// Dimensions
	channelID   string
	worldID     string
	workerCount int
}

// NewCollector creates a Collector with dimension labels identifying
// which channel and world this process serves.
func NewCollector(channelID, worldID string, workerCount int) *Collector {
	return &Collector{
		channelID:   channelID,
		worldID:     worldID,
		workerCount: workerCount,
	}
}

// --- Session lifecycle ---

// IncSessionAccepted records a new TCP connection accepted and handshaken.
func (c *Collector) IncSessionAccepted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.sessionsAccepted++
	c.mu.Unlock()
}

// IncSessionAuthenticated records a session completing the login-token handshake.
func (c *Collector) IncSessionAuthenticated() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.sessionsAuthenticated++
	c.mu.Unlock()
}

// IncSessionDisconnected records a session ending, for any reason.
func (c *Collector) IncSessionDisconnected() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.sessionsDisconnected++
	c.mu.Unlock()
}

// IncHandshakeFailure records a connection that failed the pre-session
// handshake (spec.md §6 "any deviation ends the session") before ever
// becoming a counted session.
func (c *Collector) IncHandshakeFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.handshakeFailures++
	c.mu.Unlock()
}

// --- World simulation ---

// IncMapJoin records a character joining a map's Room.
func (c *Collector) IncMapJoin() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.mapJoins++
	c.mu.Unlock()
}

// IncMapLeave records a character leaving a map's Room.
func (c *Collector) IncMapLeave() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.mapLeaves++
	c.mu.Unlock()
}

// IncMonsterKilled records a monster's HP reaching zero.
func (c *Collector) IncMonsterKilled() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.monstersKilled++
	c.mu.Unlock()
}

// IncDropSpawned records a drop entering a map's DropBatch.
func (c *Collector) IncDropSpawned() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.dropsSpawned++
	c.mu.Unlock()
}

// IncReactorTriggered records a reactor's script being run to a terminal result.
func (c *Collector) IncReactorTriggered() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.reactorsTriggered++
	c.mu.Unlock()
}

// --- Scripting ---

// IncScriptError records a script engine Alloc/Run/Free call returning an error.
func (c *Collector) IncScriptError() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.scriptErrors++
	c.mu.Unlock()
}

// --- Worker / coordinator ---

// ObserveWorkerQueueDepth records a CommandQueue depth sample, retaining
// the maximum observed so far (a high-water mark, not a running total).
func (c *Collector) ObserveWorkerQueueDepth(depth int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	if depth > c.workerQueueDepthMax {
		c.workerQueueDepthMax = depth
	}
	c.mu.Unlock()
}

// IncCoordinatorHandoff records RoomThreadCoordinator reassigning a
// map_id to a different worker.
func (c *Collector) IncCoordinatorHandoff() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.coordinatorHandoffs++
	c.mu.Unlock()
}

// --- CharacterFlush (absorbed from persist.Stats) ---

// AbsorbFlushStats copies CharacterFlush counters from persist.Stats into
// the collector. Called once per flush completion with that flush's
// final stats. failuresByReason and triggerCounts may be nil.
func (c *Collector) AbsorbFlushStats(attempted, succeeded, failed int64, failuresByReason, triggerCounts map[string]int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.flushesAttempted += attempted
	c.flushesSucceeded += succeeded
	c.flushesFailed += failed

	if failuresByReason != nil {
		if c.failuresByReason == nil {
			c.failuresByReason = make(map[string]int64, len(failuresByReason))
		}
		for k, v := range failuresByReason {
			c.failuresByReason[k] += v
		}
	}
	if triggerCounts != nil {
		if c.triggerCounts == nil {
			c.triggerCounts = make(map[string]int64, len(triggerCounts))
		}
		for k, v := range triggerCounts {
			c.triggerCounts[k] += v
		}
	}
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var failuresByReason map[string]int64
	if c.failuresByReason != nil {
		failuresByReason = make(map[string]int64, len(c.failuresByReason))
		for k, v := range c.failuresByReason {
			failuresByReason[k] = v
		}
	}
	var triggerCounts map[string]int64
	if c.triggerCounts != nil {
		triggerCounts = make(map[string]int64, len(c.triggerCounts))
		for k, v := range c.triggerCounts {
			triggerCounts[k] = v
		}
	}

	return Snapshot{
		SessionsAccepted:      c.sessionsAccepted,
		SessionsAuthenticated: c.sessionsAuthenticated,
		SessionsDisconnected:  c.sessionsDisconnected,
		HandshakeFailures:     c.handshakeFailures,

		MapJoins:          c.mapJoins,
		MapLeaves:         c.mapLeaves,
		MonstersKilled:    c.monstersKilled,
		DropsSpawned:      c.dropsSpawned,
		ReactorsTriggered: c.reactorsTriggered,

		ScriptErrors: c.scriptErrors,

		FlushesAttempted: c.flushesAttempted,
		FlushesSucceeded: c.flushesSucceeded,
		FlushesFailed:    c.flushesFailed,
		FailuresByReason: failuresByReason,
		TriggerCounts:    triggerCounts,

		WorkerQueueDepthMax: c.workerQueueDepthMax,
		CoordinatorHandoffs: c.coordinatorHandoffs,

		ChannelID:   c.channelID,
		WorldID:     c.worldID,
		WorkerCount: c.workerCount,
	}
}
