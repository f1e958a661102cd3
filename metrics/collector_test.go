package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("channel-1", "world-1", 4)

	c.IncSessionAccepted()
	c.IncSessionAuthenticated()
	c.IncSessionDisconnected()
	c.IncSessionDisconnected()
	c.IncHandshakeFailure()
	c.IncHandshakeFailure()
	c.IncHandshakeFailure()
	c.IncMapJoin()
	c.IncMapLeave()
	c.IncMapLeave()
	c.IncMonsterKilled()
	c.IncMonsterKilled()
	c.IncMonsterKilled()
	c.IncDropSpawned()
	c.IncReactorTriggered()
	c.IncScriptError()
	c.IncCoordinatorHandoff()

	s := c.Snapshot()

	if s.SessionsAccepted != 1 {
		t.Errorf("SessionsAccepted = %d, want 1", s.SessionsAccepted)
	}
	if s.SessionsAuthenticated != 1 {
		t.Errorf("SessionsAuthenticated = %d, want 1", s.SessionsAuthenticated)
	}
	if s.SessionsDisconnected != 2 {
		t.Errorf("SessionsDisconnected = %d, want 2", s.SessionsDisconnected)
	}
	if s.HandshakeFailures != 3 {
		t.Errorf("HandshakeFailures = %d, want 3", s.HandshakeFailures)
	}
	if s.MapJoins != 1 {
		t.Errorf("MapJoins = %d, want 1", s.MapJoins)
	}
	if s.MapLeaves != 2 {
		t.Errorf("MapLeaves = %d, want 2", s.MapLeaves)
	}
	if s.MonstersKilled != 3 {
		t.Errorf("MonstersKilled = %d, want 3", s.MonstersKilled)
	}
	if s.DropsSpawned != 1 {
		t.Errorf("DropsSpawned = %d, want 1", s.DropsSpawned)
	}
	if s.ReactorsTriggered != 1 {
		t.Errorf("ReactorsTriggered = %d, want 1", s.ReactorsTriggered)
	}
	if s.ScriptErrors != 1 {
		t.Errorf("ScriptErrors = %d, want 1", s.ScriptErrors)
	}
	if s.CoordinatorHandoffs != 1 {
		t.Errorf("CoordinatorHandoffs = %d, want 1", s.CoordinatorHandoffs)
	}
}

func TestCollector_Dimensions(t *testing.T) {
	c := NewCollector("channel-7", "world-3", 8)
	s := c.Snapshot()

	if s.ChannelID != "channel-7" {
		t.Errorf("ChannelID = %q, want %q", s.ChannelID, "channel-7")
	}
	if s.WorldID != "world-3" {
		t.Errorf("WorldID = %q, want %q", s.WorldID, "world-3")
	}
	if s.WorkerCount != 8 {
		t.Errorf("WorkerCount = %d, want 8", s.WorkerCount)
	}
}

func TestCollector_ObserveWorkerQueueDepthRetainsMax(t *testing.T) {
	c := NewCollector("channel-1", "world-1", 1)

	c.ObserveWorkerQueueDepth(3)
	c.ObserveWorkerQueueDepth(11)
	c.ObserveWorkerQueueDepth(5)

	s := c.Snapshot()
	if s.WorkerQueueDepthMax != 11 {
		t.Errorf("WorkerQueueDepthMax = %d, want 11", s.WorkerQueueDepthMax)
	}
}

func TestCollector_AbsorbFlushStats(t *testing.T) {
	c := NewCollector("channel-1", "world-1", 1)

	failures := map[string]int64{
		"lock_timeout":        2,
		"constraint_violation": 1,
	}
	triggers := map[string]int64{"logout": 5, "map_change": 3}
	c.AbsorbFlushStats(10, 7, 3, failures, triggers)

	s := c.Snapshot()

	if s.FlushesAttempted != 10 {
		t.Errorf("FlushesAttempted = %d, want 10", s.FlushesAttempted)
	}
	if s.FlushesSucceeded != 7 {
		t.Errorf("FlushesSucceeded = %d, want 7", s.FlushesSucceeded)
	}
	if s.FlushesFailed != 3 {
		t.Errorf("FlushesFailed = %d, want 3", s.FlushesFailed)
	}
	if s.FailuresByReason["lock_timeout"] != 2 {
		t.Errorf("FailuresByReason[lock_timeout] = %d, want 2", s.FailuresByReason["lock_timeout"])
	}
	if s.TriggerCounts["logout"] != 5 {
		t.Errorf("TriggerCounts[logout] = %d, want 5", s.TriggerCounts["logout"])
	}

	// A second absorption accumulates rather than overwrites.
	c.AbsorbFlushStats(2, 2, 0, nil, map[string]int64{"logout": 1})
	s2 := c.Snapshot()
	if s2.FlushesAttempted != 12 {
		t.Errorf("FlushesAttempted = %d, want 12", s2.FlushesAttempted)
	}
	if s2.TriggerCounts["logout"] != 6 {
		t.Errorf("TriggerCounts[logout] = %d, want 6", s2.TriggerCounts["logout"])
	}
}

func TestCollector_AbsorbFlushStatsMapIsolation(t *testing.T) {
	c := NewCollector("channel-1", "world-1", 1)

	original := map[string]int64{"lock_timeout": 1}
	c.AbsorbFlushStats(1, 0, 1, original, nil)

	original["lock_timeout"] = 999
	original["new_reason"] = 100

	s := c.Snapshot()
	if s.FailuresByReason["lock_timeout"] != 1 {
		t.Errorf("FailuresByReason[lock_timeout] = %d, want 1 (should be isolated)", s.FailuresByReason["lock_timeout"])
	}
	if _, exists := s.FailuresByReason["new_reason"]; exists {
		t.Error("FailuresByReason should not see a key added to the caller's map after absorption")
	}
}

func TestCollector_SnapshotImmutability(t *testing.T) {
	c := NewCollector("channel-1", "world-1", 1)
	c.IncSessionAccepted()
	c.IncMonsterKilled()

	s1 := c.Snapshot()

	c.IncSessionAccepted()
	c.IncMonsterKilled()
	c.IncMonsterKilled()

	if s1.SessionsAccepted != 1 {
		t.Errorf("s1.SessionsAccepted = %d, want 1 (snapshot should be frozen)", s1.SessionsAccepted)
	}
	if s1.MonstersKilled != 1 {
		t.Errorf("s1.MonstersKilled = %d, want 1 (snapshot should be frozen)", s1.MonstersKilled)
	}

	s2 := c.Snapshot()
	if s2.SessionsAccepted != 2 {
		t.Errorf("s2.SessionsAccepted = %d, want 2", s2.SessionsAccepted)
	}
	if s2.MonstersKilled != 3 {
		t.Errorf("s2.MonstersKilled = %d, want 3", s2.MonstersKilled)
	}
}

func TestCollector_SnapshotMapIsolationFromMutation(t *testing.T) {
	c := NewCollector("channel-1", "world-1", 1)
	c.AbsorbFlushStats(1, 1, 0, map[string]int64{"lock_timeout": 3}, nil)

	s := c.Snapshot()
	s.FailuresByReason["lock_timeout"] = 999
	s.FailuresByReason["injected"] = 1

	s2 := c.Snapshot()
	if s2.FailuresByReason["lock_timeout"] != 3 {
		t.Errorf("FailuresByReason[lock_timeout] = %d, want 3 (collector should be isolated from snapshot mutation)", s2.FailuresByReason["lock_timeout"])
	}
	if _, exists := s2.FailuresByReason["injected"]; exists {
		t.Error("FailuresByReason should not contain a key injected via a returned snapshot")
	}
}

func TestCollector_NilReceiverSafety(t *testing.T) {
	var c *Collector

	c.IncSessionAccepted()
	c.IncSessionAuthenticated()
	c.IncSessionDisconnected()
	c.IncHandshakeFailure()
	c.IncMapJoin()
	c.IncMapLeave()
	c.IncMonsterKilled()
	c.IncDropSpawned()
	c.IncReactorTriggered()
	c.IncScriptError()
	c.IncCoordinatorHandoff()
	c.ObserveWorkerQueueDepth(5)
	c.AbsorbFlushStats(1, 1, 0, map[string]int64{"lock_timeout": 1}, nil)

	s := c.Snapshot()
	if s.SessionsAccepted != 0 {
		t.Errorf("nil collector snapshot SessionsAccepted = %d, want 0", s.SessionsAccepted)
	}
	if s.FailuresByReason != nil {
		t.Errorf("nil collector snapshot FailuresByReason should be nil, got %v", s.FailuresByReason)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	c := NewCollector("channel-1", "world-1", 1)
	const goroutines = 10
	const iterations = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for range goroutines {
		go func() {
			defer wg.Done()
			for range iterations {
				c.IncSessionAccepted()
				c.IncMonsterKilled()
				c.IncScriptError()
			}
		}()
	}

	wg.Wait()

	s := c.Snapshot()
	want := int64(goroutines * iterations)

	if s.SessionsAccepted != want {
		t.Errorf("SessionsAccepted = %d, want %d", s.SessionsAccepted, want)
	}
	if s.MonstersKilled != want {
		t.Errorf("MonstersKilled = %d, want %d", s.MonstersKilled, want)
	}
	if s.ScriptErrors != want {
		t.Errorf("ScriptErrors = %d, want %d", s.ScriptErrors, want)
	}
}

func TestCollector_ZeroValueSnapshot(t *testing.T) {
	c := NewCollector("channel-1", "world-1", 1)
	s := c.Snapshot()

	if s.SessionsAccepted != 0 || s.SessionsAuthenticated != 0 || s.SessionsDisconnected != 0 {
		t.Error("fresh collector should have zero session counters")
	}
	if s.MapJoins != 0 || s.MapLeaves != 0 || s.MonstersKilled != 0 || s.DropsSpawned != 0 || s.ReactorsTriggered != 0 {
		t.Error("fresh collector should have zero world counters")
	}
	if s.FlushesAttempted != 0 || s.FlushesSucceeded != 0 || s.FlushesFailed != 0 {
		t.Error("fresh collector should have zero flush counters")
	}
	if len(s.FailuresByReason) != 0 || len(s.TriggerCounts) != 0 {
		t.Error("fresh collector should have empty flush reason/trigger maps")
	}
}
