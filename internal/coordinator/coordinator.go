// Package coordinator implements RoomThreadCoordinator (spec.md §4.7,
// §5 "RoomThreadCoordinator.map_dict — Mutex-guarded dictionary"): the
// mapping from map_id to the worker thread index currently hosting
// that map's Room, plus the ref-counted hand-off protocol for portal
// transitions between workers.
package coordinator

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"
)

// Coordinator assigns each map_id to exactly one worker index at a
// time, using rendezvous (highest-random-weight) hashing over the
// currently live worker set so that, absent membership changes, the
// same map_id always maps to the same worker (spec.md §4.7 "sticky"
// assignment), and a worker's removal only reshuffles the map_ids it
// was hosting.
type Coordinator struct {
	mu sync.Mutex

	mapDict map[int32]int // map_id -> worker index
	refs    map[int32]int // map_id -> ref count

	workers []int // live worker indices, in ascending order
	hash    *rendezvous.Hash
}

// New builds a Coordinator over workerCount workers, indexed 0..n-1.
func New(workerCount int) *Coordinator {
	nodes := make([]string, workerCount)
	for i := range nodes {
		nodes[i] = strconv.Itoa(i)
	}
	return &Coordinator{
		mapDict: make(map[int32]int),
		refs:    make(map[int32]int),
		workers: allIndices(workerCount),
		hash:    rendezvous.New(nodes, hashSeed),
	}
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func hashSeed(s string, seed uint64) uint64 {
	return xxhash.Sum64String(s) ^ seed
}

// GetInit returns the worker index hosting mapID, assigning one via
// rendezvous hashing on first reference and incrementing its ref
// count (spec.md §4.7 "admission into a map thread").
func (c *Coordinator) GetInit(mapID int32) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.mapDict[mapID]
	if !ok {
		idx = c.assign(mapID)
		c.mapDict[mapID] = idx
	}
	c.refs[mapID]++
	return idx
}

func (c *Coordinator) assign(mapID int32) int {
	node := c.hash.Get(strconv.FormatInt(int64(mapID), 10))
	idx, err := strconv.Atoi(node)
	if err != nil {
		// Should never happen: every node label is produced by New via
		// strconv.Itoa over 0..n-1.
		panic(fmt.Sprintf("coordinator: corrupt rendezvous node label %q", node))
	}
	return idx
}

// Ref increments mapID's ref count without reassigning it. Used when a
// second session joins an already-hosted map.
func (c *Coordinator) Ref(mapID int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refs[mapID]++
}

// Unref decrements mapID's ref count, evicting it from mapDict once it
// reaches zero so a future GetInit reassigns fresh (spec.md §4.7
// "cross-thread handoff on portal transitions" relies on eviction
// freeing the slot for reassignment, not on the worker itself
// changing).
func (c *Coordinator) Unref(mapID int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refs[mapID]--
	if c.refs[mapID] <= 0 {
		delete(c.refs, mapID)
		delete(c.mapDict, mapID)
	}
}

// WorkerFor reports the worker index currently hosting mapID, if any,
// without affecting its ref count.
func (c *Coordinator) WorkerFor(mapID int32) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, ok := c.mapDict[mapID]
	return idx, ok
}

// RemoveWorker evicts a dead worker from the rendezvous node set;
// subsequent GetInit calls for any map_id it was hosting reassign to a
// live worker. Already-assigned map_ids hosted by other workers are
// unaffected (rendezvous hashing's minimal-disruption property).
func (c *Coordinator) RemoveWorker(idx int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hash.Remove(strconv.Itoa(idx))
	for mapID, hostedBy := range c.mapDict {
		if hostedBy == idx {
			delete(c.mapDict, mapID)
			delete(c.refs, mapID)
		}
	}
}
