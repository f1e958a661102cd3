// Package objtable implements the per-map object table (spec.md §4.1):
// an open-addressed, power-of-two hash table mapping OID -> Object, with
// a LIFO free-stack of recyclable 16-bit slots and load-factor driven
// grow/shrink.
//
// The probe hash is xxhash (a fast, non-cryptographic 64-bit hash) rather
// than the source's hand-rolled mixer — see DESIGN.md.
package objtable

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/justapithecus/channeld/internal/gametypes"
)

const (
	minCapacity = 16
)

type slotState int8

const (
	slotEmpty slotState = iota
	slotTombstone
	slotOccupied
)

type slot struct {
	state  slotState
	object gametypes.Object
}

// Table is a single map's ObjectTable. Not safe for concurrent use; every
// Table is owned by exactly one worldmap.Map running on one worker
// (spec.md §5 "every per-map mutation occurs in the thread owning that
// room").
type Table struct {
	slots []slot
	count int // occupied, excludes tombstones

	// freeStack holds low-16-bit slot values available for reuse,
	// LIFO (spec.md §4.1).
	freeStack []uint16
	// nextSlot is hatched out only once the free stack runs dry.
	nextSlot uint32
}

// New creates an empty Table.
func New() *Table {
	return &Table{
		slots: make([]slot, minCapacity),
	}
}

func hashOID(oid gametypes.OID) uint64 {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(oid))
	return xxhash.Sum64(b[:])
}

// Allocate reserves a new OID and returns a pointer to its (freshly
// zeroed, tag-less) Object slot. The pointer is stable only until the
// next Allocate/Free call (spec.md §4.1).
//
// Returns ok=false when the 16-bit OID space is exhausted (65535 live
// slots), per the boundary behavior in spec.md §8.
func (t *Table) Allocate() (oid gametypes.OID, obj *gametypes.Object, ok bool) {
	var slotIdx uint16
	if n := len(t.freeStack); n > 0 {
		slotIdx = t.freeStack[n-1]
		t.freeStack = t.freeStack[:n-1]
	} else {
		if t.nextSlot >= 65535 {
			return 0, nil, false
		}
		slotIdx = uint16(t.nextSlot)
		t.nextSlot++
	}

	oid = gametypes.MakeOID(slotIdx)

	if t.count >= len(t.slots) {
		t.resize(len(t.slots) * 2)
	}

	idx := t.probe(oid)
	t.slots[idx] = slot{state: slotOccupied, object: gametypes.Object{OID: oid, Tag: gametypes.TagNone}}
	t.count++

	return oid, &t.slots[idx].object, true
}

// Get looks up the slot holding oid, stopping at the first Empty slot
// and skipping Tombstones (spec.md §4.1).
func (t *Table) Get(oid gametypes.OID) (*gametypes.Object, bool) {
	idx, found := t.find(oid)
	if !found {
		return nil, false
	}
	return &t.slots[idx].object, true
}

// Free marks oid's slot Deleted, returns its 16-bit slot to the
// free-stack, and shrinks the table if the load factor has dropped below
// a quarter of capacity (spec.md §4.1).
func (t *Table) Free(oid gametypes.OID) {
	idx, found := t.find(oid)
	if !found {
		return
	}
	t.slots[idx] = slot{state: slotTombstone}
	t.count--
	t.freeStack = append(t.freeStack, oid.Slot())

	if len(t.slots) > minCapacity && t.count*4 < len(t.slots) {
		t.resize(len(t.slots) / 2)
	}
}

// Len returns the number of live (non-tombstone, non-empty) objects.
func (t *Table) Len() int { return t.count }

// find returns the slot index holding oid, walking through tombstones
// and stopping at the first Empty slot.
func (t *Table) find(oid gametypes.OID) (int, bool) {
	mask := uint64(len(t.slots) - 1)
	idx := hashOID(oid) & mask
	for i := uint64(0); i < uint64(len(t.slots)); i++ {
		s := &t.slots[idx]
		switch s.state {
		case slotEmpty:
			return 0, false
		case slotOccupied:
			if s.object.OID == oid {
				return int(idx), true
			}
		}
		idx = (idx + 1) & mask
	}
	return 0, false
}

// probe finds the slot to place oid into: the first Empty or Tombstone
// slot on its probe sequence. Caller guarantees oid is not already
// present.
func (t *Table) probe(oid gametypes.OID) int {
	mask := uint64(len(t.slots) - 1)
	idx := hashOID(oid) & mask
	for {
		if t.slots[idx].state != slotOccupied {
			return int(idx)
		}
		idx = (idx + 1) & mask
	}
}

// resize rehashes every occupied slot into a table of the given
// capacity (always a power of two, floored at minCapacity).
func (t *Table) resize(newCap int) {
	if newCap < minCapacity {
		newCap = minCapacity
	}
	old := t.slots
	t.slots = make([]slot, newCap)
	for _, s := range old {
		if s.state != slotOccupied {
			continue
		}
		idx := t.probe(s.object.OID)
		t.slots[idx] = s
	}
}
