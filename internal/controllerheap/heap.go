// Package controllerheap implements the min-heap of players in a map
// keyed by the number of monsters each currently controls (spec.md
// §4.2). The root is always the least-loaded player, used to pick who
// takes ownership of newly spawned monsters.
package controllerheap

// Node is a single heap entry. Index is the node's live position in the
// backing array, maintained on every swap so Remove/Inc are O(log n)
// without a linear search (spec.md §3 ControllerHeapNode invariant).
type Node struct {
	Index          int
	ControlleeCount int
	Player          any // opaque player identity; see worldmap.MapPlayer
}

// Heap is a binary min-heap ordered by ControlleeCount.
type Heap struct {
	nodes []*Node
}

// New creates an empty heap.
func New() *Heap { return &Heap{} }

// Len returns the number of players currently tracked.
func (h *Heap) Len() int { return len(h.nodes) }

// Push inserts a new node with the given initial count and player
// identity, returning the created Node so callers can later Remove or
// Inc it by reference.
func (h *Heap) Push(count int, player any) *Node {
	n := &Node{ControlleeCount: count, Player: player, Index: len(h.nodes)}
	h.nodes = append(h.nodes, n)
	h.siftUp(n.Index)
	return n
}

// Top returns the least-loaded player's node, or nil if the heap is
// empty.
func (h *Heap) Top() *Node {
	if len(h.nodes) == 0 {
		return nil
	}
	return h.nodes[0]
}

// Remove extracts an arbitrary node from the heap, re-establishing
// heap order by moving the last element into its place and sifting it
// in the appropriate direction.
func (h *Heap) Remove(n *Node) {
	last := len(h.nodes) - 1
	idx := n.Index
	if idx < 0 || idx > last || h.nodes[idx] != n {
		return
	}

	if idx != last {
		h.swap(idx, last)
	}
	h.nodes = h.nodes[:last]

	if idx < len(h.nodes) {
		h.siftDown(idx)
		h.siftUp(idx)
	}
}

// Inc adds delta to n's ControlleeCount and re-heapifies around it. Per
// spec.md §4.3.1, delta is applied to the current root after a spawn
// batch, then the root is sifted down since its count only increases.
func (h *Heap) Inc(n *Node, delta int) {
	n.ControlleeCount += delta
	if delta >= 0 {
		h.siftDown(n.Index)
	} else {
		h.siftUp(n.Index)
	}
}

func (h *Heap) less(i, j int) bool {
	return h.nodes[i].ControlleeCount < h.nodes[j].ControlleeCount
}

func (h *Heap) swap(i, j int) {
	h.nodes[i], h.nodes[j] = h.nodes[j], h.nodes[i]
	h.nodes[i].Index = i
	h.nodes[j].Index = j
}

func (h *Heap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			break
		}
		h.swap(i, parent)
		i = parent
	}
}

func (h *Heap) siftDown(i int) {
	n := len(h.nodes)
	for {
		left, right := 2*i+1, 2*i+2
		smallest := i
		if left < n && h.less(left, smallest) {
			smallest = left
		}
		if right < n && h.less(right, smallest) {
			smallest = right
		}
		if smallest == i {
			return
		}
		h.swap(i, smallest)
		i = smallest
	}
}

// Valid reports whether the heap-order property holds at every node;
// used by tests to assert spec.md §8 testable property 3.
func (h *Heap) Valid() bool {
	for i, n := range h.nodes {
		if n.Index != i {
			return false
		}
		left, right := 2*i+1, 2*i+2
		if left < len(h.nodes) && h.less(left, i) {
			return false
		}
		if right < len(h.nodes) && h.less(right, i) {
			return false
		}
	}
	return true
}
