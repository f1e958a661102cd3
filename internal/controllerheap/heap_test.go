package controllerheap

import (
	"math/rand"
	"testing"
)

func TestTopIsMinimum(t *testing.T) {
	h := New()
	counts := []int{5, 1, 9, 3, 7, 0, 2}
	for _, c := range counts {
		h.Push(c, nil)
	}
	if top := h.Top(); top.ControlleeCount != 0 {
		t.Fatalf("top = %d, want 0", top.ControlleeCount)
	}
	if !h.Valid() {
		t.Fatal("heap invariant violated after pushes")
	}
}

func TestIncAndSiftPreservesInvariant(t *testing.T) {
	h := New()
	nodes := make([]*Node, 0, 10)
	for i := 0; i < 10; i++ {
		nodes = append(nodes, h.Push(i, i))
	}
	if !h.Valid() {
		t.Fatal("invariant violated after push")
	}

	h.Inc(nodes[0], 100)
	if !h.Valid() {
		t.Fatal("invariant violated after inc up")
	}

	root := h.Top()
	h.Inc(root, -1000)
	if !h.Valid() {
		t.Fatal("invariant violated after inc down")
	}
	if h.Top() != root {
		t.Fatal("expected same node still at top after large negative delta")
	}
}

func TestRemoveArbitraryNode(t *testing.T) {
	h := New()
	nodes := make([]*Node, 0, 20)
	for i := 0; i < 20; i++ {
		nodes = append(nodes, h.Push(rand.Intn(50), i))
	}

	h.Remove(nodes[7])
	if h.Len() != 19 {
		t.Fatalf("len = %d, want 19", h.Len())
	}
	if !h.Valid() {
		t.Fatal("invariant violated after remove")
	}

	for h.Len() > 0 {
		top := h.Top()
		h.Remove(top)
		if !h.Valid() {
			t.Fatal("invariant violated mid-drain")
		}
	}
}
