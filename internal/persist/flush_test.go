package persist

import (
	"context"
	"testing"

	"github.com/justapithecus/channeld/internal/dbdriver"
	"github.com/justapithecus/channeld/internal/dbdriver/memdriver"
	"github.com/justapithecus/channeld/internal/gametypes"
)

func newCharacterWithZeroIDs() *gametypes.Character {
	c := gametypes.NewCharacter(1, 10, "hero")
	c.Equipped[1] = &gametypes.Equipment{ItemID: 1302000}
	c.Inventories[1] = []gametypes.InventorySlot{
		{Slot: 0, IsEquip: true, Equip: gametypes.Equipment{ItemID: 1302001}},
	}
	c.Inventories[2] = []gametypes.InventorySlot{
		{Slot: 0, Item: gametypes.InventoryItem{ItemID: 2000000, Quantity: 5}},
	}
	c.Storage = []gametypes.InventorySlot{
		{Slot: 0, Item: gametypes.InventoryItem{ItemID: 2000001, Quantity: 1}},
	}
	return c
}

func newTestDriver(t *testing.T, allocErr, updateErr error) *memdriver.Driver {
	t.Helper()
	return memdriver.New(map[dbdriver.Op]memdriver.Handler{
		dbdriver.OpAllocateIDs: func(params any) (any, error) {
			if allocErr != nil {
				return nil, allocErr
			}
			p := params.(dbdriver.AllocateIDsParams)
			ids := make([]int64, p.Count)
			for i := range ids {
				ids[i] = int64(100 + i)
			}
			return ids, nil
		},
		dbdriver.OpUpdateCharacter: func(params any) (any, error) {
			if updateErr != nil {
				return nil, updateErr
			}
			if _, ok := params.(dbdriver.UpdateCharacterParams); !ok {
				t.Fatalf("update_character: unexpected params %#v", params)
			}
			return nil, nil
		},
	})
}

func TestFlushAllocatesIDsForEveryZeroIDRowAndPatchesThemBack(t *testing.T) {
	driver := newTestDriver(t, nil, nil)
	f := New(driver, nil)
	c := newCharacterWithZeroIDs()

	stats, err := f.Flush(context.Background(), c, "disconnect")
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if stats.Succeeded != 1 || stats.Failed != 0 {
		t.Fatalf("stats = %+v", stats)
	}

	if c.Equipped[1].ID == 0 {
		t.Error("equipped slot still has id 0")
	}
	if c.Inventories[1][0].ID == 0 {
		t.Error("equip-inventory slot still has id 0")
	}
	if c.Inventories[2][0].ID == 0 {
		t.Error("use-inventory slot still has id 0")
	}
	if c.Storage[0].ID == 0 {
		t.Error("storage slot still has id 0")
	}
}

func TestFlushSkipsAllocateIDsWhenNothingIsZeroID(t *testing.T) {
	allocCalled := false
	driver := memdriver.New(map[dbdriver.Op]memdriver.Handler{
		dbdriver.OpAllocateIDs: func(params any) (any, error) {
			allocCalled = true
			return []int64{}, nil
		},
		dbdriver.OpUpdateCharacter: func(params any) (any, error) { return nil, nil },
	})
	f := New(driver, nil)
	c := gametypes.NewCharacter(1, 10, "hero")

	if _, err := f.Flush(context.Background(), c, "periodic"); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if allocCalled {
		t.Error("allocate_ids should not be requested when no row needs an id")
	}
}

func TestFlushReportsAllocateIDsFailureWithoutRunningUpdateCharacter(t *testing.T) {
	updateCalled := false
	driver := memdriver.New(map[dbdriver.Op]memdriver.Handler{
		dbdriver.OpAllocateIDs: func(params any) (any, error) {
			return nil, errBoom
		},
		dbdriver.OpUpdateCharacter: func(params any) (any, error) {
			updateCalled = true
			return nil, nil
		},
	})
	f := New(driver, nil)
	c := newCharacterWithZeroIDs()

	stats, err := f.Flush(context.Background(), c, "disconnect")
	if err == nil {
		t.Fatal("expected error")
	}
	if stats.Failed != 1 || stats.FailuresByReason["allocate_ids"] != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if updateCalled {
		t.Error("update_character must not run after allocate_ids fails")
	}
}

func TestFlushReportsUpdateCharacterFailure(t *testing.T) {
	driver := newTestDriver(t, nil, errBoom)
	f := New(driver, nil)
	c := newCharacterWithZeroIDs()

	stats, err := f.Flush(context.Background(), c, "disconnect")
	if err == nil {
		t.Fatal("expected error")
	}
	if stats.Failed != 1 || stats.FailuresByReason["update_character"] != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestFlushUnlocksOnAllocateIDsFailure(t *testing.T) {
	driver := memdriver.New(map[dbdriver.Op]memdriver.Handler{
		dbdriver.OpAllocateIDs: func(params any) (any, error) { return nil, errBoom },
	})
	f := New(driver, nil)
	c := newCharacterWithZeroIDs()

	if _, err := f.Flush(context.Background(), c, "disconnect"); err == nil {
		t.Fatal("expected error")
	}
	// Locking the same driver again succeeds only if the failed flush
	// released its lock.
	tok, err := driver.Lock(context.Background())
	if err != nil {
		t.Fatalf("lock after failed flush: %v", err)
	}
	driver.Unlock(tok)
}

var errBoom = errTest("boom")

type errTest string

func (e errTest) Error() string { return string(e) }
