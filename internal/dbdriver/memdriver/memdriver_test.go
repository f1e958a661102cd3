package memdriver

import (
	"context"
	"testing"

	"github.com/justapithecus/channeld/internal/dbdriver"
)

func TestLockRequestExecuteResultRoundTrip(t *testing.T) {
	d := New(map[dbdriver.Op]Handler{
		dbdriver.OpAllocateIDs: func(params any) (any, error) {
			return []int64{1, 2, 3}, nil
		},
	})

	ctx := context.Background()
	tok, err := d.Lock(ctx)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer d.Unlock(tok)

	req, err := d.Request(tok, dbdriver.OpAllocateIDs, nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	status, err := d.Execute(ctx, req)
	if err != nil || status != dbdriver.StatusOK {
		t.Fatalf("execute: status=%v err=%v", status, err)
	}
	val, err := d.Result(req)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	ids, ok := val.([]int64)
	if !ok || len(ids) != 3 {
		t.Fatalf("result = %#v", val)
	}
}

func TestRequestWithoutLockFails(t *testing.T) {
	d := New(nil)
	if _, err := d.Request(1, dbdriver.OpAllocateIDs, nil); err == nil {
		t.Fatal("expected error requesting without a held lock")
	}
}

func TestDoubleLockFails(t *testing.T) {
	d := New(nil)
	ctx := context.Background()
	tok, err := d.Lock(ctx)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if _, err := d.Lock(ctx); err == nil {
		t.Fatal("expected second lock to fail while first is held")
	}
	d.Unlock(tok)
	if _, err := d.Lock(ctx); err != nil {
		t.Fatalf("lock after unlock: %v", err)
	}
}
