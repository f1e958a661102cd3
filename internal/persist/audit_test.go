package persist

import (
	"context"
	"testing"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/channeld/internal/dbdriver/memdriver"
)

func newTestAuditSink(t *testing.T) *AuditSink {
	t.Helper()
	ds, err := lode.NewDataset(
		lode.DatasetID(auditDatasetID),
		lode.NewMemoryFactory(),
		lode.WithHiveLayout("server", "channel", "day"),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		t.Fatalf("open memory dataset: %v", err)
	}
	return NewAuditSink(ds, "test-server", "channel-1", nil)
}

func TestAuditSinkAppendDoesNotError(t *testing.T) {
	sink := newTestAuditSink(t)
	sink.Append(context.Background(), 42, 100000, "disconnect", 7)
}

func TestNilAuditSinkAppendIsNoOp(t *testing.T) {
	var sink *AuditSink
	sink.Append(context.Background(), 42, 100000, "disconnect", 7)
}

func TestFlushAppendsAuditRecordOnSuccess(t *testing.T) {
	driver := newTestDriver(t, nil, nil)
	sink := newTestAuditSink(t)
	f := New(driver, nil).WithAudit(sink)
	c := newCharacterWithZeroIDs()

	if _, err := f.Flush(context.Background(), c, "disconnect"); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func TestFlushSkipsAuditRecordOnFailure(t *testing.T) {
	driver := memdriver.New(nil)
	sink := newTestAuditSink(t)
	f := New(driver, nil).WithAudit(sink)
	c := newCharacterWithZeroIDs()

	if _, err := f.Flush(context.Background(), c, "disconnect"); err == nil {
		t.Fatal("expected error")
	}
}
