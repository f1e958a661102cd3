package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/channeld/log"
)

// auditDatasetID names the Lode dataset every channel's flush trail is
// appended to, regardless of which worker or character wrote the record
// (SPEC_FULL.md §4.14).
const auditDatasetID = "character_flush_audit"

// AuditRecord is one append-only entry in the CharacterFlush cold-storage
// trail: character id, map id at flush time, the trigger that caused the
// flush, an item-count snapshot, and when it happened (SPEC_FULL.md §4.14
// "character id, map id at flush time, item count deltas, timestamp").
type AuditRecord struct {
	// RecordID uniquely identifies this append, so a retried write after
	// a partial failure can be deduplicated downstream rather than
	// double-counted in cold storage.
	RecordID    string `json:"record_id"`
	Server      string `json:"server"`
	Channel     string `json:"channel"`
	Day         string `json:"day"`
	CharacterID int64  `json:"character_id"`
	MapID       int32  `json:"map_id"`
	Trigger     string `json:"trigger"`
	ItemCount   int    `json:"item_count"`
	FlushedAtNS int64  `json:"flushed_at_ns"`
}

// AuditSink appends AuditRecords to a Hive-partitioned (server/channel/day)
// append-only dataset via the lode storage client (SPEC_FULL.md §4.14),
// grounded on the teacher's own `lode.LodeClient` (dataset-over-StoreFactory
// with a Hive layout and a JSONL codec). A nil *AuditSink is valid and
// every Append on it is a no-op, so Flusher can carry one unconditionally.
type AuditSink struct {
	dataset lode.Dataset
	server  string
	channel string
	logger  *log.Logger
}

// NewAuditSink wraps an already-opened lode.Dataset. server/channel tag
// every record written through this sink.
func NewAuditSink(dataset lode.Dataset, server, channel string, logger *log.Logger) *AuditSink {
	return &AuditSink{dataset: dataset, server: server, channel: channel, logger: logger}
}

// NewFilesystemAuditSink opens a Hive-partitioned (server/channel/day)
// lode dataset rooted at dir, the default local backend for the
// CharacterFlush audit trail (SPEC_FULL.md §4.14 "backed by the local
// filesystem by default").
func NewFilesystemAuditSink(dir, server, channel string, logger *log.Logger) (*AuditSink, error) {
	ds, err := lode.NewDataset(
		lode.DatasetID(auditDatasetID),
		lode.NewFSFactory(dir),
		lode.WithHiveLayout("server", "channel", "day"),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, fmt.Errorf("persist: audit: open filesystem dataset: %w", err)
	}
	return NewAuditSink(ds, server, channel, logger), nil
}

// Append writes one audit record for a completed flush. Failures are
// logged and swallowed: flush correctness never depends on the audit
// trail succeeding (SPEC_FULL.md §4.14 "a failed audit write is logged
// and does not fail the flush").
func (a *AuditSink) Append(ctx context.Context, characterID int64, mapID int32, trigger string, itemCount int) {
	if a == nil || a.dataset == nil {
		return
	}
	now := time.Now().UTC()
	record := AuditRecord{
		RecordID:    uuid.New().String(),
		Server:      a.server,
		Channel:     a.channel,
		Day:         now.Format("2006-01-02"),
		CharacterID: characterID,
		MapID:       mapID,
		Trigger:     trigger,
		ItemCount:   itemCount,
		FlushedAtNS: now.UnixNano(),
	}
	if _, err := a.dataset.Write(ctx, []any{record}, lode.Metadata{}); err != nil {
		a.logError(err, characterID)
	}
}

func (a *AuditSink) logError(err error, characterID int64) {
	if a.logger == nil {
		return
	}
	a.logger.Error("character flush audit: write failed", map[string]any{
		"character_id": characterID,
		"error":        err.Error(),
	})
}
