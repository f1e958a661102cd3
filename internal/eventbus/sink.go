package eventbus

import (
	"context"
	"time"

	"github.com/justapithecus/channeld/adapter"
	"github.com/justapithecus/channeld/log"
)

// SinkListener adapts an external adapter.Sink into a Listener, best-
// effort and non-blocking of the scheduler goroutine: Publish runs in
// its own goroutine per change so a slow or failing downstream sink
// never delays in-process map listener fan-out (spec.md §5 "readers
// ... hold no locks because they fire on the scheduler thread" — an
// external sink is a reader too, and must not become a scheduler
// dependency).
func SinkListener(ctx context.Context, sink adapter.Sink, logger *log.SugaredLogger) Listener {
	return func(change PropertyChange) {
		go func() {
			event := &adapter.TransitionEvent{
				ContractVersion: "1",
				Event:           change.Event,
				PropertyIndex:   change.Index,
				Value:           change.Value,
				Timestamp:       time.Now().UTC().Format(time.RFC3339Nano),
			}
			if err := sink.Publish(ctx, event); err != nil && logger != nil {
				logger.Warnf("eventbus: sink publish failed for event=%s index=%d: %v",
					change.Event, change.Index, err)
			}
		}()
	}
}
