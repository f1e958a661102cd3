// Package adapter defines the external event sink boundary (spec.md
// §4.8 "EventManager", expanded: global transport events are, in
// addition to their in-process map listener fan-out, optionally
// mirrored to an external system for ops dashboards/alerting).
//
// Adapters publish transition notifications to downstream systems. The
// event bus owns adapter lifecycle; callers provide configuration only.
package adapter

import (
	"context"
	"fmt"
	"time"
)

// TransitionEvent is the payload published on every EventManager
// SetProperty call a Sink is registered for.
type TransitionEvent struct {
	ContractVersion string `json:"contract_version"`
	Event           string `json:"event"` // boat, train, area_boss, ...
	PropertyIndex   int    `json:"property_index"`
	Value           int32  `json:"value"`
	Timestamp       string `json:"timestamp"` // ISO 8601
}

// Sink publishes transition events to a downstream system.
// Implementations must be safe for concurrent Publish calls, since the
// event bus's scheduler threads run independently per event.
type Sink interface {
	// Publish sends a transition event to the downstream system. Must
	// respect context cancellation and deadlines.
	Publish(ctx context.Context, event *TransitionEvent) error

	// Close releases adapter resources.
	Close() error
}

// RetryPolicy is the exponential backoff every Sink in this module
// publishes through (webhook's HTTP POST, redis's PUBLISH): every
// downstream call is just its own transport round trip wrapped in Do,
// so the retry/backoff semantics stay identical across backends
// without each package re-implementing the loop.
type RetryPolicy struct {
	// Retries is the number of retry attempts on failure; total
	// attempts made is 1+Retries.
	Retries int
}

// Do runs fn up to 1+p.Retries times, waiting an exponential backoff
// (500ms, 1s, 2s, ...) between attempts. nonRetriable, if non-nil, is
// consulted after each failed attempt; a true result stops retrying
// immediately (a webhook 4xx response, for example, will never succeed
// on replay). Respects ctx cancellation both between attempts and
// during the backoff wait.
func (p RetryPolicy) Do(ctx context.Context, nonRetriable func(error) bool, fn func(context.Context) error) error {
	attempts := 1 + p.Retries
	var lastErr error
	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("adapter: context canceled: %w", err)
		}

		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return fmt.Errorf("adapter: context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if nonRetriable != nil && nonRetriable(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("adapter: failed after %d attempts: %w", attempts, lastErr)
}
