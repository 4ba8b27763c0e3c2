package broker

import (
	"context"
	"fmt"
	"log"
)

// VersionLedger issues strictly increasing versions per aggregate key
type VersionLedger interface {
	NextVersion(ctx context.Context, aggregateKey string) (int64, error)
}

// EventSender sends a serialized event to a topic keyed by aggregate key
type EventSender interface {
	Publish(ctx context.Context, topic, key string, event interface{}) error
}

// EventPublisher emits versioned, enveloped domain events. A version is
// reserved from the ledger strictly before the send; if the reservation
// fails no envelope is emitted. Ledger write and broker send are not atomic
// with each other, so a send failure after reservation leaves a gap in the
// published version sequence, which consumers tolerate (they only require
// "newer than cached").
type EventPublisher struct {
	sender EventSender
	ledger VersionLedger
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(sender EventSender, ledger VersionLedger) *EventPublisher {
	return &EventPublisher{sender: sender, ledger: ledger}
}

// Publish reserves the next version for the aggregate, wraps the payload and
// sends it. There is no internal retry; the caller decides whether a publish
// failure fails the surrounding write or is logged and dropped.
func (ep *EventPublisher) Publish(ctx context.Context, topic, eventType, aggregateKey string, payload interface{}) error {
	version, err := ep.ledger.NextVersion(ctx, aggregateKey)
	if err != nil {
		return fmt.Errorf("version reservation failed for %s: %w", aggregateKey, err)
	}

	env, err := NewEnvelope(eventType, aggregateKey, version, payload)
	if err != nil {
		return err
	}

	if err := ep.sender.Publish(ctx, topic, aggregateKey, env); err != nil {
		return fmt.Errorf("publish failed for %s v%d: %w", aggregateKey, version, err)
	}

	log.Printf("Published %s: key=%s, version=%d", eventType, aggregateKey, version)
	return nil
}
