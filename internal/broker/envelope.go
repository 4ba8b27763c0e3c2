package broker

import (
	"encoding/json"
	"fmt"
	"time"

	"retail-order-service/internal/models"

	"github.com/google/uuid"
)

// NewEnvelope wraps a payload with a fresh event id, the given type, key and
// ledger-issued version. Construction is pure: nothing is sent here, and the
// envelope never changes afterwards.
func NewEnvelope(eventType, aggregateKey string, version int64, payload interface{}) (*models.Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope payload: %w", err)
	}

	return &models.Envelope{
		EventID:      uuid.New().String(),
		EventType:    eventType,
		AggregateKey: aggregateKey,
		Version:      version,
		Timestamp:    time.Now().UTC(),
		Payload:      raw,
	}, nil
}

// DecodeEnvelope parses an envelope off the wire
func DecodeEnvelope(raw []byte) (*models.Envelope, error) {
	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	return &env, nil
}
