package entity

import (
	"time"

	"github.com/google/uuid"
)

// Outbox is the durable event record appended in the same database
// transaction as the aggregate mutation it describes. ProcessedAt is set at
// most once, by the outbox processor, after a confirmed publish. Records that
// exhaust their retries are left in place with Error populated.
type Outbox struct {
	ID            string
	EventType     string
	Payload       string
	OccurredAt    time.Time
	ProcessedAt   *time.Time
	Error         *string
	RetryCount    int
	CorrelationID string
	CausationID   string
}

func NewOutbox(eventType, payload, correlationID string) *Outbox {
	return &Outbox{
		ID:            uuid.NewString(),
		EventType:     eventType,
		Payload:       payload,
		OccurredAt:    time.Now().UTC(),
		CorrelationID: correlationID,
	}
}
