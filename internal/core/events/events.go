package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/KlistenesLima/krt-bank-sub001/internal/core/domain/entity"
)

const (
	KindTransferInitiated = "TransferInitiated"
	KindTransferCompleted = "TransferCompleted"
	KindTransferFailed    = "TransferFailed"
	KindFraudRejected     = "FraudRejected"
)

type Event interface {
	Kind() string
}

type TransferInitiated struct {
	TransferID           string          `json:"transferId"`
	SourceAccountID      string          `json:"sourceAccountId"`
	DestinationAccountID string          `json:"destinationAccountId"`
	Amount               decimal.Decimal `json:"amount"`
	OccurredAt           time.Time       `json:"occurredAt"`
}

func (TransferInitiated) Kind() string { return KindTransferInitiated }

type TransferCompleted struct {
	TransferID           string          `json:"transferId"`
	SourceAccountID      string          `json:"sourceAccountId"`
	DestinationAccountID string          `json:"destinationAccountId"`
	Amount               decimal.Decimal `json:"amount"`
	OccurredAt           time.Time       `json:"occurredAt"`
}

func (TransferCompleted) Kind() string { return KindTransferCompleted }

type TransferFailed struct {
	TransferID           string          `json:"transferId"`
	SourceAccountID      string          `json:"sourceAccountId"`
	DestinationAccountID string          `json:"destinationAccountId"`
	Amount               decimal.Decimal `json:"amount"`
	Reason               string          `json:"reason"`
	OccurredAt           time.Time       `json:"occurredAt"`
}

func (TransferFailed) Kind() string { return KindTransferFailed }

type FraudRejected struct {
	TransferID           string          `json:"transferId"`
	SourceAccountID      string          `json:"sourceAccountId"`
	DestinationAccountID string          `json:"destinationAccountId"`
	Amount               decimal.Decimal `json:"amount"`
	Score                int             `json:"score"`
	Details              string          `json:"details"`
	OccurredAt           time.Time       `json:"occurredAt"`
}

func (FraudRejected) Kind() string { return KindFraudRejected }

// NewOutbox serializes the event into an outbox record correlated to the
// transfer it belongs to.
func NewOutbox(e Event, correlationID string) (*entity.Outbox, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", e.Kind(), err)
	}
	return entity.NewOutbox(e.Kind(), string(payload), correlationID), nil
}
