package events_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KlistenesLima/krt-bank-sub001/internal/core/events"
)

func TestDecode_AllKinds(t *testing.T) {
	occurred := time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		event events.Event
	}{
		{
			name: "transfer initiated",
			event: events.TransferInitiated{
				TransferID:           "transfer-1",
				SourceAccountID:      "acc-1",
				DestinationAccountID: "acc-2",
				Amount:               decimal.RequireFromString("150.75"),
				OccurredAt:           occurred,
			},
		},
		{
			name: "transfer completed",
			event: events.TransferCompleted{
				TransferID:           "transfer-1",
				SourceAccountID:      "acc-1",
				DestinationAccountID: "acc-2",
				Amount:               decimal.RequireFromString("150.75"),
				OccurredAt:           occurred,
			},
		},
		{
			name: "transfer failed",
			event: events.TransferFailed{
				TransferID:           "transfer-1",
				SourceAccountID:      "acc-1",
				DestinationAccountID: "acc-2",
				Amount:               decimal.RequireFromString("150.75"),
				Reason:               "debit declined: insufficient funds",
				OccurredAt:           occurred,
			},
		},
		{
			name: "fraud rejected",
			event: events.FraudRejected{
				TransferID:           "transfer-1",
				SourceAccountID:      "acc-1",
				DestinationAccountID: "acc-2",
				Amount:               decimal.RequireFromString("15000"),
				Score:                80,
				Details:              "self_transfer(+80): source equals destination",
				OccurredAt:           occurred,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := events.NewOutbox(tt.event, "transfer-1")
			require.NoError(t, err)
			assert.Equal(t, tt.event.Kind(), record.EventType)
			assert.Equal(t, "transfer-1", record.CorrelationID)

			decoded, err := events.Decode(record.EventType, []byte(record.Payload))
			require.NoError(t, err)
			assert.Equal(t, tt.event, decoded)
		})
	}
}

func TestDecode_UnknownKind(t *testing.T) {
	_, err := events.Decode("AccountOpened", []byte(`{}`))

	var unknown *events.UnknownKindError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "AccountOpened", unknown.Kind)
	assert.Contains(t, err.Error(), "unknown event kind")
}

func TestDecode_CorruptPayload(t *testing.T) {
	_, err := events.Decode(events.KindTransferCompleted, []byte(`{not json`))

	require.Error(t, err)
	var unknown *events.UnknownKindError
	assert.False(t, errors.As(err, &unknown), "corrupt payload is not an unknown kind")
}
