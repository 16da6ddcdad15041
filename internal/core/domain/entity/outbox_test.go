package entity_test

import (
	"testing"

	"github.com/KlistenesLima/krt-bank-sub001/internal/core/domain/entity"
)

func TestNewOutbox_DefaultFields(t *testing.T) {
	record := entity.NewOutbox("TransferCompleted", `{"transferId":"t-1"}`, "t-1")

	if record.ID == "" {
		t.Fatal("expected non-empty ID")
	}
	if record.EventType != "TransferCompleted" {
		t.Fatalf("expected event type 'TransferCompleted', got '%s'", record.EventType)
	}
	if record.Payload != `{"transferId":"t-1"}` {
		t.Fatalf("unexpected payload: %s", record.Payload)
	}
	if record.CorrelationID != "t-1" {
		t.Fatalf("expected correlation id 't-1', got '%s'", record.CorrelationID)
	}
	if record.OccurredAt.IsZero() {
		t.Fatal("expected non-zero OccurredAt")
	}
	if record.ProcessedAt != nil {
		t.Fatal("expected nil ProcessedAt")
	}
	if record.RetryCount != 0 {
		t.Fatalf("expected retry count 0, got %d", record.RetryCount)
	}
	if record.Error != nil {
		t.Fatal("expected nil Error")
	}
}

func TestNewOutbox_UniqueIDs(t *testing.T) {
	r1 := entity.NewOutbox("TransferInitiated", "{}", "t-1")
	r2 := entity.NewOutbox("TransferInitiated", "{}", "t-1")

	if r1.ID == r2.ID {
		t.Fatal("expected unique IDs for each outbox record")
	}
}
