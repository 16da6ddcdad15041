package ports

import (
	"context"

	"github.com/KlistenesLima/krt-bank-sub001/internal/core/domain/entity"
)

type OutboxRepository interface {
	// FetchUnprocessed returns records with ProcessedAt unset and RetryCount
	// below the configured maximum, ordered by OccurredAt ascending.
	FetchUnprocessed(ctx context.Context, limit int) ([]*entity.Outbox, error)

	// MarkProcessed stamps ProcessedAt. It is a no-op when the record was
	// already processed, so a crash between publish and mark can only cause
	// a duplicate publish, never a double stamp.
	MarkProcessed(ctx context.Context, id string) error

	// MarkFailed increments RetryCount and stores the publish error.
	MarkFailed(ctx context.Context, id string, reason string) error
}
