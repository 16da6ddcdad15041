package ports

import (
	"context"
	"errors"
	"time"

	"github.com/KlistenesLima/krt-bank-sub001/internal/core/domain/entity"
)

// ErrStatusConflict is returned by conditional updates when the stored status
// no longer matches the expected precondition, meaning another worker already
// advanced the transfer.
var ErrStatusConflict = errors.New("transfer status does not match expected precondition")

type TransferRepository interface {
	// Create persists a new transfer. The unique index on idempotency_key is
	// the last line of defense against concurrent duplicate submissions.
	Create(ctx context.Context, t *entity.Transfer) error

	// FindByID returns (nil, nil) when no transfer exists.
	FindByID(ctx context.Context, id string) (*entity.Transfer, error)

	// FindByIdempotencyKey returns (nil, nil) when no transfer exists.
	FindByIdempotencyKey(ctx context.Context, key string) (*entity.Transfer, error)

	FindByStatus(ctx context.Context, status entity.TransferStatus, limit int) ([]*entity.Transfer, error)

	// FindRecentBySourceAccount returns the most recent transfers created by
	// the account at or after since, newest first. Slightly stale reads are
	// acceptable to callers.
	FindRecentBySourceAccount(ctx context.Context, accountID string, since time.Time, limit int) ([]*entity.Transfer, error)

	// ClaimForProcessing conditionally marks the transfer as claimed by this
	// worker ("update where status = expected"). It returns false when the
	// status moved on or another worker holds a live claim.
	ClaimForProcessing(ctx context.Context, id string, expected entity.TransferStatus) (bool, error)

	// Update persists the transfer only if its stored status still equals
	// expected, returning ErrStatusConflict otherwise.
	Update(ctx context.Context, t *entity.Transfer, expected entity.TransferStatus) error

	// UpdateWithOutbox performs Update and appends the outbox record in one
	// database transaction, so the event exists iff the mutation committed.
	UpdateWithOutbox(ctx context.Context, t *entity.Transfer, expected entity.TransferStatus, record *entity.Outbox) error
}
