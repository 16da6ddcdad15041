package usecase

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/KlistenesLima/krt-bank-sub001/internal/core/domain/entity"
	"github.com/KlistenesLima/krt-bank-sub001/internal/core/domain/ports"
	apperrors "github.com/KlistenesLima/krt-bank-sub001/internal/core/errors"
)

type (
	CreateTransferInput struct {
		SourceAccountID      string
		DestinationAccountID string
		Amount               decimal.Decimal
		Key                  string
		Description          string
		IdempotencyKey       string
	}

	CreateTransferOutput struct {
		ID         string
		Status     string
		Idempotent bool
	}

	CreateTransferUseCase struct {
		repo   ports.TransferRepository
		logger *slog.Logger
	}
)

func NewCreateTransferUseCase(repo ports.TransferRepository, logger *slog.Logger) *CreateTransferUseCase {
	return &CreateTransferUseCase{repo: repo, logger: logger}
}

// Execute registers a transfer in PENDING_ANALYSIS for the orchestrator to
// pick up. Submissions sharing an idempotency key resolve to the first
// persisted transfer; no ledger call ever happens at intake.
func (uc *CreateTransferUseCase) Execute(ctx context.Context, input CreateTransferInput) (*CreateTransferOutput, error) {
	if input.IdempotencyKey == "" {
		return nil, apperrors.BadRequest(apperrors.WithMessage(entity.ErrIdempotencyKeyRequired.Error()))
	}

	existing, err := uc.repo.FindByIdempotencyKey(ctx, input.IdempotencyKey)
	if err != nil {
		return nil, apperrors.Unexpected(apperrors.WithError(err))
	}
	if existing != nil {
		uc.logger.InfoContext(ctx, "idempotent transfer replay",
			slog.String("transfer_id", existing.ID),
			slog.String("idempotency_key", input.IdempotencyKey),
		)
		return &CreateTransferOutput{
			ID:         existing.ID,
			Status:     string(existing.Status),
			Idempotent: true,
		}, nil
	}

	t, err := entity.NewTransfer(
		input.SourceAccountID,
		input.DestinationAccountID,
		input.Amount,
		input.Key,
		input.Description,
		input.IdempotencyKey,
	)
	if err != nil {
		return nil, apperrors.BadRequest(apperrors.WithMessage(err.Error()))
	}

	if err := uc.repo.Create(ctx, t); err != nil {
		// Lost race on the idempotency key: the unique index rejected the
		// insert, so the winner's row is the canonical transfer.
		if dup, derr := uc.repo.FindByIdempotencyKey(ctx, input.IdempotencyKey); derr == nil && dup != nil {
			return &CreateTransferOutput{
				ID:         dup.ID,
				Status:     string(dup.Status),
				Idempotent: true,
			}, nil
		}
		return nil, apperrors.Unexpected(apperrors.WithError(err))
	}

	uc.logger.InfoContext(ctx, "transfer created",
		slog.String("transfer_id", t.ID),
		slog.String("source_account_id", t.SourceAccountID),
		slog.String("destination_account_id", t.DestinationAccountID),
		slog.String("amount", t.Amount.String()),
	)

	return &CreateTransferOutput{
		ID:     t.ID,
		Status: string(t.Status),
	}, nil
}
