package usecase

import (
	"context"
	"time"

	"github.com/KlistenesLima/krt-bank-sub001/internal/core/domain/ports"
	apperrors "github.com/KlistenesLima/krt-bank-sub001/internal/core/errors"
)

type GetTransferOutput struct {
	ID                   string     `json:"id"`
	SourceAccountID      string     `json:"source_account_id"`
	DestinationAccountID string     `json:"destination_account_id"`
	Amount               string     `json:"amount"`
	Status               string     `json:"status"`
	StatusReason         string     `json:"status_reason,omitempty"`
	FraudScore           int        `json:"fraud_score"`
	CreatedAt            time.Time  `json:"created_at"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
}

type GetTransferUseCase struct {
	repo ports.TransferRepository
}

func NewGetTransferUseCase(repo ports.TransferRepository) *GetTransferUseCase {
	return &GetTransferUseCase{repo: repo}
}

func (uc *GetTransferUseCase) Execute(ctx context.Context, id string) (*GetTransferOutput, error) {
	t, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Unexpected(apperrors.WithError(err))
	}
	if t == nil {
		return nil, apperrors.NotFound()
	}

	return &GetTransferOutput{
		ID:                   t.ID,
		SourceAccountID:      t.SourceAccountID,
		DestinationAccountID: t.DestinationAccountID,
		Amount:               t.Amount.String(),
		Status:               string(t.Status),
		StatusReason:         t.StatusReason,
		FraudScore:           t.FraudScore,
		CreatedAt:            t.CreatedAt,
		CompletedAt:          t.CompletedAt,
	}, nil
}
