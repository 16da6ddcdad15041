package usecase

import (
	"log/slog"

	"github.com/KlistenesLima/krt-bank-sub001/internal/core/domain/ports"
)

type Factory struct {
	Create *CreateTransferUseCase
	Get    *GetTransferUseCase
}

func NewFactory(repo ports.TransferRepository, logger *slog.Logger) *Factory {
	return &Factory{
		Create: NewCreateTransferUseCase(repo, logger),
		Get:    NewGetTransferUseCase(repo),
	}
}
