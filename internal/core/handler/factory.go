package handler

import "github.com/KlistenesLima/krt-bank-sub001/internal/core/usecase"

func NewHandlerFactory(f *usecase.Factory) *TransferHandler {
	return NewTransferHandler(f.Create, f.Get)
}
