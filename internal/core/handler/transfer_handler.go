package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	apperrors "github.com/KlistenesLima/krt-bank-sub001/internal/core/errors"
	"github.com/KlistenesLima/krt-bank-sub001/internal/core/usecase"
)

type TransferHandler struct {
	createUC *usecase.CreateTransferUseCase
	getUC    *usecase.GetTransferUseCase
	BaseHandler
}

type createTransferRequest struct {
	SourceAccountID      string          `json:"source_account_id"`
	DestinationAccountID string          `json:"destination_account_id"`
	Amount               decimal.Decimal `json:"amount"`
	Key                  string          `json:"key"`
	Description          string          `json:"description"`
	IdempotencyKey       string          `json:"idempotency_key"`
}

func NewTransferHandler(createUC *usecase.CreateTransferUseCase, getUC *usecase.GetTransferUseCase) *TransferHandler {
	return &TransferHandler{
		createUC: createUC,
		getUC:    getUC,
	}
}

func (h *TransferHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("POST /api/v1/transfers", MetricsMiddleware(http.HandlerFunc(h.handleCreate)))
	mux.Handle("GET /api/v1/transfers/{id}", MetricsMiddleware(http.HandlerFunc(h.handleGet)))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func (h *TransferHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondWithError(w, r, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	// The header form wins over the body field when both are present.
	if key := r.Header.Get("Idempotency-Key"); key != "" {
		req.IdempotencyKey = key
	}

	out, err := h.createUC.Execute(r.Context(), usecase.CreateTransferInput{
		SourceAccountID:      req.SourceAccountID,
		DestinationAccountID: req.DestinationAccountID,
		Amount:               req.Amount,
		Key:                  req.Key,
		Description:          req.Description,
		IdempotencyKey:       req.IdempotencyKey,
	})
	if err != nil {
		h.respondException(w, r, err)
		return
	}

	status := http.StatusCreated
	message := "transfer accepted"
	if out.Idempotent {
		status = http.StatusOK
		message = "transfer already exists"
	}

	h.RespondWithSuccess(w, status, message, map[string]any{
		"id":         out.ID,
		"status":     out.Status,
		"idempotent": out.Idempotent,
	})
}

func (h *TransferHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.RespondWithError(w, r, http.StatusBadRequest, "missing parameter", "transfer id is required")
		return
	}

	out, err := h.getUC.Execute(r.Context(), id)
	if err != nil {
		h.respondException(w, r, err)
		return
	}

	h.RespondWithSuccess(w, http.StatusOK, "transfer found", out)
}

func (h *TransferHandler) respondException(w http.ResponseWriter, r *http.Request, err error) {
	var exc *apperrors.Exception
	if errors.As(err, &exc) {
		h.RespondWithError(w, r, exc.Code, exc.Message, exc.Err)
		return
	}
	h.RespondWithError(w, r, http.StatusInternalServerError, "internal server error", err.Error())
}
