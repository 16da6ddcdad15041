package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransferStatus string

const (
	StatusPendingAnalysis TransferStatus = "PENDING_ANALYSIS"
	StatusApproved        TransferStatus = "APPROVED"
	StatusUnderReview     TransferStatus = "UNDER_REVIEW"
	StatusRejected        TransferStatus = "REJECTED"
	StatusPending         TransferStatus = "PENDING"
	StatusSourceDebited   TransferStatus = "SOURCE_DEBITED"
	StatusCompleted       TransferStatus = "COMPLETED"
	StatusCompensated     TransferStatus = "COMPENSATED"
	StatusFailed          TransferStatus = "FAILED"
)

// CompensationFailedMarker prefixes the failure reason of transfers whose
// compensating credit also failed. These rows need manual reconciliation
// and are never retried automatically.
const CompensationFailedMarker = "COMPENSATION_FAILED"

var (
	ErrSourceAccountRequired      = errors.New("source_account_id is required")
	ErrDestinationAccountRequired = errors.New("destination_account_id is required")
	ErrSameAccount                = errors.New("source and destination account cannot be the same")
	ErrAmountMustBePositive       = errors.New("amount must be greater than zero")
	ErrIdempotencyKeyRequired     = errors.New("idempotency_key is required")
)

type InvalidStateTransitionError struct {
	Op   string
	From TransferStatus
	To   TransferStatus
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition %s: %s -> %s", e.Op, e.From, e.To)
}

type Transfer struct {
	ID                   string
	SourceAccountID      string
	DestinationAccountID string
	Amount               decimal.Decimal
	Key                  string
	Description          string
	IdempotencyKey       string
	Status               TransferStatus
	FraudScore           int
	FraudDetails         string
	StatusReason         string
	SourceDebited        bool
	CreatedAt            time.Time
	CompletedAt          *time.Time
}

func NewTransfer(sourceAccountID, destinationAccountID string, amount decimal.Decimal, key, description, idempotencyKey string) (*Transfer, error) {
	if sourceAccountID == "" {
		return nil, ErrSourceAccountRequired
	}
	if destinationAccountID == "" {
		return nil, ErrDestinationAccountRequired
	}
	if sourceAccountID == destinationAccountID {
		return nil, ErrSameAccount
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrAmountMustBePositive
	}
	if idempotencyKey == "" {
		return nil, ErrIdempotencyKeyRequired
	}

	return &Transfer{
		ID:                   uuid.NewString(),
		SourceAccountID:      sourceAccountID,
		DestinationAccountID: destinationAccountID,
		Amount:               amount,
		Key:                  key,
		Description:          description,
		IdempotencyKey:       idempotencyKey,
		Status:               StatusPendingAnalysis,
		StatusReason:         "awaiting fraud analysis",
		CreatedAt:            time.Now().UTC(),
	}, nil
}

// Approve moves the transfer out of analysis. UnderReview is also a valid
// origin: a manual operator decision resumes the flow through the same guard.
func (t *Transfer) Approve(score int, details string) error {
	if err := t.guard("approve", StatusApproved, StatusPendingAnalysis, StatusUnderReview); err != nil {
		return err
	}
	t.Status = StatusApproved
	t.FraudScore = score
	t.FraudDetails = details
	t.StatusReason = fmt.Sprintf("approved by fraud analysis with score %d", score)
	return nil
}

func (t *Transfer) HoldForReview(score int, details string) error {
	if err := t.guard("hold_for_review", StatusUnderReview, StatusPendingAnalysis); err != nil {
		return err
	}
	t.Status = StatusUnderReview
	t.FraudScore = score
	t.FraudDetails = details
	t.StatusReason = fmt.Sprintf("held for manual review with score %d", score)
	return nil
}

func (t *Transfer) Reject(score int, details string) error {
	if err := t.guard("reject", StatusRejected, StatusPendingAnalysis, StatusUnderReview); err != nil {
		return err
	}
	t.Status = StatusRejected
	t.FraudScore = score
	t.FraudDetails = details
	t.StatusReason = fmt.Sprintf("rejected by fraud analysis with score %d", score)
	t.stampCompleted()
	return nil
}

func (t *Transfer) StartSaga() error {
	if err := t.guard("start_saga", StatusPending, StatusApproved); err != nil {
		return err
	}
	t.Status = StatusPending
	t.StatusReason = "transfer saga started"
	return nil
}

// MarkSourceDebited records a successful debit call. SourceDebited never
// reverts to false afterwards; compensation is tracked by status only.
func (t *Transfer) MarkSourceDebited() error {
	if err := t.guard("mark_source_debited", StatusSourceDebited, StatusPending); err != nil {
		return err
	}
	t.Status = StatusSourceDebited
	t.SourceDebited = true
	t.StatusReason = "source account debited"
	return nil
}

func (t *Transfer) Complete() error {
	if err := t.guard("complete", StatusCompleted, StatusSourceDebited); err != nil {
		return err
	}
	t.Status = StatusCompleted
	t.StatusReason = "destination account credited"
	t.stampCompleted()
	return nil
}

func (t *Transfer) MarkCompensated(reason string) error {
	if err := t.guard("mark_compensated", StatusCompensated, StatusSourceDebited); err != nil {
		return err
	}
	t.Status = StatusCompensated
	t.StatusReason = reason
	t.stampCompleted()
	return nil
}

func (t *Transfer) Fail(reason string) error {
	if err := t.guard("fail", StatusFailed, StatusPendingAnalysis, StatusPending, StatusSourceDebited); err != nil {
		return err
	}
	t.Status = StatusFailed
	t.StatusReason = reason
	t.stampCompleted()
	return nil
}

func (t *Transfer) IsTerminal() bool {
	switch t.Status {
	case StatusCompleted, StatusCompensated, StatusFailed, StatusRejected:
		return true
	}
	return false
}

func (t *Transfer) guard(op string, to TransferStatus, from ...TransferStatus) error {
	for _, s := range from {
		if t.Status == s {
			return nil
		}
	}
	return &InvalidStateTransitionError{Op: op, From: t.Status, To: to}
}

func (t *Transfer) stampCompleted() {
	now := time.Now().UTC()
	t.CompletedAt = &now
}
