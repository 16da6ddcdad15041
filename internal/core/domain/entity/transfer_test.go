package entity_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/KlistenesLima/krt-bank-sub001/internal/core/domain/entity"
)

func newTransfer(t *testing.T) *entity.Transfer {
	t.Helper()
	tr, err := entity.NewTransfer("acc-1", "acc-2", decimal.NewFromInt(100), "dest-key", "lunch", "idem-1")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	return tr
}

func TestNewTransfer_Success(t *testing.T) {
	tr := newTransfer(t)

	if tr.ID == "" {
		t.Fatal("expected non-empty ID")
	}
	if tr.Status != entity.StatusPendingAnalysis {
		t.Fatalf("expected status PENDING_ANALYSIS, got '%s'", tr.Status)
	}
	if tr.SourceDebited {
		t.Fatal("expected SourceDebited false on creation")
	}
	if tr.CreatedAt.IsZero() {
		t.Fatal("expected non-zero CreatedAt")
	}
	if tr.CompletedAt != nil {
		t.Fatal("expected nil CompletedAt")
	}
}

func TestNewTransfer_Validation(t *testing.T) {
	cases := []struct {
		name    string
		source  string
		dest    string
		amount  decimal.Decimal
		idemKey string
		want    error
	}{
		{"missing source", "", "acc-2", decimal.NewFromInt(100), "k", entity.ErrSourceAccountRequired},
		{"missing destination", "acc-1", "", decimal.NewFromInt(100), "k", entity.ErrDestinationAccountRequired},
		{"same account", "acc-1", "acc-1", decimal.NewFromInt(100), "k", entity.ErrSameAccount},
		{"zero amount", "acc-1", "acc-2", decimal.Zero, "k", entity.ErrAmountMustBePositive},
		{"negative amount", "acc-1", "acc-2", decimal.NewFromInt(-5), "k", entity.ErrAmountMustBePositive},
		{"missing idempotency key", "acc-1", "acc-2", decimal.NewFromInt(100), "", entity.ErrIdempotencyKeyRequired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := entity.NewTransfer(tc.source, tc.dest, tc.amount, "key", "", tc.idemKey)
			if err != tc.want {
				t.Fatalf("expected %v, got: %v", tc.want, err)
			}
		})
	}
}

func TestTransfer_HappyPathTransitions(t *testing.T) {
	tr := newTransfer(t)

	if err := tr.Approve(10, "no rules triggered"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := tr.StartSaga(); err != nil {
		t.Fatalf("start saga: %v", err)
	}
	if err := tr.MarkSourceDebited(); err != nil {
		t.Fatalf("mark source debited: %v", err)
	}
	if !tr.SourceDebited {
		t.Fatal("expected SourceDebited true after debit")
	}
	if err := tr.Complete(); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if tr.Status != entity.StatusCompleted {
		t.Fatalf("expected status COMPLETED, got '%s'", tr.Status)
	}
	if tr.CompletedAt == nil {
		t.Fatal("expected CompletedAt stamped on terminal status")
	}
	if !tr.IsTerminal() {
		t.Fatal("expected terminal transfer")
	}
}

func TestTransfer_CompensationKeepsSourceDebited(t *testing.T) {
	tr := newTransfer(t)
	_ = tr.Approve(0, "")
	_ = tr.StartSaga()
	_ = tr.MarkSourceDebited()

	if err := tr.MarkCompensated("credit declined; source account refunded"); err != nil {
		t.Fatalf("mark compensated: %v", err)
	}
	if !tr.SourceDebited {
		t.Fatal("SourceDebited must not revert on compensation")
	}
	if tr.Status != entity.StatusCompensated {
		t.Fatalf("expected status COMPENSATED, got '%s'", tr.Status)
	}
}

func TestTransfer_RejectFromAnalysis(t *testing.T) {
	tr := newTransfer(t)

	if err := tr.Reject(85, "high_value_critical(+50)"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if tr.FraudScore != 85 {
		t.Fatalf("expected score 85, got %d", tr.FraudScore)
	}
	if tr.CompletedAt == nil {
		t.Fatal("expected CompletedAt stamped on rejection")
	}
}

func TestTransfer_ReviewThenApprove(t *testing.T) {
	tr := newTransfer(t)

	if err := tr.HoldForReview(55, "high_value(+30); suspicious_hour(+20)"); err != nil {
		t.Fatalf("hold for review: %v", err)
	}
	if err := tr.Approve(55, "operator approved"); err != nil {
		t.Fatalf("approve from review: %v", err)
	}
	if tr.Status != entity.StatusApproved {
		t.Fatalf("expected status APPROVED, got '%s'", tr.Status)
	}
}

func TestTransfer_GuardViolations(t *testing.T) {
	cases := []struct {
		name string
		op   func(tr *entity.Transfer) error
	}{
		{"complete before debit", func(tr *entity.Transfer) error { return tr.Complete() }},
		{"start saga before approval", func(tr *entity.Transfer) error { return tr.StartSaga() }},
		{"debit before saga", func(tr *entity.Transfer) error { return tr.MarkSourceDebited() }},
		{"compensate before debit", func(tr *entity.Transfer) error { return tr.MarkCompensated("x") }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := newTransfer(t)
			err := tc.op(tr)

			var ist *entity.InvalidStateTransitionError
			if !errors.As(err, &ist) {
				t.Fatalf("expected InvalidStateTransitionError, got: %v", err)
			}
			if !strings.Contains(ist.Error(), string(entity.StatusPendingAnalysis)) {
				t.Fatalf("expected error to name the current status, got: %v", ist)
			}
			if tr.Status != entity.StatusPendingAnalysis {
				t.Fatalf("status must not change on guard violation, got '%s'", tr.Status)
			}
		})
	}
}

func TestTransfer_FailFromTerminalIsRejected(t *testing.T) {
	tr := newTransfer(t)
	_ = tr.Reject(90, "")

	var ist *entity.InvalidStateTransitionError
	if err := tr.Fail("late failure"); !errors.As(err, &ist) {
		t.Fatalf("expected InvalidStateTransitionError, got: %v", err)
	}
}
