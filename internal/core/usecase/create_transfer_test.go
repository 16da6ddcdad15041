package usecase_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/KlistenesLima/krt-bank-sub001/internal/core/domain/entity"
	apperrors "github.com/KlistenesLima/krt-bank-sub001/internal/core/errors"
	"github.com/KlistenesLima/krt-bank-sub001/internal/core/usecase"
)

type mockTransferRepository struct {
	createFn               func(ctx context.Context, t *entity.Transfer) error
	findByIDFn             func(ctx context.Context, id string) (*entity.Transfer, error)
	findByIdempotencyKeyFn func(ctx context.Context, key string) (*entity.Transfer, error)
}

func (m *mockTransferRepository) Create(ctx context.Context, t *entity.Transfer) error {
	if m.createFn != nil {
		return m.createFn(ctx, t)
	}
	return nil
}

func (m *mockTransferRepository) FindByID(ctx context.Context, id string) (*entity.Transfer, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockTransferRepository) FindByIdempotencyKey(ctx context.Context, key string) (*entity.Transfer, error) {
	if m.findByIdempotencyKeyFn != nil {
		return m.findByIdempotencyKeyFn(ctx, key)
	}
	return nil, nil
}

func (m *mockTransferRepository) FindByStatus(ctx context.Context, status entity.TransferStatus, limit int) ([]*entity.Transfer, error) {
	return nil, nil
}

func (m *mockTransferRepository) FindRecentBySourceAccount(ctx context.Context, accountID string, since time.Time, limit int) ([]*entity.Transfer, error) {
	return nil, nil
}

func (m *mockTransferRepository) ClaimForProcessing(ctx context.Context, id string, expected entity.TransferStatus) (bool, error) {
	return false, nil
}

func (m *mockTransferRepository) Update(ctx context.Context, t *entity.Transfer, expected entity.TransferStatus) error {
	return nil
}

func (m *mockTransferRepository) UpdateWithOutbox(ctx context.Context, t *entity.Transfer, expected entity.TransferStatus, record *entity.Outbox) error {
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validInput() usecase.CreateTransferInput {
	return usecase.CreateTransferInput{
		SourceAccountID:      "acc-1",
		DestinationAccountID: "acc-2",
		Amount:               decimal.NewFromInt(100),
		Key:                  "dest@pix.key",
		Description:          "payment",
		IdempotencyKey:       "idem-1",
	}
}

func assertException(t *testing.T, err error, expectedCode int) *apperrors.Exception {
	t.Helper()
	var exc *apperrors.Exception
	if !errors.As(err, &exc) {
		t.Fatalf("expected *apperrors.Exception, got: %T — %v", err, err)
	}
	if exc.Code != expectedCode {
		t.Fatalf("expected code %d, got %d", expectedCode, exc.Code)
	}
	return exc
}

func TestCreateTransferUseCase_Success(t *testing.T) {
	repo := &mockTransferRepository{}
	uc := usecase.NewCreateTransferUseCase(repo, testLogger())

	out, err := uc.Execute(context.Background(), validInput())

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if out.ID == "" {
		t.Fatal("expected non-empty transfer ID")
	}
	if out.Status != string(entity.StatusPendingAnalysis) {
		t.Fatalf("expected status PENDING_ANALYSIS, got %s", out.Status)
	}
	if out.Idempotent {
		t.Fatal("expected a fresh transfer, not an idempotent replay")
	}
}

func TestCreateTransferUseCase_IdempotentReplay(t *testing.T) {
	existing := &entity.Transfer{ID: "transfer-1", Status: entity.StatusCompleted}

	created := false
	repo := &mockTransferRepository{
		findByIdempotencyKeyFn: func(ctx context.Context, key string) (*entity.Transfer, error) {
			return existing, nil
		},
		createFn: func(ctx context.Context, tr *entity.Transfer) error {
			created = true
			return nil
		},
	}
	uc := usecase.NewCreateTransferUseCase(repo, testLogger())

	out, err := uc.Execute(context.Background(), validInput())

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !out.Idempotent {
		t.Fatal("expected idempotent replay")
	}
	if out.ID != "transfer-1" {
		t.Fatalf("expected existing transfer id, got %s", out.ID)
	}
	if out.Status != string(entity.StatusCompleted) {
		t.Fatalf("expected existing transfer status, got %s", out.Status)
	}
	if created {
		t.Fatal("replay must not create a second transfer")
	}
}

func TestCreateTransferUseCase_LostInsertRaceResolvesToWinner(t *testing.T) {
	winner := &entity.Transfer{ID: "winner", Status: entity.StatusPendingAnalysis}

	lookups := 0
	repo := &mockTransferRepository{
		findByIdempotencyKeyFn: func(ctx context.Context, key string) (*entity.Transfer, error) {
			lookups++
			if lookups == 1 {
				// Not visible yet when the request raced in.
				return nil, nil
			}
			return winner, nil
		},
		createFn: func(ctx context.Context, tr *entity.Transfer) error {
			return errors.New(`pq: duplicate key value violates unique constraint "ux_transfers_idempotency_key"`)
		},
	}
	uc := usecase.NewCreateTransferUseCase(repo, testLogger())

	out, err := uc.Execute(context.Background(), validInput())

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if out.ID != "winner" || !out.Idempotent {
		t.Fatalf("expected the winning transfer back, got %+v", out)
	}
}

func TestCreateTransferUseCase_ValidationErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(in *usecase.CreateTransferInput)
		want   error
	}{
		{"same account", func(in *usecase.CreateTransferInput) { in.DestinationAccountID = in.SourceAccountID }, entity.ErrSameAccount},
		{"zero amount", func(in *usecase.CreateTransferInput) { in.Amount = decimal.Zero }, entity.ErrAmountMustBePositive},
		{"negative amount", func(in *usecase.CreateTransferInput) { in.Amount = decimal.NewFromInt(-10) }, entity.ErrAmountMustBePositive},
		{"missing source", func(in *usecase.CreateTransferInput) { in.SourceAccountID = "" }, entity.ErrSourceAccountRequired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			created := false
			repo := &mockTransferRepository{
				createFn: func(ctx context.Context, tr *entity.Transfer) error {
					created = true
					return nil
				},
			}
			uc := usecase.NewCreateTransferUseCase(repo, testLogger())

			in := validInput()
			tc.mutate(&in)

			_, err := uc.Execute(context.Background(), in)

			exc := assertException(t, err, http.StatusBadRequest)
			if exc.Message != tc.want.Error() {
				t.Fatalf("expected message %q, got %q", tc.want.Error(), exc.Message)
			}
			if created {
				t.Fatal("repository must not be called when validation fails")
			}
		})
	}
}

func TestCreateTransferUseCase_MissingIdempotencyKey(t *testing.T) {
	repo := &mockTransferRepository{}
	uc := usecase.NewCreateTransferUseCase(repo, testLogger())

	in := validInput()
	in.IdempotencyKey = ""

	_, err := uc.Execute(context.Background(), in)

	exc := assertException(t, err, http.StatusBadRequest)
	if exc.Message != entity.ErrIdempotencyKeyRequired.Error() {
		t.Fatalf("expected message %q, got %q", entity.ErrIdempotencyKeyRequired.Error(), exc.Message)
	}
}

func TestCreateTransferUseCase_RepositoryError(t *testing.T) {
	repo := &mockTransferRepository{
		createFn: func(ctx context.Context, tr *entity.Transfer) error {
			return errors.New("db error")
		},
	}
	uc := usecase.NewCreateTransferUseCase(repo, testLogger())

	_, err := uc.Execute(context.Background(), validInput())

	_ = assertException(t, err, http.StatusInternalServerError)
}
