package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/KlistenesLima/krt-bank-sub001/internal/core/domain/entity"
	"github.com/KlistenesLima/krt-bank-sub001/internal/core/domain/ports"
)

const transferColumns = `
	id, source_account_id, destination_account_id, amount, pix_key, description,
	idempotency_key, status, fraud_score, fraud_details, status_reason,
	source_debited, created_at, completed_at
`

type PostgresTransferRepository struct {
	db         *sql.DB
	claimLease time.Duration
}

func NewTransferRepository(db *sql.DB, claimLease time.Duration) *PostgresTransferRepository {
	return &PostgresTransferRepository{db: db, claimLease: claimLease}
}

func (r *PostgresTransferRepository) Create(ctx context.Context, t *entity.Transfer) error {
	const query = `
		INSERT INTO transfers (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	if _, err := r.db.ExecContext(ctx, query,
		t.ID, t.SourceAccountID, t.DestinationAccountID, t.Amount, t.Key, t.Description,
		t.IdempotencyKey, string(t.Status), t.FraudScore, t.FraudDetails, t.StatusReason,
		t.SourceDebited, t.CreatedAt, t.CompletedAt,
	); err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

func (r *PostgresTransferRepository) FindByID(ctx context.Context, id string) (*entity.Transfer, error) {
	const query = `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresTransferRepository) FindByIdempotencyKey(ctx context.Context, key string) (*entity.Transfer, error) {
	const query = `SELECT ` + transferColumns + ` FROM transfers WHERE idempotency_key = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, key))
}

func (r *PostgresTransferRepository) FindByStatus(ctx context.Context, status entity.TransferStatus, limit int) ([]*entity.Transfer, error) {
	const query = `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("find transfers by status: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

func (r *PostgresTransferRepository) FindRecentBySourceAccount(ctx context.Context, accountID string, since time.Time, limit int) ([]*entity.Transfer, error) {
	const query = `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE source_account_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, accountID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("find recent transfers: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

// ClaimForProcessing is a conditional update: it succeeds only while the
// stored status matches the expected one and no other worker holds a live
// claim. A claim left by a crashed worker expires with the lease.
func (r *PostgresTransferRepository) ClaimForProcessing(ctx context.Context, id string, expected entity.TransferStatus) (bool, error) {
	const query = `
		UPDATE transfers
		SET claimed_at = now()
		WHERE id = $1
		  AND status = $2
		  AND (claimed_at IS NULL OR claimed_at < now() - ($3 * interval '1 second'))
	`
	result, err := r.db.ExecContext(ctx, query, id, string(expected), r.claimLease.Seconds())
	if err != nil {
		return false, fmt.Errorf("claim transfer: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim transfer rows affected: %w", err)
	}
	return affected == 1, nil
}

func (r *PostgresTransferRepository) Update(ctx context.Context, t *entity.Transfer, expected entity.TransferStatus) error {
	result, err := r.db.ExecContext(ctx, updateQuery,
		t.ID, string(expected), string(t.Status), t.FraudScore, t.FraudDetails,
		t.StatusReason, t.SourceDebited, t.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update transfer: %w", err)
	}
	return checkAffected(result)
}

// UpdateWithOutbox writes the transfer mutation and its outbox record in one
// transaction, so the event exists iff the mutation committed.
func (r *PostgresTransferRepository) UpdateWithOutbox(ctx context.Context, t *entity.Transfer, expected entity.TransferStatus, record *entity.Outbox) error {
	dbTx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = dbTx.Rollback() }()

	result, err := dbTx.ExecContext(ctx, updateQuery,
		t.ID, string(expected), string(t.Status), t.FraudScore, t.FraudDetails,
		t.StatusReason, t.SourceDebited, t.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update transfer: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return err
	}

	const insertOutbox = `
		INSERT INTO outbox (id, event_type, payload, occurred_at, retry_count, correlation_id, causation_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := dbTx.ExecContext(ctx, insertOutbox,
		record.ID, record.EventType, record.Payload, record.OccurredAt,
		record.RetryCount, record.CorrelationID, record.CausationID,
	); err != nil {
		return fmt.Errorf("insert outbox record: %w", err)
	}

	return dbTx.Commit()
}

const updateQuery = `
	UPDATE transfers
	SET status = $3, fraud_score = $4, fraud_details = $5, status_reason = $6,
	    source_debited = $7, completed_at = $8
	WHERE id = $1 AND status = $2
`

func checkAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transfer rows affected: %w", err)
	}
	if affected == 0 {
		return ports.ErrStatusConflict
	}
	return nil
}

func (r *PostgresTransferRepository) scanOne(row *sql.Row) (*entity.Transfer, error) {
	t, err := scanTransfer(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find transfer: %w", err)
	}
	return t, nil
}

func scanAll(rows *sql.Rows) ([]*entity.Transfer, error) {
	var transfers []*entity.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return transfers, nil
}

func scanTransfer(scan func(dest ...any) error) (*entity.Transfer, error) {
	var t entity.Transfer
	err := scan(
		&t.ID, &t.SourceAccountID, &t.DestinationAccountID, &t.Amount, &t.Key, &t.Description,
		&t.IdempotencyKey, &t.Status, &t.FraudScore, &t.FraudDetails, &t.StatusReason,
		&t.SourceDebited, &t.CreatedAt, &t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
