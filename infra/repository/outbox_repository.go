package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/KlistenesLima/krt-bank-sub001/internal/core/domain/entity"
)

type PostgresOutboxRepository struct {
	db         *sql.DB
	maxRetries int
}

func NewOutboxRepository(db *sql.DB, maxRetries int) *PostgresOutboxRepository {
	return &PostgresOutboxRepository{db: db, maxRetries: maxRetries}
}

// FetchUnprocessed pages records still awaiting a confirmed publish, oldest
// first. Records at the retry ceiling are excluded and stay in the table with
// their last error for operator inspection; nothing is ever deleted.
func (r *PostgresOutboxRepository) FetchUnprocessed(ctx context.Context, limit int) ([]*entity.Outbox, error) {
	const query = `
		SELECT id, event_type, payload, occurred_at, processed_at, error, retry_count, correlation_id, causation_id
		FROM outbox
		WHERE processed_at IS NULL AND retry_count < $1
		ORDER BY occurred_at
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, r.maxRetries, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unprocessed outbox records: %w", err)
	}
	defer rows.Close()

	var records []*entity.Outbox
	for rows.Next() {
		var rec entity.Outbox
		var causationID sql.NullString
		if err := rows.Scan(
			&rec.ID, &rec.EventType, &rec.Payload, &rec.OccurredAt,
			&rec.ProcessedAt, &rec.Error, &rec.RetryCount, &rec.CorrelationID, &causationID,
		); err != nil {
			return nil, fmt.Errorf("scan outbox record: %w", err)
		}
		rec.CausationID = causationID.String
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// MarkProcessed stamps processed_at once; a record already stamped is left
// untouched so a republish after a crash cannot double-stamp it.
func (r *PostgresOutboxRepository) MarkProcessed(ctx context.Context, id string) error {
	const query = `
		UPDATE outbox SET processed_at = $1 WHERE id = $2 AND processed_at IS NULL
	`
	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("mark outbox record processed: %w", err)
	}
	return nil
}

func (r *PostgresOutboxRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	const query = `
		UPDATE outbox SET retry_count = retry_count + 1, error = $1 WHERE id = $2
	`
	if _, err := r.db.ExecContext(ctx, query, reason, id); err != nil {
		return fmt.Errorf("mark outbox record failed: %w", err)
	}
	return nil
}
