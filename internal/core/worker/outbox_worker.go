package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/KlistenesLima/krt-bank-sub001/internal/core/domain/entity"
	"github.com/KlistenesLima/krt-bank-sub001/internal/core/domain/ports"
	"github.com/KlistenesLima/krt-bank-sub001/internal/core/events"
)

type Config struct {
	PollInterval   time.Duration
	BatchSize      int
	PublishTimeout time.Duration
}

// OutboxWorker relays unprocessed outbox records to the event bus,
// at-least-once. A crash after publish but before MarkProcessed republishes
// the record on the next poll; downstream consumers must be idempotent.
type OutboxWorker struct {
	outboxRepo ports.OutboxRepository
	publisher  ports.EventPublisher
	metrics    ports.MetricsRecorder
	cfg        Config
	logger     *slog.Logger
}

func NewOutboxWorker(
	outboxRepo ports.OutboxRepository,
	publisher ports.EventPublisher,
	metrics ports.MetricsRecorder,
	cfg Config,
	logger *slog.Logger,
) *OutboxWorker {
	return &OutboxWorker{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		metrics:    metrics,
		cfg:        cfg,
		logger:     logger,
	}
}

func (w *OutboxWorker) Run(ctx context.Context) {
	w.logger.InfoContext(ctx, "outbox worker started", slog.Duration("interval", w.cfg.PollInterval))
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "outbox worker stopped")
			return
		case <-ticker.C:
			w.processBatch(ctx)
		}
	}
}

func (w *OutboxWorker) processBatch(ctx context.Context) {
	records, err := w.outboxRepo.FetchUnprocessed(ctx, w.cfg.BatchSize)
	if err != nil {
		w.logger.ErrorContext(ctx, "fetch unprocessed records failed", slog.String("error", err.Error()))
		return
	}

	if len(records) == 0 {
		return
	}

	w.logger.InfoContext(ctx, "processing outbox batch", slog.Int("count", len(records)))

	for _, record := range records {
		if ctx.Err() != nil {
			return
		}
		w.processRecord(ctx, record)
	}
}

func (w *OutboxWorker) processRecord(ctx context.Context, record *entity.Outbox) {
	// Resolving the kind validates the payload before it reaches the bus.
	// Unknown kinds and corrupt payloads are data errors: marking them failed
	// burns a retry each pass until the record parks at the max for operator
	// inspection.
	if _, err := events.Decode(record.EventType, []byte(record.Payload)); err != nil {
		var unknown *events.UnknownKindError
		if errors.As(err, &unknown) {
			w.logger.ErrorContext(ctx, "outbox record has unknown event kind",
				slog.String("record_id", record.ID),
				slog.String("event_type", record.EventType),
			)
		} else {
			w.logger.ErrorContext(ctx, "outbox payload decode failed",
				slog.String("record_id", record.ID),
				slog.String("event_type", record.EventType),
				slog.String("error", err.Error()),
			)
		}
		if merr := w.outboxRepo.MarkFailed(ctx, record.ID, err.Error()); merr != nil {
			w.logger.ErrorContext(ctx, "mark record failed errored",
				slog.String("record_id", record.ID),
				slog.String("error", merr.Error()),
			)
		}
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, w.cfg.PublishTimeout)
	defer cancel()

	if err := w.publisher.Publish(pubCtx, record); err != nil {
		w.metrics.OutboxPublishFailed()
		w.logger.ErrorContext(ctx, "publish failed",
			slog.String("record_id", record.ID),
			slog.String("event_type", record.EventType),
			slog.Int("retry_count", record.RetryCount),
			slog.String("error", err.Error()),
		)
		if merr := w.outboxRepo.MarkFailed(ctx, record.ID, err.Error()); merr != nil {
			w.logger.ErrorContext(ctx, "mark record failed errored",
				slog.String("record_id", record.ID),
				slog.String("error", merr.Error()),
			)
		}
		return
	}

	if err := w.outboxRepo.MarkProcessed(ctx, record.ID); err != nil {
		w.logger.ErrorContext(ctx, "mark processed failed",
			slog.String("record_id", record.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	w.metrics.OutboxPublished()
	w.logger.InfoContext(ctx, "event published",
		slog.String("record_id", record.ID),
		slog.String("event_type", record.EventType),
		slog.String("correlation_id", record.CorrelationID),
	)
}
