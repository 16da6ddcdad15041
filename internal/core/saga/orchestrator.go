package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/KlistenesLima/krt-bank-sub001/internal/core/domain/entity"
	"github.com/KlistenesLima/krt-bank-sub001/internal/core/domain/ports"
	"github.com/KlistenesLima/krt-bank-sub001/internal/core/events"
	"github.com/KlistenesLima/krt-bank-sub001/internal/core/fraud"
)

type Config struct {
	PollInterval time.Duration
	BatchSize    int
	HistoryLimit int
}

// Orchestrator drives transfers from PENDING_ANALYSIS to a terminal status:
// fraud analysis, then debit, credit and, when the credit fails after a
// successful debit, a compensating credit back to the source. Steps within
// one transfer are strictly sequential; transfers are independent.
type Orchestrator struct {
	transfers ports.TransferRepository
	ledger    ports.LedgerClient
	engine    *fraud.Engine
	metrics   ports.MetricsRecorder
	cfg       Config
	logger    *slog.Logger
}

func NewOrchestrator(
	transfers ports.TransferRepository,
	ledger ports.LedgerClient,
	engine *fraud.Engine,
	metrics ports.MetricsRecorder,
	cfg Config,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		transfers: transfers,
		ledger:    ledger,
		engine:    engine,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger,
	}
}

func (o *Orchestrator) Run(ctx context.Context) {
	o.logger.InfoContext(ctx, "saga orchestrator started", slog.Duration("interval", o.cfg.PollInterval))
	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.InfoContext(ctx, "saga orchestrator stopped")
			return
		case <-ticker.C:
			o.Tick(ctx)
		}
	}
}

// Tick runs a single poll cycle: fetch a batch of transfers awaiting
// analysis, claim each one and drive it as far as it will go.
func (o *Orchestrator) Tick(ctx context.Context) {
	batch, err := o.transfers.FindByStatus(ctx, entity.StatusPendingAnalysis, o.cfg.BatchSize)
	if err != nil {
		o.logger.ErrorContext(ctx, "fetch pending transfers failed", slog.String("error", err.Error()))
		return
	}

	for _, t := range batch {
		if ctx.Err() != nil {
			return
		}

		claimed, err := o.transfers.ClaimForProcessing(ctx, t.ID, entity.StatusPendingAnalysis)
		if err != nil {
			o.logger.ErrorContext(ctx, "claim transfer failed",
				slog.String("transfer_id", t.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !claimed {
			continue
		}

		o.processTransfer(ctx, t)
	}
}

func (o *Orchestrator) processTransfer(ctx context.Context, t *entity.Transfer) {
	since := t.CreatedAt.Add(-fraud.HistoryWindow)
	history, err := o.transfers.FindRecentBySourceAccount(ctx, t.SourceAccountID, since, o.cfg.HistoryLimit)
	if err != nil {
		o.logger.ErrorContext(ctx, "fetch transfer history failed",
			slog.String("transfer_id", t.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	result := o.engine.Analyze(t, history)
	o.metrics.TransferAnalyzed(string(result.Decision))

	switch result.Decision {
	case fraud.DecisionRejected:
		o.rejectTransfer(ctx, t, result)
	case fraud.DecisionUnderReview:
		o.holdTransfer(ctx, t, result)
	case fraud.DecisionApproved:
		o.startSaga(ctx, t, result)
	}
}

func (o *Orchestrator) rejectTransfer(ctx context.Context, t *entity.Transfer, result fraud.Result) {
	if err := t.Reject(result.Score, result.Details); err != nil {
		o.logTransitionBug(ctx, t, err)
		return
	}

	record, err := events.NewOutbox(events.FraudRejected{
		TransferID:           t.ID,
		SourceAccountID:      t.SourceAccountID,
		DestinationAccountID: t.DestinationAccountID,
		Amount:               t.Amount,
		Score:                result.Score,
		Details:              result.Details,
		OccurredAt:           time.Now().UTC(),
	}, t.ID)
	if err != nil {
		o.logger.ErrorContext(ctx, "build fraud rejected event failed", slog.String("error", err.Error()))
		return
	}

	if err := o.transfers.UpdateWithOutbox(ctx, t, entity.StatusPendingAnalysis, record); err != nil {
		o.logUpdateError(ctx, t, "persist rejection", err)
		return
	}

	o.metrics.TransferFinished(string(entity.StatusRejected))
	o.logger.WarnContext(ctx, "transfer rejected by fraud analysis",
		slog.String("transfer_id", t.ID),
		slog.Int("score", result.Score),
		slog.String("details", result.Details),
	)
}

func (o *Orchestrator) holdTransfer(ctx context.Context, t *entity.Transfer, result fraud.Result) {
	if err := t.HoldForReview(result.Score, result.Details); err != nil {
		o.logTransitionBug(ctx, t, err)
		return
	}

	if err := o.transfers.Update(ctx, t, entity.StatusPendingAnalysis); err != nil {
		o.logUpdateError(ctx, t, "persist review hold", err)
		return
	}

	o.logger.WarnContext(ctx, "transfer held for manual review",
		slog.String("transfer_id", t.ID),
		slog.Int("score", result.Score),
		slog.String("details", result.Details),
	)
}

func (o *Orchestrator) startSaga(ctx context.Context, t *entity.Transfer, result fraud.Result) {
	if err := t.Approve(result.Score, result.Details); err != nil {
		o.logTransitionBug(ctx, t, err)
		return
	}
	if err := t.StartSaga(); err != nil {
		o.logTransitionBug(ctx, t, err)
		return
	}

	record, err := events.NewOutbox(events.TransferInitiated{
		TransferID:           t.ID,
		SourceAccountID:      t.SourceAccountID,
		DestinationAccountID: t.DestinationAccountID,
		Amount:               t.Amount,
		OccurredAt:           time.Now().UTC(),
	}, t.ID)
	if err != nil {
		o.logger.ErrorContext(ctx, "build transfer initiated event failed", slog.String("error", err.Error()))
		return
	}

	if err := o.transfers.UpdateWithOutbox(ctx, t, entity.StatusPendingAnalysis, record); err != nil {
		o.logUpdateError(ctx, t, "persist saga start", err)
		return
	}

	o.logger.InfoContext(ctx, "transfer saga started", slog.String("transfer_id", t.ID))
	o.runLedgerSteps(ctx, t)
}

// runLedgerSteps executes debit then credit, strictly in order. The context
// aborting a call leaves the transfer where it is: cancellation never fails a
// transfer and never triggers compensation, only explicit ledger failures do.
func (o *Orchestrator) runLedgerSteps(ctx context.Context, t *entity.Transfer) {
	reason := fmt.Sprintf("pix transfer %s", t.ID)

	res, err := o.debit(ctx, t.SourceAccountID, t.Amount, reason)
	if err != nil {
		if ctx.Err() != nil {
			o.logger.InfoContext(ctx, "debit aborted by shutdown", slog.String("transfer_id", t.ID))
			return
		}
		o.failTransfer(ctx, t, entity.StatusPending, fmt.Sprintf("debit failed: %s", err))
		return
	}
	if !res.Success {
		o.failTransfer(ctx, t, entity.StatusPending, fmt.Sprintf("debit declined: %s", res.Error))
		return
	}

	if err := t.MarkSourceDebited(); err != nil {
		o.logTransitionBug(ctx, t, err)
		return
	}
	if err := o.transfers.Update(ctx, t, entity.StatusPending); err != nil {
		o.logUpdateError(ctx, t, "persist source debited", err)
		return
	}

	res, err = o.credit(ctx, t.DestinationAccountID, t.Amount, reason)
	if err != nil {
		if ctx.Err() != nil {
			o.logger.InfoContext(ctx, "credit aborted by shutdown", slog.String("transfer_id", t.ID))
			return
		}
		o.compensate(ctx, t, fmt.Sprintf("credit failed: %s", err))
		return
	}
	if !res.Success {
		o.compensate(ctx, t, fmt.Sprintf("credit declined: %s", res.Error))
		return
	}

	if err := t.Complete(); err != nil {
		o.logTransitionBug(ctx, t, err)
		return
	}

	record, err := events.NewOutbox(events.TransferCompleted{
		TransferID:           t.ID,
		SourceAccountID:      t.SourceAccountID,
		DestinationAccountID: t.DestinationAccountID,
		Amount:               t.Amount,
		OccurredAt:           time.Now().UTC(),
	}, t.ID)
	if err != nil {
		o.logger.ErrorContext(ctx, "build transfer completed event failed", slog.String("error", err.Error()))
		return
	}

	if err := o.transfers.UpdateWithOutbox(ctx, t, entity.StatusSourceDebited, record); err != nil {
		o.logUpdateError(ctx, t, "persist completion", err)
		return
	}

	o.metrics.TransferFinished(string(entity.StatusCompleted))
	o.logger.InfoContext(ctx, "transfer completed",
		slog.String("transfer_id", t.ID),
		slog.String("amount", t.Amount.String()),
	)
}

// compensate credits the already-debited amount back to the source. If the
// compensating credit itself fails the transfer is marked FAILED with the
// compensation marker and left for manual reconciliation, never retried.
func (o *Orchestrator) compensate(ctx context.Context, t *entity.Transfer, creditFailure string) {
	comp, err := o.credit(ctx, t.SourceAccountID, t.Amount, fmt.Sprintf("compensation for transfer %s", t.ID))
	if err != nil && ctx.Err() != nil {
		o.logger.InfoContext(ctx, "compensation aborted by shutdown", slog.String("transfer_id", t.ID))
		return
	}

	if err == nil && comp.Success {
		reason := fmt.Sprintf("%s; source account refunded", creditFailure)
		if terr := t.MarkCompensated(reason); terr != nil {
			o.logTransitionBug(ctx, t, terr)
			return
		}
		o.finishFailed(ctx, t, entity.StatusSourceDebited, reason)
		o.logger.WarnContext(ctx, "transfer compensated",
			slog.String("transfer_id", t.ID),
			slog.String("reason", reason),
		)
		return
	}

	compFailure := creditFailure
	if err != nil {
		compFailure = err.Error()
	} else if comp.Error != "" {
		compFailure = comp.Error
	}
	reason := fmt.Sprintf("%s: %s; original failure: %s", entity.CompensationFailedMarker, compFailure, creditFailure)
	if terr := t.Fail(reason); terr != nil {
		o.logTransitionBug(ctx, t, terr)
		return
	}
	o.finishFailed(ctx, t, entity.StatusSourceDebited, reason)
	o.logger.ErrorContext(ctx, "compensation failed, manual reconciliation required",
		slog.String("transfer_id", t.ID),
		slog.String("source_account_id", t.SourceAccountID),
		slog.String("amount", t.Amount.String()),
		slog.String("reason", reason),
	)
}

func (o *Orchestrator) debit(ctx context.Context, accountID string, amount decimal.Decimal, reason string) (*ports.LedgerResult, error) {
	start := time.Now()
	res, err := o.ledger.Debit(ctx, accountID, amount, reason)
	o.metrics.LedgerCall("debit", err == nil && res.Success, time.Since(start))
	return res, err
}

func (o *Orchestrator) credit(ctx context.Context, accountID string, amount decimal.Decimal, reason string) (*ports.LedgerResult, error) {
	start := time.Now()
	res, err := o.ledger.Credit(ctx, accountID, amount, reason)
	o.metrics.LedgerCall("credit", err == nil && res.Success, time.Since(start))
	return res, err
}

func (o *Orchestrator) failTransfer(ctx context.Context, t *entity.Transfer, expected entity.TransferStatus, reason string) {
	if err := t.Fail(reason); err != nil {
		o.logTransitionBug(ctx, t, err)
		return
	}
	o.finishFailed(ctx, t, expected, reason)
	o.logger.WarnContext(ctx, "transfer failed",
		slog.String("transfer_id", t.ID),
		slog.String("reason", reason),
	)
}

// finishFailed persists a terminal failure-side status together with its
// TransferFailed outbox event.
func (o *Orchestrator) finishFailed(ctx context.Context, t *entity.Transfer, expected entity.TransferStatus, reason string) {
	record, err := events.NewOutbox(events.TransferFailed{
		TransferID:           t.ID,
		SourceAccountID:      t.SourceAccountID,
		DestinationAccountID: t.DestinationAccountID,
		Amount:               t.Amount,
		Reason:               reason,
		OccurredAt:           time.Now().UTC(),
	}, t.ID)
	if err != nil {
		o.logger.ErrorContext(ctx, "build transfer failed event failed", slog.String("error", err.Error()))
		return
	}

	if err := o.transfers.UpdateWithOutbox(ctx, t, expected, record); err != nil {
		o.logUpdateError(ctx, t, "persist failure", err)
		return
	}

	o.metrics.TransferFinished(string(t.Status))
}

func (o *Orchestrator) logUpdateError(ctx context.Context, t *entity.Transfer, op string, err error) {
	if errors.Is(err, ports.ErrStatusConflict) {
		o.logger.WarnContext(ctx, "transfer advanced by another worker",
			slog.String("transfer_id", t.ID),
			slog.String("op", op),
		)
		return
	}
	o.logger.ErrorContext(ctx, op+" failed",
		slog.String("transfer_id", t.ID),
		slog.String("error", err.Error()),
	)
}

func (o *Orchestrator) logTransitionBug(ctx context.Context, t *entity.Transfer, err error) {
	// A guard violation here means the claim discipline was broken.
	o.logger.ErrorContext(ctx, "unexpected state transition",
		slog.String("transfer_id", t.ID),
		slog.String("status", string(t.Status)),
		slog.String("error", err.Error()),
	)
}
