package ports

import "time"

// MetricsRecorder is injected into the orchestrator and the outbox processor
// so instances own their counters instead of mutating globals.
type MetricsRecorder interface {
	TransferAnalyzed(decision string)
	TransferFinished(status string)
	LedgerCall(operation string, success bool, elapsed time.Duration)
	OutboxPublished()
	OutboxPublishFailed()
}
