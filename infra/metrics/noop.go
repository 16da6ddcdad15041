package metrics

import "time"

// NoopRecorder discards every observation. Used in tests and tooling.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (NoopRecorder) TransferAnalyzed(string)                  {}
func (NoopRecorder) TransferFinished(string)                  {}
func (NoopRecorder) LedgerCall(string, bool, time.Duration)   {}
func (NoopRecorder) OutboxPublished()                         {}
func (NoopRecorder) OutboxPublishFailed()                     {}
