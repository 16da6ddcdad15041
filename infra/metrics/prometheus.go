package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements ports.MetricsRecorder. The collectors are
// owned by the instance and registered against the supplied registerer, so
// nothing mutates package-level state.
type PrometheusRecorder struct {
	transfersAnalyzed *prometheus.CounterVec
	transfersFinished *prometheus.CounterVec
	ledgerCalls       *prometheus.CounterVec
	ledgerLatency     *prometheus.HistogramVec
	outboxPublished   prometheus.Counter
	outboxFailed      prometheus.Counter
}

func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		transfersAnalyzed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "transfer_service",
			Name:      "transfers_analyzed_total",
			Help:      "Fraud analysis outcomes by decision.",
		}, []string{"decision"}),
		transfersFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "transfer_service",
			Name:      "transfers_finished_total",
			Help:      "Transfers reaching a terminal status.",
		}, []string{"status"}),
		ledgerCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "transfer_service",
			Name:      "ledger_calls_total",
			Help:      "Ledger debit/credit calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		ledgerLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "transfer_service",
			Name:      "ledger_call_duration_seconds",
			Help:      "Ledger call latency in seconds, retries included.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		outboxPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "transfer_service",
			Name:      "outbox_published_total",
			Help:      "Outbox records published and marked processed.",
		}),
		outboxFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "transfer_service",
			Name:      "outbox_publish_failures_total",
			Help:      "Outbox publish attempts that failed.",
		}),
	}
}

func (r *PrometheusRecorder) TransferAnalyzed(decision string) {
	r.transfersAnalyzed.WithLabelValues(decision).Inc()
}

func (r *PrometheusRecorder) TransferFinished(status string) {
	r.transfersFinished.WithLabelValues(status).Inc()
}

func (r *PrometheusRecorder) LedgerCall(operation string, success bool, elapsed time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	r.ledgerCalls.WithLabelValues(operation, outcome).Inc()
	r.ledgerLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (r *PrometheusRecorder) OutboxPublished() {
	r.outboxPublished.Inc()
}

func (r *PrometheusRecorder) OutboxPublishFailed() {
	r.outboxFailed.Inc()
}
