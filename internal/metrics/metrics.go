package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptopay_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cryptopay_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	DepositsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cryptopay_deposits_created_total",
			Help: "Total number of deposit invoices created",
		},
	)

	WithdrawalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptopay_withdrawals_total",
			Help: "Total number of withdrawal attempts",
		},
		[]string{"result"},
	)

	ReconciliationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptopay_reconciliations_total",
			Help: "Total number of reconciliation outcomes",
		},
		[]string{"kind", "outcome"},
	)

	WebhooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptopay_webhooks_total",
			Help: "Total number of gateway webhook deliveries",
		},
		[]string{"result"},
	)

	BalanceAdjustmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptopay_balance_adjustments_total",
			Help: "Total number of user balance mutations",
		},
		[]string{"direction"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordDeposit() {
	DepositsCreatedTotal.Inc()
}

func RecordWithdrawal(result string) {
	WithdrawalsTotal.WithLabelValues(result).Inc()
}

func RecordReconciliation(kind, outcome string) {
	ReconciliationsTotal.WithLabelValues(kind, outcome).Inc()
}

func RecordWebhook(result string) {
	WebhooksTotal.WithLabelValues(result).Inc()
}

func RecordBalanceAdjustment(direction string) {
	BalanceAdjustmentsTotal.WithLabelValues(direction).Inc()
}
