package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhookNotificationsTotal,
		paymentVerificationsTotal,
		paymentsRevenueTotal,
	)
}

var (
	webhookNotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_notifications_total",
			Help: "Payment webhook notifications by outcome (granted/duplicate/ignored/deferred).",
		},
		[]string{"outcome"},
	)

	paymentVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_verifications_total",
			Help: "Gateway fetch-request calls by result (ok/error).",
		},
		[]string{"result"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total monetary value of granted payments, labeled by currency.",
		},
		[]string{"currency"},
	)
)

func IncWebhookNotification(outcome string) {
	webhookNotificationsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncPaymentVerification(result string) {
	paymentVerificationsTotal.WithLabelValues(norm(result)).Inc()
}

func AddPaymentRevenue(currency string, amount int64) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}
