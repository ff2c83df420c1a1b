package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		subscriptionsGrantedTotal,
		subscriptionsExpiredTotal,
		sweepDuration,
		pendingVerifications,
	)
}

var (
	subscriptionsGrantedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_granted_total",
			Help: "Total number of access grants (first payments and renewals).",
		},
	)

	subscriptionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Total number of records transitioned to expired by the sweeper.",
		},
	)

	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "expiry_sweep_duration_seconds",
			Help:    "Wall-clock duration of a full expiry sweep.",
			Buckets: prometheus.DefBuckets,
		},
	)

	pendingVerifications = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pending_verifications",
			Help: "Journal entries awaiting manual reconciliation.",
		},
	)
)

func IncSubscriptionsGranted() { subscriptionsGrantedTotal.Inc() }

func IncSubscriptionsExpired(count int) {
	subscriptionsExpiredTotal.Add(float64(count))
}

func ObserveSweepDuration(seconds float64) { sweepDuration.Observe(seconds) }

func SetPendingVerifications(n int) { pendingVerifications.Set(float64(n)) }
