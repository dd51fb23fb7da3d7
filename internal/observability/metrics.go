package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "puja_requests_total",
			Help: "Total number of requests",
		},
		[]string{"route", "code", "method"},
	)

	OrdersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "puja_orders_created_total",
			Help: "Total orders created by the payment verifier",
		},
	)

	VerificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "puja_verification_failures_total",
			Help: "Total payment signature verification failures",
		},
	)

	BookingIDRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "puja_booking_id_retries_total",
			Help: "Total booking id allocation retries after a store collision",
		},
	)

	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "puja_fulfillment_transitions_total",
			Help: "Total fulfillment status transitions",
		},
		[]string{"from", "to"},
	)

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "puja_notifications_total",
			Help: "Total devotee notifications by delivery status",
		},
		[]string{"event", "status"},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "puja_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "puja_outbox_lag_seconds",
			Help: "Lag of outbox publishing",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "puja_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)
