package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const prefix = "hrbot"

var (
	// Chat events handled, by role and outcome (ok | denied | error)
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_events_total",
			Help: "Total number of chat events handled",
		},
		[]string{"role", "outcome"},
	)

	EventDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_event_duration_seconds",
			Help:    "Duration of chat event handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"role"},
	)

	// Flow terminal outcomes (completed | cancelled | failed)
	FlowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_flows_total",
			Help: "Total number of conversation flows finished",
		},
		[]string{"flow", "outcome"},
	)

	PaymentCallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_payment_callbacks_total",
			Help: "Total number of payment callbacks received",
		},
		[]string{"status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_active_sessions",
			Help: "Conversation sessions currently stored",
		},
	)
)
