package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TripsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "tripmingle", Name: "trips_created_total", Help: "Total number of trips created"})
	TripsCancelledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tripmingle", Name: "trips_cancelled_total", Help: "Total number of trips cancelled"},
		[]string{"cancelled_by"},
	)
	TripsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "tripmingle", Name: "trips_completed_total", Help: "Total number of trips completed"})
	TripStatusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tripmingle", Name: "trip_status_transitions_total", Help: "Total trip status transitions"},
		[]string{"from", "to"},
	)
	TripVersionConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "tripmingle", Name: "trip_version_conflicts_total", Help: "Versioned trip updates rejected on stale reads"})
	SearchExpirySweepsTotal   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "tripmingle", Name: "search_expiry_sweeps_total", Help: "Search expiry sweep runs"})
	NotificationsSentTotal    = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tripmingle", Name: "notifications_sent_total", Help: "Notifications persisted per type"},
		[]string{"type"},
	)
	PushDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tripmingle", Name: "push_deliveries_total", Help: "Push notification delivery attempts"},
		[]string{"provider", "status"},
	)
	SMSDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tripmingle", Name: "sms_deliveries_total", Help: "SMS mirror delivery attempts"},
		[]string{"status"},
	)
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "tripmingle", Name: "websocket_connections", Help: "Open websocket connections"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tripmingle", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tripmingle",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
