package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agendamento_http_requests_total",
			Help: "HTTP requests by route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agendamento_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agendamento_bookings_total",
			Help: "Booking attempts by outcome (created, conflict, invalid, error).",
		},
		[]string{"outcome"},
	)

	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agendamento_transitions_total",
			Help: "Lifecycle transitions by event and outcome.",
		},
		[]string{"event", "outcome"},
	)

	RemindersDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agendamento_reminders_dispatched_total",
			Help: "Reminder events handed to the notifier, by final status.",
		},
		[]string{"status"},
	)
)
