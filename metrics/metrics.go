// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package metrics holds the process-wide Prometheus collectors.
// They register with the default registry and are served by promhttp at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jpenzell/deck-live/models"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deck_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deck_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deck_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	sessionsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deck_sessions_created_total",
			Help: "Total number of sessions created",
		},
	)

	joinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deck_session_joins_total",
			Help: "Total number of join calls, by whether the identity was new",
		},
		[]string{"new"},
	)

	responsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deck_responses_submitted_total",
			Help: "Total number of accepted responses",
		},
		[]string{"manual"},
	)

	rejectedResponsesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deck_responses_rejected_closed_total",
			Help: "Submissions rejected because the poll was closed",
		},
	)

	realtimeSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deck_realtime_subscribers",
			Help: "Number of live realtime subscriptions",
		},
	)

	realtimeEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deck_realtime_events_total",
			Help: "Total number of change events published",
		},
		[]string{"table", "action"},
	)

	generateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deck_generate_requests_total",
			Help: "Total number of text generation requests",
		},
		[]string{"status"},
	)

	generateDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deck_generate_duration_seconds",
			Help:    "Text generation upstream duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)
)

func RecordSessionCreated() {
	sessionsCreatedTotal.Inc()
}

func RecordJoin(added bool) {
	joinsTotal.WithLabelValues(strconv.FormatBool(added)).Inc()
}

func RecordResponse(manual bool) {
	responsesTotal.WithLabelValues(strconv.FormatBool(manual)).Inc()
}

func RecordClosedRejection() {
	rejectedResponsesTotal.Inc()
}

func SubscriberAdded() {
	realtimeSubscribers.Inc()
}

func SubscriberRemoved() {
	realtimeSubscribers.Dec()
}

func RecordEvent(e models.Event) {
	realtimeEventsTotal.WithLabelValues(string(e.Table), string(e.Action)).Inc()
}

// RecordGenerate records one text generation call. status is
// "success", "error" or "rate_limited".
func RecordGenerate(status string, duration time.Duration) {
	generateTotal.WithLabelValues(status).Inc()
	if duration > 0 {
		generateDuration.Observe(duration.Seconds())
	}
}
