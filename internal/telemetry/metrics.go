/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry exposes prometheus metrics for the appliance.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts API requests by route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_http_requests_total",
		Help: "HTTP requests processed, by method, endpoint and status.",
	}, []string{"method", "endpoint", "status"})

	// HTTPRequestDuration observes request latency by route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skald_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	// APIActiveConnections gauges in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skald_http_active_connections",
		Help: "In-flight HTTP requests.",
	})

	// WSSessions gauges connected websocket sessions.
	WSSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skald_ws_sessions",
		Help: "Connected websocket sessions.",
	})

	// CommandsTotal counts playback commands by name and outcome.
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_player_commands_total",
		Help: "Playback commands processed, by command and outcome.",
	}, []string{"command", "outcome"})

	// AutoAdvancesTotal counts automatic end-of-track advances.
	AutoAdvancesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skald_player_auto_advances_total",
		Help: "Automatic track advances triggered by the monitor.",
	})

	// BroadcastsTotal counts state broadcasts by room kind.
	BroadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_sync_broadcasts_total",
		Help: "State broadcasts, by room kind.",
	}, []string{"room_kind"})

	// GlobalSequence gauges the global broadcast sequence number.
	GlobalSequence = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skald_sync_global_sequence",
		Help: "Current global broadcast sequence number.",
	})

	// SubscribersGauge gauges room subscriptions across all rooms.
	SubscribersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skald_sync_subscriptions",
		Help: "Active room subscriptions.",
	})
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
