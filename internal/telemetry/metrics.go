/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry holds Prometheus metrics and HTTP observability
// middleware for the slotsquatter process.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

var (
	// SchedulerTicksTotal counts evaluation loop iterations.
	SchedulerTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "slotsquatter",
		Name:      "scheduler_ticks_total",
		Help:      "Number of reservation evaluation loop iterations.",
	})

	// SchedulerErrorsTotal counts evaluation failures by node and stage.
	SchedulerErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "slotsquatter",
		Name:      "scheduler_errors_total",
		Help:      "Number of reservation evaluation failures.",
	}, []string{"node", "stage"})

	// ReservedSlots exports the most recently evaluated aggregate
	// reservation per node.
	ReservedSlots = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "slotsquatter",
		Name:      "reserved_slots",
		Help:      "Executor slots currently reserved on a node.",
	}, []string{"node"})

	// PolicyParseErrorsTotal counts stored policies whose rule text failed
	// to re-parse on load.
	PolicyParseErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "slotsquatter",
		Name:      "policy_parse_errors_total",
		Help:      "Number of stored policies that failed to re-parse.",
	})

	// APIRequestsTotal counts HTTP requests by method, route, and status.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "slotsquatter",
		Name:      "api_requests_total",
		Help:      "Number of HTTP API requests.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes HTTP request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "slotsquatter",
		Name:      "api_request_duration_seconds",
		Help:      "HTTP API request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	// APIActiveConnections tracks in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "slotsquatter",
		Name:      "api_active_connections",
		Help:      "In-flight HTTP API requests.",
	})
)
