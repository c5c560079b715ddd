/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package metrics holds the Prometheus collectors shared by the server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Session Metrics
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "promptparty_sessions_active",
		Help: "The current number of in-memory game sessions.",
	})
	SessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptparty_sessions_started_total",
		Help: "The total number of game sessions created.",
	}, []string{"game"})
	SessionsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptparty_sessions_finished_total",
		Help: "The total number of game sessions that reached a terminal result or expired.",
	}, []string{"game", "outcome"})

	// Generator Metrics
	GeneratorRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptparty_generator_requests_total",
		Help: "The total number of completion API calls by result.",
	}, []string{"status"})
	GeneratorFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptparty_generator_fallbacks_total",
		Help: "The total number of times generated content was replaced by a built-in fallback.",
	}, []string{"game", "stage"})

	// HTTP Metrics
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promptparty_rate_limited_total",
		Help: "The total number of API requests rejected by the rate limiter.",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
