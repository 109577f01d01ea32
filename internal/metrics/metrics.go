// Package metrics exposes prometheus collectors for the chat relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RelayRequestsTotal counts relay requests by transport and outcome.
	RelayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portfolio",
			Subsystem: "chat",
			Name:      "relay_requests_total",
			Help:      "Total number of chat relay requests",
		},
		[]string{"transport", "outcome"},
	)

	// ProviderDuration observes upstream completion latency.
	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "portfolio",
			Subsystem: "chat",
			Name:      "provider_duration_seconds",
			Help:      "LLM provider call duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20},
		},
		[]string{"status"},
	)

	// QuotaRejectionsTotal counts requests refused because the session quota is spent.
	QuotaRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "portfolio",
			Subsystem: "chat",
			Name:      "quota_rejections_total",
			Help:      "Requests rejected by the server-side session quota",
		},
	)

	// RateLimitedTotal counts requests refused by the per-IP limiter.
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "portfolio",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		},
	)

	// ActiveSockets tracks open websocket chat connections.
	ActiveSockets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "portfolio",
			Subsystem: "chat",
			Name:      "websocket_connections",
			Help:      "Open websocket chat connections",
		},
	)
)

// Outcome labels.
const (
	OutcomeSuccess       = "success"
	OutcomeMissingKey    = "missing_key"
	OutcomeBadRequest    = "bad_request"
	OutcomeProviderError = "provider_error"
	OutcomeQuota         = "quota"
	OutcomeBusy          = "busy"
)

// Handler returns the prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
