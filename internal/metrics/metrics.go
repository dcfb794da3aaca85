// Package metrics exposes Prometheus collectors for the archive service.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	capturesTotal            *prometheus.CounterVec
	strategyFallbacksTotal   *prometheus.CounterVec
	screenshotProvidersTotal *prometheus.CounterVec
	httpRequestsTotal        *prometheus.CounterVec
	httpRequestDuration      *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors on the default registry. Safe to call more
// than once.
func Init() {
	once.Do(func() {
		capturesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archive_captures_total",
				Help: "Completed captures, labeled by site class and outcome strategy.",
			},
			[]string{"class", "outcome"},
		)

		strategyFallbacksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archive_strategy_fallbacks_total",
				Help: "Times a capture strategy was rejected and the next candidate tried.",
			},
			[]string{"stage"},
		)

		screenshotProvidersTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archive_screenshot_provider_total",
				Help: "Screenshot provider attempts, labeled by provider and result.",
			},
			[]string{"provider", "result"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests served, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 45},
			},
			[]string{"method", "route"},
		)
	})
}

// CaptureCompleted records one finished capture.
func CaptureCompleted(class, outcome string) {
	if capturesTotal != nil {
		capturesTotal.WithLabelValues(class, outcome).Inc()
	}
}

// StrategyFallback records one rejected strategy attempt.
func StrategyFallback(stage string) {
	if strategyFallbacksTotal != nil {
		strategyFallbacksTotal.WithLabelValues(stage).Inc()
	}
}

// ScreenshotAttempt records one screenshot provider outcome.
func ScreenshotAttempt(provider string, accepted bool) {
	if screenshotProvidersTotal != nil {
		result := "rejected"
		if accepted {
			result = "accepted"
		}
		screenshotProvidersTotal.WithLabelValues(provider, result).Inc()
	}
}

// ObserveHTTPRequest records a served HTTP request.
func ObserveHTTPRequest(method, route, code string, seconds float64) {
	if httpRequestsTotal != nil {
		httpRequestsTotal.WithLabelValues(method, code).Inc()
	}
	if httpRequestDuration != nil {
		httpRequestDuration.WithLabelValues(method, route).Observe(seconds)
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
