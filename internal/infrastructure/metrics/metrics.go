// Package metrics holds the prometheus collectors for the price service.
// Collectors are package-level and registered once in init; components that
// cannot depend on prometheus directly (the quote orchestrator) go through
// the Recorder adapter instead.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/macrohuang/invest-log/internal/application"
)

var (
	// Quote pipeline metrics
	QuotesServed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_requests_total",
			Help: "Quote requests by outcome (cache, fetched, failed, ...)",
		},
		[]string{"outcome"},
	)
	ProviderAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_provider_attempts_total",
			Help: "Provider fetch attempts by source and result",
		},
		[]string{"source", "ok"},
	)
	ProviderSkips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_provider_skipped_total",
			Help: "Attempts skipped because the provider was cooling down",
		},
		[]string{"source"},
	)
	BreakerTrips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_breaker_trips_total",
			Help: "Circuit breaker trips by provider",
		},
		[]string{"source"},
	)
	ProviderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quote_provider_fetch_duration_seconds",
			Help:    "Upstream fetch duration by provider",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// Sweep metrics
	SweepRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_runs_total",
			Help: "Price sweep runs by currency and status",
		},
		[]string{"currency", "status"},
	)
	SweepSymbolsUpdated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_symbols_updated_total",
			Help: "Symbols refreshed by the sweep",
		},
		[]string{"currency"},
	)

	// API metrics
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func init() {
	// MustRegister panics if registration fails (e.g. duplicate)
	prometheus.MustRegister(
		QuotesServed, ProviderAttempts, ProviderSkips, BreakerTrips, ProviderDuration,
		SweepRuns, SweepSymbolsUpdated,
		HTTPRequestDuration,
	)
}

// Ensure Recorder implements application.QuoteMetrics.
var _ application.QuoteMetrics = Recorder{}

// Recorder adapts orchestrator events onto the prometheus collectors.
type Recorder struct{}

func (Recorder) QuoteServed(outcome string) {
	QuotesServed.WithLabelValues(outcome).Inc()
}

func (Recorder) ProviderAttempt(source string, ok bool) {
	ProviderAttempts.WithLabelValues(source, strconv.FormatBool(ok)).Inc()
}

func (Recorder) ProviderLatency(source string, d time.Duration) {
	ProviderDuration.WithLabelValues(source).Observe(d.Seconds())
}

func (Recorder) ProviderSkipped(source string) {
	ProviderSkips.WithLabelValues(source).Inc()
}

func (Recorder) BreakerTripped(source string) {
	BreakerTrips.WithLabelValues(source).Inc()
}
