package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track HTTP request patterns and performance
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration buckets span fast cached answers up to slow retry loops.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)

	HTTPRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_size_bytes",
			Help:    "HTTP request size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 6),
		},
		[]string{"method", "path"},
	)

	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 6),
		},
		[]string{"method", "path"},
	)
)

// Fetch metrics track the retry loop and the composition of its results
var (
	// FetchAttemptsTotal counts remote attempts by outcome kind
	FetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "news_fetch_attempts_total",
			Help: "Total number of remote fetch attempts by outcome",
		},
		[]string{"outcome"},
	)

	// FetchDuration measures a whole fetch including backoff sleeps
	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "news_fetch_duration_seconds",
			Help:    "Duration of a complete fetch in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 13),
		},
	)

	// FetchesTotal counts completed fetches by result status
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "news_fetches_total",
			Help: "Total number of completed fetches by status",
		},
		[]string{"status"},
	)

	// FetchErrorsTotal counts fetches that failed before producing a result
	FetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "news_fetch_errors_total",
			Help: "Total number of failed fetches by reason",
		},
		[]string{"reason"},
	)

	// ItemsReturnedTotal counts returned items by origin (fresh, cached, demo)
	ItemsReturnedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "news_items_returned_total",
			Help: "Total number of items returned by origin",
		},
		[]string{"origin"},
	)

	ItemsPersistedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "news_items_persisted_total",
			Help: "Total number of new items written to the store",
		},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)
)
