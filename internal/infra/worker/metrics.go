package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"news-fetcher/internal/config"
)

// WorkerMetrics are the Prometheus metrics of the refresh worker.
type WorkerMetrics struct {
	*config.ConfigMetrics

	// RefreshRunsTotal counts runs by result (started, success, partial_failure).
	RefreshRunsTotal *prometheus.CounterVec
	// RefreshDurationSeconds observes the wall time of a run.
	RefreshDurationSeconds prometheus.Histogram
	// CategoriesRefreshedTotal counts per-category outcomes by result status.
	CategoriesRefreshedTotal *prometheus.CounterVec
	// LastSuccessTimestamp is the end time of the last run without failures.
	LastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics registers the worker metrics on reg; nil means the default registerer.
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker", reg),

		RefreshRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_refresh_runs_total",
			Help: "Total number of refresh runs by result",
		}, []string{"result"}),

		RefreshDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_refresh_duration_seconds",
			Help:    "Duration of a refresh run in seconds",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
		}),

		CategoriesRefreshedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_categories_refreshed_total",
			Help: "Total number of category refreshes by outcome",
		}, []string{"outcome"}),

		LastSuccessTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "worker_refresh_last_success_timestamp",
			Help: "Unix timestamp of the last refresh run without failures",
		}),
	}
}

func (m *WorkerMetrics) RecordRun(result string) {
	m.RefreshRunsTotal.WithLabelValues(result).Inc()
}

func (m *WorkerMetrics) RecordDuration(seconds float64) {
	m.RefreshDurationSeconds.Observe(seconds)
}

// RecordCategory counts one category refresh; outcome is a fetch status or "error".
func (m *WorkerMetrics) RecordCategory(outcome string) {
	m.CategoriesRefreshedTotal.WithLabelValues(outcome).Inc()
}

func (m *WorkerMetrics) RecordLastSuccess() {
	m.LastSuccessTimestamp.SetToCurrentTime()
}
