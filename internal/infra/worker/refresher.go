package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"news-fetcher/internal/handler/http/respond"
	"news-fetcher/internal/usecase/fetch"
)

// Fetcher is the part of fetch.Service the refresher drives.
type Fetcher interface {
	Fetch(ctx context.Context, category string, maxAttempts int) (*fetch.Result, error)
}

// RefreshStats summarizes one run.
type RefreshStats struct {
	Categories int
	Persisted  int
	Failed     int
	// ByStatus counts successful categories per result status.
	ByStatus map[string]int
	Duration time.Duration
}

// Refresher re-fetches a fixed list of categories so cached items stay recent.
type Refresher struct {
	svc     Fetcher
	cfg     *WorkerConfig
	metrics *WorkerMetrics
	logger  *slog.Logger
}

// NewRefresher creates a Refresher. metrics may be nil.
func NewRefresher(svc Fetcher, cfg *WorkerConfig, metrics *WorkerMetrics, logger *slog.Logger) *Refresher {
	return &Refresher{svc: svc, cfg: cfg, metrics: metrics, logger: logger}
}

// Run fetches every configured category, at most MaxConcurrent at a time.
// A failing category is logged and counted; it does not stop the others.
func (r *Refresher) Run(ctx context.Context) RefreshStats {
	start := time.Now()
	r.record(func(m *WorkerMetrics) { m.RecordRun("started") })
	r.logger.Info("refresh started", slog.Int("categories", len(r.cfg.Categories)))

	ctx, cancel := context.WithTimeout(ctx, r.cfg.RefreshTimeout)
	defer cancel()

	stats := RefreshStats{Categories: len(r.cfg.Categories), ByStatus: make(map[string]int)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.MaxConcurrent)
	for _, category := range r.cfg.Categories {
		g.Go(func() error {
			res, err := r.svc.Fetch(gctx, category, 0)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Failed++
				r.record(func(m *WorkerMetrics) { m.RecordCategory("error") })
				r.logger.Error("category refresh failed",
					slog.String("category", category),
					slog.String("error", respond.SanitizeError(err)))
				return nil
			}

			status := string(res.Status())
			stats.ByStatus[status]++
			stats.Persisted += res.Persisted
			r.record(func(m *WorkerMetrics) { m.RecordCategory(status) })
			r.logger.Debug("category refreshed",
				slog.String("category", category),
				slog.String("status", status),
				slog.Int("attempts", res.Attempts),
				slog.Int("persisted", res.Persisted))
			return nil
		})
	}
	_ = g.Wait()

	stats.Duration = time.Since(start)
	result := "success"
	if stats.Failed > 0 {
		result = "partial_failure"
	}
	r.record(func(m *WorkerMetrics) {
		m.RecordRun(result)
		m.RecordDuration(stats.Duration.Seconds())
		if stats.Failed == 0 {
			m.RecordLastSuccess()
		}
	})

	r.logger.Info("refresh completed",
		slog.Int("categories", stats.Categories),
		slog.Int("failed", stats.Failed),
		slog.Int("persisted", stats.Persisted),
		slog.Any("by_status", stats.ByStatus),
		slog.Duration("duration", stats.Duration))
	return stats
}

func (r *Refresher) record(fn func(m *WorkerMetrics)) {
	if r.metrics != nil {
		fn(r.metrics)
	}
}
