// Package worker holds the refresh worker: its configuration, the job that
// re-fetches configured categories, and the probe server it exposes.
package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"news-fetcher/internal/config"
	"news-fetcher/internal/domain/entity"
)

// WorkerConfig controls when and how the cache is refreshed.
type WorkerConfig struct {
	// CronSchedule is a standard five-field cron expression.
	CronSchedule string
	// Timezone is the IANA zone CronSchedule is evaluated in.
	Timezone string
	// Categories are refreshed on every run; invalid entries are dropped at load.
	Categories []string
	// MaxConcurrent bounds how many categories are fetched at once.
	MaxConcurrent int
	// RefreshTimeout bounds one complete run.
	RefreshTimeout time.Duration
	// HealthPort serves /health, /health/ready and /metrics.
	HealthPort int
}

// DefaultConfig refreshes the demonstration categories every thirty minutes.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule:   "*/30 * * * *",
		Timezone:       "UTC",
		Categories:     []string{"science", "sports", "technology"},
		MaxConcurrent:  2,
		RefreshTimeout: 5 * time.Minute,
		HealthPort:     9091,
	}
}

// Validate reports every invalid field at once.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if len(c.Categories) == 0 {
		errs = append(errs, errors.New("categories: cannot be empty"))
	}
	for _, cat := range c.Categories {
		if err := entity.ValidateCategory(cat); err != nil {
			errs = append(errs, fmt.Errorf("categories: %q: %w", cat, err))
		}
	}
	if err := config.ValidateIntRange(c.MaxConcurrent, 1, 10); err != nil {
		errs = append(errs, fmt.Errorf("max concurrent: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.RefreshTimeout); err != nil {
		errs = append(errs, fmt.Errorf("refresh timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}

	return errors.Join(errs...)
}

// LoadConfigFromEnv reads the worker configuration. Invalid values fall back
// to their defaults with a warning and a metric, so the result is always usable.
//
// Environment variables:
//   - CRON_SCHEDULE (default "*/30 * * * *")
//   - WORKER_TIMEZONE (default "UTC")
//   - REFRESH_CATEGORIES, comma separated (default "science,sports,technology")
//   - REFRESH_MAX_CONCURRENT, 1-10 (default 2)
//   - REFRESH_TIMEOUT, 1m-1h (default 5m)
//   - WORKER_HEALTH_PORT, 1024-65535 (default 9091)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) *WorkerConfig {
	cfg := DefaultConfig()
	fellBack := false

	apply := func(field string, applied bool, warnings []string) {
		if !applied {
			return
		}
		fellBack = true
		if metrics != nil {
			metrics.RecordFallback(field)
		}
		for _, w := range warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", w))
		}
	}

	schedule := config.LoadEnvWithFallback("CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.CronSchedule = schedule.Value
	apply("cron_schedule", schedule.FallbackApplied, schedule.Warnings)

	tz := config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = tz.Value
	apply("timezone", tz.FallbackApplied, tz.Warnings)

	cats, warnings := filterCategories(config.GetEnvStringList("REFRESH_CATEGORIES", cfg.Categories))
	if len(cats) == 0 {
		warnings = append(warnings, "no valid category in REFRESH_CATEGORIES, falling back to defaults")
		cats = DefaultConfig().Categories
	}
	cfg.Categories = cats
	apply("categories", len(warnings) > 0, warnings)

	concurrent := config.LoadEnvInt("REFRESH_MAX_CONCURRENT", cfg.MaxConcurrent, func(v int) error {
		return config.ValidateIntRange(v, 1, 10)
	})
	cfg.MaxConcurrent = concurrent.Value
	apply("max_concurrent", concurrent.FallbackApplied, concurrent.Warnings)

	timeout := config.LoadEnvDuration("REFRESH_TIMEOUT", cfg.RefreshTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, time.Minute, time.Hour)
	})
	cfg.RefreshTimeout = timeout.Value
	apply("refresh_timeout", timeout.FallbackApplied, timeout.Warnings)

	port := config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = port.Value
	apply("health_port", port.FallbackApplied, port.Warnings)

	if metrics != nil {
		metrics.SetFallbackActive(fellBack)
		metrics.RecordLoadTimestamp()
	}
	return &cfg
}

// filterCategories drops invalid and repeated (case-insensitive) categories.
func filterCategories(in []string) ([]string, []string) {
	var (
		out      []string
		warnings []string
		seen     = make(map[string]struct{}, len(in))
	)
	for _, cat := range in {
		if err := entity.ValidateCategory(cat); err != nil {
			warnings = append(warnings, fmt.Sprintf("dropping category %q: %v", cat, err))
			continue
		}
		key := entity.CategoryKey(cat)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, cat)
	}
	return out, warnings
}
