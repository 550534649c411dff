package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"news-fetcher/internal/config"
	pgRepo "news-fetcher/internal/infra/adapter/persistence/postgres"
	sqliteRepo "news-fetcher/internal/infra/adapter/persistence/sqlite"
	"news-fetcher/internal/infra/db"
	"news-fetcher/internal/infra/newsapi"
	"news-fetcher/internal/infra/scraper"
	workerPkg "news-fetcher/internal/infra/worker"
	"news-fetcher/internal/observability/logging"
	"news-fetcher/internal/repository"
	"news-fetcher/internal/resilience/circuitbreaker"
	"news-fetcher/internal/resilience/retry"
	"news-fetcher/internal/usecase/fetch"
)

func main() {
	config.LoadDotEnv(slog.Default())
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	appConfig, err := config.LoadAppConfig(logger, config.NewConfigMetrics("worker_app", prometheus.DefaultRegisterer))
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if appConfig.NewsAPI.DemoMode() {
		logger.Error("refresh worker needs a news source; set NEWS_API_KEY or NEWS_PROVIDER=rss")
		os.Exit(1)
	}

	workerMetrics := workerPkg.NewWorkerMetrics(prometheus.DefaultRegisterer)
	workerConfig := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerConfig.CronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Any("categories", workerConfig.Categories),
		slog.Int("max_concurrent", workerConfig.MaxConcurrent),
		slog.Duration("refresh_timeout", workerConfig.RefreshTimeout),
		slog.Int("health_port", workerConfig.HealthPort))

	database := initDatabase(logger, appConfig.Database)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	svc := setupFetchService(logger, database, appConfig)
	refresher := workerPkg.NewRefresher(svc, workerConfig, workerMetrics, logger)

	startCronWorker(ctx, logger, refresher, workerConfig, healthServer)
}

// initDatabase opens the item store and applies migrations; the worker may
// start before the API.
func initDatabase(logger *slog.Logger, cfg config.DatabaseConfig) *sql.DB {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	database, err := db.Open(ctx, cfg.Driver, cfg.URL)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	if err := db.MigrateUp(ctx, database, cfg.Driver); err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// setupFetchService builds the same orchestrator the API uses.
func setupFetchService(logger *slog.Logger, database *sql.DB, cfg *config.AppConfig) *fetch.Service {
	httpClient := &http.Client{Timeout: cfg.NewsAPI.Timeout}

	var source fetch.Source
	if cfg.NewsAPI.Provider == config.ProviderRSS {
		source = scraper.NewRSSSearchSource(cfg.NewsAPI.RSSSearchURL, httpClient)
	} else {
		source = newsapi.NewClient(newsapi.Config{
			BaseURL:           cfg.NewsAPI.URL,
			APIKey:            cfg.NewsAPI.Key,
			Timeout:           cfg.NewsAPI.Timeout,
			RequestsPerSecond: cfg.NewsAPI.RequestsPerSecond,
		}, httpClient)
	}

	var store repository.ItemStore
	if cfg.Database.Driver == config.DriverPostgres {
		store = pgRepo.NewStore(database, circuitbreaker.NewDBGuard())
	} else {
		store = sqliteRepo.NewStore(database, circuitbreaker.NewDBGuard())
	}

	backoff := retry.FetchConfig()
	backoff.MaxAttempts = cfg.Fetch.MaxAttempts
	backoff.InitialDelay = cfg.Fetch.BackoffInitial
	backoff.MaxDelay = cfg.Fetch.BackoffMax

	return fetch.NewService(source, store, fetch.Config{
		MaxAttempts: cfg.Fetch.MaxAttempts,
		Backoff:     backoff,
	}, fetch.WithLogger(logger))
}

// startCronWorker schedules refresh runs and blocks until ctx is canceled.
func startCronWorker(ctx context.Context, logger *slog.Logger, refresher *workerPkg.Refresher, cfg *workerPkg.WorkerConfig, healthServer *workerPkg.HealthServer) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	_, err = c.AddFunc(cfg.CronSchedule, func() {
		refresher.Run(ctx)
	})
	if err != nil {
		logger.Error("failed to add cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()

	healthServer.SetReady(true)
	logger.Info("worker started", slog.String("schedule", cfg.CronSchedule), slog.String("timezone", cfg.Timezone))

	<-ctx.Done()
	logger.Info("shutting down worker...")
	healthServer.SetReady(false)
	<-c.Stop().Done()
	logger.Info("worker stopped")
}
