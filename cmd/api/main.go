package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"news-fetcher/internal/config"
	pgRepo "news-fetcher/internal/infra/adapter/persistence/postgres"
	sqliteRepo "news-fetcher/internal/infra/adapter/persistence/sqlite"
	"news-fetcher/internal/infra/db"
	"news-fetcher/internal/infra/newsapi"
	"news-fetcher/internal/infra/scraper"
	"news-fetcher/internal/observability/logging"
	"news-fetcher/internal/observability/tracing"
	"news-fetcher/internal/repository"
	"news-fetcher/internal/resilience/circuitbreaker"
	"news-fetcher/internal/resilience/retry"
	"news-fetcher/internal/usecase/fetch"

	hhttp "news-fetcher/internal/handler/http"
	"news-fetcher/internal/handler/http/middleware"
	"news-fetcher/internal/handler/http/news"
	"news-fetcher/internal/handler/http/requestid"
)

const maxRequestBody = 1 << 16

func main() {
	config.LoadDotEnv(slog.Default())
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	cfg, err := config.LoadAppConfig(logger, config.NewConfigMetrics("api", prometheus.DefaultRegisterer))
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	shutdownTracing := tracing.Setup(config.GetEnvBool("TRACE_SAMPLE_ALL", true))
	defer func() { _ = shutdownTracing(context.Background()) }()

	database := initDatabase(logger, cfg.Database)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	components := setupServer(logger, database, cfg)
	runServer(logger, components, cfg.HTTP)
}

// initDatabase opens the item store database and applies migrations.
func initDatabase(logger *slog.Logger, cfg config.DatabaseConfig) *sql.DB {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	database, err := db.Open(ctx, cfg.Driver, cfg.URL)
	if err != nil {
		logger.Error("failed to open database",
			slog.String("driver", cfg.Driver),
			slog.Any("error", err))
		os.Exit(1)
	}
	if err := db.MigrateUp(ctx, database, cfg.Driver); err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database ready", slog.String("driver", cfg.Driver))
	return database
}

// newStore picks the item store implementation for the configured driver.
func newStore(database *sql.DB, driver string) repository.ItemStore {
	guard := circuitbreaker.NewDBGuard()
	if driver == config.DriverPostgres {
		return pgRepo.NewStore(database, guard)
	}
	return sqliteRepo.NewStore(database, guard)
}

// newSource builds the remote news source, or returns nil in demonstration
// mode. The breakers are reported by the health endpoint.
func newSource(logger *slog.Logger, cfg config.NewsAPIConfig) (fetch.Source, []hhttp.BreakerReporter) {
	if cfg.DemoMode() {
		logger.Warn("no news API credential configured, serving demonstration data")
		return nil, nil
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	switch cfg.Provider {
	case config.ProviderRSS:
		src := scraper.NewRSSSearchSource(cfg.RSSSearchURL, httpClient)
		logger.Info("news source configured", slog.String("provider", cfg.Provider))
		return src, []hhttp.BreakerReporter{src.Breaker()}
	default:
		client := newsapi.NewClient(newsapi.Config{
			BaseURL:           cfg.URL,
			APIKey:            cfg.Key,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}, httpClient)
		logger.Info("news source configured",
			slog.String("provider", cfg.Provider),
			slog.Float64("requests_per_second", cfg.RequestsPerSecond))
		return client, []hhttp.BreakerReporter{client.Breaker()}
	}
}

// ServerComponents holds what runServer needs to serve and clean up.
type ServerComponents struct {
	Handler     http.Handler
	RateLimiter *middleware.RateLimiter
}

// setupServer wires the fetch service, routes and middleware chain.
func setupServer(logger *slog.Logger, database *sql.DB, cfg *config.AppConfig) *ServerComponents {
	source, breakers := newSource(logger, cfg.NewsAPI)

	demoData, err := fetch.LoadDemoData(cfg.Fetch.DemoDataFile)
	if err != nil {
		logger.Error("failed to load demonstration data", slog.Any("error", err))
		os.Exit(1)
	}

	backoff := retry.FetchConfig()
	backoff.MaxAttempts = cfg.Fetch.MaxAttempts
	backoff.InitialDelay = cfg.Fetch.BackoffInitial
	backoff.MaxDelay = cfg.Fetch.BackoffMax

	svc := fetch.NewService(source, newStore(database, cfg.Database.Driver), fetch.Config{
		MaxAttempts: cfg.Fetch.MaxAttempts,
		Backoff:     backoff,
	}, fetch.WithLogger(logger), fetch.WithDemoData(demoData))

	trusted, err := middleware.ParseTrustedProxies(cfg.HTTP.TrustedProxies)
	if err != nil {
		logger.Error("failed to parse trusted proxies", slog.Any("error", err))
		os.Exit(1)
	}
	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.HTTP.RateLimitRPS,
		Burst:             cfg.HTTP.RateLimitBurst,
		TrustedProxies:    trusted,
	})
	if !limiter.Enabled() {
		logger.Warn("fetch rate limiting is DISABLED")
	}

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", hhttp.RootHandler())
	mux.Handle("GET /health", &hhttp.HealthHandler{
		DB:       database,
		Version:  cfg.HTTP.Version,
		DemoMode: svc.DemoMode(),
		Breakers: breakers,
	})
	mux.Handle("GET /ready", &hhttp.ReadyHandler{DB: database})
	mux.Handle("GET /live", &hhttp.LiveHandler{})
	mux.Handle("GET /metrics", hhttp.MetricsHandler())
	news.Register(mux, svc, cfg.Fetch.Timeout, limiter.Middleware)

	logger.Info("CORS enabled", slog.Any("allowed_origins", cfg.HTTP.AllowedOrigins))

	handler := hhttp.Chain(mux,
		middleware.CORS(middleware.DefaultCORSConfig(cfg.HTTP.AllowedOrigins)),
		requestid.Middleware,
		tracing.Middleware,
		hhttp.Recover(logger),
		hhttp.Logging(logger),
		hhttp.LimitRequestBody(maxRequestBody),
		hhttp.MetricsMiddleware,
	)

	return &ServerComponents{Handler: handler, RateLimiter: limiter}
}

// runServer starts the HTTP server and handles graceful shutdown.
func runServer(logger *slog.Logger, components *ServerComponents, cfg config.HTTPConfig) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if components.RateLimiter.Enabled() {
		go func() {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					components.RateLimiter.Cleanup()
				}
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           components.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", cfg.Addr),
			slog.String("version", cfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
