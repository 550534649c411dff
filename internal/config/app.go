package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	// ProviderNewsAPI selects the NewsAPI "everything" endpoint.
	ProviderNewsAPI = "newsapi"
	// ProviderRSS selects the Google News RSS search feed.
	ProviderRSS = "rss"

	// DriverSQLite stores items in a local SQLite file.
	DriverSQLite = "sqlite"
	// DriverPostgres stores items in PostgreSQL.
	DriverPostgres = "postgres"

	// DemoAPIKey is the placeholder credential that forces demonstration mode.
	DemoAPIKey = "demo_key_for_testing"
)

// NewsAPIConfig configures the remote news source.
type NewsAPIConfig struct {
	Provider          string
	Key               string
	URL               string
	RSSSearchURL      string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// DemoMode reports whether fetches are answered from the built-in datasets.
// The NewsAPI provider needs a key, so an empty key also selects demo mode
// there; the RSS provider is keyless and only the placeholder selects it.
func (c NewsAPIConfig) DemoMode() bool {
	if c.Key == DemoAPIKey {
		return true
	}
	return c.Key == "" && c.Provider != ProviderRSS
}

// FetchConfig configures the retry loop of a single fetch.
type FetchConfig struct {
	MaxAttempts    int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	Timeout        time.Duration
	DemoDataFile   string
}

// DatabaseConfig selects and locates the item store.
type DatabaseConfig struct {
	Driver string
	URL    string
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr           string
	AllowedOrigins []string
	Version        string
	// RateLimitRPS is the sustained fetch rate per client; 0 disables limiting.
	RateLimitRPS   float64
	RateLimitBurst int
	TrustedProxies []string
}

// AppConfig is the full API server configuration.
type AppConfig struct {
	NewsAPI  NewsAPIConfig
	Fetch    FetchConfig
	Database DatabaseConfig
	HTTP     HTTPConfig
}

// DefaultAppConfig returns the configuration used when no variables are set.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		NewsAPI: NewsAPIConfig{
			Provider:          ProviderNewsAPI,
			URL:               "https://newsapi.org/v2/everything",
			RSSSearchURL:      "https://news.google.com/rss/search",
			Timeout:           10 * time.Second,
			RequestsPerSecond: 5,
		},
		Fetch: FetchConfig{
			MaxAttempts:    5,
			BackoffInitial: 250 * time.Millisecond,
			BackoffMax:     8 * time.Second,
			Timeout:        60 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			URL:    "./news.db",
		},
		HTTP: HTTPConfig{
			Addr:           ":8000",
			AllowedOrigins: []string{"http://localhost:5173"},
			Version:        "dev",
			RateLimitRPS:   1,
			RateLimitBurst: 5,
		},
	}
}

// Validate checks cross-field constraints that fallbacks cannot repair.
func (c *AppConfig) Validate() error {
	var errs []error

	if c.Fetch.BackoffInitial > c.Fetch.BackoffMax {
		errs = append(errs, fmt.Errorf("fetch backoff: initial %v exceeds max %v",
			c.Fetch.BackoffInitial, c.Fetch.BackoffMax))
	}
	if err := ValidateIntRange(c.Fetch.MaxAttempts, 1, 5); err != nil {
		errs = append(errs, fmt.Errorf("fetch max attempts: %w", err))
	}
	if worst := c.WorstCaseFetch(); c.Fetch.Timeout < worst {
		errs = append(errs, fmt.Errorf("fetch timeout: %v is below the worst-case retry loop of %v",
			c.Fetch.Timeout, worst))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database url: cannot be empty"))
	}
	if len(c.HTTP.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("cors allowed origins: cannot be empty"))
	}

	return errors.Join(errs...)
}

// WorstCaseFetch is the longest a retry loop can run before falling back to
// the cache: every attempt hits the remote timeout and every gap but the last
// sleeps the capped backoff.
func (c *AppConfig) WorstCaseFetch() time.Duration {
	total := time.Duration(c.Fetch.MaxAttempts) * c.NewsAPI.Timeout
	delay := c.Fetch.BackoffInitial
	for i := 1; i < c.Fetch.MaxAttempts; i++ {
		total += min(delay, c.Fetch.BackoffMax)
		delay *= 2
	}
	return total
}

// loadTracker logs and counts fallbacks while a configuration is assembled.
type loadTracker struct {
	logger   *slog.Logger
	metrics  *ConfigMetrics
	fellBack bool
}

func track[T any](t *loadTracker, field string, r LoadResult[T]) T {
	if r.FallbackApplied {
		t.fellBack = true
		if t.metrics != nil {
			t.metrics.RecordFallback(field)
		}
		for _, warning := range r.Warnings {
			t.logger.Warn("Configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", warning))
		}
	}
	return r.Value
}

func (t *loadTracker) finish() {
	if t.metrics == nil {
		return
	}
	t.metrics.SetFallbackActive(t.fellBack)
	t.metrics.RecordLoadTimestamp()
}

// LoadAppConfig reads the API server configuration from the environment.
// metrics may be nil.
func LoadAppConfig(logger *slog.Logger, metrics *ConfigMetrics) (*AppConfig, error) {
	cfg := DefaultAppConfig()
	t := &loadTracker{logger: logger, metrics: metrics}

	cfg.NewsAPI.Key = GetEnvString("NEWS_API_KEY", "")
	cfg.NewsAPI.Provider = track(t, "news_provider",
		LoadEnvWithFallback("NEWS_PROVIDER", cfg.NewsAPI.Provider, OneOf(ProviderNewsAPI, ProviderRSS)))
	cfg.NewsAPI.URL = track(t, "news_api_url",
		LoadEnvWithFallback("NEWS_API_URL", cfg.NewsAPI.URL, ValidateHTTPURL))
	cfg.NewsAPI.RSSSearchURL = track(t, "rss_search_url",
		LoadEnvWithFallback("RSS_SEARCH_URL", cfg.NewsAPI.RSSSearchURL, ValidateHTTPURL))
	cfg.NewsAPI.Timeout = track(t, "news_api_timeout",
		LoadEnvDuration("NEWS_API_TIMEOUT", cfg.NewsAPI.Timeout, func(d time.Duration) error {
			return ValidateDuration(d, time.Second, 2*time.Minute)
		}))
	cfg.NewsAPI.RequestsPerSecond = track(t, "news_api_rps",
		LoadEnvFloat("NEWS_API_RPS", cfg.NewsAPI.RequestsPerSecond, ValidatePositiveFloat))

	cfg.Fetch.MaxAttempts = track(t, "fetch_max_attempts",
		LoadEnvInt("FETCH_MAX_ATTEMPTS", cfg.Fetch.MaxAttempts, func(v int) error {
			return ValidateIntRange(v, 1, 5)
		}))
	cfg.Fetch.BackoffInitial = track(t, "fetch_backoff_initial",
		LoadEnvDuration("FETCH_BACKOFF_INITIAL", cfg.Fetch.BackoffInitial, ValidatePositiveDuration))
	cfg.Fetch.BackoffMax = track(t, "fetch_backoff_max",
		LoadEnvDuration("FETCH_BACKOFF_MAX", cfg.Fetch.BackoffMax, ValidatePositiveDuration))
	cfg.Fetch.Timeout = track(t, "fetch_timeout",
		LoadEnvDuration("FETCH_TIMEOUT", cfg.Fetch.Timeout, func(d time.Duration) error {
			return ValidateDuration(d, time.Second, 10*time.Minute)
		}))
	cfg.Fetch.DemoDataFile = GetEnvString("DEMO_DATA_FILE", "")

	cfg.Database.Driver = track(t, "db_driver",
		LoadEnvWithFallback("DB_DRIVER", cfg.Database.Driver, OneOf(DriverSQLite, DriverPostgres)))
	cfg.Database.URL = GetEnvString("DATABASE_URL", cfg.Database.URL)

	cfg.HTTP.Addr = GetEnvString("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.AllowedOrigins = GetEnvStringList("CORS_ALLOWED_ORIGINS", cfg.HTTP.AllowedOrigins)
	cfg.HTTP.Version = GetEnvString("VERSION", cfg.HTTP.Version)
	cfg.HTTP.RateLimitRPS = track(t, "rate_limit_rps",
		LoadEnvFloat("RATE_LIMIT_RPS", cfg.HTTP.RateLimitRPS, func(v float64) error {
			if v < 0 {
				return errors.New("must be zero or positive")
			}
			return nil
		}))
	cfg.HTTP.RateLimitBurst = track(t, "rate_limit_burst",
		LoadEnvInt("RATE_LIMIT_BURST", cfg.HTTP.RateLimitBurst, func(v int) error {
			return ValidateIntRange(v, 1, 100)
		}))
	cfg.HTTP.TrustedProxies = GetEnvStringList("RATE_LIMIT_TRUSTED_PROXIES", nil)

	t.finish()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
