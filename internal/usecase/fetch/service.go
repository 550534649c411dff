package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"news-fetcher/internal/domain/entity"
	"news-fetcher/internal/observability/metrics"
	"news-fetcher/internal/observability/tracing"
	"news-fetcher/internal/repository"
	"news-fetcher/internal/resilience/retry"
)

// RecencyWindow bounds both the remote query and the cache lookup.
const RecencyWindow = 7 * 24 * time.Hour

// Config controls the retry loop.
type Config struct {
	// MaxAttempts is used when Fetch is called with maxAttempts <= 0.
	MaxAttempts int
	// Backoff supplies the delay after each failed attempt.
	Backoff retry.Config
	// Demo answers every fetch from the demonstration datasets.
	Demo bool
}

// DefaultConfig returns five attempts with the 0.25s, 0.5s, 1s, 2s schedule.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 5,
		Backoff:     retry.FetchConfig(),
	}
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSleep replaces the context-aware backoff sleep.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Service) { s.sleep = sleep }
}

// WithLogger sets the logger used for attempt warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithDemoData replaces the built-in demonstration datasets.
func WithDemoData(d *DemoData) Option {
	return func(s *Service) { s.demo = d }
}

// Service fetches news for a category with retry, persistence and cache fallback.
type Service struct {
	source Source
	store  repository.ItemStore
	cfg    Config
	demo   *DemoData
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	logger *slog.Logger
	group  singleflight.Group
}

// NewService creates a fetch Service. source may be nil in demo mode.
func NewService(source Source, store repository.ItemStore, cfg Config, opts ...Option) *Service {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.Backoff == (retry.Config{}) {
		cfg.Backoff = retry.FetchConfig()
	}
	s := &Service{
		source: source,
		store:  store,
		cfg:    cfg,
		now:    time.Now,
		sleep:  retry.Sleep,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.demo == nil {
		s.demo = BuiltinDemoData()
	}
	if s.source == nil {
		s.cfg.Demo = true
	}
	return s
}

// DemoMode reports whether fetches are answered from demonstration data.
func (s *Service) DemoMode() bool {
	return s.cfg.Demo
}

// Fetch returns up to entity.PageSize items for category. maxAttempts <= 0
// uses the configured default. Remote failures never fail the call; they
// degrade the result to cached items. Store failures are wrapped in ErrStore.
//
// Concurrent calls for the same category (ignoring case) and attempt budget
// share one execution.
func (s *Service) Fetch(ctx context.Context, category string, maxAttempts int) (*Result, error) {
	if maxAttempts <= 0 {
		maxAttempts = s.cfg.MaxAttempts
	}
	key := fmt.Sprintf("%s#%d", entity.CategoryKey(category), maxAttempts)

	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.fetch(ctx, category, maxAttempts)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result).clone(), nil
}

func (s *Service) fetch(ctx context.Context, category string, maxAttempts int) (res *Result, err error) {
	start := s.now()
	key := entity.CategoryKey(category)

	ctx, span := tracing.GetTracer().Start(ctx, "fetch.Fetch", trace.WithAttributes(
		attribute.String("news.category", key),
		attribute.Int("fetch.max_attempts", maxAttempts),
		attribute.Bool("fetch.demo", s.cfg.Demo),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.Int("fetch.attempts", res.Attempts),
				attribute.Int("fetch.items", len(res.Items)),
				attribute.String("fetch.status", string(res.Status())),
			)
		}
		span.End()
	}()

	if s.cfg.Demo {
		items := s.demo.Items(category, start)
		res = &Result{Items: items, Attempts: 1, FreshCount: len(items), Demo: true}
		metrics.RecordItemsReturned(metrics.OriginDemo, len(items))
		metrics.RecordFetchCompleted(string(res.Status()), s.now().Sub(start))
		return res, nil
	}

	res = &Result{}
	fresh, err := s.collect(ctx, strings.TrimSpace(category), maxAttempts, res)
	if err != nil {
		metrics.RecordFetchFailed("aborted", s.now().Sub(start))
		return nil, err
	}

	var cached []*entity.NewsItem
	err = s.store.Session(ctx, func(repo repository.ItemRepository) error {
		n, err := s.persist(ctx, repo, fresh, key)
		res.Persisted = n
		if err != nil {
			return err
		}
		if len(fresh) >= entity.PageSize {
			return nil
		}

		queryStart := time.Now()
		cached, err = repo.ListRecent(ctx, key, start.Add(-RecencyWindow), entity.PageSize)
		metrics.RecordDBQuery("list_recent", time.Since(queryStart))
		if err != nil {
			return fmt.Errorf("ListRecent: %w", err)
		}
		return nil
	})
	metrics.RecordItemsPersisted(res.Persisted)
	if err != nil {
		metrics.RecordAttempt(string(OutcomeStoreError))
		metrics.RecordFetchFailed("store", s.now().Sub(start))
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	res.Items, res.FreshCount = merge(fresh, cached, entity.PageSize)
	res.CachedCount = len(res.Items) - res.FreshCount

	metrics.RecordItemsReturned(metrics.OriginFresh, res.FreshCount)
	metrics.RecordItemsReturned(metrics.OriginCached, res.CachedCount)
	metrics.RecordFetchCompleted(string(res.Status()), s.now().Sub(start))
	return res, nil
}

// collect runs the retry loop and returns the deduplicated fresh items.
// It fails only when ctx ends.
func (s *Service) collect(ctx context.Context, category string, maxAttempts int, res *Result) ([]*entity.NewsItem, error) {
	var fresh []*entity.NewsItem
	seen := make(map[string]struct{})

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res.Attempts = attempt

		now := s.now()
		articles, err := s.source.Search(ctx, Query{
			Category: category,
			From:     now.Add(-RecencyWindow),
			To:       now,
			PageSize: entity.PageSize,
		})
		if err != nil {
			res.Outcomes = append(res.Outcomes, Outcome{
				Attempt: attempt,
				Kind:    OutcomeRemoteError,
				Err:     fmt.Errorf("%w: %w", ErrRemote, err),
			})
			metrics.RecordAttempt(string(OutcomeRemoteError))

			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("%w: %w", ErrAborted, ctxErr)
			}
			if attempt == maxAttempts {
				s.logger.Warn("fetch attempts exhausted, falling back to cache",
					slog.String("category", category),
					slog.Int("attempts", attempt),
					slog.Any("error", err))
				break
			}

			delay := s.cfg.Backoff.Delay(attempt - 1)
			s.logger.Warn("fetch attempt failed, retrying",
				slog.String("category", category),
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", maxAttempts),
				slog.Duration("delay", delay),
				slog.Any("error", err))
			if err := s.sleep(ctx, delay); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrAborted, err)
			}
			continue
		}

		out := Outcome{Attempt: attempt, Kind: OutcomeOK}
		for _, a := range articles {
			item, ok := toItem(a, now)
			if !ok {
				out.Skipped++
				continue
			}
			if _, dup := seen[item.URL]; dup {
				continue
			}
			seen[item.URL] = struct{}{}
			fresh = append(fresh, item)
			out.Accepted++
		}
		if out.Skipped > 0 {
			out.Kind = OutcomeParseSkip
		}
		res.Outcomes = append(res.Outcomes, out)
		metrics.RecordAttempt(string(out.Kind))

		if len(fresh) >= entity.PageSize {
			break
		}
	}
	return fresh, nil
}

// persist stores every item whose URL is not yet known, tagged with category.
func (s *Service) persist(ctx context.Context, repo repository.ItemRepository, items []*entity.NewsItem, category string) (int, error) {
	created := 0
	for _, it := range items {
		exists, err := repo.ExistsByURL(ctx, it.URL)
		if err != nil {
			return created, fmt.Errorf("ExistsByURL: %w", err)
		}
		if exists {
			continue
		}
		if err := repo.Create(ctx, it.Persist(category)); err != nil {
			return created, fmt.Errorf("Create: %w", err)
		}
		created++
	}
	return created, nil
}

// toItem drops articles without a URL or publish time.
func toItem(a Article, fetchedAt time.Time) (*entity.NewsItem, bool) {
	url := strings.TrimSpace(a.URL)
	if url == "" || a.PublishedAt.IsZero() {
		return nil, false
	}
	return entity.NewNewsItem(a.Title, a.Description, url, a.SourceName, a.PublishedAt, fetchedAt), true
}

// merge concatenates fresh then cached, drops repeated URLs and truncates to
// limit. It also reports how many of the returned items are fresh.
func merge(fresh, cached []*entity.NewsItem, limit int) ([]*entity.NewsItem, int) {
	all := make([]*entity.NewsItem, 0, len(fresh)+len(cached))
	all = append(all, fresh...)
	all = append(all, cached...)
	all = entity.DedupeByURL(all)
	if len(all) > limit {
		all = all[:limit]
	}

	freshCount := min(len(entity.DedupeByURL(fresh)), len(all))
	return all, freshCount
}

// IsStoreError reports whether err came from the item store.
func IsStoreError(err error) bool {
	return errors.Is(err, ErrStore)
}
