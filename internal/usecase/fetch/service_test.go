package fetch_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news-fetcher/internal/domain/entity"
	"news-fetcher/internal/repository"
	fetchUC "news-fetcher/internal/usecase/fetch"
)

/* ───────── stubs ───────── */

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// scriptedSource answers each attempt from a script; the last entry repeats.
type scriptedSource struct {
	mu      sync.Mutex
	steps   []step
	queries []fetchUC.Query
}

type step struct {
	articles []fetchUC.Article
	err      error
}

func (s *scriptedSource) Search(_ context.Context, q fetchUC.Query) ([]fetchUC.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.queries)
	s.queries = append(s.queries, q)
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	return s.steps[i].articles, s.steps[i].err
}

func (s *scriptedSource) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

// memStore is an in-memory ItemStore keyed by URL.
type memStore struct {
	mu        sync.Mutex
	rows      map[string]*entity.PersistedItem
	sessions  int
	existsErr error
	createErr error
	listErr   error
}

func newMemStore(seed ...*entity.PersistedItem) *memStore {
	m := &memStore{rows: make(map[string]*entity.PersistedItem)}
	for _, it := range seed {
		m.rows[it.URL] = it
	}
	return m
}

func (m *memStore) Session(_ context.Context, fn func(repository.ItemRepository) error) error {
	m.mu.Lock()
	m.sessions++
	m.mu.Unlock()
	return fn(m)
}

func (m *memStore) ExistsByURL(_ context.Context, url string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[url]
	return ok, nil
}

func (m *memStore) Create(_ context.Context, item *entity.PersistedItem) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[item.URL]; ok {
		return fmt.Errorf("UNIQUE constraint failed: news_items.url")
	}
	m.rows[item.URL] = item
	return nil
}

func (m *memStore) ListRecent(_ context.Context, category string, since time.Time, limit int) ([]*entity.NewsItem, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.NewsItem
	for _, it := range m.rows {
		if it.Category == category && !it.PublishedAt.Before(since) {
			n := it.NewsItem
			out = append(out, &n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// sleepRecorder records requested backoff delays without waiting.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func articles(prefix string, n int) []fetchUC.Article {
	out := make([]fetchUC.Article, 0, n)
	for i := range n {
		out = append(out, fetchUC.Article{
			Title:       fmt.Sprintf("%s %d", prefix, i),
			Description: "d",
			URL:         fmt.Sprintf("https://example.com/%s/%d", prefix, i),
			SourceName:  "Example",
			PublishedAt: fixedNow.Add(-time.Duration(i+1) * time.Hour),
		})
	}
	return out
}

func cachedRows(category string, n int) []*entity.PersistedItem {
	out := make([]*entity.PersistedItem, 0, n)
	for i := range n {
		out = append(out, &entity.PersistedItem{
			NewsItem: entity.NewsItem{
				ID:          fmt.Sprintf("cached-%d", i),
				Title:       fmt.Sprintf("cached %d", i),
				URL:         fmt.Sprintf("https://cache.example.com/%d", i),
				PublishedAt: fixedNow.Add(-time.Duration(i+1) * 24 * time.Hour / 2),
				FetchedAt:   fixedNow.Add(-48 * time.Hour),
			},
			Category: category,
		})
	}
	return out
}

func newService(src fetchUC.Source, store repository.ItemStore, rec *sleepRecorder) *fetchUC.Service {
	return fetchUC.NewService(src, store, fetchUC.DefaultConfig(),
		fetchUC.WithClock(func() time.Time { return fixedNow }),
		fetchUC.WithSleep(rec.sleep),
	)
}

func urls(items []*entity.NewsItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.URL)
	}
	return out
}

/* ───────── demonstration mode ───────── */

func TestFetch_Demo_Science(t *testing.T) {
	store := newMemStore()
	svc := fetchUC.NewService(nil, store, fetchUC.DefaultConfig(),
		fetchUC.WithClock(func() time.Time { return fixedNow }))

	res, err := svc.Fetch(context.Background(), "science", 0)
	require.NoError(t, err)

	assert.True(t, res.Demo)
	assert.Equal(t, 1, res.Attempts)
	require.Len(t, res.Items, 3)
	assert.Equal(t, "Scientists Discover New Exoplanet with Potential for Life", res.Items[0].Title)
	assert.Equal(t, fixedNow.Add(-24*time.Hour), res.Items[0].PublishedAt)
	assert.Equal(t, fixedNow, res.Items[0].FetchedAt)
	assert.Equal(t, entity.StatusPartial, res.Status())
	assert.Zero(t, store.sessions, "demo mode must not touch the store")
}

func TestFetch_Demo_CaseInsensitiveAndDefault(t *testing.T) {
	svc := fetchUC.NewService(nil, newMemStore(), fetchUC.Config{Demo: true})

	sports, err := svc.Fetch(context.Background(), "SPORTS", 0)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/sports/championship-upset", sports.Items[0].URL)

	unknown, err := svc.Fetch(context.Background(), "unknown-category", 0)
	require.NoError(t, err)
	require.Len(t, unknown.Items, 3)
	assert.Equal(t, "https://example.com/tech/ai-milestone", unknown.Items[0].URL)
}

func TestFetch_Demo_ConfigFlagIgnoresSource(t *testing.T) {
	src := &scriptedSource{steps: []step{{articles: articles("a", 10)}}}
	svc := fetchUC.NewService(src, newMemStore(), fetchUC.Config{Demo: true})

	res, err := svc.Fetch(context.Background(), "technology", 0)
	require.NoError(t, err)
	assert.True(t, res.Demo)
	assert.Zero(t, src.calls())
}

/* ───────── retry loop ───────── */

func TestFetch_FullPageFirstAttempt(t *testing.T) {
	src := &scriptedSource{steps: []step{{articles: articles("a", 12)}}}
	store := newMemStore()
	rec := &sleepRecorder{}

	res, err := newService(src, store, rec).Fetch(context.Background(), "technology", 5)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Attempts)
	assert.Len(t, res.Items, 10)
	assert.Equal(t, 10, res.FreshCount)
	assert.Zero(t, res.CachedCount)
	assert.Equal(t, entity.StatusFresh, res.Status())
	assert.Empty(t, rec.delays)
	assert.Equal(t, 12, store.count(), "every accumulated item is persisted")
	assert.Equal(t, 12, res.Persisted)
	assert.Equal(t, 1, store.sessions)

	q := src.queries[0]
	assert.Equal(t, "technology", q.Category)
	assert.Equal(t, 10, q.PageSize)
	assert.Equal(t, fixedNow, q.To)
	assert.Equal(t, fixedNow.Add(-7*24*time.Hour), q.From)
}

func TestFetch_AllAttemptsFail_FallsBackToCache(t *testing.T) {
	src := &scriptedSource{steps: []step{{err: errors.New("connection refused")}}}
	store := newMemStore(cachedRows("science", 4)...)
	rec := &sleepRecorder{}

	res, err := newService(src, store, rec).Fetch(context.Background(), "science", 5)
	require.NoError(t, err)

	assert.Equal(t, 5, res.Attempts)
	assert.Equal(t, 5, src.calls())
	assert.Len(t, res.Items, 4)
	assert.Zero(t, res.FreshCount)
	assert.Equal(t, 4, res.CachedCount)
	assert.Equal(t, entity.StatusPartial, res.Status())
	assert.Equal(t, []time.Duration{
		250 * time.Millisecond, 500 * time.Millisecond, time.Second, 2 * time.Second,
	}, rec.delays, "no sleep after the last attempt")

	require.Len(t, res.Outcomes, 5)
	for _, o := range res.Outcomes {
		assert.Equal(t, fetchUC.OutcomeRemoteError, o.Kind)
		assert.ErrorIs(t, o.Err, fetchUC.ErrRemote)
	}
}

func TestFetch_RetryBound(t *testing.T) {
	for _, max := range []int{1, 2, 3} {
		t.Run(fmt.Sprintf("max=%d", max), func(t *testing.T) {
			src := &scriptedSource{steps: []step{{err: errors.New("503")}}}
			rec := &sleepRecorder{}

			res, err := newService(src, newMemStore(), rec).Fetch(context.Background(), "science", max)
			require.NoError(t, err)
			assert.Equal(t, max, res.Attempts)
			assert.Equal(t, max, src.calls())
			assert.Len(t, rec.delays, max-1)
			assert.Empty(t, res.Items)
			assert.Equal(t, entity.StatusPartial, res.Status())
		})
	}
}

func TestFetch_DefaultAttempts(t *testing.T) {
	src := &scriptedSource{steps: []step{{err: errors.New("timeout")}}}

	res, err := newService(src, newMemStore(), &sleepRecorder{}).Fetch(context.Background(), "science", 0)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Attempts)
}

func TestFetch_RecoversAfterFailure(t *testing.T) {
	src := &scriptedSource{steps: []step{
		{err: errors.New("429 too many requests")},
		{articles: articles("a", 10)},
	}}
	rec := &sleepRecorder{}

	res, err := newService(src, newMemStore(), rec).Fetch(context.Background(), "science", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, []time.Duration{250 * time.Millisecond}, rec.delays)
	assert.Equal(t, entity.StatusFresh, res.Status())
}

func TestFetch_ShortSuccessKeepsTryingWithoutSleep(t *testing.T) {
	all := articles("a", 10)
	src := &scriptedSource{steps: []step{
		{articles: all[:4]},
		{articles: all[:7]}, // overlaps the first page
		{articles: all},
	}}
	rec := &sleepRecorder{}

	res, err := newService(src, newMemStore(), rec).Fetch(context.Background(), "science", 5)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Attempts, "stops once 10 distinct items accumulate")
	assert.Empty(t, rec.delays)
	assert.Len(t, res.Items, 10)
	assert.Equal(t, []int{4, 3, 3}, []int{
		res.Outcomes[0].Accepted, res.Outcomes[1].Accepted, res.Outcomes[2].Accepted,
	})
}

func TestFetch_DropsArticlesMissingURLOrDate(t *testing.T) {
	good := articles("ok", 2)
	src := &scriptedSource{steps: []step{{articles: []fetchUC.Article{
		good[0],
		{Title: "no url", PublishedAt: fixedNow},
		{Title: "no date", URL: "https://example.com/nodate"},
		{Title: "blank url", URL: "   ", PublishedAt: fixedNow},
		good[1],
	}}}}

	res, err := newService(src, newMemStore(), &sleepRecorder{}).Fetch(context.Background(), "science", 1)
	require.NoError(t, err)

	assert.Equal(t, []string{good[0].URL, good[1].URL}, urls(res.Items))
	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, fetchUC.OutcomeParseSkip, res.Outcomes[0].Kind)
	assert.Equal(t, 3, res.Outcomes[0].Skipped)
	assert.Equal(t, 2, res.Outcomes[0].Accepted)
}

/* ───────── persistence & merge ───────── */

func TestFetch_Idempotent(t *testing.T) {
	src := &scriptedSource{steps: []step{{articles: articles("a", 6)}}}
	store := newMemStore()
	svc := newService(src, store, &sleepRecorder{})

	first, err := svc.Fetch(context.Background(), "science", 1)
	require.NoError(t, err)
	assert.Equal(t, 6, first.Persisted)

	second, err := svc.Fetch(context.Background(), "science", 1)
	require.NoError(t, err)
	assert.Zero(t, second.Persisted)
	assert.Equal(t, 6, store.count())

	// fresh and cached copies of the same URLs collapse
	assert.Len(t, second.Items, 6)
	assert.Equal(t, 6, second.FreshCount)
	assert.Zero(t, second.CachedCount)
}

func TestFetch_MergeFreshThenCached(t *testing.T) {
	fresh := articles("fresh", 3)
	src := &scriptedSource{steps: []step{{articles: fresh}}}
	store := newMemStore(cachedRows("science", 9)...)

	res, err := newService(src, store, &sleepRecorder{}).Fetch(context.Background(), "science", 1)
	require.NoError(t, err)

	require.Len(t, res.Items, 10)
	assert.Equal(t, 3, res.FreshCount)
	assert.Equal(t, 7, res.CachedCount)
	for i, a := range fresh {
		assert.Equal(t, a.URL, res.Items[i].URL, "fresh items come first")
	}
	assert.Equal(t, entity.StatusFresh, res.Status())

	seen := map[string]bool{}
	for _, u := range urls(res.Items) {
		assert.False(t, seen[u], "duplicate url %s", u)
		seen[u] = true
	}
}

func TestFetch_AllFromCacheIsCached(t *testing.T) {
	src := &scriptedSource{steps: []step{{err: errors.New("down")}}}
	store := newMemStore(cachedRows("science", 12)...)

	res, err := newService(src, store, &sleepRecorder{}).Fetch(context.Background(), "science", 2)
	require.NoError(t, err)
	assert.Len(t, res.Items, 10)
	assert.Equal(t, entity.StatusCached, res.Status())
}

func TestFetch_CacheScopedByCategoryAndWindow(t *testing.T) {
	stale := &entity.PersistedItem{
		NewsItem: entity.NewsItem{ID: "stale", URL: "https://cache.example.com/stale",
			PublishedAt: fixedNow.Add(-8 * 24 * time.Hour)},
		Category: "science",
	}
	other := cachedRows("sports", 2)
	store := newMemStore(append(other, stale)...)
	src := &scriptedSource{steps: []step{{err: errors.New("down")}}}

	res, err := newService(src, store, &sleepRecorder{}).Fetch(context.Background(), "science", 1)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestFetch_CategoryNormalizedForStorage(t *testing.T) {
	src := &scriptedSource{steps: []step{{articles: articles("a", 2)}}}
	store := newMemStore()

	_, err := newService(src, store, &sleepRecorder{}).Fetch(context.Background(), " Science ", 1)
	require.NoError(t, err)

	assert.Equal(t, "Science", src.queries[0].Category)
	for _, row := range store.rows {
		assert.Equal(t, "science", row.Category)
	}
}

/* ───────── errors ───────── */

func TestFetch_StoreErrors(t *testing.T) {
	boom := errors.New("disk I/O error")
	tests := []struct {
		name  string
		setup func(*memStore)
	}{
		{"exists", func(m *memStore) { m.existsErr = boom }},
		{"create", func(m *memStore) { m.createErr = boom }},
		{"list", func(m *memStore) { m.listErr = boom }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			tt.setup(store)
			src := &scriptedSource{steps: []step{{articles: articles("a", 3)}}}

			res, err := newService(src, store, &sleepRecorder{}).Fetch(context.Background(), "science", 1)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, fetchUC.ErrStore)
			assert.ErrorIs(t, err, boom)
			assert.True(t, fetchUC.IsStoreError(err))
		})
	}
}

func TestFetch_ContextCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &scriptedSource{steps: []step{{err: errors.New("down")}}}
	store := newMemStore()
	svc := fetchUC.NewService(src, store, fetchUC.DefaultConfig(),
		fetchUC.WithSleep(func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		}))

	res, err := svc.Fetch(ctx, "science", 5)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, fetchUC.ErrAborted)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, src.calls())
	assert.Zero(t, store.sessions)
}

/* ───────── coalescing ───────── */

// blockingSource holds every call until release is closed.
type blockingSource struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (b *blockingSource) Search(_ context.Context, _ fetchUC.Query) ([]fetchUC.Article, error) {
	if b.calls.Add(1) == 1 {
		close(b.started)
	}
	<-b.release
	return articles("a", 10), nil
}

func TestFetch_CoalescesConcurrentCalls(t *testing.T) {
	src := &blockingSource{started: make(chan struct{}), release: make(chan struct{})}
	svc := newService(src, newMemStore(), &sleepRecorder{})

	first := make(chan *fetchUC.Result, 1)
	go func() {
		res, _ := svc.Fetch(context.Background(), "science", 5)
		first <- res
	}()
	<-src.started

	var wg sync.WaitGroup
	results := make([]*fetchUC.Result, 3)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = svc.Fetch(context.Background(), "SCIENCE", 5)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(src.release)
	wg.Wait()

	leader := <-first
	require.NotNil(t, leader)
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, urls(leader.Items), urls(r.Items))
	}
	assert.LessOrEqual(t, int(src.calls.Load()), 2, "followers share the leader's fetch")
}
