// Package scraper provides the RSS search source for news items.
// It uses the gofeed library to parse feed content behind a circuit breaker.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/rss"
	"github.com/sony/gobreaker"

	"news-fetcher/internal/resilience/circuitbreaker"
	"news-fetcher/internal/usecase/fetch"
	"news-fetcher/internal/utils/text"
)

const userAgent = "news-fetcher/1.0"

// RSSSearchSource queries a Google News style RSS search endpoint.
type RSSSearchSource struct {
	baseURL        string
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewRSSSearchSource creates a source for searchURL, for example
// https://news.google.com/rss/search.
func NewRSSSearchSource(searchURL string, client *http.Client) *RSSSearchSource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RSSSearchSource{
		baseURL:        searchURL,
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedSearchConfig()),
	}
}

// Search fetches the feed for q.Category and returns entries published
// within [q.From, q.To], newest first, at most q.PageSize.
// Entries without a parsable date keep a zero PublishedAt.
func (s *RSSSearchSource) Search(ctx context.Context, q fetch.Query) ([]fetch.Article, error) {
	feedURL, err := s.searchURL(q.Category)
	if err != nil {
		return nil, err
	}

	cbResult, err := s.circuitBreaker.Execute(func() (interface{}, error) {
		return s.doFetch(ctx, feedURL)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			slog.Warn("feed search circuit breaker open, request rejected",
				slog.String("service", s.circuitBreaker.Name()),
				slog.String("url", feedURL),
				slog.String("state", s.circuitBreaker.State().String()))
		}
		return nil, err
	}

	return filterWindow(cbResult.([]fetch.Article), q), nil
}

func (s *RSSSearchSource) searchURL(category string) (string, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return "", fmt.Errorf("Search: invalid search url: %w", err)
	}
	params := u.Query()
	params.Set("q", category)
	params.Set("hl", "en-US")
	params.Set("gl", "US")
	params.Set("ceid", "US:en")
	u.RawQuery = params.Encode()
	return u.String(), nil
}

// doFetch performs the actual feed fetch without the circuit breaker.
func (s *RSSSearchSource) doFetch(ctx context.Context, feedURL string) ([]fetch.Article, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = userAgent
	fp.Client = s.client
	fp.RSSTranslator = &sourceTranslator{}

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			return nil, fmt.Errorf("Search: feed status %d: %w", httpErr.StatusCode, err)
		}
		return nil, fmt.Errorf("Search: ParseURL: %w", err)
	}

	articles := make([]fetch.Article, 0, len(feed.Items))
	for _, it := range feed.Items {
		var published time.Time
		switch {
		case it.PublishedParsed != nil:
			published = *it.PublishedParsed
		case it.UpdatedParsed != nil:
			published = *it.UpdatedParsed
		}

		articles = append(articles, fetch.Article{
			Title:       text.StripHTML(it.Title),
			Description: text.StripHTML(it.Description),
			URL:         strings.TrimSpace(it.Link),
			SourceName:  sourceName(feed, it),
			PublishedAt: published,
		})
	}
	return articles, nil
}

// sourceTranslator keeps the RSS <source> element, which the universal
// feed model drops, in Item.Custom["source"].
type sourceTranslator struct {
	gofeed.DefaultRSSTranslator
}

func (t *sourceTranslator) Translate(feed interface{}) (*gofeed.Feed, error) {
	out, err := t.DefaultRSSTranslator.Translate(feed)
	if err != nil {
		return nil, err
	}
	rssFeed, ok := feed.(*rss.Feed)
	if !ok || len(rssFeed.Items) != len(out.Items) {
		return out, nil
	}
	for i, it := range rssFeed.Items {
		if it.Source == nil || strings.TrimSpace(it.Source.Title) == "" {
			continue
		}
		if out.Items[i].Custom == nil {
			out.Items[i].Custom = make(map[string]string)
		}
		out.Items[i].Custom["source"] = strings.TrimSpace(it.Source.Title)
	}
	return out, nil
}

// sourceName prefers the per-item <source> element Google News emits.
func sourceName(feed *gofeed.Feed, it *gofeed.Item) string {
	if it.Custom != nil {
		if name := strings.TrimSpace(it.Custom["source"]); name != "" {
			return name
		}
	}
	if len(it.Authors) > 0 && it.Authors[0] != nil && it.Authors[0].Name != "" {
		return it.Authors[0].Name
	}
	return strings.TrimSpace(feed.Title)
}

// filterWindow drops dated entries outside the query window and caps the page.
// Undated entries are kept so the caller can count them as skipped.
func filterWindow(articles []fetch.Article, q fetch.Query) []fetch.Article {
	out := make([]fetch.Article, 0, len(articles))
	for _, a := range articles {
		if !a.PublishedAt.IsZero() {
			if !q.From.IsZero() && a.PublishedAt.Before(q.From) {
				continue
			}
			if !q.To.IsZero() && a.PublishedAt.After(q.To) {
				continue
			}
		}
		out = append(out, a)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	if q.PageSize > 0 && len(out) > q.PageSize {
		out = out[:q.PageSize]
	}
	return out
}

// Breaker exposes the circuit breaker guarding the feed endpoint.
func (s *RSSSearchSource) Breaker() *circuitbreaker.CircuitBreaker {
	return s.circuitBreaker
}
