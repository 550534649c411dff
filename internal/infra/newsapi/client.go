// Package newsapi implements the news search source backed by the NewsAPI
// "everything" endpoint.
package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"news-fetcher/internal/resilience/circuitbreaker"
	"news-fetcher/internal/resilience/retry"
	"news-fetcher/internal/usecase/fetch"
	"news-fetcher/internal/utils/text"
)

const (
	// maxBodyBytes bounds how much of a response body is read.
	maxBodyBytes = 4 << 20

	userAgent = "news-fetcher/1.0"
)

// Config configures the NewsAPI client.
type Config struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Client queries NewsAPI. Each request waits on a rate limiter and runs
// through a circuit breaker; retries are left to the caller.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *circuitbreaker.CircuitBreaker
}

// NewClient creates a NewsAPI client. httpClient may be nil.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
		breaker:    circuitbreaker.New(circuitbreaker.NewsAPIConfig()),
	}
}

// Search issues one query. Articles are returned as published by the API;
// missing fields are left empty for the caller to reject.
func (c *Client) Search(ctx context.Context, q fetch.Query) ([]fetch.Article, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("Search: rate limiter: %w", err)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doSearch(ctx, q)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			slog.Warn("news api circuit breaker open, request rejected",
				slog.String("service", c.breaker.Name()),
				slog.String("category", q.Category))
		}
		return nil, err
	}
	return out.([]fetch.Article), nil
}

func (c *Client) doSearch(ctx context.Context, q fetch.Query) ([]fetch.Article, error) {
	endpoint, err := c.buildURL(q)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("Search: NewRequest: %w", redact(err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Search: Do: %w", redact(err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("Search: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    apiMessage(body, resp.Status),
		}
	}

	var payload searchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if payload.Status == "error" {
		return nil, &APIError{Code: payload.Code, Message: payload.Message}
	}
	if payload.Articles == nil {
		return nil, fmt.Errorf("%w: missing articles", ErrMalformedPayload)
	}

	articles := make([]fetch.Article, 0, len(payload.Articles))
	for _, raw := range payload.Articles {
		var a articleDTO
		if err := json.Unmarshal(raw, &a); err != nil {
			// Keep the slot so the caller counts it as skipped.
			articles = append(articles, fetch.Article{})
			continue
		}
		articles = append(articles, fetch.Article{
			Title:       text.StripHTML(a.Title),
			Description: text.StripHTML(a.Description),
			URL:         strings.TrimSpace(a.URL),
			SourceName:  strings.TrimSpace(a.Source.Name),
			PublishedAt: parsePublishedAt(a.PublishedAt),
		})
	}
	return articles, nil
}

func (c *Client) buildURL(q fetch.Query) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("Search: invalid base url: %w", err)
	}
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}

	params := u.Query()
	params.Set("q", q.Category)
	params.Set("sortBy", "publishedAt")
	params.Set("from", q.From.UTC().Format(time.RFC3339))
	params.Set("to", q.To.UTC().Format(time.RFC3339))
	params.Set("pageSize", strconv.Itoa(pageSize))
	params.Set("apiKey", c.cfg.APIKey)
	u.RawQuery = params.Encode()
	return u.String(), nil
}

// parsePublishedAt accepts RFC 3339 (with or without fractional seconds)
// and falls back to lenient parsing in UTC. Unparseable values yield zero.
func parsePublishedAt(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := dateparse.ParseIn(s, time.UTC); err == nil {
		return t
	}
	return time.Time{}
}

// apiMessage extracts the message field of an error body, if present.
func apiMessage(body []byte, fallback string) string {
	var payload searchResponse
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return fallback
}

// redact removes the API key from URLs embedded in transport errors.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = redactURL(urlErr.URL)
	}
	return err
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	params := u.Query()
	if params.Get("apiKey") == "" {
		return raw
	}
	params.Set("apiKey", "REDACTED")
	u.RawQuery = params.Encode()
	return u.String()
}

// Breaker exposes the circuit breaker guarding the endpoint for health reporting.
func (c *Client) Breaker() *circuitbreaker.CircuitBreaker {
	return c.breaker
}
