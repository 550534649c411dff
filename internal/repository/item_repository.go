package repository

import (
	"context"
	"time"

	"news-fetcher/internal/domain/entity"
)

// ItemRepository persists news items keyed by URL.
type ItemRepository interface {
	// ExistsByURL reports whether an item with the URL has been stored.
	ExistsByURL(ctx context.Context, url string) (bool, error)
	// Create inserts a new item. Callers check ExistsByURL first; a duplicate
	// URL is rejected by the storage layer and returned as an error.
	Create(ctx context.Context, item *entity.PersistedItem) error
	// ListRecent returns up to limit items of the category published at or
	// after since, newest first.
	ListRecent(ctx context.Context, category string, since time.Time, limit int) ([]*entity.NewsItem, error)
}

// ItemStore hands out scoped repository sessions.
type ItemStore interface {
	// Session runs fn with a repository bound to one connection.
	// The connection is released when fn returns, whatever the outcome.
	Session(ctx context.Context, fn func(repo ItemRepository) error) error
}
