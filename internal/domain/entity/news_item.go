// Package entity defines the core domain entities and validation logic for the application.
// It contains the news item model, the fetch status vocabulary, and category rules.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// NewsItem is an article as returned to callers.
// URL is the identity key: two items with the same URL are the same item.
type NewsItem struct {
	ID          string
	Title       string
	Description string
	URL         string
	SourceName  string
	PublishedAt time.Time
	FetchedAt   time.Time
}

// PersistedItem is a NewsItem stored under the category it was first fetched for.
// Stored rows are never updated or deleted.
type PersistedItem struct {
	NewsItem
	Category string
}

// NewNewsItem builds an item with a fresh random ID.
func NewNewsItem(title, description, url, sourceName string, publishedAt, fetchedAt time.Time) *NewsItem {
	return &NewsItem{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		URL:         url,
		SourceName:  sourceName,
		PublishedAt: publishedAt,
		FetchedAt:   fetchedAt,
	}
}

// Persist tags the item with the category it is being stored under.
func (n *NewsItem) Persist(category string) *PersistedItem {
	return &PersistedItem{NewsItem: *n, Category: category}
}

// DedupeByURL returns items with later duplicates removed, keeping first-seen order.
func DedupeByURL(items []*NewsItem) []*NewsItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]*NewsItem, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		if _, dup := seen[it.URL]; dup {
			continue
		}
		seen[it.URL] = struct{}{}
		out = append(out, it)
	}
	return out
}
