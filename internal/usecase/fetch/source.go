package fetch

import (
	"context"
	"time"
)

// Query describes one request to a remote source.
type Query struct {
	Category string
	From     time.Time
	To       time.Time
	PageSize int
}

// Article is a remote record before validation. A zero PublishedAt means the
// source did not supply a usable publish time.
type Article struct {
	Title       string
	Description string
	URL         string
	SourceName  string
	PublishedAt time.Time
}

// Source queries a remote news provider. A returned error counts as a failed
// attempt; an empty slice is a successful attempt with nothing new.
type Source interface {
	Search(ctx context.Context, q Query) ([]Article, error)
}
