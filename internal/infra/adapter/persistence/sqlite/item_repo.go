// Package sqlite provides SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"news-fetcher/internal/domain/entity"
	"news-fetcher/internal/repository"
)

// Querier is the subset of *sql.DB, *sql.Conn and *sql.Tx the repository needs.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ItemRepo implements the ItemRepository interface using SQLite.
type ItemRepo struct{ q Querier }

// NewItemRepo creates a new SQLite-backed item repository.
func NewItemRepo(q Querier) repository.ItemRepository {
	return &ItemRepo{q: q}
}

// ExistsByURL reports whether an item with the URL is already stored.
func (repo *ItemRepo) ExistsByURL(ctx context.Context, url string) (bool, error) {
	const query = `SELECT 1 FROM news_items WHERE url = ? LIMIT 1`
	rows, err := repo.q.QueryContext(ctx, query, url)
	if err != nil {
		return false, fmt.Errorf("ExistsByURL: %w", err)
	}
	defer func() { _ = rows.Close() }()

	exists := rows.Next()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("ExistsByURL: rows.Err: %w", err)
	}
	return exists, nil
}

// Create inserts a new item. Timestamps are stored in UTC so that the
// textual comparison in ListRecent orders correctly.
func (repo *ItemRepo) Create(ctx context.Context, item *entity.PersistedItem) error {
	const query = `
INSERT INTO news_items
       (id, title, description, url, source_name, published_at, fetched_at, category)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	_, err := repo.q.ExecContext(ctx, query,
		item.ID, item.Title, item.Description, item.URL, item.SourceName,
		item.PublishedAt.UTC(), item.FetchedAt.UTC(), item.Category,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// ListRecent returns the newest items of a category published at or after since.
func (repo *ItemRepo) ListRecent(ctx context.Context, category string, since time.Time, limit int) ([]*entity.NewsItem, error) {
	const query = `
SELECT id, title, description, url, source_name, published_at, fetched_at
FROM news_items
WHERE category = ? AND published_at >= ?
ORDER BY published_at DESC
LIMIT ?`
	rows, err := repo.q.QueryContext(ctx, query, category, since.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("ListRecent: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]*entity.NewsItem, 0, limit)
	for rows.Next() {
		var it entity.NewsItem
		if err := rows.Scan(&it.ID, &it.Title, &it.Description, &it.URL,
			&it.SourceName, &it.PublishedAt, &it.FetchedAt); err != nil {
			return nil, fmt.Errorf("ListRecent: Scan: %w", err)
		}
		items = append(items, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListRecent: rows.Err: %w", err)
	}
	return items, nil
}
