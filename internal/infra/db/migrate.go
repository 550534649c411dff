package db

import (
	"context"
	"database/sql"
	"fmt"

	"news-fetcher/internal/config"
)

const createItemsSQLite = `
CREATE TABLE IF NOT EXISTS news_items (
    id           TEXT PRIMARY KEY,
    title        TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    url          TEXT NOT NULL UNIQUE,
    source_name  TEXT NOT NULL DEFAULT '',
    published_at TIMESTAMP NOT NULL,
    fetched_at   TIMESTAMP NOT NULL,
    category     TEXT NOT NULL
)`

const createItemsPostgres = `
CREATE TABLE IF NOT EXISTS news_items (
    id           TEXT PRIMARY KEY,
    title        TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    url          TEXT NOT NULL UNIQUE,
    source_name  TEXT NOT NULL DEFAULT '',
    published_at TIMESTAMPTZ NOT NULL,
    fetched_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    category     TEXT NOT NULL
)`

var itemIndexes = []string{
	// category filter
	`CREATE INDEX IF NOT EXISTS idx_news_items_category ON news_items(category)`,
	// cache lookup: WHERE category = ? AND published_at >= ? ORDER BY published_at DESC
	`CREATE INDEX IF NOT EXISTS idx_news_items_category_published ON news_items(category, published_at DESC)`,
}

// MigrateUp creates the news_items table and its indexes if missing.
func MigrateUp(ctx context.Context, db *sql.DB, driver string) error {
	create := createItemsSQLite
	if driver == config.DriverPostgres {
		create = createItemsPostgres
	}

	if _, err := db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("MigrateUp: create news_items: %w", err)
	}
	for _, idx := range itemIndexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("MigrateUp: %w", err)
		}
	}
	return nil
}

// MigrateDown drops the schema created by MigrateUp, deleting all stored items.
func MigrateDown(ctx context.Context, db *sql.DB) error {
	dropStatements := []string{
		`DROP INDEX IF EXISTS idx_news_items_category_published`,
		`DROP INDEX IF EXISTS idx_news_items_category`,
		`DROP TABLE IF EXISTS news_items`,
	}
	for _, stmt := range dropStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("MigrateDown: %w", err)
		}
	}
	return nil
}
