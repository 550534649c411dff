package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"news-fetcher/internal/repository"
	"news-fetcher/internal/resilience/circuitbreaker"
)

// Store opens repository sessions on a dedicated connection from the pool.
type Store struct {
	db    *sql.DB
	guard *circuitbreaker.DBGuard
}

// NewStore creates a new SQLite-backed item store. guard may be nil.
func NewStore(db *sql.DB, guard *circuitbreaker.DBGuard) repository.ItemStore {
	return &Store{db: db, guard: guard}
}

// Session acquires a connection, runs fn, and returns the connection to the pool.
func (s *Store) Session(ctx context.Context, fn func(repo repository.ItemRepository) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("Session: Conn: %w", err)
	}
	defer func() { _ = conn.Close() }()

	var q Querier = conn
	if s.guard != nil {
		q = s.guard.Wrap(conn)
	}
	return fn(NewItemRepo(q))
}
