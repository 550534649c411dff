package circuitbreaker

import (
	"context"
	"database/sql"
	"time"

	"github.com/sony/gobreaker"
)

// Querier is the query surface shared by *sql.DB, *sql.Conn and *sql.Tx.
// It has no QueryRowContext: *sql.Row defers its error to Scan, which the
// breaker cannot observe.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// DBConfig returns configuration optimized for database circuit breakers.
// Opens after 5 consecutive failures, 30 second timeout.
func DBConfig() Config {
	return Config{
		Name:             "database",
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 1.0,
		MinRequests:      5,
	}
}

// DBGuard owns one breaker shared by every querier it wraps, so failures on
// short-lived connections accumulate in the same counts.
type DBGuard struct {
	cb *CircuitBreaker
}

// NewDBGuard creates a guard using DBConfig.
func NewDBGuard() *DBGuard {
	return NewDBGuardWithConfig(DBConfig())
}

// NewDBGuardWithConfig creates a guard with a custom configuration.
func NewDBGuardWithConfig(cfg Config) *DBGuard {
	return &DBGuard{cb: New(cfg)}
}

// Wrap returns q with the guard's breaker in front of it.
func (g *DBGuard) Wrap(q Querier) *DBCircuitBreaker {
	return &DBCircuitBreaker{cb: g.cb, q: q}
}

// State returns the current state of the shared breaker.
func (g *DBGuard) State() gobreaker.State {
	return g.cb.State()
}

// DBCircuitBreaker wraps a querier with circuit breaker protection.
type DBCircuitBreaker struct {
	cb *CircuitBreaker
	q  Querier
}

// QueryContext executes a query with circuit breaker protection.
// If the circuit is open, it returns ErrOpenState immediately without hitting the database.
func (dcb *DBCircuitBreaker) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	result, err := dcb.cb.Execute(func() (interface{}, error) {
		return dcb.q.QueryContext(ctx, query, args...)
	})
	if err != nil {
		return nil, err
	}
	return result.(*sql.Rows), nil
}

// ExecContext executes a statement with circuit breaker protection.
func (dcb *DBCircuitBreaker) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	result, err := dcb.cb.Execute(func() (interface{}, error) {
		return dcb.q.ExecContext(ctx, query, args...)
	})
	if err != nil {
		return nil, err
	}
	return result.(sql.Result), nil
}

// IsOpen returns true if the circuit breaker is in the open state.
func (dcb *DBCircuitBreaker) IsOpen() bool {
	return dcb.cb.IsOpen()
}
