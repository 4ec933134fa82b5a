package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/petalmail/apiserver/config"
)

var (
	// ErrAcquire is returned when the pool cannot hand out a connection.
	ErrAcquire = errors.New("acquire database connection")
	// ErrSession is returned when a freshly acquired connection rejects a session setting.
	ErrSession = errors.New("configure database session")
	// ErrNoConnection means the context carries no request-scoped connection.
	ErrNoConnection = errors.New("no request-scoped database connection")
)

const defaultTimeZone = "Etc/GMT+8"

const setSessionQuery = `SELECT set_config($1, $2, false)`

// Querier is the statement surface shared by *sql.Conn, *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Pool hands out dedicated connections. *sql.DB implements it.
type Pool interface {
	Conn(ctx context.Context) (*sql.Conn, error)
}

// SessionSetting is a run-time parameter applied to every acquired connection.
type SessionSetting struct {
	Name  string
	Value string
}

// SessionSettings returns the strict, fixed-zone session used for every request.
func SessionSettings(cfg config.DatabaseConfig) []SessionSetting {
	tz := cfg.TimeZone
	if tz == "" {
		tz = defaultTimeZone
	}
	return []SessionSetting{
		{Name: "TimeZone", Value: tz},
		{Name: "DateStyle", Value: "ISO, MDY"},
		{Name: "standard_conforming_strings", Value: "on"},
	}
}

// Acquire checks out one connection and configures its session. The caller
// owns the returned connection and must Close it. On a configuration failure
// the connection is released before returning.
func Acquire(ctx context.Context, pool Pool, settings []SessionSetting) (*sql.Conn, error) {
	conn, err := pool.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAcquire, err)
	}

	for _, setting := range settings {
		if _, err := conn.ExecContext(ctx, setSessionQuery, setting.Name, setting.Value); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("%w: set %s: %w", ErrSession, setting.Name, err)
		}
	}

	return conn, nil
}

type connContextKey struct{}

// WithConn attaches a request-scoped querier to ctx.
func WithConn(ctx context.Context, q Querier) context.Context {
	return context.WithValue(ctx, connContextKey{}, q)
}

// ConnFromContext returns the querier attached by WithConn.
func ConnFromContext(ctx context.Context) (Querier, error) {
	q, ok := ctx.Value(connContextKey{}).(Querier)
	if !ok || q == nil {
		return nil, ErrNoConnection
	}
	return q, nil
}
