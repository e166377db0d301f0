// Package storage provides read access to the statistics store.
//
// The store is owned by the ETL pipeline; this package only reads it. Every
// query runs on its own pooled connection, released on all exit paths.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/seguridad-santander/crimestats/internal/adapters"
	"github.com/seguridad-santander/crimestats/internal/errors"
	statsql "github.com/seguridad-santander/crimestats/internal/sql"
)

// PoolConfig configures the connection pool and the startup ping.
type PoolConfig struct {
	// MaxOpenConns is the maximum number of open connections. 0 means unlimited.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime.
	ConnMaxLifetime time.Duration

	// Ping configures the retried connectivity check run by Open.
	Ping adapters.RetryConfig
}

// Store executes generated statements against the configured driver.
type Store struct {
	db      *sql.DB
	adapter adapters.StoreAdapter
	guard   *statsql.Guard
	logger  zerolog.Logger
}

// Open opens the store through adapter and verifies connectivity.
func Open(ctx context.Context, adapter adapters.StoreAdapter, dsn string, pool PoolConfig, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open(adapter.DriverName(), adapter.NormalizeDSN(dsn))
	if err != nil {
		return nil, errors.NewDataAccess("open store", err)
	}

	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	result := adapters.ExecuteWithRetry(ctx, pool.Ping, func() error {
		return db.PingContext(ctx)
	})
	if !result.Success {
		db.Close()
		return nil, errors.NewDataAccess("ping store", &adapters.RetryableError{Result: result})
	}
	logger.Debug().Str("driver", adapter.Name()).Str("ping", result.String()).Msg("store opened")

	return New(db, adapter, logger), nil
}

// New wraps an already opened database.
func New(db *sql.DB, adapter adapters.StoreAdapter, logger zerolog.Logger) *Store {
	return &Store{
		db:      db,
		adapter: adapter,
		guard:   statsql.NewGuard(),
		logger:  logger,
	}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the dialect of the store's driver.
func (s *Store) Dialect() statsql.Dialect {
	return s.adapter.Dialect()
}

// Driver returns the name of the store's driver.
func (s *Store) Driver() string {
	return s.adapter.Name()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Query guards, renders and executes stmt, returning every row. An empty
// result is an empty, non-nil slice. Any failure is an ErrDataAccess.
func (s *Store) Query(ctx context.Context, stmt *statsql.Statement) ([]Row, error) {
	if err := s.guard.Check(stmt); err != nil {
		return nil, errors.NewDataAccess(stmt.Name, err)
	}

	query, args := s.Dialect().Render(stmt)
	s.logger.Debug().Str("statement", stmt.Name).Int("args", len(args)).Msg("executing")

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, errors.NewDataAccess(stmt.Name, err)
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewDataAccess(stmt.Name, err)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return nil, errors.NewDataAccess(stmt.Name, err)
	}
	return result, nil
}

// CheckConnectivity verifies the store answers a ping.
func (s *Store) CheckConnectivity(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.NewDataAccess("ping store", err)
	}
	return nil
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	result := make([]Row, 0)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		for i, v := range values {
			// Drivers hand back text and numeric columns as []byte
			// owned by the driver.
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}

		result = append(result, Row{Columns: columns, Values: values})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return result, nil
}
