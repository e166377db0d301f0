// Package postgres provides the PostgreSQL store adapter.
package postgres

import (
	statsql "github.com/seguridad-santander/crimestats/internal/sql"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Adapter binds the lib/pq driver.
type Adapter struct{}

// NewAdapter creates a new PostgreSQL adapter.
func NewAdapter() *Adapter {
	return &Adapter{}
}

// Name returns the driver configuration name.
func (a *Adapter) Name() string {
	return "postgres"
}

// DriverName returns the database/sql driver name.
func (a *Adapter) DriverName() string {
	return "postgres"
}

// Dialect returns the PostgreSQL dialect ($n placeholders).
func (a *Adapter) Dialect() statsql.Dialect {
	return statsql.DialectPostgres
}

// NormalizeDSN leaves the DSN untouched.
func (a *Adapter) NormalizeDSN(dsn string) string {
	return dsn
}
