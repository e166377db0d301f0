// Package duckdb provides the DuckDB store adapter.
// DuckDB can serve the statistics tables from a local analytical file.
package duckdb

import (
	statsql "github.com/seguridad-santander/crimestats/internal/sql"

	_ "github.com/marcboeker/go-duckdb" // DuckDB driver
)

// Adapter binds the go-duckdb driver.
type Adapter struct{}

// NewAdapter creates a new DuckDB adapter.
func NewAdapter() *Adapter {
	return &Adapter{}
}

// Name returns the driver configuration name.
func (a *Adapter) Name() string {
	return "duckdb"
}

// DriverName returns the database/sql driver name.
func (a *Adapter) DriverName() string {
	return "duckdb"
}

// Dialect returns the DuckDB dialect.
func (a *Adapter) Dialect() statsql.Dialect {
	return statsql.DialectDuckDB
}

// NormalizeDSN maps ":memory:" to the empty DSN go-duckdb uses for an
// in-memory database.
func (a *Adapter) NormalizeDSN(dsn string) string {
	if dsn == ":memory:" {
		return ""
	}
	return dsn
}
