// Package sqlite provides the SQLite store adapter. The ETL pipeline writes a
// single SQLite file, so this is the default driver.
package sqlite

import (
	"strings"

	statsql "github.com/seguridad-santander/crimestats/internal/sql"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// busyTimeout lets readers wait while the ETL holds the write lock.
const busyTimeout = "_pragma=busy_timeout(5000)"

// Adapter binds the modernc.org/sqlite driver.
type Adapter struct{}

// NewAdapter creates a new SQLite adapter.
func NewAdapter() *Adapter {
	return &Adapter{}
}

// Name returns the driver configuration name.
func (a *Adapter) Name() string {
	return "sqlite"
}

// DriverName returns the database/sql driver name.
func (a *Adapter) DriverName() string {
	return "sqlite"
}

// Dialect returns the SQLite dialect.
func (a *Adapter) Dialect() statsql.Dialect {
	return statsql.DialectSQLite
}

// NormalizeDSN adds a busy timeout unless the DSN already sets pragmas.
func (a *Adapter) NormalizeDSN(dsn string) string {
	if dsn == "" || dsn == ":memory:" || strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + busyTimeout
	}
	return dsn + "?" + busyTimeout
}
