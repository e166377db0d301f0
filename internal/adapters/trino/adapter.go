// Package trino provides the Trino store adapter, for deployments where the
// ETL publishes its tables to a lakehouse catalog.
package trino

import (
	"fmt"
	"net/url"

	statsql "github.com/seguridad-santander/crimestats/internal/sql"

	_ "github.com/trinodb/trino-go-client/trino" // Trino driver
)

// Adapter binds the trino-go-client driver.
type Adapter struct{}

// NewAdapter creates a new Trino adapter.
func NewAdapter() *Adapter {
	return &Adapter{}
}

// Name returns the driver configuration name.
func (a *Adapter) Name() string {
	return "trino"
}

// DriverName returns the database/sql driver name.
func (a *Adapter) DriverName() string {
	return "trino"
}

// Dialect returns the Trino dialect (OFFSET before LIMIT).
func (a *Adapter) Dialect() statsql.Dialect {
	return statsql.DialectTrino
}

// NormalizeDSN leaves the DSN untouched.
// Format: http[s]://user@host:port?catalog=X&schema=Y
func (a *Adapter) NormalizeDSN(dsn string) string {
	return dsn
}

// DSNConfig builds a Trino DSN from its parts.
type DSNConfig struct {
	Host    string
	Port    int
	User    string
	Catalog string
	Schema  string
	Secure  bool
}

// BuildDSN renders cfg as a trino-go-client DSN, applying defaults.
func BuildDSN(cfg DSNConfig) string {
	if cfg.User == "" {
		cfg.User = "crimestats"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.Catalog == "" {
		cfg.Catalog = "hive"
	}
	if cfg.Schema == "" {
		cfg.Schema = "default"
	}

	scheme := "http"
	if cfg.Secure {
		scheme = "https"
	}

	q := url.Values{}
	q.Set("catalog", cfg.Catalog)
	q.Set("schema", cfg.Schema)

	return fmt.Sprintf("%s://%s@%s:%d?%s", scheme, url.User(cfg.User).String(), cfg.Host, cfg.Port, q.Encode())
}
