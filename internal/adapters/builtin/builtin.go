// Package builtin registers the store adapters shipped with crimestats.
package builtin

import (
	"github.com/seguridad-santander/crimestats/internal/adapters"
	"github.com/seguridad-santander/crimestats/internal/adapters/duckdb"
	"github.com/seguridad-santander/crimestats/internal/adapters/postgres"
	"github.com/seguridad-santander/crimestats/internal/adapters/sqlite"
	"github.com/seguridad-santander/crimestats/internal/adapters/trino"
)

// Registry returns a registry holding every built-in adapter.
func Registry() *adapters.AdapterRegistry {
	r := adapters.NewAdapterRegistry()
	r.Register(sqlite.NewAdapter())
	r.Register(postgres.NewAdapter())
	r.Register(duckdb.NewAdapter())
	r.Register(trino.NewAdapter())
	return r
}
