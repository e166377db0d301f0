// Package adapters binds store drivers to the SQL dialect the statement
// renderer must produce for them.
//
// Adapters are thin: a database/sql driver name, DSN normalisation and a
// dialect. Connections are owned by the storage package.
package adapters

import (
	"sort"

	statsql "github.com/seguridad-santander/crimestats/internal/sql"
)

// StoreAdapter is the interface every store driver binding implements.
type StoreAdapter interface {
	// Name returns the configuration name of the driver (store.driver).
	Name() string

	// DriverName returns the database/sql driver name to open.
	DriverName() string

	// Dialect returns the placeholder and paging rules of the driver.
	Dialect() statsql.Dialect

	// NormalizeDSN applies driver defaults to a configured DSN.
	NormalizeDSN(dsn string) string
}

// AdapterRegistry manages store adapters.
type AdapterRegistry struct {
	adapters map[string]StoreAdapter
}

// NewAdapterRegistry creates a new adapter registry.
func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{
		adapters: make(map[string]StoreAdapter),
	}
}

// Register adds an adapter to the registry.
func (r *AdapterRegistry) Register(adapter StoreAdapter) {
	r.adapters[adapter.Name()] = adapter
}

// Get returns an adapter by name.
func (r *AdapterRegistry) Get(name string) (StoreAdapter, bool) {
	adapter, ok := r.adapters[name]
	return adapter, ok
}

// Available returns the names of all registered adapters, sorted.
func (r *AdapterRegistry) Available() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsEmpty returns true if no adapters are registered.
func (r *AdapterRegistry) IsEmpty() bool {
	return len(r.adapters) == 0
}
