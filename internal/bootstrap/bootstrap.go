// Package bootstrap turns a loaded configuration into a running system.
//
// Start validates the configuration, resolves the store driver, opens the
// store and builds the aggregator, status checker and query recorder on top
// of it. The server binary and every CLI command go through Start so they
// share one wiring.
package bootstrap

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/seguridad-santander/crimestats/internal/adapters"
	"github.com/seguridad-santander/crimestats/internal/adapters/builtin"
	"github.com/seguridad-santander/crimestats/internal/config"
	"github.com/seguridad-santander/crimestats/internal/errors"
	"github.com/seguridad-santander/crimestats/internal/gateway"
	"github.com/seguridad-santander/crimestats/internal/logging"
	"github.com/seguridad-santander/crimestats/internal/observability"
	"github.com/seguridad-santander/crimestats/internal/stats"
	"github.com/seguridad-santander/crimestats/internal/status"
	"github.com/seguridad-santander/crimestats/internal/storage"
)

// Options tune Start.
type Options struct {
	// Version is reported by the gateway and the status checker.
	Version string

	// Logger is the process logger.
	Logger zerolog.Logger

	// Registry resolves store.driver. Nil uses the built-in adapters.
	Registry *adapters.AdapterRegistry

	// Metrics receives query observations. Nil creates a fresh registry.
	Metrics *observability.Metrics

	// Migrate applies the embedded schema migrations after opening the store.
	Migrate bool
}

// System is a started crimestats instance.
type System struct {
	Config     *config.Config
	Store      *storage.Store
	Aggregator *stats.Aggregator
	Checker    *status.StoreChecker
	Recorder   *observability.Recorder

	// Applied lists the migrations applied by Start, if any.
	Applied []string

	version string
	logger  zerolog.Logger
}

// Start validates cfg and opens the system it describes.
//
// Returns an error if:
//   - the configuration is invalid
//   - store.driver names no registered adapter
//   - the store cannot be reached
//   - a requested migration fails
func Start(ctx context.Context, cfg *config.Config, opts Options) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry := opts.Registry
	if registry == nil {
		registry = builtin.Registry()
	}
	adapter, ok := registry.Get(cfg.Store.Driver)
	if !ok {
		return nil, errors.NewUnsupportedDriver(cfg.Store.Driver, registry.Available())
	}

	store, err := storage.Open(ctx, adapter, cfg.ResolveDSN(), cfg.PoolConfig(),
		logging.WithComponent(opts.Logger, "storage"))
	if err != nil {
		return nil, err
	}

	sys := &System{
		Config:  cfg,
		Store:   store,
		version: opts.Version,
		logger:  opts.Logger,
	}

	if opts.Migrate {
		applied, err := storage.NewMigrationRunner(store.DB(), store.Dialect()).Run(ctx)
		if err != nil {
			store.Close()
			return nil, err
		}
		sys.Applied = applied
		opts.Logger.Info().Strs("applied", applied).Msg("schema migrations complete")
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.NewMetrics()
	}

	sys.Aggregator = stats.New(store, cfg.StatsConfig())
	sys.Checker = status.NewStoreChecker(store, cfg.Tables.Contract(), opts.Version)
	sys.Recorder = &observability.Recorder{
		Queries: observability.NewZerologLogger(logging.WithComponent(opts.Logger, "query")),
		Metrics: metrics,
		Logger:  opts.Logger,
	}

	opts.Logger.Debug().
		Str("driver", adapter.Name()).
		Str("dialect", store.Dialect().Name).
		Msg("system started")
	return sys, nil
}

// Gateway builds the HTTP gateway over the system.
func (s *System) Gateway() (*gateway.Gateway, error) {
	return gateway.NewGateway(s.Aggregator, s.Checker, s.Recorder, s.Store.Driver(), gateway.Config{
		Version:     s.version,
		CORSOrigins: s.Config.Server.CORSOrigins,
		Logger:      logging.WithComponent(s.logger, "gateway"),
	})
}

// ServerConfig returns the HTTP server settings of the configuration.
func (s *System) ServerConfig() gateway.ServerConfig {
	return gateway.ServerConfig{
		Addr:            s.Config.Server.Addr,
		ReadTimeout:     s.Config.Server.ReadTimeout,
		WriteTimeout:    s.Config.Server.WriteTimeout,
		ShutdownTimeout: s.Config.Server.ShutdownTimeout,
	}
}

// Close releases the store.
func (s *System) Close() error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.Close()
}
