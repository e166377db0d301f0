// Package main is the entrypoint for the crimestats gateway server.
// The gateway answers the statistics queries over HTTP against the
// configured store.
//
// Startup fails if the configuration is invalid, if the store driver is not
// registered or if the store cannot be reached. A store missing the
// statistics tables still starts; /readyz reports it as not ready.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/seguridad-santander/crimestats/internal/bootstrap"
	"github.com/seguridad-santander/crimestats/internal/config"
	"github.com/seguridad-santander/crimestats/internal/logging"
	"github.com/seguridad-santander/crimestats/pkg/api"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gateway: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "Config file (default: ./crimestats.yaml)")
		envFile    = flag.String("env-file", ".env", "Dotenv file loaded before the configuration")
		addr       = flag.String("addr", "", "HTTP listen address (overrides server.addr)")
		driver     = flag.String("driver", "", "Store driver: sqlite, postgres, duckdb or trino (overrides store.driver)")
		dsn        = flag.String("dsn", "", "Store DSN (overrides store.dsn)")
		migrate    = flag.Bool("migrate", false, "Apply the development schema migrations on startup")
		showHelp   = flag.Bool("help", false, "Show help message")
		showVer    = flag.Bool("version", false, "Show version")
	)
	flag.Parse()

	if *showHelp {
		flag.Usage()
		return nil
	}

	if *showVer {
		fmt.Printf("crimestats-gateway %s (commit: %s, built: %s, api: %s)\n", version, commit, date, api.Version)
		return nil
	}

	if err := config.LoadDotEnv(*envFile); err != nil {
		return err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *driver != "" {
		cfg.Store.Driver = *driver
	}
	if *dsn != "" {
		cfg.Store.DSN = *dsn
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sys, err := bootstrap.Start(ctx, cfg, bootstrap.Options{
		Version: version,
		Logger:  logger,
		Migrate: *migrate,
	})
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer sys.Close()

	gw, err := sys.Gateway()
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}

	logger.Info().
		Str("health", "http://localhost"+cfg.Server.Addr+api.EndpointHealth).
		Str("readiness", "http://localhost"+cfg.Server.Addr+api.EndpointReady).
		Msg("endpoints")

	if err := gw.ListenAndServe(ctx, sys.ServerConfig()); err != nil {
		return err
	}
	logger.Info().Msg("gateway stopped")
	return nil
}
