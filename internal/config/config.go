// Package config provides configuration loading for the crimestats server and CLI.
package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/seguridad-santander/crimestats/internal/adapters"
	"github.com/seguridad-santander/crimestats/internal/adapters/trino"
	"github.com/seguridad-santander/crimestats/internal/errors"
	"github.com/seguridad-santander/crimestats/internal/stats"
	"github.com/seguridad-santander/crimestats/internal/storage"
)

// EnvPrefix prefixes every environment override, e.g. CRIMESTATS_STORE_DSN.
const EnvPrefix = "CRIMESTATS"

// Config holds the application configuration.
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Query   QueryConfig   `mapstructure:"query"`
	Tables  stats.Tables  `mapstructure:"tables"`
}

// StoreConfig selects and tunes the store driver.
type StoreConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	PingAttempts    int           `mapstructure:"ping_attempts"`
	Trino           TrinoConfig   `mapstructure:"trino"`
}

// TrinoConfig builds the DSN when store.driver is trino and store.dsn is empty.
type TrinoConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	User    string `mapstructure:"user"`
	Catalog string `mapstructure:"catalog"`
	Schema  string `mapstructure:"schema"`
	Secure  bool   `mapstructure:"secure"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// QueryConfig holds listing limits.
type QueryConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:       "sqlite",
			DSN:          "db/seguridad_santander.db",
			MaxOpenConns: 10,
			MaxIdleConns: 5,
			PingAttempts: 3,
			Trino: TrinoConfig{
				Port:    8080,
				Catalog: "hive",
				Schema:  "default",
			},
		},
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Query: QueryConfig{
			DefaultLimit: 500,
		},
		Tables: stats.DefaultTables(),
	}
}

// LoadDotEnv loads .env files into the environment without overriding
// variables already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error reading %s: %w", p, err)
		}
	}
	return nil
}

// Load loads configuration from file and environment. An empty configPath
// searches ./crimestats.yaml and ~/.crimestats/crimestats.yaml; the file is
// optional.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".crimestats"))
		}
		v.SetConfigName("crimestats")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.dsn", d.Store.DSN)
	v.SetDefault("store.max_open_conns", d.Store.MaxOpenConns)
	v.SetDefault("store.max_idle_conns", d.Store.MaxIdleConns)
	v.SetDefault("store.conn_max_lifetime", d.Store.ConnMaxLifetime)
	v.SetDefault("store.ping_attempts", d.Store.PingAttempts)
	v.SetDefault("store.trino.host", d.Store.Trino.Host)
	v.SetDefault("store.trino.port", d.Store.Trino.Port)
	v.SetDefault("store.trino.user", d.Store.Trino.User)
	v.SetDefault("store.trino.catalog", d.Store.Trino.Catalog)
	v.SetDefault("store.trino.schema", d.Store.Trino.Schema)
	v.SetDefault("store.trino.secure", d.Store.Trino.Secure)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("query.default_limit", d.Query.DefaultLimit)
	v.SetDefault("query.max_limit", d.Query.MaxLimit)
	v.SetDefault("tables.municipalities", d.Tables.Municipalities)
	v.SetDefault("tables.crimes", d.Tables.Crimes)
	v.SetDefault("tables.risk", d.Tables.Risk)
	v.SetDefault("tables.coordinates", d.Tables.Coordinates)
}

// Validate checks the configuration before anything is opened.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Store.Driver) == "" {
		return errors.NewInvalidConfig("store.driver", "a store driver is required")
	}
	if c.ResolveDSN() == "" {
		return errors.NewInvalidConfig("store.dsn", "a DSN is required (or store.trino.host for the trino driver)")
	}
	if c.Store.PingAttempts < 0 {
		return errors.NewInvalidConfig("store.ping_attempts", "must be non-negative")
	}
	if c.Query.DefaultLimit <= 0 {
		return errors.NewInvalidConfig("query.default_limit", "must be positive")
	}
	if c.Query.MaxLimit < 0 {
		return errors.NewInvalidConfig("query.max_limit", "must be non-negative (0 disables the cap)")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return errors.NewInvalidConfig("logging.format", "must be json or console")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.NewInvalidConfig("logging.level", "must be debug, info, warn or error")
	}
	if c.Server.Addr == "" {
		return errors.NewInvalidConfig("server.addr", "a listen address is required")
	}
	return c.Tables.Validate()
}

// ResolveDSN returns the configured DSN, building one for trino when only
// the host is given.
func (c *Config) ResolveDSN() string {
	if c.Store.DSN != "" || c.Store.Driver != "trino" || c.Store.Trino.Host == "" {
		return c.Store.DSN
	}
	t := c.Store.Trino
	return trino.BuildDSN(trino.DSNConfig{
		Host:    t.Host,
		Port:    t.Port,
		User:    t.User,
		Catalog: t.Catalog,
		Schema:  t.Schema,
		Secure:  t.Secure,
	})
}

// PoolConfig returns the storage pool settings.
func (c *Config) PoolConfig() storage.PoolConfig {
	ping := adapters.DefaultRetryConfig()
	if c.Store.PingAttempts > 0 {
		ping.MaxAttempts = c.Store.PingAttempts
	}
	return storage.PoolConfig{
		MaxOpenConns:    c.Store.MaxOpenConns,
		MaxIdleConns:    c.Store.MaxIdleConns,
		ConnMaxLifetime: c.Store.ConnMaxLifetime,
		Ping:            ping,
	}
}

// StatsConfig returns the aggregator configuration.
func (c *Config) StatsConfig() stats.Config {
	return stats.Config{
		Tables:       c.Tables,
		DefaultLimit: c.Query.DefaultLimit,
		MaxLimit:     c.Query.MaxLimit,
	}
}
