// Package stats is the query builder and aggregator behind the statistics
// endpoints.
//
// Each operation folds its optional filters into bound predicates, renders a
// single read-only statement and runs it through a storage.Querier. Results
// are ordered rows; an empty result is an empty slice.
package stats

import (
	"context"
	"regexp"

	"github.com/seguridad-santander/crimestats/internal/errors"
	statsql "github.com/seguridad-santander/crimestats/internal/sql"
	"github.com/seguridad-santander/crimestats/internal/storage"
)

// Tables names the four relations the ETL pipeline maintains.
type Tables struct {
	Municipalities string `mapstructure:"municipalities" json:"municipalities"`
	Crimes         string `mapstructure:"crimes" json:"crimes"`
	Risk           string `mapstructure:"risk" json:"risk"`
	Coordinates    string `mapstructure:"coordinates" json:"coordinates"`
}

// DefaultTables returns the relation names written by the ETL pipeline.
func DefaultTables() Tables {
	return Tables{
		Municipalities: "municipios",
		Crimes:         "delitos_analitica",
		Risk:           "riesgo_municipio_mes",
		Coordinates:    "coordenadas_municipios",
	}
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Validate checks every relation name is a plain, optionally schema-qualified,
// identifier. Table names are the only configured text written into SQL.
func (t Tables) Validate() error {
	for field, name := range map[string]string{
		"tables.municipalities": t.Municipalities,
		"tables.crimes":         t.Crimes,
		"tables.risk":           t.Risk,
		"tables.coordinates":    t.Coordinates,
	} {
		if !identifierPattern.MatchString(name) {
			return errors.NewInvalidConfig(field, "must be an identifier such as delitos_analitica or schema.delitos_analitica")
		}
	}
	return nil
}

// Contract returns the columns each relation must expose for the queries
// built by this package.
func (t Tables) Contract() []storage.TableContract {
	return []storage.TableContract{
		{Table: t.Municipalities, Columns: []string{"municipio", "region", "es_zona_metro"}},
		{Table: t.Crimes, Columns: []string{"municipio", "anio", "mes", "categoria", "genero", "grupo_etario", "arma_categoria", "cantidad"}},
		{Table: t.Risk, Columns: []string{"municipio", "anio", "mes", "categoria", "riesgo_score", "nivel_riesgo", "delitos_observados", "delitos_esperados"}},
		{Table: t.Coordinates, Columns: []string{"municipio", "latitud", "longitud"}},
	}
}

// Config is the explicit handle configuration of an Aggregator.
type Config struct {
	Tables Tables

	// DefaultLimit applies to listings when the caller gives no limit.
	DefaultLimit int

	// MaxLimit caps listing limits when greater than zero.
	MaxLimit int
}

// DefaultConfig returns the default aggregator configuration.
func DefaultConfig() Config {
	return Config{
		Tables:       DefaultTables(),
		DefaultLimit: 500,
	}
}

// Aggregator runs the statistics queries. It holds no mutable state and is
// safe for concurrent use.
type Aggregator struct {
	q   storage.Querier
	cfg Config
}

// New creates an Aggregator over q.
func New(q storage.Querier, cfg Config) *Aggregator {
	if cfg.Tables == (Tables{}) {
		cfg.Tables = DefaultTables()
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 500
	}
	return &Aggregator{q: q, cfg: cfg}
}

// Config returns the aggregator configuration.
func (a *Aggregator) Config() Config {
	return a.cfg
}

func (a *Aggregator) run(ctx context.Context, stmt *statsql.Statement) ([]storage.Row, error) {
	rows, err := a.q.Query(ctx, stmt)
	if err != nil {
		return nil, asDataAccess(stmt.Name, err)
	}
	return rows, nil
}

// asDataAccess keeps every execution failure under the single data access
// error a caller sees.
func asDataAccess(operation string, err error) error {
	if d, ok := errors.Details(err); ok && d.Code == errors.CodeDataAccess {
		return err
	}
	return errors.NewDataAccess(operation, err)
}
