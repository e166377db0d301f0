// Package testutil provides helpers for tests that need a real store.
package testutil

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/seguridad-santander/crimestats/internal/adapters"
	"github.com/seguridad-santander/crimestats/internal/adapters/sqlite"
	"github.com/seguridad-santander/crimestats/internal/storage"
)

// NewTestLogger creates a test logger that discards output.
func NewTestLogger(t testing.TB) zerolog.Logger {
	return zerolog.New(io.Discard).With().Timestamp().Logger()
}

// NewTestLoggerWithOutput creates a test logger that logs to t.Log().
func NewTestLoggerWithOutput(t testing.TB) zerolog.Logger {
	return zerolog.New(&testLogWriter{t: t}).With().Timestamp().Logger()
}

type testLogWriter struct {
	t testing.TB
}

func (w *testLogWriter) Write(p []byte) (n int, err error) {
	w.t.Log(string(p))
	return len(p), nil
}

// SQLitePath returns a fresh SQLite file path inside the test's temp dir.
// A file is used rather than :memory: so every pooled connection sees the
// same database.
func SQLitePath(t testing.TB) string {
	return filepath.Join(t.TempDir(), "seguridad.db")
}

// OpenStore opens an empty SQLite store. It is closed when the test ends.
func OpenStore(t testing.TB) *storage.Store {
	t.Helper()
	return OpenStoreAt(t, SQLitePath(t))
}

// OpenStoreAt opens the SQLite file at path, creating it if needed.
func OpenStoreAt(t testing.TB, path string) *storage.Store {
	t.Helper()

	pool := storage.PoolConfig{Ping: adapters.RetryConfig{MaxAttempts: 1}}
	store, err := storage.Open(context.Background(), sqlite.NewAdapter(), path, pool, NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// OpenMigratedStore opens a SQLite store with the statistics tables created.
func OpenMigratedStore(t testing.TB) *storage.Store {
	t.Helper()

	store := OpenStore(t)
	_, err := storage.NewMigrationRunner(store.DB(), store.Dialect()).Run(context.Background())
	require.NoError(t, err)
	return store
}

// Crime is one delitos_analitica fixture row. Empty Weapon is stored as NULL.
type Crime struct {
	Municipio   string
	Anio        int
	Mes         int
	Categoria   string
	Genero      string
	GrupoEtario string
	Weapon      string
	Cantidad    int
}

// InsertCrimes writes fixture rows into delitos_analitica.
func InsertCrimes(t testing.TB, store *storage.Store, crimes ...Crime) {
	t.Helper()
	for _, c := range crimes {
		var weapon interface{}
		if c.Weapon != "" {
			weapon = c.Weapon
		}
		Exec(t, store,
			`INSERT INTO delitos_analitica (municipio, anio, mes, categoria, genero, grupo_etario, arma_categoria, cantidad)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.Municipio, c.Anio, c.Mes, c.Categoria, c.Genero, c.GrupoEtario, weapon, c.Cantidad)
	}
}

// InsertCoordinate writes one coordenadas_municipios fixture row.
func InsertCoordinate(t testing.TB, store *storage.Store, municipio string, lat, lng float64) {
	t.Helper()
	Exec(t, store, `INSERT INTO coordenadas_municipios (municipio, latitud, longitud) VALUES (?, ?, ?)`,
		municipio, lat, lng)
}

// InsertMunicipality writes one municipios fixture row.
func InsertMunicipality(t testing.TB, store *storage.Store, municipio, region string, metro bool) {
	t.Helper()
	flag := 0
	if metro {
		flag = 1
	}
	Exec(t, store, `INSERT INTO municipios (municipio, region, es_zona_metro) VALUES (?, ?, ?)`,
		municipio, region, flag)
}

// Risk is one riesgo_municipio_mes fixture row.
type Risk struct {
	Municipio  string
	Anio       int
	Mes        int
	Categoria  string
	Score      float64
	Nivel      string
	Observados int
	Esperados  float64
}

// InsertRisk writes fixture rows into riesgo_municipio_mes.
func InsertRisk(t testing.TB, store *storage.Store, risks ...Risk) {
	t.Helper()
	for _, r := range risks {
		Exec(t, store,
			`INSERT INTO riesgo_municipio_mes (municipio, anio, mes, categoria, riesgo_score, nivel_riesgo, delitos_observados, delitos_esperados)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.Municipio, r.Anio, r.Mes, r.Categoria, r.Score, r.Nivel, r.Observados, r.Esperados)
	}
}

// Exec runs a fixture statement directly against the store's database.
func Exec(t testing.TB, store *storage.Store, query string, args ...interface{}) {
	t.Helper()
	_, err := store.DB().ExecContext(context.Background(), query, args...)
	require.NoError(t, err)
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
