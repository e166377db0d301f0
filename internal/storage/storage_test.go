package storage_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/seguridad-santander/crimestats/internal/errors"
	statsql "github.com/seguridad-santander/crimestats/internal/sql"
	"github.com/seguridad-santander/crimestats/internal/stats"
	"github.com/seguridad-santander/crimestats/internal/storage"
	"github.com/seguridad-santander/crimestats/internal/testutil"
)

// TestRow_PreservesColumnOrder verifies rows encode in SELECT order.
// Green-Flag: ordered JSON and YAML.
func TestRow_PreservesColumnOrder(t *testing.T) {
	row := storage.Row{
		Columns: []string{"municipio", "anio", "lat", "arma_mas_frecuente"},
		Values:  []interface{}{"Bucaramanga", int64(2023), 7.1193, nil},
	}

	out, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Equal(t, `{"municipio":"Bucaramanga","anio":2023,"lat":7.1193,"arma_mas_frecuente":null}`, string(out))

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	require.NoError(t, enc.Encode([]storage.Row{row}))
	require.NoError(t, enc.Close())
	assert.Equal(t, "- municipio: Bucaramanga\n  anio: 2023\n  lat: 7.1193\n  arma_mas_frecuente: null\n", buf.String())

	v, ok := row.Get("anio")
	assert.True(t, ok)
	assert.Equal(t, int64(2023), v)
	_, ok = row.Get("mes")
	assert.False(t, ok)
	assert.Equal(t, "Bucaramanga", row.Map()["municipio"])
}

// TestStore_QueryReturnsRows verifies execution, []byte normalization and
// the non-nil empty result.
// Green-Flag: query round trip.
func TestStore_QueryReturnsRows(t *testing.T) {
	ctx := context.Background()
	store := testutil.OpenMigratedStore(t)
	testutil.InsertMunicipality(t, store, "Floridablanca", "Area Metropolitana", true)

	rows, err := store.Query(ctx, &statsql.Statement{
		Name: "probe",
		Body: "SELECT municipio, CAST(region AS BLOB) AS region FROM municipios WHERE municipio = ?",
		Args: []interface{}{"Floridablanca"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"municipio", "region"}, rows[0].Columns)
	assert.Equal(t, "Area Metropolitana", rows[0].Values[1], "blobs are returned as strings")

	rows, err = store.Query(ctx, &statsql.Statement{
		Name:    "probe",
		Body:    "SELECT municipio FROM municipios WHERE municipio = ?",
		Args:    []interface{}{"Nowhere"},
		Guarded: true,
	})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	assert.Equal(t, "sqlite", store.Driver())
	assert.Equal(t, statsql.DialectSQLite, store.Dialect())
	assert.NoError(t, store.CheckConnectivity(ctx))
}

// TestStore_FailuresAreDataAccess verifies every failure surfaces as the
// single data access error.
// Red-Flag: missing tables, guard rejections and closed stores.
func TestStore_FailuresAreDataAccess(t *testing.T) {
	ctx := context.Background()
	store := testutil.OpenStore(t)

	statements := []*statsql.Statement{
		{Name: "missing_table", Body: "SELECT municipio FROM municipios"},
		{Name: "write", Body: "DELETE FROM municipios"},
		{Name: "literal", Body: "SELECT municipio FROM municipios WHERE municipio = 'x'", Guarded: true},
	}
	for _, stmt := range statements {
		_, err := store.Query(ctx, stmt)
		var da *errors.ErrDataAccess
		require.ErrorAs(t, err, &da, stmt.Name)
		assert.Equal(t, stmt.Name, da.Operation)
		assert.Equal(t, "data access failure", da.Message)
	}

	require.NoError(t, store.Close())
	_, err := store.Query(ctx, &statsql.Statement{Name: "closed", Body: "SELECT 1"})
	assert.Equal(t, errors.CodeDataAccess, errors.CodeOf(err))
	assert.Error(t, store.CheckConnectivity(ctx))
}

// TestMigrations_Idempotent verifies the runner applies each migration once.
// Green-Flag: migrate twice.
func TestMigrations_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := testutil.OpenStore(t)
	runner := storage.NewMigrationRunner(store.DB(), store.Dialect())

	applied, err := runner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_create_statistics_tables"}, applied)

	applied, err = runner.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)

	rows, err := store.Query(ctx, &statsql.Statement{Name: "versions", Body: "SELECT version FROM schema_migrations"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "000001", rows[0].Values[0])
}

// TestSchema_ContractSatisfiedAfterMigration verifies the migrated schema
// satisfies the query contract.
// Green-Flag: CheckSchema on a migrated store.
func TestSchema_ContractSatisfiedAfterMigration(t *testing.T) {
	store := testutil.OpenMigratedStore(t)
	assert.NoError(t, store.CheckSchema(context.Background(), stats.DefaultTables().Contract()))
}

// TestSchema_ReportsMissingRelationsAndColumns verifies the contract probe.
// Red-Flag: schema drift is reported per relation and column.
func TestSchema_ReportsMissingRelationsAndColumns(t *testing.T) {
	ctx := context.Background()
	store := testutil.OpenStore(t)
	testutil.Exec(t, store, `CREATE TABLE coordenadas_municipios (municipio VARCHAR(120), latitud DOUBLE PRECISION)`)

	contracts := []storage.TableContract{
		{Table: "coordenadas_municipios", Columns: []string{"municipio", "latitud", "longitud"}},
		{Table: "municipios", Columns: []string{"municipio", "region"}},
	}

	reports, err := store.InspectSchema(ctx, contracts)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.True(t, reports[0].Exists)
	assert.Equal(t, []string{"longitud"}, reports[0].Missing)
	assert.False(t, reports[0].OK())

	assert.False(t, reports[1].Exists)
	assert.Equal(t, []string{"municipio", "region"}, reports[1].Missing)

	err = store.CheckSchema(ctx, contracts)
	var mismatch *errors.ErrSchemaMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "coordenadas_municipios", mismatch.Table)
	assert.Contains(t, err.Error(), "municipios")
}
