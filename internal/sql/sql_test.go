package sql_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seguridad-santander/crimestats/internal/errors"
	statsql "github.com/seguridad-santander/crimestats/internal/sql"
)

func ptr[T any](v T) *T { return &v }

// TestFilters_SkipsAbsentValues verifies only present values become
// predicates, in insertion order.
// Green-Flag: optional filters.
func TestFilters_SkipsAbsentValues(t *testing.T) {
	var fs statsql.Filters
	fs.EqString("municipio", nil).
		EqString("categoria", ptr("HURTO")).
		EqInt("anio", ptr(2023)).
		EqInt("mes", nil).
		EqString("genero", ptr(""))

	preds := fs.Predicates()
	require.Len(t, preds, 2)
	assert.Equal(t, 2, fs.Len())
	assert.Equal(t, statsql.Predicate{Column: "categoria", Op: statsql.OpEq, Value: "HURTO"}, preds[0])
	assert.Equal(t, statsql.Predicate{Column: "anio", Op: statsql.OpEq, Value: 2023}, preds[1])

	preds[0].Column = "mutated"
	assert.Equal(t, "categoria", fs.Predicates()[0].Column, "Predicates returns a copy")
}

// TestRenderWhere verifies placeholders and arguments stay in step.
// Green-Flag: values travel as arguments only.
func TestRenderWhere(t *testing.T) {
	where, args := statsql.RenderWhere(nil)
	assert.Empty(t, where)
	assert.Empty(t, args)

	var fs statsql.Filters
	fs.EqString("municipio", ptr("' OR 1=1 --")).EqInt("mes", ptr(5))

	where, args = statsql.RenderWhere(fs.Predicates())
	assert.Equal(t, "WHERE municipio = ? AND mes = ?", where)
	assert.Equal(t, []interface{}{"' OR 1=1 --", 5}, args)

	and, andArgs := statsql.RenderAnd(fs.Predicates())
	assert.Equal(t, "AND municipio = ? AND mes = ?", and)
	assert.Equal(t, args, andArgs)
}

// TestCheckAllowed verifies the per-listing column allow-list.
// Red-Flag: predicates outside the allow-list are rejected.
func TestCheckAllowed(t *testing.T) {
	allowed := []string{"municipio", "anio"}

	ok := []statsql.Predicate{{Column: "anio", Op: statsql.OpEq, Value: 2023}}
	assert.NoError(t, statsql.CheckAllowed("riesgo", allowed, ok))

	err := statsql.CheckAllowed("riesgo", allowed, []statsql.Predicate{{Column: "genero", Op: statsql.OpEq, Value: "F"}})
	var unknown *errors.ErrUnknownFilter
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "genero", unknown.Column)

	err = statsql.CheckAllowed("riesgo", allowed, []statsql.Predicate{{Column: "anio", Op: ">", Value: 2020}})
	assert.ErrorAs(t, err, &unknown)
}

// TestDialect_Render verifies placeholder and paging rendering per driver.
// Green-Flag: one canonical statement, four dialects.
func TestDialect_Render(t *testing.T) {
	stmt := &statsql.Statement{
		Name:   "list_crimes",
		Body:   "SELECT municipio FROM delitos_analitica WHERE categoria = ? AND anio = ?",
		Args:   []interface{}{"HURTO", 2023},
		Paging: &statsql.Paging{Limit: 50, Offset: 100},
	}

	query, args := statsql.DialectSQLite.Render(stmt)
	assert.Equal(t, stmt.Body+" LIMIT ? OFFSET ?", query)
	assert.Equal(t, []interface{}{"HURTO", 2023, 50, 100}, args)

	query, args = statsql.DialectPostgres.Render(stmt)
	assert.Equal(t, "SELECT municipio FROM delitos_analitica WHERE categoria = $1 AND anio = $2 LIMIT $3 OFFSET $4", query)
	assert.Equal(t, []interface{}{"HURTO", 2023, 50, 100}, args)

	query, args = statsql.DialectTrino.Render(stmt)
	assert.Equal(t, stmt.Body+" OFFSET ? LIMIT ?", query)
	assert.Equal(t, []interface{}{"HURTO", 2023, 100, 50}, args)

	query, _ = statsql.DialectDuckDB.Render(stmt)
	assert.Equal(t, stmt.Body+" LIMIT ? OFFSET ?", query)

	assert.Len(t, stmt.Args, 2, "Render must not modify the statement")
}

// TestDialect_RebindSkipsQuoted verifies question marks inside quotes are not
// placeholders.
// Green-Flag: literal question marks survive rebinding.
func TestDialect_RebindSkipsQuoted(t *testing.T) {
	got := statsql.DialectPostgres.Rebind(`SELECT "a?b", '?' FROM t WHERE x = ? AND y = ?`)
	assert.Equal(t, `SELECT "a?b", '?' FROM t WHERE x = $1 AND y = $2`, got)

	assert.Equal(t, "x = ?", statsql.DialectSQLite.Rebind("x = ?"))
}

// TestStatement_Canonical verifies the guarded form appends paging last.
// Green-Flag: canonical text.
func TestStatement_Canonical(t *testing.T) {
	stmt := &statsql.Statement{Body: "SELECT 1 FROM t WHERE a = ?", Args: []interface{}{1}}
	query, args := stmt.Canonical()
	assert.Equal(t, stmt.Body, query)
	assert.Equal(t, []interface{}{1}, args)

	stmt.Paging = &statsql.Paging{Limit: 10}
	query, args = stmt.Canonical()
	assert.Equal(t, stmt.Body+" LIMIT ? OFFSET ?", query)
	assert.Equal(t, []interface{}{1, 10, 0}, args)
}

// TestGuard_AcceptsParameterizedSelect verifies generated listings pass.
// Green-Flag: plain parameterized SELECT.
func TestGuard_AcceptsParameterizedSelect(t *testing.T) {
	g := statsql.NewGuard()

	stmt := &statsql.Statement{
		Name:    "list_crimes",
		Body:    "SELECT municipio, anio, SUM(cantidad) AS cantidad FROM delitos_analitica WHERE categoria = ? GROUP BY municipio, anio ORDER BY anio, municipio",
		Args:    []interface{}{"HURTO"},
		Paging:  &statsql.Paging{Limit: 500},
		Guarded: true,
	}
	assert.NoError(t, g.Check(stmt))

	cte := &statsql.Statement{
		Name: "annual_summary",
		Body: "WITH base AS (SELECT municipio FROM delitos_analitica WHERE categoria = ?) SELECT municipio FROM base",
		Args: []interface{}{"HURTO"},
	}
	assert.NoError(t, g.Check(cte), "unguarded read-only statements only get the prefix check")
}

// TestGuard_Rejects verifies the structural checks.
// Red-Flag: writes, literals and placeholder mismatches never execute.
func TestGuard_Rejects(t *testing.T) {
	g := statsql.NewGuard()

	cases := []struct {
		name string
		stmt *statsql.Statement
	}{
		{"empty", &statsql.Statement{Body: "  "}},
		{"insert", &statsql.Statement{Body: "INSERT INTO municipios (municipio) VALUES (?)", Args: []interface{}{"x"}}},
		{"update", &statsql.Statement{Body: "UPDATE municipios SET region = ?", Args: []interface{}{"x"}}},
		{"delete", &statsql.Statement{Body: "DELETE FROM municipios"}},
		{"drop", &statsql.Statement{Body: "DROP TABLE municipios"}},
		{"string literal", &statsql.Statement{
			Body:    "SELECT municipio FROM delitos_analitica WHERE categoria = 'HURTO'",
			Guarded: true,
		}},
		{"too few args", &statsql.Statement{
			Body:    "SELECT municipio FROM delitos_analitica WHERE categoria = ? AND anio = ?",
			Args:    []interface{}{"HURTO"},
			Guarded: true,
		}},
		{"too many args", &statsql.Statement{
			Body:    "SELECT municipio FROM delitos_analitica",
			Args:    []interface{}{"HURTO"},
			Guarded: true,
		}},
		{"guarded cte", &statsql.Statement{
			Body:    "WITH b AS (SELECT 1 FROM t) SELECT * FROM b",
			Guarded: true,
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := g.Check(tc.stmt)
			require.Error(t, err)
			var rejected *errors.ErrQueryRejected
			assert.ErrorAs(t, err, &rejected)
			assert.Equal(t, errors.CodeInternal, errors.CodeOf(err))
		})
	}
}
