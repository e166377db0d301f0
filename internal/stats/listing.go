package stats

import (
	"context"
	"strings"

	statsql "github.com/seguridad-santander/crimestats/internal/sql"
	"github.com/seguridad-santander/crimestats/internal/storage"
)

// MunicipalitiesStatement builds the full municipality listing.
func (a *Aggregator) MunicipalitiesStatement() *statsql.Statement {
	return &statsql.Statement{
		Name:    "list_municipalities",
		Body:    "SELECT municipio, region, es_zona_metro FROM " + a.cfg.Tables.Municipalities + " ORDER BY municipio",
		Guarded: true,
	}
}

// ListMunicipalities returns every municipality sorted by name.
func (a *Aggregator) ListMunicipalities(ctx context.Context) ([]storage.Row, error) {
	return a.run(ctx, a.MunicipalitiesStatement())
}

// CrimesStatement builds the crime listing: counts summed over the
// dimensions kept, ordered by year, month and municipality.
func (a *Aggregator) CrimesStatement(f CrimeFilter) (*statsql.Statement, error) {
	preds := f.predicates()
	if err := statsql.CheckAllowed(a.cfg.Tables.Crimes, crimeFilterColumns, preds); err != nil {
		return nil, err
	}
	paging, err := a.paging(f.Page)
	if err != nil {
		return nil, err
	}

	dims := "municipio, anio, mes, categoria, genero, grupo_etario"
	where, args := statsql.RenderWhere(preds)

	return &statsql.Statement{
		Name: "list_crimes",
		Body: join(
			"SELECT "+dims+", SUM(cantidad) AS cantidad",
			"FROM "+a.cfg.Tables.Crimes,
			where,
			"GROUP BY "+dims,
			"ORDER BY anio, mes, municipio, categoria, genero, grupo_etario",
		),
		Args:    args,
		Paging:  paging,
		Guarded: true,
	}, nil
}

// ListCrimes returns the filtered crime listing.
func (a *Aggregator) ListCrimes(ctx context.Context, f CrimeFilter) ([]storage.Row, error) {
	stmt, err := a.CrimesStatement(f)
	if err != nil {
		return nil, err
	}
	return a.run(ctx, stmt)
}

// RiskStatement builds the risk listing. The risk relation already holds one
// row per municipality, month and category, so rows are projected as stored.
func (a *Aggregator) RiskStatement(f RiskFilter) (*statsql.Statement, error) {
	preds := f.predicates()
	if err := statsql.CheckAllowed(a.cfg.Tables.Risk, riskFilterColumns, preds); err != nil {
		return nil, err
	}
	paging, err := a.paging(f.Page)
	if err != nil {
		return nil, err
	}

	where, args := statsql.RenderWhere(preds)

	return &statsql.Statement{
		Name: "list_risk",
		Body: join(
			"SELECT municipio, anio, mes, categoria, riesgo_score, nivel_riesgo, delitos_observados, delitos_esperados",
			"FROM "+a.cfg.Tables.Risk,
			where,
			"ORDER BY anio, mes, municipio, categoria",
		),
		Args:    args,
		Paging:  paging,
		Guarded: true,
	}, nil
}

// ListRisk returns the filtered risk listing.
func (a *Aggregator) ListRisk(ctx context.Context, f RiskFilter) ([]storage.Row, error) {
	stmt, err := a.RiskStatement(f)
	if err != nil {
		return nil, err
	}
	return a.run(ctx, stmt)
}

// join joins the non-empty clauses with single spaces.
func join(clauses ...string) string {
	parts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " ")
}
