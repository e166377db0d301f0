package stats

import (
	"context"
	"strconv"
	"strings"

	"github.com/seguridad-santander/crimestats/internal/errors"
	statsql "github.com/seguridad-santander/crimestats/internal/sql"
	"github.com/seguridad-santander/crimestats/internal/storage"
)

// SummaryStatement builds the annual summary for one category and year.
//
// Counts are first summed per municipality and weapon category. Each
// municipality then gets its annual total and its dominant weapon category:
// the highest sum, ties going to the smallest weapon category name. Records
// without a weapon category count toward the total but never dominate, so a
// municipality with no weapon breakdown reports null dominant fields.
// Rows are ordered by annual total descending, then municipality.
func (a *Aggregator) SummaryStatement(f SummaryFilter) (*statsql.Statement, error) {
	categoria := f.Categoria
	if strings.TrimSpace(categoria) == "" {
		return nil, errors.NewMissingParameter("categoria")
	}
	if f.Anio <= 0 {
		return nil, errors.NewInvalidParameter("anio", strconv.Itoa(f.Anio), "anio must be a positive year")
	}

	var fs statsql.Filters
	fs.EqString("categoria", &categoria)
	fs.EqInt("anio", &f.Anio)
	fs.EqString("municipio", f.Municipio)
	where, args := statsql.RenderWhere(fs.Predicates())

	body := join(
		"WITH base AS (",
		"SELECT municipio, anio, categoria, arma_categoria, SUM(cantidad) AS total_casos",
		"FROM "+a.cfg.Tables.Crimes,
		where,
		"GROUP BY municipio, anio, categoria, arma_categoria",
		"), agregados AS (",
		"SELECT municipio, anio, categoria, SUM(total_casos) AS total_anual",
		"FROM base",
		"GROUP BY municipio, anio, categoria",
		"), arma_principal AS (",
		"SELECT municipio, arma_categoria, total_casos,",
		"ROW_NUMBER() OVER (PARTITION BY municipio ORDER BY total_casos DESC, arma_categoria ASC) AS rn",
		"FROM base",
		"WHERE arma_categoria IS NOT NULL",
		")",
		"SELECT a.municipio, a.anio, a.categoria, a.total_anual AS total_delitos_anio,",
		"ap.arma_categoria AS arma_mas_frecuente, ap.total_casos AS casos_con_esa_arma",
		"FROM agregados a",
		"LEFT JOIN arma_principal ap ON a.municipio = ap.municipio AND ap.rn = 1",
		"ORDER BY a.total_anual DESC, a.municipio ASC",
	)

	return &statsql.Statement{Name: "annual_summary", Body: body, Args: args}, nil
}

// AnnualSummary returns one row per municipality with its annual total and
// dominant weapon category.
func (a *Aggregator) AnnualSummary(ctx context.Context, f SummaryFilter) ([]storage.Row, error) {
	stmt, err := a.SummaryStatement(f)
	if err != nil {
		return nil, err
	}
	return a.run(ctx, stmt)
}
