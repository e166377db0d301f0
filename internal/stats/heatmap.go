package stats

import (
	"context"
	"strings"

	"github.com/seguridad-santander/crimestats/internal/errors"
	statsql "github.com/seguridad-santander/crimestats/internal/sql"
	"github.com/seguridad-santander/crimestats/internal/storage"
)

// NormalizeCategory upper-cases and trims a heatmap category.
func NormalizeCategory(v string) string {
	return strings.ToUpper(strings.TrimSpace(v))
}

// HeatmapStatement builds the geocoded aggregate: counts summed per
// municipality, joined to coordinates by trimmed, case-insensitive name.
// Municipalities without coordinates are dropped after the join. Rows are
// ordered by municipality.
func (a *Aggregator) HeatmapStatement(f HeatmapFilter) (*statsql.Statement, error) {
	categoria := NormalizeCategory(f.Categoria)
	if categoria == "" {
		return nil, errors.NewMissingParameter("categoria")
	}

	var fs statsql.Filters
	fs.EqString("categoria", &categoria).
		EqInt("anio", f.Anio).
		EqInt("mes", f.Mes).
		EqString("genero", f.Genero).
		EqString("grupo_etario", f.GrupoEtario)
	where, args := statsql.RenderWhere(fs.Predicates())

	body := join(
		"SELECT d.municipio AS municipio, c.latitud AS lat, c.longitud AS lng, d.total AS count",
		"FROM (",
		"SELECT municipio, SUM(cantidad) AS total",
		"FROM "+a.cfg.Tables.Crimes,
		where,
		"GROUP BY municipio",
		") d",
		"LEFT JOIN "+a.cfg.Tables.Coordinates+" c ON UPPER(TRIM(d.municipio)) = UPPER(TRIM(c.municipio))",
		"WHERE c.latitud IS NOT NULL AND c.longitud IS NOT NULL",
		"ORDER BY d.municipio ASC",
	)

	return &statsql.Statement{Name: "heatmap", Body: body, Args: args}, nil
}

// Heatmap returns {municipio, lat, lng, count} rows for one category.
func (a *Aggregator) Heatmap(ctx context.Context, f HeatmapFilter) ([]storage.Row, error) {
	stmt, err := a.HeatmapStatement(f)
	if err != nil {
		return nil, err
	}
	return a.run(ctx, stmt)
}
