package stats

import (
	"strconv"

	"github.com/seguridad-santander/crimestats/internal/errors"
	statsql "github.com/seguridad-santander/crimestats/internal/sql"
)

// Page is the optional limit/offset window of a listing.
type Page struct {
	Limit  *int
	Offset *int
}

// CrimeFilter holds the optional filters of the crime listing. A nil field is
// an absent filter.
type CrimeFilter struct {
	Municipio   *string
	Categoria   *string
	Anio        *int
	Mes         *int
	Genero      *string
	GrupoEtario *string
	Page
}

// RiskFilter holds the optional filters of the risk listing.
type RiskFilter struct {
	Municipio *string
	Categoria *string
	Anio      *int
	Mes       *int
	Page
}

// SummaryFilter selects the annual summary.
type SummaryFilter struct {
	Categoria string
	Anio      int
	Municipio *string
}

// HeatmapFilter selects the heatmap. Categoria is required.
type HeatmapFilter struct {
	Categoria   string
	Anio        *int
	Mes         *int
	Genero      *string
	GrupoEtario *string
}

var (
	crimeFilterColumns = []string{"municipio", "categoria", "anio", "mes", "genero", "grupo_etario"}
	riskFilterColumns  = []string{"municipio", "categoria", "anio", "mes"}
)

func (f CrimeFilter) predicates() []statsql.Predicate {
	var fs statsql.Filters
	fs.EqString("municipio", f.Municipio).
		EqString("categoria", f.Categoria).
		EqInt("anio", f.Anio).
		EqInt("mes", f.Mes).
		EqString("genero", f.Genero).
		EqString("grupo_etario", f.GrupoEtario)
	return fs.Predicates()
}

func (f RiskFilter) predicates() []statsql.Predicate {
	var fs statsql.Filters
	fs.EqString("municipio", f.Municipio).
		EqString("categoria", f.Categoria).
		EqInt("anio", f.Anio).
		EqInt("mes", f.Mes)
	return fs.Predicates()
}

// paging resolves the listing window against the configured default and cap.
func (a *Aggregator) paging(p Page) (*statsql.Paging, error) {
	limit := a.cfg.DefaultLimit
	if p.Limit != nil {
		if *p.Limit < 0 {
			return nil, errors.NewInvalidParameter("limit", strconv.Itoa(*p.Limit), "limit must be non-negative")
		}
		limit = *p.Limit
	}
	if a.cfg.MaxLimit > 0 && limit > a.cfg.MaxLimit {
		limit = a.cfg.MaxLimit
	}

	offset := 0
	if p.Offset != nil {
		if *p.Offset < 0 {
			return nil, errors.NewInvalidParameter("offset", strconv.Itoa(*p.Offset), "offset must be non-negative")
		}
		offset = *p.Offset
	}

	return &statsql.Paging{Limit: limit, Offset: offset}, nil
}
