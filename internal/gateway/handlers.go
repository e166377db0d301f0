package gateway

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/seguridad-santander/crimestats/internal/errors"
	"github.com/seguridad-santander/crimestats/internal/observability"
	"github.com/seguridad-santander/crimestats/internal/stats"
	"github.com/seguridad-santander/crimestats/internal/storage"
	"github.com/seguridad-santander/crimestats/pkg/api"
	"github.com/seguridad-santander/crimestats/pkg/models"
)

type queryFunc func(ctx context.Context) ([]storage.Row, error)

// serveRows runs fn once the parameters parsed cleanly, records the query
// and writes the rows.
func (g *Gateway) serveRows(c echo.Context, endpoint string, p *params, fn queryFunc) error {
	queryID := observability.NewQueryID()
	c.Response().Header().Set(api.HeaderQueryID, queryID)

	start := time.Now()
	var rows []storage.Row
	err := p.err
	if err == nil {
		rows, err = fn(c.Request().Context())
	}

	entry := observability.QueryLogEntry{
		QueryID:       queryID,
		Endpoint:      endpoint,
		Filters:       p.given,
		Driver:        g.driver,
		RowCount:      len(rows),
		ExecutionTime: time.Since(start),
		Outcome:       observability.OutcomeSuccess,
	}
	if err != nil {
		entry.Outcome = observability.OutcomeError
		if errors.CodeOf(err) == errors.CodeValidation {
			entry.Outcome = observability.OutcomeRejected
		}
		entry.Error = err.Error()
	}
	g.recorder.Record(c.Request().Context(), entry)

	if err != nil {
		return g.writeError(c, queryID, err)
	}
	return c.JSON(http.StatusOK, rows)
}

func (g *Gateway) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, models.ServiceInfo{
		Message:   "crimestats query service",
		Version:   g.cfg.Version,
		Endpoints: api.StatisticsEndpoints(),
	})
}

func (g *Gateway) handleMunicipalities(c echo.Context) error {
	return g.serveRows(c, api.EndpointMunicipalities, newParams(c), g.agg.ListMunicipalities)
}

func (g *Gateway) handleCrimes(c echo.Context) error {
	p := newParams(c)
	f := stats.CrimeFilter{
		Municipio:   p.optString(api.ParamMunicipio),
		Categoria:   p.optString(api.ParamCategoria),
		Anio:        p.anio(),
		Mes:         p.mes(),
		Genero:      p.optString(api.ParamGenero),
		GrupoEtario: p.optString(api.ParamGrupoEtario),
		Page:        stats.Page{Limit: p.limit(), Offset: p.offset()},
	}
	return g.serveRows(c, api.EndpointCrimes, p, func(ctx context.Context) ([]storage.Row, error) {
		return g.agg.ListCrimes(ctx, f)
	})
}

func (g *Gateway) handleRisk(c echo.Context) error {
	p := newParams(c)
	f := stats.RiskFilter{
		Municipio: p.optString(api.ParamMunicipio),
		Categoria: p.optString(api.ParamCategoria),
		Anio:      p.anio(),
		Mes:       p.mes(),
		Page:      stats.Page{Limit: p.limit(), Offset: p.offset()},
	}
	return g.serveRows(c, api.EndpointRisk, p, func(ctx context.Context) ([]storage.Row, error) {
		return g.agg.ListRisk(ctx, f)
	})
}

func (g *Gateway) handleSummary(c echo.Context) error {
	p := newParams(c)
	f := stats.SummaryFilter{
		Categoria: p.reqString(api.ParamCategoria),
		Anio:      p.reqInt(api.ParamAnio, minYear, math.MaxInt),
		Municipio: p.optString(api.ParamMunicipio),
	}
	return g.serveRows(c, api.EndpointSummary, p, func(ctx context.Context) ([]storage.Row, error) {
		return g.agg.AnnualSummary(ctx, f)
	})
}

func (g *Gateway) handleHeatmap(c echo.Context) error {
	p := newParams(c)
	f := stats.HeatmapFilter{
		Categoria:   p.reqString(api.ParamCategoria),
		Anio:        p.anio(),
		Mes:         p.mes(),
		Genero:      p.optString(api.ParamGenero),
		GrupoEtario: p.optString(api.ParamGrupoEtario),
	}
	return g.serveRows(c, api.EndpointHeatmap, p, func(ctx context.Context) ([]storage.Row, error) {
		return g.agg.Heatmap(ctx, f)
	})
}

func (g *Gateway) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, models.HealthResponse{Status: "ok", Version: g.cfg.Version})
}

func (g *Gateway) handleReady(c echo.Context) error {
	result, err := g.checker.GetStatus(c.Request().Context())
	if err != nil {
		return g.writeError(c, "", err)
	}
	code := http.StatusOK
	if !result.Ready {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, result)
}

func (g *Gateway) handleStatus(c echo.Context) error {
	result, err := g.checker.GetStatus(c.Request().Context())
	if err != nil {
		return g.writeError(c, "", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": result,
		"audit":  g.recorder.AuditSummary(),
	})
}
