// Package api defines the public endpoints of the crimestats HTTP service.
package api

// Version of the HTTP API.
const Version = "1.0.0"

// Statistics endpoints.
const (
	EndpointRoot           = "/"
	EndpointMunicipalities = "/municipios"
	EndpointCrimes         = "/delitos"
	EndpointRisk           = "/riesgo"
	EndpointSummary        = "/resumen_delitos"
	EndpointHeatmap        = "/heatmap"
)

// Operational endpoints.
const (
	EndpointHealth  = "/health"
	EndpointReady   = "/readyz"
	EndpointStatus  = "/status"
	EndpointMetrics = "/metrics"
)

// Query parameters.
const (
	ParamMunicipio   = "municipio"
	ParamCategoria   = "categoria"
	ParamAnio        = "anio"
	ParamMes         = "mes"
	ParamGenero      = "genero"
	ParamGrupoEtario = "grupo_etario"
	ParamLimit       = "limit"
	ParamOffset      = "offset"
)

// HTTP headers
const (
	HeaderContentType = "Content-Type"
	HeaderRequestID   = "X-Request-ID"
	HeaderQueryID     = "X-Query-ID"
)

// Content types
const (
	ContentTypeJSON = "application/json"
)

// StatisticsEndpoints lists the query endpoints in the order the root
// endpoint advertises them.
func StatisticsEndpoints() []string {
	return []string{
		EndpointMunicipalities,
		EndpointCrimes,
		EndpointRisk,
		EndpointSummary,
		EndpointHeatmap,
	}
}
