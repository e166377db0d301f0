package gateway_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seguridad-santander/crimestats/internal/gateway"
	"github.com/seguridad-santander/crimestats/internal/observability"
	"github.com/seguridad-santander/crimestats/internal/stats"
	"github.com/seguridad-santander/crimestats/internal/status"
	"github.com/seguridad-santander/crimestats/internal/storage"
	"github.com/seguridad-santander/crimestats/internal/testutil"
	"github.com/seguridad-santander/crimestats/pkg/api"
	"github.com/seguridad-santander/crimestats/pkg/models"
)

func newGateway(t *testing.T, store *storage.Store) *gateway.Gateway {
	t.Helper()
	recorder := &observability.Recorder{
		Queries: observability.NewZerologLogger(testutil.NewTestLogger(t)),
		Metrics: observability.NewMetrics(),
		Logger:  testutil.NewTestLogger(t),
	}
	checker := status.NewStoreChecker(store, stats.DefaultTables().Contract(), "test")
	gw, err := gateway.NewGateway(stats.New(store, stats.DefaultConfig()), checker, recorder, store.Driver(), gateway.Config{
		Version: "test",
		Logger:  testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	return gw
}

func seededGateway(t *testing.T) *gateway.Gateway {
	t.Helper()
	store := testutil.OpenMigratedStore(t)
	testutil.InsertCrimes(t, store,
		testutil.Crime{Municipio: "Bucaramanga", Anio: 2023, Mes: 2, Categoria: "THEFT", Genero: "M", GrupoEtario: "ADULT", Weapon: "FIREARM", Cantidad: 8},
		testutil.Crime{Municipio: "Bucaramanga", Anio: 2023, Mes: 1, Categoria: "THEFT", Genero: "M", GrupoEtario: "ADULT", Weapon: "KNIFE", Cantidad: 5},
		testutil.Crime{Municipio: "Lebrija", Anio: 2023, Mes: 1, Categoria: "THEFT", Genero: "F", GrupoEtario: "ADULT", Weapon: "KNIFE", Cantidad: 1},
	)
	testutil.InsertCoordinate(t, store, "BUCARAMANGA", 7.1193, -73.1227)
	testutil.InsertMunicipality(t, store, "Bucaramanga", "Area Metropolitana", true)
	return newGateway(t, store)
}

func get(t *testing.T, h http.Handler, path string, query url.Values) *httptest.ResponseRecorder {
	t.Helper()
	if query != nil {
		path += "?" + query.Encode()
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// TestGateway_CrimesListing verifies the listing is a JSON array of objects
// in column order.
// Green-Flag: GET /delitos.
func TestGateway_CrimesListing(t *testing.T) {
	gw := seededGateway(t)

	w := get(t, gw, api.EndpointCrimes, url.Values{"categoria": {"THEFT"}, "anio": {"2023"}, "municipio": {"Bucaramanga"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(api.HeaderQueryID))

	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body,
		`[{"municipio":"Bucaramanga","anio":2023,"mes":1,"categoria":"THEFT","genero":"M","grupo_etario":"ADULT","cantidad":5}`),
		body)

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.EqualValues(t, 2, rows[1]["mes"])
	assert.EqualValues(t, 8, rows[1]["cantidad"])
}

// TestGateway_EmptyResultIsEmptyArray verifies no match is not an error.
// Green-Flag: empty result is [].
func TestGateway_EmptyResultIsEmptyArray(t *testing.T) {
	gw := seededGateway(t)

	for _, q := range []url.Values{
		{"municipio": {"Nowhere"}},
		{"municipio": {"' OR 1=1 --"}},
		{"categoria": {"THEFT'; DROP TABLE delitos_analitica; --"}},
	} {
		w := get(t, gw, api.EndpointCrimes, q)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	}

	w := get(t, gw, api.EndpointCrimes, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, "[]", strings.TrimSpace(w.Body.String()))
}

// TestGateway_RejectsMalformedParameters verifies boundary parsing.
// Red-Flag: malformed parameters are 400s, never queries.
func TestGateway_RejectsMalformedParameters(t *testing.T) {
	gw := seededGateway(t)

	cases := []struct {
		path  string
		query url.Values
		param string
	}{
		{api.EndpointCrimes, url.Values{"anio": {"dos mil"}}, "anio"},
		{api.EndpointCrimes, url.Values{"mes": {"13"}}, "mes"},
		{api.EndpointCrimes, url.Values{"mes": {"0"}}, "mes"},
		{api.EndpointCrimes, url.Values{"limit": {"-1"}}, "limit"},
		{api.EndpointRisk, url.Values{"offset": {"-3"}}, "offset"},
		{api.EndpointRisk, url.Values{"anio": {"2023.5"}}, "anio"},
		{api.EndpointSummary, url.Values{"anio": {"2023"}}, "categoria"},
		{api.EndpointSummary, url.Values{"categoria": {"THEFT"}}, "anio"},
		{api.EndpointSummary, url.Values{"categoria": {"THEFT"}, "anio": {"x"}}, "anio"},
		{api.EndpointHeatmap, nil, "categoria"},
		{api.EndpointHeatmap, url.Values{"categoria": {"   "}}, "categoria"},
		{api.EndpointHeatmap, url.Values{"categoria": {"THEFT"}, "mes": {"abc"}}, "mes"},
	}

	for _, tc := range cases {
		t.Run(tc.path+"?"+tc.query.Encode(), func(t *testing.T) {
			w := get(t, gw, tc.path, tc.query)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			resp := decodeError(t, w)
			assert.Contains(t, resp.Error, tc.param)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.NotEmpty(t, resp.Suggestion)
		})
	}
}

// TestGateway_SummaryAndHeatmap verifies the two aggregate endpoints.
// Green-Flag: GET /resumen_delitos and GET /heatmap.
func TestGateway_SummaryAndHeatmap(t *testing.T) {
	gw := seededGateway(t)

	w := get(t, gw, api.EndpointSummary, url.Values{"categoria": {"THEFT"}, "anio": {"2023"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var summary []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	require.Len(t, summary, 2)
	assert.Equal(t, "Bucaramanga", summary[0]["municipio"])
	assert.EqualValues(t, 13, summary[0]["total_delitos_anio"])
	assert.Equal(t, "FIREARM", summary[0]["arma_mas_frecuente"])
	assert.EqualValues(t, 8, summary[0]["casos_con_esa_arma"])

	w = get(t, gw, api.EndpointHeatmap, url.Values{"categoria": {" theft "}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var heat []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &heat))
	require.Len(t, heat, 1, "Lebrija has no coordinates")
	assert.Equal(t, "Bucaramanga", heat[0]["municipio"])
	assert.InDelta(t, 7.1193, heat[0]["lat"], 1e-9)
	assert.EqualValues(t, 13, heat[0]["count"])

	w = get(t, gw, api.EndpointMunicipalities, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"municipio":"Bucaramanga","region":"Area Metropolitana","es_zona_metro":1}]`, w.Body.String())
}

// TestGateway_DataAccessFailureIsGeneric verifies store failures do not leak
// their cause.
// Red-Flag: data access failures are opaque 500s.
func TestGateway_DataAccessFailureIsGeneric(t *testing.T) {
	gw := newGateway(t, testutil.OpenStore(t))

	w := get(t, gw, api.EndpointCrimes, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	resp := decodeError(t, w)
	assert.Equal(t, "data access failure", resp.Error)
	assert.Empty(t, resp.Reason)
	assert.NotContains(t, w.Body.String(), "no such table")
	assert.NotContains(t, w.Body.String(), "delitos_analitica")
	assert.NotEmpty(t, resp.QueryID)
}

// TestGateway_OperationalEndpoints verifies health, readiness, status and
// metrics.
// Green-Flag: operational endpoints.
func TestGateway_OperationalEndpoints(t *testing.T) {
	gw := seededGateway(t)

	w := get(t, gw, api.EndpointHealth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","version":"test"}`, w.Body.String())

	w = get(t, gw, api.EndpointReady, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	get(t, gw, api.EndpointCrimes, nil)
	get(t, gw, api.EndpointHeatmap, nil)

	w = get(t, gw, api.EndpointStatus, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st struct {
		Status status.StatusResult        `json:"status"`
		Audit  observability.AuditSummary `json:"audit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.True(t, st.Status.Ready)
	assert.Equal(t, 1, st.Audit.AcceptedCount)
	assert.Equal(t, 1, st.Audit.RejectedCount)

	w = get(t, gw, api.EndpointMetrics, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body, _ := io.ReadAll(w.Body)
	assert.Contains(t, string(body), `crimestats_queries_total{endpoint="/delitos",outcome="success"} 1`)
	assert.Contains(t, string(body), `crimestats_queries_total{endpoint="/heatmap",outcome="rejected"} 1`)

	w = get(t, gw, api.EndpointRoot, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info models.ServiceInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, api.StatisticsEndpoints(), info.Endpoints)
}

// TestGateway_NotReadyWithoutSchema verifies readiness fails on an empty store.
// Red-Flag: readiness reflects the schema contract.
func TestGateway_NotReadyWithoutSchema(t *testing.T) {
	gw := newGateway(t, testutil.OpenStore(t))

	w := get(t, gw, api.EndpointReady, nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"ready":false`)
}

// TestGateway_CORSAndRouting verifies CORS headers and JSON routing errors.
// Green-Flag: browser clients on any origin by default.
func TestGateway_CORSAndRouting(t *testing.T) {
	gw := seededGateway(t)

	req := httptest.NewRequest(http.MethodGet, api.EndpointHealth, nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	gw.ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = get(t, gw, "/nope", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, http.StatusNotFound, decodeError(t, w).Code)

	req = httptest.NewRequest(http.MethodPost, api.EndpointCrimes, nil)
	w = httptest.NewRecorder()
	gw.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

// TestGateway_RequiresCollaborators verifies construction fails without the
// aggregator or the status checker.
// Red-Flag: the gateway never starts half-wired.
func TestGateway_RequiresCollaborators(t *testing.T) {
	store := testutil.OpenMigratedStore(t)
	checker := status.NewStoreChecker(store, stats.DefaultTables().Contract(), "test")

	_, err := gateway.NewGateway(nil, checker, nil, "sqlite", gateway.Config{})
	assert.Error(t, err)

	_, err = gateway.NewGateway(stats.New(store, stats.DefaultConfig()), nil, nil, "sqlite", gateway.Config{})
	assert.Error(t, err)
}
