package stats_test

import (
	"context"
	stderrors "errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/seguridad-santander/crimestats/internal/errors"
	"github.com/seguridad-santander/crimestats/internal/stats"
	"github.com/seguridad-santander/crimestats/internal/testutil"
)

// TestHeatmap_ExcludesUnresolvedMunicipalities verifies the heatmap and the
// plain listing differ exactly by municipalities without coordinates.
// Green-Flag: post-join coordinate filter.
func TestHeatmap_ExcludesUnresolvedMunicipalities(t *testing.T) {
	agg, store := newAggregator(t,
		theft("Bucaramanga", "KNIFE", 1, 5),
		theft("Bucaramanga", "FIREARM", 2, 3),
		theft("Floridablanca", "KNIFE", 1, 2),
		theft("Lebrija", "KNIFE", 1, 4),
	)
	testutil.InsertCoordinate(t, store, " bucaramanga ", 7.1193, -73.1227)
	testutil.InsertCoordinate(t, store, "FLORIDABLANCA", 7.0622, -73.0864)
	ctx := context.Background()

	heat, err := agg.Heatmap(ctx, stats.HeatmapFilter{Categoria: "THEFT"})
	require.NoError(t, err)
	require.Len(t, heat, 2)

	assert.Equal(t, []string{"municipio", "lat", "lng", "count"}, heat[0].Columns)
	assert.Equal(t, "Bucaramanga", value(t, heat[0], "municipio"))
	assert.InDelta(t, 7.1193, value(t, heat[0], "lat"), 1e-9)
	assert.InDelta(t, -73.1227, value(t, heat[0], "lng"), 1e-9)
	assert.EqualValues(t, 8, value(t, heat[0], "count"))
	assert.Equal(t, "Floridablanca", value(t, heat[1], "municipio"))

	listing, err := agg.ListCrimes(ctx, stats.CrimeFilter{Categoria: ptr("THEFT")})
	require.NoError(t, err)

	listed := map[string]bool{}
	for _, r := range listing {
		listed[value(t, r, "municipio").(string)] = true
	}
	for _, r := range heat {
		delete(listed, value(t, r, "municipio").(string))
	}
	var unresolved []string
	for m := range listed {
		unresolved = append(unresolved, m)
	}
	sort.Strings(unresolved)
	assert.Equal(t, []string{"Lebrija"}, unresolved)
}

// TestHeatmap_NormalizesCategory verifies the category is upper-cased and
// trimmed before filtering.
// Green-Flag: the heatmap is the only operation that rewrites its input.
func TestHeatmap_NormalizesCategory(t *testing.T) {
	agg, store := newAggregator(t, theft("Bucaramanga", "KNIFE", 1, 5))
	testutil.InsertCoordinate(t, store, "Bucaramanga", 7.1193, -73.1227)

	rows, err := agg.Heatmap(context.Background(), stats.HeatmapFilter{Categoria: "  theft "})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 5, value(t, rows[0], "count"))

	stmt, err := agg.HeatmapStatement(stats.HeatmapFilter{Categoria: " theft"})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"THEFT"}, stmt.Args)

	// The summary uses the category exactly as given.
	summary, err := agg.AnnualSummary(context.Background(), stats.SummaryFilter{Categoria: "theft", Anio: 2023})
	require.NoError(t, err)
	assert.Empty(t, summary)
}

// TestHeatmap_OptionalFilters verifies year, month, gender and age group
// narrow the sums.
// Green-Flag: optional heatmap filters.
func TestHeatmap_OptionalFilters(t *testing.T) {
	agg, store := newAggregator(t,
		testutil.Crime{Municipio: "Giron", Anio: 2023, Mes: 1, Categoria: "THEFT", Genero: "F", GrupoEtario: "ADULT", Cantidad: 2},
		testutil.Crime{Municipio: "Giron", Anio: 2023, Mes: 2, Categoria: "THEFT", Genero: "M", GrupoEtario: "ADULT", Cantidad: 3},
		testutil.Crime{Municipio: "Giron", Anio: 2024, Mes: 1, Categoria: "THEFT", Genero: "M", GrupoEtario: "MINOR", Cantidad: 7},
	)
	testutil.InsertCoordinate(t, store, "Giron", 7.0682, -73.1698)
	ctx := context.Background()

	cases := []struct {
		name   string
		filter stats.HeatmapFilter
		want   int64
	}{
		{"none", stats.HeatmapFilter{Categoria: "THEFT"}, 12},
		{"anio", stats.HeatmapFilter{Categoria: "THEFT", Anio: intp(2023)}, 5},
		{"mes", stats.HeatmapFilter{Categoria: "THEFT", Anio: intp(2023), Mes: intp(2)}, 3},
		{"genero", stats.HeatmapFilter{Categoria: "THEFT", Genero: ptr("M")}, 10},
		{"grupo_etario", stats.HeatmapFilter{Categoria: "THEFT", GrupoEtario: ptr("MINOR")}, 7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows, err := agg.Heatmap(ctx, tc.filter)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.EqualValues(t, tc.want, value(t, rows[0], "count"))
		})
	}
}

// TestHeatmap_RequiresCategory verifies a blank category is rejected.
// Red-Flag: categoria is mandatory.
func TestHeatmap_RequiresCategory(t *testing.T) {
	agg := stats.New(nil, stats.DefaultConfig())

	for _, c := range []string{"", "   "} {
		_, err := agg.Heatmap(context.Background(), stats.HeatmapFilter{Categoria: c})
		var missing *cerrors.ErrMissingParameter
		require.True(t, stderrors.As(err, &missing))
		assert.Equal(t, "categoria", missing.Parameter)
	}
}

// TestTables_RejectsNonIdentifierNames verifies configured table names.
// Red-Flag: table names are the only configured text written into SQL.
func TestTables_RejectsNonIdentifierNames(t *testing.T) {
	assert.NoError(t, stats.DefaultTables().Validate())

	tables := stats.DefaultTables()
	tables.Crimes = "analytics.delitos_analitica"
	assert.NoError(t, tables.Validate())

	for _, bad := range []string{"", "delitos; DROP TABLE x", "delitos analitica", "a.b.c", "1delitos"} {
		tables := stats.DefaultTables()
		tables.Risk = bad
		err := tables.Validate()
		var invalid *cerrors.ErrInvalidConfig
		require.Truef(t, stderrors.As(err, &invalid), "expected %q to be rejected", bad)
		assert.Equal(t, "tables.risk", invalid.Field)
	}
}
