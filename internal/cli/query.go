package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seguridad-santander/crimestats/internal/adapters/builtin"
	"github.com/seguridad-santander/crimestats/internal/errors"
	statsql "github.com/seguridad-santander/crimestats/internal/sql"
	"github.com/seguridad-santander/crimestats/internal/stats"
	"github.com/seguridad-santander/crimestats/internal/storage"
	"github.com/seguridad-santander/crimestats/pkg/api"
)

func (c *CLI) newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run statistics queries against the configured store",
		Long: `Run the statistics queries served by the HTTP API directly against the
configured store. Flags mirror the HTTP query parameters.

Use --explain to print the generated SQL and its bound arguments without
executing it.`,
	}

	cmd.AddCommand(c.newQueryMunicipalitiesCmd())
	cmd.AddCommand(c.newQueryCrimesCmd())
	cmd.AddCommand(c.newQueryRiskCmd())
	cmd.AddCommand(c.newQuerySummaryCmd())
	cmd.AddCommand(c.newQueryHeatmapCmd())

	return cmd
}

// queryFlags holds the filter flags shared by the query subcommands.
type queryFlags struct {
	cmd *cobra.Command

	municipio   string
	categoria   string
	anio        int
	mes         int
	genero      string
	grupoEtario string
	limit       int
	offset      int
	explain     bool
}

func newQueryFlags(cmd *cobra.Command) *queryFlags {
	f := &queryFlags{cmd: cmd}
	cmd.Flags().BoolVar(&f.explain, "explain", false, "print the generated SQL instead of running it")
	return f
}

func (f *queryFlags) withMunicipio() *queryFlags {
	f.cmd.Flags().StringVar(&f.municipio, api.ParamMunicipio, "", "municipality name (exact match)")
	return f
}

func (f *queryFlags) withCategoria(required bool) *queryFlags {
	usage := "crime category (exact match)"
	if required {
		usage = "crime category (required)"
	}
	f.cmd.Flags().StringVar(&f.categoria, api.ParamCategoria, "", usage)
	return f
}

func (f *queryFlags) withPeriod() *queryFlags {
	f.cmd.Flags().IntVar(&f.anio, api.ParamAnio, 0, "year")
	f.cmd.Flags().IntVar(&f.mes, api.ParamMes, 0, "month, 1-12")
	return f
}

func (f *queryFlags) withDemographics() *queryFlags {
	f.cmd.Flags().StringVar(&f.genero, api.ParamGenero, "", "victim gender")
	f.cmd.Flags().StringVar(&f.grupoEtario, api.ParamGrupoEtario, "", "victim age group")
	return f
}

func (f *queryFlags) withPaging() *queryFlags {
	f.cmd.Flags().IntVar(&f.limit, api.ParamLimit, 0, "maximum rows (default from query.default_limit)")
	f.cmd.Flags().IntVar(&f.offset, api.ParamOffset, 0, "rows to skip")
	return f
}

// str returns nil unless the flag was set to a non-empty value.
func (f *queryFlags) str(name, v string) *string {
	if !f.cmd.Flags().Changed(name) || v == "" {
		return nil
	}
	return &v
}

// num returns nil unless the flag was set, and checks it lies in [lo, hi].
// hi <= 0 means unbounded.
func (f *queryFlags) num(name string, v, lo, hi int) (*int, error) {
	if !f.cmd.Flags().Changed(name) {
		return nil, nil
	}
	if v < lo || (hi > 0 && v > hi) {
		reason := fmt.Sprintf("value must be at least %d", lo)
		if hi > 0 {
			reason = fmt.Sprintf("value must be between %d and %d", lo, hi)
		}
		return nil, errors.NewInvalidParameter(name, fmt.Sprint(v), reason)
	}
	return &v, nil
}

func (f *queryFlags) period() (anio, mes *int, err error) {
	if anio, err = f.num(api.ParamAnio, f.anio, 1, 0); err != nil {
		return nil, nil, err
	}
	if mes, err = f.num(api.ParamMes, f.mes, 1, 12); err != nil {
		return nil, nil, err
	}
	return anio, mes, nil
}

func (f *queryFlags) page() stats.Page {
	var p stats.Page
	if f.cmd.Flags().Changed(api.ParamLimit) {
		p.Limit = &f.limit
	}
	if f.cmd.Flags().Changed(api.ParamOffset) {
		p.Offset = &f.offset
	}
	return p
}

// query pairs a statement builder with the operation that runs it.
type query struct {
	statement func(a *stats.Aggregator) (*statsql.Statement, error)
	run       func(ctx context.Context, a *stats.Aggregator) ([]storage.Row, error)
}

func (c *CLI) runQuery(ctx context.Context, f *queryFlags, q query) error {
	if f.explain {
		return c.explain(q)
	}

	sys, err := c.startSystem(ctx, false)
	if err != nil {
		return err
	}
	defer sys.Close()

	rows, err := q.run(ctx, sys.Aggregator)
	if err != nil {
		return err
	}
	c.debugf("%d row(s) returned\n", len(rows))
	return c.renderRows(rows)
}

// StatementExplanation represents the output of query --explain.
type StatementExplanation struct {
	Name    string        `json:"name" yaml:"name"`
	Driver  string        `json:"driver" yaml:"driver"`
	SQL     string        `json:"sql" yaml:"sql"`
	Args    []interface{} `json:"args" yaml:"args"`
	Guarded bool          `json:"guarded" yaml:"guarded"`
}

// explain renders the statement for the configured driver without opening
// the store.
func (c *CLI) explain(q query) error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	registry := builtin.Registry()
	adapter, ok := registry.Get(c.cfg.Store.Driver)
	if !ok {
		return errors.NewUnsupportedDriver(c.cfg.Store.Driver, registry.Available())
	}

	stmt, err := q.statement(stats.New(nil, c.cfg.StatsConfig()))
	if err != nil {
		return err
	}
	text, args := adapter.Dialect().Render(stmt)

	explanation := StatementExplanation{
		Name:    stmt.Name,
		Driver:  adapter.Name(),
		SQL:     text,
		Args:    args,
		Guarded: stmt.Guarded,
	}
	if done, err := c.outputStructured(explanation); done {
		return err
	}

	c.println("Statement Explanation")
	c.println("=====================")
	c.printf("  Name:    %s\n", explanation.Name)
	c.printf("  Driver:  %s\n", explanation.Driver)
	c.printf("  Guarded: %v\n", explanation.Guarded)
	c.println("")
	c.println(explanation.SQL)
	c.println("")
	c.println("Arguments:")
	if len(args) == 0 {
		c.println("  (none)")
	}
	for i, a := range args {
		c.printf("  %d: %v\n", i+1, a)
	}
	return nil
}

func (c *CLI) newQueryMunicipalitiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "municipios",
		Aliases: []string{"municipalities"},
		Short:   "List every municipality",
		Args:    cobra.NoArgs,
	}
	f := newQueryFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return c.runQuery(cmd.Context(), f, query{
			statement: func(a *stats.Aggregator) (*statsql.Statement, error) {
				return a.MunicipalitiesStatement(), nil
			},
			run: func(ctx context.Context, a *stats.Aggregator) ([]storage.Row, error) {
				return a.ListMunicipalities(ctx)
			},
		})
	}
	return cmd
}

func (c *CLI) newQueryCrimesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delitos",
		Aliases: []string{"crimes"},
		Short:   "List crime counts by municipality, period, category and demographics",
		Long: `List crime counts summed over every dimension except the weapon, ordered
by year, month and municipality.

Example:
  crimestats query delitos --categoria HURTO --anio 2023 --mes 5 -o json`,
		Args: cobra.NoArgs,
	}
	f := newQueryFlags(cmd).withMunicipio().withCategoria(false).withPeriod().withDemographics().withPaging()
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		anio, mes, err := f.period()
		if err != nil {
			return err
		}
		filter := stats.CrimeFilter{
			Municipio:   f.str(api.ParamMunicipio, f.municipio),
			Categoria:   f.str(api.ParamCategoria, f.categoria),
			Anio:        anio,
			Mes:         mes,
			Genero:      f.str(api.ParamGenero, f.genero),
			GrupoEtario: f.str(api.ParamGrupoEtario, f.grupoEtario),
			Page:        f.page(),
		}
		return c.runQuery(cmd.Context(), f, query{
			statement: func(a *stats.Aggregator) (*statsql.Statement, error) {
				return a.CrimesStatement(filter)
			},
			run: func(ctx context.Context, a *stats.Aggregator) ([]storage.Row, error) {
				return a.ListCrimes(ctx, filter)
			},
		})
	}
	return cmd
}

func (c *CLI) newQueryRiskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "riesgo",
		Aliases: []string{"risk"},
		Short:   "List monthly risk scores per municipality and category",
		Args:    cobra.NoArgs,
	}
	f := newQueryFlags(cmd).withMunicipio().withCategoria(false).withPeriod().withPaging()
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		anio, mes, err := f.period()
		if err != nil {
			return err
		}
		filter := stats.RiskFilter{
			Municipio: f.str(api.ParamMunicipio, f.municipio),
			Categoria: f.str(api.ParamCategoria, f.categoria),
			Anio:      anio,
			Mes:       mes,
			Page:      f.page(),
		}
		return c.runQuery(cmd.Context(), f, query{
			statement: func(a *stats.Aggregator) (*statsql.Statement, error) {
				return a.RiskStatement(filter)
			},
			run: func(ctx context.Context, a *stats.Aggregator) ([]storage.Row, error) {
				return a.ListRisk(ctx, filter)
			},
		})
	}
	return cmd
}

func (c *CLI) newQuerySummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "resumen",
		Aliases: []string{"summary"},
		Short:   "Annual totals per municipality with the dominant weapon",
		Long: `Summarise one category over one year: total cases per municipality and
the weapon involved in most of them. Municipalities with no recorded weapon
are listed with an empty weapon.

Example:
  crimestats query resumen --categoria HURTO --anio 2023`,
		Args: cobra.NoArgs,
	}
	f := newQueryFlags(cmd).withCategoria(true).withMunicipio()
	cmd.Flags().IntVar(&f.anio, api.ParamAnio, 0, "year (required)")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed(api.ParamCategoria) {
			return errors.NewMissingParameter(api.ParamCategoria)
		}
		if !cmd.Flags().Changed(api.ParamAnio) {
			return errors.NewMissingParameter(api.ParamAnio)
		}
		filter := stats.SummaryFilter{
			Categoria: f.categoria,
			Anio:      f.anio,
			Municipio: f.str(api.ParamMunicipio, f.municipio),
		}
		return c.runQuery(cmd.Context(), f, query{
			statement: func(a *stats.Aggregator) (*statsql.Statement, error) {
				return a.SummaryStatement(filter)
			},
			run: func(ctx context.Context, a *stats.Aggregator) ([]storage.Row, error) {
				return a.AnnualSummary(ctx, filter)
			},
		})
	}
	return cmd
}

func (c *CLI) newQueryHeatmapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Crime totals per municipality with coordinates",
		Long: `Sum one category per municipality and attach its coordinates.
The category is matched case-insensitively; municipalities without
coordinates are left out.`,
		Args: cobra.NoArgs,
	}
	f := newQueryFlags(cmd).withCategoria(true).withPeriod().withDemographics()
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed(api.ParamCategoria) {
			return errors.NewMissingParameter(api.ParamCategoria)
		}
		anio, mes, err := f.period()
		if err != nil {
			return err
		}
		filter := stats.HeatmapFilter{
			Categoria:   f.categoria,
			Anio:        anio,
			Mes:         mes,
			Genero:      f.str(api.ParamGenero, f.genero),
			GrupoEtario: f.str(api.ParamGrupoEtario, f.grupoEtario),
		}
		return c.runQuery(cmd.Context(), f, query{
			statement: func(a *stats.Aggregator) (*statsql.Statement, error) {
				return a.HeatmapStatement(filter)
			},
			run: func(ctx context.Context, a *stats.Aggregator) ([]storage.Row, error) {
				return a.Heatmap(ctx, filter)
			},
		})
	}
	return cmd
}
