package storage

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/seguridad-santander/crimestats/internal/errors"
	statsql "github.com/seguridad-santander/crimestats/internal/sql"
)

// Querier is the read surface the aggregator runs against.
// Implementations must be:
// - Safe for concurrent use
// - Context-aware (respecting cancellation/timeout)
// - Explicit about errors (never swallow)
type Querier interface {
	// Query executes stmt and returns every row.
	// Returns an empty slice (not nil) when nothing matches.
	// Returns an ErrDataAccess if:
	// - The store cannot be reached
	// - The statement fails to execute or scan
	// - Context is cancelled
	Query(ctx context.Context, stmt *statsql.Statement) ([]Row, error)

	// Dialect returns the SQL dialect statements are rendered in.
	Dialect() statsql.Dialect
}

var _ Querier = (*Store)(nil)

// TableContract lists the columns a relation must expose.
type TableContract struct {
	Table   string
	Columns []string
}

// SchemaReport is the outcome of probing one relation.
type SchemaReport struct {
	Table string

	// Exists is false when the relation itself cannot be read.
	Exists bool

	// Missing lists the contract columns the relation lacks.
	Missing []string

	// Err is the mismatch, nil when the relation satisfies its contract.
	Err error
}

// OK reports whether the relation satisfies its contract.
func (r SchemaReport) OK() bool {
	return r.Err == nil
}

// InspectSchema probes every contract with zero-row selects and reports each
// relation. Only connection-level failures are returned as errors.
func (s *Store) InspectSchema(ctx context.Context, contracts []TableContract) ([]SchemaReport, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, errors.NewDataAccess("inspect schema", err)
	}
	defer conn.Close()

	probe := func(table string, columns []string) error {
		rows, err := conn.QueryContext(ctx, "SELECT "+strings.Join(columns, ", ")+" FROM "+table+" WHERE 1 = 0")
		if err != nil {
			return err
		}
		return rows.Close()
	}

	reports := make([]SchemaReport, 0, len(contracts))
	for _, c := range contracts {
		report := SchemaReport{Table: c.Table, Exists: true}

		if err := probe(c.Table, c.Columns); err != nil {
			if ctx.Err() != nil {
				return nil, errors.NewDataAccess("inspect schema", ctx.Err())
			}
			if probe(c.Table, []string{"*"}) != nil {
				report.Exists = false
				report.Missing = append([]string{}, c.Columns...)
			} else {
				for _, col := range c.Columns {
					if probe(c.Table, []string{col}) != nil {
						report.Missing = append(report.Missing, col)
					}
				}
			}
			report.Err = errors.NewSchemaMismatch(c.Table, report.Missing, err)
		}

		reports = append(reports, report)
	}
	return reports, nil
}

// CheckSchema returns the joined mismatches of InspectSchema, or nil when
// every relation satisfies its contract.
func (s *Store) CheckSchema(ctx context.Context, contracts []TableContract) error {
	reports, err := s.InspectSchema(ctx, contracts)
	if err != nil {
		return err
	}

	var errs []error
	for _, r := range reports {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return stderrors.Join(errs...)
}
