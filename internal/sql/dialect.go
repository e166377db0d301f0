package sql

import (
	"strconv"
	"strings"
)

// Paging is the LIMIT/OFFSET window applied after aggregation.
type Paging struct {
	Limit  int
	Offset int
}

// Statement is a generated query in canonical form: ? placeholders, paging
// kept apart from the body so each dialect can place it.
type Statement struct {
	// Name identifies the operation in logs and errors.
	Name string

	// Body is the query text without the paging clause.
	Body string

	// Args are the values bound to the placeholders in Body, in order.
	Args []interface{}

	// Paging is applied after the body when non-nil.
	Paging *Paging

	// Guarded statements are checked by Guard before execution.
	Guarded bool
}

// Canonical returns the statement text with a trailing LIMIT ? OFFSET ? and
// the full argument list. This is the form checked by Guard.
func (s *Statement) Canonical() (string, []interface{}) {
	args := append([]interface{}{}, s.Args...)
	if s.Paging == nil {
		return s.Body, args
	}
	return s.Body + " LIMIT ? OFFSET ?", append(args, s.Paging.Limit, s.Paging.Offset)
}

// PlaceholderStyle is how a driver expects bound parameters to be written.
type PlaceholderStyle int

const (
	// PlaceholderQuestion writes ? for every parameter.
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar writes $1, $2, ... in order.
	PlaceholderDollar
)

// PagingStyle is the clause order a driver accepts for paging.
type PagingStyle int

const (
	// PagingLimitOffset renders LIMIT ? OFFSET ?.
	PagingLimitOffset PagingStyle = iota
	// PagingOffsetLimit renders OFFSET ? LIMIT ? (Trino).
	PagingOffsetLimit
)

// Dialect describes the SQL surface differences between store drivers.
type Dialect struct {
	Name        string
	Placeholder PlaceholderStyle
	Paging      PagingStyle
}

var (
	DialectSQLite   = Dialect{Name: "sqlite", Placeholder: PlaceholderQuestion, Paging: PagingLimitOffset}
	DialectPostgres = Dialect{Name: "postgres", Placeholder: PlaceholderDollar, Paging: PagingLimitOffset}
	DialectDuckDB   = Dialect{Name: "duckdb", Placeholder: PlaceholderQuestion, Paging: PagingLimitOffset}
	DialectTrino    = Dialect{Name: "trino", Placeholder: PlaceholderQuestion, Paging: PagingOffsetLimit}
)

// Render produces the driver-specific query text and arguments for stmt.
func (d Dialect) Render(stmt *Statement) (string, []interface{}) {
	query := stmt.Body
	args := append([]interface{}{}, stmt.Args...)

	if stmt.Paging != nil {
		switch d.Paging {
		case PagingOffsetLimit:
			query += " OFFSET ? LIMIT ?"
			args = append(args, stmt.Paging.Offset, stmt.Paging.Limit)
		default:
			query += " LIMIT ? OFFSET ?"
			args = append(args, stmt.Paging.Limit, stmt.Paging.Offset)
		}
	}

	return d.Rebind(query), args
}

// Rebind rewrites ? placeholders into the dialect's placeholder style.
// Question marks inside quoted literals or identifiers are left alone.
func (d Dialect) Rebind(query string) string {
	if d.Placeholder != PlaceholderDollar {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	var quote rune
	for _, r := range query {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
			b.WriteRune(r)
		case r == '\'' || r == '"':
			quote = r
			b.WriteRune(r)
		case r == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
