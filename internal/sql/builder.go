// Package sql builds the parameterized statements executed against the
// statistics store.
//
// Optional filters are folded into (column, operator, value) triples and a
// single renderer turns them into query text plus a parallel argument list.
// Values never reach the SQL text.
package sql

import (
	"strings"

	"github.com/seguridad-santander/crimestats/internal/errors"
)

// Operator is a comparison operator allowed in a predicate.
type Operator string

const (
	// OpEq is equality against a bound value.
	OpEq Operator = "="
)

// Predicate is a single (column, operator, bound value) triple.
type Predicate struct {
	Column string
	Op     Operator
	Value  interface{}
}

// Filters accumulates predicates for the optional values that are present.
// The zero value is ready to use.
type Filters struct {
	preds []Predicate
}

// EqString adds column = v when v is present and non-empty.
func (f *Filters) EqString(column string, v *string) *Filters {
	if v == nil || *v == "" {
		return f
	}
	f.preds = append(f.preds, Predicate{Column: column, Op: OpEq, Value: *v})
	return f
}

// EqInt adds column = v when v is present.
func (f *Filters) EqInt(column string, v *int) *Filters {
	if v == nil {
		return f
	}
	f.preds = append(f.preds, Predicate{Column: column, Op: OpEq, Value: *v})
	return f
}

// Predicates returns a copy of the accumulated predicates in insertion order.
func (f *Filters) Predicates() []Predicate {
	out := make([]Predicate, len(f.preds))
	copy(out, f.preds)
	return out
}

// Len returns the number of accumulated predicates.
func (f *Filters) Len() int {
	return len(f.preds)
}

// CheckAllowed verifies every predicate targets a column in allowed and uses a
// known operator.
func CheckAllowed(table string, allowed []string, preds []Predicate) error {
	set := make(map[string]struct{}, len(allowed))
	for _, c := range allowed {
		set[c] = struct{}{}
	}
	for _, p := range preds {
		if _, ok := set[p.Column]; !ok {
			return errors.NewUnknownFilter(table, p.Column)
		}
		if p.Op != OpEq {
			return errors.NewUnknownFilter(table, p.Column+" "+string(p.Op))
		}
	}
	return nil
}

// RenderWhere renders predicates as a WHERE clause joined with AND, using ?
// placeholders. It returns an empty clause when there are no predicates.
func RenderWhere(preds []Predicate) (string, []interface{}) {
	if len(preds) == 0 {
		return "", nil
	}
	return "WHERE " + renderConditions(preds), collectArgs(preds)
}

// RenderAnd renders predicates as additional AND conditions to append to an
// existing WHERE clause.
func RenderAnd(preds []Predicate) (string, []interface{}) {
	if len(preds) == 0 {
		return "", nil
	}
	return "AND " + renderConditions(preds), collectArgs(preds)
}

func renderConditions(preds []Predicate) string {
	parts := make([]string, 0, len(preds))
	for _, p := range preds {
		parts = append(parts, p.Column+" "+string(p.Op)+" ?")
	}
	return strings.Join(parts, " AND ")
}

func collectArgs(preds []Predicate) []interface{} {
	args := make([]interface{}, 0, len(preds))
	for _, p := range preds {
		args = append(args, p.Value)
	}
	return args
}
