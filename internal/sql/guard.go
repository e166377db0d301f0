package sql

import (
	"fmt"
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/seguridad-santander/crimestats/internal/errors"
)

// Operation is the leading SQL verb of a statement.
type Operation string

const (
	OperationSelect Operation = "SELECT"
	OperationWith   Operation = "WITH"
	OperationInsert Operation = "INSERT"
	OperationUpdate Operation = "UPDATE"
	OperationDelete Operation = "DELETE"
)

// IsWrite reports whether the operation modifies data.
func (o Operation) IsWrite() bool {
	switch o {
	case OperationInsert, OperationUpdate, OperationDelete:
		return true
	}
	return false
}

// Guard verifies generated statements before they reach the store.
//
// Every statement must be read-only. Guarded statements are additionally
// parsed with sqlparser and must be a single SELECT carrying no string
// literals, with exactly one placeholder per bound argument: caller values can
// only travel as arguments.
type Guard struct{}

// NewGuard creates a new Guard.
func NewGuard() *Guard {
	return &Guard{}
}

// Check validates stmt. Unguarded statements (CTEs and window functions the
// MySQL-dialect parser cannot read) only get the read-only check.
func (g *Guard) Check(stmt *Statement) error {
	query, args := stmt.Canonical()

	op, err := g.operation(query)
	if err != nil {
		return err
	}
	if !stmt.Guarded {
		return nil
	}
	if op != OperationSelect {
		return errors.NewQueryRejected(query,
			fmt.Sprintf("guarded statement must be a SELECT, got %s", op),
			"mark the statement unguarded or rewrite it as a plain SELECT")
	}

	return g.inspect(query, len(args))
}

func (g *Guard) operation(query string) (Operation, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", errors.NewQueryRejected(query, "empty query", "generate a non-empty statement")
	}

	upper := strings.ToUpper(query)
	var op Operation
	switch {
	case strings.HasPrefix(upper, "SELECT"):
		op = OperationSelect
	case strings.HasPrefix(upper, "WITH"):
		op = OperationWith
	case strings.HasPrefix(upper, "INSERT"):
		op = OperationInsert
	case strings.HasPrefix(upper, "UPDATE"):
		op = OperationUpdate
	case strings.HasPrefix(upper, "DELETE"):
		op = OperationDelete
	default:
		return "", errors.NewQueryRejected(query,
			"unsupported SQL operation",
			"only SELECT statements are executed")
	}

	if op.IsWrite() {
		return "", errors.NewWriteNotAllowed(string(op))
	}
	return op, nil
}

func (g *Guard) inspect(query string, argCount int) error {
	parsed, err := sqlparser.Parse(query)
	if err != nil {
		return errors.NewQueryRejected(query,
			fmt.Sprintf("statement does not parse: %v", err),
			"fix the statement template")
	}

	if _, ok := parsed.(*sqlparser.Select); !ok {
		return errors.NewQueryRejected(query,
			fmt.Sprintf("expected a single SELECT, got %T", parsed),
			"fix the statement template")
	}

	placeholders := 0
	var literal string
	err = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		v, ok := node.(*sqlparser.SQLVal)
		if !ok {
			return true, nil
		}
		switch v.Type {
		case sqlparser.ValArg:
			placeholders++
		case sqlparser.StrVal:
			literal = string(v.Val)
			return false, fmt.Errorf("string literal")
		}
		return true, nil
	}, parsed)
	if err != nil {
		return errors.NewQueryRejected(query,
			fmt.Sprintf("string literal %q found in generated statement", literal),
			"bind values as parameters")
	}

	if placeholders != argCount {
		return errors.NewQueryRejected(query,
			fmt.Sprintf("statement has %d placeholders but %d arguments", placeholders, argCount),
			"keep placeholders and arguments in step")
	}
	return nil
}
