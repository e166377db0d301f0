// Package errors provides explicit, human-readable error types for crimestats.
// Every error carries a Reason and a Suggestion so callers of the HTTP API and
// the CLI get actionable feedback.
package errors

import (
	"errors"
	"fmt"
)

// StatsError is the base error type for all crimestats errors.
type StatsError struct {
	Code       ErrorCode
	Message    string
	Reason     string
	Suggestion string
	Cause      error
}

// ErrorCode represents the category of error for exit code and status mapping.
type ErrorCode int

const (
	CodeValidation ErrorCode = 1
	CodeDataAccess ErrorCode = 3
	CodeInternal   ErrorCode = 4
)

func (e *StatsError) Error() string {
	msg := e.Message
	if e.Reason != "" {
		msg = fmt.Sprintf("%s\nReason: %s", msg, e.Reason)
	}
	if e.Suggestion != "" {
		msg = fmt.Sprintf("%s\nSuggestion: %s", msg, e.Suggestion)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s\nCaused by: %v", msg, e.Cause)
	}
	return msg
}

func (e *StatsError) Unwrap() error {
	return e.Cause
}

// ErrInvalidParameter is returned when a caller-supplied parameter cannot be used.
type ErrInvalidParameter struct {
	StatsError
	Parameter string
	Value     string
}

// NewInvalidParameter creates a new ErrInvalidParameter.
func NewInvalidParameter(param, value, reason string) *ErrInvalidParameter {
	return &ErrInvalidParameter{
		StatsError: StatsError{
			Code:       CodeValidation,
			Message:    fmt.Sprintf("invalid value for parameter %s", param),
			Reason:     reason,
			Suggestion: fmt.Sprintf("check the value supplied for '%s'", param),
		},
		Parameter: param,
		Value:     value,
	}
}

// ErrMissingParameter is returned when a required parameter is absent.
type ErrMissingParameter struct {
	StatsError
	Parameter string
}

// NewMissingParameter creates a new ErrMissingParameter.
func NewMissingParameter(param string) *ErrMissingParameter {
	return &ErrMissingParameter{
		StatsError: StatsError{
			Code:       CodeValidation,
			Message:    fmt.Sprintf("missing required parameter %s", param),
			Reason:     "parameter is required for this query",
			Suggestion: fmt.Sprintf("supply '%s' in the query string", param),
		},
		Parameter: param,
	}
}

// ErrUnknownFilter is returned when a predicate targets a column outside the
// listing's allow-list.
type ErrUnknownFilter struct {
	StatsError
	Table  string
	Column string
}

// NewUnknownFilter creates a new ErrUnknownFilter.
func NewUnknownFilter(table, column string) *ErrUnknownFilter {
	return &ErrUnknownFilter{
		StatsError: StatsError{
			Code:       CodeValidation,
			Message:    fmt.Sprintf("filter not allowed on %s", table),
			Reason:     fmt.Sprintf("column %q is not filterable", column),
			Suggestion: "filter only on the documented parameters",
		},
		Table:  table,
		Column: column,
	}
}

// ErrQueryRejected is returned when a generated statement fails the structural guard.
type ErrQueryRejected struct {
	StatsError
	Query string
}

// NewQueryRejected creates a new ErrQueryRejected.
func NewQueryRejected(query, reason, suggestion string) *ErrQueryRejected {
	return &ErrQueryRejected{
		StatsError: StatsError{
			Code:       CodeInternal,
			Message:    "query rejected",
			Reason:     reason,
			Suggestion: suggestion,
		},
		Query: query,
	}
}

// NewWriteNotAllowed creates an error for write statements reaching the read-only store.
func NewWriteNotAllowed(operation string) *ErrQueryRejected {
	return &ErrQueryRejected{
		StatsError: StatsError{
			Code:       CodeInternal,
			Message:    fmt.Sprintf("%s operation not allowed", operation),
			Reason:     "the statistics store is read-only",
			Suggestion: "only SELECT statements are executed",
		},
	}
}

// ErrDataAccess is the single opaque failure surfaced when a query cannot be
// executed: store unreachable, malformed SQL or schema drift.
type ErrDataAccess struct {
	StatsError
	Operation string
}

// NewDataAccess creates a new ErrDataAccess wrapping cause.
func NewDataAccess(operation string, cause error) *ErrDataAccess {
	return &ErrDataAccess{
		StatsError: StatsError{
			Code:       CodeDataAccess,
			Message:    "data access failure",
			Reason:     fmt.Sprintf("%s could not be executed against the store", operation),
			Suggestion: "check store availability with 'crimestats doctor'",
			Cause:      cause,
		},
		Operation: operation,
	}
}

// ErrUnsupportedDriver is returned when no adapter is registered for a driver name.
type ErrUnsupportedDriver struct {
	StatsError
	Driver string
}

// NewUnsupportedDriver creates a new ErrUnsupportedDriver.
func NewUnsupportedDriver(driver string, available []string) *ErrUnsupportedDriver {
	return &ErrUnsupportedDriver{
		StatsError: StatsError{
			Code:       CodeValidation,
			Message:    fmt.Sprintf("unsupported store driver: %s", driver),
			Reason:     fmt.Sprintf("registered drivers: %v", available),
			Suggestion: "set store.driver to one of the registered drivers",
		},
		Driver: driver,
	}
}

// ErrSchemaMismatch is returned when the store does not expose the contract schema.
type ErrSchemaMismatch struct {
	StatsError
	Table   string
	Missing []string
}

// NewSchemaMismatch creates a new ErrSchemaMismatch.
func NewSchemaMismatch(table string, missing []string, cause error) *ErrSchemaMismatch {
	return &ErrSchemaMismatch{
		StatsError: StatsError{
			Code:       CodeDataAccess,
			Message:    fmt.Sprintf("schema mismatch on %s", table),
			Reason:     fmt.Sprintf("relation or columns required by the queries are missing: %v", missing),
			Suggestion: "verify the ETL output or run 'crimestats migrate' on a development store",
			Cause:      cause,
		},
		Table:   table,
		Missing: missing,
	}
}

// ErrMigrationFailed is returned when a development schema migration fails.
type ErrMigrationFailed struct {
	StatsError
	Migration string
}

// NewMigrationFailed creates a new ErrMigrationFailed.
func NewMigrationFailed(migration string, cause error) *ErrMigrationFailed {
	return &ErrMigrationFailed{
		StatsError: StatsError{
			Code:       CodeInternal,
			Message:    fmt.Sprintf("migration failed: %s", migration),
			Reason:     "the migration statement could not be applied",
			Suggestion: "inspect the store and re-run 'crimestats migrate'",
			Cause:      cause,
		},
		Migration: migration,
	}
}

// ErrInvalidConfig is returned when configuration values are unusable.
type ErrInvalidConfig struct {
	StatsError
	Field string
}

// NewInvalidConfig creates a new ErrInvalidConfig.
func NewInvalidConfig(field, reason string) *ErrInvalidConfig {
	return &ErrInvalidConfig{
		StatsError: StatsError{
			Code:       CodeValidation,
			Message:    "invalid configuration",
			Reason:     fmt.Sprintf("field '%s': %s", field, reason),
			Suggestion: "check config.yaml or the CRIMESTATS_ environment variables",
		},
		Field: field,
	}
}

func (e *StatsError) base() *StatsError {
	return e
}

type detailed interface {
	base() *StatsError
}

// CodeOf returns the ErrorCode carried by err, or CodeInternal when err is not
// one of ours.
func CodeOf(err error) ErrorCode {
	if e, ok := Details(err); ok {
		return e.Code
	}
	return CodeInternal
}

// Details returns the StatsError embedded in err, if any.
func Details(err error) (*StatsError, bool) {
	var d detailed
	if errors.As(err, &d) {
		return d.base(), true
	}
	return nil, false
}
