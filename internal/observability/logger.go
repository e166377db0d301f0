// Package observability records every statistics query.
//
// Every query emits one structured entry: query_id, endpoint, filters,
// driver, row count, execution time, outcome, and error (if any).
package observability

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Query outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// QueryLogEntry contains all required fields for query logging.
type QueryLogEntry struct {
	// QueryID is the unique identifier for this query.
	QueryID string

	// Endpoint is the operation served, e.g. /delitos.
	Endpoint string

	// Filters are the caller-supplied parameters, as received.
	Filters map[string]string

	// Driver is the store driver that ran the query.
	Driver string

	// RowCount is the number of rows returned.
	RowCount int

	// ExecutionTime is how long the query took. Must be non-negative.
	ExecutionTime time.Duration

	// Outcome is OutcomeSuccess, OutcomeRejected (caller input) or
	// OutcomeError (data access).
	Outcome string

	// Error is the failure message. Empty for successful queries.
	Error string
}

// NewQueryID returns a fresh query identifier.
func NewQueryID() string {
	return uuid.NewString()
}

// Validate checks that all required fields are present.
func (e *QueryLogEntry) Validate() error {
	if e.QueryID == "" {
		return fmt.Errorf("observability: query_id is required")
	}
	if e.Endpoint == "" {
		return fmt.Errorf("observability: endpoint is required")
	}
	if e.ExecutionTime < 0 {
		return fmt.Errorf("observability: execution_time cannot be negative")
	}
	switch e.Outcome {
	case OutcomeSuccess, OutcomeRejected, OutcomeError:
	default:
		return fmt.Errorf("observability: unknown outcome %q", e.Outcome)
	}
	return nil
}

// QueryLogger is the interface for query logging.
type QueryLogger interface {
	// LogQuery logs a query execution event.
	// Returns an error if logging fails or the entry is invalid.
	LogQuery(ctx context.Context, entry QueryLogEntry) error

	// GetAuditSummary returns aggregated statistics. Never raw rows.
	GetAuditSummary() *AuditSummary
}

// AuditSummary represents aggregated audit statistics.
type AuditSummary struct {
	AcceptedCount     int                 `json:"accepted_count"`
	RejectedCount     int                 `json:"rejected_count"`
	FailedCount       int                 `json:"failed_count"`
	TopFailureReasons []FailureReasonStat `json:"top_failure_reasons"`
	TopEndpoints      []EndpointStat      `json:"top_endpoints"`
}

// FailureReasonStat counts one failure message.
type FailureReasonStat struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// EndpointStat counts queries served by one endpoint.
type EndpointStat struct {
	Endpoint string `json:"endpoint"`
	Count    int    `json:"count"`
}

const topN = 5

// ZerologLogger implements QueryLogger on top of a zerolog logger. It keeps
// counters, not entries, for the audit summary.
type ZerologLogger struct {
	logger zerolog.Logger

	mu        sync.Mutex
	accepted  int
	rejected  int
	failed    int
	reasons   map[string]int
	endpoints map[string]int
}

// NewZerologLogger creates a query logger writing through logger.
func NewZerologLogger(logger zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{
		logger:    logger,
		reasons:   make(map[string]int),
		endpoints: make(map[string]int),
	}
}

// LogQuery writes entry as one structured event and updates the counters.
func (l *ZerologLogger) LogQuery(ctx context.Context, entry QueryLogEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("observability: context error: %w", err)
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	var event *zerolog.Event
	switch entry.Outcome {
	case OutcomeError:
		event = l.logger.Error()
	case OutcomeRejected:
		event = l.logger.Warn()
	default:
		event = l.logger.Info()
	}

	filters := zerolog.Dict()
	keys := make([]string, 0, len(entry.Filters))
	for k := range entry.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		filters.Str(k, entry.Filters[k])
	}

	event = event.
		Str("query_id", entry.QueryID).
		Str("endpoint", entry.Endpoint).
		Dict("filters", filters).
		Str("driver", entry.Driver).
		Int("row_count", entry.RowCount).
		Int64("execution_time_ms", entry.ExecutionTime.Milliseconds()).
		Str("outcome", entry.Outcome)
	if entry.Error != "" {
		event = event.Str("error", entry.Error)
	}
	event.Msg("query")

	l.mu.Lock()
	defer l.mu.Unlock()
	l.endpoints[entry.Endpoint]++
	switch entry.Outcome {
	case OutcomeSuccess:
		l.accepted++
	case OutcomeRejected:
		l.rejected++
		l.reasons[entry.Error]++
	case OutcomeError:
		l.failed++
		l.reasons[entry.Error]++
	}
	return nil
}

// GetAuditSummary returns aggregated audit statistics.
func (l *ZerologLogger) GetAuditSummary() *AuditSummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	summary := &AuditSummary{
		AcceptedCount:     l.accepted,
		RejectedCount:     l.rejected,
		FailedCount:       l.failed,
		TopFailureReasons: []FailureReasonStat{},
		TopEndpoints:      []EndpointStat{},
	}

	for reason, count := range l.reasons {
		summary.TopFailureReasons = append(summary.TopFailureReasons, FailureReasonStat{Reason: reason, Count: count})
	}
	sort.Slice(summary.TopFailureReasons, func(i, j int) bool {
		a, b := summary.TopFailureReasons[i], summary.TopFailureReasons[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Reason < b.Reason
	})
	if len(summary.TopFailureReasons) > topN {
		summary.TopFailureReasons = summary.TopFailureReasons[:topN]
	}

	for endpoint, count := range l.endpoints {
		summary.TopEndpoints = append(summary.TopEndpoints, EndpointStat{Endpoint: endpoint, Count: count})
	}
	sort.Slice(summary.TopEndpoints, func(i, j int) bool {
		a, b := summary.TopEndpoints[i], summary.TopEndpoints[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Endpoint < b.Endpoint
	})
	if len(summary.TopEndpoints) > topN {
		summary.TopEndpoints = summary.TopEndpoints[:topN]
	}

	return summary
}

// NoopLogger discards all entries.
type NoopLogger struct{}

// NewNoopLogger creates a new no-op logger.
func NewNoopLogger() *NoopLogger {
	return &NoopLogger{}
}

// LogQuery does nothing and always succeeds.
func (l *NoopLogger) LogQuery(ctx context.Context, entry QueryLogEntry) error {
	return nil
}

// GetAuditSummary returns an empty summary.
func (l *NoopLogger) GetAuditSummary() *AuditSummary {
	return &AuditSummary{
		TopFailureReasons: []FailureReasonStat{},
		TopEndpoints:      []EndpointStat{},
	}
}
