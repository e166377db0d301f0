package observability

import (
	"context"

	"github.com/rs/zerolog"
)

// Recorder sends each finished query to the query logger and the metrics.
// Either may be nil.
type Recorder struct {
	Queries QueryLogger
	Metrics *Metrics

	// Logger receives failures to write query entries.
	Logger zerolog.Logger
}

// Record logs and observes entry. Logging failures never fail the query.
func (r *Recorder) Record(ctx context.Context, entry QueryLogEntry) {
	if r == nil {
		return
	}
	if r.Metrics != nil {
		r.Metrics.Observe(entry.Endpoint, entry.Outcome, entry.ExecutionTime, entry.RowCount)
	}
	if r.Queries != nil {
		if err := r.Queries.LogQuery(ctx, entry); err != nil {
			r.Logger.Warn().Err(err).Str("query_id", entry.QueryID).Msg("query log entry dropped")
		}
	}
}

// AuditSummary returns the query logger's summary, empty when there is none.
func (r *Recorder) AuditSummary() *AuditSummary {
	if r == nil || r.Queries == nil {
		return NewNoopLogger().GetAuditSummary()
	}
	return r.Queries.GetAuditSummary()
}
