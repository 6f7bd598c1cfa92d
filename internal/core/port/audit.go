package port

import "context"

// CheckEvent represents a single per-column check execution.
type CheckEvent struct {
	RunID      string
	Column     string
	Check      string // "missing_values", "numeric_overview" or "uniqueness"
	DurationMS int64
	Err        error
}

// AuditSink records check events for the audit trail.
type AuditSink interface {
	Record(ctx context.Context, event CheckEvent)
	Close() error
}
