package logging

import (
	"context"
	"log/slog"

	"encore/internal/competition"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldCompetitionID is the standardized key for competition identifiers.
	FieldCompetitionID = "competition_id"
	// FieldStatus is the standardized key for lifecycle statuses.
	FieldStatus = "status"
	// FieldTrigger is the standardized key for lifecycle triggers.
	FieldTrigger = "trigger"
	// FieldAttemptID correlates all log lines of one transition attempt.
	FieldAttemptID = "attempt_id"
	// FieldEventType tags machine-filterable log events.
	FieldEventType = "event_type"
)

type contextKey string

const (
	ctxKeyCompetitionID contextKey = "competition_id"
	ctxKeyStatus        contextKey = "status"
	ctxKeyAttemptID     contextKey = "attempt_id"
)

// WithAttempt stamps a context with the identity of one scheduler
// transition attempt so nested log calls carry correlation fields.
func WithAttempt(ctx context.Context, competitionID int64, status competition.Status, attemptID string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyCompetitionID, competitionID)
	ctx = context.WithValue(ctx, ctxKeyStatus, status)
	return context.WithValue(ctx, ctxKeyAttemptID, attemptID)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := ctx.Value(ctxKeyCompetitionID).(int64); ok {
		fields = append(fields, slog.Int64(FieldCompetitionID, id))
	}
	if status, ok := ctx.Value(ctxKeyStatus).(competition.Status); ok {
		fields = append(fields, slog.String(FieldStatus, string(status)))
	}
	if attempt, ok := ctx.Value(ctxKeyAttemptID).(string); ok {
		fields = append(fields, slog.String(FieldAttemptID, attempt))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
