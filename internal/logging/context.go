package logging

import (
	"context"
	"log/slog"

	"fileslink/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldUniqueID is the standardized key for artifact identifiers.
	FieldUniqueID = "unique_id"
	// FieldChatID identifies the chat a job or command originated from.
	FieldChatID = "chat_id"
	// FieldUserID identifies the sender of a chat event.
	FieldUserID = "user_id"
	// FieldJobID is the per-attempt correlation id assigned by the queue worker.
	FieldJobID = "job_id"
	// FieldCorrelationID is the standardized key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies a log line for filtering (e.g. "ingest_failed").
	FieldEventType = "event_type"
	// FieldErrorHint carries the operator's next step for warnings and errors.
	FieldErrorHint = "error_hint"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.JobIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldJobID, id))
	}
	if chat, ok := services.ChatIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldChatID, chat))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
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
