package services

import "context"

type contextKey string

const (
	jobIDKey     contextKey = "job_id"
	chatIDKey    contextKey = "chat_id"
	requestIDKey contextKey = "request_id"
)

// WithJobID annotates context with the per-attempt job identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(jobIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithChatID annotates context with the chat a job or command came from.
func WithChatID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, chatIDKey, id)
}

// ChatIDFromContext extracts the chat identifier if present.
func ChatIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(chatIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
