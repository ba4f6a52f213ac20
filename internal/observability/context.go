package observability

import (
	"context"
)

// Context keys for observability data.
type contextKey string

const (
	requestIDKey    contextKey = "request_id"
	collectionIDKey contextKey = "collection_id"
	taskIDKey       contextKey = "task_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// WithRun tags the context with the collection and task driving the current
// collection run.
func WithRun(ctx context.Context, collectionID, taskID string) context.Context {
	ctx = context.WithValue(ctx, collectionIDKey, collectionID)
	ctx = context.WithValue(ctx, taskIDKey, taskID)
	return ctx
}

// RunFromContext retrieves the collection and task IDs from context.
// Returns empty strings if not present.
func RunFromContext(ctx context.Context) (collectionID, taskID string) {
	if v := ctx.Value(collectionIDKey); v != nil {
		if id, ok := v.(string); ok {
			collectionID = id
		}
	}
	if v := ctx.Value(taskIDKey); v != nil {
		if id, ok := v.(string); ok {
			taskID = id
		}
	}
	return collectionID, taskID
}
