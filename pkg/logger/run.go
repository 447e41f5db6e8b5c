package logger

import (
	"context"

	"github.com/google/uuid"
)

type runIDKey struct{}

// WithRunID stores an invocation ID in the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// GetRunID retrieves the invocation ID from context
func GetRunID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if runID, ok := ctx.Value(runIDKey{}).(string); ok {
		return runID
	}
	return ""
}

// NewRunID generates a run ID
func NewRunID() string {
	return uuid.NewString()
}
