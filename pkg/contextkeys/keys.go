// Package contextkeys provides centralized context key definitions
//
// All context keys used across the application must be defined here. This
// prevents typos and makes key usage discoverable.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// PreviewTokenKey contains the preview token ID from the
	// Preview-Token request header.
	// Set by: middleware.PreviewTokenMiddleware
	// Used by: access decision evaluation in API handlers
	// Type: string
	PreviewTokenKey Key = "preview_token"

	// RequestIDKey contains request ID string (UUID)
	// Set by: middleware.RequestIDMiddleware
	// Used by: Logger, distributed tracing
	// Type: string
	RequestIDKey Key = "request_id"

	// RequestStartTimeKey contains the request start timestamp
	// Set by: middleware.RequestIDMiddleware
	// Used by: analytics event timestamps
	// Type: time.Time
	RequestStartTimeKey Key = "request_start_time"
)

// WithPreviewToken adds a preview token ID to the context
func WithPreviewToken(ctx context.Context, tokenID string) context.Context {
	return context.WithValue(ctx, PreviewTokenKey, tokenID)
}

// GetPreviewToken retrieves the preview token ID from context, or "" if none
// was supplied.
func GetPreviewToken(ctx context.Context) string {
	if tokenID, ok := ctx.Value(PreviewTokenKey).(string); ok {
		return tokenID
	}
	return ""
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
