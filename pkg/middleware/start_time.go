package middleware

import (
	"context"
	"time"

	"github.com/openstats/databank/pkg/contextkeys"
)

func withStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, contextkeys.RequestStartTimeKey, t)
}

// StartTime returns the request start time recorded by RequestIDMiddleware,
// or time.Now() if the middleware did not run.
func StartTime(ctx context.Context) time.Time {
	if t, ok := ctx.Value(contextkeys.RequestStartTimeKey).(time.Time); ok {
		return t
	}
	return time.Now()
}
