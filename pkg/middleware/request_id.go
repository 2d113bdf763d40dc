package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/openstats/databank/pkg/contextkeys"
	"github.com/openstats/databank/pkg/observability"
)

// RequestIDHeader is the response header echoing the request ID
const RequestIDHeader = "X-Request-Id"

// RequestIDMiddleware assigns each request a UUID, records the start time,
// and attaches a request-scoped logger to the context. An inbound
// X-Request-Id is honored so IDs stay stable across proxies.
func RequestIDMiddleware(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}

			ctx := contextkeys.WithRequestID(r.Context(), requestID)
			ctx = observability.WithRequestID(ctx, requestID)
			if logger != nil {
				ctx = observability.WithLogger(ctx, logger.WithField("request_id", requestID))
			}
			ctx = withStartTime(ctx, time.Now())

			w.Header().Set(RequestIDHeader, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
