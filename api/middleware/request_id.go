package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tradewind-labs/tradedesk-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// RequestID assigns each request a UUID (or honors the one the caller sent),
// echoes it back in the response, and threads it into the log context.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}

			ctx := logg.WithRequestID(r.Context(), requestID)
			w.Header().Set(requestIDHeader, requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
