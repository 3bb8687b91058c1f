package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"strato-hq/tollgate/pkg/telemetry/logging"
)

// RequestIDHeader is the HTTP header for the request id.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns each request a unique id, propagating a client-provided
// X-Request-ID when present. The id is stored in the context for log
// correlation and echoed in the response headers.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = generateRequestID()
		}

		ctx := logging.WithRequestID(r.Context(), requestID)
		w.Header().Set(RequestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// generateRequestID returns 16 random bytes hex-encoded.
func generateRequestID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing means the process is in serious trouble; a
		// constant id at least keeps requests flowing.
		return "unknown"
	}
	return hex.EncodeToString(b)
}
