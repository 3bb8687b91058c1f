package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"strato-hq/tollgate/pkg/limits"
	"strato-hq/tollgate/pkg/limits/storage"
	"strato-hq/tollgate/pkg/telemetry/logging"
)

// Decider produces a final verdict for a request. Implemented by
// *limits.Engine.
type Decider interface {
	Check(ctx context.Context, req limits.Request) (limits.FinalVerdict, error)
}

// RateLimitOptions configures the rate limit middleware.
type RateLimitOptions struct {
	// Engine decides requests.
	Engine Decider

	// TenantHeader carries the already-resolved tenant identifier.
	// Requests without it bypass limiting: identity resolution is the host
	// deployment's job, and an unattributed request has nothing to bucket.
	TenantHeader string

	// TrustForwardedFor uses the first X-Forwarded-For entry as the remote
	// address. Only enable behind a trusted proxy.
	TrustForwardedFor bool

	// Logger logs store failures. Defaults to slog.Default().
	Logger *slog.Logger
}

// overLimitFault is the denial response body, kept wire-compatible with the
// original deployment's error format.
type overLimitFault struct {
	OverLimitFault struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"overLimitFault"`
}

// RateLimit enforces the limits engine's verdict on every request.
//
// Allowed requests proceed with X-RateLimit-Remaining set to the most
// restrictive matched bucket. Denied requests receive 429 with Retry-After
// and an overLimitFault body. A store failure yields 503: the engine never
// fails open.
func RateLimit(opts RateLimitOptions) func(http.Handler) http.Handler {
	if opts.TenantHeader == "" {
		opts.TenantHeader = "X-Tenant-ID"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID := strings.TrimSpace(r.Header.Get(opts.TenantHeader))
			if tenantID == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := logging.WithTenantID(r.Context(), tenantID)
			r = r.WithContext(ctx)

			verdict, err := opts.Engine.Check(ctx, limits.Request{
				TenantID:   tenantID,
				RemoteAddr: remoteAddr(r, opts.TrustForwardedFor),
				Verb:       r.Method,
				Path:       r.URL.Path,
			})
			if err != nil {
				status := http.StatusInternalServerError
				if errors.Is(err, storage.ErrUnavailable) {
					status = http.StatusServiceUnavailable
				}
				opts.Logger.ErrorContext(ctx, "limit check failed", "error", err)
				http.Error(w, http.StatusText(status), status)
				return
			}

			if !verdict.Allowed {
				writeOverLimit(w, r, verdict)
				return
			}

			if remaining := verdict.Remaining(); remaining >= 0 {
				w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeOverLimit renders the 429 response for a denied verdict.
func writeOverLimit(w http.ResponseWriter, r *http.Request, verdict limits.FinalVerdict) {
	retryAfter := int(math.Ceil(verdict.RetryAfter.Seconds()))
	if retryAfter < 0 {
		retryAfter = 0
	}

	// The denial that forces the longest wait drives the error details.
	var worst *limits.Verdict
	for i := range verdict.Verdicts {
		vd := &verdict.Verdicts[i]
		if vd.Allowed {
			continue
		}
		if worst == nil || vd.DelayUntil.After(worst.DelayUntil) {
			worst = vd
		}
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("X-RateLimit-Remaining", "0")
	if worst != nil {
		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(worst.Definition.Value, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(worst.DelayUntil.Unix(), 10))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	var fault overLimitFault
	fault.OverLimitFault.Code = http.StatusTooManyRequests
	fault.OverLimitFault.Message = "This request was rate-limited."
	if worst != nil {
		fault.OverLimitFault.Details = fmt.Sprintf(
			"Only %d %s request(s) can be made to %s every %s.",
			worst.Definition.Value, r.Method, worst.Definition.URI,
			strings.ToUpper(string(worst.Definition.Unit)))
	}
	_ = json.NewEncoder(w).Encode(fault)
}

// remoteAddr extracts the client address: first X-Forwarded-For entry when
// trusted, else the connection's host.
func remoteAddr(r *http.Request, trustXFF bool) string {
	if trustXFF {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
			if first != "" {
				return first
			}
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
