package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"strato-hq/tollgate/pkg/limits"
	"strato-hq/tollgate/pkg/limits/storage"
)

// stubDecider returns a fixed verdict or error and records the request it saw.
type stubDecider struct {
	verdict limits.FinalVerdict
	err     error
	seen    *limits.Request
}

func (s *stubDecider) Check(ctx context.Context, req limits.Request) (limits.FinalVerdict, error) {
	if s.seen != nil {
		*s.seen = req
	}
	return s.verdict, s.err
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit_NoTenantHeaderBypasses(t *testing.T) {
	var seen limits.Request
	decider := &stubDecider{seen: &seen, err: fmt.Errorf("must not be called")}
	h := RateLimit(RateLimitOptions{Engine: decider, Logger: discardLogger})(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/tokens", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (unattributed requests bypass limiting)", rec.Code)
	}
	if seen.TenantID != "" {
		t.Error("engine was consulted for a request without a tenant header")
	}
}

func TestRateLimit_Allowed(t *testing.T) {
	def := &limits.Definition{Value: 10}
	decider := &stubDecider{verdict: limits.FinalVerdict{
		Allowed:  true,
		Verdicts: []limits.Verdict{{Allowed: true, Remaining: 7, Definition: def}},
	}}
	var seen limits.Request
	decider.seen = &seen

	h := RateLimit(RateLimitOptions{Engine: decider, Logger: discardLogger})(okHandler())

	req := httptest.NewRequest("POST", "/tokens", nil)
	req.Header.Set("X-Tenant-ID", "t-1")
	req.RemoteAddr = "10.0.0.7:54321"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "7" {
		t.Errorf("X-RateLimit-Remaining = %q, want 7", got)
	}
	if seen.TenantID != "t-1" || seen.Verb != "POST" || seen.Path != "/tokens" {
		t.Errorf("engine saw request %+v", seen)
	}
	if seen.RemoteAddr != "10.0.0.7" {
		t.Errorf("RemoteAddr = %q, want host without port", seen.RemoteAddr)
	}
}

func TestRateLimit_Denied(t *testing.T) {
	def := &limits.Definition{
		URI:   "/tokens",
		Value: 2,
		Unit:  limits.UnitMinute,
	}
	reset := time.Date(2026, 3, 14, 10, 31, 0, 0, time.UTC)
	decider := &stubDecider{verdict: limits.FinalVerdict{
		Allowed:    false,
		RetryAfter: 40 * time.Second,
		Verdicts: []limits.Verdict{
			{Allowed: false, DelayUntil: reset, Definition: def},
		},
	}}

	h := RateLimit(RateLimitOptions{Engine: decider, Logger: discardLogger})(okHandler())

	req := httptest.NewRequest("POST", "/tokens", nil)
	req.Header.Set("X-Tenant-ID", "t-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "40" {
		t.Errorf("Retry-After = %q, want 40", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "2" {
		t.Errorf("X-RateLimit-Limit = %q, want 2", got)
	}
	if got := rec.Header().Get("X-RateLimit-Reset"); got != "1773484260" {
		t.Errorf("X-RateLimit-Reset = %q, want %d", got, reset.Unix())
	}

	var fault overLimitFault
	if err := json.NewDecoder(rec.Body).Decode(&fault); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if fault.OverLimitFault.Code != http.StatusTooManyRequests {
		t.Errorf("fault code = %d, want 429", fault.OverLimitFault.Code)
	}
	want := "Only 2 POST request(s) can be made to /tokens every MINUTE."
	if fault.OverLimitFault.Details != want {
		t.Errorf("fault details = %q, want %q", fault.OverLimitFault.Details, want)
	}
}

func TestRateLimit_StoreFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"store unavailable", fmt.Errorf("check: %w", storage.ErrUnavailable),
			http.StatusServiceUnavailable},
		{"other failure", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decider := &stubDecider{err: tt.err}
			h := RateLimit(RateLimitOptions{Engine: decider, Logger: discardLogger})(okHandler())

			req := httptest.NewRequest("GET", "/tokens", nil)
			req.Header.Set("X-Tenant-ID", "t-1")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			// Never fail open on a store error.
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRateLimit_CustomTenantHeader(t *testing.T) {
	var seen limits.Request
	decider := &stubDecider{verdict: limits.FinalVerdict{Allowed: true}, seen: &seen}
	h := RateLimit(RateLimitOptions{
		Engine:       decider,
		TenantHeader: "X-Project-ID",
		Logger:       discardLogger,
	})(okHandler())

	req := httptest.NewRequest("GET", "/servers", nil)
	req.Header.Set("X-Project-ID", "p-9")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if seen.TenantID != "p-9" {
		t.Errorf("TenantID = %q, want p-9", seen.TenantID)
	}
}

func TestRemoteAddr(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		trust      bool
		want       string
	}{
		{"host port split", "10.0.0.7:54321", "", false, "10.0.0.7"},
		{"xff ignored when untrusted", "10.0.0.7:54321", "203.0.113.9", false, "10.0.0.7"},
		{"xff first entry when trusted", "10.0.0.7:54321", "203.0.113.9, 10.0.0.1", true, "203.0.113.9"},
		{"empty xff falls back", "10.0.0.7:54321", "", true, "10.0.0.7"},
		{"no port passes through", "10.0.0.7", "", false, "10.0.0.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := remoteAddr(r, tt.trust); got != tt.want {
				t.Errorf("remoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	h := RequestID(okHandler())

	t.Run("generates id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		if rec.Header().Get(RequestIDHeader) == "" {
			t.Error("no request id assigned")
		}
	})

	t.Run("propagates client id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(RequestIDHeader, "client-id-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if got := rec.Header().Get(RequestIDHeader); got != "client-id-1" {
			t.Errorf("request id = %q, want client-id-1", got)
		}
	})
}
