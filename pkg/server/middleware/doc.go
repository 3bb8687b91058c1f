// Package middleware provides the HTTP middleware chain of the Tollgate
// gateway.
//
// The chain, outermost first:
//
//	RequestID -> Logging -> RateLimit -> upstream handler
//
// RequestID assigns (or propagates) X-Request-ID. Logging records one
// structured line per request with method, path, status and latency.
// RateLimit invokes the limits engine and translates its verdict: allowed
// requests pass through with X-RateLimit-* headers, denied requests get 429
// with Retry-After and an overLimitFault body, and store failures get 503.
package middleware
