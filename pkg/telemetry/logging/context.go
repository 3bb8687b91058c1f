package logging

import "context"

type contextKey string

const (
	// RequestIDKey is the context key for the request id.
	RequestIDKey contextKey = "request_id"

	// TenantIDKey is the context key for the tenant identifier.
	TenantIDKey contextKey = "tenant_id"
)

// WithRequestID returns a context carrying the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// WithTenantID returns a context carrying the tenant identifier.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

// RequestID returns the request id from ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// extractContextFields pulls the well-known request-scoped fields out of ctx
// as alternating key/value args for slog.
func extractContextFields(ctx context.Context) []any {
	var fields []any
	if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
		fields = append(fields, "request_id", id)
	}
	if tenant, ok := ctx.Value(TenantIDKey).(string); ok && tenant != "" {
		fields = append(fields, "tenant_id", tenant)
	}
	return fields
}
