package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements ClassStore and Ledger against a shared Redis instance.
//
// This is the production backend: every process instance sharing the same
// Redis sees the same class assignments and quota counters. Key layout
// follows the original deployment so existing administrative tooling keeps
// working:
//
//	limit-class:<tenant>                  rate class assignment
//	<prefix>:<bucket key>:<window start>  window counter
//
// The window start is part of the counter key, so a rollover is simply an
// INCR against a fresh key; INCR is atomic server-side, which satisfies the
// ledger contract under arbitrary concurrency. EXPIREAT bounds the key's
// lifetime to shortly after the window ends.
type Redis struct {
	rdb *redis.Client

	prefix    string
	classKey  string
	opTimeout time.Duration
	expiryPad time.Duration
}

// RedisOption configures the Redis store.
type RedisOption func(*Redis)

// WithPrefix overrides the bucket key prefix (default "bucket").
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = strings.Trim(prefix, ":") }
}

// WithOpTimeout bounds each store call (default 2s). A call that exceeds the
// bound fails with ErrUnavailable rather than hanging the request.
func WithOpTimeout(d time.Duration) RedisOption {
	return func(r *Redis) { r.opTimeout = d }
}

// NewRedis creates a Redis-backed store using an existing client.
func NewRedis(rdb *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		rdb:       rdb,
		prefix:    "bucket",
		classKey:  "limit-class:",
		opTimeout: 2 * time.Second,
		expiryPad: time.Minute,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetClass implements ClassStore.
func (r *Redis) GetClass(ctx context.Context, tenantID string) (string, bool, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	class, err := r.rdb.Get(ctx, r.classKey+tenantID).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get class for %q: %v", ErrUnavailable, tenantID, err)
	}
	return class, true, nil
}

// SetClass implements ClassStore.
func (r *Redis) SetClass(ctx context.Context, tenantID, class string) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	if err := r.rdb.Set(ctx, r.classKey+tenantID, class, 0).Err(); err != nil {
		return fmt.Errorf("%w: set class for %q: %v", ErrUnavailable, tenantID, err)
	}
	return nil
}

// DeleteClass implements ClassStore.
func (r *Redis) DeleteClass(ctx context.Context, tenantID string) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	if err := r.rdb.Del(ctx, r.classKey+tenantID).Err(); err != nil {
		return fmt.Errorf("%w: delete class for %q: %v", ErrUnavailable, tenantID, err)
	}
	return nil
}

// IncrWindow implements Ledger. INCR and EXPIREAT travel in one MULTI/EXEC
// pipeline; the post-increment value comes back from the INCR reply.
func (r *Redis) IncrWindow(ctx context.Context, key string, windowStart time.Time, windowLength time.Duration) (int64, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	counterKey := r.counterKey(key, windowStart)
	expireAt := windowStart.Add(windowLength).Add(r.expiryPad)

	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, counterKey)
	pipe.ExpireAt(ctx, counterKey, expireAt)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: incr %s: %v", ErrUnavailable, counterKey, err)
	}
	return incr.Val(), nil
}

// PeekWindow implements Ledger.
func (r *Redis) PeekWindow(ctx context.Context, key string, windowStart time.Time) (int64, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	val, err := r.rdb.Get(ctx, r.counterKey(key, windowStart)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: peek %s: %v", ErrUnavailable, key, err)
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: peek %s: non-numeric counter %q", ErrUnavailable, key, val)
	}
	return n, nil
}

// Ping reports whether the store is reachable. Used by readiness checks.
func (r *Redis) Ping(ctx context.Context) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *Redis) counterKey(key string, windowStart time.Time) string {
	return r.prefix + ":" + key + ":" + strconv.FormatInt(windowStart.Unix(), 10)
}

func (r *Redis) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.opTimeout)
}
