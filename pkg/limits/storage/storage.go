// Package storage provides the shared-store ports of the limits engine and
// their Redis, SQLite and in-memory implementations.
//
// All backends share two contracts: class assignments are plain keyed reads
// and writes, and the quota ledger's increment is a single atomic operation,
// so concurrent requests against one bucket (from any number of gateway
// instances sharing the backend) each observe a distinct post-increment
// count.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable indicates the shared store could not serve the operation.
// Engine callers fail the request on it; they never fail open.
var ErrUnavailable = errors.New("limit store unavailable")

// ClassStore holds tenant rate-class assignments.
//
// GetClass distinguishes "no assignment" (ok false, nil error) from a store
// failure: the former resolves to the default class, the latter must fail
// the request.
type ClassStore interface {
	GetClass(ctx context.Context, tenantID string) (string, bool, error)
	SetClass(ctx context.Context, tenantID, class string) error
	DeleteClass(ctx context.Context, tenantID string) error
}

// Ledger is the quota counter store.
//
// IncrWindow increments the counter for key within the window beginning at
// windowStart and returns the post-increment count. A stored counter from an
// older window is reset to one. The whole read-reset-increment sequence is
// atomic with respect to concurrent callers of the same backend.
//
// PeekWindow reads the counter without consuming quota; a missing or
// stale-window counter reads as zero.
type Ledger interface {
	IncrWindow(ctx context.Context, key string, windowStart time.Time, windowLength time.Duration) (int64, error)
	PeekWindow(ctx context.Context, key string, windowStart time.Time) (int64, error)
}

// Sweepable is implemented by backends whose expired buckets need periodic
// removal. Redis expires keys natively and does not implement it.
type Sweepable interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}
