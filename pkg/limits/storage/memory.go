package storage

import (
	"context"
	"sync"
	"time"
)

// Memory implements ClassStore and Ledger in process memory.
//
// It is the default backend for tests and single-node development. Counters
// are correct under concurrent use within one process but are not shared
// across instances; production deployments should use the Redis backend.
type Memory struct {
	mu      sync.Mutex
	classes map[string]string
	buckets map[string]*memBucket
}

type memBucket struct {
	windowStart int64 // unix seconds
	expiresAt   int64
	count       int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		classes: make(map[string]string),
		buckets: make(map[string]*memBucket),
	}
}

// GetClass implements ClassStore.
func (m *Memory) GetClass(ctx context.Context, tenantID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	class, ok := m.classes[tenantID]
	return class, ok, nil
}

// SetClass implements ClassStore.
func (m *Memory) SetClass(ctx context.Context, tenantID, class string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.classes[tenantID] = class
	return nil
}

// DeleteClass implements ClassStore.
func (m *Memory) DeleteClass(ctx context.Context, tenantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.classes, tenantID)
	return nil
}

// IncrWindow implements Ledger. The mutex makes the reset-then-increment
// sequence atomic for concurrent callers.
func (m *Memory) IncrWindow(ctx context.Context, key string, windowStart time.Time, windowLength time.Duration) (int64, error) {
	start := windowStart.Unix()

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[key]
	if !ok || b.windowStart != start {
		b = &memBucket{
			windowStart: start,
			expiresAt:   windowStart.Add(windowLength).Unix(),
		}
		m.buckets[key] = b
	}

	b.count++
	return b.count, nil
}

// PeekWindow implements Ledger.
func (m *Memory) PeekWindow(ctx context.Context, key string, windowStart time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[key]
	if !ok || b.windowStart != windowStart.Unix() {
		return 0, nil
	}
	return b.count, nil
}

// Sweep implements Sweepable.
func (m *Memory) Sweep(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Unix()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, b := range m.buckets {
		if b.expiresAt <= cutoff {
			delete(m.buckets, key)
			removed++
		}
	}
	return removed, nil
}

// Size returns the number of live buckets. Useful for monitoring and tests.
func (m *Memory) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}
