package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLite implements ClassStore and Ledger on a local SQLite database.
//
// This backend suits single-instance deployments that need quota state to
// survive restarts without running Redis. SQLite serializes writers, and the
// increment is a single UPSERT statement, so the ledger contract holds for
// all goroutines within the instance. It does NOT provide cross-instance
// accounting; use the Redis backend for that.
type SQLite struct {
	db        *sql.DB
	closeOnce sync.Once
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS limit_classes (
	tenant_id  TEXT PRIMARY KEY,
	rate_class TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS buckets (
	key          TEXT PRIMARY KEY,
	window_start INTEGER NOT NULL,
	count        INTEGER NOT NULL,
	expires_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_buckets_expires_at ON buckets(expires_at);
`

// NewSQLite opens (creating if necessary) the database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// WAL keeps readers from blocking the write path.
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize sqlite schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// GetClass implements ClassStore.
func (s *SQLite) GetClass(ctx context.Context, tenantID string) (string, bool, error) {
	var class string
	err := s.db.QueryRowContext(ctx,
		"SELECT rate_class FROM limit_classes WHERE tenant_id = ?", tenantID,
	).Scan(&class)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get class for %q: %v", ErrUnavailable, tenantID, err)
	}
	return class, true, nil
}

// SetClass implements ClassStore.
func (s *SQLite) SetClass(ctx context.Context, tenantID, class string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO limit_classes (tenant_id, rate_class) VALUES (?, ?)
		ON CONFLICT(tenant_id) DO UPDATE SET rate_class = excluded.rate_class`,
		tenantID, class)
	if err != nil {
		return fmt.Errorf("%w: set class for %q: %v", ErrUnavailable, tenantID, err)
	}
	return nil
}

// DeleteClass implements ClassStore.
func (s *SQLite) DeleteClass(ctx context.Context, tenantID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM limit_classes WHERE tenant_id = ?", tenantID)
	if err != nil {
		return fmt.Errorf("%w: delete class for %q: %v", ErrUnavailable, tenantID, err)
	}
	return nil
}

// IncrWindow implements Ledger. The UPSERT resets the counter when the stored
// window differs from the requested one and increments otherwise, returning
// the post-increment value — one statement, so concurrent callers are
// serialized by SQLite's write lock.
func (s *SQLite) IncrWindow(ctx context.Context, key string, windowStart time.Time, windowLength time.Duration) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO buckets (key, window_start, count, expires_at) VALUES (?, ?, 1, ?)
		ON CONFLICT(key) DO UPDATE SET
			count        = CASE WHEN buckets.window_start = excluded.window_start THEN buckets.count + 1 ELSE 1 END,
			window_start = excluded.window_start,
			expires_at   = excluded.expires_at
		RETURNING count`,
		key, windowStart.Unix(), windowStart.Add(windowLength).Unix(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: incr %s: %v", ErrUnavailable, key, err)
	}
	return count, nil
}

// PeekWindow implements Ledger.
func (s *SQLite) PeekWindow(ctx context.Context, key string, windowStart time.Time) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT count FROM buckets WHERE key = ? AND window_start = ?",
		key, windowStart.Unix(),
	).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: peek %s: %v", ErrUnavailable, key, err)
	}
	return count, nil
}

// Sweep implements Sweepable.
func (s *SQLite) Sweep(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM buckets WHERE expires_at <= ?", now.Unix())
	if err != nil {
		return 0, fmt.Errorf("%w: sweep: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep: rows affected: %w", err)
	}
	return int(n), nil
}

// Ping reports whether the database is usable. Used by readiness checks.
func (s *SQLite) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close releases the database handle. The store must not be used afterwards.
func (s *SQLite) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.db.Close()
	})
	return err
}
