package limits

import (
	"context"
	"fmt"
	"time"

	"strato-hq/tollgate/pkg/limits/storage"
)

// Verdict is the outcome of accounting one request against one matched
// definition.
type Verdict struct {
	// Allowed reports whether this definition admits the request.
	Allowed bool

	// DelayUntil is the moment the window rolls over and the bucket clears.
	// Zero when allowed.
	DelayUntil time.Time

	// Remaining is the quota left in the current window after this request.
	// Zero when denied.
	Remaining int64

	// Definition is the rule that produced this verdict.
	Definition *Definition
}

// Accountant converts matched requests into verdicts against the quota
// ledger using fixed-window counters.
//
// Windows are aligned to Unix-epoch multiples of the unit length, so every
// process instance sharing a ledger agrees on window boundaries without
// coordination. The counter update is a single atomic increment in the
// ledger; the accountant itself holds no state.
type Accountant struct {
	ledger storage.Ledger
}

// NewAccountant creates an accountant over the given ledger.
func NewAccountant(ledger storage.Ledger) *Accountant {
	return &Accountant{ledger: ledger}
}

// Account records one request against the matched definition's bucket and
// returns the verdict.
//
// The increment happens exactly once per call, whatever the outcome. When
// the post-increment count exceeds the quota the overflow increment is kept:
// the bucket stays spent until rollover, which under-counts availability
// rather than ever double-admitting.
func (a *Accountant) Account(ctx context.Context, m MatchedDefinition, req Request, now time.Time) (Verdict, error) {
	def := m.Definition

	windowLength, ok := def.Unit.Window()
	if !ok {
		// Validate rejects unknown units at load time; reaching this means a
		// definition bypassed the loader.
		return Verdict{}, fmt.Errorf("definition %s: unknown unit %q", def.UUID, def.Unit)
	}

	windowStart := now.Truncate(windowLength)
	key := def.BucketKey(req.TenantID, req.RemoteAddr, m.Captures)

	count, err := a.ledger.IncrWindow(ctx, key, windowStart, windowLength)
	if err != nil {
		return Verdict{}, fmt.Errorf("account %s: %w", key, err)
	}

	if count > def.Value {
		return Verdict{
			Allowed:    false,
			DelayUntil: windowStart.Add(windowLength),
			Definition: def,
		}, nil
	}

	return Verdict{
		Allowed:    true,
		Remaining:  def.Value - count,
		Definition: def,
	}, nil
}

// Remaining reports the quota left for a definition's bucket without
// consuming any. Used by the limits report.
func (a *Accountant) Remaining(ctx context.Context, def *Definition, tenantID, remoteAddr string, now time.Time) (int64, time.Time, error) {
	windowLength, ok := def.Unit.Window()
	if !ok {
		return 0, time.Time{}, fmt.Errorf("definition %s: unknown unit %q", def.UUID, def.Unit)
	}

	windowStart := now.Truncate(windowLength)
	key := def.BucketKey(tenantID, remoteAddr, nil)

	count, err := a.ledger.PeekWindow(ctx, key, windowStart)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("peek %s: %w", key, err)
	}

	remaining := def.Value - count
	if remaining < 0 {
		remaining = 0
	}
	reset := now
	if count > 0 {
		reset = windowStart.Add(windowLength)
	}
	return remaining, reset, nil
}
