package limits

import (
	"context"
	"testing"
	"time"

	"strato-hq/tollgate/pkg/limits/storage"
)

func TestAccountant_Account(t *testing.T) {
	ctx := context.Background()
	def := mustDefinition(t, &Definition{
		UUID:      testUUID,
		URI:       "/tokens",
		Verbs:     []string{"POST"},
		RateClass: "tokens",
		Value:     2,
		Unit:      UnitMinute,
	})

	a := NewAccountant(storage.NewMemory())
	m := MatchedDefinition{Definition: def}
	req := Request{TenantID: "t-1"}
	now := time.Date(2026, 3, 14, 10, 30, 15, 0, time.UTC)

	// First two requests consume the quota.
	for i, wantRemaining := range []int64{1, 0} {
		v, err := a.Account(ctx, m, req, now)
		if err != nil {
			t.Fatalf("Account #%d: %v", i+1, err)
		}
		if !v.Allowed {
			t.Fatalf("Account #%d denied, want allowed", i+1)
		}
		if v.Remaining != wantRemaining {
			t.Errorf("Account #%d Remaining = %d, want %d", i+1, v.Remaining, wantRemaining)
		}
	}

	// Third is denied until the window rolls over.
	v, err := a.Account(ctx, m, req, now)
	if err != nil {
		t.Fatalf("Account #3: %v", err)
	}
	if v.Allowed {
		t.Fatal("Account #3 allowed, want denied")
	}
	wantRollover := time.Date(2026, 3, 14, 10, 31, 0, 0, time.UTC)
	if !v.DelayUntil.Equal(wantRollover) {
		t.Errorf("DelayUntil = %v, want %v", v.DelayUntil, wantRollover)
	}
}

func TestAccountant_WindowRollover(t *testing.T) {
	ctx := context.Background()
	def := mustDefinition(t, &Definition{
		UUID:      testUUID,
		URI:       "/tokens",
		RateClass: "tokens",
		Value:     1,
		Unit:      UnitMinute,
	})

	a := NewAccountant(storage.NewMemory())
	m := MatchedDefinition{Definition: def}
	req := Request{TenantID: "t-1"}

	now := time.Date(2026, 3, 14, 10, 30, 59, 0, time.UTC)
	if v, _ := a.Account(ctx, m, req, now); !v.Allowed {
		t.Fatal("first request denied")
	}
	if v, _ := a.Account(ctx, m, req, now); v.Allowed {
		t.Fatal("second request in same window allowed")
	}

	// One second later the window has rolled over and the quota is fresh.
	later := now.Add(time.Second)
	v, err := a.Account(ctx, m, req, later)
	if err != nil {
		t.Fatalf("Account after rollover: %v", err)
	}
	if !v.Allowed {
		t.Error("request after rollover denied, want allowed")
	}
}

func TestAccountant_DeniedIncrementIsKept(t *testing.T) {
	ctx := context.Background()
	def := mustDefinition(t, &Definition{
		UUID:      testUUID,
		URI:       "/tokens",
		RateClass: "tokens",
		Value:     1,
		Unit:      UnitHour,
	})

	ledger := storage.NewMemory()
	a := NewAccountant(ledger)
	m := MatchedDefinition{Definition: def}
	req := Request{TenantID: "t-1"}
	now := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		if _, err := a.Account(ctx, m, req, now); err != nil {
			t.Fatalf("Account: %v", err)
		}
	}

	key := def.BucketKey(req.TenantID, req.RemoteAddr, nil)
	count, err := ledger.PeekWindow(ctx, key, now.Truncate(time.Hour))
	if err != nil {
		t.Fatalf("PeekWindow: %v", err)
	}
	// Denied requests still count; the bucket stays spent until rollover.
	if count != 4 {
		t.Errorf("bucket count = %d, want 4", count)
	}
}

func TestAccountant_QueryCapturesSubBucket(t *testing.T) {
	ctx := context.Background()
	def := mustDefinition(t, &Definition{
		UUID:      testUUID,
		URI:       "/tenants/{tenant_id}/servers/{server_id}/action",
		RateClass: "default",
		Value:     1,
		Unit:      UnitMinute,
		Queries:   []string{"server_id"},
	})

	a := NewAccountant(storage.NewMemory())
	req := Request{TenantID: "t-1"}
	now := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

	s1 := MatchedDefinition{Definition: def, Captures: map[string]string{"server_id": "s-1"}}
	s2 := MatchedDefinition{Definition: def, Captures: map[string]string{"server_id": "s-2"}}

	if v, _ := a.Account(ctx, s1, req, now); !v.Allowed {
		t.Fatal("first request for s-1 denied")
	}
	// A different captured value consumes an independent bucket.
	if v, _ := a.Account(ctx, s2, req, now); !v.Allowed {
		t.Error("first request for s-2 denied, want independent bucket")
	}
	if v, _ := a.Account(ctx, s1, req, now); v.Allowed {
		t.Error("second request for s-1 allowed, want denied")
	}
}

func TestAccountant_TenantAddrDimension(t *testing.T) {
	ctx := context.Background()
	def := mustDefinition(t, &Definition{
		UUID:      testUUID,
		URI:       "/tokens",
		RateClass: "default",
		Value:     1,
		Unit:      UnitMinute,
		Dimension: DimensionTenantAddr,
	})

	a := NewAccountant(storage.NewMemory())
	m := MatchedDefinition{Definition: def}
	now := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

	if v, _ := a.Account(ctx, m, Request{TenantID: "t-1", RemoteAddr: "10.0.0.1"}, now); !v.Allowed {
		t.Fatal("first address denied")
	}
	if v, _ := a.Account(ctx, m, Request{TenantID: "t-1", RemoteAddr: "10.0.0.2"}, now); !v.Allowed {
		t.Error("same tenant, second address denied, want separate bucket")
	}
	if v, _ := a.Account(ctx, m, Request{TenantID: "t-1", RemoteAddr: "10.0.0.1"}, now); v.Allowed {
		t.Error("repeat from first address allowed, want denied")
	}
}

func TestAccountant_Remaining(t *testing.T) {
	ctx := context.Background()
	def := mustDefinition(t, &Definition{
		UUID:      testUUID,
		URI:       "/tokens",
		RateClass: "tokens",
		Value:     5,
		Unit:      UnitMinute,
	})

	a := NewAccountant(storage.NewMemory())
	now := time.Date(2026, 3, 14, 10, 30, 30, 0, time.UTC)

	// Untouched bucket: full quota, reset is "now".
	remaining, reset, err := a.Remaining(ctx, def, "t-1", "", now)
	if err != nil {
		t.Fatalf("Remaining: %v", err)
	}
	if remaining != 5 {
		t.Errorf("Remaining = %d, want 5", remaining)
	}
	if !reset.Equal(now) {
		t.Errorf("reset = %v, want %v", reset, now)
	}

	m := MatchedDefinition{Definition: def}
	for i := 0; i < 2; i++ {
		if _, err := a.Account(ctx, m, Request{TenantID: "t-1"}, now); err != nil {
			t.Fatalf("Account: %v", err)
		}
	}

	remaining, reset, err = a.Remaining(ctx, def, "t-1", "", now)
	if err != nil {
		t.Fatalf("Remaining: %v", err)
	}
	if remaining != 3 {
		t.Errorf("Remaining = %d, want 3", remaining)
	}
	wantReset := time.Date(2026, 3, 14, 10, 31, 0, 0, time.UTC)
	if !reset.Equal(wantReset) {
		t.Errorf("reset = %v, want %v", reset, wantReset)
	}

	// Peeking never consumes quota.
	if v, _ := a.Account(ctx, m, Request{TenantID: "t-1"}, now); v.Remaining != 2 {
		t.Errorf("Remaining after peeks = %d, want 2", v.Remaining)
	}
}
