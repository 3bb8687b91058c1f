package storage

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemory_ClassStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, ok, err := m.GetClass(ctx, "t-1"); err != nil || ok {
		t.Fatalf("GetClass on empty store: ok=%v err=%v", ok, err)
	}

	if err := m.SetClass(ctx, "t-1", "gold"); err != nil {
		t.Fatalf("SetClass: %v", err)
	}
	class, ok, err := m.GetClass(ctx, "t-1")
	if err != nil || !ok || class != "gold" {
		t.Fatalf("GetClass = (%q, %v, %v), want (gold, true, nil)", class, ok, err)
	}

	if err := m.SetClass(ctx, "t-1", "silver"); err != nil {
		t.Fatalf("SetClass overwrite: %v", err)
	}
	if class, _, _ := m.GetClass(ctx, "t-1"); class != "silver" {
		t.Errorf("GetClass after overwrite = %q, want silver", class)
	}

	if err := m.DeleteClass(ctx, "t-1"); err != nil {
		t.Fatalf("DeleteClass: %v", err)
	}
	if _, ok, _ := m.GetClass(ctx, "t-1"); ok {
		t.Error("GetClass found deleted assignment")
	}
}

func TestMemory_IncrWindow(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	start := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

	for want := int64(1); want <= 3; want++ {
		got, err := m.IncrWindow(ctx, "k", start, time.Minute)
		if err != nil {
			t.Fatalf("IncrWindow: %v", err)
		}
		if got != want {
			t.Errorf("IncrWindow = %d, want %d", got, want)
		}
	}

	// A new window start resets the counter for the same key.
	got, err := m.IncrWindow(ctx, "k", start.Add(time.Minute), time.Minute)
	if err != nil {
		t.Fatalf("IncrWindow: %v", err)
	}
	if got != 1 {
		t.Errorf("IncrWindow after rollover = %d, want 1", got)
	}

	// Distinct keys are independent.
	if got, _ := m.IncrWindow(ctx, "other", start, time.Minute); got != 1 {
		t.Errorf("IncrWindow on fresh key = %d, want 1", got)
	}
}

func TestMemory_PeekWindow(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	start := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

	if got, _ := m.PeekWindow(ctx, "k", start); got != 0 {
		t.Errorf("PeekWindow on empty store = %d, want 0", got)
	}

	if _, err := m.IncrWindow(ctx, "k", start, time.Minute); err != nil {
		t.Fatalf("IncrWindow: %v", err)
	}
	if got, _ := m.PeekWindow(ctx, "k", start); got != 1 {
		t.Errorf("PeekWindow = %d, want 1", got)
	}

	// A stale window start reads as empty.
	if got, _ := m.PeekWindow(ctx, "k", start.Add(time.Minute)); got != 0 {
		t.Errorf("PeekWindow with newer window = %d, want 0", got)
	}
}

func TestMemory_IncrWindowConcurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	start := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

	const workers = 64
	counts := make([]int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, err := m.IncrWindow(ctx, "k", start, time.Minute)
			if err != nil {
				t.Errorf("IncrWindow: %v", err)
				return
			}
			counts[i] = n
		}(i)
	}
	wg.Wait()

	// Every caller must observe a distinct post-increment value.
	seen := make(map[int64]bool, workers)
	for _, n := range counts {
		if n < 1 || n > workers {
			t.Fatalf("count %d out of range [1, %d]", n, workers)
		}
		if seen[n] {
			t.Fatalf("count %d returned twice", n)
		}
		seen[n] = true
	}
}

func TestMemory_Sweep(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	start := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

	if _, err := m.IncrWindow(ctx, "old", start, time.Minute); err != nil {
		t.Fatalf("IncrWindow: %v", err)
	}
	if _, err := m.IncrWindow(ctx, "fresh", start, time.Hour); err != nil {
		t.Fatalf("IncrWindow: %v", err)
	}

	removed, err := m.Sweep(ctx, start.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 1 {
		t.Errorf("Sweep removed %d buckets, want 1", removed)
	}
	if m.Size() != 1 {
		t.Errorf("Size = %d after sweep, want 1", m.Size())
	}
	if got, _ := m.PeekWindow(ctx, "fresh", start); got != 1 {
		t.Errorf("fresh bucket = %d after sweep, want 1", got)
	}
}
