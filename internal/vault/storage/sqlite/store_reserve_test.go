package sqlite

import (
	"context"
	"sync"
	"testing"
)

func TestReserveStartsAtZero(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)

	units, err := store.ReserveUnits(context.Background())
	if err != nil {
		t.Fatalf("reserve units: %v", err)
	}
	if units != 0 {
		t.Fatalf("reserve = %d, want 0", units)
	}
}

func TestReserveAddRemove(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)

	if err := store.AddToReserve(context.Background(), 5000); err != nil {
		t.Fatalf("add to reserve: %v", err)
	}

	removed, err := store.RemoveFromReserve(context.Background(), 1728)
	if err != nil {
		t.Fatalf("remove from reserve: %v", err)
	}
	if !removed {
		t.Fatal("expected removal to succeed")
	}

	units, err := store.ReserveUnits(context.Background())
	if err != nil {
		t.Fatalf("reserve units: %v", err)
	}
	if units != 3272 {
		t.Fatalf("reserve = %d, want 3272", units)
	}
}

func TestRemoveFromReserveInsufficientLeavesBalance(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)

	if err := store.AddToReserve(context.Background(), 100); err != nil {
		t.Fatalf("add to reserve: %v", err)
	}

	removed, err := store.RemoveFromReserve(context.Background(), 101)
	if err != nil {
		t.Fatalf("remove from reserve: %v", err)
	}
	if removed {
		t.Fatal("expected removal beyond balance to fail")
	}

	units, err := store.ReserveUnits(context.Background())
	if err != nil {
		t.Fatalf("reserve units: %v", err)
	}
	if units != 100 {
		t.Fatalf("reserve = %d, want unchanged 100", units)
	}
}

func TestConcurrentRemovalsNeverOverdraw(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)

	if err := store.AddToReserve(context.Background(), 50); err != nil {
		t.Fatalf("add to reserve: %v", err)
	}

	// Ten concurrent removals of 10 against a balance of 50: exactly five
	// can succeed.
	const removers = 10
	var wg sync.WaitGroup
	results := make(chan bool, removers)
	for i := 0; i < removers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.RemoveFromReserve(context.Background(), 10)
			if err != nil {
				t.Errorf("remove from reserve: %v", err)
				return
			}
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for ok := range results {
		if ok {
			successes++
		}
	}
	if successes != 5 {
		t.Fatalf("successful removals = %d, want 5", successes)
	}

	units, err := store.ReserveUnits(context.Background())
	if err != nil {
		t.Fatalf("reserve units: %v", err)
	}
	if units != 0 {
		t.Fatalf("reserve = %d, want 0", units)
	}
}

func TestEmergencyFlagRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)

	active, err := store.EmergencyActive(context.Background())
	if err != nil {
		t.Fatalf("emergency active: %v", err)
	}
	if active {
		t.Fatal("expected emergency mode to start inactive")
	}

	if err := store.SetEmergencyActive(context.Background(), true); err != nil {
		t.Fatalf("set emergency active: %v", err)
	}

	active, err = store.EmergencyActive(context.Background())
	if err != nil {
		t.Fatalf("emergency active: %v", err)
	}
	if !active {
		t.Fatal("expected emergency mode to persist")
	}
}
