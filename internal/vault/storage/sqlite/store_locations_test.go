package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/louisbranch/starvault/internal/vault/storage"
)

func transactionFixture(kind string) storage.Transaction {
	return storage.Transaction{
		Kind:           kind,
		AgentID:        "agent-1",
		AmountCurrency: 12,
		AmountAsset:    20736,
		Details:        "fixture",
	}
}

func TestInsertListLocations(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	id, err := store.InsertLocation(ctx, storage.Location{
		Name:   "Grand Vault",
		Kind:   "main",
		World:  "overworld",
		X:      120,
		Y:      64,
		Z:      -340,
		Radius: 10,
	})
	if err != nil {
		t.Fatalf("insert location: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero location id")
	}

	locations, err := store.ListLocations(ctx)
	if err != nil {
		t.Fatalf("list locations: %v", err)
	}
	if len(locations) != 1 {
		t.Fatalf("locations = %d, want 1", len(locations))
	}
	if locations[0].Name != "Grand Vault" || locations[0].Kind != "main" {
		t.Fatalf("location = %+v", locations[0])
	}
}

func TestInsertLocationDuplicateName(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	loc := storage.Location{Name: "Branch", Kind: "branch", World: "overworld", Radius: 5}
	if _, err := store.InsertLocation(ctx, loc); err != nil {
		t.Fatalf("insert location: %v", err)
	}
	_, err := store.InsertLocation(ctx, loc)
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("duplicate insert error = %v, want %v", err, storage.ErrAlreadyExists)
	}
}

func TestDeleteLocation(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	if _, err := store.InsertLocation(ctx, storage.Location{Name: "Outpost", Kind: "branch", World: "nether", Radius: 8}); err != nil {
		t.Fatalf("insert location: %v", err)
	}

	deleted, err := store.DeleteLocation(ctx, "Outpost")
	if err != nil {
		t.Fatalf("delete location: %v", err)
	}
	if !deleted {
		t.Fatal("expected deletion to report a removed row")
	}

	deleted, err = store.DeleteLocation(ctx, "Outpost")
	if err != nil {
		t.Fatalf("delete location again: %v", err)
	}
	if deleted {
		t.Fatal("expected second deletion to report nothing removed")
	}
}
