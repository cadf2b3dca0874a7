package audit

import (
	"context"
	"testing"
	"time"

	"github.com/louisbranch/starvault/internal/vault/storage"
)

type captureStore struct {
	appended []storage.Transaction
}

func (c *captureStore) AppendTransaction(_ context.Context, tx storage.Transaction) error {
	c.appended = append(c.appended, tx)
	return nil
}

func (c *captureStore) RecentTransactions(context.Context, int) ([]storage.Transaction, error) {
	return c.appended, nil
}

func TestEmitStampsTimestamp(t *testing.T) {
	t.Parallel()

	store := &captureStore{}
	emitter := NewEmitter(store)
	fixed := time.Date(2026, time.April, 10, 9, 30, 0, 0, time.UTC)
	emitter.clock = func() time.Time { return fixed }

	err := emitter.Emit(context.Background(), storage.Transaction{Kind: "deposit", AgentID: "agent-1"})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(store.appended) != 1 {
		t.Fatalf("appended = %d, want 1", len(store.appended))
	}
	if !store.appended[0].CreatedAt.Equal(fixed) {
		t.Fatalf("created_at = %v, want %v", store.appended[0].CreatedAt, fixed)
	}
}

func TestEmitNilSafe(t *testing.T) {
	t.Parallel()

	var emitter *Emitter
	if err := emitter.Emit(context.Background(), storage.Transaction{Kind: "deposit"}); err != nil {
		t.Fatalf("emit on nil emitter: %v", err)
	}

	emitter = NewEmitter(nil)
	if err := emitter.Emit(context.Background(), storage.Transaction{Kind: "deposit"}); err != nil {
		t.Fatalf("emit without store: %v", err)
	}
}
