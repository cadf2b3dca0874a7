// Package audit records the append-only economic transaction trail.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/louisbranch/starvault/internal/vault/storage"
)

// Emitter appends audit transactions. Logging is best-effort: an audit
// failure must never roll back the economic transaction it describes, so
// Emit is used fire-and-forget by coordinators.
type Emitter struct {
	store storage.AuditStore
	clock func() time.Time
}

// NewEmitter creates a new audit emitter.
func NewEmitter(store storage.AuditStore) *Emitter {
	return &Emitter{store: store, clock: time.Now}
}

// Emit records one transaction. It is a no-op when the store is nil.
func (e *Emitter) Emit(ctx context.Context, tx storage.Transaction) error {
	if e == nil || e.store == nil {
		return nil
	}
	if tx.CreatedAt.IsZero() {
		if e.clock == nil {
			tx.CreatedAt = time.Now().UTC()
		} else {
			tx.CreatedAt = e.clock().UTC()
		}
	}
	return e.store.AppendTransaction(ctx, tx)
}

// Record emits a transaction and logs the failure instead of returning it.
func (e *Emitter) Record(ctx context.Context, tx storage.Transaction) {
	if err := e.Emit(ctx, tx); err != nil {
		log.Printf("append audit transaction (%s, agent %s): %v", tx.Kind, tx.AgentID, err)
	}
}
