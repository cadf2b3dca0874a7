// Package storage defines the persistence interfaces for the vault: the
// notes ledger, the reserve singleton, the withdrawal queue, the transaction
// audit log, and the vault location registry.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/starvault/internal/vault/domain"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists indicates a uniqueness violation on insert.
var ErrAlreadyExists = errors.New("already exists")

// LedgerStore persists note records keyed by serial. Status transitions are
// compare-and-set at the store so at-most-once redemption holds under
// concurrent redeemers. Notes are never deleted.
type LedgerStore interface {
	// InsertNote records a freshly issued note. The serial primary key
	// enforces issue-exactly-once; a collision reports ErrAlreadyExists.
	InsertNote(ctx context.Context, note domain.Note) error
	// GetNote returns the note for a serial, or ErrNotFound.
	GetNote(ctx context.Context, serial string) (domain.Note, error)
	// RedeemNote transitions circulating → redeemed in a single conditional
	// update and reports whether this call performed the transition.
	RedeemNote(ctx context.Context, serial, redeemedBy string) (bool, error)
	// ConfiscateNote transitions circulating → confiscated in a single
	// conditional update and reports whether this call performed it.
	ConfiscateNote(ctx context.Context, serial, confiscatedBy string) (bool, error)
	// CirculatingValue sums denomination over all circulating notes.
	CirculatingValue(ctx context.Context) (int64, error)
	// CirculatingCounts returns note counts per denomination for
	// circulating notes.
	CirculatingCounts(ctx context.Context) (map[int]int64, error)
}

// ReserveStore persists the singleton reserve counter and the emergency-mode
// flag. The counter never goes negative: removal is a one-statement
// decrement-if-sufficient, linearizable at the store.
type ReserveStore interface {
	// ReserveUnits returns the current reserve asset units.
	ReserveUnits(ctx context.Context) (int64, error)
	// AddToReserve unconditionally increments the reserve.
	AddToReserve(ctx context.Context, units int64) error
	// RemoveFromReserve decrements only when the current balance covers
	// units, and reports whether the decrement happened.
	RemoveFromReserve(ctx context.Context, units int64) (bool, error)
	// EmergencyActive reports the persisted emergency-mode flag.
	EmergencyActive(ctx context.Context) (bool, error)
	// SetEmergencyActive persists the emergency-mode flag.
	SetEmergencyActive(ctx context.Context, active bool) error
}

// QueueStore persists deferred withdrawal requests in arrival order.
type QueueStore interface {
	// EnqueueWithdrawal appends an unprocessed request and returns its id.
	EnqueueWithdrawal(ctx context.Context, agentID string, amount int64) (int64, error)
	// UnprocessedWithdrawals returns unprocessed requests in FIFO order.
	UnprocessedWithdrawals(ctx context.Context) ([]domain.WithdrawalRequest, error)
	// MarkWithdrawalProcessed flags a request as satisfied.
	MarkWithdrawalProcessed(ctx context.Context, id int64) error
	// CancelWithdrawals removes an agent's unprocessed requests and returns
	// how many were removed.
	CancelWithdrawals(ctx context.Context, agentID string) (int64, error)
	// QueuePosition returns the agent's 1-based rank among unprocessed
	// requests, or 0 when the agent has none.
	QueuePosition(ctx context.Context, agentID string) (int, error)
}

// Transaction is one append-only audit record of an economic operation.
type Transaction struct {
	ID             int64
	Kind           string
	AgentID        string
	AmountCurrency int64
	AmountAsset    int64
	Details        string
	CreatedAt      time.Time
}

// AuditStore persists the append-only transactions log.
type AuditStore interface {
	// AppendTransaction records one audit entry.
	AppendTransaction(ctx context.Context, tx Transaction) error
	// RecentTransactions returns the newest entries, newest first.
	RecentTransactions(ctx context.Context, limit int) ([]Transaction, error)
}

// Location is a named vault location with a qualification radius.
type Location struct {
	ID        int64
	Name      string
	Kind      string
	World     string
	X         int
	Y         int
	Z         int
	Radius    int
	CreatedAt time.Time
}

// LocationStore persists the vault location registry.
type LocationStore interface {
	// InsertLocation records a location; duplicate names report
	// ErrAlreadyExists.
	InsertLocation(ctx context.Context, loc Location) (int64, error)
	// DeleteLocation removes a location by name and reports whether a
	// record was removed.
	DeleteLocation(ctx context.Context, name string) (bool, error)
	// ListLocations returns every registered location.
	ListLocations(ctx context.Context) ([]Location, error)
}
