// Package service implements the bank's business operations: note issuance
// and validation, the deposit and withdrawal coordinators, the withdrawal
// queue drain, the reserve ratio monitor, and the per-agent rate limiter.
//
// The surrounding world (agent holdings, location checks, messaging) is not
// transactional. The coordinators therefore make every compensation explicit
// instead of assuming a transaction can span both sides.
package service

import (
	"context"

	"github.com/louisbranch/starvault/internal/vault/domain"
)

// HoldingsProvider gives the coordinators access to an agent's physical
// possessions: reserve asset units and note tokens. Implementations live in
// the surrounding world engine and are not transactional.
type HoldingsProvider interface {
	// CountAsset returns how many reserve asset units the agent holds.
	CountAsset(ctx context.Context, agentID string) (int64, error)
	// RemoveAsset takes amount units from the agent and reports whether the
	// full amount was available to take. A false return means nothing was
	// removed.
	RemoveAsset(ctx context.Context, agentID string, amount int64) (bool, error)
	// AddAsset gives amount units to the agent. Overflow beyond carrying
	// capacity spills into the environment rather than failing.
	AddAsset(ctx context.Context, agentID string, amount int64) error
	// AgentTokens returns the note tokens currently in the agent's holdings.
	AgentTokens(ctx context.Context, agentID string) ([]domain.Token, error)
	// RemoveNoteBySerial takes the token carrying serial from the agent and
	// reports whether it was present.
	RemoveNoteBySerial(ctx context.Context, agentID, serial string) (bool, error)
	// DeliverToken gives a rendered note token to the agent.
	DeliverToken(ctx context.Context, agentID string, token domain.Token) error
}

// LocationQualifier answers whether an agent is standing at a qualifying
// vault location.
type LocationQualifier interface {
	AtVaultLocation(ctx context.Context, agentID string) (bool, error)
}

// Notifier delivers best-effort messages. Failures are logged, never
// propagated into economic outcomes.
type Notifier interface {
	// NotifyAgent sends a message to one agent if reachable.
	NotifyAgent(ctx context.Context, agentID, message string) error
	// Broadcast announces a message to every connected agent.
	Broadcast(ctx context.Context, message string) error
}
