package service

import (
	"context"
	"fmt"
	"log"

	verrors "github.com/louisbranch/starvault/internal/errors"
)

// EnqueueWithdrawal records a deferred withdrawal for an agent after an
// insufficient-reserve rejection and returns the agent's 1-based queue
// position. An agent with an earlier unprocessed request keeps that
// request's position.
func (b *Bank) EnqueueWithdrawal(ctx context.Context, agentID string, value int64) (int, error) {
	if value <= 0 {
		return 0, verrors.New(verrors.CodeInvalidConfiguration, fmt.Sprintf("queued withdrawal value must be positive, got %d", value))
	}
	if _, err := b.queue.EnqueueWithdrawal(ctx, agentID, value); err != nil {
		return 0, verrors.Wrap(verrors.CodeStoreUnavailable, "enqueue withdrawal", err)
	}
	position, err := b.queue.QueuePosition(ctx, agentID)
	if err != nil {
		return 0, verrors.Wrap(verrors.CodeStoreUnavailable, "read queue position", err)
	}
	return position, nil
}

// QueuePosition returns the agent's 1-based rank among unprocessed requests,
// or 0 when the agent has none queued.
func (b *Bank) QueuePosition(ctx context.Context, agentID string) (int, error) {
	position, err := b.queue.QueuePosition(ctx, agentID)
	if err != nil {
		return 0, verrors.Wrap(verrors.CodeStoreUnavailable, "read queue position", err)
	}
	return position, nil
}

// CancelQueuedWithdrawal removes the agent's unprocessed requests and
// returns how many were removed.
func (b *Bank) CancelQueuedWithdrawal(ctx context.Context, agentID string) (int64, error) {
	removed, err := b.queue.CancelWithdrawals(ctx, agentID)
	if err != nil {
		return 0, verrors.Wrap(verrors.CodeStoreUnavailable, "cancel queued withdrawals", err)
	}
	return removed, nil
}

// DrainQueue walks unprocessed withdrawal requests in strict arrival order
// against a single reserve snapshot. The pass stops at the first request the
// remaining reserve cannot cover: later, smaller requests never jump the
// queue. Failures that are not reserve shortfalls (the agent is unreachable
// or no longer holds the notes) skip the request and leave it queued, so one
// stuck agent does not stall the queue behind a healthy reserve.
//
// A tick arriving while a pass is running is dropped; two concurrent passes
// would double-account the same reserve snapshot.
func (b *Bank) DrainQueue(ctx context.Context) error {
	if !b.drainMu.TryLock() {
		return nil
	}
	defer b.drainMu.Unlock()

	available, err := b.reserve.ReserveUnits(ctx)
	if err != nil {
		return verrors.Wrap(verrors.CodeStoreUnavailable, "read reserve", err)
	}
	emergency, err := b.reserve.EmergencyActive(ctx)
	if err != nil {
		return verrors.Wrap(verrors.CodeStoreUnavailable, "read emergency flag", err)
	}
	requests, err := b.queue.UnprocessedWithdrawals(ctx)
	if err != nil {
		return verrors.Wrap(verrors.CodeStoreUnavailable, "list queued withdrawals", err)
	}

	for _, request := range requests {
		assetEquivalent := b.exchange.CurrencyToAsset(request.Amount)
		if assetEquivalent > available {
			break
		}

		notes, total, err := b.validatedHoldings(ctx, request.AgentID)
		if err != nil {
			log.Printf("drain: skipping request %d for %s: %v", request.ID, request.AgentID, err)
			continue
		}
		if total < request.Amount {
			log.Printf("drain: skipping request %d for %s: holds %d in notes, needs %d", request.ID, request.AgentID, total, request.Amount)
			continue
		}

		result, err := b.executeWithdrawal(ctx, request.AgentID, request.Amount, notes, emergency)
		if err != nil {
			log.Printf("drain: request %d for %s failed: %v", request.ID, request.AgentID, err)
			continue
		}
		if !result.Success {
			log.Printf("drain: request %d for %s rejected: %s", request.ID, request.AgentID, result.Reason)
			continue
		}

		available -= result.AssetDelivered
		if err := b.queue.MarkWithdrawalProcessed(ctx, request.ID); err != nil {
			log.Printf("drain: mark request %d processed: %v", request.ID, err)
		}
		b.notify(ctx, request.AgentID, fmt.Sprintf("Your queued withdrawal of %s%d has been processed.", b.cfg.Symbol, request.Amount))
	}
	return nil
}

// notify sends a best-effort message to an agent.
func (b *Bank) notify(ctx context.Context, agentID, message string) {
	if b.notifier == nil {
		return
	}
	if err := b.notifier.NotifyAgent(ctx, agentID, message); err != nil {
		log.Printf("notify %s: %v", agentID, err)
	}
}
