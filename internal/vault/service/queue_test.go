package service

import (
	"context"
	"testing"
)

func TestEnqueuePositionAndCancel(t *testing.T) {
	t.Parallel()

	f := newBankFixture(t)
	ctx := context.Background()

	position, err := f.bank.EnqueueWithdrawal(ctx, "alpha", 100)
	if err != nil {
		t.Fatalf("enqueue alpha: %v", err)
	}
	if position != 1 {
		t.Fatalf("alpha position = %d, want 1", position)
	}

	position, err = f.bank.EnqueueWithdrawal(ctx, "beta", 10)
	if err != nil {
		t.Fatalf("enqueue beta: %v", err)
	}
	if position != 2 {
		t.Fatalf("beta position = %d, want 2", position)
	}

	// A duplicate request keeps the agent's original rank.
	position, err = f.bank.EnqueueWithdrawal(ctx, "alpha", 50)
	if err != nil {
		t.Fatalf("re-enqueue alpha: %v", err)
	}
	if position != 1 {
		t.Fatalf("alpha position after duplicate = %d, want 1", position)
	}

	removed, err := f.bank.CancelQueuedWithdrawal(ctx, "alpha")
	if err != nil {
		t.Fatalf("cancel alpha: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	position, err = f.bank.QueuePosition(ctx, "beta")
	if err != nil {
		t.Fatalf("beta position: %v", err)
	}
	if position != 1 {
		t.Fatalf("beta position after cancel = %d, want 1", position)
	}
}

func TestDrainStrictFIFO(t *testing.T) {
	t.Parallel()

	f := newBankFixture(t)
	ctx := context.Background()

	f.giveNotes(t, "alpha", 100)
	f.giveNotes(t, "beta", 10)
	if _, err := f.bank.EnqueueWithdrawal(ctx, "alpha", 100); err != nil {
		t.Fatalf("enqueue alpha: %v", err)
	}
	if _, err := f.bank.EnqueueWithdrawal(ctx, "beta", 10); err != nil {
		t.Fatalf("enqueue beta: %v", err)
	}

	// The reserve covers beta's request but not alpha's. Strict arrival
	// order means beta must wait behind alpha rather than jump the queue.
	f.reserve.units = 10 * 1728

	if err := f.bank.DrainQueue(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	if position, _ := f.bank.QueuePosition(ctx, "alpha"); position != 1 {
		t.Fatalf("alpha position = %d, want 1", position)
	}
	if position, _ := f.bank.QueuePosition(ctx, "beta"); position != 2 {
		t.Fatalf("beta position = %d, want 2", position)
	}
	if got := f.holdings.assetBalance("beta"); got != 0 {
		t.Fatalf("beta received %d units while blocked behind alpha", got)
	}

	// Once the reserve covers alpha too, both clear in order.
	f.reserve.units = 110 * 1728
	if err := f.bank.DrainQueue(ctx); err != nil {
		t.Fatalf("second drain: %v", err)
	}
	if position, _ := f.bank.QueuePosition(ctx, "alpha"); position != 0 {
		t.Fatalf("alpha still queued at position %d", position)
	}
	if position, _ := f.bank.QueuePosition(ctx, "beta"); position != 0 {
		t.Fatalf("beta still queued at position %d", position)
	}
	if got := f.holdings.assetBalance("alpha"); got != 100*1728 {
		t.Fatalf("alpha received %d units, want %d", got, 100*1728)
	}
	if got := f.holdings.assetBalance("beta"); got != 10*1728 {
		t.Fatalf("beta received %d units, want %d", got, 10*1728)
	}

	f.notifier.mu.Lock()
	notified := append([]string(nil), f.notifier.notified...)
	f.notifier.mu.Unlock()
	if len(notified) != 2 || notified[0] != "alpha" || notified[1] != "beta" {
		t.Fatalf("notified = %v, want [alpha beta]", notified)
	}
}

func TestDrainSkipsAgentWithoutNotes(t *testing.T) {
	t.Parallel()

	f := newBankFixture(t)
	ctx := context.Background()

	// alpha queued a withdrawal but no longer holds the notes; beta is
	// healthy. alpha stays queued without stalling beta, because the
	// reserve itself is not the obstacle.
	f.giveNotes(t, "beta", 10)
	if _, err := f.bank.EnqueueWithdrawal(ctx, "alpha", 100); err != nil {
		t.Fatalf("enqueue alpha: %v", err)
	}
	if _, err := f.bank.EnqueueWithdrawal(ctx, "beta", 10); err != nil {
		t.Fatalf("enqueue beta: %v", err)
	}
	f.reserve.units = 200 * 1728

	if err := f.bank.DrainQueue(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	if position, _ := f.bank.QueuePosition(ctx, "alpha"); position != 1 {
		t.Fatalf("alpha position = %d, want 1", position)
	}
	if position, _ := f.bank.QueuePosition(ctx, "beta"); position != 0 {
		t.Fatalf("beta still queued at position %d", position)
	}
	if got := f.holdings.assetBalance("beta"); got != 10*1728 {
		t.Fatalf("beta received %d units, want %d", got, 10*1728)
	}
}

func TestDrainDropsOverlappingTick(t *testing.T) {
	t.Parallel()

	f := newBankFixture(t)
	ctx := context.Background()

	f.giveNotes(t, "alpha", 10)
	if _, err := f.bank.EnqueueWithdrawal(ctx, "alpha", 10); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	f.reserve.units = 10 * 1728

	f.bank.drainMu.Lock()
	if err := f.bank.DrainQueue(ctx); err != nil {
		t.Fatalf("overlapping drain: %v", err)
	}
	f.bank.drainMu.Unlock()

	// The overlapping tick was dropped, so the request is untouched.
	if position, _ := f.bank.QueuePosition(ctx, "alpha"); position != 1 {
		t.Fatalf("alpha position = %d, want 1", position)
	}
}
