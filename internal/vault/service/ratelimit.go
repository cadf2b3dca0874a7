package service

import (
	"sync"
	"time"
)

// Limiter tracks per-agent transaction counts and withdrawal cooldowns in
// memory. State is intentionally not persisted: a process restart resets
// every agent's window, which is an accepted soft invariant.
type Limiter struct {
	mu              sync.Mutex
	maxPerWindow    int
	cooldown        time.Duration
	counts          map[string]int
	lastWithdrawals map[string]time.Time
	clock           func() time.Time
}

// NewLimiter returns a limiter allowing maxPerWindow transactions per agent
// between resets and enforcing cooldown between withdrawals.
func NewLimiter(maxPerWindow int, cooldown time.Duration) *Limiter {
	return &Limiter{
		maxPerWindow:    maxPerWindow,
		cooldown:        cooldown,
		counts:          make(map[string]int),
		lastWithdrawals: make(map[string]time.Time),
		clock:           time.Now,
	}
}

// Allow reports whether the agent has transactions left in the current
// window.
func (l *Limiter) Allow(agentID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[agentID] < l.maxPerWindow
}

// Increment records one completed transaction for the agent.
func (l *Limiter) Increment(agentID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[agentID]++
}

// CooldownElapsed reports whether the agent's withdrawal cooldown has passed.
func (l *Limiter) CooldownElapsed(agentID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	last, ok := l.lastWithdrawals[agentID]
	if !ok {
		return true
	}
	return l.clock().Sub(last) >= l.cooldown
}

// MarkWithdrawal records the agent's withdrawal time for cooldown tracking.
func (l *Limiter) MarkWithdrawal(agentID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastWithdrawals[agentID] = l.clock()
}

// Reset clears every agent's transaction count. Invoked on the window tick.
// Cooldown timestamps are kept: the cooldown is a gap between withdrawals,
// not a per-window allowance.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts = make(map[string]int)
}
