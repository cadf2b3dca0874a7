package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/louisbranch/starvault/internal/vault/domain"
	"github.com/louisbranch/starvault/internal/vault/storage"
)

type fakeLedger struct {
	mu    sync.Mutex
	notes map[string]domain.Note

	insertErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{notes: make(map[string]domain.Note)}
}

func (l *fakeLedger) InsertNote(_ context.Context, note domain.Note) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.insertErr != nil {
		return l.insertErr
	}
	if _, ok := l.notes[note.Serial]; ok {
		return storage.ErrAlreadyExists
	}
	l.notes[note.Serial] = note
	return nil
}

func (l *fakeLedger) GetNote(_ context.Context, serial string) (domain.Note, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	note, ok := l.notes[serial]
	if !ok {
		return domain.Note{}, storage.ErrNotFound
	}
	return note, nil
}

func (l *fakeLedger) transition(serial, by string, status domain.NoteStatus) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	note, ok := l.notes[serial]
	if !ok || note.Status != domain.StatusCirculating {
		return false, nil
	}
	now := time.Now().UTC()
	note.Status = status
	note.StatusChangedAt = &now
	note.StatusChangedBy = by
	l.notes[serial] = note
	return true, nil
}

func (l *fakeLedger) RedeemNote(_ context.Context, serial, by string) (bool, error) {
	return l.transition(serial, by, domain.StatusRedeemed)
}

func (l *fakeLedger) ConfiscateNote(_ context.Context, serial, by string) (bool, error) {
	return l.transition(serial, by, domain.StatusConfiscated)
}

func (l *fakeLedger) CirculatingValue(context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total int64
	for _, note := range l.notes {
		if note.Status == domain.StatusCirculating {
			total += int64(note.Denomination)
		}
	}
	return total, nil
}

func (l *fakeLedger) CirculatingCounts(context.Context) (map[int]int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	counts := make(map[int]int64)
	for _, note := range l.notes {
		if note.Status == domain.StatusCirculating {
			counts[note.Denomination]++
		}
	}
	return counts, nil
}

type fakeReserve struct {
	mu        sync.Mutex
	units     int64
	emergency bool

	addErr     error
	failRemove bool
}

func (r *fakeReserve) ReserveUnits(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.units, nil
}

func (r *fakeReserve) AddToReserve(_ context.Context, units int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.addErr != nil {
		return r.addErr
	}
	r.units += units
	return nil
}

func (r *fakeReserve) RemoveFromReserve(_ context.Context, units int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failRemove || r.units < units {
		return false, nil
	}
	r.units -= units
	return true, nil
}

func (r *fakeReserve) EmergencyActive(context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.emergency, nil
}

func (r *fakeReserve) SetEmergencyActive(_ context.Context, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emergency = active
	return nil
}

type fakeQueue struct {
	mu       sync.Mutex
	nextID   int64
	requests []domain.WithdrawalRequest
}

func (q *fakeQueue) EnqueueWithdrawal(_ context.Context, agentID string, amount int64) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	q.requests = append(q.requests, domain.WithdrawalRequest{
		ID:          q.nextID,
		AgentID:     agentID,
		Amount:      amount,
		RequestedAt: time.Now().UTC(),
	})
	return q.nextID, nil
}

func (q *fakeQueue) UnprocessedWithdrawals(context.Context) ([]domain.WithdrawalRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var pending []domain.WithdrawalRequest
	for _, request := range q.requests {
		if !request.Processed {
			pending = append(pending, request)
		}
	}
	return pending, nil
}

func (q *fakeQueue) MarkWithdrawalProcessed(_ context.Context, id int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.requests {
		if q.requests[i].ID == id {
			q.requests[i].Processed = true
			return nil
		}
	}
	return storage.ErrNotFound
}

func (q *fakeQueue) CancelWithdrawals(_ context.Context, agentID string) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var kept []domain.WithdrawalRequest
	var removed int64
	for _, request := range q.requests {
		if !request.Processed && request.AgentID == agentID {
			removed++
			continue
		}
		kept = append(kept, request)
	}
	q.requests = kept
	return removed, nil
}

func (q *fakeQueue) QueuePosition(_ context.Context, agentID string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	position := 0
	for _, request := range q.requests {
		if request.Processed {
			continue
		}
		position++
		if request.AgentID == agentID {
			return position, nil
		}
	}
	return 0, nil
}

type fakeHoldings struct {
	mu     sync.Mutex
	assets map[string]int64
	tokens map[string][]domain.Token

	tokensErr  error
	deliverErr error
}

func newFakeHoldings() *fakeHoldings {
	return &fakeHoldings{
		assets: make(map[string]int64),
		tokens: make(map[string][]domain.Token),
	}
}

func (h *fakeHoldings) CountAsset(_ context.Context, agentID string) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.assets[agentID], nil
}

func (h *fakeHoldings) RemoveAsset(_ context.Context, agentID string, amount int64) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.assets[agentID] < amount {
		return false, nil
	}
	h.assets[agentID] -= amount
	return true, nil
}

func (h *fakeHoldings) AddAsset(_ context.Context, agentID string, amount int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.assets[agentID] += amount
	return nil
}

func (h *fakeHoldings) AgentTokens(_ context.Context, agentID string) ([]domain.Token, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tokensErr != nil {
		return nil, h.tokensErr
	}
	tokens := make([]domain.Token, len(h.tokens[agentID]))
	copy(tokens, h.tokens[agentID])
	return tokens, nil
}

func (h *fakeHoldings) RemoveNoteBySerial(_ context.Context, agentID, serial string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, token := range h.tokens[agentID] {
		if token.ExtractSerial() == serial {
			h.tokens[agentID] = append(h.tokens[agentID][:i], h.tokens[agentID][i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (h *fakeHoldings) DeliverToken(_ context.Context, agentID string, token domain.Token) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.deliverErr != nil {
		return h.deliverErr
	}
	h.tokens[agentID] = append(h.tokens[agentID], token)
	return nil
}

func (h *fakeHoldings) tokenCount(agentID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.tokens[agentID])
}

func (h *fakeHoldings) assetBalance(agentID string) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.assets[agentID]
}

type fakeLocations struct {
	at bool
}

func (l *fakeLocations) AtVaultLocation(context.Context, string) (bool, error) {
	return l.at, nil
}

type fakeNotifier struct {
	mu         sync.Mutex
	notified   []string
	broadcasts []string
}

func (n *fakeNotifier) NotifyAgent(_ context.Context, agentID, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notified = append(n.notified, agentID)
	return nil
}

func (n *fakeNotifier) Broadcast(_ context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.broadcasts = append(n.broadcasts, message)
	return nil
}

type memAudit struct {
	mu      sync.Mutex
	entries []storage.Transaction
}

func (a *memAudit) AppendTransaction(_ context.Context, tx storage.Transaction) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, tx)
	return nil
}

func (a *memAudit) RecentTransactions(context.Context, int) ([]storage.Transaction, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	entries := make([]storage.Transaction, len(a.entries))
	copy(entries, a.entries)
	return entries, nil
}

func (a *memAudit) kinds() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	kinds := make([]string, 0, len(a.entries))
	for _, entry := range a.entries {
		kinds = append(kinds, entry.Kind)
	}
	return kinds
}

var errUnavailable = errors.New("backing store unavailable")
