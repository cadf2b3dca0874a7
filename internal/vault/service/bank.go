package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	verrors "github.com/louisbranch/starvault/internal/errors"
	"github.com/louisbranch/starvault/internal/vault/audit"
	"github.com/louisbranch/starvault/internal/vault/domain"
	"github.com/louisbranch/starvault/internal/vault/storage"
)

// Coordinator reason codes, stable strings for presentation layers. Expected
// business conditions surface as these, never as raw errors.
const (
	ReasonNotAtBank            = "not_at_bank"
	ReasonRateLimited          = "rate_limited"
	ReasonMinimumDeposit       = "minimum_deposit"
	ReasonInsufficientAssets   = "insufficient_assets"
	ReasonAmountTooSmall       = "amount_too_small"
	ReasonRemovalFailed        = "removal_failed"
	ReasonReserveFailed        = "reserve_failed"
	ReasonCooldown             = "cooldown"
	ReasonEmergencyLimit       = "emergency_limit"
	ReasonInsufficientNotes    = "insufficient_notes"
	ReasonInsufficientReserve  = "insufficient_reserve"
	ReasonNoteRemovalFailed    = "note_removal_failed"
	ReasonReserveRemovalFailed = "reserve_removal_failed"
	ReasonFatalInconsistency   = "fatal_inconsistency"
)

// DepositResult reports the outcome of a deposit attempt.
type DepositResult struct {
	Success        bool
	Reason         string
	AssetUsed      int64
	CurrencyIssued int64
	Notes          []domain.Note
}

// WithdrawalResult reports the outcome of a withdrawal attempt. On
// note_removal_failed, Value carries the partial amount actually redeemed.
type WithdrawalResult struct {
	Success        bool
	Reason         string
	Value          int64
	AssetDelivered int64
	FeeAsset       int64
}

// BankDeps are the stores and collaborators a Bank coordinates.
type BankDeps struct {
	Ledger    storage.LedgerStore
	Reserve   storage.ReserveStore
	Queue     storage.QueueStore
	Holdings  HoldingsProvider
	Locations LocationQualifier
	Audit     *audit.Emitter
	Notifier  Notifier
}

// Bank orchestrates deposits, withdrawals, and the withdrawal queue between
// agents' physical holdings and the ledger and reserve stores. Holdings are
// external and not transactional, so failures after a holdings mutation are
// handled by explicit compensation or declared fatal inconsistencies, never
// by a presumed rollback.
type Bank struct {
	cfg      Config
	exchange domain.Exchange
	issuer   *Issuer
	reserve  storage.ReserveStore
	queue    storage.QueueStore

	holdings  HoldingsProvider
	locations LocationQualifier
	limiter   *Limiter
	audit     *audit.Emitter
	notifier  Notifier

	// drainMu serializes queue drain passes. A tick that fires while a
	// pass is still running is dropped, not queued.
	drainMu sync.Mutex
}

// NewBank validates cfg and wires a bank over deps.
func NewBank(cfg Config, deps BankDeps) (*Bank, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Ledger == nil || deps.Reserve == nil || deps.Queue == nil {
		return nil, verrors.New(verrors.CodeInvalidConfiguration, "ledger, reserve, and queue stores are required")
	}
	if deps.Holdings == nil {
		return nil, verrors.New(verrors.CodeInvalidConfiguration, "holdings provider is required")
	}
	if deps.Locations == nil {
		return nil, verrors.New(verrors.CodeInvalidConfiguration, "location qualifier is required")
	}
	return &Bank{
		cfg:       cfg,
		exchange:  cfg.Exchange(),
		issuer:    NewIssuer(deps.Ledger, cfg),
		reserve:   deps.Reserve,
		queue:     deps.Queue,
		holdings:  deps.Holdings,
		locations: deps.Locations,
		limiter:   NewLimiter(cfg.MaxTransactionsPerWindow, cfg.WithdrawalCooldown),
		audit:     deps.Audit,
		notifier:  deps.Notifier,
	}, nil
}

// Issuer exposes note issuance and validation, reused by subsystems that
// authenticate notes outside a deposit or withdrawal.
func (b *Bank) Issuer() *Issuer {
	return b.issuer
}

// ResetRateLimits clears every agent's transaction count. Invoked by the
// runtime on the rate-limit window tick.
func (b *Bank) ResetRateLimits() {
	b.limiter.Reset()
}

// Deposit exchanges requestedAsset units of the agent's reserve asset for
// notes. The requested amount is floored to whole currency units; only the
// asset equivalent of the floored value is consumed and the remainder stays
// with the agent. Business rejections return a reason code with a nil error;
// a non-nil error means a store or collaborator failed outright.
func (b *Bank) Deposit(ctx context.Context, agentID string, requestedAsset int64) (DepositResult, error) {
	if requestedAsset <= 0 {
		return DepositResult{Reason: ReasonAmountTooSmall}, nil
	}

	at, err := b.locations.AtVaultLocation(ctx, agentID)
	if err != nil {
		return DepositResult{}, verrors.Wrap(verrors.CodeStoreUnavailable, "check vault location", err)
	}
	if !at {
		return DepositResult{Reason: ReasonNotAtBank}, nil
	}
	if !b.limiter.Allow(agentID) {
		return DepositResult{Reason: ReasonRateLimited}, nil
	}
	minimumAsset := b.exchange.CurrencyToAsset(int64(b.cfg.Denominations.Smallest()))
	if requestedAsset < minimumAsset {
		return DepositResult{Reason: ReasonMinimumDeposit}, nil
	}
	held, err := b.holdings.CountAsset(ctx, agentID)
	if err != nil {
		return DepositResult{}, verrors.Wrap(verrors.CodeStoreUnavailable, "count agent assets", err)
	}
	if held < requestedAsset {
		return DepositResult{Reason: ReasonInsufficientAssets}, nil
	}

	value := b.exchange.AssetToCurrency(requestedAsset)
	if value == 0 {
		return DepositResult{Reason: ReasonAmountTooSmall}, nil
	}
	assetUsed := b.exchange.CurrencyToAsset(value)

	removed, err := b.holdings.RemoveAsset(ctx, agentID, assetUsed)
	if err != nil {
		return DepositResult{}, verrors.Wrap(verrors.CodeStoreUnavailable, "remove agent assets", err)
	}
	if !removed {
		// Holdings changed between the count and the removal.
		return DepositResult{Reason: ReasonRemovalFailed}, nil
	}

	if err := b.reserve.AddToReserve(ctx, assetUsed); err != nil {
		// Compensate: the assets left the agent but never reached the
		// vault, so they go back.
		if returnErr := b.holdings.AddAsset(ctx, agentID, assetUsed); returnErr != nil {
			b.recordInconsistency(ctx, agentID, 0, assetUsed,
				fmt.Sprintf("deposit compensation failed, %d asset units neither in vault nor returned: %v (reserve credit: %v)", assetUsed, returnErr, err))
		}
		return DepositResult{Reason: ReasonReserveFailed}, nil
	}

	// The reserve is credited. From here on, failure to issue or deliver
	// notes cannot be rolled back: the reserve entry has no paired notes,
	// which is a fatal inconsistency for operator reconciliation.
	var notes []domain.Note
	for _, entry := range b.cfg.Denominations.Breakdown(value) {
		for range entry.Count {
			note, issueErr := b.issuer.Issue(ctx, entry.Denomination, agentID)
			if issueErr != nil {
				return b.depositInconsistency(ctx, agentID, value, assetUsed, notes,
					fmt.Sprintf("issue %d-denomination note: %v", entry.Denomination, issueErr)), nil
			}
			token := domain.RenderToken(note, b.cfg.Symbol, b.cfg.BankName)
			if deliverErr := b.holdings.DeliverToken(ctx, agentID, token); deliverErr != nil {
				return b.depositInconsistency(ctx, agentID, value, assetUsed, notes,
					fmt.Sprintf("deliver note %s: %v", note.Serial, deliverErr)), nil
			}
			notes = append(notes, note)
		}
	}

	b.audit.Record(ctx, storage.Transaction{
		Kind:           "deposit",
		AgentID:        agentID,
		AmountCurrency: value,
		AmountAsset:    assetUsed,
		Details:        fmt.Sprintf("%d notes issued", len(notes)),
	})
	b.limiter.Increment(agentID)

	return DepositResult{
		Success:        true,
		AssetUsed:      assetUsed,
		CurrencyIssued: value,
		Notes:          notes,
	}, nil
}

// Withdraw exchanges the agent's notes back into requestedValue worth of the
// reserve asset. While emergency mode is active the value is capped and a fee
// is retained from the delivered asset amount.
func (b *Bank) Withdraw(ctx context.Context, agentID string, requestedValue int64) (WithdrawalResult, error) {
	if requestedValue <= 0 {
		return WithdrawalResult{Reason: ReasonAmountTooSmall}, nil
	}

	at, err := b.locations.AtVaultLocation(ctx, agentID)
	if err != nil {
		return WithdrawalResult{}, verrors.Wrap(verrors.CodeStoreUnavailable, "check vault location", err)
	}
	if !at {
		return WithdrawalResult{Reason: ReasonNotAtBank}, nil
	}
	if !b.limiter.Allow(agentID) {
		return WithdrawalResult{Reason: ReasonRateLimited}, nil
	}
	if !b.limiter.CooldownElapsed(agentID) {
		return WithdrawalResult{Reason: ReasonCooldown}, nil
	}

	emergency, err := b.reserve.EmergencyActive(ctx)
	if err != nil {
		return WithdrawalResult{}, verrors.Wrap(verrors.CodeStoreUnavailable, "read emergency flag", err)
	}
	if emergency && requestedValue > b.cfg.EmergencyWithdrawCap {
		return WithdrawalResult{Reason: ReasonEmergencyLimit}, nil
	}

	validNotes, total, err := b.validatedHoldings(ctx, agentID)
	if err != nil {
		return WithdrawalResult{}, err
	}
	if total < requestedValue {
		return WithdrawalResult{Reason: ReasonInsufficientNotes}, nil
	}

	reserveUnits, err := b.reserve.ReserveUnits(ctx)
	if err != nil {
		return WithdrawalResult{}, verrors.Wrap(verrors.CodeStoreUnavailable, "read reserve", err)
	}
	if reserveUnits < b.exchange.CurrencyToAsset(requestedValue) {
		return WithdrawalResult{Reason: ReasonInsufficientReserve}, nil
	}

	result, err := b.executeWithdrawal(ctx, agentID, requestedValue, validNotes, emergency)
	if err != nil || !result.Success {
		return result, err
	}

	b.limiter.MarkWithdrawal(agentID)
	b.limiter.Increment(agentID)
	return result, nil
}

// AdjustReserve applies an operator override to the reserve: positive units
// add, negative units remove. Removal still refuses to overdraw. Every
// adjustment is audited.
func (b *Bank) AdjustReserve(ctx context.Context, units int64, operator string) error {
	switch {
	case units == 0:
		return nil
	case units > 0:
		if err := b.reserve.AddToReserve(ctx, units); err != nil {
			return verrors.Wrap(verrors.CodeStoreUnavailable, "credit reserve", err)
		}
	default:
		removed, err := b.reserve.RemoveFromReserve(ctx, -units)
		if err != nil {
			return verrors.Wrap(verrors.CodeStoreUnavailable, "debit reserve", err)
		}
		if !removed {
			return verrors.New(verrors.CodeInvalidConfiguration, fmt.Sprintf("reserve cannot cover a %d unit debit", -units))
		}
	}
	b.audit.Record(ctx, storage.Transaction{
		Kind:        "reserve_adjustment",
		AgentID:     operator,
		AmountAsset: units,
		Details:     "operator override",
	})
	return nil
}

// validNote is a ledger-verified note present in an agent's holdings.
type validNote struct {
	serial       string
	denomination int
}

// validatedHoldings runs full validation over every token the agent holds
// and returns the verified notes with their summed currency value. Tokens
// failing validation are skipped here; confiscation is the security layer's
// policy, not the coordinator's.
func (b *Bank) validatedHoldings(ctx context.Context, agentID string) ([]validNote, int64, error) {
	tokens, err := b.holdings.AgentTokens(ctx, agentID)
	if err != nil {
		return nil, 0, verrors.Wrap(verrors.CodeStoreUnavailable, "list agent tokens", err)
	}
	var notes []validNote
	var total int64
	for _, token := range tokens {
		verdict, err := b.issuer.Validate(ctx, token)
		if err != nil {
			return nil, 0, err
		}
		if !verdict.Valid {
			continue
		}
		notes = append(notes, validNote{serial: verdict.Serial, denomination: verdict.Denomination})
		total += int64(verdict.Denomination)
	}
	return notes, total, nil
}

// executeWithdrawal redeems notes covering value and delivers the asset.
// Callers have already verified preconditions; the queue drain reuses this
// without the location and cooldown checks. The emergency fee is computed
// before any note is redeemed so no compensating transfer is ever needed
// for it: the fee simply stays in the vault.
func (b *Bank) executeWithdrawal(ctx context.Context, agentID string, value int64, notes []validNote, emergency bool) (WithdrawalResult, error) {
	assetEquivalent := b.exchange.CurrencyToAsset(value)
	var fee int64
	if emergency {
		fee = int64(float64(assetEquivalent) * b.cfg.EmergencyFeeRate)
	}
	deliverable := assetEquivalent - fee

	sort.Slice(notes, func(i, j int) bool {
		return notes[i].denomination > notes[j].denomination
	})

	var redeemed int64
	for _, note := range notes {
		if redeemed >= value {
			break
		}
		taken, err := b.holdings.RemoveNoteBySerial(ctx, agentID, note.serial)
		if err != nil || !taken {
			log.Printf("withdrawal for %s: note %s vanished from holdings mid-redemption (redeemed %d of %d): %v", agentID, note.serial, redeemed, value, err)
			return WithdrawalResult{Reason: ReasonNoteRemovalFailed, Value: redeemed}, nil
		}
		done, err := b.issuer.Redeem(ctx, note.serial, agentID)
		if err != nil || !done {
			// Notes redeemed so far stay redeemed; redemption is a
			// terminal ledger transition.
			log.Printf("withdrawal for %s: redeem note %s failed (redeemed %d of %d): %v", agentID, note.serial, redeemed, value, err)
			return WithdrawalResult{Reason: ReasonNoteRemovalFailed, Value: redeemed}, nil
		}
		redeemed += int64(note.denomination)
	}
	if redeemed < value {
		return WithdrawalResult{Reason: ReasonNoteRemovalFailed, Value: redeemed}, nil
	}

	removed, err := b.reserve.RemoveFromReserve(ctx, deliverable)
	if err != nil || !removed {
		// Notes are already redeemed but the asset was not released. Not
		// reversible: surface for operator reconciliation.
		b.recordInconsistency(ctx, agentID, redeemed, deliverable,
			fmt.Sprintf("withdrawal redeemed %d in notes but reserve release of %d units failed: %v", redeemed, deliverable, err))
		return WithdrawalResult{Reason: ReasonReserveRemovalFailed, Value: redeemed}, nil
	}

	if err := b.holdings.AddAsset(ctx, agentID, deliverable); err != nil {
		b.recordInconsistency(ctx, agentID, redeemed, deliverable,
			fmt.Sprintf("withdrawal released %d units from reserve but delivery failed: %v", deliverable, err))
		return WithdrawalResult{Reason: ReasonFatalInconsistency, Value: redeemed}, nil
	}

	details := ""
	if fee > 0 {
		details = fmt.Sprintf("emergency fee %d asset units retained", fee)
	}
	b.audit.Record(ctx, storage.Transaction{
		Kind:           "withdrawal",
		AgentID:        agentID,
		AmountCurrency: value,
		AmountAsset:    deliverable,
		Details:        details,
	})

	return WithdrawalResult{
		Success:        true,
		Value:          value,
		AssetDelivered: deliverable,
		FeeAsset:       fee,
	}, nil
}

// depositInconsistency reports a failure after the reserve was credited.
func (b *Bank) depositInconsistency(ctx context.Context, agentID string, value, assetUsed int64, issued []domain.Note, detail string) DepositResult {
	b.recordInconsistency(ctx, agentID, value, assetUsed, detail)
	return DepositResult{
		Reason:         ReasonFatalInconsistency,
		AssetUsed:      assetUsed,
		CurrencyIssued: domain.BreakdownValue(noteBreakdown(issued)),
		Notes:          issued,
	}
}

// recordInconsistency logs at the highest severity the coordinator has and
// leaves a durable audit marker for manual reconciliation.
func (b *Bank) recordInconsistency(ctx context.Context, agentID string, value, asset int64, detail string) {
	log.Printf("FATAL INCONSISTENCY agent=%s currency=%d asset=%d: %s", agentID, value, asset, detail)
	b.audit.Record(ctx, storage.Transaction{
		Kind:           "fatal_inconsistency",
		AgentID:        agentID,
		AmountCurrency: value,
		AmountAsset:    asset,
		Details:        detail,
	})
}

func noteBreakdown(notes []domain.Note) []domain.DenominationCount {
	counts := make(map[int]int64)
	for _, note := range notes {
		counts[note.Denomination]++
	}
	breakdown := make([]domain.DenominationCount, 0, len(counts))
	for denomination, count := range counts {
		breakdown = append(breakdown, domain.DenominationCount{Denomination: denomination, Count: count})
	}
	return breakdown
}
