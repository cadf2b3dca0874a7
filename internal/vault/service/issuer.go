package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	verrors "github.com/louisbranch/starvault/internal/errors"
	"github.com/louisbranch/starvault/internal/vault/domain"
	"github.com/louisbranch/starvault/internal/vault/storage"
)

// Validation reasons, stable strings for presentation layers.
const (
	ReasonMissingIssuerMarker  = "missing issuer marker"
	ReasonCopiedNote           = "copied note"
	ReasonUnrecognizedTitle    = "unrecognized title"
	ReasonCannotExtractSerial  = "cannot extract serial"
	ReasonInvalidSerial        = "invalid or redeemed serial"
	ReasonDenominationMismatch = "denomination mismatch"
)

// ValidationResult reports the outcome of checking a candidate note token.
type ValidationResult struct {
	Valid        bool
	Reason       string
	Serial       string
	Denomination int
}

// Issuer creates ledger-backed notes and authenticates candidate tokens
// against the ledger.
type Issuer struct {
	ledger        storage.LedgerStore
	denominations domain.Denominations
	symbol        string
	clock         func() time.Time
}

// NewIssuer returns an issuer over the ledger using cfg's denominations and
// currency symbol.
func NewIssuer(ledger storage.LedgerStore, cfg Config) *Issuer {
	return &Issuer{
		ledger:        ledger,
		denominations: cfg.Denominations,
		symbol:        cfg.Symbol,
		clock:         time.Now,
	}
}

// Issue creates one circulating note of the given denomination. The ledger
// write happens before any physical token exists, so every token in the world
// traces back to a ledger entry. A serial collision surfaces through the
// store's uniqueness constraint as an issuance failure.
func (i *Issuer) Issue(ctx context.Context, denomination int, issuedTo string) (domain.Note, error) {
	if !i.denominations.Contains(denomination) {
		return domain.Note{}, verrors.WithMetadata(verrors.CodeInvalidDenomination,
			fmt.Sprintf("denomination %d is not issued", denomination),
			map[string]string{"denomination": fmt.Sprintf("%d", denomination)})
	}
	serial, err := domain.NewSerial()
	if err != nil {
		return domain.Note{}, verrors.Wrap(verrors.CodeIssuanceFailed, "generate serial", err)
	}
	note := domain.Note{
		Serial:       serial,
		Denomination: denomination,
		IssuedTo:     issuedTo,
		Status:       domain.StatusCirculating,
		IssuedAt:     i.clock().UTC(),
	}
	if err := i.ledger.InsertNote(ctx, note); err != nil {
		return domain.Note{}, verrors.Wrap(verrors.CodeIssuanceFailed, "record note", err)
	}
	return note, nil
}

// Mint issues quantity notes of one denomination. Administrative use only;
// minted notes are unbacked until assets arrive, which the ratio monitor
// will surface.
func (i *Issuer) Mint(ctx context.Context, denomination, quantity int, issuedTo string) ([]domain.Note, error) {
	if quantity <= 0 {
		return nil, verrors.New(verrors.CodeInvalidConfiguration, fmt.Sprintf("mint quantity must be positive, got %d", quantity))
	}
	notes := make([]domain.Note, 0, quantity)
	for range quantity {
		note, err := i.Issue(ctx, denomination, issuedTo)
		if err != nil {
			return notes, err
		}
		notes = append(notes, note)
	}
	return notes, nil
}

// Validate checks a candidate token in fixed order, short-circuiting on the
// first failure. Structural checks run before any store access so forged
// tokens cannot cause a ledger query per check: issuer marker, copy marker,
// and title shape are verified first, then the embedded serial is extracted,
// looked up, and cross-checked against the recorded denomination.
func (i *Issuer) Validate(ctx context.Context, token domain.Token) (ValidationResult, error) {
	if token.Issuer != domain.TokenIssuer {
		return ValidationResult{Reason: ReasonMissingIssuerMarker}, nil
	}
	if token.Generation != domain.TokenGeneration {
		return ValidationResult{Reason: ReasonCopiedNote}, nil
	}
	denomination, ok := domain.ParseTokenTitle(token.Title, i.symbol)
	if !ok || !i.denominations.Contains(denomination) {
		return ValidationResult{Reason: ReasonUnrecognizedTitle}, nil
	}

	serial := token.ExtractSerial()
	if serial == "" {
		return ValidationResult{Reason: ReasonCannotExtractSerial, Denomination: denomination}, nil
	}

	note, err := i.ledger.GetNote(ctx, serial)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ValidationResult{Reason: ReasonInvalidSerial, Serial: serial, Denomination: denomination}, nil
		}
		return ValidationResult{}, verrors.Wrap(verrors.CodeStoreUnavailable, "look up note", err)
	}
	if note.Status != domain.StatusCirculating {
		return ValidationResult{Reason: ReasonInvalidSerial, Serial: serial, Denomination: denomination}, nil
	}
	if note.Denomination != denomination {
		return ValidationResult{Reason: ReasonDenominationMismatch, Serial: serial, Denomination: denomination}, nil
	}

	return ValidationResult{Valid: true, Serial: serial, Denomination: denomination}, nil
}

// Redeem transitions a note circulating → redeemed. The store performs the
// transition as a single conditional update, so exactly one of any number of
// concurrent redeemers succeeds.
func (i *Issuer) Redeem(ctx context.Context, serial, redeemedBy string) (bool, error) {
	return i.ledger.RedeemNote(ctx, serial, redeemedBy)
}

// ForceConfiscate transitions a note circulating → confiscated. Exposed for
// the security layer's forgery response; reports false when the note was not
// circulating.
func (i *Issuer) ForceConfiscate(ctx context.Context, serial, confiscatedBy string) (bool, error) {
	return i.ledger.ConfiscateNote(ctx, serial, confiscatedBy)
}
